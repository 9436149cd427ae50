// Package rpc carries TaskStateSnapshot values the Assignment Driver
// produces across a process boundary to the scheduler that owns task
// deployment, as a small gRPC service implementing pkg/reassign.SchedulerSink.
//
// The donor's stack brings in google.golang.org/grpc but none of the
// examples ship a .proto file or generated stubs, so this service is
// hand-registered: messages are plain Go structs encoded with a gob-based
// grpc codec (codec.go) instead of protobuf-generated marshal code.
package rpc

import (
	"github.com/flowstate/reassigner/pkg/reassign"
)

// OperatorIdMsg is the wire form of reassign.OperatorId: its 16-byte
// canonical encoding. OperatorId's hi/lo fields are unexported, so gob
// (which only round-trips exported fields) cannot carry it directly.
type OperatorIdMsg struct {
	Bytes []byte
}

func toOperatorIdMsg(id reassign.OperatorId) OperatorIdMsg {
	b := id.Bytes()
	return OperatorIdMsg{Bytes: b[:]}
}

func (m OperatorIdMsg) toOperatorId() reassign.OperatorId {
	var arr [16]byte
	copy(arr[:], m.Bytes)
	return reassign.OperatorIdFromBytes(arr)
}

// KeyedHandleMsg is the wire form of a reassign.KeyedStateHandle, matching
// the reference rangeHandle implementation behind
// reassign.NewRangeKeyedStateHandle.
type KeyedHandleMsg struct {
	ID string
	Lo int32
	Hi int32
}

func toKeyedHandleMsgs(handles []reassign.KeyedStateHandle) []KeyedHandleMsg {
	if len(handles) == 0 {
		return nil
	}
	out := make([]KeyedHandleMsg, len(handles))
	for i, h := range handles {
		r := h.KeyGroupRange()
		out[i] = KeyedHandleMsg{ID: h.ID(), Lo: r.Lo, Hi: r.Hi}
	}
	return out
}

func fromKeyedHandleMsgs(msgs []KeyedHandleMsg) []reassign.KeyedStateHandle {
	if len(msgs) == 0 {
		return nil
	}
	out := make([]reassign.KeyedStateHandle, len(msgs))
	for i, m := range msgs {
		out[i] = reassign.NewRangeKeyedStateHandle(m.ID, reassign.KeyGroupRange{Lo: m.Lo, Hi: m.Hi})
	}
	return out
}

// SubtaskStateMsg is the wire form of reassign.SubtaskState. Operator-state
// handles are plain exported structs already, so gob carries them as-is.
type SubtaskStateMsg struct {
	OperatorID           OperatorIdMsg
	ManagedOperatorState []reassign.OperatorStateHandle
	RawOperatorState     []reassign.OperatorStateHandle
	ManagedKeyedState    []KeyedHandleMsg
	RawKeyedState        []KeyedHandleMsg
}

// TaskStateSnapshotMsg is the wire form of reassign.TaskStateSnapshot: its
// OperatorStates map keyed by operator id, flattened into a slice since
// OperatorId cannot serve as a gob map key (see OperatorIdMsg).
type TaskStateSnapshotMsg struct {
	RestoreCheckpointID uint64
	States              []SubtaskStateMsg
}

func toTaskStateSnapshotMsg(s reassign.TaskStateSnapshot) TaskStateSnapshotMsg {
	msg := TaskStateSnapshotMsg{RestoreCheckpointID: s.RestoreCheckpointID}
	for opID, sub := range s.OperatorStates {
		msg.States = append(msg.States, SubtaskStateMsg{
			OperatorID:           toOperatorIdMsg(opID),
			ManagedOperatorState: sub.ManagedOperatorState,
			RawOperatorState:     sub.RawOperatorState,
			ManagedKeyedState:    toKeyedHandleMsgs(sub.ManagedKeyedState),
			RawKeyedState:        toKeyedHandleMsgs(sub.RawKeyedState),
		})
	}
	return msg
}

func fromTaskStateSnapshotMsg(msg TaskStateSnapshotMsg) reassign.TaskStateSnapshot {
	snapshot := reassign.NewTaskStateSnapshot(msg.RestoreCheckpointID)
	for _, sub := range msg.States {
		snapshot.OperatorStates[sub.OperatorID.toOperatorId()] = reassign.SubtaskState{
			ManagedOperatorState: sub.ManagedOperatorState,
			RawOperatorState:     sub.RawOperatorState,
			ManagedKeyedState:    fromKeyedHandleMsgs(sub.ManagedKeyedState),
			RawKeyedState:        fromKeyedHandleMsgs(sub.RawKeyedState),
		}
	}
	return snapshot
}

// SetInitialStateRequest is the SchedulerSink.SetInitialState call, carried
// over the wire.
type SetInitialStateRequest struct {
	Vertex              string
	Subtask             int32
	RestoreCheckpointID uint64
	Snapshot            TaskStateSnapshotMsg
}

// SetInitialStateResponse is intentionally empty; errors travel as gRPC
// status errors rather than a response field.
type SetInitialStateResponse struct{}
