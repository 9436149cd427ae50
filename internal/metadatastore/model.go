// Package metadatastore reads the opaque CheckpointMetadata blob a restore
// points at (object storage or a local directory, via internal/storage) and
// decodes it into the reassignment core's pkg/reassign data model through a
// narrow, swappable Codec.
//
// The on-disk/on-wire layout is owned by whatever outer system wrote the
// checkpoint, not by this core; JSONCodec below is this store's reference
// codec, not a contract other systems must honor.
package metadatastore

import (
	"encoding/hex"
	"fmt"

	"github.com/flowstate/reassigner/pkg/reassign"
)

// CheckpointMetadata is the decoded form of one checkpoint's state directory:
// the checkpoint id it was restored from, and the prior execution's
// per-operator state records.
type CheckpointMetadata struct {
	RestoreCheckpointID uint64              `json:"restore_checkpoint_id"`
	Operators           []OperatorStateWire `json:"operators"`
	// VertexChainLengths records, per vertex, how many operator chain
	// positions the prior execution's own topology had for it. The
	// Preconditions Checker compares this against the new topology's chain
	// length independent of operator id matching (§4.8). A vertex absent
	// from this map is treated as carrying no prior chain-length record.
	VertexChainLengths map[string]int32 `json:"vertex_chain_lengths,omitempty"`
}

// OperatorStateWire is the wire form of reassign.OperatorState: OperatorId
// rendered as its fixed-width hex string, subtasks keyed by their plain
// integer index.
type OperatorStateWire struct {
	OperatorID     string                      `json:"operator_id"`
	OldParallelism int32                       `json:"old_parallelism"`
	MaxParallelism int32                       `json:"max_parallelism"`
	Subtasks       map[int32]SubtaskStateWire `json:"subtasks,omitempty"`
}

// SubtaskStateWire is the wire form of reassign.SubtaskState. Operator-state
// handles serialize directly since reassign.OperatorStateHandle is already a
// plain exported struct; keyed-state handles go through KeyedStateHandleWire
// since reassign.KeyedStateHandle is an interface.
type SubtaskStateWire struct {
	ManagedOperatorState []reassign.OperatorStateHandle `json:"managed_operator_state,omitempty"`
	RawOperatorState     []reassign.OperatorStateHandle `json:"raw_operator_state,omitempty"`
	ManagedKeyedState    []KeyedStateHandleWire         `json:"managed_keyed_state,omitempty"`
	RawKeyedState        []KeyedStateHandleWire         `json:"raw_keyed_state,omitempty"`
}

// KeyedStateHandleWire is the wire form of the reference rangeHandle
// implementation behind reassign.NewRangeKeyedStateHandle. A codec decoding
// a blob produced by a different KeyedStateHandle implementation would need
// its own wire type and Codec; this one matches what this store writes.
type KeyedStateHandleWire struct {
	ID string `json:"id"`
	Lo int32  `json:"lo"`
	Hi int32  `json:"hi"`
}

// ToOperatorStates decodes m into the reassignment core's index type.
func (m *CheckpointMetadata) ToOperatorStates() (*reassign.OperatorStates, error) {
	states := reassign.NewOperatorStates()
	for _, ow := range m.Operators {
		opID, err := operatorIDFromHex(ow.OperatorID)
		if err != nil {
			return nil, fmt.Errorf("operator %q: %w", ow.OperatorID, err)
		}
		state := reassign.NewOperatorState(opID, ow.OldParallelism, ow.MaxParallelism)
		for subtask, sw := range ow.Subtasks {
			keyed, err := decodeKeyedHandles(sw.ManagedKeyedState)
			if err != nil {
				return nil, fmt.Errorf("operator %q subtask %d managed keyed state: %w", ow.OperatorID, subtask, err)
			}
			rawKeyed, err := decodeKeyedHandles(sw.RawKeyedState)
			if err != nil {
				return nil, fmt.Errorf("operator %q subtask %d raw keyed state: %w", ow.OperatorID, subtask, err)
			}
			state.Subtasks[reassign.SubtaskIndex(subtask)] = reassign.SubtaskState{
				ManagedOperatorState: sw.ManagedOperatorState,
				RawOperatorState:     sw.RawOperatorState,
				ManagedKeyedState:    keyed,
				RawKeyedState:        rawKeyed,
			}
		}
		states.Put(state)
	}
	for vertex, length := range m.VertexChainLengths {
		states.SetVertexChainLength(reassign.VertexId(vertex), length)
	}
	return states, nil
}

// FromOperatorStates builds a CheckpointMetadata from the reassignment
// core's in-memory index, the inverse of ToOperatorStates. Used to persist a
// snapshot back to the metadata store and by tests to build round-trip
// fixtures without hand-writing wire JSON.
func FromOperatorStates(restoreCheckpointID uint64, states *reassign.OperatorStates) *CheckpointMetadata {
	m := &CheckpointMetadata{RestoreCheckpointID: restoreCheckpointID}
	for _, id := range states.Remaining() {
		s, _ := states.Get(id)
		ow := OperatorStateWire{
			OperatorID:     operatorIDToHex(id),
			OldParallelism: s.OldParallelism,
			MaxParallelism: s.MaxParallelism,
		}
		if len(s.Subtasks) > 0 {
			ow.Subtasks = make(map[int32]SubtaskStateWire, len(s.Subtasks))
			for subtask, sub := range s.Subtasks {
				ow.Subtasks[int32(subtask)] = SubtaskStateWire{
					ManagedOperatorState: sub.ManagedOperatorState,
					RawOperatorState:     sub.RawOperatorState,
					ManagedKeyedState:    encodeKeyedHandles(sub.ManagedKeyedState),
					RawKeyedState:        encodeKeyedHandles(sub.RawKeyedState),
				}
			}
		}
		m.Operators = append(m.Operators, ow)
	}
	if lengths := states.VertexChainLengths(); len(lengths) > 0 {
		m.VertexChainLengths = make(map[string]int32, len(lengths))
		for vertex, length := range lengths {
			m.VertexChainLengths[string(vertex)] = length
		}
	}
	return m
}

func decodeKeyedHandles(wire []KeyedStateHandleWire) ([]reassign.KeyedStateHandle, error) {
	if len(wire) == 0 {
		return nil, nil
	}
	out := make([]reassign.KeyedStateHandle, len(wire))
	for i, w := range wire {
		out[i] = reassign.NewRangeKeyedStateHandle(w.ID, reassign.KeyGroupRange{Lo: w.Lo, Hi: w.Hi})
	}
	return out, nil
}

func encodeKeyedHandles(handles []reassign.KeyedStateHandle) []KeyedStateHandleWire {
	if len(handles) == 0 {
		return nil
	}
	out := make([]KeyedStateHandleWire, len(handles))
	for i, h := range handles {
		r := h.KeyGroupRange()
		out[i] = KeyedStateHandleWire{ID: h.ID(), Lo: r.Lo, Hi: r.Hi}
	}
	return out
}

func operatorIDToHex(id reassign.OperatorId) string {
	b := id.Bytes()
	return hex.EncodeToString(b[:])
}

func operatorIDFromHex(s string) (reassign.OperatorId, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return reassign.OperatorId{}, fmt.Errorf("invalid operator id hex: %w", err)
	}
	if len(b) != 16 {
		return reassign.OperatorId{}, fmt.Errorf("operator id must decode to 16 bytes, got %d", len(b))
	}
	var arr [16]byte
	copy(arr[:], b)
	return reassign.OperatorIdFromBytes(arr), nil
}
