package reassign

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	reassignerrors "github.com/flowstate/reassigner/pkg/errors"
)

type submission struct {
	vertex   VertexId
	subtask  SubtaskIndex
	snapshot TaskStateSnapshot
}

type recordingSink struct {
	calls []submission
	fail  error
}

func (s *recordingSink) SetInitialState(vertex VertexId, subtask SubtaskIndex, snapshot TaskStateSnapshot, restoreCheckpointID uint64) error {
	if s.fail != nil {
		return s.fail
	}
	s.calls = append(s.calls, submission{vertex: vertex, subtask: subtask, snapshot: snapshot})
	return nil
}

func keyedOperatorState(id OperatorId, oldParallelism, maxParallelism int32, handlesPerSubtask map[SubtaskIndex]KeyedStateHandle) OperatorState {
	s := NewOperatorState(id, oldParallelism, maxParallelism)
	for idx, h := range handlesPerSubtask {
		s.Subtasks[idx] = SubtaskState{ManagedKeyedState: []KeyedStateHandle{h}}
	}
	return s
}

// TestDriver_IdentityRescaleSubmitsInOrder covers a single-operator vertex
// rescaled 2->2 (identity fast path) and checks submission ordering.
func TestDriver_IdentityRescaleSubmitsInOrder(t *testing.T) {
	opID := NewOperatorId(0, 1)
	partitions, err := Partition(4, 2)
	require.NoError(t, err)

	prior := keyedOperatorState(opID, 2, 4, map[SubtaskIndex]KeyedStateHandle{
		0: NewRangeKeyedStateHandle("h0", partitions[0]),
		1: NewRangeKeyedStateHandle("h1", partitions[1]),
	})

	states := NewOperatorStates()
	states.Put(prior)

	topo := NewStaticTopology()
	topo.AddVertex("v1", OperatorChain{Ids: []OperatorId{opID}, AltIds: []OperatorId{{}}}, 2, 4, true)

	sink := &recordingSink{}
	result, err := Run(CheckpointMetadata{RestoreCheckpointID: 7, States: states}, topo, Options{}, sink)
	require.NoError(t, err)

	assert.Equal(t, 2, result.SubmittedCount)
	assert.Equal(t, []VertexId{"v1"}, result.SubmittedVertices)
	require.Len(t, sink.calls, 2)
	assert.Equal(t, SubtaskIndex(0), sink.calls[0].subtask)
	assert.Equal(t, SubtaskIndex(1), sink.calls[1].subtask)
	assert.True(t, sink.calls[0].snapshot.OperatorStates[opID].ManagedKeyedState[0].Equal(NewRangeKeyedStateHandle("h0", partitions[0])))
}

// TestDriver_VertexSubmissionOrderIsAscending verifies the driver submits
// vertices in ascending VertexId order regardless of topology iteration
// order.
func TestDriver_VertexSubmissionOrderIsAscending(t *testing.T) {
	opA := NewOperatorId(0, 1)
	opB := NewOperatorId(0, 2)

	statesA := keyedOperatorState(opA, 1, 2, map[SubtaskIndex]KeyedStateHandle{
		0: NewRangeKeyedStateHandle("a0", KeyGroupRange{Lo: 0, Hi: 1}),
	})
	statesB := keyedOperatorState(opB, 1, 2, map[SubtaskIndex]KeyedStateHandle{
		0: NewRangeKeyedStateHandle("b0", KeyGroupRange{Lo: 0, Hi: 1}),
	})

	states := NewOperatorStates()
	states.Put(statesA)
	states.Put(statesB)

	topo := NewStaticTopology()
	topo.AddVertex("vZ", OperatorChain{Ids: []OperatorId{opB}, AltIds: []OperatorId{{}}}, 1, 2, true)
	topo.AddVertex("vA", OperatorChain{Ids: []OperatorId{opA}, AltIds: []OperatorId{{}}}, 1, 2, true)

	sink := &recordingSink{}
	result, err := Run(CheckpointMetadata{RestoreCheckpointID: 1, States: states}, topo, Options{}, sink)
	require.NoError(t, err)
	assert.Equal(t, []VertexId{"vA", "vZ"}, result.SubmittedVertices)
}

// TestDriver_FatalPreconditionSubmitsNothing covers §8's precondition
// enforcement property: a fatal precondition failure yields zero submissions.
func TestDriver_FatalPreconditionSubmitsNothing(t *testing.T) {
	opID := NewOperatorId(0, 1)
	prior := keyedOperatorState(opID, 2, 4, map[SubtaskIndex]KeyedStateHandle{
		0: NewRangeKeyedStateHandle("h0", KeyGroupRange{Lo: 0, Hi: 1}),
		1: NewRangeKeyedStateHandle("h1", KeyGroupRange{Lo: 2, Hi: 3}),
	})
	states := NewOperatorStates()
	states.Put(prior)

	topo := NewStaticTopology()
	// new parallelism (8) exceeds restored max_parallelism (4): fatal.
	topo.AddVertex("v1", OperatorChain{Ids: []OperatorId{opID}, AltIds: []OperatorId{{}}}, 8, 8, true)

	sink := &recordingSink{}
	result, err := Run(CheckpointMetadata{RestoreCheckpointID: 1, States: states}, topo, Options{}, sink)
	require.Error(t, err)
	assert.Equal(t, reassignerrors.CodeMaxParallelismTooLow, reassignerrors.GetErrorCode(err))
	assert.Zero(t, result.SubmittedCount)
	assert.Empty(t, sink.calls)
}

// TestDriver_KeyedStateOnNonHeadOperatorIsRejected covers §4.9's chain-
// position check: only the chain's head (last index) may carry keyed state.
func TestDriver_KeyedStateOnNonHeadOperatorIsRejected(t *testing.T) {
	headOp := NewOperatorId(0, 1)
	nonHeadOp := NewOperatorId(0, 2)

	states := NewOperatorStates()
	states.Put(keyedOperatorState(headOp, 1, 2, map[SubtaskIndex]KeyedStateHandle{
		0: NewRangeKeyedStateHandle("h", KeyGroupRange{Lo: 0, Hi: 1}),
	}))
	states.Put(keyedOperatorState(nonHeadOp, 1, 2, map[SubtaskIndex]KeyedStateHandle{
		0: NewRangeKeyedStateHandle("bad", KeyGroupRange{Lo: 0, Hi: 1}),
	}))

	topo := NewStaticTopology()
	// chain order: nonHeadOp at position 0, headOp at position 1 (the head).
	topo.AddVertex("v1", OperatorChain{
		Ids:    []OperatorId{nonHeadOp, headOp},
		AltIds: []OperatorId{{}, {}},
	}, 1, 2, true)

	sink := &recordingSink{}
	_, err := Run(CheckpointMetadata{RestoreCheckpointID: 1, States: states}, topo, Options{}, sink)
	require.Error(t, err)
	assert.Equal(t, reassignerrors.CodeKeyedStateOnNonHeadOperator, reassignerrors.GetErrorCode(err))
	assert.Empty(t, sink.calls)
}

// TestDriver_DuplicateOperatorIdInChainIsRejected covers a malformed
// topology where the same operator id appears twice in one vertex's chain:
// without the duplicate-instance guard, the second position would silently
// read back and re-merge the first position's accumulated per-subtask state
// instead of erroring.
func TestDriver_DuplicateOperatorIdInChainIsRejected(t *testing.T) {
	op := NewOperatorId(0, 1)

	states := NewOperatorStates()
	prior := NewOperatorState(op, 2, 2)
	prior.Subtasks[0] = managedOperatorStateFor("s")
	states.Put(prior)

	topo := NewStaticTopology()
	topo.AddVertex("v1", OperatorChain{
		Ids:    []OperatorId{op, op},
		AltIds: []OperatorId{{}, {}},
	}, 2, 2, true)

	sink := &recordingSink{}
	_, err := Run(CheckpointMetadata{RestoreCheckpointID: 1, States: states}, topo, Options{}, sink)
	require.Error(t, err)
	assert.Equal(t, reassignerrors.CodeInternalInvariant, reassignerrors.GetErrorCode(err))
	assert.Empty(t, sink.calls)
}

// TestDriver_SkipsEmptySnapshots verifies that new subtasks which end up with
// no state at all (e.g. scaling up far beyond the old parallelism with
// sparse prior state) are never submitted.
func TestDriver_SkipsEmptySnapshots(t *testing.T) {
	opID := NewOperatorId(0, 1)

	// One SPLIT_DISTRIBUTE sub-partition from a single old subtask: after
	// scaling 1->4 only new subtask 0 receives it; subtasks 1-3 end up empty.
	prior := NewOperatorState(opID, 1, 4)
	prior.Subtasks[0] = managedOperatorStateFor("s")
	states := NewOperatorStates()
	states.Put(prior)

	topo := NewStaticTopology()
	topo.AddVertex("v1", OperatorChain{Ids: []OperatorId{opID}, AltIds: []OperatorId{{}}}, 4, 4, true)

	sink := &recordingSink{}
	result, err := Run(CheckpointMetadata{RestoreCheckpointID: 1, States: states}, topo, Options{}, sink)
	require.NoError(t, err)
	assert.Equal(t, 1, result.SubmittedCount)
	require.Len(t, sink.calls, 1)
	assert.Equal(t, SubtaskIndex(0), sink.calls[0].subtask)
}

// TestDriver_Determinism runs the same input twice and checks the submitted
// snapshots are identical.
func TestDriver_Determinism(t *testing.T) {
	opID := NewOperatorId(0, 1)
	partitions, err := Partition(6, 3)
	require.NoError(t, err)

	buildStates := func() *OperatorStates {
		prior := keyedOperatorState(opID, 3, 6, map[SubtaskIndex]KeyedStateHandle{
			0: NewRangeKeyedStateHandle("h0", partitions[0]),
			1: NewRangeKeyedStateHandle("h1", partitions[1]),
			2: NewRangeKeyedStateHandle("h2", partitions[2]),
		})
		states := NewOperatorStates()
		states.Put(prior)
		return states
	}

	topo := NewStaticTopology()
	topo.AddVertex("v1", OperatorChain{Ids: []OperatorId{opID}, AltIds: []OperatorId{{}}}, 5, 6, true)

	sinkA := &recordingSink{}
	_, err = Run(CheckpointMetadata{RestoreCheckpointID: 9, States: buildStates()}, topo, Options{}, sinkA)
	require.NoError(t, err)

	sinkB := &recordingSink{}
	_, err = Run(CheckpointMetadata{RestoreCheckpointID: 9, States: buildStates()}, topo, Options{}, sinkB)
	require.NoError(t, err)

	require.Equal(t, len(sinkA.calls), len(sinkB.calls))
	for i := range sinkA.calls {
		assert.Equal(t, sinkA.calls[i].vertex, sinkB.calls[i].vertex)
		assert.Equal(t, sinkA.calls[i].subtask, sinkB.calls[i].subtask)
		assert.Equal(t, sinkA.calls[i].snapshot, sinkB.calls[i].snapshot)
	}
}

// TestDriver_SinkErrorPropagates verifies a SchedulerSink failure surfaces to
// the caller with whatever partial result was accumulated.
func TestDriver_SinkErrorPropagates(t *testing.T) {
	opID := NewOperatorId(0, 1)
	prior := keyedOperatorState(opID, 1, 2, map[SubtaskIndex]KeyedStateHandle{
		0: NewRangeKeyedStateHandle("h", KeyGroupRange{Lo: 0, Hi: 1}),
	})
	states := NewOperatorStates()
	states.Put(prior)

	topo := NewStaticTopology()
	topo.AddVertex("v1", OperatorChain{Ids: []OperatorId{opID}, AltIds: []OperatorId{{}}}, 1, 2, true)

	sink := &recordingSink{fail: reassignerrors.New(reassignerrors.CodeRPCError, "unreachable")}
	_, err := Run(CheckpointMetadata{RestoreCheckpointID: 1, States: states}, topo, Options{}, sink)
	require.Error(t, err)
	assert.Equal(t, reassignerrors.CodeRPCError, reassignerrors.GetErrorCode(err))
}
