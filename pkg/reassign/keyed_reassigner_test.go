package reassign

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func managedKeyedState(handles ...KeyedStateHandle) SubtaskState {
	return SubtaskState{ManagedKeyedState: handles}
}

// TestScenario1_IdentityFastPath covers spec scenario 1: M=4, P_old=2,
// P_new=2, identity fast path reuses handles verbatim.
func TestScenario1_IdentityFastPath(t *testing.T) {
	h0 := NewRangeKeyedStateHandle("h0", KeyGroupRange{Lo: 0, Hi: 1})
	h1 := NewRangeKeyedStateHandle("h1", KeyGroupRange{Lo: 2, Hi: 3})

	prior := NewOperatorState(NewOperatorId(0, 1), 2, 4)
	prior.Subtasks[0] = managedKeyedState(h0)
	prior.Subtasks[1] = managedKeyedState(h1)

	partitions, err := Partition(4, 2)
	require.NoError(t, err)

	managed, raw, err := ReassignKeyedState(prior, partitions)
	require.NoError(t, err)
	assert.Empty(t, raw[0])
	assert.Empty(t, raw[1])
	require.Len(t, managed[0], 1)
	require.Len(t, managed[1], 1)
	assert.True(t, managed[0][0].Equal(h0))
	assert.True(t, managed[1][0].Equal(h1))
}

// TestScenario2_ScaleUpIntersects covers spec scenario 2: M=4, P_old=2,
// P_new=4 — every old handle intersected against each new partition.
func TestScenario2_ScaleUpIntersects(t *testing.T) {
	h0 := NewRangeKeyedStateHandle("h0", KeyGroupRange{Lo: 0, Hi: 1})
	h1 := NewRangeKeyedStateHandle("h1", KeyGroupRange{Lo: 2, Hi: 3})

	prior := NewOperatorState(NewOperatorId(0, 1), 2, 4)
	prior.Subtasks[0] = managedKeyedState(h0)
	prior.Subtasks[1] = managedKeyedState(h1)

	partitions, err := Partition(4, 4)
	require.NoError(t, err)

	managed, _, err := ReassignKeyedState(prior, partitions)
	require.NoError(t, err)

	expectRange := func(handles []KeyedStateHandle, lo, hi int32) {
		require.Len(t, handles, 1)
		assert.Equal(t, KeyGroupRange{Lo: lo, Hi: hi}, handles[0].KeyGroupRange())
	}
	expectRange(managed[0], 0, 0)
	expectRange(managed[1], 1, 1)
	expectRange(managed[2], 2, 2)
	expectRange(managed[3], 3, 3)
}

// TestScenario3_ScaleDownMergesHandles covers spec scenario 3: M=4,
// P_old=4, P_new=2 — each new subtask collects intersections from multiple
// old subtasks.
func TestScenario3_ScaleDownMergesHandles(t *testing.T) {
	h := make([]KeyedStateHandle, 4)
	for i := int32(0); i < 4; i++ {
		h[i] = NewRangeKeyedStateHandle("h", KeyGroupRange{Lo: i, Hi: i})
	}

	prior := NewOperatorState(NewOperatorId(0, 1), 4, 4)
	for i := 0; i < 4; i++ {
		prior.Subtasks[SubtaskIndex(i)] = managedKeyedState(h[i])
	}

	partitions, err := Partition(4, 2)
	require.NoError(t, err)

	managed, _, err := ReassignKeyedState(prior, partitions)
	require.NoError(t, err)
	require.Len(t, managed[0], 2)
	require.Len(t, managed[1], 2)

	assert.Equal(t, KeyGroupRange{Lo: 0, Hi: 0}, managed[0][0].KeyGroupRange())
	assert.Equal(t, KeyGroupRange{Lo: 1, Hi: 1}, managed[0][1].KeyGroupRange())
	assert.Equal(t, KeyGroupRange{Lo: 2, Hi: 2}, managed[1][0].KeyGroupRange())
	assert.Equal(t, KeyGroupRange{Lo: 3, Hi: 3}, managed[1][1].KeyGroupRange())
}

// TestReassignKeyedState_CoverageAndNonOverlap checks the universal §8
// invariants across a range of M/P_old/P_new combinations.
func TestReassignKeyedState_CoverageAndNonOverlap(t *testing.T) {
	cases := []struct{ m, pOld, pNew int32 }{
		{16, 3, 5}, {16, 5, 3}, {9, 9, 1}, {9, 1, 9},
	}

	for _, tc := range cases {
		oldPartitions, err := Partition(tc.m, tc.pOld)
		require.NoError(t, err)

		prior := NewOperatorState(NewOperatorId(0, 1), tc.pOld, tc.m)
		for i, r := range oldPartitions {
			prior.Subtasks[SubtaskIndex(i)] = managedKeyedState(NewRangeKeyedStateHandle("h", r))
		}

		newPartitions, err := Partition(tc.m, tc.pNew)
		require.NoError(t, err)

		managed, _, err := ReassignKeyedState(prior, newPartitions)
		require.NoError(t, err)

		coverage := make(map[int32]int)
		for _, handles := range managed {
			seen := make(map[int32]bool)
			for _, h := range handles {
				r := h.KeyGroupRange()
				for g := r.Lo; g <= r.Hi; g++ {
					assert.False(t, seen[g], "overlap within same subtask for key group %d", g)
					seen[g] = true
					coverage[g]++
				}
			}
		}
		for g := int32(0); g < tc.m; g++ {
			assert.Equal(t, 1, coverage[g], "key group %d must be covered exactly once (m=%d pOld=%d pNew=%d)", g, tc.m, tc.pOld, tc.pNew)
		}
	}
}

func TestReassignKeyedState_Determinism(t *testing.T) {
	prior := NewOperatorState(NewOperatorId(0, 1), 3, 12)
	parts, _ := Partition(12, 3)
	for i, r := range parts {
		prior.Subtasks[SubtaskIndex(i)] = managedKeyedState(NewRangeKeyedStateHandle("h", r))
	}

	newParts, _ := Partition(12, 5)
	a, _, err := ReassignKeyedState(prior, newParts)
	require.NoError(t, err)
	b, _, err := ReassignKeyedState(prior, newParts)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}
