package reassign

import (
	reassignerrors "github.com/flowstate/reassigner/pkg/errors"
)

// ReassignKeyedState implements §4.6 for a single head operator: given its
// OperatorState from the prior execution and the new key-group partitions,
// it produces the managed-keyed and raw-keyed handle lists for every new
// subtask.
//
// If newParallelism == prior.OldParallelism, the original subtask's keyed
// handles are reused verbatim without intersection — the identity fast path
// preserved per the spec's open-question decision (DESIGN.md) to protect
// any backend-internal locality a handle might carry. Otherwise every old
// subtask's handles are intersected against each new subtask's range and
// non-empty results are collected.
func ReassignKeyedState(prior OperatorState, newPartitions []KeyGroupRange) (managed [][]KeyedStateHandle, raw [][]KeyedStateHandle, err error) {
	newParallelism := int32(len(newPartitions))
	managed = make([][]KeyedStateHandle, newParallelism)
	raw = make([][]KeyedStateHandle, newParallelism)

	if newParallelism == prior.OldParallelism {
		for s := SubtaskIndex(0); int32(s) < newParallelism; s++ {
			if st, ok := prior.Subtasks[s]; ok {
				managed[s] = append(managed[s], st.ManagedKeyedState...)
				raw[s] = append(raw[s], st.RawKeyedState...)
			}
		}
		return managed, raw, nil
	}

	for _, oldIdx := range prior.OrderedSubtaskIndices() {
		st := prior.Subtasks[oldIdx]
		for newIdx, target := range newPartitions {
			for _, h := range st.ManagedKeyedState {
				if ih, ok, ierr := intersectChecked(h, target); ierr != nil {
					return nil, nil, ierr
				} else if ok {
					managed[newIdx] = append(managed[newIdx], ih)
				}
			}
			for _, h := range st.RawKeyedState {
				if ih, ok, ierr := intersectChecked(h, target); ierr != nil {
					return nil, nil, ierr
				} else if ok {
					raw[newIdx] = append(raw[newIdx], ih)
				}
			}
		}
	}
	return managed, raw, nil
}

// intersectChecked invokes the handle's Intersect and verifies the result
// (when present) lies within the requested range — guarding against the
// HandleIntersectCorrupt condition an implementation bug in a third-party
// handle could trigger.
func intersectChecked(h KeyedStateHandle, target KeyGroupRange) (KeyedStateHandle, bool, error) {
	ih, ok := h.Intersect(target)
	if !ok {
		return nil, false, nil
	}
	result := ih.KeyGroupRange()
	if result.IsEmpty() || result.Lo < target.Lo || result.Hi > target.Hi {
		return nil, false, reassignerrors.Newf(reassignerrors.CodeHandleIntersectCorrupt,
			"handle %s intersected with %s produced out-of-bounds range %s", h.ID(), target, result)
	}
	return ih, true, nil
}
