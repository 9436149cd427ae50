package reassign

// SubtaskState is the four handle collections a single subtask (old or new)
// carries for one operator: managed and raw variants of operator-state and
// keyed-state. Invariant: if ManagedKeyed is empty, RawKeyed must be empty
// too — keyed-state rawness mirrors managedness, it never diverges.
type SubtaskState struct {
	ManagedOperatorState []OperatorStateHandle
	RawOperatorState     []OperatorStateHandle
	ManagedKeyedState    []KeyedStateHandle
	RawKeyedState        []KeyedStateHandle
}

// HasState reports whether any of the four collections is non-empty.
func (s SubtaskState) HasState() bool {
	return len(s.ManagedOperatorState) > 0 ||
		len(s.RawOperatorState) > 0 ||
		len(s.ManagedKeyedState) > 0 ||
		len(s.RawKeyedState) > 0
}

// Valid checks the keyed-state rawness-mirrors-managedness invariant from §3.
func (s SubtaskState) Valid() bool {
	if len(s.ManagedKeyedState) == 0 && len(s.RawKeyedState) != 0 {
		return false
	}
	return true
}

// TaskStateSnapshot is the per-new-subtask-attempt output of reassignment: a
// mapping from OperatorId to that operator's SubtaskState, plus the
// checkpoint id that produced it.
type TaskStateSnapshot struct {
	RestoreCheckpointID uint64
	OperatorStates      map[OperatorId]SubtaskState
}

// NewTaskStateSnapshot builds an empty snapshot tagged with the given
// restore checkpoint id.
func NewTaskStateSnapshot(restoreCheckpointID uint64) TaskStateSnapshot {
	return TaskStateSnapshot{
		RestoreCheckpointID: restoreCheckpointID,
		OperatorStates:      make(map[OperatorId]SubtaskState),
	}
}

// HasState reports whether any operator in the snapshot carries state.
func (t TaskStateSnapshot) HasState() bool {
	for _, s := range t.OperatorStates {
		if s.HasState() {
			return true
		}
	}
	return false
}
