package reassign

// OperatorState is one stateful operator's full prior-execution record: a
// sparse mapping from old subtask index to that subtask's SubtaskState, plus
// the parallelism and max-parallelism the prior execution ran with.
type OperatorState struct {
	OperatorID     OperatorId
	OldParallelism int32
	MaxParallelism int32
	// Subtasks is sparse: a stateless operator may omit entries entirely, or
	// an operator may have had fewer stateful subtasks than its parallelism.
	Subtasks map[SubtaskIndex]SubtaskState
}

// NewOperatorState builds an OperatorState with an empty subtask map.
func NewOperatorState(id OperatorId, oldParallelism, maxParallelism int32) OperatorState {
	return OperatorState{
		OperatorID:     id,
		OldParallelism: oldParallelism,
		MaxParallelism: maxParallelism,
		Subtasks:       make(map[SubtaskIndex]SubtaskState),
	}
}

// IsStateless reports whether this operator recorded no subtask state at all.
func (s OperatorState) IsStateless() bool {
	return len(s.Subtasks) == 0
}

// OrderedSubtaskIndices returns the recorded subtask indices in ascending
// order, the iteration order §4.7's SPLIT_DISTRIBUTE ordering depends on.
func (s OperatorState) OrderedSubtaskIndices() []SubtaskIndex {
	out := make([]SubtaskIndex, 0, len(s.Subtasks))
	for idx := range s.Subtasks {
		out = append(out, idx)
	}
	sortSubtaskIndices(out)
	return out
}

func sortSubtaskIndices(s []SubtaskIndex) {
	// insertion sort: prior-execution subtask counts are small (bounded by
	// parallelism), and this keeps the ordering deterministic without
	// pulling in sort.Slice's reflection-based comparator for a hot path
	// that runs once per operator per reassignment.
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}

// OperatorStates is the ordered index over every stateful operator the prior
// execution recorded, keyed by OperatorId. Construction order is preserved
// via ids so Get/Contains/Remove behave like an ordered map.
type OperatorStates struct {
	byID         map[OperatorId]OperatorState
	ids          []OperatorId
	chainLengths map[VertexId]int32
}

// NewOperatorStates builds an empty index.
func NewOperatorStates() *OperatorStates {
	return &OperatorStates{
		byID:         make(map[OperatorId]OperatorState),
		chainLengths: make(map[VertexId]int32),
	}
}

// SetVertexChainLength records the prior execution's chain length for
// vertex, the input the Preconditions Checker's chain-length check (§4.8)
// compares the new topology's chain length against. The prior execution's
// metadata source is responsible for populating this; a vertex with no
// entry is treated as carrying no prior chain-length record at all (the
// check is vacuous for it).
func (idx *OperatorStates) SetVertexChainLength(vertex VertexId, length int32) {
	idx.chainLengths[vertex] = length
}

// VertexChainLength returns the prior execution's recorded chain length for
// vertex, and whether one was recorded.
func (idx *OperatorStates) VertexChainLength(vertex VertexId) (int32, bool) {
	length, ok := idx.chainLengths[vertex]
	return length, ok
}

// VertexChainLengths returns every recorded vertex chain length, for a
// metadata source to re-encode when persisting this index.
func (idx *OperatorStates) VertexChainLengths() map[VertexId]int32 {
	out := make(map[VertexId]int32, len(idx.chainLengths))
	for vertex, length := range idx.chainLengths {
		out[vertex] = length
	}
	return out
}

// Put inserts or replaces the OperatorState for its OperatorID.
func (idx *OperatorStates) Put(s OperatorState) {
	if _, exists := idx.byID[s.OperatorID]; !exists {
		idx.ids = append(idx.ids, s.OperatorID)
	}
	idx.byID[s.OperatorID] = s
}

// Get returns the OperatorState for id, and whether it was present.
func (idx *OperatorStates) Get(id OperatorId) (OperatorState, bool) {
	s, ok := idx.byID[id]
	return s, ok
}

// Contains reports whether id has a recorded OperatorState.
func (idx *OperatorStates) Contains(id OperatorId) bool {
	_, ok := idx.byID[id]
	return ok
}

// Remove deletes id from the index. Used by the Preconditions Checker to
// detect unmapped operator ids by elimination: every matched id is removed,
// and whatever remains afterward is unmapped.
func (idx *OperatorStates) Remove(id OperatorId) {
	if _, ok := idx.byID[id]; !ok {
		return
	}
	delete(idx.byID, id)
	for i, existing := range idx.ids {
		if existing.Equal(id) {
			idx.ids = append(idx.ids[:i], idx.ids[i+1:]...)
			break
		}
	}
}

// Remaining returns the OperatorIds still present, in insertion order.
func (idx *OperatorStates) Remaining() []OperatorId {
	out := make([]OperatorId, len(idx.ids))
	copy(out, idx.ids)
	return out
}

// Len returns the number of operators currently indexed.
func (idx *OperatorStates) Len() int {
	return len(idx.ids)
}

// Clone returns a shallow copy of the index (the OperatorState values
// themselves are copied by value; their subtask maps are shared, since
// reassignment never mutates them). Used so the Preconditions Checker can
// eliminate matched ids against a scratch copy without disturbing the
// caller's original index.
func (idx *OperatorStates) Clone() *OperatorStates {
	clone := NewOperatorStates()
	for _, id := range idx.ids {
		clone.Put(idx.byID[id])
	}
	for vertex, length := range idx.chainLengths {
		clone.chainLengths[vertex] = length
	}
	return clone
}
