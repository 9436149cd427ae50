package reassign

// RepartitionOperatorState implements §4.7 for a single operator position in
// a chain: given its OperatorState from the prior execution and the new
// parallelism, it produces the per-new-subtask OperatorStateHandle for
// managed or raw operator state (the same logic applies to either
// collection; callers invoke it once per collection).
//
// Per stream name, sub-partitions are grouped by distribution mode:
//   - SPLIT_DISTRIBUTE: every sub-partition from every old subtask is
//     collected into one ordered list L (old-subtask-index ascending, then
//     original offset order within a subtask) and round-robined: L[k] goes
//     to new subtask k mod P_new.
//   - UNION: every new subtask receives the full ordered list L.
//   - BROADCAST: every new subtask receives a copy of the list held by the
//     lowest old subtask index that contributed this stream.
func RepartitionOperatorState(prior OperatorState, newParallelism int32, collection func(SubtaskState) []OperatorStateHandle) []OperatorStateHandle {
	streams := collectStreamsByName(prior, collection)
	if len(streams) == 0 {
		return make([]OperatorStateHandle, newParallelism)
	}

	perSubtask := make([]OperatorStateHandle, newParallelism)
	for i := range perSubtask {
		perSubtask[i] = NewOperatorStateHandle()
	}

	for name, contributions := range streams {
		mode := contributions[0].meta.Mode
		switch mode {
		case SplitDistribute:
			ordered := orderedSplitDistributePartitions(contributions)
			for k, part := range ordered {
				target := int32(k) % newParallelism
				appendPartition(perSubtask[target], name, mode, part)
			}
		case Union:
			ordered := orderedSplitDistributePartitions(contributions)
			for i := int32(0); i < newParallelism; i++ {
				for _, part := range ordered {
					appendPartition(perSubtask[i], name, mode, part)
				}
			}
		case Broadcast:
			source := lowestOldSubtaskContribution(contributions)
			for i := int32(0); i < newParallelism; i++ {
				for _, part := range source.meta.Partitions {
					appendPartition(perSubtask[i], name, mode, part)
				}
			}
		}
	}

	return perSubtask
}

type streamContribution struct {
	oldSubtask SubtaskIndex
	meta       StateMeta
}

// collectStreamsByName gathers, for every old subtask and every handle in
// collection(subtaskState), each named stream's contribution, tagged with
// the subtask index that produced it.
func collectStreamsByName(prior OperatorState, collection func(SubtaskState) []OperatorStateHandle) map[string][]streamContribution {
	out := make(map[string][]streamContribution)
	for _, oldIdx := range prior.OrderedSubtaskIndices() {
		st := prior.Subtasks[oldIdx]
		for _, handle := range collection(st) {
			for name, meta := range handle.Streams {
				out[name] = append(out[name], streamContribution{oldSubtask: oldIdx, meta: meta})
			}
		}
	}
	return out
}

// orderedSplitDistributePartitions flattens contributions (already ordered
// by ascending old-subtask-index from collectStreamsByName) into the
// deterministic list L: old-subtask-index ascending, then original offset
// order within a subtask.
func orderedSplitDistributePartitions(contributions []streamContribution) []OperatorStateSubPartition {
	var out []OperatorStateSubPartition
	for _, c := range contributions {
		parts := make([]OperatorStateSubPartition, len(c.meta.Partitions))
		copy(parts, c.meta.Partitions)
		sortPartitionsByOffset(parts)
		out = append(out, parts...)
	}
	return out
}

func sortPartitionsByOffset(parts []OperatorStateSubPartition) {
	for i := 1; i < len(parts); i++ {
		for j := i; j > 0 && parts[j-1].Offset > parts[j].Offset; j-- {
			parts[j-1], parts[j] = parts[j], parts[j-1]
		}
	}
}

// lowestOldSubtaskContribution picks the contribution from the lowest old
// subtask index, locking BROADCAST's source-of-truth determinism per the
// spec's open-question decision (DESIGN.md).
func lowestOldSubtaskContribution(contributions []streamContribution) streamContribution {
	lowest := contributions[0]
	for _, c := range contributions[1:] {
		if c.oldSubtask < lowest.oldSubtask {
			lowest = c
		}
	}
	return lowest
}

// appendPartition appends part to the named stream's meta inside target,
// creating the stream's StateMeta on first use.
func appendPartition(target OperatorStateHandle, name string, mode DistributionMode, part OperatorStateSubPartition) {
	meta, ok := target.Streams[name]
	if !ok {
		meta = StateMeta{StreamName: name, Mode: mode}
	}
	meta.Partitions = append(meta.Partitions, part)
	target.Streams[name] = meta
}

// RepartitionOperatorStateWithFastPath is the entry point the Assignment
// Driver calls: when newParallelism == prior.OldParallelism and no stream is
// UNION-mode, it skips repartitioning entirely and returns each new subtask
// exactly what the same-indexed old subtask held (§4.7's fast path). As soon
// as a UNION stream is present, or parallelism changed, the full
// RepartitionOperatorState path runs.
func RepartitionOperatorStateWithFastPath(prior OperatorState, newParallelism int32, collection func(SubtaskState) []OperatorStateHandle) []OperatorStateHandle {
	if newParallelism == prior.OldParallelism && !HasUnionStream(prior, collection) {
		out := make([]OperatorStateHandle, newParallelism)
		for i := range out {
			out[i] = NewOperatorStateHandle()
		}
		for _, oldIdx := range prior.OrderedSubtaskIndices() {
			if int32(oldIdx) >= newParallelism {
				continue
			}
			st := prior.Subtasks[oldIdx]
			for _, handle := range collection(st) {
				for name, meta := range handle.Streams {
					cp := StateMeta{StreamName: name, Mode: meta.Mode, Partitions: append([]OperatorStateSubPartition(nil), meta.Partitions...)}
					out[oldIdx].Streams[name] = cp
				}
			}
		}
		return out
	}
	return RepartitionOperatorState(prior, newParallelism, collection)
}

// HasUnionStream reports whether any handle in the collection carries a
// UNION-mode stream, used by the Assignment Driver to decide whether the
// §4.7 fast path (skip repartitioning when P_new == P_old) is available.
func HasUnionStream(prior OperatorState, collection func(SubtaskState) []OperatorStateHandle) bool {
	for _, st := range prior.Subtasks {
		for _, handle := range collection(st) {
			for _, meta := range handle.Streams {
				if meta.Mode == Union {
					return true
				}
			}
		}
	}
	return false
}
