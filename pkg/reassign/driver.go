package reassign

import (
	"sort"

	"github.com/flowstate/reassigner/pkg/collections"
	reassignerrors "github.com/flowstate/reassigner/pkg/errors"
)

// SchedulerSink is the narrow interface the Assignment Driver pushes
// results through (§6). Implementations live entirely outside the
// reassignment core (an in-process scheduler, a gRPC client, a test
// recorder).
type SchedulerSink interface {
	SetInitialState(vertex VertexId, subtask SubtaskIndex, snapshot TaskStateSnapshot, restoreCheckpointID uint64) error
}

// CheckpointMetadata is the input the core consumes (§6): a checkpoint id
// and the prior-execution state index it produced.
type CheckpointMetadata struct {
	RestoreCheckpointID uint64
	States              *OperatorStates
}

// RunResult summarizes one Assignment Driver invocation for callers that
// want more than pass/fail (used by the coordinator's audit ledger and by
// the CLI's human-readable summary).
type RunResult struct {
	Diagnostics      []Diagnostic
	SubmittedVertices []VertexId
	SubmittedCount   int
}

// Run implements §4.9: the Assignment Driver's orchestration of the whole
// pipeline. It runs the Preconditions Checker first and aborts on any fatal
// error with zero submissions (§8's "precondition enforcement" property);
// otherwise it partitions, reassigns, and repartitions per vertex and pushes
// every non-empty TaskStateSnapshot to sink in (vertex, subtask_index)
// ascending order (§5's ordering contract).
//
// Run builds every snapshot before submitting any of them, so a failure
// discovered while processing vertex N discards everything constructed for
// vertices before it too and nothing is submitted. An error returned by sink
// stops submission at that snapshot; snapshots the sink already accepted
// stay submitted, and the returned RunResult counts them.
func Run(meta CheckpointMetadata, topo TopologyAdapter, opts Options, sink SchedulerSink) (RunResult, error) {
	diagnostics, err := CheckPreconditions(meta.States, topo, opts)
	if err != nil {
		return RunResult{Diagnostics: diagnostics}, err
	}

	vertices := topo.Vertices()
	type pending struct {
		vertex    VertexId
		snapshots []TaskStateSnapshot
	}
	var toSubmit []pending

	for _, vertex := range vertices {
		chain := topo.Chain(vertex)
		newParallelism := topo.Parallelism(vertex)
		newMaxParallelism := topo.MaxParallelism(vertex)

		hasStatefulPosition := false
		perOperator := make([]OperatorState, len(chain.Ids))
		for i := range chain.Ids {
			key := chain.LookupKey(i)
			if prior, ok := meta.States.Get(key); ok {
				perOperator[i] = prior
				hasStatefulPosition = true
			} else {
				perOperator[i] = NewOperatorState(chain.Ids[i], newParallelism, newMaxParallelism)
			}
		}
		if !hasStatefulPosition {
			continue
		}

		partitions, perr := Partition(newMaxParallelism, newParallelism)
		if perr != nil {
			return RunResult{Diagnostics: diagnostics}, perr
		}

		snapshots := make([]TaskStateSnapshot, newParallelism)
		for s := range snapshots {
			snapshots[s] = NewTaskStateSnapshot(meta.RestoreCheckpointID)
		}

		headIdx := chain.HeadIndex()
		coverage := collections.NewBitset(int(newMaxParallelism))
		seen := make(map[OperatorInstanceId]bool, len(chain.Ids)*int(newParallelism))

		for i, opID := range chain.Ids {
			prior := perOperator[i]
			isHead := i == headIdx

			if !isHead && hasAnyKeyedState(prior) {
				return RunResult{Diagnostics: diagnostics}, reassignerrors.Newf(
					reassignerrors.CodeKeyedStateOnNonHeadOperator,
					"operator %s at non-head position %d of vertex %s carries keyed state", opID, i, vertex)
			}

			managedOp := RepartitionOperatorStateWithFastPath(prior, newParallelism, func(s SubtaskState) []OperatorStateHandle { return s.ManagedOperatorState })
			rawOp := RepartitionOperatorStateWithFastPath(prior, newParallelism, func(s SubtaskState) []OperatorStateHandle { return s.RawOperatorState })

			var managedKeyed, rawKeyed [][]KeyedStateHandle
			if isHead {
				var kerr error
				managedKeyed, rawKeyed, kerr = ReassignKeyedState(prior, partitions)
				if kerr != nil {
					return RunResult{Diagnostics: diagnostics}, kerr
				}
				for s, r := range partitions {
					if len(managedKeyed[s]) > 0 || len(rawKeyed[s]) > 0 {
						for g := r.Lo; g <= r.Hi; g++ {
							if coverage.Test(int(g)) {
								return RunResult{Diagnostics: diagnostics}, reassignerrors.Newf(
									reassignerrors.CodeInternalInvariant,
									"key group %d assigned to more than one subtask for operator %s", g, opID)
							}
							coverage.Set(int(g))
						}
					}
				}
			}

			for s := int32(0); s < newParallelism; s++ {
				instanceID := OperatorInstanceId{Subtask: SubtaskIndex(s), Op: opID}
				if seen[instanceID] {
					return RunResult{Diagnostics: diagnostics}, reassignerrors.Newf(reassignerrors.CodeInternalInvariant,
						"operator instance %s assigned state more than once while building vertex %s (duplicate operator id in chain)",
						instanceID.Key(), vertex)
				}
				seen[instanceID] = true

				st := snapshots[s].OperatorStates[opID]
				if !managedOp[s].IsEmpty() {
					st.ManagedOperatorState = append(st.ManagedOperatorState, managedOp[s])
				}
				if !rawOp[s].IsEmpty() {
					st.RawOperatorState = append(st.RawOperatorState, rawOp[s])
				}
				if isHead {
					st.ManagedKeyedState = managedKeyed[s]
					st.RawKeyedState = rawKeyed[s]
				}
				snapshots[s].OperatorStates[opID] = st
			}
		}

		if hasHeadKeyedState(perOperator, headIdx) && coverage.Count() != int(newMaxParallelism) {
			return RunResult{Diagnostics: diagnostics}, reassignerrors.Newf(reassignerrors.CodeInternalInvariant,
				"vertex %s: key-group coverage incomplete (%d of %d groups assigned)", vertex, coverage.Count(), newMaxParallelism)
		}

		toSubmit = append(toSubmit, pending{vertex: vertex, snapshots: snapshots})
	}

	sort.Slice(toSubmit, func(i, j int) bool { return toSubmit[i].vertex < toSubmit[j].vertex })

	result := RunResult{Diagnostics: diagnostics}
	for _, p := range toSubmit {
		for s, snap := range p.snapshots {
			if !snap.HasState() {
				continue
			}
			if err := sink.SetInitialState(p.vertex, SubtaskIndex(s), snap, meta.RestoreCheckpointID); err != nil {
				return result, err
			}
			result.SubmittedCount++
		}
		result.SubmittedVertices = append(result.SubmittedVertices, p.vertex)
	}
	return result, nil
}

func hasAnyKeyedState(s OperatorState) bool {
	for _, st := range s.Subtasks {
		if len(st.ManagedKeyedState) > 0 || len(st.RawKeyedState) > 0 {
			return true
		}
	}
	return false
}

func hasHeadKeyedState(chain []OperatorState, headIdx int) bool {
	if headIdx < 0 || headIdx >= len(chain) {
		return false
	}
	return hasAnyKeyedState(chain[headIdx])
}
