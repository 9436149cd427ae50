package reassign

import (
	"fmt"

	reassignerrors "github.com/flowstate/reassigner/pkg/errors"
)

// DiagnosticKind enumerates the non-fatal conditions the Preconditions
// Checker (and the Assignment Driver after it) can surface via the
// Diagnostics stream (§6).
type DiagnosticKind string

const (
	// DiagnosticMaxParallelismOverridden is emitted when a vertex's
	// max-parallelism was not user-fixed and got overridden to the
	// restored value (§4.8 rule 2).
	DiagnosticMaxParallelismOverridden DiagnosticKind = "MAX_PARALLELISM_OVERRIDDEN"
	// DiagnosticUnmappedStateSkipped is emitted when AllowNonRestoredState
	// tolerated an operator id with no match in the new topology.
	DiagnosticUnmappedStateSkipped DiagnosticKind = "UNMAPPED_STATE_SKIPPED"
)

// Diagnostic is one record on the Diagnostics stream (§6): an operator id,
// a kind, and a human-readable message.
type Diagnostic struct {
	OperatorID OperatorId
	Kind       DiagnosticKind
	Message    string
}

// vertexLookup is built once per CheckPreconditions call: for every vertex,
// the set of lookup keys (per §4.4's alt-id-or-primary rule) its chain
// positions resolve to.
type vertexLookup struct {
	vertex VertexId
	keys   map[OperatorId]bool
}

// CheckPreconditions implements §4.8: per-operator max-parallelism checks
// and the global unmapped-state check. It returns the diagnostics collected
// along the way, or a fatal *errors.AppError naming the first violating
// operator or vertex (§7's "single precise error" requirement).
//
// It does not return the resolved max-parallelism: when §4.8 rule 2
// overrides a vertex's value, the override is written back through
// topo.SetMaxParallelism, and callers read the resolved value from topo.
func CheckPreconditions(states *OperatorStates, topo TopologyAdapter, opts Options) (diagnostics []Diagnostic, err error) {
	remaining := states.Clone()
	lookups := make([]vertexLookup, 0)

	for _, vertex := range topo.Vertices() {
		chain := topo.Chain(vertex)

		priorChainLen, _ := states.VertexChainLength(vertex)
		if err := CheckChainLength(vertex, int(priorChainLen), chain); err != nil {
			return diagnostics, err
		}

		keys := make(map[OperatorId]bool, len(chain.Ids))
		for i := range chain.Ids {
			keys[chain.LookupKey(i)] = true
		}
		lookups = append(lookups, vertexLookup{vertex: vertex, keys: keys})

		newParallelism := topo.Parallelism(vertex)
		newMaxParallelism := topo.MaxParallelism(vertex)

		for i, primaryID := range chain.Ids {
			key := chain.LookupKey(i)
			prior, ok := states.Get(key)
			if !ok {
				continue
			}
			remaining.Remove(key)

			if prior.MaxParallelism < newParallelism {
				return diagnostics, reassignerrors.Newf(reassignerrors.CodeMaxParallelismTooLow,
					"operator %s (vertex %s): restored max_parallelism=%d < new parallelism=%d",
					primaryID, vertex, prior.MaxParallelism, newParallelism)
			}

			if prior.MaxParallelism != newMaxParallelism {
				if !topo.IsMaxParallelismConfigured(vertex) {
					topo.SetMaxParallelism(vertex, prior.MaxParallelism)
					diagnostics = append(diagnostics, Diagnostic{
						OperatorID: primaryID,
						Kind:       DiagnosticMaxParallelismOverridden,
						Message: overriddenMessage(vertex, prior.MaxParallelism, newMaxParallelism),
					})
					newMaxParallelism = prior.MaxParallelism
				} else {
					return diagnostics, reassignerrors.Newf(reassignerrors.CodeMaxParallelismMismatch,
						"operator %s (vertex %s): user-fixed max_parallelism=%d differs from restored=%d",
						primaryID, vertex, newMaxParallelism, prior.MaxParallelism)
				}
			}
		}
	}

	for _, unmatchedID := range remaining.Remaining() {
		if opts.AllowNonRestoredState {
			diagnostics = append(diagnostics, Diagnostic{
				OperatorID: unmatchedID,
				Kind:       DiagnosticUnmappedStateSkipped,
				Message:    fmt.Sprintf("operator %s has no matching position in the new topology; state discarded", unmatchedID),
			})
			continue
		}
		return diagnostics, reassignerrors.Newf(reassignerrors.CodeUnmappedState,
			"operator %s has prior state but no matching position in the new topology", unmatchedID)
	}

	return diagnostics, nil
}

func overriddenMessage(vertex VertexId, restored, requested int32) string {
	return fmt.Sprintf("vertex %s: max_parallelism overridden to restored value %d (requested %d)",
		vertex, restored, requested)
}

// CheckChainLength verifies §4.8's positional requirement that a prior
// execution's recorded chain length for a vertex matches the new topology's
// chain length, independent of id matching. priorChainLen is the number of
// operator positions the prior execution's metadata recorded for this
// vertex (0 if the vertex carries no prior record at all, in which case the
// check is vacuous).
func CheckChainLength(vertex VertexId, priorChainLen int, newChain OperatorChain) error {
	if priorChainLen == 0 {
		return nil
	}
	if priorChainLen != len(newChain.Ids) {
		return reassignerrors.Newf(reassignerrors.CodeChainLengthMismatch,
			"vertex %s: prior chain length=%d, new topology chain length=%d",
			vertex, priorChainLen, len(newChain.Ids))
	}
	return nil
}
