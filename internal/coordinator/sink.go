package coordinator

import (
	"context"

	"github.com/flowstate/reassigner/internal/ledger"
	"github.com/flowstate/reassigner/pkg/reassign"
)

// ledgerSink wraps the real scheduler sink with a ledger-backed idempotency
// check: a (restoreCheckpointID, vertex, subtask) already recorded is
// skipped rather than resubmitted, so retrying a restore after a partial
// failure doesn't re-deploy state the sink already accepted.
type ledgerSink struct {
	ctx   context.Context
	inner reassign.SchedulerSink
	repo  ledger.Repository
}

func newLedgerSink(ctx context.Context, inner reassign.SchedulerSink, repo ledger.Repository) *ledgerSink {
	return &ledgerSink{ctx: ctx, inner: inner, repo: repo}
}

func (s *ledgerSink) SetInitialState(vertex reassign.VertexId, subtask reassign.SubtaskIndex, snapshot reassign.TaskStateSnapshot, restoreCheckpointID uint64) error {
	already, err := s.repo.HasSubmitted(s.ctx, restoreCheckpointID, string(vertex), int32(subtask))
	if err != nil {
		return err
	}
	if already {
		return nil
	}

	if err := s.inner.SetInitialState(vertex, subtask, snapshot, restoreCheckpointID); err != nil {
		return err
	}

	return s.repo.RecordSubmission(s.ctx, restoreCheckpointID, string(vertex), int32(subtask), len(snapshot.OperatorStates))
}
