package ledger

import (
	"context"
)

// Repository defines the restore-ledger persistence operations the
// coordinator needs around one Assignment Driver run.
type Repository interface {
	// HasSubmitted reports whether (restoreCheckpointID, vertex, subtask) was
	// already recorded, so a retried restore run can skip resubmitting state
	// the scheduler sink already accepted.
	HasSubmitted(ctx context.Context, restoreCheckpointID uint64, vertex string, subtask int32) (bool, error)

	// RecordSubmission appends one submission row.
	RecordSubmission(ctx context.Context, restoreCheckpointID uint64, vertex string, subtask int32, operatorCount int) error

	// RecordDiagnostics appends one row per diagnostic produced by a run.
	RecordDiagnostics(ctx context.Context, restoreCheckpointID uint64, diagnostics []DiagnosticEntry) error

	// SubmissionsFor returns every submission recorded for restoreCheckpointID,
	// used by the CLI's verify subcommand to audit a run.
	SubmissionsFor(ctx context.Context, restoreCheckpointID uint64) ([]SubmissionRecord, error)
}

// DiagnosticEntry is the ledger-agnostic shape the coordinator hands to
// RecordDiagnostics, decoupled from pkg/reassign.Diagnostic so this package
// never imports the reassignment core.
type DiagnosticEntry struct {
	OperatorID string
	Kind       string
	Message    string
}
