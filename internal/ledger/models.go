// Package ledger provides a persistence-backed audit trail of what the
// Assignment Driver submitted to the scheduler sink, for post-hoc
// reconciliation and idempotent-retry detection across coordinator restarts.
package ledger

import (
	"time"
)

// SubmissionRecord represents the restore_submission table: one row per
// (restore_checkpoint_id, vertex, subtask) the Assignment Driver has pushed
// to the scheduler sink.
type SubmissionRecord struct {
	ID                  int64     `gorm:"column:id;primaryKey;autoIncrement"`
	RestoreCheckpointID uint64    `gorm:"column:restore_checkpoint_id;index:idx_restore_vertex_subtask,unique"`
	Vertex              string    `gorm:"column:vertex;type:varchar(256);index:idx_restore_vertex_subtask,unique"`
	SubtaskIndex        int32     `gorm:"column:subtask_index;index:idx_restore_vertex_subtask,unique"`
	OperatorCount       int       `gorm:"column:operator_count"`
	SubmittedAt         time.Time `gorm:"column:submitted_at;autoCreateTime"`
}

// TableName returns the table name for SubmissionRecord.
func (SubmissionRecord) TableName() string {
	return "restore_submission"
}

// DiagnosticRecord represents the restore_diagnostic table: one row per
// Diagnostic the Preconditions Checker or the Assignment Driver emitted
// during a restore run.
type DiagnosticRecord struct {
	ID                  int64     `gorm:"column:id;primaryKey;autoIncrement"`
	RestoreCheckpointID uint64    `gorm:"column:restore_checkpoint_id;index"`
	OperatorID           string    `gorm:"column:operator_id;type:varchar(64)"`
	Kind                string    `gorm:"column:kind;type:varchar(64)"`
	Message             string    `gorm:"column:message;type:text"`
	RecordedAt          time.Time `gorm:"column:recorded_at;autoCreateTime"`
}

// TableName returns the table name for DiagnosticRecord.
func (DiagnosticRecord) TableName() string {
	return "restore_diagnostic"
}
