package ledger

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// GormRepository implements Repository using GORM.
type GormRepository struct {
	db *gorm.DB
}

// NewGormRepository creates a new GormRepository.
func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

// HasSubmitted reports whether a submission row already exists.
func (r *GormRepository) HasSubmitted(ctx context.Context, restoreCheckpointID uint64, vertex string, subtask int32) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&SubmissionRecord{}).
		Where("restore_checkpoint_id = ? AND vertex = ? AND subtask_index = ?", restoreCheckpointID, vertex, subtask).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to query submission: %w", err)
	}
	return count > 0, nil
}

// RecordSubmission inserts one submission row, tolerating the unique index
// on (restore_checkpoint_id, vertex, subtask_index) so a retried driver run
// that resubmits the same subtask is idempotent rather than an error.
func (r *GormRepository) RecordSubmission(ctx context.Context, restoreCheckpointID uint64, vertex string, subtask int32, operatorCount int) error {
	already, err := r.HasSubmitted(ctx, restoreCheckpointID, vertex, subtask)
	if err != nil {
		return err
	}
	if already {
		return nil
	}

	record := SubmissionRecord{
		RestoreCheckpointID: restoreCheckpointID,
		Vertex:              vertex,
		SubtaskIndex:        subtask,
		OperatorCount:       operatorCount,
	}
	if err := r.db.WithContext(ctx).Create(&record).Error; err != nil {
		return fmt.Errorf("failed to record submission: %w", err)
	}
	return nil
}

// RecordDiagnostics inserts one row per diagnostic.
func (r *GormRepository) RecordDiagnostics(ctx context.Context, restoreCheckpointID uint64, diagnostics []DiagnosticEntry) error {
	if len(diagnostics) == 0 {
		return nil
	}
	records := make([]DiagnosticRecord, len(diagnostics))
	for i, d := range diagnostics {
		records[i] = DiagnosticRecord{
			RestoreCheckpointID: restoreCheckpointID,
			OperatorID:          d.OperatorID,
			Kind:                d.Kind,
			Message:             d.Message,
		}
	}
	if err := r.db.WithContext(ctx).Create(&records).Error; err != nil {
		return fmt.Errorf("failed to record diagnostics: %w", err)
	}
	return nil
}

// SubmissionsFor returns every submission recorded for restoreCheckpointID,
// ordered by vertex then subtask for a stable verify report.
func (r *GormRepository) SubmissionsFor(ctx context.Context, restoreCheckpointID uint64) ([]SubmissionRecord, error) {
	var records []SubmissionRecord
	err := r.db.WithContext(ctx).
		Where("restore_checkpoint_id = ?", restoreCheckpointID).
		Order("vertex ASC, subtask_index ASC").
		Find(&records).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query submissions: %w", err)
	}
	return records, nil
}
