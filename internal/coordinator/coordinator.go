// Package coordinator dispatches independent checkpoint restore jobs: it
// loads a job's CheckpointMetadata, runs the Assignment Driver against the
// job's topology, and pushes the resulting snapshots through a ledger-backed
// SchedulerSink, recording diagnostics alongside the submissions.
package coordinator

import (
	"context"
	stderrors "errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/flowstate/reassigner/internal/ledger"
	"github.com/flowstate/reassigner/internal/metadatastore"
	"github.com/flowstate/reassigner/pkg/collections"
	reassignerrors "github.com/flowstate/reassigner/pkg/errors"
	"github.com/flowstate/reassigner/pkg/reassign"
	"github.com/flowstate/reassigner/pkg/utils"
)

var tracer = otel.Tracer("github.com/flowstate/reassigner/internal/coordinator")

// Job describes one restore: where to read checkpoint metadata from, the
// new execution's topology, and the reassignment options to apply.
type Job struct {
	MetadataKey string
	Topology    reassign.TopologyAdapter
	Options     reassign.Options
}

// JobResult summarizes one job's outcome.
type JobResult struct {
	MetadataKey         string
	RestoreCheckpointID uint64
	SubmittedVertices   []reassign.VertexId
	SubmittedCount      int
	Diagnostics         []reassign.Diagnostic
	Err                 error
}

// Coordinator owns the wiring between the checkpoint metadata store, the
// restore ledger, and the scheduler sink that the Assignment Driver submits
// reassigned state to.
type Coordinator struct {
	metadata    *metadatastore.Store
	repo        ledger.Repository
	sink        reassign.SchedulerSink
	logger      utils.Logger
	workerSlots chan struct{}

	diagnostics *collections.Queue[reassign.Diagnostic]
}

// New builds a Coordinator. workerCount bounds how many restore jobs
// RunMany processes concurrently; a value <= 0 defaults to 1.
func New(metadata *metadatastore.Store, repo ledger.Repository, sink reassign.SchedulerSink, logger utils.Logger, workerCount int) *Coordinator {
	if logger == nil {
		logger = &utils.NullLogger{}
	}
	if workerCount <= 0 {
		workerCount = 1
	}
	return &Coordinator{
		metadata:    metadata,
		repo:        repo,
		sink:        sink,
		logger:      logger.Named("coordinator"),
		workerSlots: make(chan struct{}, workerCount),
		diagnostics: collections.NewQueue[reassign.Diagnostic](64),
	}
}

// RunRestore loads job's metadata, runs the Assignment Driver, and submits
// the result through the ledger-backed sink.
func (c *Coordinator) RunRestore(ctx context.Context, job Job) JobResult {
	result := JobResult{MetadataKey: job.MetadataKey}

	states, restoreCheckpointID, err := c.metadata.LoadOperatorStates(ctx, job.MetadataKey)
	if err != nil {
		result.Err = fmt.Errorf("failed to load checkpoint metadata %q: %w", job.MetadataKey, err)
		return result
	}
	result.RestoreCheckpointID = restoreCheckpointID

	c.logger.Info("running restore for checkpoint %d (%s)", restoreCheckpointID, job.MetadataKey)

	meta := reassign.CheckpointMetadata{RestoreCheckpointID: restoreCheckpointID, States: states}

	ctx, span := tracer.Start(ctx, "reassign.driver.run", oteltrace.WithAttributes(
		attribute.Int64("reassign.restore_checkpoint_id", int64(restoreCheckpointID)),
		attribute.Int("reassign.vertex_count", len(job.Topology.Vertices())),
	))
	sink := newLedgerSink(ctx, c.sink, c.repo)
	runResult, err := reassign.Run(meta, job.Topology, job.Options, sink)
	span.SetAttributes(
		attribute.Int("reassign.submitted_vertex_count", len(runResult.SubmittedVertices)),
		attribute.Int("reassign.submitted_subtask_count", runResult.SubmittedCount),
	)
	if err != nil {
		span.SetAttributes(attribute.String("reassign.error_kind", errorKind(err)))
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()

	result.Diagnostics = runResult.Diagnostics
	result.SubmittedVertices = runResult.SubmittedVertices
	result.SubmittedCount = runResult.SubmittedCount

	for _, d := range runResult.Diagnostics {
		c.diagnostics.Enqueue(d)
	}

	if err != nil {
		result.Err = err
		c.logger.Error("restore for checkpoint %d failed: %v", restoreCheckpointID, err)
		return result
	}

	if len(runResult.Diagnostics) > 0 {
		entries := make([]ledger.DiagnosticEntry, len(runResult.Diagnostics))
		for i, d := range runResult.Diagnostics {
			entries[i] = ledger.DiagnosticEntry{
				OperatorID: d.OperatorID.String(),
				Kind:       string(d.Kind),
				Message:    d.Message,
			}
		}
		if err := c.repo.RecordDiagnostics(ctx, restoreCheckpointID, entries); err != nil {
			c.logger.Error("failed to record diagnostics for checkpoint %d: %v", restoreCheckpointID, err)
		}
	}

	c.logger.Info("restore for checkpoint %d submitted %d subtask snapshots across %d vertices",
		restoreCheckpointID, runResult.SubmittedCount, len(runResult.SubmittedVertices))

	return result
}

// RunMany runs jobs concurrently, bounded by the Coordinator's worker slot
// count, and returns one JobResult per job in the same order as jobs.
func (c *Coordinator) RunMany(ctx context.Context, jobs []Job) []JobResult {
	results := make([]JobResult, len(jobs))
	done := make(chan int, len(jobs))

	for i, job := range jobs {
		i, job := i, job
		c.workerSlots <- struct{}{}
		go func() {
			defer func() { <-c.workerSlots; done <- i }()
			results[i] = c.RunRestore(ctx, job)
		}()
	}

	for range jobs {
		<-done
	}
	return results
}

// errorKind extracts the reassignment core's stable error code from err, for
// span tagging and log correlation, falling back to the generic code when
// err isn't one of the core's own AppError values.
func errorKind(err error) string {
	var appErr *reassignerrors.AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return reassignerrors.CodeUnknown
}

// DrainDiagnostics removes and returns every diagnostic queued by runs so
// far, in the order they were produced.
func (c *Coordinator) DrainDiagnostics() []reassign.Diagnostic {
	out := make([]reassign.Diagnostic, 0, c.diagnostics.Len())
	for {
		d, ok := c.diagnostics.Dequeue()
		if !ok {
			break
		}
		out = append(out, d)
	}
	return out
}
