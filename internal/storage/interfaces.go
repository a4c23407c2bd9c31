package storage

import (
	"context"

	"montecarlo-lab/internal/domain"
)

// JobStore provides access to job lifecycle records. Unlike the result
// stores it is mutable: status and progress are updated in place as a batch
// runs.
type JobStore interface {
	// Insert adds a new job. Returns ErrDuplicateKey if job_id exists.
	Insert(ctx context.Context, j *domain.JobRecord) error

	// GetByID retrieves a job by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, jobID string) (*domain.JobRecord, error)

	// List retrieves all jobs, ordered by submission time ASC.
	List(ctx context.Context) ([]*domain.JobRecord, error)

	// UpdateProgress records completed trial count for a running job.
	UpdateProgress(ctx context.Context, jobID string, completedRuns int) error

	// MarkRunning transitions a job to RUNNING. Returns ErrNotFound if not exists.
	MarkRunning(ctx context.Context, jobID string, startedAtMs int64) error

	// MarkFinished transitions a job to a terminal status (COMPLETED, FAILED
	// or CANCELLED) with an optional error message and summary.
	MarkFinished(ctx context.Context, jobID, status, errMsg string, finishedAtMs int64, summary *domain.MonteCarloSummary) error
}

// SummaryStore provides access to completed batch summaries.
type SummaryStore interface {
	// Insert adds a new summary. Returns ErrDuplicateKey if batch_id exists.
	Insert(ctx context.Context, s *domain.MonteCarloSummary) error

	// GetByBatchID retrieves a summary. Returns ErrNotFound if not exists.
	GetByBatchID(ctx context.Context, batchID string) (*domain.MonteCarloSummary, error)

	// List retrieves all summaries, ordered by batch_id ASC.
	List(ctx context.Context) ([]*domain.MonteCarloSummary, error)
}

// TrialMetricStore provides access to per-trial metric rows.
type TrialMetricStore interface {
	// InsertBulk adds multiple rows. Fails entire batch on duplicate
	// (batch_id, trial_index).
	InsertBulk(ctx context.Context, rows []*domain.TrialMetric) error

	// GetByBatchID retrieves all rows for a batch, ordered by trial_index ASC.
	GetByBatchID(ctx context.Context, batchID string) ([]*domain.TrialMetric, error)
}

// EnvelopePointStore provides access to per-timestep envelope rows.
type EnvelopePointStore interface {
	// InsertBulk adds multiple rows. Fails entire batch on duplicate
	// (batch_id, step_index).
	InsertBulk(ctx context.Context, rows []*domain.EnvelopePoint) error

	// GetByBatchID retrieves all rows for a batch, ordered by step_index ASC.
	GetByBatchID(ctx context.Context, batchID string) ([]*domain.EnvelopePoint, error)
}
