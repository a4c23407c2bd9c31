package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"montecarlo-lab/internal/domain"
	"montecarlo-lab/internal/observability"
	"montecarlo-lab/internal/storage"
)

// JobStore implements storage.JobStore using PostgreSQL.
type JobStore struct {
	pool *Pool
}

// NewJobStore creates a new JobStore.
func NewJobStore(pool *Pool) *JobStore {
	return &JobStore{pool: pool}
}

// Compile-time interface check.
var _ storage.JobStore = (*JobStore)(nil)

const jobColumns = `
	job_id, batch_id, filename, strategy_id, method, seed,
	status, error, requested_runs, completed_runs,
	submitted_at_ms, started_at_ms, finished_at_ms, summary
`

// Insert adds a new job. Returns ErrDuplicateKey if job_id exists.
func (s *JobStore) Insert(ctx context.Context, j *domain.JobRecord) error {
	if j == nil || j.JobID == "" {
		return storage.ErrInvalidInput
	}

	summaryJSON, err := marshalSummary(j.Summary)
	if err != nil {
		return err
	}

	start := time.Now()
	_, err = s.pool.Exec(ctx, `
		INSERT INTO jobs (`+jobColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`,
		j.JobID, j.BatchID, j.Filename, j.StrategyID, j.Method, j.Seed,
		j.Status, j.Error, j.RequestedRuns, j.CompletedRuns,
		j.SubmittedAtMs, j.StartedAtMs, j.FinishedAtMs, summaryJSON,
	)
	observability.RecordDBQuery("postgres", "insert_job", time.Since(start).Seconds(), err)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

// GetByID retrieves a job by its ID. Returns ErrNotFound if not exists.
func (s *JobStore) GetByID(ctx context.Context, jobID string) (*domain.JobRecord, error) {
	start := time.Now()
	row := s.pool.QueryRow(ctx, `SELECT `+jobColumns+` FROM jobs WHERE job_id = $1`, jobID)
	j, err := scanJob(row)
	queryErr := err
	if isNotFoundError(err) {
		queryErr = nil // a missing job is a normal poll outcome, not a query failure
	}
	observability.RecordDBQuery("postgres", "get_job", time.Since(start).Seconds(), queryErr)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get job by id: %w", err)
	}
	return j, nil
}

// List retrieves all jobs, ordered by submission time ASC.
func (s *JobStore) List(ctx context.Context) ([]*domain.JobRecord, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+jobColumns+` FROM jobs ORDER BY submitted_at_ms ASC, job_id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var result []*domain.JobRecord
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		result = append(result, j)
	}
	return result, rows.Err()
}

// UpdateProgress records completed trial count for a running job.
func (s *JobStore) UpdateProgress(ctx context.Context, jobID string, completedRuns int) error {
	tag, err := s.pool.Exec(ctx, `UPDATE jobs SET completed_runs = $2 WHERE job_id = $1`, jobID, completedRuns)
	if err != nil {
		return fmt.Errorf("update job progress: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// MarkRunning transitions a job to RUNNING.
func (s *JobStore) MarkRunning(ctx context.Context, jobID string, startedAtMs int64) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE jobs SET status = $2, started_at_ms = $3 WHERE job_id = $1
	`, jobID, domain.JobStatusRunning, startedAtMs)
	if err != nil {
		return fmt.Errorf("mark job running: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// MarkFinished transitions a job to a terminal status.
func (s *JobStore) MarkFinished(ctx context.Context, jobID, status, errMsg string, finishedAtMs int64, summary *domain.MonteCarloSummary) error {
	summaryJSON, err := marshalSummary(summary)
	if err != nil {
		return err
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE jobs SET status = $2, error = $3, finished_at_ms = $4, summary = $5 WHERE job_id = $1
	`, jobID, status, errMsg, finishedAtMs, summaryJSON)
	if err != nil {
		return fmt.Errorf("mark job finished: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// rowScanner covers pgx.Row and pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*domain.JobRecord, error) {
	var j domain.JobRecord
	var summaryJSON []byte
	err := row.Scan(
		&j.JobID, &j.BatchID, &j.Filename, &j.StrategyID, &j.Method, &j.Seed,
		&j.Status, &j.Error, &j.RequestedRuns, &j.CompletedRuns,
		&j.SubmittedAtMs, &j.StartedAtMs, &j.FinishedAtMs, &summaryJSON,
	)
	if err != nil {
		return nil, err
	}
	if len(summaryJSON) > 0 {
		j.Summary = &domain.MonteCarloSummary{}
		if err := json.Unmarshal(summaryJSON, j.Summary); err != nil {
			return nil, fmt.Errorf("unmarshal job summary: %w", err)
		}
	}
	return &j, nil
}

// marshalSummary renders a summary as JSONB input; nil stays NULL.
func marshalSummary(summary *domain.MonteCarloSummary) ([]byte, error) {
	if summary == nil {
		return nil, nil
	}
	data, err := json.Marshal(summary)
	if err != nil {
		return nil, fmt.Errorf("marshal summary: %w", err)
	}
	return data, nil
}
