// Package job adapts the Monte Carlo orchestrator to asynchronous job
// semantics: submit, poll status, cancel. Job state lives in an injected
// storage.JobStore; the runner itself only tracks the cancel functions of
// in-flight batches.
package job

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"montecarlo-lab/internal/dataset"
	"montecarlo-lab/internal/domain"
	"montecarlo-lab/internal/idhash"
	"montecarlo-lab/internal/observability"
	"montecarlo-lab/internal/orchestrator"
	"montecarlo-lab/internal/perturb"
	"montecarlo-lab/internal/storage"
	"montecarlo-lab/internal/strategy"
)

// ErrJobFinished is returned when cancelling a job that already reached a
// terminal status.
var ErrJobFinished = errors.New("job already finished")

// Options configures a Runner.
type Options struct {
	Orchestrator *orchestrator.Orchestrator
	JobStore     storage.JobStore

	// SummaryStore is optional; completed summaries are persisted there in
	// addition to the job record.
	SummaryStore storage.SummaryStore

	// DefaultWorkers is applied when a submission leaves ParallelWorkers
	// unset. 0 means 1 (sequential).
	DefaultWorkers int

	Logger *log.Logger
}

// Runner drives asynchronous Monte Carlo jobs.
type Runner struct {
	orch           *orchestrator.Orchestrator
	jobs           storage.JobStore
	summaries      storage.SummaryStore
	defaultWorkers int
	logger         *log.Logger
	now            func() time.Time

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
	wg      sync.WaitGroup
}

// NewRunner creates a Runner.
func NewRunner(opts Options) *Runner {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(os.Stderr, "[job] ", log.LstdFlags)
	}
	workers := opts.DefaultWorkers
	if workers < 1 {
		workers = 1
	}
	return &Runner{
		orch:           opts.Orchestrator,
		jobs:           opts.JobStore,
		summaries:      opts.SummaryStore,
		defaultWorkers: workers,
		logger:         logger,
		now:            func() time.Time { return time.Now().UTC() },
		cancels:        make(map[string]context.CancelFunc),
	}
}

// WithClock sets a custom clock function for deterministic output.
func (r *Runner) WithClock(now func() time.Time) *Runner {
	r.now = now
	return r
}

// SubmitInput describes one job submission.
type SubmitInput struct {
	Raw      []byte
	Filename string

	StrategyName   string
	StrategyParams map[string]float64

	Method       string
	MethodParams map[string]float64

	Runs int
	Seed int64

	ParallelWorkers       int
	IncludeEquityEnvelope bool
}

// Submit validates the submission synchronously, records a PENDING job and
// starts the batch in a background goroutine. Fatal pre-execution errors
// (bad CSV, bad parameters, run limit) are returned here, before any job
// record exists; everything after this point surfaces through job status.
func (r *Runner) Submit(ctx context.Context, in SubmitInput) (*domain.JobRecord, error) {
	series, err := dataset.Load(in.Raw)
	if err != nil {
		return nil, err
	}
	strat, err := strategy.FromParams(in.StrategyName, in.StrategyParams)
	if err != nil {
		return nil, err
	}
	gen, err := perturb.FromParams(in.Method, in.MethodParams)
	if err != nil {
		return nil, err
	}
	if err := r.orch.ValidateRuns(in.Runs); err != nil {
		return nil, err
	}

	workers := in.ParallelWorkers
	if workers < 1 {
		workers = r.defaultWorkers
	}

	submittedAt := r.now().UnixMilli()
	batchID := idhash.ComputeBatchID(in.Filename, strat.ID(), gen.Method(), in.Seed, in.Runs)
	record := &domain.JobRecord{
		JobID:         idhash.ComputeJobID(batchID, submittedAt),
		BatchID:       batchID,
		Filename:      in.Filename,
		StrategyID:    strat.ID(),
		Method:        gen.Method(),
		Seed:          in.Seed,
		Status:        domain.JobStatusPending,
		RequestedRuns: in.Runs,
		SubmittedAtMs: submittedAt,
	}
	if err := r.jobs.Insert(ctx, record); err != nil {
		return nil, fmt.Errorf("insert job record: %w", err)
	}

	// The batch outlives the submission request, so it runs under its own
	// context; Cancel and Shutdown reach it through the stored cancel func.
	runCtx, cancel := context.WithCancel(context.Background())
	r.mu.Lock()
	r.cancels[record.JobID] = cancel
	r.mu.Unlock()

	observability.RecordJobSubmitted(strat.ID())
	r.wg.Add(1)
	go r.execute(runCtx, record.JobID, series, in, workers)

	return record, nil
}

// execute runs one batch to a terminal status.
func (r *Runner) execute(ctx context.Context, jobID string, series *domain.PriceSeries, in SubmitInput, workers int) {
	defer r.wg.Done()
	defer observability.RecordJobSettled()
	defer func() {
		r.mu.Lock()
		delete(r.cancels, jobID)
		r.mu.Unlock()
	}()

	if err := r.jobs.MarkRunning(context.Background(), jobID, r.now().UnixMilli()); err != nil {
		r.logger.Printf("job %s: mark running: %v", jobID, err)
	}

	summary, err := r.orch.Run(ctx, orchestrator.RunInput{
		Series:                series,
		Filename:              in.Filename,
		StrategyName:          in.StrategyName,
		StrategyParams:        in.StrategyParams,
		Method:                in.Method,
		MethodParams:          in.MethodParams,
		Runs:                  in.Runs,
		Seed:                  in.Seed,
		ParallelWorkers:       workers,
		IncludeEquityEnvelope: in.IncludeEquityEnvelope,
		Progress: func(completed, total int) {
			if err := r.jobs.UpdateProgress(context.Background(), jobID, completed); err != nil {
				r.logger.Printf("job %s: update progress: %v", jobID, err)
			}
		},
	})

	finishedAt := r.now().UnixMilli()
	switch {
	case err == nil:
		if r.summaries != nil {
			if err := r.summaries.Insert(context.Background(), summary); err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
				r.logger.Printf("job %s: persist summary: %v", jobID, err)
			}
		}
		r.finish(jobID, domain.JobStatusCompleted, "", finishedAt, summary)
	case errors.Is(err, context.Canceled):
		r.finish(jobID, domain.JobStatusCancelled, "", finishedAt, nil)
	default:
		r.logger.Printf("job %s failed: %v", jobID, err)
		r.finish(jobID, domain.JobStatusFailed, err.Error(), finishedAt, nil)
	}
}

func (r *Runner) finish(jobID, status, errMsg string, finishedAtMs int64, summary *domain.MonteCarloSummary) {
	if err := r.jobs.MarkFinished(context.Background(), jobID, status, errMsg, finishedAtMs, summary); err != nil {
		r.logger.Printf("job %s: mark finished: %v", jobID, err)
	}
}

// Status returns the current job record.
func (r *Runner) Status(ctx context.Context, jobID string) (*domain.JobRecord, error) {
	return r.jobs.GetByID(ctx, jobID)
}

// List returns all job records ordered by submission time.
func (r *Runner) List(ctx context.Context) ([]*domain.JobRecord, error) {
	return r.jobs.List(ctx)
}

// Cancel signals the job's batch to stop. In-flight trials finish but no new
// ones are dispatched; the job reaches CANCELLED once the orchestrator
// observes the signal. Returns ErrJobFinished when the job already reached a
// terminal status and storage.ErrNotFound for an unknown job.
func (r *Runner) Cancel(ctx context.Context, jobID string) error {
	r.mu.Lock()
	cancel, running := r.cancels[jobID]
	r.mu.Unlock()

	if running {
		cancel()
		return nil
	}

	if _, err := r.jobs.GetByID(ctx, jobID); err != nil {
		return err
	}
	return ErrJobFinished
}

// Shutdown cancels every in-flight job and waits for their goroutines to
// reach a terminal status.
func (r *Runner) Shutdown() {
	r.mu.Lock()
	for _, cancel := range r.cancels {
		cancel()
	}
	r.mu.Unlock()
	r.wg.Wait()
}
