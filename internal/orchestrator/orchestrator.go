// Package orchestrator drives Monte Carlo batches: seed derivation, trial
// dispatch (sequential or parallel), progress reporting, aggregation into a
// MonteCarloSummary.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"sort"
	"sync"
	"time"

	"montecarlo-lab/internal/dataset"
	"montecarlo-lab/internal/domain"
	"montecarlo-lab/internal/idhash"
	"montecarlo-lab/internal/metrics"
	"montecarlo-lab/internal/observability"
	"montecarlo-lab/internal/perturb"
	"montecarlo-lab/internal/simulation"
	"montecarlo-lab/internal/storage"
	"montecarlo-lab/internal/strategy"
)

// Orchestration errors. All are fatal and reported before (or, for
// ErrAllTrialsFailed, after) the batch; individual trial failures are
// counted, never propagated.
var (
	ErrLimitExceeded   = errors.New("requested runs exceed the configured maximum")
	ErrInvalidRunCount = errors.New("runs must be positive")
	ErrAllTrialsFailed = errors.New("all trials failed")
)

// DefaultMaxRuns is the safety ceiling applied when Options.MaxRuns is zero.
const DefaultMaxRuns = 10000

// Sequential runs throttle progress callbacks to about this many
// notifications; parallel runs notify on every completion.
const sequentialNotifications = 20

// ProgressFunc receives completion updates. Calls are made synchronously
// from the orchestration goroutine; panics are recovered and ignored so a
// misbehaving callback can never abort a trial.
type ProgressFunc func(completed, total int)

// Options configures an Orchestrator.
type Options struct {
	// MaxRuns is the safety ceiling on requested runs. 0 means DefaultMaxRuns.
	MaxRuns int

	// Optional persistence. When set, successful trial metrics and envelope
	// points are stored after aggregation, keyed by batch ID.
	TrialMetricStore   storage.TrialMetricStore
	EnvelopePointStore storage.EnvelopePointStore

	Verbose bool
}

// Orchestrator runs Monte Carlo batches. Safe for concurrent use: all
// per-batch state lives in Run's frame.
type Orchestrator struct {
	maxRuns       int
	trialStore    storage.TrialMetricStore
	envelopeStore storage.EnvelopePointStore
	verbose       bool
}

// New creates an Orchestrator.
func New(opts Options) *Orchestrator {
	maxRuns := opts.MaxRuns
	if maxRuns <= 0 {
		maxRuns = DefaultMaxRuns
	}
	return &Orchestrator{
		maxRuns:       maxRuns,
		trialStore:    opts.TrialMetricStore,
		envelopeStore: opts.EnvelopePointStore,
		verbose:       opts.Verbose,
	}
}

// RunInput describes one Monte Carlo batch.
type RunInput struct {
	Series   *domain.PriceSeries
	Filename string

	StrategyName   string
	StrategyParams map[string]float64

	Method       string
	MethodParams map[string]float64

	Runs int
	Seed int64

	// ParallelWorkers <= 1 selects sequential execution.
	ParallelWorkers int

	IncludeEquityEnvelope bool

	// Progress may be nil.
	Progress ProgressFunc
}

// RunBytes parses raw CSV bytes into a price series and runs the batch.
// This is the single entry point the surrounding API/worker layer calls.
func (o *Orchestrator) RunBytes(ctx context.Context, raw []byte, in RunInput) (*domain.MonteCarloSummary, error) {
	series, err := dataset.Load(raw)
	if err != nil {
		return nil, err
	}
	in.Series = series
	return o.Run(ctx, in)
}

// ValidateRuns checks a requested run count against the configured ceiling
// without dispatching anything. Used by callers that need to reject bad
// submissions synchronously before recording a job.
func (o *Orchestrator) ValidateRuns(runs int) error {
	if runs <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidRunCount, runs)
	}
	if runs > o.maxRuns {
		return fmt.Errorf("%w: requested %d, maximum %d", ErrLimitExceeded, runs, o.maxRuns)
	}
	return nil
}

// trialOutcome pairs a trial result with its failure, for the as-completed
// collection channel.
type trialOutcome struct {
	result *domain.TrialResult
	err    error
}

// Run executes a full batch and returns its summary.
//
// Fatal pre-execution errors (run limit, bad series, bad strategy or method
// parameters) propagate before any trial is dispatched. Per-trial failures
// are swallowed and surface only as SuccessfulRuns < RequestedRuns; if every
// trial fails, ErrAllTrialsFailed propagates instead of a summary. On
// cancellation no partial summary is returned, only ctx.Err().
func (o *Orchestrator) Run(ctx context.Context, in RunInput) (*domain.MonteCarloSummary, error) {
	if err := o.ValidateRuns(in.Runs); err != nil {
		return nil, err
	}
	if err := in.Series.Validate(); err != nil {
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

	// Derive one independent seed per trial from the master seed. The master
	// generator is touched only here, before any dispatch, so no generator
	// state is ever shared across concurrent trials.
	master := rand.New(rand.NewSource(in.Seed))
	seeds := make([]int64, in.Runs)
	for i := range seeds {
		seeds[i] = master.Int63()
	}

	o.log("batch %s/%s: dispatching %d trials (workers=%d)", strat.ID(), gen.Method(), in.Runs, in.ParallelWorkers)
	observability.RecordBatchStarted()
	started := time.Now()

	var successes []*domain.TrialResult
	if in.ParallelWorkers > 1 {
		successes, err = o.runParallel(ctx, in, strat, gen, seeds)
	} else {
		successes, err = o.runSequential(ctx, in, strat, gen, seeds)
	}
	if err != nil {
		observability.RecordBatchFinished(gen.Method(), "cancelled", time.Since(started).Seconds())
		return nil, err
	}

	if len(successes) == 0 {
		observability.RecordBatchFinished(gen.Method(), "failed", time.Since(started).Seconds())
		return nil, fmt.Errorf("%w: %d of %d trials", ErrAllTrialsFailed, in.Runs, in.Runs)
	}
	o.log("batch complete: %d/%d trials succeeded", len(successes), in.Runs)
	observability.RecordBatchFinished(gen.Method(), "completed", time.Since(started).Seconds())

	// Completion order is not deterministic in parallel mode; sort by trial
	// index so envelope timestamps and persistence are reproducible.
	sort.Slice(successes, func(i, j int) bool {
		return successes[i].TrialIndex < successes[j].TrialIndex
	})

	summary := o.buildSummary(in, strat.ID(), gen.Method(), successes)

	if err := o.persist(ctx, summary, successes); err != nil {
		return nil, err
	}
	return summary, nil
}

// runSequential executes trials one by one on the calling goroutine,
// checking for cancellation before each dispatch and throttling progress
// notifications to about 20 for the whole batch.
func (o *Orchestrator) runSequential(ctx context.Context, in RunInput, strat strategy.Strategy, gen perturb.Generator, seeds []int64) ([]*domain.TrialResult, error) {
	step := in.Runs / sequentialNotifications
	if step < 1 {
		step = 1
	}

	var successes []*domain.TrialResult
	for i := 0; i < in.Runs; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		result, err := simulation.RunTrial(ctx, simulation.TrialInput{
			Series:     in.Series,
			Strategy:   strat,
			Generator:  gen,
			TrialIndex: i,
			Seed:       seeds[i],
			KeepEquity: in.IncludeEquityEnvelope,
		})
		observability.RecordTrial(err != nil)
		if err != nil {
			o.log("%v", err)
		} else {
			successes = append(successes, result)
		}

		completed := i + 1
		if completed%step == 0 || completed == in.Runs {
			notify(in.Progress, completed, in.Runs)
		}
	}
	return successes, nil
}

// runParallel fans trials out over a bounded pool of goroutines and collects
// results as they complete, notifying progress on every completion. After
// cancellation in-flight trials finish but no new ones are submitted, and
// ctx.Err() is returned instead of a partial summary.
func (o *Orchestrator) runParallel(ctx context.Context, in RunInput, strat strategy.Strategy, gen perturb.Generator, seeds []int64) ([]*domain.TrialResult, error) {
	workers := in.ParallelWorkers
	if workers > in.Runs {
		workers = in.Runs
	}

	trials := make(chan int)
	outcomes := make(chan trialOutcome)

	go func() {
		defer close(trials)
		for i := 0; i < in.Runs; i++ {
			select {
			case <-ctx.Done():
				return
			case trials <- i:
			}
		}
	}()

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range trials {
				result, err := simulation.RunTrial(ctx, simulation.TrialInput{
					Series:     in.Series,
					Strategy:   strat,
					Generator:  gen,
					TrialIndex: i,
					Seed:       seeds[i],
					KeepEquity: in.IncludeEquityEnvelope,
				})
				outcomes <- trialOutcome{result: result, err: err}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(outcomes)
	}()

	var successes []*domain.TrialResult
	completed := 0
	for out := range outcomes {
		completed++
		observability.RecordTrial(out.err != nil)
		if out.err != nil {
			o.log("%v", out.err)
		} else {
			successes = append(successes, out.result)
		}
		notify(in.Progress, completed, in.Runs)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return successes, nil
}

// buildSummary aggregates successful trials into the terminal artifact.
func (o *Orchestrator) buildSummary(in RunInput, strategyID, method string, successes []*domain.TrialResult) *domain.MonteCarloSummary {
	pnls := make([]float64, len(successes))
	sharpes := make([]float64, len(successes))
	drawdowns := make([]float64, len(successes))
	for i, t := range successes {
		pnls[i] = t.PnL
		sharpes[i] = t.Sharpe
		drawdowns[i] = t.Drawdown
	}

	summary := &domain.MonteCarloSummary{
		BatchID:        idhash.ComputeBatchID(in.Filename, strategyID, method, in.Seed, in.Runs),
		Filename:       in.Filename,
		StrategyID:     strategyID,
		Method:         method,
		Seed:           in.Seed,
		RequestedRuns:  in.Runs,
		SuccessfulRuns: len(successes),
		Metrics: map[string]domain.MetricsDistribution{
			domain.MetricPnL:      metrics.ComputeDistribution(pnls),
			domain.MetricSharpe:   metrics.ComputeDistribution(sharpes),
			domain.MetricDrawdown: metrics.ComputeDistribution(drawdowns),
		},
	}

	if in.IncludeEquityEnvelope {
		var curves []*domain.EquityCurve
		for _, t := range successes {
			if t.Equity != nil {
				curves = append(curves, t.Equity)
			}
		}
		summary.EquityEnvelope = metrics.ComputeEnvelope(curves)
	}
	return summary
}

// persist writes trial metrics and envelope points when stores are
// configured. Duplicate keys mean the batch was already persisted (same
// batch ID, same deterministic rows) and are not an error.
func (o *Orchestrator) persist(ctx context.Context, summary *domain.MonteCarloSummary, successes []*domain.TrialResult) error {
	if o.trialStore != nil {
		rows := make([]*domain.TrialMetric, len(successes))
		for i, t := range successes {
			rows[i] = &domain.TrialMetric{
				BatchID:    summary.BatchID,
				TrialIndex: t.TrialIndex,
				Seed:       t.Seed,
				PnL:        t.PnL,
				Sharpe:     t.Sharpe,
				Drawdown:   t.Drawdown,
			}
		}
		if err := o.trialStore.InsertBulk(ctx, rows); err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
			return fmt.Errorf("persist trial metrics: %w", err)
		}
	}

	if o.envelopeStore != nil && summary.EquityEnvelope != nil {
		env := summary.EquityEnvelope
		rows := make([]*domain.EnvelopePoint, len(env.Timestamps))
		for i := range env.Timestamps {
			rows[i] = &domain.EnvelopePoint{
				BatchID:   summary.BatchID,
				StepIndex: i,
				Timestamp: env.Timestamps[i],
				P5:        env.P5[i],
				P25:       env.P25[i],
				Median:    env.Median[i],
				P75:       env.P75[i],
				P95:       env.P95[i],
			}
		}
		if err := o.envelopeStore.InsertBulk(ctx, rows); err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
			return fmt.Errorf("persist envelope points: %w", err)
		}
	}
	return nil
}

// notify invokes the progress callback, swallowing panics so a misbehaving
// callback cannot abort the batch.
func notify(fn ProgressFunc, completed, total int) {
	if fn == nil {
		return
	}
	defer func() {
		_ = recover()
	}()
	fn(completed, total)
}

func (o *Orchestrator) log(format string, args ...interface{}) {
	if o.verbose {
		log.Printf(format, args...)
	}
}
