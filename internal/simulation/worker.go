// Package simulation runs single Monte Carlo trials: perturb the original
// series, run the strategy on the synthetic one, package the metrics.
package simulation

import (
	"context"
	"fmt"
	"math/rand"

	"montecarlo-lab/internal/domain"
	"montecarlo-lab/internal/perturb"
	"montecarlo-lab/internal/strategy"
)

// TrialInput holds everything one trial needs. Strategy and Generator are
// stateless and shared across trials; the rng is created here from Seed and
// owned exclusively by this trial.
type TrialInput struct {
	Series     *domain.PriceSeries
	Strategy   strategy.Strategy
	Generator  perturb.Generator
	TrialIndex int
	Seed       int64
	KeepEquity bool
}

// RunTrial executes one trial. A non-nil error marks the trial as failed;
// the orchestrator counts failures instead of propagating them, so errors
// returned here never abort a batch. Panics inside perturbation or strategy
// execution are recovered into errors to keep that isolation airtight.
func RunTrial(ctx context.Context, in TrialInput) (result *domain.TrialResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("trial %d panicked: %v", in.TrialIndex, r)
		}
	}()

	rng := rand.New(rand.NewSource(in.Seed))

	synthetic, err := in.Generator.Perturb(in.Series, rng)
	if err != nil {
		return nil, fmt.Errorf("trial %d perturb: %w", in.TrialIndex, err)
	}

	res, err := in.Strategy.Run(ctx, synthetic)
	if err != nil {
		return nil, fmt.Errorf("trial %d strategy: %w", in.TrialIndex, err)
	}

	trial := &domain.TrialResult{
		TrialIndex: in.TrialIndex,
		Seed:       in.Seed,
		PnL:        res.PnL,
		Sharpe:     res.Sharpe,
		Drawdown:   res.Drawdown,
	}
	if in.KeepEquity {
		trial.Equity = &domain.EquityCurve{
			TimestampsMs: synthetic.TimestampsMs,
			Values:       res.Equity,
		}
	}
	return trial, nil
}
