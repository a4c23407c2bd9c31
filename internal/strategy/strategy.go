// Package strategy defines the trading strategy capability and its two
// reference implementations: SMA crossover and RSI reversion.
package strategy

import (
	"context"

	"montecarlo-lab/internal/domain"
)

// Strategy runs over a price series and produces an equity curve with
// summary metrics. Implementations are pure: the same series always yields
// the same result, and no state survives between runs, so a single value is
// safe to share across concurrent trials.
type Strategy interface {
	// Run executes the strategy on the given series.
	Run(ctx context.Context, series *domain.PriceSeries) (*domain.StrategyResult, error)

	// ID returns the strategy identifier (includes parameters).
	ID() string
}
