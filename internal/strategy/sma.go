package strategy

import (
	"context"
	"fmt"

	"montecarlo-lab/internal/domain"
)

// Compile-time interface check.
var _ Strategy = (*SMACrossover)(nil)

// SMACrossover holds a long position while the short-window rolling mean of
// prices is above the long-window one, and is flat otherwise. The signal is
// lagged by one step so no position ever uses the bar that produced it.
type SMACrossover struct {
	short int
	long  int
}

// NewSMACrossover validates the windows at construction time: both must be
// positive and short must be strictly less than long.
func NewSMACrossover(short, long int) (*SMACrossover, error) {
	if short <= 0 || long <= 0 {
		return nil, fmt.Errorf("%w: windows must be positive, got short=%d long=%d", ErrInvalidParameter, short, long)
	}
	if short >= long {
		return nil, fmt.Errorf("%w: short window %d must be less than long window %d", ErrInvalidParameter, short, long)
	}
	return &SMACrossover{short: short, long: long}, nil
}

// ID returns the strategy identifier with parameters.
func (s *SMACrossover) ID() string {
	return fmt.Sprintf("%s(short=%d,long=%d)", domain.StrategySMACrossover, s.short, s.long)
}

// Run executes the crossover strategy on the series.
func (s *SMACrossover) Run(_ context.Context, series *domain.PriceSeries) (*domain.StrategyResult, error) {
	if err := series.Validate(); err != nil {
		return nil, err
	}

	shortMA := rollingMean(series.Prices, s.short)
	longMA := rollingMean(series.Prices, s.long)

	// Signal is 1 where both means exist and short > long; NaN comparisons
	// are false, so the warm-up period stays flat. Lagged one step.
	positions := make([]float64, series.Len())
	for i := 1; i < series.Len(); i++ {
		if shortMA[i-1] > longMA[i-1] {
			positions[i] = 1
		}
	}

	return resultFromPositions(series, positions), nil
}
