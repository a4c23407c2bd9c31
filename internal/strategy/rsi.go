package strategy

import (
	"context"
	"fmt"
	"math"

	"montecarlo-lab/internal/domain"
)

// Compile-time interface check.
var _ Strategy = (*RSIReversion)(nil)

// RSIReversion is a mean-reversion strategy on the Wilder-style relative
// strength index: long below the oversold threshold, short above the
// overbought one, flat in between. Positions are lagged by one step.
type RSIReversion struct {
	period     int
	overbought float64
	oversold   float64
}

// NewRSIReversion validates parameters at construction time: period must be
// positive, both thresholds must lie in [0, 100], and oversold must be
// strictly below overbought.
func NewRSIReversion(period int, overbought, oversold float64) (*RSIReversion, error) {
	if period <= 0 {
		return nil, fmt.Errorf("%w: period must be positive, got %d", ErrInvalidParameter, period)
	}
	if overbought < 0 || overbought > 100 || oversold < 0 || oversold > 100 {
		return nil, fmt.Errorf("%w: thresholds must be in [0,100], got overbought=%v oversold=%v", ErrInvalidParameter, overbought, oversold)
	}
	if oversold >= overbought {
		return nil, fmt.Errorf("%w: oversold %v must be below overbought %v", ErrInvalidParameter, oversold, overbought)
	}
	return &RSIReversion{period: period, overbought: overbought, oversold: oversold}, nil
}

// ID returns the strategy identifier with parameters.
func (s *RSIReversion) ID() string {
	return fmt.Sprintf("%s(period=%d,overbought=%g,oversold=%g)", domain.StrategyRSIReversion, s.period, s.overbought, s.oversold)
}

// Run executes the reversion strategy on the series.
func (s *RSIReversion) Run(_ context.Context, series *domain.PriceSeries) (*domain.StrategyResult, error) {
	if err := series.Validate(); err != nil {
		return nil, err
	}

	rsi := s.computeRSI(series.Prices)

	positions := make([]float64, series.Len())
	for i := 1; i < series.Len(); i++ {
		r := rsi[i-1]
		switch {
		case math.IsNaN(r):
			// warm-up: flat
		case r < s.oversold:
			positions[i] = 1
		case r > s.overbought:
			positions[i] = -1
		}
	}

	return resultFromPositions(series, positions), nil
}

// computeRSI returns one RSI value per price index. Values are NaN until
// `period` price changes have been observed. Gains and losses are averaged
// with a simple rolling mean of the last `period` changes; an average loss
// of zero with any gain pins RSI at 100, and a completely flat window is
// left NaN so it maps to a flat position.
func (s *RSIReversion) computeRSI(prices []float64) []float64 {
	n := len(prices)
	rsi := make([]float64, n)
	for i := range rsi {
		rsi[i] = math.NaN()
	}
	if n < s.period+1 {
		return rsi
	}

	gains := make([]float64, n-1)
	losses := make([]float64, n-1)
	for i := 1; i < n; i++ {
		change := prices[i] - prices[i-1]
		if change > 0 {
			gains[i-1] = change
		} else {
			losses[i-1] = -change
		}
	}

	avgGain := rollingMean(gains, s.period)
	avgLoss := rollingMean(losses, s.period)

	for i := s.period; i < n; i++ {
		g := avgGain[i-1]
		l := avgLoss[i-1]
		switch {
		case l == 0 && g == 0:
			// flat window: leave NaN
		case l == 0:
			rsi[i] = 100
		default:
			rs := g / l
			rsi[i] = 100 - 100/(1+rs)
		}
	}
	return rsi
}
