package strategy

import (
	"math"

	"montecarlo-lab/internal/domain"
)

// Trading periods per year used for Sharpe annualization.
const annualizationPeriods = 252

// rollingMean computes a simple rolling mean with the pandas warm-up
// convention: indices before window-1 are NaN.
func rollingMean(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	for i := range out {
		out[i] = math.NaN()
	}
	if window <= 0 || len(values) < window {
		return out
	}

	sum := 0.0
	for i, v := range values {
		sum += v
		if i >= window {
			sum -= values[i-window]
		}
		if i >= window-1 {
			out[i] = sum / float64(window)
		}
	}
	return out
}

// resultFromPositions turns per-index positions into a StrategyResult.
// positions[i] is the exposure held over the return from i-1 to i and must
// already be lagged by the caller; NaN positions are treated as flat.
//
// Equity is the cumulative product of (1 + position*return) starting at 1.0.
// Drawdown is the worst equity decline from its running peak, in [-1, 0].
// Sharpe is mean/stddev of the per-period strategy returns annualized by
// sqrt(252), defined as 0.0 when volatility is zero.
func resultFromPositions(series *domain.PriceSeries, positions []float64) *domain.StrategyResult {
	n := series.Len()
	equity := make([]float64, n)
	stratReturns := make([]float64, 0, n-1)

	equity[0] = 1.0
	peak := 1.0
	maxDecline := 0.0
	for i := 1; i < n; i++ {
		pos := positions[i]
		if math.IsNaN(pos) {
			pos = 0
		}
		ret := pos * (series.Prices[i]/series.Prices[i-1] - 1)
		stratReturns = append(stratReturns, ret)

		equity[i] = equity[i-1] * (1 + ret)
		if equity[i] > peak {
			peak = equity[i]
		}
		if decline := equity[i]/peak - 1; decline < maxDecline {
			maxDecline = decline
		}
	}
	if maxDecline < -1 {
		maxDecline = -1
	}

	return &domain.StrategyResult{
		Equity:   equity,
		PnL:      equity[n-1] - 1,
		Sharpe:   annualizedSharpe(stratReturns),
		Drawdown: maxDecline,
	}
}

// annualizedSharpe computes mean/stddev * sqrt(252) over per-period returns,
// with the zero-volatility policy of returning 0.0 instead of NaN or Inf.
func annualizedSharpe(returns []float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	sumSq := 0.0
	for _, r := range returns {
		diff := r - mean
		sumSq += diff * diff
	}
	std := math.Sqrt(sumSq / float64(len(returns)-1))
	if std == 0 {
		return 0
	}
	return mean / std * math.Sqrt(annualizationPeriods)
}
