// Package metrics computes statistical distributions and equity envelopes
// from Monte Carlo trial results.
package metrics

import (
	"math"
	"sort"
	"strconv"
	"time"

	"montecarlo-lab/internal/domain"
)

// ComputeDistribution summarizes one metric across trials. Percentiles use
// linear interpolation over the sorted values. Stddev is the sample standard
// deviation (n-1 denominator).
func ComputeDistribution(values []float64) domain.MetricsDistribution {
	if len(values) == 0 {
		return domain.MetricsDistribution{}
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	mean := Mean(values)
	return domain.MetricsDistribution{
		Mean:   mean,
		Stddev: Stddev(values, mean),
		P5:     Percentile(sorted, 0.05),
		P25:    Percentile(sorted, 0.25),
		Median: Percentile(sorted, 0.50),
		P75:    Percentile(sorted, 0.75),
		P95:    Percentile(sorted, 0.95),
	}
}

// ComputeEnvelope builds per-timestep percentile bands across equity curves.
// All curves are truncated to the minimum common length; timestamps come from
// the first curve's index, or are synthesized as sequential ordinals when the
// curves are unindexed. Returns nil when no curves are provided.
func ComputeEnvelope(curves []*domain.EquityCurve) *domain.EquityEnvelope {
	if len(curves) == 0 {
		return nil
	}

	minLen := len(curves[0].Values)
	for _, c := range curves[1:] {
		if len(c.Values) < minLen {
			minLen = len(c.Values)
		}
	}
	if minLen == 0 {
		return nil
	}

	env := &domain.EquityEnvelope{
		Timestamps: formatTimestamps(curves[0], minLen),
		P5:         make([]float64, minLen),
		P25:        make([]float64, minLen),
		Median:     make([]float64, minLen),
		P75:        make([]float64, minLen),
		P95:        make([]float64, minLen),
	}

	column := make([]float64, len(curves))
	for step := 0; step < minLen; step++ {
		for i, c := range curves {
			column[i] = c.Values[step]
		}
		sort.Float64s(column)
		env.P5[step] = Percentile(column, 0.05)
		env.P25[step] = Percentile(column, 0.25)
		env.Median[step] = Percentile(column, 0.50)
		env.P75[step] = Percentile(column, 0.75)
		env.P95[step] = Percentile(column, 0.95)
	}
	return env
}

// Percentile uses linear interpolation over a pre-sorted ascending slice.
// p is in [0, 1].
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n == 1 {
		return sorted[0]
	}

	idx := p * float64(n-1)
	lower := int(idx)
	upper := lower + 1
	if upper >= n {
		return sorted[n-1]
	}

	frac := idx - float64(lower)
	return sorted[lower] + frac*(sorted[upper]-sorted[lower])
}

// Mean computes the arithmetic mean. Returns 0 for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// Stddev computes the sample standard deviation (n-1 denominator).
// Returns 0 with fewer than 2 values.
func Stddev(values []float64, mean float64) float64 {
	n := len(values)
	if n < 2 {
		return 0
	}
	sumSq := 0.0
	for _, v := range values {
		diff := v - mean
		sumSq += diff * diff
	}
	return math.Sqrt(sumSq / float64(n-1))
}

// formatTimestamps renders the first n timestamps of a curve as strings.
// Midnight-aligned timestamps render as dates, others as RFC 3339.
func formatTimestamps(curve *domain.EquityCurve, n int) []string {
	out := make([]string, n)
	if len(curve.TimestampsMs) >= n {
		for i := 0; i < n; i++ {
			t := time.UnixMilli(curve.TimestampsMs[i]).UTC()
			if curve.TimestampsMs[i]%86400000 == 0 {
				out[i] = t.Format("2006-01-02")
			} else {
				out[i] = t.Format(time.RFC3339)
			}
		}
		return out
	}
	for i := 0; i < n; i++ {
		out[i] = strconv.Itoa(i)
	}
	return out
}
