package domain

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidSeries is returned when a price series violates its invariants.
var ErrInvalidSeries = errors.New("invalid price series")

// PriceSeries is an ordered sequence of prices with optional timestamps.
// TimestampsMs is nil for unindexed series; when present it has the same
// length as Prices and is strictly increasing. Prices are positive finite
// floats and the first price anchors synthetic path reconstruction.
type PriceSeries struct {
	TimestampsMs []int64
	Prices       []float64
}

// Len returns the number of points in the series.
func (s *PriceSeries) Len() int {
	return len(s.Prices)
}

// Indexed reports whether the series carries real timestamps.
func (s *PriceSeries) Indexed() bool {
	return len(s.TimestampsMs) > 0
}

// Validate checks the series invariants: non-empty, positive finite prices,
// and strictly increasing timestamps matching the price count when indexed.
func (s *PriceSeries) Validate() error {
	if s == nil || len(s.Prices) == 0 {
		return fmt.Errorf("%w: empty series", ErrInvalidSeries)
	}
	for i, p := range s.Prices {
		if math.IsNaN(p) || math.IsInf(p, 0) || p <= 0 {
			return fmt.Errorf("%w: price at index %d is %v", ErrInvalidSeries, i, p)
		}
	}
	if s.Indexed() {
		if len(s.TimestampsMs) != len(s.Prices) {
			return fmt.Errorf("%w: %d timestamps for %d prices", ErrInvalidSeries, len(s.TimestampsMs), len(s.Prices))
		}
		for i := 1; i < len(s.TimestampsMs); i++ {
			if s.TimestampsMs[i] <= s.TimestampsMs[i-1] {
				return fmt.Errorf("%w: timestamps not strictly increasing at index %d", ErrInvalidSeries, i)
			}
		}
	}
	return nil
}

// Returns computes simple period-over-period returns: r[i] = p[i+1]/p[i] - 1.
// The result has length Len()-1. An empty or single-point series yields nil.
func (s *PriceSeries) Returns() []float64 {
	if s.Len() < 2 {
		return nil
	}
	returns := make([]float64, s.Len()-1)
	for i := 1; i < s.Len(); i++ {
		returns[i-1] = s.Prices[i]/s.Prices[i-1] - 1
	}
	return returns
}
