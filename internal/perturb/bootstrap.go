package perturb

import (
	"math"
	"math/rand"

	"montecarlo-lab/internal/domain"
)

// Compile-time interface check.
var _ Generator = (*Bootstrap)(nil)

// Bootstrap resamples observed returns with replacement and compounds them
// onto the original first price. With sampleFraction f the output has
// floor(len(returns)*f)+1 points; f != 1.0 changes the output length and
// that difference is preserved, never padded.
type Bootstrap struct {
	sampleFraction float64
}

// Method returns "bootstrap".
func (b *Bootstrap) Method() string {
	return domain.MethodBootstrap
}

// Perturb builds one bootstrap path from the series.
func (b *Bootstrap) Perturb(series *domain.PriceSeries, rng *rand.Rand) (*domain.PriceSeries, error) {
	returns := series.Returns()
	if len(returns) == 0 {
		return nil, ErrSeriesTooShort
	}

	count := int(math.Floor(float64(len(returns)) * b.sampleFraction))
	sampled := make([]float64, count)
	for i := range sampled {
		sampled[i] = returns[rng.Intn(len(returns))]
	}

	return reconstruct(series.Prices[0], sampled, series.TimestampsMs), nil
}
