package perturb

import (
	"math/rand"

	"montecarlo-lab/internal/domain"
	"montecarlo-lab/internal/metrics"
)

// Compile-time interface check.
var _ Generator = (*Gaussian)(nil)

// Gaussian adds i.i.d. Gaussian noise to every observed return, with mean 0
// and stddev = (sample stddev of the original returns) * scale. Noise is
// added positionally, not resampled, so the output always has the input's
// length.
type Gaussian struct {
	scale float64
}

// Method returns "gaussian".
func (g *Gaussian) Method() string {
	return domain.MethodGaussian
}

// Perturb builds one noise-perturbed path from the series.
func (g *Gaussian) Perturb(series *domain.PriceSeries, rng *rand.Rand) (*domain.PriceSeries, error) {
	returns := series.Returns()
	if len(returns) == 0 {
		return nil, ErrSeriesTooShort
	}

	std := metrics.Stddev(returns, metrics.Mean(returns))
	noisy := make([]float64, len(returns))
	for i, r := range returns {
		noisy[i] = r + rng.NormFloat64()*std*g.scale
	}

	return reconstruct(series.Prices[0], noisy, series.TimestampsMs), nil
}
