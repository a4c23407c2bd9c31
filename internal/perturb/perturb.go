// Package perturb generates synthetic price series from an original one,
// via bootstrap resampling or Gaussian noise on returns.
package perturb

import (
	"errors"
	"fmt"
	"math/rand"

	"montecarlo-lab/internal/domain"
)

// Perturbation errors.
var (
	ErrUnsupportedMethod = errors.New("unsupported perturbation method")
	ErrInvalidParameter  = errors.New("invalid method parameter")
	ErrSeriesTooShort    = errors.New("series too short to perturb: need at least 2 points")
)

// Default method parameters.
const (
	defaultSampleFraction = 1.0
	defaultGaussianScale  = 1.0
)

// Generator produces a synthetic series from an original one. Generators are
// stateless; all randomness comes from the provided rng, so the same rng
// state yields a bit-identical synthetic series.
type Generator interface {
	// Perturb builds one synthetic series using the given generator.
	Perturb(series *domain.PriceSeries, rng *rand.Rand) (*domain.PriceSeries, error)

	// Method returns the canonical method name.
	Method() string
}

// FromParams builds a Generator from a method name and a loose parameter
// map, the shape the external API layer hands in.
func FromParams(method string, params map[string]float64) (Generator, error) {
	cfg := domain.MethodConfig{Method: method}
	for key, value := range params {
		switch key {
		case "sample_fraction":
			v := value
			cfg.SampleFraction = &v
		case "gaussian_scale":
			v := value
			cfg.GaussianScale = &v
		default:
			return nil, fmt.Errorf("%w: unrecognized key %q", ErrInvalidParameter, key)
		}
	}
	return FromConfig(cfg)
}

// FromConfig creates a Generator from a typed config, applying defaults and
// validating parameters.
func FromConfig(cfg domain.MethodConfig) (Generator, error) {
	switch cfg.Method {
	case domain.MethodBootstrap:
		fraction := defaultSampleFraction
		if cfg.SampleFraction != nil {
			fraction = *cfg.SampleFraction
		}
		if fraction <= 0 {
			return nil, fmt.Errorf("%w: sample_fraction must be positive, got %v", ErrInvalidParameter, fraction)
		}
		return &Bootstrap{sampleFraction: fraction}, nil
	case domain.MethodGaussian:
		scale := defaultGaussianScale
		if cfg.GaussianScale != nil {
			scale = *cfg.GaussianScale
		}
		if scale < 0 {
			return nil, fmt.Errorf("%w: gaussian_scale must be non-negative, got %v", ErrInvalidParameter, scale)
		}
		return &Gaussian{scale: scale}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedMethod, cfg.Method)
	}
}

// reconstruct compounds returns onto an anchor price. The output has
// len(returns)+1 points; timestamps are attached when the original index is
// long enough to cover the output, otherwise the result is unindexed.
func reconstruct(anchor float64, returns []float64, timestamps []int64) *domain.PriceSeries {
	prices := make([]float64, len(returns)+1)
	prices[0] = anchor
	for i, r := range returns {
		prices[i+1] = prices[i] * (1 + r)
	}

	series := &domain.PriceSeries{Prices: prices}
	if len(timestamps) >= len(prices) {
		series.TimestampsMs = timestamps[:len(prices)]
	}
	return series
}
