package domain

// Canonical strategy names.
const (
	StrategySMACrossover = "sma_crossover"
	StrategyRSIReversion = "rsi_reversion"
)

// Perturbation method names.
const (
	MethodBootstrap = "bootstrap"
	MethodGaussian  = "gaussian"
)

// StrategyConfig holds strategy construction parameters. Only the fields
// relevant to the named strategy are set; nil means "not provided" so the
// factory can apply defaults or reject missing required parameters.
type StrategyConfig struct {
	Name string

	// sma_crossover parameters
	ShortWindow *int
	LongWindow  *int

	// rsi_reversion parameters
	Period     *int
	Overbought *float64
	Oversold   *float64
}

// MethodConfig holds perturbation method parameters.
type MethodConfig struct {
	Method string

	// bootstrap: fraction of observed returns to resample (default 1.0)
	SampleFraction *float64

	// gaussian: noise stddev as a multiple of the observed returns stddev
	// (default 1.0)
	GaussianScale *float64
}
