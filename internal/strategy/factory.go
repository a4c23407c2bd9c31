package strategy

import (
	"errors"
	"fmt"

	"montecarlo-lab/internal/domain"
)

// Factory errors.
var (
	ErrUnknownStrategy  = errors.New("unknown strategy")
	ErrInvalidParameter = errors.New("invalid strategy parameter")
)

// Default parameters applied when a config leaves fields unset.
const (
	defaultShortWindow = 20
	defaultLongWindow  = 50
	defaultRSIPeriod   = 14
	defaultOverbought  = 70.0
	defaultOversold    = 30.0
)

// nameAliases maps accepted strategy names to canonical ones.
var nameAliases = map[string]string{
	"sma":           domain.StrategySMACrossover,
	"sma_crossover": domain.StrategySMACrossover,
	"rsi":           domain.StrategyRSIReversion,
	"rsi_reversion": domain.StrategyRSIReversion,
}

// paramAliases maps accepted parameter keys to canonical ones.
var paramAliases = map[string]string{
	"sma_short":    "short_window",
	"short_window": "short_window",
	"sma_long":     "long_window",
	"long_window":  "long_window",
	"period":       "period",
	"overbought":   "overbought",
	"oversold":     "oversold",
}

// NormalizeName resolves a strategy name alias to its canonical form.
func NormalizeName(name string) (string, bool) {
	canonical, ok := nameAliases[name]
	return canonical, ok
}

// FromParams builds a Strategy from a name (aliases accepted) and a loose
// parameter map, the shape the external API layer hands in. Unrecognized
// parameter keys are rejected.
func FromParams(name string, params map[string]float64) (Strategy, error) {
	canonical, ok := NormalizeName(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
	}

	cfg := domain.StrategyConfig{Name: canonical}
	for key, value := range params {
		alias, ok := paramAliases[key]
		if !ok {
			return nil, fmt.Errorf("%w: unrecognized key %q", ErrInvalidParameter, key)
		}
		switch alias {
		case "short_window":
			w := int(value)
			cfg.ShortWindow = &w
		case "long_window":
			w := int(value)
			cfg.LongWindow = &w
		case "period":
			p := int(value)
			cfg.Period = &p
		case "overbought":
			v := value
			cfg.Overbought = &v
		case "oversold":
			v := value
			cfg.Oversold = &v
		}
	}
	return FromConfig(cfg)
}

// FromConfig creates a Strategy from a typed config, applying defaults for
// unset fields and validating parameters at construction time.
func FromConfig(cfg domain.StrategyConfig) (Strategy, error) {
	switch cfg.Name {
	case domain.StrategySMACrossover:
		return fromSMAConfig(cfg)
	case domain.StrategyRSIReversion:
		return fromRSIConfig(cfg)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, cfg.Name)
	}
}

func fromSMAConfig(cfg domain.StrategyConfig) (*SMACrossover, error) {
	short := defaultShortWindow
	long := defaultLongWindow
	if cfg.ShortWindow != nil {
		short = *cfg.ShortWindow
	}
	if cfg.LongWindow != nil {
		long = *cfg.LongWindow
	}
	return NewSMACrossover(short, long)
}

func fromRSIConfig(cfg domain.StrategyConfig) (*RSIReversion, error) {
	period := defaultRSIPeriod
	overbought := defaultOverbought
	oversold := defaultOversold
	if cfg.Period != nil {
		period = *cfg.Period
	}
	if cfg.Overbought != nil {
		overbought = *cfg.Overbought
	}
	if cfg.Oversold != nil {
		oversold = *cfg.Oversold
	}
	return NewRSIReversion(period, overbought, oversold)
}
