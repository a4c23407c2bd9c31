package strategy

import (
	"context"
	"errors"
	"math"
	"testing"

	"montecarlo-lab/internal/domain"
)

// ascendingSeries returns n daily closes rising by 1.0 from start.
func ascendingSeries(start float64, n int) *domain.PriceSeries {
	prices := make([]float64, n)
	for i := range prices {
		prices[i] = start + float64(i)
	}
	return &domain.PriceSeries{Prices: prices}
}

func descendingSeries(start float64, n int) *domain.PriceSeries {
	prices := make([]float64, n)
	for i := range prices {
		prices[i] = start - float64(i)*0.5
	}
	return &domain.PriceSeries{Prices: prices}
}

func TestRollingMeanWarmup(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5}
	out := rollingMean(values, 3)

	if !math.IsNaN(out[0]) || !math.IsNaN(out[1]) {
		t.Errorf("expected NaN warm-up, got %v", out[:2])
	}
	if out[2] != 2.0 || out[3] != 3.0 || out[4] != 4.0 {
		t.Errorf("unexpected rolling means: %v", out[2:])
	}
}

func TestRollingMeanWindowLargerThanInput(t *testing.T) {
	out := rollingMean([]float64{1, 2}, 5)
	for i, v := range out {
		if !math.IsNaN(v) {
			t.Errorf("expected all NaN, got %v at %d", v, i)
		}
	}
}

func TestNewSMACrossoverValidation(t *testing.T) {
	tests := []struct {
		name        string
		short, long int
		wantErr     bool
	}{
		{"valid", 5, 10, false},
		{"short equals long", 10, 10, true},
		{"short greater than long", 10, 5, true},
		{"zero short", 0, 10, true},
		{"negative long", 5, -1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSMACrossover(tt.short, tt.long)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidParameter) {
					t.Fatalf("expected ErrInvalidParameter, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestSMACrossoverAscendingMarket(t *testing.T) {
	strat, err := NewSMACrossover(5, 10)
	if err != nil {
		t.Fatalf("NewSMACrossover failed: %v", err)
	}

	series := ascendingSeries(100, 30)
	res, err := strat.Run(context.Background(), series)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(res.Equity) != series.Len() {
		t.Fatalf("equity length %d, want %d", len(res.Equity), series.Len())
	}
	if res.Equity[0] != 1.0 {
		t.Errorf("equity must start at 1.0, got %v", res.Equity[0])
	}
	// Warm-up stays flat: nothing before the long window can signal.
	for i := 0; i < 10; i++ {
		if res.Equity[i] != 1.0 {
			t.Fatalf("expected flat equity during warm-up, got %v at %d", res.Equity[i], i)
		}
	}
	// An always-rising market must be profitable once invested.
	if res.PnL <= 0 {
		t.Errorf("expected positive PnL in ascending market, got %v", res.PnL)
	}
	if res.Drawdown < -1 || res.Drawdown > 0 {
		t.Errorf("drawdown out of [-1, 0]: %v", res.Drawdown)
	}
	if res.Sharpe <= 0 {
		t.Errorf("expected positive Sharpe in ascending market, got %v", res.Sharpe)
	}
}

func TestSMACrossoverFlatWhenNeverSignalled(t *testing.T) {
	strat, err := NewSMACrossover(3, 6)
	if err != nil {
		t.Fatalf("NewSMACrossover failed: %v", err)
	}

	// Steadily falling prices keep the short mean below the long mean, so
	// the strategy never enters. Zero volatility maps to Sharpe 0, not NaN.
	res, err := strat.Run(context.Background(), descendingSeries(100, 20))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if res.PnL != 0 {
		t.Errorf("expected zero PnL when never invested, got %v", res.PnL)
	}
	if res.Sharpe != 0 {
		t.Errorf("expected Sharpe 0.0 on zero volatility, got %v", res.Sharpe)
	}
	if res.Drawdown != 0 {
		t.Errorf("expected zero drawdown, got %v", res.Drawdown)
	}
}

func TestSMACrossoverSignalLag(t *testing.T) {
	strat, err := NewSMACrossover(2, 3)
	if err != nil {
		t.Fatalf("NewSMACrossover failed: %v", err)
	}

	// Prices fall, then jump at index 3. The crossover appears at index 3;
	// the lagged position participates from the return into index 4, never
	// from the jump itself.
	series := &domain.PriceSeries{Prices: []float64{102, 101, 100, 120, 130, 140}}
	res, err := strat.Run(context.Background(), series)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if res.Equity[3] != res.Equity[2] {
		t.Errorf("position used the bar that produced it: equity[3]=%v equity[2]=%v", res.Equity[3], res.Equity[2])
	}
	if res.Equity[4] <= res.Equity[3] {
		t.Errorf("expected participation from index 4, equity: %v", res.Equity)
	}
}

func TestNewRSIReversionValidation(t *testing.T) {
	tests := []struct {
		name                 string
		period               int
		overbought, oversold float64
		wantErr              bool
	}{
		{"valid", 14, 70, 30, false},
		{"zero period", 0, 70, 30, true},
		{"overbought above 100", 14, 120, 30, true},
		{"negative oversold", 14, 70, -5, true},
		{"oversold above overbought", 14, 30, 70, true},
		{"equal thresholds", 14, 50, 50, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRSIReversion(tt.period, tt.overbought, tt.oversold)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidParameter) {
					t.Fatalf("expected ErrInvalidParameter, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestRSIPinsAt100OnPureGains(t *testing.T) {
	strat, err := NewRSIReversion(3, 70, 30)
	if err != nil {
		t.Fatalf("NewRSIReversion failed: %v", err)
	}

	rsi := strat.computeRSI([]float64{100, 101, 102, 103, 104, 105})
	for i := 0; i < 3; i++ {
		if !math.IsNaN(rsi[i]) {
			t.Errorf("expected NaN warm-up at %d, got %v", i, rsi[i])
		}
	}
	for i := 3; i < len(rsi); i++ {
		if rsi[i] != 100 {
			t.Errorf("expected RSI 100 on pure gains at %d, got %v", i, rsi[i])
		}
	}
}

func TestRSIFlatWindowStaysNaN(t *testing.T) {
	strat, err := NewRSIReversion(3, 70, 30)
	if err != nil {
		t.Fatalf("NewRSIReversion failed: %v", err)
	}

	rsi := strat.computeRSI([]float64{100, 100, 100, 100, 100})
	for i, v := range rsi {
		if !math.IsNaN(v) {
			t.Errorf("expected NaN on flat window at %d, got %v", i, v)
		}
	}
}

func TestRSIReversionShortsOverboughtMarket(t *testing.T) {
	strat, err := NewRSIReversion(3, 70, 30)
	if err != nil {
		t.Fatalf("NewRSIReversion failed: %v", err)
	}

	// A relentless rally pins RSI at 100, so the reversion strategy holds a
	// short and loses money.
	res, err := strat.Run(context.Background(), ascendingSeries(100, 15))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if res.Equity[0] != 1.0 {
		t.Errorf("equity must start at 1.0, got %v", res.Equity[0])
	}
	if res.PnL >= 0 {
		t.Errorf("expected negative PnL shorting a rally, got %v", res.PnL)
	}
	if res.Drawdown >= 0 {
		t.Errorf("expected negative drawdown, got %v", res.Drawdown)
	}
}

func TestRSIWarmupPositionsFlat(t *testing.T) {
	strat, err := NewRSIReversion(5, 70, 30)
	if err != nil {
		t.Fatalf("NewRSIReversion failed: %v", err)
	}

	res, err := strat.Run(context.Background(), ascendingSeries(100, 20))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	// No position can exist before the RSI warm-up plus one lag step.
	for i := 0; i <= 5; i++ {
		if res.Equity[i] != 1.0 {
			t.Fatalf("expected flat equity through warm-up, got %v at %d", res.Equity[i], i)
		}
	}
}

func TestFromParamsAliases(t *testing.T) {
	tests := []struct {
		name   string
		params map[string]float64
		wantID string
	}{
		{"sma", map[string]float64{"sma_short": 5, "sma_long": 10}, "sma_crossover(short=5,long=10)"},
		{"sma_crossover", map[string]float64{"short_window": 5, "long_window": 10}, "sma_crossover(short=5,long=10)"},
		{"rsi", map[string]float64{"period": 7, "overbought": 80, "oversold": 20}, "rsi_reversion(period=7,overbought=80,oversold=20)"},
		{"rsi_reversion", nil, "rsi_reversion(period=14,overbought=70,oversold=30)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			strat, err := FromParams(tt.name, tt.params)
			if err != nil {
				t.Fatalf("FromParams failed: %v", err)
			}
			if strat.ID() != tt.wantID {
				t.Errorf("ID = %q, want %q", strat.ID(), tt.wantID)
			}
		})
	}
}

func TestFromParamsUnknownStrategy(t *testing.T) {
	_, err := FromParams("momentum", nil)
	if !errors.Is(err, ErrUnknownStrategy) {
		t.Fatalf("expected ErrUnknownStrategy, got %v", err)
	}
}

func TestFromParamsUnknownKey(t *testing.T) {
	_, err := FromParams("sma", map[string]float64{"lookback": 10})
	if !errors.Is(err, ErrInvalidParameter) {
		t.Fatalf("expected ErrInvalidParameter, got %v", err)
	}
}

func TestFromParamsInvalidWindows(t *testing.T) {
	_, err := FromParams("sma", map[string]float64{"short_window": 10, "long_window": 5})
	if !errors.Is(err, ErrInvalidParameter) {
		t.Fatalf("expected ErrInvalidParameter for short >= long, got %v", err)
	}
}

func TestFromConfigDefaults(t *testing.T) {
	strat, err := FromConfig(domain.StrategyConfig{Name: domain.StrategySMACrossover})
	if err != nil {
		t.Fatalf("FromConfig failed: %v", err)
	}
	if strat.ID() != "sma_crossover(short=20,long=50)" {
		t.Errorf("unexpected default ID %q", strat.ID())
	}
}
