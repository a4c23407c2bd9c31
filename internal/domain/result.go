package domain

// Metric names used as keys in MonteCarloSummary.Metrics.
const (
	MetricPnL      = "pnl"
	MetricSharpe   = "sharpe"
	MetricDrawdown = "drawdown"
)

// StrategyResult holds the output of one strategy run over a price series.
// Equity has the same length as the input series with the first value
// normalized to 1.0. Drawdown is in [-1, 0]. Immutable once returned.
type StrategyResult struct {
	Equity   []float64 `json:"equity"`
	PnL      float64   `json:"pnl"`
	Sharpe   float64   `json:"sharpe"`
	Drawdown float64   `json:"drawdown"`
}

// EquityCurve is a timestamped equity path retained for envelope computation.
// TimestampsMs is nil when the underlying series was unindexed.
type EquityCurve struct {
	TimestampsMs []int64   `json:"timestamps_ms,omitempty"`
	Values       []float64 `json:"values"`
}

// TrialResult holds the metrics of one Monte Carlo trial. Equity is nil
// unless the caller requested an equity envelope.
type TrialResult struct {
	TrialIndex int          `json:"trial_index"`
	Seed       int64        `json:"seed"`
	PnL        float64      `json:"pnl"`
	Sharpe     float64      `json:"sharpe"`
	Drawdown   float64      `json:"drawdown"`
	Equity     *EquityCurve `json:"equity,omitempty"`
}

// MetricsDistribution summarizes the distribution of one metric across all
// successful trials. Invariant: P5 <= P25 <= Median <= P75 <= P95.
type MetricsDistribution struct {
	Mean   float64 `json:"mean"`
	Stddev float64 `json:"std"`
	P5     float64 `json:"p5"`
	P25    float64 `json:"p25"`
	Median float64 `json:"median"`
	P75    float64 `json:"p75"`
	P95    float64 `json:"p95"`
}

// EquityEnvelope holds per-timestep percentile bands of equity curves across
// trials. All slices share the same length: the minimum length across the
// retained curves. Timestamps are formatted dates for indexed series, or
// sequential ordinals for unindexed ones.
type EquityEnvelope struct {
	Timestamps []string  `json:"timestamps"`
	P5         []float64 `json:"p5"`
	P25        []float64 `json:"p25"`
	Median     []float64 `json:"median"`
	P75        []float64 `json:"p75"`
	P95        []float64 `json:"p95"`
}

// MonteCarloSummary is the terminal artifact of one orchestration run.
// Created once, returned to the caller, never mutated.
type MonteCarloSummary struct {
	BatchID        string                         `json:"batch_id"`
	Filename       string                         `json:"filename"`
	StrategyID     string                         `json:"strategy_id"`
	Method         string                         `json:"method"`
	Seed           int64                          `json:"seed"`
	RequestedRuns  int                            `json:"requested_runs"`
	SuccessfulRuns int                            `json:"successful_runs"`
	Metrics        map[string]MetricsDistribution `json:"metrics_distribution"`
	EquityEnvelope *EquityEnvelope                `json:"equity_envelope,omitempty"`
}

// TrialMetric is the persistence row shape for one trial's metrics.
type TrialMetric struct {
	BatchID    string
	TrialIndex int
	Seed       int64
	PnL        float64
	Sharpe     float64
	Drawdown   float64
}

// EnvelopePoint is the persistence row shape for one envelope timestep.
type EnvelopePoint struct {
	BatchID   string
	StepIndex int
	Timestamp string
	P5        float64
	P25       float64
	Median    float64
	P75       float64
	P95       float64
}
