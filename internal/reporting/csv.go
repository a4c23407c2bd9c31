package reporting

import (
	"fmt"
	"strings"

	"montecarlo-lab/internal/domain"
)

// RenderDistributionsCSV renders the batch's metric distributions as CSV.
func RenderDistributionsCSV(r *BatchReport) string {
	var sb strings.Builder

	sb.WriteString("metric,mean,stddev,p5,p25,median,p75,p95\n")
	for _, row := range r.MetricRows() {
		d := row.Distribution
		sb.WriteString(fmt.Sprintf("%s,%.6f,%.6f,%.6f,%.6f,%.6f,%.6f,%.6f\n",
			row.Name, d.Mean, d.Stddev, d.P5, d.P25, d.Median, d.P75, d.P95))
	}

	return sb.String()
}

// RenderTrialMetricsCSV renders per-trial metric rows as CSV.
func RenderTrialMetricsCSV(rows []*domain.TrialMetric) string {
	var sb strings.Builder

	sb.WriteString("trial_index,seed,pnl,sharpe,drawdown\n")
	for _, m := range rows {
		sb.WriteString(fmt.Sprintf("%d,%d,%.6f,%.6f,%.6f\n",
			m.TrialIndex, m.Seed, m.PnL, m.Sharpe, m.Drawdown))
	}

	return sb.String()
}

// RenderEnvelopeCSV renders equity envelope rows as CSV.
func RenderEnvelopeCSV(rows []*domain.EnvelopePoint) string {
	var sb strings.Builder

	sb.WriteString("step_index,timestamp,p5,p25,median,p75,p95\n")
	for _, p := range rows {
		sb.WriteString(fmt.Sprintf("%d,%s,%.6f,%.6f,%.6f,%.6f,%.6f\n",
			p.StepIndex, p.Timestamp, p.P5, p.P25, p.Median, p.P75, p.P95))
	}

	return sb.String()
}
