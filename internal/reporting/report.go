// Package reporting produces Markdown and CSV artifacts for stored Monte
// Carlo batches.
package reporting

import (
	"time"

	"montecarlo-lab/internal/domain"
)

// BatchReport represents the report for one Monte Carlo batch.
type BatchReport struct {
	// Metadata
	GeneratedAt time.Time

	// Summary is the batch's terminal artifact as stored.
	Summary *domain.MonteCarloSummary

	// TrialMetrics holds the per-trial rows, ordered by trial index. Empty
	// when no trial metric store was configured for the batch.
	TrialMetrics []*domain.TrialMetric

	// EnvelopePoints holds the per-timestep envelope rows, ordered by step
	// index. Empty when the batch was run without an equity envelope.
	EnvelopePoints []*domain.EnvelopePoint
}

// MetricRow is one row of the metrics distribution table, in a fixed
// rendering order.
type MetricRow struct {
	Name         string
	Distribution domain.MetricsDistribution
}

// MetricRows returns the batch's distributions in canonical order: pnl,
// sharpe, drawdown. Metrics missing from the summary are skipped.
func (r *BatchReport) MetricRows() []MetricRow {
	var rows []MetricRow
	for _, name := range []string{domain.MetricPnL, domain.MetricSharpe, domain.MetricDrawdown} {
		if dist, ok := r.Summary.Metrics[name]; ok {
			rows = append(rows, MetricRow{Name: name, Distribution: dist})
		}
	}
	return rows
}
