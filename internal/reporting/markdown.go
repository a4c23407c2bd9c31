package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders a batch report as Markdown string.
func RenderMarkdown(r *BatchReport) string {
	var sb strings.Builder
	s := r.Summary

	// Header
	sb.WriteString(fmt.Sprintf("# Monte Carlo Report: %s\n\n", s.BatchID))
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))

	// Batch parameters
	sb.WriteString("## Batch\n\n")
	sb.WriteString("| Parameter | Value |\n")
	sb.WriteString("|-----------|-------|\n")
	sb.WriteString(fmt.Sprintf("| File | %s |\n", s.Filename))
	sb.WriteString(fmt.Sprintf("| Strategy | %s |\n", s.StrategyID))
	sb.WriteString(fmt.Sprintf("| Method | %s |\n", s.Method))
	sb.WriteString(fmt.Sprintf("| Seed | %d |\n", s.Seed))
	sb.WriteString(fmt.Sprintf("| Requested Runs | %d |\n", s.RequestedRuns))
	sb.WriteString(fmt.Sprintf("| Successful Runs | %d |\n", s.SuccessfulRuns))
	sb.WriteString("\n")

	if s.SuccessfulRuns < s.RequestedRuns {
		sb.WriteString(fmt.Sprintf("**%d of %d trials failed.** Distributions below cover successful trials only.\n\n",
			s.RequestedRuns-s.SuccessfulRuns, s.RequestedRuns))
	}

	// Metrics distributions
	sb.WriteString("## Metrics Distributions\n\n")
	sb.WriteString("| Metric | Mean | Stddev | P5 | P25 | Median | P75 | P95 |\n")
	sb.WriteString("|--------|------|--------|----|-----|--------|-----|-----|\n")
	for _, row := range r.MetricRows() {
		d := row.Distribution
		sb.WriteString(fmt.Sprintf("| %s | %.6f | %.6f | %.6f | %.6f | %.6f | %.6f | %.6f |\n",
			row.Name, d.Mean, d.Stddev, d.P5, d.P25, d.Median, d.P75, d.P95))
	}
	sb.WriteString("\n")

	// Equity envelope
	if env := s.EquityEnvelope; env != nil && len(env.Timestamps) > 0 {
		last := len(env.Timestamps) - 1
		sb.WriteString("## Equity Envelope\n\n")
		sb.WriteString(fmt.Sprintf("%d timesteps from %s to %s.\n\n",
			len(env.Timestamps), env.Timestamps[0], env.Timestamps[last]))
		sb.WriteString("| | P5 | P25 | Median | P75 | P95 |\n")
		sb.WriteString("|-|----|-----|--------|-----|-----|\n")
		sb.WriteString(fmt.Sprintf("| First (%s) | %.6f | %.6f | %.6f | %.6f | %.6f |\n",
			env.Timestamps[0], env.P5[0], env.P25[0], env.Median[0], env.P75[0], env.P95[0]))
		sb.WriteString(fmt.Sprintf("| Final (%s) | %.6f | %.6f | %.6f | %.6f | %.6f |\n",
			env.Timestamps[last], env.P5[last], env.P25[last], env.Median[last], env.P75[last], env.P95[last]))
		sb.WriteString("\nFull per-timestep bands are in the envelope CSV export.\n\n")
	}

	// Trial metrics
	if len(r.TrialMetrics) > 0 {
		sb.WriteString("## Trials\n\n")
		sb.WriteString(fmt.Sprintf("%d per-trial rows stored; see the trials CSV export.\n", len(r.TrialMetrics)))
	}

	return sb.String()
}
