package reporting

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"montecarlo-lab/internal/domain"
	"montecarlo-lab/internal/storage"
)

// Generator produces batch reports from stored data.
type Generator struct {
	summaryStore  storage.SummaryStore
	trialStore    storage.TrialMetricStore
	envelopeStore storage.EnvelopePointStore
	now           func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator. The trial and envelope stores
// may be nil when those rows were never persisted; the report then carries
// the summary alone.
func NewGenerator(
	summaryStore storage.SummaryStore,
	trialStore storage.TrialMetricStore,
	envelopeStore storage.EnvelopePointStore,
) *Generator {
	return &Generator{
		summaryStore:  summaryStore,
		trialStore:    trialStore,
		envelopeStore: envelopeStore,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate assembles the report for one batch. Returns storage.ErrNotFound
// when no summary exists for the batch ID.
func (g *Generator) Generate(ctx context.Context, batchID string) (*BatchReport, error) {
	summary, err := g.summaryStore.GetByBatchID(ctx, batchID)
	if err != nil {
		return nil, err
	}

	report := &BatchReport{
		GeneratedAt: g.now(),
		Summary:     summary,
	}

	if g.trialStore != nil {
		rows, err := g.trialStore.GetByBatchID(ctx, batchID)
		if err != nil {
			return nil, fmt.Errorf("load trial metrics: %w", err)
		}
		report.TrialMetrics = rows
	}

	if g.envelopeStore != nil {
		rows, err := g.envelopeStore.GetByBatchID(ctx, batchID)
		if err != nil {
			return nil, fmt.Errorf("load envelope points: %w", err)
		}
		report.EnvelopePoints = rows
	}

	return report, nil
}

// ListBatches returns all stored summaries, for report selection.
func (g *Generator) ListBatches(ctx context.Context) ([]*domain.MonteCarloSummary, error) {
	return g.summaryStore.List(ctx)
}

// WriteArtifacts renders the report under dir: REPORT_<batch>.md plus CSV
// exports for distributions, trial metrics and envelope points. Files for
// empty sections are not written. Returns the paths written.
func (g *Generator) WriteArtifacts(report *BatchReport, dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create report directory: %w", err)
	}

	batchID := report.Summary.BatchID
	var written []string

	write := func(name, content string) error {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
		written = append(written, path)
		return nil
	}

	if err := write(fmt.Sprintf("REPORT_%s.md", batchID), RenderMarkdown(report)); err != nil {
		return nil, err
	}
	if err := write(fmt.Sprintf("distributions_%s.csv", batchID), RenderDistributionsCSV(report)); err != nil {
		return nil, err
	}
	if len(report.TrialMetrics) > 0 {
		if err := write(fmt.Sprintf("trials_%s.csv", batchID), RenderTrialMetricsCSV(report.TrialMetrics)); err != nil {
			return nil, err
		}
	}
	if len(report.EnvelopePoints) > 0 {
		if err := write(fmt.Sprintf("envelope_%s.csv", batchID), RenderEnvelopeCSV(report.EnvelopePoints)); err != nil {
			return nil, err
		}
	}

	return written, nil
}
