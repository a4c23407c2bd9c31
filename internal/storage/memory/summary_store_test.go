package memory

import (
	"context"
	"errors"
	"testing"

	"montecarlo-lab/internal/domain"
	"montecarlo-lab/internal/storage"
)

func testSummary(batchID string) *domain.MonteCarloSummary {
	return &domain.MonteCarloSummary{
		BatchID:        batchID,
		Filename:       "prices.csv",
		StrategyID:     "rsi_reversion(period=14,overbought=70,oversold=30)",
		Method:         domain.MethodGaussian,
		Seed:           7,
		RequestedRuns:  100,
		SuccessfulRuns: 98,
		Metrics: map[string]domain.MetricsDistribution{
			domain.MetricPnL: {Mean: 0.05, Stddev: 0.02, P5: 0.01, P25: 0.03, Median: 0.05, P75: 0.07, P95: 0.09},
		},
	}
}

func TestSummaryStore_InsertAndGet(t *testing.T) {
	store := NewSummaryStore()
	ctx := context.Background()

	s := testSummary("batch1")
	if err := store.Insert(ctx, s); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	got, err := store.GetByBatchID(ctx, "batch1")
	if err != nil {
		t.Fatalf("GetByBatchID failed: %v", err)
	}
	if got.BatchID != s.BatchID || got.SuccessfulRuns != 98 {
		t.Errorf("summary mismatch: %+v", got)
	}
	dist, ok := got.Metrics[domain.MetricPnL]
	if !ok {
		t.Fatal("pnl distribution missing")
	}
	if dist.Median != 0.05 {
		t.Errorf("median %v, want 0.05", dist.Median)
	}
}

func TestSummaryStore_DuplicateKey(t *testing.T) {
	store := NewSummaryStore()
	ctx := context.Background()

	if err := store.Insert(ctx, testSummary("batch1")); err != nil {
		t.Fatalf("First insert failed: %v", err)
	}
	if err := store.Insert(ctx, testSummary("batch1")); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}
}

func TestSummaryStore_NotFound(t *testing.T) {
	store := NewSummaryStore()
	ctx := context.Background()

	if _, err := store.GetByBatchID(ctx, "nonexistent"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestSummaryStore_InvalidInput(t *testing.T) {
	store := NewSummaryStore()
	ctx := context.Background()

	if err := store.Insert(ctx, nil); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for nil, got %v", err)
	}
	if err := store.Insert(ctx, &domain.MonteCarloSummary{}); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for empty batch_id, got %v", err)
	}
}

func TestSummaryStore_ListOrdering(t *testing.T) {
	store := NewSummaryStore()
	ctx := context.Background()

	for _, id := range []string{"batchC", "batchA", "batchB"} {
		if err := store.Insert(ctx, testSummary(id)); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	summaries, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(summaries) != 3 {
		t.Fatalf("listed %d summaries, want 3", len(summaries))
	}
	for i, want := range []string{"batchA", "batchB", "batchC"} {
		if summaries[i].BatchID != want {
			t.Errorf("position %d: got %s, want %s", i, summaries[i].BatchID, want)
		}
	}
}
