package memory

import (
	"context"
	"errors"
	"testing"

	"montecarlo-lab/internal/domain"
	"montecarlo-lab/internal/storage"
)

func envelopeRows(batchID string, n int) []*domain.EnvelopePoint {
	rows := make([]*domain.EnvelopePoint, n)
	for i := range rows {
		rows[i] = &domain.EnvelopePoint{
			BatchID:   batchID,
			StepIndex: i,
			Timestamp: "2024-01-01",
			P5:        0.9,
			P25:       0.95,
			Median:    1.0,
			P75:       1.05,
			P95:       1.1,
		}
	}
	return rows
}

func TestEnvelopePointStore_InsertBulkAndGet(t *testing.T) {
	store := NewEnvelopePointStore()
	ctx := context.Background()

	if err := store.InsertBulk(ctx, envelopeRows("batch1", 4)); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	rows, err := store.GetByBatchID(ctx, "batch1")
	if err != nil {
		t.Fatalf("GetByBatchID failed: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("got %d rows, want 4", len(rows))
	}
	for i, r := range rows {
		if r.StepIndex != i {
			t.Errorf("position %d: step index %d, rows not ordered", i, r.StepIndex)
		}
		if !(r.P5 <= r.P25 && r.P25 <= r.Median && r.Median <= r.P75 && r.P75 <= r.P95) {
			t.Errorf("band order violated in row %d: %+v", i, r)
		}
	}
}

func TestEnvelopePointStore_DuplicateFailsWholeBatch(t *testing.T) {
	store := NewEnvelopePointStore()
	ctx := context.Background()

	if err := store.InsertBulk(ctx, envelopeRows("batch1", 3)); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}
	if err := store.InsertBulk(ctx, envelopeRows("batch1", 3)); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Fatalf("Expected ErrDuplicateKey, got %v", err)
	}

	rows, err := store.GetByBatchID(ctx, "batch1")
	if err != nil {
		t.Fatalf("GetByBatchID failed: %v", err)
	}
	if len(rows) != 3 {
		t.Errorf("partial write: %d rows, want 3", len(rows))
	}
}

func TestEnvelopePointStore_EmptyAndInvalid(t *testing.T) {
	store := NewEnvelopePointStore()
	ctx := context.Background()

	if err := store.InsertBulk(ctx, nil); err != nil {
		t.Errorf("empty insert should be a no-op, got %v", err)
	}
	if err := store.InsertBulk(ctx, []*domain.EnvelopePoint{{BatchID: ""}}); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}
}

func TestEnvelopePointStore_BatchIsolation(t *testing.T) {
	store := NewEnvelopePointStore()
	ctx := context.Background()

	if err := store.InsertBulk(ctx, envelopeRows("batch1", 2)); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}
	if err := store.InsertBulk(ctx, envelopeRows("batch2", 5)); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	rows, err := store.GetByBatchID(ctx, "batch2")
	if err != nil {
		t.Fatalf("GetByBatchID failed: %v", err)
	}
	if len(rows) != 5 {
		t.Errorf("got %d rows for batch2, want 5", len(rows))
	}
}
