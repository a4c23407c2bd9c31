package memory

import (
	"context"
	"sort"
	"sync"

	"montecarlo-lab/internal/domain"
	"montecarlo-lab/internal/storage"
)

// EnvelopePointStore is an in-memory implementation of storage.EnvelopePointStore.
type EnvelopePointStore struct {
	mu   sync.RWMutex
	data map[envelopeKey]*domain.EnvelopePoint
}

type envelopeKey struct {
	batchID   string
	stepIndex int
}

// NewEnvelopePointStore creates a new in-memory envelope point store.
func NewEnvelopePointStore() *EnvelopePointStore {
	return &EnvelopePointStore{
		data: make(map[envelopeKey]*domain.EnvelopePoint),
	}
}

// InsertBulk adds multiple rows. Fails entire batch on duplicate
// (batch_id, step_index).
func (s *EnvelopePointStore) InsertBulk(_ context.Context, rows []*domain.EnvelopePoint) error {
	if len(rows) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[envelopeKey]struct{}, len(rows))
	for _, r := range rows {
		if r == nil || r.BatchID == "" {
			return storage.ErrInvalidInput
		}
		k := envelopeKey{r.BatchID, r.StepIndex}
		if _, exists := s.data[k]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[k]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[k] = struct{}{}
	}

	for _, r := range rows {
		clone := *r
		s.data[envelopeKey{r.BatchID, r.StepIndex}] = &clone
	}
	return nil
}

// GetByBatchID retrieves all rows for a batch, ordered by step_index ASC.
func (s *EnvelopePointStore) GetByBatchID(_ context.Context, batchID string) ([]*domain.EnvelopePoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.EnvelopePoint
	for _, r := range s.data {
		if r.BatchID == batchID {
			clone := *r
			result = append(result, &clone)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].StepIndex < result[j].StepIndex
	})

	return result, nil
}

var _ storage.EnvelopePointStore = (*EnvelopePointStore)(nil)
