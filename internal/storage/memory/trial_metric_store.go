package memory

import (
	"context"
	"sort"
	"sync"

	"montecarlo-lab/internal/domain"
	"montecarlo-lab/internal/storage"
)

// TrialMetricStore is an in-memory implementation of storage.TrialMetricStore.
type TrialMetricStore struct {
	mu   sync.RWMutex
	data map[trialKey]*domain.TrialMetric
}

type trialKey struct {
	batchID    string
	trialIndex int
}

// NewTrialMetricStore creates a new in-memory trial metric store.
func NewTrialMetricStore() *TrialMetricStore {
	return &TrialMetricStore{
		data: make(map[trialKey]*domain.TrialMetric),
	}
}

// InsertBulk adds multiple rows. Fails entire batch on duplicate
// (batch_id, trial_index).
func (s *TrialMetricStore) InsertBulk(_ context.Context, rows []*domain.TrialMetric) error {
	if len(rows) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[trialKey]struct{}, len(rows))
	for _, r := range rows {
		if r == nil || r.BatchID == "" {
			return storage.ErrInvalidInput
		}
		k := trialKey{r.BatchID, r.TrialIndex}
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
		s.data[trialKey{r.BatchID, r.TrialIndex}] = &clone
	}
	return nil
}

// GetByBatchID retrieves all rows for a batch, ordered by trial_index ASC.
func (s *TrialMetricStore) GetByBatchID(_ context.Context, batchID string) ([]*domain.TrialMetric, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.TrialMetric
	for _, r := range s.data {
		if r.BatchID == batchID {
			clone := *r
			result = append(result, &clone)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].TrialIndex < result[j].TrialIndex
	})

	return result, nil
}

var _ storage.TrialMetricStore = (*TrialMetricStore)(nil)
