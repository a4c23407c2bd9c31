package memory

import (
	"context"
	"sort"
	"sync"

	"montecarlo-lab/internal/domain"
	"montecarlo-lab/internal/storage"
)

// SummaryStore is an in-memory implementation of storage.SummaryStore.
type SummaryStore struct {
	mu   sync.RWMutex
	data map[string]*domain.MonteCarloSummary // keyed by batch_id
}

// NewSummaryStore creates a new in-memory summary store.
func NewSummaryStore() *SummaryStore {
	return &SummaryStore{
		data: make(map[string]*domain.MonteCarloSummary),
	}
}

// Insert adds a new summary. Returns ErrDuplicateKey if batch_id exists.
func (s *SummaryStore) Insert(_ context.Context, sum *domain.MonteCarloSummary) error {
	if sum == nil || sum.BatchID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[sum.BatchID]; exists {
		return storage.ErrDuplicateKey
	}

	clone := *sum
	s.data[sum.BatchID] = &clone
	return nil
}

// GetByBatchID retrieves a summary. Returns ErrNotFound if not exists.
func (s *SummaryStore) GetByBatchID(_ context.Context, batchID string) (*domain.MonteCarloSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sum, exists := s.data[batchID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	clone := *sum
	return &clone, nil
}

// List retrieves all summaries, ordered by batch_id ASC.
func (s *SummaryStore) List(_ context.Context) ([]*domain.MonteCarloSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.MonteCarloSummary, 0, len(s.data))
	for _, sum := range s.data {
		clone := *sum
		result = append(result, &clone)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].BatchID < result[j].BatchID
	})

	return result, nil
}

var _ storage.SummaryStore = (*SummaryStore)(nil)
