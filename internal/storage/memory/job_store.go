package memory

import (
	"context"
	"sort"
	"sync"

	"montecarlo-lab/internal/domain"
	"montecarlo-lab/internal/storage"
)

// JobStore is an in-memory implementation of storage.JobStore.
type JobStore struct {
	mu   sync.RWMutex
	data map[string]*domain.JobRecord // keyed by job_id
}

// NewJobStore creates a new in-memory job store.
func NewJobStore() *JobStore {
	return &JobStore{
		data: make(map[string]*domain.JobRecord),
	}
}

// Insert adds a new job. Returns ErrDuplicateKey if job_id exists.
func (s *JobStore) Insert(_ context.Context, j *domain.JobRecord) error {
	if j == nil || j.JobID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[j.JobID]; exists {
		return storage.ErrDuplicateKey
	}

	clone := *j
	s.data[j.JobID] = &clone
	return nil
}

// GetByID retrieves a job by its ID. Returns ErrNotFound if not exists.
func (s *JobStore) GetByID(_ context.Context, jobID string) (*domain.JobRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	j, exists := s.data[jobID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	clone := *j
	return &clone, nil
}

// List retrieves all jobs, ordered by submission time ASC.
func (s *JobStore) List(_ context.Context) ([]*domain.JobRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.JobRecord, 0, len(s.data))
	for _, j := range s.data {
		clone := *j
		result = append(result, &clone)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].SubmittedAtMs != result[j].SubmittedAtMs {
			return result[i].SubmittedAtMs < result[j].SubmittedAtMs
		}
		return result[i].JobID < result[j].JobID
	})

	return result, nil
}

// UpdateProgress records completed trial count for a running job.
func (s *JobStore) UpdateProgress(_ context.Context, jobID string, completedRuns int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, exists := s.data[jobID]
	if !exists {
		return storage.ErrNotFound
	}
	j.CompletedRuns = completedRuns
	return nil
}

// MarkRunning transitions a job to RUNNING.
func (s *JobStore) MarkRunning(_ context.Context, jobID string, startedAtMs int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, exists := s.data[jobID]
	if !exists {
		return storage.ErrNotFound
	}
	j.Status = domain.JobStatusRunning
	j.StartedAtMs = startedAtMs
	return nil
}

// MarkFinished transitions a job to a terminal status.
func (s *JobStore) MarkFinished(_ context.Context, jobID, status, errMsg string, finishedAtMs int64, summary *domain.MonteCarloSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, exists := s.data[jobID]
	if !exists {
		return storage.ErrNotFound
	}
	j.Status = status
	j.Error = errMsg
	j.FinishedAtMs = finishedAtMs
	j.Summary = summary
	return nil
}

var _ storage.JobStore = (*JobStore)(nil)
