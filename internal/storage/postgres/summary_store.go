package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"montecarlo-lab/internal/domain"
	"montecarlo-lab/internal/observability"
	"montecarlo-lab/internal/storage"
)

// SummaryStore implements storage.SummaryStore using PostgreSQL.
// Summaries are append-only: one row per batch_id, never updated.
type SummaryStore struct {
	pool *Pool
}

// NewSummaryStore creates a new SummaryStore.
func NewSummaryStore(pool *Pool) *SummaryStore {
	return &SummaryStore{pool: pool}
}

// Compile-time interface check.
var _ storage.SummaryStore = (*SummaryStore)(nil)

// Insert adds a new summary. Returns ErrDuplicateKey if batch_id exists.
func (s *SummaryStore) Insert(ctx context.Context, sum *domain.MonteCarloSummary) error {
	if sum == nil || sum.BatchID == "" {
		return storage.ErrInvalidInput
	}

	metricsJSON, err := json.Marshal(sum.Metrics)
	if err != nil {
		return fmt.Errorf("marshal metrics: %w", err)
	}
	var envelopeJSON []byte
	if sum.EquityEnvelope != nil {
		envelopeJSON, err = json.Marshal(sum.EquityEnvelope)
		if err != nil {
			return fmt.Errorf("marshal envelope: %w", err)
		}
	}

	start := time.Now()
	_, err = s.pool.Exec(ctx, `
		INSERT INTO summaries (
			batch_id, filename, strategy_id, method, seed,
			requested_runs, successful_runs, metrics, equity_envelope
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		sum.BatchID, sum.Filename, sum.StrategyID, sum.Method, sum.Seed,
		sum.RequestedRuns, sum.SuccessfulRuns, metricsJSON, envelopeJSON,
	)
	observability.RecordDBQuery("postgres", "insert_summary", time.Since(start).Seconds(), err)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert summary: %w", err)
	}
	return nil
}

// GetByBatchID retrieves a summary. Returns ErrNotFound if not exists.
func (s *SummaryStore) GetByBatchID(ctx context.Context, batchID string) (*domain.MonteCarloSummary, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT batch_id, filename, strategy_id, method, seed,
		       requested_runs, successful_runs, metrics, equity_envelope
		FROM summaries WHERE batch_id = $1
	`, batchID)

	sum, err := scanSummary(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get summary by batch id: %w", err)
	}
	return sum, nil
}

// List retrieves all summaries, ordered by batch_id ASC.
func (s *SummaryStore) List(ctx context.Context) ([]*domain.MonteCarloSummary, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT batch_id, filename, strategy_id, method, seed,
		       requested_runs, successful_runs, metrics, equity_envelope
		FROM summaries ORDER BY batch_id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list summaries: %w", err)
	}
	defer rows.Close()

	var result []*domain.MonteCarloSummary
	for rows.Next() {
		sum, err := scanSummary(rows)
		if err != nil {
			return nil, fmt.Errorf("scan summary: %w", err)
		}
		result = append(result, sum)
	}
	return result, rows.Err()
}

func scanSummary(row rowScanner) (*domain.MonteCarloSummary, error) {
	var sum domain.MonteCarloSummary
	var metricsJSON, envelopeJSON []byte
	err := row.Scan(
		&sum.BatchID, &sum.Filename, &sum.StrategyID, &sum.Method, &sum.Seed,
		&sum.RequestedRuns, &sum.SuccessfulRuns, &metricsJSON, &envelopeJSON,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(metricsJSON, &sum.Metrics); err != nil {
		return nil, fmt.Errorf("unmarshal metrics: %w", err)
	}
	if len(envelopeJSON) > 0 {
		sum.EquityEnvelope = &domain.EquityEnvelope{}
		if err := json.Unmarshal(envelopeJSON, sum.EquityEnvelope); err != nil {
			return nil, fmt.Errorf("unmarshal envelope: %w", err)
		}
	}
	return &sum, nil
}
