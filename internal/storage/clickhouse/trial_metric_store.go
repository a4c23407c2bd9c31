package clickhouse

import (
	"context"
	"fmt"
	"time"

	"montecarlo-lab/internal/domain"
	"montecarlo-lab/internal/observability"
	"montecarlo-lab/internal/storage"
)

// TrialMetricStore implements storage.TrialMetricStore using ClickHouse.
type TrialMetricStore struct {
	conn *Conn
}

var _ storage.TrialMetricStore = (*TrialMetricStore)(nil)

// NewTrialMetricStore creates a new ClickHouse-backed trial metric store.
func NewTrialMetricStore(conn *Conn) *TrialMetricStore {
	return &TrialMetricStore{conn: conn}
}

// InsertBulk inserts per-trial metric rows using a prepared batch. Rows whose
// (batch_id, trial_index) pair already exists in the table cause
// storage.ErrDuplicateKey, as do duplicates within the input itself.
func (s *TrialMetricStore) InsertBulk(ctx context.Context, rows []*domain.TrialMetric) error {
	if len(rows) == 0 {
		return nil
	}

	type key struct {
		batchID    string
		trialIndex int
	}

	seen := make(map[key]struct{}, len(rows))
	batches := make(map[string]struct{})
	for _, row := range rows {
		if row.BatchID == "" {
			return fmt.Errorf("%w: batch_id is required", storage.ErrInvalidInput)
		}
		k := key{row.BatchID, row.TrialIndex}
		if _, dup := seen[k]; dup {
			return fmt.Errorf("%w: trial metric %s/%d repeated in input",
				storage.ErrDuplicateKey, row.BatchID, row.TrialIndex)
		}
		seen[k] = struct{}{}
		batches[row.BatchID] = struct{}{}
	}

	for batchID := range batches {
		existing, err := s.existingIndexes(ctx, batchID)
		if err != nil {
			return err
		}
		for idx := range existing {
			if _, hit := seen[key{batchID, idx}]; hit {
				return fmt.Errorf("%w: trial metric %s/%d already stored",
					storage.ErrDuplicateKey, batchID, idx)
			}
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO trial_metrics (batch_id, trial_index, seed, pnl, sharpe, drawdown)
	`)
	if err != nil {
		return fmt.Errorf("prepare trial metrics batch: %w", err)
	}

	for _, row := range rows {
		if err := batch.Append(
			row.BatchID,
			int32(row.TrialIndex),
			row.Seed,
			row.PnL,
			row.Sharpe,
			row.Drawdown,
		); err != nil {
			return fmt.Errorf("append trial metric row: %w", err)
		}
	}

	start := time.Now()
	err = batch.Send()
	observability.RecordDBQuery("clickhouse", "insert_trial_metrics", time.Since(start).Seconds(), err)
	if err != nil {
		return fmt.Errorf("send trial metrics batch: %w", err)
	}

	return nil
}

// GetByBatchID returns all trial metric rows for a batch ordered by trial index.
func (s *TrialMetricStore) GetByBatchID(ctx context.Context, batchID string) ([]*domain.TrialMetric, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT batch_id, trial_index, seed, pnl, sharpe, drawdown
		FROM trial_metrics
		WHERE batch_id = ?
		ORDER BY trial_index
	`, batchID)
	if err != nil {
		return nil, fmt.Errorf("query trial metrics: %w", err)
	}
	defer rows.Close()

	var out []*domain.TrialMetric
	for rows.Next() {
		var (
			m          domain.TrialMetric
			trialIndex int32
		)
		if err := rows.Scan(&m.BatchID, &trialIndex, &m.Seed, &m.PnL, &m.Sharpe, &m.Drawdown); err != nil {
			return nil, fmt.Errorf("scan trial metric row: %w", err)
		}
		m.TrialIndex = int(trialIndex)
		out = append(out, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trial metric rows: %w", err)
	}

	return out, nil
}

func (s *TrialMetricStore) existingIndexes(ctx context.Context, batchID string) (map[int]struct{}, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT trial_index FROM trial_metrics WHERE batch_id = ?
	`, batchID)
	if err != nil {
		return nil, fmt.Errorf("query existing trial indexes: %w", err)
	}
	defer rows.Close()

	out := make(map[int]struct{})
	for rows.Next() {
		var idx int32
		if err := rows.Scan(&idx); err != nil {
			return nil, fmt.Errorf("scan trial index: %w", err)
		}
		out[int(idx)] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trial indexes: %w", err)
	}

	return out, nil
}
