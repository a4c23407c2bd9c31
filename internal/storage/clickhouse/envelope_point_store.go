package clickhouse

import (
	"context"
	"fmt"
	"time"

	"montecarlo-lab/internal/domain"
	"montecarlo-lab/internal/observability"
	"montecarlo-lab/internal/storage"
)

// EnvelopePointStore implements storage.EnvelopePointStore using ClickHouse.
type EnvelopePointStore struct {
	conn *Conn
}

var _ storage.EnvelopePointStore = (*EnvelopePointStore)(nil)

// NewEnvelopePointStore creates a new ClickHouse-backed envelope point store.
func NewEnvelopePointStore(conn *Conn) *EnvelopePointStore {
	return &EnvelopePointStore{conn: conn}
}

// InsertBulk inserts equity envelope rows using a prepared batch. A batch that
// already has envelope points stored causes storage.ErrDuplicateKey, as do
// repeated (batch_id, step_index) pairs within the input.
func (s *EnvelopePointStore) InsertBulk(ctx context.Context, rows []*domain.EnvelopePoint) error {
	if len(rows) == 0 {
		return nil
	}

	type key struct {
		batchID   string
		stepIndex int
	}

	seen := make(map[key]struct{}, len(rows))
	batches := make(map[string]struct{})
	for _, row := range rows {
		if row.BatchID == "" {
			return fmt.Errorf("%w: batch_id is required", storage.ErrInvalidInput)
		}
		k := key{row.BatchID, row.StepIndex}
		if _, dup := seen[k]; dup {
			return fmt.Errorf("%w: envelope point %s/%d repeated in input",
				storage.ErrDuplicateKey, row.BatchID, row.StepIndex)
		}
		seen[k] = struct{}{}
		batches[row.BatchID] = struct{}{}
	}

	for batchID := range batches {
		count, err := s.countForBatch(ctx, batchID)
		if err != nil {
			return err
		}
		if count > 0 {
			return fmt.Errorf("%w: envelope for batch %s already stored",
				storage.ErrDuplicateKey, batchID)
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO envelope_points (batch_id, step_index, ts, p5, p25, median, p75, p95)
	`)
	if err != nil {
		return fmt.Errorf("prepare envelope points batch: %w", err)
	}

	for _, row := range rows {
		if err := batch.Append(
			row.BatchID,
			int32(row.StepIndex),
			row.Timestamp,
			row.P5,
			row.P25,
			row.Median,
			row.P75,
			row.P95,
		); err != nil {
			return fmt.Errorf("append envelope point row: %w", err)
		}
	}

	start := time.Now()
	err = batch.Send()
	observability.RecordDBQuery("clickhouse", "insert_envelope_points", time.Since(start).Seconds(), err)
	if err != nil {
		return fmt.Errorf("send envelope points batch: %w", err)
	}

	return nil
}

// GetByBatchID returns all envelope points for a batch ordered by step index.
func (s *EnvelopePointStore) GetByBatchID(ctx context.Context, batchID string) ([]*domain.EnvelopePoint, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT batch_id, step_index, ts, p5, p25, median, p75, p95
		FROM envelope_points
		WHERE batch_id = ?
		ORDER BY step_index
	`, batchID)
	if err != nil {
		return nil, fmt.Errorf("query envelope points: %w", err)
	}
	defer rows.Close()

	var out []*domain.EnvelopePoint
	for rows.Next() {
		var (
			p         domain.EnvelopePoint
			stepIndex int32
		)
		if err := rows.Scan(&p.BatchID, &stepIndex, &p.Timestamp, &p.P5, &p.P25, &p.Median, &p.P75, &p.P95); err != nil {
			return nil, fmt.Errorf("scan envelope point row: %w", err)
		}
		p.StepIndex = int(stepIndex)
		out = append(out, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate envelope point rows: %w", err)
	}

	return out, nil
}

func (s *EnvelopePointStore) countForBatch(ctx context.Context, batchID string) (uint64, error) {
	row := s.conn.QueryRow(ctx, `
		SELECT count() FROM envelope_points WHERE batch_id = ?
	`, batchID)

	var count uint64
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("count envelope points: %w", err)
	}

	return count, nil
}
