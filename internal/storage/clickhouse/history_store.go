package clickhouse

import (
	"context"
	"fmt"

	"solana-autotrader/internal/domain"
	"solana-autotrader/internal/storage"
)

// HistoryStore implements storage.ExecutionHistoryStore using ClickHouse.
type HistoryStore struct {
	conn *Conn
}

// NewHistoryStore creates a new HistoryStore.
func NewHistoryStore(conn *Conn) *HistoryStore {
	return &HistoryStore{conn: conn}
}

// Compile-time interface check.
var _ storage.ExecutionHistoryStore = (*HistoryStore)(nil)

// Insert appends one execution entry.
func (s *HistoryStore) Insert(ctx context.Context, e *domain.ExecutionEntry) error {
	if e == nil || e.StrategyID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO execution_history (
			strategy_id, executed_at, action, success, message
		) VALUES ($1, $2, $3, $4, $5)
	`

	err := s.conn.Exec(ctx, query,
		e.StrategyID, e.Time, e.Action, e.Success, e.Message,
	)
	if err != nil {
		return fmt.Errorf("insert execution entry: %w", err)
	}
	return nil
}

// InsertBulk appends multiple entries in one batch.
func (s *HistoryStore) InsertBulk(ctx context.Context, entries []*domain.ExecutionEntry) error {
	if len(entries) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO execution_history (
			strategy_id, executed_at, action, success, message
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, e := range entries {
		if err := batch.Append(e.StrategyID, e.Time, e.Action, e.Success, e.Message); err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}
