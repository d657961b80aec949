package storage

import (
	"context"

	"solana-autotrader/internal/domain"
)

// StrategyStore is the persistence port for strategies. Strategies are
// loaded once at scheduler start and written back whenever mutated.
type StrategyStore interface {
	// Insert adds a new strategy. Returns ErrDuplicateKey if the id exists.
	Insert(ctx context.Context, s *domain.Strategy) error

	// Update replaces a stored strategy. Returns ErrNotFound if missing.
	Update(ctx context.Context, s *domain.Strategy) error

	// Delete removes a strategy. Returns ErrNotFound if missing.
	Delete(ctx context.Context, id string) error

	// GetByID retrieves a strategy by id. Returns ErrNotFound if missing.
	GetByID(ctx context.Context, id string) (*domain.Strategy, error)

	// GetAll retrieves all strategies ordered by name.
	GetAll(ctx context.Context) ([]*domain.Strategy, error)
}

// ExecutionHistoryStore archives execution log entries. Append-only and
// write-only from the automation core; nothing reads it back to make
// decisions.
type ExecutionHistoryStore interface {
	Insert(ctx context.Context, e *domain.ExecutionEntry) error
}
