package memory

import (
	"context"
	"sync"

	"solana-autotrader/internal/domain"
	"solana-autotrader/internal/storage"
)

// HistoryStore is an in-memory implementation of storage.ExecutionHistoryStore.
type HistoryStore struct {
	mu      sync.RWMutex
	entries []domain.ExecutionEntry
}

// NewHistoryStore creates a new in-memory execution history store.
func NewHistoryStore() *HistoryStore {
	return &HistoryStore{}
}

// Compile-time interface check.
var _ storage.ExecutionHistoryStore = (*HistoryStore)(nil)

// Insert appends an execution entry.
func (s *HistoryStore) Insert(_ context.Context, e *domain.ExecutionEntry) error {
	if e == nil || e.StrategyID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = append(s.entries, *e)
	return nil
}

// Entries returns a copy of all archived entries, oldest first.
// Test helper; the automation core never reads the archive.
func (s *HistoryStore) Entries() []domain.ExecutionEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]domain.ExecutionEntry(nil), s.entries...)
}
