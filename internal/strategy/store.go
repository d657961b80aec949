// Package strategy holds the live in-memory strategy collection used by
// the scheduler, backed by a persistence port. All mutations are written
// back to persistence before they are visible to callers.
package strategy

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"solana-autotrader/internal/domain"
	"solana-autotrader/internal/storage"
)

// ErrExhausted is returned by RecordFire when the execution cap has been
// reached.
var ErrExhausted = fmt.Errorf("strategy execution cap reached")

// Store is the live strategy collection. Loaded once at scheduler start;
// counters are mutated synchronously on fire before any asynchronous work
// begins.
type Store struct {
	mu      sync.RWMutex
	data    map[string]*domain.Strategy
	persist storage.StrategyStore
}

// NewStore creates a Store backed by the given persistence port.
func NewStore(persist storage.StrategyStore) *Store {
	return &Store{
		data:    make(map[string]*domain.Strategy),
		persist: persist,
	}
}

// Load replaces the in-memory collection with the persisted strategies.
func (s *Store) Load(ctx context.Context) error {
	strategies, err := s.persist.GetAll(ctx)
	if err != nil {
		return fmt.Errorf("load strategies: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.data = make(map[string]*domain.Strategy, len(strategies))
	for _, st := range strategies {
		s.data[st.ID] = st
	}
	return nil
}

// List returns copies of all strategies ordered by name.
func (s *Store) List() []*domain.Strategy {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Strategy, 0, len(s.data))
	for _, st := range s.data {
		result = append(result, st.Clone())
	}
	sortByName(result)
	return result
}

// Get returns a copy of one strategy. Returns storage.ErrNotFound if missing.
func (s *Store) Get(id string) (*domain.Strategy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.data[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return st.Clone(), nil
}

// Add validates, persists and registers a new strategy. Assigns an id if
// the strategy has none.
func (s *Store) Add(ctx context.Context, st *domain.Strategy) error {
	if st == nil {
		return storage.ErrInvalidInput
	}
	if err := st.Validate(); err != nil {
		return fmt.Errorf("validate strategy: %w", err)
	}
	if st.ID == "" {
		st.ID = uuid.NewString()
	}

	if err := s.persist.Insert(ctx, st); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[st.ID] = st.Clone()
	return nil
}

// Update validates, persists and replaces an existing strategy.
func (s *Store) Update(ctx context.Context, st *domain.Strategy) error {
	if st == nil || st.ID == "" {
		return storage.ErrInvalidInput
	}
	if err := st.Validate(); err != nil {
		return fmt.Errorf("validate strategy: %w", err)
	}

	if err := s.persist.Update(ctx, st); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[st.ID] = st.Clone()
	return nil
}

// Remove deletes a strategy from persistence and the live collection.
func (s *Store) Remove(ctx context.Context, id string) error {
	if err := s.persist.Delete(ctx, id); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, id)
	return nil
}

// RecordFire increments the execution count and stamps the execution time.
// Called synchronously by the scheduler before actions are dispatched, so
// a slow or failing execution cannot cause a duplicate fire. Returns the
// updated copy.
func (s *Store) RecordFire(ctx context.Context, id string, now time.Time) (*domain.Strategy, error) {
	s.mu.Lock()
	st, ok := s.data[id]
	if !ok {
		s.mu.Unlock()
		return nil, storage.ErrNotFound
	}
	if st.Exhausted() {
		s.mu.Unlock()
		return nil, ErrExhausted
	}

	st.ExecutionCount++
	t := now
	st.LastExecutedAt = &t
	updated := st.Clone()
	s.mu.Unlock()

	// Write-back outside the lock; persistence failure is surfaced but
	// the in-memory counters stay advanced so the cooldown still holds.
	if err := s.persist.Update(ctx, updated); err != nil {
		return updated, fmt.Errorf("persist fire: %w", err)
	}
	return updated, nil
}

// SetActive flips the active flag. Takes effect on the next tick.
func (s *Store) SetActive(ctx context.Context, id string, active bool) error {
	s.mu.Lock()
	st, ok := s.data[id]
	if !ok {
		s.mu.Unlock()
		return storage.ErrNotFound
	}
	st.Active = active
	updated := st.Clone()
	s.mu.Unlock()

	if err := s.persist.Update(ctx, updated); err != nil {
		return fmt.Errorf("persist active flag: %w", err)
	}
	return nil
}

// Deactivate is shorthand for SetActive(id, false).
func (s *Store) Deactivate(ctx context.Context, id string) error {
	return s.SetActive(ctx, id, false)
}

func sortByName(strategies []*domain.Strategy) {
	sort.Slice(strategies, func(i, j int) bool {
		if strategies[i].Name != strategies[j].Name {
			return strategies[i].Name < strategies[j].Name
		}
		return strategies[i].ID < strategies[j].ID
	})
}
