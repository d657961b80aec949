package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"solana-autotrader/internal/domain"
	"solana-autotrader/internal/storage"
)

// StrategyStore implements storage.StrategyStore using PostgreSQL.
type StrategyStore struct {
	pool *Pool
}

// NewStrategyStore creates a new StrategyStore.
func NewStrategyStore(pool *Pool) *StrategyStore {
	return &StrategyStore{pool: pool}
}

// Compile-time interface check.
var _ storage.StrategyStore = (*StrategyStore)(nil)

// Insert adds a new strategy. Returns ErrDuplicateKey if the id exists.
func (s *StrategyStore) Insert(ctx context.Context, st *domain.Strategy) error {
	if st == nil || st.ID == "" {
		return storage.ErrInvalidInput
	}

	conditions, actions, err := marshalRules(st)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO strategies (
			id, name, combine, conditions, actions, whitelisted_addresses,
			active, cooldown_seconds, max_executions, execution_count,
			last_executed_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, now())
	`

	_, err = s.pool.Exec(ctx, query,
		st.ID, st.Name, string(st.Combine), conditions, actions,
		st.WhitelistedAddresses, st.Active, st.CooldownSeconds,
		st.MaxExecutions, st.ExecutionCount, st.LastExecutedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert strategy: %w", err)
	}
	return nil
}

// Update replaces a stored strategy. Returns ErrNotFound if missing.
func (s *StrategyStore) Update(ctx context.Context, st *domain.Strategy) error {
	if st == nil || st.ID == "" {
		return storage.ErrInvalidInput
	}

	conditions, actions, err := marshalRules(st)
	if err != nil {
		return err
	}

	query := `
		UPDATE strategies SET
			name = $2, combine = $3, conditions = $4, actions = $5,
			whitelisted_addresses = $6, active = $7, cooldown_seconds = $8,
			max_executions = $9, execution_count = $10, last_executed_at = $11,
			updated_at = now()
		WHERE id = $1
	`

	tag, err := s.pool.Exec(ctx, query,
		st.ID, st.Name, string(st.Combine), conditions, actions,
		st.WhitelistedAddresses, st.Active, st.CooldownSeconds,
		st.MaxExecutions, st.ExecutionCount, st.LastExecutedAt,
	)
	if err != nil {
		return fmt.Errorf("update strategy: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// Delete removes a strategy. Returns ErrNotFound if missing.
func (s *StrategyStore) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM strategies WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete strategy: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// GetByID retrieves a strategy by id. Returns ErrNotFound if missing.
func (s *StrategyStore) GetByID(ctx context.Context, id string) (*domain.Strategy, error) {
	query := `
		SELECT id, name, combine, conditions, actions, whitelisted_addresses,
			active, cooldown_seconds, max_executions, execution_count,
			last_executed_at
		FROM strategies WHERE id = $1
	`

	st, err := scanStrategy(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get strategy: %w", err)
	}
	return st, nil
}

// GetAll retrieves all strategies ordered by name.
func (s *StrategyStore) GetAll(ctx context.Context) ([]*domain.Strategy, error) {
	query := `
		SELECT id, name, combine, conditions, actions, whitelisted_addresses,
			active, cooldown_seconds, max_executions, execution_count,
			last_executed_at
		FROM strategies ORDER BY name, id
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query strategies: %w", err)
	}
	defer rows.Close()

	var result []*domain.Strategy
	for rows.Next() {
		st, err := scanStrategy(rows)
		if err != nil {
			return nil, fmt.Errorf("scan strategy: %w", err)
		}
		result = append(result, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate strategies: %w", err)
	}
	return result, nil
}

// rowScanner abstracts pgx.Row and pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanStrategy reads one strategies row.
func scanStrategy(row rowScanner) (*domain.Strategy, error) {
	var (
		st             domain.Strategy
		combine        string
		conditionsJSON []byte
		actionsJSON    []byte
		lastExecutedAt *time.Time
	)

	err := row.Scan(
		&st.ID, &st.Name, &combine, &conditionsJSON, &actionsJSON,
		&st.WhitelistedAddresses, &st.Active, &st.CooldownSeconds,
		&st.MaxExecutions, &st.ExecutionCount, &lastExecutedAt,
	)
	if err != nil {
		return nil, err
	}

	st.Combine = domain.CombineRule(combine)
	if err := json.Unmarshal(conditionsJSON, &st.Conditions); err != nil {
		return nil, fmt.Errorf("unmarshal conditions: %w", err)
	}
	if err := json.Unmarshal(actionsJSON, &st.Actions); err != nil {
		return nil, fmt.Errorf("unmarshal actions: %w", err)
	}
	if lastExecutedAt != nil {
		t := lastExecutedAt.UTC()
		st.LastExecutedAt = &t
	}
	return &st, nil
}

// marshalRules serializes conditions and actions to JSONB payloads.
func marshalRules(st *domain.Strategy) (conditions, actions []byte, err error) {
	conditions, err = json.Marshal(st.Conditions)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal conditions: %w", err)
	}
	actions, err = json.Marshal(st.Actions)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal actions: %w", err)
	}
	return conditions, actions, nil
}
