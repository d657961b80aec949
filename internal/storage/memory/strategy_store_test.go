package memory

import (
	"context"
	"errors"
	"testing"

	"solana-autotrader/internal/domain"
	"solana-autotrader/internal/storage"
)

func testStrategy(id, name string) *domain.Strategy {
	return &domain.Strategy{
		ID:      id,
		Name:    name,
		Combine: domain.CombineAll,
		Conditions: []domain.Condition{
			{Kind: domain.ConditionMarketCap, Operator: domain.OpGTE, Threshold: 10000},
		},
		Actions: []domain.Action{
			{Direction: domain.DirectionBuy, Amount: domain.AmountFixed, Value: 0.5},
		},
		Active:          true,
		CooldownSeconds: 60,
	}
}

func TestStrategyStore_InsertAndGet(t *testing.T) {
	store := NewStrategyStore()
	ctx := context.Background()

	st := testStrategy("s1", "first")
	if err := store.Insert(ctx, st); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	got, err := store.GetByID(ctx, "s1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Name != "first" {
		t.Errorf("Name mismatch: got %s, want first", got.Name)
	}
	if len(got.Conditions) != 1 || len(got.Actions) != 1 {
		t.Errorf("conditions/actions not preserved: %+v", got)
	}
}

func TestStrategyStore_DuplicateKey(t *testing.T) {
	store := NewStrategyStore()
	ctx := context.Background()

	if err := store.Insert(ctx, testStrategy("dup", "a")); err != nil {
		t.Fatalf("first Insert failed: %v", err)
	}
	err := store.Insert(ctx, testStrategy("dup", "b"))
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("expected ErrDuplicateKey, got %v", err)
	}
}

func TestStrategyStore_GetMissing(t *testing.T) {
	store := NewStrategyStore()

	_, err := store.GetByID(context.Background(), "nope")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStrategyStore_Update(t *testing.T) {
	store := NewStrategyStore()
	ctx := context.Background()

	st := testStrategy("s1", "before")
	if err := store.Insert(ctx, st); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	st.Name = "after"
	st.ExecutionCount = 7
	if err := store.Update(ctx, st); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	got, _ := store.GetByID(ctx, "s1")
	if got.Name != "after" || got.ExecutionCount != 7 {
		t.Errorf("update not applied: %+v", got)
	}

	missing := testStrategy("ghost", "x")
	if err := store.Update(ctx, missing); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound for missing strategy, got %v", err)
	}
}

func TestStrategyStore_Delete(t *testing.T) {
	store := NewStrategyStore()
	ctx := context.Background()

	store.Insert(ctx, testStrategy("s1", "doomed"))
	if err := store.Delete(ctx, "s1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := store.GetByID(ctx, "s1"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	if err := store.Delete(ctx, "s1"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestStrategyStore_GetAllOrdered(t *testing.T) {
	store := NewStrategyStore()
	ctx := context.Background()

	for _, name := range []string{"zeta", "alpha", "kappa"} {
		if err := store.Insert(ctx, testStrategy("id-"+name, name)); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	all, err := store.GetAll(ctx)
	if err != nil {
		t.Fatalf("GetAll failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 strategies, got %d", len(all))
	}
	if all[0].Name != "alpha" || all[1].Name != "kappa" || all[2].Name != "zeta" {
		t.Errorf("unexpected order: %s, %s, %s", all[0].Name, all[1].Name, all[2].Name)
	}
}

func TestStrategyStore_CopyOnReadAndWrite(t *testing.T) {
	store := NewStrategyStore()
	ctx := context.Background()

	st := testStrategy("s1", "isolated")
	store.Insert(ctx, st)

	// Mutating the inserted value must not leak into the store.
	st.Conditions[0].Threshold = 999999

	got, _ := store.GetByID(ctx, "s1")
	if got.Conditions[0].Threshold != 10000 {
		t.Errorf("insert did not copy: threshold = %v", got.Conditions[0].Threshold)
	}

	// Mutating a retrieved value must not affect later reads.
	got.Actions[0].Value = 42

	again, _ := store.GetByID(ctx, "s1")
	if again.Actions[0].Value != 0.5 {
		t.Errorf("get did not copy: value = %v", again.Actions[0].Value)
	}
}

func TestStrategyStore_InvalidInput(t *testing.T) {
	store := NewStrategyStore()
	ctx := context.Background()

	if err := store.Insert(ctx, nil); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for nil strategy, got %v", err)
	}
	if err := store.Insert(ctx, &domain.Strategy{}); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for empty id, got %v", err)
	}
}
