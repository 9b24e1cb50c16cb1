package memory

import (
	"context"
	"errors"
	"testing"

	"crypto-call-lab/internal/domain"
	"crypto-call-lab/internal/storage"
)

func TestCallStore_InsertAndGet(t *testing.T) {
	store := NewCallStore()
	ctx := context.Background()

	call := &domain.TokenCall{
		CallID:     "call1",
		Mint:       "mint1",
		Symbol:     "FOO",
		Source:     domain.CallSourceTelegram,
		CalledAtMs: 1000,
		CallPrice:  0.0042,
	}

	err := store.Insert(ctx, call)
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	got, err := store.GetByID(ctx, "call1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}

	if got.CallPrice != 0.0042 {
		t.Errorf("CallPrice mismatch: got %f, want %f", got.CallPrice, 0.0042)
	}
}

func TestCallStore_DuplicateKey(t *testing.T) {
	store := NewCallStore()
	ctx := context.Background()

	call := &domain.TokenCall{CallID: "call1", Mint: "mint1", Source: domain.CallSourceManual}

	if err := store.Insert(ctx, call); err != nil {
		t.Fatalf("First insert failed: %v", err)
	}

	err := store.Insert(ctx, call)
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}
}

func TestCallStore_NotFound(t *testing.T) {
	store := NewCallStore()
	ctx := context.Background()

	_, err := store.GetByID(ctx, "nonexistent")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestCallStore_GetByMint(t *testing.T) {
	store := NewCallStore()
	ctx := context.Background()

	calls := []*domain.TokenCall{
		{CallID: "c1", Mint: "mint1", Source: domain.CallSourceTelegram, CalledAtMs: 2000},
		{CallID: "c2", Mint: "mint1", Source: domain.CallSourceManual, CalledAtMs: 1000},
		{CallID: "c3", Mint: "mint2", Source: domain.CallSourceTelegram, CalledAtMs: 3000},
	}
	for _, c := range calls {
		if err := store.Insert(ctx, c); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	result, err := store.GetByMint(ctx, "mint1")
	if err != nil {
		t.Fatalf("GetByMint failed: %v", err)
	}

	if len(result) != 2 {
		t.Fatalf("Expected 2 calls for mint1, got %d", len(result))
	}
	if result[0].CalledAtMs > result[1].CalledAtMs {
		t.Error("Results not ordered by called_at")
	}
}

func TestCallStore_GetBySource(t *testing.T) {
	store := NewCallStore()
	ctx := context.Background()

	calls := []*domain.TokenCall{
		{CallID: "c1", Mint: "mint1", Source: domain.CallSourceTelegram, CalledAtMs: 1000},
		{CallID: "c2", Mint: "mint2", Source: domain.CallSourceManual, CalledAtMs: 2000},
		{CallID: "c3", Mint: "mint3", Source: domain.CallSourceTelegram, CalledAtMs: 3000},
	}
	for _, c := range calls {
		if err := store.Insert(ctx, c); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	result, err := store.GetBySource(ctx, domain.CallSourceTelegram)
	if err != nil {
		t.Fatalf("GetBySource failed: %v", err)
	}

	if len(result) != 2 {
		t.Errorf("Expected 2 telegram calls, got %d", len(result))
	}
}

func TestCallStore_GetByTimeRange(t *testing.T) {
	store := NewCallStore()
	ctx := context.Background()

	for i, ts := range []int64{1000, 2000, 3000, 4000} {
		call := &domain.TokenCall{CallID: string(rune('a' + i)), Mint: "mint1", CalledAtMs: ts}
		if err := store.Insert(ctx, call); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	result, err := store.GetByTimeRange(ctx, 2000, 3000)
	if err != nil {
		t.Fatalf("GetByTimeRange failed: %v", err)
	}

	// Inclusive on both ends.
	if len(result) != 2 {
		t.Errorf("Expected 2 calls in [2000,3000], got %d", len(result))
	}
}

func TestCallStore_InvalidInput(t *testing.T) {
	store := NewCallStore()
	ctx := context.Background()

	err := store.Insert(ctx, nil)
	if !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for nil, got %v", err)
	}

	err = store.Insert(ctx, &domain.TokenCall{CallID: ""})
	if !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for empty ID, got %v", err)
	}
}
