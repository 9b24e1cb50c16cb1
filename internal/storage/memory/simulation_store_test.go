package memory

import (
	"context"
	"errors"
	"testing"

	"crypto-call-lab/internal/domain"
	"crypto-call-lab/internal/storage"
)

func TestSimulationStore_InsertAndGet(t *testing.T) {
	store := NewSimulationStore()
	ctx := context.Background()

	record := &domain.SimulationRecord{
		RunID:            "run1",
		CallID:           "call1",
		PlanID:           "PLAN_L2x0.5_STOP_FIRST",
		EntryTimestampMs: 1000,
		NetReturnPct:     42.0,
		OutcomeClass:     domain.OutcomeClassWin,
	}

	err := store.Insert(ctx, record)
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	got, err := store.GetByRunID(ctx, "run1")
	if err != nil {
		t.Fatalf("GetByRunID failed: %v", err)
	}

	if got.NetReturnPct != 42.0 {
		t.Errorf("NetReturnPct mismatch: got %f, want %f", got.NetReturnPct, 42.0)
	}
}

func TestSimulationStore_DuplicateKey(t *testing.T) {
	store := NewSimulationStore()
	ctx := context.Background()

	record := &domain.SimulationRecord{RunID: "run1", CallID: "call1", PlanID: "plan1"}

	if err := store.Insert(ctx, record); err != nil {
		t.Fatalf("First insert failed: %v", err)
	}

	err := store.Insert(ctx, record)
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}
}

func TestSimulationStore_NotFound(t *testing.T) {
	store := NewSimulationStore()
	ctx := context.Background()

	_, err := store.GetByRunID(ctx, "nonexistent")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestSimulationStore_InsertBulkPartialDuplicate(t *testing.T) {
	store := NewSimulationStore()
	ctx := context.Background()

	first := &domain.SimulationRecord{RunID: "r1", CallID: "c1", PlanID: "p1"}
	if err := store.Insert(ctx, first); err != nil {
		t.Fatalf("First insert failed: %v", err)
	}

	records := []*domain.SimulationRecord{
		{RunID: "r2", CallID: "c1", PlanID: "p1"},
		{RunID: "r1", CallID: "c1", PlanID: "p1"}, // duplicate
	}

	err := store.InsertBulk(ctx, records)
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}

	// Verify all-or-nothing
	all, _ := store.GetByCallID(ctx, "c1")
	if len(all) != 1 {
		t.Errorf("Expected 1 record (no partial insert), got %d", len(all))
	}
}

func TestSimulationStore_GetByPlanID(t *testing.T) {
	store := NewSimulationStore()
	ctx := context.Background()

	records := []*domain.SimulationRecord{
		{RunID: "r1", CallID: "c1", PlanID: "p1", EntryTimestampMs: 2000},
		{RunID: "r2", CallID: "c2", PlanID: "p1", EntryTimestampMs: 1000},
		{RunID: "r3", CallID: "c3", PlanID: "p2", EntryTimestampMs: 3000},
	}
	if err := store.InsertBulk(ctx, records); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	result, err := store.GetByPlanID(ctx, "p1")
	if err != nil {
		t.Fatalf("GetByPlanID failed: %v", err)
	}

	if len(result) != 2 {
		t.Fatalf("Expected 2 records for p1, got %d", len(result))
	}
	if result[0].EntryTimestampMs > result[1].EntryTimestampMs {
		t.Error("Results not ordered by entry time")
	}
}

func TestSimulationStore_GetAll(t *testing.T) {
	store := NewSimulationStore()
	ctx := context.Background()

	records := []*domain.SimulationRecord{
		{RunID: "r1", CallID: "c1", PlanID: "p1", EntryTimestampMs: 1000},
		{RunID: "r2", CallID: "c2", PlanID: "p2", EntryTimestampMs: 1000},
		{RunID: "r3", CallID: "c3", PlanID: "p1", EntryTimestampMs: 2000},
	}
	if err := store.InsertBulk(ctx, records); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	all, err := store.GetAll(ctx)
	if err != nil {
		t.Fatalf("GetAll failed: %v", err)
	}

	if len(all) != 3 {
		t.Fatalf("Expected 3 records, got %d", len(all))
	}
	// Equal entry times break ties by run_id.
	if all[0].RunID != "r1" || all[1].RunID != "r2" {
		t.Error("Tie-break ordering by run_id violated")
	}
}

func TestSimulationStore_InvalidInput(t *testing.T) {
	store := NewSimulationStore()
	ctx := context.Background()

	err := store.Insert(ctx, nil)
	if !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for nil, got %v", err)
	}

	err = store.Insert(ctx, &domain.SimulationRecord{RunID: ""})
	if !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for empty ID, got %v", err)
	}
}
