package simulation

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"crypto-call-lab/internal/domain"
	"crypto-call-lab/internal/storage"
	"crypto-call-lab/internal/storage/memory"
)

const (
	testMint    = "mint1"
	testEntryMs = int64(1000000)
	testBarMs   = int64(60000)
)

// makeCandles builds a candle series from closes with a 10% range either
// side, wide enough that levels between consecutive closes stay reachable.
func makeCandles(closes []float64) []domain.Candle {
	result := make([]domain.Candle, len(closes))
	for i, c := range closes {
		result[i] = domain.Candle{
			TimestampMs: testEntryMs + int64(i)*testBarMs,
			Open:        c,
			High:        c * 1.1,
			Low:         c * 0.9,
			Close:       c,
			Volume:      1000,
		}
	}
	return result
}

func seedCall(t *testing.T, callStore *memory.CallStore, callID string, price float64) {
	t.Helper()
	err := callStore.Insert(context.Background(), &domain.TokenCall{
		CallID:     callID,
		Mint:       testMint,
		Symbol:     "FOO",
		Source:     domain.CallSourceTelegram,
		CalledAtMs: testEntryMs,
		CallPrice:  price,
	})
	if err != nil {
		t.Fatalf("Insert call failed: %v", err)
	}
}

func ladderPlan() *domain.ExitPlan {
	return &domain.ExitPlan{
		Ladder:   []domain.LadderLevel{{PriceMultiplier: 1.5, Fraction: 1.0}},
		Intrabar: domain.IntrabarStopFirst,
		Frictions: domain.Frictions{
			TakerFeeBps: 30,
			SlippageBps: 20,
		},
	}
}

func TestRunner_Run_LadderExit(t *testing.T) {
	ctx := context.Background()
	callStore := memory.NewCallStore()
	candleStore := memory.NewCandleStore()
	simStore := memory.NewSimulationStore()

	seedCall(t, callStore, "call1", 100)

	// Price walks up through the 150 ladder target on the third bar.
	candles := makeCandles([]float64{100, 120, 160, 140})
	if err := candleStore.InsertBulk(ctx, testMint, candles); err != nil {
		t.Fatalf("Insert candles failed: %v", err)
	}

	runner := NewRunner(RunnerOptions{
		CallStore:       callStore,
		CandleStore:     candleStore,
		SimulationStore: simStore,
	})

	record, err := runner.Run(ctx, "call1", ladderPlan(), 1000)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if record.ExitReason != domain.FillReasonLadderTarget {
		t.Errorf("ExitReason = %s, want %s", record.ExitReason, domain.FillReasonLadderTarget)
	}
	if record.ExitPriceVWAP != 150 {
		t.Errorf("ExitPriceVWAP = %f, want 150", record.ExitPriceVWAP)
	}
	if record.GrossReturnPct != 50 {
		t.Errorf("GrossReturnPct = %f, want 50", record.GrossReturnPct)
	}
	if record.OutcomeClass != domain.OutcomeClassWin {
		t.Errorf("OutcomeClass = %s, want WIN", record.OutcomeClass)
	}
	if record.FillCount != 1 {
		t.Errorf("FillCount = %d, want 1", record.FillCount)
	}

	// Verify the record was persisted
	stored, err := simStore.GetByRunID(ctx, record.RunID)
	if err != nil {
		t.Fatalf("GetByRunID failed: %v", err)
	}
	if stored.CallID != "call1" {
		t.Errorf("stored call ID mismatch")
	}
}

func TestRunner_Run_Deterministic(t *testing.T) {
	ctx := context.Background()
	candles := makeCandles([]float64{100, 120, 160, 140})

	var first *domain.SimulationRecord
	for run := 0; run < 5; run++ {
		callStore := memory.NewCallStore()
		candleStore := memory.NewCandleStore()

		seedCall(t, callStore, "call1", 100)
		if err := candleStore.InsertBulk(ctx, testMint, candles); err != nil {
			t.Fatalf("Insert candles failed: %v", err)
		}

		runner := NewRunner(RunnerOptions{
			CallStore:   callStore,
			CandleStore: candleStore,
		})

		record, err := runner.Run(ctx, "call1", ladderPlan(), 1000)
		if err != nil {
			t.Fatalf("Run %d failed: %v", run, err)
		}

		if first == nil {
			first = record
			continue
		}
		if !reflect.DeepEqual(first, record) {
			t.Fatalf("Run %d produced different record:\nfirst: %+v\n  got: %+v", run, first, record)
		}
	}
}

func TestRunner_Run_CallNotFound(t *testing.T) {
	ctx := context.Background()
	runner := NewRunner(RunnerOptions{
		CallStore:   memory.NewCallStore(),
		CandleStore: memory.NewCandleStore(),
	})

	_, err := runner.Run(ctx, "nonexistent", ladderPlan(), 1000)
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected storage.ErrNotFound, got %v", err)
	}
}

func TestRunner_Run_NoCandles(t *testing.T) {
	ctx := context.Background()
	callStore := memory.NewCallStore()
	seedCall(t, callStore, "call1", 100)

	runner := NewRunner(RunnerOptions{
		CallStore:   callStore,
		CandleStore: memory.NewCandleStore(),
	})

	_, err := runner.Run(ctx, "call1", ladderPlan(), 1000)
	if !errors.Is(err, ErrNoCandles) {
		t.Errorf("expected ErrNoCandles, got %v", err)
	}
}

func TestRunner_Run_InvalidPlan(t *testing.T) {
	ctx := context.Background()
	callStore := memory.NewCallStore()
	candleStore := memory.NewCandleStore()
	seedCall(t, callStore, "call1", 100)
	if err := candleStore.InsertBulk(ctx, testMint, makeCandles([]float64{100, 110})); err != nil {
		t.Fatalf("Insert candles failed: %v", err)
	}

	runner := NewRunner(RunnerOptions{
		CallStore:   callStore,
		CandleStore: candleStore,
	})

	bad := ladderPlan()
	bad.Intrabar = ""
	if _, err := runner.Run(ctx, "call1", bad, 1000); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for bad plan, got %v", err)
	}

	if _, err := runner.Run(ctx, "call1", nil, 1000); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for nil plan, got %v", err)
	}

	if _, err := runner.Run(ctx, "call1", ladderPlan(), 0); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for zero notional, got %v", err)
	}
}

func TestRunner_RunMatrix(t *testing.T) {
	ctx := context.Background()
	callStore := memory.NewCallStore()
	candleStore := memory.NewCandleStore()
	simStore := memory.NewSimulationStore()

	seedCall(t, callStore, "call1", 100)
	if err := candleStore.InsertBulk(ctx, testMint, makeCandles([]float64{100, 120, 160, 140})); err != nil {
		t.Fatalf("Insert candles failed: %v", err)
	}

	// Second call on a mint with no candles: skipped, not fatal.
	err := callStore.Insert(ctx, &domain.TokenCall{
		CallID:     "call2",
		Mint:       "mint-without-data",
		Source:     domain.CallSourceManual,
		CalledAtMs: testEntryMs,
		CallPrice:  1.0,
	})
	if err != nil {
		t.Fatalf("Insert call failed: %v", err)
	}

	planA := ladderPlan()
	planB := ladderPlan()
	planB.Intrabar = domain.IntrabarTPFirst

	runner := NewRunner(RunnerOptions{
		CallStore:       callStore,
		CandleStore:     candleStore,
		SimulationStore: simStore,
	})

	records, err := runner.RunMatrix(ctx, []string{"call1", "call2"}, []*domain.ExitPlan{planA, planB}, 1000)
	if err != nil {
		t.Fatalf("RunMatrix failed: %v", err)
	}

	// call1 x 2 plans; call2 skipped entirely.
	if len(records) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(records))
	}
	if records[0].PlanID == records[1].PlanID {
		t.Error("records should cover distinct plans")
	}

	all, _ := simStore.GetAll(ctx)
	if len(all) != 2 {
		t.Errorf("Expected 2 persisted records, got %d", len(all))
	}
}
