package reduce

import (
	"errors"
	"math"
	"testing"

	"crypto-call-lab/internal/domain"
)

const eps = 1e-9

func TestReduce_SingleFullFill(t *testing.T) {
	fills := []domain.Fill{
		{TimestampMs: 2000, Price: 150, Fraction: 1.0, Reason: domain.FillReasonLadderTarget},
	}
	frictions := domain.Frictions{TakerFeeBps: 30, SlippageBps: 20}

	m, err := Reduce(fills, 1000, 100, frictions)
	if err != nil {
		t.Fatalf("Reduce failed: %v", err)
	}

	if m.NoExit {
		t.Error("NoExit should be false")
	}
	if math.Abs(m.ExitPriceVWAP-150) > eps {
		t.Errorf("ExitPriceVWAP = %f, want 150", m.ExitPriceVWAP)
	}
	if math.Abs(m.GrossReturnPct-50) > eps {
		t.Errorf("GrossReturnPct = %f, want 50", m.GrossReturnPct)
	}

	// Exit notional 1500 USD, 50 bps friction => 7.50 USD.
	if math.Abs(m.FeesUSD-7.5) > eps {
		t.Errorf("FeesUSD = %f, want 7.5", m.FeesUSD)
	}
	if math.Abs(m.NetReturnPct-(50-0.75)) > eps {
		t.Errorf("NetReturnPct = %f, want 49.25", m.NetReturnPct)
	}
}

func TestReduce_VWAPAcrossPartialFills(t *testing.T) {
	fills := []domain.Fill{
		{TimestampMs: 2000, Price: 200, Fraction: 0.5, Reason: domain.FillReasonLadderTarget},
		{TimestampMs: 3000, Price: 300, Fraction: 0.25, Reason: domain.FillReasonLadderTarget},
		{TimestampMs: 4000, Price: 100, Fraction: 0.25, Reason: domain.FillReasonTrailingStop},
	}

	m, err := Reduce(fills, 1000, 100, domain.Frictions{})
	if err != nil {
		t.Fatalf("Reduce failed: %v", err)
	}

	// VWAP = (200*0.5 + 300*0.25 + 100*0.25) / 1.0 = 200
	if math.Abs(m.ExitPriceVWAP-200) > eps {
		t.Errorf("ExitPriceVWAP = %f, want 200", m.ExitPriceVWAP)
	}
	if math.Abs(m.GrossReturnPct-100) > eps {
		t.Errorf("GrossReturnPct = %f, want 100", m.GrossReturnPct)
	}
	if m.FeesUSD != 0 {
		t.Errorf("FeesUSD = %f, want 0 without frictions", m.FeesUSD)
	}
	if math.Abs(m.NetReturnPct-m.GrossReturnPct) > eps {
		t.Error("net should equal gross without frictions")
	}
}

func TestReduce_EmptyFills(t *testing.T) {
	// Scenario: no candidate ever fired; the caller reduces an empty
	// sequence. Defined degenerate result, not an error.
	m, err := Reduce(nil, 1000, 100, domain.Frictions{TakerFeeBps: 30, SlippageBps: 20})
	if err != nil {
		t.Fatalf("Reduce failed: %v", err)
	}

	if !m.NoExit {
		t.Error("NoExit flag should be set")
	}
	if m.NetReturnPct != 0 || m.GrossReturnPct != 0 || m.FeesUSD != 0 {
		t.Errorf("empty fills should reduce to zeros, got %+v", m)
	}
}

func TestReduce_ReEntryRebasesReturn(t *testing.T) {
	// Leg 1 exits fully at 150; re-entry at 135 for half size; leg 2
	// exits at 148.5 (+10% from its own basis).
	fills := []domain.Fill{
		{TimestampMs: 2000, Price: 150, Fraction: 1.0, Reason: domain.FillReasonTrailingStop},
		{TimestampMs: 3000, Price: 135, Fraction: 0.5, Reason: domain.FillReasonReEntry},
		{TimestampMs: 4000, Price: 148.5, Fraction: 0.5, Reason: domain.FillReasonTimeExit},
	}

	m, err := Reduce(fills, 1000, 100, domain.Frictions{})
	if err != nil {
		t.Fatalf("Reduce failed: %v", err)
	}

	// Exit fills only: VWAP = (150*1.0 + 148.5*0.5) / 1.5 = 149.5
	if math.Abs(m.ExitPriceVWAP-149.5) > eps {
		t.Errorf("ExitPriceVWAP = %f, want 149.5", m.ExitPriceVWAP)
	}

	// Leg 1: +50% on fraction 1.0, leg 2: +10% on fraction 0.5.
	// Weighted: (1.0*0.50 + 0.5*0.10) / 1.5 = 0.55 / 1.5
	want := 0.55 / 1.5 * 100
	if math.Abs(m.GrossReturnPct-want) > eps {
		t.Errorf("GrossReturnPct = %f, want %f", m.GrossReturnPct, want)
	}
}

func TestReduce_ReEntryFillPaysFrictions(t *testing.T) {
	fills := []domain.Fill{
		{TimestampMs: 3000, Price: 100, Fraction: 0.5, Reason: domain.FillReasonReEntry},
	}

	m, err := Reduce(fills, 1000, 100, domain.Frictions{TakerFeeBps: 100})
	if err != nil {
		t.Fatalf("Reduce failed: %v", err)
	}

	// Re-entry notional 500 USD at 100 bps => 5 USD, and nothing closed.
	if math.Abs(m.FeesUSD-5) > eps {
		t.Errorf("FeesUSD = %f, want 5", m.FeesUSD)
	}
	if !m.NoExit {
		t.Error("sequence without exit fills should set NoExit")
	}
}

func TestReduce_Idempotent(t *testing.T) {
	fills := []domain.Fill{
		{TimestampMs: 2000, Price: 180, Fraction: 0.5, Reason: domain.FillReasonLadderTarget},
		{TimestampMs: 5000, Price: 90, Fraction: 0.5, Reason: domain.FillReasonHardStop},
	}
	frictions := domain.Frictions{TakerFeeBps: 25, SlippageBps: 25}

	first, err := Reduce(fills, 2500, 100, frictions)
	if err != nil {
		t.Fatalf("Reduce failed: %v", err)
	}

	for i := 0; i < 5; i++ {
		again, err := Reduce(fills, 2500, 100, frictions)
		if err != nil {
			t.Fatalf("Reduce failed on run %d: %v", i, err)
		}
		if *again != *first {
			t.Fatalf("Reduce not idempotent: %+v != %+v", again, first)
		}
	}
}

func TestReduce_InvalidInputs(t *testing.T) {
	fills := []domain.Fill{{TimestampMs: 1, Price: 1, Fraction: 1}}

	if _, err := Reduce(fills, 0, 100, domain.Frictions{}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("zero notional: err = %v, want ErrInvalidInput", err)
	}
	if _, err := Reduce(fills, 1000, 0, domain.Frictions{}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("zero entry price: err = %v, want ErrInvalidInput", err)
	}
}

func TestClassify(t *testing.T) {
	if Classify(0.01) != domain.OutcomeClassWin {
		t.Error("positive net return should be WIN")
	}
	if Classify(0) != domain.OutcomeClassLoss {
		t.Error("zero net return should be LOSS")
	}
	if Classify(-3) != domain.OutcomeClassLoss {
		t.Error("negative net return should be LOSS")
	}
}
