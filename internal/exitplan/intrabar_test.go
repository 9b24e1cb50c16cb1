package exitplan

import (
	"testing"

	"crypto-call-lab/internal/domain"
)

// ambiguousBarInput builds the canonical ambiguous case: a single bar whose
// range spans both the 2x ladder target and the hard stop.
func ambiguousBarInput(policy domain.IntrabarPolicy) *Input {
	return &Input{
		Candles: []domain.Candle{
			bar(0, 100, 100, 100, 100),
			bar(1, 100, 210, 85, 90), // spans both 200 and 90
		},
		EntryTimestampMs: barTs(0),
		EntryPrice:       100,
		Plan: &domain.ExitPlan{
			Ladder: []domain.LadderLevel{{PriceMultiplier: 2.0, Fraction: 0.5}},
			TrailingStop: &domain.TrailingStopConfig{
				TrailDistanceBps:     1000,
				ActivationMultiplier: 10.0, // trail never arms; hard stop only
				HardStopEnabled:      true,
				HardStopPct:          0.10,
			},
			Intrabar: policy,
		},
	}
}

func TestSimulate_IntrabarStopFirst(t *testing.T) {
	res, err := Simulate(ambiguousBarInput(domain.IntrabarStopFirst))
	if err != nil {
		t.Fatalf("Simulate failed: %v", err)
	}

	// Stop applies before the ladder: the whole position closes at 90 and
	// the ladder never fills.
	if len(res.Fills) != 1 {
		t.Fatalf("fill count = %d, want 1", len(res.Fills))
	}
	fill := res.Fills[0]
	if fill.Reason != domain.FillReasonHardStop || fill.Price != 90 || fill.Fraction != 1.0 {
		t.Errorf("fill = %+v, want full HARD_STOP at 90", fill)
	}
	if res.ExitReason != domain.FillReasonHardStop {
		t.Errorf("ExitReason = %s, want HARD_STOP", res.ExitReason)
	}
}

func TestSimulate_IntrabarTPFirst(t *testing.T) {
	res, err := Simulate(ambiguousBarInput(domain.IntrabarTPFirst))
	if err != nil {
		t.Fatalf("Simulate failed: %v", err)
	}

	// Ladder takes its half at 200 first, the stop closes the remainder.
	if len(res.Fills) != 2 {
		t.Fatalf("fill count = %d, want 2", len(res.Fills))
	}
	if res.Fills[0].Reason != domain.FillReasonLadderTarget || res.Fills[0].Price != 200 || res.Fills[0].Fraction != 0.5 {
		t.Errorf("first fill = %+v, want half LADDER_TARGET at 200", res.Fills[0])
	}
	if res.Fills[1].Reason != domain.FillReasonHardStop || res.Fills[1].Price != 90 || res.Fills[1].Fraction != 0.5 {
		t.Errorf("second fill = %+v, want remaining half HARD_STOP at 90", res.Fills[1])
	}
	if res.ExitReason != domain.FillReasonHardStop {
		t.Errorf("ExitReason = %s, want the terminating fill's reason HARD_STOP", res.ExitReason)
	}
}

func TestSimulate_IntrabarHighThenLow(t *testing.T) {
	// High-anchored rules first: for a long position this resolves like
	// TP_FIRST, but by bar side rather than rule category.
	res, err := Simulate(ambiguousBarInput(domain.IntrabarHighThenLow))
	if err != nil {
		t.Fatalf("Simulate failed: %v", err)
	}

	if len(res.Fills) != 2 {
		t.Fatalf("fill count = %d, want 2", len(res.Fills))
	}
	if res.Fills[0].Reason != domain.FillReasonLadderTarget {
		t.Errorf("first fill = %+v, want the high-anchored ladder", res.Fills[0])
	}
	if res.Fills[1].Reason != domain.FillReasonHardStop {
		t.Errorf("second fill = %+v, want the low-anchored stop", res.Fills[1])
	}
}

func TestSimulate_IntrabarLowThenHigh(t *testing.T) {
	res, err := Simulate(ambiguousBarInput(domain.IntrabarLowThenHigh))
	if err != nil {
		t.Fatalf("Simulate failed: %v", err)
	}

	// Low-anchored stop resolves first and exhausts the position.
	if len(res.Fills) != 1 {
		t.Fatalf("fill count = %d, want 1", len(res.Fills))
	}
	if res.Fills[0].Reason != domain.FillReasonHardStop || res.Fills[0].Fraction != 1.0 {
		t.Errorf("fill = %+v, want full HARD_STOP", res.Fills[0])
	}
}

func TestOrderCandidates_CloseAnchoredLast(t *testing.T) {
	cands := []candidate{
		{kind: kindTime, anchor: anchorClose, reason: domain.FillReasonTimeExit},
		{kind: kindIndicator, anchor: anchorClose, reason: domain.FillReasonIndicatorExit},
		{kind: kindStop, anchor: anchorLow, reason: domain.FillReasonTrailingStop},
		{kind: kindLadder, anchor: anchorHigh, ladderIndex: 1, reason: domain.FillReasonLadderTarget},
		{kind: kindLadder, anchor: anchorHigh, ladderIndex: 0, reason: domain.FillReasonLadderTarget},
	}

	orderCandidates(cands, domain.IntrabarTPFirst)

	wantKinds := []candidateKind{kindLadder, kindLadder, kindStop, kindIndicator, kindTime}
	for i, want := range wantKinds {
		if cands[i].kind != want {
			t.Fatalf("position %d: kind = %d, want %d", i, cands[i].kind, want)
		}
	}

	// Ladder rungs stay in ascending level order.
	if cands[0].ladderIndex != 0 || cands[1].ladderIndex != 1 {
		t.Errorf("ladder order = %d, %d, want 0, 1", cands[0].ladderIndex, cands[1].ladderIndex)
	}
}

func TestOrderCandidates_PolicyMatrix(t *testing.T) {
	base := func() []candidate {
		return []candidate{
			{kind: kindLadder, anchor: anchorHigh, ladderIndex: 0},
			{kind: kindStop, anchor: anchorLow},
		}
	}

	tests := []struct {
		policy    domain.IntrabarPolicy
		firstKind candidateKind
	}{
		{domain.IntrabarStopFirst, kindStop},
		{domain.IntrabarTPFirst, kindLadder},
		{domain.IntrabarHighThenLow, kindLadder},
		{domain.IntrabarLowThenHigh, kindStop},
	}

	for _, tt := range tests {
		t.Run(string(tt.policy), func(t *testing.T) {
			cands := base()
			orderCandidates(cands, tt.policy)
			if cands[0].kind != tt.firstKind {
				t.Errorf("first candidate kind = %d, want %d", cands[0].kind, tt.firstKind)
			}
		})
	}
}
