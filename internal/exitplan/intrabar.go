package exitplan

import (
	"sort"

	"crypto-call-lab/internal/domain"
)

// anchorSide classifies which part of the bar a candidate is anchored to.
// Ladder targets above entry are high-anchored, stops are low-anchored,
// indicator and time exits evaluate at the close.
type anchorSide int

const (
	anchorHigh anchorSide = iota
	anchorLow
	anchorClose
)

// candidateKind classifies a candidate by rule category.
type candidateKind int

const (
	kindLadder candidateKind = iota
	kindStop
	kindIndicator
	kindTime
)

// candidate is one exit condition that qualifies on the current bar,
// before intrabar tie-break ordering.
type candidate struct {
	kind        candidateKind
	anchor      anchorSide
	price       float64 // execution price (exact trigger price, or close)
	fraction    float64 // nominal fraction to close; capped at remaining later
	reason      string
	ladderIndex int // valid for kindLadder only
}

// orderCandidates resolves intrabar ambiguity: only OHLC is known, not the
// true intrabar path, so when several triggers share a bar the configured
// policy decides which is applied first. STOP_FIRST / TP_FIRST order by rule
// category; HIGH_THEN_LOW / LOW_THEN_HIGH order by bar side, independent of
// category. Close-anchored candidates (indicator, time) resolve after
// price-anchored ones under every policy, since the close is the last price
// of the bar. Ladder candidates keep ascending level order throughout.
func orderCandidates(cands []candidate, policy domain.IntrabarPolicy) {
	rank := func(c candidate) int {
		switch policy {
		case domain.IntrabarStopFirst:
			switch c.kind {
			case kindStop:
				return 0
			case kindLadder:
				return 1
			}
		case domain.IntrabarTPFirst:
			switch c.kind {
			case kindLadder:
				return 0
			case kindStop:
				return 1
			}
		case domain.IntrabarHighThenLow:
			switch c.anchor {
			case anchorHigh:
				return 0
			case anchorLow:
				return 1
			}
		case domain.IntrabarLowThenHigh:
			switch c.anchor {
			case anchorLow:
				return 0
			case anchorHigh:
				return 1
			}
		}
		// Close-anchored: indicator before time, after price-anchored rules.
		if c.kind == kindIndicator {
			return 2
		}
		return 3
	}

	sort.SliceStable(cands, func(i, j int) bool {
		ri, rj := rank(cands[i]), rank(cands[j])
		if ri != rj {
			return ri < rj
		}
		// Within a rank, ladder levels fill in ascending trigger order.
		if cands[i].kind == kindLadder && cands[j].kind == kindLadder {
			return cands[i].ladderIndex < cands[j].ladderIndex
		}
		return false
	})
}
