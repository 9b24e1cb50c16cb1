// Package reentry tracks whether a simulation is waiting to re-establish a
// position after a full exit, and when the re-entry trigger is met. The
// wait/trigger mechanism is an explicit state machine passed through the
// simulation loop rather than a pair of booleans threaded through call sites.
package reentry

import (
	"crypto-call-lab/internal/domain"
)

// Phase is the machine's current state.
type Phase string

// Phases. Triggered and Cancelled are transitions, not resting states:
// both return the machine to Idle.
const (
	PhaseIdle    Phase = "IDLE"
	PhaseWaiting Phase = "WAITING"
)

// Machine is the re-entry state machine for one simulation run.
// Count is monotonically non-decreasing and bounded by the configured
// maximum. A single bar can complete at most one trigger.
type Machine struct {
	phase          Phase
	retracePct     float64
	maxCount       int
	count          int
	triggerPrice   float64
	referencePrice float64
}

// NewMachine creates an idle machine with count zero.
func NewMachine(retracePct float64, maxCount int) *Machine {
	return &Machine{
		phase:      PhaseIdle,
		retracePct: retracePct,
		maxCount:   maxCount,
	}
}

// Arm transitions Idle -> Waiting after a full exit. The reference price is
// the exit price of the position just closed; the trigger is a long-side
// retrace below it. Returns false when the machine is already waiting or the
// re-entry budget is spent.
func (m *Machine) Arm(referencePrice float64) bool {
	if m.phase != PhaseIdle || m.count >= m.maxCount {
		return false
	}

	m.phase = PhaseWaiting
	m.referencePrice = referencePrice
	m.triggerPrice = referencePrice * (1 - m.retracePct)
	return true
}

// Observe checks one bar while waiting. If the bar's low touches the trigger
// price the machine transitions Waiting -> Triggered -> Idle, increments the
// count and returns the synthetic entry price. Otherwise it stays waiting.
func (m *Machine) Observe(bar domain.Candle) (float64, bool) {
	if m.phase != PhaseWaiting {
		return 0, false
	}

	if bar.Low <= m.triggerPrice {
		m.phase = PhaseIdle
		m.count++
		return m.triggerPrice, true
	}

	return 0, false
}

// Cancel transitions Waiting -> Cancelled -> Idle. Used when the candle
// series is exhausted before the trigger fires; no new position is opened.
func (m *Machine) Cancel() {
	m.phase = PhaseIdle
}

// Waiting reports whether a re-entry is pending.
func (m *Machine) Waiting() bool {
	return m.phase == PhaseWaiting
}

// Count returns how many re-entries have completed.
func (m *Machine) Count() int {
	return m.count
}

// TriggerPrice returns the pending trigger price. Meaningful only while
// waiting.
func (m *Machine) TriggerPrice() float64 {
	return m.triggerPrice
}
