// Package scoring computes session integrity scores from event records.
//
// Scoring is a pure fold over a session's events: no hidden state, so a
// score can always be replayed from the event log alone. This is what
// makes reports auditable and lets the aggregator recompute rather than
// trust a cached value.
package scoring

import "github.com/okian/vigil/internal/domain/model"

// Scoring bounds.
const (
	// MaxScore is the starting integrity score of every session.
	MaxScore = 100
	// MinScore is the floor; deductions never push a score below it.
	MinScore = 0
)

// Per-event deductions by kind. Kinds absent from the table deduct
// nothing.
const (
	focusLostDeduction   = 2
	suspiciousDeduction  = 5
	faceMissingDeduction = 15
)

// Deduction returns the integrity penalty applied once per event of
// the given kind.
func Deduction(kind model.Kind) int {
	switch kind {
	case model.KindFocusLost:
		return focusLostDeduction
	case model.KindPhoneDetected, model.KindBookDetected,
		model.KindDeviceDetected, model.KindMultipleFaces:
		return suspiciousDeduction
	case model.KindFaceMissing:
		return faceMissingDeduction
	default:
		return 0
	}
}

// Score folds the deduction table over events and clamps the result to
// [MinScore, MaxScore]. Order-independent: only the multiset of kinds
// matters.
func Score(events []model.EventRecord) int {
	total := 0
	for i := range events {
		total += Deduction(events[i].Kind)
	}
	score := MaxScore - total
	if score < MinScore {
		return MinScore
	}
	return score
}

// TotalDeductions sums the penalties for events without clamping.
func TotalDeductions(events []model.EventRecord) int {
	total := 0
	for i := range events {
		total += Deduction(events[i].Kind)
	}
	return total
}
