package payroll

import "github.com/warp/payroll-engine/generic"

// =============================================================================
// CALENDAR RANGE SELECTOR - Two-click inclusive range
// =============================================================================
//
//   Empty --click d--> SingleSelected{start=d}
//   SingleSelected{s} --click d--> RangeSelected{min(s,d), max(s,d)}
//   RangeSelected --click d--> SingleSelected{start=d}
//   any --Clear--> Empty
// =============================================================================

type SelectionState string

const (
	SelectionEmpty  SelectionState = "empty"
	SelectionSingle SelectionState = "single"
	SelectionRange  SelectionState = "range"
)

// Selection is an immutable selector value. A zero Date means "unset".
type Selection struct {
	Start generic.Date
	End   generic.Date
}

// State reports where the selector is in its cycle.
func (s Selection) State() SelectionState {
	switch {
	case s.Start.IsZero():
		return SelectionEmpty
	case s.End.IsZero():
		return SelectionSingle
	default:
		return SelectionRange
	}
}

// Select applies a click on d and returns the next selection.
func (s Selection) Select(d generic.Date) Selection {
	if s.State() != SelectionSingle {
		return Selection{Start: d}
	}
	if d.Before(s.Start) {
		return Selection{Start: d, End: s.Start}
	}
	return Selection{Start: s.Start, End: d}
}

// Clear returns the empty selection.
func (s Selection) Clear() Selection {
	return Selection{}
}

// Contains is start <= d <= (end ?? start). Always false when empty.
func (s Selection) Contains(d generic.Date) bool {
	p, ok := s.Period()
	return ok && p.Contains(d)
}

// Period resolves the selection to inclusive bounds; false when empty.
func (s Selection) Period() (generic.Period, bool) {
	switch s.State() {
	case SelectionEmpty:
		return generic.Period{}, false
	case SelectionSingle:
		return generic.SingleDay(s.Start), true
	default:
		return generic.Period{Start: s.Start, End: s.End}, true
	}
}
