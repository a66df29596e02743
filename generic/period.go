package generic

import "fmt"

// =============================================================================
// PERIOD - The core concept for aggregation
// =============================================================================

// Period is an inclusive range of calendar days. Totals are ALWAYS computed
// for a period, never for an open-ended range.
//
// Examples:
//   - A pay cycle: 14 days ending on payday
//   - A calendar month: Mar 1 - Mar 31
//   - An ad-hoc calendar selection: Mar 5 - Mar 10
type Period struct {
	Start Date
	End   Date
}

// NewPeriod builds a period, rejecting an end before the start.
func NewPeriod(start, end Date) (Period, error) {
	if end.Before(start) {
		return Period{}, fmt.Errorf("%w: %s > %s", ErrInvalidPeriod, start, end)
	}
	return Period{Start: start, End: end}, nil
}

// SingleDay is the one-day period [d, d].
func SingleDay(d Date) Period {
	return Period{Start: d, End: d}
}

// Contains returns true if the day is within the period [Start, End].
func (p Period) Contains(d Date) bool {
	return d.AfterOrEqual(p.Start) && d.BeforeOrEqual(p.End)
}

// Days returns all days in the period in ascending order.
func (p Period) Days() []Date {
	var days []Date
	current := p.Start
	for current.BeforeOrEqual(p.End) {
		days = append(days, current)
		current = current.AddDays(1)
	}
	return days
}

// Len is the number of days in the period.
func (p Period) Len() int {
	return DaysBetween(p.Start, p.End) + 1
}

// String returns a string representation of the period.
func (p Period) String() string {
	return "[" + p.Start.String() + ", " + p.End.String() + "]"
}

// PreviousPeriod returns the period of the same length ending the day before this one.
func (p Period) PreviousPeriod() Period {
	duration := DaysBetween(p.Start, p.End)
	newEnd := p.Start.AddDays(-1)
	newStart := newEnd.AddDays(-duration)
	return Period{Start: newStart, End: newEnd}
}

// TrailingDays returns the n-day period ending on end (inclusive). n < 1 is treated as 1.
func TrailingDays(end Date, n int) Period {
	if n < 1 {
		n = 1
	}
	return Period{Start: end.AddDays(-(n - 1)), End: end}
}

// WeekOf returns the Monday..Sunday week containing d.
func WeekOf(d Date) Period {
	start := d.WeekStart()
	return Period{Start: start, End: start.AddDays(6)}
}

// MonthOf returns the calendar month containing d.
func MonthOf(d Date) Period {
	return Period{Start: d.StartOfMonth(), End: d.EndOfMonth()}
}

// =============================================================================
// PAY PERIOD - How a pay cycle is laid out on the calendar
// =============================================================================

// PayFrequency is how often the worker is paid.
type PayFrequency string

const (
	PayBiweekly PayFrequency = "biweekly" // 14 days ending on the reference date
	PayMonthly  PayFrequency = "monthly"  // Calendar month of the reference date
)

// ParsePayFrequency validates a frequency string. Empty means biweekly.
func ParsePayFrequency(s string) (PayFrequency, error) {
	switch PayFrequency(s) {
	case "", PayBiweekly:
		return PayBiweekly, nil
	case PayMonthly:
		return PayMonthly, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownPayFrequency, s)
	}
}

// BiweeklyLength is the fixed lookback used for the biweekly cadence.
const BiweeklyLength = 14

// PayPeriodConfig defines how to calculate pay periods.
type PayPeriodConfig struct {
	Frequency PayFrequency
}

// PeriodFor returns the pay period that the reference date closes (biweekly)
// or falls in (monthly).
func (pc PayPeriodConfig) PeriodFor(ref Date) Period {
	switch pc.Frequency {
	case PayMonthly:
		return MonthOf(ref)
	default:
		return TrailingDays(ref, BiweeklyLength)
	}
}

// PreviousFor returns the pay period immediately before PeriodFor(ref).
func (pc PayPeriodConfig) PreviousFor(ref Date) Period {
	current := pc.PeriodFor(ref)
	return pc.PeriodFor(current.Start.AddDays(-1))
}
