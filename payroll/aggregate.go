package payroll

import (
	"github.com/shopspring/decimal"
	"github.com/warp/payroll-engine/generic"
)

// =============================================================================
// PERIOD AGGREGATOR - Totals over any subset of logs
// =============================================================================

// Totals is hours and earnings summed over a set of logs.
type Totals struct {
	Hours    decimal.Decimal
	Earnings decimal.Decimal
}

// Add is componentwise addition.
func (t Totals) Add(other Totals) Totals {
	return Totals{
		Hours:    t.Hours.Add(other.Hours),
		Earnings: t.Earnings.Add(other.Earnings),
	}
}

// Sub is componentwise subtraction.
func (t Totals) Sub(other Totals) Totals {
	return Totals{
		Hours:    t.Hours.Sub(other.Hours),
		Earnings: t.Earnings.Sub(other.Earnings),
	}
}

// Equal compares both components numerically.
func (t Totals) Equal(other Totals) bool {
	return t.Hours.Equal(other.Hours) && t.Earnings.Equal(other.Earnings)
}

// Filter selects logs. A nil Filter selects everything.
type Filter func(WorkLog) bool

// InPeriod keeps logs whose date is within p (inclusive).
func InPeriod(p generic.Period) Filter {
	return func(l WorkLog) bool { return p.Contains(l.Date) }
}

// ForJob keeps logs of one job. An empty id keeps every job.
func ForJob(id JobID) Filter {
	if id == "" {
		return nil
	}
	return func(l WorkLog) bool { return l.JobID == id }
}

// OnDay keeps logs dated d.
func OnDay(d generic.Date) Filter {
	return func(l WorkLog) bool { return l.Date.Equal(d) }
}

// AllOf keeps logs matched by every filter. Nil filters are skipped.
func AllOf(filters ...Filter) Filter {
	var active []Filter
	for _, f := range filters {
		if f != nil {
			active = append(active, f)
		}
	}
	if len(active) == 0 {
		return nil
	}
	return func(l WorkLog) bool {
		for _, f := range active {
			if !f(l) {
				return false
			}
		}
		return true
	}
}

func (f Filter) match(l WorkLog) bool {
	return f == nil || f(l)
}

// Aggregate sums duration and ValueOf over matching logs. Overlapping shifts
// and negative compensating logs are summed as-is.
func Aggregate(logs []WorkLog, jobs map[JobID]Job, filter Filter) Totals {
	total := Totals{Hours: decimal.Zero, Earnings: decimal.Zero}
	for _, l := range logs {
		if !filter.match(l) {
			continue
		}
		total.Hours = total.Hours.Add(l.Duration)
		total.Earnings = total.Earnings.Add(ValueOf(l, jobs))
	}
	return total
}

// DayTypeTotals splits totals by weekday vs weekend day.
type DayTypeTotals struct {
	Weekday Totals
	Weekend Totals
}

// Total is weekday + weekend.
func (d DayTypeTotals) Total() Totals {
	return d.Weekday.Add(d.Weekend)
}

// SplitByDayType is Aggregate with a weekday/weekend split.
func SplitByDayType(logs []WorkLog, jobs map[JobID]Job, filter Filter) DayTypeTotals {
	weekend := func(l WorkLog) bool { return l.Date.IsWeekend() }
	weekday := func(l WorkLog) bool { return !l.Date.IsWeekend() }
	return DayTypeTotals{
		Weekday: Aggregate(logs, jobs, AllOf(filter, weekday)),
		Weekend: Aggregate(logs, jobs, AllOf(filter, weekend)),
	}
}

// JobHours is the lifetime hours logged for one job.
func JobHours(logs []WorkLog, id JobID) decimal.Decimal {
	total := decimal.Zero
	for _, l := range logs {
		if l.JobID == id {
			total = total.Add(l.Duration)
		}
	}
	return total
}
