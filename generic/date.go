/*
Package generic provides the calendar and arithmetic primitives the payroll
engine is built on.

PURPOSE:
  This package knows nothing about jobs, shifts or payslips. It models the
  things every period-based calculation needs: a calendar day, an inclusive
  range of days, pay-period boundaries, decimal helpers, and the persistence
  contract for an opaque state blob.

KEY CONCEPTS IN THIS FILE (date.go):
  - Date: A calendar day with no time-of-day and no zone (always UTC midnight)
  - Weekday classification: Sunday=0 ... Saturday=6, weekend = {0, 6}
  - ISO week start: the Monday on or before a date

DESIGN PRINCIPLES:
  1. Fixed-width text: Date.String() is YYYY-MM-DD, so string order == date order
  2. Explicit "today": nothing in the engine reads the wall clock; callers pass it
  3. Value semantics: Date is comparable and safe to use as a map key

SEE ALSO:
  - period.go: Inclusive ranges of dates and pay-period configuration
  - errors.go: ErrInvalidDate and friends
*/
package generic

import (
	"encoding/json"
	"time"
)

// DateLayout is the wire format for calendar days.
const DateLayout = "2006-01-02"

// MonthLayout is the wire format for month keys used by monthly buckets.
const MonthLayout = "2006-01"

// =============================================================================
// DATE - A calendar day
// =============================================================================

// Date is a calendar day. The wrapped time is always midnight UTC.
type Date struct {
	Time time.Time
}

// NewDate builds a Date from its components. Out-of-range components are
// normalized the same way time.Date does (Feb 30 -> Mar 2).
func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf drops the time-of-day of t, keeping the calendar day as seen in t's location.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

// Today returns the current local calendar day.
func Today() Date {
	return DateOf(time.Now())
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, &DateError{Input: s, Err: err}
	}
	return Date{Time: t}, nil
}

// MustParseDate is ParseDate for literals in tests and fixtures. Panics on bad input.
func MustParseDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Comparison
func (d Date) Before(other Date) bool        { return d.Time.Before(other.Time) }
func (d Date) After(other Date) bool         { return d.Time.After(other.Time) }
func (d Date) Equal(other Date) bool         { return d.Time.Equal(other.Time) }
func (d Date) BeforeOrEqual(other Date) bool { return !d.After(other) }
func (d Date) AfterOrEqual(other Date) bool  { return !d.Before(other) }

// Arithmetic
func (d Date) AddDays(n int) Date   { return Date{Time: d.Time.AddDate(0, 0, n)} }
func (d Date) AddMonths(n int) Date { return Date{Time: d.Time.AddDate(0, n, 0)} }

// Properties
func (d Date) Year() int             { return d.Time.Year() }
func (d Date) Month() time.Month     { return d.Time.Month() }
func (d Date) Day() int              { return d.Time.Day() }
func (d Date) Weekday() time.Weekday { return d.Time.Weekday() }
func (d Date) IsZero() bool          { return d.Time.IsZero() }

// IsWeekend reports whether the day is a Saturday or a Sunday.
func (d Date) IsWeekend() bool {
	wd := d.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// String renders the day as YYYY-MM-DD.
func (d Date) String() string { return d.Time.Format(DateLayout) }

// MonthKey renders the month as YYYY-MM.
func (d Date) MonthKey() string { return d.Time.Format(MonthLayout) }

// StartOfMonth returns the first day of d's month.
func (d Date) StartOfMonth() Date { return NewDate(d.Year(), d.Month(), 1) }

// EndOfMonth returns the last day of d's month.
func (d Date) EndOfMonth() Date { return d.StartOfMonth().AddMonths(1).AddDays(-1) }

// WeekStart returns the Monday on or before d (ISO week). A Sunday maps to
// the Monday six days earlier.
func (d Date) WeekStart() Date {
	offset := int(d.Weekday()) - int(time.Monday)
	if d.Weekday() == time.Sunday {
		offset = 6
	}
	return d.AddDays(-offset)
}

// =============================================================================
// JSON
// =============================================================================

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte(`""`), nil
	}
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return &DateError{Input: string(data), Err: err}
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// =============================================================================
// DATE UTILITIES
// =============================================================================

// DaysBetween returns the whole number of days from -> to (negative if to is earlier).
func DaysBetween(from, to Date) int { return int(to.Time.Sub(from.Time).Hours() / 24) }
