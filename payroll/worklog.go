package payroll

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/payroll-engine/generic"
)

// =============================================================================
// LOG CREATION - The only validation point for shift lengths
// =============================================================================

// LogInput is what a user submits to create a log. Either both StartTime and
// EndTime are set (they win), or Duration is set.
type LogInput struct {
	JobID     JobID
	Date      generic.Date
	StartTime string
	EndTime   string
	Duration  decimal.Decimal
	Notes     string
}

// minutesPerDay is added when a shift ends numerically before it starts.
const minutesPerDay = 24 * 60

// NewWorkLog validates the input and builds an immutable log.
// Durations are rounded to 2 decimal places (hours).
func NewWorkLog(in LogInput, id LogID, now time.Time) (WorkLog, error) {
	if in.Date.IsZero() {
		return WorkLog{}, &DurationError{Duration: in.Duration, Reason: "missing date"}
	}

	duration, err := ResolveDuration(in.StartTime, in.EndTime, in.Duration)
	if err != nil {
		return WorkLog{}, err
	}

	return WorkLog{
		ID:        id,
		JobID:     in.JobID,
		Date:      in.Date,
		StartTime: strings.TrimSpace(in.StartTime),
		EndTime:   strings.TrimSpace(in.EndTime),
		Duration:  duration,
		Notes:     in.Notes,
		CreatedAt: now,
	}, nil
}

// ResolveDuration derives the shift length in hours. When both times are
// present the length is end-start, wrapping past midnight (22:00-06:00 = 8h).
func ResolveDuration(start, end string, duration decimal.Decimal) (decimal.Decimal, error) {
	start, end = strings.TrimSpace(start), strings.TrimSpace(end)

	switch {
	case start != "" && end != "":
		startMin, err := parseClock(start)
		if err != nil {
			return decimal.Zero, &DurationError{StartTime: start, EndTime: end, Reason: err.Error()}
		}
		endMin, err := parseClock(end)
		if err != nil {
			return decimal.Zero, &DurationError{StartTime: start, EndTime: end, Reason: err.Error()}
		}
		if endMin < startMin {
			endMin += minutesPerDay
		}
		hours := decimal.NewFromInt(int64(endMin - startMin)).Div(decimal.NewFromInt(60)).Round(2)
		if !hours.IsPositive() {
			return decimal.Zero, &DurationError{StartTime: start, EndTime: end, Reason: "shift has zero length"}
		}
		return hours, nil

	case start != "" || end != "":
		return decimal.Zero, &DurationError{StartTime: start, EndTime: end, Reason: "start and end must be given together"}

	default:
		hours := duration.Round(2)
		if !hours.IsPositive() {
			return decimal.Zero, &DurationError{Duration: duration, Reason: "must be at least 0.01 hours"}
		}
		return hours, nil
	}
}

// parseClock parses "HH:MM" (24h) into minutes since midnight.
func parseClock(s string) (int, error) {
	hh, mm, ok := strings.Cut(s, ":")
	if !ok {
		return 0, fmt.Errorf("time %q is not HH:MM", s)
	}
	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("time %q has an invalid hour", s)
	}
	m, err := strconv.Atoi(mm)
	if err != nil || len(mm) != 2 || m < 0 || m > 59 {
		return 0, fmt.Errorf("time %q has an invalid minute", s)
	}
	return h*60 + m, nil
}
