package payroll

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/payroll-engine/generic"
)

// =============================================================================
// PAYSLIP RECONCILER - Engine totals vs. what the payslip says
// =============================================================================
//
// Sign convention: diff = slip - app.
//   positive => the app under-recorded => backfill
//   negative => the app over-recorded  => correction
//
// A remediation is an ordinary WorkLog. It goes through RateResolver and the
// aggregator like any hand-entered shift.
// =============================================================================

// Tolerance is the largest hour difference treated as reconciled.
var Tolerance = decimal.RequireFromString("0.1")

// Allowed window lengths in days.
const (
	WindowBiweekly = 14
	WindowMonthly  = 30
)

// Window is the fixed comparison period ending at EndDate.
type Window struct {
	EndDate generic.Date
	Length  int
}

// Period returns [EndDate-(Length-1), EndDate].
func (w Window) Period() (generic.Period, error) {
	if w.Length != WindowBiweekly && w.Length != WindowMonthly {
		return generic.Period{}, fmt.Errorf("%w: length %d, want %d or %d", ErrInvalidWindow, w.Length, WindowBiweekly, WindowMonthly)
	}
	if w.EndDate.IsZero() {
		return generic.Period{}, fmt.Errorf("%w: missing end date", ErrInvalidWindow)
	}
	return generic.TrailingDays(w.EndDate, w.Length), nil
}

// AppTotalsFor is the engine side of the comparison.
func AppTotalsFor(logs []WorkLog, jobs map[JobID]Job, jobID JobID, w Window) (DayTypeTotals, error) {
	p, err := w.Period()
	if err != nil {
		return DayTypeTotals{}, err
	}
	return SplitByDayType(logs, jobs, AllOf(ForJob(jobID), InPeriod(p))), nil
}

// PayslipInput is what the user copies off a payslip.
type PayslipInput struct {
	WeekdayHours decimal.Decimal
	WeekendHours decimal.Decimal
	Allowance    decimal.Decimal
	TaxRate      *decimal.Decimal // Overrides the settings tax rate when set
}

// Reconciliation is the full comparison.
type Reconciliation struct {
	JobID JobID

	AppWeekdayHours  decimal.Decimal
	AppWeekendHours  decimal.Decimal
	SlipWeekdayHours decimal.Decimal
	SlipWeekendHours decimal.Decimal

	AppGross  decimal.Decimal
	SlipGross decimal.Decimal
	AppNet    decimal.Decimal
	SlipNet   decimal.Decimal
	TaxRate   decimal.Decimal

	DiffWeekdayHours decimal.Decimal
	DiffWeekendHours decimal.Decimal
	DiffGrossPay     decimal.Decimal
}

// Reconcile compares app totals against payslip figures for one job.
func Reconcile(job Job, app DayTypeTotals, slip PayslipInput, taxRate decimal.Decimal) Reconciliation {
	if slip.TaxRate != nil {
		taxRate = *slip.TaxRate
	}

	weekdayRate := RateFor(job, false).Regular
	weekendRate := RateFor(job, true).Regular

	appGross := generic.Sum(app.Weekday.Hours.Mul(weekdayRate), app.Weekend.Hours.Mul(weekendRate))
	slipGross := generic.Sum(
		slip.WeekdayHours.Mul(weekdayRate),
		slip.WeekendHours.Mul(weekendRate),
		slip.Allowance,
	)

	return Reconciliation{
		JobID:            job.ID,
		AppWeekdayHours:  app.Weekday.Hours,
		AppWeekendHours:  app.Weekend.Hours,
		SlipWeekdayHours: slip.WeekdayHours,
		SlipWeekendHours: slip.WeekendHours,
		AppGross:         appGross,
		SlipGross:        slipGross,
		AppNet:           generic.ApplyFlatTax(appGross, taxRate),
		SlipNet:          generic.ApplyFlatTax(slipGross, taxRate),
		TaxRate:          taxRate,
		DiffWeekdayHours: slip.WeekdayHours.Sub(app.Weekday.Hours),
		DiffWeekendHours: slip.WeekendHours.Sub(app.Weekend.Hours),
		DiffGrossPay:     slipGross.Sub(appGross),
	}
}

// WithinTolerance reports |diff| <= 0.1.
func WithinTolerance(diff decimal.Decimal) bool {
	return diff.Abs().LessThanOrEqual(Tolerance)
}

// Reconciled reports whether both hour diffs are within tolerance.
func (r Reconciliation) Reconciled() bool {
	return WithinTolerance(r.DiffWeekdayHours) && WithinTolerance(r.DiffWeekendHours)
}

// =============================================================================
// REMEDIATION - Compensating logs
// =============================================================================

type HourType string

const (
	HourWeekday HourType = "weekday"
	HourWeekend HourType = "weekend"
)

type RemediationKind string

const (
	RemediationBackfill   RemediationKind = "backfill"   // Slip reports more hours
	RemediationCorrection RemediationKind = "correction" // App reports more hours
)

// Remediation is one offered fix: log Hours (signed) of HourType.
type Remediation struct {
	HourType HourType
	Hours    decimal.Decimal
	Kind     RemediationKind
}

// Remediations returns one entry per hour type outside tolerance, weekday first.
func (r Reconciliation) Remediations() []Remediation {
	var out []Remediation
	for _, c := range []struct {
		hourType HourType
		diff     decimal.Decimal
	}{
		{HourWeekday, r.DiffWeekdayHours},
		{HourWeekend, r.DiffWeekendHours},
	} {
		if WithinTolerance(c.diff) {
			continue
		}
		kind := RemediationBackfill
		if c.diff.IsNegative() {
			kind = RemediationCorrection
		}
		out = append(out, Remediation{HourType: c.hourType, Hours: c.diff, Kind: kind})
	}
	return out
}

// BuildCompensatingLog turns a remediation into a plain log dated endDate.
// The log is valued by its own date like any other log.
func BuildCompensatingLog(job Job, rem Remediation, endDate generic.Date, id LogID, now time.Time) WorkLog {
	return WorkLog{
		ID:        id,
		JobID:     job.ID,
		Date:      endDate,
		Duration:  rem.Hours,
		Notes:     CompensatingNote(job, rem),
		CreatedAt: now,
	}
}

// CompensatingNote is e.g. "Payslip backfill: +5.00h weekday (Main Job)".
func CompensatingNote(job Job, rem Remediation) string {
	sign := ""
	if rem.Hours.IsPositive() {
		sign = "+"
	}
	return fmt.Sprintf("Payslip %s: %s%sh %s (%s)", rem.Kind, sign, rem.Hours.StringFixed(2), rem.HourType, job.Name)
}
