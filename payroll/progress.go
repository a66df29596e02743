package payroll

import (
	"github.com/shopspring/decimal"
	"github.com/warp/payroll-engine/generic"
)

// =============================================================================
// PROGRESS TRACKER - Hours toward the next pay tier
// =============================================================================

// Progress describes how close a job is to its promotion threshold.
type Progress struct {
	JobID          JobID
	TotalHours     decimal.Decimal
	TargetHours    decimal.Decimal
	RemainingHours decimal.Decimal // Never negative
	Percent        decimal.Decimal // 0..100, rounded to 2 places
	Eligible       bool
}

// ProgressFor computes progress from the job's lifetime hours.
//
// Eligible requires both the hour target and a strictly higher next weekday
// rate, so a promotion can never be a no-op.
func ProgressFor(job Job, totalHours decimal.Decimal) Progress {
	percent := generic.Clamp(generic.Percent(totalHours, job.TargetHours), decimal.Zero, generic.Hundred)

	remaining := job.TargetHours.Sub(totalHours)
	if remaining.IsNegative() {
		remaining = decimal.Zero
	}

	return Progress{
		JobID:          job.ID,
		TotalHours:     totalHours,
		TargetHours:    job.TargetHours,
		RemainingHours: remaining,
		Percent:        percent.Round(2),
		Eligible:       totalHours.GreaterThanOrEqual(job.TargetHours) && job.HourlyRate.LessThan(job.NextHourlyRate),
	}
}

// Promote moves the job onto its next tier. Next rates are left as they are;
// the caller may configure a further tier afterwards. Gating on Eligible is
// the caller's job.
func Promote(job Job) Job {
	job.HourlyRate = job.NextHourlyRate
	job.WeekendHourlyRate = job.NextWeekendHourlyRate
	return job
}

// PotentialValue is what the logs would have earned at the next tier.
func PotentialValue(logs []WorkLog, jobs map[JobID]Job) decimal.Decimal {
	total := decimal.Zero
	for _, l := range logs {
		total = total.Add(NextValueOf(l, jobs))
	}
	return total
}
