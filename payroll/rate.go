package payroll

import (
	"github.com/shopspring/decimal"
	"github.com/warp/payroll-engine/generic"
)

// =============================================================================
// RATE RESOLVER - Single source of monetary truth
// =============================================================================
//
// Every monetary value in the repo is derived here: dashboard totals, bucket
// earnings, calendar selections, payslip comparisons and export rows all
// call the same functions, so they cannot drift apart.
// =============================================================================

// Rate is the applicable hourly rate for a (job, day).
type Rate struct {
	Regular decimal.Decimal
}

// RateFor returns the current rate for a weekday or weekend hour.
func RateFor(job Job, weekend bool) Rate {
	if weekend {
		return Rate{Regular: job.WeekendHourlyRate}
	}
	return Rate{Regular: job.HourlyRate}
}

// NextRateFor returns the post-promotion rate for a weekday or weekend hour.
func NextRateFor(job Job, weekend bool) Rate {
	if weekend {
		return Rate{Regular: job.NextWeekendHourlyRate}
	}
	return Rate{Regular: job.NextHourlyRate}
}

// ResolveRate returns the job's weekend rate on Saturday/Sunday, else its weekday rate.
func ResolveRate(job Job, date generic.Date) Rate {
	return RateFor(job, date.IsWeekend())
}

// ResolveNextRate is ResolveRate over the next tier.
func ResolveNextRate(job Job, date generic.Date) Rate {
	return NextRateFor(job, date.IsWeekend())
}

// ValueOf is duration * rate. A log whose job is missing is worth zero.
func ValueOf(log WorkLog, jobs map[JobID]Job) decimal.Decimal {
	job, ok := jobs[log.JobID]
	if !ok {
		return decimal.Zero
	}
	return log.Duration.Mul(ResolveRate(job, log.Date).Regular)
}

// NextValueOf is ValueOf at the next tier.
func NextValueOf(log WorkLog, jobs map[JobID]Job) decimal.Decimal {
	job, ok := jobs[log.JobID]
	if !ok {
		return decimal.Zero
	}
	return log.Duration.Mul(ResolveNextRate(job, log.Date).Regular)
}
