package payroll

import (
	"github.com/shopspring/decimal"
	"github.com/warp/payroll-engine/generic"
)

// =============================================================================
// PAY PERIOD SUMMARY - Current vs previous window
// =============================================================================
//
// Two views are kept side by side. PayPeriod follows Settings.PayFrequency.
// Lookback is always 14 days, whatever the cadence, and is what the dashboard
// cards compare against.
// =============================================================================

// PeriodComparison holds a window, the window before it and the change between them.
type PeriodComparison struct {
	Current        generic.Period
	Previous       generic.Period
	CurrentTotals  Totals
	PreviousTotals Totals
	Change         Totals          // Current - Previous
	EarningsChange decimal.Decimal // Percent; zero when Previous earned nothing
}

// PayPeriodSummary is the dashboard's period card.
type PayPeriodSummary struct {
	Frequency generic.PayFrequency
	PayPeriod PeriodComparison
	Lookback  PeriodComparison
}

// Compare aggregates two periods with the same extra filter.
func Compare(logs []WorkLog, jobs map[JobID]Job, current, previous generic.Period, filter Filter) PeriodComparison {
	cur := Aggregate(logs, jobs, AllOf(filter, InPeriod(current)))
	prev := Aggregate(logs, jobs, AllOf(filter, InPeriod(previous)))
	return PeriodComparison{
		Current:        current,
		Previous:       previous,
		CurrentTotals:  cur,
		PreviousTotals: prev,
		Change:         cur.Sub(prev),
		EarningsChange: generic.Percent(cur.Earnings.Sub(prev.Earnings), prev.Earnings).Round(2),
	}
}

// SummarizePayPeriod builds both views for ref, optionally scoped to one job.
func SummarizePayPeriod(logs []WorkLog, jobs map[JobID]Job, jobID JobID, freq generic.PayFrequency, ref generic.Date) PayPeriodSummary {
	cfg := generic.PayPeriodConfig{Frequency: freq}
	lookback := generic.TrailingDays(ref, generic.BiweeklyLength)
	filter := ForJob(jobID)

	return PayPeriodSummary{
		Frequency: freq,
		PayPeriod: Compare(logs, jobs, cfg.PeriodFor(ref), cfg.PreviousFor(ref), filter),
		Lookback:  Compare(logs, jobs, lookback, lookback.PreviousPeriod(), filter),
	}
}
