/*
engine_test.go - Executable properties of the payroll engine

ORGANIZATION:
  1. RateResolver - weekday/weekend determinism, dangling jobs
  2. PeriodAggregator - additivity, inclusive ranges, end-to-end totals
  3. ProgressTracker - eligibility, clamping, pure promotion
  4. PayslipReconciler - sign convention, tolerance band, compensating logs

READING THESE TESTS:
  Each test has GIVEN/WHEN/THEN comments explaining the scenario.
  Dates are pinned: 2024-03-04 is a Monday, 2024-03-09 a Saturday.
*/
package payroll_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/payroll-engine/generic"
	"github.com/warp/payroll-engine/payroll"
)

// =============================================================================
// TEST INFRASTRUCTURE
// =============================================================================

var testNow = time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func day(s string) generic.Date { return generic.MustParseDate(s) }

func jobA() payroll.Job {
	return payroll.Job{
		ID:                    "job-a",
		Name:                  "Job A",
		HourlyRate:            dec("60"),
		WeekendHourlyRate:     dec("70"),
		TargetHours:           dec("100"),
		NextHourlyRate:        dec("70"),
		NextWeekendHourlyRate: dec("80"),
	}
}

func jobB() payroll.Job {
	return payroll.Job{
		ID:                    "job-b",
		Name:                  "Job B",
		HourlyRate:            dec("20"),
		WeekendHourlyRate:     dec("30"),
		TargetHours:           dec("50"),
		NextHourlyRate:        dec("25"),
		NextWeekendHourlyRate: dec("35"),
	}
}

func jobs(js ...payroll.Job) map[payroll.JobID]payroll.Job {
	m := make(map[payroll.JobID]payroll.Job, len(js))
	for _, j := range js {
		m[j.ID] = j
	}
	return m
}

func logOf(id string, job payroll.JobID, date string, hours string) payroll.WorkLog {
	return payroll.WorkLog{
		ID:        payroll.LogID(id),
		JobID:     job,
		Date:      day(date),
		Duration:  dec(hours),
		CreatedAt: testNow,
	}
}

func assertDec(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...interface{}) {
	t.Helper()
	assert.True(t, dec(want).Equal(got), "want %s, got %s %v", want, got.String(), msgAndArgs)
}

// =============================================================================
// 1. RATE RESOLVER
// =============================================================================

func TestResolveRate_WeekendIffSaturdayOrSunday(t *testing.T) {
	// GIVEN: A job with distinct weekday/weekend rates at both tiers
	job := jobA()

	// WHEN: Resolving every day of one week (Mon 03-04 .. Sun 03-10)
	for i := 0; i < 7; i++ {
		d := day("2024-03-04").AddDays(i)
		rate := payroll.ResolveRate(job, d)
		next := payroll.ResolveNextRate(job, d)

		// THEN: Weekend rate exactly on Saturday and Sunday
		wd := d.Weekday()
		if wd == time.Saturday || wd == time.Sunday {
			assertDec(t, "70", rate.Regular, d.String())
			assertDec(t, "80", next.Regular, d.String())
		} else {
			assertDec(t, "60", rate.Regular, d.String())
			assertDec(t, "70", next.Regular, d.String())
		}
	}
}

func TestValueOf_DanglingJobIsZero(t *testing.T) {
	// GIVEN: A log whose job was deleted
	log := logOf("l1", "gone", "2024-03-05", "8")

	// THEN: It is worth nothing and does not fail
	assert.True(t, payroll.ValueOf(log, jobs(jobA())).IsZero())
	assert.True(t, payroll.PotentialValue([]payroll.WorkLog{log}, jobs(jobA())).IsZero())
}

// =============================================================================
// 2. PERIOD AGGREGATOR
// =============================================================================

func TestAggregate_EndToEnd_350Plus300(t *testing.T) {
	// GIVEN: Job A (60 weekday / 70 weekend)
	js := jobs(jobA())
	saturday := logOf("sat", "job-a", "2024-03-09", "5")
	tuesday := logOf("tue", "job-a", "2024-03-05", "5")

	// THEN: Each log is valued by its own day
	assertDec(t, "350", payroll.ValueOf(saturday, js))
	assertDec(t, "300", payroll.ValueOf(tuesday, js))

	// AND: The aggregate is their sum
	total := payroll.Aggregate([]payroll.WorkLog{saturday, tuesday}, js, nil)
	assertDec(t, "10", total.Hours)
	assertDec(t, "650", total.Earnings)
}

func TestAggregate_Additivity(t *testing.T) {
	// GIVEN: A mixed set of logs across two jobs and a dangling job
	js := jobs(jobA(), jobB())
	all := []payroll.WorkLog{
		logOf("1", "job-a", "2024-03-04", "8"),
		logOf("2", "job-a", "2024-03-09", "4.5"),
		logOf("3", "job-b", "2024-03-10", "3"),
		logOf("4", "job-b", "2024-03-06", "2.25"),
		logOf("5", "gone", "2024-03-07", "6"),
		logOf("6", "job-a", "2024-03-07", "-1.5"),
	}

	// WHEN: Splitting into every prefix/suffix partition
	whole := payroll.Aggregate(all, js, nil)
	for cut := 0; cut <= len(all); cut++ {
		a := payroll.Aggregate(all[:cut], js, nil)
		b := payroll.Aggregate(all[cut:], js, nil)

		// THEN: aggregate(A ∪ B) = aggregate(A) + aggregate(B)
		assert.True(t, whole.Equal(a.Add(b)), "cut at %d", cut)
	}
}

func TestAggregate_InclusiveRangeAndJobFilter(t *testing.T) {
	js := jobs(jobA(), jobB())
	logs := []payroll.WorkLog{
		logOf("before", "job-a", "2024-03-04", "1"),
		logOf("start", "job-a", "2024-03-05", "2"),
		logOf("other", "job-b", "2024-03-06", "4"),
		logOf("end", "job-a", "2024-03-10", "8"),
		logOf("after", "job-a", "2024-03-11", "16"),
	}
	p, err := generic.NewPeriod(day("2024-03-05"), day("2024-03-10"))
	require.NoError(t, err)

	// WHEN: Filtering by range only
	inRange := payroll.Aggregate(logs, js, payroll.InPeriod(p))
	// THEN: Both endpoints count
	assertDec(t, "14", inRange.Hours)

	// WHEN: Filtering by range and job
	jobOnly := payroll.Aggregate(logs, js, payroll.AllOf(payroll.InPeriod(p), payroll.ForJob("job-a")))
	assertDec(t, "10", jobOnly.Hours)
	assertDec(t, "680", jobOnly.Earnings) // 2*60 + 8*70 (Sunday)

	// AND: An empty job id means every job
	assert.True(t, inRange.Equal(payroll.Aggregate(logs, js, payroll.AllOf(payroll.InPeriod(p), payroll.ForJob("")))))
}

func TestAggregate_OverlappingShiftsAreSummed(t *testing.T) {
	// GIVEN: Two overlapping shifts on the same day
	js := jobs(jobA())
	logs := []payroll.WorkLog{
		{ID: "1", JobID: "job-a", Date: day("2024-03-05"), StartTime: "09:00", EndTime: "17:00", Duration: dec("8")},
		{ID: "2", JobID: "job-a", Date: day("2024-03-05"), StartTime: "12:00", EndTime: "14:00", Duration: dec("2")},
	}

	// THEN: No overlap detection, both count
	assertDec(t, "10", payroll.Aggregate(logs, js, nil).Hours)
}

func TestSplitByDayType(t *testing.T) {
	js := jobs(jobA())
	logs := []payroll.WorkLog{
		logOf("1", "job-a", "2024-03-08", "8"), // Friday
		logOf("2", "job-a", "2024-03-09", "5"), // Saturday
		logOf("3", "job-a", "2024-03-10", "3"), // Sunday
	}

	split := payroll.SplitByDayType(logs, js, nil)

	assertDec(t, "8", split.Weekday.Hours)
	assertDec(t, "480", split.Weekday.Earnings)
	assertDec(t, "8", split.Weekend.Hours)
	assertDec(t, "560", split.Weekend.Earnings)
	assertDec(t, "1040", split.Total().Earnings)
}

// =============================================================================
// 3. PROGRESS TRACKER
// =============================================================================

func TestProgressFor_EligibleAtTarget(t *testing.T) {
	// GIVEN: Target 100h, 100h logged, 60 < 70
	job := jobA()

	// WHEN
	p := payroll.ProgressFor(job, dec("100"))

	// THEN
	assert.True(t, p.Eligible)
	assertDec(t, "100", p.Percent)
	assert.True(t, p.RemainingHours.IsZero())
}

func TestProgressFor_NotEligibleWhenNextTierIsNotHigher(t *testing.T) {
	// GIVEN: Hour target met but the next tier equals the current rate
	job := jobA()
	job.NextHourlyRate = dec("60")

	// THEN: No promotion offered
	p := payroll.ProgressFor(job, dec("100"))
	assert.False(t, p.Eligible)
}

func TestProgressFor_ClampsAndGuardsZeroTarget(t *testing.T) {
	job := jobA()

	over := payroll.ProgressFor(job, dec("250"))
	assertDec(t, "100", over.Percent, "clamped at 100")

	partial := payroll.ProgressFor(job, dec("33.333"))
	assertDec(t, "33.33", partial.Percent)
	assertDec(t, "66.667", partial.RemainingHours)
	assert.False(t, partial.Eligible)

	job.TargetHours = decimal.Zero
	zero := payroll.ProgressFor(job, dec("40"))
	assert.True(t, zero.Percent.IsZero(), "target 0 is 0%, not a division fault")
	assert.True(t, zero.Eligible, "target 0 is met by any non-negative total")
}

func TestPromote_IsPureAndKeepsNextTier(t *testing.T) {
	// GIVEN
	job := jobA()

	// WHEN
	promoted := payroll.Promote(job)

	// THEN: Current rates moved up, next tier untouched, input unchanged
	assertDec(t, "70", promoted.HourlyRate)
	assertDec(t, "80", promoted.WeekendHourlyRate)
	assertDec(t, "70", promoted.NextHourlyRate)
	assertDec(t, "80", promoted.NextWeekendHourlyRate)
	assertDec(t, "60", job.HourlyRate)

	// AND: A second promotion would be a no-op, so it is not offered
	assert.False(t, payroll.ProgressFor(promoted, dec("500")).Eligible)
}

func TestPotentialValue_UsesNextTier(t *testing.T) {
	js := jobs(jobA())
	logs := []payroll.WorkLog{
		logOf("sat", "job-a", "2024-03-09", "5"),
		logOf("tue", "job-a", "2024-03-05", "5"),
	}

	assertDec(t, "750", payroll.PotentialValue(logs, js)) // 5*80 + 5*70
}

func TestJobHours(t *testing.T) {
	logs := []payroll.WorkLog{
		logOf("1", "job-a", "2024-01-01", "10"),
		logOf("2", "job-b", "2024-01-02", "7"),
		logOf("3", "job-a", "2024-02-01", "2.5"),
	}

	assertDec(t, "12.5", payroll.JobHours(logs, "job-a"))
}

// =============================================================================
// 4. PAYSLIP RECONCILER
// =============================================================================

func TestWindow_Period(t *testing.T) {
	p, err := payroll.Window{EndDate: day("2024-03-14"), Length: 14}.Period()
	require.NoError(t, err)
	assert.Equal(t, "[2024-03-01, 2024-03-14]", p.String())

	p, err = payroll.Window{EndDate: day("2024-03-30"), Length: 30}.Period()
	require.NoError(t, err)
	assert.Equal(t, "2024-03-01", p.Start.String())

	_, err = payroll.Window{EndDate: day("2024-03-14"), Length: 7}.Period()
	assert.ErrorIs(t, err, payroll.ErrInvalidWindow)
}

func TestReconcile_SignConvention(t *testing.T) {
	job := jobA()

	// GIVEN: App 40 weekday hours, slip 45
	app := payroll.DayTypeTotals{Weekday: payroll.Totals{Hours: dec("40")}}
	r := payroll.Reconcile(job, app, payroll.PayslipInput{WeekdayHours: dec("45")}, decimal.Zero)

	// THEN: +5, backfill
	assertDec(t, "5", r.DiffWeekdayHours)
	rems := r.Remediations()
	require.Len(t, rems, 1)
	assert.Equal(t, payroll.RemediationBackfill, rems[0].Kind)
	assert.Equal(t, payroll.HourWeekday, rems[0].HourType)

	// GIVEN: App 45, slip 40
	app = payroll.DayTypeTotals{Weekday: payroll.Totals{Hours: dec("45")}}
	r = payroll.Reconcile(job, app, payroll.PayslipInput{WeekdayHours: dec("40")}, decimal.Zero)

	// THEN: -5, correction
	assertDec(t, "-5", r.DiffWeekdayHours)
	rems = r.Remediations()
	require.Len(t, rems, 1)
	assert.Equal(t, payroll.RemediationCorrection, rems[0].Kind)
	assertDec(t, "-5", rems[0].Hours)
}

func TestReconcile_ToleranceBand(t *testing.T) {
	assert.True(t, payroll.WithinTolerance(dec("0.1")), "0.1 is reconciled")
	assert.True(t, payroll.WithinTolerance(dec("-0.1")))
	assert.False(t, payroll.WithinTolerance(dec("0.11")), "0.11 needs action")

	// GIVEN: Weekday off by exactly 0.1, weekend off by 0.11
	app := payroll.DayTypeTotals{
		Weekday: payroll.Totals{Hours: dec("10")},
		Weekend: payroll.Totals{Hours: dec("4")},
	}
	slip := payroll.PayslipInput{WeekdayHours: dec("10.1"), WeekendHours: dec("4.11")}
	r := payroll.Reconcile(jobA(), app, slip, decimal.Zero)

	// THEN: Only the weekend is offered a fix
	rems := r.Remediations()
	require.Len(t, rems, 1)
	assert.Equal(t, payroll.HourWeekend, rems[0].HourType)
	assert.False(t, r.Reconciled())
}

func TestReconcile_GrossAndNet(t *testing.T) {
	// GIVEN: App 40 weekday + 8 weekend at 60/70; slip adds 2 weekday hours and a 50 allowance
	app := payroll.DayTypeTotals{
		Weekday: payroll.Totals{Hours: dec("40")},
		Weekend: payroll.Totals{Hours: dec("8")},
	}
	slip := payroll.PayslipInput{WeekdayHours: dec("42"), WeekendHours: dec("8"), Allowance: dec("50")}

	// WHEN: Settings tax 20%
	r := payroll.Reconcile(jobA(), app, slip, dec("20"))

	// THEN
	assertDec(t, "2960", r.AppGross)  // 40*60 + 8*70
	assertDec(t, "3130", r.SlipGross) // 42*60 + 8*70 + 50
	assertDec(t, "170", r.DiffGrossPay)
	assertDec(t, "2368", r.AppNet)
	assertDec(t, "2504", r.SlipNet)

	// WHEN: The payslip overrides the tax rate
	override := dec("10")
	slip.TaxRate = &override
	r = payroll.Reconcile(jobA(), app, slip, dec("20"))

	// THEN
	assertDec(t, "10", r.TaxRate)
	assertDec(t, "2664", r.AppNet)
}

func TestBuildCompensatingLog_FlowsThroughAggregator(t *testing.T) {
	// GIVEN: A backfill of +5 weekday hours for a window ending Thursday 03-14
	job := jobA()
	rem := payroll.Remediation{HourType: payroll.HourWeekday, Hours: dec("5"), Kind: payroll.RemediationBackfill}

	// WHEN
	log := payroll.BuildCompensatingLog(job, rem, day("2024-03-14"), "comp-1", testNow)

	// THEN: An ordinary log dated at the window end
	assert.Equal(t, payroll.JobID("job-a"), log.JobID)
	assert.Equal(t, "2024-03-14", log.Date.String())
	assertDec(t, "5", log.Duration)
	assert.Equal(t, "Payslip backfill: +5.00h weekday (Job A)", log.Notes)

	// AND: Re-running the comparison with it closes the gap
	existing := []payroll.WorkLog{logOf("1", "job-a", "2024-03-12", "40")}
	w := payroll.Window{EndDate: day("2024-03-14"), Length: 14}
	after, err := payroll.AppTotalsFor(append(existing, log), jobs(job), "job-a", w)
	require.NoError(t, err)
	r := payroll.Reconcile(job, after, payroll.PayslipInput{WeekdayHours: dec("45")}, decimal.Zero)
	assert.True(t, r.Reconciled())
	assert.Empty(t, r.Remediations())
}

func TestBuildCompensatingLog_CorrectionNote(t *testing.T) {
	rem := payroll.Remediation{HourType: payroll.HourWeekend, Hours: dec("-2.5"), Kind: payroll.RemediationCorrection}

	log := payroll.BuildCompensatingLog(jobA(), rem, day("2024-03-10"), "comp-2", testNow)

	assert.Equal(t, "Payslip correction: -2.50h weekend (Job A)", log.Notes)
	assertDec(t, "-175", payroll.ValueOf(log, jobs(jobA()))) // Sunday rate
}
