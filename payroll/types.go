/*
Package payroll implements the shift payroll engine.

PURPOSE:
  A worker with one or more jobs logs shifts. This package turns those logs
  into period totals, weekday/weekend-aware earnings, promotion progress,
  payslip variance and chart buckets. Everything here is a pure function of
  its inputs: no clock, no storage, no locks.

KEY CONCEPTS IN THIS FILE (types.go):
  - Job: A pay context with weekday/weekend rates and a next tier
  - WorkLog: One immutable logged shift
  - ShiftTemplate: A reusable shift shape for quick entry
  - Settings: Process-wide preferences (currency, cadence, flat tax)
  - AppState: The aggregate root, updated copy-on-write

DESIGN PRINCIPLES:
  1. Immutability: Logs are never edited; corrections are compensating logs
  2. Precision: Money and hours use decimal.Decimal
  3. Single source of monetary truth: every rate goes through rate.go
  4. Tolerance: A log pointing at a missing job is worth zero, never an error

USAGE:
  state := payroll.AppState{Jobs: []payroll.Job{job}}
  log, err := payroll.NewWorkLog(payroll.LogInput{
      JobID: job.ID,
      Date:  generic.MustParseDate("2024-03-09"),
      Duration: decimal.NewFromInt(5),
  }, "log-1", time.Now())
  state = state.WithLog(log)

SEE ALSO:
  - rate.go: RateResolver
  - aggregate.go, bucket.go: PeriodAggregator
  - progress.go: ProgressTracker
  - reconcile.go: PayslipReconciler
  - calendar.go: CalendarRangeSelector
  - factory/state.go: Persisted form and migration
*/
package payroll

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/payroll-engine/generic"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type JobID string
type LogID string
type TemplateID string

// =============================================================================
// JOB - A pay context
// =============================================================================

// Job is a pay context with its own rates and promotion threshold.
type Job struct {
	ID    JobID
	Name  string
	Color string // Presentation only

	HourlyRate        decimal.Decimal // Weekday rate
	WeekendHourlyRate decimal.Decimal

	// Promotion
	TargetHours           decimal.Decimal // Lifetime hours needed before the next tier is offered
	NextHourlyRate        decimal.Decimal
	NextWeekendHourlyRate decimal.Decimal
}

// Validate checks the non-negativity invariants.
func (j Job) Validate() error {
	checks := []struct {
		field string
		value decimal.Decimal
	}{
		{"hourly_rate", j.HourlyRate},
		{"weekend_hourly_rate", j.WeekendHourlyRate},
		{"target_hours", j.TargetHours},
		{"next_hourly_rate", j.NextHourlyRate},
		{"next_weekend_hourly_rate", j.NextWeekendHourlyRate},
	}
	for _, c := range checks {
		if c.value.IsNegative() {
			return &JobError{JobID: j.ID, Field: c.field, Value: c.value}
		}
	}
	return nil
}

// =============================================================================
// WORK LOG - One logged shift
// =============================================================================

// WorkLog is one logged shift. Duration is in hours and may be negative only
// for compensating logs produced by reconciliation.
type WorkLog struct {
	ID        LogID
	JobID     JobID
	Date      generic.Date
	StartTime string // "HH:MM", optional
	EndTime   string // "HH:MM", optional
	Duration  decimal.Decimal
	Notes     string
	CreatedAt time.Time
}

// =============================================================================
// SHIFT TEMPLATE - Quick entry
// =============================================================================

// ShiftTemplate is a reusable (job, start, end, notes) tuple.
type ShiftTemplate struct {
	ID        TemplateID
	JobID     JobID
	StartTime string
	EndTime   string
	Notes     string
}

// Apply turns the template into a log input for the given day.
func (t ShiftTemplate) Apply(date generic.Date) LogInput {
	return LogInput{
		JobID:     t.JobID,
		Date:      date,
		StartTime: t.StartTime,
		EndTime:   t.EndTime,
		Notes:     t.Notes,
	}
}

// =============================================================================
// SETTINGS
// =============================================================================

// Settings holds process-wide preferences.
type Settings struct {
	Currency     string
	DisplayName  string
	PayFrequency generic.PayFrequency
	TaxRate      decimal.Decimal // Flat percentage, 0..100
	Theme        string
	LastBackup   *time.Time
}

// DefaultSettings is what a fresh install starts with.
func DefaultSettings() Settings {
	return Settings{
		Currency:     "USD",
		PayFrequency: generic.PayBiweekly,
		TaxRate:      decimal.Zero,
		Theme:        "light",
	}
}

// PayPeriodConfig exposes the cadence as a generic pay-period calculator.
func (s Settings) PayPeriodConfig() generic.PayPeriodConfig {
	return generic.PayPeriodConfig{Frequency: s.PayFrequency}
}

// Validate checks the tax rate and cadence.
func (s Settings) Validate() error {
	if s.TaxRate.IsNegative() || s.TaxRate.GreaterThan(generic.Hundred) {
		return fmt.Errorf("%w: tax rate %s outside 0..100", ErrInvalidSettings, s.TaxRate)
	}
	if _, err := generic.ParsePayFrequency(string(s.PayFrequency)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSettings, err)
	}
	return nil
}

// =============================================================================
// APP STATE - The aggregate root
// =============================================================================

// AppState is the whole persisted world. Methods never mutate the receiver:
// each With/Without returns a new value whose changed collection is a fresh slice.
type AppState struct {
	Jobs      []Job
	Logs      []WorkLog
	Templates []ShiftTemplate
	Settings  Settings
}

// JobsByID indexes the jobs. This is the only job lookup the engine uses.
func (s AppState) JobsByID() map[JobID]Job {
	m := make(map[JobID]Job, len(s.Jobs))
	for _, j := range s.Jobs {
		m[j.ID] = j
	}
	return m
}

func (s AppState) Job(id JobID) (Job, bool) {
	for _, j := range s.Jobs {
		if j.ID == id {
			return j, true
		}
	}
	return Job{}, false
}

func (s AppState) Log(id LogID) (WorkLog, bool) {
	for _, l := range s.Logs {
		if l.ID == id {
			return l, true
		}
	}
	return WorkLog{}, false
}

func (s AppState) Template(id TemplateID) (ShiftTemplate, bool) {
	for _, t := range s.Templates {
		if t.ID == id {
			return t, true
		}
	}
	return ShiftTemplate{}, false
}

// WithJob inserts the job, or replaces the job with the same id in place.
func (s AppState) WithJob(job Job) AppState {
	jobs := make([]Job, 0, len(s.Jobs)+1)
	replaced := false
	for _, j := range s.Jobs {
		if j.ID == job.ID {
			jobs = append(jobs, job)
			replaced = true
			continue
		}
		jobs = append(jobs, j)
	}
	if !replaced {
		jobs = append(jobs, job)
	}
	s.Jobs = jobs
	return s
}

// WithoutJob removes the job and cascades to its logs and templates.
func (s AppState) WithoutJob(id JobID) AppState {
	jobs := make([]Job, 0, len(s.Jobs))
	for _, j := range s.Jobs {
		if j.ID != id {
			jobs = append(jobs, j)
		}
	}
	logs := make([]WorkLog, 0, len(s.Logs))
	for _, l := range s.Logs {
		if l.JobID != id {
			logs = append(logs, l)
		}
	}
	templates := make([]ShiftTemplate, 0, len(s.Templates))
	for _, t := range s.Templates {
		if t.JobID != id {
			templates = append(templates, t)
		}
	}
	s.Jobs, s.Logs, s.Templates = jobs, logs, templates
	return s
}

// WithLog appends logs in order.
func (s AppState) WithLog(logs ...WorkLog) AppState {
	next := make([]WorkLog, 0, len(s.Logs)+len(logs))
	next = append(next, s.Logs...)
	next = append(next, logs...)
	s.Logs = next
	return s
}

func (s AppState) WithoutLog(id LogID) AppState {
	logs := make([]WorkLog, 0, len(s.Logs))
	for _, l := range s.Logs {
		if l.ID != id {
			logs = append(logs, l)
		}
	}
	s.Logs = logs
	return s
}

func (s AppState) WithTemplate(t ShiftTemplate) AppState {
	templates := make([]ShiftTemplate, 0, len(s.Templates)+1)
	templates = append(templates, s.Templates...)
	templates = append(templates, t)
	s.Templates = templates
	return s
}

func (s AppState) WithoutTemplate(id TemplateID) AppState {
	templates := make([]ShiftTemplate, 0, len(s.Templates))
	for _, t := range s.Templates {
		if t.ID != id {
			templates = append(templates, t)
		}
	}
	s.Templates = templates
	return s
}

func (s AppState) WithSettings(settings Settings) AppState {
	s.Settings = settings
	return s
}
