/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:
	Provides pre-built data sets that replace the app state with realistic
	jobs and shifts. Every shift is dated relative to today so charts and
	the pay period card always have something to show.

AVAILABLE SCENARIOS:
	single-job:        One job close to its promotion target
	two-jobs:          Weekday cafe job plus a weekend bar job
	payslip-mismatch:  Logs short of a payslip by a few weekday hours

HOW SCENARIOS WORK:
 1. Build a fresh AppState in memory (default settings, no Main Job)
 2. Add jobs, templates and logs
 3. Commit it through service.ReplaceState (persisted like any mutation)

USAGE VIA API:
	POST /api/scenarios/load
	{"scenario_id": "two-jobs"}

NOTE:
	Scenarios replace all data. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: Handler wiring
  - service/service.go: ReplaceState
*/
package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/payroll-engine/generic"
	"github.com/warp/payroll-engine/payroll"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "single-job",
		Name:        "Single Job",
		Description: "One job a few hours short of its promotion target",
	},
	{
		ID:          "two-jobs",
		Name:        "Two Jobs",
		Description: "Weekday cafe shifts plus weekend bar shifts with templates",
	},
	{
		ID:          "payslip-mismatch",
		Name:        "Payslip Mismatch",
		Description: "Last two weeks of logs are 6 weekday hours short of the payslip",
	},
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	current := h.currentScenario
	h.mu.Unlock()

	for _, s := range scenarios {
		if s.ID == current {
			writeJSON(w, r, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, r, http.StatusOK, nil)
}

// LoadScenario replaces the state with a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if !h.decode(w, r, &req) {
		return
	}

	build, ok := scenarioBuilders[req.ScenarioID]
	if !ok {
		writeError(w, r, http.StatusBadRequest, "Unknown scenario", nil)
		return
	}

	state := build(h.svc.Today(), time.Now().UTC())
	if err := h.svc.ReplaceState(r.Context(), state); err != nil {
		h.fail(w, r, fmt.Sprintf("Failed to load scenario: %v", err), err)
		return
	}

	h.mu.Lock()
	h.currentScenario = req.ScenarioID
	h.mu.Unlock()

	writeJSON(w, r, http.StatusOK, map[string]string{"status": "loaded", "scenario": req.ScenarioID})
}

// =============================================================================
// SCENARIO BUILDERS
// =============================================================================

var scenarioBuilders = map[string]func(today generic.Date, now time.Time) payroll.AppState{
	"single-job":       singleJobScenario,
	"two-jobs":         twoJobsScenario,
	"payslip-mismatch": payslipMismatchScenario,
}

// scenarioBuilder accumulates logs with readable ids.
type scenarioBuilder struct {
	state payroll.AppState
	now   time.Time
	n     int
}

func newScenario(now time.Time, jobs ...payroll.Job) *scenarioBuilder {
	b := &scenarioBuilder{now: now}
	b.state.Settings = payroll.DefaultSettings()
	for _, j := range jobs {
		b.state = b.state.WithJob(j)
	}
	return b
}

func (b *scenarioBuilder) shift(job payroll.JobID, date generic.Date, start, end, notes string) {
	b.n++
	log, err := payroll.NewWorkLog(payroll.LogInput{
		JobID:     job,
		Date:      date,
		StartTime: start,
		EndTime:   end,
		Notes:     notes,
	}, payroll.LogID(fmt.Sprintf("demo-log-%03d", b.n)), b.now)
	if err != nil {
		panic(err)
	}
	b.state = b.state.WithLog(log)
}

func (b *scenarioBuilder) hours(job payroll.JobID, date generic.Date, hours string) {
	b.n++
	log, err := payroll.NewWorkLog(payroll.LogInput{
		JobID:    job,
		Date:     date,
		Duration: decimal.RequireFromString(hours),
	}, payroll.LogID(fmt.Sprintf("demo-log-%03d", b.n)), b.now)
	if err != nil {
		panic(err)
	}
	b.state = b.state.WithLog(log)
}

func demoJob(id, name, color string, rate, weekend, target, next, nextWeekend int64) payroll.Job {
	return payroll.Job{
		ID:                    payroll.JobID(id),
		Name:                  name,
		Color:                 color,
		HourlyRate:            decimal.NewFromInt(rate),
		WeekendHourlyRate:     decimal.NewFromInt(weekend),
		TargetHours:           decimal.NewFromInt(target),
		NextHourlyRate:        decimal.NewFromInt(next),
		NextWeekendHourlyRate: decimal.NewFromInt(nextWeekend),
	}
}

// singleJobScenario: 94 of 100 hours over the last five weeks.
func singleJobScenario(today generic.Date, now time.Time) payroll.AppState {
	b := newScenario(now, demoJob("demo-main", "Main Job", "#4f46e5", 60, 70, 100, 70, 80))

	for i := 34; i >= 1; i-- {
		d := today.AddDays(-i)
		if d.IsWeekend() && i%3 != 0 {
			continue
		}
		b.hours("demo-main", d, "4")
		if b.n == 23 {
			break
		}
	}
	b.shift("demo-main", today, "09:00", "11:00", "Morning inventory")
	return b.state
}

// twoJobsScenario: cafe on weekdays, bar on weekends, three weeks back.
func twoJobsScenario(today generic.Date, now time.Time) payroll.AppState {
	b := newScenario(now,
		demoJob("demo-cafe", "Cafe", "#0ea5e9", 55, 65, 120, 60, 70),
		demoJob("demo-bar", "Bar", "#f97316", 70, 90, 80, 80, 100),
	)
	b.state = b.state.
		WithTemplate(payroll.ShiftTemplate{ID: "demo-tpl-open", JobID: "demo-cafe", StartTime: "07:00", EndTime: "12:00", Notes: "Opening"}).
		WithTemplate(payroll.ShiftTemplate{ID: "demo-tpl-late", JobID: "demo-bar", StartTime: "20:00", EndTime: "02:00", Notes: "Late shift"})

	for i := 20; i >= 0; i-- {
		d := today.AddDays(-i)
		if d.IsWeekend() {
			b.shift("demo-bar", d, "20:00", "02:00", "Late shift")
			continue
		}
		if d.Weekday() != time.Wednesday {
			b.shift("demo-cafe", d, "07:00", "12:00", "Opening")
		}
	}
	return b.state
}

// payslipMismatchScenario: the last 14 days miss two 3-hour weekday shifts.
func payslipMismatchScenario(today generic.Date, now time.Time) payroll.AppState {
	b := newScenario(now, demoJob("demo-main", "Main Job", "#4f46e5", 60, 70, 100, 70, 80))

	skipped := 0
	for i := 13; i >= 0; i-- {
		d := today.AddDays(-i)
		if d.IsWeekend() {
			b.hours("demo-main", d, "5")
			continue
		}
		if skipped < 2 && d.Weekday() == time.Tuesday {
			skipped++
			continue
		}
		b.hours("demo-main", d, "3")
	}
	return b.state
}
