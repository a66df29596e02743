/*
handlers_test.go - HTTP tests for the API handlers

Tests drive the full router (middleware included) over an in-memory store
with a pinned clock, so every response is deterministic.
*/
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/payroll-engine/generic/store"
	"github.com/warp/payroll-engine/logging"
	"github.com/warp/payroll-engine/service"
	"golang.org/x/time/rate"
)

// 2024-03-14 is a Thursday.
var testNow = time.Date(2024, 3, 14, 12, 0, 0, 0, time.UTC)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	mem := store.NewMemory()
	n := 0
	svc, err := service.New(context.Background(), mem,
		service.WithBackups(mem),
		service.WithClock(func() time.Time { return testNow }),
		service.WithIDGenerator(func() string { n++; return fmt.Sprintf("id-%d", n) }),
	)
	require.NoError(t, err)

	opts := DefaultRouterOptions()
	opts.RateLimitRPS = 1000
	opts.RateLimitBurst = 1000
	return NewRouter(NewHandler(svc, nil), opts)
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

const cafeJSON = `{"name":"Cafe","hourly_rate":60,"weekend_hourly_rate":70,"target_hours":10,"next_hourly_rate":70,"next_weekend_hourly_rate":80}`

func createCafe(t *testing.T, h http.Handler) string {
	t.Helper()
	rec := do(t, h, http.MethodPost, "/api/jobs", cafeJSON)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decodeBody[JobDTO](t, rec).ID
}

func createLog(t *testing.T, h http.Handler, jobID, date string, hours float64) {
	t.Helper()
	body := fmt.Sprintf(`{"job_id":%q,"date":%q,"duration":%v}`, jobID, date, hours)
	rec := do(t, h, http.MethodPost, "/api/logs", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

// =============================================================================
// JOBS & LOGS
// =============================================================================

func TestJobsAndLogs_EarningsUseDayRate(t *testing.T) {
	h := newTestRouter(t)

	// GIVEN: A job with 60 weekday / 70 weekend
	jobID := createCafe(t, h)

	// WHEN: Logging a Saturday by times and a Tuesday by duration
	rec := do(t, h, http.MethodPost, "/api/logs",
		fmt.Sprintf(`{"job_id":%q,"date":"2024-03-09","start_time":"09:00","end_time":"14:00"}`, jobID))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	saturday := decodeBody[LogDTO](t, rec)
	createLog(t, h, jobID, "2024-03-12", 5)

	// THEN: Each log is valued at its own day's rate
	assert.Equal(t, 5.0, saturday.Duration)
	assert.Equal(t, 350.0, saturday.Earnings)

	rec = do(t, h, http.MethodGet, "/api/stats?job_id="+jobID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decodeBody[StatsDTO](t, rec)
	assert.Equal(t, 650.0, stats.Earnings)
	assert.Equal(t, 300.0, stats.Weekday.Earnings)
	assert.Equal(t, 350.0, stats.Weekend.Earnings)
	assert.Equal(t, 750.0, stats.PotentialValue)
	assert.Equal(t, 2, stats.LogCount)
}

func TestCreateJob_ValidationFails(t *testing.T) {
	h := newTestRouter(t)

	rec := do(t, h, http.MethodPost, "/api/jobs", `{"hourly_rate":-1}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeBody[ErrorResponse](t, rec)
	assert.Equal(t, "Validation failed", resp.Error)
	assert.NotEmpty(t, resp.Details)
}

func TestCreateLog_ErrorStatuses(t *testing.T) {
	h := newTestRouter(t)
	jobID := createCafe(t, h)

	tests := []struct {
		name string
		body string
		want int
	}{
		{"malformed json", `{"job_id":`, http.StatusBadRequest},
		{"bad date", fmt.Sprintf(`{"job_id":%q,"date":"14/03/2024","duration":2}`, jobID), http.StatusBadRequest},
		{"unknown job", `{"job_id":"nope","date":"2024-03-12","duration":2}`, http.StatusNotFound},
		{"zero duration", fmt.Sprintf(`{"job_id":%q,"date":"2024-03-12","duration":0}`, jobID), http.StatusUnprocessableEntity},
		{"only start time", fmt.Sprintf(`{"job_id":%q,"date":"2024-03-12","start_time":"09:00"}`, jobID), http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, "/api/logs", tt.body)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}

func TestDeleteJob_CascadesToLogs(t *testing.T) {
	h := newTestRouter(t)
	jobID := createCafe(t, h)
	createLog(t, h, jobID, "2024-03-12", 3)

	rec := do(t, h, http.MethodDelete, "/api/jobs/"+jobID, "")
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/logs?job_id="+jobID, "")
	assert.Empty(t, decodeBody[[]LogDTO](t, rec))
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodDelete, "/api/jobs/"+jobID, "").Code)
}

// =============================================================================
// PROMOTION
// =============================================================================

func TestPromote_ConflictUntilEligible(t *testing.T) {
	h := newTestRouter(t)
	jobID := createCafe(t, h)
	createLog(t, h, jobID, "2024-03-12", 4)

	// GIVEN: 4 of 10 hours
	rec := do(t, h, http.MethodGet, "/api/jobs/"+jobID+"/progress", "")
	progress := decodeBody[ProgressDTO](t, rec)
	assert.Equal(t, 40.0, progress.Percent)
	assert.False(t, progress.Eligible)
	assert.Equal(t, http.StatusConflict, do(t, h, http.MethodPost, "/api/jobs/"+jobID+"/promote", "").Code)

	// WHEN: The target is passed
	createLog(t, h, jobID, "2024-03-13", 8)

	// THEN: Promotion succeeds and percent is capped
	progress = decodeBody[ProgressDTO](t, do(t, h, http.MethodGet, "/api/jobs/"+jobID+"/progress", ""))
	assert.Equal(t, 100.0, progress.Percent)
	assert.Equal(t, 0.0, progress.RemainingHours)

	rec = do(t, h, http.MethodPost, "/api/jobs/"+jobID+"/promote", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 70.0, decodeBody[JobDTO](t, rec).HourlyRate)
}

// =============================================================================
// RECONCILIATION
// =============================================================================

func TestReconcile_CompareThenApply(t *testing.T) {
	h := newTestRouter(t)
	jobID := createCafe(t, h)
	createLog(t, h, jobID, "2024-03-05", 40)
	createLog(t, h, jobID, "2024-03-09", 10)

	body := fmt.Sprintf(`{"job_id":%q,"end_date":"2024-03-14","window_days":14,"weekday_hours":45,"weekend_hours":8,"tax_rate":20}`, jobID)

	// WHEN: Comparing
	rec := do(t, h, http.MethodPost, "/api/reconcile", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	result := decodeBody[ReconciliationDTO](t, rec)

	// THEN: Both hour types are off
	assert.False(t, result.Reconciled)
	assert.Equal(t, 5.0, result.DiffWeekdayHours)
	assert.Equal(t, -2.0, result.DiffWeekendHours)
	assert.Equal(t, 3100.0, result.AppGross)
	assert.Equal(t, 2480.0, result.AppNet)
	require.Len(t, result.Remediations, 2)
	assert.Equal(t, "backfill", result.Remediations[0].Kind)
	assert.Equal(t, "correction", result.Remediations[1].Kind)

	// WHEN: Applying a payslip whose weekend hours match
	weekdayOnly := fmt.Sprintf(`{"job_id":%q,"end_date":"2024-03-14","window_days":14,"weekday_hours":45,"weekend_hours":10}`, jobID)
	rec = do(t, h, http.MethodPost, "/api/reconcile/apply", weekdayOnly)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	applied := decodeBody[struct {
		Created        []LogDTO          `json:"created"`
		Reconciliation ReconciliationDTO `json:"reconciliation"`
	}](t, rec)

	// THEN: One backfill log dated at the window end closes the gap
	require.Len(t, applied.Created, 1)
	assert.Equal(t, "2024-03-14", applied.Created[0].Date)
	assert.Equal(t, 5.0, applied.Created[0].Duration)
	assert.Equal(t, 300.0, applied.Created[0].Earnings)
	assert.True(t, applied.Reconciliation.Reconciled)
}

func TestReconcile_WeekendCorrectionOnWeekdayEndDate(t *testing.T) {
	h := newTestRouter(t)
	jobID := createCafe(t, h)
	createLog(t, h, jobID, "2024-03-09", 10)

	// GIVEN: The app has 2 weekend hours more than the slip; the window ends on a Thursday
	body := fmt.Sprintf(`{"job_id":%q,"end_date":"2024-03-14","window_days":14,"weekday_hours":0,"weekend_hours":8}`, jobID)

	rec := do(t, h, http.MethodPost, "/api/reconcile/apply", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	applied := decodeBody[struct {
		Created        []LogDTO          `json:"created"`
		Reconciliation ReconciliationDTO `json:"reconciliation"`
	}](t, rec)

	// THEN: The correction log is dated by its end date and counts as weekday hours
	require.Len(t, applied.Created, 1)
	assert.Equal(t, -2.0, applied.Created[0].Duration)
	assert.Equal(t, -120.0, applied.Created[0].Earnings)
	assert.Equal(t, -2.0, applied.Reconciliation.AppWeekdayHours)
	assert.Equal(t, 10.0, applied.Reconciliation.AppWeekendHours)
}

func TestReconcile_ApplyCountsOnce(t *testing.T) {
	h := newTestRouter(t)
	jobID := createCafe(t, h)
	createLog(t, h, jobID, "2024-03-05", 40)
	before := reconciliationCounts(t, h)

	// WHEN: Applying a payslip with 5 more weekday hours
	body := fmt.Sprintf(`{"job_id":%q,"end_date":"2024-03-14","window_days":14,"weekday_hours":45}`, jobID)
	rec := do(t, h, http.MethodPost, "/api/reconcile/apply", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// THEN: Only the apply is counted, not a comparison on top of it
	after := reconciliationCounts(t, h)
	assert.Equal(t, before["applied"]+1, after["applied"])
	assert.Equal(t, before["mismatch"], after["mismatch"])
	assert.Equal(t, before["reconciled"], after["reconciled"])
}

// reconciliationCounts scrapes payroll_reconciliations_total by outcome.
func reconciliationCounts(t *testing.T, h http.Handler) map[string]float64 {
	t.Helper()
	rec := do(t, h, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)

	counts := map[string]float64{}
	for _, line := range strings.Split(rec.Body.String(), "\n") {
		rest, ok := strings.CutPrefix(line, `payroll_reconciliations_total{outcome="`)
		if !ok {
			continue
		}
		outcome, value, ok := strings.Cut(rest, `"} `)
		require.True(t, ok, line)
		v, err := strconv.ParseFloat(value, 64)
		require.NoError(t, err)
		counts[outcome] = v
	}
	return counts
}

func TestReconcile_RejectsOtherWindows(t *testing.T) {
	h := newTestRouter(t)
	jobID := createCafe(t, h)

	rec := do(t, h, http.MethodPost, "/api/reconcile",
		fmt.Sprintf(`{"job_id":%q,"end_date":"2024-03-14","window_days":21}`, jobID))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// =============================================================================
// STATS
// =============================================================================

func TestBuckets(t *testing.T) {
	h := newTestRouter(t)
	jobID := createCafe(t, h)
	createLog(t, h, jobID, "2024-03-11", 2)

	rec := do(t, h, http.MethodGet, "/api/stats/buckets?mode=week", "")
	require.Equal(t, http.StatusOK, rec.Code)
	buckets := decodeBody[[]BucketDTO](t, rec)
	require.Len(t, buckets, 7)
	assert.Equal(t, "Mon", buckets[0].Label)
	assert.Equal(t, "2024-03-11", buckets[0].Key)
	assert.Equal(t, 120.0, buckets[0].Earnings)
	assert.True(t, buckets[5].IsWeekend)

	rec = do(t, h, http.MethodGet, "/api/stats/buckets?mode=history&ref=2024-03-31", "")
	history := decodeBody[[]BucketDTO](t, rec)
	require.Len(t, history, 6)
	assert.Equal(t, "2023-10", history[0].Key)
	assert.Equal(t, "Mar", history[5].Label)

	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/api/stats/buckets?mode=yearly", "").Code)
}

func TestStats_RangeParams(t *testing.T) {
	h := newTestRouter(t)
	jobID := createCafe(t, h)
	createLog(t, h, jobID, "2024-03-01", 1)
	createLog(t, h, jobID, "2024-03-10", 1)

	stats := decodeBody[StatsDTO](t, do(t, h, http.MethodGet, "/api/stats?start=2024-03-01&end=2024-03-09", ""))
	assert.Equal(t, 1, stats.LogCount)

	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/api/stats?start=2024-03-01", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/api/stats?start=2024-03-10&end=2024-03-01", "").Code)
}

func TestPayPeriod_Monthly(t *testing.T) {
	h := newTestRouter(t)
	rec := do(t, h, http.MethodPut, "/api/settings", `{"currency":"eur","pay_frequency":"monthly","tax_rate":10}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "EUR", decodeBody[SettingsDTO](t, rec).Currency)

	summary := decodeBody[PayPeriodDTO](t, do(t, h, http.MethodGet, "/api/stats/pay-period", ""))

	assert.Equal(t, "monthly", summary.Frequency)
	assert.Equal(t, "2024-03-01", summary.PayPeriod.CurrentStart)
	assert.Equal(t, "2024-03-31", summary.PayPeriod.CurrentEnd)
	assert.Equal(t, "2024-02-01", summary.PayPeriod.PreviousStart)
	assert.Equal(t, "2024-03-01", summary.Lookback.CurrentStart)
}

// =============================================================================
// CALENDAR
// =============================================================================

func TestSelection_Cycle(t *testing.T) {
	h := newTestRouter(t)
	jobID := createCafe(t, h)
	createLog(t, h, jobID, "2024-03-12", 2)

	sel := decodeBody[SelectionDTO](t, do(t, h, http.MethodPost, "/api/selection", `{"date":"2024-03-13"}`))
	assert.Equal(t, "single", sel.State)
	assert.Equal(t, 0.0, sel.Hours)

	sel = decodeBody[SelectionDTO](t, do(t, h, http.MethodPost, "/api/selection", `{"date":"2024-03-11"}`))
	assert.Equal(t, "range", sel.State)
	assert.Equal(t, "2024-03-11", sel.Start)
	assert.Equal(t, "2024-03-13", sel.End)
	assert.Equal(t, 120.0, sel.Earnings)

	sel = decodeBody[SelectionDTO](t, do(t, h, http.MethodDelete, "/api/selection", ""))
	assert.Equal(t, "empty", sel.State)
}

// =============================================================================
// EXPORT / IMPORT / BACKUPS
// =============================================================================

func TestExport_CSVAndJSON(t *testing.T) {
	h := newTestRouter(t)
	jobID := createCafe(t, h)
	createLog(t, h, jobID, "2024-03-12", 2)

	rec := do(t, h, http.MethodGet, "/api/export", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/csv")
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, `2024-03-12,Cafe,,,2,60.00,120.00,""`, lines[1])

	rec = do(t, h, http.MethodGet, "/api/export?format=json", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"jobName": "Cafe"`)

	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/api/export?format=xml", "").Code)
}

func TestImport_RoundTripAndMalformed(t *testing.T) {
	h := newTestRouter(t)
	jobID := createCafe(t, h)
	createLog(t, h, jobID, "2024-03-12", 2)

	exported := do(t, h, http.MethodGet, "/api/export/state", "").Body.Bytes()

	// Malformed blobs are rejected and change nothing
	rec := do(t, h, http.MethodPost, "/api/import", `{"jobs": 12`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	// A legacy blob replaces the state
	rec = do(t, h, http.MethodPost, "/api/import", `{"logs":[{"id":"x","date":"2024-01-02","duration":3}],"settings":{}}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Len(t, decodeBody[StateDTO](t, do(t, h, http.MethodGet, "/api/state", "")).Jobs, 1)

	// Re-importing the export restores it
	req := httptest.NewRequest(http.MethodPost, "/api/import", bytes.NewReader(exported))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	state := decodeBody[StateDTO](t, do(t, h, http.MethodGet, "/api/state", ""))
	assert.Len(t, state.Jobs, 2)
	assert.Len(t, state.Logs, 1)
	assert.NotNil(t, state.Settings.LastBackupAt)

	backups := decodeBody[[]BackupDTO](t, do(t, h, http.MethodGet, "/api/backups", ""))
	require.Len(t, backups, 2)
	assert.Equal(t, "import", backups[0].Reason)
}

// =============================================================================
// SCENARIOS & MIDDLEWARE
// =============================================================================

func TestLoadScenario(t *testing.T) {
	h := newTestRouter(t)

	rec := do(t, h, http.MethodPost, "/api/scenarios/load", `{"scenario_id":"two-jobs"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	state := decodeBody[StateDTO](t, do(t, h, http.MethodGet, "/api/state", ""))
	assert.Len(t, state.Jobs, 2)
	assert.Len(t, state.Templates, 2)
	assert.NotEmpty(t, state.Logs)
	assert.Equal(t, "two-jobs", decodeBody[ScenarioDTO](t, do(t, h, http.MethodGet, "/api/scenarios/current", "")).ID)

	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPost, "/api/scenarios/load", `{"scenario_id":"nope"}`).Code)
}

func TestPayslipMismatchScenario_IsShortBySixHours(t *testing.T) {
	h := newTestRouter(t)
	require.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/api/scenarios/load", `{"scenario_id":"payslip-mismatch"}`).Code)

	// 10 weekdays x 3h, 4 weekend days x 5h in the window
	rec := do(t, h, http.MethodPost, "/api/reconcile",
		`{"job_id":"demo-main","end_date":"2024-03-14","window_days":14,"weekday_hours":30,"weekend_hours":20}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	result := decodeBody[ReconciliationDTO](t, rec)
	assert.Equal(t, 6.0, result.DiffWeekdayHours)
	assert.Equal(t, 0.0, result.DiffWeekendHours)
}

func TestRateLimit_Returns429(t *testing.T) {
	limited := RateLimit(rate.NewLimiter(0, 1), logging.Discard())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	first := httptest.NewRecorder()
	limited.ServeHTTP(first, httptest.NewRequest(http.MethodPost, "/api/logs", nil))
	second := httptest.NewRecorder()
	limited.ServeHTTP(second, httptest.NewRequest(http.MethodPost, "/api/logs", nil))

	assert.Equal(t, http.StatusNoContent, first.Code)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	h := newTestRouter(t)
	createCafe(t, h)

	rec := do(t, h, http.MethodGet, "/metrics", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "payroll_state_saves_total")
}
