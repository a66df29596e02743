/*
handlers.go - HTTP API handlers for the payroll engine

PURPOSE:
  Exposes the payroll service via REST API. Handles HTTP request/response,
  JSON serialization and validation, and delegates to the service.

ENDPOINTS:
  State:
    GET    /api/state                   Jobs, logs, templates and settings

  Jobs:
    GET    /api/jobs                    List jobs
    POST   /api/jobs                    Create job
    PUT    /api/jobs/{id}               Update job
    DELETE /api/jobs/{id}               Delete job (cascades to logs, templates)
    GET    /api/jobs/{id}/progress      Progress toward promotion
    POST   /api/jobs/{id}/promote       Apply next rate tier (409 if not eligible)

  Logs & Templates:
    GET    /api/logs                    List logs (?job_id, ?start, ?end)
    POST   /api/logs                    Log a shift
    DELETE /api/logs/{id}               Delete a shift
    GET    /api/templates               List templates
    POST   /api/templates               Create template
    DELETE /api/templates/{id}          Delete template
    POST   /api/templates/{id}/apply    Log the template's shift on a date

  Settings:
    GET    /api/settings
    PUT    /api/settings

  Stats:
    GET    /api/stats                   Totals (?job_id, ?start, ?end)
    GET    /api/stats/buckets           Chart buckets (?mode, ?ref, ?job_id)
    GET    /api/stats/pay-period        Pay period card (?job_id, ?ref)

  Reconciliation:
    POST   /api/reconcile               Compare a payslip with the logs
    POST   /api/reconcile/apply         Store compensating logs

  Calendar:
    GET    /api/selection
    POST   /api/selection               Click a date
    DELETE /api/selection               Clear

  Export / Import / Backups:
    GET    /api/export                  Log rows (?format=csv|json, ?job_id)
    GET    /api/export/state            Full state blob
    POST   /api/import                  Replace state with a blob (any schema)
    GET    /api/backups                 Backup history (?limit)
    POST   /api/backups                 Take a backup

  Scenarios:
    GET    /api/scenarios               List demo scenarios
    POST   /api/scenarios/load          Load a demo scenario

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Malformed body, failed field validation, bad query parameters
  - 404: Job, log, template or backup not found
  - 409: Promotion requested before the job is eligible
  - 422: Engine rejected the input (duration, window, settings, blob)
  - 501: Backups requested on a store without history
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"
	"github.com/warp/payroll-engine/generic"
	"github.com/warp/payroll-engine/logging"
	"github.com/warp/payroll-engine/payroll"
	"github.com/warp/payroll-engine/service"
)

// maxImportBytes bounds an imported state blob.
const maxImportBytes = 10 << 20

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	svc      *service.Service
	log      *slog.Logger
	validate *validator.Validate

	mu              sync.Mutex
	currentScenario string
}

// NewHandler creates a new handler around the service.
func NewHandler(svc *service.Service, log *slog.Logger) *Handler {
	if log == nil {
		log = logging.Discard()
	}
	return &Handler{
		svc:      svc,
		log:      log,
		validate: validator.New(),
	}
}

// =============================================================================
// STATE
// =============================================================================

// StateDTO is the whole app state.
type StateDTO struct {
	Jobs      []JobDTO      `json:"jobs"`
	Logs      []LogDTO      `json:"logs"`
	Templates []TemplateDTO `json:"templates"`
	Settings  SettingsDTO   `json:"settings"`
}

// GetState returns everything the dashboard renders.
func (h *Handler) GetState(w http.ResponseWriter, r *http.Request) {
	state := h.svc.State()
	jobs := state.JobsByID()

	dto := StateDTO{
		Jobs:      make([]JobDTO, 0, len(state.Jobs)),
		Logs:      make([]LogDTO, 0, len(state.Logs)),
		Templates: make([]TemplateDTO, 0, len(state.Templates)),
		Settings:  toSettingsDTO(state.Settings),
	}
	for _, j := range state.Jobs {
		dto.Jobs = append(dto.Jobs, toJobDTO(j))
	}
	for _, l := range state.Logs {
		dto.Logs = append(dto.Logs, toLogDTO(l, jobs))
	}
	for _, t := range state.Templates {
		dto.Templates = append(dto.Templates, toTemplateDTO(t))
	}
	writeJSON(w, r, http.StatusOK, dto)
}

// =============================================================================
// JOB HANDLERS
// =============================================================================

func (h *Handler) ListJobs(w http.ResponseWriter, r *http.Request) {
	state := h.svc.State()
	dtos := make([]JobDTO, 0, len(state.Jobs))
	for _, j := range state.Jobs {
		dtos = append(dtos, toJobDTO(j))
	}
	writeJSON(w, r, http.StatusOK, dtos)
}

func (h *Handler) CreateJob(w http.ResponseWriter, r *http.Request) {
	var req JobRequest
	if !h.decode(w, r, &req) {
		return
	}

	job, err := h.svc.AddJob(r.Context(), req.toJob(""))
	if err != nil {
		h.fail(w, r, "Failed to create job", err)
		return
	}
	writeJSON(w, r, http.StatusCreated, toJobDTO(job))
}

func (h *Handler) UpdateJob(w http.ResponseWriter, r *http.Request) {
	var req JobRequest
	if !h.decode(w, r, &req) {
		return
	}

	job, err := h.svc.UpdateJob(r.Context(), req.toJob(payroll.JobID(chi.URLParam(r, "id"))))
	if err != nil {
		h.fail(w, r, "Failed to update job", err)
		return
	}
	writeJSON(w, r, http.StatusOK, toJobDTO(job))
}

func (h *Handler) DeleteJob(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteJob(r.Context(), payroll.JobID(chi.URLParam(r, "id"))); err != nil {
		h.fail(w, r, "Failed to delete job", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetProgress returns a job's lifetime hours against its target.
func (h *Handler) GetProgress(w http.ResponseWriter, r *http.Request) {
	progress, err := h.svc.Progress(payroll.JobID(chi.URLParam(r, "id")))
	if err != nil {
		h.fail(w, r, "Failed to get progress", err)
		return
	}
	writeJSON(w, r, http.StatusOK, toProgressDTO(progress))
}

// PromoteJob moves an eligible job onto its next tier.
func (h *Handler) PromoteJob(w http.ResponseWriter, r *http.Request) {
	job, err := h.svc.Promote(r.Context(), payroll.JobID(chi.URLParam(r, "id")))
	if err != nil {
		h.fail(w, r, "Failed to promote job", err)
		return
	}
	writeJSON(w, r, http.StatusOK, toJobDTO(job))
}

// =============================================================================
// LOG HANDLERS
// =============================================================================

// ListLogs returns logs in stored order, optionally filtered.
func (h *Handler) ListLogs(w http.ResponseWriter, r *http.Request) {
	period, err := periodParams(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "Invalid date range", err)
		return
	}

	filter := payroll.ForJob(payroll.JobID(r.URL.Query().Get("job_id")))
	if period != nil {
		filter = payroll.AllOf(filter, payroll.InPeriod(*period))
	}

	state := h.svc.State()
	jobs := state.JobsByID()
	dtos := make([]LogDTO, 0, len(state.Logs))
	for _, l := range state.Logs {
		if filter == nil || filter(l) {
			dtos = append(dtos, toLogDTO(l, jobs))
		}
	}
	writeJSON(w, r, http.StatusOK, dtos)
}

func (h *Handler) CreateLog(w http.ResponseWriter, r *http.Request) {
	var req CreateLogRequest
	if !h.decode(w, r, &req) {
		return
	}

	date, err := generic.ParseDate(req.Date)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)", err)
		return
	}

	log, err := h.svc.AddLog(r.Context(), payroll.LogInput{
		JobID:     payroll.JobID(req.JobID),
		Date:      date,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		Duration:  dec(req.Duration),
		Notes:     req.Notes,
	})
	if err != nil {
		h.fail(w, r, "Failed to create log", err)
		return
	}
	writeJSON(w, r, http.StatusCreated, toLogDTO(log, h.svc.State().JobsByID()))
}

func (h *Handler) DeleteLog(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteLog(r.Context(), payroll.LogID(chi.URLParam(r, "id"))); err != nil {
		h.fail(w, r, "Failed to delete log", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// TEMPLATE HANDLERS
// =============================================================================

func (h *Handler) ListTemplates(w http.ResponseWriter, r *http.Request) {
	state := h.svc.State()
	dtos := make([]TemplateDTO, 0, len(state.Templates))
	for _, t := range state.Templates {
		dtos = append(dtos, toTemplateDTO(t))
	}
	writeJSON(w, r, http.StatusOK, dtos)
}

func (h *Handler) CreateTemplate(w http.ResponseWriter, r *http.Request) {
	var req CreateTemplateRequest
	if !h.decode(w, r, &req) {
		return
	}

	tpl, err := h.svc.AddTemplate(r.Context(), payroll.ShiftTemplate{
		JobID:     payroll.JobID(req.JobID),
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		Notes:     req.Notes,
	})
	if err != nil {
		h.fail(w, r, "Failed to create template", err)
		return
	}
	writeJSON(w, r, http.StatusCreated, toTemplateDTO(tpl))
}

func (h *Handler) DeleteTemplate(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteTemplate(r.Context(), payroll.TemplateID(chi.URLParam(r, "id"))); err != nil {
		h.fail(w, r, "Failed to delete template", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ApplyTemplate logs the template's shift on the requested day.
func (h *Handler) ApplyTemplate(w http.ResponseWriter, r *http.Request) {
	var req ApplyTemplateRequest
	if !h.decode(w, r, &req) {
		return
	}
	date, err := generic.ParseDate(req.Date)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)", err)
		return
	}

	log, err := h.svc.AddLogFromTemplate(r.Context(), payroll.TemplateID(chi.URLParam(r, "id")), date)
	if err != nil {
		h.fail(w, r, "Failed to apply template", err)
		return
	}
	writeJSON(w, r, http.StatusCreated, toLogDTO(log, h.svc.State().JobsByID()))
}

// =============================================================================
// SETTINGS HANDLERS
// =============================================================================

func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, toSettingsDTO(h.svc.State().Settings))
}

func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req UpdateSettingsRequest
	if !h.decode(w, r, &req) {
		return
	}

	settings, err := h.svc.UpdateSettings(r.Context(), payroll.Settings{
		Currency:     strings.ToUpper(req.Currency),
		DisplayName:  req.DisplayName,
		PayFrequency: generic.PayFrequency(req.PayFrequency),
		TaxRate:      dec(req.TaxRate),
		Theme:        req.Theme,
	})
	if err != nil {
		h.fail(w, r, "Failed to update settings", err)
		return
	}
	writeJSON(w, r, http.StatusOK, toSettingsDTO(settings))
}

// =============================================================================
// STATS HANDLERS
// =============================================================================

// GetStats aggregates logs over an optional inclusive range.
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	period, err := periodParams(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "Invalid date range", err)
		return
	}

	stats := h.svc.Stats(service.StatsQuery{
		Period: period,
		JobID:  payroll.JobID(r.URL.Query().Get("job_id")),
	})
	writeJSON(w, r, http.StatusOK, toStatsDTO(stats))
}

// GetBuckets returns chart buckets. mode defaults to "recent", ref to today.
func (h *Handler) GetBuckets(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	modeParam := q.Get("mode")
	if modeParam == "" {
		modeParam = string(payroll.BucketRecent)
	}
	mode, err := payroll.ParseBucketMode(modeParam)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "Invalid mode", err)
		return
	}
	ref, err := dateParam(r, "ref")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "Invalid ref date", err)
		return
	}

	buckets, err := h.svc.Buckets(mode, ref, payroll.JobID(q.Get("job_id")))
	if err != nil {
		h.fail(w, r, "Failed to build buckets", err)
		return
	}
	dtos := make([]BucketDTO, 0, len(buckets))
	for _, b := range buckets {
		dtos = append(dtos, toBucketDTO(b))
	}
	writeJSON(w, r, http.StatusOK, dtos)
}

// GetPayPeriod returns the pay period and 14-day lookback comparisons.
func (h *Handler) GetPayPeriod(w http.ResponseWriter, r *http.Request) {
	ref, err := dateParam(r, "ref")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "Invalid ref date", err)
		return
	}
	summary := h.svc.PayPeriod(payroll.JobID(r.URL.Query().Get("job_id")), ref)
	writeJSON(w, r, http.StatusOK, toPayPeriodDTO(summary))
}

// =============================================================================
// RECONCILIATION HANDLERS
// =============================================================================

// Reconcile compares a payslip with the logs. Nothing is stored.
func (h *Handler) Reconcile(w http.ResponseWriter, r *http.Request) {
	req, ok := h.reconcileRequest(w, r)
	if !ok {
		return
	}

	result, err := h.svc.Reconcile(req)
	if err != nil {
		h.fail(w, r, "Failed to reconcile", err)
		return
	}
	writeJSON(w, r, http.StatusOK, toReconciliationDTO(result))
}

// ApplyReconciliation stores one compensating log per mismatched hour type
// and returns the comparison as it stands afterwards.
func (h *Handler) ApplyReconciliation(w http.ResponseWriter, r *http.Request) {
	req, ok := h.reconcileRequest(w, r)
	if !ok {
		return
	}

	applied, err := h.svc.ApplyReconciliation(r.Context(), req)
	if err != nil {
		h.fail(w, r, "Failed to apply reconciliation", err)
		return
	}

	jobs := h.svc.State().JobsByID()
	logs := make([]LogDTO, 0, len(applied.Created))
	for _, l := range applied.Created {
		logs = append(logs, toLogDTO(l, jobs))
	}
	writeJSON(w, r, http.StatusOK, map[string]any{
		"created":        logs,
		"reconciliation": toReconciliationDTO(applied.Reconciliation),
	})
}

func (h *Handler) reconcileRequest(w http.ResponseWriter, r *http.Request) (service.ReconcileRequest, bool) {
	var req ReconcileRequest
	if !h.decode(w, r, &req) {
		return service.ReconcileRequest{}, false
	}
	end, err := generic.ParseDate(req.EndDate)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "Invalid end_date format (use YYYY-MM-DD)", err)
		return service.ReconcileRequest{}, false
	}
	return req.toService(end), true
}

// =============================================================================
// CALENDAR HANDLERS
// =============================================================================

func (h *Handler) GetSelection(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, toSelectionDTO(h.svc.Selection()))
}

// SelectDate applies one click: start, extend to a range, or start over.
func (h *Handler) SelectDate(w http.ResponseWriter, r *http.Request) {
	var req SelectDateRequest
	if !h.decode(w, r, &req) {
		return
	}
	date, err := generic.ParseDate(req.Date)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)", err)
		return
	}
	writeJSON(w, r, http.StatusOK, toSelectionDTO(h.svc.SelectDate(date)))
}

func (h *Handler) ClearSelection(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, toSelectionDTO(h.svc.ClearSelection()))
}

// =============================================================================
// EXPORT / IMPORT / BACKUP HANDLERS
// =============================================================================

// Export writes log rows as CSV (default) or JSON.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	rows := h.svc.ExportRows(payroll.JobID(r.URL.Query().Get("job_id")))
	filename := "shifts-" + h.svc.Today().String()

	var err error
	switch format := r.URL.Query().Get("format"); format {
	case "", "csv":
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename+".csv"))
		err = service.WriteCSV(w, rows)
	case "json":
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename+".json"))
		err = service.WriteJSON(w, rows)
	default:
		writeError(w, r, http.StatusBadRequest, "Unknown format (use csv or json)", nil)
		return
	}
	if err != nil {
		h.log.Error("export failed", slog.String("op", "api.Export"), logging.Err(err))
	}
}

// ExportState returns the full state blob in the current schema.
func (h *Handler) ExportState(w http.ResponseWriter, r *http.Request) {
	blob, err := h.svc.ExportState()
	if err != nil {
		h.fail(w, r, "Failed to export state", err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "payroll-state-"+h.svc.Today().String()+".json"))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(blob)
}

// Import replaces the whole state. The body is the blob itself.
func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	blob, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxImportBytes))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "Failed to read body", err)
		return
	}

	state, err := h.svc.Import(r.Context(), blob)
	if err != nil {
		h.fail(w, r, "Failed to import state", err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{
		"status":    "imported",
		"jobs":      len(state.Jobs),
		"logs":      len(state.Logs),
		"templates": len(state.Templates),
	})
}

func (h *Handler) ListBackups(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			writeError(w, r, http.StatusBadRequest, "Invalid limit", err)
			return
		}
		limit = n
	}

	backups, err := h.svc.Backups(r.Context(), limit)
	if err != nil {
		h.fail(w, r, "Failed to list backups", err)
		return
	}
	dtos := make([]BackupDTO, 0, len(backups))
	for _, b := range backups {
		dtos = append(dtos, toBackupDTO(b))
	}
	writeJSON(w, r, http.StatusOK, dtos)
}

func (h *Handler) CreateBackup(w http.ResponseWriter, r *http.Request) {
	b, err := h.svc.Backup(r.Context())
	if err != nil {
		h.fail(w, r, "Failed to take backup", err)
		return
	}
	writeJSON(w, r, http.StatusCreated, toBackupDTO(b))
}

// =============================================================================
// HELPERS
// =============================================================================

// decode reads and validates a JSON body. On failure it has already responded.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := render.DecodeJSON(r.Body, v); err != nil {
		writeError(w, r, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	if err := h.validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			writeError(w, r, http.StatusBadRequest, "Validation failed", validationMessages(verrs))
			return false
		}
		writeError(w, r, http.StatusBadRequest, "Validation failed", err)
		return false
	}
	return true
}

func validationMessages(errs validator.ValidationErrors) []string {
	msgs := make([]string, 0, len(errs))
	for _, err := range errs {
		switch err.ActualTag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("field %s is required", err.Field()))
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("field %s must be one of [%s]", err.Field(), err.Param()))
		case "gte", "lte":
			msgs = append(msgs, fmt.Sprintf("field %s is out of range (%s %s)", err.Field(), err.ActualTag(), err.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("field %s is not valid", err.Field()))
		}
	}
	return msgs
}

// fail maps a service error onto its status and logs server-side failures.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, message string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.log.Error(message,
			slog.String("request_id", middleware.GetReqID(r.Context())),
			logging.Err(err),
		)
	}
	writeError(w, r, status, message, err)
}

func statusFor(err error) int {
	switch {
	case service.IsNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, service.ErrNotEligible):
		return http.StatusConflict
	case errors.Is(err, service.ErrBackupsUnavailable):
		return http.StatusNotImplemented
	case service.IsClientError(err):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func dateParam(r *http.Request, name string) (generic.Date, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return generic.Date{}, nil
	}
	return generic.ParseDate(s)
}

// periodParams reads ?start and ?end. Both or neither must be set.
func periodParams(r *http.Request) (*generic.Period, error) {
	start, err := dateParam(r, "start")
	if err != nil {
		return nil, err
	}
	end, err := dateParam(r, "end")
	if err != nil {
		return nil, err
	}
	if start.IsZero() && end.IsZero() {
		return nil, nil
	}
	if start.IsZero() || end.IsZero() {
		return nil, errors.New("start and end must be set together")
	}
	p, err := generic.NewPeriod(start, end)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	render.Status(r, status)
	render.JSON(w, r, data)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, message string, details any) {
	resp := ErrorResponse{Error: message}
	switch d := details.(type) {
	case nil:
	case error:
		if d != nil {
			resp.Details = d.Error()
		}
	default:
		resp.Details = d
	}
	writeJSON(w, r, status, resp)
}
