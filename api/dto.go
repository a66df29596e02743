/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the engine's decimal model from the external API contract. Money and
  hours cross the wire as float64 and are converted to decimal.Decimal at
  the boundary, the same way the blob format does it.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

TYPES:
  Jobs:        JobDTO, JobRequest, ProgressDTO
  Logs:        LogDTO, CreateLogRequest
  Templates:   TemplateDTO, CreateTemplateRequest, ApplyTemplateRequest
  Settings:    SettingsDTO, UpdateSettingsRequest
  Stats:       TotalsDTO, StatsDTO, BucketDTO, PayPeriodDTO, ComparisonDTO
  Reconcile:   ReconcileRequest, ReconciliationDTO, RemediationDTO
  Calendar:    SelectDateRequest, SelectionDTO
  Backups:     BackupDTO
  Scenarios:   ScenarioDTO, LoadScenarioRequest

VALIDATION:
  Request types carry `validate` tags checked by go-playground/validator
  before the handler touches the service. Domain rules (duration > 0,
  times form a shift, tax in range) are still enforced by the engine.

SEE ALSO:
  - handlers.go: Uses these types
  - factory/state.go: Blob format (camelCase, not snake_case)
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/payroll-engine/generic"
	"github.com/warp/payroll-engine/payroll"
	"github.com/warp/payroll-engine/service"
)

// =============================================================================
// JOBS
// =============================================================================

// JobDTO represents a job in API responses.
type JobDTO struct {
	ID                    string  `json:"id"`
	Name                  string  `json:"name"`
	Color                 string  `json:"color,omitempty"`
	HourlyRate            float64 `json:"hourly_rate"`
	WeekendHourlyRate     float64 `json:"weekend_hourly_rate"`
	TargetHours           float64 `json:"target_hours"`
	NextHourlyRate        float64 `json:"next_hourly_rate"`
	NextWeekendHourlyRate float64 `json:"next_weekend_hourly_rate"`
}

// JobRequest creates or updates a job.
type JobRequest struct {
	Name                  string  `json:"name" validate:"required,max=100"`
	Color                 string  `json:"color" validate:"omitempty,max=32"`
	HourlyRate            float64 `json:"hourly_rate" validate:"gte=0"`
	WeekendHourlyRate     float64 `json:"weekend_hourly_rate" validate:"gte=0"`
	TargetHours           float64 `json:"target_hours" validate:"gte=0"`
	NextHourlyRate        float64 `json:"next_hourly_rate" validate:"gte=0"`
	NextWeekendHourlyRate float64 `json:"next_weekend_hourly_rate" validate:"gte=0"`
}

// ProgressDTO is a job's progress toward promotion.
type ProgressDTO struct {
	JobID          string  `json:"job_id"`
	TotalHours     float64 `json:"total_hours"`
	TargetHours    float64 `json:"target_hours"`
	RemainingHours float64 `json:"remaining_hours"`
	Percent        float64 `json:"percent"`
	Eligible       bool    `json:"eligible"`
}

// =============================================================================
// LOGS & TEMPLATES
// =============================================================================

// LogDTO represents a logged shift with its value at the current rates.
type LogDTO struct {
	ID        string  `json:"id"`
	JobID     string  `json:"job_id"`
	Date      string  `json:"date"`
	StartTime string  `json:"start_time,omitempty"`
	EndTime   string  `json:"end_time,omitempty"`
	Duration  float64 `json:"duration"`
	Earnings  float64 `json:"earnings"`
	Notes     string  `json:"notes,omitempty"`
	CreatedAt string  `json:"created_at"`
}

// CreateLogRequest logs a shift. Start/end times win over duration when both are set.
type CreateLogRequest struct {
	JobID     string  `json:"job_id" validate:"required"`
	Date      string  `json:"date" validate:"required"`
	StartTime string  `json:"start_time"`
	EndTime   string  `json:"end_time"`
	Duration  float64 `json:"duration"`
	Notes     string  `json:"notes" validate:"max=1000"`
}

type TemplateDTO struct {
	ID        string `json:"id"`
	JobID     string `json:"job_id"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Notes     string `json:"notes,omitempty"`
}

type CreateTemplateRequest struct {
	JobID     string `json:"job_id" validate:"required"`
	StartTime string `json:"start_time" validate:"required"`
	EndTime   string `json:"end_time" validate:"required"`
	Notes     string `json:"notes" validate:"max=1000"`
}

// ApplyTemplateRequest logs a template's shift on a day.
type ApplyTemplateRequest struct {
	Date string `json:"date" validate:"required"`
}

// =============================================================================
// SETTINGS
// =============================================================================

type SettingsDTO struct {
	Currency     string  `json:"currency"`
	DisplayName  string  `json:"display_name,omitempty"`
	PayFrequency string  `json:"pay_frequency"`
	TaxRate      float64 `json:"tax_rate"`
	Theme        string  `json:"theme,omitempty"`
	LastBackupAt *string `json:"last_backup_at,omitempty"`
}

type UpdateSettingsRequest struct {
	Currency     string  `json:"currency" validate:"required,len=3"`
	DisplayName  string  `json:"display_name" validate:"max=100"`
	PayFrequency string  `json:"pay_frequency" validate:"omitempty,oneof=biweekly monthly"`
	TaxRate      float64 `json:"tax_rate" validate:"gte=0,lte=100"`
	Theme        string  `json:"theme" validate:"omitempty,oneof=light dark"`
}

// =============================================================================
// STATS
// =============================================================================

type TotalsDTO struct {
	Hours    float64 `json:"hours"`
	Earnings float64 `json:"earnings"`
}

// StatsDTO is an aggregate with its weekday/weekend split.
type StatsDTO struct {
	Hours          float64   `json:"hours"`
	Earnings       float64   `json:"earnings"`
	Weekday        TotalsDTO `json:"weekday"`
	Weekend        TotalsDTO `json:"weekend"`
	PotentialValue float64   `json:"potential_value"`
	LogCount       int       `json:"log_count"`
}

type BucketDTO struct {
	Label     string  `json:"label"`
	Key       string  `json:"key"`
	Start     string  `json:"start"`
	End       string  `json:"end"`
	Hours     float64 `json:"hours"`
	Earnings  float64 `json:"earnings"`
	IsWeekend bool    `json:"is_weekend"`
}

// ComparisonDTO is a period against the period before it.
type ComparisonDTO struct {
	CurrentStart      string    `json:"current_start"`
	CurrentEnd        string    `json:"current_end"`
	PreviousStart     string    `json:"previous_start"`
	PreviousEnd       string    `json:"previous_end"`
	Current           TotalsDTO `json:"current"`
	Previous          TotalsDTO `json:"previous"`
	Change            TotalsDTO `json:"change"`
	EarningsChangePct float64   `json:"earnings_change_pct"`
}

type PayPeriodDTO struct {
	Frequency string        `json:"frequency"`
	PayPeriod ComparisonDTO `json:"pay_period"`
	Lookback  ComparisonDTO `json:"lookback"`
}

// =============================================================================
// RECONCILIATION
// =============================================================================

// ReconcileRequest is a payslip to compare against the logs of one job.
type ReconcileRequest struct {
	JobID        string   `json:"job_id" validate:"required"`
	EndDate      string   `json:"end_date" validate:"required"`
	WindowDays   int      `json:"window_days" validate:"required,oneof=14 30"`
	WeekdayHours float64  `json:"weekday_hours" validate:"gte=0"`
	WeekendHours float64  `json:"weekend_hours" validate:"gte=0"`
	Allowance    float64  `json:"allowance" validate:"gte=0"`
	TaxRate      *float64 `json:"tax_rate" validate:"omitempty,gte=0,lte=100"`
}

type RemediationDTO struct {
	HourType string  `json:"hour_type"`
	Hours    float64 `json:"hours"`
	Kind     string  `json:"kind"`
}

type ReconciliationDTO struct {
	JobID            string           `json:"job_id"`
	AppWeekdayHours  float64          `json:"app_weekday_hours"`
	AppWeekendHours  float64          `json:"app_weekend_hours"`
	SlipWeekdayHours float64          `json:"slip_weekday_hours"`
	SlipWeekendHours float64          `json:"slip_weekend_hours"`
	AppGross         float64          `json:"app_gross"`
	SlipGross        float64          `json:"slip_gross"`
	AppNet           float64          `json:"app_net"`
	SlipNet          float64          `json:"slip_net"`
	TaxRate          float64          `json:"tax_rate"`
	DiffWeekdayHours float64          `json:"diff_weekday_hours"`
	DiffWeekendHours float64          `json:"diff_weekend_hours"`
	DiffGrossPay     float64          `json:"diff_gross_pay"`
	Reconciled       bool             `json:"reconciled"`
	Remediations     []RemediationDTO `json:"remediations"`
}

// =============================================================================
// CALENDAR
// =============================================================================

type SelectDateRequest struct {
	Date string `json:"date" validate:"required"`
}

type SelectionDTO struct {
	State    string  `json:"state"`
	Start    string  `json:"start,omitempty"`
	End      string  `json:"end,omitempty"`
	Hours    float64 `json:"hours"`
	Earnings float64 `json:"earnings"`
}

// =============================================================================
// BACKUPS & SCENARIOS
// =============================================================================

type BackupDTO struct {
	ID      string `json:"id"`
	TakenAt string `json:"taken_at"`
	Reason  string `json:"reason"`
	Size    int    `json:"size"`
}

// ScenarioDTO describes a demo data set.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id" validate:"required"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func f64(d decimal.Decimal) float64 { return d.InexactFloat64() }

func dec(f float64) decimal.Decimal { return decimal.NewFromFloat(f) }

func toJobDTO(j payroll.Job) JobDTO {
	return JobDTO{
		ID:                    string(j.ID),
		Name:                  j.Name,
		Color:                 j.Color,
		HourlyRate:            f64(j.HourlyRate),
		WeekendHourlyRate:     f64(j.WeekendHourlyRate),
		TargetHours:           f64(j.TargetHours),
		NextHourlyRate:        f64(j.NextHourlyRate),
		NextWeekendHourlyRate: f64(j.NextWeekendHourlyRate),
	}
}

func (req JobRequest) toJob(id payroll.JobID) payroll.Job {
	return payroll.Job{
		ID:                    id,
		Name:                  req.Name,
		Color:                 req.Color,
		HourlyRate:            dec(req.HourlyRate),
		WeekendHourlyRate:     dec(req.WeekendHourlyRate),
		TargetHours:           dec(req.TargetHours),
		NextHourlyRate:        dec(req.NextHourlyRate),
		NextWeekendHourlyRate: dec(req.NextWeekendHourlyRate),
	}
}

func toProgressDTO(p payroll.Progress) ProgressDTO {
	return ProgressDTO{
		JobID:          string(p.JobID),
		TotalHours:     f64(p.TotalHours),
		TargetHours:    f64(p.TargetHours),
		RemainingHours: f64(p.RemainingHours),
		Percent:        f64(p.Percent),
		Eligible:       p.Eligible,
	}
}

func toLogDTO(l payroll.WorkLog, jobs map[payroll.JobID]payroll.Job) LogDTO {
	return LogDTO{
		ID:        string(l.ID),
		JobID:     string(l.JobID),
		Date:      l.Date.String(),
		StartTime: l.StartTime,
		EndTime:   l.EndTime,
		Duration:  f64(l.Duration),
		Earnings:  f64(payroll.ValueOf(l, jobs)),
		Notes:     l.Notes,
		CreatedAt: l.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func toTemplateDTO(t payroll.ShiftTemplate) TemplateDTO {
	return TemplateDTO{
		ID:        string(t.ID),
		JobID:     string(t.JobID),
		StartTime: t.StartTime,
		EndTime:   t.EndTime,
		Notes:     t.Notes,
	}
}

func toSettingsDTO(s payroll.Settings) SettingsDTO {
	dto := SettingsDTO{
		Currency:     s.Currency,
		DisplayName:  s.DisplayName,
		PayFrequency: string(s.PayFrequency),
		TaxRate:      f64(s.TaxRate),
		Theme:        s.Theme,
	}
	if s.LastBackup != nil {
		ts := s.LastBackup.UTC().Format(time.RFC3339)
		dto.LastBackupAt = &ts
	}
	return dto
}

func toTotalsDTO(t payroll.Totals) TotalsDTO {
	return TotalsDTO{Hours: f64(t.Hours), Earnings: f64(t.Earnings)}
}

func toStatsDTO(s service.Stats) StatsDTO {
	return StatsDTO{
		Hours:          f64(s.Totals.Hours),
		Earnings:       f64(s.Totals.Earnings),
		Weekday:        toTotalsDTO(s.Split.Weekday),
		Weekend:        toTotalsDTO(s.Split.Weekend),
		PotentialValue: f64(s.PotentialValue),
		LogCount:       s.LogCount,
	}
}

func toBucketDTO(b payroll.Bucket) BucketDTO {
	return BucketDTO{
		Label:     b.Label,
		Key:       b.Key,
		Start:     b.Start.String(),
		End:       b.End.String(),
		Hours:     f64(b.Hours),
		Earnings:  f64(b.Earnings),
		IsWeekend: b.IsWeekend,
	}
}

func toComparisonDTO(c payroll.PeriodComparison) ComparisonDTO {
	return ComparisonDTO{
		CurrentStart:      c.Current.Start.String(),
		CurrentEnd:        c.Current.End.String(),
		PreviousStart:     c.Previous.Start.String(),
		PreviousEnd:       c.Previous.End.String(),
		Current:           toTotalsDTO(c.CurrentTotals),
		Previous:          toTotalsDTO(c.PreviousTotals),
		Change:            toTotalsDTO(c.Change),
		EarningsChangePct: f64(c.EarningsChange),
	}
}

func toPayPeriodDTO(s payroll.PayPeriodSummary) PayPeriodDTO {
	return PayPeriodDTO{
		Frequency: string(s.Frequency),
		PayPeriod: toComparisonDTO(s.PayPeriod),
		Lookback:  toComparisonDTO(s.Lookback),
	}
}

func (req ReconcileRequest) toService(end generic.Date) service.ReconcileRequest {
	slip := payroll.PayslipInput{
		WeekdayHours: dec(req.WeekdayHours),
		WeekendHours: dec(req.WeekendHours),
		Allowance:    dec(req.Allowance),
	}
	if req.TaxRate != nil {
		rate := dec(*req.TaxRate)
		slip.TaxRate = &rate
	}
	return service.ReconcileRequest{
		JobID:  payroll.JobID(req.JobID),
		Window: payroll.Window{EndDate: end, Length: req.WindowDays},
		Slip:   slip,
	}
}

func toReconciliationDTO(r payroll.Reconciliation) ReconciliationDTO {
	rems := r.Remediations()
	dto := ReconciliationDTO{
		JobID:            string(r.JobID),
		AppWeekdayHours:  f64(r.AppWeekdayHours),
		AppWeekendHours:  f64(r.AppWeekendHours),
		SlipWeekdayHours: f64(r.SlipWeekdayHours),
		SlipWeekendHours: f64(r.SlipWeekendHours),
		AppGross:         f64(r.AppGross),
		SlipGross:        f64(r.SlipGross),
		AppNet:           f64(r.AppNet),
		SlipNet:          f64(r.SlipNet),
		TaxRate:          f64(r.TaxRate),
		DiffWeekdayHours: f64(r.DiffWeekdayHours),
		DiffWeekendHours: f64(r.DiffWeekendHours),
		DiffGrossPay:     f64(r.DiffGrossPay),
		Reconciled:       r.Reconciled(),
		Remediations:     make([]RemediationDTO, 0, len(rems)),
	}
	for _, rem := range rems {
		dto.Remediations = append(dto.Remediations, RemediationDTO{
			HourType: string(rem.HourType),
			Hours:    f64(rem.Hours),
			Kind:     string(rem.Kind),
		})
	}
	return dto
}

func toSelectionDTO(v service.SelectionView) SelectionDTO {
	dto := SelectionDTO{
		State:    string(v.State),
		Hours:    f64(v.Totals.Hours),
		Earnings: f64(v.Totals.Earnings),
	}
	if !v.Selection.Start.IsZero() {
		dto.Start = v.Selection.Start.String()
	}
	if !v.Selection.End.IsZero() {
		dto.End = v.Selection.End.String()
	}
	return dto
}

func toBackupDTO(b generic.Backup) BackupDTO {
	return BackupDTO{
		ID:      b.ID,
		TakenAt: b.TakenAt.UTC().Format(time.RFC3339),
		Reason:  string(b.Reason),
		Size:    len(b.Blob),
	}
}
