/*
Package factory provides JSON to Go state conversion.

PURPOSE:
  Converts the persisted JSON blob into a payroll.AppState and back. The
  blob may come from any version of the app: a single-job install (rates
  stored on the settings object) or a multi-job install. Every known shape
  is a tagged schema version with an explicit migration to the next one.

JSON SCHEMA (v2):
  {
    "version": 2,
    "jobs": [
      {"id": "...", "name": "Main Job", "color": "#4f46e5",
       "hourlyRate": 60, "weekendHourlyRate": 70, "targetHours": 100,
       "nextHourlyRate": 70, "nextWeekendHourlyRate": 80}
    ],
    "logs": [
      {"id": "...", "jobId": "...", "date": "2024-03-09",
       "startTime": "09:00", "endTime": "14:00", "duration": 5,
       "notes": "", "createdAt": 1709974800000}
    ],
    "templates": [{"id": "...", "jobId": "...", "startTime": "18:00", "endTime": "23:00"}],
    "settings": {"currency": "USD", "payFrequency": "biweekly", "taxRate": 20}
  }

  v1 has no "jobs" and carries the rates on "settings" (hourlyRate,
  weekendHourlyRate, targetHours, nextHourlyRate, nextWeekendHourlyRate).

MIGRATION RULES:
  - Migrations are pure: the input value is never mutated
  - Running Migrate twice equals running it once
  - A log that already carries a jobId is never reassigned

USAGE:
  state, err := factory.Load(blob)
  if errors.Is(err, factory.ErrMalformedState) {
      // Recoverable: keep the current state or start fresh
  }
  blob, err = factory.Encode(state)

SEE ALSO:
  - payroll/types.go: The in-memory model
  - service/service.go: Calls Load at startup and on import
*/
package factory

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/warp/payroll-engine/generic"
	"github.com/warp/payroll-engine/payroll"
)

// =============================================================================
// ERRORS
// =============================================================================

// ErrMalformedState is returned when a blob cannot be decoded into any known schema.
var ErrMalformedState = errors.New("malformed state")

// StateError provides details about a rejected blob.
type StateError struct {
	Reason string
	Err    error
}

func (e *StateError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed state: %s: %v", e.Reason, e.Err)
	}
	return "malformed state: " + e.Reason
}

func (e *StateError) Unwrap() error {
	return ErrMalformedState
}

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// StateJSON is the persisted form of the whole app state.
type StateJSON struct {
	Version   int            `json:"version,omitempty"`
	Jobs      []JobJSON      `json:"jobs"`
	Logs      []LogJSON      `json:"logs"`
	Templates []TemplateJSON `json:"templates"`
	Settings  SettingsJSON   `json:"settings"`
}

type JobJSON struct {
	ID                    string  `json:"id"`
	Name                  string  `json:"name"`
	Color                 string  `json:"color,omitempty"`
	HourlyRate            float64 `json:"hourlyRate"`
	WeekendHourlyRate     float64 `json:"weekendHourlyRate"`
	TargetHours           float64 `json:"targetHours"`
	NextHourlyRate        float64 `json:"nextHourlyRate"`
	NextWeekendHourlyRate float64 `json:"nextWeekendHourlyRate"`
}

type LogJSON struct {
	ID        string  `json:"id"`
	JobID     string  `json:"jobId,omitempty"` // Absent in v1
	Date      string  `json:"date"`
	StartTime string  `json:"startTime,omitempty"`
	EndTime   string  `json:"endTime,omitempty"`
	Duration  float64 `json:"duration"`
	Notes     string  `json:"notes,omitempty"`
	CreatedAt int64   `json:"createdAt"` // Unix milliseconds
}

type TemplateJSON struct {
	ID        string `json:"id"`
	JobID     string `json:"jobId"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
	Notes     string `json:"notes,omitempty"`
}

type SettingsJSON struct {
	Currency     string  `json:"currency,omitempty"`
	DisplayName  string  `json:"displayName,omitempty"`
	PayFrequency string  `json:"payFrequency,omitempty"`
	TaxRate      float64 `json:"taxRate"`
	Theme        string  `json:"theme,omitempty"`
	LastBackupAt *int64  `json:"lastBackupAt,omitempty"` // Unix milliseconds

	// Legacy single-job fields (v1 only). Cleared by migration, never read after.
	HourlyRate            *float64 `json:"hourlyRate,omitempty"`
	WeekendHourlyRate     *float64 `json:"weekendHourlyRate,omitempty"`
	TargetHours           *float64 `json:"targetHours,omitempty"`
	NextHourlyRate        *float64 `json:"nextHourlyRate,omitempty"`
	NextWeekendHourlyRate *float64 `json:"nextWeekendHourlyRate,omitempty"`
}

// =============================================================================
// SCHEMA VERSIONS
// =============================================================================

type SchemaVersion int

const (
	SchemaV1 SchemaVersion = 1 // Single job, rates on settings
	SchemaV2 SchemaVersion = 2 // Multi-job

	CurrentSchema = SchemaV2
)

// Schema classifies the blob by shape. A blob without jobs is v1.
func (s StateJSON) Schema() SchemaVersion {
	if len(s.Jobs) == 0 {
		return SchemaV1
	}
	return SchemaV2
}

// migrations maps a version to the function lifting it to the next version.
var migrations = map[SchemaVersion]func(StateJSON) StateJSON{
	SchemaV1: migrateV1ToV2,
}

// Migrate lifts s to CurrentSchema. s itself is left untouched.
func Migrate(s StateJSON) StateJSON {
	for v := s.Schema(); v < CurrentSchema; v = s.Schema() {
		step, ok := migrations[v]
		if !ok {
			break
		}
		s = step(s)
	}
	s.Version = int(CurrentSchema)
	return s
}

// MainJobName is the name of the job synthesized from a single-job install.
const MainJobName = "Main Job"

// MainJobID is deterministic so that re-running migration yields the same id.
var MainJobID = uuid.NewSHA1(uuid.NameSpaceOID, []byte("payroll-engine/main-job")).String()

// Defaults for any legacy rate field missing from a v1 blob.
const (
	DefaultHourlyRate            = 60
	DefaultWeekendHourlyRate     = 70
	DefaultTargetHours           = 100
	DefaultNextHourlyRate        = 70
	DefaultNextWeekendHourlyRate = 80
	DefaultJobColor              = "#4f46e5"
)

func migrateV1ToV2(s StateJSON) StateJSON {
	legacy := s.Settings
	job := JobJSON{
		ID:                    MainJobID,
		Name:                  MainJobName,
		Color:                 DefaultJobColor,
		HourlyRate:            orDefault(legacy.HourlyRate, DefaultHourlyRate),
		WeekendHourlyRate:     orDefault(legacy.WeekendHourlyRate, DefaultWeekendHourlyRate),
		TargetHours:           orDefault(legacy.TargetHours, DefaultTargetHours),
		NextHourlyRate:        orDefault(legacy.NextHourlyRate, DefaultNextHourlyRate),
		NextWeekendHourlyRate: orDefault(legacy.NextWeekendHourlyRate, DefaultNextWeekendHourlyRate),
	}

	logs := make([]LogJSON, len(s.Logs))
	for i, l := range s.Logs {
		if l.JobID == "" {
			l.JobID = job.ID
		}
		logs[i] = l
	}

	settings := s.Settings
	settings.HourlyRate = nil
	settings.WeekendHourlyRate = nil
	settings.TargetHours = nil
	settings.NextHourlyRate = nil
	settings.NextWeekendHourlyRate = nil

	return StateJSON{
		Version:   int(SchemaV2),
		Jobs:      []JobJSON{job},
		Logs:      logs,
		Templates: append([]TemplateJSON(nil), s.Templates...),
		Settings:  settings,
	}
}

func orDefault(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}

// =============================================================================
// DECODE / ENCODE
// =============================================================================

// DecodeState parses a blob without migrating it.
func DecodeState(blob []byte) (StateJSON, error) {
	var s StateJSON
	if err := json.Unmarshal(blob, &s); err != nil {
		return StateJSON{}, &StateError{Reason: "failed to parse state JSON", Err: err}
	}
	return s, nil
}

// Inspect reports the schema version of a blob. An empty blob is current.
func Inspect(blob []byte) (SchemaVersion, error) {
	if len(blob) == 0 {
		return CurrentSchema, nil
	}
	s, err := DecodeState(blob)
	if err != nil {
		return 0, err
	}
	return s.Schema(), nil
}

// Load is decode, migrate, convert. An empty blob yields a fresh state.
func Load(blob []byte) (payroll.AppState, error) {
	if len(blob) == 0 {
		return EmptyState(), nil
	}
	s, err := DecodeState(blob)
	if err != nil {
		return payroll.AppState{}, err
	}
	return Migrate(s).ToAppState()
}

// EmptyState is a fresh install: default settings and the synthesized Main Job.
func EmptyState() payroll.AppState {
	state, err := Migrate(StateJSON{}).ToAppState()
	if err != nil {
		// Defaults always convert
		panic(err)
	}
	return state
}

// Encode writes the current schema.
func Encode(state payroll.AppState) ([]byte, error) {
	blob, err := json.Marshal(FromAppState(state))
	if err != nil {
		return nil, fmt.Errorf("failed to encode state: %w", err)
	}
	return blob, nil
}

// ToAppState converts a migrated blob into the in-memory model.
func (s StateJSON) ToAppState() (payroll.AppState, error) {
	state := payroll.AppState{
		Jobs:      make([]payroll.Job, 0, len(s.Jobs)),
		Logs:      make([]payroll.WorkLog, 0, len(s.Logs)),
		Templates: make([]payroll.ShiftTemplate, 0, len(s.Templates)),
	}

	for _, j := range s.Jobs {
		state.Jobs = append(state.Jobs, payroll.Job{
			ID:                    payroll.JobID(j.ID),
			Name:                  j.Name,
			Color:                 j.Color,
			HourlyRate:            decimal.NewFromFloat(j.HourlyRate),
			WeekendHourlyRate:     decimal.NewFromFloat(j.WeekendHourlyRate),
			TargetHours:           decimal.NewFromFloat(j.TargetHours),
			NextHourlyRate:        decimal.NewFromFloat(j.NextHourlyRate),
			NextWeekendHourlyRate: decimal.NewFromFloat(j.NextWeekendHourlyRate),
		})
	}

	for _, l := range s.Logs {
		date, err := generic.ParseDate(l.Date)
		if err != nil {
			return payroll.AppState{}, &StateError{Reason: fmt.Sprintf("log %s", l.ID), Err: err}
		}
		state.Logs = append(state.Logs, payroll.WorkLog{
			ID:        payroll.LogID(l.ID),
			JobID:     payroll.JobID(l.JobID),
			Date:      date,
			StartTime: l.StartTime,
			EndTime:   l.EndTime,
			Duration:  decimal.NewFromFloat(l.Duration),
			Notes:     l.Notes,
			CreatedAt: time.UnixMilli(l.CreatedAt).UTC(),
		})
	}

	for _, t := range s.Templates {
		state.Templates = append(state.Templates, payroll.ShiftTemplate{
			ID:        payroll.TemplateID(t.ID),
			JobID:     payroll.JobID(t.JobID),
			StartTime: t.StartTime,
			EndTime:   t.EndTime,
			Notes:     t.Notes,
		})
	}

	settings, err := s.Settings.toSettings()
	if err != nil {
		return payroll.AppState{}, err
	}
	state.Settings = settings
	return state, nil
}

func (sj SettingsJSON) toSettings() (payroll.Settings, error) {
	settings := payroll.DefaultSettings()
	if sj.Currency != "" {
		settings.Currency = sj.Currency
	}
	if sj.Theme != "" {
		settings.Theme = sj.Theme
	}
	settings.DisplayName = sj.DisplayName
	settings.TaxRate = decimal.NewFromFloat(sj.TaxRate)

	freq, err := generic.ParsePayFrequency(sj.PayFrequency)
	if err != nil {
		return payroll.Settings{}, &StateError{Reason: "settings", Err: err}
	}
	settings.PayFrequency = freq

	if sj.LastBackupAt != nil {
		at := time.UnixMilli(*sj.LastBackupAt).UTC()
		settings.LastBackup = &at
	}
	return settings, nil
}

// FromAppState converts the in-memory model into the current schema.
func FromAppState(state payroll.AppState) StateJSON {
	s := StateJSON{
		Version:   int(CurrentSchema),
		Jobs:      make([]JobJSON, 0, len(state.Jobs)),
		Logs:      make([]LogJSON, 0, len(state.Logs)),
		Templates: make([]TemplateJSON, 0, len(state.Templates)),
	}

	for _, j := range state.Jobs {
		s.Jobs = append(s.Jobs, JobJSON{
			ID:                    string(j.ID),
			Name:                  j.Name,
			Color:                 j.Color,
			HourlyRate:            j.HourlyRate.InexactFloat64(),
			WeekendHourlyRate:     j.WeekendHourlyRate.InexactFloat64(),
			TargetHours:           j.TargetHours.InexactFloat64(),
			NextHourlyRate:        j.NextHourlyRate.InexactFloat64(),
			NextWeekendHourlyRate: j.NextWeekendHourlyRate.InexactFloat64(),
		})
	}

	for _, l := range state.Logs {
		s.Logs = append(s.Logs, LogJSON{
			ID:        string(l.ID),
			JobID:     string(l.JobID),
			Date:      l.Date.String(),
			StartTime: l.StartTime,
			EndTime:   l.EndTime,
			Duration:  l.Duration.InexactFloat64(),
			Notes:     l.Notes,
			CreatedAt: l.CreatedAt.UnixMilli(),
		})
	}

	for _, t := range state.Templates {
		s.Templates = append(s.Templates, TemplateJSON{
			ID:        string(t.ID),
			JobID:     string(t.JobID),
			StartTime: t.StartTime,
			EndTime:   t.EndTime,
			Notes:     t.Notes,
		})
	}

	s.Settings = SettingsJSON{
		Currency:     state.Settings.Currency,
		DisplayName:  state.Settings.DisplayName,
		PayFrequency: string(state.Settings.PayFrequency),
		TaxRate:      state.Settings.TaxRate.InexactFloat64(),
		Theme:        state.Settings.Theme,
	}
	if state.Settings.LastBackup != nil {
		ms := state.Settings.LastBackup.UnixMilli()
		s.Settings.LastBackupAt = &ms
	}
	return s
}
