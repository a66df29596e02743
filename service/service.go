/*
Package service is the application shell around the payroll engine.

PURPOSE:
  The engine is pure: it never reads the clock, never locks, never stores.
  Service owns the single AppState, serializes access to it, supplies
  "today" and fresh ids, and persists after every mutation.

MUTATION CONTRACT:
  1. Build next := current.WithX(...) (copy-on-write, current untouched)
  2. Encode and Save next
  3. Only if Save succeeded, swap current = next
  A failed save leaves the in-memory state exactly as it was.

STARTUP:
  The stored blob is migrated by factory.Load. A legacy blob is backed up
  before it is upgraded. A malformed blob is logged and replaced by a
  fresh state in memory; it is not overwritten until the first mutation.

SEE ALSO:
  - payroll: The engine
  - factory/state.go: Blob format and migration
  - api/handlers.go, cmd/shiftctl: Callers
*/
package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/warp/payroll-engine/factory"
	"github.com/warp/payroll-engine/generic"
	"github.com/warp/payroll-engine/logging"
	"github.com/warp/payroll-engine/metrics"
	"github.com/warp/payroll-engine/payroll"
)

// Service serializes every read and write of the app state.
type Service struct {
	mu        sync.RWMutex
	store     generic.Store
	backups   generic.BackupStore
	state     payroll.AppState
	selection payroll.Selection

	log      *slog.Logger
	now      func() time.Time
	newID    func() string
	defaults *payroll.Settings
}

// Option configures a Service.
type Option func(*Service)

// WithClock replaces time.Now. Tests pin it.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDGenerator replaces the uuid generator.
func WithIDGenerator(fn func() string) Option {
	return func(s *Service) { s.newID = fn }
}

func WithLogger(log *slog.Logger) Option {
	return func(s *Service) { s.log = log }
}

// WithBackups enables the backup history.
func WithBackups(b generic.BackupStore) Option {
	return func(s *Service) { s.backups = b }
}

// WithDefaults seeds the settings of a fresh install.
func WithDefaults(settings payroll.Settings) Option {
	return func(s *Service) { s.defaults = &settings }
}

// New loads the persisted state and returns a ready Service.
func New(ctx context.Context, store generic.Store, opts ...Option) (*Service, error) {
	const op = "service.New"

	s := &Service{
		store: store,
		log:   logging.Discard(),
		now:   time.Now,
		newID: func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(s)
	}
	log := s.log.With(slog.String("op", op))

	blob, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if len(blob) == 0 {
		s.state = s.freshState()
		log.Info("no saved state, starting fresh")
		return s, nil
	}

	if v, err := factory.Inspect(blob); err == nil && v < factory.CurrentSchema {
		s.backupBlob(ctx, blob, generic.BackupMigration)
		metrics.Migrations.Inc()
		log.Info("migrating legacy state", slog.Int("from_version", int(v)))
	}

	state, err := factory.Load(blob)
	if err != nil {
		log.Warn("saved state is malformed, starting fresh", logging.Err(err))
		s.backupBlob(ctx, blob, generic.BackupRecovery)
		s.state = s.freshState()
		return s, nil
	}
	s.state = state
	log.Debug("state loaded",
		slog.Int("jobs", len(state.Jobs)),
		slog.Int("logs", len(state.Logs)),
	)
	return s, nil
}

func (s *Service) freshState() payroll.AppState {
	state := factory.EmptyState()
	if s.defaults != nil {
		state.Settings = *s.defaults
	}
	return state
}

// Today is the reference date used when a caller does not pass one.
func (s *Service) Today() generic.Date {
	return generic.DateOf(s.now())
}

// commit persists next and swaps it in. Caller holds s.mu for writing.
func (s *Service) commit(ctx context.Context, next payroll.AppState) error {
	blob, err := factory.Encode(next)
	if err != nil {
		return err
	}
	err = s.store.Save(ctx, blob)
	metrics.StateSaves.WithLabelValues(metrics.Result(err)).Inc()
	if err != nil {
		s.log.Error("failed to save state", slog.String("op", "service.commit"), logging.Err(err))
		return fmt.Errorf("failed to save state: %w", err)
	}
	s.state = next
	return nil
}

// =============================================================================
// STATE
// =============================================================================

// State returns the current snapshot. Slices are shared with the service
// but never mutated in place, so the value is safe to read.
func (s *Service) State() payroll.AppState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// ReplaceState swaps the whole state (demo scenarios, restores).
func (s *Service) ReplaceState(ctx context.Context, next payroll.AppState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.commit(ctx, next); err != nil {
		return err
	}
	s.selection = payroll.Selection{}
	metrics.LogsCreated.WithLabelValues("scenario").Add(float64(len(next.Logs)))
	return nil
}

// =============================================================================
// JOBS
// =============================================================================

// AddJob stores a new job. An empty id is generated.
func (s *Service) AddJob(ctx context.Context, job payroll.Job) (payroll.Job, error) {
	if err := job.Validate(); err != nil {
		return payroll.Job{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if job.ID == "" {
		job.ID = payroll.JobID(s.newID())
	}
	if err := s.commit(ctx, s.state.WithJob(job)); err != nil {
		return payroll.Job{}, err
	}
	return job, nil
}

// UpdateJob replaces an existing job's fields.
func (s *Service) UpdateJob(ctx context.Context, job payroll.Job) (payroll.Job, error) {
	if err := job.Validate(); err != nil {
		return payroll.Job{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.state.Job(job.ID); !ok {
		return payroll.Job{}, fmt.Errorf("%w: %s", ErrJobNotFound, job.ID)
	}
	if err := s.commit(ctx, s.state.WithJob(job)); err != nil {
		return payroll.Job{}, err
	}
	return job, nil
}

// DeleteJob removes a job with its logs and templates.
func (s *Service) DeleteJob(ctx context.Context, id payroll.JobID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.state.Job(id); !ok {
		return fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	return s.commit(ctx, s.state.WithoutJob(id))
}

// =============================================================================
// LOGS
// =============================================================================

// AddLog validates and stores a new shift.
func (s *Service) AddLog(ctx context.Context, in payroll.LogInput) (payroll.WorkLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addLogLocked(ctx, in, "manual")
}

// AddLogFromTemplate stores a shift shaped by a template on date.
func (s *Service) AddLogFromTemplate(ctx context.Context, id payroll.TemplateID, date generic.Date) (payroll.WorkLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tpl, ok := s.state.Template(id)
	if !ok {
		return payroll.WorkLog{}, fmt.Errorf("%w: %s", ErrTemplateNotFound, id)
	}
	return s.addLogLocked(ctx, tpl.Apply(date), "template")
}

func (s *Service) addLogLocked(ctx context.Context, in payroll.LogInput, source string) (payroll.WorkLog, error) {
	if _, ok := s.state.Job(in.JobID); !ok {
		return payroll.WorkLog{}, fmt.Errorf("%w: %s", ErrJobNotFound, in.JobID)
	}
	log, err := payroll.NewWorkLog(in, payroll.LogID(s.newID()), s.now())
	if err != nil {
		return payroll.WorkLog{}, err
	}
	if err := s.commit(ctx, s.state.WithLog(log)); err != nil {
		return payroll.WorkLog{}, err
	}
	metrics.LogsCreated.WithLabelValues(source).Inc()
	return log, nil
}

// DeleteLog removes one log. Logs are never edited.
func (s *Service) DeleteLog(ctx context.Context, id payroll.LogID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.state.Log(id); !ok {
		return fmt.Errorf("%w: %s", ErrLogNotFound, id)
	}
	return s.commit(ctx, s.state.WithoutLog(id))
}

// =============================================================================
// TEMPLATES
// =============================================================================

// AddTemplate stores a template after checking its times form a valid shift.
func (s *Service) AddTemplate(ctx context.Context, t payroll.ShiftTemplate) (payroll.ShiftTemplate, error) {
	if _, err := payroll.ResolveDuration(t.StartTime, t.EndTime, decimal.Zero); err != nil {
		return payroll.ShiftTemplate{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.state.Job(t.JobID); !ok {
		return payroll.ShiftTemplate{}, fmt.Errorf("%w: %s", ErrJobNotFound, t.JobID)
	}
	if t.ID == "" {
		t.ID = payroll.TemplateID(s.newID())
	}
	if err := s.commit(ctx, s.state.WithTemplate(t)); err != nil {
		return payroll.ShiftTemplate{}, err
	}
	return t, nil
}

func (s *Service) DeleteTemplate(ctx context.Context, id payroll.TemplateID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.state.Template(id); !ok {
		return fmt.Errorf("%w: %s", ErrTemplateNotFound, id)
	}
	return s.commit(ctx, s.state.WithoutTemplate(id))
}

// =============================================================================
// SETTINGS
// =============================================================================

// UpdateSettings replaces the settings. LastBackup is owned by Backup/Import
// and kept from the current value.
func (s *Service) UpdateSettings(ctx context.Context, settings payroll.Settings) (payroll.Settings, error) {
	if settings.PayFrequency == "" {
		settings.PayFrequency = generic.PayBiweekly
	}
	if err := settings.Validate(); err != nil {
		return payroll.Settings{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	settings.LastBackup = s.state.Settings.LastBackup
	if err := s.commit(ctx, s.state.WithSettings(settings)); err != nil {
		return payroll.Settings{}, err
	}
	return settings, nil
}

// =============================================================================
// PROGRESS & PROMOTION
// =============================================================================

// Progress reports a job's lifetime hours against its target.
func (s *Service) Progress(id payroll.JobID) (payroll.Progress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.state.Job(id)
	if !ok {
		return payroll.Progress{}, fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	return payroll.ProgressFor(job, payroll.JobHours(s.state.Logs, id)), nil
}

// Promote applies the next tier, but only when the job is eligible now.
func (s *Service) Promote(ctx context.Context, id payroll.JobID) (payroll.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.state.Job(id)
	if !ok {
		return payroll.Job{}, fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	progress := payroll.ProgressFor(job, payroll.JobHours(s.state.Logs, id))
	if !progress.Eligible {
		return payroll.Job{}, fmt.Errorf("%w: %s/%s hours, rate %s -> %s",
			ErrNotEligible, progress.TotalHours, progress.TargetHours, job.HourlyRate, job.NextHourlyRate)
	}

	promoted := payroll.Promote(job)
	if err := s.commit(ctx, s.state.WithJob(promoted)); err != nil {
		return payroll.Job{}, err
	}
	metrics.Promotions.Inc()
	s.log.Info("job promoted",
		slog.String("op", "service.Promote"),
		slog.String("job_id", string(id)),
		slog.String("hourly_rate", promoted.HourlyRate.String()),
	)
	return promoted, nil
}

// =============================================================================
// STATS
// =============================================================================

// StatsQuery scopes Stats. A nil Period means all time; an empty JobID means every job.
type StatsQuery struct {
	Period *generic.Period
	JobID  payroll.JobID
}

// Stats is an aggregate plus its weekday/weekend split and next-tier preview.
type Stats struct {
	Totals         payroll.Totals
	Split          payroll.DayTypeTotals
	PotentialValue decimal.Decimal
	LogCount       int
}

func (s *Service) Stats(q StatsQuery) Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	filter := payroll.ForJob(q.JobID)
	if q.Period != nil {
		filter = payroll.AllOf(filter, payroll.InPeriod(*q.Period))
	}
	var matched []payroll.WorkLog
	for _, l := range s.state.Logs {
		if filter == nil || filter(l) {
			matched = append(matched, l)
		}
	}

	jobs := s.state.JobsByID()
	return Stats{
		Totals:         payroll.Aggregate(matched, jobs, nil),
		Split:          payroll.SplitByDayType(matched, jobs, nil),
		PotentialValue: payroll.PotentialValue(matched, jobs),
		LogCount:       len(matched),
	}
}

// Buckets builds chart buckets. A zero ref means today.
func (s *Service) Buckets(mode payroll.BucketMode, ref generic.Date, jobID payroll.JobID) ([]payroll.Bucket, error) {
	if ref.IsZero() {
		ref = s.Today()
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return payroll.Bucketize(s.state.Logs, s.state.JobsByID(), mode, ref, payroll.ForJob(jobID))
}

// PayPeriod summarizes the current pay period and the 14-day lookback. A zero ref means today.
func (s *Service) PayPeriod(jobID payroll.JobID, ref generic.Date) payroll.PayPeriodSummary {
	if ref.IsZero() {
		ref = s.Today()
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return payroll.SummarizePayPeriod(s.state.Logs, s.state.JobsByID(), jobID, s.state.Settings.PayFrequency, ref)
}

// =============================================================================
// RECONCILIATION
// =============================================================================

// ReconcileRequest is one payslip check for one job.
type ReconcileRequest struct {
	JobID  payroll.JobID
	Window payroll.Window
	Slip   payroll.PayslipInput
}

// Reconcile compares the job's logged hours in the window with the payslip.
func (s *Service) Reconcile(req ReconcileRequest) (payroll.Reconciliation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, err := s.reconcileLocked(req)
	if err != nil {
		return payroll.Reconciliation{}, err
	}
	outcome := "reconciled"
	if !r.Reconciled() {
		outcome = "mismatch"
	}
	metrics.Reconciliations.WithLabelValues(outcome).Inc()
	return r, nil
}

func (s *Service) reconcileLocked(req ReconcileRequest) (payroll.Reconciliation, error) {
	job, ok := s.state.Job(req.JobID)
	if !ok {
		return payroll.Reconciliation{}, fmt.Errorf("%w: %s", ErrJobNotFound, req.JobID)
	}
	app, err := payroll.AppTotalsFor(s.state.Logs, s.state.JobsByID(), req.JobID, req.Window)
	if err != nil {
		return payroll.Reconciliation{}, err
	}
	return payroll.Reconcile(job, app, req.Slip, s.state.Settings.TaxRate), nil
}

// AppliedReconciliation is the outcome of ApplyReconciliation.
type AppliedReconciliation struct {
	Created        []payroll.WorkLog
	Reconciliation payroll.Reconciliation // Recomputed after the created logs
}

// ApplyReconciliation recomputes the comparison and stores one compensating
// log per hour type outside tolerance. Created may be empty.
func (s *Service) ApplyReconciliation(ctx context.Context, req ReconcileRequest) (AppliedReconciliation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, err := s.reconcileLocked(req)
	if err != nil {
		return AppliedReconciliation{}, err
	}
	rems := r.Remediations()
	if len(rems) == 0 {
		return AppliedReconciliation{Reconciliation: r}, nil
	}

	job, _ := s.state.Job(req.JobID)
	now := s.now()
	created := make([]payroll.WorkLog, 0, len(rems))
	for _, rem := range rems {
		created = append(created, payroll.BuildCompensatingLog(job, rem, req.Window.EndDate, payroll.LogID(s.newID()), now))
	}
	if err := s.commit(ctx, s.state.WithLog(created...)); err != nil {
		return AppliedReconciliation{}, err
	}
	after, err := s.reconcileLocked(req)
	if err != nil {
		return AppliedReconciliation{}, err
	}

	metrics.Reconciliations.WithLabelValues("applied").Inc()
	metrics.LogsCreated.WithLabelValues("reconciliation").Add(float64(len(created)))
	s.log.Info("reconciliation applied",
		slog.String("op", "service.ApplyReconciliation"),
		slog.String("job_id", string(req.JobID)),
		slog.Int("logs", len(created)),
	)
	return AppliedReconciliation{Created: created, Reconciliation: after}, nil
}

// =============================================================================
// CALENDAR SELECTION
// =============================================================================

// SelectionView is the selector plus the aggregate over its range.
type SelectionView struct {
	Selection payroll.Selection
	State     payroll.SelectionState
	Totals    payroll.Totals
}

// SelectDate applies one calendar click.
func (s *Service) SelectDate(d generic.Date) SelectionView {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selection = s.selection.Select(d)
	return s.selectionViewLocked()
}

func (s *Service) ClearSelection() SelectionView {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selection = s.selection.Clear()
	return s.selectionViewLocked()
}

func (s *Service) Selection() SelectionView {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selectionViewLocked()
}

func (s *Service) selectionViewLocked() SelectionView {
	view := SelectionView{Selection: s.selection, State: s.selection.State()}
	if p, ok := s.selection.Period(); ok {
		view.Totals = payroll.Aggregate(s.state.Logs, s.state.JobsByID(), payroll.InPeriod(p))
	} else {
		view.Totals = payroll.Totals{Hours: decimal.Zero, Earnings: decimal.Zero}
	}
	return view
}

// =============================================================================
// EXPORT / IMPORT / BACKUP
// =============================================================================

// ExportRows projects every log, optionally scoped to one job.
func (s *Service) ExportRows(jobID payroll.JobID) []payroll.ExportRow {
	s.mu.RLock()
	defer s.mu.RUnlock()

	logs := s.state.Logs
	if jobID != "" {
		logs = nil
		for _, l := range s.state.Logs {
			if l.JobID == jobID {
				logs = append(logs, l)
			}
		}
	}
	return payroll.ToExportRows(logs, s.state.JobsByID())
}

// ExportState encodes the full state in the current schema.
func (s *Service) ExportState() ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return factory.Encode(s.state)
}

// Import replaces the state with a blob of any known schema. A malformed blob
// returns factory.ErrMalformedState and leaves the current state untouched.
// When backups are enabled the current state is backed up first.
func (s *Service) Import(ctx context.Context, blob []byte) (payroll.AppState, error) {
	const op = "service.Import"

	next, err := factory.Load(blob)
	if err != nil {
		s.log.Warn("import rejected", slog.String("op", op), logging.Err(err))
		return payroll.AppState{}, err
	}
	if v, _ := factory.Inspect(blob); v < factory.CurrentSchema {
		metrics.Migrations.Inc()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.backups != nil {
		b, err := s.backupLocked(ctx, generic.BackupImport)
		if err != nil {
			return payroll.AppState{}, err
		}
		next.Settings.LastBackup = &b.TakenAt
	}
	if err := s.commit(ctx, next); err != nil {
		return payroll.AppState{}, err
	}
	s.selection = payroll.Selection{}
	s.log.Info("state imported", slog.String("op", op), slog.Int("jobs", len(next.Jobs)), slog.Int("logs", len(next.Logs)))
	return next, nil
}

// Backup records the current state in the backup history and stamps LastBackup.
func (s *Service) Backup(ctx context.Context) (generic.Backup, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := s.backupLocked(ctx, generic.BackupManual)
	if err != nil {
		return generic.Backup{}, err
	}
	settings := s.state.Settings
	settings.LastBackup = &b.TakenAt
	if err := s.commit(ctx, s.state.WithSettings(settings)); err != nil {
		return generic.Backup{}, err
	}
	return b, nil
}

// Backups lists the newest backups first.
func (s *Service) Backups(ctx context.Context, limit int) ([]generic.Backup, error) {
	if s.backups == nil {
		return nil, ErrBackupsUnavailable
	}
	return s.backups.ListBackups(ctx, limit)
}

func (s *Service) backupLocked(ctx context.Context, reason generic.BackupReason) (generic.Backup, error) {
	if s.backups == nil {
		return generic.Backup{}, ErrBackupsUnavailable
	}
	blob, err := factory.Encode(s.state)
	if err != nil {
		return generic.Backup{}, err
	}
	b := generic.Backup{ID: s.newID(), TakenAt: s.now().UTC(), Reason: reason, Blob: blob}
	if err := s.backups.SaveBackup(ctx, b); err != nil {
		return generic.Backup{}, err
	}
	return b, nil
}

// backupBlob stores a raw blob before it is migrated. Failures are logged, not fatal.
func (s *Service) backupBlob(ctx context.Context, blob []byte, reason generic.BackupReason) {
	if s.backups == nil {
		return
	}
	b := generic.Backup{ID: s.newID(), TakenAt: s.now().UTC(), Reason: reason, Blob: blob}
	if err := s.backups.SaveBackup(ctx, b); err != nil {
		s.log.Warn("failed to back up saved state", slog.String("op", "service.backupBlob"), logging.Err(err))
	}
}
