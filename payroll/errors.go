package payroll

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/warp/payroll-engine/generic"
)

// =============================================================================
// SENTINEL ERRORS
// =============================================================================

var (
	// ErrInvalidDuration is returned when a shift has no positive length:
	// duration <= 0, a malformed HH:MM, or only one of start/end given.
	ErrInvalidDuration = errors.New("invalid duration")

	// ErrInvalidJob is returned when a job breaks the non-negative rate invariants.
	ErrInvalidJob = errors.New("invalid job")

	// ErrInvalidSettings is returned for out-of-range settings.
	ErrInvalidSettings = errors.New("invalid settings")

	// ErrUnknownBucketMode is returned by Bucketize for an unsupported mode.
	ErrUnknownBucketMode = errors.New("unknown bucket mode")

	// ErrInvalidWindow is returned for a reconciliation window that is not 14 or 30 days.
	ErrInvalidWindow = errors.New("invalid reconciliation window")
)

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// DurationError provides details about a rejected shift length.
type DurationError struct {
	StartTime string
	EndTime   string
	Duration  decimal.Decimal
	Reason    string
}

func (e *DurationError) Error() string {
	if e.StartTime != "" || e.EndTime != "" {
		return fmt.Sprintf("invalid duration: %s (start %q, end %q)", e.Reason, e.StartTime, e.EndTime)
	}
	return fmt.Sprintf("invalid duration: %s (duration %s)", e.Reason, e.Duration)
}

func (e *DurationError) Unwrap() error {
	return ErrInvalidDuration
}

// JobError provides details about a rejected job field.
type JobError struct {
	JobID JobID
	Field string
	Value decimal.Decimal
}

func (e *JobError) Error() string {
	return fmt.Sprintf("invalid job %s: %s must be >= 0, got %s", e.JobID, e.Field, e.Value)
}

func (e *JobError) Unwrap() error {
	return ErrInvalidJob
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsValidationError returns true if the error is due to invalid engine input.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidDuration) ||
		errors.Is(err, ErrInvalidJob) ||
		errors.Is(err, ErrInvalidSettings) ||
		errors.Is(err, ErrUnknownBucketMode) ||
		errors.Is(err, ErrInvalidWindow) ||
		generic.IsClientError(err)
}
