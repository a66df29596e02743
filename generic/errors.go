/*
errors.go - Centralized error types for the generic primitives

PURPOSE:
  All calendar and storage error types in one place for consistency and
  discoverability. Domain packages wrap these with additional context.

ERROR CATEGORIES:
  1. Calendar errors - Unparsable dates, inverted periods, unknown cadences
  2. Store errors - Blob persistence failures

USAGE:
  Domain packages can wrap generic errors:

    if errors.Is(err, generic.ErrInvalidDate) {
        return &payroll.DurationError{...}
    }

SEE ALSO:
  - date.go: Uses ErrInvalidDate
  - store.go: Uses ErrStoreClosed / ErrBackupNotFound
  - payroll/errors.go: Domain errors built on top of these
*/
package generic

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidDate is returned when a calendar day is not YYYY-MM-DD.
	ErrInvalidDate = errors.New("invalid date")

	// ErrInvalidPeriod is returned when a period is malformed (end before start).
	ErrInvalidPeriod = errors.New("invalid period: end before start")

	// ErrUnknownPayFrequency is returned for a cadence other than biweekly/monthly.
	ErrUnknownPayFrequency = errors.New("unknown pay frequency")

	// ErrBackupNotFound is returned when no backup has been taken yet.
	ErrBackupNotFound = errors.New("backup not found")

	// ErrStoreClosed is returned when the store was closed before the call.
	ErrStoreClosed = errors.New("store closed")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// DateError provides details about an unparsable date.
type DateError struct {
	Input string
	Err   error
}

func (e *DateError) Error() string {
	return fmt.Sprintf("invalid date %q: expected YYYY-MM-DD", e.Input)
}

func (e *DateError) Unwrap() []error {
	return []error{ErrInvalidDate, e.Err}
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidDate) ||
		errors.Is(err, ErrInvalidPeriod) ||
		errors.Is(err, ErrUnknownPayFrequency)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrBackupNotFound)
}
