package service

import (
	"errors"

	"github.com/warp/payroll-engine/factory"
	"github.com/warp/payroll-engine/generic"
	"github.com/warp/payroll-engine/payroll"
)

var (
	ErrJobNotFound      = errors.New("job not found")
	ErrLogNotFound      = errors.New("log not found")
	ErrTemplateNotFound = errors.New("template not found")

	// ErrNotEligible is returned when a promotion is requested before the job qualifies.
	ErrNotEligible = errors.New("job is not eligible for promotion")

	// ErrBackupsUnavailable is returned when the store keeps no backup history.
	ErrBackupsUnavailable = errors.New("backups not configured")
)

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrJobNotFound) ||
		errors.Is(err, ErrLogNotFound) ||
		errors.Is(err, ErrTemplateNotFound) ||
		generic.IsNotFound(err)
}

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return payroll.IsValidationError(err) ||
		errors.Is(err, factory.ErrMalformedState)
}
