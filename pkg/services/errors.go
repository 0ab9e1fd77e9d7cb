// Package services implements the plan, template and lead operations behind the API.
package services

import (
	"errors"
	"fmt"

	"github.com/dukex/followup/pkg/lifecycle"
	"github.com/dukex/followup/pkg/persistence"
	"github.com/dukex/followup/pkg/planner"
)

// Error classes. Specific errors below wrap exactly one of them.
var (
	// ErrValidation marks caller mistakes (400 Bad Request), never retried.
	ErrValidation = errors.New("validation error")

	// ErrPrecondition marks actions the current state does not allow (409 Conflict).
	ErrPrecondition = errors.New("precondition failed")

	// ErrTransport marks network or remote failures seen by API clients. Never retried.
	ErrTransport = errors.New("transport error")
)

// Validation errors.
var (
	ErrInvalidRequest    = fmt.Errorf("%w: invalid request", ErrValidation)
	ErrTemplateRequired  = fmt.Errorf("%w: %w", ErrValidation, planner.ErrTemplateRequired)
	ErrNoTargets         = fmt.Errorf("%w: %w", ErrValidation, planner.ErrNoTargets)
	ErrInvalidTimezone   = fmt.Errorf("%w: %w", ErrValidation, planner.ErrInvalidTimezone)
	ErrInvalidStartDate  = fmt.Errorf("%w: invalid start date", ErrValidation)
	ErrInvalidTimeOfDay  = fmt.Errorf("%w: invalid time of day, expected HH:mm", ErrValidation)
	ErrNothingToSchedule = fmt.Errorf("%w: %w", ErrValidation, planner.ErrNothingToSchedule)
	ErrInvalidDays       = fmt.Errorf("%w: %w", ErrValidation, planner.ErrInvalidDays)
	ErrInvalidSortField  = fmt.Errorf("%w: %w", ErrValidation, persistence.ErrInvalidSortField)
	ErrInvalidSortOrder  = fmt.Errorf("%w: %w", ErrValidation, persistence.ErrInvalidSortOrder)
	ErrInvalidStatus     = fmt.Errorf("%w: invalid plan status", ErrValidation)
)

// Precondition errors.
var (
	ErrPlanNotCancellable = fmt.Errorf("%w: %w", ErrPrecondition, lifecycle.ErrNotCancellable)
	ErrMutationInFlight   = fmt.Errorf("%w: a change to this plan is already in progress", ErrPrecondition)
)

// ServiceError wraps service-level errors with additional context.
type ServiceError struct {
	Op      string // Operation name
	Code    string // Error code for API responses
	Message string // Human-readable message
	Err     error  // Underlying error
}

func (e *ServiceError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}

	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func (e *ServiceError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// IsValidationError checks if an error is a validation error that should return HTTP 400.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsPreconditionError checks if an error is a rejected action that should return HTTP 409.
func IsPreconditionError(err error) bool {
	return errors.Is(err, ErrPrecondition)
}

// IsTransportError checks if an error is a network or remote failure.
func IsTransportError(err error) bool {
	return errors.Is(err, ErrTransport)
}

// IsConflictError is kept as the HTTP-oriented name of IsPreconditionError.
func IsConflictError(err error) bool {
	return IsPreconditionError(err)
}

// NewValidationError creates a new validation error with context.
func NewValidationError(op, code, message string, err error) *ServiceError {
	return &ServiceError{
		Op:      op,
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// NewPreconditionError creates a new precondition error with context.
func NewPreconditionError(op, code, message string, err error) *ServiceError {
	return &ServiceError{
		Op:      op,
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// translatePlannerError maps materializer failures onto the service taxonomy.
func translatePlannerError(err error) error {
	switch {
	case errors.Is(err, planner.ErrTemplateRequired):
		return NewValidationError("CreatePlan", "TEMPLATE_REQUIRED", "select a template", ErrTemplateRequired)
	case errors.Is(err, planner.ErrNoTargets):
		return NewValidationError("CreatePlan", "NO_TARGETS", "select at least one target", ErrNoTargets)
	case errors.Is(err, planner.ErrInvalidTimezone):
		return NewValidationError("CreatePlan", "INVALID_TIMEZONE", err.Error(), ErrInvalidTimezone)
	case errors.Is(err, planner.ErrNothingToSchedule):
		return NewValidationError("CreatePlan", "NOTHING_TO_SCHEDULE", "nothing to schedule", ErrNothingToSchedule)
	case errors.Is(err, planner.ErrInvalidDays):
		return NewValidationError("CreatePlan", "INVALID_DAYS", err.Error(), ErrInvalidDays)
	default:
		return NewValidationError("CreatePlan", "INVALID_TIME_OF_DAY", err.Error(), ErrInvalidTimeOfDay)
	}
}
