// Package persistence provides standardized error types for persistence operations.
package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error types that all implementations should use.
var (
	// ErrPlanNotFound indicates a plan was not found by the given identifier.
	ErrPlanNotFound = errors.New("plan not found")

	// ErrTemplateNotFound indicates a template was not found by the given identifier.
	ErrTemplateNotFound = errors.New("template not found")

	// ErrLeadNotFound indicates a lead was not found by the given identifier.
	ErrLeadNotFound = errors.New("lead not found")

	// ErrPlanStatusChanged indicates a conditional write found the plan in another status.
	ErrPlanStatusChanged = errors.New("plan status changed")

	// ErrInvalidSortField indicates a listing asked for a column that cannot be sorted on.
	ErrInvalidSortField = errors.New("invalid sort field")

	// ErrInvalidSortOrder indicates a listing sort order other than asc or desc.
	ErrInvalidSortOrder = errors.New("invalid sort order")
)

// EntityError wraps repository errors with the operation and entity involved.
type EntityError struct {
	Op     string // Operation being performed (e.g., "GetByID", "Save", "Delete")
	Entity string // "plan", "template" or "lead"
	ID     string
	Err    error
}

func (e *EntityError) Error() string {
	return fmt.Sprintf("%s operation failed for %s %s: %v", e.Op, e.Entity, e.ID, e.Err)
}

func (e *EntityError) Unwrap() error {
	return e.Err
}

// Is implements error comparison for entity errors.
func (e *EntityError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewPlanError creates a new plan error with context.
func NewPlanError(op, planID string, err error) *EntityError {
	return &EntityError{Op: op, Entity: "plan", ID: planID, Err: err}
}

// NewTemplateError creates a new template error with context.
func NewTemplateError(op, templateID string, err error) *EntityError {
	return &EntityError{Op: op, Entity: "template", ID: templateID, Err: err}
}

// NewLeadError creates a new lead error with context.
func NewLeadError(op, leadID string, err error) *EntityError {
	return &EntityError{Op: op, Entity: "lead", ID: leadID, Err: err}
}

// IsPlanNotFound checks if an error indicates a plan was not found.
func IsPlanNotFound(err error) bool {
	return errors.Is(err, ErrPlanNotFound)
}

// IsPlanStatusChanged checks if a conditional write lost against a status change.
func IsPlanStatusChanged(err error) bool {
	return errors.Is(err, ErrPlanStatusChanged)
}

// IsTemplateNotFound checks if an error indicates a template was not found.
func IsTemplateNotFound(err error) bool {
	return errors.Is(err, ErrTemplateNotFound)
}

// IsLeadNotFound checks if an error indicates a lead was not found.
func IsLeadNotFound(err error) bool {
	return errors.Is(err, ErrLeadNotFound)
}

// IsNotFound checks for any of the not found errors.
func IsNotFound(err error) bool {
	return IsPlanNotFound(err) || IsTemplateNotFound(err) || IsLeadNotFound(err)
}

// IsInvalidSortField checks if an error indicates an unsupported sort column.
func IsInvalidSortField(err error) bool {
	return errors.Is(err, ErrInvalidSortField)
}
