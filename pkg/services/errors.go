// Package services provides the business operations over workflow drafts
// and proposals, and standardized error types for the layers above.
package services

import (
	"errors"
	"fmt"
)

// Business Logic Errors - These indicate client errors (4xx responses).
var (
	// Validation Errors (400 Bad Request).
	ErrInvalidRequest     = errors.New("invalid request")
	ErrEntityTypeRequired = errors.New("entity type is required")
	ErrTitleRequired      = errors.New("proposal title is required")
	ErrAuthorRequired     = errors.New("proposal author is required")
	ErrDraftNil           = errors.New("draft cannot be nil")
	ErrStartNodeUnknown   = errors.New("start node does not exist in the draft")
	ErrDraftInvalid       = errors.New("draft failed validation")

	// Business Logic Conflicts (409 Conflict).
	ErrVersionConflict         = errors.New("draft was modified by someone else")
	ErrProposalAlreadyDecided  = errors.New("proposal has already been decided")
	ErrNothingToPublish        = errors.New("draft has no changes to publish")
	ErrCannotModifyPublishLock = errors.New("publish already in progress")
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
	return errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, ErrEntityTypeRequired) ||
		errors.Is(err, ErrTitleRequired) ||
		errors.Is(err, ErrAuthorRequired) ||
		errors.Is(err, ErrDraftNil) ||
		errors.Is(err, ErrStartNodeUnknown) ||
		errors.Is(err, ErrDraftInvalid)
}

// IsConflictError checks if an error is a business logic conflict that should return HTTP 409.
func IsConflictError(err error) bool {
	return errors.Is(err, ErrVersionConflict) ||
		errors.Is(err, ErrProposalAlreadyDecided) ||
		errors.Is(err, ErrNothingToPublish) ||
		errors.Is(err, ErrCannotModifyPublishLock)
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
