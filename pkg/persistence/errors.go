// Package persistence provides the storage abstraction for workflow drafts
// and proposals.
package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error types that all implementations should use.
var (
	// ErrDraftNotFound indicates no draft exists for the given entity type.
	ErrDraftNotFound = errors.New("draft not found")

	// ErrProposalNotFound indicates a proposal was not found by id.
	ErrProposalNotFound = errors.New("proposal not found")
)

// DraftError wraps draft-related errors with operation context.
type DraftError struct {
	Op         string // Operation being performed (e.g., "Get", "Save")
	EntityType string
	Err        error
}

func (e *DraftError) Error() string {
	return fmt.Sprintf("%s operation failed for draft %s: %v", e.Op, e.EntityType, e.Err)
}

func (e *DraftError) Unwrap() error {
	return e.Err
}

func (e *DraftError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewDraftError creates a draft error with context.
func NewDraftError(op, entityType string, err error) *DraftError {
	return &DraftError{Op: op, EntityType: entityType, Err: err}
}

// ProposalError wraps proposal-related errors with operation context.
type ProposalError struct {
	Op         string
	ProposalID string
	Err        error
}

func (e *ProposalError) Error() string {
	return fmt.Sprintf("%s operation failed for proposal %s: %v", e.Op, e.ProposalID, e.Err)
}

func (e *ProposalError) Unwrap() error {
	return e.Err
}

func (e *ProposalError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewProposalError creates a proposal error with context.
func NewProposalError(op, proposalID string, err error) *ProposalError {
	return &ProposalError{Op: op, ProposalID: proposalID, Err: err}
}

// IsDraftNotFound checks if an error indicates a missing draft.
func IsDraftNotFound(err error) bool {
	return errors.Is(err, ErrDraftNotFound)
}

// IsProposalNotFound checks if an error indicates a missing proposal.
func IsProposalNotFound(err error) bool {
	return errors.Is(err, ErrProposalNotFound)
}
