/*
errors.go - Centralized error types for the offboarding engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Callers (API layer, batch processor, sweep) classify errors with the
  helpers at the bottom rather than matching strings.

ERROR CATEGORIES:
  1. Validation errors - Bad input, rejected before any write
  2. Precondition errors - Business-rule violations; terminal, never retried
  3. Storage errors - Transaction conflicts; safe to retry whole operation

USAGE:
  if errors.Is(err, hr.ErrAlreadyActed) {
      // the stage was decided by a concurrent actor
  }

SEE ALSO:
  - service.go: Where precondition errors originate
  - store.go: Where storage errors originate
*/
package hr

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidInput is returned for malformed input (unknown level,
	// unknown decision, missing reason). No write is attempted.
	ErrInvalidInput = errors.New("invalid input")

	// ErrAlreadyApplied is returned when the employee already has an
	// active resignation.
	ErrAlreadyApplied = errors.New("resignation already applied")

	// ErrNotAwaitingThisLevel is returned when the acted-on level is not
	// the resignation's current approval level.
	ErrNotAwaitingThisLevel = errors.New("resignation not awaiting this level")

	// ErrAlreadyActed is returned when the stage has already been decided.
	// The loser of a concurrent race on the same stage observes this.
	ErrAlreadyActed = errors.New("stage already acted on")

	// ErrApprovalInProgress is returned when a withdrawal arrives after
	// any stage has left pending.
	ErrApprovalInProgress = errors.New("approval already in progress")

	// ErrNotWithdrawableByActor is returned when the withdrawing identity
	// is not the resignation's original applicant.
	ErrNotWithdrawableByActor = errors.New("only the applicant may withdraw")

	// ErrRoleNotAllowed is returned when the supplied role cannot reach
	// the requested operation (e.g. an hr actor deciding the manager
	// stage). Roles themselves come from the identity collaborator.
	ErrRoleNotAllowed = errors.New("role not allowed for this operation")

	// ErrEmployeeNotFound is returned when the referenced employee does
	// not exist in the directory.
	ErrEmployeeNotFound = errors.New("employee not found")

	// ErrResignationNotFound is returned when the referenced resignation
	// does not exist.
	ErrResignationNotFound = errors.New("resignation not found")

	// ErrNotFinalizable is returned when Finalize is invoked on a
	// resignation that is neither approved-and-past-due nor completed.
	ErrNotFinalizable = errors.New("resignation not eligible for finalization")

	// ErrTxConflict is returned when the store detects concurrent
	// modification. The whole operation is safe to retry from scratch.
	ErrTxConflict = errors.New("transaction conflict")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// NotAwaitingLevelError reports a stage-ordering violation.
type NotAwaitingLevelError struct {
	ResignationID string
	Requested     Level
	Current       Level
}

func (e *NotAwaitingLevelError) Error() string {
	return fmt.Sprintf("resignation %s awaiting %s, not %s", e.ResignationID, e.Current, e.Requested)
}

func (e *NotAwaitingLevelError) Unwrap() error { return ErrNotAwaitingThisLevel }

// AlreadyActedError reports a repeat decision on a decided stage.
type AlreadyActedError struct {
	ResignationID string
	Level         Level
	StageStatus   StageStatus
}

func (e *AlreadyActedError) Error() string {
	return fmt.Sprintf("resignation %s level %s already %s", e.ResignationID, e.Level, e.StageStatus)
}

func (e *AlreadyActedError) Unwrap() error { return ErrAlreadyActed }

// BatchIneligibleError aborts a whole batch. It names only the count of
// ineligible entries; no per-item list, and zero records were mutated.
type BatchIneligibleError struct {
	Requested  int
	Ineligible int
}

func (e *BatchIneligibleError) Error() string {
	return fmt.Sprintf("batch rejected: %d of %d entries ineligible, nothing applied", e.Ineligible, e.Requested)
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsRetryable returns true if the whole operation might succeed on retry.
// Preconditions are re-checked atomically, so retrying is always safe.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTxConflict)
}

// IsClientError returns true for terminal business errors caused by the
// caller's request. These are never retried automatically.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrAlreadyApplied) ||
		errors.Is(err, ErrNotAwaitingThisLevel) ||
		errors.Is(err, ErrAlreadyActed) ||
		errors.Is(err, ErrApprovalInProgress) ||
		errors.Is(err, ErrNotWithdrawableByActor) ||
		errors.Is(err, ErrRoleNotAllowed)
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrEmployeeNotFound) ||
		errors.Is(err, ErrResignationNotFound)
}
