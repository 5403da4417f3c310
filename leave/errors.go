/*
errors.go - Error taxonomy for the leave engine

PURPOSE:
  All error types in one place. The taxonomy the API layer maps to HTTP:

  1. Validation errors  - bad input, rejected before any mutation
  2. State conflicts    - action attempted against the wrong lifecycle
                          state; carries the current state so the caller
                          can refresh
  3. Concurrency        - lost the version race; retried once internally
  4. Not found          - missing request/employee/summary

  Insufficient credit is deliberately NOT an error: the split resolver
  converts the shortfall into unpaid time off instead of failing.

USAGE:
  if errors.Is(err, leave.ErrNotPending) { ... }

  var vErr *leave.ValidationError
  if errors.As(err, &vErr) { ... }
*/
package leave

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrNotPending is returned when a transition requires a pending
	// request and the request has already left that state.
	ErrNotPending = errors.New("request is not pending")

	// ErrTerminalState is returned on any action against a denied or
	// cancelled request.
	ErrTerminalState = errors.New("request is in a terminal state")

	// ErrNotApproved is returned when date adjustment targets a request
	// that is not approved.
	ErrNotApproved = errors.New("request is not approved")

	// ErrRoleAlreadyApproved prevents the same role from recording its
	// approval twice.
	ErrRoleAlreadyApproved = errors.New("role has already approved this request")

	// ErrTLGateUnmet is returned when admin/HR approval arrives before a
	// required team-lead approval.
	ErrTLGateUnmet = errors.New("team lead approval required first")

	// ErrRoleNotAllowed is returned when the acting role cannot perform
	// the transition.
	ErrRoleNotAllowed = errors.New("role not allowed for this action")

	// ErrCompanionExists guards the create-exactly-once companion
	// invariant.
	ErrCompanionExists = errors.New("companion request already exists")

	// ErrConcurrentModification is returned when the versioned update of
	// a request or credit summary loses a race.
	ErrConcurrentModification = errors.New("concurrent modification detected")

	// ErrRequestNotFound / ErrEmployeeNotFound / ErrSummaryNotFound are
	// the missing-record sentinels.
	ErrRequestNotFound  = errors.New("leave request not found")
	ErrEmployeeNotFound = errors.New("employee not found")
	ErrSummaryNotFound  = errors.New("credit summary not found")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError rejects invalid input before any mutation is applied.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func newValidationError(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// StateConflictError reports an illegal transition together with the
// request's current state so the UI can refresh.
type StateConflictError struct {
	RequestID string
	Status    Status
	Action    string
	Err       error
}

func (e *StateConflictError) Error() string {
	return fmt.Sprintf("cannot %s request %s in status %q: %v",
		e.Action, e.RequestID, e.Status, e.Err)
}

func (e *StateConflictError) Unwrap() error { return e.Err }

func stateConflict(r *Request, action string, err error) *StateConflictError {
	return &StateConflictError{RequestID: r.ID, Status: r.Status, Action: action, Err: err}
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsValidation reports whether the error is a caller input problem.
func IsValidation(err error) bool {
	var vErr *ValidationError
	return errors.As(err, &vErr)
}

// IsStateConflict reports whether the error is a lifecycle-state problem.
func IsStateConflict(err error) bool {
	var sErr *StateConflictError
	if errors.As(err, &sErr) {
		return true
	}
	return errors.Is(err, ErrNotPending) ||
		errors.Is(err, ErrNotApproved) ||
		errors.Is(err, ErrTerminalState) ||
		errors.Is(err, ErrRoleAlreadyApproved) ||
		errors.Is(err, ErrTLGateUnmet) ||
		errors.Is(err, ErrRoleNotAllowed) ||
		errors.Is(err, ErrCompanionExists)
}

// IsRetryable reports whether the error might succeed on retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrentModification)
}

// IsNotFound reports whether the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrRequestNotFound) ||
		errors.Is(err, ErrEmployeeNotFound) ||
		errors.Is(err, ErrSummaryNotFound)
}
