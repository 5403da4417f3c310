/*
approval.go - Approval state machine

PURPOSE:
  Owns the legality of every status transition. A request leaves pending
  through exactly one of:

    team-lead rejection        -> denied
    full deny (admin/HR)       -> denied
    dual admin+HR approval     -> approved (after the TL gate, if any)
    super-admin force approve  -> approved (bypasses unmet gates)
    cancellation               -> cancelled

  Approved admits only cancel / date-adjust by an admin role. Denied and
  cancelled are terminal.

STATE DIAGRAM:

            +-----------+   TL reject / deny    +--------+
            |  pending  |---------------------->| denied |
            +-----------+                       +--------+
              |      |
   TL gate    |      | cancel                  +-----------+
   then dual  |      +------------------------>| cancelled |
   admin+HR   v                                +-----------+
            +----------+      cancel (admin)        ^
            | approved |----------------------------+
            +----------+

  The functions here mutate the request in memory only. Persistence, credit
  side effects, and companion creation belong to the service, inside one
  store transaction.

SEE ALSO:
  - service.go: runs these transitions inside WithTx
  - split.go: credit resolution triggered when approval completes
*/
package leave

import (
	"strings"
	"time"
)

// ensureActionable rejects any action against a non-pending request. The
// caller distinguishes cancel-of-approved separately.
func ensureActionable(r *Request, action string) error {
	if r.IsTerminal() {
		return stateConflict(r, action, ErrTerminalState)
	}
	if r.Status != StatusPending {
		return stateConflict(r, action, ErrNotPending)
	}
	return nil
}

func validateReviewNotes(notes string) error {
	if len(strings.TrimSpace(notes)) < MinReviewNotesLength {
		return newValidationError("notes",
			"review notes must be at least %d characters", MinReviewNotesLength)
	}
	return nil
}

// =============================================================================
// TEAM LEAD GATE
// =============================================================================

// TLGateSatisfied reports whether admin/HR approval may proceed.
func TLGateSatisfied(r *Request) bool {
	return !r.RequiresTLApproval || r.TLApprovedAt != nil
}

// RecordTLApproval records the team lead's sign-off. It does not change
// status; the request stays pending for admin/HR.
func RecordTLApproval(r *Request, notes string, now time.Time) error {
	if err := ensureActionable(r, "tl-approve"); err != nil {
		return err
	}
	if !r.RequiresTLApproval {
		return stateConflict(r, "tl-approve", ErrRoleNotAllowed)
	}
	if r.TLApprovedAt != nil {
		return stateConflict(r, "tl-approve", ErrRoleAlreadyApproved)
	}
	r.TLApprovedAt = &now
	r.TLReviewNotes = notes
	r.UpdatedAt = now
	return nil
}

// RecordTLRejection denies the request immediately, independent of admin
// and HR. Requires substantive notes.
func RecordTLRejection(r *Request, notes string, now time.Time) error {
	if err := ensureActionable(r, "tl-deny"); err != nil {
		return err
	}
	if !r.RequiresTLApproval {
		return stateConflict(r, "tl-deny", ErrRoleNotAllowed)
	}
	if err := validateReviewNotes(notes); err != nil {
		return err
	}
	r.TLRejected = true
	r.TLReviewNotes = notes
	r.Status = StatusDenied
	r.ReviewedAt = &now
	r.UpdatedAt = now
	return nil
}

// =============================================================================
// DUAL CONTROL - Admin and HR must both sign off
// =============================================================================

// HasRoleApproved reports whether the given approver role has already
// recorded its approval.
func HasRoleApproved(r *Request, role Role) bool {
	switch role {
	case RoleAdmin:
		return r.AdminApprovedAt != nil
	case RoleHR:
		return r.HRApprovedAt != nil
	case RoleTeamLead:
		return r.TLApprovedAt != nil
	}
	return false
}

// RecordApproval records one approver role's sign-off. Either role may act
// in any order; the request transitions to approved only when both have.
// Returns true when this approval completed the dual-control requirement.
func RecordApproval(r *Request, role Role, notes string, now time.Time) (bool, error) {
	if err := ensureActionable(r, "approve"); err != nil {
		return false, err
	}
	if !role.IsApproverRole() {
		return false, stateConflict(r, "approve", ErrRoleNotAllowed)
	}
	if !TLGateSatisfied(r) {
		return false, stateConflict(r, "approve", ErrTLGateUnmet)
	}
	if HasRoleApproved(r, role) {
		return false, stateConflict(r, "approve", ErrRoleAlreadyApproved)
	}

	switch role {
	case RoleAdmin:
		r.AdminApprovedAt = &now
		r.AdminReviewNotes = notes
	case RoleHR:
		r.HRApprovedAt = &now
		r.HRReviewNotes = notes
	}
	r.UpdatedAt = now

	complete := r.AdminApprovedAt != nil && r.HRApprovedAt != nil
	if complete {
		r.Status = StatusApproved
		r.ReviewedAt = &now
	}
	return complete, nil
}

// =============================================================================
// DENY / FORCE APPROVE / CANCEL
// =============================================================================

// Deny fully denies a pending request. Requires substantive notes. Like TL
// rejection, no credit deduction has happened yet, so there is nothing to
// restore.
func Deny(r *Request, role Role, notes string, now time.Time) error {
	if err := ensureActionable(r, "deny"); err != nil {
		return err
	}
	if !role.IsAdminRole() {
		return stateConflict(r, "deny", ErrRoleNotAllowed)
	}
	if err := validateReviewNotes(notes); err != nil {
		return err
	}
	r.Status = StatusDenied
	r.ReviewedAt = &now
	r.ReviewNotes = notes
	r.UpdatedAt = now
	return nil
}

// ForceApprove transitions the request to approved unconditionally,
// bypassing any unmet TL/admin/HR gate. Super-admin only.
func ForceApprove(r *Request, role Role, notes string, now time.Time) error {
	if err := ensureActionable(r, "force-approve"); err != nil {
		return err
	}
	if role != RoleSuperAdmin {
		return stateConflict(r, "force-approve", ErrRoleNotAllowed)
	}
	r.Status = StatusApproved
	r.ReviewedAt = &now
	r.ReviewNotes = notes
	r.UpdatedAt = now
	return nil
}

// CanCancel reports whether the actor may cancel the request in its current
// state: pending requests by their owner or any admin role, approved
// requests only by an admin role.
func CanCancel(r *Request, actorID string, role Role) bool {
	switch r.Status {
	case StatusPending:
		return actorID == r.EmployeeID || role.IsAdminRole()
	case StatusApproved:
		return role.IsAdminRole()
	}
	return false
}

// Cancel transitions the request to cancelled. Credit restoration for a
// previously approved request is the service's responsibility, inside the
// same transaction.
func Cancel(r *Request, actorID string, role Role, reason string, now time.Time) error {
	if r.IsTerminal() {
		return stateConflict(r, "cancel", ErrTerminalState)
	}
	if !CanCancel(r, actorID, role) {
		return stateConflict(r, "cancel", ErrRoleNotAllowed)
	}
	r.Status = StatusCancelled
	r.CancelledBy = actorID
	r.CancellationReason = reason
	r.UpdatedAt = now
	return nil
}
