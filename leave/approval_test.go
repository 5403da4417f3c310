package leave_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/leave-engine/calendar"
	"github.com/warp/leave-engine/leave"
)

func newPendingRequest() *leave.Request {
	return &leave.Request{
		ID:            "req-1",
		EmployeeID:    "emp-1",
		Campaign:      "alpha",
		Type:          leave.TypeVacation,
		StartDate:     calendar.NewDate(2026, time.April, 6),
		EndDate:       calendar.NewDate(2026, time.April, 10),
		DaysRequested: decimal.NewFromInt(5),
		Reason:        "family trip out of town",
		Status:        leave.StatusPending,
	}
}

var reviewTime = time.Date(2026, time.March, 20, 9, 0, 0, 0, time.UTC)

// =============================================================================
// TEAM LEAD GATE
// =============================================================================

func TestTLGate_NotRequired_Satisfied(t *testing.T) {
	r := newPendingRequest()
	assert.True(t, leave.TLGateSatisfied(r))
}

func TestTLGate_RequiredAndUnmet_BlocksApproval(t *testing.T) {
	// GIVEN: A flagged employee whose TL has not endorsed
	// WHEN: Admin tries to approve
	// THEN: The approval is blocked by the gate

	r := newPendingRequest()
	r.RequiresTLApproval = true

	_, err := leave.RecordApproval(r, leave.RoleAdmin, "looks fine", reviewTime)
	assert.ErrorIs(t, err, leave.ErrTLGateUnmet)
	assert.Equal(t, leave.StatusPending, r.Status)
	assert.Nil(t, r.AdminApprovedAt)
}

func TestRecordTLApproval(t *testing.T) {
	r := newPendingRequest()
	r.RequiresTLApproval = true

	err := leave.RecordTLApproval(r, "workload covered", reviewTime)
	require.NoError(t, err)

	assert.NotNil(t, r.TLApprovedAt)
	assert.Equal(t, leave.StatusPending, r.Status, "TL endorsement does not approve")
	assert.True(t, leave.TLGateSatisfied(r))

	// A second endorsement is rejected
	err = leave.RecordTLApproval(r, "again", reviewTime)
	assert.ErrorIs(t, err, leave.ErrRoleAlreadyApproved)
}

func TestRecordTLApproval_NotRequired_Rejected(t *testing.T) {
	r := newPendingRequest()
	err := leave.RecordTLApproval(r, "endorsed", reviewTime)
	assert.ErrorIs(t, err, leave.ErrRoleNotAllowed)
}

func TestRecordTLRejection_DeniesOutright(t *testing.T) {
	// GIVEN: A flagged employee's pending request
	// WHEN: The TL rejects it
	// THEN: The request is denied with no admin/HR involvement

	r := newPendingRequest()
	r.RequiresTLApproval = true

	err := leave.RecordTLRejection(r, "critical coverage week", reviewTime)
	require.NoError(t, err)

	assert.Equal(t, leave.StatusDenied, r.Status)
	assert.True(t, r.TLRejected)
	assert.NotNil(t, r.ReviewedAt)
	assert.Nil(t, r.AdminApprovedAt)
	assert.Nil(t, r.HRApprovedAt)
}

func TestRecordTLRejection_RequiresNotes(t *testing.T) {
	r := newPendingRequest()
	r.RequiresTLApproval = true

	err := leave.RecordTLRejection(r, "no", reviewTime)
	assert.True(t, leave.IsValidation(err))
	assert.Equal(t, leave.StatusPending, r.Status)
}

// =============================================================================
// DUAL CONTROL
// =============================================================================

func TestRecordApproval_DualControl_EitherOrder(t *testing.T) {
	// GIVEN: A pending request with no TL gate
	// WHEN: HR approves first, then admin
	// THEN: Only the second approval finalizes

	r := newPendingRequest()

	complete, err := leave.RecordApproval(r, leave.RoleHR, "policy ok", reviewTime)
	require.NoError(t, err)
	assert.False(t, complete)
	assert.Equal(t, leave.StatusPending, r.Status)

	complete, err = leave.RecordApproval(r, leave.RoleAdmin, "coverage ok", reviewTime)
	require.NoError(t, err)
	assert.True(t, complete)
	assert.Equal(t, leave.StatusApproved, r.Status)
	assert.NotNil(t, r.ReviewedAt)
}

func TestRecordApproval_SameRoleTwice_Rejected(t *testing.T) {
	r := newPendingRequest()

	_, err := leave.RecordApproval(r, leave.RoleAdmin, "first", reviewTime)
	require.NoError(t, err)

	_, err = leave.RecordApproval(r, leave.RoleAdmin, "second", reviewTime)
	assert.ErrorIs(t, err, leave.ErrRoleAlreadyApproved)
}

func TestRecordApproval_NonApproverRole_Rejected(t *testing.T) {
	r := newPendingRequest()
	_, err := leave.RecordApproval(r, leave.RoleEmployee, "self serve", reviewTime)
	assert.ErrorIs(t, err, leave.ErrRoleNotAllowed)

	_, err = leave.RecordApproval(r, leave.RoleSuperAdmin, "use force-approve", reviewTime)
	assert.ErrorIs(t, err, leave.ErrRoleNotAllowed)
}

// =============================================================================
// DENY / FORCE APPROVE
// =============================================================================

func TestDeny(t *testing.T) {
	r := newPendingRequest()

	err := leave.Deny(r, leave.RoleHR, "no coverage that week", reviewTime)
	require.NoError(t, err)
	assert.Equal(t, leave.StatusDenied, r.Status)
	assert.Equal(t, "no coverage that week", r.ReviewNotes)
}

func TestDeny_TerminalState_Rejected(t *testing.T) {
	r := newPendingRequest()
	r.Status = leave.StatusDenied

	err := leave.Deny(r, leave.RoleHR, "again for good measure", reviewTime)
	assert.ErrorIs(t, err, leave.ErrTerminalState)
	assert.True(t, leave.IsStateConflict(err))
}

func TestForceApprove_SuperAdminOnly(t *testing.T) {
	// GIVEN: A pending request with an unmet TL gate
	// WHEN: A super-admin force approves
	// THEN: The request is approved despite the gate

	r := newPendingRequest()
	r.RequiresTLApproval = true

	err := leave.ForceApprove(r, leave.RoleAdmin, "override", reviewTime)
	assert.ErrorIs(t, err, leave.ErrRoleNotAllowed)

	err = leave.ForceApprove(r, leave.RoleSuperAdmin, "executive escalation", reviewTime)
	require.NoError(t, err)
	assert.Equal(t, leave.StatusApproved, r.Status)
}

// =============================================================================
// CANCELLATION
// =============================================================================

func TestCanCancel(t *testing.T) {
	r := newPendingRequest()

	assert.True(t, leave.CanCancel(r, "emp-1", leave.RoleEmployee), "owner cancels own pending")
	assert.False(t, leave.CanCancel(r, "emp-2", leave.RoleEmployee), "stranger cannot")
	assert.True(t, leave.CanCancel(r, "hr-1", leave.RoleHR))

	r.Status = leave.StatusApproved
	assert.False(t, leave.CanCancel(r, "emp-1", leave.RoleEmployee), "owner cannot cancel approved")
	assert.True(t, leave.CanCancel(r, "adm-1", leave.RoleAdmin))

	r.Status = leave.StatusDenied
	assert.False(t, leave.CanCancel(r, "adm-1", leave.RoleAdmin), "terminal is terminal")
}

func TestCancel(t *testing.T) {
	r := newPendingRequest()

	err := leave.Cancel(r, "emp-1", leave.RoleEmployee, "plans changed", reviewTime)
	require.NoError(t, err)
	assert.Equal(t, leave.StatusCancelled, r.Status)
	assert.Equal(t, "emp-1", r.CancelledBy)
	assert.Equal(t, "plans changed", r.CancellationReason)

	// Cancelled is terminal
	err = leave.Cancel(r, "emp-1", leave.RoleEmployee, "twice", reviewTime)
	assert.ErrorIs(t, err, leave.ErrTerminalState)
}
