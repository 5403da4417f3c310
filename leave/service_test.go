package leave_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/leave-engine/calendar"
	"github.com/warp/leave-engine/credits"
	"github.com/warp/leave-engine/leave"
	"github.com/warp/leave-engine/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

// Fixed clock: requests in these tests span Mon Apr 6 - Fri Apr 10, 2026,
// submitted Apr 1 so no accrual posts between submission and start.
var testNow = time.Date(2026, time.April, 1, 8, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) (*leave.Service, *sqlite.Store) {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	svc := leave.NewService(store, store, leave.WithClock(func() time.Time { return testNow }))
	return svc, store
}

func seedEmployee(t *testing.T, store *sqlite.Store, id string, requiresTL bool) {
	t.Helper()
	err := store.SaveEmployee(context.Background(), leave.Employee{
		ID:                 id,
		Name:               "Test Employee " + id,
		Campaign:           "alpha",
		HireDate:           calendar.NewDate(2024, time.January, 15),
		Role:               leave.RoleEmployee,
		RequiresTLApproval: requiresTL,
	})
	require.NoError(t, err)
}

func seedSummary(t *testing.T, store *sqlite.Store, employeeID, balance string) {
	t.Helper()
	bal := decimal.RequireFromString(balance)
	err := store.SaveSummary(context.Background(), &credits.Summary{
		EmployeeID:      employeeID,
		Year:            2026,
		IsEligible:      true,
		EligibilityDate: calendar.NewDate(2024, time.July, 15),
		MonthlyRate:     decimal.RequireFromString("1.25"),
		TotalEarned:     bal,
		Balance:         bal,
	})
	require.NoError(t, err)
}

func vacationInput(employeeID string) leave.CreateInput {
	return leave.CreateInput{
		EmployeeID: employeeID,
		Type:       leave.TypeVacation,
		StartDate:  calendar.NewDate(2026, time.April, 6),
		EndDate:    calendar.NewDate(2026, time.April, 10),
		Reason:     "family trip out of town",
		Campaign:   "alpha",
	}
}

func getSummary(t *testing.T, store *sqlite.Store, employeeID string) *credits.Summary {
	t.Helper()
	s, err := store.GetSummary(context.Background(), employeeID, 2026)
	require.NoError(t, err)
	return s
}

// =============================================================================
// CREATE
// =============================================================================

func TestService_Create_ReservesCreditHold(t *testing.T) {
	// GIVEN: A credit-bearing vacation request for five working days
	// WHEN: Creating it
	// THEN: It is pending and five credits are held against the summary

	svc, store := newTestService(t)
	seedEmployee(t, store, "emp-1", false)
	seedSummary(t, store, "emp-1", "10")

	result, err := svc.Create(context.Background(), vacationInput("emp-1"))
	require.NoError(t, err)

	req := result.Request
	assert.Equal(t, leave.StatusPending, req.Status)
	assert.True(t, req.DaysRequested.Equal(decimal.NewFromInt(5)))
	assert.NotEmpty(t, req.ID)

	sum := getSummary(t, store, "emp-1")
	assert.True(t, sum.PendingCredits.Equal(decimal.NewFromInt(5)), "hold placed")
	assert.True(t, sum.Balance.Equal(decimal.NewFromInt(10)), "balance untouched until approval")
}

func TestService_Create_Validation(t *testing.T) {
	svc, store := newTestService(t)
	seedEmployee(t, store, "emp-1", false)

	cases := map[string]func(*leave.CreateInput){
		"unknown type":   func(in *leave.CreateInput) { in.Type = "XX" },
		"short reason":   func(in *leave.CreateInput) { in.Reason = "because" },
		"no campaign":    func(in *leave.CreateInput) { in.Campaign = " " },
		"inverted dates": func(in *leave.CreateInput) { in.EndDate = in.StartDate.AddDays(-7) },
		"weekend start": func(in *leave.CreateInput) {
			in.StartDate = calendar.NewDate(2026, time.April, 4) // Saturday
		},
	}
	for name, mutate := range cases {
		in := vacationInput("emp-1")
		mutate(&in)
		_, err := svc.Create(context.Background(), in)
		assert.True(t, leave.IsValidation(err), "%s should fail validation, got %v", name, err)
	}
}

func TestService_Create_WeekendOnlyRange_Rejected(t *testing.T) {
	// LOA has no weekend edge restriction, but a range with no working
	// days still cannot be requested
	svc, store := newTestService(t)
	seedEmployee(t, store, "emp-1", false)

	in := vacationInput("emp-1")
	in.Type = leave.TypeLeaveOfAbsence
	in.StartDate = calendar.NewDate(2026, time.April, 4)
	in.EndDate = calendar.NewDate(2026, time.April, 5)

	_, err := svc.Create(context.Background(), in)
	assert.True(t, leave.IsValidation(err))
}

func TestService_Create_UnknownEmployee(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Create(context.Background(), vacationInput("ghost"))
	assert.ErrorIs(t, err, leave.ErrEmployeeNotFound)
}

func TestService_Create_SurfacesConflicts(t *testing.T) {
	// GIVEN: A teammate already approved for the same week
	// WHEN: A second employee requests overlapping dates
	// THEN: The conflict is reported but creation succeeds

	svc, store := newTestService(t)
	seedEmployee(t, store, "emp-1", false)
	seedEmployee(t, store, "emp-2", false)
	seedSummary(t, store, "emp-1", "10")
	seedSummary(t, store, "emp-2", "10")

	first, err := svc.Create(context.Background(), vacationInput("emp-1"))
	require.NoError(t, err)
	assert.Empty(t, first.Conflicts)

	second, err := svc.Create(context.Background(), vacationInput("emp-2"))
	require.NoError(t, err)
	require.Len(t, second.Conflicts, 1)
	assert.Equal(t, first.Request.ID, second.Conflicts[0].Request.ID)
	assert.Len(t, second.Conflicts[0].OverlapDates, 5)
	assert.Equal(t, leave.StatusPending, second.Request.Status, "conflicts never block")
}

// =============================================================================
// DUAL-CONTROL APPROVAL AND CREDIT SPLIT
// =============================================================================

func TestService_Approve_FullFunding(t *testing.T) {
	svc, store := newTestService(t)
	seedEmployee(t, store, "emp-1", false)
	seedSummary(t, store, "emp-1", "10")

	result, err := svc.Create(context.Background(), vacationInput("emp-1"))
	require.NoError(t, err)
	id := result.Request.ID

	req, err := svc.Approve(context.Background(), id, leave.RoleAdmin, "coverage fine")
	require.NoError(t, err)
	assert.Equal(t, leave.StatusPending, req.Status, "one role is not enough")

	req, err = svc.Approve(context.Background(), id, leave.RoleHR, "policy fine")
	require.NoError(t, err)
	assert.Equal(t, leave.StatusApproved, req.Status)
	require.NotNil(t, req.CreditsDeducted)
	assert.True(t, req.CreditsDeducted.Equal(decimal.NewFromInt(5)))
	assert.Equal(t, leave.TypeVacation, req.Type, "fully funded keeps its type")

	sum := getSummary(t, store, "emp-1")
	assert.True(t, sum.Balance.Equal(decimal.NewFromInt(5)))
	assert.True(t, sum.TotalUsed.Equal(decimal.NewFromInt(5)))
	assert.True(t, sum.PendingCredits.IsZero(), "hold released on finalize")
}

func TestService_Approve_PartialFunding_CreatesCompanion(t *testing.T) {
	// GIVEN: Five requested days but only three credits
	// WHEN: Both roles approve
	// THEN: Three deducted, two-day UPTO companion auto-approved on the
	//       same dates, linked to the parent

	svc, store := newTestService(t)
	seedEmployee(t, store, "emp-1", false)
	seedSummary(t, store, "emp-1", "3")

	result, err := svc.Create(context.Background(), vacationInput("emp-1"))
	require.NoError(t, err)
	id := result.Request.ID

	_, err = svc.Approve(context.Background(), id, leave.RoleAdmin, "coverage fine")
	require.NoError(t, err)
	req, err := svc.Approve(context.Background(), id, leave.RoleHR, "policy fine")
	require.NoError(t, err)

	assert.Equal(t, leave.StatusApproved, req.Status)
	require.NotNil(t, req.CreditsDeducted)
	assert.True(t, req.CreditsDeducted.Equal(decimal.NewFromInt(3)))
	assert.Equal(t, leave.TypeVacation, req.Type)
	assert.Contains(t, req.VLNoCreditReason, "unpaid time off")

	// The companion
	all, err := svc.List(context.Background(), "emp-1", nil)
	require.NoError(t, err)
	require.Len(t, all, 2)

	var companion *leave.Request
	for i := range all {
		if all[i].LinkedRequestID == id {
			companion = &all[i]
		}
	}
	require.NotNil(t, companion, "companion exists")
	assert.Equal(t, leave.TypeUnpaid, companion.Type)
	assert.Equal(t, leave.StatusApproved, companion.Status)
	assert.True(t, companion.DaysRequested.Equal(decimal.NewFromInt(2)))
	assert.Equal(t, req.StartDate, companion.StartDate)
	assert.Equal(t, req.EndDate, companion.EndDate)

	sum := getSummary(t, store, "emp-1")
	assert.True(t, sum.Balance.IsZero())
	assert.True(t, sum.PendingCredits.IsZero())
}

func TestService_Approve_RegularizationFundsApproval(t *testing.T) {
	// GIVEN: Posted balance 3 plus a pending 5-credit regularization bridge
	// WHEN: A five-day request is approved
	// THEN: Fully funded with no companion, and the bridge is posted into
	//       the balance exactly once

	svc, store := newTestService(t)
	seedEmployee(t, store, "emp-1", false)
	bal := decimal.NewFromInt(3)
	require.NoError(t, store.SaveSummary(context.Background(), &credits.Summary{
		EmployeeID:      "emp-1",
		Year:            2026,
		IsEligible:      true,
		EligibilityDate: calendar.NewDate(2024, time.July, 15),
		MonthlyRate:     decimal.RequireFromString("1.25"),
		TotalEarned:     bal,
		Balance:         bal,
		Regularization: &credits.Regularization{
			Year:               2025,
			Credits:            decimal.NewFromInt(5),
			MonthsAccrued:      4,
			RegularizationDate: calendar.NewDate(2025, time.December, 10),
			IsPending:          true,
		},
	}))

	result, err := svc.Create(context.Background(), vacationInput("emp-1"))
	require.NoError(t, err)
	id := result.Request.ID

	_, err = svc.Approve(context.Background(), id, leave.RoleAdmin, "coverage fine")
	require.NoError(t, err)
	req, err := svc.Approve(context.Background(), id, leave.RoleHR, "policy fine")
	require.NoError(t, err)

	assert.Equal(t, leave.StatusApproved, req.Status)
	assert.Equal(t, leave.TypeVacation, req.Type)
	require.NotNil(t, req.CreditsDeducted)
	assert.True(t, req.CreditsDeducted.Equal(decimal.NewFromInt(5)))
	assert.Empty(t, req.VLNoCreditReason, "no split needed")

	all, err := svc.List(context.Background(), "emp-1", nil)
	require.NoError(t, err)
	require.Len(t, all, 1, "no companion created")

	sum := getSummary(t, store, "emp-1")
	assert.True(t, sum.Balance.Equal(decimal.NewFromInt(3)), "3 posted + 5 bridge - 5 spent, got %s", sum.Balance)
	assert.True(t, sum.TotalEarned.Equal(decimal.NewFromInt(8)))
	require.NotNil(t, sum.Regularization)
	assert.False(t, sum.Regularization.IsPending, "bridge consumed")
}

func TestService_Approve_VacationZeroBalance_ConvertsToUnpaid(t *testing.T) {
	svc, store := newTestService(t)
	seedEmployee(t, store, "emp-1", false)
	seedSummary(t, store, "emp-1", "0")

	result, err := svc.Create(context.Background(), vacationInput("emp-1"))
	require.NoError(t, err)
	id := result.Request.ID

	_, err = svc.Approve(context.Background(), id, leave.RoleAdmin, "coverage fine")
	require.NoError(t, err)
	req, err := svc.Approve(context.Background(), id, leave.RoleHR, "policy fine")
	require.NoError(t, err)

	assert.Equal(t, leave.TypeUnpaid, req.Type, "reclassified in place")
	assert.Nil(t, req.CreditsDeducted)
	assert.Contains(t, req.VLNoCreditReason, "Converted to UPTO")
}

func TestService_Approve_SickNoCertificate_StaysSick(t *testing.T) {
	// GIVEN: Sick leave, no balance, no certificate
	// WHEN: Approved
	// THEN: Approved as SL with nothing deducted and the reason recorded

	svc, store := newTestService(t)
	seedEmployee(t, store, "emp-1", false)

	in := vacationInput("emp-1")
	in.Type = leave.TypeSick
	in.EndDate = calendar.NewDate(2026, time.April, 7)
	in.Reason = "flu, staying home"

	result, err := svc.Create(context.Background(), in)
	require.NoError(t, err)
	id := result.Request.ID

	_, err = svc.Approve(context.Background(), id, leave.RoleAdmin, "rest up")
	require.NoError(t, err)
	req, err := svc.Approve(context.Background(), id, leave.RoleHR, "noted")
	require.NoError(t, err)

	assert.Equal(t, leave.StatusApproved, req.Status)
	assert.Equal(t, leave.TypeSick, req.Type, "no certificate, type kept")
	assert.Nil(t, req.CreditsDeducted)
	assert.Contains(t, req.SLNoCreditReason, "no supporting certificate")
}

// =============================================================================
// TEAM LEAD GATE
// =============================================================================

func TestService_TLGate_BlocksThenUnblocks(t *testing.T) {
	svc, store := newTestService(t)
	seedEmployee(t, store, "emp-1", true)
	seedSummary(t, store, "emp-1", "10")

	result, err := svc.Create(context.Background(), vacationInput("emp-1"))
	require.NoError(t, err)
	id := result.Request.ID
	assert.True(t, result.Request.RequiresTLApproval, "flag copied from employee record")

	_, err = svc.Approve(context.Background(), id, leave.RoleAdmin, "coverage fine")
	assert.ErrorIs(t, err, leave.ErrTLGateUnmet)

	_, err = svc.ApproveTL(context.Background(), id, "workload covered")
	require.NoError(t, err)

	_, err = svc.Approve(context.Background(), id, leave.RoleAdmin, "coverage fine")
	require.NoError(t, err)
	req, err := svc.Approve(context.Background(), id, leave.RoleHR, "policy fine")
	require.NoError(t, err)
	assert.Equal(t, leave.StatusApproved, req.Status)
}

func TestService_DenyTL_DeniesAndReleasesHold(t *testing.T) {
	svc, store := newTestService(t)
	seedEmployee(t, store, "emp-1", true)
	seedSummary(t, store, "emp-1", "10")

	result, err := svc.Create(context.Background(), vacationInput("emp-1"))
	require.NoError(t, err)

	req, err := svc.DenyTL(context.Background(), result.Request.ID, "critical coverage week")
	require.NoError(t, err)

	assert.Equal(t, leave.StatusDenied, req.Status)
	assert.True(t, req.TLRejected)
	assert.Nil(t, req.AdminApprovedAt)
	assert.Nil(t, req.HRApprovedAt)

	sum := getSummary(t, store, "emp-1")
	assert.True(t, sum.PendingCredits.IsZero(), "hold released")
	assert.True(t, sum.Balance.Equal(decimal.NewFromInt(10)))
}

// =============================================================================
// SHORT-NOTICE OVERRIDE
// =============================================================================

func TestService_OverrideShortNotice(t *testing.T) {
	// GIVEN: A request submitted five days before its start, which carries
	//        the short-notice warning
	// WHEN: HR records an override
	// THEN: The actor is recorded and the warning stops firing

	svc, store := newTestService(t)
	seedEmployee(t, store, "emp-1", false)
	seedSummary(t, store, "emp-1", "10")

	result, err := svc.Create(context.Background(), vacationInput("emp-1"))
	require.NoError(t, err)

	var codes []string
	for _, a := range result.Advisories {
		codes = append(codes, a.Code)
	}
	require.Contains(t, codes, leave.AdvisoryShortNotice)

	req, err := svc.OverrideShortNotice(context.Background(), result.Request.ID, "hr-1", leave.RoleHR)
	require.NoError(t, err)
	assert.True(t, req.ShortNoticeOverride)
	assert.Equal(t, "hr-1", req.ShortNoticeOverrideBy)

	got, err := svc.Get(context.Background(), result.Request.ID)
	require.NoError(t, err)
	assert.True(t, got.ShortNoticeOverride, "override persisted")
	assert.Nil(t, leave.CheckShortNotice(got, calendar.DateOf(testNow)))
}

func TestService_OverrideShortNotice_EmployeeRejected(t *testing.T) {
	svc, store := newTestService(t)
	seedEmployee(t, store, "emp-1", false)
	seedSummary(t, store, "emp-1", "10")

	result, err := svc.Create(context.Background(), vacationInput("emp-1"))
	require.NoError(t, err)

	_, err = svc.OverrideShortNotice(context.Background(), result.Request.ID, "emp-1", leave.RoleEmployee)
	assert.ErrorIs(t, err, leave.ErrRoleNotAllowed)
}

func TestService_OverrideShortNotice_TerminalRequest_Rejected(t *testing.T) {
	svc, store := newTestService(t)
	seedEmployee(t, store, "emp-1", false)
	seedSummary(t, store, "emp-1", "10")

	result, err := svc.Create(context.Background(), vacationInput("emp-1"))
	require.NoError(t, err)
	_, err = svc.Deny(context.Background(), result.Request.ID, leave.RoleHR, "no coverage that week")
	require.NoError(t, err)

	_, err = svc.OverrideShortNotice(context.Background(), result.Request.ID, "hr-1", leave.RoleHR)
	assert.True(t, leave.IsStateConflict(err), "got %v", err)
}

// =============================================================================
// DENY / CANCEL
// =============================================================================

func TestService_Deny_ReleasesHold(t *testing.T) {
	svc, store := newTestService(t)
	seedEmployee(t, store, "emp-1", false)
	seedSummary(t, store, "emp-1", "10")

	result, err := svc.Create(context.Background(), vacationInput("emp-1"))
	require.NoError(t, err)

	req, err := svc.Deny(context.Background(), result.Request.ID, leave.RoleHR, "no coverage that week")
	require.NoError(t, err)
	assert.Equal(t, leave.StatusDenied, req.Status)

	sum := getSummary(t, store, "emp-1")
	assert.True(t, sum.PendingCredits.IsZero())
	assert.True(t, sum.Balance.Equal(decimal.NewFromInt(10)), "nothing was deducted")
}

func TestService_Cancel_ApprovedRestoresCredits(t *testing.T) {
	// GIVEN: An approved, fully funded request
	// WHEN: An admin cancels it
	// THEN: The exact deduction returns to the balance

	svc, store := newTestService(t)
	seedEmployee(t, store, "emp-1", false)
	seedSummary(t, store, "emp-1", "10")

	result, err := svc.Create(context.Background(), vacationInput("emp-1"))
	require.NoError(t, err)
	id := result.Request.ID
	_, err = svc.Approve(context.Background(), id, leave.RoleAdmin, "coverage fine")
	require.NoError(t, err)
	_, err = svc.Approve(context.Background(), id, leave.RoleHR, "policy fine")
	require.NoError(t, err)

	req, err := svc.Cancel(context.Background(), id, "project pulled forward", "adm-1", leave.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, leave.StatusCancelled, req.Status)
	assert.Equal(t, "adm-1", req.CancelledBy)

	sum := getSummary(t, store, "emp-1")
	assert.True(t, sum.Balance.Equal(decimal.NewFromInt(10)), "round trip")
	assert.True(t, sum.TotalUsed.IsZero())
}

func TestService_Cancel_ApprovedByOwner_Rejected(t *testing.T) {
	svc, store := newTestService(t)
	seedEmployee(t, store, "emp-1", false)
	seedSummary(t, store, "emp-1", "10")

	result, err := svc.Create(context.Background(), vacationInput("emp-1"))
	require.NoError(t, err)
	id := result.Request.ID
	_, err = svc.Approve(context.Background(), id, leave.RoleAdmin, "coverage fine")
	require.NoError(t, err)
	_, err = svc.Approve(context.Background(), id, leave.RoleHR, "policy fine")
	require.NoError(t, err)

	_, err = svc.Cancel(context.Background(), id, "changed my mind", "emp-1", leave.RoleEmployee)
	assert.ErrorIs(t, err, leave.ErrRoleNotAllowed)
}

func TestService_Cancel_CascadesToCompanion(t *testing.T) {
	// GIVEN: A partially funded approval with an active companion
	// WHEN: Cancelling the parent
	// THEN: The companion cancels too and the funded part is restored

	svc, store := newTestService(t)
	seedEmployee(t, store, "emp-1", false)
	seedSummary(t, store, "emp-1", "3")

	result, err := svc.Create(context.Background(), vacationInput("emp-1"))
	require.NoError(t, err)
	id := result.Request.ID
	_, err = svc.Approve(context.Background(), id, leave.RoleAdmin, "coverage fine")
	require.NoError(t, err)
	_, err = svc.Approve(context.Background(), id, leave.RoleHR, "policy fine")
	require.NoError(t, err)

	_, err = svc.Cancel(context.Background(), id, "trip cancelled", "adm-1", leave.RoleAdmin)
	require.NoError(t, err)

	all, err := svc.List(context.Background(), "emp-1", nil)
	require.NoError(t, err)
	for _, r := range all {
		assert.Equal(t, leave.StatusCancelled, r.Status, "request %s", r.ID)
	}

	sum := getSummary(t, store, "emp-1")
	assert.True(t, sum.Balance.Equal(decimal.NewFromInt(3)))
}

// =============================================================================
// PARTIAL DENIAL
// =============================================================================

func TestService_PartialDeny(t *testing.T) {
	// GIVEN: A five-day request
	// WHEN: An admin denies Wednesday with a reason
	// THEN: Approved at four days, deduction follows the approved count,
	//       and the denial row is queryable

	svc, store := newTestService(t)
	seedEmployee(t, store, "emp-1", false)
	seedSummary(t, store, "emp-1", "10")

	result, err := svc.Create(context.Background(), vacationInput("emp-1"))
	require.NoError(t, err)
	id := result.Request.ID

	wed := calendar.NewDate(2026, time.April, 8)
	req, err := svc.PartialDeny(context.Background(), id,
		[]calendar.Date{wed}, "all hands meeting", "reduced scope", "adm-1", leave.RoleAdmin)
	require.NoError(t, err)

	assert.Equal(t, leave.StatusApproved, req.Status)
	assert.True(t, req.HasPartialDenial)
	assert.True(t, req.ApprovedDays.Equal(decimal.NewFromInt(4)))
	require.NotNil(t, req.CreditsDeducted)
	assert.True(t, req.CreditsDeducted.Equal(decimal.NewFromInt(4)), "deduction follows approved days")

	rows, err := svc.DeniedDates(context.Background(), id)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "2026-04-08", rows[0].DeniedDate.String())
	assert.Equal(t, "all hands meeting", rows[0].DenialReason)
	assert.Equal(t, "adm-1", rows[0].DeniedBy)

	sum := getSummary(t, store, "emp-1")
	assert.True(t, sum.Balance.Equal(decimal.NewFromInt(6)))
}

func TestService_PartialDeny_AllDays_Rejected(t *testing.T) {
	svc, store := newTestService(t)
	seedEmployee(t, store, "emp-1", false)
	seedSummary(t, store, "emp-1", "10")

	result, err := svc.Create(context.Background(), vacationInput("emp-1"))
	require.NoError(t, err)

	all := result.Request.WorkingDates()
	_, err = svc.PartialDeny(context.Background(), result.Request.ID,
		all, "everything", "no", "adm-1", leave.RoleAdmin)
	assert.True(t, leave.IsValidation(err))

	req, err := svc.Get(context.Background(), result.Request.ID)
	require.NoError(t, err)
	assert.Equal(t, leave.StatusPending, req.Status, "rejected action mutates nothing")
}

func TestService_PartialDeny_NonAdmin_Rejected(t *testing.T) {
	svc, store := newTestService(t)
	seedEmployee(t, store, "emp-1", false)

	_, err := svc.PartialDeny(context.Background(), "whatever",
		[]calendar.Date{calendar.NewDate(2026, time.April, 8)}, "reason", "notes", "emp-1", leave.RoleEmployee)
	assert.ErrorIs(t, err, leave.ErrRoleNotAllowed)
}

// =============================================================================
// FORCE APPROVE
// =============================================================================

func TestService_ForceApprove_BypassesGates(t *testing.T) {
	// GIVEN: A flagged employee with no TL endorsement and no admin/HR votes
	// WHEN: A super-admin force approves
	// THEN: Approved with full credit resolution

	svc, store := newTestService(t)
	seedEmployee(t, store, "emp-1", true)
	seedSummary(t, store, "emp-1", "10")

	result, err := svc.Create(context.Background(), vacationInput("emp-1"))
	require.NoError(t, err)

	req, err := svc.ForceApprove(context.Background(), leave.ForceApproveInput{
		RequestID: result.Request.ID,
		Notes:     "executive escalation",
		ActorID:   "root-1",
		Role:      leave.RoleSuperAdmin,
	})
	require.NoError(t, err)

	assert.Equal(t, leave.StatusApproved, req.Status)
	require.NotNil(t, req.CreditsDeducted)
	assert.True(t, req.CreditsDeducted.Equal(decimal.NewFromInt(5)))
}

func TestService_ForceApprove_WithPartialDenial(t *testing.T) {
	// Force approval can carry a partial denial; credits resolve on the
	// reduced day count
	svc, store := newTestService(t)
	seedEmployee(t, store, "emp-1", false)
	seedSummary(t, store, "emp-1", "10")

	result, err := svc.Create(context.Background(), vacationInput("emp-1"))
	require.NoError(t, err)

	req, err := svc.ForceApprove(context.Background(), leave.ForceApproveInput{
		RequestID:    result.Request.ID,
		Notes:        "executive escalation",
		DeniedDates:  []calendar.Date{calendar.NewDate(2026, time.April, 10)},
		DenialReason: "quarter close",
		ActorID:      "root-1",
		Role:         leave.RoleSuperAdmin,
	})
	require.NoError(t, err)

	assert.True(t, req.HasPartialDenial)
	assert.True(t, req.ApprovedDays.Equal(decimal.NewFromInt(4)))
	require.NotNil(t, req.CreditsDeducted)
	assert.True(t, req.CreditsDeducted.Equal(decimal.NewFromInt(4)))
}

func TestService_ForceApprove_NonSuperAdmin_Rejected(t *testing.T) {
	svc, store := newTestService(t)
	seedEmployee(t, store, "emp-1", false)
	seedSummary(t, store, "emp-1", "10")

	result, err := svc.Create(context.Background(), vacationInput("emp-1"))
	require.NoError(t, err)

	_, err = svc.ForceApprove(context.Background(), leave.ForceApproveInput{
		RequestID: result.Request.ID,
		Notes:     "just approve it",
		ActorID:   "adm-1",
		Role:      leave.RoleAdmin,
	})
	assert.ErrorIs(t, err, leave.ErrRoleNotAllowed)
}

// =============================================================================
// DATE ADJUSTMENT
// =============================================================================

func approvedVacation(t *testing.T, svc *leave.Service, store *sqlite.Store, balance string) string {
	t.Helper()
	seedEmployee(t, store, "emp-1", false)
	seedSummary(t, store, "emp-1", balance)

	result, err := svc.Create(context.Background(), vacationInput("emp-1"))
	require.NoError(t, err)
	id := result.Request.ID
	_, err = svc.Approve(context.Background(), id, leave.RoleAdmin, "coverage fine")
	require.NoError(t, err)
	_, err = svc.Approve(context.Background(), id, leave.RoleHR, "policy fine")
	require.NoError(t, err)
	return id
}

func TestService_AdjustForWorkDay_EndEarly(t *testing.T) {
	// GIVEN: An approved Mon-Fri request, five credits deducted
	// WHEN: The employee is called in for Friday
	// THEN: The request ends Thursday, one credit returns, the original
	//       range is preserved for audit

	svc, store := newTestService(t)
	id := approvedVacation(t, svc, store, "10")

	fri := calendar.NewDate(2026, time.April, 10)
	req, err := svc.AdjustForWorkDay(context.Background(), id, fri, leave.AdjustEndEarly, "adm-1", leave.RoleAdmin)
	require.NoError(t, err)

	assert.Equal(t, "2026-04-09", req.EndDate.String())
	assert.True(t, req.DaysRequested.Equal(decimal.NewFromInt(4)))
	require.NotNil(t, req.CreditsDeducted)
	assert.True(t, req.CreditsDeducted.Equal(decimal.NewFromInt(4)))
	require.NotNil(t, req.OriginalEndDate)
	assert.Equal(t, "2026-04-10", req.OriginalEndDate.String())
	assert.Equal(t, "adm-1", req.ModifiedBy)
	assert.Contains(t, req.DateModificationReason, "2026-04-10")

	sum := getSummary(t, store, "emp-1")
	assert.True(t, sum.Balance.Equal(decimal.NewFromInt(6)), "one credit restored")
}

func TestService_AdjustForWorkDay_StartLate(t *testing.T) {
	svc, store := newTestService(t)
	id := approvedVacation(t, svc, store, "10")

	mon := calendar.NewDate(2026, time.April, 6)
	req, err := svc.AdjustForWorkDay(context.Background(), id, mon, leave.AdjustStartLate, "adm-1", leave.RoleAdmin)
	require.NoError(t, err)

	assert.Equal(t, "2026-04-07", req.StartDate.String())
	assert.True(t, req.CreditsDeducted.Equal(decimal.NewFromInt(4)))
	require.NotNil(t, req.OriginalStartDate)
	assert.Equal(t, "2026-04-06", req.OriginalStartDate.String())
}

func TestService_AdjustForWorkDay_WouldEmptyRequest_Rejected(t *testing.T) {
	svc, store := newTestService(t)
	seedEmployee(t, store, "emp-1", false)
	seedSummary(t, store, "emp-1", "10")

	in := vacationInput("emp-1")
	in.EndDate = in.StartDate // single day
	result, err := svc.Create(context.Background(), in)
	require.NoError(t, err)
	id := result.Request.ID
	_, err = svc.Approve(context.Background(), id, leave.RoleAdmin, "coverage fine")
	require.NoError(t, err)
	_, err = svc.Approve(context.Background(), id, leave.RoleHR, "policy fine")
	require.NoError(t, err)

	_, err = svc.AdjustForWorkDay(context.Background(), id,
		in.StartDate, leave.AdjustEndEarly, "adm-1", leave.RoleAdmin)
	assert.True(t, leave.IsValidation(err), "must cancel instead, got %v", err)
}

func TestService_AdjustForWorkDay_PendingRequest_Rejected(t *testing.T) {
	svc, store := newTestService(t)
	seedEmployee(t, store, "emp-1", false)
	seedSummary(t, store, "emp-1", "10")

	result, err := svc.Create(context.Background(), vacationInput("emp-1"))
	require.NoError(t, err)

	_, err = svc.AdjustForWorkDay(context.Background(), result.Request.ID,
		calendar.NewDate(2026, time.April, 8), leave.AdjustEndEarly, "adm-1", leave.RoleAdmin)
	assert.ErrorIs(t, err, leave.ErrNotApproved)
}

// =============================================================================
// READS AND PREVIEWS
// =============================================================================

func TestService_Summary_SynthesizesEmptyYear(t *testing.T) {
	svc, store := newTestService(t)
	seedEmployee(t, store, "emp-1", false)

	sum, err := svc.Summary(context.Background(), "emp-1", 2026)
	require.NoError(t, err)
	assert.True(t, sum.Balance.IsZero())
	assert.True(t, sum.IsEligible, "hired Jan 2024, long past six months")
	assert.Equal(t, "2024-07-15", sum.EligibilityDate.String())
}

func TestService_PreviewCreditSplit(t *testing.T) {
	svc, store := newTestService(t)
	seedEmployee(t, store, "emp-1", false)
	seedSummary(t, store, "emp-1", "3")

	preview, err := svc.PreviewCreditSplit(context.Background(), "emp-1", leave.TypeVacation,
		calendar.NewDate(2026, time.April, 6), calendar.NewDate(2026, time.April, 10))
	require.NoError(t, err)

	assert.True(t, preview.Eligible)
	assert.True(t, preview.DaysRequested.Equal(decimal.NewFromInt(5)))
	assert.True(t, preview.AvailableBalance.Equal(decimal.NewFromInt(3)))
	assert.True(t, preview.Outcome.DeductDays.Equal(decimal.NewFromInt(3)))
	assert.True(t, preview.Outcome.CompanionDays.Equal(decimal.NewFromInt(2)))
}
