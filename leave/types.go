/*
Package leave implements the leave request lifecycle and credit accounting
engine.

PURPOSE:
  Everything between "employee submits dates" and "finalized, credit-accurate
  leave record" lives here: the approval state machine (team lead gate,
  admin/HR dual control, super-admin override), the credit split that decides
  how much of a request credits can fund, day-level partial denial, schedule
  conflict detection with alternate-date suggestions, and the advisory
  checks shown to approvers.

KEY CONCEPTS IN THIS FILE (types.go):
  - Type: the leave classification (VL, SL, ...) with a per-type policy
    table instead of scattered conditionals
  - Request: the leave request entity with its approval sub-state
  - DeniedDate: one row per working day excluded from an approval
  - Role: the resolved actor role handed to us by the identity collaborator

DESIGN PRINCIPLES:
  1. Precision: day amounts are decimal.Decimal (partial funding can split
     a request into fractional credit/unpaid portions)
  2. Explicit time: every rule takes "today" or "now" as an argument
  3. Policy table over conditionals: per-type behavior is data

SEE ALSO:
  - approval.go: state machine transitions
  - split.go: credit split resolution
  - service.go: orchestration over the store
*/
package leave

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/leave-engine/calendar"
)

// =============================================================================
// LEAVE TYPE - Tagged enum with per-type policy table
// =============================================================================

// Type classifies a leave request.
type Type string

const (
	TypeVacation         Type = "VL"   // vacation leave
	TypeSick             Type = "SL"   // sick leave
	TypeBereavement      Type = "BL"   // bereavement leave
	TypeSoloParent       Type = "SPL"  // solo-parent leave
	TypeLeaveOfAbsence   Type = "LOA"  // leave of absence
	TypeDomesticViolence Type = "LDV"  // domestic-violence leave
	TypeUnpaid           Type = "UPTO" // unpaid time off
	TypeMaternity        Type = "ML"   // maternity leave
)

// TypePolicy captures how a leave type behaves. Keeping this as data keeps
// the split resolver and validators generic.
type TypePolicy struct {
	// CreditBearing types consult the credit ledger on approval; all
	// others never deduct and never block on balance.
	CreditBearing bool

	// WeekendRestricted types cannot start or end on a weekend.
	WeekendRestricted bool

	// CertificateConvertible: when balance is insufficient, a supporting
	// certificate is what authorizes conversion to unpaid time off
	// (the sick-leave rule).
	CertificateConvertible bool

	// ConflictChecked types participate in same-campaign schedule
	// conflict detection.
	ConflictChecked bool

	// ShortNoticeChecked types warn when submitted under two weeks ahead.
	ShortNoticeChecked bool

	// AttendanceChecked types warn when the employee carries six or more
	// active attendance points.
	AttendanceChecked bool
}

var typePolicies = map[Type]TypePolicy{
	TypeVacation: {
		CreditBearing:      true,
		WeekendRestricted:  true,
		ConflictChecked:    true,
		ShortNoticeChecked: true,
		AttendanceChecked:  true,
	},
	TypeSick: {
		CreditBearing:          true,
		WeekendRestricted:      true,
		CertificateConvertible: true,
	},
	TypeBereavement: {
		WeekendRestricted:  true,
		ShortNoticeChecked: true,
		AttendanceChecked:  true,
	},
	TypeSoloParent:     {WeekendRestricted: true},
	TypeLeaveOfAbsence: {WeekendRestricted: true},
	TypeDomesticViolence: {
		WeekendRestricted: true,
	},
	TypeUnpaid: {
		WeekendRestricted: true,
		ConflictChecked:   true,
	},
	// Maternity leave spans calendar weeks; weekends are not restricted
	// and attendance warnings never apply.
	TypeMaternity: {},
}

// Policy returns the behavior table for the type. Unknown types get the
// zero policy (non-credit-bearing, unrestricted).
func (t Type) Policy() TypePolicy { return typePolicies[t] }

// Valid reports whether t is a known leave type.
func (t Type) Valid() bool {
	_, ok := typePolicies[t]
	return ok
}

// =============================================================================
// STATUS AND ROLES
// =============================================================================

// Status is the request lifecycle state. Denied and cancelled are terminal;
// approved admits only cancellation and date adjustment by an admin role.
type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusDenied    Status = "denied"
	StatusCancelled Status = "cancelled"
)

// Role is the resolved actor role supplied by the identity collaborator.
// This engine never decides authorization policy; it only enforces which
// role a transition accepts.
type Role string

const (
	RoleEmployee   Role = "employee"
	RoleTeamLead   Role = "team_lead"
	RoleAdmin      Role = "admin"
	RoleHR         Role = "hr"
	RoleSuperAdmin Role = "super_admin"
)

// IsApproverRole reports whether the role participates in final approval.
func (r Role) IsApproverRole() bool { return r == RoleAdmin || r == RoleHR }

// IsAdminRole reports whether the role may act on other employees' requests.
func (r Role) IsAdminRole() bool {
	return r == RoleAdmin || r == RoleHR || r == RoleSuperAdmin
}

// =============================================================================
// REQUEST - The leave request entity
// =============================================================================

// Minimum free-text lengths enforced at submission and review time.
const (
	MinReasonLength      = 10
	MinReviewNotesLength = 5
)

// Request is a leave request with its full approval sub-state. Nullable
// timestamps are pointers; absent means the step has not happened.
type Request struct {
	ID         string
	EmployeeID string
	Campaign   string
	Type       Type

	StartDate     calendar.Date
	EndDate       calendar.Date // inclusive
	DaysRequested decimal.Decimal

	Reason      string
	DocumentRef string // opaque supporting-document reference

	// Team-lead gate
	RequiresTLApproval bool
	TLApprovedAt       *time.Time
	TLReviewNotes      string
	TLRejected         bool

	// Dual control
	AdminApprovedAt  *time.Time
	AdminReviewNotes string
	HRApprovedAt     *time.Time
	HRReviewNotes    string

	// Legacy single-reviewer fallback, also set on deny/force-approve.
	ReviewedAt  *time.Time
	ReviewNotes string

	ShortNoticeOverride   bool
	ShortNoticeOverrideBy string

	Status                    Status
	CreditsDeducted           *decimal.Decimal
	AttendancePointsAtRequest *decimal.Decimal // snapshot, immutable once set

	// Partial denial
	HasPartialDenial bool
	ApprovedDays     decimal.Decimal // 0 until approval; <= DaysRequested

	// Companion linkage: set on an auto-created UPTO companion, pointing
	// back at its originating VL/SL request.
	LinkedRequestID string

	// Human-readable explanation stored when credits were withheld or
	// split, keyed by the original type.
	SLNoCreditReason string
	VLNoCreditReason string

	// Mutation history for date adjustment of an approved request.
	OriginalStartDate      *calendar.Date
	OriginalEndDate        *calendar.Date
	DateModificationReason string
	ModifiedBy             string

	CancelledBy        string
	CancellationReason string
	AutoCancelled      bool
	AutoCancelReason   string

	SubmittedAt time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time

	// Version guards the read-modify-write of status and approval fields.
	// The store rejects updates whose version does not match.
	Version int
}

// IsTerminal reports whether no further transition is defined, other than
// cancel-of-approved.
func (r *Request) IsTerminal() bool {
	return r.Status == StatusDenied || r.Status == StatusCancelled
}

// WorkingDates returns the working days covered by the request's current
// range.
func (r *Request) WorkingDates() []calendar.Date {
	return calendar.WorkingDatesBetween(r.StartDate, r.EndDate)
}

// EffectiveDays is the day count credit resolution runs against: approved
// days after a partial denial, otherwise the full requested count.
func (r *Request) EffectiveDays() decimal.Decimal {
	if r.HasPartialDenial {
		return r.ApprovedDays
	}
	return r.DaysRequested
}

// HasCertificate reports whether a supporting document was submitted.
func (r *Request) HasCertificate() bool { return r.DocumentRef != "" }

// =============================================================================
// DENIED DATE - One row per working day excluded from approval
// =============================================================================

// DeniedDate is immutable once created. The set of denied dates is always a
// subset of the working days in the parent request's range; its complement
// defines ApprovedDays.
type DeniedDate struct {
	ID             string
	LeaveRequestID string
	DeniedDate     calendar.Date
	DenialReason   string
	DeniedBy       string // actor user id
	Denier         Role
	CreatedAt      time.Time
}

// =============================================================================
// COLLABORATOR INPUTS
// =============================================================================

// Employee is the engine's local projection of the identity collaborator's
// employee record.
type Employee struct {
	ID                 string
	Name               string
	Email              string
	Campaign           string
	HireDate           calendar.Date
	Role               Role
	RequiresTLApproval bool // role policy resolved upstream
	CreatedAt          time.Time
}

// AttendancePoint is a read-only input snapshot. The engine never mutates
// attendance state.
type AttendancePoint struct {
	ID            string
	EmployeeID    string
	ShiftDate     calendar.Date
	PointType     string // whole_day_absence, half_day_absence, undertime, tardy
	Points        decimal.Decimal
	ExpiresAt     *time.Time
	GBROExpiresAt *time.Time
	CurrentStatus string // active, excused, expired
}

const (
	PointStatusActive  = "active"
	PointStatusExcused = "excused"
	PointStatusExpired = "expired"

	PointTypeWholeDayAbsence = "whole_day_absence"
	PointTypeHalfDayAbsence  = "half_day_absence"
	PointTypeUndertime       = "undertime"
	PointTypeTardy           = "tardy"
)
