/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *Body: Request body types from clients
  - *DTO: Response types returned to clients
  - *Response: Complex response wrappers

VALIDATION:
  Request bodies carry validator/v10 struct tags and are checked in the
  handlers before any domain call. Domain rules (reason length, weekend
  restriction, state transitions) live in the leave package, not here.

SEE ALSO:
  - handlers.go: Uses these types
  - leave/service.go: Domain inputs these map onto
*/
package api

import (
	"github.com/shopspring/decimal"

	"github.com/warp/leave-engine/calendar"
	"github.com/warp/leave-engine/credits"
	"github.com/warp/leave-engine/leave"
)

const timeLayout = "2006-01-02T15:04:05Z07:00"

// =============================================================================
// REQUEST BODIES
// =============================================================================

// CreateRequestBody is the body for submitting a new leave request.
type CreateRequestBody struct {
	EmployeeID  string `json:"employee_id" validate:"required"`
	LeaveType   string `json:"leave_type" validate:"required"`
	StartDate   string `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate     string `json:"end_date" validate:"required,datetime=2006-01-02"`
	Reason      string `json:"reason" validate:"required"`
	Campaign    string `json:"campaign" validate:"required"`
	DocumentRef string `json:"document_ref"`
}

// ReviewBody carries the reviewer notes for approve/deny actions.
type ReviewBody struct {
	Notes string `json:"notes" validate:"required,min=5"`
}

// PartialDenyBody denies a subset of the requested working days and
// approves the remainder.
type PartialDenyBody struct {
	DeniedDates  []string `json:"denied_dates" validate:"required,min=1,dive,datetime=2006-01-02"`
	DenialReason string   `json:"denial_reason" validate:"required"`
	Notes        string   `json:"notes" validate:"required,min=5"`
}

// ForceApproveBody is the super-admin override. DeniedDates are optional
// and processed like a partial denial before credit resolution.
type ForceApproveBody struct {
	Notes        string   `json:"notes" validate:"required,min=5"`
	DeniedDates  []string `json:"denied_dates" validate:"omitempty,dive,datetime=2006-01-02"`
	DenialReason string   `json:"denial_reason" validate:"required_with=DeniedDates"`
}

// CancelBody carries the cancellation reason.
type CancelBody struct {
	Reason string `json:"reason" validate:"required"`
}

// AdjustBody shrinks an approved request around a day the employee worked.
type AdjustBody struct {
	WorkDate string `json:"work_date" validate:"required,datetime=2006-01-02"`
	Mode     string `json:"mode" validate:"required,oneof=end_early start_late"`
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// RequestDTO represents a leave request in API responses.
type RequestDTO struct {
	ID                    string  `json:"id"`
	EmployeeID            string  `json:"employee_id"`
	Campaign              string  `json:"campaign"`
	LeaveType             string  `json:"leave_type"`
	StartDate             string  `json:"start_date"`
	EndDate               string  `json:"end_date"`
	DaysRequested         string  `json:"days_requested"`
	Reason                string  `json:"reason"`
	DocumentRef           string  `json:"document_ref,omitempty"`
	Status                string  `json:"status"`
	RequiresTLApproval    bool    `json:"requires_tl_approval"`
	TLApprovedAt          *string `json:"tl_approved_at,omitempty"`
	TLReviewNotes         string  `json:"tl_review_notes,omitempty"`
	TLRejected            bool    `json:"tl_rejected,omitempty"`
	AdminApprovedAt       *string `json:"admin_approved_at,omitempty"`
	HRApprovedAt          *string `json:"hr_approved_at,omitempty"`
	ReviewedAt            *string `json:"reviewed_at,omitempty"`
	ReviewNotes           string  `json:"review_notes,omitempty"`
	ShortNoticeOverride   bool    `json:"short_notice_override,omitempty"`
	ShortNoticeOverrideBy string  `json:"short_notice_override_by,omitempty"`
	CreditsDeducted       *string `json:"credits_deducted,omitempty"`
	HasPartialDenial      bool    `json:"has_partial_denial,omitempty"`
	ApprovedDays          string  `json:"approved_days"`
	LinkedRequestID       string  `json:"linked_request_id,omitempty"`
	SLNoCreditReason      string  `json:"sl_no_credit_reason,omitempty"`
	VLNoCreditReason      string  `json:"vl_no_credit_reason,omitempty"`
	OriginalStartDate     *string `json:"original_start_date,omitempty"`
	OriginalEndDate       *string `json:"original_end_date,omitempty"`
	CancelledBy           string  `json:"cancelled_by,omitempty"`
	CancellationReason    string  `json:"cancellation_reason,omitempty"`
	SubmittedAt           string  `json:"submitted_at"`
	UpdatedAt             string  `json:"updated_at"`
	Version               int     `json:"version"`
}

// DeniedDateDTO is one partially denied working day.
type DeniedDateDTO struct {
	DeniedDate   string `json:"denied_date"`
	DenialReason string `json:"denial_reason"`
	DeniedBy     string `json:"denied_by"`
	Denier       string `json:"denier"`
}

// CreateRequestResponse wraps the new request with its informational
// advisories and overlapping teammate requests.
type CreateRequestResponse struct {
	Request    RequestDTO       `json:"request"`
	Advisories []leave.Advisory `json:"advisories"`
	Conflicts  []ConflictDTO    `json:"conflicts"`
}

// RequestDetailResponse is the single-request view with denied dates.
type RequestDetailResponse struct {
	Request     RequestDTO      `json:"request"`
	DeniedDates []DeniedDateDTO `json:"denied_dates"`
}

// ConflictDTO describes an overlapping request from the same campaign.
type ConflictDTO struct {
	RequestID    string   `json:"request_id"`
	EmployeeID   string   `json:"employee_id"`
	LeaveType    string   `json:"leave_type"`
	Status       string   `json:"status"`
	StartDate    string   `json:"start_date"`
	EndDate      string   `json:"end_date"`
	OverlapDates []string `json:"overlap_dates"`
}

// SuggestionDTO is an alternate conflict-reduced window.
type SuggestionDTO struct {
	StartDate     string `json:"start_date"`
	EndDate       string `json:"end_date"`
	WorkingDays   int    `json:"working_days"`
	ConflictCount int    `json:"conflict_count"`
}

// SummaryDTO is the employee-year credit summary.
type SummaryDTO struct {
	EmployeeID      string  `json:"employee_id"`
	Year            int     `json:"year"`
	IsEligible      bool    `json:"is_eligible"`
	EligibilityDate string  `json:"eligibility_date"`
	MonthlyRate     string  `json:"monthly_rate"`
	TotalEarned     string  `json:"total_earned"`
	TotalUsed       string  `json:"total_used"`
	Balance         string  `json:"balance"`
	PendingCredits  string  `json:"pending_credits"`
	PendingRegular  *string `json:"pending_regularization,omitempty"`
}

// PreviewDTO is the pre-submission credit-split preview.
type PreviewDTO struct {
	EmployeeID       string `json:"employee_id"`
	LeaveType        string `json:"leave_type"`
	Eligible         bool   `json:"eligible"`
	DaysRequested    string `json:"days_requested"`
	AvailableBalance string `json:"available_balance"`
	DeductDays       string `json:"deduct_days"`
	CompanionDays    string `json:"companion_days"`
	ConvertToUnpaid  bool   `json:"convert_to_unpaid"`
	NoCreditReason   string `json:"no_credit_reason,omitempty"`
}

// ErrorResponse is the uniform error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// MAPPERS
// =============================================================================

func toRequestDTO(r *leave.Request) RequestDTO {
	return RequestDTO{
		ID:                    r.ID,
		EmployeeID:            r.EmployeeID,
		Campaign:              r.Campaign,
		LeaveType:             string(r.Type),
		StartDate:             r.StartDate.String(),
		EndDate:               r.EndDate.String(),
		DaysRequested:         r.DaysRequested.String(),
		Reason:                r.Reason,
		DocumentRef:           r.DocumentRef,
		Status:                string(r.Status),
		RequiresTLApproval:    r.RequiresTLApproval,
		TLApprovedAt:          fmtTimePtr(r.TLApprovedAt),
		TLReviewNotes:         r.TLReviewNotes,
		TLRejected:            r.TLRejected,
		AdminApprovedAt:       fmtTimePtr(r.AdminApprovedAt),
		HRApprovedAt:          fmtTimePtr(r.HRApprovedAt),
		ReviewedAt:            fmtTimePtr(r.ReviewedAt),
		ReviewNotes:           r.ReviewNotes,
		ShortNoticeOverride:   r.ShortNoticeOverride,
		ShortNoticeOverrideBy: r.ShortNoticeOverrideBy,
		CreditsDeducted:       fmtDecimalPtr(r.CreditsDeducted),
		HasPartialDenial:      r.HasPartialDenial,
		ApprovedDays:          r.ApprovedDays.String(),
		LinkedRequestID:       r.LinkedRequestID,
		SLNoCreditReason:      r.SLNoCreditReason,
		VLNoCreditReason:      r.VLNoCreditReason,
		OriginalStartDate:     fmtDatePtr(r.OriginalStartDate),
		OriginalEndDate:       fmtDatePtr(r.OriginalEndDate),
		CancelledBy:           r.CancelledBy,
		CancellationReason:    r.CancellationReason,
		SubmittedAt:           r.SubmittedAt.UTC().Format(timeLayout),
		UpdatedAt:             r.UpdatedAt.UTC().Format(timeLayout),
		Version:               r.Version,
	}
}

func toConflictDTOs(conflicts []leave.Conflict) []ConflictDTO {
	out := make([]ConflictDTO, len(conflicts))
	for i, c := range conflicts {
		dates := make([]string, len(c.OverlapDates))
		for j, d := range c.OverlapDates {
			dates[j] = d.String()
		}
		out[i] = ConflictDTO{
			RequestID:    c.Request.ID,
			EmployeeID:   c.Request.EmployeeID,
			LeaveType:    string(c.Request.Type),
			Status:       string(c.Request.Status),
			StartDate:    c.Request.StartDate.String(),
			EndDate:      c.Request.EndDate.String(),
			OverlapDates: dates,
		}
	}
	return out
}

func toSuggestionDTOs(suggestions []leave.Suggestion) []SuggestionDTO {
	out := make([]SuggestionDTO, len(suggestions))
	for i, s := range suggestions {
		out[i] = SuggestionDTO{
			StartDate:     s.StartDate.String(),
			EndDate:       s.EndDate.String(),
			WorkingDays:   s.WorkingDays,
			ConflictCount: s.ConflictCount,
		}
	}
	return out
}

func toDeniedDateDTOs(rows []leave.DeniedDate) []DeniedDateDTO {
	out := make([]DeniedDateDTO, len(rows))
	for i, d := range rows {
		out[i] = DeniedDateDTO{
			DeniedDate:   d.DeniedDate.String(),
			DenialReason: d.DenialReason,
			DeniedBy:     d.DeniedBy,
			Denier:       string(d.Denier),
		}
	}
	return out
}

func toSummaryDTO(s *credits.Summary) SummaryDTO {
	dto := SummaryDTO{
		EmployeeID:      s.EmployeeID,
		Year:            s.Year,
		IsEligible:      s.IsEligible,
		EligibilityDate: s.EligibilityDate.String(),
		MonthlyRate:     s.MonthlyRate.String(),
		TotalEarned:     s.TotalEarned.String(),
		TotalUsed:       s.TotalUsed.String(),
		Balance:         s.Balance.String(),
		PendingCredits:  s.PendingCredits.String(),
	}
	if s.Regularization != nil && s.Regularization.IsPending {
		v := s.Regularization.Credits.String()
		dto.PendingRegular = &v
	}
	return dto
}

func toPreviewDTO(p *leave.CreditSplitPreview) PreviewDTO {
	return PreviewDTO{
		EmployeeID:       p.EmployeeID,
		LeaveType:        string(p.Type),
		Eligible:         p.Eligible,
		DaysRequested:    p.DaysRequested.String(),
		AvailableBalance: p.AvailableBalance.String(),
		DeductDays:       p.Outcome.DeductDays.String(),
		CompanionDays:    p.Outcome.CompanionDays.String(),
		ConvertToUnpaid:  p.Outcome.ConvertToUnpaid,
		NoCreditReason:   p.Outcome.NoCreditReason,
	}
}

func fmtDatePtr(d *calendar.Date) *string {
	if d == nil {
		return nil
	}
	v := d.String()
	return &v
}

func fmtDecimalPtr(d *decimal.Decimal) *string {
	if d == nil {
		return nil
	}
	v := d.String()
	return &v
}
