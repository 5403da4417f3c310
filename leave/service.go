/*
service.go - Leave request orchestration

PURPOSE:
  The Service is the only writer of leave state. It composes the state
  machine, the credit ledger, the split resolver, and the partial denial
  processor into the operations the API exposes: create, approve (TL,
  admin/HR, force), deny, partial-deny, cancel, and adjust-for-work-day.

ATOMICITY:
  Every mutating operation runs inside one store transaction: request
  update, credit adjustment, denial rows, exemptions, and companion
  creation either all commit or none do. Version-guarded updates serialize
  concurrent approvals of the same request; a lost race is retried once.

CREDIT HOLDS:
  Creating a credit-bearing request reserves its day count against the
  employee-year summary (pending_credits), so overlapping pending requests
  cannot spend the same credits. The hold is released when the request
  leaves pending: on approval the engine releases it and deducts what the
  split resolver actually funded; on denial or cancellation it is simply
  released.

SEE ALSO:
  - approval.go, split.go, partial.go, conflict.go, advisory.go
  - store/sqlite: the production Store
*/
package leave

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/warp/leave-engine/calendar"
	"github.com/warp/leave-engine/credits"
	"github.com/warp/leave-engine/metrics"
)

// DefaultMonthlyRate is the accrual rate used when an employee-year summary
// does not exist yet (1.25 days/month, 15 days/year).
var DefaultMonthlyRate = decimal.RequireFromString("1.25")

// Service orchestrates the leave request lifecycle.
type Service struct {
	store      Store
	attendance AttendanceProvider
	detector   *ConflictDetector
	notifier   Notifier
	log        *zap.Logger
	clock      func() time.Time
}

// Option configures a Service.
type Option func(*Service)

func WithNotifier(n Notifier) Option      { return func(s *Service) { s.notifier = n } }
func WithLogger(l *zap.Logger) Option     { return func(s *Service) { s.log = l } }
func WithClock(c func() time.Time) Option { return func(s *Service) { s.clock = c } }

// NewService builds a Service over a store and an attendance provider.
func NewService(store Store, attendance AttendanceProvider, opts ...Option) *Service {
	s := &Service{
		store:      store,
		attendance: attendance,
		detector:   NewConflictDetector(store),
		notifier:   NopNotifier{},
		log:        zap.NewNop(),
		clock:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) now() time.Time       { return s.clock().UTC() }
func (s *Service) today() calendar.Date { return calendar.DateOf(s.now()) }

// withRetry runs fn in a transaction and retries exactly once when the
// version guard reports a lost race.
func (s *Service) withRetry(ctx context.Context, fn func(Store) error) error {
	err := s.store.WithTx(ctx, fn)
	if IsRetryable(err) {
		s.log.Warn("retrying after concurrent modification")
		err = s.store.WithTx(ctx, fn)
	}
	return err
}

// =============================================================================
// CREATE
// =============================================================================

// CreateInput is the submission payload. The campaign and the TL-approval
// flag on the employee record come from the identity collaborator.
type CreateInput struct {
	EmployeeID  string
	Type        Type
	StartDate   calendar.Date
	EndDate     calendar.Date
	Reason      string
	Campaign    string
	DocumentRef string
}

// CreateResult carries the persisted request plus the informational
// warnings and conflicts computed for display.
type CreateResult struct {
	Request    *Request
	Advisories []Advisory
	Conflicts  []Conflict
}

// Create validates and persists a new pending request, reserving credits
// for credit-bearing types. Advisory checks and conflict detection never
// block creation.
func (s *Service) Create(ctx context.Context, in CreateInput) (*CreateResult, error) {
	if err := validateCreate(in); err != nil {
		return nil, err
	}

	emp, err := s.store.GetEmployee(ctx, in.EmployeeID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	today := s.today()

	days := calendar.WorkingDaysBetween(in.StartDate, in.EndDate)
	if days == 0 {
		return nil, newValidationError("dates", "range contains no working days")
	}

	points, err := s.attendance.ActivePoints(ctx, emp.ID, today)
	if err != nil {
		return nil, fmt.Errorf("attendance snapshot: %w", err)
	}

	req := &Request{
		ID:                        uuid.NewString(),
		EmployeeID:                emp.ID,
		Campaign:                  in.Campaign,
		Type:                      in.Type,
		StartDate:                 in.StartDate,
		EndDate:                   in.EndDate,
		DaysRequested:             decimal.NewFromInt(int64(days)),
		Reason:                    in.Reason,
		DocumentRef:               in.DocumentRef,
		RequiresTLApproval:        emp.RequiresTLApproval,
		Status:                    StatusPending,
		AttendancePointsAtRequest: &points,
		SubmittedAt:               now,
		CreatedAt:                 now,
		UpdatedAt:                 now,
	}

	err = s.store.WithTx(ctx, func(tx Store) error {
		if err := tx.InsertRequest(ctx, req); err != nil {
			return err
		}
		if req.Type.Policy().CreditBearing {
			summary, err := s.loadOrCreateSummary(ctx, tx, emp, req.StartDate.Year())
			if err != nil {
				return err
			}
			credits.Reserve(summary, req.DaysRequested)
			return tx.SaveSummary(ctx, summary)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	result := &CreateResult{Request: req}
	result.Advisories = s.advisories(ctx, req, points)
	result.Conflicts, err = s.CheckConflicts(ctx, req.Campaign, req.StartDate, req.EndDate, req.Type, req.EmployeeID)
	if err != nil {
		// Conflict detection is informational; creation already stands.
		s.log.Warn("conflict check failed", zap.String("request_id", req.ID), zap.Error(err))
		err = nil
	}

	metrics.RequestsCreated.WithLabelValues(string(req.Type)).Inc()
	s.notifier.RequestStateChanged(ctx, req, "created")
	s.log.Info("leave request created",
		zap.String("request_id", req.ID),
		zap.String("employee_id", req.EmployeeID),
		zap.String("type", string(req.Type)),
		zap.String("start", req.StartDate.String()),
		zap.String("end", req.EndDate.String()),
	)
	return result, nil
}

func validateCreate(in CreateInput) error {
	if !in.Type.Valid() {
		return newValidationError("type", "unknown leave type %q", in.Type)
	}
	if strings.TrimSpace(in.Campaign) == "" {
		return newValidationError("campaign", "campaign is required")
	}
	if len(strings.TrimSpace(in.Reason)) < MinReasonLength {
		return newValidationError("reason", "reason must be at least %d characters", MinReasonLength)
	}
	if in.StartDate.IsZero() || in.EndDate.IsZero() {
		return newValidationError("dates", "start and end dates are required")
	}
	if in.EndDate.Before(in.StartDate) {
		return newValidationError("dates", "end date precedes start date")
	}
	if in.Type.Policy().WeekendRestricted {
		if in.StartDate.IsWeekend() || in.EndDate.IsWeekend() {
			return newValidationError("dates", "%s cannot start or end on a weekend", in.Type)
		}
	}
	return nil
}

func (s *Service) advisories(ctx context.Context, req *Request, points decimal.Decimal) []Advisory {
	lastAbsence, err := s.attendance.LastAbsenceDate(ctx, req.EmployeeID)
	if err != nil {
		s.log.Warn("last absence lookup failed", zap.Error(err))
	}
	own, err := s.store.ListRequestsByEmployee(ctx, req.EmployeeID, []Status{StatusPending, StatusApproved})
	if err != nil {
		s.log.Warn("own request lookup failed", zap.Error(err))
	}
	return Advisories(req, s.today(), lastAbsence, points, own)
}

// =============================================================================
// APPROVALS
// =============================================================================

// ApproveTL records the team lead's approval. The request stays pending
// for the admin/HR dual control.
func (s *Service) ApproveTL(ctx context.Context, requestID, notes string) (*Request, error) {
	var req *Request
	err := s.withRetry(ctx, func(tx Store) error {
		var err error
		req, err = tx.GetRequest(ctx, requestID)
		if err != nil {
			return err
		}
		if err := RecordTLApproval(req, notes, s.now()); err != nil {
			return err
		}
		return tx.UpdateRequest(ctx, req)
	})
	if err != nil {
		return nil, err
	}
	s.notifier.RequestStateChanged(ctx, req, "tl_approved")
	return req, nil
}

// DenyTL records a team-lead rejection: the request is denied immediately,
// independent of admin and HR, and any credit hold is released.
func (s *Service) DenyTL(ctx context.Context, requestID, notes string) (*Request, error) {
	var req *Request
	err := s.withRetry(ctx, func(tx Store) error {
		var err error
		req, err = tx.GetRequest(ctx, requestID)
		if err != nil {
			return err
		}
		if err := RecordTLRejection(req, notes, s.now()); err != nil {
			return err
		}
		if err := s.releaseHold(ctx, tx, req); err != nil {
			return err
		}
		return tx.UpdateRequest(ctx, req)
	})
	if err != nil {
		return nil, err
	}
	metrics.RequestsFinalized.WithLabelValues("denied").Inc()
	s.notifier.RequestStateChanged(ctx, req, "tl_denied")
	return req, nil
}

// Approve records one approver role's sign-off (admin or HR, either
// order). When the second role lands, the request transitions to approved
// and credit resolution runs in the same transaction.
func (s *Service) Approve(ctx context.Context, requestID string, role Role, notes string) (*Request, error) {
	var req *Request
	var complete bool
	err := s.withRetry(ctx, func(tx Store) error {
		var err error
		req, err = tx.GetRequest(ctx, requestID)
		if err != nil {
			return err
		}
		complete, err = RecordApproval(req, role, notes, s.now())
		if err != nil {
			return err
		}
		if complete {
			if err := s.finalizeApproval(ctx, tx, req); err != nil {
				return err
			}
		}
		return tx.UpdateRequest(ctx, req)
	})
	if err != nil {
		return nil, err
	}
	if complete {
		metrics.RequestsFinalized.WithLabelValues("approved").Inc()
		s.notifier.RequestStateChanged(ctx, req, "approved")
	} else {
		s.notifier.RequestStateChanged(ctx, req, "partially_approved")
	}
	return req, nil
}

// Deny fully denies a pending request and releases its credit hold.
func (s *Service) Deny(ctx context.Context, requestID string, role Role, notes string) (*Request, error) {
	var req *Request
	err := s.withRetry(ctx, func(tx Store) error {
		var err error
		req, err = tx.GetRequest(ctx, requestID)
		if err != nil {
			return err
		}
		if err := Deny(req, role, notes, s.now()); err != nil {
			return err
		}
		if err := s.releaseHold(ctx, tx, req); err != nil {
			return err
		}
		return tx.UpdateRequest(ctx, req)
	})
	if err != nil {
		return nil, err
	}
	metrics.RequestsFinalized.WithLabelValues("denied").Inc()
	s.notifier.RequestStateChanged(ctx, req, "denied")
	return req, nil
}

// PartialDeny approves a subset of a multi-day request's working days and
// denies the rest, each denied day persisted with its own reason. The
// acting role must be an admin role and the TL gate must be satisfied; the
// decision finalizes through the single-reviewer fields.
func (s *Service) PartialDeny(
	ctx context.Context,
	requestID string,
	deniedDates []calendar.Date,
	denialReason, notes string,
	actorID string,
	role Role,
) (*Request, error) {
	if !role.IsAdminRole() {
		return nil, ErrRoleNotAllowed
	}
	var req *Request
	err := s.withRetry(ctx, func(tx Store) error {
		var err error
		req, err = tx.GetRequest(ctx, requestID)
		if err != nil {
			return err
		}
		if err := ensureActionable(req, "partial-deny"); err != nil {
			return err
		}
		if !TLGateSatisfied(req) {
			return stateConflict(req, "partial-deny", ErrTLGateUnmet)
		}
		now := s.now()
		pd, err := ResolvePartialDenial(req, deniedDates, denialReason, actorID, role, now)
		if err != nil {
			return err
		}
		if err := tx.InsertDeniedDates(ctx, pd.DeniedDates); err != nil {
			return err
		}
		pd.Apply(req, now)
		req.Status = StatusApproved
		req.ReviewedAt = &now
		req.ReviewNotes = notes
		if err := s.finalizeApproval(ctx, tx, req); err != nil {
			return err
		}
		return tx.UpdateRequest(ctx, req)
	})
	if err != nil {
		return nil, err
	}
	metrics.RequestsFinalized.WithLabelValues("approved").Inc()
	s.notifier.RequestStateChanged(ctx, req, "partially_denied")
	return req, nil
}

// ForceApproveInput drives the super-admin override. DeniedDates, when
// present, are processed exactly like a partial denial before credit
// resolution, which then runs on the reduced day count.
type ForceApproveInput struct {
	RequestID    string
	Notes        string
	DeniedDates  []calendar.Date
	DenialReason string
	ActorID      string
	Role         Role
}

// ForceApprove finalizes a request unconditionally, bypassing any unmet
// TL/admin/HR gate. Super-admin only.
func (s *Service) ForceApprove(ctx context.Context, in ForceApproveInput) (*Request, error) {
	var req *Request
	err := s.withRetry(ctx, func(tx Store) error {
		var err error
		req, err = tx.GetRequest(ctx, in.RequestID)
		if err != nil {
			return err
		}
		now := s.now()
		if len(in.DeniedDates) > 0 {
			pd, err := ResolvePartialDenial(req, in.DeniedDates, in.DenialReason, in.ActorID, in.Role, now)
			if err != nil {
				return err
			}
			if err := tx.InsertDeniedDates(ctx, pd.DeniedDates); err != nil {
				return err
			}
			pd.Apply(req, now)
		}
		if err := ForceApprove(req, in.Role, in.Notes, now); err != nil {
			return err
		}
		if err := s.finalizeApproval(ctx, tx, req); err != nil {
			return err
		}
		return tx.UpdateRequest(ctx, req)
	})
	if err != nil {
		return nil, err
	}
	metrics.RequestsFinalized.WithLabelValues("approved").Inc()
	s.notifier.RequestStateChanged(ctx, req, "force_approved")
	return req, nil
}

// finalizeApproval applies the credit side effects of a completed
// approval: release the pending hold, resolve the split, deduct, create
// the unpaid companion when the split calls for one, and record attendance
// exemptions for the approved dates. Runs inside the caller's transaction.
func (s *Service) finalizeApproval(ctx context.Context, tx Store, req *Request) error {
	now := s.now()
	today := s.today()

	approvedDates, err := s.approvedDates(ctx, tx, req)
	if err != nil {
		return err
	}

	if req.Type.Policy().CreditBearing {
		emp, err := tx.GetEmployee(ctx, req.EmployeeID)
		if err != nil {
			return err
		}
		summary, err := s.loadOrCreateSummary(ctx, tx, emp, req.StartDate.Year())
		if err != nil {
			return err
		}

		// The summary still carries this request's own hold; release it
		// before measuring what is actually available.
		credits.Release(summary, req.DaysRequested)

		available := credits.AvailableBalance(summary, today, req.StartDate)
		outcome := ResolveCreditSplit(req.Type, available, req.EffectiveDays(), req.HasCertificate())
		originalType := req.Type

		if outcome.Funded() {
			credits.Deduct(summary, outcome.DeductDays)
			deducted := outcome.DeductDays
			req.CreditsDeducted = &deducted
		}
		if outcome.NoCreditReason != "" {
			switch originalType {
			case TypeSick:
				req.SLNoCreditReason = outcome.NoCreditReason
			case TypeVacation:
				req.VLNoCreditReason = outcome.NoCreditReason
			}
		}
		if outcome.ConvertToUnpaid {
			req.Type = TypeUnpaid
		}
		if err := tx.SaveSummary(ctx, summary); err != nil {
			return err
		}

		if outcome.CompanionDays.IsPositive() {
			if err := s.createCompanion(ctx, tx, req, outcome.CompanionDays, now); err != nil {
				return err
			}
		}
		metrics.CreditConversions.WithLabelValues(splitKind(outcome)).Inc()
	}

	return tx.InsertExemptions(ctx, req.ID, approvedDates)
}

func splitKind(o SplitOutcome) string {
	switch {
	case o.CompanionDays.IsPositive():
		return "partial"
	case o.ConvertToUnpaid:
		return "converted"
	case o.Funded():
		return "full"
	default:
		return "withheld"
	}
}

// approvedDates is the request's working days minus its denied dates.
func (s *Service) approvedDates(ctx context.Context, tx Store, req *Request) ([]calendar.Date, error) {
	working := req.WorkingDates()
	if !req.HasPartialDenial {
		return working, nil
	}
	rows, err := tx.ListDeniedDates(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	denied := make(map[calendar.Date]bool, len(rows))
	for _, row := range rows {
		denied[row.DeniedDate] = true
	}
	var approved []calendar.Date
	for _, d := range working {
		if !denied[d] {
			approved = append(approved, d)
		}
	}
	return approved, nil
}

// createCompanion carves the unfunded remainder into a linked, auto-
// approved UPTO request. At most one active companion per parent, created
// exactly once: a retried approval finds the existing link and does
// nothing.
func (s *Service) createCompanion(ctx context.Context, tx Store, parent *Request, days decimal.Decimal, now time.Time) error {
	existing, err := tx.GetCompanion(ctx, parent.ID)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}
	companion := &Request{
		ID:              uuid.NewString(),
		EmployeeID:      parent.EmployeeID,
		Campaign:        parent.Campaign,
		Type:            TypeUnpaid,
		StartDate:       parent.StartDate,
		EndDate:         parent.EndDate,
		DaysRequested:   days,
		Reason:          fmt.Sprintf("Unpaid remainder of leave request %s", parent.ID),
		Status:          StatusApproved,
		LinkedRequestID: parent.ID,
		ReviewedAt:      &now,
		ReviewNotes:     "auto-approved unpaid companion",
		SubmittedAt:     now,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	return tx.InsertRequest(ctx, companion)
}

// =============================================================================
// SHORT-NOTICE OVERRIDE
// =============================================================================

// OverrideShortNotice suppresses the short-notice warning on a pending
// request, recording which privileged actor authorized it.
func (s *Service) OverrideShortNotice(ctx context.Context, requestID, actorID string, role Role) (*Request, error) {
	if !role.IsAdminRole() {
		return nil, ErrRoleNotAllowed
	}
	var req *Request
	err := s.withRetry(ctx, func(tx Store) error {
		var err error
		req, err = tx.GetRequest(ctx, requestID)
		if err != nil {
			return err
		}
		if err := ensureActionable(req, "short-notice-override"); err != nil {
			return err
		}
		req.ShortNoticeOverride = true
		req.ShortNoticeOverrideBy = actorID
		req.UpdatedAt = s.now()
		return tx.UpdateRequest(ctx, req)
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("short-notice warning overridden",
		zap.String("request_id", req.ID),
		zap.String("actor_id", actorID),
	)
	return req, nil
}

// =============================================================================
// CANCEL AND ADJUST
// =============================================================================

// Cancel transitions a request to cancelled. Cancelling an approved,
// credit-bearing request restores exactly the amount previously deducted
// and removes the attendance exemptions generated for its dates; an active
// unpaid companion is cancelled with it.
func (s *Service) Cancel(ctx context.Context, requestID, reason, actorID string, role Role) (*Request, error) {
	var req *Request
	err := s.withRetry(ctx, func(tx Store) error {
		var err error
		req, err = tx.GetRequest(ctx, requestID)
		if err != nil {
			return err
		}
		wasPending := req.Status == StatusPending
		wasApproved := req.Status == StatusApproved
		now := s.now()
		if err := Cancel(req, actorID, role, reason, now); err != nil {
			return err
		}

		if wasPending {
			if err := s.releaseHold(ctx, tx, req); err != nil {
				return err
			}
		}
		if wasApproved {
			if req.CreditsDeducted != nil && req.CreditsDeducted.IsPositive() {
				summary, err := tx.GetSummary(ctx, req.EmployeeID, req.StartDate.Year())
				if err != nil {
					return err
				}
				credits.Restore(summary, *req.CreditsDeducted)
				if err := tx.SaveSummary(ctx, summary); err != nil {
					return err
				}
			}
			if err := tx.DeleteExemptions(ctx, req.ID, nil); err != nil {
				return err
			}
			companion, err := tx.GetCompanion(ctx, req.ID)
			if err != nil {
				return err
			}
			if companion != nil && companion.Status == StatusApproved {
				companion.Status = StatusCancelled
				companion.CancelledBy = actorID
				companion.CancellationReason = "parent request cancelled"
				companion.UpdatedAt = now
				if err := tx.UpdateRequest(ctx, companion); err != nil {
					return err
				}
			}
		}
		return tx.UpdateRequest(ctx, req)
	})
	if err != nil {
		return nil, err
	}
	metrics.RequestsFinalized.WithLabelValues("cancelled").Inc()
	s.notifier.RequestStateChanged(ctx, req, "cancelled")
	return req, nil
}

// AdjustMode selects which edge of an approved request shrinks.
type AdjustMode string

const (
	AdjustEndEarly  AdjustMode = "end_early"  // work the given day and onward
	AdjustStartLate AdjustMode = "start_late" // work the given day and before
)

// AdjustForWorkDay shrinks an approved request so the employee can work
// the given day, restoring credits for the removed days and recording the
// modification. Admin roles only.
func (s *Service) AdjustForWorkDay(ctx context.Context, requestID string, workDate calendar.Date, mode AdjustMode, actorID string, role Role) (*Request, error) {
	if !role.IsAdminRole() {
		return nil, ErrRoleNotAllowed
	}
	var req *Request
	err := s.withRetry(ctx, func(tx Store) error {
		var err error
		req, err = tx.GetRequest(ctx, requestID)
		if err != nil {
			return err
		}
		if req.Status != StatusApproved {
			return stateConflict(req, "adjust", ErrNotApproved)
		}
		if workDate.Before(req.StartDate) || workDate.After(req.EndDate) {
			return newValidationError("work_date", "%s is outside the request range", workDate)
		}

		newStart, newEnd := req.StartDate, req.EndDate
		switch mode {
		case AdjustEndEarly:
			newEnd = workDate.AddDays(-1)
		case AdjustStartLate:
			newStart = workDate.AddDays(1)
		default:
			return newValidationError("mode", "unknown adjustment mode %q", mode)
		}
		if newEnd.Before(newStart) || calendar.WorkingDaysBetween(newStart, newEnd) == 0 {
			return newValidationError("work_date",
				"adjustment would leave no working days; cancel the request instead")
		}

		return s.applyAdjustment(ctx, tx, req, newStart, newEnd, mode, workDate, actorID)
	})
	if err != nil {
		return nil, err
	}
	s.notifier.RequestStateChanged(ctx, req, "date_adjusted")
	return req, nil
}

func (s *Service) applyAdjustment(
	ctx context.Context,
	tx Store,
	req *Request,
	newStart, newEnd calendar.Date,
	mode AdjustMode,
	workDate calendar.Date,
	actorID string,
) error {
	now := s.now()

	deniedSet := make(map[calendar.Date]bool)
	if req.HasPartialDenial {
		rows, err := tx.ListDeniedDates(ctx, req.ID)
		if err != nil {
			return err
		}
		for _, row := range rows {
			deniedSet[row.DeniedDate] = true
		}
	}

	// Working days removed from the approved schedule.
	var removed []calendar.Date
	newApproved := 0
	for _, d := range req.WorkingDates() {
		if deniedSet[d] {
			continue
		}
		if d.Before(newStart) || d.After(newEnd) {
			removed = append(removed, d)
		} else {
			newApproved++
		}
	}
	newApprovedDays := decimal.NewFromInt(int64(newApproved))

	// Restore the credit portion that no longer covers any day.
	newDeduct := decimal.Zero
	if req.CreditsDeducted != nil {
		newDeduct = decimal.Min(*req.CreditsDeducted, newApprovedDays)
		restore := req.CreditsDeducted.Sub(newDeduct)
		if restore.IsPositive() {
			summary, err := tx.GetSummary(ctx, req.EmployeeID, req.StartDate.Year())
			if err != nil {
				return err
			}
			credits.Restore(summary, restore)
			if err := tx.SaveSummary(ctx, summary); err != nil {
				return err
			}
		}
		req.CreditsDeducted = &newDeduct
	}

	// Shrink or cancel the unpaid companion alongside the parent.
	companion, err := tx.GetCompanion(ctx, req.ID)
	if err != nil {
		return err
	}
	if companion != nil && companion.Status == StatusApproved {
		companionDays := newApprovedDays.Sub(newDeduct)
		if companionDays.IsPositive() {
			companion.StartDate = newStart
			companion.EndDate = newEnd
			companion.DaysRequested = companionDays
			companion.UpdatedAt = now
		} else {
			companion.Status = StatusCancelled
			companion.CancelledBy = actorID
			companion.CancellationReason = "parent request date-adjusted"
			companion.UpdatedAt = now
		}
		if err := tx.UpdateRequest(ctx, companion); err != nil {
			return err
		}
	}

	if req.OriginalStartDate == nil {
		origStart, origEnd := req.StartDate, req.EndDate
		req.OriginalStartDate = &origStart
		req.OriginalEndDate = &origEnd
	}
	req.StartDate = newStart
	req.EndDate = newEnd
	req.DaysRequested = decimal.NewFromInt(int64(calendar.WorkingDaysBetween(newStart, newEnd)))
	if req.HasPartialDenial {
		req.ApprovedDays = newApprovedDays
	}
	req.DateModificationReason = fmt.Sprintf("%s for work day %s", mode, workDate)
	req.ModifiedBy = actorID
	req.UpdatedAt = now

	if err := tx.DeleteExemptions(ctx, req.ID, removed); err != nil {
		return err
	}
	return tx.UpdateRequest(ctx, req)
}

// =============================================================================
// READS AND PREVIEWS
// =============================================================================

// Get returns a request by id.
func (s *Service) Get(ctx context.Context, requestID string) (*Request, error) {
	return s.store.GetRequest(ctx, requestID)
}

// List returns an employee's requests, optionally filtered by status.
func (s *Service) List(ctx context.Context, employeeID string, statuses []Status) ([]Request, error) {
	return s.store.ListRequestsByEmployee(ctx, employeeID, statuses)
}

// DeniedDates returns the denial rows for a request.
func (s *Service) DeniedDates(ctx context.Context, requestID string) ([]DeniedDate, error) {
	return s.store.ListDeniedDates(ctx, requestID)
}

// Summary returns the employee-year credit summary, synthesizing an empty
// one when the year has no record yet.
func (s *Service) Summary(ctx context.Context, employeeID string, year int) (*credits.Summary, error) {
	summary, err := s.store.GetSummary(ctx, employeeID, year)
	if err == nil {
		return summary, nil
	}
	if !errors.Is(err, ErrSummaryNotFound) {
		return nil, err
	}
	emp, err := s.store.GetEmployee(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	return s.newSummary(emp, year), nil
}

// PreviewCreditSplit runs the ledger and split arithmetic without
// persisting anything, for display before submission or approval.
func (s *Service) PreviewCreditSplit(ctx context.Context, employeeID string, typ Type, start, end calendar.Date) (*CreditSplitPreview, error) {
	if !typ.Valid() {
		return nil, newValidationError("type", "unknown leave type %q", typ)
	}
	if end.Before(start) {
		return nil, newValidationError("dates", "end date precedes start date")
	}
	summary, err := s.Summary(ctx, employeeID, start.Year())
	if err != nil {
		return nil, err
	}
	today := s.today()
	days := decimal.NewFromInt(int64(calendar.WorkingDaysBetween(start, end)))
	available := credits.AvailableBalance(summary, today, start)
	return &CreditSplitPreview{
		EmployeeID:       employeeID,
		Type:             typ,
		DaysRequested:    days,
		AvailableBalance: available,
		Outcome:          ResolveCreditSplit(typ, available, days, false),
		Eligible:         credits.Eligible(summary, today),
	}, nil
}

// CheckConflicts exposes first-come-first-served conflict detection.
func (s *Service) CheckConflicts(ctx context.Context, campaign string, start, end calendar.Date, typ Type, excludeEmployeeID string) ([]Conflict, error) {
	conflicts, err := s.detector.CheckConflicts(ctx, campaign, start, end, typ, excludeEmployeeID)
	if err != nil {
		return nil, err
	}
	if len(conflicts) > 0 {
		metrics.ConflictsDetected.Inc()
	}
	return conflicts, nil
}

// SuggestDates proposes up to three less-conflicted alternative windows.
func (s *Service) SuggestDates(ctx context.Context, campaign string, start, end calendar.Date, typ Type, excludeEmployeeID string) ([]Suggestion, error) {
	return s.detector.SuggestDates(ctx, campaign, start, end, typ, excludeEmployeeID, s.today())
}

// =============================================================================
// INTERNAL HELPERS
// =============================================================================

func (s *Service) newSummary(emp *Employee, year int) *credits.Summary {
	summary := credits.NewSummary(emp.ID, year, emp.HireDate, DefaultMonthlyRate)
	summary.IsEligible = credits.Eligible(summary, s.today())
	return summary
}

func (s *Service) loadOrCreateSummary(ctx context.Context, tx Store, emp *Employee, year int) (*credits.Summary, error) {
	summary, err := tx.GetSummary(ctx, emp.ID, year)
	if err == nil {
		summary.IsEligible = credits.Eligible(summary, s.today())
		return summary, nil
	}
	if !errors.Is(err, ErrSummaryNotFound) {
		return nil, err
	}
	return s.newSummary(emp, year), nil
}

// releaseHold releases the credit reservation a pending credit-bearing
// request placed at creation. No-op for other types or when no summary
// exists.
func (s *Service) releaseHold(ctx context.Context, tx Store, req *Request) error {
	if !req.Type.Policy().CreditBearing {
		return nil
	}
	summary, err := tx.GetSummary(ctx, req.EmployeeID, req.StartDate.Year())
	if err != nil {
		if errors.Is(err, ErrSummaryNotFound) {
			return nil
		}
		return err
	}
	credits.Release(summary, req.DaysRequested)
	return tx.SaveSummary(ctx, summary)
}
