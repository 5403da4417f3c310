/*
Package credits implements per-employee, per-year leave credit accounting.

PURPOSE:
  Eligibility, balance, and projection arithmetic for leave credits. The
  rules it encodes:

  - An employee becomes eligible six months after hire (EligibilityDate).
  - Credits accrue monthly at MonthlyRate once eligible.
  - Balances reset at each year boundary; the only bridge across years is
    the one-time regularization credit carried out of a probation period.
  - Pending requests reserve credits (PendingCredits) so two requests cannot
    spend the same day.

DESIGN PRINCIPLES:
  1. Precision: decimal.Decimal everywhere, no floats
  2. Pure functions: "today" is always passed in, never read from the clock
  3. Never double-count: posted balance and projected future accrual are
     kept distinct and only combined in AvailableBalance

USAGE:
  avail := credits.AvailableBalance(summary, today, requestStart)
  if credits.Sufficient(summary, requested, today, requestStart) { ... }

SEE ALSO:
  - calendar: MonthsBetween used for accrual projection
  - leave: CreditSplitResolver consumes AvailableBalance
*/
package credits

import (
	"github.com/shopspring/decimal"

	"github.com/warp/leave-engine/calendar"
)

// =============================================================================
// SUMMARY - Per employee x year credit state
// =============================================================================

// Summary is the credit state for one employee in one year. It is read and
// written through the store; this package only does the arithmetic.
type Summary struct {
	EmployeeID      string
	Year            int
	IsEligible      bool
	EligibilityDate calendar.Date // hire date + 6 months
	MonthlyRate     decimal.Decimal
	TotalEarned     decimal.Decimal
	TotalUsed       decimal.Decimal
	Balance         decimal.Decimal
	PendingCredits  decimal.Decimal // reserved by other pending requests

	// Regularization carries probation-period accrual into the current
	// year, exactly once.
	Regularization *Regularization
}

// Regularization is the one-time credit bridge from a probation period. It
// is consumed (IsPending cleared) the first time it funds an approval.
type Regularization struct {
	Year               int
	Credits            decimal.Decimal
	MonthsAccrued      int
	RegularizationDate calendar.Date
	IsPending          bool
}

// NewSummary builds an empty summary for an employee-year with the standard
// six-month eligibility window from hire date.
func NewSummary(employeeID string, year int, hireDate calendar.Date, monthlyRate decimal.Decimal) *Summary {
	return &Summary{
		EmployeeID:      employeeID,
		Year:            year,
		EligibilityDate: hireDate.AddMonths(6),
		MonthlyRate:     monthlyRate,
	}
}

// =============================================================================
// ELIGIBILITY AND PROJECTION
// =============================================================================

// Eligible reports whether the employee is credit-eligible as of the given
// date (on or after hire date + 6 months).
func Eligible(s *Summary, asOf calendar.Date) bool {
	return asOf.AfterOrEqual(s.EligibilityDate)
}

// ProjectedBalance returns the total credits the employee will have accrued
// by targetDate, ignoring consumption: pending regularization credits plus
// monthly accrual from the eligibility date forward. Zero when not yet
// eligible at targetDate.
func ProjectedBalance(s *Summary, targetDate calendar.Date) decimal.Decimal {
	if !Eligible(s, targetDate) {
		return decimal.Zero
	}
	months := calendar.MonthsBetween(s.EligibilityDate, targetDate)
	if months < 0 {
		months = 0
	}
	projected := s.MonthlyRate.Mul(decimal.NewFromInt(int64(months)))
	if s.Regularization != nil && s.Regularization.IsPending {
		projected = projected.Add(s.Regularization.Credits)
	}
	return projected
}

// ProjectedFutureCredits returns the accrual that will post in months
// strictly after today, up to and including targetDate's month. These
// credits exist on the timeline but are not yet in Balance.
func ProjectedFutureCredits(s *Summary, today, targetDate calendar.Date) decimal.Decimal {
	if !Eligible(s, targetDate) {
		return decimal.Zero
	}
	accrualFrom := today
	if s.EligibilityDate.After(today) {
		// Accrual cannot start before eligibility.
		accrualFrom = s.EligibilityDate
	}
	months := calendar.MonthsBetween(accrualFrom, targetDate)
	if months <= 0 {
		return decimal.Zero
	}
	return s.MonthlyRate.Mul(decimal.NewFromInt(int64(months)))
}

// AvailableBalance is what the employee can actually spend on a request
// starting at targetDate: posted balance, minus credits reserved by pending
// requests, plus accrual that will post before the request starts, plus a
// still-pending regularization bridge. Never negative.
func AvailableBalance(s *Summary, today, targetDate calendar.Date) decimal.Decimal {
	avail := s.Balance.
		Sub(s.PendingCredits).
		Add(ProjectedFutureCredits(s, today, targetDate))
	if s.Regularization != nil && s.Regularization.IsPending {
		avail = avail.Add(s.Regularization.Credits)
	}
	if avail.IsNegative() {
		return decimal.Zero
	}
	return avail
}

// Sufficient reports whether AvailableBalance covers requestedDays.
func Sufficient(s *Summary, requestedDays decimal.Decimal, today, targetDate calendar.Date) bool {
	return AvailableBalance(s, today, targetDate).GreaterThanOrEqual(requestedDays)
}

// =============================================================================
// MUTATIONS - applied inside the caller's transaction boundary
// =============================================================================

// Deduct consumes days from the summary: balance down, usage up. A pending
// regularization bridge was part of the spendable balance that funded the
// approval, so it is posted into the balance here and marked consumed; it
// can never be counted twice.
func Deduct(s *Summary, days decimal.Decimal) {
	if s.Regularization != nil && s.Regularization.IsPending {
		s.Balance = s.Balance.Add(s.Regularization.Credits)
		s.TotalEarned = s.TotalEarned.Add(s.Regularization.Credits)
		s.Regularization.IsPending = false
	}
	s.Balance = s.Balance.Sub(days)
	s.TotalUsed = s.TotalUsed.Add(days)
}

// Restore returns previously deducted days to the summary. Used when an
// approved, credit-bearing request is cancelled or date-adjusted.
func Restore(s *Summary, days decimal.Decimal) {
	s.Balance = s.Balance.Add(days)
	s.TotalUsed = s.TotalUsed.Sub(days)
	if s.TotalUsed.IsNegative() {
		s.TotalUsed = decimal.Zero
	}
}

// Reserve adds days to the pending reservation; Release removes them.
// Reservations track credits held by pending requests.
func Reserve(s *Summary, days decimal.Decimal) {
	s.PendingCredits = s.PendingCredits.Add(days)
}

func Release(s *Summary, days decimal.Decimal) {
	s.PendingCredits = s.PendingCredits.Sub(days)
	if s.PendingCredits.IsNegative() {
		s.PendingCredits = decimal.Zero
	}
}
