/*
advisory.go - Non-blocking advisory checks

PURPOSE:
  Warnings surfaced to the requester and approver. None of these prevent
  submission or approval; they exist so the approver sees what the employee
  cannot.

CHECKS:
  short_notice       VL/BL starting under 14 days from submission; a
                     privileged role may record an override that suppresses
                     the warning (actor recorded on the request)
  absence_window     VL starting within 30 days of the last recorded absence
  attendance_points  VL/BL (never ML) with >= 6 active points may be
                     auto-denied downstream
  own_overlap        the new range intersects the employee's own pending or
                     approved requests
*/
package leave

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/warp/leave-engine/calendar"
)

// Advisory is a non-blocking warning.
type Advisory struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

const (
	AdvisoryShortNotice      = "short_notice"
	AdvisoryAbsenceWindow    = "absence_window"
	AdvisoryAttendancePoints = "attendance_points"
	AdvisoryOwnOverlap       = "own_overlap"
)

const absenceWindowDays = 30

var attendanceWarnThreshold = decimal.NewFromInt(6)

// CheckShortNotice warns when a short-notice-checked type starts under two
// weeks from submission. A recorded override suppresses it.
func CheckShortNotice(r *Request, today calendar.Date) *Advisory {
	if !r.Type.Policy().ShortNoticeChecked || r.ShortNoticeOverride {
		return nil
	}
	if calendar.DaysBetween(today, r.StartDate) >= minNoticeDays {
		return nil
	}
	return &Advisory{
		Code: AdvisoryShortNotice,
		Message: fmt.Sprintf("%s starts %s, less than %d days from submission",
			r.Type, r.StartDate, minNoticeDays),
	}
}

// CheckAbsenceWindow warns when a vacation request starts inside the
// 30-day window after the employee's last recorded absence.
func CheckAbsenceWindow(r *Request, lastAbsence *calendar.Date) *Advisory {
	if r.Type != TypeVacation || lastAbsence == nil {
		return nil
	}
	windowEnd := lastAbsence.AddDays(absenceWindowDays)
	if r.StartDate.Before(*lastAbsence) || r.StartDate.After(windowEnd) {
		return nil
	}
	return &Advisory{
		Code: AdvisoryAbsenceWindow,
		Message: fmt.Sprintf("start date falls within 30 days of last absence on %s (window ends %s)",
			lastAbsence, windowEnd),
	}
}

// CheckAttendancePoints warns that six or more active points may trigger a
// downstream auto-denial. It never denies anything itself.
func CheckAttendancePoints(r *Request, points decimal.Decimal) *Advisory {
	if !r.Type.Policy().AttendanceChecked {
		return nil
	}
	if points.LessThan(attendanceWarnThreshold) {
		return nil
	}
	return &Advisory{
		Code: AdvisoryAttendancePoints,
		Message: fmt.Sprintf("employee has %s active attendance points; request may be auto-denied downstream",
			points.String()),
	}
}

// CheckOwnOverlap warns when the new range intersects any of the
// employee's own pending or approved requests.
func CheckOwnOverlap(r *Request, existing []Request) *Advisory {
	for _, e := range existing {
		if e.ID == r.ID {
			continue
		}
		if e.Status != StatusPending && e.Status != StatusApproved {
			continue
		}
		if r.StartDate.After(e.EndDate) || r.EndDate.Before(e.StartDate) {
			continue
		}
		return &Advisory{
			Code: AdvisoryOwnOverlap,
			Message: fmt.Sprintf("dates overlap an existing %s request (%s to %s, %s)",
				e.Type, e.StartDate, e.EndDate, e.Status),
		}
	}
	return nil
}

// Advisories runs every check and collects the non-nil warnings.
func Advisories(r *Request, today calendar.Date, lastAbsence *calendar.Date, points decimal.Decimal, own []Request) []Advisory {
	var out []Advisory
	for _, a := range []*Advisory{
		CheckShortNotice(r, today),
		CheckAbsenceWindow(r, lastAbsence),
		CheckAttendancePoints(r, points),
		CheckOwnOverlap(r, own),
	} {
		if a != nil {
			out = append(out, *a)
		}
	}
	return out
}
