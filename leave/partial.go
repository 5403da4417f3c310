/*
partial.go - Day-level partial denial

PURPOSE:
  Converts an approver's day-level selection into DeniedDate rows and a
  recomputed approved-day total. The approver supplies the dates to DENY;
  the complement within the request's working days is what gets approved.

CONTRACT:
  - The request must span more than one working day.
  - Denying nothing is a caller error (use full approve).
  - Denying everything is a caller error (use full deny).
  - Every denied date must be a working day inside the request's range.
  - DeniedDate rows are immutable once created.

  Validation failures reject the whole action with no mutation.

SEE ALSO:
  - service.go: persists the rows and feeds ApprovedDays into the split
    resolver inside the same transaction
*/
package leave

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/warp/leave-engine/calendar"
)

// PartialDenial is the validated result of a day-level selection: the rows
// to persist and the recomputed totals to apply to the parent.
type PartialDenial struct {
	DeniedDates   []DeniedDate
	ApprovedDates []calendar.Date
	ApprovedDays  decimal.Decimal
}

// ResolvePartialDenial validates the denied-date selection against the
// request's working days and builds the denial rows. It does not mutate the
// request; Apply does, once the caller is inside its transaction.
func ResolvePartialDenial(
	r *Request,
	deniedDates []calendar.Date,
	denialReason string,
	deniedBy string,
	denier Role,
	now time.Time,
) (*PartialDenial, error) {
	working := r.WorkingDates()
	if len(working) <= 1 {
		return nil, newValidationError("denied_dates",
			"partial denial requires a request spanning more than one working day")
	}
	if len(deniedDates) == 0 {
		return nil, newValidationError("denied_dates",
			"denied date set is empty; use full approve instead")
	}
	if strings.TrimSpace(denialReason) == "" {
		return nil, newValidationError("denial_reason", "denial reason is required")
	}

	workingSet := make(map[calendar.Date]bool, len(working))
	for _, d := range working {
		workingSet[d] = true
	}

	denied := make(map[calendar.Date]bool, len(deniedDates))
	for _, d := range deniedDates {
		if !workingSet[d] {
			return nil, newValidationError("denied_dates",
				"%s is not a working day within the request range", d)
		}
		denied[d] = true // duplicates collapse
	}
	if len(denied) == len(working) {
		return nil, newValidationError("denied_dates",
			"denied date set covers every working day; use full deny instead")
	}

	pd := &PartialDenial{}
	for _, d := range working {
		if denied[d] {
			pd.DeniedDates = append(pd.DeniedDates, DeniedDate{
				ID:             uuid.NewString(),
				LeaveRequestID: r.ID,
				DeniedDate:     d,
				DenialReason:   denialReason,
				DeniedBy:       deniedBy,
				Denier:         denier,
				CreatedAt:      now,
			})
		} else {
			pd.ApprovedDates = append(pd.ApprovedDates, d)
		}
	}
	pd.ApprovedDays = decimal.NewFromInt(int64(len(pd.ApprovedDates)))
	return pd, nil
}

// Apply marks the partial denial on the request. Credit resolution then
// runs against ApprovedDays, not DaysRequested.
func (pd *PartialDenial) Apply(r *Request, now time.Time) {
	r.HasPartialDenial = true
	r.ApprovedDays = pd.ApprovedDays
	r.UpdatedAt = now
}
