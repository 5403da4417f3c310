/*
conflict.go - Schedule conflict detection and alternate-date suggestion

PURPOSE:
  First-come-first-served conflict detection for VL and UPTO requests:
  find same-campaign pending/approved requests whose date range intersects,
  annotate each with the exact overlapping dates, and order by submission
  time. Strictly informational - a conflict never auto-denies.

  When conflicts exist, the suggester proposes up to three alternative
  windows of identical working-day length:

    (a) two weeks after the original start, clamped to >= 14 days from today
    (b) three weeks after the original start
    (c) the first weekday after the latest conflicting end date, only if
        itself >= 14 days from today

  Each candidate is re-checked and surfaced only if its conflict count is
  strictly lower than the original's, sorted ascending by conflict count.

CONSISTENCY:
  Read-only; runs with no locking. A suggested window can itself be taken
  moments later - acceptable, informational only.
*/
package leave

import (
	"context"
	"sort"

	"github.com/warp/leave-engine/calendar"
)

// OverlapSource is the slice of the store the detector reads: pending and
// approved requests in a campaign whose range intersects [start, end],
// excluding one employee's own requests.
type OverlapSource interface {
	ListOverlapping(ctx context.Context, campaign string, start, end calendar.Date, excludeEmployeeID string) ([]Request, error)
}

// Conflict is one earlier- or later-submitted request that intersects the
// probed range, with the exact shared working dates.
type Conflict struct {
	Request      Request
	OverlapDates []calendar.Date
}

// Suggestion is an alternative window with fewer conflicts than the
// original range.
type Suggestion struct {
	StartDate     calendar.Date
	EndDate       calendar.Date
	WorkingDays   int
	ConflictCount int
}

// ConflictDetector finds schedule overlaps within a campaign.
type ConflictDetector struct {
	Source OverlapSource
}

func NewConflictDetector(source OverlapSource) *ConflictDetector {
	return &ConflictDetector{Source: source}
}

// CheckConflicts returns the campaign's intersecting requests ordered by
// submission time ascending (first submitted = first claim). Leave types
// outside conflict checking resolve to no conflicts.
func (cd *ConflictDetector) CheckConflicts(
	ctx context.Context,
	campaign string,
	start, end calendar.Date,
	typ Type,
	excludeEmployeeID string,
) ([]Conflict, error) {
	if !typ.Policy().ConflictChecked {
		return nil, nil
	}
	candidates, err := cd.Source.ListOverlapping(ctx, campaign, start, end, excludeEmployeeID)
	if err != nil {
		return nil, err
	}

	var conflicts []Conflict
	for _, c := range candidates {
		overlap := overlapWorkingDates(start, end, c.StartDate, c.EndDate)
		if len(overlap) == 0 {
			continue
		}
		conflicts = append(conflicts, Conflict{Request: c, OverlapDates: overlap})
	}
	sort.SliceStable(conflicts, func(i, j int) bool {
		return conflicts[i].Request.SubmittedAt.Before(conflicts[j].Request.SubmittedAt)
	})
	return conflicts, nil
}

// overlapWorkingDates returns the working days shared by two inclusive
// ranges.
func overlapWorkingDates(aStart, aEnd, bStart, bEnd calendar.Date) []calendar.Date {
	start := aStart
	if bStart.After(start) {
		start = bStart
	}
	end := aEnd
	if bEnd.Before(end) {
		end = bEnd
	}
	return calendar.WorkingDatesBetween(start, end)
}

// =============================================================================
// ALTERNATE-DATE SUGGESTION
// =============================================================================

const minNoticeDays = 14

// SuggestDates proposes up to three alternative windows for a conflicted
// range, each spanning the same number of working days. Returns nil when
// the original range has no conflicts.
func (cd *ConflictDetector) SuggestDates(
	ctx context.Context,
	campaign string,
	start, end calendar.Date,
	typ Type,
	excludeEmployeeID string,
	today calendar.Date,
) ([]Suggestion, error) {
	original, err := cd.CheckConflicts(ctx, campaign, start, end, typ, excludeEmployeeID)
	if err != nil {
		return nil, err
	}
	if len(original) == 0 {
		return nil, nil
	}
	length := calendar.WorkingDaysBetween(start, end)
	if length == 0 {
		return nil, nil
	}
	earliest := today.AddDays(minNoticeDays)

	var candidates []calendar.Date

	// (a) two weeks out, clamped to the notice floor
	twoWeeks := start.AddDays(14)
	if twoWeeks.Before(earliest) {
		twoWeeks = earliest
	}
	candidates = append(candidates, twoWeeks)

	// (b) three weeks out
	candidates = append(candidates, start.AddDays(21))

	// (c) first weekday after the latest conflicting end, if far enough
	latestEnd := original[0].Request.EndDate
	for _, c := range original[1:] {
		if c.Request.EndDate.After(latestEnd) {
			latestEnd = c.Request.EndDate
		}
	}
	afterConflicts := calendar.NextWorkday(latestEnd)
	if afterConflicts.AfterOrEqual(earliest) {
		candidates = append(candidates, afterConflicts)
	}

	var suggestions []Suggestion
	seen := make(map[calendar.Date]bool)
	for _, candStart := range candidates {
		if candStart.IsWeekend() {
			candStart = calendar.NextWorkday(candStart)
		}
		if seen[candStart] {
			continue
		}
		seen[candStart] = true

		candEnd := calendar.AddWorkdays(candStart, length)
		candConflicts, err := cd.CheckConflicts(ctx, campaign, candStart, candEnd, typ, excludeEmployeeID)
		if err != nil {
			return nil, err
		}
		if len(candConflicts) >= len(original) {
			continue
		}
		suggestions = append(suggestions, Suggestion{
			StartDate:     candStart,
			EndDate:       candEnd,
			WorkingDays:   length,
			ConflictCount: len(candConflicts),
		})
	}

	sort.SliceStable(suggestions, func(i, j int) bool {
		return suggestions[i].ConflictCount < suggestions[j].ConflictCount
	})
	if len(suggestions) > 3 {
		suggestions = suggestions[:3]
	}
	return suggestions, nil
}
