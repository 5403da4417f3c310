/*
store.go - Persistence and collaborator interfaces

PURPOSE:
  The seams between the engine and the outside world. The Store is the
  persistence contract; AttendanceProvider and Notifier are the read-only
  attendance collaborator and the fire-and-forget notification dispatcher.

TRANSACTION BOUNDARY:
  Every mutating service operation runs inside WithTx: request update,
  credit adjustment, denial rows, and companion creation either all commit
  or none do. UpdateRequest and SaveSummary are version-guarded; losing the
  race returns ErrConcurrentModification and the service retries once.

IMPLEMENTATIONS:
  - store/sqlite: production SQLite store

SEE ALSO:
  - service.go: the only consumer of these interfaces
*/
package leave

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/warp/leave-engine/calendar"
	"github.com/warp/leave-engine/credits"
)

// Store is the persistence contract for the leave engine.
type Store interface {
	OverlapSource

	GetRequest(ctx context.Context, id string) (*Request, error)
	InsertRequest(ctx context.Context, r *Request) error

	// UpdateRequest persists a modified request, guarded by r.Version.
	// Returns ErrConcurrentModification when the stored version moved.
	// On success the request's version is bumped in place.
	UpdateRequest(ctx context.Context, r *Request) error

	// ListRequestsByEmployee returns the employee's requests, newest
	// first. An empty status filter means all statuses.
	ListRequestsByEmployee(ctx context.Context, employeeID string, statuses []Status) ([]Request, error)

	// GetCompanion returns the active UPTO companion linked to the
	// parent, or nil when none exists.
	GetCompanion(ctx context.Context, parentID string) (*Request, error)

	InsertDeniedDates(ctx context.Context, rows []DeniedDate) error
	ListDeniedDates(ctx context.Context, requestID string) ([]DeniedDate, error)

	// GetSummary returns the employee-year credit summary, or
	// ErrSummaryNotFound. SaveSummary upserts.
	GetSummary(ctx context.Context, employeeID string, year int) (*credits.Summary, error)
	SaveSummary(ctx context.Context, s *credits.Summary) error

	GetEmployee(ctx context.Context, id string) (*Employee, error)

	// Attendance exemptions generated for approved leave dates; removed
	// again when the leave is cancelled or date-adjusted. dates == nil
	// deletes all exemptions for the request.
	InsertExemptions(ctx context.Context, requestID string, dates []calendar.Date) error
	DeleteExemptions(ctx context.Context, requestID string, dates []calendar.Date) error

	// WithTx executes fn within one transaction. fn receives a Store
	// bound to that transaction; an error rolls everything back.
	WithTx(ctx context.Context, fn func(Store) error) error
}

// AttendanceProvider is the read-only attendance-point collaborator.
type AttendanceProvider interface {
	// ActivePoints sums the employee's active attendance points as of a
	// date.
	ActivePoints(ctx context.Context, employeeID string, asOf calendar.Date) (decimal.Decimal, error)

	// LastAbsenceDate returns the most recent recorded absence, or nil.
	LastAbsenceDate(ctx context.Context, employeeID string) (*calendar.Date, error)
}

// Notifier dispatches state-change notifications. Fire-and-forget:
// implementations must not block and their failures never fail the
// operation that triggered them.
type Notifier interface {
	RequestStateChanged(ctx context.Context, r *Request, action string)
}

// NopNotifier discards all notifications.
type NopNotifier struct{}

func (NopNotifier) RequestStateChanged(context.Context, *Request, string) {}
