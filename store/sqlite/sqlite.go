/*
Package sqlite provides the SQLite-backed implementation of the leave
engine's storage interfaces.

PURPOSE:
  Implements leave.Store (requests, denied dates, credit summaries,
  exemptions, employees) and leave.AttendanceProvider (read-only point
  snapshots) using database/sql + go-sqlite3. In production, the same
  patterns apply to PostgreSQL - only minor SQL dialect differences.

KEY TABLES:
  leave_requests:        requests with full approval sub-state and version
  denied_dates:          one immutable row per partially denied working day
  credit_summaries:      per employee-year credit state
  attendance_exemptions: dates excused from attendance by approved leave
  attendance_points:     read-only collaborator snapshot
  employees:             identity collaborator projection

INDEXES:
  - idx_requests_campaign_range: overlap queries (hot path)
  - idx_requests_active_companion: at most one non-cancelled companion
    per parent request
  - denied_dates UNIQUE(leave_request_id, denied_date): a working day is
    denied at most once per request

VERSIONING:
  UpdateRequest is guarded by the request's version column; a stale
  version returns leave.ErrConcurrentModification and the caller reloads.

CONCURRENCY:
  WithTx serializes writers with a mutex on top of a database/sql
  transaction. Reads go straight to the WAL-mode connection. In
  production with PostgreSQL, row-level locking handles this instead.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/leave.db")  // ":memory:" for tests
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - leave/store.go: Interface definitions
  - leave/service.go: Transaction boundaries
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/leave-engine/calendar"
	"github.com/warp/leave-engine/credits"
	"github.com/warp/leave-engine/leave"
)

// querier is the subset of *sql.DB / *sql.Tx the session needs.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store implements leave.Store and leave.AttendanceProvider.
type Store struct {
	db *sql.DB
	mu sync.Mutex // serializes write transactions
	session
}

// session carries the query methods; bound to the DB for plain reads and
// to a sql.Tx inside WithTx.
type session struct {
	q querier
}

// New opens (or creates) the database and migrates the schema. Use
// ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	s := &Store{db: db, session: session{q: db}}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS leave_requests (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		campaign TEXT NOT NULL,
		leave_type TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		days_requested TEXT NOT NULL,
		reason TEXT NOT NULL,
		document_ref TEXT NOT NULL DEFAULT '',
		requires_tl_approval INTEGER NOT NULL DEFAULT 0,
		tl_approved_at TEXT,
		tl_review_notes TEXT NOT NULL DEFAULT '',
		tl_rejected INTEGER NOT NULL DEFAULT 0,
		admin_approved_at TEXT,
		admin_review_notes TEXT NOT NULL DEFAULT '',
		hr_approved_at TEXT,
		hr_review_notes TEXT NOT NULL DEFAULT '',
		reviewed_at TEXT,
		review_notes TEXT NOT NULL DEFAULT '',
		short_notice_override INTEGER NOT NULL DEFAULT 0,
		short_notice_override_by TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'pending',
		credits_deducted TEXT,
		attendance_points_at_request TEXT,
		has_partial_denial INTEGER NOT NULL DEFAULT 0,
		approved_days TEXT NOT NULL DEFAULT '0',
		linked_request_id TEXT,
		sl_no_credit_reason TEXT NOT NULL DEFAULT '',
		vl_no_credit_reason TEXT NOT NULL DEFAULT '',
		original_start_date TEXT,
		original_end_date TEXT,
		date_modification_reason TEXT NOT NULL DEFAULT '',
		modified_by TEXT NOT NULL DEFAULT '',
		cancelled_by TEXT NOT NULL DEFAULT '',
		cancellation_reason TEXT NOT NULL DEFAULT '',
		auto_cancelled INTEGER NOT NULL DEFAULT 0,
		auto_cancel_reason TEXT NOT NULL DEFAULT '',
		submitted_at TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		version INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_requests_employee
		ON leave_requests(employee_id, status);
	CREATE INDEX IF NOT EXISTS idx_requests_campaign_range
		ON leave_requests(campaign, status, start_date, end_date);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_requests_active_companion
		ON leave_requests(linked_request_id)
		WHERE linked_request_id IS NOT NULL AND status != 'cancelled';

	CREATE TABLE IF NOT EXISTS denied_dates (
		id TEXT PRIMARY KEY,
		leave_request_id TEXT NOT NULL REFERENCES leave_requests(id),
		denied_date TEXT NOT NULL,
		denial_reason TEXT NOT NULL,
		denied_by TEXT NOT NULL,
		denier TEXT NOT NULL,
		created_at TEXT NOT NULL,
		UNIQUE(leave_request_id, denied_date)
	);

	CREATE INDEX IF NOT EXISTS idx_denied_dates_request
		ON denied_dates(leave_request_id);

	CREATE TABLE IF NOT EXISTS credit_summaries (
		employee_id TEXT NOT NULL,
		year INTEGER NOT NULL,
		is_eligible INTEGER NOT NULL DEFAULT 0,
		eligibility_date TEXT NOT NULL,
		monthly_rate TEXT NOT NULL,
		total_earned TEXT NOT NULL DEFAULT '0',
		total_used TEXT NOT NULL DEFAULT '0',
		balance TEXT NOT NULL DEFAULT '0',
		pending_credits TEXT NOT NULL DEFAULT '0',
		reg_year INTEGER,
		reg_credits TEXT,
		reg_months_accrued INTEGER,
		reg_date TEXT,
		reg_is_pending INTEGER,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (employee_id, year)
	);

	CREATE TABLE IF NOT EXISTS employees (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL DEFAULT '',
		campaign TEXT NOT NULL DEFAULT '',
		hire_date TEXT NOT NULL,
		role TEXT NOT NULL DEFAULT 'employee',
		requires_tl_approval INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS attendance_points (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		shift_date TEXT NOT NULL,
		point_type TEXT NOT NULL,
		points TEXT NOT NULL,
		expires_at TEXT,
		gbro_expires_at TEXT,
		current_status TEXT NOT NULL DEFAULT 'active'
	);

	CREATE INDEX IF NOT EXISTS idx_attendance_points_employee
		ON attendance_points(employee_id, current_status);

	CREATE TABLE IF NOT EXISTS attendance_exemptions (
		leave_request_id TEXT NOT NULL REFERENCES leave_requests(id),
		exemption_date TEXT NOT NULL,
		created_at TEXT NOT NULL,
		PRIMARY KEY (leave_request_id, exemption_date)
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// WithTx executes fn inside one database transaction. An error from fn
// rolls everything back.
func (s *Store) WithTx(ctx context.Context, fn func(leave.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&txStore{session{q: tx}}); err != nil {
		return err
	}
	return tx.Commit()
}

// txStore is a session bound to an open transaction. Nested WithTx calls
// join the same transaction.
type txStore struct {
	session
}

func (t *txStore) WithTx(ctx context.Context, fn func(leave.Store) error) error {
	return fn(t)
}

// =============================================================================
// LEAVE REQUESTS
// =============================================================================

const requestColumns = `id, employee_id, campaign, leave_type, start_date, end_date,
	days_requested, reason, document_ref, requires_tl_approval,
	tl_approved_at, tl_review_notes, tl_rejected,
	admin_approved_at, admin_review_notes, hr_approved_at, hr_review_notes,
	reviewed_at, review_notes, short_notice_override, short_notice_override_by,
	status, credits_deducted, attendance_points_at_request,
	has_partial_denial, approved_days, linked_request_id,
	sl_no_credit_reason, vl_no_credit_reason,
	original_start_date, original_end_date, date_modification_reason, modified_by,
	cancelled_by, cancellation_reason, auto_cancelled, auto_cancel_reason,
	submitted_at, created_at, updated_at, version`

func (s *session) GetRequest(ctx context.Context, id string) (*leave.Request, error) {
	row := s.q.QueryRowContext(ctx,
		`SELECT `+requestColumns+` FROM leave_requests WHERE id = ?`, id)
	req, err := scanRequest(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, leave.ErrRequestNotFound
	}
	return req, err
}

func (s *session) InsertRequest(ctx context.Context, r *leave.Request) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO leave_requests (`+requestColumns+`)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		requestArgs(r)...)
	if err != nil {
		// Only companion inserts race on a unique index; anything else
		// (a duplicate id, say) is a plain storage error.
		if isUniqueConstraintError(err) && r.LinkedRequestID != "" {
			return leave.ErrCompanionExists
		}
		return fmt.Errorf("failed to insert request: %w", err)
	}
	return nil
}

// UpdateRequest persists the request guarded by its version and bumps the
// version in place on success.
func (s *session) UpdateRequest(ctx context.Context, r *leave.Request) error {
	res, err := s.q.ExecContext(ctx, `
		UPDATE leave_requests SET
			campaign = ?, leave_type = ?, start_date = ?, end_date = ?,
			days_requested = ?, reason = ?, document_ref = ?, requires_tl_approval = ?,
			tl_approved_at = ?, tl_review_notes = ?, tl_rejected = ?,
			admin_approved_at = ?, admin_review_notes = ?, hr_approved_at = ?, hr_review_notes = ?,
			reviewed_at = ?, review_notes = ?, short_notice_override = ?, short_notice_override_by = ?,
			status = ?, credits_deducted = ?, attendance_points_at_request = ?,
			has_partial_denial = ?, approved_days = ?, linked_request_id = ?,
			sl_no_credit_reason = ?, vl_no_credit_reason = ?,
			original_start_date = ?, original_end_date = ?, date_modification_reason = ?, modified_by = ?,
			cancelled_by = ?, cancellation_reason = ?, auto_cancelled = ?, auto_cancel_reason = ?,
			updated_at = ?, version = version + 1
		WHERE id = ? AND version = ?`,
		r.Campaign, string(r.Type), r.StartDate.String(), r.EndDate.String(),
		r.DaysRequested.String(), r.Reason, r.DocumentRef, boolInt(r.RequiresTLApproval),
		nullTime(r.TLApprovedAt), r.TLReviewNotes, boolInt(r.TLRejected),
		nullTime(r.AdminApprovedAt), r.AdminReviewNotes, nullTime(r.HRApprovedAt), r.HRReviewNotes,
		nullTime(r.ReviewedAt), r.ReviewNotes, boolInt(r.ShortNoticeOverride), r.ShortNoticeOverrideBy,
		string(r.Status), nullDecimal(r.CreditsDeducted), nullDecimal(r.AttendancePointsAtRequest),
		boolInt(r.HasPartialDenial), r.ApprovedDays.String(), nullString(r.LinkedRequestID),
		r.SLNoCreditReason, r.VLNoCreditReason,
		nullDate(r.OriginalStartDate), nullDate(r.OriginalEndDate), r.DateModificationReason, r.ModifiedBy,
		r.CancelledBy, r.CancellationReason, boolInt(r.AutoCancelled), r.AutoCancelReason,
		r.UpdatedAt.UTC().Format(time.RFC3339),
		r.ID, r.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to update request: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// Either the row is gone or another writer moved the version.
		var exists int
		if err := s.q.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM leave_requests WHERE id = ?`, r.ID).Scan(&exists); err != nil {
			return err
		}
		if exists == 0 {
			return leave.ErrRequestNotFound
		}
		return leave.ErrConcurrentModification
	}
	r.Version++
	return nil
}

func (s *session) ListRequestsByEmployee(ctx context.Context, employeeID string, statuses []leave.Status) ([]leave.Request, error) {
	query := `SELECT ` + requestColumns + ` FROM leave_requests WHERE employee_id = ?`
	args := []any{employeeID}
	if len(statuses) > 0 {
		query += ` AND status IN (?` + strings.Repeat(",?", len(statuses)-1) + `)`
		for _, st := range statuses {
			args = append(args, string(st))
		}
	}
	query += ` ORDER BY submitted_at DESC`
	return s.queryRequests(ctx, query, args...)
}

func (s *session) ListOverlapping(ctx context.Context, campaign string, start, end calendar.Date, excludeEmployeeID string) ([]leave.Request, error) {
	return s.queryRequests(ctx, `
		SELECT `+requestColumns+` FROM leave_requests
		WHERE campaign = ? AND employee_id != ?
		  AND status IN ('pending', 'approved')
		  AND start_date <= ? AND end_date >= ?
		ORDER BY submitted_at ASC`,
		campaign, excludeEmployeeID, end.String(), start.String())
}

func (s *session) GetCompanion(ctx context.Context, parentID string) (*leave.Request, error) {
	row := s.q.QueryRowContext(ctx, `
		SELECT `+requestColumns+` FROM leave_requests
		WHERE linked_request_id = ? AND status != 'cancelled'`, parentID)
	req, err := scanRequest(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return req, err
}

func (s *session) queryRequests(ctx context.Context, query string, args ...any) ([]leave.Request, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query requests: %w", err)
	}
	defer rows.Close()

	var out []leave.Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *req)
	}
	return out, rows.Err()
}

func requestArgs(r *leave.Request) []any {
	return []any{
		r.ID, r.EmployeeID, r.Campaign, string(r.Type), r.StartDate.String(), r.EndDate.String(),
		r.DaysRequested.String(), r.Reason, r.DocumentRef, boolInt(r.RequiresTLApproval),
		nullTime(r.TLApprovedAt), r.TLReviewNotes, boolInt(r.TLRejected),
		nullTime(r.AdminApprovedAt), r.AdminReviewNotes, nullTime(r.HRApprovedAt), r.HRReviewNotes,
		nullTime(r.ReviewedAt), r.ReviewNotes, boolInt(r.ShortNoticeOverride), r.ShortNoticeOverrideBy,
		string(r.Status), nullDecimal(r.CreditsDeducted), nullDecimal(r.AttendancePointsAtRequest),
		boolInt(r.HasPartialDenial), r.ApprovedDays.String(), nullString(r.LinkedRequestID),
		r.SLNoCreditReason, r.VLNoCreditReason,
		nullDate(r.OriginalStartDate), nullDate(r.OriginalEndDate), r.DateModificationReason, r.ModifiedBy,
		r.CancelledBy, r.CancellationReason, boolInt(r.AutoCancelled), r.AutoCancelReason,
		r.SubmittedAt.UTC().Format(time.RFC3339),
		r.CreatedAt.UTC().Format(time.RFC3339),
		r.UpdatedAt.UTC().Format(time.RFC3339),
		r.Version,
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRequest(row rowScanner) (*leave.Request, error) {
	var (
		r                          leave.Request
		leaveType, status          string
		startDate, endDate         string
		daysRequested              string
		requiresTL, tlRejected     int
		tlAt, adminAt, hrAt, revAt sql.NullString
		shortNotice, hasPartial    int
		creditsDeducted, points    sql.NullString
		approvedDays               string
		linkedID                   sql.NullString
		origStart, origEnd         sql.NullString
		autoCancelled              int
		submittedAt, createdAt     string
		updatedAt                  string
	)
	err := row.Scan(
		&r.ID, &r.EmployeeID, &r.Campaign, &leaveType, &startDate, &endDate,
		&daysRequested, &r.Reason, &r.DocumentRef, &requiresTL,
		&tlAt, &r.TLReviewNotes, &tlRejected,
		&adminAt, &r.AdminReviewNotes, &hrAt, &r.HRReviewNotes,
		&revAt, &r.ReviewNotes, &shortNotice, &r.ShortNoticeOverrideBy,
		&status, &creditsDeducted, &points,
		&hasPartial, &approvedDays, &linkedID,
		&r.SLNoCreditReason, &r.VLNoCreditReason,
		&origStart, &origEnd, &r.DateModificationReason, &r.ModifiedBy,
		&r.CancelledBy, &r.CancellationReason, &autoCancelled, &r.AutoCancelReason,
		&submittedAt, &createdAt, &updatedAt, &r.Version,
	)
	if err != nil {
		return nil, err
	}

	r.Type = leave.Type(leaveType)
	r.Status = leave.Status(status)
	r.RequiresTLApproval = requiresTL != 0
	r.TLRejected = tlRejected != 0
	r.ShortNoticeOverride = shortNotice != 0
	r.HasPartialDenial = hasPartial != 0
	r.AutoCancelled = autoCancelled != 0
	r.LinkedRequestID = linkedID.String

	if r.StartDate, err = calendar.ParseDate(startDate); err != nil {
		return nil, err
	}
	if r.EndDate, err = calendar.ParseDate(endDate); err != nil {
		return nil, err
	}
	if r.DaysRequested, err = decimal.NewFromString(daysRequested); err != nil {
		return nil, err
	}
	if r.ApprovedDays, err = decimal.NewFromString(approvedDays); err != nil {
		return nil, err
	}
	if r.CreditsDeducted, err = parseNullDecimal(creditsDeducted); err != nil {
		return nil, err
	}
	if r.AttendancePointsAtRequest, err = parseNullDecimal(points); err != nil {
		return nil, err
	}
	if r.TLApprovedAt, err = parseNullTime(tlAt); err != nil {
		return nil, err
	}
	if r.AdminApprovedAt, err = parseNullTime(adminAt); err != nil {
		return nil, err
	}
	if r.HRApprovedAt, err = parseNullTime(hrAt); err != nil {
		return nil, err
	}
	if r.ReviewedAt, err = parseNullTime(revAt); err != nil {
		return nil, err
	}
	if r.OriginalStartDate, err = parseNullDate(origStart); err != nil {
		return nil, err
	}
	if r.OriginalEndDate, err = parseNullDate(origEnd); err != nil {
		return nil, err
	}
	if r.SubmittedAt, err = time.Parse(time.RFC3339, submittedAt); err != nil {
		return nil, err
	}
	if r.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return nil, err
	}
	if r.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
		return nil, err
	}
	return &r, nil
}

// =============================================================================
// DENIED DATES
// =============================================================================

func (s *session) InsertDeniedDates(ctx context.Context, rows []leave.DeniedDate) error {
	for _, d := range rows {
		_, err := s.q.ExecContext(ctx, `
			INSERT INTO denied_dates (id, leave_request_id, denied_date, denial_reason, denied_by, denier, created_at)
			VALUES (?,?,?,?,?,?,?)`,
			d.ID, d.LeaveRequestID, d.DeniedDate.String(), d.DenialReason,
			d.DeniedBy, string(d.Denier), d.CreatedAt.UTC().Format(time.RFC3339))
		if err != nil {
			return fmt.Errorf("failed to insert denied date: %w", err)
		}
	}
	return nil
}

func (s *session) ListDeniedDates(ctx context.Context, requestID string) ([]leave.DeniedDate, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, leave_request_id, denied_date, denial_reason, denied_by, denier, created_at
		FROM denied_dates WHERE leave_request_id = ? ORDER BY denied_date ASC`, requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to query denied dates: %w", err)
	}
	defer rows.Close()

	var out []leave.DeniedDate
	for rows.Next() {
		var (
			d             leave.DeniedDate
			date, created string
			denier        string
		)
		if err := rows.Scan(&d.ID, &d.LeaveRequestID, &date, &d.DenialReason, &d.DeniedBy, &denier, &created); err != nil {
			return nil, err
		}
		if d.DeniedDate, err = calendar.ParseDate(date); err != nil {
			return nil, err
		}
		if d.CreatedAt, err = time.Parse(time.RFC3339, created); err != nil {
			return nil, err
		}
		d.Denier = leave.Role(denier)
		out = append(out, d)
	}
	return out, rows.Err()
}

// =============================================================================
// CREDIT SUMMARIES
// =============================================================================

func (s *session) GetSummary(ctx context.Context, employeeID string, year int) (*credits.Summary, error) {
	row := s.q.QueryRowContext(ctx, `
		SELECT employee_id, year, is_eligible, eligibility_date, monthly_rate,
		       total_earned, total_used, balance, pending_credits,
		       reg_year, reg_credits, reg_months_accrued, reg_date, reg_is_pending
		FROM credit_summaries WHERE employee_id = ? AND year = ?`, employeeID, year)

	var (
		sum                            credits.Summary
		eligible                       int
		eligDate, rate                 string
		earned, used, balance, pending string
		regYear, regMonths, regPending sql.NullInt64
		regCredits, regDate            sql.NullString
	)
	err := row.Scan(&sum.EmployeeID, &sum.Year, &eligible, &eligDate, &rate,
		&earned, &used, &balance, &pending,
		&regYear, &regCredits, &regMonths, &regDate, &regPending)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, leave.ErrSummaryNotFound
	}
	if err != nil {
		return nil, err
	}

	sum.IsEligible = eligible != 0
	if sum.EligibilityDate, err = calendar.ParseDate(eligDate); err != nil {
		return nil, err
	}
	if sum.MonthlyRate, err = decimal.NewFromString(rate); err != nil {
		return nil, err
	}
	if sum.TotalEarned, err = decimal.NewFromString(earned); err != nil {
		return nil, err
	}
	if sum.TotalUsed, err = decimal.NewFromString(used); err != nil {
		return nil, err
	}
	if sum.Balance, err = decimal.NewFromString(balance); err != nil {
		return nil, err
	}
	if sum.PendingCredits, err = decimal.NewFromString(pending); err != nil {
		return nil, err
	}

	if regYear.Valid {
		reg := &credits.Regularization{
			Year:          int(regYear.Int64),
			MonthsAccrued: int(regMonths.Int64),
			IsPending:     regPending.Int64 != 0,
		}
		if reg.Credits, err = decimal.NewFromString(regCredits.String); err != nil {
			return nil, err
		}
		if reg.RegularizationDate, err = calendar.ParseDate(regDate.String); err != nil {
			return nil, err
		}
		sum.Regularization = reg
	}
	return &sum, nil
}

func (s *session) SaveSummary(ctx context.Context, sum *credits.Summary) error {
	var regYear, regMonths, regPending any
	var regCredits, regDate any
	if reg := sum.Regularization; reg != nil {
		regYear, regMonths, regPending = reg.Year, reg.MonthsAccrued, boolInt(reg.IsPending)
		regCredits, regDate = reg.Credits.String(), reg.RegularizationDate.String()
	}
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO credit_summaries
			(employee_id, year, is_eligible, eligibility_date, monthly_rate,
			 total_earned, total_used, balance, pending_credits,
			 reg_year, reg_credits, reg_months_accrued, reg_date, reg_is_pending, updated_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT(employee_id, year) DO UPDATE SET
			is_eligible = excluded.is_eligible,
			eligibility_date = excluded.eligibility_date,
			monthly_rate = excluded.monthly_rate,
			total_earned = excluded.total_earned,
			total_used = excluded.total_used,
			balance = excluded.balance,
			pending_credits = excluded.pending_credits,
			reg_year = excluded.reg_year,
			reg_credits = excluded.reg_credits,
			reg_months_accrued = excluded.reg_months_accrued,
			reg_date = excluded.reg_date,
			reg_is_pending = excluded.reg_is_pending,
			updated_at = excluded.updated_at`,
		sum.EmployeeID, sum.Year, boolInt(sum.IsEligible), sum.EligibilityDate.String(),
		sum.MonthlyRate.String(), sum.TotalEarned.String(), sum.TotalUsed.String(),
		sum.Balance.String(), sum.PendingCredits.String(),
		regYear, regCredits, regMonths, regDate, regPending,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save summary: %w", err)
	}
	return nil
}

// =============================================================================
// EMPLOYEES
// =============================================================================

func (s *session) GetEmployee(ctx context.Context, id string) (*leave.Employee, error) {
	row := s.q.QueryRowContext(ctx, `
		SELECT id, name, email, campaign, hire_date, role, requires_tl_approval, created_at
		FROM employees WHERE id = ?`, id)

	var (
		e                 leave.Employee
		hireDate, created string
		role              string
		requiresTL        int
	)
	err := row.Scan(&e.ID, &e.Name, &e.Email, &e.Campaign, &hireDate, &role, &requiresTL, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, leave.ErrEmployeeNotFound
	}
	if err != nil {
		return nil, err
	}
	if e.HireDate, err = calendar.ParseDate(hireDate); err != nil {
		return nil, err
	}
	if e.CreatedAt, err = time.Parse(time.RFC3339, created); err != nil {
		return nil, err
	}
	e.Role = leave.Role(role)
	e.RequiresTLApproval = requiresTL != 0
	return &e, nil
}

// SaveEmployee upserts an employee projection record.
func (s *session) SaveEmployee(ctx context.Context, e leave.Employee) error {
	created := e.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO employees (id, name, email, campaign, hire_date, role, requires_tl_approval, created_at)
		VALUES (?,?,?,?,?,?,?,?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			email = excluded.email,
			campaign = excluded.campaign,
			hire_date = excluded.hire_date,
			role = excluded.role,
			requires_tl_approval = excluded.requires_tl_approval`,
		e.ID, e.Name, e.Email, e.Campaign, e.HireDate.String(), string(e.Role),
		boolInt(e.RequiresTLApproval), created.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to save employee: %w", err)
	}
	return nil
}

// =============================================================================
// ATTENDANCE - read-only provider plus exemptions written by approvals
// =============================================================================

// ActivePoints sums the employee's active, unexpired attendance points.
func (s *session) ActivePoints(ctx context.Context, employeeID string, asOf calendar.Date) (decimal.Decimal, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT points, expires_at FROM attendance_points
		WHERE employee_id = ? AND current_status = 'active'`, employeeID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to query attendance points: %w", err)
	}
	defer rows.Close()

	total := decimal.Zero
	for rows.Next() {
		var points string
		var expires sql.NullString
		if err := rows.Scan(&points, &expires); err != nil {
			return decimal.Zero, err
		}
		if expires.Valid {
			exp, err := time.Parse(time.RFC3339, expires.String)
			if err != nil {
				return decimal.Zero, err
			}
			if calendar.DateOf(exp).Before(asOf) {
				continue
			}
		}
		p, err := decimal.NewFromString(points)
		if err != nil {
			return decimal.Zero, err
		}
		total = total.Add(p)
	}
	return total, rows.Err()
}

// LastAbsenceDate returns the most recent whole- or half-day absence, or
// nil when none is recorded.
func (s *session) LastAbsenceDate(ctx context.Context, employeeID string) (*calendar.Date, error) {
	row := s.q.QueryRowContext(ctx, `
		SELECT shift_date FROM attendance_points
		WHERE employee_id = ? AND point_type IN ('whole_day_absence', 'half_day_absence')
		ORDER BY shift_date DESC LIMIT 1`, employeeID)

	var shiftDate string
	err := row.Scan(&shiftDate)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	d, err := calendar.ParseDate(shiftDate)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// InsertAttendancePoint records a collaborator-sourced point snapshot.
func (s *session) InsertAttendancePoint(ctx context.Context, p leave.AttendancePoint) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO attendance_points
			(id, employee_id, shift_date, point_type, points, expires_at, gbro_expires_at, current_status)
		VALUES (?,?,?,?,?,?,?,?)`,
		p.ID, p.EmployeeID, p.ShiftDate.String(), p.PointType, p.Points.String(),
		nullTime(p.ExpiresAt), nullTime(p.GBROExpiresAt), p.CurrentStatus)
	if err != nil {
		return fmt.Errorf("failed to insert attendance point: %w", err)
	}
	return nil
}

func (s *session) InsertExemptions(ctx context.Context, requestID string, dates []calendar.Date) error {
	now := time.Now().UTC().Format(time.RFC3339)
	for _, d := range dates {
		_, err := s.q.ExecContext(ctx, `
			INSERT OR IGNORE INTO attendance_exemptions (leave_request_id, exemption_date, created_at)
			VALUES (?,?,?)`, requestID, d.String(), now)
		if err != nil {
			return fmt.Errorf("failed to insert exemption: %w", err)
		}
	}
	return nil
}

func (s *session) DeleteExemptions(ctx context.Context, requestID string, dates []calendar.Date) error {
	if dates == nil {
		_, err := s.q.ExecContext(ctx,
			`DELETE FROM attendance_exemptions WHERE leave_request_id = ?`, requestID)
		return err
	}
	for _, d := range dates {
		_, err := s.q.ExecContext(ctx, `
			DELETE FROM attendance_exemptions WHERE leave_request_id = ? AND exemption_date = ?`,
			requestID, d.String())
		if err != nil {
			return err
		}
	}
	return nil
}

// ListExemptions returns the exempted dates for a request, ascending.
func (s *session) ListExemptions(ctx context.Context, requestID string) ([]calendar.Date, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT exemption_date FROM attendance_exemptions
		WHERE leave_request_id = ? ORDER BY exemption_date ASC`, requestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []calendar.Date
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		d, err := calendar.ParseDate(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// =============================================================================
// HELPERS
// =============================================================================

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}

func nullDate(d *calendar.Date) any {
	if d == nil {
		return nil
	}
	return d.String()
}

func nullDecimal(d *decimal.Decimal) any {
	if d == nil {
		return nil
	}
	return d.String()
}

func parseNullTime(v sql.NullString) (*time.Time, error) {
	if !v.Valid {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, v.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func parseNullDate(v sql.NullString) (*calendar.Date, error) {
	if !v.Valid {
		return nil, nil
	}
	d, err := calendar.ParseDate(v.String)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func parseNullDecimal(v sql.NullString) (*decimal.Decimal, error) {
	if !v.Valid {
		return nil, nil
	}
	d, err := decimal.NewFromString(v.String)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
