/*
handlers.go - HTTP API handlers for the leave request engine

PURPOSE:
  Exposes the leave lifecycle via REST API. Handles HTTP request/response,
  JSON serialization and validation, and delegates to the leave service.

ENDPOINTS:
  Requests:
    POST   /api/requests                      Submit a leave request
    GET    /api/requests/{id}                 Get request with denied dates
    POST   /api/requests/{id}/tl-approve      Team lead endorsement
    POST   /api/requests/{id}/tl-deny         Team lead rejection
    POST   /api/requests/{id}/approve         Admin or HR approval
    POST   /api/requests/{id}/deny            Admin or HR denial
    POST   /api/requests/{id}/partial-deny    Deny a subset of days
    POST   /api/requests/{id}/force-approve   Super-admin override
    POST   /api/requests/{id}/short-notice-override  Suppress short-notice warning
    POST   /api/requests/{id}/cancel          Cancel pending or approved
    POST   /api/requests/{id}/adjust          Shrink around a worked day

  Employees:
    GET    /api/employees/{id}/requests       Request history
    GET    /api/employees/{id}/credits        Credit summary for a year
    GET    /api/employees/{id}/credits/preview  Credit-split preview

  Planning:
    GET    /api/conflicts                     Overlap check for a window
    GET    /api/suggestions                   Alternate window suggestions

ACTOR IDENTIFICATION:
  The upstream gateway authenticates and forwards identity as headers:
    X-Actor-ID:    employee identifier of the caller
    X-Actor-Role:  employee | team_lead | admin | hr | super_admin
  Mutating endpoints without these headers get 401.

ERROR HANDLING:
  Domain errors map to HTTP status by classification:
  - 400: validation errors, invalid input
  - 401: missing actor headers
  - 403: role not allowed for the action
  - 404: request/employee not found
  - 409: state conflicts (terminal state, gate unmet, stale version)
  - 500: everything else

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
  - leave/service.go: The domain logic behind every handler
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/warp/leave-engine/calendar"
	"github.com/warp/leave-engine/leave"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Service  *leave.Service
	Log      *zap.Logger
	validate *validator.Validate
}

// NewHandler creates a new handler around the leave service.
func NewHandler(svc *leave.Service, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{
		Service:  svc,
		Log:      log,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// actor is the authenticated caller forwarded by the gateway.
type actor struct {
	ID   string
	Role leave.Role
}

func (h *Handler) actorFrom(r *http.Request) (actor, bool) {
	id := r.Header.Get("X-Actor-ID")
	role := leave.Role(r.Header.Get("X-Actor-Role"))
	if id == "" || role == "" {
		return actor{}, false
	}
	return actor{ID: id, Role: role}, true
}

// =============================================================================
// REQUEST LIFECYCLE
// =============================================================================

// CreateRequest submits a new leave request.
// POST /api/requests
func (h *Handler) CreateRequest(w http.ResponseWriter, r *http.Request) {
	var body CreateRequestBody
	if !h.decode(w, r, &body) {
		return
	}
	start, err := calendar.ParseDate(body.StartDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid start_date (use YYYY-MM-DD)", err)
		return
	}
	end, err := calendar.ParseDate(body.EndDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid end_date (use YYYY-MM-DD)", err)
		return
	}

	result, err := h.Service.Create(r.Context(), leave.CreateInput{
		EmployeeID:  body.EmployeeID,
		Type:        leave.Type(body.LeaveType),
		StartDate:   start,
		EndDate:     end,
		Reason:      body.Reason,
		Campaign:    body.Campaign,
		DocumentRef: body.DocumentRef,
	})
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	advisories := result.Advisories
	if advisories == nil {
		advisories = []leave.Advisory{}
	}
	writeJSON(w, http.StatusCreated, CreateRequestResponse{
		Request:    toRequestDTO(result.Request),
		Advisories: advisories,
		Conflicts:  toConflictDTOs(result.Conflicts),
	})
}

// GetRequest returns a single request with its denied dates.
// GET /api/requests/{id}
func (h *Handler) GetRequest(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	req, err := h.Service.Get(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	denied, err := h.Service.DeniedDates(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, RequestDetailResponse{
		Request:     toRequestDTO(req),
		DeniedDates: toDeniedDateDTOs(denied),
	})
}

// ApproveTL records the team lead endorsement.
// POST /api/requests/{id}/tl-approve
func (h *Handler) ApproveTL(w http.ResponseWriter, r *http.Request) {
	act, ok := h.requireActor(w, r)
	if !ok {
		return
	}
	if act.Role != leave.RoleTeamLead && !act.Role.IsAdminRole() {
		writeError(w, http.StatusForbidden, "Role not allowed to endorse requests", nil)
		return
	}
	var body ReviewBody
	if !h.decode(w, r, &body) {
		return
	}
	req, err := h.Service.ApproveTL(r.Context(), chi.URLParam(r, "id"), body.Notes)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestDTO(req))
}

// DenyTL records a team lead rejection, denying the request outright.
// POST /api/requests/{id}/tl-deny
func (h *Handler) DenyTL(w http.ResponseWriter, r *http.Request) {
	act, ok := h.requireActor(w, r)
	if !ok {
		return
	}
	if act.Role != leave.RoleTeamLead && !act.Role.IsAdminRole() {
		writeError(w, http.StatusForbidden, "Role not allowed to reject requests", nil)
		return
	}
	var body ReviewBody
	if !h.decode(w, r, &body) {
		return
	}
	req, err := h.Service.DenyTL(r.Context(), chi.URLParam(r, "id"), body.Notes)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestDTO(req))
}

// Approve records an admin or HR approval; the request finalizes once
// both roles have approved.
// POST /api/requests/{id}/approve
func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	act, ok := h.requireActor(w, r)
	if !ok {
		return
	}
	var body ReviewBody
	if !h.decode(w, r, &body) {
		return
	}
	req, err := h.Service.Approve(r.Context(), chi.URLParam(r, "id"), act.Role, body.Notes)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestDTO(req))
}

// Deny denies a pending request.
// POST /api/requests/{id}/deny
func (h *Handler) Deny(w http.ResponseWriter, r *http.Request) {
	act, ok := h.requireActor(w, r)
	if !ok {
		return
	}
	var body ReviewBody
	if !h.decode(w, r, &body) {
		return
	}
	req, err := h.Service.Deny(r.Context(), chi.URLParam(r, "id"), act.Role, body.Notes)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestDTO(req))
}

// PartialDeny denies named working days and approves the rest.
// POST /api/requests/{id}/partial-deny
func (h *Handler) PartialDeny(w http.ResponseWriter, r *http.Request) {
	act, ok := h.requireActor(w, r)
	if !ok {
		return
	}
	var body PartialDenyBody
	if !h.decode(w, r, &body) {
		return
	}
	dates, err := parseDates(body.DeniedDates)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid denied date (use YYYY-MM-DD)", err)
		return
	}
	req, err := h.Service.PartialDeny(r.Context(), chi.URLParam(r, "id"),
		dates, body.DenialReason, body.Notes, act.ID, act.Role)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestDTO(req))
}

// ForceApprove finalizes a request regardless of pending gates.
// POST /api/requests/{id}/force-approve
func (h *Handler) ForceApprove(w http.ResponseWriter, r *http.Request) {
	act, ok := h.requireActor(w, r)
	if !ok {
		return
	}
	var body ForceApproveBody
	if !h.decode(w, r, &body) {
		return
	}
	dates, err := parseDates(body.DeniedDates)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid denied date (use YYYY-MM-DD)", err)
		return
	}
	req, err := h.Service.ForceApprove(r.Context(), leave.ForceApproveInput{
		RequestID:    chi.URLParam(r, "id"),
		Notes:        body.Notes,
		DeniedDates:  dates,
		DenialReason: body.DenialReason,
		ActorID:      act.ID,
		Role:         act.Role,
	})
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestDTO(req))
}

// OverrideShortNotice suppresses the short-notice warning on a pending
// request, recording the authorizing actor.
// POST /api/requests/{id}/short-notice-override
func (h *Handler) OverrideShortNotice(w http.ResponseWriter, r *http.Request) {
	act, ok := h.requireActor(w, r)
	if !ok {
		return
	}
	req, err := h.Service.OverrideShortNotice(r.Context(), chi.URLParam(r, "id"), act.ID, act.Role)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestDTO(req))
}

// Cancel cancels a pending or approved request.
// POST /api/requests/{id}/cancel
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	act, ok := h.requireActor(w, r)
	if !ok {
		return
	}
	var body CancelBody
	if !h.decode(w, r, &body) {
		return
	}
	req, err := h.Service.Cancel(r.Context(), chi.URLParam(r, "id"), body.Reason, act.ID, act.Role)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestDTO(req))
}

// Adjust shrinks an approved request around a day the employee worked.
// POST /api/requests/{id}/adjust
func (h *Handler) Adjust(w http.ResponseWriter, r *http.Request) {
	act, ok := h.requireActor(w, r)
	if !ok {
		return
	}
	var body AdjustBody
	if !h.decode(w, r, &body) {
		return
	}
	workDate, err := calendar.ParseDate(body.WorkDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid work_date format (use YYYY-MM-DD)", err)
		return
	}
	req, err := h.Service.AdjustForWorkDay(r.Context(), chi.URLParam(r, "id"),
		workDate, leave.AdjustMode(body.Mode), act.ID, act.Role)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestDTO(req))
}

// =============================================================================
// EMPLOYEE VIEWS
// =============================================================================

// ListEmployeeRequests returns the employee's requests, optionally
// filtered by ?status=pending,approved.
// GET /api/employees/{id}/requests
func (h *Handler) ListEmployeeRequests(w http.ResponseWriter, r *http.Request) {
	employeeID := chi.URLParam(r, "id")
	statuses := parseStatuses(r.URL.Query().Get("status"))

	requests, err := h.Service.List(r.Context(), employeeID, statuses)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	dtos := make([]RequestDTO, len(requests))
	for i := range requests {
		dtos[i] = toRequestDTO(&requests[i])
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetCredits returns the employee's credit summary for a year
// (?year=2026, defaults to the current year).
// GET /api/employees/{id}/credits
func (h *Handler) GetCredits(w http.ResponseWriter, r *http.Request) {
	employeeID := chi.URLParam(r, "id")
	year := time.Now().UTC().Year()
	if raw := r.URL.Query().Get("year"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid year", err)
			return
		}
		year = v
	}
	summary, err := h.Service.Summary(r.Context(), employeeID, year)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSummaryDTO(summary))
}

// PreviewCredits shows how a prospective request would be funded without
// creating anything.
// GET /api/employees/{id}/credits/preview?leave_type=VL&start_date=...&end_date=...
func (h *Handler) PreviewCredits(w http.ResponseWriter, r *http.Request) {
	employeeID := chi.URLParam(r, "id")
	q := r.URL.Query()

	start, err := calendar.ParseDate(q.Get("start_date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid start_date (use YYYY-MM-DD)", err)
		return
	}
	end, err := calendar.ParseDate(q.Get("end_date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid end_date (use YYYY-MM-DD)", err)
		return
	}
	preview, err := h.Service.PreviewCreditSplit(r.Context(), employeeID,
		leave.Type(q.Get("leave_type")), start, end)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPreviewDTO(preview))
}

// =============================================================================
// PLANNING
// =============================================================================

// CheckConflicts lists overlapping requests for a prospective window.
// GET /api/conflicts?campaign=...&employee_id=...&leave_type=VL&start_date=...&end_date=...
func (h *Handler) CheckConflicts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	start, err := calendar.ParseDate(q.Get("start_date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid start_date (use YYYY-MM-DD)", err)
		return
	}
	end, err := calendar.ParseDate(q.Get("end_date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid end_date (use YYYY-MM-DD)", err)
		return
	}
	conflicts, err := h.Service.CheckConflicts(r.Context(), q.Get("campaign"),
		start, end, leave.Type(q.Get("leave_type")), q.Get("employee_id"))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toConflictDTOs(conflicts))
}

// SuggestDates proposes up to three alternate windows with fewer conflicts.
// GET /api/suggestions?campaign=...&employee_id=...&leave_type=VL&start_date=...&end_date=...
func (h *Handler) SuggestDates(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	start, err := calendar.ParseDate(q.Get("start_date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid start_date (use YYYY-MM-DD)", err)
		return
	}
	end, err := calendar.ParseDate(q.Get("end_date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid end_date (use YYYY-MM-DD)", err)
		return
	}
	suggestions, err := h.Service.SuggestDates(r.Context(), q.Get("campaign"),
		start, end, leave.Type(q.Get("leave_type")), q.Get("employee_id"))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSuggestionDTOs(suggestions))
}

// Healthz reports liveness.
// GET /healthz
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// HELPERS
// =============================================================================

func (h *Handler) requireActor(w http.ResponseWriter, r *http.Request) (actor, bool) {
	act, ok := h.actorFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Missing X-Actor-ID / X-Actor-Role headers", nil)
		return actor{}, false
	}
	return act, true
}

// decode parses and validates the JSON body, writing a 400 on failure.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Validation failed", err)
		return false
	}
	return true
}

func (h *Handler) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case leave.IsValidation(err):
		writeError(w, http.StatusBadRequest, "Validation failed", err)
	case errors.Is(err, leave.ErrRoleNotAllowed):
		writeError(w, http.StatusForbidden, "Role not allowed for this action", err)
	case leave.IsNotFound(err):
		writeError(w, http.StatusNotFound, "Not found", err)
	case leave.IsStateConflict(err), leave.IsRetryable(err):
		writeError(w, http.StatusConflict, "Request state conflict", err)
	default:
		h.Log.Error("unhandled API error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Internal error", err)
	}
}

func parseDates(raw []string) ([]calendar.Date, error) {
	out := make([]calendar.Date, 0, len(raw))
	for _, s := range raw {
		d, err := calendar.ParseDate(s)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

func parseStatuses(raw string) []leave.Status {
	if raw == "" {
		return nil
	}
	var out []leave.Status
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, leave.Status(s))
		}
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

func fmtTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	v := t.UTC().Format(timeLayout)
	return &v
}
