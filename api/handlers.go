/*
handlers.go - HTTP API handlers for the attendance engine

PURPOSE:
  Exposes the engine via REST. Handles HTTP request/response, JSON
  serialization, and delegates to domain logic.

ENDPOINTS:
  Session:
    POST   /api/login                       Verify credentials, issue a token

  Employees:
    GET    /api/employees                   List (role-scoped, filterable)
    POST   /api/employees                   Create (ADMIN, MANAGER)
    GET    /api/employees/{id}/month        Month grid data
    GET    /api/employees/{id}/tally        Monthly tally

  Attendance:
    PUT    /api/attendance                  Gate-checked status write

  Requests:
    POST   /api/requests                    Submit a change request
    GET    /api/requests/pending            Approver queue
    POST   /api/requests/{id}/approve       Approve (applies to ledger)
    POST   /api/requests/{id}/reject        Reject
    DELETE /api/requests/resolved           Purge the caller's resolved ones

  Notifications:
    GET    /api/notifications               Badge counts

  Users (MANAGER only):
    GET    /api/users
    POST   /api/users
    DELETE /api/users/{id}

REQUEST FLOW:
  1. Middleware authenticates and stores the Principal in context
  2. Handler parses input
  3. The permission gate (for writes) decides the branch
  4. Domain logic runs; errors map to status codes in one place

WRITE DECISIONS:
  PUT /api/attendance answers with the gate's decision. DIRECT_EDIT writes
  and returns 200. REQUEST_REQUIRED returns 409 with the decision so the
  client submits a change request instead. DENIED returns 403.

SEE ALSO:
  - dto.go: Wire types and error mapping
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/warp/attendance-engine/attendance"
	"github.com/warp/attendance-engine/core"
	"github.com/warp/attendance-engine/roster"
	"github.com/warp/attendance-engine/workflow"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Roster   *roster.Service
	Ledger   *attendance.Ledger
	Workflow *workflow.Service

	JWTSecret []byte
	TokenTTL  time.Duration

	// Now is injectable so the lock policy is deterministic in tests.
	Now func() time.Time
}

// NewHandler wires a handler over the three services.
func NewHandler(rosterSvc *roster.Service, ledger *attendance.Ledger, wf *workflow.Service, jwtSecret []byte) *Handler {
	return &Handler{
		Roster:    rosterSvc,
		Ledger:    ledger,
		Workflow:  wf,
		JWTSecret: jwtSecret,
		TokenTTL:  12 * time.Hour,
		Now:       time.Now,
	}
}

// =============================================================================
// SESSION
// =============================================================================

// Login verifies credentials and issues a session token.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	u, err := h.Roster.VerifyCredential(r.Context(), core.UserID(req.ID), req.Password)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	p := Principal{ID: u.ID, Role: u.Role, Department: u.Department}
	token, err := issueToken(h.JWTSecret, p, h.TokenTTL, h.Now())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to issue token", err)
		return
	}

	writeJSON(w, http.StatusOK, LoginResponse{
		Token:      token,
		ID:         string(u.ID),
		Role:       string(u.Role),
		Department: u.Department,
	})
}

// =============================================================================
// EMPLOYEES
// =============================================================================

// ListEmployees returns the roster as the caller is allowed to see it.
// ADMIN may filter by department and name; HEAD is pinned to its own
// department regardless of the filter.
func (h *Handler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	p := principalFrom(r.Context())
	f := roster.Filter{
		Department:   r.URL.Query().Get("department"),
		NameContains: r.URL.Query().Get("q"),
	}

	viewer := &roster.User{ID: p.ID, Role: p.Role, Department: p.Department}
	employees, err := h.Roster.VisibleEmployees(r.Context(), viewer, f)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list employees", err)
		return
	}

	dtos := make([]EmployeeDTO, len(employees))
	for i, e := range employees {
		dtos[i] = toEmployeeDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateEmployee adds a roster entry. ADMIN and MANAGER only.
func (h *Handler) CreateEmployee(w http.ResponseWriter, r *http.Request) {
	p := principalFrom(r.Context())
	if p.Role != core.RoleAdmin && p.Role != core.RoleManager {
		writeError(w, http.StatusForbidden, "role cannot create employees", nil)
		return
	}

	var req CreateEmployeeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	e := roster.Employee{
		ID:         core.EmployeeID(req.ID),
		Name:       req.Name,
		Department: req.Department,
		Position:   req.Position,
	}
	if err := h.Roster.CreateEmployee(r.Context(), e); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toEmployeeDTO(e))
}

// GetMonth returns the day->status map for one employee-month. Reads
// follow the same visibility as the listing: STAFF sees only its own
// record, HEAD only its department.
func (h *Handler) GetMonth(w http.ResponseWriter, r *http.Request) {
	employeeID := core.EmployeeID(chi.URLParam(r, "id"))
	year, month, ok := yearMonthParams(w, r)
	if !ok {
		return
	}
	if !h.requireScope(w, r, employeeID) {
		return
	}

	statuses, err := h.Ledger.Month(r.Context(), employeeID, year, month)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load month", err)
		return
	}
	writeJSON(w, http.StatusOK, MonthDTO{
		EmployeeID: string(employeeID),
		Year:       year,
		Month:      int(month),
		Days:       attendance.DaysInMonth(year, month),
		Statuses:   statuses,
	})
}

// GetTally returns the monthly tally for one employee.
func (h *Handler) GetTally(w http.ResponseWriter, r *http.Request) {
	employeeID := core.EmployeeID(chi.URLParam(r, "id"))
	year, month, ok := yearMonthParams(w, r)
	if !ok {
		return
	}
	if !h.requireScope(w, r, employeeID) {
		return
	}

	tally, err := h.Ledger.MonthlyTally(r.Context(), employeeID, year, month)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to compute tally", err)
		return
	}
	writeJSON(w, http.StatusOK, TallyDTO{
		Present:      tally.Present,
		Leave:        tally.Leave,
		Absent:       tally.Absent,
		PresenceRate: tally.PresenceRate.StringFixed(4),
	})
}

// =============================================================================
// ATTENDANCE WRITES
// =============================================================================

// SetStatus runs the permission gate and, when allowed, writes directly to
// the ledger.
func (h *Handler) SetStatus(w http.ResponseWriter, r *http.Request) {
	p := principalFrom(r.Context())

	var req SetStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	key := attendance.DayKey{
		Year:     req.Year,
		Month:    time.Month(req.Month),
		Day:      req.Day,
		Employee: core.EmployeeID(req.EmployeeID),
	}
	if !key.Valid() {
		writeError(w, http.StatusBadRequest, "invalid attendance key", nil)
		return
	}

	inScope, err := h.inScope(r, p, key.Employee)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to resolve employee", err)
		return
	}

	locked := attendance.KeyLocked(key, h.Now())
	switch decision := attendance.Decide(p.Role, locked, inScope); decision {
	case attendance.DirectEdit:
		if err := h.Ledger.SetStatus(r.Context(), key, req.Status); err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, SetStatusResponse{Decision: string(decision), Status: req.Status})
	case attendance.RequestRequired:
		writeJSON(w, http.StatusConflict, SetStatusResponse{Decision: string(decision)})
	default:
		writeError(w, http.StatusForbidden, "attendance write denied", nil)
	}
}

// requireScope answers 403 and returns false when the target employee is
// outside the caller's visibility.
func (h *Handler) requireScope(w http.ResponseWriter, r *http.Request, employee core.EmployeeID) bool {
	p := principalFrom(r.Context())
	ok, err := h.inScope(r, p, employee)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to resolve employee", err)
		return false
	}
	if !ok {
		writeError(w, http.StatusForbidden, "target employee out of scope", nil)
		return false
	}
	return true
}

// inScope reports whether the target employee is the caller's own record or
// inside the caller's department. ADMIN and MANAGER don't use scope.
func (h *Handler) inScope(r *http.Request, p Principal, employee core.EmployeeID) (bool, error) {
	switch p.Role {
	case core.RoleAdmin, core.RoleManager:
		return true, nil
	case core.RoleHead:
		e, err := h.Roster.GetEmployee(r.Context(), employee)
		if err != nil {
			return false, err
		}
		return e != nil && e.Department == p.Department, nil
	default:
		return string(employee) == string(p.ID), nil
	}
}

// =============================================================================
// CHANGE REQUESTS
// =============================================================================

// SubmitRequest files a change request for a locked date.
func (h *Handler) SubmitRequest(w http.ResponseWriter, r *http.Request) {
	p := principalFrom(r.Context())
	if p.Role == core.RoleManager {
		writeError(w, http.StatusForbidden, "role cannot submit change requests", nil)
		return
	}

	var req SubmitRequestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	employee := core.EmployeeID(req.EmployeeID)
	if employee == "" {
		employee = core.EmployeeID(p.ID)
	}

	inScope, err := h.inScope(r, p, employee)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to resolve employee", err)
		return
	}
	if !inScope {
		writeError(w, http.StatusForbidden, "target employee out of scope", nil)
		return
	}

	cr, err := h.Workflow.Submit(r.Context(), employee, req.Year, time.Month(req.Month), req.Day, req.RequestedValue, req.Reason)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toChangeRequestDTO(*cr))
}

// ListPendingRequests returns the approver's queue.
func (h *Handler) ListPendingRequests(w http.ResponseWriter, r *http.Request) {
	p := principalFrom(r.Context())
	pending, err := h.Workflow.PendingFor(r.Context(), p.Role, p.Department)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list pending requests", err)
		return
	}
	writeJSON(w, http.StatusOK, toChangeRequestDTOs(pending))
}

// ApproveRequest resolves a request and applies its value to the ledger.
func (h *Handler) ApproveRequest(w http.ResponseWriter, r *http.Request) {
	p := principalFrom(r.Context())
	id := core.RequestID(chi.URLParam(r, "id"))

	cr, err := h.Workflow.Approve(r.Context(), id, p.Role, p.Department)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toChangeRequestDTO(*cr))
}

// RejectRequest resolves a request without a ledger write.
func (h *Handler) RejectRequest(w http.ResponseWriter, r *http.Request) {
	p := principalFrom(r.Context())
	id := core.RequestID(chi.URLParam(r, "id"))

	cr, err := h.Workflow.Reject(r.Context(), id, p.Role, p.Department)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toChangeRequestDTO(*cr))
}

// PurgeResolved clears the caller's own resolved requests.
func (h *Handler) PurgeResolved(w http.ResponseWriter, r *http.Request) {
	p := principalFrom(r.Context())
	n, err := h.Workflow.PurgeResolved(r.Context(), core.EmployeeID(p.ID))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to purge requests", err)
		return
	}
	writeJSON(w, http.StatusOK, PurgeResponse{Purged: n})
}

// Notifications returns the caller's badge counts.
func (h *Handler) Notifications(w http.ResponseWriter, r *http.Request) {
	p := principalFrom(r.Context())
	counts, err := h.Workflow.Notifications(r.Context(), p.ID, p.Role, p.Department)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to compute notifications", err)
		return
	}
	writeJSON(w, http.StatusOK, NotificationsDTO{
		ActionRequired: counts.ActionRequired,
		Inbox:          counts.Inbox,
	})
}

// =============================================================================
// USER ADMINISTRATION (MANAGER only)
// =============================================================================

func (h *Handler) requireManager(w http.ResponseWriter, r *http.Request) bool {
	if principalFrom(r.Context()).Role != core.RoleManager {
		writeError(w, http.StatusForbidden, "user administration requires the MANAGER role", nil)
		return false
	}
	return true
}

// ListUsers returns all login accounts.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	if !h.requireManager(w, r) {
		return
	}
	users, err := h.Roster.ListUsers(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list users", err)
		return
	}
	dtos := make([]UserDTO, len(users))
	for i, u := range users {
		dtos[i] = toUserDTO(u)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateUser creates a login account.
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	if !h.requireManager(w, r) {
		return
	}
	var req CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	u, err := h.Roster.CreateUser(r.Context(), core.UserID(req.ID), req.Password, core.Role(req.Role), req.Department)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toUserDTO(*u))
}

// DeleteUser removes a login account. Deleting the bootstrap MANAGER
// account answers 409 and changes nothing.
func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	if !h.requireManager(w, r) {
		return
	}
	if err := h.Roster.DeleteUser(r.Context(), core.UserID(chi.URLParam(r, "id"))); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// PARAM HELPERS
// =============================================================================

func yearMonthParams(w http.ResponseWriter, r *http.Request) (int, time.Month, bool) {
	year, err := strconv.Atoi(r.URL.Query().Get("year"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid year", err)
		return 0, 0, false
	}
	m, err := strconv.Atoi(r.URL.Query().Get("month"))
	if err != nil || m < 1 || m > 12 {
		writeError(w, http.StatusBadRequest, "invalid month", err)
		return 0, 0, false
	}
	return year, time.Month(m), true
}
