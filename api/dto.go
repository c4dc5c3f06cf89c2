/*
dto.go - Request/response data structures and JSON helpers

PURPOSE:
  Wire types for the REST API plus the shared writeJSON/writeError helpers
  and the one place errors are mapped to HTTP status codes.
*/
package api

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/warp/attendance-engine/core"
	"github.com/warp/attendance-engine/roster"
	"github.com/warp/attendance-engine/workflow"
)

// =============================================================================
// REQUESTS
// =============================================================================

type LoginRequest struct {
	ID       string `json:"id"`
	Password string `json:"password"`
}

type CreateEmployeeRequest struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Department string `json:"department"`
	Position   string `json:"position"`
}

type CreateUserRequest struct {
	ID         string `json:"id"`
	Password   string `json:"password"`
	Role       string `json:"role"`
	Department string `json:"department,omitempty"`
}

type SetStatusRequest struct {
	EmployeeID string `json:"employee_id"`
	Year       int    `json:"year"`
	Month      int    `json:"month"` // calendar month, 1-12
	Day        int    `json:"day"`
	Status     string `json:"status"`
}

type SubmitRequestRequest struct {
	EmployeeID     string `json:"employee_id,omitempty"` // defaults to the caller
	Year           int    `json:"year"`
	Month          int    `json:"month"`
	Day            int    `json:"day"`
	RequestedValue string `json:"requested_value"`
	Reason         string `json:"reason"`
}

// =============================================================================
// RESPONSES
// =============================================================================

type LoginResponse struct {
	Token      string `json:"token"`
	ID         string `json:"id"`
	Role       string `json:"role"`
	Department string `json:"department,omitempty"`
}

type EmployeeDTO struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Department string `json:"department"`
	Position   string `json:"position"`
}

type UserDTO struct {
	ID         string `json:"id"`
	Role       string `json:"role"`
	Department string `json:"department,omitempty"`
	CreatedAt  string `json:"created_at"`
}

type MonthDTO struct {
	EmployeeID string         `json:"employee_id"`
	Year       int            `json:"year"`
	Month      int            `json:"month"`
	Days       int            `json:"days"`
	Statuses   map[int]string `json:"statuses"`
}

type TallyDTO struct {
	Present      int    `json:"present"`
	Leave        int    `json:"leave"`
	Absent       int    `json:"absent"`
	PresenceRate string `json:"presence_rate"`
}

type SetStatusResponse struct {
	Decision string `json:"decision"`
	Status   string `json:"status,omitempty"`
}

type ChangeRequestDTO struct {
	ID             string `json:"id"`
	EmployeeID     string `json:"employee_id"`
	Year           int    `json:"year"`
	Month          int    `json:"month"`
	Day            int    `json:"day"`
	RequestedValue string `json:"requested_value"`
	Reason         string `json:"reason"`
	Status         string `json:"status"`
	CreatedAt      string `json:"created_at"`
}

type NotificationsDTO struct {
	ActionRequired int `json:"action_required"`
	Inbox          int `json:"inbox"`
}

type PurgeResponse struct {
	Purged int `json:"purged"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toEmployeeDTO(e roster.Employee) EmployeeDTO {
	return EmployeeDTO{
		ID:         string(e.ID),
		Name:       e.Name,
		Department: e.Department,
		Position:   e.Position,
	}
}

func toUserDTO(u roster.User) UserDTO {
	return UserDTO{
		ID:         string(u.ID),
		Role:       string(u.Role),
		Department: u.Department,
		CreatedAt:  u.CreatedAt.Format(time.RFC3339),
	}
}

func toChangeRequestDTO(r workflow.ChangeRequest) ChangeRequestDTO {
	return ChangeRequestDTO{
		ID:             string(r.ID),
		EmployeeID:     string(r.Employee),
		Year:           r.Year,
		Month:          int(r.Month),
		Day:            r.Day,
		RequestedValue: r.RequestedValue,
		Reason:         r.Reason,
		Status:         string(r.Status),
		CreatedAt:      r.CreatedAt.Format(time.RFC3339),
	}
}

func toChangeRequestDTOs(rs []workflow.ChangeRequest) []ChangeRequestDTO {
	dtos := make([]ChangeRequestDTO, len(rs))
	for i, r := range rs {
		dtos[i] = toChangeRequestDTO(r)
	}
	return dtos
}

// =============================================================================
// JSON HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string, err error) {
	if err != nil && status >= http.StatusInternalServerError {
		log.Printf("%s: %v", msg, err)
	}
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// writeDomainError maps the core error taxonomy to HTTP status codes.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case core.IsAuthentication(err):
		writeError(w, http.StatusUnauthorized, err.Error(), nil)
	case core.IsForbidden(err):
		writeError(w, http.StatusForbidden, err.Error(), nil)
	case core.IsNotFound(err):
		writeError(w, http.StatusNotFound, err.Error(), nil)
	case core.IsAlreadyResolved(err):
		writeError(w, http.StatusConflict, err.Error(), nil)
	case core.IsInvariantViolation(err):
		writeError(w, http.StatusConflict, err.Error(), nil)
	default:
		writeError(w, http.StatusInternalServerError, "internal error", err)
	}
}
