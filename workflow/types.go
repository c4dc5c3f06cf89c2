/*
Package workflow mediates out-of-window corrections: the change-request
queue, its state machine, and the apply-on-approve side effect into the
attendance ledger.

PURPOSE:
  When the edit lock closes a date, a STAFF or HEAD user files a
  ChangeRequest instead of writing. An approver (ADMIN anywhere, HEAD within
  its department) resolves it; approval writes the requested value into the
  ledger on the requester's behalf.

STATE MACHINE:
  PENDING -> APPROVED (terminal, applies the ledger write)
  PENDING -> REJECTED (terminal, no ledger write)
  Terminal requests leave the queue only through an explicit purge by the
  target employee; nothing expires on its own.

NO DE-DUPLICATION:
  Several PENDING requests may exist for the same (employee, date).
  Approving one does not invalidate its siblings - each resolves on its own
  and each approval overwrites the ledger again (last write wins).

SEE ALSO:
  - request.go: The Service implementing the transitions
  - attendance/ledger.go: SetStatusThen, the atomic apply-on-approve path
*/
package workflow

import (
	"context"
	"time"

	"github.com/warp/attendance-engine/core"
)

// =============================================================================
// CHANGE REQUEST
// =============================================================================

type RequestStatus string

const (
	StatusPending  RequestStatus = "PENDING"
	StatusApproved RequestStatus = "APPROVED"
	StatusRejected RequestStatus = "REJECTED"
)

// Terminal reports whether no further transition is possible.
func (s RequestStatus) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// ChangeRequest is a proposed correction to a locked attendance entry.
type ChangeRequest struct {
	ID             core.RequestID
	Employee       core.EmployeeID
	Year           int
	Month          time.Month
	Day            int
	RequestedValue string
	Reason         string
	Status         RequestStatus
	CreatedAt      time.Time
}

// =============================================================================
// STORE - Persistence contract
// =============================================================================

// Filter narrows a request listing. Zero value matches everything.
type Filter struct {
	Employee core.EmployeeID // empty = any employee
	Status   RequestStatus   // empty = any status
}

// Store persists change requests as a flat collection. The workflow owns it
// exclusively; nobody else writes requests.
type Store interface {
	// SaveRequest inserts or replaces by ID.
	SaveRequest(ctx context.Context, r ChangeRequest) error

	GetRequest(ctx context.Context, id core.RequestID) (*ChangeRequest, error)
	ListRequests(ctx context.Context, f Filter) ([]ChangeRequest, error)
	DeleteRequests(ctx context.Context, ids []core.RequestID) error
}

// Matches reports whether a request passes a filter. Shared by the store
// implementations so listing semantics stay identical.
func (f Filter) Matches(r ChangeRequest) bool {
	if f.Employee != "" && r.Employee != f.Employee {
		return false
	}
	if f.Status != "" && r.Status != f.Status {
		return false
	}
	return true
}
