/*
request.go - Change-request lifecycle

PURPOSE:
  Implements the transitions of the request state machine and the approval
  side effect into the attendance ledger.

PER-REQUEST SERIALIZATION:
  Approve and Reject are check-then-act: load, verify PENDING, write the
  terminal status. Two resolvers racing on the same id must not both pass
  the PENDING check, or the loser would overwrite a terminal state. The
  service keeps a mutex per request id and holds it across the whole
  resolution; the second resolver re-reads under the lock and gets
  AlreadyResolvedError.

APPROVAL ORDERING:
  Approve writes the requested value into the ledger FIRST and flips the
  request to APPROVED second, both under the ledger's per-key lock
  (attendance.SetStatusThen). A reader can therefore never observe an
  APPROVED request next to a stale ledger value. If the status flip fails
  the request stays PENDING with the value already applied; re-approving
  rewrites the same value, so the failure mode is benign. The request lock
  is always taken before the key lock, never the other way around.

SCOPING:
  HEAD may only resolve requests whose employee is in its own department,
  resolved through the roster at approval time. A request pointing at a
  deleted employee is an orphan: invisible to HEAD, still resolvable by
  ADMIN, never a fatal error.

SEE ALSO:
  - types.go: ChangeRequest and the Store contract
  - notify.go: Badge and inbox counts derived from this queue
*/
package workflow

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/warp/attendance-engine/attendance"
	"github.com/warp/attendance-engine/core"
	"github.com/warp/attendance-engine/roster"
)

// Service runs the change-request lifecycle over a Store, the attendance
// ledger, and the roster (for department scoping).
type Service struct {
	store  Store
	ledger *attendance.Ledger
	roster roster.Store

	// resolutions serializes Approve/Reject per request id.
	resolutions requestMutex

	// Now is injectable for deterministic tests.
	Now func() time.Time
}

func NewService(store Store, ledger *attendance.Ledger, rosterStore roster.Store) *Service {
	return &Service{store: store, ledger: ledger, roster: rosterStore, Now: time.Now}
}

// =============================================================================
// SUBMIT
// =============================================================================

// Submit files a new PENDING request. It never de-duplicates: a second
// submission for the same (employee, date) coexists with the first.
func (s *Service) Submit(ctx context.Context, employee core.EmployeeID, year int, month time.Month, day int, requestedValue, reason string) (*ChangeRequest, error) {
	key := attendance.DayKey{Year: year, Month: month, Day: day, Employee: employee}
	if !key.Valid() {
		return nil, &core.InvariantError{Rule: fmt.Sprintf("invalid request target %s", key)}
	}

	r := ChangeRequest{
		ID:             core.RequestID(uuid.NewString()),
		Employee:       employee,
		Year:           year,
		Month:          month,
		Day:            day,
		RequestedValue: requestedValue,
		Reason:         reason,
		Status:         StatusPending,
		CreatedAt:      s.Now(),
	}
	if err := s.store.SaveRequest(ctx, r); err != nil {
		return nil, fmt.Errorf("save request: %w", err)
	}
	return &r, nil
}

// =============================================================================
// APPROVE / REJECT
// =============================================================================

// Approve resolves a PENDING request and applies its value to the ledger.
func (s *Service) Approve(ctx context.Context, id core.RequestID, approverRole core.Role, approverDept string) (*ChangeRequest, error) {
	unlock := s.resolutions.lock(id)
	defer unlock()

	r, err := s.guardResolution(ctx, id, approverRole, approverDept)
	if err != nil {
		return nil, err
	}

	key := attendance.DayKey{Year: r.Year, Month: r.Month, Day: r.Day, Employee: r.Employee}
	err = s.ledger.SetStatusThen(ctx, key, r.RequestedValue, func() error {
		r.Status = StatusApproved
		return s.store.SaveRequest(ctx, *r)
	})
	if err != nil {
		return nil, fmt.Errorf("approve request %s: %w", id, err)
	}
	return r, nil
}

// Reject resolves a PENDING request without touching the ledger.
func (s *Service) Reject(ctx context.Context, id core.RequestID, approverRole core.Role, approverDept string) (*ChangeRequest, error) {
	unlock := s.resolutions.lock(id)
	defer unlock()

	r, err := s.guardResolution(ctx, id, approverRole, approverDept)
	if err != nil {
		return nil, err
	}

	r.Status = StatusRejected
	if err := s.store.SaveRequest(ctx, *r); err != nil {
		return nil, fmt.Errorf("reject request %s: %w", id, err)
	}
	return r, nil
}

// guardResolution runs the shared approve/reject checks: unknown id first,
// then terminal state, then department scope. Callers hold the request's
// resolution lock, so a PENDING result stays PENDING until they write.
func (s *Service) guardResolution(ctx context.Context, id core.RequestID, approverRole core.Role, approverDept string) (*ChangeRequest, error) {
	r, err := s.store.GetRequest(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load request: %w", err)
	}
	if r == nil {
		return nil, &core.NotFoundError{Kind: "request", ID: string(id)}
	}
	if r.Status.Terminal() {
		return nil, &core.AlreadyResolvedError{RequestID: r.ID, Status: string(r.Status)}
	}

	switch approverRole {
	case core.RoleAdmin:
		// Full authority, department-agnostic.
	case core.RoleHead:
		dept, ok, err := s.employeeDept(ctx, r.Employee)
		if err != nil {
			return nil, err
		}
		if !ok || dept != approverDept {
			return nil, &core.ForbiddenError{
				Role:       approverRole,
				Department: approverDept,
				Reason:     fmt.Sprintf("request %s targets an employee outside this department", id),
			}
		}
	default:
		return nil, &core.ForbiddenError{
			Role:   approverRole,
			Reason: "role cannot resolve change requests",
		}
	}
	return r, nil
}

// employeeDept resolves an employee's department. ok is false for orphaned
// requests whose employee no longer exists.
func (s *Service) employeeDept(ctx context.Context, id core.EmployeeID) (string, bool, error) {
	e, err := s.roster.GetEmployee(ctx, id)
	if err != nil {
		return "", false, fmt.Errorf("load employee: %w", err)
	}
	if e == nil {
		return "", false, nil
	}
	return e.Department, true, nil
}

// =============================================================================
// PURGE
// =============================================================================

// PurgeResolved deletes every terminal request belonging to an employee.
// PENDING requests are untouched. This is the employee's explicit "clear my
// inbox"; nothing else ever removes a request.
func (s *Service) PurgeResolved(ctx context.Context, employee core.EmployeeID) (int, error) {
	all, err := s.store.ListRequests(ctx, Filter{Employee: employee})
	if err != nil {
		return 0, fmt.Errorf("list requests: %w", err)
	}
	var ids []core.RequestID
	for _, r := range all {
		if r.Status.Terminal() {
			ids = append(ids, r.ID)
		}
	}
	if len(ids) == 0 {
		return 0, nil
	}
	if err := s.store.DeleteRequests(ctx, ids); err != nil {
		return 0, fmt.Errorf("delete requests: %w", err)
	}
	return len(ids), nil
}

// =============================================================================
// REQUEST MUTEX - Per-request mutual exclusion
// =============================================================================

// requestMutex hands out one mutex per request id. Entries are never
// evicted; the working set is bounded by the number of requests resolved
// over the process lifetime.
type requestMutex struct {
	mu    sync.Mutex
	locks map[core.RequestID]*sync.Mutex
}

func (rm *requestMutex) lock(id core.RequestID) (unlock func()) {
	rm.mu.Lock()
	if rm.locks == nil {
		rm.locks = make(map[core.RequestID]*sync.Mutex)
	}
	m, ok := rm.locks[id]
	if !ok {
		m = &sync.Mutex{}
		rm.locks[id] = m
	}
	rm.mu.Unlock()

	m.Lock()
	return m.Unlock
}

// =============================================================================
// VISIBILITY
// =============================================================================

// PendingFor returns the PENDING requests a viewer may act on: all of them
// for ADMIN, the viewer's department for HEAD, none for anyone else.
// Orphaned requests are skipped for HEAD rather than treated as errors.
func (s *Service) PendingFor(ctx context.Context, viewerRole core.Role, viewerDept string) ([]ChangeRequest, error) {
	switch viewerRole {
	case core.RoleAdmin, core.RoleHead:
	default:
		return nil, nil
	}

	pending, err := s.store.ListRequests(ctx, Filter{Status: StatusPending})
	if err != nil {
		return nil, fmt.Errorf("list pending: %w", err)
	}
	if viewerRole == core.RoleAdmin {
		return pending, nil
	}

	var scoped []ChangeRequest
	for _, r := range pending {
		dept, ok, err := s.employeeDept(ctx, r.Employee)
		if err != nil {
			return nil, err
		}
		if ok && dept == viewerDept {
			scoped = append(scoped, r)
		}
	}
	return scoped, nil
}
