// Package memory provides an in-memory implementation of every store
// interface, for tests and development.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/warp/attendance-engine/attendance"
	"github.com/warp/attendance-engine/core"
	"github.com/warp/attendance-engine/roster"
	"github.com/warp/attendance-engine/workflow"
)

// =============================================================================
// MEMORY STORE - Four flat collections behind one RWMutex
// =============================================================================

// Store implements roster.Store, attendance.Store, and workflow.Store.
type Store struct {
	mu         sync.RWMutex
	employees  map[core.EmployeeID]roster.Employee
	users      map[core.UserID]roster.User
	attendance map[attendance.DayKey]string
	requests   map[core.RequestID]workflow.ChangeRequest
}

func New() *Store {
	return &Store{
		employees:  make(map[core.EmployeeID]roster.Employee),
		users:      make(map[core.UserID]roster.User),
		attendance: make(map[attendance.DayKey]string),
		requests:   make(map[core.RequestID]workflow.ChangeRequest),
	}
}

// =============================================================================
// ROSTER
// =============================================================================

func (s *Store) SaveEmployee(_ context.Context, e roster.Employee) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.employees[e.ID] = e
	return nil
}

func (s *Store) GetEmployee(_ context.Context, id core.EmployeeID) (*roster.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.employees[id]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (s *Store) ListEmployees(_ context.Context, f roster.Filter) ([]roster.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []roster.Employee
	for _, e := range s.employees {
		if roster.MatchesFilter(e, f) {
			result = append(result, e)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (s *Store) SaveUser(_ context.Context, u roster.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
	return nil
}

func (s *Store) GetUser(_ context.Context, id core.UserID) (*roster.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (s *Store) ListUsers(_ context.Context) ([]roster.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]roster.User, 0, len(s.users))
	for _, u := range s.users {
		result = append(result, u)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (s *Store) DeleteUser(_ context.Context, id core.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.users, id)
	return nil
}

// =============================================================================
// ATTENDANCE
// =============================================================================

func (s *Store) PutStatus(_ context.Context, key attendance.DayKey, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attendance[key] = status
	return nil
}

func (s *Store) GetStatus(_ context.Context, key attendance.DayKey) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.attendance[key], nil
}

func (s *Store) MonthStatuses(_ context.Context, employee core.EmployeeID, year int, month time.Month) (map[int]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make(map[int]string)
	for key, status := range s.attendance {
		if key.Employee == employee && key.Year == year && key.Month == month {
			result[key.Day] = status
		}
	}
	return result, nil
}

// =============================================================================
// WORKFLOW
// =============================================================================

func (s *Store) SaveRequest(_ context.Context, r workflow.ChangeRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests[r.ID] = r
	return nil
}

func (s *Store) GetRequest(_ context.Context, id core.RequestID) (*workflow.ChangeRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.requests[id]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (s *Store) ListRequests(_ context.Context, f workflow.Filter) ([]workflow.ChangeRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []workflow.ChangeRequest
	for _, r := range s.requests {
		if f.Matches(r) {
			result = append(result, r)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func (s *Store) DeleteRequests(_ context.Context, ids []core.RequestID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		delete(s.requests, id)
	}
	return nil
}
