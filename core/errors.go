/*
errors.go - Centralized error types for the attendance engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Domain packages return these; the HTTP layer maps them to status codes.

ERROR CATEGORIES:
  1. Authentication - login failures (never says whether the id or the secret was wrong)
  2. Authorization  - role/department scope violations
  3. Lifecycle      - unknown request id, transition out of a terminal state
  4. Invariants     - structural rules (the bootstrap MANAGER account)

NOT ERRORS:
  Lock and permission decisions are plain values. "You must file a request
  instead" is a normal branch, not an error path.

USAGE:
  if core.IsForbidden(err) {
      // 403
  }

SEE ALSO:
  - workflow/request.go: Returns lifecycle errors
  - roster/service.go: Returns authentication and invariant errors
  - api/handlers.go: Maps errors to HTTP status codes
*/
package core

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrAuthentication is returned on login failure. It deliberately covers
	// both "unknown id" and "wrong secret" so callers cannot probe for ids.
	ErrAuthentication = errors.New("authentication failed")

	// ErrForbidden is returned when a role or department scope rule is violated.
	ErrForbidden = errors.New("forbidden")

	// ErrNotFound is returned for operations on unknown ids.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyResolved is returned when a transition is attempted on a
	// request that is already APPROVED or REJECTED. Terminal means terminal.
	ErrAlreadyResolved = errors.New("request already resolved")

	// ErrInvariantViolation is returned when an operation would break a
	// structural rule, e.g. deleting the bootstrap MANAGER account.
	ErrInvariantViolation = errors.New("invariant violation")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ForbiddenError reports a scope violation on approve/reject or direct edit.
type ForbiddenError struct {
	Role       Role
	Department string
	Reason     string
}

func (e *ForbiddenError) Error() string {
	return fmt.Sprintf("forbidden: %s (role %s, department %q)", e.Reason, e.Role, e.Department)
}

func (e *ForbiddenError) Unwrap() error { return ErrForbidden }

// NotFoundError reports an operation against an unknown id.
type NotFoundError struct {
	Kind string // "request", "employee", "user"
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// AlreadyResolvedError reports a transition attempted on a terminal request.
type AlreadyResolvedError struct {
	RequestID RequestID
	Status    string // the terminal status the request is stuck in
}

func (e *AlreadyResolvedError) Error() string {
	return fmt.Sprintf("request %s already resolved as %s", e.RequestID, e.Status)
}

func (e *AlreadyResolvedError) Unwrap() error { return ErrAlreadyResolved }

// InvariantError reports a structural rule violation.
type InvariantError struct {
	Rule string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("invariant violation: %s", e.Rule)
}

func (e *InvariantError) Unwrap() error { return ErrInvariantViolation }

// =============================================================================
// ERROR HELPERS
// =============================================================================

func IsAuthentication(err error) bool { return errors.Is(err, ErrAuthentication) }
func IsForbidden(err error) bool      { return errors.Is(err, ErrForbidden) }
func IsNotFound(err error) bool       { return errors.Is(err, ErrNotFound) }
func IsAlreadyResolved(err error) bool {
	return errors.Is(err, ErrAlreadyResolved)
}
func IsInvariantViolation(err error) bool {
	return errors.Is(err, ErrInvariantViolation)
}

// IsClientError returns true if the error is the caller's fault rather than
// a storage failure. The HTTP layer uses this as a 4xx/5xx split.
func IsClientError(err error) bool {
	return IsAuthentication(err) ||
		IsForbidden(err) ||
		IsNotFound(err) ||
		IsAlreadyResolved(err) ||
		IsInvariantViolation(err)
}
