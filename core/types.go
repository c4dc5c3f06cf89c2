/*
Package core provides the shared vocabulary of the attendance engine.

PURPOSE:
  This package contains the types every other package agrees on: roles,
  type-safe identifiers, and the error taxonomy. It has no behavior of its
  own beyond error classification.

KEY CONCEPTS IN THIS FILE (types.go):
  - Role: The four principal roles (MANAGER, ADMIN, HEAD, STAFF)
  - EmployeeID/UserID/RequestID: Type-safe identifiers

DESIGN PRINCIPLES:
  1. Type Safety: Strong typing for IDs prevents mixing employee/user/request IDs
  2. No dependencies: core imports nothing outside the standard library
  3. Permission outcomes are values, not errors (see attendance.Decide)

SEE ALSO:
  - errors.go: Error taxonomy
  - attendance/gate.go: How roles map to write permissions
*/
package core

// =============================================================================
// IDENTIFIERS
// =============================================================================

type EmployeeID string
type UserID string
type RequestID string

// =============================================================================
// ROLE - Login principal role
// =============================================================================

type Role string

const (
	// RoleManager administers user accounts. It has no attendance write
	// rights at all: the gate always answers DENIED for it.
	RoleManager Role = "MANAGER"

	// RoleAdmin has full override authority: any employee, any date,
	// locked or not.
	RoleAdmin Role = "ADMIN"

	// RoleHead approves and edits within its own department only.
	RoleHead Role = "HEAD"

	// RoleStaff edits its own record while the date is unlocked.
	RoleStaff Role = "STAFF"
)

// Valid reports whether r is one of the four known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleManager, RoleAdmin, RoleHead, RoleStaff:
		return true
	}
	return false
}
