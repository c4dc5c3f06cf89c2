/*
Package roster holds the reference data of the attendance engine: the
employees whose attendance is tracked, and the users who log in to track it.

PURPOSE:
  Read-mostly reference data plus the two pieces of behavior attached to it:
  credential verification and the bootstrap-account invariant.

EMPLOYEE vs USER:
  An Employee is a row on the attendance grid. A User is a login principal.
  They may share an id (a STAFF member editing their own record) but neither
  requires the other: STAFF employees need no login to exist, and the
  bootstrap MANAGER account corresponds to no employee at all.

BOOTSTRAP INVARIANT:
  Exactly one MANAGER-role account must always exist. The Service refuses to
  delete it - that refusal is a structural invariant of the store, not a
  business exception.

SEE ALSO:
  - service.go: Credential verification and account management
  - store/sqlite, store/memory: Store implementations
*/
package roster

import (
	"context"
	"time"

	"github.com/warp/attendance-engine/core"
)

// =============================================================================
// RECORDS
// =============================================================================

// Employee is a roster entry. Created via manual entry; never auto-deleted.
type Employee struct {
	ID         core.EmployeeID
	Name       string
	Department string
	Position   string
	CreatedAt  time.Time
}

// User is a login principal.
type User struct {
	ID             core.UserID
	CredentialHash []byte // bcrypt; opaque to everything but VerifyCredential
	Role           core.Role
	Department     string // required for HEAD, empty for MANAGER/ADMIN
	CreatedAt      time.Time
}

// Filter narrows an employee listing. Zero value matches everything.
type Filter struct {
	Department   string // exact match, empty = all departments
	NameContains string // case-insensitive substring on Name
}

// =============================================================================
// STORE - Persistence contract
// =============================================================================

// Store persists employees and users as two flat collections. No referential
// integrity is assumed between them or toward attendance/request data.
type Store interface {
	SaveEmployee(ctx context.Context, e Employee) error
	GetEmployee(ctx context.Context, id core.EmployeeID) (*Employee, error)
	ListEmployees(ctx context.Context, f Filter) ([]Employee, error)

	SaveUser(ctx context.Context, u User) error
	GetUser(ctx context.Context, id core.UserID) (*User, error)
	ListUsers(ctx context.Context) ([]User, error)
	DeleteUser(ctx context.Context, id core.UserID) error
}
