/*
service.go - Roster operations: credentials, accounts, listings

PURPOSE:
  Wraps the Store with the behavior the rest of the system needs:
  - VerifyCredential: the login collaborator (bcrypt underneath)
  - EnsureBootstrap:  self-healing creation of the MANAGER account
  - DeleteUser:       guarded by the bootstrap invariant
  - VisibleEmployees: role-scoped listing (HEAD sees only its department)

CREDENTIAL HASHING:
  bcrypt with the default cost. The contract exposed to callers is only
  VerifyCredential(id, secret) -> *User or ErrAuthentication; the hash is
  never inspected elsewhere.

SEE ALSO:
  - types.go: Record and Store definitions
  - api/handlers.go: Login and user-management endpoints
*/
package roster

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/warp/attendance-engine/core"
)

// Service exposes roster operations over a Store.
type Service struct {
	store Store

	// Now is injectable for deterministic tests.
	Now func() time.Time
}

func NewService(store Store) *Service {
	return &Service{store: store, Now: time.Now}
}

// =============================================================================
// CREDENTIALS
// =============================================================================

// VerifyCredential checks an id/secret pair and returns the matching user.
// Unknown id and wrong secret produce the same ErrAuthentication so the
// response never reveals which half was wrong.
func (s *Service) VerifyCredential(ctx context.Context, id core.UserID, secret string) (*User, error) {
	u, err := s.store.GetUser(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if u == nil {
		// Burn a comparison anyway so timing does not distinguish
		// unknown ids from wrong secrets.
		bcrypt.CompareHashAndPassword(dummyHash, []byte(secret))
		return nil, core.ErrAuthentication
	}
	if bcrypt.CompareHashAndPassword(u.CredentialHash, []byte(secret)) != nil {
		return nil, core.ErrAuthentication
	}
	return u, nil
}

var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("attendance-engine"), bcrypt.DefaultCost)

// =============================================================================
// USER ACCOUNTS
// =============================================================================

// CreateUser creates a login account with a freshly hashed secret.
// HEAD accounts must carry a department; MANAGER and ADMIN must not require one.
func (s *Service) CreateUser(ctx context.Context, id core.UserID, secret string, role core.Role, department string) (*User, error) {
	if !role.Valid() {
		return nil, &core.InvariantError{Rule: fmt.Sprintf("unknown role %q", role)}
	}
	if role == core.RoleHead && department == "" {
		return nil, &core.InvariantError{Rule: "HEAD account requires a department"}
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash credential: %w", err)
	}
	u := User{
		ID:             id,
		CredentialHash: hash,
		Role:           role,
		Department:     department,
		CreatedAt:      s.Now(),
	}
	if err := s.store.SaveUser(ctx, u); err != nil {
		return nil, fmt.Errorf("save user: %w", err)
	}
	return &u, nil
}

// DeleteUser removes a login account. Removing a MANAGER account is refused:
// exactly one exists (the bootstrap account) and it must always exist.
func (s *Service) DeleteUser(ctx context.Context, id core.UserID) error {
	u, err := s.store.GetUser(ctx, id)
	if err != nil {
		return fmt.Errorf("load user: %w", err)
	}
	if u == nil {
		return &core.NotFoundError{Kind: "user", ID: string(id)}
	}
	if u.Role == core.RoleManager {
		return &core.InvariantError{Rule: "the bootstrap MANAGER account is not deletable"}
	}
	return s.store.DeleteUser(ctx, id)
}

// ListUsers returns all login accounts.
func (s *Service) ListUsers(ctx context.Context) ([]User, error) {
	return s.store.ListUsers(ctx)
}

// EnsureBootstrap guarantees the bootstrap MANAGER account exists.
// Idempotent: an existing account (whatever its secret) is left alone.
func (s *Service) EnsureBootstrap(ctx context.Context, id core.UserID, secret string) error {
	existing, err := s.store.GetUser(ctx, id)
	if err != nil {
		return fmt.Errorf("load bootstrap user: %w", err)
	}
	if existing != nil {
		return nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash bootstrap credential: %w", err)
	}
	return s.store.SaveUser(ctx, User{
		ID:             id,
		CredentialHash: hash,
		Role:           core.RoleManager,
		CreatedAt:      s.Now(),
	})
}

// =============================================================================
// EMPLOYEES
// =============================================================================

// CreateEmployee adds a roster entry.
func (s *Service) CreateEmployee(ctx context.Context, e Employee) error {
	if e.ID == "" {
		return &core.InvariantError{Rule: "employee id must not be empty"}
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.Now()
	}
	return s.store.SaveEmployee(ctx, e)
}

// GetEmployee returns a roster entry, or nil if unknown.
func (s *Service) GetEmployee(ctx context.Context, id core.EmployeeID) (*Employee, error) {
	return s.store.GetEmployee(ctx, id)
}

// VisibleEmployees lists employees as seen by a viewer. HEAD is pinned to its
// own department before the caller-supplied filter applies; every other role
// sees the full roster.
func (s *Service) VisibleEmployees(ctx context.Context, viewer *User, f Filter) ([]Employee, error) {
	if viewer.Role == core.RoleHead {
		f.Department = viewer.Department
	}
	return s.store.ListEmployees(ctx, f)
}

// MatchesFilter reports whether an employee passes a filter. Store
// implementations share it so listing semantics stay identical.
func MatchesFilter(e Employee, f Filter) bool {
	if f.Department != "" && e.Department != f.Department {
		return false
	}
	if f.NameContains != "" &&
		!strings.Contains(strings.ToLower(e.Name), strings.ToLower(f.NameContains)) {
		return false
	}
	return true
}
