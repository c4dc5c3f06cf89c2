package attendance

import "github.com/warp/attendance-engine/core"

// =============================================================================
// PERMISSION GATE - Who may write, and how
// =============================================================================

// Decision is the gate's answer. It is a plain value, never an error:
// "file a request instead" is a normal branch of the caller.
type Decision string

const (
	// DirectEdit: write straight to the ledger.
	DirectEdit Decision = "DIRECT_EDIT"

	// RequestRequired: the date is locked for this role; submit a
	// change request and wait for an approver.
	RequestRequired Decision = "REQUEST_REQUIRED"

	// Denied: no write path exists for this role/target combination.
	Denied Decision = "DENIED"
)

// Decide maps (role, lock state, scope) to a write decision.
//
//   - MANAGER is read-only by design; it exists to administer accounts.
//   - ADMIN overrides everything: any employee, locked or not.
//   - HEAD edits its own department directly while unlocked, and must file
//     a request once the lock closes.
//   - STAFF behaves like HEAD but is scoped to its own record.
//
// inScope means "the target is the caller's own record or inside the
// caller's department". Listing already hides out-of-scope employees from
// HEAD; the gate still answers Denied for them so a caller that bypasses
// the listing cannot write.
//
// Decide never mutates state.
func Decide(role core.Role, locked, inScope bool) Decision {
	switch role {
	case core.RoleManager:
		return Denied
	case core.RoleAdmin:
		return DirectEdit
	case core.RoleHead, core.RoleStaff:
		if !inScope {
			return Denied
		}
		if locked {
			return RequestRequired
		}
		return DirectEdit
	default:
		return Denied
	}
}
