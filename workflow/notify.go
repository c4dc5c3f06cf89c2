package workflow

import (
	"context"
	"fmt"

	"github.com/warp/attendance-engine/core"
)

// =============================================================================
// NOTIFICATION PROJECTION - Derived counts, no state of its own
// =============================================================================

// Counts is what drives the notification badge. Recomputed on demand from
// the queue; there is no cache to invalidate and no staleness to manage.
type Counts struct {
	// ActionRequired is the approver badge: pending requests the viewer
	// may resolve. Zero for non-approver roles.
	ActionRequired int

	// Inbox is the requester side: the viewer's own terminal requests
	// that have not been purged yet. Only PurgeResolved drops it.
	Inbox int
}

// Notifications computes the badge counts for a viewer. The viewer's own
// requests are matched by user id, the same id an employee logs in with.
func (s *Service) Notifications(ctx context.Context, viewerID core.UserID, viewerRole core.Role, viewerDept string) (Counts, error) {
	var c Counts

	pending, err := s.PendingFor(ctx, viewerRole, viewerDept)
	if err != nil {
		return Counts{}, err
	}
	c.ActionRequired = len(pending)

	own, err := s.store.ListRequests(ctx, Filter{Employee: core.EmployeeID(viewerID)})
	if err != nil {
		return Counts{}, fmt.Errorf("list own requests: %w", err)
	}
	for _, r := range own {
		if r.Status.Terminal() {
			c.Inbox++
		}
	}
	return c, nil
}
