/*
ledger.go - The attendance ledger

PURPOSE:
  Owns every write to attendance entries. Two paths exist and both live
  here: the direct edit (SetStatus) and the apply-on-approve write that the
  workflow performs on a requester's behalf (SetStatusThen).

PER-KEY SERIALIZATION:
  A direct edit and an approval racing on the same DayKey must not
  interleave: the approval's ledger write and its status flip have to be
  observed as one step. The ledger keeps a mutex per key; SetStatusThen runs
  its follow-up while still holding the key's lock.

NO VALIDATION:
  SetStatus does not inspect the value. Callers are expected to have
  consulted the permission gate already, and the status domain is open by
  design (see types.go).

SEE ALSO:
  - types.go: DayKey and the Store contract
  - workflow/request.go: The approval path through SetStatusThen
*/
package attendance

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/attendance-engine/core"
)

// =============================================================================
// LEDGER
// =============================================================================

// Ledger mediates all attendance writes through a Store.
type Ledger struct {
	store Store
	keys  keyMutex
}

func NewLedger(store Store) *Ledger {
	return &Ledger{store: store}
}

// SetStatus unconditionally overwrites the status at key. Last write wins,
// no history. Permission checks are the caller's job.
func (l *Ledger) SetStatus(ctx context.Context, key DayKey, status string) error {
	if !key.Valid() {
		return &core.InvariantError{Rule: fmt.Sprintf("invalid attendance key %s", key)}
	}
	unlock := l.keys.lock(key)
	defer unlock()
	return l.store.PutStatus(ctx, key, status)
}

// SetStatusThen writes status at key and then runs follow while still
// holding the key's lock. The workflow uses it to flip a request to
// APPROVED atomically with the ledger write: no reader can catch an
// APPROVED request next to a stale ledger value, and no concurrent direct
// edit can interleave between the two steps.
func (l *Ledger) SetStatusThen(ctx context.Context, key DayKey, status string, follow func() error) error {
	if !key.Valid() {
		return &core.InvariantError{Rule: fmt.Sprintf("invalid attendance key %s", key)}
	}
	unlock := l.keys.lock(key)
	defer unlock()
	if err := l.store.PutStatus(ctx, key, status); err != nil {
		return err
	}
	return follow()
}

// GetStatus returns the status at key, "" if absent. "Never recorded" and
// "recorded as blank" are indistinguishable on purpose.
func (l *Ledger) GetStatus(ctx context.Context, key DayKey) (string, error) {
	return l.store.GetStatus(ctx, key)
}

// Month returns the day -> status map for one employee-month, for grid
// rendering. Days without an entry are absent from the map.
func (l *Ledger) Month(ctx context.Context, employee core.EmployeeID, year int, month time.Month) (map[int]string, error) {
	return l.store.MonthStatuses(ctx, employee, year, month)
}

// =============================================================================
// MONTHLY TALLY
// =============================================================================

// Tally counts the canonical codes over one employee-month. Any other code
// (an ADMIN override like "late") contributes to none of the three counters
// yet still occupies its day; PresenceRate keeps days-in-month as its
// denominator regardless.
type Tally struct {
	Present int
	Leave   int
	Absent  int

	// PresenceRate = Present / days in month, exact.
	PresenceRate decimal.Decimal
}

// MonthlyTally scans every day of the month and counts exact X/P/V matches.
func (l *Ledger) MonthlyTally(ctx context.Context, employee core.EmployeeID, year int, month time.Month) (Tally, error) {
	statuses, err := l.store.MonthStatuses(ctx, employee, year, month)
	if err != nil {
		return Tally{}, fmt.Errorf("load month: %w", err)
	}

	var t Tally
	days := DaysInMonth(year, month)
	for day := 1; day <= days; day++ {
		switch statuses[day] {
		case StatusPresent:
			t.Present++
		case StatusLeave:
			t.Leave++
		case StatusAbsent:
			t.Absent++
		}
	}
	t.PresenceRate = decimal.NewFromInt(int64(t.Present)).
		Div(decimal.NewFromInt(int64(days)))
	return t, nil
}

// =============================================================================
// KEY MUTEX - Per-key mutual exclusion
// =============================================================================

// keyMutex hands out one mutex per DayKey. Entries are never evicted; the
// working set is bounded by roster size times days actually touched.
type keyMutex struct {
	mu    sync.Mutex
	locks map[DayKey]*sync.Mutex
}

func (km *keyMutex) lock(key DayKey) (unlock func()) {
	km.mu.Lock()
	if km.locks == nil {
		km.locks = make(map[DayKey]*sync.Mutex)
	}
	m, ok := km.locks[key]
	if !ok {
		m = &sync.Mutex{}
		km.locks[key] = m
	}
	km.mu.Unlock()

	m.Lock()
	return m.Unlock
}
