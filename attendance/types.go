/*
Package attendance is the heart of the engine: the day-keyed status ledger,
the time-based edit lock, and the permission gate.

PURPOSE:
  One status string per (employee, date). Writes are last-write-wins with no
  history. Whether a caller may write at all is decided by the pure functions
  in lock.go and gate.go before the ledger is ever touched.

KEY CONCEPTS IN THIS FILE (types.go):
  - DayKey:   Deterministic composite key (year, month, day, employee)
  - Status codes: "X" present, "P" leave, "V" absent - by convention only
  - Tally:    Per-month counts of the three canonical codes

OPEN STATUS DOMAIN:
  The ledger accepts ANY short string, not just X/P/V. ADMIN overrides may
  write arbitrary codes; the tally then counts exact X/P/V matches and
  silently ignores the rest. That asymmetry is a deliberate property of the
  system, relied on downstream. Do not add validation here.

SEE ALSO:
  - lock.go:   When a date is directly editable
  - gate.go:   Who may write, and how
  - ledger.go: The writes themselves
*/
package attendance

import (
	"context"
	"fmt"
	"time"

	"github.com/warp/attendance-engine/core"
)

// =============================================================================
// STATUS CODES - Canonical, but not exclusive
// =============================================================================

const (
	StatusPresent = "X"
	StatusLeave   = "P"
	StatusAbsent  = "V"
)

// =============================================================================
// DAY KEY
// =============================================================================

// DayKey identifies one cell of the attendance grid. Month is the calendar
// month (1-based, as time.Month always is). There is no surrogate id: the
// tuple IS the key, and at most one status exists per key at any time.
type DayKey struct {
	Year     int
	Month    time.Month
	Day      int
	Employee core.EmployeeID
}

func (k DayKey) String() string {
	return fmt.Sprintf("%04d-%02d-%02d/%s", k.Year, int(k.Month), k.Day, k.Employee)
}

// Valid reports whether the day falls inside its month.
func (k DayKey) Valid() bool {
	return k.Employee != "" &&
		k.Month >= time.January && k.Month <= time.December &&
		k.Day >= 1 && k.Day <= DaysInMonth(k.Year, k.Month)
}

// DaysInMonth returns the number of days in a calendar month.
func DaysInMonth(year int, month time.Month) int {
	// Day 0 of the next month is the last day of this one.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// =============================================================================
// STORE - Persistence contract
// =============================================================================

// Store persists attendance entries. Absence and empty string are the same
// thing: GetStatus of a never-written key returns "".
type Store interface {
	// PutStatus overwrites the status at key. Last write wins.
	PutStatus(ctx context.Context, key DayKey, status string) error

	// GetStatus returns the status at key, "" if absent.
	GetStatus(ctx context.Context, key DayKey) (string, error)

	// MonthStatuses returns day -> status for one employee-month.
	// Days with no entry are simply missing from the map.
	MonthStatuses(ctx context.Context, employee core.EmployeeID, year int, month time.Month) (map[int]string, error)
}
