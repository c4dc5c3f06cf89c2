package attendance

import "time"

// =============================================================================
// LOCK POLICY - When a date stops being directly editable
// =============================================================================

// LockHour is the cutoff: from this hour on, today's entry is locked.
const LockHour = 10

// Locked reports whether the entry for a target date is closed to direct
// edits as of now. Pure function of its arguments; callers inject the clock.
//
// Rules, in order:
//  1. A month before the current (year, month) is locked.
//  2. A month after it is open.
//  3. Within the current month: past days are locked, future days open,
//     and today locks once the clock reaches LockHour.
//
// Year is part of the comparison, so a January "now" locks the previous
// December rather than comparing bare month numbers.
func Locked(year int, month time.Month, day int, now time.Time) bool {
	if year != now.Year() {
		return year < now.Year()
	}
	if month != now.Month() {
		return month < now.Month()
	}
	if day < now.Day() {
		return true
	}
	return day == now.Day() && now.Hour() >= LockHour
}

// KeyLocked is Locked applied to a DayKey.
func KeyLocked(key DayKey, now time.Time) bool {
	return Locked(key.Year, key.Month, key.Day, now)
}
