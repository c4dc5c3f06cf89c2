package attendance_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/warp/attendance-engine/attendance"
)

// =============================================================================
// LOCK POLICY TESTS
// =============================================================================

func TestLocked_CurrentMonth_DaysAroundToday(t *testing.T) {
	// GIVEN: It is March 15, 09:00 - before the daily cutoff
	now := time.Date(2025, time.March, 15, 9, 0, 0, 0, time.UTC)

	// THEN: Every day strictly before today is locked
	for day := 1; day < 15; day++ {
		assert.True(t, attendance.Locked(2025, time.March, day, now), "day %d should be locked", day)
	}

	// AND: Every day strictly after today is open
	for day := 16; day <= 31; day++ {
		assert.False(t, attendance.Locked(2025, time.March, day, now), "day %d should be open", day)
	}

	// AND: Today itself is still open before the cutoff
	assert.False(t, attendance.Locked(2025, time.March, 15, now))
}

func TestLocked_Today_CutoffHour(t *testing.T) {
	// Today locks exactly when the clock reaches the cutoff hour.
	for hour := 0; hour < 24; hour++ {
		now := time.Date(2025, time.March, 15, hour, 30, 0, 0, time.UTC)
		got := attendance.Locked(2025, time.March, 15, now)
		assert.Equal(t, hour >= attendance.LockHour, got, "hour %d", hour)
	}
}

func TestLocked_OtherMonths(t *testing.T) {
	now := time.Date(2025, time.June, 15, 11, 0, 0, 0, time.UTC)

	// Past months are locked in full, future months open in full
	assert.True(t, attendance.Locked(2025, time.May, 31, now))
	assert.True(t, attendance.Locked(2025, time.January, 1, now))
	assert.False(t, attendance.Locked(2025, time.July, 1, now))
	assert.False(t, attendance.Locked(2025, time.December, 25, now))
}

func TestLocked_CrossYear(t *testing.T) {
	// GIVEN: It is January 2026
	// THEN: December 2025 is locked even though 12 > 1 as a bare month number
	now := time.Date(2026, time.January, 5, 8, 0, 0, 0, time.UTC)

	assert.True(t, attendance.Locked(2025, time.December, 31, now))
	assert.False(t, attendance.Locked(2027, time.January, 1, now))
	assert.False(t, attendance.Locked(2026, time.February, 1, now))
}

func TestKeyLocked_MatchesLocked(t *testing.T) {
	now := time.Date(2025, time.March, 15, 11, 0, 0, 0, time.UTC)
	key := attendance.DayKey{Year: 2025, Month: time.March, Day: 10, Employee: "E001"}
	assert.True(t, attendance.KeyLocked(key, now))
}

// =============================================================================
// DAY KEY TESTS
// =============================================================================

func TestDaysInMonth(t *testing.T) {
	assert.Equal(t, 31, attendance.DaysInMonth(2025, time.March))
	assert.Equal(t, 30, attendance.DaysInMonth(2025, time.April))
	assert.Equal(t, 28, attendance.DaysInMonth(2025, time.February))
	assert.Equal(t, 29, attendance.DaysInMonth(2024, time.February))
	assert.Equal(t, 31, attendance.DaysInMonth(2025, time.December))
}

func TestDayKey_Valid(t *testing.T) {
	assert.True(t, attendance.DayKey{Year: 2025, Month: time.February, Day: 28, Employee: "E001"}.Valid())
	assert.False(t, attendance.DayKey{Year: 2025, Month: time.February, Day: 29, Employee: "E001"}.Valid())
	assert.True(t, attendance.DayKey{Year: 2024, Month: time.February, Day: 29, Employee: "E001"}.Valid())
	assert.False(t, attendance.DayKey{Year: 2025, Month: time.March, Day: 0, Employee: "E001"}.Valid())
	assert.False(t, attendance.DayKey{Year: 2025, Month: time.March, Day: 10}.Valid(), "empty employee")
}
