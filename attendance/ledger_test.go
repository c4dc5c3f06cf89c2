package attendance_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/attendance-engine/attendance"
	"github.com/warp/attendance-engine/core"
	"github.com/warp/attendance-engine/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestLedger(t *testing.T) *attendance.Ledger {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return attendance.NewLedger(store)
}

func marchKey(day int, employee string) attendance.DayKey {
	return attendance.DayKey{Year: 2025, Month: time.March, Day: day, Employee: core.EmployeeID(employee)}
}

// =============================================================================
// ROUND-TRIP TESTS
// =============================================================================

func TestLedger_RoundTrip(t *testing.T) {
	ledger := newTestLedger(t)
	ctx := context.Background()

	// Any string round-trips, not just the canonical codes.
	for _, v := range []string{"X", "P", "V", "late", "½", ""} {
		key := marchKey(10, "E001")
		require.NoError(t, ledger.SetStatus(ctx, key, v))

		got, err := ledger.GetStatus(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, v, got)
	}
}

func TestLedger_AbsentIsEmptyString(t *testing.T) {
	ledger := newTestLedger(t)

	got, err := ledger.GetStatus(context.Background(), marchKey(1, "E999"))
	require.NoError(t, err)
	assert.Equal(t, "", got, "never-written key reads as blank")
}

func TestLedger_LastWriteWins(t *testing.T) {
	ledger := newTestLedger(t)
	ctx := context.Background()
	key := marchKey(5, "E001")

	require.NoError(t, ledger.SetStatus(ctx, key, "X"))
	require.NoError(t, ledger.SetStatus(ctx, key, "P"))

	got, err := ledger.GetStatus(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "P", got, "no history is kept, the overwrite sticks")
}

func TestLedger_InvalidKeyRejected(t *testing.T) {
	ledger := newTestLedger(t)

	err := ledger.SetStatus(context.Background(), attendance.DayKey{Year: 2025, Month: time.February, Day: 30, Employee: "E001"}, "X")
	assert.True(t, core.IsInvariantViolation(err))
}

// =============================================================================
// MONTHLY TALLY TESTS
// =============================================================================

func TestMonthlyTally_CountsOnlyCanonicalCodes(t *testing.T) {
	// GIVEN: A month with X, P, V, and a non-canonical override
	ledger := newTestLedger(t)
	ctx := context.Background()

	require.NoError(t, ledger.SetStatus(ctx, marchKey(1, "E001"), "X"))
	require.NoError(t, ledger.SetStatus(ctx, marchKey(2, "E001"), "X"))
	require.NoError(t, ledger.SetStatus(ctx, marchKey(3, "E001"), "P"))
	require.NoError(t, ledger.SetStatus(ctx, marchKey(4, "E001"), "V"))
	require.NoError(t, ledger.SetStatus(ctx, marchKey(5, "E001"), "late"))

	// WHEN: Tallying the month
	tally, err := ledger.MonthlyTally(ctx, "E001", 2025, time.March)
	require.NoError(t, err)

	// THEN: "late" contributes to none of the three counters
	assert.Equal(t, 2, tally.Present)
	assert.Equal(t, 1, tally.Leave)
	assert.Equal(t, 1, tally.Absent)
}

func TestMonthlyTally_PresenceRate(t *testing.T) {
	ledger := newTestLedger(t)
	ctx := context.Background()

	// 2 present days out of 30 in April
	require.NoError(t, ledger.SetStatus(ctx, attendance.DayKey{Year: 2025, Month: time.April, Day: 1, Employee: "E001"}, "X"))
	require.NoError(t, ledger.SetStatus(ctx, attendance.DayKey{Year: 2025, Month: time.April, Day: 2, Employee: "E001"}, "X"))

	tally, err := ledger.MonthlyTally(ctx, "E001", 2025, time.April)
	require.NoError(t, err)
	assert.Equal(t, "0.0667", tally.PresenceRate.StringFixed(4))
}

func TestMonthlyTally_EmptyMonth(t *testing.T) {
	ledger := newTestLedger(t)

	tally, err := ledger.MonthlyTally(context.Background(), "E001", 2025, time.March)
	require.NoError(t, err)
	assert.Zero(t, tally.Present)
	assert.Zero(t, tally.Leave)
	assert.Zero(t, tally.Absent)
	assert.True(t, tally.PresenceRate.IsZero())
}

func TestMonthlyTally_IgnoresNeighboringMonths(t *testing.T) {
	ledger := newTestLedger(t)
	ctx := context.Background()

	require.NoError(t, ledger.SetStatus(ctx, attendance.DayKey{Year: 2025, Month: time.February, Day: 10, Employee: "E001"}, "X"))
	require.NoError(t, ledger.SetStatus(ctx, attendance.DayKey{Year: 2025, Month: time.April, Day: 10, Employee: "E001"}, "X"))
	require.NoError(t, ledger.SetStatus(ctx, marchKey(10, "E002"), "X"))

	tally, err := ledger.MonthlyTally(ctx, "E001", 2025, time.March)
	require.NoError(t, err)
	assert.Zero(t, tally.Present, "other months and other employees don't leak in")
}

// =============================================================================
// MONTH GRID
// =============================================================================

func TestMonth_ReturnsOnlyWrittenDays(t *testing.T) {
	ledger := newTestLedger(t)
	ctx := context.Background()

	require.NoError(t, ledger.SetStatus(ctx, marchKey(3, "E001"), "X"))
	require.NoError(t, ledger.SetStatus(ctx, marchKey(17, "E001"), "P"))

	days, err := ledger.Month(ctx, "E001", 2025, time.March)
	require.NoError(t, err)
	assert.Equal(t, map[int]string{3: "X", 17: "P"}, days)
}

// =============================================================================
// PER-KEY SERIALIZATION
// =============================================================================

func TestSetStatusThen_FollowSeesOwnWrite(t *testing.T) {
	// A direct edit hammering the same key must never slip between the
	// write and its follow-up; the follow-up always observes the value
	// just written.
	ledger := newTestLedger(t)
	ctx := context.Background()
	key := marchKey(10, "E001")

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			if err := ledger.SetStatus(ctx, key, "X"); err != nil {
				t.Errorf("direct edit: %v", err)
				return
			}
		}
	}()

	for i := 0; i < 50; i++ {
		err := ledger.SetStatusThen(ctx, key, "P", func() error {
			got, err := ledger.GetStatus(ctx, key)
			if err != nil {
				return err
			}
			if got != "P" {
				t.Errorf("follow-up observed %q, want %q", got, "P")
			}
			return nil
		})
		require.NoError(t, err)
	}
	<-done

	// One of the two writers holds the final word
	final, err := ledger.GetStatus(ctx, key)
	require.NoError(t, err)
	assert.Contains(t, []string{"X", "P"}, final)
}
