package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/attendance-engine/api"
	"github.com/warp/attendance-engine/attendance"
	"github.com/warp/attendance-engine/core"
	"github.com/warp/attendance-engine/roster"
	"github.com/warp/attendance-engine/store/memory"
	"github.com/warp/attendance-engine/workflow"
)

// =============================================================================
// TEST SETUP
// =============================================================================

// testNow pins the server clock to the 15th at 11:00 - past the daily
// cutoff, so day 10 of the same month is locked.
var testNow = time.Date(2025, time.March, 15, 11, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T) *httptest.Server {
	store := memory.New()
	rosterSvc := roster.NewService(store)
	ledger := attendance.NewLedger(store)
	wf := workflow.NewService(store, ledger, store)
	wf.Now = func() time.Time { return testNow }

	ctx := context.Background()
	require.NoError(t, rosterSvc.EnsureBootstrap(ctx, "IT_ADMIN", "123456"))
	for id, acct := range map[core.UserID]struct {
		role core.Role
		dept string
	}{
		"A001": {core.RoleAdmin, ""},
		"H001": {core.RoleHead, "Internal Medicine"},
		"H002": {core.RoleHead, "Surgery"},
		"E001": {core.RoleStaff, ""},
	} {
		_, err := rosterSvc.CreateUser(ctx, id, "pass", acct.role, acct.dept)
		require.NoError(t, err)
	}
	require.NoError(t, store.SaveEmployee(ctx, roster.Employee{
		ID: "E001", Name: "Nguyen Van A", Department: "Internal Medicine", Position: "Nurse",
	}))
	require.NoError(t, store.SaveEmployee(ctx, roster.Employee{
		ID: "E002", Name: "Tran Thi B", Department: "Surgery", Position: "Nurse",
	}))

	h := api.NewHandler(rosterSvc, ledger, wf, []byte("test-secret"))
	h.Now = func() time.Time { return testNow }

	srv := httptest.NewServer(api.NewRouter(h))
	t.Cleanup(srv.Close)
	return srv
}

func login(t *testing.T, srv *httptest.Server, id, password string) string {
	rec := doJSON(t, srv, http.MethodPost, "/api/login", "", map[string]string{
		"id": id, "password": password,
	})
	require.Equal(t, http.StatusOK, rec.StatusCode, "login as %s", id)
	var resp struct {
		Token string `json:"token"`
	}
	decode(t, rec, &resp)
	return resp.Token
}

func doJSON(t *testing.T, srv *httptest.Server, method, path, token string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, srv.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func statusOf(t *testing.T, srv *httptest.Server, token, employee string, day int) string {
	rec := doJSON(t, srv, http.MethodGet,
		fmt.Sprintf("/api/employees/%s/month?year=2025&month=3", employee), token, nil)
	require.Equal(t, http.StatusOK, rec.StatusCode)
	var m struct {
		Statuses map[int]string `json:"statuses"`
	}
	decode(t, rec, &m)
	return m.Statuses[day]
}

// =============================================================================
// SESSION
// =============================================================================

func TestLogin_WrongPassword(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/api/login", "", map[string]string{
		"id": "E001", "password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.StatusCode)
}

func TestAuth_MissingToken(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodGet, "/api/employees", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.StatusCode)
}

// =============================================================================
// LOCKED-DAY CORRECTION FLOW
// =============================================================================

func TestLockedDayCorrection_EndToEnd(t *testing.T) {
	// GIVEN: It is the 15th at 11:00, so day 10 is locked
	srv := newTestServer(t)
	staff := login(t, srv, "E001", "pass")

	// WHEN: STAFF tries to write day 10 directly
	rec := doJSON(t, srv, http.MethodPut, "/api/attendance", staff, map[string]any{
		"employee_id": "E001", "year": 2025, "month": 3, "day": 10, "status": "P",
	})

	// THEN: The gate answers REQUEST_REQUIRED
	require.Equal(t, http.StatusConflict, rec.StatusCode)
	var dec struct {
		Decision string `json:"decision"`
	}
	decode(t, rec, &dec)
	assert.Equal(t, "REQUEST_REQUIRED", dec.Decision)

	// WHEN: STAFF submits a change request instead
	rec = doJSON(t, srv, http.MethodPost, "/api/requests", staff, map[string]any{
		"year": 2025, "month": 3, "day": 10, "requested_value": "P", "reason": "sick",
	})
	require.Equal(t, http.StatusCreated, rec.StatusCode)
	var created struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	decode(t, rec, &created)
	assert.Equal(t, "PENDING", created.Status)

	// AND: The department HEAD sees and approves it
	head := login(t, srv, "H001", "pass")
	rec = doJSON(t, srv, http.MethodGet, "/api/requests/pending", head, nil)
	require.Equal(t, http.StatusOK, rec.StatusCode)
	var pending []struct {
		ID string `json:"id"`
	}
	decode(t, rec, &pending)
	require.Len(t, pending, 1)

	rec = doJSON(t, srv, http.MethodPost, "/api/requests/"+created.ID+"/approve", head, nil)
	require.Equal(t, http.StatusOK, rec.StatusCode)

	// THEN: The ledger now holds "P" for day 10
	assert.Equal(t, "P", statusOf(t, srv, head, "E001", 10))
}

func TestApprove_WrongDepartmentHead(t *testing.T) {
	srv := newTestServer(t)
	staff := login(t, srv, "E001", "pass")

	rec := doJSON(t, srv, http.MethodPost, "/api/requests", staff, map[string]any{
		"year": 2025, "month": 3, "day": 10, "requested_value": "P", "reason": "sick",
	})
	require.Equal(t, http.StatusCreated, rec.StatusCode)
	var created struct {
		ID string `json:"id"`
	}
	decode(t, rec, &created)

	// The HEAD of Surgery cannot resolve an Internal Medicine request
	other := login(t, srv, "H002", "pass")
	rec = doJSON(t, srv, http.MethodPost, "/api/requests/"+created.ID+"/approve", other, nil)
	assert.Equal(t, http.StatusForbidden, rec.StatusCode)

	// The request is still pending for the right HEAD
	head := login(t, srv, "H001", "pass")
	rec = doJSON(t, srv, http.MethodGet, "/api/requests/pending", head, nil)
	var pending []any
	decode(t, rec, &pending)
	assert.Len(t, pending, 1)
}

// =============================================================================
// ADMIN OVERRIDE
// =============================================================================

func TestAdminOverride_LockedDayDirectWrite(t *testing.T) {
	// ADMIN writes a locked day directly; no change request appears
	srv := newTestServer(t)
	admin := login(t, srv, "A001", "pass")

	rec := doJSON(t, srv, http.MethodPut, "/api/attendance", admin, map[string]any{
		"employee_id": "E001", "year": 2025, "month": 3, "day": 10, "status": "late",
	})
	require.Equal(t, http.StatusOK, rec.StatusCode)
	assert.Equal(t, "late", statusOf(t, srv, admin, "E001", 10))

	rec = doJSON(t, srv, http.MethodGet, "/api/requests/pending", admin, nil)
	var pending []any
	decode(t, rec, &pending)
	assert.Empty(t, pending)
}

func TestManager_AttendanceWriteDenied(t *testing.T) {
	srv := newTestServer(t)
	manager := login(t, srv, "IT_ADMIN", "123456")

	rec := doJSON(t, srv, http.MethodPut, "/api/attendance", manager, map[string]any{
		"employee_id": "E001", "year": 2025, "month": 3, "day": 20, "status": "X",
	})
	assert.Equal(t, http.StatusForbidden, rec.StatusCode)
}

func TestStaff_CannotWriteOthersRecord(t *testing.T) {
	srv := newTestServer(t)
	staff := login(t, srv, "E001", "pass")

	rec := doJSON(t, srv, http.MethodPut, "/api/attendance", staff, map[string]any{
		"employee_id": "E002", "year": 2025, "month": 3, "day": 20, "status": "X",
	})
	assert.Equal(t, http.StatusForbidden, rec.StatusCode)
}

// =============================================================================
// TALLY
// =============================================================================

func TestTally_CanonicalCodesOnly(t *testing.T) {
	srv := newTestServer(t)
	admin := login(t, srv, "A001", "pass")

	for day, status := range map[int]string{20: "X", 21: "X", 22: "P", 23: "late"} {
		rec := doJSON(t, srv, http.MethodPut, "/api/attendance", admin, map[string]any{
			"employee_id": "E001", "year": 2025, "month": 3, "day": day, "status": status,
		})
		require.Equal(t, http.StatusOK, rec.StatusCode)
	}

	rec := doJSON(t, srv, http.MethodGet, "/api/employees/E001/tally?year=2025&month=3", admin, nil)
	require.Equal(t, http.StatusOK, rec.StatusCode)
	var tally struct {
		Present      int    `json:"present"`
		Leave        int    `json:"leave"`
		Absent       int    `json:"absent"`
		PresenceRate string `json:"presence_rate"`
	}
	decode(t, rec, &tally)
	assert.Equal(t, 2, tally.Present)
	assert.Equal(t, 1, tally.Leave)
	assert.Zero(t, tally.Absent)
	assert.Equal(t, "0.0645", tally.PresenceRate, "2 of 31 days")
}

func TestStaff_CannotReadOthersMonthOrTally(t *testing.T) {
	srv := newTestServer(t)
	staff := login(t, srv, "E001", "pass")

	rec := doJSON(t, srv, http.MethodGet, "/api/employees/E002/month?year=2025&month=3", staff, nil)
	assert.Equal(t, http.StatusForbidden, rec.StatusCode)

	rec = doJSON(t, srv, http.MethodGet, "/api/employees/E002/tally?year=2025&month=3", staff, nil)
	assert.Equal(t, http.StatusForbidden, rec.StatusCode)

	// Reading their own record still works
	rec = doJSON(t, srv, http.MethodGet, "/api/employees/E001/month?year=2025&month=3", staff, nil)
	assert.Equal(t, http.StatusOK, rec.StatusCode)
}

// =============================================================================
// ROSTER SCOPING AND USER ADMIN
// =============================================================================

func TestListEmployees_HeadScoped(t *testing.T) {
	srv := newTestServer(t)
	head := login(t, srv, "H001", "pass")

	rec := doJSON(t, srv, http.MethodGet, "/api/employees", head, nil)
	require.Equal(t, http.StatusOK, rec.StatusCode)
	var list []struct {
		ID string `json:"id"`
	}
	decode(t, rec, &list)
	require.Len(t, list, 1)
	assert.Equal(t, "E001", list[0].ID)
}

func TestDeleteBootstrapManager_Refused(t *testing.T) {
	srv := newTestServer(t)
	manager := login(t, srv, "IT_ADMIN", "123456")

	rec := doJSON(t, srv, http.MethodDelete, "/api/users/IT_ADMIN", manager, nil)
	assert.Equal(t, http.StatusConflict, rec.StatusCode)

	// The account still exists and logs in
	login(t, srv, "IT_ADMIN", "123456")
}

func TestUserAdmin_RequiresManager(t *testing.T) {
	srv := newTestServer(t)
	admin := login(t, srv, "A001", "pass")

	rec := doJSON(t, srv, http.MethodPost, "/api/users", admin, map[string]string{
		"id": "X001", "password": "pass", "role": "STAFF",
	})
	assert.Equal(t, http.StatusForbidden, rec.StatusCode)
}

// =============================================================================
// NOTIFICATIONS
// =============================================================================

func TestNotifications_Flow(t *testing.T) {
	srv := newTestServer(t)
	staff := login(t, srv, "E001", "pass")
	head := login(t, srv, "H001", "pass")

	rec := doJSON(t, srv, http.MethodPost, "/api/requests", staff, map[string]any{
		"year": 2025, "month": 3, "day": 10, "requested_value": "P", "reason": "sick",
	})
	require.Equal(t, http.StatusCreated, rec.StatusCode)
	var created struct {
		ID string `json:"id"`
	}
	decode(t, rec, &created)

	// Approver badge shows one actionable item
	rec = doJSON(t, srv, http.MethodGet, "/api/notifications", head, nil)
	var counts struct {
		ActionRequired int `json:"action_required"`
		Inbox          int `json:"inbox"`
	}
	decode(t, rec, &counts)
	assert.Equal(t, 1, counts.ActionRequired)

	// After rejection the requester's inbox shows the result
	rec = doJSON(t, srv, http.MethodPost, "/api/requests/"+created.ID+"/reject", head, nil)
	require.Equal(t, http.StatusOK, rec.StatusCode)

	rec = doJSON(t, srv, http.MethodGet, "/api/notifications", staff, nil)
	decode(t, rec, &counts)
	assert.Equal(t, 1, counts.Inbox)

	// Clearing the inbox
	rec = doJSON(t, srv, http.MethodDelete, "/api/requests/resolved", staff, nil)
	require.Equal(t, http.StatusOK, rec.StatusCode)

	rec = doJSON(t, srv, http.MethodGet, "/api/notifications", staff, nil)
	decode(t, rec, &counts)
	assert.Zero(t, counts.Inbox)

	// Double-resolving the purged request is gone for good: 404
	rec = doJSON(t, srv, http.MethodPost, "/api/requests/"+created.ID+"/approve", head, nil)
	assert.Equal(t, http.StatusNotFound, rec.StatusCode)
}
