/*
Package sqlite provides a SQLite-backed implementation of the storage
interfaces.

PURPOSE:
  Implements roster.Store, attendance.Store, and workflow.Store on a single
  SQLite file. The same patterns apply to PostgreSQL - only minor SQL
  dialect differences.

KEY TABLES:
  employees:  Roster reference data
  users:      Login principals (bcrypt hash stored opaque)
  attendance: One row per (year, month, day, employee); the row IS the key
  requests:   Change-request queue

REFERENTIAL INTEGRITY:
  None enforced. A request pointing at a deleted employee stays readable -
  orphans are data, not errors, and the workflow layer decides what to do
  with them.

WAL MODE:
  Opened with WAL for better concurrency: readers don't block, single
  writer at a time, better crash recovery.

MIGRATION:
  Schema is created on New(). For production use a proper migration tool
  with versioned migrations.

USAGE:
  store, err := sqlite.New("./data/attendance.db")
  defer store.Close()
  ledger := attendance.NewLedger(store)

SEE ALSO:
  - roster/types.go, attendance/types.go, workflow/types.go: the contracts
  - store/memory: In-memory implementation for tests
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/warp/attendance-engine/attendance"
	"github.com/warp/attendance-engine/core"
	"github.com/warp/attendance-engine/roster"
	"github.com/warp/attendance-engine/workflow"
)

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	-- Roster reference data
	CREATE TABLE IF NOT EXISTS employees (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		department TEXT NOT NULL,
		position TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_employees_department
		ON employees(department);

	-- Login principals
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		credential_hash BLOB NOT NULL,
		role TEXT NOT NULL,
		department TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);

	-- Attendance ledger: the composite key IS the identity, no surrogate id.
	-- Last write wins; there is deliberately no history table.
	CREATE TABLE IF NOT EXISTS attendance (
		year INTEGER NOT NULL,
		month INTEGER NOT NULL,
		day INTEGER NOT NULL,
		employee_id TEXT NOT NULL,
		status TEXT NOT NULL,
		PRIMARY KEY (year, month, day, employee_id)
	);

	-- Month scans (tally, grid) are the hot read path
	CREATE INDEX IF NOT EXISTS idx_attendance_employee_month
		ON attendance(employee_id, year, month);

	-- Change-request queue. No foreign key to employees: orphaned
	-- requests must stay readable.
	CREATE TABLE IF NOT EXISTS requests (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		year INTEGER NOT NULL,
		month INTEGER NOT NULL,
		day INTEGER NOT NULL,
		requested_value TEXT NOT NULL,
		reason TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'PENDING',
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_requests_employee
		ON requests(employee_id);
	CREATE INDEX IF NOT EXISTS idx_requests_status
		ON requests(status);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// ROSTER
// =============================================================================

func (s *Store) SaveEmployee(ctx context.Context, e roster.Employee) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO employees (id, name, department, position, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			department = excluded.department,
			position = excluded.position`,
		string(e.ID), e.Name, e.Department, e.Position, e.CreatedAt.UTC().Format(time.RFC3339Nano))
	return err
}

func (s *Store) GetEmployee(ctx context.Context, id core.EmployeeID) (*roster.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, department, position, created_at
		FROM employees WHERE id = ?`, string(id))
	e, err := scanEmployee(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}

func (s *Store) ListEmployees(ctx context.Context, f roster.Filter) ([]roster.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT id, name, department, position, created_at FROM employees`
	var conds []string
	var args []any
	if f.Department != "" {
		conds = append(conds, "department = ?")
		args = append(args, f.Department)
	}
	if f.NameContains != "" {
		conds = append(conds, "LOWER(name) LIKE '%' || LOWER(?) || '%'")
		args = append(args, f.NameContains)
	}
	for i, c := range conds {
		if i == 0 {
			query += " WHERE " + c
		} else {
			query += " AND " + c
		}
	}
	query += " ORDER BY id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []roster.Employee
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *e)
	}
	return result, rows.Err()
}

func (s *Store) SaveUser(ctx context.Context, u roster.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, credential_hash, role, department, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			credential_hash = excluded.credential_hash,
			role = excluded.role,
			department = excluded.department`,
		string(u.ID), u.CredentialHash, string(u.Role), u.Department,
		u.CreatedAt.UTC().Format(time.RFC3339Nano))
	return err
}

func (s *Store) GetUser(ctx context.Context, id core.UserID) (*roster.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row := s.db.QueryRowContext(ctx, `
		SELECT id, credential_hash, role, department, created_at
		FROM users WHERE id = ?`, string(id))
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (s *Store) ListUsers(ctx context.Context) ([]roster.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, credential_hash, role, department, created_at
		FROM users ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []roster.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *u)
	}
	return result, rows.Err()
}

func (s *Store) DeleteUser(ctx context.Context, id core.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, string(id))
	return err
}

// =============================================================================
// ATTENDANCE
// =============================================================================

func (s *Store) PutStatus(ctx context.Context, key attendance.DayKey, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO attendance (year, month, day, employee_id, status)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(year, month, day, employee_id) DO UPDATE SET
			status = excluded.status`,
		key.Year, int(key.Month), key.Day, string(key.Employee), status)
	return err
}

func (s *Store) GetStatus(ctx context.Context, key attendance.DayKey) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var status string
	err := s.db.QueryRowContext(ctx, `
		SELECT status FROM attendance
		WHERE year = ? AND month = ? AND day = ? AND employee_id = ?`,
		key.Year, int(key.Month), key.Day, string(key.Employee)).Scan(&status)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return status, nil
}

func (s *Store) MonthStatuses(ctx context.Context, employee core.EmployeeID, year int, month time.Month) (map[int]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, err := s.db.QueryContext(ctx, `
		SELECT day, status FROM attendance
		WHERE employee_id = ? AND year = ? AND month = ?`,
		string(employee), year, int(month))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[int]string)
	for rows.Next() {
		var day int
		var status string
		if err := rows.Scan(&day, &status); err != nil {
			return nil, err
		}
		result[day] = status
	}
	return result, rows.Err()
}

// =============================================================================
// WORKFLOW
// =============================================================================

func (s *Store) SaveRequest(ctx context.Context, r workflow.ChangeRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO requests (id, employee_id, year, month, day, requested_value, reason, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status`,
		string(r.ID), string(r.Employee), r.Year, int(r.Month), r.Day,
		r.RequestedValue, r.Reason, string(r.Status),
		r.CreatedAt.UTC().Format(time.RFC3339Nano))
	return err
}

func (s *Store) GetRequest(ctx context.Context, id core.RequestID) (*workflow.ChangeRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row := s.db.QueryRowContext(ctx, `
		SELECT id, employee_id, year, month, day, requested_value, reason, status, created_at
		FROM requests WHERE id = ?`, string(id))
	r, err := scanRequest(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (s *Store) ListRequests(ctx context.Context, f workflow.Filter) ([]workflow.ChangeRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT id, employee_id, year, month, day, requested_value, reason, status, created_at FROM requests`
	var conds []string
	var args []any
	if f.Employee != "" {
		conds = append(conds, "employee_id = ?")
		args = append(args, string(f.Employee))
	}
	if f.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, string(f.Status))
	}
	for i, c := range conds {
		if i == 0 {
			query += " WHERE " + c
		} else {
			query += " AND " + c
		}
	}
	query += " ORDER BY created_at, id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []workflow.ChangeRequest
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *r)
	}
	return result, rows.Err()
}

func (s *Store) DeleteRequests(ctx context.Context, ids []core.RequestID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if _, err := tx.ExecContext(ctx, `DELETE FROM requests WHERE id = ?`, string(id)); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// =============================================================================
// SCAN HELPERS
// =============================================================================

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEmployee(row rowScanner) (*roster.Employee, error) {
	var e roster.Employee
	var id, createdAt string
	if err := row.Scan(&id, &e.Name, &e.Department, &e.Position, &createdAt); err != nil {
		return nil, err
	}
	e.ID = core.EmployeeID(id)
	e.CreatedAt = parseTime(createdAt)
	return &e, nil
}

func scanUser(row rowScanner) (*roster.User, error) {
	var u roster.User
	var id, role, createdAt string
	if err := row.Scan(&id, &u.CredentialHash, &role, &u.Department, &createdAt); err != nil {
		return nil, err
	}
	u.ID = core.UserID(id)
	u.Role = core.Role(role)
	u.CreatedAt = parseTime(createdAt)
	return &u, nil
}

func scanRequest(row rowScanner) (*workflow.ChangeRequest, error) {
	var r workflow.ChangeRequest
	var id, employee, status, createdAt string
	var month int
	if err := row.Scan(&id, &employee, &r.Year, &month, &r.Day,
		&r.RequestedValue, &r.Reason, &status, &createdAt); err != nil {
		return nil, err
	}
	r.ID = core.RequestID(id)
	r.Employee = core.EmployeeID(employee)
	r.Month = time.Month(month)
	r.Status = workflow.RequestStatus(status)
	r.CreatedAt = parseTime(createdAt)
	return &r, nil
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
