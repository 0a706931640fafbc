/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Implements hr.Store and hr.TxStore using SQLite. In production, the same
  patterns apply to PostgreSQL - only minor SQL dialect differences.

INTERFACES IMPLEMENTED:
  hr.Store:   Resignation and employee persistence
  hr.TxStore: Atomic cross-record transactions

ATOMICITY:
  WithTx wraps a database transaction AND holds the store mutex, so the
  resignation write and the paired employee-projection write commit
  together and precondition re-reads inside the transaction see a
  consistent, current state. All reads and writes inside WithTx go
  through the same *sql.Tx (read-your-writes).

KEY TABLES:
  employees:    Directory records plus the resignation projection fields
  resignations: The aggregate, stages embedded as named columns
  sweep_runs:   Audit trail of finalization sweep passes

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/hr.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - hr/store.go: Interface definitions
  - hr/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/warp/hr-engine/hr"
)

// Store implements hr.TxStore using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
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

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Employees (directory record + resignation projection fields)
	CREATE TABLE IF NOT EXISTS employees (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT,
		organization_id TEXT NOT NULL,
		department_id TEXT,
		manager_id TEXT,
		notice_days INTEGER NOT NULL DEFAULT 30,
		employment_status TEXT NOT NULL DEFAULT 'active',
		resignation_applied BOOLEAN NOT NULL DEFAULT FALSE,
		resignation_id TEXT,
		last_working_date TEXT,
		account_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_employees_org
		ON employees(organization_id);
	CREATE INDEX IF NOT EXISTS idx_employees_manager
		ON employees(manager_id);

	-- Resignations (aggregate root; stages embedded as named columns)
	CREATE TABLE IF NOT EXISTS resignations (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		applied_by TEXT NOT NULL,
		organization_id TEXT NOT NULL,
		submitted_at TEXT NOT NULL,
		proposed_last_working_date TEXT NOT NULL,
		actual_last_working_date TEXT,
		reason TEXT NOT NULL,
		feedback TEXT,
		status TEXT NOT NULL DEFAULT 'pending',
		current_level TEXT NOT NULL DEFAULT 'manager',
		manager_status TEXT NOT NULL DEFAULT 'pending',
		manager_actor TEXT,
		manager_acted_at TEXT,
		manager_comment TEXT,
		hr_status TEXT NOT NULL DEFAULT 'pending',
		hr_actor TEXT,
		hr_acted_at TEXT,
		hr_comment TEXT,
		admin_status TEXT NOT NULL DEFAULT 'pending',
		admin_actor TEXT,
		admin_acted_at TEXT,
		admin_comment TEXT,
		rejected_by TEXT,
		rejection_reason TEXT,
		approved_by TEXT,
		approved_at TEXT,
		cancelled BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_resignations_employee
		ON resignations(employee_id);
	CREATE INDEX IF NOT EXISTS idx_resignations_org
		ON resignations(organization_id);
	CREATE INDEX IF NOT EXISTS idx_resignations_status
		ON resignations(status);
	CREATE INDEX IF NOT EXISTS idx_resignations_level
		ON resignations(current_level) WHERE cancelled = FALSE;

	-- At most one in-flight resignation per employee
	CREATE UNIQUE INDEX IF NOT EXISTS idx_resignations_active
		ON resignations(employee_id)
		WHERE status = 'pending' AND cancelled = FALSE;

	-- Sweep Runs (audit of scheduled finalization passes)
	CREATE TABLE IF NOT EXISTS sweep_runs (
		id TEXT PRIMARY KEY,
		started_at TEXT NOT NULL,
		as_of TEXT NOT NULL,
		scanned INTEGER NOT NULL DEFAULT 0,
		finalized INTEGER NOT NULL DEFAULT 0,
		skipped INTEGER NOT NULL DEFAULT 0,
		failed INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL DEFAULT 'running',
		error TEXT,
		completed_at TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_sweep_runs_status
		ON sweep_runs(status);
	`

	_, err := s.db.Exec(schema)
	return err
}

// dbtx is satisfied by both *sql.DB and *sql.Tx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// =============================================================================
// RESIGNATION STORE (hr.Store interface)
// =============================================================================

// SaveResignation inserts or replaces a resignation.
func (s *Store) SaveResignation(ctx context.Context, r *hr.Resignation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return saveResignation(ctx, s.db, r)
}

func saveResignation(ctx context.Context, db dbtx, r *hr.Resignation) error {
	query := `
		INSERT OR REPLACE INTO resignations
		(id, employee_id, applied_by, organization_id, submitted_at,
		 proposed_last_working_date, actual_last_working_date, reason, feedback,
		 status, current_level,
		 manager_status, manager_actor, manager_acted_at, manager_comment,
		 hr_status, hr_actor, hr_acted_at, hr_comment,
		 admin_status, admin_actor, admin_acted_at, admin_comment,
		 rejected_by, rejection_reason, approved_by, approved_at,
		 cancelled, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := db.ExecContext(ctx, query,
		r.ID,
		r.EmployeeID,
		r.AppliedBy,
		r.OrganizationID,
		r.SubmittedAt.UTC().Format(time.RFC3339),
		r.ProposedLastWorkingDate.UTC().Format(time.RFC3339),
		nullTime(r.ActualLastWorkingDate),
		r.Reason,
		r.Feedback,
		string(r.Status),
		string(r.CurrentLevel),
		string(r.Manager.Status), nullString(r.Manager.ActorID), nullTime(r.Manager.ActedAt), r.Manager.Comment,
		string(r.HR.Status), nullString(r.HR.ActorID), nullTime(r.HR.ActedAt), r.HR.Comment,
		string(r.Admin.Status), nullString(r.Admin.ActorID), nullTime(r.Admin.ActedAt), r.Admin.Comment,
		nullString(r.RejectedBy),
		r.RejectionReason,
		nullString(r.ApprovedBy),
		nullTime(r.ApprovedAt),
		r.Cancelled,
		r.CreatedAt.UTC().Format(time.RFC3339),
		r.UpdatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save resignation: %w", err)
	}
	return nil
}

const resignationColumns = `
	id, employee_id, applied_by, organization_id, submitted_at,
	proposed_last_working_date, actual_last_working_date, reason, feedback,
	status, current_level,
	manager_status, manager_actor, manager_acted_at, manager_comment,
	hr_status, hr_actor, hr_acted_at, hr_comment,
	admin_status, admin_actor, admin_acted_at, admin_comment,
	rejected_by, rejection_reason, approved_by, approved_at,
	cancelled, created_at, updated_at
`

// GetResignation returns a resignation by ID.
func (s *Store) GetResignation(ctx context.Context, id string) (*hr.Resignation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getResignation(ctx, s.db, id)
}

func getResignation(ctx context.Context, db dbtx, id string) (*hr.Resignation, error) {
	row := db.QueryRowContext(ctx,
		"SELECT "+resignationColumns+" FROM resignations WHERE id = ?", id)
	r, err := scanResignation(row)
	if err == sql.ErrNoRows {
		return nil, hr.ErrResignationNotFound
	}
	return r, err
}

// ListResignations returns resignations matching the filter, most recently
// submitted first.
func (s *Store) ListResignations(ctx context.Context, f hr.ResignationFilter) ([]*hr.Resignation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listResignations(ctx, s.db, f)
}

func listResignations(ctx context.Context, db dbtx, f hr.ResignationFilter) ([]*hr.Resignation, error) {
	query := "SELECT " + resignationColumns + " FROM resignations WHERE 1=1"
	var args []any

	if !f.IncludeCancelled {
		query += " AND cancelled = FALSE"
	}
	if f.OrganizationID != "" {
		query += " AND organization_id = ?"
		args = append(args, f.OrganizationID)
	}
	if f.EmployeeID != "" {
		query += " AND employee_id = ?"
		args = append(args, f.EmployeeID)
	}
	if f.Status != "" {
		query += " AND status = ?"
		args = append(args, string(f.Status))
	}
	if f.CurrentLevel != "" {
		query += " AND current_level = ?"
		args = append(args, string(f.CurrentLevel))
	}
	query += " ORDER BY submitted_at DESC, created_at DESC"

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query resignations: %w", err)
	}
	defer rows.Close()

	var result []*hr.Resignation
	for rows.Next() {
		r, err := scanResignation(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanResignation(sc scanner) (*hr.Resignation, error) {
	var r hr.Resignation
	var submittedAt, proposedLWD, createdAt, updatedAt string
	var actualLWD, approvedAt sql.NullString
	var mgrActor, mgrActedAt, mgrComment sql.NullString
	var hrActor, hrActedAt, hrComment sql.NullString
	var admActor, admActedAt, admComment sql.NullString
	var feedback, rejectedBy, rejectionReason, approvedBy sql.NullString
	var mgrStatus, hrStatus, admStatus, status, level string

	err := sc.Scan(
		&r.ID, &r.EmployeeID, &r.AppliedBy, &r.OrganizationID, &submittedAt,
		&proposedLWD, &actualLWD, &r.Reason, &feedback,
		&status, &level,
		&mgrStatus, &mgrActor, &mgrActedAt, &mgrComment,
		&hrStatus, &hrActor, &hrActedAt, &hrComment,
		&admStatus, &admActor, &admActedAt, &admComment,
		&rejectedBy, &rejectionReason, &approvedBy, &approvedAt,
		&r.Cancelled, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	r.SubmittedAt, _ = time.Parse(time.RFC3339, submittedAt)
	r.ProposedLastWorkingDate, _ = time.Parse(time.RFC3339, proposedLWD)
	r.ActualLastWorkingDate = parseNullTime(actualLWD)
	r.Feedback = feedback.String
	r.Status = hr.Status(status)
	r.CurrentLevel = hr.Level(level)
	r.Manager = scanStage(mgrStatus, mgrActor, mgrActedAt, mgrComment)
	r.HR = scanStage(hrStatus, hrActor, hrActedAt, hrComment)
	r.Admin = scanStage(admStatus, admActor, admActedAt, admComment)
	r.RejectedBy = rejectedBy.String
	r.RejectionReason = rejectionReason.String
	r.ApprovedBy = approvedBy.String
	r.ApprovedAt = parseNullTime(approvedAt)
	r.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	r.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)

	return &r, nil
}

func scanStage(status string, actor, actedAt, comment sql.NullString) hr.Stage {
	return hr.Stage{
		Status:  hr.StageStatus(status),
		ActorID: actor.String,
		ActedAt: parseNullTime(actedAt),
		Comment: comment.String,
	}
}

// =============================================================================
// EMPLOYEE STORE
// =============================================================================

// SaveEmployee inserts or replaces an employee record.
func (s *Store) SaveEmployee(ctx context.Context, e *hr.Employee) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return saveEmployee(ctx, s.db, e)
}

func saveEmployee(ctx context.Context, db dbtx, e *hr.Employee) error {
	query := `
		INSERT OR REPLACE INTO employees
		(id, name, email, organization_id, department_id, manager_id, notice_days,
		 employment_status, resignation_applied, resignation_id, last_working_date,
		 account_active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	createdAt := e.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := db.ExecContext(ctx, query,
		e.ID,
		e.Name,
		e.Email,
		e.OrganizationID,
		e.DepartmentID,
		e.ManagerID,
		e.NoticeDays,
		string(e.EmploymentStatus),
		e.ResignationApplied,
		nullString(e.ResignationID),
		nullTime(e.LastWorkingDate),
		e.AccountActive,
		createdAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save employee: %w", err)
	}
	return nil
}

const employeeColumns = `
	id, name, email, organization_id, department_id, manager_id, notice_days,
	employment_status, resignation_applied, resignation_id, last_working_date,
	account_active, created_at
`

// GetEmployee returns an employee by ID.
func (s *Store) GetEmployee(ctx context.Context, id string) (*hr.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getEmployee(ctx, s.db, id)
}

func getEmployee(ctx context.Context, db dbtx, id string) (*hr.Employee, error) {
	row := db.QueryRowContext(ctx,
		"SELECT "+employeeColumns+" FROM employees WHERE id = ?", id)
	e, err := scanEmployee(row)
	if err == sql.ErrNoRows {
		return nil, hr.ErrEmployeeNotFound
	}
	return e, err
}

// ListEmployees returns all employees in an organization; empty orgID
// returns everyone.
func (s *Store) ListEmployees(ctx context.Context, orgID string) ([]*hr.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listEmployees(ctx, s.db, orgID)
}

func listEmployees(ctx context.Context, db dbtx, orgID string) ([]*hr.Employee, error) {
	query := "SELECT " + employeeColumns + " FROM employees"
	var args []any
	if orgID != "" {
		query += " WHERE organization_id = ?"
		args = append(args, orgID)
	}
	query += " ORDER BY id ASC"

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query employees: %w", err)
	}
	defer rows.Close()

	var result []*hr.Employee
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	return result, rows.Err()
}

func scanEmployee(sc scanner) (*hr.Employee, error) {
	var e hr.Employee
	var email, departmentID, managerID, resignationID sql.NullString
	var lastWorkingDate sql.NullString
	var employmentStatus, createdAt string

	err := sc.Scan(
		&e.ID, &e.Name, &email, &e.OrganizationID, &departmentID, &managerID,
		&e.NoticeDays, &employmentStatus, &e.ResignationApplied, &resignationID,
		&lastWorkingDate, &e.AccountActive, &createdAt,
	)
	if err != nil {
		return nil, err
	}

	e.Email = email.String
	e.DepartmentID = departmentID.String
	e.ManagerID = managerID.String
	e.EmploymentStatus = hr.EmploymentStatus(employmentStatus)
	e.ResignationID = resignationID.String
	e.LastWorkingDate = parseNullTime(lastWorkingDate)
	e.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)

	return &e, nil
}

// =============================================================================
// TRANSACTIONAL STORE (hr.TxStore interface)
// =============================================================================

// WithTx executes a function within a database transaction. All reads and
// writes inside fn go through the same *sql.Tx, so precondition checks
// observe state consistent with the writes they guard.
func (s *Store) WithTx(ctx context.Context, fn func(store hr.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", hr.ErrTxConflict, err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{tx: sqlTx}); err != nil {
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("%w: %v", hr.ErrTxConflict, err)
	}
	return nil
}

// txStore routes every call through the open transaction. It never
// touches the parent mutex: WithTx already holds it.
type txStore struct {
	tx *sql.Tx
}

func (ts *txStore) SaveResignation(ctx context.Context, r *hr.Resignation) error {
	return saveResignation(ctx, ts.tx, r)
}

func (ts *txStore) GetResignation(ctx context.Context, id string) (*hr.Resignation, error) {
	return getResignation(ctx, ts.tx, id)
}

func (ts *txStore) ListResignations(ctx context.Context, f hr.ResignationFilter) ([]*hr.Resignation, error) {
	return listResignations(ctx, ts.tx, f)
}

func (ts *txStore) SaveEmployee(ctx context.Context, e *hr.Employee) error {
	return saveEmployee(ctx, ts.tx, e)
}

func (ts *txStore) GetEmployee(ctx context.Context, id string) (*hr.Employee, error) {
	return getEmployee(ctx, ts.tx, id)
}

func (ts *txStore) ListEmployees(ctx context.Context, orgID string) ([]*hr.Employee, error) {
	return listEmployees(ctx, ts.tx, orgID)
}

// =============================================================================
// SWEEP RUNS
// =============================================================================

// SweepRun is a persisted record of one finalization sweep pass.
type SweepRun struct {
	ID          string
	StartedAt   time.Time
	AsOf        time.Time
	Scanned     int
	Finalized   int
	Skipped     int
	Failed      int
	Status      string // "running", "completed", "failed"
	Error       string
	CompletedAt *time.Time
	CreatedAt   time.Time
}

// SaveSweepRun inserts or replaces a sweep run record.
func (s *Store) SaveSweepRun(ctx context.Context, run SweepRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	createdAt := run.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	query := `
		INSERT OR REPLACE INTO sweep_runs
		(id, started_at, as_of, scanned, finalized, skipped, failed,
		 status, error, completed_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		run.ID,
		run.StartedAt.UTC().Format(time.RFC3339),
		run.AsOf.UTC().Format(time.RFC3339),
		run.Scanned,
		run.Finalized,
		run.Skipped,
		run.Failed,
		run.Status,
		nullString(run.Error),
		nullTime(run.CompletedAt),
		createdAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save sweep run: %w", err)
	}
	return nil
}

// ListSweepRuns returns sweep runs, newest first, optionally filtered by
// status.
func (s *Store) ListSweepRuns(ctx context.Context, status string) ([]SweepRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, started_at, as_of, scanned, finalized, skipped, failed,
		       status, error, completed_at, created_at
		FROM sweep_runs
	`
	var args []any
	if status != "" {
		query += " WHERE status = ?"
		args = append(args, status)
	}
	query += " ORDER BY started_at DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sweep runs: %w", err)
	}
	defer rows.Close()

	var runs []SweepRun
	for rows.Next() {
		var run SweepRun
		var startedAt, asOf, createdAt string
		var errMsg, completedAt sql.NullString
		if err := rows.Scan(&run.ID, &startedAt, &asOf, &run.Scanned, &run.Finalized,
			&run.Skipped, &run.Failed, &run.Status, &errMsg, &completedAt, &createdAt); err != nil {
			return nil, err
		}
		run.StartedAt, _ = time.Parse(time.RFC3339, startedAt)
		run.AsOf, _ = time.Parse(time.RFC3339, asOf)
		run.Error = errMsg.String
		run.CompletedAt = parseNullTime(completedAt)
		run.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Reset drops all data (dev/demo only).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		DELETE FROM resignations;
		DELETE FROM employees;
		DELETE FROM sweep_runs;
	`)
	return err
}

// =============================================================================
// HELPERS
// =============================================================================

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}

func parseNullTime(ns sql.NullString) *time.Time {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, ns.String)
	if err != nil {
		return nil
	}
	return &t
}
