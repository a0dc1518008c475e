/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:

	Implements all persistence interfaces (RateStore, ProfileStore,
	SnapshotStore, RunLogStore, AdvisoryStore, Directory) using SQLite. In
	production, the same patterns apply to PostgreSQL - only minor SQL
	dialect differences.

INTERFACES IMPLEMENTED:

	payroll.RateStore:     Versioned rate table rows
	payroll.ProfileStore:  Compensation profiles with atomic create-if-absent
	payroll.SnapshotStore: Snapshots, upserted by (employee, pay period)
	payroll.RunLogStore:   Batch run records
	payroll.AdvisoryStore: Fallback advisories
	payroll.Directory:     Employee identity records

UPSERT ENFORCEMENT:

	compensation_snapshots carries UNIQUE(employee_id, pay_period) and every
	write is INSERT ... ON CONFLICT DO UPDATE, so re-running a period
	overwrites in place. Duplicate snapshot rows cannot exist at the schema
	level.

PROFILE CREATION:

	CreateIfAbsent uses INSERT OR IGNORE followed by a read, under the write
	lock. Two simultaneous first-accesses for the same employee resolve to
	one stored profile.

MONEY AND DATES:

	Monetary amounts are stored as decimal strings, never floats. Dates are
	"2006-01-02" strings, timestamps RFC3339. valid_to NULL means
	open-ended.

CONCURRENCY:

	Uses sync.RWMutex for thread-safety. In production with PostgreSQL,
	database-level concurrency control handles this instead.

WAL MODE:

	SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
	- Multiple readers don't block
	- Single writer at a time
	- Better crash recovery

USAGE:

	store, err := sqlite.New("./data/payroll.db")
	if err != nil {
	    log.Fatal(err)
	}
	defer store.Close()

MIGRATION:

	Schema is auto-migrated on New(). For production, use a proper
	migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - payroll/store.go: Interface definitions
  - payroll/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/payroll-engine/payroll"
)

// Store implements all storage interfaces using SQLite.
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
	// An in-memory database exists per connection; a pooled second
	// connection would see an empty schema.
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
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
	-- Employee directory (read model; identity is owned elsewhere)
	CREATE TABLE IF NOT EXISTS employees (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL,
		employment_type TEXT NOT NULL,
		department TEXT NOT NULL,
		org_domain TEXT NOT NULL,
		hire_date TEXT NOT NULL,
		active INTEGER NOT NULL DEFAULT 1
	);

	CREATE INDEX IF NOT EXISTS idx_employees_active
		ON employees(active);

	-- Compensation profiles (one per employee)
	CREATE TABLE IF NOT EXISTS compensation_profiles (
		employee_id TEXT PRIMARY KEY,
		grade TEXT NOT NULL,
		job_profile TEXT NOT NULL,
		competency_tier TEXT NOT NULL,
		position TEXT NOT NULL DEFAULT '',
		position_tier TEXT NOT NULL DEFAULT '',
		position_start TEXT,
		initial_position INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- Versioned master and rate tables. UNIQUE(key..., valid_from) lets
	-- SaveRatePlan replace a row re-seeded with the same effective date.
	CREATE TABLE IF NOT EXISTS grade_master (
		code TEXT NOT NULL,
		level INTEGER NOT NULL,
		step INTEGER NOT NULL,
		title TEXT NOT NULL,
		valid_from TEXT NOT NULL,
		valid_to TEXT,
		UNIQUE(code, valid_from)
	);

	CREATE TABLE IF NOT EXISTS position_master (
		code TEXT NOT NULL,
		name TEXT NOT NULL,
		org_domain TEXT NOT NULL,
		manager_level INTEGER NOT NULL,
		role_level TEXT NOT NULL,
		valid_from TEXT NOT NULL,
		valid_to TEXT,
		UNIQUE(code, valid_from)
	);

	CREATE TABLE IF NOT EXISTS job_profile_master (
		id TEXT NOT NULL,
		family TEXT NOT NULL,
		series TEXT NOT NULL,
		role TEXT NOT NULL,
		valid_from TEXT NOT NULL,
		valid_to TEXT,
		UNIQUE(id, valid_from)
	);

	CREATE TABLE IF NOT EXISTS base_salary_rates (
		grade TEXT NOT NULL,
		employment_type TEXT NOT NULL,
		monthly TEXT NOT NULL,
		valid_from TEXT NOT NULL,
		valid_to TEXT,
		UNIQUE(grade, employment_type, valid_from)
	);

	CREATE INDEX IF NOT EXISTS idx_base_salary_key
		ON base_salary_rates(grade, employment_type);

	CREATE TABLE IF NOT EXISTS position_allowance_rates (
		position TEXT NOT NULL,
		tier TEXT NOT NULL,
		monthly TEXT NOT NULL,
		rate TEXT NOT NULL,
		valid_from TEXT NOT NULL,
		valid_to TEXT,
		UNIQUE(position, tier, valid_from)
	);

	CREATE INDEX IF NOT EXISTS idx_position_allowance_key
		ON position_allowance_rates(position, tier);

	CREATE TABLE IF NOT EXISTS competency_allowance_rates (
		job_profile TEXT NOT NULL,
		tier TEXT NOT NULL,
		monthly TEXT NOT NULL,
		valid_from TEXT NOT NULL,
		valid_to TEXT,
		UNIQUE(job_profile, tier, valid_from)
	);

	CREATE INDEX IF NOT EXISTS idx_competency_allowance_key
		ON competency_allowance_rates(job_profile, tier);

	CREATE TABLE IF NOT EXISTS annual_incentive_rates (
		org_domain TEXT NOT NULL,
		role_type TEXT NOT NULL,
		grade TEXT NOT NULL,
		rate_percent TEXT NOT NULL,
		valid_from TEXT NOT NULL,
		valid_to TEXT,
		UNIQUE(org_domain, role_type, grade, valid_from)
	);

	CREATE TABLE IF NOT EXISTS monthly_incentive_rates (
		role_level TEXT NOT NULL,
		grade TEXT NOT NULL,
		amount TEXT NOT NULL,
		valid_from TEXT NOT NULL,
		valid_to TEXT,
		UNIQUE(role_level, grade, valid_from)
	);

	-- Snapshots. The UNIQUE key is what makes period re-runs idempotent.
	CREATE TABLE IF NOT EXISTS compensation_snapshots (
		employee_id TEXT NOT NULL,
		pay_period TEXT NOT NULL,
		base_salary TEXT NOT NULL,
		fixed_overtime TEXT NOT NULL,
		position_allowance TEXT NOT NULL,
		competency_allowance TEXT NOT NULL,
		seasonal_bonus TEXT NOT NULL,
		annual_incentive TEXT NOT NULL,
		monthly_incentive TEXT NOT NULL,
		ordinary_wage TEXT NOT NULL,
		total TEXT NOT NULL,
		run_id TEXT NOT NULL,
		created_at TEXT NOT NULL,
		UNIQUE(employee_id, pay_period)
	);

	CREATE INDEX IF NOT EXISTS idx_snapshots_period
		ON compensation_snapshots(pay_period);
	CREATE INDEX IF NOT EXISTS idx_snapshots_run
		ON compensation_snapshots(run_id);

	-- Batch run records
	CREATE TABLE IF NOT EXISTS calc_run_logs (
		id TEXT PRIMARY KEY,
		pay_period TEXT NOT NULL,
		formula_version TEXT NOT NULL,
		status TEXT NOT NULL,
		affected_count INTEGER NOT NULL DEFAULT 0,
		changes_json TEXT NOT NULL DEFAULT '{}',
		errors_json TEXT NOT NULL DEFAULT '[]',
		started_at TEXT NOT NULL,
		completed_at TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_run_logs_period
		ON calc_run_logs(pay_period);

	-- Fallback advisories
	CREATE TABLE IF NOT EXISTS advisories (
		id TEXT PRIMARY KEY,
		run_id TEXT NOT NULL,
		employee_id TEXT NOT NULL,
		pay_period TEXT NOT NULL,
		code TEXT NOT NULL,
		message TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_advisories_run
		ON advisories(run_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// DIRECTORY (payroll.Directory interface)
// =============================================================================

// PutEmployee upserts a directory record. Seed/admin path.
func (s *Store) PutEmployee(ctx context.Context, e payroll.Employee) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO employees (id, name, email, employment_type, department, org_domain, hire_date, active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			email = excluded.email,
			employment_type = excluded.employment_type,
			department = excluded.department,
			org_domain = excluded.org_domain,
			hire_date = excluded.hire_date,
			active = excluded.active
	`, e.ID, e.Name, e.Email, e.EmploymentType, e.Department, e.OrgDomain,
		e.HireDate.String(), boolToInt(e.Active))
	if err != nil {
		return fmt.Errorf("failed to save employee: %w", err)
	}
	return nil
}

// Employee returns the identity record, or payroll.ErrEmployeeNotFound.
func (s *Store) Employee(ctx context.Context, id payroll.EmployeeID) (*payroll.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, email, employment_type, department, org_domain, hire_date, active
		FROM employees WHERE id = ?
	`, id)

	var e payroll.Employee
	var hire string
	var active int
	err := row.Scan(&e.ID, &e.Name, &e.Email, &e.EmploymentType, &e.Department,
		&e.OrgDomain, &hire, &active)
	if err == sql.ErrNoRows {
		return nil, payroll.ErrEmployeeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load employee: %w", err)
	}
	if e.HireDate, err = payroll.ParseDate(hire); err != nil {
		return nil, fmt.Errorf("corrupt hire_date for %s: %w", id, err)
	}
	e.Active = active != 0
	return &e, nil
}

// ActiveEmployees returns the ids of all active employees, ordered.
func (s *Store) ActiveEmployees(ctx context.Context) ([]payroll.EmployeeID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id FROM employees WHERE active = 1 ORDER BY id ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query active employees: %w", err)
	}
	defer rows.Close()

	var ids []payroll.EmployeeID
	for rows.Next() {
		var id payroll.EmployeeID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// =============================================================================
// PROFILE STORE (payroll.ProfileStore interface)
// =============================================================================

// Profile returns the profile, or payroll.ErrProfileNotFound.
func (s *Store) Profile(ctx context.Context, id payroll.EmployeeID) (*payroll.CompensationProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.loadProfile(ctx, id)
}

// CreateIfAbsent atomically creates the profile unless one exists, and
// returns the stored row either way.
func (s *Store) CreateIfAbsent(ctx context.Context, p payroll.CompensationProfile) (*payroll.CompensationProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO compensation_profiles
		(employee_id, grade, job_profile, competency_tier, position, position_tier,
		 position_start, initial_position, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, p.EmployeeID, p.Grade, p.JobProfile, p.CompetencyTier, p.Position, p.PositionTier,
		nullDate(p.PositionStart), boolToInt(p.InitialPosition),
		p.CreatedAt.UTC().Format(time.RFC3339), p.UpdatedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("failed to create profile: %w", err)
	}

	return s.loadProfile(ctx, p.EmployeeID)
}

// SaveProfile overwrites the profile (HR mutation path).
func (s *Store) SaveProfile(ctx context.Context, p payroll.CompensationProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO compensation_profiles
		(employee_id, grade, job_profile, competency_tier, position, position_tier,
		 position_start, initial_position, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(employee_id) DO UPDATE SET
			grade = excluded.grade,
			job_profile = excluded.job_profile,
			competency_tier = excluded.competency_tier,
			position = excluded.position,
			position_tier = excluded.position_tier,
			position_start = excluded.position_start,
			initial_position = excluded.initial_position,
			updated_at = excluded.updated_at
	`, p.EmployeeID, p.Grade, p.JobProfile, p.CompetencyTier, p.Position, p.PositionTier,
		nullDate(p.PositionStart), boolToInt(p.InitialPosition),
		p.CreatedAt.UTC().Format(time.RFC3339), p.UpdatedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}
	return nil
}

func (s *Store) loadProfile(ctx context.Context, id payroll.EmployeeID) (*payroll.CompensationProfile, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT employee_id, grade, job_profile, competency_tier, position, position_tier,
		       position_start, initial_position, created_at, updated_at
		FROM compensation_profiles WHERE employee_id = ?
	`, id)

	var p payroll.CompensationProfile
	var posStart sql.NullString
	var initial int
	var created, updated string
	err := row.Scan(&p.EmployeeID, &p.Grade, &p.JobProfile, &p.CompetencyTier,
		&p.Position, &p.PositionTier, &posStart, &initial, &created, &updated)
	if err == sql.ErrNoRows {
		return nil, payroll.ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}
	if posStart.Valid && posStart.String != "" {
		if p.PositionStart, err = payroll.ParseDate(posStart.String); err != nil {
			return nil, fmt.Errorf("corrupt position_start for %s: %w", id, err)
		}
	}
	p.InitialPosition = initial != 0
	if p.CreatedAt, err = time.Parse(time.RFC3339, created); err != nil {
		return nil, err
	}
	if p.UpdatedAt, err = time.Parse(time.RFC3339, updated); err != nil {
		return nil, err
	}
	return &p, nil
}

// =============================================================================
// RATE STORE (payroll.RateStore interface)
// =============================================================================

func (s *Store) Grades(ctx context.Context, code payroll.GradeCode) ([]payroll.GradeMaster, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT code, level, step, title, valid_from, valid_to
		FROM grade_master WHERE code = ? ORDER BY valid_from ASC
	`, code)
	if err != nil {
		return nil, fmt.Errorf("failed to query grades: %w", err)
	}
	defer rows.Close()

	var out []payroll.GradeMaster
	for rows.Next() {
		var g payroll.GradeMaster
		var from string
		var to sql.NullString
		if err := rows.Scan(&g.Code, &g.Level, &g.Step, &g.Title, &from, &to); err != nil {
			return nil, err
		}
		if g.Validity, err = scanValidity(from, to); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (s *Store) Positions(ctx context.Context, code payroll.PositionCode) ([]payroll.PositionMaster, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT code, name, org_domain, manager_level, role_level, valid_from, valid_to
		FROM position_master WHERE code = ? ORDER BY valid_from ASC
	`, code)
	if err != nil {
		return nil, fmt.Errorf("failed to query positions: %w", err)
	}
	defer rows.Close()

	var out []payroll.PositionMaster
	for rows.Next() {
		var p payroll.PositionMaster
		var from string
		var to sql.NullString
		if err := rows.Scan(&p.Code, &p.Name, &p.OrgDomain, &p.ManagerLevel, &p.RoleLevel, &from, &to); err != nil {
			return nil, err
		}
		if p.Validity, err = scanValidity(from, to); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) JobProfiles(ctx context.Context, id payroll.JobProfileID) ([]payroll.JobProfileMaster, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, family, series, role, valid_from, valid_to
		FROM job_profile_master WHERE id = ? ORDER BY valid_from ASC
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query job profiles: %w", err)
	}
	defer rows.Close()

	var out []payroll.JobProfileMaster
	for rows.Next() {
		var j payroll.JobProfileMaster
		var from string
		var to sql.NullString
		if err := rows.Scan(&j.ID, &j.Family, &j.Series, &j.Role, &from, &to); err != nil {
			return nil, err
		}
		if j.Validity, err = scanValidity(from, to); err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

func (s *Store) BaseSalaryRates(ctx context.Context, grade payroll.GradeCode, et payroll.EmploymentType) ([]payroll.BaseSalaryRate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT grade, employment_type, monthly, valid_from, valid_to
		FROM base_salary_rates WHERE grade = ? AND employment_type = ?
		ORDER BY valid_from ASC
	`, grade, et)
	if err != nil {
		return nil, fmt.Errorf("failed to query base salary rates: %w", err)
	}
	defer rows.Close()

	var out []payroll.BaseSalaryRate
	for rows.Next() {
		var r payroll.BaseSalaryRate
		var monthly, from string
		var to sql.NullString
		if err := rows.Scan(&r.Grade, &r.EmploymentType, &monthly, &from, &to); err != nil {
			return nil, err
		}
		if r.Monthly, err = scanMoney(monthly); err != nil {
			return nil, err
		}
		if r.Validity, err = scanValidity(from, to); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) PositionAllowanceRates(ctx context.Context, pos payroll.PositionCode, tier payroll.PositionTier) ([]payroll.PositionAllowanceRate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT position, tier, monthly, rate, valid_from, valid_to
		FROM position_allowance_rates WHERE position = ? AND tier = ?
		ORDER BY valid_from ASC
	`, pos, tier)
	if err != nil {
		return nil, fmt.Errorf("failed to query position allowance rates: %w", err)
	}
	defer rows.Close()

	var out []payroll.PositionAllowanceRate
	for rows.Next() {
		var r payroll.PositionAllowanceRate
		var monthly, rate, from string
		var to sql.NullString
		if err := rows.Scan(&r.Position, &r.Tier, &monthly, &rate, &from, &to); err != nil {
			return nil, err
		}
		if r.Monthly, err = scanMoney(monthly); err != nil {
			return nil, err
		}
		if r.Rate, err = decimal.NewFromString(rate); err != nil {
			return nil, fmt.Errorf("corrupt rate: %w", err)
		}
		if r.Validity, err = scanValidity(from, to); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) CompetencyAllowanceRates(ctx context.Context, jp payroll.JobProfileID, tier payroll.CompetencyTier) ([]payroll.CompetencyAllowanceRate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT job_profile, tier, monthly, valid_from, valid_to
		FROM competency_allowance_rates WHERE job_profile = ? AND tier = ?
		ORDER BY valid_from ASC
	`, jp, tier)
	if err != nil {
		return nil, fmt.Errorf("failed to query competency allowance rates: %w", err)
	}
	defer rows.Close()

	var out []payroll.CompetencyAllowanceRate
	for rows.Next() {
		var r payroll.CompetencyAllowanceRate
		var monthly, from string
		var to sql.NullString
		if err := rows.Scan(&r.JobProfile, &r.Tier, &monthly, &from, &to); err != nil {
			return nil, err
		}
		if r.Monthly, err = scanMoney(monthly); err != nil {
			return nil, err
		}
		if r.Validity, err = scanValidity(from, to); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) AnnualIncentiveRates(ctx context.Context, od payroll.OrgDomain, rt payroll.RoleType, grade payroll.EvaluationGrade) ([]payroll.AnnualIncentiveRate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT org_domain, role_type, grade, rate_percent, valid_from, valid_to
		FROM annual_incentive_rates WHERE org_domain = ? AND role_type = ? AND grade = ?
		ORDER BY valid_from ASC
	`, od, rt, grade)
	if err != nil {
		return nil, fmt.Errorf("failed to query annual incentive rates: %w", err)
	}
	defer rows.Close()

	var out []payroll.AnnualIncentiveRate
	for rows.Next() {
		var r payroll.AnnualIncentiveRate
		var pct, from string
		var to sql.NullString
		if err := rows.Scan(&r.OrgDomain, &r.RoleType, &r.Grade, &pct, &from, &to); err != nil {
			return nil, err
		}
		if r.RatePercent, err = decimal.NewFromString(pct); err != nil {
			return nil, fmt.Errorf("corrupt rate_percent: %w", err)
		}
		if r.Validity, err = scanValidity(from, to); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) MonthlyIncentiveRates(ctx context.Context, rl payroll.RoleLevel, grade payroll.EvaluationGrade) ([]payroll.MonthlyIncentiveRate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT role_level, grade, amount, valid_from, valid_to
		FROM monthly_incentive_rates WHERE role_level = ? AND grade = ?
		ORDER BY valid_from ASC
	`, rl, grade)
	if err != nil {
		return nil, fmt.Errorf("failed to query monthly incentive rates: %w", err)
	}
	defer rows.Close()

	var out []payroll.MonthlyIncentiveRate
	for rows.Next() {
		var r payroll.MonthlyIncentiveRate
		var amount, from string
		var to sql.NullString
		if err := rows.Scan(&r.RoleLevel, &r.Grade, &amount, &from, &to); err != nil {
			return nil, err
		}
		if r.Amount, err = scanMoney(amount); err != nil {
			return nil, err
		}
		if r.Validity, err = scanValidity(from, to); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// SaveRatePlan persists every row of the plan atomically. Rows re-seeded
// with the same (key, valid_from) replace the stored row.
func (s *Store) SaveRatePlan(ctx context.Context, plan payroll.RatePlan) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, g := range plan.Grades {
		if _, err := tx.ExecContext(ctx, `
			INSERT OR REPLACE INTO grade_master (code, level, step, title, valid_from, valid_to)
			VALUES (?, ?, ?, ?, ?, ?)
		`, g.Code, g.Level, g.Step, g.Title, g.Validity.From.String(), nullValidTo(g.Validity)); err != nil {
			return fmt.Errorf("failed to save grade %s: %w", g.Code, err)
		}
	}
	for _, p := range plan.Positions {
		if _, err := tx.ExecContext(ctx, `
			INSERT OR REPLACE INTO position_master
			(code, name, org_domain, manager_level, role_level, valid_from, valid_to)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, p.Code, p.Name, p.OrgDomain, p.ManagerLevel, p.RoleLevel,
			p.Validity.From.String(), nullValidTo(p.Validity)); err != nil {
			return fmt.Errorf("failed to save position %s: %w", p.Code, err)
		}
	}
	for _, j := range plan.JobProfiles {
		if _, err := tx.ExecContext(ctx, `
			INSERT OR REPLACE INTO job_profile_master (id, family, series, role, valid_from, valid_to)
			VALUES (?, ?, ?, ?, ?, ?)
		`, j.ID, j.Family, j.Series, j.Role, j.Validity.From.String(), nullValidTo(j.Validity)); err != nil {
			return fmt.Errorf("failed to save job profile %s: %w", j.ID, err)
		}
	}
	for _, r := range plan.BaseSalaries {
		if _, err := tx.ExecContext(ctx, `
			INSERT OR REPLACE INTO base_salary_rates
			(grade, employment_type, monthly, valid_from, valid_to)
			VALUES (?, ?, ?, ?, ?)
		`, r.Grade, r.EmploymentType, r.Monthly.Value.String(),
			r.Validity.From.String(), nullValidTo(r.Validity)); err != nil {
			return fmt.Errorf("failed to save base salary %s/%s: %w", r.Grade, r.EmploymentType, err)
		}
	}
	for _, r := range plan.PositionAllowances {
		if _, err := tx.ExecContext(ctx, `
			INSERT OR REPLACE INTO position_allowance_rates
			(position, tier, monthly, rate, valid_from, valid_to)
			VALUES (?, ?, ?, ?, ?, ?)
		`, r.Position, r.Tier, r.Monthly.Value.String(), r.Rate.String(),
			r.Validity.From.String(), nullValidTo(r.Validity)); err != nil {
			return fmt.Errorf("failed to save position allowance %s/%s: %w", r.Position, r.Tier, err)
		}
	}
	for _, r := range plan.CompetencyAllowances {
		if _, err := tx.ExecContext(ctx, `
			INSERT OR REPLACE INTO competency_allowance_rates
			(job_profile, tier, monthly, valid_from, valid_to)
			VALUES (?, ?, ?, ?, ?)
		`, r.JobProfile, r.Tier, r.Monthly.Value.String(),
			r.Validity.From.String(), nullValidTo(r.Validity)); err != nil {
			return fmt.Errorf("failed to save competency allowance %s/%s: %w", r.JobProfile, r.Tier, err)
		}
	}
	for _, r := range plan.AnnualIncentives {
		if _, err := tx.ExecContext(ctx, `
			INSERT OR REPLACE INTO annual_incentive_rates
			(org_domain, role_type, grade, rate_percent, valid_from, valid_to)
			VALUES (?, ?, ?, ?, ?, ?)
		`, r.OrgDomain, r.RoleType, r.Grade, r.RatePercent.String(),
			r.Validity.From.String(), nullValidTo(r.Validity)); err != nil {
			return fmt.Errorf("failed to save annual incentive %s/%s/%s: %w", r.OrgDomain, r.RoleType, r.Grade, err)
		}
	}
	for _, r := range plan.MonthlyIncentives {
		if _, err := tx.ExecContext(ctx, `
			INSERT OR REPLACE INTO monthly_incentive_rates
			(role_level, grade, amount, valid_from, valid_to)
			VALUES (?, ?, ?, ?, ?)
		`, r.RoleLevel, r.Grade, r.Amount.Value.String(),
			r.Validity.From.String(), nullValidTo(r.Validity)); err != nil {
			return fmt.Errorf("failed to save monthly incentive %s/%s: %w", r.RoleLevel, r.Grade, err)
		}
	}

	return tx.Commit()
}

// =============================================================================
// SNAPSHOT STORE (payroll.SnapshotStore interface)
// =============================================================================

// Upsert writes the snapshot, overwriting the (employee, pay period) row.
func (s *Store) Upsert(ctx context.Context, snap payroll.CompensationSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO compensation_snapshots
		(employee_id, pay_period, base_salary, fixed_overtime, position_allowance,
		 competency_allowance, seasonal_bonus, annual_incentive, monthly_incentive,
		 ordinary_wage, total, run_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(employee_id, pay_period) DO UPDATE SET
			base_salary = excluded.base_salary,
			fixed_overtime = excluded.fixed_overtime,
			position_allowance = excluded.position_allowance,
			competency_allowance = excluded.competency_allowance,
			seasonal_bonus = excluded.seasonal_bonus,
			annual_incentive = excluded.annual_incentive,
			monthly_incentive = excluded.monthly_incentive,
			ordinary_wage = excluded.ordinary_wage,
			total = excluded.total,
			run_id = excluded.run_id,
			created_at = excluded.created_at
	`, snap.EmployeeID, snap.Period.String(),
		snap.BaseSalary.Value.String(), snap.FixedOvertime.Value.String(),
		snap.PositionAllowance.Value.String(), snap.CompetencyAllowance.Value.String(),
		snap.SeasonalBonus.Value.String(), snap.AnnualIncentive.Value.String(),
		snap.MonthlyIncentive.Value.String(), snap.OrdinaryWage.Value.String(),
		snap.Total.Value.String(), snap.RunID,
		snap.CreatedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to upsert snapshot: %w", err)
	}
	return nil
}

// Snapshot returns the row for the key, or payroll.ErrSnapshotNotFound.
func (s *Store) Snapshot(ctx context.Context, id payroll.EmployeeID, period payroll.PayPeriod) (*payroll.CompensationSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snaps, err := s.querySnapshots(ctx, `
		SELECT employee_id, pay_period, base_salary, fixed_overtime, position_allowance,
		       competency_allowance, seasonal_bonus, annual_incentive, monthly_incentive,
		       ordinary_wage, total, run_id, created_at
		FROM compensation_snapshots WHERE employee_id = ? AND pay_period = ?
	`, id, period.String())
	if err != nil {
		return nil, err
	}
	if len(snaps) == 0 {
		return nil, payroll.ErrSnapshotNotFound
	}
	return &snaps[0], nil
}

// SnapshotsByPeriod returns every snapshot for a pay period.
func (s *Store) SnapshotsByPeriod(ctx context.Context, period payroll.PayPeriod) ([]payroll.CompensationSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.querySnapshots(ctx, `
		SELECT employee_id, pay_period, base_salary, fixed_overtime, position_allowance,
		       competency_allowance, seasonal_bonus, annual_incentive, monthly_incentive,
		       ordinary_wage, total, run_id, created_at
		FROM compensation_snapshots WHERE pay_period = ? ORDER BY employee_id ASC
	`, period.String())
}

// SnapshotsByRun returns every snapshot a run produced.
func (s *Store) SnapshotsByRun(ctx context.Context, runID payroll.RunID) ([]payroll.CompensationSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.querySnapshots(ctx, `
		SELECT employee_id, pay_period, base_salary, fixed_overtime, position_allowance,
		       competency_allowance, seasonal_bonus, annual_incentive, monthly_incentive,
		       ordinary_wage, total, run_id, created_at
		FROM compensation_snapshots WHERE run_id = ? ORDER BY employee_id ASC
	`, runID)
}

func (s *Store) querySnapshots(ctx context.Context, query string, args ...any) ([]payroll.CompensationSnapshot, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	var out []payroll.CompensationSnapshot
	for rows.Next() {
		var snap payroll.CompensationSnapshot
		var period, created string
		money := make([]string, 9)
		if err := rows.Scan(&snap.EmployeeID, &period,
			&money[0], &money[1], &money[2], &money[3], &money[4],
			&money[5], &money[6], &money[7], &money[8],
			&snap.RunID, &created); err != nil {
			return nil, err
		}
		if snap.Period, err = payroll.ParsePayPeriod(period); err != nil {
			return nil, err
		}
		fields := []*payroll.Money{
			&snap.BaseSalary, &snap.FixedOvertime, &snap.PositionAllowance,
			&snap.CompetencyAllowance, &snap.SeasonalBonus, &snap.AnnualIncentive,
			&snap.MonthlyIncentive, &snap.OrdinaryWage, &snap.Total,
		}
		for i, f := range fields {
			if *f, err = scanMoney(money[i]); err != nil {
				return nil, err
			}
		}
		if snap.CreatedAt, err = time.Parse(time.RFC3339, created); err != nil {
			return nil, err
		}
		out = append(out, snap)
	}
	return out, rows.Err()
}

// =============================================================================
// RUN LOG STORE (payroll.RunLogStore interface)
// =============================================================================

// SaveRunLog upserts the run record by id.
func (s *Store) SaveRunLog(ctx context.Context, r payroll.CalcRunLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	changesJSON, err := json.Marshal(r.Changes)
	if err != nil {
		return fmt.Errorf("failed to encode run changes: %w", err)
	}
	errorsJSON, err := json.Marshal(r.Errors)
	if err != nil {
		return fmt.Errorf("failed to encode run errors: %w", err)
	}

	var completed any
	if r.CompletedAt != nil {
		completed = r.CompletedAt.UTC().Format(time.RFC3339)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO calc_run_logs
		(id, pay_period, formula_version, status, affected_count, changes_json,
		 errors_json, started_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			affected_count = excluded.affected_count,
			changes_json = excluded.changes_json,
			errors_json = excluded.errors_json,
			completed_at = excluded.completed_at
	`, r.ID, r.Period.String(), r.FormulaVersion, r.Status, r.AffectedCount,
		string(changesJSON), string(errorsJSON),
		r.StartedAt.UTC().Format(time.RFC3339), completed)
	if err != nil {
		return fmt.Errorf("failed to save run log: %w", err)
	}
	return nil
}

// RunLog returns the record, or payroll.ErrRunNotFound.
func (s *Store) RunLog(ctx context.Context, id payroll.RunID) (*payroll.CalcRunLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	logs, err := s.queryRunLogs(ctx, `
		SELECT id, pay_period, formula_version, status, affected_count, changes_json,
		       errors_json, started_at, completed_at
		FROM calc_run_logs WHERE id = ?
	`, id)
	if err != nil {
		return nil, err
	}
	if len(logs) == 0 {
		return nil, payroll.ErrRunNotFound
	}
	return &logs[0], nil
}

// RunLogs returns records for a period, newest first. Empty period
// returns all.
func (s *Store) RunLogs(ctx context.Context, period payroll.PayPeriod) ([]payroll.CalcRunLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if period == "" {
		return s.queryRunLogs(ctx, `
			SELECT id, pay_period, formula_version, status, affected_count, changes_json,
			       errors_json, started_at, completed_at
			FROM calc_run_logs ORDER BY started_at DESC
		`)
	}
	return s.queryRunLogs(ctx, `
		SELECT id, pay_period, formula_version, status, affected_count, changes_json,
		       errors_json, started_at, completed_at
		FROM calc_run_logs WHERE pay_period = ? ORDER BY started_at DESC
	`, period.String())
}

func (s *Store) queryRunLogs(ctx context.Context, query string, args ...any) ([]payroll.CalcRunLog, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query run logs: %w", err)
	}
	defer rows.Close()

	var out []payroll.CalcRunLog
	for rows.Next() {
		var r payroll.CalcRunLog
		var period, changesJSON, errorsJSON, started string
		var completed sql.NullString
		if err := rows.Scan(&r.ID, &period, &r.FormulaVersion, &r.Status,
			&r.AffectedCount, &changesJSON, &errorsJSON, &started, &completed); err != nil {
			return nil, err
		}
		if r.Period, err = payroll.ParsePayPeriod(period); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(changesJSON), &r.Changes); err != nil {
			return nil, fmt.Errorf("corrupt changes_json for %s: %w", r.ID, err)
		}
		if err := json.Unmarshal([]byte(errorsJSON), &r.Errors); err != nil {
			return nil, fmt.Errorf("corrupt errors_json for %s: %w", r.ID, err)
		}
		if r.StartedAt, err = time.Parse(time.RFC3339, started); err != nil {
			return nil, err
		}
		if completed.Valid {
			t, err := time.Parse(time.RFC3339, completed.String)
			if err != nil {
				return nil, err
			}
			r.CompletedAt = &t
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// =============================================================================
// ADVISORY STORE (payroll.AdvisoryStore interface)
// =============================================================================

func (s *Store) AppendAdvisory(ctx context.Context, a payroll.Advisory) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO advisories (id, run_id, employee_id, pay_period, code, message, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, a.ID, a.RunID, a.EmployeeID, a.Period.String(), a.Code, a.Message,
		a.CreatedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to append advisory: %w", err)
	}
	return nil
}

func (s *Store) AdvisoriesByRun(ctx context.Context, runID payroll.RunID) ([]payroll.Advisory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, run_id, employee_id, pay_period, code, message, created_at
		FROM advisories WHERE run_id = ? ORDER BY created_at ASC, id ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query advisories: %w", err)
	}
	defer rows.Close()

	var out []payroll.Advisory
	for rows.Next() {
		var a payroll.Advisory
		var period, created string
		if err := rows.Scan(&a.ID, &a.RunID, &a.EmployeeID, &period, &a.Code, &a.Message, &created); err != nil {
			return nil, err
		}
		if a.Period, err = payroll.ParsePayPeriod(period); err != nil {
			return nil, err
		}
		if a.CreatedAt, err = time.Parse(time.RFC3339, created); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// =============================================================================
// SCAN HELPERS
// =============================================================================

func scanMoney(raw string) (payroll.Money, error) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return payroll.Money{}, fmt.Errorf("corrupt monetary value %q: %w", raw, err)
	}
	return payroll.MoneyFromDecimal(d), nil
}

func scanValidity(from string, to sql.NullString) (payroll.Validity, error) {
	f, err := payroll.ParseDate(from)
	if err != nil {
		return payroll.Validity{}, fmt.Errorf("corrupt valid_from %q: %w", from, err)
	}
	v := payroll.Validity{From: f}
	if to.Valid && to.String != "" {
		t, err := payroll.ParseDate(to.String)
		if err != nil {
			return payroll.Validity{}, fmt.Errorf("corrupt valid_to %q: %w", to.String, err)
		}
		v.To = &t
	}
	return v, nil
}

func nullValidTo(v payroll.Validity) any {
	if v.To == nil {
		return nil
	}
	return v.To.String()
}

func nullDate(d payroll.Date) any {
	if d.IsZero() {
		return nil
	}
	return d.String()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
