/*
store.go - Persistence and collaborator interfaces

PURPOSE:

	Defines the interfaces between the engine and its surroundings. The engine
	reads versioned rate tables (read-only from its perspective), reads or
	lazily creates compensation profiles, upserts snapshots keyed by
	(employee, pay period), and appends run logs and advisories.

KEY INTERFACES:

	RateStore:      Candidate-row reads per key for every versioned table
	ProfileStore:   Profile reads plus atomic create-if-absent
	SnapshotStore:  Idempotent upsert-by-(employee, period) persistence
	RunLogStore:    Run record persistence
	AdvisoryStore:  Structured, queryable fallback advisories
	Directory:      External employee directory (identity, type, hire date)
	EvaluationSource: External evaluation-grade provider (may be incomplete)

UPSERT CONTRACT:

	SnapshotStore.Upsert overwrites in place for an existing
	(employee, pay period) key; re-running a period never duplicates rows.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: Production SQLite
  - payroll/store/memory.go: In-memory for testing

SEE ALSO:
  - snapshot.go: Snapshot and reporting aggregate types
  - runner.go: CalcRunLog type
*/
package payroll

import "context"

// =============================================================================
// RATE STORE - Read-only versioned table access
// =============================================================================

// RateStore returns the candidate rows for a key; date filtering and
// tie-breaking happen in RateResolver so every implementation resolves
// identically. SaveRatePlan is the administrative seed path.
type RateStore interface {
	Grades(ctx context.Context, code GradeCode) ([]GradeMaster, error)
	Positions(ctx context.Context, code PositionCode) ([]PositionMaster, error)
	JobProfiles(ctx context.Context, id JobProfileID) ([]JobProfileMaster, error)

	BaseSalaryRates(ctx context.Context, grade GradeCode, et EmploymentType) ([]BaseSalaryRate, error)
	PositionAllowanceRates(ctx context.Context, pos PositionCode, tier PositionTier) ([]PositionAllowanceRate, error)
	CompetencyAllowanceRates(ctx context.Context, jp JobProfileID, tier CompetencyTier) ([]CompetencyAllowanceRate, error)
	AnnualIncentiveRates(ctx context.Context, od OrgDomain, rt RoleType, grade EvaluationGrade) ([]AnnualIncentiveRate, error)
	MonthlyIncentiveRates(ctx context.Context, rl RoleLevel, grade EvaluationGrade) ([]MonthlyIncentiveRate, error)

	// SaveRatePlan persists every row of the plan. Existing rows with the
	// same (key, valid_from) are replaced; the engine never calls this.
	SaveRatePlan(ctx context.Context, plan RatePlan) error
}

// =============================================================================
// PROFILE STORE
// =============================================================================

// ProfileStore persists compensation profiles.
type ProfileStore interface {
	// Profile returns the profile, or ErrProfileNotFound.
	Profile(ctx context.Context, id EmployeeID) (*CompensationProfile, error)

	// CreateIfAbsent atomically creates the given profile unless one already
	// exists, and returns the stored profile either way. Two simultaneous
	// first-accesses for the same employee must not create two profiles.
	CreateIfAbsent(ctx context.Context, p CompensationProfile) (*CompensationProfile, error)

	// SaveProfile overwrites the profile (HR-facing mutation path).
	SaveProfile(ctx context.Context, p CompensationProfile) error
}

// =============================================================================
// SNAPSHOT / RUN LOG / ADVISORY STORES
// =============================================================================

// SnapshotStore persists computed snapshots keyed by (employee, pay period).
type SnapshotStore interface {
	// Upsert writes the snapshot, overwriting any existing row with the same
	// (employee, pay period) key. Never duplicates.
	Upsert(ctx context.Context, s CompensationSnapshot) error

	// Snapshot returns the row for the key, or ErrSnapshotNotFound.
	Snapshot(ctx context.Context, id EmployeeID, period PayPeriod) (*CompensationSnapshot, error)

	// SnapshotsByPeriod returns every snapshot for a pay period.
	SnapshotsByPeriod(ctx context.Context, period PayPeriod) ([]CompensationSnapshot, error)

	// SnapshotsByRun returns every snapshot a run produced.
	SnapshotsByRun(ctx context.Context, runID RunID) ([]CompensationSnapshot, error)
}

// RunLogStore persists batch run records.
type RunLogStore interface {
	// SaveRunLog upserts the run record by id. The owning BatchRunner saves
	// at start (running) and again at terminal status.
	SaveRunLog(ctx context.Context, r CalcRunLog) error

	// RunLog returns the record, or ErrRunNotFound.
	RunLog(ctx context.Context, id RunID) (*CalcRunLog, error)

	// RunLogs returns records for a period, newest first. Empty period
	// returns all.
	RunLogs(ctx context.Context, period PayPeriod) ([]CalcRunLog, error)
}

// AdvisoryStore persists structured fallback advisories so operators can
// audit "how many employees got a default value this run".
type AdvisoryStore interface {
	AppendAdvisory(ctx context.Context, a Advisory) error
	AdvisoriesByRun(ctx context.Context, runID RunID) ([]Advisory, error)
}

// =============================================================================
// EXTERNAL COLLABORATORS
// =============================================================================

// Directory is the employee directory the engine consumes. Identity data is
// owned elsewhere; the engine only reads.
type Directory interface {
	// Employee returns the identity record, or ErrEmployeeNotFound.
	Employee(ctx context.Context, id EmployeeID) (*Employee, error)

	// ActiveEmployees returns the ids of all active employees.
	ActiveEmployees(ctx context.Context) ([]EmployeeID, error)
}

// EvaluationSource supplies performance grades. It is treated as an external
// data source that may be incomplete: ok=false means no grade exists, which
// the engine tolerates by producing zero variable pay.
type EvaluationSource interface {
	AnnualGrade(ctx context.Context, id EmployeeID, year int) (EvaluationGrade, bool, error)
	MonthlyGrade(ctx context.Context, id EmployeeID, year int, month int) (EvaluationGrade, bool, error)
}
