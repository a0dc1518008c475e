/*
Package payroll provides the compensation calculation engine.

PURPOSE:

	This package contains the types and algorithms that derive an employee's
	monthly pay components (base salary, fixed overtime, position allowance,
	competency allowance, seasonal bonus, variable incentive) from time-versioned
	rate tables and a per-employee compensation profile, and that execute those
	computations in bulk across a workforce.

KEY CONCEPTS IN THIS FILE (types.go):
  - Money: A currency amount backed by decimal.Decimal (no float errors)
  - Employee: Identity record consumed from the directory collaborator
  - EmploymentType: Determines which variable-pay path applies
  - Classification enums: OrgDomain, RoleType, RoleLevel, tiers, grades

DESIGN PRINCIPLES:
 1. Precision: Uses decimal.Decimal for all currency arithmetic
 2. Type Safety: Strong typing for IDs prevents mixing employee/run/grade IDs
 3. Explicit classification: OrgDomain and RoleLevel are enumerated fields
    populated at data-load time, never re-derived from strings in the engine

USAGE:

	base := payroll.Won(3_000_000)
	ot := base.DivInt(payroll.StandardMonthlyHours).
	    MulInt(payroll.FixedOvertimeHours).
	    Mul(payroll.OvertimeMultiplier).
	    Round()

SEE ALSO:
  - rates.go: Versioned rate tables and resolution
  - calculator.go: The ordered calculation pipeline
  - runner.go: Bulk execution with per-employee failure isolation
*/
package payroll

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// MONEY - Currency amount (whole currency units, decimal-backed)
// =============================================================================

// Money is a currency amount. All engine outputs are rounded half-up to the
// whole currency unit before persistence; intermediate values keep full
// decimal precision.
type Money struct {
	Value decimal.Decimal
}

// Won creates a Money from a whole-unit integer amount.
func Won(v int64) Money {
	return Money{Value: decimal.NewFromInt(v)}
}

// MoneyFromDecimal wraps a raw decimal as Money.
func MoneyFromDecimal(d decimal.Decimal) Money {
	return Money{Value: d}
}

// MustParseMoney parses a decimal string, returning zero on failure.
// Used by stores when reading persisted values.
func MustParseMoney(s string) Money {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{Value: decimal.Zero}
	}
	return Money{Value: d}
}

func ZeroMoney() Money { return Money{Value: decimal.Zero} }

func (m Money) Add(o Money) Money           { return Money{Value: m.Value.Add(o.Value)} }
func (m Money) Sub(o Money) Money           { return Money{Value: m.Value.Sub(o.Value)} }
func (m Money) Mul(r decimal.Decimal) Money { return Money{Value: m.Value.Mul(r)} }
func (m Money) Div(r decimal.Decimal) Money { return Money{Value: m.Value.Div(r)} }
func (m Money) MulInt(n int64) Money        { return Money{Value: m.Value.Mul(decimal.NewFromInt(n))} }
func (m Money) DivInt(n int64) Money        { return Money{Value: m.Value.Div(decimal.NewFromInt(n))} }
func (m Money) Neg() Money                  { return Money{Value: m.Value.Neg()} }
func (m Money) Abs() Money                  { return Money{Value: m.Value.Abs()} }
func (m Money) IsZero() bool                { return m.Value.IsZero() }
func (m Money) IsNegative() bool            { return m.Value.IsNegative() }
func (m Money) IsPositive() bool            { return m.Value.IsPositive() }
func (m Money) Equal(o Money) bool          { return m.Value.Equal(o.Value) }
func (m Money) GreaterThan(o Money) bool    { return m.Value.GreaterThan(o.Value) }
func (m Money) LessThan(o Money) bool       { return m.Value.LessThan(o.Value) }
func (m Money) String() string              { return m.Value.String() }

// Round rounds half-up to the whole currency unit. All persisted component
// amounts go through this exactly once, at the point the component is final.
func (m Money) Round() Money {
	return Money{Value: m.Value.Round(0)}
}

// Int64 returns the whole-unit value. Only meaningful after Round.
func (m Money) Int64() int64 {
	return m.Value.IntPart()
}

func (m Money) MarshalJSON() ([]byte, error) { return m.Value.MarshalJSON() }

func (m *Money) UnmarshalJSON(b []byte) error { return m.Value.UnmarshalJSON(b) }

// =============================================================================
// IDENTIFIERS
// =============================================================================

type EmployeeID string
type RunID string
type GradeCode string
type PositionCode string
type JobProfileID string

// =============================================================================
// EMPLOYMENT TYPE - Selects the variable-pay path
// =============================================================================

type EmploymentType string

const (
	// EmploymentRegular employees receive the annual incentive, paid once a
	// year in the configured payout month.
	EmploymentRegular EmploymentType = "regular"

	// EmploymentProfessional employees receive the monthly incentive,
	// computed every pay period.
	EmploymentProfessional EmploymentType = "professional"

	// EmploymentContract and EmploymentPartTime receive no variable pay.
	EmploymentContract EmploymentType = "contract"
	EmploymentPartTime EmploymentType = "part_time"
)

// =============================================================================
// CLASSIFICATION ENUMS - Explicit fields, populated at data-load time
// =============================================================================

// OrgDomain classifies the organizational side an employee sits on.
// Populated on the employee record when directory data is loaded
// (see factory.ClassifyOrgDomain), never re-derived by the engine.
type OrgDomain string

const (
	OrgHeadquarters OrgDomain = "headquarters"
	OrgField        OrgDomain = "field"
)

// RoleType distinguishes position holders from staff for the annual
// incentive rate lookup. Derived from whether a position is assigned.
type RoleType string

const (
	RoleManager RoleType = "manager"
	RoleStaff   RoleType = "staff"
)

// RoleLevel keys the monthly incentive table. Carried as an explicit field
// on PositionMaster; employees without a position fall back to a grade-level
// mapping (see RoleLevelForGradeLevel).
type RoleLevel string

const (
	RoleLevelLead   RoleLevel = "lead"
	RoleLevelSenior RoleLevel = "senior"
	RoleLevelJunior RoleLevel = "junior"
)

// RoleLevelForGradeLevel maps a grade's numeric level to a RoleLevel for
// employees with no assigned position.
func RoleLevelForGradeLevel(level int) RoleLevel {
	switch {
	case level >= 5:
		return RoleLevelLead
	case level >= 3:
		return RoleLevelSenior
	default:
		return RoleLevelJunior
	}
}

// PositionTier keys the position allowance table. TierFlat is the
// distinguished "no tiering" value: a flat allowance row that applies
// regardless of the employee's assigned tier, used as fallback when a
// tier-specific row is absent.
type PositionTier string

const (
	TierFlat PositionTier = "flat"
	Tier1    PositionTier = "t1"
	Tier2    PositionTier = "t2"
	Tier3    PositionTier = "t3"
)

// CompetencyTier keys the competency allowance table.
type CompetencyTier string

const (
	CompetencyBasic      CompetencyTier = "basic"
	CompetencyProficient CompetencyTier = "proficient"
	CompetencyExpert     CompetencyTier = "expert"
	CompetencyMastery    CompetencyTier = "mastery"
)

// EvaluationGrade is the performance grade supplied by the evaluation
// subsystem. The engine treats the set as opaque; only the rate tables
// attach meaning to individual grades.
type EvaluationGrade string

const (
	GradeS EvaluationGrade = "S"
	GradeA EvaluationGrade = "A"
	GradeB EvaluationGrade = "B"
	GradeC EvaluationGrade = "C"
	GradeD EvaluationGrade = "D"
)

// =============================================================================
// EMPLOYEE - Identity record from the directory collaborator
// =============================================================================

// Employee is the identity record the engine consumes from the employee
// directory. OrgDomain is an explicit enumerated field set when directory
// data is loaded; the engine never classifies from the department string.
type Employee struct {
	ID             EmployeeID
	Name           string
	Email          string
	EmploymentType EmploymentType
	Department     string
	OrgDomain      OrgDomain
	HireDate       Date
	Active         bool
}

// RoleType returns the role classification used by the annual incentive
// lookup: manager if a position is assigned, staff otherwise.
func (p *CompensationProfile) RoleType() RoleType {
	if p.Position != "" {
		return RoleManager
	}
	return RoleStaff
}
