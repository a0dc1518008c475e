/*
rates.go - Time-versioned rate tables and resolution

PURPOSE:

	Every rate table shares the same versioning shape: (dimension key, tier key,
	validity interval, amount-or-rate). For a given key pair the intervals must
	not overlap; ValidTo == nil means open-ended/current. Resolution for a
	reference date picks the row whose interval contains that date.

TIE-BREAK:

	The non-overlap invariant is validated at plan load (factory.ValidatePlan),
	but resolution does not assume it holds: when multiple rows match, the row
	with the most recent ValidFrom wins. This is deterministic and documented,
	rather than relying on arbitrary row order.

FALLBACK:

	PositionAllowance resolution retries with TierFlat when no row matches the
	employee's assigned tier. Absence after fallback surfaces as
	ErrRateNotFound; callers apply their own default policy.

SEE ALSO:
  - store.go: RateStore supplies candidate rows per key
  - calculator.go: Call-site default policies for ErrRateNotFound
*/
package payroll

import (
	"context"

	"github.com/shopspring/decimal"
)

// =============================================================================
// VALIDITY - Shared versioning shape
// =============================================================================

// Validity is a closed interval [From, To]; To == nil is open-ended.
type Validity struct {
	From Date
	To   *Date
}

// Contains reports whether the interval covers the given date.
func (v Validity) Contains(d Date) bool {
	if d.Before(v.From) {
		return false
	}
	return v.To == nil || d.BeforeOrEqual(*v.To)
}

// Overlaps reports whether two intervals share at least one day.
func (v Validity) Overlaps(o Validity) bool {
	if v.To != nil && v.To.Before(o.From) {
		return false
	}
	if o.To != nil && o.To.Before(v.From) {
		return false
	}
	return true
}

// versioned is implemented by every rate-table row type.
type versioned interface {
	ValidityInterval() Validity
}

// resolveCurrent picks the row valid at the reference date. When multiple
// rows match (an invariant violation), the most recently started interval
// wins.
func resolveCurrent[R versioned](rows []R, at Date) (R, bool) {
	var (
		best  R
		found bool
	)
	for _, row := range rows {
		if !row.ValidityInterval().Contains(at) {
			continue
		}
		if !found || row.ValidityInterval().From.After(best.ValidityInterval().From) {
			best = row
			found = true
		}
	}
	return best, found
}

// =============================================================================
// MASTER TABLES
// =============================================================================

// GradeMaster defines a salary grade: its level and step resolve base salary
// and, for position-less employees, the monthly-incentive role level.
type GradeMaster struct {
	Code     GradeCode
	Level    int
	Step     int
	Title    string
	Validity Validity
}

func (g GradeMaster) ValidityInterval() Validity { return g.Validity }

// PositionMaster defines an organizational position. OrgDomain and RoleLevel
// are explicit enumerated fields populated at data-load time.
type PositionMaster struct {
	Code         PositionCode
	Name         string
	OrgDomain    OrgDomain
	ManagerLevel int
	RoleLevel    RoleLevel
	Validity     Validity
}

func (p PositionMaster) ValidityInterval() Validity { return p.Validity }

// JobProfileMaster defines a job profile in the family/series/role taxonomy.
type JobProfileMaster struct {
	ID       JobProfileID
	Family   string
	Series   string
	Role     string
	Validity Validity
}

func (j JobProfileMaster) ValidityInterval() Validity { return j.Validity }

// =============================================================================
// RATE TABLES
// =============================================================================

// BaseSalaryRate is the monthly base amount for (grade, employment type).
type BaseSalaryRate struct {
	Grade          GradeCode
	EmploymentType EmploymentType
	Monthly        Money
	Validity       Validity
}

func (r BaseSalaryRate) ValidityInterval() Validity { return r.Validity }

// PositionAllowanceRate is the monthly allowance for (position, tier).
// Tier == TierFlat rows apply to any tier as a fallback.
type PositionAllowanceRate struct {
	Position PositionCode
	Tier     PositionTier
	Monthly  Money
	Rate     decimal.Decimal
	Validity Validity
}

func (r PositionAllowanceRate) ValidityInterval() Validity { return r.Validity }

// CompetencyAllowanceRate is the monthly allowance for (job profile, tier).
type CompetencyAllowanceRate struct {
	JobProfile JobProfileID
	Tier       CompetencyTier
	Monthly    Money
	Validity   Validity
}

func (r CompetencyAllowanceRate) ValidityInterval() Validity { return r.Validity }

// AnnualIncentiveRate is the annual payout percentage for
// (org domain, role type, evaluation grade).
type AnnualIncentiveRate struct {
	OrgDomain OrgDomain
	RoleType  RoleType
	Grade     EvaluationGrade
	// RatePercent is the payout percentage (150 means 150%).
	RatePercent decimal.Decimal
	Validity    Validity
}

func (r AnnualIncentiveRate) ValidityInterval() Validity { return r.Validity }

// MonthlyIncentiveRate is the flat monthly payout for
// (role level, evaluation grade).
type MonthlyIncentiveRate struct {
	RoleLevel RoleLevel
	Grade     EvaluationGrade
	Amount    Money
	Validity  Validity
}

func (r MonthlyIncentiveRate) ValidityInterval() Validity { return r.Validity }

// RatePlan bundles every master and rate table for seeding and validation.
type RatePlan struct {
	Grades               []GradeMaster
	Positions            []PositionMaster
	JobProfiles          []JobProfileMaster
	BaseSalaries         []BaseSalaryRate
	PositionAllowances   []PositionAllowanceRate
	CompetencyAllowances []CompetencyAllowanceRate
	AnnualIncentives     []AnnualIncentiveRate
	MonthlyIncentives    []MonthlyIncentiveRate
}

// =============================================================================
// RATE RESOLVER - Single applicable row per key and reference date
// =============================================================================

// RateResolver answers "which row applies on this date" for every versioned
// table. Absence is signaled with ErrRateNotFound, never a panic; callers
// decide their own default policy.
type RateResolver struct {
	Rates RateStore
}

func NewRateResolver(rates RateStore) *RateResolver {
	return &RateResolver{Rates: rates}
}

// Grade resolves the grade master row valid at the reference date.
func (rr *RateResolver) Grade(ctx context.Context, code GradeCode, at Date) (*GradeMaster, error) {
	rows, err := rr.Rates.Grades(ctx, code)
	if err != nil {
		return nil, err
	}
	row, ok := resolveCurrent(rows, at)
	if !ok {
		return nil, ErrRateNotFound
	}
	return &row, nil
}

// Position resolves the position master row valid at the reference date.
func (rr *RateResolver) Position(ctx context.Context, code PositionCode, at Date) (*PositionMaster, error) {
	rows, err := rr.Rates.Positions(ctx, code)
	if err != nil {
		return nil, err
	}
	row, ok := resolveCurrent(rows, at)
	if !ok {
		return nil, ErrRateNotFound
	}
	return &row, nil
}

// JobProfile resolves the job profile master row valid at the reference date.
func (rr *RateResolver) JobProfile(ctx context.Context, id JobProfileID, at Date) (*JobProfileMaster, error) {
	rows, err := rr.Rates.JobProfiles(ctx, id)
	if err != nil {
		return nil, err
	}
	row, ok := resolveCurrent(rows, at)
	if !ok {
		return nil, ErrRateNotFound
	}
	return &row, nil
}

// BaseSalary resolves the base salary row for (grade, employment type).
func (rr *RateResolver) BaseSalary(ctx context.Context, grade GradeCode, et EmploymentType, at Date) (*BaseSalaryRate, error) {
	rows, err := rr.Rates.BaseSalaryRates(ctx, grade, et)
	if err != nil {
		return nil, err
	}
	row, ok := resolveCurrent(rows, at)
	if !ok {
		return nil, ErrRateNotFound
	}
	return &row, nil
}

// PositionAllowance resolves the allowance row for (position, tier),
// retrying with TierFlat before declaring the row absent.
func (rr *RateResolver) PositionAllowance(ctx context.Context, pos PositionCode, tier PositionTier, at Date) (*PositionAllowanceRate, error) {
	rows, err := rr.Rates.PositionAllowanceRates(ctx, pos, tier)
	if err != nil {
		return nil, err
	}
	if row, ok := resolveCurrent(rows, at); ok {
		return &row, nil
	}
	if tier != TierFlat {
		rows, err = rr.Rates.PositionAllowanceRates(ctx, pos, TierFlat)
		if err != nil {
			return nil, err
		}
		if row, ok := resolveCurrent(rows, at); ok {
			return &row, nil
		}
	}
	return nil, ErrRateNotFound
}

// CompetencyAllowance resolves the allowance row for (job profile, tier).
func (rr *RateResolver) CompetencyAllowance(ctx context.Context, jp JobProfileID, tier CompetencyTier, at Date) (*CompetencyAllowanceRate, error) {
	rows, err := rr.Rates.CompetencyAllowanceRates(ctx, jp, tier)
	if err != nil {
		return nil, err
	}
	row, ok := resolveCurrent(rows, at)
	if !ok {
		return nil, ErrRateNotFound
	}
	return &row, nil
}

// AnnualIncentive resolves the payout percentage for
// (org domain, role type, grade).
func (rr *RateResolver) AnnualIncentive(ctx context.Context, od OrgDomain, rt RoleType, grade EvaluationGrade, at Date) (*AnnualIncentiveRate, error) {
	rows, err := rr.Rates.AnnualIncentiveRates(ctx, od, rt, grade)
	if err != nil {
		return nil, err
	}
	row, ok := resolveCurrent(rows, at)
	if !ok {
		return nil, ErrRateNotFound
	}
	return &row, nil
}

// MonthlyIncentive resolves the flat payout for (role level, grade).
func (rr *RateResolver) MonthlyIncentive(ctx context.Context, rl RoleLevel, grade EvaluationGrade, at Date) (*MonthlyIncentiveRate, error) {
	rows, err := rr.Rates.MonthlyIncentiveRates(ctx, rl, grade)
	if err != nil {
		return nil, err
	}
	row, ok := resolveCurrent(rows, at)
	if !ok {
		return nil, ErrRateNotFound
	}
	return &row, nil
}
