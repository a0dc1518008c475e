/*
calculator.go - The ordered monthly compensation pipeline

PURPOSE:

	Computes one employee's compensation snapshot for one pay period. The
	steps are strictly ordered because each consumes the prior step's output:

	  1. reference date   = cutoff day of the target month
	  2. base salary      (floor default on missing row)
	  3. position allowance (flat-tier fallback, initial-position proration)
	  4. competency allowance
	  5. seasonal bonus   (working-day proration against the holiday date)
	  6. ordinary wage    = base + position + competency + seasonal
	  7. fixed overtime   = round_half_up(ordinary / 209 * 20 * 1.5)
	  8. variable pay     (annual or monthly path by employment type)
	  9. snapshot upsert

FAILURE ASYMMETRY (intentional):

	Rate lookups that are merely absent never abort the calculation - partial
	or default data still produces a best-effort number rather than blocking
	payroll, and every such default records a structured advisory. Only a
	missing employee identity, or an unexpected failure (store fault,
	malformed profile), fails the calculation for that one employee.

SEE ALSO:
  - rates.go: Resolution and tie-break rules
  - advisory.go: The structured fallback records
  - runner.go: Per-employee failure boundary around Calculate
*/
package payroll

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// RULES - Named constants of the pay formula, injected
// =============================================================================

// StandardMonthlyHours is the fixed monthly standard-hours divisor used for
// the fixed overtime computation.
const StandardMonthlyHours = 209

// FormulaVersion tags every run with the formula revision that produced it.
const FormulaVersion = "2025.08"

// Rules carries the formula parameters. Injected so tests can vary them
// without shared state.
type Rules struct {
	// CutoffDay anchors the reference date: the pay cycle runs
	// prior-month-(CutoffDay+1) through current-month-CutoffDay.
	CutoffDay int

	// FixedOvertimeHours and OvertimeMultiplier define the fixed overtime
	// formula together with StandardMonthlyHours.
	FixedOvertimeHours int64
	OvertimeMultiplier decimal.Decimal

	// BaseSalaryFloor substitutes for a missing base salary row.
	BaseSalaryFloor Money

	// InitialPositionRate scales the position allowance while fewer than
	// InitialPositionWindowDays have elapsed since the position start.
	InitialPositionRate       decimal.Decimal
	InitialPositionWindowDays int

	// AnnualIncentiveMonth is the designated annual-payout month.
	AnnualIncentiveMonth time.Month
}

// DefaultRules returns the production formula parameters.
func DefaultRules() Rules {
	return Rules{
		CutoffDay:                 20,
		FixedOvertimeHours:        20,
		OvertimeMultiplier:        decimal.NewFromFloat(1.5),
		BaseSalaryFloor:           Won(2_000_000),
		InitialPositionRate:       decimal.NewFromFloat(0.8),
		InitialPositionWindowDays: 365,
		AnnualIncentiveMonth:      time.January,
	}
}

// =============================================================================
// CALCULATOR
// =============================================================================

// Calculator orchestrates the ordered computation of one employee's monthly
// snapshot from the rate and profile resolvers.
type Calculator struct {
	Rates      *RateResolver
	Profiles   *ProfileResolver
	Directory  Directory
	Evaluation EvaluationSource
	Snapshots  SnapshotStore
	Advisories AdvisoryStore
	Calendar   HolidayCalendar
	Rules      Rules
}

// Calculate computes and upserts the snapshot for (employee, period).
// A missing employee is a hard failure; missing rate rows are not.
func (c *Calculator) Calculate(ctx context.Context, id EmployeeID, period PayPeriod, runID RunID) (*CompensationSnapshot, error) {
	emp, err := c.Directory.Employee(ctx, id)
	if err != nil {
		return nil, err
	}

	profile, err := c.Profiles.GetOrCreate(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("resolving profile: %w", err)
	}

	ref := period.ReferenceDate(c.Rules.CutoffDay)

	snap := &CompensationSnapshot{
		EmployeeID: id,
		Period:     period,
		RunID:      runID,
	}

	snap.BaseSalary, err = c.baseSalary(ctx, profile, emp, period, ref, runID)
	if err != nil {
		return nil, err
	}

	snap.PositionAllowance, err = c.positionAllowance(ctx, profile, period, ref, runID)
	if err != nil {
		return nil, err
	}

	snap.CompetencyAllowance, err = c.competencyAllowance(ctx, profile, period, ref, runID)
	if err != nil {
		return nil, err
	}

	snap.SeasonalBonus = c.seasonalBonus(period, emp.HireDate, snap.AllowanceBase())

	snap.OrdinaryWage = snap.AllowanceBase().Add(snap.SeasonalBonus)

	snap.FixedOvertime = FixedOvertime(snap.OrdinaryWage, c.Rules)

	switch emp.EmploymentType {
	case EmploymentRegular:
		snap.AnnualIncentive, err = c.annualIncentive(ctx, emp, profile, snap, period, ref, runID)
	case EmploymentProfessional:
		snap.MonthlyIncentive, err = c.monthlyIncentive(ctx, emp, profile, period, ref, runID)
	default:
		// No variable pay for other employment types.
	}
	if err != nil {
		return nil, err
	}

	snap.Total = snap.OrdinaryWage.
		Add(snap.FixedOvertime).
		Add(snap.AnnualIncentive).
		Add(snap.MonthlyIncentive)

	snap.CreatedAt = time.Now().UTC()
	if err := c.Snapshots.Upsert(ctx, *snap); err != nil {
		return nil, fmt.Errorf("persisting snapshot: %w", err)
	}
	return snap, nil
}

// FixedOvertime computes round_half_up(W / 209 * hours * multiplier).
// Exposed so reporting can re-derive the stored value.
func FixedOvertime(ordinaryWage Money, rules Rules) Money {
	return ordinaryWage.
		DivInt(StandardMonthlyHours).
		MulInt(rules.FixedOvertimeHours).
		Mul(rules.OvertimeMultiplier).
		Round()
}

// =============================================================================
// COMPONENT STEPS
// =============================================================================

func (c *Calculator) baseSalary(ctx context.Context, profile *CompensationProfile, emp *Employee, period PayPeriod, ref Date, runID RunID) (Money, error) {
	rate, err := c.Rates.BaseSalary(ctx, profile.Grade, emp.EmploymentType, ref)
	if errors.Is(err, ErrRateNotFound) {
		c.advise(ctx, runID, profile.EmployeeID, period, AdvisoryBaseSalaryFloor,
			fmt.Sprintf("no base salary row for grade %s / %s as of %s; floor %s applied",
				profile.Grade, emp.EmploymentType, ref, c.Rules.BaseSalaryFloor))
		return c.Rules.BaseSalaryFloor, nil
	}
	if err != nil {
		return Money{}, fmt.Errorf("base salary lookup: %w", err)
	}
	return rate.Monthly, nil
}

func (c *Calculator) positionAllowance(ctx context.Context, profile *CompensationProfile, period PayPeriod, ref Date, runID RunID) (Money, error) {
	if !profile.HasPosition() {
		return ZeroMoney(), nil
	}

	rate, err := c.Rates.PositionAllowance(ctx, profile.Position, profile.PositionTier, ref)
	if errors.Is(err, ErrRateNotFound) {
		c.advise(ctx, runID, profile.EmployeeID, period, AdvisoryPositionAllowanceMissing,
			fmt.Sprintf("no position allowance row for %s tier %s as of %s; zero applied",
				profile.Position, profile.PositionTier, ref))
		return ZeroMoney(), nil
	}
	if err != nil {
		return Money{}, fmt.Errorf("position allowance lookup: %w", err)
	}

	amount := rate.Monthly
	if profile.InitialPosition {
		elapsed := DaysBetween(profile.PositionStart, ref)
		if elapsed < c.Rules.InitialPositionWindowDays {
			full := amount
			amount = amount.Mul(c.Rules.InitialPositionRate).Round()
			c.advise(ctx, runID, profile.EmployeeID, period, AdvisoryInitialPositionProrated,
				fmt.Sprintf("initial position since %s (%d days elapsed): allowance %s reduced to %s",
					profile.PositionStart, elapsed, full, amount))
		}
	}
	return amount, nil
}

func (c *Calculator) competencyAllowance(ctx context.Context, profile *CompensationProfile, period PayPeriod, ref Date, runID RunID) (Money, error) {
	rate, err := c.Rates.CompetencyAllowance(ctx, profile.JobProfile, profile.CompetencyTier, ref)
	if errors.Is(err, ErrRateNotFound) {
		c.advise(ctx, runID, profile.EmployeeID, period, AdvisoryCompetencyAllowanceMissing,
			fmt.Sprintf("no competency allowance row for %s tier %s as of %s; zero applied",
				profile.JobProfile, profile.CompetencyTier, ref))
		return ZeroMoney(), nil
	}
	if err != nil {
		return Money{}, fmt.Errorf("competency allowance lookup: %w", err)
	}
	return rate.Monthly, nil
}

// seasonalBonus pays (base + position + competency) scaled by the ratio of
// the employee's qualifying working days to the total working days from
// year-start to the holiday date. Non-zero only in the month containing the
// injected holiday date; a mid-year hire truncates the numerator window.
func (c *Calculator) seasonalBonus(period PayPeriod, hireDate Date, allowanceBase Money) Money {
	holiday, ok := c.Calendar.SeasonalBonusDate(period.Year())
	if !ok || holiday.Month() != period.Month() {
		return ZeroMoney()
	}

	yearStart := StartOfYear(period.Year())
	total := WorkdaysBetween(yearStart, holiday)
	if total == 0 {
		return ZeroMoney()
	}

	from := yearStart
	if hireDate.After(from) {
		from = hireDate
	}
	qualifying := WorkdaysBetween(from, holiday)
	if qualifying <= 0 {
		return ZeroMoney()
	}

	ratio := decimal.NewFromInt(int64(qualifying)).Div(decimal.NewFromInt(int64(total)))
	return allowanceBase.Mul(ratio).Round()
}

// annualIncentive computes the annual-cycle variable pay: only in the
// designated payout month, a percentage (by org domain, role type, and the
// prior year's grade) of the prior period's base + position + competency.
func (c *Calculator) annualIncentive(ctx context.Context, emp *Employee, profile *CompensationProfile, snap *CompensationSnapshot, period PayPeriod, ref Date, runID RunID) (Money, error) {
	if period.Month() != c.Rules.AnnualIncentiveMonth {
		return ZeroMoney(), nil
	}

	grade, ok, err := c.Evaluation.AnnualGrade(ctx, emp.ID, period.Year()-1)
	if err != nil {
		return Money{}, fmt.Errorf("annual grade lookup: %w", err)
	}
	if !ok {
		c.advise(ctx, runID, emp.ID, period, AdvisoryEvaluationGradeMissing,
			fmt.Sprintf("no annual evaluation grade for %d; annual incentive zero", period.Year()-1))
		return ZeroMoney(), nil
	}

	rate, err := c.Rates.AnnualIncentive(ctx, emp.OrgDomain, profile.RoleType(), grade, ref)
	if errors.Is(err, ErrRateNotFound) {
		c.advise(ctx, runID, emp.ID, period, AdvisoryIncentiveRateMissing,
			fmt.Sprintf("no annual incentive rate for %s/%s grade %s as of %s; zero applied",
				emp.OrgDomain, profile.RoleType(), grade, ref))
		return ZeroMoney(), nil
	}
	if err != nil {
		return Money{}, fmt.Errorf("annual incentive lookup: %w", err)
	}

	// Base figure: the prior period's persisted components when available,
	// else this calculation's own components.
	figure := snap.AllowanceBase()
	if prev, err := c.Snapshots.Snapshot(ctx, emp.ID, period.Previous()); err == nil {
		figure = prev.AllowanceBase()
	} else if !errors.Is(err, ErrSnapshotNotFound) {
		return Money{}, fmt.Errorf("prior snapshot lookup: %w", err)
	}

	return figure.Mul(rate.RatePercent).DivInt(100).Round(), nil
}

// monthlyIncentive computes the monthly-cycle variable pay: a flat amount by
// role level and the current period's grade.
func (c *Calculator) monthlyIncentive(ctx context.Context, emp *Employee, profile *CompensationProfile, period PayPeriod, ref Date, runID RunID) (Money, error) {
	grade, ok, err := c.Evaluation.MonthlyGrade(ctx, emp.ID, period.Year(), int(period.Month()))
	if err != nil {
		return Money{}, fmt.Errorf("monthly grade lookup: %w", err)
	}
	if !ok {
		c.advise(ctx, runID, emp.ID, period, AdvisoryEvaluationGradeMissing,
			fmt.Sprintf("no monthly evaluation grade for %s; monthly incentive zero", period))
		return ZeroMoney(), nil
	}

	level, err := c.roleLevel(ctx, profile, ref)
	if err != nil {
		return Money{}, err
	}

	rate, err := c.Rates.MonthlyIncentive(ctx, level, grade, ref)
	if errors.Is(err, ErrRateNotFound) {
		c.advise(ctx, runID, emp.ID, period, AdvisoryIncentiveRateMissing,
			fmt.Sprintf("no monthly incentive row for level %s grade %s as of %s; zero applied",
				level, grade, ref))
		return ZeroMoney(), nil
	}
	if err != nil {
		return Money{}, fmt.Errorf("monthly incentive lookup: %w", err)
	}
	return rate.Amount, nil
}

// roleLevel reads the explicit RoleLevel off the assigned position's master
// row, falling back to the grade-level mapping for position-less employees
// or when the master row is absent.
func (c *Calculator) roleLevel(ctx context.Context, profile *CompensationProfile, ref Date) (RoleLevel, error) {
	if profile.HasPosition() {
		pos, err := c.Rates.Position(ctx, profile.Position, ref)
		if err == nil {
			return pos.RoleLevel, nil
		}
		if !errors.Is(err, ErrRateNotFound) {
			return "", fmt.Errorf("position master lookup: %w", err)
		}
	}

	grade, err := c.Rates.Grade(ctx, profile.Grade, ref)
	if err == nil {
		return RoleLevelForGradeLevel(grade.Level), nil
	}
	if !errors.Is(err, ErrRateNotFound) {
		return "", fmt.Errorf("grade master lookup: %w", err)
	}
	return RoleLevelJunior, nil
}

// advise records the advisory, logging but never failing on store errors -
// an advisory write problem must not block payroll.
func (c *Calculator) advise(ctx context.Context, runID RunID, id EmployeeID, period PayPeriod, code AdvisoryCode, message string) {
	if c.Advisories == nil {
		return
	}
	if err := c.Advisories.AppendAdvisory(ctx, NewAdvisory(runID, id, period, code, message)); err != nil {
		log.Printf("[Calculator] failed to record advisory %s for %s: %v", code, id, err)
	}
}
