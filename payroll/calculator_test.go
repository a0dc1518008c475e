package payroll_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/payroll-engine/evaluation"
	"github.com/warp/payroll-engine/payroll"
	"github.com/warp/payroll-engine/payroll/store"
)

// =============================================================================
// TEST FIXTURE
// =============================================================================

type calcFixture struct {
	mem  *store.Memory
	eval *evaluation.Static
	calc *payroll.Calculator
}

// newCalcFixture wires a calculator over an in-memory store seeded with a
// small but representative rate plan.
func newCalcFixture(t *testing.T) *calcFixture {
	t.Helper()
	ctx := context.Background()
	mem := store.NewMemory()

	plan := payroll.RatePlan{
		Grades: []payroll.GradeMaster{
			{Code: "GRD11", Level: 3, Step: 1, Title: "Senior Associate", Validity: openFrom(2020, time.January, 1)},
		},
		Positions: []payroll.PositionMaster{
			{Code: "POS-TL", Name: "Team Lead", OrgDomain: payroll.OrgHeadquarters,
				ManagerLevel: 2, RoleLevel: payroll.RoleLevelLead, Validity: openFrom(2020, time.January, 1)},
		},
		JobProfiles: []payroll.JobProfileMaster{
			{ID: "JP-GEN", Family: "corporate", Series: "operations", Role: "generalist", Validity: openFrom(2020, time.January, 1)},
		},
		BaseSalaries: []payroll.BaseSalaryRate{
			{Grade: "GRD11", EmploymentType: payroll.EmploymentRegular,
				Monthly: payroll.Won(3_000_000), Validity: openFrom(2020, time.January, 1)},
			{Grade: "GRD11", EmploymentType: payroll.EmploymentProfessional,
				Monthly: payroll.Won(3_000_000), Validity: openFrom(2020, time.January, 1)},
			{Grade: "GRD11", EmploymentType: payroll.EmploymentContract,
				Monthly: payroll.Won(3_000_000), Validity: openFrom(2020, time.January, 1)},
		},
		PositionAllowances: []payroll.PositionAllowanceRate{
			{Position: "POS-TL", Tier: payroll.TierFlat,
				Monthly: payroll.Won(300_000), Rate: decimal.NewFromInt(1),
				Validity: openFrom(2020, time.January, 1)},
		},
		AnnualIncentives: []payroll.AnnualIncentiveRate{
			{OrgDomain: payroll.OrgHeadquarters, RoleType: payroll.RoleStaff, Grade: payroll.GradeA,
				RatePercent: decimal.NewFromInt(150), Validity: openFrom(2020, time.January, 1)},
		},
		MonthlyIncentives: []payroll.MonthlyIncentiveRate{
			{RoleLevel: payroll.RoleLevelSenior, Grade: payroll.GradeB,
				Amount: payroll.Won(250_000), Validity: openFrom(2020, time.January, 1)},
		},
	}
	require.NoError(t, mem.SaveRatePlan(ctx, plan))

	eval := evaluation.NewStatic()
	defaults := payroll.Defaults{Grade: "GRD11", JobProfile: "JP-GEN", CompetencyTier: payroll.CompetencyBasic}

	calc := &payroll.Calculator{
		Rates:      payroll.NewRateResolver(mem),
		Profiles:   payroll.NewProfileResolver(mem, defaults),
		Directory:  mem,
		Evaluation: eval,
		Snapshots:  mem,
		Advisories: mem,
		Calendar:   payroll.NoHolidays{},
		Rules:      payroll.DefaultRules(),
	}

	return &calcFixture{mem: mem, eval: eval, calc: calc}
}

func (f *calcFixture) addEmployee(t *testing.T, id payroll.EmployeeID, et payroll.EmploymentType, hire payroll.Date) {
	t.Helper()
	err := f.mem.PutEmployee(context.Background(), payroll.Employee{
		ID: id, Name: "Test " + string(id), Email: string(id) + "@example.com",
		EmploymentType: et, Department: "Operations",
		OrgDomain: payroll.OrgHeadquarters, HireDate: hire, Active: true,
	})
	require.NoError(t, err)
}

func (f *calcFixture) saveProfile(t *testing.T, p payroll.CompensationProfile) {
	t.Helper()
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now
	require.NoError(t, f.mem.SaveProfile(context.Background(), p))
}

func (f *calcFixture) advisoryCodes(t *testing.T, runID payroll.RunID) []payroll.AdvisoryCode {
	t.Helper()
	advisories, err := f.mem.AdvisoriesByRun(context.Background(), runID)
	require.NoError(t, err)
	codes := make([]payroll.AdvisoryCode, len(advisories))
	for i, a := range advisories {
		codes[i] = a.Code
	}
	return codes
}

// =============================================================================
// FIXED OVERTIME
// =============================================================================

func TestFixedOvertime_PinnedFormulaValue(t *testing.T) {
	// W/209*20*1.5 for W=3,000,000 is 430,622.0095..., rounded half-up.
	got := payroll.FixedOvertime(payroll.Won(3_000_000), payroll.DefaultRules())
	if !got.Equal(payroll.Won(430_622)) {
		t.Errorf("FixedOvertime(3000000) = %s, want 430622", got)
	}
}

func TestFixedOvertime_ZeroWage(t *testing.T) {
	got := payroll.FixedOvertime(payroll.ZeroMoney(), payroll.DefaultRules())
	if !got.IsZero() {
		t.Errorf("FixedOvertime(0) = %s, want 0", got)
	}
}

// =============================================================================
// PIPELINE
// =============================================================================

func TestCalculate_BaseOnlyEmployee(t *testing.T) {
	// GIVEN: A regular employee with a base salary row, no position, and no
	//        competency allowance row for the basic tier
	// WHEN: Calculating a non-payout month
	// THEN: Total = base + fixed overtime, with a competency advisory

	f := newCalcFixture(t)
	f.addEmployee(t, "emp-1", payroll.EmploymentRegular, date(2020, time.March, 1))

	snap, err := f.calc.Calculate(context.Background(), "emp-1", payroll.PeriodOf(2025, time.August), "run-1")
	require.NoError(t, err)

	assert.True(t, snap.BaseSalary.Equal(payroll.Won(3_000_000)), "base salary")
	assert.True(t, snap.PositionAllowance.IsZero(), "no position assigned")
	assert.True(t, snap.CompetencyAllowance.IsZero(), "no competency row for basic tier")
	assert.True(t, snap.SeasonalBonus.IsZero(), "no holiday configured")
	assert.True(t, snap.OrdinaryWage.Equal(payroll.Won(3_000_000)), "ordinary wage")
	assert.True(t, snap.FixedOvertime.Equal(payroll.Won(430_622)), "fixed overtime")
	assert.True(t, snap.AnnualIncentive.IsZero(), "August is not the payout month")
	assert.True(t, snap.Total.Equal(payroll.Won(3_430_622)), "total")

	assert.Contains(t, f.advisoryCodes(t, "run-1"), payroll.AdvisoryCompetencyAllowanceMissing)
}

func TestCalculate_LazyProfileCreationUsesDefaults(t *testing.T) {
	// No profile saved: the resolver creates one from the injected defaults.
	f := newCalcFixture(t)
	f.addEmployee(t, "emp-new", payroll.EmploymentRegular, date(2024, time.May, 1))

	_, err := f.calc.Calculate(context.Background(), "emp-new", payroll.PeriodOf(2025, time.August), "run-1")
	require.NoError(t, err)

	p, err := f.mem.Profile(context.Background(), "emp-new")
	require.NoError(t, err)
	assert.Equal(t, payroll.GradeCode("GRD11"), p.Grade)
	assert.Equal(t, payroll.JobProfileID("JP-GEN"), p.JobProfile)
	assert.Equal(t, payroll.CompetencyBasic, p.CompetencyTier)
}

func TestCalculate_UnknownEmployeeFailsHard(t *testing.T) {
	f := newCalcFixture(t)

	_, err := f.calc.Calculate(context.Background(), "ghost", payroll.PeriodOf(2025, time.August), "run-1")
	assert.ErrorIs(t, err, payroll.ErrEmployeeNotFound)
}

func TestCalculate_MissingBaseSalaryAppliesFloor(t *testing.T) {
	// GIVEN: A profile pointing at a grade with no base salary row
	// WHEN: Calculating
	// THEN: The configured floor substitutes and an advisory records it

	f := newCalcFixture(t)
	f.addEmployee(t, "emp-1", payroll.EmploymentRegular, date(2020, time.March, 1))
	f.saveProfile(t, payroll.CompensationProfile{
		EmployeeID: "emp-1", Grade: "GRD99", JobProfile: "JP-GEN",
		CompetencyTier: payroll.CompetencyBasic,
	})

	snap, err := f.calc.Calculate(context.Background(), "emp-1", payroll.PeriodOf(2025, time.August), "run-1")
	require.NoError(t, err)

	assert.True(t, snap.BaseSalary.Equal(payroll.Won(2_000_000)),
		"floor should substitute, got %s", snap.BaseSalary)
	assert.Contains(t, f.advisoryCodes(t, "run-1"), payroll.AdvisoryBaseSalaryFloor)
}

func TestCalculate_PositionAllowanceWithFlatFallback(t *testing.T) {
	f := newCalcFixture(t)
	f.addEmployee(t, "emp-1", payroll.EmploymentRegular, date(2020, time.March, 1))
	f.saveProfile(t, payroll.CompensationProfile{
		EmployeeID: "emp-1", Grade: "GRD11", JobProfile: "JP-GEN",
		CompetencyTier: payroll.CompetencyBasic,
		Position:       "POS-TL", PositionTier: payroll.Tier2,
	})

	snap, err := f.calc.Calculate(context.Background(), "emp-1", payroll.PeriodOf(2025, time.August), "run-1")
	require.NoError(t, err)

	// Only a flat row exists for POS-TL; tier t2 falls back to it.
	assert.True(t, snap.PositionAllowance.Equal(payroll.Won(300_000)),
		"flat fallback, got %s", snap.PositionAllowance)
}

// =============================================================================
// INITIAL POSITION PRORATION
// =============================================================================

func TestCalculate_InitialPositionProrated(t *testing.T) {
	// Reference date 2025-08-20, start 2024-08-21: 364 days elapsed, still
	// inside the 365-day window.
	f := newCalcFixture(t)
	f.addEmployee(t, "emp-1", payroll.EmploymentRegular, date(2020, time.March, 1))
	f.saveProfile(t, payroll.CompensationProfile{
		EmployeeID: "emp-1", Grade: "GRD11", JobProfile: "JP-GEN",
		CompetencyTier: payroll.CompetencyBasic,
		Position:       "POS-TL", PositionTier: payroll.TierFlat,
		PositionStart: date(2024, time.August, 21), InitialPosition: true,
	})

	snap, err := f.calc.Calculate(context.Background(), "emp-1", payroll.PeriodOf(2025, time.August), "run-1")
	require.NoError(t, err)

	assert.True(t, snap.PositionAllowance.Equal(payroll.Won(240_000)),
		"300000 * 0.8, got %s", snap.PositionAllowance)
	assert.Contains(t, f.advisoryCodes(t, "run-1"), payroll.AdvisoryInitialPositionProrated)
}

func TestCalculate_InitialPositionWindowElapsed(t *testing.T) {
	// Start 2024-08-20: exactly 365 days at the reference date, proration
	// no longer applies.
	f := newCalcFixture(t)
	f.addEmployee(t, "emp-1", payroll.EmploymentRegular, date(2020, time.March, 1))
	f.saveProfile(t, payroll.CompensationProfile{
		EmployeeID: "emp-1", Grade: "GRD11", JobProfile: "JP-GEN",
		CompetencyTier: payroll.CompetencyBasic,
		Position:       "POS-TL", PositionTier: payroll.TierFlat,
		PositionStart: date(2024, time.August, 20), InitialPosition: true,
	})

	snap, err := f.calc.Calculate(context.Background(), "emp-1", payroll.PeriodOf(2025, time.August), "run-1")
	require.NoError(t, err)

	assert.True(t, snap.PositionAllowance.Equal(payroll.Won(300_000)),
		"full allowance after the window, got %s", snap.PositionAllowance)
	assert.NotContains(t, f.advisoryCodes(t, "run-1"), payroll.AdvisoryInitialPositionProrated)
}

// =============================================================================
// SEASONAL BONUS
// =============================================================================

func TestCalculate_SeasonalBonusFullYearEmployee(t *testing.T) {
	// GIVEN: Holiday 2024-01-12, employee hired years earlier
	// WHEN: Calculating 2024-01
	// THEN: Full allowance base paid as bonus (ratio 1)

	f := newCalcFixture(t)
	f.calc.Calendar = payroll.FixedCalendar{2024: date(2024, time.January, 12)}
	f.addEmployee(t, "emp-1", payroll.EmploymentRegular, date(2020, time.March, 1))

	snap, err := f.calc.Calculate(context.Background(), "emp-1", payroll.PeriodOf(2024, time.January), "run-1")
	require.NoError(t, err)

	assert.True(t, snap.SeasonalBonus.Equal(payroll.Won(3_000_000)),
		"full-ratio bonus, got %s", snap.SeasonalBonus)
	assert.True(t, snap.OrdinaryWage.Equal(payroll.Won(6_000_000)), "ordinary wage includes bonus")
}

func TestCalculate_SeasonalBonusMidWindowHire(t *testing.T) {
	// Hired 2024-01-08 (Monday): 5 qualifying workdays of 10 total between
	// year start and the 2024-01-12 holiday. Ratio 0.5.
	f := newCalcFixture(t)
	f.calc.Calendar = payroll.FixedCalendar{2024: date(2024, time.January, 12)}
	f.addEmployee(t, "emp-1", payroll.EmploymentRegular, date(2024, time.January, 8))

	snap, err := f.calc.Calculate(context.Background(), "emp-1", payroll.PeriodOf(2024, time.January), "run-1")
	require.NoError(t, err)

	assert.True(t, snap.SeasonalBonus.Equal(payroll.Won(1_500_000)),
		"half-ratio bonus, got %s", snap.SeasonalBonus)
}

func TestCalculate_SeasonalBonusOnlyInHolidayMonth(t *testing.T) {
	f := newCalcFixture(t)
	f.calc.Calendar = payroll.FixedCalendar{2024: date(2024, time.January, 12)}
	f.addEmployee(t, "emp-1", payroll.EmploymentRegular, date(2020, time.March, 1))

	snap, err := f.calc.Calculate(context.Background(), "emp-1", payroll.PeriodOf(2024, time.February), "run-1")
	require.NoError(t, err)

	assert.True(t, snap.SeasonalBonus.IsZero(), "February is not the holiday month")
}

// =============================================================================
// VARIABLE PAY
// =============================================================================

func TestCalculate_AnnualIncentiveInPayoutMonth(t *testing.T) {
	// GIVEN: Regular staff employee with prior-year grade A (150%)
	// WHEN: Calculating January with no prior-period snapshot
	// THEN: 150% of the current period's own components

	f := newCalcFixture(t)
	f.addEmployee(t, "emp-1", payroll.EmploymentRegular, date(2020, time.March, 1))
	f.eval.SetAnnual("emp-1", 2024, payroll.GradeA)

	snap, err := f.calc.Calculate(context.Background(), "emp-1", payroll.PeriodOf(2025, time.January), "run-1")
	require.NoError(t, err)

	assert.True(t, snap.AnnualIncentive.Equal(payroll.Won(4_500_000)),
		"3000000 * 150%%, got %s", snap.AnnualIncentive)
	assert.True(t, snap.MonthlyIncentive.IsZero())
}

func TestCalculate_AnnualIncentiveUsesPriorPeriodSnapshot(t *testing.T) {
	f := newCalcFixture(t)
	f.addEmployee(t, "emp-1", payroll.EmploymentRegular, date(2020, time.March, 1))
	f.eval.SetAnnual("emp-1", 2024, payroll.GradeA)

	// Persist a December snapshot with a different component base.
	require.NoError(t, f.mem.Upsert(context.Background(), payroll.CompensationSnapshot{
		EmployeeID: "emp-1", Period: payroll.PeriodOf(2024, time.December),
		BaseSalary:          payroll.Won(2_800_000),
		PositionAllowance:   payroll.Won(100_000),
		CompetencyAllowance: payroll.Won(100_000),
		CreatedAt:           time.Now().UTC(),
	}))

	snap, err := f.calc.Calculate(context.Background(), "emp-1", payroll.PeriodOf(2025, time.January), "run-1")
	require.NoError(t, err)

	assert.True(t, snap.AnnualIncentive.Equal(payroll.Won(4_500_000)),
		"(2800000+100000+100000) * 150%%, got %s", snap.AnnualIncentive)
}

func TestCalculate_AnnualIncentiveMissingGrade(t *testing.T) {
	f := newCalcFixture(t)
	f.addEmployee(t, "emp-1", payroll.EmploymentRegular, date(2020, time.March, 1))
	// No annual grade seeded for 2024.

	snap, err := f.calc.Calculate(context.Background(), "emp-1", payroll.PeriodOf(2025, time.January), "run-1")
	require.NoError(t, err)

	assert.True(t, snap.AnnualIncentive.IsZero(), "missing grade pays zero")
	assert.Contains(t, f.advisoryCodes(t, "run-1"), payroll.AdvisoryEvaluationGradeMissing)
}

func TestCalculate_MonthlyIncentiveForProfessional(t *testing.T) {
	// Professional, no position: role level derives from the grade master
	// (level 3 -> senior). Grade B row pays a flat 250,000.
	f := newCalcFixture(t)
	f.addEmployee(t, "emp-1", payroll.EmploymentProfessional, date(2020, time.March, 1))
	f.eval.SetMonthly("emp-1", 2025, 8, payroll.GradeB)

	snap, err := f.calc.Calculate(context.Background(), "emp-1", payroll.PeriodOf(2025, time.August), "run-1")
	require.NoError(t, err)

	assert.True(t, snap.MonthlyIncentive.Equal(payroll.Won(250_000)),
		"flat monthly incentive, got %s", snap.MonthlyIncentive)
	assert.True(t, snap.AnnualIncentive.IsZero())
}

func TestCalculate_ContractEmployeeNoVariablePay(t *testing.T) {
	f := newCalcFixture(t)
	f.addEmployee(t, "emp-1", payroll.EmploymentContract, date(2020, time.March, 1))
	f.eval.SetAnnual("emp-1", 2024, payroll.GradeA)
	f.eval.SetMonthly("emp-1", 2025, 1, payroll.GradeA)

	snap, err := f.calc.Calculate(context.Background(), "emp-1", payroll.PeriodOf(2025, time.January), "run-1")
	require.NoError(t, err)

	assert.True(t, snap.AnnualIncentive.IsZero())
	assert.True(t, snap.MonthlyIncentive.IsZero())
}

// =============================================================================
// IDEMPOTENCE
// =============================================================================

func TestCalculate_RerunOverwritesSnapshot(t *testing.T) {
	// GIVEN: A period already calculated
	// WHEN: Calculating the same (employee, period) again
	// THEN: One snapshot row exists, carrying the second run's id

	f := newCalcFixture(t)
	f.addEmployee(t, "emp-1", payroll.EmploymentRegular, date(2020, time.March, 1))

	_, err := f.calc.Calculate(context.Background(), "emp-1", payroll.PeriodOf(2025, time.August), "run-1")
	require.NoError(t, err)
	_, err = f.calc.Calculate(context.Background(), "emp-1", payroll.PeriodOf(2025, time.August), "run-2")
	require.NoError(t, err)

	snaps, err := f.mem.SnapshotsByPeriod(context.Background(), payroll.PeriodOf(2025, time.August))
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.Equal(t, payroll.RunID("run-2"), snaps[0].RunID)
}
