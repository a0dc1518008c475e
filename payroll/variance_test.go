package payroll_test

import (
	"context"
	"testing"
	"time"

	"github.com/warp/payroll-engine/payroll"
	"github.com/warp/payroll-engine/payroll/store"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func seedAdjacent(t *testing.T, mem *store.Memory, prev, cur payroll.CompensationSnapshot) {
	t.Helper()
	ctx := context.Background()
	prev.EmployeeID, cur.EmployeeID = "emp-1", "emp-1"
	prev.Period = payroll.PeriodOf(2025, time.July)
	cur.Period = payroll.PeriodOf(2025, time.August)
	prev.CreatedAt, cur.CreatedAt = time.Now().UTC(), time.Now().UTC()
	if err := mem.Upsert(ctx, prev); err != nil {
		t.Fatalf("seeding prev: %v", err)
	}
	if err := mem.Upsert(ctx, cur); err != nil {
		t.Fatalf("seeding cur: %v", err)
	}
}

func compare(t *testing.T, mem *store.Memory) []payroll.Warning {
	t.Helper()
	v := payroll.NewVarianceValidator(mem, payroll.DefaultVarianceThresholds())
	warnings, err := v.CompareAdjacentPeriods(context.Background(), "emp-1", payroll.PeriodOf(2025, time.August))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return warnings
}

func hasCode(warnings []payroll.Warning, code payroll.WarningCode) bool {
	for _, w := range warnings {
		if w.Code == code {
			return true
		}
	}
	return false
}

// =============================================================================
// TOTAL CHANGE RATIO
// =============================================================================

func TestVariance_TotalChangeOverThreshold(t *testing.T) {
	// GIVEN: Total moved +25% month over month
	// WHEN: Comparing the adjacent periods
	// THEN: Exactly one total-change warning

	mem := store.NewMemory()
	seedAdjacent(t, mem,
		payroll.CompensationSnapshot{BaseSalary: payroll.Won(3_000_000), Total: payroll.Won(4_000_000)},
		payroll.CompensationSnapshot{BaseSalary: payroll.Won(3_000_000), Total: payroll.Won(5_000_000)},
	)

	warnings := compare(t, mem)
	if len(warnings) != 1 || warnings[0].Code != payroll.WarnTotalChanged {
		t.Errorf("got %+v, want one total-change warning", warnings)
	}
}

func TestVariance_TotalChangeExactlyAtThresholdPasses(t *testing.T) {
	// The 20% bound is exclusive: exactly +20% does not warn.
	mem := store.NewMemory()
	seedAdjacent(t, mem,
		payroll.CompensationSnapshot{BaseSalary: payroll.Won(3_000_000), Total: payroll.Won(5_000_000)},
		payroll.CompensationSnapshot{BaseSalary: payroll.Won(3_000_000), Total: payroll.Won(6_000_000)},
	)

	if warnings := compare(t, mem); len(warnings) != 0 {
		t.Errorf("got %+v, want no warnings at exactly 20%%", warnings)
	}
}

func TestVariance_TotalChangeBelowThresholdPasses(t *testing.T) {
	mem := store.NewMemory()
	seedAdjacent(t, mem,
		payroll.CompensationSnapshot{BaseSalary: payroll.Won(3_000_000), Total: payroll.Won(5_000_000)},
		payroll.CompensationSnapshot{BaseSalary: payroll.Won(3_000_000), Total: payroll.Won(5_950_000)},
	)

	if warnings := compare(t, mem); len(warnings) != 0 {
		t.Errorf("got %+v, want no warnings at +19%%", warnings)
	}
}

func TestVariance_TotalDecreaseAlsoFlagged(t *testing.T) {
	mem := store.NewMemory()
	seedAdjacent(t, mem,
		payroll.CompensationSnapshot{BaseSalary: payroll.Won(3_000_000), Total: payroll.Won(5_000_000)},
		payroll.CompensationSnapshot{BaseSalary: payroll.Won(3_000_000), Total: payroll.Won(3_500_000)},
	)

	if warnings := compare(t, mem); !hasCode(warnings, payroll.WarnTotalChanged) {
		t.Errorf("got %+v, want a total-change warning for -30%%", warnings)
	}
}

// =============================================================================
// BASE SALARY AND POSITION ALLOWANCE
// =============================================================================

func TestVariance_AnyBaseSalaryChangeWarns(t *testing.T) {
	mem := store.NewMemory()
	seedAdjacent(t, mem,
		payroll.CompensationSnapshot{BaseSalary: payroll.Won(3_000_000), Total: payroll.Won(3_000_000)},
		payroll.CompensationSnapshot{BaseSalary: payroll.Won(3_000_001), Total: payroll.Won(3_000_001)},
	)

	if warnings := compare(t, mem); !hasCode(warnings, payroll.WarnBaseSalaryChanged) {
		t.Errorf("got %+v, want a base-salary warning for a 1-unit change", warnings)
	}
}

func TestVariance_PositionAllowanceDeltaOverThreshold(t *testing.T) {
	mem := store.NewMemory()
	seedAdjacent(t, mem,
		payroll.CompensationSnapshot{
			BaseSalary: payroll.Won(3_000_000), PositionAllowance: payroll.Won(300_000),
			Total: payroll.Won(3_300_000),
		},
		payroll.CompensationSnapshot{
			BaseSalary: payroll.Won(3_000_000), PositionAllowance: payroll.Won(360_000),
			Total: payroll.Won(3_360_000),
		},
	)

	if warnings := compare(t, mem); !hasCode(warnings, payroll.WarnPositionAllowanceChanged) {
		t.Errorf("got %+v, want a position-allowance warning for delta 60000", warnings)
	}
}

func TestVariance_PositionAllowanceDeltaAtThresholdPasses(t *testing.T) {
	// Delta of exactly 50,000 does not warn; the bound is exclusive.
	mem := store.NewMemory()
	seedAdjacent(t, mem,
		payroll.CompensationSnapshot{
			BaseSalary: payroll.Won(3_000_000), PositionAllowance: payroll.Won(300_000),
			Total: payroll.Won(3_300_000),
		},
		payroll.CompensationSnapshot{
			BaseSalary: payroll.Won(3_000_000), PositionAllowance: payroll.Won(350_000),
			Total: payroll.Won(3_350_000),
		},
	)

	if warnings := compare(t, mem); hasCode(warnings, payroll.WarnPositionAllowanceChanged) {
		t.Errorf("got %+v, want no position-allowance warning at exactly 50000", warnings)
	}
}

// =============================================================================
// ABSENT SNAPSHOTS
// =============================================================================

func TestVariance_NoPriorSnapshotNoWarnings(t *testing.T) {
	mem := store.NewMemory()
	cur := payroll.CompensationSnapshot{
		EmployeeID: "emp-1", Period: payroll.PeriodOf(2025, time.August),
		BaseSalary: payroll.Won(3_000_000), Total: payroll.Won(9_000_000),
		CreatedAt: time.Now().UTC(),
	}
	if err := mem.Upsert(context.Background(), cur); err != nil {
		t.Fatal(err)
	}

	if warnings := compare(t, mem); warnings != nil {
		t.Errorf("got %+v, want nil when the prior period is absent", warnings)
	}
}

func TestVariance_ReportForPeriodAggregates(t *testing.T) {
	mem := store.NewMemory()
	seedAdjacent(t, mem,
		payroll.CompensationSnapshot{BaseSalary: payroll.Won(3_000_000), Total: payroll.Won(4_000_000)},
		payroll.CompensationSnapshot{BaseSalary: payroll.Won(3_100_000), Total: payroll.Won(5_500_000)},
	)

	v := payroll.NewVarianceValidator(mem, payroll.DefaultVarianceThresholds())
	warnings, err := v.ReportForPeriod(context.Background(), payroll.PeriodOf(2025, time.August))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !hasCode(warnings, payroll.WarnTotalChanged) || !hasCode(warnings, payroll.WarnBaseSalaryChanged) {
		t.Errorf("got %+v, want both total and base warnings", warnings)
	}
}
