package payroll_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/payroll-engine/payroll"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func newRunner(f *calcFixture, workers int) *payroll.BatchRunner {
	return &payroll.BatchRunner{
		Calculator: f.calc,
		Directory:  f.mem,
		RunLogs:    f.mem,
		Workers:    workers,
	}
}

// =============================================================================
// BATCH RUNS
// =============================================================================

func TestRunPeriod_AllEmployeesSucceed(t *testing.T) {
	// GIVEN: Five active regular employees
	// WHEN: Running the period
	// THEN: Status completed, five affected, five snapshots

	f := newCalcFixture(t)
	for _, id := range []payroll.EmployeeID{"emp-1", "emp-2", "emp-3", "emp-4", "emp-5"} {
		f.addEmployee(t, id, payroll.EmploymentRegular, date(2020, time.March, 1))
	}

	runner := newRunner(f, 3)
	run, err := runner.RunPeriod(context.Background(), payroll.PeriodOf(2025, time.August), nil)
	require.NoError(t, err)

	assert.Equal(t, payroll.RunCompleted, run.Status)
	assert.Equal(t, 5, run.AffectedCount)
	assert.Len(t, run.Changes, 5)
	assert.Empty(t, run.Errors)
	require.NotNil(t, run.CompletedAt)

	snaps, err := f.mem.SnapshotsByPeriod(context.Background(), payroll.PeriodOf(2025, time.August))
	require.NoError(t, err)
	assert.Len(t, snaps, 5)

	// The run log is persisted in its terminal state.
	stored, err := f.mem.RunLog(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Equal(t, payroll.RunCompleted, stored.Status)
	assert.Equal(t, payroll.FormulaVersion, stored.FormulaVersion)
}

func TestRunPeriod_OneFailureDoesNotAbortOthers(t *testing.T) {
	// GIVEN: Five employees in the subset, one unknown to the directory
	// WHEN: Running the period
	// THEN: completed_with_errors, four affected, one recorded failure

	f := newCalcFixture(t)
	for _, id := range []payroll.EmployeeID{"emp-1", "emp-2", "emp-4", "emp-5"} {
		f.addEmployee(t, id, payroll.EmploymentRegular, date(2020, time.March, 1))
	}

	subset := []payroll.EmployeeID{"emp-1", "emp-2", "emp-3", "emp-4", "emp-5"}
	runner := newRunner(f, 2)
	run, err := runner.RunPeriod(context.Background(), payroll.PeriodOf(2025, time.August), subset)
	require.NoError(t, err)

	assert.Equal(t, payroll.RunCompletedWithErrors, run.Status)
	assert.Equal(t, 4, run.AffectedCount)
	require.Len(t, run.Errors, 1)
	assert.Equal(t, payroll.EmployeeID("emp-3"), run.Errors[0].EmployeeID)
}

func TestRunPeriod_SubsetRestrictsPopulation(t *testing.T) {
	f := newCalcFixture(t)
	for _, id := range []payroll.EmployeeID{"emp-1", "emp-2", "emp-3"} {
		f.addEmployee(t, id, payroll.EmploymentRegular, date(2020, time.March, 1))
	}

	runner := newRunner(f, 1)
	run, err := runner.RunPeriod(context.Background(), payroll.PeriodOf(2025, time.August),
		[]payroll.EmployeeID{"emp-2"})
	require.NoError(t, err)

	assert.Equal(t, 1, run.AffectedCount)
	if _, ok := run.Changes["emp-2"]; !ok {
		t.Error("expected a change summary for emp-2")
	}
}

func TestRunPeriod_CancellationFailsRun(t *testing.T) {
	// GIVEN: A pre-canceled context
	// WHEN: Running the period
	// THEN: RunFailure wrapping ErrRunAborted, run log persisted as failed

	f := newCalcFixture(t)
	f.addEmployee(t, "emp-1", payroll.EmploymentRegular, date(2020, time.March, 1))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	runner := newRunner(f, 2)
	run, err := runner.RunPeriod(ctx, payroll.PeriodOf(2025, time.August), nil)
	require.Error(t, err)

	var failure *payroll.RunFailure
	require.ErrorAs(t, err, &failure)
	assert.ErrorIs(t, err, payroll.ErrRunAborted)

	// The failure state reached the store despite the canceled context.
	stored, storeErr := f.mem.RunLog(context.Background(), run.ID)
	require.NoError(t, storeErr)
	assert.Equal(t, payroll.RunFailed, stored.Status)
}

func TestRunPeriod_ChangeSummariesCarrySnapshotFigures(t *testing.T) {
	f := newCalcFixture(t)
	f.addEmployee(t, "emp-1", payroll.EmploymentRegular, date(2020, time.March, 1))

	runner := newRunner(f, 1)
	run, err := runner.RunPeriod(context.Background(), payroll.PeriodOf(2025, time.August), nil)
	require.NoError(t, err)

	change, ok := run.Changes["emp-1"]
	require.True(t, ok)
	assert.True(t, change.BaseSalary.Equal(payroll.Won(3_000_000)))
	assert.True(t, change.FixedOvertime.Equal(payroll.Won(430_622)))
	assert.True(t, change.Total.Equal(payroll.Won(3_430_622)))
}

func TestRunPeriod_RerunOverwritesNotDuplicates(t *testing.T) {
	f := newCalcFixture(t)
	f.addEmployee(t, "emp-1", payroll.EmploymentRegular, date(2020, time.March, 1))

	runner := newRunner(f, 1)
	period := payroll.PeriodOf(2025, time.August)

	first, err := runner.RunPeriod(context.Background(), period, nil)
	require.NoError(t, err)
	second, err := runner.RunPeriod(context.Background(), period, nil)
	require.NoError(t, err)
	require.NotEqual(t, first.ID, second.ID)

	snaps, err := f.mem.SnapshotsByPeriod(context.Background(), period)
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.Equal(t, second.ID, snaps[0].RunID)
}

func TestRunPeriod_WithValidatorLogsWithoutFailing(t *testing.T) {
	// A wired validator must not change run outcomes.
	f := newCalcFixture(t)
	f.addEmployee(t, "emp-1", payroll.EmploymentRegular, date(2020, time.March, 1))

	runner := newRunner(f, 1)
	runner.Validator = payroll.NewVarianceValidator(f.mem, payroll.DefaultVarianceThresholds())

	run, err := runner.RunPeriod(context.Background(), payroll.PeriodOf(2025, time.August), nil)
	require.NoError(t, err)
	assert.Equal(t, payroll.RunCompleted, run.Status)
}

// =============================================================================
// ERROR TYPES
// =============================================================================

func TestCalcError_UnwrapsCause(t *testing.T) {
	cause := payroll.ErrRateNotFound
	err := &payroll.CalcError{EmployeeID: "emp-1", Period: payroll.PeriodOf(2025, time.August), Err: cause}
	if !errors.Is(err, payroll.ErrRateNotFound) {
		t.Error("CalcError should unwrap to its cause")
	}
}

func TestNewRunID_Unique(t *testing.T) {
	a, b := payroll.NewRunID(), payroll.NewRunID()
	if a == b {
		t.Errorf("consecutive run ids collide: %s", a)
	}
}
