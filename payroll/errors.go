/*
errors.go - Centralized error types for the compensation engine

PURPOSE:

	All error types in one place for consistency and discoverability.
	The engine distinguishes two flavors of "not found": a missing rate-table
	row is never fatal (callers substitute a default and record an advisory),
	while a missing employee aborts that one calculation.

ERROR CATEGORIES:
 1. Lookup errors - rate rows or profiles absent for given keys
 2. Entity errors - the employee itself does not exist (hard failure)
 3. Run errors - the batch as a whole cannot proceed

USAGE:

	rate, err := resolver.BaseSalary(ctx, grade, empType, at)
	if errors.Is(err, payroll.ErrRateNotFound) {
	    // substitute the configured floor, record an advisory, continue
	}

SEE ALSO:
  - rates.go: Returns ErrRateNotFound
  - calculator.go: Applies the per-call-site default policy
  - runner.go: Wraps per-employee failures into CalcError entries
*/
package payroll

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrRateNotFound is returned when no rate-table row (including any
	// fallback tier) is valid for the given keys and reference date.
	// Never fatal: each call site defines its own default.
	ErrRateNotFound = errors.New("rate row not found")

	// ErrEmployeeNotFound is returned when the employee identity itself does
	// not exist. Fatal for that single calculation.
	ErrEmployeeNotFound = errors.New("employee not found")

	// ErrProfileNotFound is returned by plain profile reads when no profile
	// exists. GetOrCreate never returns it.
	ErrProfileNotFound = errors.New("compensation profile not found")

	// ErrSnapshotNotFound is returned when no snapshot exists for the
	// requested (employee, pay period) key.
	ErrSnapshotNotFound = errors.New("snapshot not found")

	// ErrRunNotFound is returned when a run log id is unknown.
	ErrRunNotFound = errors.New("run not found")

	// ErrInvalidPeriod is returned when a pay period label is not "YYYY-MM".
	ErrInvalidPeriod = errors.New("invalid pay period")

	// ErrRunAborted is returned when a batch run is canceled between
	// employees. Snapshots already persisted by the run remain valid.
	ErrRunAborted = errors.New("run aborted")

	// ErrOverlappingValidity is returned by plan validation when two rows for
	// the same key have overlapping validity intervals.
	ErrOverlappingValidity = errors.New("overlapping validity intervals")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// CalcError wraps an unexpected failure during one employee's calculation.
// It is caught at the BatchRunner boundary, recorded on the run log, and
// never aborts the remaining population.
type CalcError struct {
	EmployeeID EmployeeID
	Period     PayPeriod
	Err        error
}

func (e *CalcError) Error() string {
	return fmt.Sprintf("calculation failed for %s in %s: %v", e.EmployeeID, e.Period, e.Err)
}

func (e *CalcError) Unwrap() error { return e.Err }

// RunFailure indicates the batch as a whole could not proceed (e.g., the
// population could not be enumerated). It propagates to the caller after
// best-effort persistence of the failed run log.
type RunFailure struct {
	RunID  RunID
	Period PayPeriod
	Err    error
}

func (e *RunFailure) Error() string {
	return fmt.Sprintf("run %s for %s failed: %v", e.RunID, e.Period, e.Err)
}

func (e *RunFailure) Unwrap() error { return e.Err }

// OverlapError reports which table and key carry overlapping intervals.
type OverlapError struct {
	Table string
	Key   string
}

func (e *OverlapError) Error() string {
	return fmt.Sprintf("%s: overlapping validity intervals for key %q", e.Table, e.Key)
}

func (e *OverlapError) Unwrap() error { return ErrOverlappingValidity }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsNotFound returns true for any of the lookup/entity absence errors.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrRateNotFound) ||
		errors.Is(err, ErrEmployeeNotFound) ||
		errors.Is(err, ErrProfileNotFound) ||
		errors.Is(err, ErrSnapshotNotFound) ||
		errors.Is(err, ErrRunNotFound)
}
