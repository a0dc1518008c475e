/*
runner.go - Bulk execution with per-employee failure isolation

PURPOSE:

	Drives the Calculator over a population of employees for one pay period
	and produces an immutable run record. One employee's failure never aborts
	the batch: the runner records the error and continues, so operators always
	see "N succeeded, M failed, here are the M reasons".

CONCURRENCY:

	Each employee's calculation reads only shared read-mostly rate tables and
	writes only that employee's own snapshot row, so calculations run on a
	bounded worker pool. Results and errors funnel into a mutex-guarded
	collector. Cancellation is cooperative: the feeder stops handing out
	employees once the context is done; workers finish their current employee
	and exit. Snapshots already persisted by an aborted run remain valid
	(upsert semantics mean a re-run simply overwrites them).

RUN LOG LIFECYCLE:

	running -> completed | completed_with_errors | failed
	The log is owned exclusively by its BatchRunner and never mutated after a
	terminal status is persisted.

SEE ALSO:
  - calculator.go: The per-employee pipeline
  - store.go: RunLogStore persistence
*/
package payroll

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"
)

// =============================================================================
// RUN LOG
// =============================================================================

type RunStatus string

const (
	RunRunning             RunStatus = "running"
	RunCompleted           RunStatus = "completed"
	RunCompletedWithErrors RunStatus = "completed_with_errors"
	RunFailed              RunStatus = "failed"
)

// ChangeSummary is the compact per-employee result recorded on the run log.
type ChangeSummary struct {
	Total         Money
	BaseSalary    Money
	FixedOvertime Money
}

// RunError is one per-employee failure descriptor.
type RunError struct {
	EmployeeID EmployeeID
	Message    string
}

// CalcRunLog is the audit record of one batch invocation. Created at batch
// start, mutated only by the owning BatchRunner, immutable after a terminal
// status is set.
type CalcRunLog struct {
	ID             RunID
	Period         PayPeriod
	FormulaVersion string
	Status         RunStatus

	AffectedCount int
	Changes       map[EmployeeID]ChangeSummary
	Errors        []RunError

	StartedAt   time.Time
	CompletedAt *time.Time
}

// NewRunID generates a time-derived run id, unique within the process.
func NewRunID() RunID {
	return RunID(fmt.Sprintf("run-%d", time.Now().UnixNano()))
}

// =============================================================================
// BATCH RUNNER
// =============================================================================

type BatchRunner struct {
	Calculator *Calculator
	Directory  Directory
	RunLogs    RunLogStore

	// Validator, when set, runs the adjacent-period comparison after each
	// successful calculation and logs any warnings.
	Validator *VarianceValidator

	// Workers bounds the worker pool; values below 1 run sequentially.
	Workers int
}

// RunPeriod calculates the period for the given employees (all active
// employees when the subset is empty) and returns the finished run log.
// Per-employee failures are recorded, never propagated; a RunFailure is
// returned only when the batch as a whole cannot proceed.
func (r *BatchRunner) RunPeriod(ctx context.Context, period PayPeriod, employeeIDs []EmployeeID) (*CalcRunLog, error) {
	run := &CalcRunLog{
		ID:             NewRunID(),
		Period:         period,
		FormulaVersion: FormulaVersion,
		Status:         RunRunning,
		Changes:        make(map[EmployeeID]ChangeSummary),
		StartedAt:      time.Now().UTC(),
	}

	if err := r.RunLogs.SaveRunLog(ctx, *run); err != nil {
		return nil, &RunFailure{RunID: run.ID, Period: period, Err: fmt.Errorf("saving run log: %w", err)}
	}

	population := employeeIDs
	if len(population) == 0 {
		var err error
		population, err = r.Directory.ActiveEmployees(ctx)
		if err != nil {
			return run, r.fail(ctx, run, fmt.Errorf("enumerating population: %w", err))
		}
	}

	log.Printf("[Runner] %s: period %s, %d employees", run.ID, period, len(population))

	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		canceled bool
	)
	jobs := make(chan EmployeeID)

	workers := r.Workers
	if workers < 1 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for id := range jobs {
				summary, err := r.calculateOne(ctx, id, period, run.ID)

				mu.Lock()
				if err != nil {
					run.Errors = append(run.Errors, RunError{EmployeeID: id, Message: err.Error()})
				} else {
					run.AffectedCount++
					run.Changes[id] = *summary
				}
				mu.Unlock()
			}
		}()
	}

	// Feed employees, checking for cancellation before each one.
feed:
	for _, id := range population {
		if ctx.Err() != nil {
			canceled = true
			break
		}
		select {
		case <-ctx.Done():
			canceled = true
			break feed
		case jobs <- id:
		}
	}
	close(jobs)
	wg.Wait()

	if canceled {
		return run, r.fail(ctx, run, fmt.Errorf("%w: %v", ErrRunAborted, ctx.Err()))
	}

	now := time.Now().UTC()
	run.CompletedAt = &now
	if len(run.Errors) == 0 {
		run.Status = RunCompleted
	} else {
		run.Status = RunCompletedWithErrors
	}

	if err := r.RunLogs.SaveRunLog(ctx, *run); err != nil {
		return run, &RunFailure{RunID: run.ID, Period: period, Err: fmt.Errorf("saving final run log: %w", err)}
	}

	log.Printf("[Runner] %s: %s, %d succeeded, %d failed",
		run.ID, run.Status, run.AffectedCount, len(run.Errors))
	return run, nil
}

// calculateOne runs one employee inside the failure boundary: panics and
// errors both surface as that employee's failure, nothing more.
func (r *BatchRunner) calculateOne(ctx context.Context, id EmployeeID, period PayPeriod, runID RunID) (summary *ChangeSummary, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = &CalcError{EmployeeID: id, Period: period, Err: fmt.Errorf("panic: %v", rec)}
			log.Printf("[Runner] %v", err)
		}
	}()

	snap, calcErr := r.Calculator.Calculate(ctx, id, period, runID)
	if calcErr != nil {
		log.Printf("[Runner] calculation failed for %s: %v", id, calcErr)
		return nil, &CalcError{EmployeeID: id, Period: period, Err: calcErr}
	}

	if r.Validator != nil {
		warnings, vErr := r.Validator.CompareAdjacentPeriods(ctx, id, period)
		if vErr != nil {
			// Variance problems are informational; never fail the employee.
			log.Printf("[Runner] variance check failed for %s: %v", id, vErr)
		}
		for _, w := range warnings {
			log.Printf("[Runner] variance warning for %s: %s", w.EmployeeID, w.Message)
		}
	}

	return &ChangeSummary{
		Total:         snap.Total,
		BaseSalary:    snap.BaseSalary,
		FixedOvertime: snap.FixedOvertime,
	}, nil
}

// fail persists the failed run log best-effort and returns the RunFailure.
func (r *BatchRunner) fail(ctx context.Context, run *CalcRunLog, cause error) error {
	now := time.Now().UTC()
	run.CompletedAt = &now
	run.Status = RunFailed
	run.Errors = append(run.Errors, RunError{Message: cause.Error()})

	// The context may already be canceled; the failure state is persisted
	// regardless.
	if err := r.RunLogs.SaveRunLog(context.WithoutCancel(ctx), *run); err != nil {
		log.Printf("[Runner] %s: failed to persist failure state: %v", run.ID, err)
	}
	return &RunFailure{RunID: run.ID, Period: run.Period, Err: cause}
}
