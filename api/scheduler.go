/*
scheduler.go - Automated monthly calculation scheduler

PURPOSE:

	Triggers the batch calculation for the current pay period once per
	month, shortly after the cutoff day, so payroll never depends on a
	human remembering to press the button.

DESIGN:
  - cron (robfig/cron) fires on the day after the cutoff at 02:00,
    capped at the 28th so every month has the firing day
  - The target period is the month containing the firing date
  - Periods that already have a completed run are skipped, so a restart
    mid-month never double-runs
  - Manual runs through the API remain possible at any time; the snapshot
    upsert keys make a re-run overwrite, not duplicate

USAGE:

	scheduler := NewRunScheduler(runner, store, cutoffDay)
	scheduler.Start()
	// ... later
	scheduler.Stop()

SEE ALSO:
  - handlers.go: TriggerRun endpoint (manual runs)
  - payroll/runner.go: BatchRunner
*/
package api

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/warp/payroll-engine/payroll"
)

// RunScheduler fires the monthly batch run after the cutoff day.
type RunScheduler struct {
	Runner  *payroll.BatchRunner
	RunLogs payroll.RunLogStore

	cron    *cron.Cron
	entryID cron.EntryID
}

// NewRunScheduler creates a scheduler that fires at 02:00 on the day
// after cutoffDay each month, capped at the 28th so the trigger exists
// in every month including February.
func NewRunScheduler(runner *payroll.BatchRunner, logs payroll.RunLogStore, cutoffDay int) *RunScheduler {
	s := &RunScheduler{
		Runner:  runner,
		RunLogs: logs,
		cron:    cron.New(),
	}

	spec := fmt.Sprintf("0 2 %d * *", firingDay(cutoffDay))
	id, err := s.cron.AddFunc(spec, s.runCurrentPeriod)
	if err != nil {
		// The spec is built from a validated cutoff day (1..28), so this
		// only fires on a programming error.
		panic(fmt.Sprintf("invalid cron spec %q: %v", spec, err))
	}
	s.entryID = id
	return s
}

// firingDay is the day-of-month the scheduler fires on. Day 29 and
// beyond do not exist in every month, so the day after the cutoff is
// capped at 28.
func firingDay(cutoffDay int) int {
	return min(cutoffDay+1, 28)
}

// Start begins the scheduler.
func (s *RunScheduler) Start() {
	s.cron.Start()
	log.Printf("[Scheduler] Started, next run at %v", s.cron.Entry(s.entryID).Next)
}

// Stop stops the scheduler and waits for an in-flight run to finish.
func (s *RunScheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Println("[Scheduler] Stopped")
}

func (s *RunScheduler) runCurrentPeriod() {
	ctx := context.Background()
	now := time.Now()
	period := payroll.PeriodOf(now.Year(), now.Month())

	done, err := s.alreadyCompleted(ctx, period)
	if err != nil {
		log.Printf("[Scheduler] Failed to check existing runs for %s: %v", period, err)
		return
	}
	if done {
		log.Printf("[Scheduler] Period %s already has a completed run, skipping", period)
		return
	}

	log.Printf("[Scheduler] Starting scheduled run for %s", period)
	run, err := s.Runner.RunPeriod(ctx, period, nil)
	if err != nil {
		var failure *payroll.RunFailure
		if errors.As(err, &failure) {
			log.Printf("[Scheduler] Run %s failed: %v", failure.RunID, err)
		} else {
			log.Printf("[Scheduler] Run failed: %v", err)
		}
		return
	}
	log.Printf("[Scheduler] Run %s finished with status %s (%d employees)",
		run.ID, run.Status, run.AffectedCount)
}

func (s *RunScheduler) alreadyCompleted(ctx context.Context, period payroll.PayPeriod) (bool, error) {
	logs, err := s.RunLogs.RunLogs(ctx, period)
	if err != nil {
		return false, err
	}
	for i := range logs {
		switch logs[i].Status {
		case payroll.RunCompleted, payroll.RunCompletedWithErrors:
			return true, nil
		}
	}
	return false, nil
}
