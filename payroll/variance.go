/*
variance.go - Adjacent-period variance validation

PURPOSE:

	Compares an employee's current snapshot against the immediately preceding
	period's snapshot and produces human-readable warnings when changes exceed
	policy thresholds. Warnings are informational only and never block
	persistence; absence of either snapshot is a no-op, not an error.

THRESHOLDS:
  - Total compensation: flagged when the relative change strictly exceeds
    the configured ratio (default 20%; +20.0% exactly is NOT flagged)
  - Base salary: flagged on any change at all
  - Position allowance: flagged when the absolute change exceeds the
    configured fixed threshold

SEE ALSO:
  - snapshot.go: The compared rows
  - runner.go: Optional inline validation per employee
*/
package payroll

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// THRESHOLDS
// =============================================================================

// VarianceThresholds are the policy limits for adjacent-period changes.
type VarianceThresholds struct {
	// TotalChangeRatio is the exclusive relative-change bound for total
	// compensation (0.20 = 20%).
	TotalChangeRatio decimal.Decimal

	// PositionAllowanceDelta is the absolute-change bound for the position
	// allowance.
	PositionAllowanceDelta Money
}

// DefaultVarianceThresholds returns the production policy limits.
func DefaultVarianceThresholds() VarianceThresholds {
	return VarianceThresholds{
		TotalChangeRatio:       decimal.NewFromFloat(0.20),
		PositionAllowanceDelta: Won(50_000),
	}
}

// =============================================================================
// WARNING
// =============================================================================

type WarningCode string

const (
	WarnTotalChanged             WarningCode = "total_changed"
	WarnBaseSalaryChanged        WarningCode = "base_salary_changed"
	WarnPositionAllowanceChanged WarningCode = "position_allowance_changed"
)

// Warning is one flagged change between adjacent periods. Informational.
type Warning struct {
	EmployeeID EmployeeID
	Period     PayPeriod
	Code       WarningCode
	Message    string
}

// =============================================================================
// VARIANCE VALIDATOR
// =============================================================================

type VarianceValidator struct {
	Snapshots  SnapshotStore
	Thresholds VarianceThresholds
}

func NewVarianceValidator(snapshots SnapshotStore, thresholds VarianceThresholds) *VarianceValidator {
	return &VarianceValidator{Snapshots: snapshots, Thresholds: thresholds}
}

// CompareAdjacentPeriods flags anomalous changes between the current
// period's snapshot and the previous period's. If either snapshot is absent
// there is nothing to compare and no warnings are returned. The returned
// error is only ever a store fault, never a comparison outcome.
func (v *VarianceValidator) CompareAdjacentPeriods(ctx context.Context, id EmployeeID, current PayPeriod) ([]Warning, error) {
	cur, err := v.Snapshots.Snapshot(ctx, id, current)
	if errors.Is(err, ErrSnapshotNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	prev, err := v.Snapshots.Snapshot(ctx, id, current.Previous())
	if errors.Is(err, ErrSnapshotNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var warnings []Warning
	add := func(code WarningCode, message string) {
		warnings = append(warnings, Warning{
			EmployeeID: id,
			Period:     current,
			Code:       code,
			Message:    message,
		})
	}

	// Total compensation: relative change, exclusive bound.
	if !prev.Total.IsZero() {
		change := cur.Total.Sub(prev.Total).Abs().Value.Div(prev.Total.Value)
		if change.GreaterThan(v.Thresholds.TotalChangeRatio) {
			add(WarnTotalChanged, fmt.Sprintf(
				"total compensation changed by %s%%: %s -> %s",
				change.Mul(decimal.NewFromInt(100)).Round(1), prev.Total, cur.Total))
		}
	}

	// Base salary: any change at all.
	if !cur.BaseSalary.Equal(prev.BaseSalary) {
		add(WarnBaseSalaryChanged, fmt.Sprintf(
			"base salary changed: %s -> %s", prev.BaseSalary, cur.BaseSalary))
	}

	// Position allowance: absolute change over the fixed threshold.
	delta := cur.PositionAllowance.Sub(prev.PositionAllowance).Abs()
	if delta.GreaterThan(v.Thresholds.PositionAllowanceDelta) {
		add(WarnPositionAllowanceChanged, fmt.Sprintf(
			"position allowance changed by %s: %s -> %s",
			delta, prev.PositionAllowance, cur.PositionAllowance))
	}

	return warnings, nil
}

// ReportForPeriod runs the adjacent-period comparison over every snapshot
// persisted for the period. A derived read-only view for operators.
func (v *VarianceValidator) ReportForPeriod(ctx context.Context, period PayPeriod) ([]Warning, error) {
	snaps, err := v.Snapshots.SnapshotsByPeriod(ctx, period)
	if err != nil {
		return nil, err
	}

	var all []Warning
	for i := range snaps {
		warnings, err := v.CompareAdjacentPeriods(ctx, snaps[i].EmployeeID, period)
		if err != nil {
			return nil, err
		}
		all = append(all, warnings...)
	}
	return all, nil
}
