/*
snapshot.go - Persisted calculation results and reporting aggregates

PURPOSE:

	A CompensationSnapshot is the persisted, idempotently-upserted result of
	one employee's calculation for one pay period. Business content is
	immutable once a period is closed, but re-computation before closure
	overwrites in place (same key), never duplicates. Reporting reads
	snapshots; the engine never deletes them.

COMPONENT MIX:

	ComponentMixForPeriod is a derived read-only view over persisted
	snapshots: the share each pay component contributes to the period's total
	compensation. It sits outside the engine's write path.

SEE ALSO:
  - calculator.go: Produces snapshots
  - variance.go: Compares adjacent-period snapshots
  - store.go: SnapshotStore upsert contract
*/
package payroll

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// COMPENSATION SNAPSHOT - One row per (employee, pay period)
// =============================================================================

type CompensationSnapshot struct {
	EmployeeID EmployeeID
	Period     PayPeriod

	BaseSalary          Money
	FixedOvertime       Money
	PositionAllowance   Money
	CompetencyAllowance Money
	SeasonalBonus       Money

	// Variable pay, split by which path applied. At most one is non-zero;
	// employment type makes them mutually exclusive.
	AnnualIncentive  Money
	MonthlyIncentive Money

	// OrdinaryWage = base + position + competency + seasonal bonus.
	OrdinaryWage Money

	// Total = ordinary wage + fixed overtime + variable pay.
	Total Money

	// RunID references the producing batch run.
	RunID     RunID
	CreatedAt time.Time
}

// VariablePay returns whichever incentive path applied.
func (s *CompensationSnapshot) VariablePay() Money {
	return s.AnnualIncentive.Add(s.MonthlyIncentive)
}

// AllowanceBase returns base + position + competency, the figure the
// seasonal bonus and the annual incentive are computed against.
func (s *CompensationSnapshot) AllowanceBase() Money {
	return s.BaseSalary.Add(s.PositionAllowance).Add(s.CompetencyAllowance)
}

// =============================================================================
// COMPONENT MIX - Aggregate reporting view
// =============================================================================

// ComponentMix is the share each component contributes to a period's total
// compensation across all snapshots. Ratios are fractions of the total sum.
type ComponentMix struct {
	Period    PayPeriod
	Employees int

	TotalSum Money

	BaseRatio       decimal.Decimal
	OvertimeRatio   decimal.Decimal
	PositionRatio   decimal.Decimal
	CompetencyRatio decimal.Decimal
	SeasonalRatio   decimal.Decimal
	VariableRatio   decimal.Decimal
}

// ComponentMixForPeriod computes the component-mix ratios over a period's
// snapshots. An empty period yields zero ratios.
func ComponentMixForPeriod(period PayPeriod, snaps []CompensationSnapshot) ComponentMix {
	mix := ComponentMix{Period: period, Employees: len(snaps), TotalSum: ZeroMoney()}

	var base, ot, pos, comp, seasonal, variable Money
	base, ot, pos, comp, seasonal, variable =
		ZeroMoney(), ZeroMoney(), ZeroMoney(), ZeroMoney(), ZeroMoney(), ZeroMoney()

	for i := range snaps {
		s := &snaps[i]
		base = base.Add(s.BaseSalary)
		ot = ot.Add(s.FixedOvertime)
		pos = pos.Add(s.PositionAllowance)
		comp = comp.Add(s.CompetencyAllowance)
		seasonal = seasonal.Add(s.SeasonalBonus)
		variable = variable.Add(s.VariablePay())
		mix.TotalSum = mix.TotalSum.Add(s.Total)
	}

	if mix.TotalSum.IsZero() {
		return mix
	}

	ratio := func(m Money) decimal.Decimal { return m.Value.Div(mix.TotalSum.Value) }
	mix.BaseRatio = ratio(base)
	mix.OvertimeRatio = ratio(ot)
	mix.PositionRatio = ratio(pos)
	mix.CompetencyRatio = ratio(comp)
	mix.SeasonalRatio = ratio(seasonal)
	mix.VariableRatio = ratio(variable)
	return mix
}
