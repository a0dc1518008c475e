/*
advisory.go - Structured fallback advisories

PURPOSE:

	A payroll run must not halt on missing configuration, but every silent
	default is an operational risk. Whenever a calculation substitutes a
	default (floor base salary, zero allowance, zero incentive) or applies a
	proration, it records a structured advisory keyed by run and employee so
	operators can audit exactly which employees got which defaults, rather
	than grepping log lines.

SEE ALSO:
  - calculator.go: Emits advisories at every fallback path
  - store.go: AdvisoryStore persistence contract
*/
package payroll

import (
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// ADVISORY - One recorded fallback or proration note
// =============================================================================

type AdvisoryCode string

const (
	// AdvisoryBaseSalaryFloor: no base salary row matched; the configured
	// floor amount was substituted.
	AdvisoryBaseSalaryFloor AdvisoryCode = "base_salary_floor"

	// AdvisoryPositionAllowanceMissing: no allowance row (including the flat
	// tier) matched; amount set to zero.
	AdvisoryPositionAllowanceMissing AdvisoryCode = "position_allowance_missing"

	// AdvisoryCompetencyAllowanceMissing: no competency row matched; zero.
	AdvisoryCompetencyAllowanceMissing AdvisoryCode = "competency_allowance_missing"

	// AdvisoryInitialPositionProrated: the initial-position window applied
	// the reduced-rate multiplier to the position allowance.
	AdvisoryInitialPositionProrated AdvisoryCode = "initial_position_prorated"

	// AdvisoryEvaluationGradeMissing: the evaluation source had no grade for
	// the employee; variable pay set to zero.
	AdvisoryEvaluationGradeMissing AdvisoryCode = "evaluation_grade_missing"

	// AdvisoryIncentiveRateMissing: no incentive rate row matched the
	// resolved keys; variable pay set to zero.
	AdvisoryIncentiveRateMissing AdvisoryCode = "incentive_rate_missing"
)

// Advisory is one structured, queryable record of a default or proration
// applied during a calculation. Informational only; never blocks a run.
type Advisory struct {
	ID         string
	RunID      RunID
	EmployeeID EmployeeID
	Period     PayPeriod
	Code       AdvisoryCode
	Message    string
	CreatedAt  time.Time
}

// NewAdvisory builds an advisory with a fresh id.
func NewAdvisory(runID RunID, id EmployeeID, period PayPeriod, code AdvisoryCode, message string) Advisory {
	return Advisory{
		ID:         uuid.NewString(),
		RunID:      runID,
		EmployeeID: id,
		Period:     period,
		Code:       code,
		Message:    message,
		CreatedAt:  time.Now().UTC(),
	}
}
