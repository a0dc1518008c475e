/*
Package evaluation provides the evaluation-grade collaborator.

PURPOSE:

	The compensation engine consumes an annual and a monthly performance grade
	per employee from the evaluation subsystem. That subsystem is external and
	may be incomplete; the engine tolerates a missing grade by paying zero
	variable pay. Until the real integration lands, Fixed returns a constant
	grade for every employee, and Static serves a seeded map for tests and
	demos.

SEE ALSO:
  - payroll/store.go: EvaluationSource interface
  - payroll/calculator.go: Zero-variable-pay tolerance for missing grades
*/
package evaluation

import (
	"context"
	"sync"

	"github.com/warp/payroll-engine/payroll"
)

// =============================================================================
// FIXED - Constant-grade stub
// =============================================================================

// Fixed returns the same grade for every employee and period.
// This is the current production stand-in for the evaluation subsystem.
type Fixed struct {
	Annual  payroll.EvaluationGrade
	Monthly payroll.EvaluationGrade
}

// NewFixed returns the default stub: grade B on both cycles.
func NewFixed() *Fixed {
	return &Fixed{Annual: payroll.GradeB, Monthly: payroll.GradeB}
}

func (f *Fixed) AnnualGrade(_ context.Context, _ payroll.EmployeeID, _ int) (payroll.EvaluationGrade, bool, error) {
	if f.Annual == "" {
		return "", false, nil
	}
	return f.Annual, true, nil
}

func (f *Fixed) MonthlyGrade(_ context.Context, _ payroll.EmployeeID, _ int, _ int) (payroll.EvaluationGrade, bool, error) {
	if f.Monthly == "" {
		return "", false, nil
	}
	return f.Monthly, true, nil
}

// =============================================================================
// STATIC - Seeded map source (tests, demos)
// =============================================================================

type annualKey struct {
	ID   payroll.EmployeeID
	Year int
}

type monthlyKey struct {
	ID    payroll.EmployeeID
	Year  int
	Month int
}

// Static serves grades from seeded maps. Absent keys report ok=false,
// exercising the engine's missing-grade tolerance.
type Static struct {
	mu      sync.RWMutex
	annual  map[annualKey]payroll.EvaluationGrade
	monthly map[monthlyKey]payroll.EvaluationGrade
}

func NewStatic() *Static {
	return &Static{
		annual:  make(map[annualKey]payroll.EvaluationGrade),
		monthly: make(map[monthlyKey]payroll.EvaluationGrade),
	}
}

func (s *Static) SetAnnual(id payroll.EmployeeID, year int, grade payroll.EvaluationGrade) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.annual[annualKey{ID: id, Year: year}] = grade
}

func (s *Static) SetMonthly(id payroll.EmployeeID, year, month int, grade payroll.EvaluationGrade) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.monthly[monthlyKey{ID: id, Year: year, Month: month}] = grade
}

func (s *Static) AnnualGrade(_ context.Context, id payroll.EmployeeID, year int) (payroll.EvaluationGrade, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.annual[annualKey{ID: id, Year: year}]
	return g, ok, nil
}

func (s *Static) MonthlyGrade(_ context.Context, id payroll.EmployeeID, year, month int) (payroll.EvaluationGrade, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.monthly[monthlyKey{ID: id, Year: year, Month: month}]
	return g, ok, nil
}
