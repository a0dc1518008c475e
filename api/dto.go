/*
dto.go - Request/response data structures for the HTTP API

PURPOSE:

	Defines the JSON shapes exchanged with API clients. DTOs decouple the
	wire format from domain types - domain refactors don't break clients.

CONVENTIONS:
  - Monetary amounts serialize as decimal strings ("430622"), never floats
  - Dates as "2006-01-02", timestamps as RFC3339
  - Pay periods as "YYYY-MM"
  - Ratios as decimal strings ("0.62")

SEE ALSO:
  - handlers.go: Handlers producing/consuming these DTOs
*/
package api

import (
	"time"

	"github.com/warp/payroll-engine/payroll"
)

// =============================================================================
// REQUEST DTOS
// =============================================================================

// TriggerRunRequest starts a batch calculation run.
type TriggerRunRequest struct {
	// Period is the "YYYY-MM" pay period to calculate.
	Period string `json:"period"`

	// EmployeeIDs optionally restricts the run to a subset. Empty means
	// all active employees.
	EmployeeIDs []string `json:"employee_ids,omitempty"`
}

// CreateEmployeeRequest registers a directory record.
type CreateEmployeeRequest struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Email          string `json:"email"`
	EmploymentType string `json:"employment_type"`
	Department     string `json:"department"`
	OrgDomain      string `json:"org_domain,omitempty"`
	HireDate       string `json:"hire_date"`
}

// UpdateProfileRequest overwrites a compensation profile (HR path).
type UpdateProfileRequest struct {
	Grade           string `json:"grade"`
	JobProfile      string `json:"job_profile"`
	CompetencyTier  string `json:"competency_tier"`
	Position        string `json:"position,omitempty"`
	PositionTier    string `json:"position_tier,omitempty"`
	PositionStart   string `json:"position_start,omitempty"`
	InitialPosition bool   `json:"initial_position"`
}

// =============================================================================
// RESPONSE DTOS
// =============================================================================

type EmployeeDTO struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Email          string `json:"email"`
	EmploymentType string `json:"employment_type"`
	Department     string `json:"department"`
	OrgDomain      string `json:"org_domain"`
	HireDate       string `json:"hire_date"`
	Active         bool   `json:"active"`
}

type ProfileDTO struct {
	EmployeeID      string `json:"employee_id"`
	Grade           string `json:"grade"`
	JobProfile      string `json:"job_profile"`
	CompetencyTier  string `json:"competency_tier"`
	Position        string `json:"position,omitempty"`
	PositionTier    string `json:"position_tier,omitempty"`
	PositionStart   string `json:"position_start,omitempty"`
	InitialPosition bool   `json:"initial_position"`
	UpdatedAt       string `json:"updated_at"`
}

type SnapshotDTO struct {
	EmployeeID          string `json:"employee_id"`
	Period              string `json:"period"`
	BaseSalary          string `json:"base_salary"`
	FixedOvertime       string `json:"fixed_overtime"`
	PositionAllowance   string `json:"position_allowance"`
	CompetencyAllowance string `json:"competency_allowance"`
	SeasonalBonus       string `json:"seasonal_bonus"`
	AnnualIncentive     string `json:"annual_incentive"`
	MonthlyIncentive    string `json:"monthly_incentive"`
	OrdinaryWage        string `json:"ordinary_wage"`
	Total               string `json:"total"`
	RunID               string `json:"run_id"`
	CreatedAt           string `json:"created_at"`
}

type RunLogDTO struct {
	ID             string                      `json:"id"`
	Period         string                      `json:"period"`
	FormulaVersion string                      `json:"formula_version"`
	Status         string                      `json:"status"`
	AffectedCount  int                         `json:"affected_count"`
	Changes        map[string]ChangeSummaryDTO `json:"changes,omitempty"`
	Errors         []RunErrorDTO               `json:"errors,omitempty"`
	StartedAt      string                      `json:"started_at"`
	CompletedAt    *string                     `json:"completed_at,omitempty"`
}

type ChangeSummaryDTO struct {
	Total         string `json:"total"`
	BaseSalary    string `json:"base_salary"`
	FixedOvertime string `json:"fixed_overtime"`
}

type RunErrorDTO struct {
	EmployeeID string `json:"employee_id"`
	Message    string `json:"message"`
}

type AdvisoryDTO struct {
	ID         string `json:"id"`
	RunID      string `json:"run_id"`
	EmployeeID string `json:"employee_id"`
	Period     string `json:"period"`
	Code       string `json:"code"`
	Message    string `json:"message"`
	CreatedAt  string `json:"created_at"`
}

type WarningDTO struct {
	EmployeeID string `json:"employee_id"`
	Period     string `json:"period"`
	Code       string `json:"code"`
	Message    string `json:"message"`
}

type ComponentMixDTO struct {
	Period          string `json:"period"`
	Employees       int    `json:"employees"`
	TotalSum        string `json:"total_sum"`
	BaseRatio       string `json:"base_ratio"`
	OvertimeRatio   string `json:"overtime_ratio"`
	PositionRatio   string `json:"position_ratio"`
	CompetencyRatio string `json:"competency_ratio"`
	SeasonalRatio   string `json:"seasonal_ratio"`
	VariableRatio   string `json:"variable_ratio"`
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERTERS
// =============================================================================

func toEmployeeDTO(e *payroll.Employee) EmployeeDTO {
	return EmployeeDTO{
		ID:             string(e.ID),
		Name:           e.Name,
		Email:          e.Email,
		EmploymentType: string(e.EmploymentType),
		Department:     e.Department,
		OrgDomain:      string(e.OrgDomain),
		HireDate:       e.HireDate.String(),
		Active:         e.Active,
	}
}

func toProfileDTO(p *payroll.CompensationProfile) ProfileDTO {
	dto := ProfileDTO{
		EmployeeID:      string(p.EmployeeID),
		Grade:           string(p.Grade),
		JobProfile:      string(p.JobProfile),
		CompetencyTier:  string(p.CompetencyTier),
		Position:        string(p.Position),
		PositionTier:    string(p.PositionTier),
		InitialPosition: p.InitialPosition,
		UpdatedAt:       p.UpdatedAt.Format(time.RFC3339),
	}
	if !p.PositionStart.IsZero() {
		dto.PositionStart = p.PositionStart.String()
	}
	return dto
}

func toSnapshotDTO(s *payroll.CompensationSnapshot) SnapshotDTO {
	return SnapshotDTO{
		EmployeeID:          string(s.EmployeeID),
		Period:              s.Period.String(),
		BaseSalary:          s.BaseSalary.Value.String(),
		FixedOvertime:       s.FixedOvertime.Value.String(),
		PositionAllowance:   s.PositionAllowance.Value.String(),
		CompetencyAllowance: s.CompetencyAllowance.Value.String(),
		SeasonalBonus:       s.SeasonalBonus.Value.String(),
		AnnualIncentive:     s.AnnualIncentive.Value.String(),
		MonthlyIncentive:    s.MonthlyIncentive.Value.String(),
		OrdinaryWage:        s.OrdinaryWage.Value.String(),
		Total:               s.Total.Value.String(),
		RunID:               string(s.RunID),
		CreatedAt:           s.CreatedAt.Format(time.RFC3339),
	}
}

func toRunLogDTO(r *payroll.CalcRunLog) RunLogDTO {
	dto := RunLogDTO{
		ID:             string(r.ID),
		Period:         r.Period.String(),
		FormulaVersion: r.FormulaVersion,
		Status:         string(r.Status),
		AffectedCount:  r.AffectedCount,
		StartedAt:      r.StartedAt.Format(time.RFC3339),
	}
	if len(r.Changes) > 0 {
		dto.Changes = make(map[string]ChangeSummaryDTO, len(r.Changes))
		for id, c := range r.Changes {
			dto.Changes[string(id)] = ChangeSummaryDTO{
				Total:         c.Total.Value.String(),
				BaseSalary:    c.BaseSalary.Value.String(),
				FixedOvertime: c.FixedOvertime.Value.String(),
			}
		}
	}
	for _, e := range r.Errors {
		dto.Errors = append(dto.Errors, RunErrorDTO{
			EmployeeID: string(e.EmployeeID),
			Message:    e.Message,
		})
	}
	if r.CompletedAt != nil {
		s := r.CompletedAt.Format(time.RFC3339)
		dto.CompletedAt = &s
	}
	return dto
}

func toAdvisoryDTO(a *payroll.Advisory) AdvisoryDTO {
	return AdvisoryDTO{
		ID:         a.ID,
		RunID:      string(a.RunID),
		EmployeeID: string(a.EmployeeID),
		Period:     a.Period.String(),
		Code:       string(a.Code),
		Message:    a.Message,
		CreatedAt:  a.CreatedAt.Format(time.RFC3339),
	}
}

func toWarningDTO(w *payroll.Warning) WarningDTO {
	return WarningDTO{
		EmployeeID: string(w.EmployeeID),
		Period:     w.Period.String(),
		Code:       string(w.Code),
		Message:    w.Message,
	}
}

func toComponentMixDTO(m payroll.ComponentMix) ComponentMixDTO {
	return ComponentMixDTO{
		Period:          m.Period.String(),
		Employees:       m.Employees,
		TotalSum:        m.TotalSum.Value.String(),
		BaseRatio:       m.BaseRatio.String(),
		OvertimeRatio:   m.OvertimeRatio.String(),
		PositionRatio:   m.PositionRatio.String(),
		CompetencyRatio: m.CompetencyRatio.String(),
		SeasonalRatio:   m.SeasonalRatio.String(),
		VariableRatio:   m.VariableRatio.String(),
	}
}
