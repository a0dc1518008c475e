/*
Package factory provides JSON to Go rate-plan conversion.

PURPOSE:

	Converts JSON rate-plan definitions into payroll.RatePlan rows. This
	enables rate administration without code changes - HR can define grades,
	positions, allowance tables, and incentive tables in JSON, and the
	factory creates the typed rows the stores persist.

VALIDATION:

	ValidatePlan enforces the versioned-table invariant at load time: for a
	given (dimension key, tier key), validity intervals must not overlap.
	Overlapping rows are rejected before they reach a store, so the
	resolver's most-recent-valid-from tie-break only ever fires on legacy
	data, never on freshly loaded plans.

CLASSIFICATION:

	ClassifyOrgDomain and ClassifyRoleLevel turn free-form department names
	and position titles into the explicit enumerated fields the engine keys
	on. The substring matching lives HERE, at data-load time, and nowhere in
	the calculation path - a misclassification is fixed by editing the loaded
	row, not by chasing string heuristics through the engine.

JSON SCHEMA (abridged):

	{
	  "grades": [{"code": "GRD11", "level": 1, "step": 1, "title": "Associate",
	              "valid_from": "2024-01-01"}],
	  "base_salaries": [{"grade": "GRD11", "employment_type": "regular",
	                     "monthly": 3000000, "valid_from": "2024-01-01"}],
	  ...
	}
	Omitted "valid_to" means open-ended/current.

USAGE:

	plan, err := factory.ParseRatePlan(jsonBytes)
	if err != nil { ... }
	if err := factory.ValidatePlan(plan); err != nil { ... }
	store.SaveRatePlan(ctx, *plan)

SEE ALSO:
  - payroll/rates.go: Row types and resolution
  - cmd/server: The seed subcommand feeding this factory
*/
package factory

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/warp/payroll-engine/payroll"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

type RatePlanJSON struct {
	Grades               []GradeJSON               `json:"grades,omitempty"`
	Positions            []PositionJSON            `json:"positions,omitempty"`
	JobProfiles          []JobProfileJSON          `json:"job_profiles,omitempty"`
	BaseSalaries         []BaseSalaryJSON          `json:"base_salaries,omitempty"`
	PositionAllowances   []PositionAllowanceJSON   `json:"position_allowances,omitempty"`
	CompetencyAllowances []CompetencyAllowanceJSON `json:"competency_allowances,omitempty"`
	AnnualIncentives     []AnnualIncentiveJSON     `json:"annual_incentives,omitempty"`
	MonthlyIncentives    []MonthlyIncentiveJSON    `json:"monthly_incentives,omitempty"`
}

type GradeJSON struct {
	Code      string `json:"code"`
	Level     int    `json:"level"`
	Step      int    `json:"step"`
	Title     string `json:"title"`
	ValidFrom string `json:"valid_from"`
	ValidTo   string `json:"valid_to,omitempty"`
}

type PositionJSON struct {
	Code         string `json:"code"`
	Name         string `json:"name"`
	OrgDomain    string `json:"org_domain,omitempty"`
	Department   string `json:"department,omitempty"` // classified when org_domain is absent
	ManagerLevel int    `json:"manager_level"`
	RoleLevel    string `json:"role_level,omitempty"` // classified from name when absent
	ValidFrom    string `json:"valid_from"`
	ValidTo      string `json:"valid_to,omitempty"`
}

type JobProfileJSON struct {
	ID        string `json:"id"`
	Family    string `json:"family"`
	Series    string `json:"series"`
	Role      string `json:"role"`
	ValidFrom string `json:"valid_from"`
	ValidTo   string `json:"valid_to,omitempty"`
}

type BaseSalaryJSON struct {
	Grade          string `json:"grade"`
	EmploymentType string `json:"employment_type"`
	Monthly        int64  `json:"monthly"`
	ValidFrom      string `json:"valid_from"`
	ValidTo        string `json:"valid_to,omitempty"`
}

type PositionAllowanceJSON struct {
	Position  string  `json:"position"`
	Tier      string  `json:"tier"` // "flat" = the no-tiering fallback row
	Monthly   int64   `json:"monthly"`
	Rate      float64 `json:"rate,omitempty"` // defaults to 1.0
	ValidFrom string  `json:"valid_from"`
	ValidTo   string  `json:"valid_to,omitempty"`
}

type CompetencyAllowanceJSON struct {
	JobProfile string `json:"job_profile"`
	Tier       string `json:"tier"`
	Monthly    int64  `json:"monthly"`
	ValidFrom  string `json:"valid_from"`
	ValidTo    string `json:"valid_to,omitempty"`
}

type AnnualIncentiveJSON struct {
	OrgDomain   string  `json:"org_domain"`
	RoleType    string  `json:"role_type"`
	Grade       string  `json:"grade"`
	RatePercent float64 `json:"rate_percent"`
	ValidFrom   string  `json:"valid_from"`
	ValidTo     string  `json:"valid_to,omitempty"`
}

type MonthlyIncentiveJSON struct {
	RoleLevel string `json:"role_level"`
	Grade     string `json:"grade"`
	Amount    int64  `json:"amount"`
	ValidFrom string `json:"valid_from"`
	ValidTo   string `json:"valid_to,omitempty"`
}

// =============================================================================
// PARSING
// =============================================================================

// ParseRatePlan converts a JSON rate plan into typed rows.
func ParseRatePlan(data []byte) (*payroll.RatePlan, error) {
	var raw RatePlanJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing rate plan: %w", err)
	}

	plan := &payroll.RatePlan{}

	for _, g := range raw.Grades {
		v, err := parseValidity(g.ValidFrom, g.ValidTo)
		if err != nil {
			return nil, fmt.Errorf("grade %s: %w", g.Code, err)
		}
		plan.Grades = append(plan.Grades, payroll.GradeMaster{
			Code:     payroll.GradeCode(g.Code),
			Level:    g.Level,
			Step:     g.Step,
			Title:    g.Title,
			Validity: v,
		})
	}

	for _, p := range raw.Positions {
		v, err := parseValidity(p.ValidFrom, p.ValidTo)
		if err != nil {
			return nil, fmt.Errorf("position %s: %w", p.Code, err)
		}
		od := payroll.OrgDomain(p.OrgDomain)
		if od == "" {
			od = ClassifyOrgDomain(p.Department)
		}
		rl := payroll.RoleLevel(p.RoleLevel)
		if rl == "" {
			rl = ClassifyRoleLevel(p.Name, p.ManagerLevel)
		}
		plan.Positions = append(plan.Positions, payroll.PositionMaster{
			Code:         payroll.PositionCode(p.Code),
			Name:         p.Name,
			OrgDomain:    od,
			ManagerLevel: p.ManagerLevel,
			RoleLevel:    rl,
			Validity:     v,
		})
	}

	for _, j := range raw.JobProfiles {
		v, err := parseValidity(j.ValidFrom, j.ValidTo)
		if err != nil {
			return nil, fmt.Errorf("job profile %s: %w", j.ID, err)
		}
		plan.JobProfiles = append(plan.JobProfiles, payroll.JobProfileMaster{
			ID:       payroll.JobProfileID(j.ID),
			Family:   j.Family,
			Series:   j.Series,
			Role:     j.Role,
			Validity: v,
		})
	}

	for _, b := range raw.BaseSalaries {
		v, err := parseValidity(b.ValidFrom, b.ValidTo)
		if err != nil {
			return nil, fmt.Errorf("base salary %s/%s: %w", b.Grade, b.EmploymentType, err)
		}
		plan.BaseSalaries = append(plan.BaseSalaries, payroll.BaseSalaryRate{
			Grade:          payroll.GradeCode(b.Grade),
			EmploymentType: payroll.EmploymentType(b.EmploymentType),
			Monthly:        payroll.Won(b.Monthly),
			Validity:       v,
		})
	}

	for _, a := range raw.PositionAllowances {
		v, err := parseValidity(a.ValidFrom, a.ValidTo)
		if err != nil {
			return nil, fmt.Errorf("position allowance %s/%s: %w", a.Position, a.Tier, err)
		}
		rate := decimal.NewFromFloat(a.Rate)
		if a.Rate == 0 {
			rate = decimal.NewFromInt(1)
		}
		plan.PositionAllowances = append(plan.PositionAllowances, payroll.PositionAllowanceRate{
			Position: payroll.PositionCode(a.Position),
			Tier:     payroll.PositionTier(a.Tier),
			Monthly:  payroll.Won(a.Monthly),
			Rate:     rate,
			Validity: v,
		})
	}

	for _, c := range raw.CompetencyAllowances {
		v, err := parseValidity(c.ValidFrom, c.ValidTo)
		if err != nil {
			return nil, fmt.Errorf("competency allowance %s/%s: %w", c.JobProfile, c.Tier, err)
		}
		plan.CompetencyAllowances = append(plan.CompetencyAllowances, payroll.CompetencyAllowanceRate{
			JobProfile: payroll.JobProfileID(c.JobProfile),
			Tier:       payroll.CompetencyTier(c.Tier),
			Monthly:    payroll.Won(c.Monthly),
			Validity:   v,
		})
	}

	for _, a := range raw.AnnualIncentives {
		v, err := parseValidity(a.ValidFrom, a.ValidTo)
		if err != nil {
			return nil, fmt.Errorf("annual incentive %s/%s/%s: %w", a.OrgDomain, a.RoleType, a.Grade, err)
		}
		plan.AnnualIncentives = append(plan.AnnualIncentives, payroll.AnnualIncentiveRate{
			OrgDomain:   payroll.OrgDomain(a.OrgDomain),
			RoleType:    payroll.RoleType(a.RoleType),
			Grade:       payroll.EvaluationGrade(a.Grade),
			RatePercent: decimal.NewFromFloat(a.RatePercent),
			Validity:    v,
		})
	}

	for _, m := range raw.MonthlyIncentives {
		v, err := parseValidity(m.ValidFrom, m.ValidTo)
		if err != nil {
			return nil, fmt.Errorf("monthly incentive %s/%s: %w", m.RoleLevel, m.Grade, err)
		}
		plan.MonthlyIncentives = append(plan.MonthlyIncentives, payroll.MonthlyIncentiveRate{
			RoleLevel: payroll.RoleLevel(m.RoleLevel),
			Grade:     payroll.EvaluationGrade(m.Grade),
			Amount:    payroll.Won(m.Amount),
			Validity:  v,
		})
	}

	return plan, nil
}

func parseValidity(from, to string) (payroll.Validity, error) {
	f, err := payroll.ParseDate(from)
	if err != nil {
		return payroll.Validity{}, err
	}
	v := payroll.Validity{From: f}
	if to != "" {
		t, err := payroll.ParseDate(to)
		if err != nil {
			return payroll.Validity{}, err
		}
		if t.Before(f) {
			return payroll.Validity{}, fmt.Errorf("valid_to %s before valid_from %s", to, from)
		}
		v.To = &t
	}
	return v, nil
}

// =============================================================================
// VALIDATION - Write-time non-overlap enforcement
// =============================================================================

// ValidatePlan rejects plans where two rows for the same key have
// overlapping validity intervals.
func ValidatePlan(plan *payroll.RatePlan) error {
	if err := checkOverlaps("grades", plan.Grades, func(r payroll.GradeMaster) string {
		return string(r.Code)
	}); err != nil {
		return err
	}
	if err := checkOverlaps("positions", plan.Positions, func(r payroll.PositionMaster) string {
		return string(r.Code)
	}); err != nil {
		return err
	}
	if err := checkOverlaps("job_profiles", plan.JobProfiles, func(r payroll.JobProfileMaster) string {
		return string(r.ID)
	}); err != nil {
		return err
	}
	if err := checkOverlaps("base_salaries", plan.BaseSalaries, func(r payroll.BaseSalaryRate) string {
		return string(r.Grade) + "/" + string(r.EmploymentType)
	}); err != nil {
		return err
	}
	if err := checkOverlaps("position_allowances", plan.PositionAllowances, func(r payroll.PositionAllowanceRate) string {
		return string(r.Position) + "/" + string(r.Tier)
	}); err != nil {
		return err
	}
	if err := checkOverlaps("competency_allowances", plan.CompetencyAllowances, func(r payroll.CompetencyAllowanceRate) string {
		return string(r.JobProfile) + "/" + string(r.Tier)
	}); err != nil {
		return err
	}
	if err := checkOverlaps("annual_incentives", plan.AnnualIncentives, func(r payroll.AnnualIncentiveRate) string {
		return string(r.OrgDomain) + "/" + string(r.RoleType) + "/" + string(r.Grade)
	}); err != nil {
		return err
	}
	return checkOverlaps("monthly_incentives", plan.MonthlyIncentives, func(r payroll.MonthlyIncentiveRate) string {
		return string(r.RoleLevel) + "/" + string(r.Grade)
	})
}

func checkOverlaps[R interface{ ValidityInterval() payroll.Validity }](table string, rows []R, key func(R) string) error {
	byKey := make(map[string][]payroll.Validity)
	for _, r := range rows {
		k := key(r)
		for _, existing := range byKey[k] {
			if existing.Overlaps(r.ValidityInterval()) {
				return &payroll.OverlapError{Table: table, Key: k}
			}
		}
		byKey[k] = append(byKey[k], r.ValidityInterval())
	}
	return nil
}

// =============================================================================
// CLASSIFICATION - Load-time string heuristics
// =============================================================================

// ClassifyOrgDomain maps a free-form department name to the enumerated
// organization domain. Field/sales organizations match by keyword; anything
// else is headquarters.
func ClassifyOrgDomain(department string) payroll.OrgDomain {
	d := strings.ToLower(department)
	for _, kw := range []string{"sales", "field", "store", "branch", "retail"} {
		if strings.Contains(d, kw) {
			return payroll.OrgField
		}
	}
	return payroll.OrgHeadquarters
}

// ClassifyRoleLevel maps a position title (and manager level) to the
// enumerated role level keying the monthly incentive table.
func ClassifyRoleLevel(title string, managerLevel int) payroll.RoleLevel {
	t := strings.ToLower(title)
	for _, kw := range []string{"director", "head", "chief", "lead"} {
		if strings.Contains(t, kw) {
			return payroll.RoleLevelLead
		}
	}
	if managerLevel >= 2 {
		return payroll.RoleLevelSenior
	}
	return payroll.RoleLevelJunior
}
