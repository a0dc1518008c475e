package factory_test

import (
	"errors"
	"testing"

	"github.com/warp/payroll-engine/factory"
	"github.com/warp/payroll-engine/payroll"
)

// =============================================================================
// PARSING
// =============================================================================

func TestParseRatePlan_FullPlan(t *testing.T) {
	// GIVEN: A plan covering all eight tables
	// WHEN: Parsing
	// THEN: Typed rows with the expected values

	data := []byte(`{
		"grades": [
			{"code": "GRD11", "level": 1, "step": 1, "title": "Associate", "valid_from": "2024-01-01"}
		],
		"positions": [
			{"code": "POS-TL", "name": "Team Lead", "org_domain": "headquarters",
			 "manager_level": 1, "role_level": "lead", "valid_from": "2024-01-01"}
		],
		"job_profiles": [
			{"id": "JP-GEN", "family": "corporate", "series": "general", "role": "staff",
			 "valid_from": "2024-01-01"}
		],
		"base_salaries": [
			{"grade": "GRD11", "employment_type": "regular", "monthly": 3000000,
			 "valid_from": "2024-01-01", "valid_to": "2024-12-31"}
		],
		"position_allowances": [
			{"position": "POS-TL", "tier": "flat", "monthly": 300000, "valid_from": "2024-01-01"}
		],
		"competency_allowances": [
			{"job_profile": "JP-GEN", "tier": "basic", "monthly": 100000, "valid_from": "2024-01-01"}
		],
		"annual_incentives": [
			{"org_domain": "headquarters", "role_type": "staff", "grade": "A",
			 "rate_percent": 150, "valid_from": "2024-01-01"}
		],
		"monthly_incentives": [
			{"role_level": "senior", "grade": "B", "amount": 250000, "valid_from": "2024-01-01"}
		]
	}`)

	plan, err := factory.ParseRatePlan(data)
	if err != nil {
		t.Fatalf("ParseRatePlan: %v", err)
	}

	if len(plan.Grades) != 1 || plan.Grades[0].Code != "GRD11" {
		t.Errorf("grades = %+v", plan.Grades)
	}
	if len(plan.BaseSalaries) != 1 {
		t.Fatalf("base salaries = %+v", plan.BaseSalaries)
	}
	bs := plan.BaseSalaries[0]
	if !bs.Monthly.Equal(payroll.Won(3_000_000)) {
		t.Errorf("monthly = %s", bs.Monthly)
	}
	if bs.Validity.To == nil || bs.Validity.To.String() != "2024-12-31" {
		t.Errorf("valid_to = %v", bs.Validity.To)
	}
	if len(plan.AnnualIncentives) != 1 || plan.AnnualIncentives[0].RatePercent.String() != "150" {
		t.Errorf("annual incentives = %+v", plan.AnnualIncentives)
	}
}

func TestParseRatePlan_OmittedValidToIsOpenEnded(t *testing.T) {
	plan, err := factory.ParseRatePlan([]byte(`{
		"grades": [{"code": "GRD11", "level": 1, "step": 1, "title": "Associate", "valid_from": "2024-01-01"}]
	}`))
	if err != nil {
		t.Fatalf("ParseRatePlan: %v", err)
	}
	if plan.Grades[0].Validity.To != nil {
		t.Errorf("expected open-ended validity, got %v", plan.Grades[0].Validity.To)
	}
}

func TestParseRatePlan_BadDate(t *testing.T) {
	_, err := factory.ParseRatePlan([]byte(`{
		"grades": [{"code": "GRD11", "level": 1, "step": 1, "title": "Associate", "valid_from": "01/01/2024"}]
	}`))
	if err == nil {
		t.Fatal("expected error for malformed date")
	}
}

func TestParseRatePlan_ValidToBeforeValidFrom(t *testing.T) {
	_, err := factory.ParseRatePlan([]byte(`{
		"grades": [{"code": "GRD11", "level": 1, "step": 1, "title": "Associate",
		            "valid_from": "2024-06-01", "valid_to": "2024-01-01"}]
	}`))
	if err == nil {
		t.Fatal("expected error for inverted interval")
	}
}

func TestParseRatePlan_PositionAllowanceRateDefaultsToOne(t *testing.T) {
	plan, err := factory.ParseRatePlan([]byte(`{
		"position_allowances": [
			{"position": "POS-TL", "tier": "flat", "monthly": 300000, "valid_from": "2024-01-01"},
			{"position": "POS-TL", "tier": "t1", "monthly": 300000, "rate": 0.5, "valid_from": "2024-01-01"}
		]
	}`))
	if err != nil {
		t.Fatalf("ParseRatePlan: %v", err)
	}
	if plan.PositionAllowances[0].Rate.String() != "1" {
		t.Errorf("omitted rate = %s, want 1", plan.PositionAllowances[0].Rate)
	}
	if plan.PositionAllowances[1].Rate.String() != "0.5" {
		t.Errorf("explicit rate = %s, want 0.5", plan.PositionAllowances[1].Rate)
	}
}

// =============================================================================
// CLASSIFICATION
// =============================================================================

func TestParseRatePlan_ClassifiesWhenFieldsAbsent(t *testing.T) {
	// GIVEN: A position without org_domain or role_level
	// WHEN: Parsing
	// THEN: Department and title heuristics fill in the enumerated fields

	plan, err := factory.ParseRatePlan([]byte(`{
		"positions": [
			{"code": "POS-SD", "name": "Regional Sales Director", "department": "East Sales Division",
			 "manager_level": 3, "valid_from": "2024-01-01"}
		]
	}`))
	if err != nil {
		t.Fatalf("ParseRatePlan: %v", err)
	}
	p := plan.Positions[0]
	if p.OrgDomain != payroll.OrgField {
		t.Errorf("org domain = %s, want field", p.OrgDomain)
	}
	if p.RoleLevel != payroll.RoleLevelLead {
		t.Errorf("role level = %s, want lead", p.RoleLevel)
	}
}

func TestClassifyOrgDomain(t *testing.T) {
	cases := []struct {
		department string
		want       payroll.OrgDomain
	}{
		{"East Sales Division", payroll.OrgField},
		{"Field Operations", payroll.OrgField},
		{"Gangnam Store", payroll.OrgField},
		{"Busan Branch Office", payroll.OrgField},
		{"Retail Support", payroll.OrgField},
		{"Finance", payroll.OrgHeadquarters},
		{"People & Culture", payroll.OrgHeadquarters},
		{"", payroll.OrgHeadquarters},
	}
	for _, c := range cases {
		if got := factory.ClassifyOrgDomain(c.department); got != c.want {
			t.Errorf("ClassifyOrgDomain(%q) = %s, want %s", c.department, got, c.want)
		}
	}
}

func TestClassifyRoleLevel(t *testing.T) {
	cases := []struct {
		title        string
		managerLevel int
		want         payroll.RoleLevel
	}{
		{"Sales Director", 0, payroll.RoleLevelLead},
		{"Head of Engineering", 0, payroll.RoleLevelLead},
		{"Chief of Staff", 0, payroll.RoleLevelLead},
		{"Team Lead", 0, payroll.RoleLevelLead},
		{"Senior Manager", 2, payroll.RoleLevelSenior},
		{"Manager", 3, payroll.RoleLevelSenior},
		{"Associate", 1, payroll.RoleLevelJunior},
		{"Associate", 0, payroll.RoleLevelJunior},
	}
	for _, c := range cases {
		if got := factory.ClassifyRoleLevel(c.title, c.managerLevel); got != c.want {
			t.Errorf("ClassifyRoleLevel(%q, %d) = %s, want %s", c.title, c.managerLevel, got, c.want)
		}
	}
}

// =============================================================================
// VALIDATION
// =============================================================================

func TestValidatePlan_RejectsOverlap(t *testing.T) {
	// GIVEN: Two base salary rows for the same grade and type with
	//        intersecting intervals
	// WHEN: Validating
	// THEN: OverlapError naming the table and key

	plan, err := factory.ParseRatePlan([]byte(`{
		"base_salaries": [
			{"grade": "GRD11", "employment_type": "regular", "monthly": 3000000,
			 "valid_from": "2024-01-01", "valid_to": "2024-12-31"},
			{"grade": "GRD11", "employment_type": "regular", "monthly": 3200000,
			 "valid_from": "2024-07-01"}
		]
	}`))
	if err != nil {
		t.Fatalf("ParseRatePlan: %v", err)
	}

	err = factory.ValidatePlan(plan)
	var overlap *payroll.OverlapError
	if !errors.As(err, &overlap) {
		t.Fatalf("expected OverlapError, got %v", err)
	}
	if overlap.Table != "base_salaries" {
		t.Errorf("table = %s", overlap.Table)
	}
	if overlap.Key != "GRD11/regular" {
		t.Errorf("key = %s", overlap.Key)
	}
}

func TestValidatePlan_AdjacentIntervalsPass(t *testing.T) {
	plan, err := factory.ParseRatePlan([]byte(`{
		"base_salaries": [
			{"grade": "GRD11", "employment_type": "regular", "monthly": 3000000,
			 "valid_from": "2024-01-01", "valid_to": "2024-12-31"},
			{"grade": "GRD11", "employment_type": "regular", "monthly": 3200000,
			 "valid_from": "2025-01-01"}
		]
	}`))
	if err != nil {
		t.Fatalf("ParseRatePlan: %v", err)
	}
	if err := factory.ValidatePlan(plan); err != nil {
		t.Errorf("adjacent intervals should validate: %v", err)
	}
}

func TestValidatePlan_DifferentKeysMayOverlap(t *testing.T) {
	// Different tiers for the same position are independent series.
	plan, err := factory.ParseRatePlan([]byte(`{
		"position_allowances": [
			{"position": "POS-TL", "tier": "flat", "monthly": 300000, "valid_from": "2024-01-01"},
			{"position": "POS-TL", "tier": "t1", "monthly": 350000, "valid_from": "2024-01-01"}
		]
	}`))
	if err != nil {
		t.Fatalf("ParseRatePlan: %v", err)
	}
	if err := factory.ValidatePlan(plan); err != nil {
		t.Errorf("distinct tier keys should validate: %v", err)
	}
}
