package store_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/warp/payroll-engine/payroll"
	"github.com/warp/payroll-engine/payroll/store"
)

func TestSaveRatePlan_ReseedReplacesSameValidFrom(t *testing.T) {
	// GIVEN: A seeded base salary rate
	// WHEN: Re-seeding the same (grade, employment type, valid_from) with a
	// corrected amount
	// THEN: The corrected row replaces the original instead of duplicating it

	m := store.NewMemory()
	ctx := context.Background()

	from := payroll.NewDate(2024, time.January, 1)
	seed := func(amount int64) error {
		return m.SaveRatePlan(ctx, payroll.RatePlan{
			BaseSalaries: []payroll.BaseSalaryRate{{
				Grade:          "GRD11",
				EmploymentType: payroll.EmploymentRegular,
				Monthly:        payroll.Won(amount),
				Validity:       payroll.Validity{From: from},
			}},
		})
	}
	if err := seed(3_000_000); err != nil {
		t.Fatalf("SaveRatePlan: %v", err)
	}
	if err := seed(3_200_000); err != nil {
		t.Fatalf("SaveRatePlan re-seed: %v", err)
	}

	rows, err := m.BaseSalaryRates(ctx, "GRD11", payroll.EmploymentRegular)
	if err != nil {
		t.Fatalf("BaseSalaryRates: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("rows = %d, want 1", len(rows))
	}
	if !rows[0].Monthly.Equal(payroll.Won(3_200_000)) {
		t.Errorf("monthly = %s, want 3200000", rows[0].Monthly)
	}
}

func TestSaveRatePlan_DifferentValidFromAccumulates(t *testing.T) {
	// GIVEN: A seeded base salary rate
	// WHEN: Seeding the same key with a later valid_from
	// THEN: Both versions remain available

	m := store.NewMemory()
	ctx := context.Background()

	for i, from := range []payroll.Date{
		payroll.NewDate(2024, time.January, 1),
		payroll.NewDate(2025, time.January, 1),
	} {
		err := m.SaveRatePlan(ctx, payroll.RatePlan{
			BaseSalaries: []payroll.BaseSalaryRate{{
				Grade:          "GRD11",
				EmploymentType: payroll.EmploymentRegular,
				Monthly:        payroll.Won(3_000_000 + int64(i)*100_000),
				Validity:       payroll.Validity{From: from},
			}},
		})
		if err != nil {
			t.Fatalf("SaveRatePlan: %v", err)
		}
	}

	rows, err := m.BaseSalaryRates(ctx, "GRD11", payroll.EmploymentRegular)
	if err != nil {
		t.Fatalf("BaseSalaryRates: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
}

func TestGetOrCreate_ConcurrentFirstAccess(t *testing.T) {
	// GIVEN: An employee with no profile
	// WHEN: Several resolvers race on the first access
	// THEN: A single default profile is created and every caller observes it

	m := store.NewMemory()
	resolver := payroll.NewProfileResolver(m, payroll.Defaults{
		Grade:          "GRD11",
		JobProfile:     "JP-GEN",
		CompetencyTier: payroll.CompetencyBasic,
	})
	ctx := context.Background()

	const callers = 8
	created := make([]time.Time, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p, err := resolver.GetOrCreate(ctx, "emp-1")
			if err != nil {
				t.Errorf("GetOrCreate: %v", err)
				return
			}
			if p.Grade != "GRD11" {
				t.Errorf("grade = %s, want default GRD11", p.Grade)
			}
			created[i] = p.CreatedAt
		}(i)
	}
	wg.Wait()

	stored, err := m.Profile(ctx, "emp-1")
	if err != nil {
		t.Fatalf("Profile: %v", err)
	}
	for i, ts := range created {
		if !ts.Equal(stored.CreatedAt) {
			t.Errorf("caller %d observed CreatedAt %v, stored profile has %v",
				i, ts, stored.CreatedAt)
		}
	}
}
