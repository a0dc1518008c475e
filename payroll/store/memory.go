// Package store provides in-memory implementations of the payroll
// persistence interfaces, for testing and development.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/payroll-engine/payroll"
)

// =============================================================================
// MEMORY STORE - Implements every payroll store interface
// =============================================================================

type Memory struct {
	mu sync.RWMutex

	employees map[payroll.EmployeeID]payroll.Employee
	profiles  map[payroll.EmployeeID]payroll.CompensationProfile

	plan payroll.RatePlan

	snapshots  map[snapshotKey]payroll.CompensationSnapshot
	runLogs    map[payroll.RunID]payroll.CalcRunLog
	advisories []payroll.Advisory
}

type snapshotKey struct {
	EmployeeID payroll.EmployeeID
	Period     payroll.PayPeriod
}

func NewMemory() *Memory {
	return &Memory{
		employees: make(map[payroll.EmployeeID]payroll.Employee),
		profiles:  make(map[payroll.EmployeeID]payroll.CompensationProfile),
		snapshots: make(map[snapshotKey]payroll.CompensationSnapshot),
		runLogs:   make(map[payroll.RunID]payroll.CalcRunLog),
	}
}

// =============================================================================
// DIRECTORY
// =============================================================================

// PutEmployee upserts an employee record.
func (m *Memory) PutEmployee(_ context.Context, e payroll.Employee) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.employees[e.ID] = e
	return nil
}

func (m *Memory) Employee(_ context.Context, id payroll.EmployeeID) (*payroll.Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.employees[id]
	if !ok {
		return nil, payroll.ErrEmployeeNotFound
	}
	return &e, nil
}

func (m *Memory) ActiveEmployees(_ context.Context) ([]payroll.EmployeeID, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var ids []payroll.EmployeeID
	for id, e := range m.employees {
		if e.Active {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// =============================================================================
// PROFILE STORE
// =============================================================================

func (m *Memory) Profile(_ context.Context, id payroll.EmployeeID) (*payroll.CompensationProfile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.profiles[id]
	if !ok {
		return nil, payroll.ErrProfileNotFound
	}
	return &p, nil
}

// CreateIfAbsent is atomic under the store lock: concurrent first-accesses
// for the same employee observe exactly one created profile.
func (m *Memory) CreateIfAbsent(_ context.Context, p payroll.CompensationProfile) (*payroll.CompensationProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.profiles[p.EmployeeID]; ok {
		return &existing, nil
	}
	m.profiles[p.EmployeeID] = p
	return &p, nil
}

func (m *Memory) SaveProfile(_ context.Context, p payroll.CompensationProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[p.EmployeeID] = p
	return nil
}

// =============================================================================
// RATE STORE
// =============================================================================

// SaveRatePlan merges the plan into the store. Rows sharing a key and
// valid_from with an incoming row are replaced, not duplicated, so a
// corrected re-seed overwrites the earlier amount.
func (m *Memory) SaveRatePlan(_ context.Context, plan payroll.RatePlan) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.plan.Grades = mergeRows(m.plan.Grades, plan.Grades,
		func(a, b payroll.GradeMaster) bool {
			return a.Code == b.Code && a.Validity.From == b.Validity.From
		})
	m.plan.Positions = mergeRows(m.plan.Positions, plan.Positions,
		func(a, b payroll.PositionMaster) bool {
			return a.Code == b.Code && a.Validity.From == b.Validity.From
		})
	m.plan.JobProfiles = mergeRows(m.plan.JobProfiles, plan.JobProfiles,
		func(a, b payroll.JobProfileMaster) bool {
			return a.ID == b.ID && a.Validity.From == b.Validity.From
		})
	m.plan.BaseSalaries = mergeRows(m.plan.BaseSalaries, plan.BaseSalaries,
		func(a, b payroll.BaseSalaryRate) bool {
			return a.Grade == b.Grade && a.EmploymentType == b.EmploymentType &&
				a.Validity.From == b.Validity.From
		})
	m.plan.PositionAllowances = mergeRows(m.plan.PositionAllowances, plan.PositionAllowances,
		func(a, b payroll.PositionAllowanceRate) bool {
			return a.Position == b.Position && a.Tier == b.Tier &&
				a.Validity.From == b.Validity.From
		})
	m.plan.CompetencyAllowances = mergeRows(m.plan.CompetencyAllowances, plan.CompetencyAllowances,
		func(a, b payroll.CompetencyAllowanceRate) bool {
			return a.JobProfile == b.JobProfile && a.Tier == b.Tier &&
				a.Validity.From == b.Validity.From
		})
	m.plan.AnnualIncentives = mergeRows(m.plan.AnnualIncentives, plan.AnnualIncentives,
		func(a, b payroll.AnnualIncentiveRate) bool {
			return a.OrgDomain == b.OrgDomain && a.RoleType == b.RoleType &&
				a.Grade == b.Grade && a.Validity.From == b.Validity.From
		})
	m.plan.MonthlyIncentives = mergeRows(m.plan.MonthlyIncentives, plan.MonthlyIncentives,
		func(a, b payroll.MonthlyIncentiveRate) bool {
			return a.RoleLevel == b.RoleLevel && a.Grade == b.Grade &&
				a.Validity.From == b.Validity.From
		})
	return nil
}

// mergeRows overwrites the existing row matched by sameKey, or appends
// when none matches.
func mergeRows[T any](existing, incoming []T, sameKey func(a, b T) bool) []T {
	for _, in := range incoming {
		replaced := false
		for i := range existing {
			if sameKey(existing[i], in) {
				existing[i] = in
				replaced = true
				break
			}
		}
		if !replaced {
			existing = append(existing, in)
		}
	}
	return existing
}

func (m *Memory) Grades(_ context.Context, code payroll.GradeCode) ([]payroll.GradeMaster, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var rows []payroll.GradeMaster
	for _, r := range m.plan.Grades {
		if r.Code == code {
			rows = append(rows, r)
		}
	}
	return rows, nil
}

func (m *Memory) Positions(_ context.Context, code payroll.PositionCode) ([]payroll.PositionMaster, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var rows []payroll.PositionMaster
	for _, r := range m.plan.Positions {
		if r.Code == code {
			rows = append(rows, r)
		}
	}
	return rows, nil
}

func (m *Memory) JobProfiles(_ context.Context, id payroll.JobProfileID) ([]payroll.JobProfileMaster, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var rows []payroll.JobProfileMaster
	for _, r := range m.plan.JobProfiles {
		if r.ID == id {
			rows = append(rows, r)
		}
	}
	return rows, nil
}

func (m *Memory) BaseSalaryRates(_ context.Context, grade payroll.GradeCode, et payroll.EmploymentType) ([]payroll.BaseSalaryRate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var rows []payroll.BaseSalaryRate
	for _, r := range m.plan.BaseSalaries {
		if r.Grade == grade && r.EmploymentType == et {
			rows = append(rows, r)
		}
	}
	return rows, nil
}

func (m *Memory) PositionAllowanceRates(_ context.Context, pos payroll.PositionCode, tier payroll.PositionTier) ([]payroll.PositionAllowanceRate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var rows []payroll.PositionAllowanceRate
	for _, r := range m.plan.PositionAllowances {
		if r.Position == pos && r.Tier == tier {
			rows = append(rows, r)
		}
	}
	return rows, nil
}

func (m *Memory) CompetencyAllowanceRates(_ context.Context, jp payroll.JobProfileID, tier payroll.CompetencyTier) ([]payroll.CompetencyAllowanceRate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var rows []payroll.CompetencyAllowanceRate
	for _, r := range m.plan.CompetencyAllowances {
		if r.JobProfile == jp && r.Tier == tier {
			rows = append(rows, r)
		}
	}
	return rows, nil
}

func (m *Memory) AnnualIncentiveRates(_ context.Context, od payroll.OrgDomain, rt payroll.RoleType, grade payroll.EvaluationGrade) ([]payroll.AnnualIncentiveRate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var rows []payroll.AnnualIncentiveRate
	for _, r := range m.plan.AnnualIncentives {
		if r.OrgDomain == od && r.RoleType == rt && r.Grade == grade {
			rows = append(rows, r)
		}
	}
	return rows, nil
}

func (m *Memory) MonthlyIncentiveRates(_ context.Context, rl payroll.RoleLevel, grade payroll.EvaluationGrade) ([]payroll.MonthlyIncentiveRate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var rows []payroll.MonthlyIncentiveRate
	for _, r := range m.plan.MonthlyIncentives {
		if r.RoleLevel == rl && r.Grade == grade {
			rows = append(rows, r)
		}
	}
	return rows, nil
}

// =============================================================================
// SNAPSHOT STORE
// =============================================================================

func (m *Memory) Upsert(_ context.Context, s payroll.CompensationSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots[snapshotKey{EmployeeID: s.EmployeeID, Period: s.Period}] = s
	return nil
}

func (m *Memory) Snapshot(_ context.Context, id payroll.EmployeeID, period payroll.PayPeriod) (*payroll.CompensationSnapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.snapshots[snapshotKey{EmployeeID: id, Period: period}]
	if !ok {
		return nil, payroll.ErrSnapshotNotFound
	}
	return &s, nil
}

func (m *Memory) SnapshotsByPeriod(_ context.Context, period payroll.PayPeriod) ([]payroll.CompensationSnapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []payroll.CompensationSnapshot
	for k, s := range m.snapshots {
		if k.Period == period {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EmployeeID < out[j].EmployeeID })
	return out, nil
}

func (m *Memory) SnapshotsByRun(_ context.Context, runID payroll.RunID) ([]payroll.CompensationSnapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []payroll.CompensationSnapshot
	for _, s := range m.snapshots {
		if s.RunID == runID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EmployeeID < out[j].EmployeeID })
	return out, nil
}

// =============================================================================
// RUN LOG STORE
// =============================================================================

func (m *Memory) SaveRunLog(_ context.Context, r payroll.CalcRunLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Deep-copy the mutable fields so later runner mutations don't leak in.
	cp := r
	cp.Changes = make(map[payroll.EmployeeID]payroll.ChangeSummary, len(r.Changes))
	for k, v := range r.Changes {
		cp.Changes[k] = v
	}
	cp.Errors = append([]payroll.RunError(nil), r.Errors...)

	m.runLogs[r.ID] = cp
	return nil
}

func (m *Memory) RunLog(_ context.Context, id payroll.RunID) (*payroll.CalcRunLog, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.runLogs[id]
	if !ok {
		return nil, payroll.ErrRunNotFound
	}
	return &r, nil
}

func (m *Memory) RunLogs(_ context.Context, period payroll.PayPeriod) ([]payroll.CalcRunLog, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []payroll.CalcRunLog
	for _, r := range m.runLogs {
		if period == "" || r.Period == period {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	return out, nil
}

// =============================================================================
// ADVISORY STORE
// =============================================================================

func (m *Memory) AppendAdvisory(_ context.Context, a payroll.Advisory) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.advisories = append(m.advisories, a)
	return nil
}

func (m *Memory) AdvisoriesByRun(_ context.Context, runID payroll.RunID) ([]payroll.Advisory, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []payroll.Advisory
	for _, a := range m.advisories {
		if a.RunID == runID {
			out = append(out, a)
		}
	}
	return out, nil
}
