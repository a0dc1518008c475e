/*
profile.go - Per-employee compensation profile and lazy resolution

PURPOSE:

	The compensation profile is the mutable per-employee record the engine
	reads: current grade, job profile, competency tier, position assignment,
	position start date, and the initial-position flag. HR-facing operations
	mutate it elsewhere; from the engine's perspective it is read-only except
	for lazy creation.

LAZY CREATION:

	GetOrCreate is a side-effecting read: the first access for an employee
	creates a profile with the injected defaults and persists it. The
	create-if-absent must be atomic at the storage layer so two simultaneous
	first-accesses cannot create two profiles.

DEFAULTS:

	Defaults is an explicit configuration object injected into the resolver,
	not package-level state, so tests can supply distinct defaults without
	shared globals.

SEE ALSO:
  - store.go: ProfileStore.CreateIfAbsent contract
  - calculator.go: Sole engine consumer of profiles
*/
package payroll

import (
	"context"
	"time"
)

// =============================================================================
// COMPENSATION PROFILE
// =============================================================================

// CompensationProfile is one mutable record per employee. Position == ""
// means no position is assigned.
type CompensationProfile struct {
	EmployeeID     EmployeeID
	Grade          GradeCode
	JobProfile     JobProfileID
	CompetencyTier CompetencyTier

	Position        PositionCode
	PositionTier    PositionTier
	PositionStart   Date
	InitialPosition bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasPosition reports whether a position is assigned.
func (p *CompensationProfile) HasPosition() bool { return p.Position != "" }

// =============================================================================
// DEFAULTS - Injected system defaults for lazy creation
// =============================================================================

// Defaults holds the system-wide values a lazily created profile starts
// with: lowest grade, generic job profile, lowest competency tier.
type Defaults struct {
	Grade          GradeCode
	JobProfile     JobProfileID
	CompetencyTier CompetencyTier
}

// =============================================================================
// PROFILE RESOLVER
// =============================================================================

// ProfileResolver returns an employee's profile, creating one with the
// injected defaults on first access.
type ProfileResolver struct {
	Store    ProfileStore
	Defaults Defaults
}

func NewProfileResolver(store ProfileStore, defaults Defaults) *ProfileResolver {
	return &ProfileResolver{Store: store, Defaults: defaults}
}

// GetOrCreate returns the profile for the employee, lazily creating and
// persisting a default one if absent. Callers should be aware this mutates
// state on first access.
func (pr *ProfileResolver) GetOrCreate(ctx context.Context, id EmployeeID) (*CompensationProfile, error) {
	now := time.Now().UTC()
	return pr.Store.CreateIfAbsent(ctx, CompensationProfile{
		EmployeeID:     id,
		Grade:          pr.Defaults.Grade,
		JobProfile:     pr.Defaults.JobProfile,
		CompetencyTier: pr.Defaults.CompetencyTier,
		CreatedAt:      now,
		UpdatedAt:      now,
	})
}
