/*
handlers.go - HTTP API handlers for the compensation engine

PURPOSE:

	Exposes the compensation calculation engine via REST API. Handles HTTP
	request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:

	Employees:
	  GET    /api/employees                       List active employees
	  POST   /api/employees                       Register employee
	  GET    /api/employees/{id}                  Get employee details
	  GET    /api/employees/{id}/profile          Get compensation profile
	  PUT    /api/employees/{id}/profile          Overwrite profile (HR path)
	  GET    /api/employees/{id}/snapshots/{period} Get one snapshot

	Runs:
	  POST   /api/runs                            Trigger batch calculation
	  GET    /api/runs?period=YYYY-MM             List run logs
	  GET    /api/runs/{id}                       Get run log
	  GET    /api/runs/{id}/snapshots             Snapshots a run produced
	  GET    /api/runs/{id}/advisories            Fallback advisories of a run

	Reports:
	  GET    /api/snapshots?period=YYYY-MM        All snapshots of a period
	  GET    /api/reports/variance?period=YYYY-MM Adjacent-period warnings
	  GET    /api/reports/component-mix?period=   Component mix ratios

	Admin:
	  POST   /api/admin/rates                     Seed a rate plan from JSON

ERROR HANDLING:

	Errors are returned as JSON with appropriate HTTP status:
	- 400: Validation errors, invalid input
	- 404: Resource not found
	- 409: Conflict (overlapping validity in a seeded plan)
	- 500: Internal errors

SECURITY NOTE:

	Currently NO authentication or authorization. All endpoints are public.
	Front with a gateway before exposing outside the payroll network.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
  - scheduler.go: Automated monthly runs
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/warp/payroll-engine/factory"
	"github.com/warp/payroll-engine/payroll"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Storage is the persistence surface the handlers need. Satisfied by both
// the SQLite store and the in-memory store used in tests.
type Storage interface {
	payroll.RateStore
	payroll.ProfileStore
	payroll.SnapshotStore
	payroll.RunLogStore
	payroll.AdvisoryStore
	payroll.Directory

	PutEmployee(ctx context.Context, e payroll.Employee) error
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store     Storage
	Runner    *payroll.BatchRunner
	Validator *payroll.VarianceValidator
}

// NewHandler creates a new handler.
func NewHandler(store Storage, runner *payroll.BatchRunner, validator *payroll.VarianceValidator) *Handler {
	return &Handler{Store: store, Runner: runner, Validator: validator}
}

// =============================================================================
// EMPLOYEE HANDLERS
// =============================================================================

// ListEmployees returns all active employees.
func (h *Handler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	ids, err := h.Store.ActiveEmployees(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list employees", err)
		return
	}

	dtos := make([]EmployeeDTO, 0, len(ids))
	for _, id := range ids {
		e, err := h.Store.Employee(r.Context(), id)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to load employee", err)
			return
		}
		dtos = append(dtos, toEmployeeDTO(e))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetEmployee returns a single employee.
func (h *Handler) GetEmployee(w http.ResponseWriter, r *http.Request) {
	id := payroll.EmployeeID(chi.URLParam(r, "id"))

	e, err := h.Store.Employee(r.Context(), id)
	if errors.Is(err, payroll.ErrEmployeeNotFound) {
		writeError(w, http.StatusNotFound, "Employee not found", nil)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get employee", err)
		return
	}
	writeJSON(w, http.StatusOK, toEmployeeDTO(e))
}

// CreateEmployee registers a directory record. The org domain is
// classified from the department when not given explicitly.
func (h *Handler) CreateEmployee(w http.ResponseWriter, r *http.Request) {
	var req CreateEmployeeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.ID == "" || req.Name == "" {
		writeError(w, http.StatusBadRequest, "id and name are required", nil)
		return
	}

	hire, err := payroll.ParseDate(req.HireDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid hire_date", err)
		return
	}

	od := payroll.OrgDomain(req.OrgDomain)
	if od == "" {
		od = factory.ClassifyOrgDomain(req.Department)
	}

	e := payroll.Employee{
		ID:             payroll.EmployeeID(req.ID),
		Name:           req.Name,
		Email:          req.Email,
		EmploymentType: payroll.EmploymentType(req.EmploymentType),
		Department:     req.Department,
		OrgDomain:      od,
		HireDate:       hire,
		Active:         true,
	}
	if err := h.Store.PutEmployee(r.Context(), e); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save employee", err)
		return
	}
	writeJSON(w, http.StatusCreated, toEmployeeDTO(&e))
}

// GetProfile returns the employee's compensation profile.
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	id := payroll.EmployeeID(chi.URLParam(r, "id"))

	p, err := h.Store.Profile(r.Context(), id)
	if errors.Is(err, payroll.ErrProfileNotFound) {
		writeError(w, http.StatusNotFound, "Profile not found", nil)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get profile", err)
		return
	}
	writeJSON(w, http.StatusOK, toProfileDTO(p))
}

// UpdateProfile overwrites the compensation profile.
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	id := payroll.EmployeeID(chi.URLParam(r, "id"))

	var req UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Grade == "" || req.JobProfile == "" || req.CompetencyTier == "" {
		writeError(w, http.StatusBadRequest, "grade, job_profile and competency_tier are required", nil)
		return
	}

	p := payroll.CompensationProfile{
		EmployeeID:      id,
		Grade:           payroll.GradeCode(req.Grade),
		JobProfile:      payroll.JobProfileID(req.JobProfile),
		CompetencyTier:  payroll.CompetencyTier(req.CompetencyTier),
		Position:        payroll.PositionCode(req.Position),
		PositionTier:    payroll.PositionTier(req.PositionTier),
		InitialPosition: req.InitialPosition,
		UpdatedAt:       time.Now().UTC(),
	}
	if req.PositionStart != "" {
		start, err := payroll.ParseDate(req.PositionStart)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid position_start", err)
			return
		}
		p.PositionStart = start
	}

	// Preserve the original creation time when the profile already exists.
	if existing, err := h.Store.Profile(r.Context(), id); err == nil {
		p.CreatedAt = existing.CreatedAt
	} else {
		p.CreatedAt = p.UpdatedAt
	}

	if err := h.Store.SaveProfile(r.Context(), p); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save profile", err)
		return
	}
	writeJSON(w, http.StatusOK, toProfileDTO(&p))
}

// GetSnapshot returns one employee's snapshot for a period.
func (h *Handler) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	id := payroll.EmployeeID(chi.URLParam(r, "id"))
	period, err := payroll.ParsePayPeriod(chi.URLParam(r, "period"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid period", err)
		return
	}

	s, err := h.Store.Snapshot(r.Context(), id, period)
	if errors.Is(err, payroll.ErrSnapshotNotFound) {
		writeError(w, http.StatusNotFound, "Snapshot not found", nil)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get snapshot", err)
		return
	}
	writeJSON(w, http.StatusOK, toSnapshotDTO(s))
}

// =============================================================================
// RUN HANDLERS
// =============================================================================

// TriggerRun starts a batch calculation for a period.
func (h *Handler) TriggerRun(w http.ResponseWriter, r *http.Request) {
	var req TriggerRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	period, err := payroll.ParsePayPeriod(req.Period)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid period", err)
		return
	}

	var subset []payroll.EmployeeID
	for _, id := range req.EmployeeIDs {
		subset = append(subset, payroll.EmployeeID(id))
	}

	run, err := h.Runner.RunPeriod(r.Context(), period, subset)
	if err != nil {
		// A run log may still exist with status failed; surface it.
		if run != nil {
			writeJSON(w, http.StatusInternalServerError, toRunLogDTO(run))
			return
		}
		writeError(w, http.StatusInternalServerError, "Run failed", err)
		return
	}
	writeJSON(w, http.StatusCreated, toRunLogDTO(run))
}

// ListRuns returns run logs, optionally filtered by ?period=.
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	var period payroll.PayPeriod
	if raw := r.URL.Query().Get("period"); raw != "" {
		p, err := payroll.ParsePayPeriod(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid period", err)
			return
		}
		period = p
	}

	logs, err := h.Store.RunLogs(r.Context(), period)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list runs", err)
		return
	}

	dtos := make([]RunLogDTO, 0, len(logs))
	for i := range logs {
		dtos = append(dtos, toRunLogDTO(&logs[i]))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetRun returns one run log.
func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	id := payroll.RunID(chi.URLParam(r, "id"))

	run, err := h.Store.RunLog(r.Context(), id)
	if errors.Is(err, payroll.ErrRunNotFound) {
		writeError(w, http.StatusNotFound, "Run not found", nil)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get run", err)
		return
	}
	writeJSON(w, http.StatusOK, toRunLogDTO(run))
}

// GetRunSnapshots returns the snapshots a run produced.
func (h *Handler) GetRunSnapshots(w http.ResponseWriter, r *http.Request) {
	id := payroll.RunID(chi.URLParam(r, "id"))

	snaps, err := h.Store.SnapshotsByRun(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get snapshots", err)
		return
	}

	dtos := make([]SnapshotDTO, 0, len(snaps))
	for i := range snaps {
		dtos = append(dtos, toSnapshotDTO(&snaps[i]))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetRunAdvisories returns the fallback advisories of a run.
func (h *Handler) GetRunAdvisories(w http.ResponseWriter, r *http.Request) {
	id := payroll.RunID(chi.URLParam(r, "id"))

	advisories, err := h.Store.AdvisoriesByRun(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get advisories", err)
		return
	}

	dtos := make([]AdvisoryDTO, 0, len(advisories))
	for i := range advisories {
		dtos = append(dtos, toAdvisoryDTO(&advisories[i]))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// REPORT HANDLERS
// =============================================================================

// ListSnapshots returns every snapshot of a pay period.
func (h *Handler) ListSnapshots(w http.ResponseWriter, r *http.Request) {
	period, err := payroll.ParsePayPeriod(r.URL.Query().Get("period"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid period", err)
		return
	}

	snaps, err := h.Store.SnapshotsByPeriod(r.Context(), period)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list snapshots", err)
		return
	}

	dtos := make([]SnapshotDTO, 0, len(snaps))
	for i := range snaps {
		dtos = append(dtos, toSnapshotDTO(&snaps[i]))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// VarianceReport returns adjacent-period warnings for a pay period.
func (h *Handler) VarianceReport(w http.ResponseWriter, r *http.Request) {
	period, err := payroll.ParsePayPeriod(r.URL.Query().Get("period"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid period", err)
		return
	}

	warnings, err := h.Validator.ReportForPeriod(r.Context(), period)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to build variance report", err)
		return
	}

	dtos := make([]WarningDTO, 0, len(warnings))
	for i := range warnings {
		dtos = append(dtos, toWarningDTO(&warnings[i]))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ComponentMix returns the component-mix ratios over a period.
func (h *Handler) ComponentMix(w http.ResponseWriter, r *http.Request) {
	period, err := payroll.ParsePayPeriod(r.URL.Query().Get("period"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid period", err)
		return
	}

	snaps, err := h.Store.SnapshotsByPeriod(r.Context(), period)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load snapshots", err)
		return
	}
	writeJSON(w, http.StatusOK, toComponentMixDTO(payroll.ComponentMixForPeriod(period, snaps)))
}

// =============================================================================
// ADMIN HANDLERS
// =============================================================================

// SeedRates parses, validates, and persists a JSON rate plan.
func (h *Handler) SeedRates(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read body", err)
		return
	}

	plan, err := factory.ParseRatePlan(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid rate plan", err)
		return
	}
	if err := factory.ValidatePlan(plan); err != nil {
		var overlap *payroll.OverlapError
		if errors.As(err, &overlap) {
			writeError(w, http.StatusConflict, "Overlapping validity", err)
			return
		}
		writeError(w, http.StatusBadRequest, "Invalid rate plan", err)
		return
	}

	if err := h.Store.SaveRatePlan(r.Context(), *plan); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save rate plan", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"status": "seeded"})
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
