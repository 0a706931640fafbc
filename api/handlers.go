/*
handlers.go - HTTP API handlers for the offboarding engine

PURPOSE:
  Exposes the resignation lifecycle via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to the hr service.

ENDPOINTS:
  Employees:
    GET    /api/employees                  List employees (org scoped)
    POST   /api/employees                  Create employee
    GET    /api/employees/{id}             Get employee details
    GET    /api/employees/{id}/resignations Resignation history
    POST   /api/employees/{id}/resignations Apply for resignation

  Resignations:
    GET    /api/resignations/pending            Role-scoped pending view
    GET    /api/resignations/{id}               Get resignation
    POST   /api/resignations/{id}/withdraw      Withdraw (applicant only)
    POST   /api/resignations/{id}/levels/{level}/approve
    POST   /api/resignations/{id}/levels/{level}/reject
    POST   /api/resignations/batch              All-or-nothing batch action
    GET    /api/resignations/{id}/settlement    Final-settlement preview

  Admin:
    POST   /api/admin/sweep                Trigger finalization sweep
    GET    /api/admin/sweeps               List sweep runs
    POST   /api/admin/seed                 Load demo dataset
    POST   /api/admin/reset                Wipe database (dev only)

IDENTITY:
  Authentication is external. The caller's identity arrives in headers
  the gateway is trusted to have verified:
    X-Actor-Id, X-Actor-Role, X-Org-Id
  The engine only checks that the supplied role can reach the operation.

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 403: Role cannot reach the operation
  - 404: Record not found
  - 409: Precondition conflicts (already applied/acted, in progress)
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/warp/hr-engine/hr"
	"github.com/warp/hr-engine/payroll"
	"github.com/warp/hr-engine/store/sqlite"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store   *sqlite.Store
	Service *hr.Service
}

// NewHandler creates a new handler with the given store.
func NewHandler(store *sqlite.Store) *Handler {
	return &Handler{
		Store:   store,
		Service: hr.NewService(store),
	}
}

// identity extracts the caller identity forwarded by the gateway.
func identity(r *http.Request) hr.Identity {
	return hr.Identity{
		ActorID:        r.Header.Get("X-Actor-Id"),
		Role:           r.Header.Get("X-Actor-Role"),
		OrganizationID: r.Header.Get("X-Org-Id"),
	}
}

// =============================================================================
// EMPLOYEE HANDLERS
// =============================================================================

// ListEmployees returns employees, scoped to ?org= when given.
func (h *Handler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	employees, err := h.Store.ListEmployees(r.Context(), r.URL.Query().Get("org"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list employees", err)
		return
	}

	dtos := make([]EmployeeDTO, len(employees))
	for i, e := range employees {
		dtos[i] = toEmployeeDTO(e)
	}
	writeJSON(w, http.StatusOK, map[string]any{"employees": dtos})
}

// GetEmployee returns one employee.
func (h *Handler) GetEmployee(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	emp, err := h.Store.GetEmployee(r.Context(), id)
	if err != nil {
		writeDomainError(w, "Failed to get employee", err)
		return
	}
	writeJSON(w, http.StatusOK, toEmployeeDTO(emp))
}

// CreateEmployee creates a directory record.
func (h *Handler) CreateEmployee(w http.ResponseWriter, r *http.Request) {
	var req CreateEmployeeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.ID == "" || req.Name == "" || req.OrganizationID == "" {
		writeError(w, http.StatusBadRequest, "id, name and organization_id are required", nil)
		return
	}
	if req.NoticeDays <= 0 {
		req.NoticeDays = 30
	}

	emp := &hr.Employee{
		ID:               req.ID,
		Name:             req.Name,
		Email:            req.Email,
		OrganizationID:   req.OrganizationID,
		DepartmentID:     req.DepartmentID,
		ManagerID:        req.ManagerID,
		NoticeDays:       req.NoticeDays,
		EmploymentStatus: hr.EmploymentActive,
		AccountActive:    true,
		CreatedAt:        time.Now().UTC(),
	}
	if err := h.Store.SaveEmployee(r.Context(), emp); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create employee", err)
		return
	}
	writeJSON(w, http.StatusCreated, toEmployeeDTO(emp))
}

// =============================================================================
// RESIGNATION HANDLERS
// =============================================================================

// Apply submits a resignation for the employee in the URL.
func (h *Handler) Apply(w http.ResponseWriter, r *http.Request) {
	employeeID := chi.URLParam(r, "id")

	var req ApplyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	submittedAt := hr.Today()
	if req.SubmittedAt != "" {
		t, err := time.Parse("2006-01-02", req.SubmittedAt)
		if err != nil {
			writeError(w, http.StatusBadRequest, "submitted_at must be YYYY-MM-DD", err)
			return
		}
		submittedAt = t
	}

	res, err := h.Service.Apply(r.Context(), employeeID, identity(r), submittedAt, req.Reason)
	if err != nil {
		writeDomainError(w, "Failed to apply", err)
		return
	}
	writeJSON(w, http.StatusCreated, toResignationDTO(res))
}

// GetResignation returns one resignation with its stage sub-records.
func (h *Handler) GetResignation(w http.ResponseWriter, r *http.Request) {
	res, err := h.Store.GetResignation(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, "Failed to get resignation", err)
		return
	}
	writeJSON(w, http.StatusOK, toResignationDTO(res))
}

// EmployeeResignations returns the employee's full history.
func (h *Handler) EmployeeResignations(w http.ResponseWriter, r *http.Request) {
	history, err := h.Service.HistoryForEmployee(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get history", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"resignations": toResignationDTOs(history)})
}

// ActOnStage is the approve/reject handler. The decision comes from the
// route, the level from the URL.
func (h *Handler) ActOnStage(decision hr.Decision) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resignationID := chi.URLParam(r, "id")
		level, err := hr.ParseLevel(chi.URLParam(r, "level"))
		if err != nil {
			writeDomainError(w, "Invalid level", err)
			return
		}

		var req StageActionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body", err)
			return
		}

		action := hr.StageAction{
			Level:    level,
			Decision: decision,
			Comment:  req.Comment,
			Reason:   req.Reason,
		}
		if req.ActualLastWorkingDate != "" {
			t, err := time.Parse("2006-01-02", req.ActualLastWorkingDate)
			if err != nil {
				writeError(w, http.StatusBadRequest, "actual_last_working_date must be YYYY-MM-DD", err)
				return
			}
			action.ActualLastWorkingDate = &t
		}

		res, err := h.Service.ActOnStage(r.Context(), resignationID, identity(r), action)
		if err != nil {
			writeDomainError(w, "Failed to act on stage", err)
			return
		}
		writeJSON(w, http.StatusOK, toResignationDTO(res))
	}
}

// Withdraw retracts a resignation before any stage has acted.
func (h *Handler) Withdraw(w http.ResponseWriter, r *http.Request) {
	res, err := h.Service.Withdraw(r.Context(), chi.URLParam(r, "id"), identity(r))
	if err != nil {
		writeDomainError(w, "Failed to withdraw", err)
		return
	}
	writeJSON(w, http.StatusOK, toResignationDTO(res))
}

// BatchAct applies one decision to many resignations, all-or-nothing.
func (h *Handler) BatchAct(w http.ResponseWriter, r *http.Request) {
	var req BatchActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	level, err := hr.ParseLevel(req.Level)
	if err != nil {
		writeDomainError(w, "Invalid level", err)
		return
	}
	decision, err := hr.ParseDecision(req.Decision)
	if err != nil {
		writeDomainError(w, "Invalid decision", err)
		return
	}

	result, err := h.Service.BatchAct(r.Context(), req.IDs, identity(r), hr.StageAction{
		Level:    level,
		Decision: decision,
		Comment:  req.Comment,
		Reason:   req.Reason,
	})
	if err != nil {
		var ineligible *hr.BatchIneligibleError
		if errors.As(err, &ineligible) {
			writeJSON(w, http.StatusConflict, map[string]any{
				"error":      "batch rejected",
				"requested":  ineligible.Requested,
				"ineligible": ineligible.Ineligible,
			})
			return
		}
		writeDomainError(w, "Failed to apply batch", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"applied":      result.Applied,
		"level":        string(result.Level),
		"decision":     string(result.Decision),
		"resignations": toResignationDTOs(result.Resignations),
	})
}

// PendingResignations returns the pending view for the caller's role.
func (h *Handler) PendingResignations(w http.ResponseWriter, r *http.Request) {
	id := identity(r)
	stageStatus := hr.StageStatus(r.URL.Query().Get("stage_status"))

	var (
		pending []*hr.Resignation
		err     error
	)
	switch id.Role {
	case "manager":
		pending, err = h.Service.PendingForManager(r.Context(), id.ActorID, id.OrganizationID)
	case "hr":
		pending, err = h.Service.PendingForHR(r.Context(), id.OrganizationID, stageStatus)
	case "admin":
		pending, err = h.Service.PendingForAdmin(r.Context(), id.OrganizationID, stageStatus)
	default:
		writeError(w, http.StatusForbidden, "Role has no pending view", nil)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list pending resignations", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"resignations": toResignationDTOs(pending)})
}

// GetSettlement previews the final settlement for an approved or
// completed resignation. Salary inputs come from query parameters until
// the payroll collaborator owns them.
func (h *Handler) GetSettlement(w http.ResponseWriter, r *http.Request) {
	res, err := h.Store.GetResignation(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, "Failed to get resignation", err)
		return
	}
	if res.Status != hr.StatusApproved && res.Status != hr.StatusCompleted {
		writeError(w, http.StatusConflict, "Settlement requires an approved resignation", nil)
		return
	}

	gross, err := decimal.NewFromString(r.URL.Query().Get("monthly_gross"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "monthly_gross is required and must be a number", err)
		return
	}
	unusedLeave := decimal.Zero
	if v := r.URL.Query().Get("unused_leave_days"); v != "" {
		unusedLeave, err = decimal.NewFromString(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "unused_leave_days must be a number", err)
			return
		}
	}

	lwd := res.EffectiveLastWorkingDate()
	daysInMonth := time.Date(lwd.Year(), lwd.Month()+1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1).Day()
	shortfall := int(res.ProposedLastWorkingDate.Sub(lwd).Hours() / 24)
	if shortfall < 0 {
		shortfall = 0
	}

	stmt := payroll.Compute(payroll.SettlementInput{
		MonthlyGross:        gross,
		WorkedDaysInMonth:   lwd.Day(),
		DaysInMonth:         daysInMonth,
		UnusedLeaveDays:     unusedLeave,
		NoticeShortfallDays: shortfall,
	})

	writeJSON(w, http.StatusOK, SettlementDTO{
		ResignationID:   res.ID,
		DailyRate:       stmt.DailyRate.String(),
		ProratedSalary:  stmt.ProratedSalary.String(),
		LeaveEncashment: stmt.LeaveEncashment.String(),
		NoticeDeduction: stmt.NoticeDeduction.String(),
		NetPayable:      stmt.NetPayable.String(),
	})
}

// =============================================================================
// ADMIN HANDLERS
// =============================================================================

// TriggerSweep runs the finalization sweep immediately.
func (h *Handler) TriggerSweep(w http.ResponseWriter, r *http.Request) {
	summary, err := h.Service.Sweep(r.Context(), hr.Today())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Sweep failed", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"scanned":   summary.Scanned,
		"finalized": summary.Finalized,
		"skipped":   summary.Skipped,
		"failed":    summary.Failed,
	})
}

// ListSweepRuns returns recorded sweep passes.
func (h *Handler) ListSweepRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := h.Store.ListSweepRuns(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list sweep runs", err)
		return
	}

	dtos := make([]SweepRunDTO, 0, len(runs))
	for _, run := range runs {
		dto := SweepRunDTO{
			ID:        run.ID,
			StartedAt: run.StartedAt.Format(time.RFC3339),
			AsOf:      run.AsOf.Format("2006-01-02"),
			Scanned:   run.Scanned,
			Finalized: run.Finalized,
			Skipped:   run.Skipped,
			Failed:    run.Failed,
			Status:    run.Status,
			Error:     run.Error,
		}
		if run.CompletedAt != nil {
			dto.CompletedAt = run.CompletedAt.Format(time.RFC3339)
		}
		dtos = append(dtos, dto)
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": dtos})
}

// ResetDatabase wipes all data (dev only).
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// HELPERS
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

// writeDomainError maps engine errors onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, message string, err error) {
	switch {
	case hr.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case errors.Is(err, hr.ErrRoleNotAllowed), errors.Is(err, hr.ErrNotWithdrawableByActor):
		writeError(w, http.StatusForbidden, message, err)
	case errors.Is(err, hr.ErrAlreadyApplied),
		errors.Is(err, hr.ErrAlreadyActed),
		errors.Is(err, hr.ErrNotAwaitingThisLevel),
		errors.Is(err, hr.ErrApprovalInProgress),
		errors.Is(err, hr.ErrNotFinalizable):
		writeError(w, http.StatusConflict, message, err)
	case hr.IsClientError(err):
		writeError(w, http.StatusBadRequest, message, err)
	case hr.IsRetryable(err):
		writeError(w, http.StatusServiceUnavailable, message, err)
	default:
		writeError(w, http.StatusInternalServerError, message, err)
	}
}
