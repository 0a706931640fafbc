/*
seed.go - Demo dataset loader

PURPOSE:
  Loads a small, self-consistent demo organization so the API can be
  exercised without any setup: a manager, an HR partner, an admin, a few
  reports, and one resignation already sitting at the hr stage.

  Dev/demo only. Resets nothing; call /api/admin/reset first for a clean
  slate.

SEE ALSO:
  - handlers.go: Route registration
*/
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/warp/hr-engine/hr"
)

// LoadSeedData populates the demo organization.
// POST /api/admin/seed
func (h *Handler) LoadSeedData(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := h.seedEmployees(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to seed employees", err)
		return
	}
	if err := h.seedResignation(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to seed resignation", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":       "ok",
		"organization": "org-demo",
	})
}

func (h *Handler) seedEmployees(ctx context.Context) error {
	employees := []*hr.Employee{
		{ID: "mgr-1", Name: "Dana Reyes", Email: "dana@demo.io", OrganizationID: "org-demo", DepartmentID: "dept-eng", NoticeDays: 60},
		{ID: "hr-1", Name: "Sam Okafor", Email: "sam@demo.io", OrganizationID: "org-demo", DepartmentID: "dept-people", NoticeDays: 30},
		{ID: "adm-1", Name: "Priya Nair", Email: "priya@demo.io", OrganizationID: "org-demo", DepartmentID: "dept-people", NoticeDays: 30},
		{ID: "emp-1", Name: "Jonas Weber", Email: "jonas@demo.io", OrganizationID: "org-demo", DepartmentID: "dept-eng", ManagerID: "mgr-1", NoticeDays: 30},
		{ID: "emp-2", Name: "Mei Chen", Email: "mei@demo.io", OrganizationID: "org-demo", DepartmentID: "dept-eng", ManagerID: "mgr-1", NoticeDays: 30},
		{ID: "emp-3", Name: "Tomás Silva", Email: "tomas@demo.io", OrganizationID: "org-demo", DepartmentID: "dept-sales", ManagerID: "mgr-1", NoticeDays: 45},
	}

	for _, e := range employees {
		e.EmploymentStatus = hr.EmploymentActive
		e.AccountActive = true
		e.CreatedAt = time.Now().UTC()
		if err := h.Store.SaveEmployee(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

// seedResignation walks emp-2's resignation through the manager stage so
// the demo starts with something pending at hr.
func (h *Handler) seedResignation(ctx context.Context) error {
	res, err := h.Service.Apply(ctx, "emp-2",
		hr.Identity{ActorID: "emp-2", Role: "employee", OrganizationID: "org-demo"},
		hr.Today().AddDate(0, 0, -7), "moving abroad")
	if err != nil {
		return err
	}

	_, err = h.Service.ActOnStage(ctx, res.ID,
		hr.Identity{ActorID: "mgr-1", Role: "manager", OrganizationID: "org-demo"},
		hr.StageAction{
			Level:    hr.LevelManager,
			Decision: hr.DecisionApprove,
			Comment:  "sorry to see Mei go",
		})
	return err
}
