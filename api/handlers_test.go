package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/warp/hr-engine/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func setupTestServer(t *testing.T) (*httptest.Server, *Handler) {
	t.Helper()
	store, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	handler := NewHandler(store)
	srv := httptest.NewServer(NewRouter(handler))
	t.Cleanup(func() {
		srv.Close()
		store.Close()
	})
	return srv, handler
}

// doJSON issues a request with the identity headers the gateway would set.
func doJSON(t *testing.T, srv *httptest.Server, method, path string, body any, actorID, role, orgID string) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("Failed to encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, srv.URL+path, &buf)
	if err != nil {
		t.Fatalf("Failed to build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Actor-Id", actorID)
	req.Header.Set("X-Actor-Role", role)
	req.Header.Set("X-Org-Id", orgID)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
}

func createEmployee(t *testing.T, srv *httptest.Server, id, managerID string) {
	t.Helper()
	resp := doJSON(t, srv, "POST", "/api/employees", CreateEmployeeRequest{
		ID:             id,
		Name:           "Employee " + id,
		OrganizationID: "org-1",
		ManagerID:      managerID,
		NoticeDays:     30,
	}, "adm-1", "admin", "org-1")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("Create employee returned %d", resp.StatusCode)
	}
}

func applyResignation(t *testing.T, srv *httptest.Server, employeeID, submittedAt string) ResignationDTO {
	t.Helper()
	resp := doJSON(t, srv, "POST", "/api/employees/"+employeeID+"/resignations", ApplyRequest{
		Reason:      "moving on",
		SubmittedAt: submittedAt,
	}, employeeID, "employee", "org-1")
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("Apply returned %d", resp.StatusCode)
	}
	var dto ResignationDTO
	decodeBody(t, resp, &dto)
	return dto
}

func actOnStage(t *testing.T, srv *httptest.Server, resignationID, level, decision, actorID string, req StageActionRequest) *http.Response {
	t.Helper()
	path := fmt.Sprintf("/api/resignations/%s/levels/%s/%s", resignationID, level, decision)
	return doJSON(t, srv, "POST", path, req, actorID, level, "org-1")
}

// =============================================================================
// LIFECYCLE OVER HTTP
// =============================================================================

func TestHTTPLifecycle_FullApprovalChain(t *testing.T) {
	srv, _ := setupTestServer(t)
	createEmployee(t, srv, "emp-1", "mgr-1")

	res := applyResignation(t, srv, "emp-1", "2026-03-01")
	if res.Status != "pending" || res.CurrentLevel != "manager" {
		t.Fatalf("Fresh resignation should await the manager, got %+v", res)
	}
	if res.ProposedLastWorkingDate != "2026-03-31" {
		t.Errorf("Expected proposed last working date 2026-03-31, got %s", res.ProposedLastWorkingDate)
	}

	// Manager approves
	resp := actOnStage(t, srv, res.ID, "manager", "approve", "mgr-1", StageActionRequest{Comment: "good luck"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Manager approve returned %d", resp.StatusCode)
	}
	var afterMgr ResignationDTO
	decodeBody(t, resp, &afterMgr)
	if afterMgr.CurrentLevel != "hr" {
		t.Errorf("Expected current level hr, got %s", afterMgr.CurrentLevel)
	}
	if afterMgr.Manager.Status != "approved" || afterMgr.Manager.ActorID != "mgr-1" {
		t.Errorf("Manager stage not recorded: %+v", afterMgr.Manager)
	}

	// HR approves
	resp = actOnStage(t, srv, res.ID, "hr", "approve", "hr-1", StageActionRequest{})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("HR approve returned %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Admin approves with an earlier actual last working date
	resp = actOnStage(t, srv, res.ID, "admin", "approve", "adm-1", StageActionRequest{
		ActualLastWorkingDate: "2026-03-26",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Admin approve returned %d", resp.StatusCode)
	}
	var final ResignationDTO
	decodeBody(t, resp, &final)
	if final.Status != "approved" || final.ActualLastWorkingDate != "2026-03-26" {
		t.Errorf("Final state wrong: %+v", final)
	}

	// Employee projection followed along
	resp = doJSON(t, srv, "GET", "/api/employees/emp-1", nil, "hr-1", "hr", "org-1")
	var emp EmployeeDTO
	decodeBody(t, resp, &emp)
	if emp.EmploymentStatus != "resigned" || emp.LastWorkingDate != "2026-03-26" {
		t.Errorf("Projection wrong: %+v", emp)
	}
	if !emp.AccountActive {
		t.Errorf("Account stays active until finalization")
	}
}

func TestHTTP_OutOfOrderApprovalConflicts(t *testing.T) {
	srv, _ := setupTestServer(t)
	createEmployee(t, srv, "emp-1", "mgr-1")
	res := applyResignation(t, srv, "emp-1", "2026-03-01")

	resp := actOnStage(t, srv, res.ID, "hr", "approve", "hr-1", StageActionRequest{})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("Expected 409 for out-of-order approval, got %d", resp.StatusCode)
	}
}

func TestHTTP_DoubleApprovalConflicts(t *testing.T) {
	srv, _ := setupTestServer(t)
	createEmployee(t, srv, "emp-1", "mgr-1")
	res := applyResignation(t, srv, "emp-1", "2026-03-01")

	resp := actOnStage(t, srv, res.ID, "manager", "approve", "mgr-1", StageActionRequest{})
	resp.Body.Close()
	resp = actOnStage(t, srv, res.ID, "manager", "approve", "mgr-1", StageActionRequest{})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("Expected 409 for double approval, got %d", resp.StatusCode)
	}
}

func TestHTTP_RoleMismatchForbidden(t *testing.T) {
	srv, _ := setupTestServer(t)
	createEmployee(t, srv, "emp-1", "mgr-1")
	res := applyResignation(t, srv, "emp-1", "2026-03-01")

	// An hr actor hitting the manager level
	path := fmt.Sprintf("/api/resignations/%s/levels/manager/approve", res.ID)
	resp := doJSON(t, srv, "POST", path, StageActionRequest{}, "hr-1", "hr", "org-1")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("Expected 403 for role mismatch, got %d", resp.StatusCode)
	}
}

func TestHTTP_RejectRequiresReason(t *testing.T) {
	srv, _ := setupTestServer(t)
	createEmployee(t, srv, "emp-1", "mgr-1")
	res := applyResignation(t, srv, "emp-1", "2026-03-01")

	resp := actOnStage(t, srv, res.ID, "manager", "reject", "mgr-1", StageActionRequest{})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400 for reject without reason, got %d", resp.StatusCode)
	}
}

func TestHTTP_ApplyTwiceConflicts(t *testing.T) {
	srv, _ := setupTestServer(t)
	createEmployee(t, srv, "emp-1", "mgr-1")
	applyResignation(t, srv, "emp-1", "2026-03-01")

	resp := doJSON(t, srv, "POST", "/api/employees/emp-1/resignations", ApplyRequest{
		Reason: "again",
	}, "emp-1", "employee", "org-1")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("Expected 409 for second application, got %d", resp.StatusCode)
	}
}

func TestHTTP_UnknownResignation404(t *testing.T) {
	srv, _ := setupTestServer(t)

	resp := doJSON(t, srv, "GET", "/api/resignations/res-missing", nil, "hr-1", "hr", "org-1")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", resp.StatusCode)
	}
}

// =============================================================================
// WITHDRAW
// =============================================================================

func TestHTTP_WithdrawOnlyByApplicant(t *testing.T) {
	srv, _ := setupTestServer(t)
	createEmployee(t, srv, "emp-1", "mgr-1")
	res := applyResignation(t, srv, "emp-1", "2026-03-01")

	resp := doJSON(t, srv, "POST", "/api/resignations/"+res.ID+"/withdraw", nil, "emp-2", "employee", "org-1")
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("Expected 403 for foreign withdrawal, got %d", resp.StatusCode)
	}

	resp = doJSON(t, srv, "POST", "/api/resignations/"+res.ID+"/withdraw", nil, "emp-1", "employee", "org-1")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200 for own withdrawal, got %d", resp.StatusCode)
	}
	var dto ResignationDTO
	decodeBody(t, resp, &dto)
	if dto.Status != "withdrawn" {
		t.Errorf("Expected withdrawn, got %s", dto.Status)
	}
}

func TestHTTP_WithdrawAfterApprovalConflicts(t *testing.T) {
	srv, _ := setupTestServer(t)
	createEmployee(t, srv, "emp-1", "mgr-1")
	res := applyResignation(t, srv, "emp-1", "2026-03-01")

	resp := actOnStage(t, srv, res.ID, "manager", "approve", "mgr-1", StageActionRequest{})
	resp.Body.Close()

	resp = doJSON(t, srv, "POST", "/api/resignations/"+res.ID+"/withdraw", nil, "emp-1", "employee", "org-1")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("Expected 409 after the manager acted, got %d", resp.StatusCode)
	}
}

// =============================================================================
// PENDING VIEWS
// =============================================================================

func TestHTTP_PendingViewPerRole(t *testing.T) {
	srv, _ := setupTestServer(t)
	createEmployee(t, srv, "emp-1", "mgr-1")
	createEmployee(t, srv, "emp-2", "mgr-2")
	res1 := applyResignation(t, srv, "emp-1", "2026-03-01")
	applyResignation(t, srv, "emp-2", "2026-03-01")

	type listResponse struct {
		Resignations []ResignationDTO `json:"resignations"`
	}

	// mgr-1 sees only their own report
	resp := doJSON(t, srv, "GET", "/api/resignations/pending", nil, "mgr-1", "manager", "org-1")
	var forMgr listResponse
	decodeBody(t, resp, &forMgr)
	if len(forMgr.Resignations) != 1 || forMgr.Resignations[0].ID != res1.ID {
		t.Errorf("Manager view wrong: %+v", forMgr.Resignations)
	}

	// HR sees nothing until a manager approves
	resp = doJSON(t, srv, "GET", "/api/resignations/pending", nil, "hr-1", "hr", "org-1")
	var forHR listResponse
	decodeBody(t, resp, &forHR)
	if len(forHR.Resignations) != 0 {
		t.Errorf("HR should see nothing yet, got %d", len(forHR.Resignations))
	}

	resp = actOnStage(t, srv, res1.ID, "manager", "approve", "mgr-1", StageActionRequest{})
	resp.Body.Close()

	resp = doJSON(t, srv, "GET", "/api/resignations/pending", nil, "hr-1", "hr", "org-1")
	decodeBody(t, resp, &forHR)
	if len(forHR.Resignations) != 1 || forHR.Resignations[0].ID != res1.ID {
		t.Errorf("HR view wrong after manager approval: %+v", forHR.Resignations)
	}

	// Employees have no pending view
	resp = doJSON(t, srv, "GET", "/api/resignations/pending", nil, "emp-1", "employee", "org-1")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("Expected 403 for employee role, got %d", resp.StatusCode)
	}
}

// =============================================================================
// BATCH
// =============================================================================

func TestHTTP_BatchAllOrNothing(t *testing.T) {
	srv, handler := setupTestServer(t)
	createEmployee(t, srv, "emp-1", "mgr-1")
	createEmployee(t, srv, "emp-2", "mgr-1")
	res1 := applyResignation(t, srv, "emp-1", "2026-03-01")
	res2 := applyResignation(t, srv, "emp-2", "2026-03-01")

	// Decide res2 first so the batch contains one ineligible record
	resp := actOnStage(t, srv, res2.ID, "manager", "approve", "mgr-1", StageActionRequest{})
	resp.Body.Close()

	resp = doJSON(t, srv, "POST", "/api/resignations/batch", BatchActionRequest{
		IDs:      []string{res1.ID, res2.ID},
		Level:    "manager",
		Decision: "approve",
	}, "mgr-1", "manager", "org-1")
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("Expected 409, got %d", resp.StatusCode)
	}
	var conflict struct {
		Requested  int `json:"requested"`
		Ineligible int `json:"ineligible"`
	}
	decodeBody(t, resp, &conflict)
	if conflict.Requested != 2 || conflict.Ineligible != 1 {
		t.Errorf("Conflict counts wrong: %+v", conflict)
	}

	// The eligible record must not have advanced
	r1, err := handler.Store.GetResignation(context.Background(), res1.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if r1.CurrentLevel != "manager" {
		t.Errorf("Eligible record advanced despite batch failure: %s", r1.CurrentLevel)
	}

	// A clean batch succeeds
	resp = doJSON(t, srv, "POST", "/api/resignations/batch", BatchActionRequest{
		IDs:      []string{res1.ID},
		Level:    "manager",
		Decision: "approve",
	}, "mgr-1", "manager", "org-1")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	var ok struct {
		Applied int `json:"applied"`
	}
	decodeBody(t, resp, &ok)
	if ok.Applied != 1 {
		t.Errorf("Expected 1 applied, got %d", ok.Applied)
	}
}

// =============================================================================
// SETTLEMENT
// =============================================================================

func TestHTTP_SettlementPreview(t *testing.T) {
	srv, _ := setupTestServer(t)
	createEmployee(t, srv, "emp-1", "mgr-1")
	res := applyResignation(t, srv, "emp-1", "2026-03-01")

	// Settlement preview requires an approved record
	resp := doJSON(t, srv, "GET", "/api/resignations/"+res.ID+"/settlement?monthly_gross=90000", nil, "hr-1", "hr", "org-1")
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("Expected 409 for pending record, got %d", resp.StatusCode)
	}

	for _, step := range []struct{ level, actor string }{
		{"manager", "mgr-1"}, {"hr", "hr-1"},
	} {
		resp := actOnStage(t, srv, res.ID, step.level, "approve", step.actor, StageActionRequest{})
		resp.Body.Close()
	}
	// Admin approves with 5 unserved notice days (proposed 03-31, actual 03-26)
	resp = actOnStage(t, srv, res.ID, "admin", "approve", "adm-1", StageActionRequest{
		ActualLastWorkingDate: "2026-03-26",
	})
	resp.Body.Close()

	resp = doJSON(t, srv, "GET",
		"/api/resignations/"+res.ID+"/settlement?monthly_gross=93000&unused_leave_days=4",
		nil, "hr-1", "hr", "org-1")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	var stmt SettlementDTO
	decodeBody(t, resp, &stmt)
	// March has 31 days: daily rate 3000, 26 worked days, 4 leave days, 5
	// day shortfall
	if stmt.DailyRate != "3000" {
		t.Errorf("Daily rate: %s", stmt.DailyRate)
	}
	if stmt.ProratedSalary != "78000" {
		t.Errorf("Prorated: %s", stmt.ProratedSalary)
	}
	if stmt.LeaveEncashment != "12000" {
		t.Errorf("Encashment: %s", stmt.LeaveEncashment)
	}
	if stmt.NoticeDeduction != "15000" {
		t.Errorf("Deduction: %s", stmt.NoticeDeduction)
	}
	if stmt.NetPayable != "75000" {
		t.Errorf("Net: %s", stmt.NetPayable)
	}

	// Missing salary input is a client error
	resp = doJSON(t, srv, "GET", "/api/resignations/"+res.ID+"/settlement", nil, "hr-1", "hr", "org-1")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400 without monthly_gross, got %d", resp.StatusCode)
	}
}

// =============================================================================
// ADMIN
// =============================================================================

func TestHTTP_SweepFinalizesPastDue(t *testing.T) {
	srv, _ := setupTestServer(t)
	createEmployee(t, srv, "emp-1", "mgr-1")
	// Applied long ago so the notice period has fully elapsed
	res := applyResignation(t, srv, "emp-1", "2020-01-01")

	for _, step := range []struct{ level, actor string }{
		{"manager", "mgr-1"}, {"hr", "hr-1"}, {"admin", "adm-1"},
	} {
		resp := actOnStage(t, srv, res.ID, step.level, "approve", step.actor, StageActionRequest{})
		resp.Body.Close()
	}

	resp := doJSON(t, srv, "POST", "/api/admin/sweep", nil, "adm-1", "admin", "org-1")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Sweep returned %d", resp.StatusCode)
	}
	var summary struct {
		Finalized int `json:"finalized"`
	}
	decodeBody(t, resp, &summary)
	if summary.Finalized != 1 {
		t.Errorf("Expected 1 finalized, got %d", summary.Finalized)
	}

	resp = doJSON(t, srv, "GET", "/api/employees/emp-1", nil, "hr-1", "hr", "org-1")
	var emp EmployeeDTO
	decodeBody(t, resp, &emp)
	if emp.AccountActive {
		t.Errorf("Account should be deactivated after finalization")
	}
	if emp.EmploymentStatus != "resigned" {
		t.Errorf("Expected resigned, got %s", emp.EmploymentStatus)
	}
}

func TestHTTP_SeedLoadsDemoData(t *testing.T) {
	srv, _ := setupTestServer(t)

	resp := doJSON(t, srv, "POST", "/api/admin/seed", nil, "adm-1", "admin", "org-demo")
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Seed returned %d", resp.StatusCode)
	}

	resp = doJSON(t, srv, "GET", "/api/employees?org=org-demo", nil, "adm-1", "admin", "org-demo")
	var list struct {
		Employees []EmployeeDTO `json:"employees"`
	}
	decodeBody(t, resp, &list)
	if len(list.Employees) == 0 {
		t.Errorf("Seed should create employees")
	}
}
