/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Validation is done in handlers and the hr service, not in DTOs.
  DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/warp/hr-engine/hr"
)

// =============================================================================
// EMPLOYEE TYPES
// =============================================================================

// EmployeeDTO represents an employee in API responses.
type EmployeeDTO struct {
	ID                 string `json:"id"`
	Name               string `json:"name"`
	Email              string `json:"email,omitempty"`
	OrganizationID     string `json:"organization_id"`
	DepartmentID       string `json:"department_id,omitempty"`
	ManagerID          string `json:"manager_id,omitempty"`
	NoticeDays         int    `json:"notice_days"`
	EmploymentStatus   string `json:"employment_status"`
	ResignationApplied bool   `json:"resignation_applied"`
	ResignationID      string `json:"resignation_id,omitempty"`
	LastWorkingDate    string `json:"last_working_date,omitempty"`
	AccountActive      bool   `json:"account_active"`
}

// CreateEmployeeRequest is the request to create an employee.
type CreateEmployeeRequest struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Email          string `json:"email"`
	OrganizationID string `json:"organization_id"`
	DepartmentID   string `json:"department_id"`
	ManagerID      string `json:"manager_id"`
	NoticeDays     int    `json:"notice_days"`
}

// =============================================================================
// RESIGNATION TYPES
// =============================================================================

// StageDTO is one approval stage in a response.
type StageDTO struct {
	Status  string `json:"status"`
	ActorID string `json:"actor_id,omitempty"`
	ActedAt string `json:"acted_at,omitempty"`
	Comment string `json:"comment,omitempty"`
}

// ResignationDTO represents a resignation in API responses.
type ResignationDTO struct {
	ID                      string   `json:"id"`
	EmployeeID              string   `json:"employee_id"`
	AppliedBy               string   `json:"applied_by"`
	OrganizationID          string   `json:"organization_id"`
	SubmittedAt             string   `json:"submitted_at"`
	ProposedLastWorkingDate string   `json:"proposed_last_working_date"`
	ActualLastWorkingDate   string   `json:"actual_last_working_date,omitempty"`
	Reason                  string   `json:"reason"`
	Feedback                string   `json:"feedback,omitempty"`
	Status                  string   `json:"status"`
	CurrentLevel            string   `json:"current_level"`
	Manager                 StageDTO `json:"manager"`
	HR                      StageDTO `json:"hr"`
	Admin                   StageDTO `json:"admin"`
	RejectedBy              string   `json:"rejected_by,omitempty"`
	RejectionReason         string   `json:"rejection_reason,omitempty"`
	ApprovedBy              string   `json:"approved_by,omitempty"`
	ApprovedAt              string   `json:"approved_at,omitempty"`
	Cancelled               bool     `json:"cancelled,omitempty"`
}

// ApplyRequest is the request to submit a resignation.
type ApplyRequest struct {
	Reason      string `json:"reason"`
	SubmittedAt string `json:"submitted_at,omitempty"` // YYYY-MM-DD, default today
}

// StageActionRequest is the request body for approve/reject.
type StageActionRequest struct {
	Comment               string `json:"comment,omitempty"`
	Reason                string `json:"reason,omitempty"` // required on reject
	ActualLastWorkingDate string `json:"actual_last_working_date,omitempty"`
}

// BatchActionRequest applies one decision to many resignations.
type BatchActionRequest struct {
	IDs      []string `json:"ids"`
	Level    string   `json:"level"`
	Decision string   `json:"decision"`
	Comment  string   `json:"comment,omitempty"`
	Reason   string   `json:"reason,omitempty"`
}

// SettlementDTO is the final-settlement breakdown.
type SettlementDTO struct {
	ResignationID   string `json:"resignation_id"`
	DailyRate       string `json:"daily_rate"`
	ProratedSalary  string `json:"prorated_salary"`
	LeaveEncashment string `json:"leave_encashment"`
	NoticeDeduction string `json:"notice_deduction"`
	NetPayable      string `json:"net_payable"`
}

// SweepRunDTO represents one sweep pass in responses.
type SweepRunDTO struct {
	ID          string `json:"id"`
	StartedAt   string `json:"started_at"`
	AsOf        string `json:"as_of"`
	Scanned     int    `json:"scanned"`
	Finalized   int    `json:"finalized"`
	Skipped     int    `json:"skipped"`
	Failed      int    `json:"failed"`
	Status      string `json:"status"`
	Error       string `json:"error,omitempty"`
	CompletedAt string `json:"completed_at,omitempty"`
}

// ErrorResponse is the JSON shape of every error.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERTERS
// =============================================================================

func toEmployeeDTO(e *hr.Employee) EmployeeDTO {
	dto := EmployeeDTO{
		ID:                 e.ID,
		Name:               e.Name,
		Email:              e.Email,
		OrganizationID:     e.OrganizationID,
		DepartmentID:       e.DepartmentID,
		ManagerID:          e.ManagerID,
		NoticeDays:         e.NoticeDays,
		EmploymentStatus:   string(e.EmploymentStatus),
		ResignationApplied: e.ResignationApplied,
		ResignationID:      e.ResignationID,
		AccountActive:      e.AccountActive,
	}
	if e.LastWorkingDate != nil {
		dto.LastWorkingDate = e.LastWorkingDate.Format("2006-01-02")
	}
	return dto
}

func toStageDTO(s hr.Stage) StageDTO {
	dto := StageDTO{
		Status:  string(s.Status),
		ActorID: s.ActorID,
		Comment: s.Comment,
	}
	if s.ActedAt != nil {
		dto.ActedAt = s.ActedAt.Format(time.RFC3339)
	}
	return dto
}

func toResignationDTO(r *hr.Resignation) ResignationDTO {
	dto := ResignationDTO{
		ID:                      r.ID,
		EmployeeID:              r.EmployeeID,
		AppliedBy:               r.AppliedBy,
		OrganizationID:          r.OrganizationID,
		SubmittedAt:             r.SubmittedAt.Format("2006-01-02"),
		ProposedLastWorkingDate: r.ProposedLastWorkingDate.Format("2006-01-02"),
		Reason:                  r.Reason,
		Feedback:                r.Feedback,
		Status:                  string(r.Status),
		CurrentLevel:            string(r.CurrentLevel),
		Manager:                 toStageDTO(r.Manager),
		HR:                      toStageDTO(r.HR),
		Admin:                   toStageDTO(r.Admin),
		RejectedBy:              r.RejectedBy,
		RejectionReason:         r.RejectionReason,
		ApprovedBy:              r.ApprovedBy,
		Cancelled:               r.Cancelled,
	}
	if r.ActualLastWorkingDate != nil {
		dto.ActualLastWorkingDate = r.ActualLastWorkingDate.Format("2006-01-02")
	}
	if r.ApprovedAt != nil {
		dto.ApprovedAt = r.ApprovedAt.Format(time.RFC3339)
	}
	return dto
}

func toResignationDTOs(rs []*hr.Resignation) []ResignationDTO {
	dtos := make([]ResignationDTO, len(rs))
	for i, r := range rs {
		dtos[i] = toResignationDTO(r)
	}
	return dtos
}
