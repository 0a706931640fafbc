/*
Package hr provides the core offboarding engine.

PURPOSE:
  This package contains the domain types and algorithms for the employee
  resignation lifecycle: a sequential three-level approval state machine
  (manager -> hr -> admin), the transactional coordination that keeps the
  resignation record and the employee projection consistent, role-scoped
  pending views, all-or-nothing batch actions, and the finalization sweep.

KEY CONCEPTS IN THIS FILE (types.go):
  - Level: one of the three approval stages (plus the terminal "completed")
  - Stage: one stage's decision sub-record (status, actor, timestamp, comment)
  - Resignation: the aggregate root holding the full lifecycle state
  - Employee: the directory record whose employment-status fields the engine
    projects resignation state onto

DESIGN PRINCIPLES:
  1. Explicit ordering: levels are consulted from an ordered slice, never
     from ad hoc if/else chains. Adding a level is a data change.
  2. Enum-keyed access: StageFor maps a Level to its named field with an
     exhaustive switch. No dynamic field-name lookups.
  3. Audit-significant: resignations are never deleted, only cancelled.

USAGE:
  r := hr.NewResignation("emp-1", "emp-1", "org-1", hr.Today(), 30, "relocating")
  stage, _ := r.StageFor(hr.LevelManager)

SEE ALSO:
  - service.go: The state machine operations
  - store.go: Persistence interfaces
*/
package hr

import (
	"fmt"
	"time"
)

// =============================================================================
// LEVELS - The fixed approval order
// =============================================================================

type Level string

const (
	LevelManager Level = "manager"
	LevelHR      Level = "hr"
	LevelAdmin   Level = "admin"

	// LevelCompleted means no stage is awaiting action (terminal).
	LevelCompleted Level = "completed"
)

// levelOrder is the single source of truth for stage sequencing.
// The state machine consults this for "next level" and predecessor checks.
var levelOrder = []Level{LevelManager, LevelHR, LevelAdmin}

// ParseLevel validates a level name from external input.
func ParseLevel(s string) (Level, error) {
	for _, l := range levelOrder {
		if string(l) == s {
			return l, nil
		}
	}
	return "", fmt.Errorf("%w: unknown level %q", ErrInvalidInput, s)
}

// NextLevel returns the level after l in the approval order, or
// LevelCompleted when l is the last actionable level.
func NextLevel(l Level) Level {
	for i, candidate := range levelOrder {
		if candidate == l {
			if i+1 < len(levelOrder) {
				return levelOrder[i+1]
			}
			return LevelCompleted
		}
	}
	return LevelCompleted
}

// Predecessors returns the levels that must be approved before l may act.
func Predecessors(l Level) []Level {
	var prior []Level
	for _, candidate := range levelOrder {
		if candidate == l {
			break
		}
		prior = append(prior, candidate)
	}
	return prior
}

// =============================================================================
// DECISIONS AND STATUSES
// =============================================================================

type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

// ParseDecision validates a decision name from external input.
func ParseDecision(s string) (Decision, error) {
	switch Decision(s) {
	case DecisionApprove, DecisionReject:
		return Decision(s), nil
	}
	return "", fmt.Errorf("%w: unknown decision %q", ErrInvalidInput, s)
}

// StageStatus is the status of a single approval stage.
type StageStatus string

const (
	StagePending  StageStatus = "pending"
	StageApproved StageStatus = "approved"
	StageRejected StageStatus = "rejected"
)

// Status is the externally visible outcome of the whole resignation.
type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusWithdrawn Status = "withdrawn"
	StatusCompleted Status = "completed"
)

// EmploymentStatus is the projected status on the employee record.
type EmploymentStatus string

const (
	EmploymentActive       EmploymentStatus = "active"
	EmploymentNoticePeriod EmploymentStatus = "notice-period"
	EmploymentResigned     EmploymentStatus = "resigned"
)

// =============================================================================
// STAGE - One approval decision point
// =============================================================================

// Stage records a single level's decision. A stage transitions away from
// pending exactly once; re-acting on a decided stage is an error.
type Stage struct {
	Status  StageStatus
	ActorID string
	ActedAt *time.Time
	Comment string
}

func newPendingStage() Stage {
	return Stage{Status: StagePending}
}

// Decided reports whether the stage has left pending.
func (s Stage) Decided() bool {
	return s.Status != StagePending
}

// =============================================================================
// RESIGNATION - The aggregate root
// =============================================================================

type Resignation struct {
	ID             string
	EmployeeID     string
	AppliedBy      string // identity that submitted the application
	OrganizationID string

	SubmittedAt             time.Time
	ProposedLastWorkingDate time.Time
	ActualLastWorkingDate   *time.Time // set only at admin approval

	Reason   string
	Feedback string

	Status       Status
	CurrentLevel Level

	// The three stage sub-records. Named fields, accessed via StageFor.
	Manager Stage
	HR      Stage
	Admin   Stage

	// Terminal metadata
	RejectedBy      string
	RejectionReason string
	ApprovedBy      string
	ApprovedAt      *time.Time

	// Cancelled marks a soft-deleted record. Excluded from pending views,
	// retained for audit.
	Cancelled bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewResignation creates a freshly applied resignation with all three
// stages pending and the manager level authoritative.
func NewResignation(employeeID, appliedBy, orgID string, submittedAt time.Time, noticeDays int, reason string) *Resignation {
	return &Resignation{
		ID:                      fmt.Sprintf("res-%d", time.Now().UnixNano()),
		EmployeeID:              employeeID,
		AppliedBy:               appliedBy,
		OrganizationID:          orgID,
		SubmittedAt:             submittedAt,
		ProposedLastWorkingDate: submittedAt.AddDate(0, 0, noticeDays),
		Reason:                  reason,
		Status:                  StatusPending,
		CurrentLevel:            LevelManager,
		Manager:                 newPendingStage(),
		HR:                      newPendingStage(),
		Admin:                   newPendingStage(),
		CreatedAt:               time.Now().UTC(),
		UpdatedAt:               time.Now().UTC(),
	}
}

// StageFor returns a pointer to the stage sub-record for the given level.
// The switch is exhaustive over actionable levels; LevelCompleted has no
// stage and is rejected.
func (r *Resignation) StageFor(level Level) (*Stage, error) {
	switch level {
	case LevelManager:
		return &r.Manager, nil
	case LevelHR:
		return &r.HR, nil
	case LevelAdmin:
		return &r.Admin, nil
	default:
		return nil, fmt.Errorf("%w: no stage for level %q", ErrInvalidInput, level)
	}
}

// AllStagesPending reports whether no level has acted yet. This is the
// withdrawal window: the employee loses the right to withdraw once any
// stage leaves pending.
func (r *Resignation) AllStagesPending() bool {
	for _, level := range levelOrder {
		stage, _ := r.StageFor(level)
		if stage.Decided() {
			return false
		}
	}
	return true
}

// PredecessorsApproved reports whether every level before the given one
// has been approved.
func (r *Resignation) PredecessorsApproved(level Level) bool {
	for _, prior := range Predecessors(level) {
		stage, _ := r.StageFor(prior)
		if stage.Status != StageApproved {
			return false
		}
	}
	return true
}

// EffectiveLastWorkingDate returns the actual last working date when set,
// otherwise the proposed one.
func (r *Resignation) EffectiveLastWorkingDate() time.Time {
	if r.ActualLastWorkingDate != nil {
		return *r.ActualLastWorkingDate
	}
	return r.ProposedLastWorkingDate
}

// =============================================================================
// EMPLOYEE - Directory record plus resignation projection
// =============================================================================

// Employee is the directory record the engine reads (existence, department,
// notice period, organization) and projects resignation state onto. The
// engine owns only the projection fields; everything else belongs to the
// employee-management collaborator.
type Employee struct {
	ID             string
	Name           string
	Email          string
	OrganizationID string
	DepartmentID   string
	ManagerID      string
	NoticeDays     int

	// Projection fields, kept consistent with the resignation record on
	// every write. See service.go.
	EmploymentStatus   EmploymentStatus
	ResignationApplied bool
	ResignationID      string
	LastWorkingDate    *time.Time

	// AccountActive is cleared by finalization, not by admin approval.
	AccountActive bool

	CreatedAt time.Time
}

// Identity is the caller's identity as supplied by the external
// identity/authorization collaborator. The engine trusts it as-is.
type Identity struct {
	ActorID        string
	Role           string // "employee", "manager", "hr", "admin", "system"
	OrganizationID string
}

// Today returns midnight UTC of the current day. Date-only comparisons in
// the sweep use this granularity.
func Today() time.Time {
	now := time.Now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}
