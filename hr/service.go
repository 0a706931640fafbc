/*
service.go - Resignation lifecycle state machine

PURPOSE:
  Implements the full lifecycle of a resignation:
  1. Apply:       Employee submits, all stages pending, manager is up
  2. ActOnStage:  Manager, then hr, then admin each approve or reject
  3. Withdraw:    Employee retracts, only while nobody has acted
  4. Finalize:    Past-due approved resignations become completed

STATE MACHINE:
  ┌────────────────────────────────────────────────────────────────┐
  │                                                                │
  │  Apply ──▶ manager ──approve──▶ hr ──approve──▶ admin          │
  │              │                   │                │            │
  │            reject              reject           reject         │
  │              │                   │                │            │
  │              ▼                   ▼                ▼            │
  │          [rejected]         [rejected]       [rejected]        │
  │                                                                │
  │  admin approve ──▶ [approved] ──Finalize──▶ [completed]        │
  │  Withdraw (all stages pending) ──▶ [withdrawn]                 │
  │                                                                │
  └────────────────────────────────────────────────────────────────┘

ATOMIC COORDINATION:
  Every transition writes both the resignation and the employee
  projection inside one TxStore.WithTx unit, and re-reads the record
  inside that unit before checking preconditions. Two concurrent actors
  racing on the same stage therefore serialize at the store: exactly one
  wins, the other fails with ErrAlreadyActed.

EXAMPLE:
  svc := hr.NewService(store)
  r, err := svc.Apply(ctx, "emp-1", hr.Identity{ActorID: "emp-1", Role: "employee"}, hr.Today(), "relocating")
  r, err = svc.ActOnStage(ctx, r.ID, managerIdentity, hr.StageAction{
      Level:    hr.LevelManager,
      Decision: hr.DecisionApprove,
  })

SEE ALSO:
  - batch.go: Same transitions applied to a set of ids all-or-nothing
  - sweep.go: Scheduled finalization of past-due approvals
*/
package hr

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Service orchestrates the resignation lifecycle. It is the only writer
// of resignation records and employee projection fields.
type Service struct {
	Store TxStore

	// Now is overridable for tests; defaults to time.Now.
	Now func() time.Time
}

// NewService creates a lifecycle service backed by the given store.
func NewService(store TxStore) *Service {
	return &Service{Store: store, Now: time.Now}
}

// StageAction describes one decision on one approval stage.
type StageAction struct {
	Level    Level
	Decision Decision
	Comment  string

	// Reason is required for rejections.
	Reason string

	// ActualLastWorkingDate applies only to admin approval. When nil the
	// proposed last working date is used.
	ActualLastWorkingDate *time.Time
}

// =============================================================================
// APPLY
// =============================================================================

// Apply creates a resignation for the employee and atomically flips the
// employee projection to notice-period. Fails with ErrAlreadyApplied if an
// active resignation exists, ErrEmployeeNotFound if the employee doesn't.
func (s *Service) Apply(ctx context.Context, employeeID string, actor Identity, submittedAt time.Time, reason string) (*Resignation, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, fmt.Errorf("%w: reason is required", ErrInvalidInput)
	}

	var created *Resignation
	err := s.Store.WithTx(ctx, func(tx Store) error {
		emp, err := tx.GetEmployee(ctx, employeeID)
		if err != nil {
			return err
		}
		if emp.ResignationApplied {
			return fmt.Errorf("%w: employee %s", ErrAlreadyApplied, employeeID)
		}

		r := NewResignation(employeeID, actor.ActorID, emp.OrganizationID, submittedAt, emp.NoticeDays, reason)
		if err := tx.SaveResignation(ctx, r); err != nil {
			return err
		}

		lwd := r.ProposedLastWorkingDate
		emp.EmploymentStatus = EmploymentNoticePeriod
		emp.ResignationApplied = true
		emp.ResignationID = r.ID
		emp.LastWorkingDate = &lwd
		if err := tx.SaveEmployee(ctx, emp); err != nil {
			return err
		}

		created = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// =============================================================================
// ACT ON STAGE
// =============================================================================

// ActOnStage applies one approve/reject decision to the stage named by
// action.Level. Preconditions (current level matches, stage still pending,
// role matches level) are checked inside the same transaction as the
// writes.
func (s *Service) ActOnStage(ctx context.Context, resignationID string, actor Identity, action StageAction) (*Resignation, error) {
	if _, err := ParseLevel(string(action.Level)); err != nil {
		return nil, err
	}
	if _, err := ParseDecision(string(action.Decision)); err != nil {
		return nil, err
	}
	if action.Decision == DecisionReject && strings.TrimSpace(action.Reason) == "" {
		return nil, fmt.Errorf("%w: rejection reason is required", ErrInvalidInput)
	}
	if actor.Role != string(action.Level) {
		return nil, fmt.Errorf("%w: role %q cannot decide the %s stage", ErrRoleNotAllowed, actor.Role, action.Level)
	}

	var updated *Resignation
	err := s.Store.WithTx(ctx, func(tx Store) error {
		r, err := tx.GetResignation(ctx, resignationID)
		if err != nil {
			return err
		}
		if err := s.applyStage(r, actor, action); err != nil {
			return err
		}
		if err := tx.SaveResignation(ctx, r); err != nil {
			return err
		}
		if err := s.projectEmployee(ctx, tx, r); err != nil {
			return err
		}
		updated = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// applyStage mutates the aggregate in memory. Callers persist it together
// with the employee projection.
func (s *Service) applyStage(r *Resignation, actor Identity, action StageAction) error {
	stage, err := r.StageFor(action.Level)
	if err != nil {
		return err
	}

	// Ordering first: a decided predecessor chain plus a matching current
	// level is what makes this stage the single active one.
	if r.CurrentLevel != action.Level {
		if stage.Decided() {
			return &AlreadyActedError{ResignationID: r.ID, Level: action.Level, StageStatus: stage.Status}
		}
		return &NotAwaitingLevelError{ResignationID: r.ID, Requested: action.Level, Current: r.CurrentLevel}
	}
	if stage.Decided() {
		return &AlreadyActedError{ResignationID: r.ID, Level: action.Level, StageStatus: stage.Status}
	}

	now := s.Now().UTC()
	stage.ActorID = actor.ActorID
	stage.ActedAt = &now
	stage.Comment = action.Comment

	switch action.Decision {
	case DecisionApprove:
		stage.Status = StageApproved
		if action.Level == LevelAdmin {
			// Final approval: the resignation is approved and the actual
			// last working date is fixed.
			r.Status = StatusApproved
			r.CurrentLevel = LevelCompleted
			r.ApprovedBy = actor.ActorID
			r.ApprovedAt = &now
			lwd := r.ProposedLastWorkingDate
			if action.ActualLastWorkingDate != nil {
				lwd = *action.ActualLastWorkingDate
			}
			r.ActualLastWorkingDate = &lwd
		} else {
			r.CurrentLevel = NextLevel(action.Level)
		}
	case DecisionReject:
		stage.Status = StageRejected
		stage.Comment = action.Reason
		r.Status = StatusRejected
		r.CurrentLevel = LevelCompleted
		r.RejectedBy = actor.ActorID
		r.RejectionReason = action.Reason
	}

	r.UpdatedAt = now
	return nil
}

// projectEmployee writes the employee-side mirror of the resignation's
// state. Always called inside the same transaction as SaveResignation.
func (s *Service) projectEmployee(ctx context.Context, tx Store, r *Resignation) error {
	emp, err := tx.GetEmployee(ctx, r.EmployeeID)
	if err != nil {
		return err
	}

	switch r.Status {
	case StatusPending:
		lwd := r.ProposedLastWorkingDate
		emp.EmploymentStatus = EmploymentNoticePeriod
		emp.ResignationApplied = true
		emp.ResignationID = r.ID
		emp.LastWorkingDate = &lwd
	case StatusApproved:
		lwd := r.EffectiveLastWorkingDate()
		emp.EmploymentStatus = EmploymentResigned
		emp.ResignationApplied = true
		emp.ResignationID = r.ID
		emp.LastWorkingDate = &lwd
	case StatusRejected, StatusWithdrawn:
		emp.EmploymentStatus = EmploymentActive
		emp.ResignationApplied = false
		emp.ResignationID = ""
		emp.LastWorkingDate = nil
	case StatusCompleted:
		lwd := r.EffectiveLastWorkingDate()
		emp.EmploymentStatus = EmploymentResigned
		emp.ResignationApplied = true
		emp.ResignationID = r.ID
		emp.LastWorkingDate = &lwd
		emp.AccountActive = false
	}

	return tx.SaveEmployee(ctx, emp)
}

// =============================================================================
// WITHDRAW
// =============================================================================

// Withdraw retracts a resignation before anyone has acted on it. Only the
// original applicant may withdraw; the right lapses the moment any stage
// leaves pending.
func (s *Service) Withdraw(ctx context.Context, resignationID string, actor Identity) (*Resignation, error) {
	var updated *Resignation
	err := s.Store.WithTx(ctx, func(tx Store) error {
		r, err := tx.GetResignation(ctx, resignationID)
		if err != nil {
			return err
		}
		if actor.ActorID != r.AppliedBy {
			return fmt.Errorf("%w: %s did not apply for resignation %s", ErrNotWithdrawableByActor, actor.ActorID, r.ID)
		}
		if r.Status != StatusPending {
			return fmt.Errorf("%w: resignation %s is %s", ErrApprovalInProgress, r.ID, r.Status)
		}
		if !r.AllStagesPending() {
			return fmt.Errorf("%w: resignation %s", ErrApprovalInProgress, r.ID)
		}

		now := s.Now().UTC()
		r.Status = StatusWithdrawn
		r.CurrentLevel = LevelCompleted
		r.UpdatedAt = now

		if err := tx.SaveResignation(ctx, r); err != nil {
			return err
		}
		if err := s.projectEmployee(ctx, tx, r); err != nil {
			return err
		}
		updated = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// =============================================================================
// FINALIZE
// =============================================================================

// Finalize marks an approved, past-due resignation completed and
// deactivates the employee account. Idempotent: an already-completed
// record is a no-op and returns (false, nil). A record that is neither
// fails with ErrNotFinalizable.
func (s *Service) Finalize(ctx context.Context, resignationID string, asOf time.Time) (bool, error) {
	finalized := false
	err := s.Store.WithTx(ctx, func(tx Store) error {
		r, err := tx.GetResignation(ctx, resignationID)
		if err != nil {
			return err
		}
		if r.Status == StatusCompleted {
			return nil // already finalized, retries are safe
		}
		if r.Status != StatusApproved {
			return fmt.Errorf("%w: resignation %s is %s", ErrNotFinalizable, r.ID, r.Status)
		}
		if r.EffectiveLastWorkingDate().After(asOf) {
			return fmt.Errorf("%w: resignation %s last working date %s not reached",
				ErrNotFinalizable, r.ID, r.EffectiveLastWorkingDate().Format("2006-01-02"))
		}

		r.Status = StatusCompleted
		r.UpdatedAt = s.Now().UTC()

		if err := tx.SaveResignation(ctx, r); err != nil {
			return err
		}
		if err := s.projectEmployee(ctx, tx, r); err != nil {
			return err
		}
		finalized = true
		return nil
	})
	return finalized, err
}
