/*
visibility.go - Role-scoped pending views and history

PURPOSE:
  Computes "pending at level L for actor A" sets:
  - Managers see only their own reports' resignations at the manager stage.
  - HR sees company-wide resignations whose manager stage is approved.
  - Admin sees company-wide resignations whose manager and hr stages are
    both approved.

  Cancelled records never appear in pending views; history views may
  include them.

FILTERING:
  Organization and level filtering happens in the store query; the
  manager's report scoping and predecessor checks happen here, against
  hydrated aggregates, so the predecessor rule lives in exactly one place
  (types.go PredecessorsApproved).

SEE ALSO:
  - store.go: ResignationFilter
  - types.go: PredecessorsApproved
*/
package hr

import "context"

// PendingForManager returns resignations awaiting the manager stage for
// employees reporting to the given manager.
func (s *Service) PendingForManager(ctx context.Context, managerID string, orgID string) ([]*Resignation, error) {
	candidates, err := s.Store.ListResignations(ctx, ResignationFilter{
		OrganizationID: orgID,
		Status:         StatusPending,
		CurrentLevel:   LevelManager,
	})
	if err != nil {
		return nil, err
	}

	pending := make([]*Resignation, 0, len(candidates))
	for _, r := range candidates {
		if r.Manager.Decided() {
			continue
		}
		emp, err := s.Store.GetEmployee(ctx, r.EmployeeID)
		if err != nil {
			if IsNotFound(err) {
				continue
			}
			return nil, err
		}
		if emp.ManagerID == managerID {
			pending = append(pending, r)
		}
	}
	return pending, nil
}

// PendingForHR returns resignations whose manager stage has been approved,
// scoped to the HR actor's organization. A non-empty stageStatus narrows
// by the hr stage's own status (history views); empty means still pending.
func (s *Service) PendingForHR(ctx context.Context, orgID string, stageStatus StageStatus) ([]*Resignation, error) {
	return s.pendingForLevel(ctx, orgID, LevelHR, stageStatus)
}

// PendingForAdmin returns resignations whose manager and hr stages are
// both approved, scoped to the organization. stageStatus behaves as in
// PendingForHR.
func (s *Service) PendingForAdmin(ctx context.Context, orgID string, stageStatus StageStatus) ([]*Resignation, error) {
	return s.pendingForLevel(ctx, orgID, LevelAdmin, stageStatus)
}

func (s *Service) pendingForLevel(ctx context.Context, orgID string, level Level, stageStatus StageStatus) ([]*Resignation, error) {
	filter := ResignationFilter{OrganizationID: orgID}
	if stageStatus == "" || stageStatus == StagePending {
		// Pure pending view: the level must be authoritative right now.
		filter.CurrentLevel = level
	} else {
		// History view: include already-decided records.
		filter.IncludeCancelled = true
	}

	candidates, err := s.Store.ListResignations(ctx, filter)
	if err != nil {
		return nil, err
	}

	matched := make([]*Resignation, 0, len(candidates))
	for _, r := range candidates {
		if !r.PredecessorsApproved(level) {
			continue
		}
		stage, err := r.StageFor(level)
		if err != nil {
			return nil, err
		}
		switch {
		case stageStatus == "" || stageStatus == StagePending:
			if r.Cancelled || stage.Decided() {
				continue
			}
		default:
			if stage.Status != stageStatus {
				continue
			}
		}
		matched = append(matched, r)
	}
	return matched, nil
}

// HistoryForEmployee returns every resignation the employee has ever
// filed, cancelled ones included, stage sub-records populated.
func (s *Service) HistoryForEmployee(ctx context.Context, employeeID string) ([]*Resignation, error) {
	return s.Store.ListResignations(ctx, ResignationFilter{
		EmployeeID:       employeeID,
		IncludeCancelled: true,
	})
}

// HistoryForOrganization returns every resignation in the organization,
// cancelled ones included.
func (s *Service) HistoryForOrganization(ctx context.Context, orgID string) ([]*Resignation, error) {
	return s.Store.ListResignations(ctx, ResignationFilter{
		OrganizationID:   orgID,
		IncludeCancelled: true,
	})
}
