/*
batch.go - All-or-nothing batch stage actions

PURPOSE:
  Applies one stage-transition intent (level + decision) to a list of
  resignation ids as a single atomic unit. Every id must be eligible; a
  single ineligible id rejects the whole batch with zero mutation.

ELIGIBILITY:
  Identical to the single-record preconditions in service.go: the
  resignation's current level must match, and that stage must still be
  pending. Eligibility is evaluated inside the same transaction that
  applies the effects, so the check cannot go stale.

CONTRAST WITH THE SWEEP:
  The batch is deliberately all-or-nothing, while sweep.go isolates
  failures per record. The asymmetry is intentional: a batch is one
  operator intent over a hand-picked set; the sweep is unattended.

SEE ALSO:
  - service.go: Per-record transition semantics reused here
  - errors.go: BatchIneligibleError
*/
package hr

import (
	"context"
	"fmt"
	"strings"
)

// BatchResult reports a successful batch.
type BatchResult struct {
	Applied      int
	Level        Level
	Decision     Decision
	Resignations []*Resignation
}

// BatchAct applies the action to every id in one transaction. If any id is
// ineligible the whole batch fails with a BatchIneligibleError carrying
// the ineligible count, and no record is modified.
func (s *Service) BatchAct(ctx context.Context, ids []string, actor Identity, action StageAction) (*BatchResult, error) {
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: empty batch", ErrInvalidInput)
	}
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

	result := &BatchResult{Level: action.Level, Decision: action.Decision}
	err := s.Store.WithTx(ctx, func(tx Store) error {
		// First pass: load everything and count ineligible entries.
		// Nothing is written until the whole set has passed. A repeated id
		// is ineligible: its first occurrence decides the stage, so the
		// second would re-act on a decided stage.
		records := make([]*Resignation, 0, len(ids))
		seen := make(map[string]bool, len(ids))
		ineligible := 0
		for _, id := range ids {
			if seen[id] {
				ineligible++
				continue
			}
			seen[id] = true
			r, err := tx.GetResignation(ctx, id)
			if err != nil {
				if IsNotFound(err) {
					ineligible++
					continue
				}
				return err
			}
			stage, err := r.StageFor(action.Level)
			if err != nil {
				return err
			}
			if r.Cancelled || r.CurrentLevel != action.Level || stage.Decided() {
				ineligible++
				continue
			}
			records = append(records, r)
		}
		if ineligible > 0 {
			return &BatchIneligibleError{Requested: len(ids), Ineligible: ineligible}
		}

		// Second pass: apply the per-record effects, projections included.
		for _, r := range records {
			if err := s.applyStage(r, actor, action); err != nil {
				return err
			}
			if err := tx.SaveResignation(ctx, r); err != nil {
				return err
			}
			if err := s.projectEmployee(ctx, tx, r); err != nil {
				return err
			}
		}

		result.Applied = len(records)
		result.Resignations = records
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
