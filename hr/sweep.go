/*
sweep.go - Finalization sweep over past-due approvals

PURPOSE:
  Finds approved resignations whose actual last working date has passed
  and finalizes each one independently: status goes to completed and the
  employee account is deactivated. One record's failure is logged and
  does not block the rest; Finalize's idempotence makes the next
  scheduled run a safe retry.

SCHEDULING:
  The engine does not own the schedule. api/scheduler.go (or any external
  cron) calls Sweep on a cadence; Sweep itself is a single idempotent
  entry point.

SEE ALSO:
  - service.go: Finalize, the per-record operation
  - api/scheduler.go: The ticker that drives this
*/
package hr

import (
	"context"
	"log"
	"time"
)

// SweepSummary reports one sweep pass.
type SweepSummary struct {
	StartedAt time.Time
	AsOf      time.Time
	Scanned   int
	Finalized int
	Skipped   int // not yet past due, or finalized by a concurrent run
	Failed    int
}

// Sweep finalizes every approved resignation whose last working date is
// on or before asOf. Each record runs in its own transaction; failures
// are logged and counted, never propagated.
func (s *Service) Sweep(ctx context.Context, asOf time.Time) (*SweepSummary, error) {
	summary := &SweepSummary{StartedAt: s.Now().UTC(), AsOf: asOf}

	approved, err := s.Store.ListResignations(ctx, ResignationFilter{Status: StatusApproved})
	if err != nil {
		return nil, err
	}
	summary.Scanned = len(approved)

	for _, r := range approved {
		if r.EffectiveLastWorkingDate().After(asOf) {
			summary.Skipped++
			continue
		}

		finalized, err := s.Finalize(ctx, r.ID, asOf)
		switch {
		case err != nil:
			// Isolated: this record retries on the next scheduled run.
			summary.Failed++
			log.Printf("[Sweep] Error finalizing %s: %v", r.ID, err)
		case finalized:
			summary.Finalized++
			log.Printf("[Sweep] Finalized %s (employee %s)", r.ID, r.EmployeeID)
		default:
			summary.Skipped++
		}
	}

	return summary, nil
}
