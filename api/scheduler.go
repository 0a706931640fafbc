/*
scheduler.go - Automated finalization sweep scheduler

PURPOSE:
  Periodically runs the finalization sweep: approved resignations whose
  last working date has passed are marked completed and their employee
  accounts deactivated. Each pass is recorded as a sweep run for audit
  and UI display.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Each record is finalized independently; a failure is counted, logged,
    and retried on the next pass (Finalize is idempotent)
  - The engine owns none of this scheduling; it only exposes Sweep

CONFIGURATION:
  - CheckInterval: How often to sweep (default: 24 hours)
  - Enabled: Whether scheduler is active (default: true)

USAGE:
  scheduler := NewSweepScheduler(store, handler)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - hr/sweep.go: The sweep itself
  - handlers.go: TriggerSweep endpoint (manual pass)
*/
package api

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/warp/hr-engine/hr"
	"github.com/warp/hr-engine/store/sqlite"
)

// SweepScheduler drives the daily finalization sweep.
type SweepScheduler struct {
	Store         *sqlite.Store
	Handler       *Handler
	CheckInterval time.Duration
	Enabled       bool

	ticker *time.Ticker
	stop   chan bool
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewSweepScheduler creates a new scheduler.
func NewSweepScheduler(store *sqlite.Store, handler *Handler) *SweepScheduler {
	return &SweepScheduler{
		Store:         store,
		Handler:       handler,
		CheckInterval: 24 * time.Hour,
		Enabled:       true,
		stop:          make(chan bool),
	}
}

// Start begins the scheduler.
func (ss *SweepScheduler) Start() {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	if !ss.Enabled {
		log.Println("[Scheduler] Disabled, not starting")
		return
	}

	ss.ticker = time.NewTicker(ss.CheckInterval)
	ss.wg.Add(1)

	go ss.run()

	log.Printf("[Scheduler] Started with check interval: %v", ss.CheckInterval)
}

// Stop stops the scheduler.
func (ss *SweepScheduler) Stop() {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	if ss.ticker != nil {
		ss.ticker.Stop()
		close(ss.stop)
		ss.wg.Wait()
		log.Println("[Scheduler] Stopped")
	}
}

func (ss *SweepScheduler) run() {
	defer ss.wg.Done()

	// Run immediately on start
	ss.sweepOnce()

	for {
		select {
		case <-ss.ticker.C:
			ss.sweepOnce()
		case <-ss.stop:
			return
		}
	}
}

func (ss *SweepScheduler) sweepOnce() {
	ctx := context.Background()
	asOf := hr.Today()
	startedAt := time.Now().UTC()
	runID := fmt.Sprintf("sweep-%d", startedAt.UnixNano())

	log.Printf("[Scheduler] Sweeping past-due approvals as of %s", asOf.Format("2006-01-02"))

	run := sqlite.SweepRun{
		ID:        runID,
		StartedAt: startedAt,
		AsOf:      asOf,
		Status:    "running",
		CreatedAt: startedAt,
	}
	if err := ss.Store.SaveSweepRun(ctx, run); err != nil {
		log.Printf("[Scheduler] Error saving run record: %v", err)
		return
	}

	summary, err := ss.Handler.Service.Sweep(ctx, asOf)
	completedAt := time.Now().UTC()
	run.CompletedAt = &completedAt

	if err != nil {
		run.Status = "failed"
		run.Error = err.Error()
		if saveErr := ss.Store.SaveSweepRun(ctx, run); saveErr != nil {
			log.Printf("[Scheduler] Error updating run record: %v", saveErr)
		}
		log.Printf("[Scheduler] Sweep failed: %v", err)
		return
	}

	run.Status = "completed"
	run.Scanned = summary.Scanned
	run.Finalized = summary.Finalized
	run.Skipped = summary.Skipped
	run.Failed = summary.Failed
	if err := ss.Store.SaveSweepRun(ctx, run); err != nil {
		log.Printf("[Scheduler] Error updating run record: %v", err)
	}

	if summary.Finalized > 0 || summary.Failed > 0 {
		log.Printf("[Scheduler] Completed: %d finalized, %d skipped, %d failed",
			summary.Finalized, summary.Skipped, summary.Failed)
	}
}

// RunNow triggers an immediate sweep (for testing/admin).
func (ss *SweepScheduler) RunNow() {
	ss.sweepOnce()
}

// GetNextRunTime returns when the next scheduled sweep will occur.
func (ss *SweepScheduler) GetNextRunTime() time.Time {
	return time.Now().Add(ss.CheckInterval)
}
