package api

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/warp/hr-engine/store/sqlite"
)

func TestSchedulerRunNow_RecordsSweepRun(t *testing.T) {
	srv, handler := setupTestServer(t)
	createEmployee(t, srv, "emp-1", "mgr-1")
	res := applyResignation(t, srv, "emp-1", "2020-01-01")

	for _, step := range []struct{ level, actor string }{
		{"manager", "mgr-1"}, {"hr", "hr-1"}, {"admin", "adm-1"},
	} {
		resp := actOnStage(t, srv, res.ID, step.level, "approve", step.actor, StageActionRequest{})
		resp.Body.Close()
	}

	scheduler := NewSweepScheduler(handler.Store, handler)
	scheduler.RunNow()

	runs, err := handler.Store.ListSweepRuns(context.Background(), "completed")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("Expected 1 completed run, got %d", len(runs))
	}
	if runs[0].Finalized != 1 {
		t.Errorf("Expected 1 finalized, got %d", runs[0].Finalized)
	}
	if runs[0].CompletedAt == nil {
		t.Errorf("Completed run should record a completion time")
	}

	// The run shows up through the admin endpoint too
	resp := doJSON(t, srv, "GET", "/api/admin/sweeps", nil, "adm-1", "admin", "org-1")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected 200, got %d", resp.StatusCode)
	}
}

func TestSchedulerStartStop(t *testing.T) {
	store, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer store.Close()

	scheduler := NewSweepScheduler(store, NewHandler(store))
	scheduler.CheckInterval = time.Hour

	scheduler.Start()
	scheduler.Stop()

	// The startup pass ran before Stop returned
	runs, err := store.ListSweepRuns(context.Background(), "")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(runs) != 1 {
		t.Errorf("Expected the startup pass to be recorded, got %d runs", len(runs))
	}
}

func TestSchedulerDisabled_DoesNotRun(t *testing.T) {
	store, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer store.Close()

	scheduler := NewSweepScheduler(store, NewHandler(store))
	scheduler.Enabled = false
	scheduler.Start()
	scheduler.Stop()

	runs, err := store.ListSweepRuns(context.Background(), "")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("Disabled scheduler should not sweep, got %d runs", len(runs))
	}
}
