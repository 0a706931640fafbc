package hr_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/hr-engine/hr"
)

// applyN creates n employees and a resignation for each, all awaiting
// the manager level, and returns the resignation IDs in order.
func applyN(t *testing.T, svc *hr.Service, store interface {
	SaveEmployee(ctx context.Context, e *hr.Employee) error
}, n int) []string {
	t.Helper()
	ctx := context.Background()
	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		empID := string(rune('a'+i)) + "-emp"
		err := store.SaveEmployee(ctx, &hr.Employee{
			ID:               empID,
			Name:             "Employee " + empID,
			OrganizationID:   "org-1",
			ManagerID:        "mgr-1",
			NoticeDays:       30,
			EmploymentStatus: hr.EmploymentActive,
			AccountActive:    true,
		})
		require.NoError(t, err)

		actor := hr.Identity{ActorID: empID, Role: "employee", OrganizationID: "org-1"}
		r, err := svc.Apply(ctx, empID, actor, date(2026, time.March, 1), "moving on")
		require.NoError(t, err)
		ids = append(ids, r.ID)
		time.Sleep(time.Microsecond) // distinct nanosecond IDs
	}
	return ids
}

func TestBatchAct_ApprovesAllWhenAllEligible(t *testing.T) {
	// GIVEN: Three resignations awaiting the manager
	// WHEN: The manager batch-approves all three
	// THEN: Every record advances to the hr level
	svc, store := newTestService(t)
	ctx := context.Background()
	ids := applyN(t, svc, store, 3)

	result, err := svc.BatchAct(ctx, ids, managerIdentity, approve(hr.LevelManager))
	require.NoError(t, err)
	assert.Equal(t, 3, result.Applied)
	assert.Len(t, result.Resignations, 3)

	for _, id := range ids {
		r, err := store.GetResignation(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, hr.LevelHR, r.CurrentLevel)
		assert.Equal(t, hr.StageApproved, r.Manager.Status)
	}
}

func TestBatchAct_OneIneligibleMeansNoWrites(t *testing.T) {
	// GIVEN: Three resignations, one of which the manager already approved
	// WHEN: The manager batch-approves all three
	// THEN: The whole batch fails and the two untouched records stay
	//       exactly as they were
	svc, store := newTestService(t)
	ctx := context.Background()
	ids := applyN(t, svc, store, 3)

	_, err := svc.ActOnStage(ctx, ids[1], managerIdentity, approve(hr.LevelManager))
	require.NoError(t, err)

	_, err = svc.BatchAct(ctx, ids, managerIdentity, approve(hr.LevelManager))
	require.Error(t, err)

	var batchErr *hr.BatchIneligibleError
	require.ErrorAs(t, err, &batchErr)
	assert.Equal(t, 3, batchErr.Requested)
	assert.Equal(t, 1, batchErr.Ineligible)

	for _, id := range []string{ids[0], ids[2]} {
		r, err := store.GetResignation(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, hr.LevelManager, r.CurrentLevel, "untouched record must not advance")
		assert.Equal(t, hr.StagePending, r.Manager.Status)
	}
}

func TestBatchAct_DuplicateIDRejectsWholeBatch(t *testing.T) {
	// GIVEN: A batch naming the same resignation twice
	// WHEN: The manager batch-approves it
	// THEN: The batch fails with the duplicate counted ineligible and the
	//       record does not advance; a decided stage is never re-acted on
	svc, store := newTestService(t)
	ctx := context.Background()
	ids := applyN(t, svc, store, 1)

	_, err := svc.BatchAct(ctx, []string{ids[0], ids[0]}, managerIdentity, approve(hr.LevelManager))
	require.Error(t, err)

	var batchErr *hr.BatchIneligibleError
	require.ErrorAs(t, err, &batchErr)
	assert.Equal(t, 2, batchErr.Requested)
	assert.Equal(t, 1, batchErr.Ineligible)

	r, err := store.GetResignation(ctx, ids[0])
	require.NoError(t, err)
	assert.Equal(t, hr.LevelManager, r.CurrentLevel)
	assert.Equal(t, hr.StagePending, r.Manager.Status)
}

func TestBatchAct_UnknownIDCountsAsIneligible(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	ids := applyN(t, svc, store, 2)

	_, err := svc.BatchAct(ctx, append(ids, "res-missing"), managerIdentity, approve(hr.LevelManager))
	var batchErr *hr.BatchIneligibleError
	require.ErrorAs(t, err, &batchErr)
	assert.Equal(t, 3, batchErr.Requested)
	assert.Equal(t, 1, batchErr.Ineligible)
}

func TestBatchAct_EmptyBatchFails(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.BatchAct(context.Background(), nil, managerIdentity, approve(hr.LevelManager))
	assert.ErrorIs(t, err, hr.ErrInvalidInput)
}

func TestBatchAct_RejectRequiresReason(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	ids := applyN(t, svc, store, 1)

	_, err := svc.BatchAct(ctx, ids, managerIdentity, reject(hr.LevelManager, ""))
	assert.ErrorIs(t, err, hr.ErrInvalidInput)
}

func TestBatchAct_BatchRejectTerminatesEveryRecord(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	ids := applyN(t, svc, store, 2)

	result, err := svc.BatchAct(ctx, ids, managerIdentity, reject(hr.LevelManager, "reorg cancelled"))
	require.NoError(t, err)
	assert.Equal(t, 2, result.Applied)

	for _, id := range ids {
		r, err := store.GetResignation(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, hr.StatusRejected, r.Status)
		assert.Equal(t, "reorg cancelled", r.RejectionReason)
	}
}
