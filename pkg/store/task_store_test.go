package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/nexusforge/buildengine/internal/testdb"
	"github.com/nexusforge/buildengine/pkg/domain"
	"github.com/nexusforge/buildengine/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTask(projectID string, priority int) *domain.Task {
	return &domain.Task{
		ID:        uuid.NewString(),
		TaskType:  domain.TaskTypeBuildAgent,
		ProjectID: projectID,
		Priority:  priority,
		Payload: domain.NewJSON(domain.TaskPayload{
			ProjectID:    projectID,
			WorkflowType: domain.WorkflowTypeAgentBuild,
			Action:       domain.TaskActionExecute,
		}),
	}
}

func TestStore_ClaimNextTask_NoneAvailable(t *testing.T) {
	s := store.New(testdb.New(t))
	_, err := s.ClaimNextTask(context.Background(), "worker-1", time.Minute)
	require.ErrorIs(t, err, store.ErrNoTasksAvailable)
}

func TestStore_EnqueueAndClaimNextTask(t *testing.T) {
	s := store.New(testdb.New(t))
	ctx := context.Background()
	projectID := uuid.NewString()

	task := newTask(projectID, 5)
	require.NoError(t, s.EnqueueTask(ctx, task))

	claimed, err := s.ClaimNextTask(ctx, "worker-1", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, task.ID, claimed.ID)
	assert.Equal(t, domain.TaskStatusRunning, claimed.Status)
	assert.Equal(t, "worker-1", claimed.WorkerID)
	require.NotNil(t, claimed.LeaseExpiresAt)
	assert.True(t, claimed.LeaseExpiresAt.After(time.Now()))

	_, err = s.ClaimNextTask(ctx, "worker-2", time.Minute)
	require.ErrorIs(t, err, store.ErrNoTasksAvailable, "already-claimed task must not be claimable again")
}

func TestStore_ClaimNextTask_PrefersHigherPriority(t *testing.T) {
	s := store.New(testdb.New(t))
	ctx := context.Background()
	projectID := uuid.NewString()

	low := newTask(projectID, 1)
	high := newTask(projectID, 9)
	require.NoError(t, s.EnqueueTask(ctx, low))
	require.NoError(t, s.EnqueueTask(ctx, high))

	claimed, err := s.ClaimNextTask(ctx, "worker-1", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, high.ID, claimed.ID)
}

func TestStore_ExtendLease(t *testing.T) {
	s := store.New(testdb.New(t))
	ctx := context.Background()
	projectID := uuid.NewString()

	task := newTask(projectID, 1)
	require.NoError(t, s.EnqueueTask(ctx, task))
	claimed, err := s.ClaimNextTask(ctx, "worker-1", time.Minute)
	require.NoError(t, err)

	require.NoError(t, s.ExtendLease(ctx, claimed.ID, "worker-1", 2*time.Minute))

	got, err := s.GetTask(ctx, claimed.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastHeartbeatAt)
}

func TestStore_ExtendLease_FailsWhenNotOwner(t *testing.T) {
	s := store.New(testdb.New(t))
	ctx := context.Background()
	projectID := uuid.NewString()

	task := newTask(projectID, 1)
	require.NoError(t, s.EnqueueTask(ctx, task))
	claimed, err := s.ClaimNextTask(ctx, "worker-1", time.Minute)
	require.NoError(t, err)

	err = s.ExtendLease(ctx, claimed.ID, "worker-2", time.Minute)
	require.Error(t, err)
}

func TestStore_CompleteTask(t *testing.T) {
	s := store.New(testdb.New(t))
	ctx := context.Background()
	projectID := uuid.NewString()

	task := newTask(projectID, 1)
	require.NoError(t, s.EnqueueTask(ctx, task))
	claimed, err := s.ClaimNextTask(ctx, "worker-1", time.Minute)
	require.NoError(t, err)

	require.NoError(t, s.CompleteTask(ctx, claimed.ID, domain.TaskStatusCompleted, "ok", ""))

	got, err := s.GetTask(ctx, claimed.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusCompleted, got.Status)
	assert.Equal(t, "ok", got.Result)
	require.NotNil(t, got.CompletedAt)
}

func TestStore_RequeueTask_ReturnsToPendingUntilMaxRetries(t *testing.T) {
	s := store.New(testdb.New(t))
	ctx := context.Background()
	projectID := uuid.NewString()

	task := newTask(projectID, 1)
	require.NoError(t, s.EnqueueTask(ctx, task))

	for i := 1; i < domain.MaxRetryCount; i++ {
		claimed, err := s.ClaimNextTask(ctx, "worker-1", time.Minute)
		require.NoError(t, err)
		count, err := s.RequeueTask(ctx, claimed.ID, "transient failure")
		require.NoError(t, err)
		assert.Equal(t, i, count)

		got, err := s.GetTask(ctx, task.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.TaskStatusPending, got.Status)
	}

	claimed, err := s.ClaimNextTask(ctx, "worker-1", time.Minute)
	require.NoError(t, err)
	count, err := s.RequeueTask(ctx, claimed.ID, "final failure")
	require.NoError(t, err)
	assert.Equal(t, domain.MaxRetryCount, count)

	got, err := s.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusFailed, got.Status, "task must be permanently failed at MaxRetryCount")
}

func TestStore_ListOrphanedTasks(t *testing.T) {
	s := store.New(testdb.New(t))
	ctx := context.Background()
	projectID := uuid.NewString()

	task := newTask(projectID, 1)
	require.NoError(t, s.EnqueueTask(ctx, task))
	claimed, err := s.ClaimNextTask(ctx, "worker-1", time.Millisecond)
	require.NoError(t, err)

	orphaned, err := s.ListOrphanedTasks(ctx, time.Now().Add(time.Second))
	require.NoError(t, err)
	require.Len(t, orphaned, 1)
	assert.Equal(t, claimed.ID, orphaned[0].ID)
}

func TestStore_CountInProgressTasks(t *testing.T) {
	s := store.New(testdb.New(t))
	ctx := context.Background()
	projectID := uuid.NewString()

	require.NoError(t, s.EnqueueTask(ctx, newTask(projectID, 1)))
	require.NoError(t, s.EnqueueTask(ctx, newTask(projectID, 2)))

	count, err := s.CountInProgressTasks(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)

	_, err = s.ClaimNextTask(ctx, "worker-1", time.Minute)
	require.NoError(t, err)

	count, err = s.CountInProgressTasks(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}
