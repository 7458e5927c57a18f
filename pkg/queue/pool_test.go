package queue

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPool_RegisterAndCancelTask(t *testing.T) {
	pool := &WorkerPool{
		activeTasks: make(map[string]context.CancelFunc),
	}

	ctx, cancel := context.WithCancel(context.Background())
	pool.RegisterTask("task-1", cancel)

	assert.True(t, pool.CancelTask("task-1"))
	assert.Error(t, ctx.Err())

	assert.False(t, pool.CancelTask("unknown"))
}

func TestPool_UnregisterTask(t *testing.T) {
	pool := &WorkerPool{
		activeTasks: make(map[string]context.CancelFunc),
	}

	_, cancel := context.WithCancel(context.Background())
	pool.RegisterTask("task-1", cancel)

	assert.True(t, pool.CancelTask("task-1"))

	pool.UnregisterTask("task-1")

	assert.False(t, pool.CancelTask("task-1"))
}

func TestPool_GetActiveTaskIDs(t *testing.T) {
	pool := &WorkerPool{
		activeTasks: make(map[string]context.CancelFunc),
	}

	ids := pool.getActiveTaskIDs()
	assert.Empty(t, ids)

	_, cancel1 := context.WithCancel(context.Background())
	defer cancel1()
	_, cancel2 := context.WithCancel(context.Background())
	defer cancel2()
	pool.RegisterTask("task-a", cancel1)
	pool.RegisterTask("task-b", cancel2)

	ids = pool.getActiveTaskIDs()
	require.Len(t, ids, 2)
	assert.Contains(t, ids, "task-a")
	assert.Contains(t, ids, "task-b")
}

func TestPool_StopTwiceDoesNotPanic(t *testing.T) {
	pool := &WorkerPool{
		stopCh:      make(chan struct{}),
		activeTasks: make(map[string]context.CancelFunc),
	}

	pool.Stop()
	assert.NotPanics(t, func() { pool.Stop() })
}

func TestPool_RegisterTaskConcurrency(t *testing.T) {
	pool := &WorkerPool{
		activeTasks: make(map[string]context.CancelFunc),
	}

	const numTasks = 100
	for i := 0; i < numTasks; i++ {
		go func(id int) {
			_, cancel := context.WithCancel(context.Background())
			defer cancel()
			pool.RegisterTask(fmt.Sprintf("task-%d", id), cancel)
		}(i)
	}

	require.Eventually(t, func() bool {
		pool.mu.RLock()
		defer pool.mu.RUnlock()
		return len(pool.activeTasks) == numTasks
	}, 1*time.Second, 10*time.Millisecond)
}

func TestPool_CancelNonExistentTask(t *testing.T) {
	pool := &WorkerPool{
		activeTasks: make(map[string]context.CancelFunc),
	}
	assert.False(t, pool.CancelTask("nonexistent"))
}

func TestPool_UnregisterNonExistentTask(t *testing.T) {
	pool := &WorkerPool{
		activeTasks: make(map[string]context.CancelFunc),
	}
	assert.NotPanics(t, func() {
		pool.UnregisterTask("nonexistent")
	})
}

func TestPool_MultipleTaskLifecycle(t *testing.T) {
	pool := &WorkerPool{
		activeTasks: make(map[string]context.CancelFunc),
	}

	tasks := []string{"task-1", "task-2", "task-3"}
	for _, id := range tasks {
		_, cancel := context.WithCancel(context.Background())
		defer cancel()
		pool.RegisterTask(id, cancel)
	}

	ids := pool.getActiveTaskIDs()
	require.Len(t, ids, 3)

	assert.True(t, pool.CancelTask("task-2"))
	pool.UnregisterTask("task-2")

	ids = pool.getActiveTaskIDs()
	require.Len(t, ids, 2)
	assert.Contains(t, ids, "task-1")
	assert.Contains(t, ids, "task-3")
	assert.NotContains(t, ids, "task-2")
}

func TestPool_ConcurrentCancellation(t *testing.T) {
	pool := &WorkerPool{
		activeTasks: make(map[string]context.CancelFunc),
	}

	ctx, cancel := context.WithCancel(context.Background())
	pool.RegisterTask("task-racy", cancel)

	const numGoroutines = 10
	results := make(chan bool, numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		go func() {
			results <- pool.CancelTask("task-racy")
		}()
	}

	var trueCount int
	for i := 0; i < numGoroutines; i++ {
		if <-results {
			trueCount++
		}
	}

	assert.Equal(t, numGoroutines, trueCount)
	assert.Error(t, ctx.Err())
}
