// Package queue implements the work-queue worker pool: polling, leasing,
// heartbeating, and orphan recovery over the shared Task table. It owns
// nothing about workflow semantics — that is the TaskExecutor's job — only
// the claim/heartbeat/terminal-status lifecycle around one execution.
package queue

import (
	"context"
	"time"

	"github.com/nexusforge/buildengine/pkg/domain"
	"github.com/nexusforge/buildengine/pkg/store"
)

// ErrNoTasksAvailable and ErrAtCapacity surface the store's own sentinels so
// callers outside this package don't need to import pkg/store directly.
var (
	ErrNoTasksAvailable = store.ErrNoTasksAvailable
	ErrAtCapacity       = store.ErrAtCapacity
)

// TaskExecutor owns the entire lifecycle of a single claimed Task: resolving
// its payload's action, driving the Workflow Engine to completion or to a
// suspension point, and writing Project/Stage state progressively. The
// worker only handles claiming, heartbeating, and the terminal Task update.
type TaskExecutor interface {
	Execute(ctx context.Context, task *domain.Task) *ExecutionResult
}

// ExecutionResult is the terminal outcome of one Task's execution, reduced
// to what the worker must persist back onto the Task row.
type ExecutionResult struct {
	Status      domain.TaskStatus
	Result      string
	ErrorMsg    string
	Recoverable bool // if true and status is Failed, the worker requeues instead
}

// TaskRegistry is the subset of WorkerPool a Worker uses to register/cancel
// in-flight tasks (API-triggered stop surfaces through this).
type TaskRegistry interface {
	RegisterTask(taskID string, cancel context.CancelFunc)
	UnregisterTask(taskID string)
}

// PoolHealth reports the health of the whole worker pool.
type PoolHealth struct {
	IsHealthy        bool           `json:"is_healthy"`
	DBReachable      bool           `json:"db_reachable"`
	DBError          string         `json:"db_error,omitempty"`
	PodID            string         `json:"pod_id"`
	ActiveWorkers    int            `json:"active_workers"`
	TotalWorkers     int            `json:"total_workers"`
	ActiveTasks      int            `json:"active_tasks"`
	MaxConcurrent    int            `json:"max_concurrent"`
	QueueDepth       int            `json:"queue_depth"`
	WorkerStats      []WorkerHealth `json:"worker_stats"`
	LastOrphanScan   time.Time      `json:"last_orphan_scan"`
	OrphansRecovered int            `json:"orphans_recovered"`
}

// WorkerHealth reports the health of a single worker goroutine.
type WorkerHealth struct {
	ID             string    `json:"id"`
	Status         string    `json:"status"` // "idle" or "working"
	CurrentTaskID  string    `json:"current_task_id,omitempty"`
	TasksProcessed int       `json:"tasks_processed"`
	LastActivity   time.Time `json:"last_activity"`
}
