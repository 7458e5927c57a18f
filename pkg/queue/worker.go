package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/nexusforge/buildengine/pkg/config"
	"github.com/nexusforge/buildengine/pkg/domain"
	"github.com/nexusforge/buildengine/pkg/store"
)

// WorkerStatus represents the current state of a worker.
type WorkerStatus string

const (
	WorkerStatusIdle    WorkerStatus = "idle"
	WorkerStatusWorking WorkerStatus = "working"
)

// Worker is a single queue worker that polls for and processes tasks.
type Worker struct {
	id       string
	podID    string
	store    *store.Store
	config   *config.QueueConfig
	executor TaskExecutor
	pool     TaskRegistry
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	mu             sync.RWMutex
	status         WorkerStatus
	currentTaskID  string
	tasksProcessed int
	lastActivity   time.Time
}

// NewWorker creates a new queue worker.
func NewWorker(id, podID string, st *store.Store, cfg *config.QueueConfig, executor TaskExecutor, pool TaskRegistry) *Worker {
	return &Worker{
		id:           id,
		podID:        podID,
		store:        st,
		config:       cfg,
		executor:     executor,
		pool:         pool,
		stopCh:       make(chan struct{}),
		status:       WorkerStatusIdle,
		lastActivity: time.Now(),
	}
}

// Start begins the worker polling loop in a goroutine.
func (w *Worker) Start(ctx context.Context) {
	w.wg.Add(1)
	go w.run(ctx)
}

// Stop signals the worker to stop and waits for its current task to finish.
// Safe to call multiple times.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() { close(w.stopCh) })
	w.wg.Wait()
}

// Health returns the current worker health status.
func (w *Worker) Health() WorkerHealth {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return WorkerHealth{
		ID:             w.id,
		Status:         string(w.status),
		CurrentTaskID:  w.currentTaskID,
		TasksProcessed: w.tasksProcessed,
		LastActivity:   w.lastActivity,
	}
}

func (w *Worker) run(ctx context.Context) {
	defer w.wg.Done()

	log := slog.With("worker_id", w.id, "pod_id", w.podID)
	log.Info("worker started")

	for {
		select {
		case <-w.stopCh:
			log.Info("worker shutting down")
			return
		case <-ctx.Done():
			log.Info("context cancelled, worker shutting down")
			return
		default:
			if err := w.pollAndProcess(ctx); err != nil {
				if errors.Is(err, store.ErrNoTasksAvailable) || errors.Is(err, store.ErrAtCapacity) {
					w.sleep(w.pollInterval())
					continue
				}
				log.Error("error processing task", "error", err)
				w.sleep(time.Second)
			}
		}
	}
}

func (w *Worker) sleep(d time.Duration) {
	select {
	case <-w.stopCh:
	case <-time.After(d):
	}
}

// pollAndProcess checks capacity, claims a task, and drives it to completion.
func (w *Worker) pollAndProcess(ctx context.Context) error {
	activeCount, err := w.store.CountInProgressTasks(ctx)
	if err != nil {
		return fmt.Errorf("checking active tasks: %w", err)
	}
	if int(activeCount) >= w.config.MaxConcurrentTasks {
		return store.ErrAtCapacity
	}

	task, err := w.store.ClaimNextTask(ctx, w.id, w.config.VisibilityTimeout)
	if err != nil {
		return err
	}

	log := slog.With("task_id", task.ID, "worker_id", w.id, "project_id", task.ProjectID)
	log.Info("task claimed")

	w.setStatus(WorkerStatusWorking, task.ID)
	defer w.setStatus(WorkerStatusIdle, "")

	taskCtx, cancelTask := context.WithCancel(ctx)
	defer cancelTask()

	w.pool.RegisterTask(task.ID, cancelTask)
	defer w.pool.UnregisterTask(task.ID)

	heartbeatCtx, cancelHeartbeat := context.WithCancel(taskCtx)
	go w.runHeartbeat(heartbeatCtx, task.ID, cancelTask)

	result := w.executor.Execute(taskCtx, task)
	cancelHeartbeat()

	if result == nil {
		result = &ExecutionResult{
			Status:   domain.TaskStatusFailed,
			ErrorMsg: "executor returned nil result",
		}
	}

	if err := w.finalize(context.Background(), task, result); err != nil {
		log.Error("failed to finalize task", "error", err)
		return err
	}

	w.mu.Lock()
	w.tasksProcessed++
	w.mu.Unlock()

	log.Info("task processing complete", "status", result.Status)
	return nil
}

// finalize writes the terminal Task status, requeueing instead when the
// executor reports a recoverable failure (§7: transient infra errors are
// redelivered up to MaxRetryCount, not immediately failed).
func (w *Worker) finalize(ctx context.Context, task *domain.Task, result *ExecutionResult) error {
	if result.Status == domain.TaskStatusFailed && result.Recoverable {
		_, err := w.store.RequeueTask(ctx, task.ID, result.ErrorMsg)
		return err
	}
	return w.store.CompleteTask(ctx, task.ID, result.Status, result.Result, result.ErrorMsg)
}

// runHeartbeat periodically extends the task's visibility lease. The lease
// is an exclusivity guarantee, not an informational timestamp: once a
// heartbeat fails, some other worker may already consider the lease
// expired and reclaim the task, so this stops heartbeating and cancels the
// task's context on the first failure rather than retrying.
func (w *Worker) runHeartbeat(ctx context.Context, taskID string, cancelTask context.CancelFunc) {
	ticker := time.NewTicker(w.config.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.store.ExtendLease(ctx, taskID, w.id, w.config.VisibilityTimeout); err != nil {
				slog.Warn("heartbeat failed, abandoning task", "task_id", taskID, "error", err)
				cancelTask()
				return
			}
		}
	}
}

// pollInterval returns the poll duration with jitter applied.
func (w *Worker) pollInterval() time.Duration {
	base := w.config.PollInterval
	jitter := w.config.PollIntervalJitter
	if jitter <= 0 {
		return base
	}
	offset := time.Duration(rand.Int64N(int64(2 * jitter)))
	return base - jitter + offset
}

func (w *Worker) setStatus(status WorkerStatus, taskID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.status = status
	w.currentTaskID = taskID
	w.lastActivity = time.Now()
}
