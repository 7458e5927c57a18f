package queue

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/nexusforge/buildengine/pkg/config"
	"github.com/nexusforge/buildengine/pkg/store"
)

// WorkerPool manages a fixed-size pool of queue workers plus the background
// orphan-detection sweep, all sharing one record store.
type WorkerPool struct {
	podID    string
	store    *store.Store
	config   *config.QueueConfig
	executor TaskExecutor
	workers  []*Worker
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	activeTasks map[string]context.CancelFunc
	mu          sync.RWMutex
	started     bool

	orphans orphanState
}

// NewWorkerPool creates a new worker pool.
func NewWorkerPool(podID string, st *store.Store, cfg *config.QueueConfig, executor TaskExecutor) *WorkerPool {
	return &WorkerPool{
		podID:       podID,
		store:       st,
		config:      cfg,
		executor:    executor,
		workers:     make([]*Worker, 0, cfg.WorkerCount),
		stopCh:      make(chan struct{}),
		activeTasks: make(map[string]context.CancelFunc),
	}
}

// Start spawns worker goroutines and the orphan-detection background task.
// Safe to call multiple times; later calls are no-ops.
func (p *WorkerPool) Start(ctx context.Context) error {
	if p.started {
		slog.Warn("worker pool already started, ignoring duplicate Start call", "pod_id", p.podID)
		return nil
	}
	p.started = true

	slog.Info("starting worker pool", "pod_id", p.podID, "worker_count", p.config.WorkerCount)

	for i := 0; i < p.config.WorkerCount; i++ {
		workerID := fmt.Sprintf("%s-worker-%d", p.podID, i)
		worker := NewWorker(workerID, p.podID, p.store, p.config, p.executor, p)
		p.workers = append(p.workers, worker)
		worker.Start(ctx)
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.runOrphanDetection(ctx)
	}()

	slog.Info("worker pool started")
	return nil
}

// Stop signals all workers and the orphan sweep to stop, waiting for any
// in-flight task to finish (graceful shutdown).
func (p *WorkerPool) Stop() {
	slog.Info("stopping worker pool gracefully")

	active := p.getActiveTaskIDs()
	if len(active) > 0 {
		slog.Info("waiting for active tasks to complete", "count", len(active), "task_ids", active)
	}

	for _, worker := range p.workers {
		worker.Stop()
	}

	p.stopOnce.Do(func() { close(p.stopCh) })
	p.wg.Wait()

	slog.Info("worker pool stopped gracefully")
}

// RegisterTask stores a cancel function for manual cancellation.
func (p *WorkerPool) RegisterTask(taskID string, cancel context.CancelFunc) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.activeTasks[taskID] = cancel
}

// UnregisterTask removes the cancel function when processing ends.
func (p *WorkerPool) UnregisterTask(taskID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.activeTasks, taskID)
}

// CancelTask triggers context cancellation for a task on this pod. Returns
// true if the task was found and cancelled here.
func (p *WorkerPool) CancelTask(taskID string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if cancel, ok := p.activeTasks[taskID]; ok {
		cancel()
		return true
	}
	return false
}

// Health returns the current health of the pool.
func (p *WorkerPool) Health() *PoolHealth {
	ctx := context.Background()

	activeTasks, errA := p.store.CountInProgressTasks(ctx)
	if errA != nil {
		slog.Error("failed to query active tasks for health check", "pod_id", p.podID, "error", errA)
	}

	workerStats := make([]WorkerHealth, len(p.workers))
	activeWorkers := 0
	for i, worker := range p.workers {
		stats := worker.Health()
		workerStats[i] = stats
		if stats.Status == string(WorkerStatusWorking) {
			activeWorkers++
		}
	}

	dbHealthy := errA == nil
	isHealthy := len(p.workers) > 0 && int(activeTasks) <= p.config.MaxConcurrentTasks*p.config.WorkerCount && dbHealthy

	p.orphans.mu.Lock()
	lastOrphanScan := p.orphans.lastOrphanScan
	orphansRecovered := p.orphans.orphansRecovered
	p.orphans.mu.Unlock()

	var dbError string
	if !dbHealthy {
		dbError = fmt.Sprintf("active tasks query failed: %v", errA)
	}

	return &PoolHealth{
		IsHealthy:        isHealthy,
		DBReachable:      dbHealthy,
		DBError:          dbError,
		PodID:            p.podID,
		ActiveWorkers:    activeWorkers,
		TotalWorkers:     len(p.workers),
		ActiveTasks:      int(activeTasks),
		MaxConcurrent:    p.config.MaxConcurrentTasks,
		WorkerStats:      workerStats,
		LastOrphanScan:   lastOrphanScan,
		OrphansRecovered: orphansRecovered,
	}
}

func (p *WorkerPool) getActiveTaskIDs() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	ids := make([]string, 0, len(p.activeTasks))
	for id := range p.activeTasks {
		ids = append(ids, id)
	}
	return ids
}
