package queue

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/nexusforge/buildengine/pkg/domain"
)

// orphanState tracks orphan-detection metrics (thread-safe).
type orphanState struct {
	mu               sync.Mutex
	lastOrphanScan   time.Time
	orphansRecovered int
}

// runOrphanDetection periodically scans for tasks whose lease has expired
// without a recent heartbeat. All pods run this independently — recovery is
// idempotent since RequeueTask fails with domain.ErrVersionConflict for every
// caller after the first to win the underlying version-conditional update.
func (p *WorkerPool) runOrphanDetection(ctx context.Context) {
	ticker := time.NewTicker(p.config.OrphanDetectionInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stopCh:
			return
		case <-ticker.C:
			if err := p.detectAndRecoverOrphans(ctx); err != nil {
				slog.Error("orphan detection failed", "error", err)
			}
		}
	}
}

// detectAndRecoverOrphans finds running tasks with a stale lease and
// requeues them for redelivery, observing the same MaxRetryCount cutoff as
// a normal handler failure.
func (p *WorkerPool) detectAndRecoverOrphans(ctx context.Context) error {
	threshold := time.Now().Add(-p.config.OrphanThreshold)

	orphans, err := p.store.ListOrphanedTasks(ctx, threshold)
	if err != nil {
		return err
	}

	if len(orphans) == 0 {
		p.orphans.mu.Lock()
		p.orphans.lastOrphanScan = time.Now()
		p.orphans.mu.Unlock()
		return nil
	}

	slog.Warn("detected orphaned tasks", "count", len(orphans))

	recovered, failed := 0, 0
	for _, task := range orphans {
		if err := p.recoverOrphanedTask(ctx, task); err != nil {
			slog.Error("failed to recover orphaned task", "task_id", task.ID, "error", err)
			failed++
			continue
		}
		recovered++
	}

	p.orphans.mu.Lock()
	p.orphans.lastOrphanScan = time.Now()
	p.orphans.orphansRecovered += recovered
	p.orphans.mu.Unlock()

	if failed > 0 {
		slog.Warn("orphan recovery completed with failures",
			"total_orphans", len(orphans), "recovered", recovered, "failed", failed)
	}

	return nil
}

// recoverOrphanedTask requeues a single orphaned task for redelivery.
func (p *WorkerPool) recoverOrphanedTask(ctx context.Context, task *domain.Task) error {
	lastHeartbeat := "unknown"
	if task.LastHeartbeatAt != nil {
		lastHeartbeat = task.LastHeartbeatAt.Format(time.RFC3339)
	}

	errMsg := "orphaned: no heartbeat from worker " + task.LeaseOwner + " since " + lastHeartbeat
	count, err := p.store.RequeueTask(ctx, task.ID, errMsg)
	if err != nil {
		return err
	}

	slog.Warn("orphaned task recovered", "task_id", task.ID, "retry_count", count, "last_heartbeat", lastHeartbeat)
	return nil
}

// CleanupStartupOrphans requeues any task this pod's workers left running
// when it previously crashed. Called once during startup, before the pool
// begins normal polling.
func CleanupStartupOrphans(ctx context.Context, st orphanStore, podID string) error {
	orphans, err := st.ListRunningTasksByLeaseOwnerPrefix(ctx, podID)
	if err != nil {
		return err
	}

	if len(orphans) == 0 {
		return nil
	}

	slog.Warn("found startup orphans from previous run", "pod_id", podID, "count", len(orphans))

	for _, task := range orphans {
		errMsg := "orphaned: pod " + podID + " restarted while task was in progress"
		if _, err := st.RequeueTask(ctx, task.ID, errMsg); err != nil {
			slog.Error("failed to requeue startup orphan", "task_id", task.ID, "error", err)
			continue
		}
		slog.Info("startup orphan recovered", "task_id", task.ID)
	}

	return nil
}

// orphanStore is the narrow store surface CleanupStartupOrphans needs,
// letting it be called before a full WorkerPool exists at process startup.
type orphanStore interface {
	ListRunningTasksByLeaseOwnerPrefix(ctx context.Context, prefix string) ([]*domain.Task, error)
	RequeueTask(ctx context.Context, taskID, errMsg string) (int, error)
}
