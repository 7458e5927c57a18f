package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nexusforge/buildengine/pkg/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrNoTasksAvailable indicates no pending task is currently claimable.
var ErrNoTasksAvailable = errors.New("store: no tasks available")

// ErrAtCapacity indicates the global concurrent-task limit has been reached.
var ErrAtCapacity = errors.New("store: at capacity")

// EnqueueTask inserts a new pending Task row.
func (s *Store) EnqueueTask(ctx context.Context, t *domain.Task) error {
	t.Status = domain.TaskStatusPending
	t.Version = 0
	if err := s.db.WithContext(ctx).Create(t).Error; err != nil {
		return fmt.Errorf("store: enqueue task: %w", err)
	}
	return nil
}

// CountInProgressTasks returns how many tasks are currently running, for the
// worker's best-effort global-capacity check before it attempts a claim.
func (s *Store) CountInProgressTasks(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&domain.Task{}).
		Where("status = ?", domain.TaskStatusRunning).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("store: count in-progress tasks: %w", err)
	}
	return count, nil
}

// ClaimNextTask atomically claims the highest-priority pending task (the
// oldest among equal priorities) using SELECT ... FOR UPDATE SKIP LOCKED on
// Postgres, setting it running with a fresh lease
// owned by workerID.
func (s *Store) ClaimNextTask(ctx context.Context, workerID string, visibilityTimeout time.Duration) (*domain.Task, error) {
	var claimed *domain.Task

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		query := tx.Where("status = ?", domain.TaskStatusPending).
			Order("priority DESC, created_at ASC").
			Limit(1)
		// SQLite has no row-level locking and rejects FOR UPDATE syntax; the
		// clause is only meaningful (and only applied) against Postgres,
		// where concurrent workers actually race on this query.
		if s.db.Dialector.Name() != "sqlite" {
			query = query.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"})
		}

		var t domain.Task
		err := query.First(&t).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNoTasksAvailable
		}
		if err != nil {
			return fmt.Errorf("claim query: %w", err)
		}

		now := time.Now()
		leaseExpiry := now.Add(visibilityTimeout)
		t.Status = domain.TaskStatusRunning
		t.WorkerID = workerID
		t.LeaseOwner = workerID
		t.LeaseExpiresAt = &leaseExpiry
		t.LastHeartbeatAt = &now
		t.StartedAt = &now
		t.Version++

		if err := tx.Save(&t).Error; err != nil {
			return fmt.Errorf("claim save: %w", err)
		}
		claimed = &t
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNoTasksAvailable) {
			return nil, ErrNoTasksAvailable
		}
		return nil, fmt.Errorf("store: claim next task: %w", err)
	}
	return claimed, nil
}

// ExtendLease extends a claimed task's visibility lease and records a
// heartbeat timestamp. Returns an error if the task is no longer owned by
// workerID (lost lease — e.g. an orphan sweep already reclaimed it).
func (s *Store) ExtendLease(ctx context.Context, taskID, workerID string, visibilityTimeout time.Duration) error {
	now := time.Now()
	leaseExpiry := now.Add(visibilityTimeout)

	result := s.db.WithContext(ctx).Model(&domain.Task{}).
		Where("id = ? AND lease_owner = ? AND status = ?", taskID, workerID, domain.TaskStatusRunning).
		Updates(map[string]any{
			"lease_expires_at":  leaseExpiry,
			"last_heartbeat_at": now,
		})
	if result.Error != nil {
		return fmt.Errorf("store: extend lease: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("store: extend lease: lease no longer held by %s", workerID)
	}
	return nil
}

// CompleteTask marks a task with a terminal status and result/error payload.
func (s *Store) CompleteTask(ctx context.Context, taskID string, status domain.TaskStatus, result, errMsg string) error {
	now := time.Now()
	err := s.db.WithContext(ctx).Model(&domain.Task{}).
		Where("id = ?", taskID).
		Updates(map[string]any{
			"status":        status,
			"result":        result,
			"error_message": errMsg,
			"completed_at":  now,
		}).Error
	if err != nil {
		return fmt.Errorf("store: complete task: %w", err)
	}
	return nil
}

// RequeueTask returns a running task to pending, incrementing retry_count —
// used on handler failure so the message is redelivered (§7's Infra
// transient / Crash handling), and bumping retry accounting across
// redelivery cycles rather than within one lease.
func (s *Store) RequeueTask(ctx context.Context, taskID, errMsg string) (int, error) {
	var t domain.Task
	if err := s.db.WithContext(ctx).First(&t, "id = ?", taskID).Error; err != nil {
		return 0, fmt.Errorf("store: requeue task: %w", err)
	}

	currentVersion := t.Version
	t.Version++
	t.RetryCount++
	if t.RetryCount >= domain.MaxRetryCount {
		t.Status = domain.TaskStatusFailed
		t.ErrorMessage = errMsg
	} else {
		t.Status = domain.TaskStatusPending
		t.LeaseOwner = ""
		t.LeaseExpiresAt = nil
		t.ErrorMessage = errMsg
	}

	result := s.db.WithContext(ctx).
		Model(&domain.Task{}).
		Where("id = ? AND version = ?", taskID, currentVersion).
		Select("*").
		Updates(&t)
	if result.Error != nil {
		return 0, fmt.Errorf("store: requeue task save: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return 0, domain.ErrVersionConflict
	}
	return t.RetryCount, nil
}

// GetTask loads a Task by ID.
func (s *Store) GetTask(ctx context.Context, taskID string) (*domain.Task, error) {
	var t domain.Task
	err := s.db.WithContext(ctx).First(&t, "id = ?", taskID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get task: %w", err)
	}
	return &t, nil
}

// ListOrphanedTasks finds running tasks whose lease has expired without a
// recent heartbeat — recoverable by any worker (§4.5's orphan-sweep
// companion to lease expiry).
func (s *Store) ListOrphanedTasks(ctx context.Context, olderThan time.Time) ([]*domain.Task, error) {
	var tasks []*domain.Task
	err := s.db.WithContext(ctx).
		Where("status = ? AND lease_expires_at IS NOT NULL AND lease_expires_at < ?", domain.TaskStatusRunning, olderThan).
		Find(&tasks).Error
	if err != nil {
		return nil, fmt.Errorf("store: list orphaned tasks: %w", err)
	}
	return tasks, nil
}

// ListRunningTasksByLeaseOwnerPrefix finds running tasks whose lease_owner
// starts with prefix, regardless of lease expiry — used once at process
// startup to recover tasks this pod's own (now-dead) workers left running
// across a crash, before any lease would naturally expire.
func (s *Store) ListRunningTasksByLeaseOwnerPrefix(ctx context.Context, prefix string) ([]*domain.Task, error) {
	var tasks []*domain.Task
	err := s.db.WithContext(ctx).
		Where("status = ? AND lease_owner LIKE ?", domain.TaskStatusRunning, prefix+"%").
		Find(&tasks).Error
	if err != nil {
		return nil, fmt.Errorf("store: list running tasks by lease owner prefix: %w", err)
	}
	return tasks, nil
}
