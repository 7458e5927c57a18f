package config

import "time"

// QueueConfig contains queue and worker pool configuration. These values
// control how tasks are polled, leased, and processed.
type QueueConfig struct {
	// WorkerCount is the number of worker goroutines per replica/pod.
	// Each worker independently polls and processes tasks.
	WorkerCount int `yaml:"worker_count"`

	// MaxConcurrentTasks is the global limit of concurrently in-progress
	// tasks across ALL replicas/pods. Enforced by a database COUNT(*) check.
	MaxConcurrentTasks int `yaml:"max_concurrent_tasks"`

	// PollInterval is the base interval for checking pending tasks.
	PollInterval time.Duration `yaml:"poll_interval"`

	// PollIntervalJitter is the random jitter added to PollInterval.
	// Actual interval: PollInterval ± PollIntervalJitter.
	PollIntervalJitter time.Duration `yaml:"poll_interval_jitter"`

	// VisibilityTimeout is how long a claimed task's lease is held before it
	// becomes reclaimable by another worker absent a heartbeat extension.
	VisibilityTimeout time.Duration `yaml:"visibility_timeout"`

	// HeartbeatInterval is how often an in-progress task's lease is
	// extended by the owning worker.
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval"`

	// GracefulShutdownTimeout is the max time to wait for active tasks to
	// complete during shutdown. Should match VisibilityTimeout.
	GracefulShutdownTimeout time.Duration `yaml:"graceful_shutdown_timeout"`

	// OrphanDetectionInterval is how often to scan for orphaned tasks.
	OrphanDetectionInterval time.Duration `yaml:"orphan_detection_interval"`

	// OrphanThreshold is how long a task can go without a heartbeat before
	// it is considered orphaned and recoverable by a sweep.
	OrphanThreshold time.Duration `yaml:"orphan_threshold"`
}

// DefaultQueueConfig returns the built-in queue defaults.
func DefaultQueueConfig() *QueueConfig {
	return &QueueConfig{
		WorkerCount:             5,
		MaxConcurrentTasks:      5,
		PollInterval:            1 * time.Second,
		PollIntervalJitter:      500 * time.Millisecond,
		VisibilityTimeout:       15 * time.Minute,
		HeartbeatInterval:       30 * time.Second,
		GracefulShutdownTimeout: 15 * time.Minute,
		OrphanDetectionInterval: 5 * time.Minute,
		OrphanThreshold:         5 * time.Minute,
	}
}
