package domain

import "time"

// TaskPayload is the queue message body, matching the wire format named in
// SPEC_FULL.md §6 (mirrored in Task.Payload rather than a separate queue
// envelope type, since this implementation shares one Postgres database for
// both the record store and the work queue).
type TaskPayload struct {
	ProjectID           string            `json:"project_id"`
	WorkflowType        WorkflowType      `json:"workflow_type"`
	Requirement         string            `json:"requirement,omitempty"`
	UserID              string            `json:"user_id,omitempty"`
	Priority            int               `json:"priority"`
	Action              TaskAction        `json:"action"`
	TargetStage         string            `json:"target_stage,omitempty"`
	ExecuteToCompletion bool              `json:"execute_to_completion"`
	Metadata            map[string]string `json:"metadata,omitempty"`
}

// Task is a queue-visible unit of work whose payload references a Project
// and an action, keyed by task_id.
type Task struct {
	ID        string   `gorm:"primaryKey;type:varchar(64)" json:"task_id"`
	TaskType  TaskType `gorm:"type:varchar(32);not null" json:"task_type"`
	ProjectID string   `gorm:"type:varchar(64);index" json:"project_id"`

	Status   TaskStatus        `gorm:"type:varchar(32);not null;index" json:"status"`
	Priority int               `json:"priority"`
	Payload  JSON[TaskPayload] `gorm:"type:text" json:"payload"`
	Result   string            `gorm:"type:text" json:"result,omitempty"`

	ErrorMessage string `gorm:"type:text" json:"error_message,omitempty"`
	RetryCount   int    `json:"retry_count"`
	WorkerID     string `gorm:"type:varchar(128)" json:"worker_id,omitempty"`

	// Lease fields back the visibility-timeout/heartbeat abstraction over
	// the shared Postgres database (SPEC_FULL.md §2's Work queue row).
	LeaseOwner      string     `gorm:"type:varchar(128)" json:"-"`
	LeaseExpiresAt  *time.Time `json:"-"`
	LastHeartbeatAt *time.Time `json:"-"`

	Version     int        `json:"-"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// TableName pins the gorm table name explicitly.
func (Task) TableName() string { return "tasks" }

// MaxRetryCount bounds how many redelivery cycles a Task may go through
// before it is left permanently failed (SPEC_FULL.md §4.8).
const MaxRetryCount = 3
