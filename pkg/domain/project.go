package domain

import "time"

// ErrorInfo captures a failure surfaced on a Project or Task.
type ErrorInfo struct {
	Message     string `json:"message"`
	FailedStage string `json:"failed_stage,omitempty"`
	Kind        string `json:"kind,omitempty"` // e.g. "retry_exhausted"
}

// Metrics is the per-stage (and, folded, per-project) resource accounting.
type Metrics struct {
	InputTokens   int64   `json:"input_tokens"`
	OutputTokens  int64   `json:"output_tokens"`
	WallTimeSecs  float64 `json:"wall_time_seconds"`
	ToolCalls     int64   `json:"tool_calls"`
	EstimatedCost float64 `json:"estimated_cost"`
	ModelID       string  `json:"model_id,omitempty"`
}

// Add folds another Metrics value into m in place.
func (m *Metrics) Add(other Metrics) {
	m.InputTokens += other.InputTokens
	m.OutputTokens += other.OutputTokens
	m.WallTimeSecs += other.WallTimeSecs
	m.ToolCalls += other.ToolCalls
	m.EstimatedCost += other.EstimatedCost
}

// TotalTokens is a convenience sum used by status reporting and tests.
func (m Metrics) TotalTokens() int64 {
	return m.InputTokens + m.OutputTokens
}

// Project is a single end-to-end build run, owning its pipeline.
type Project struct {
	ID           string       `gorm:"primaryKey;type:varchar(64)" json:"project_id"`
	ProjectName  string       `gorm:"type:varchar(255)" json:"project_name"`
	WorkflowType WorkflowType `gorm:"type:varchar(32);not null" json:"workflow_type"`
	Requirement  string       `gorm:"type:text" json:"requirement"`
	Priority     int          `json:"priority"`
	Tags         JSONStrings  `gorm:"type:text" json:"tags"`
	UserID       string       `gorm:"type:varchar(64)" json:"user_id,omitempty"`

	Status           ProjectStatus   `gorm:"type:varchar(32);not null" json:"status"`
	ControlStatus    ControlStatus   `gorm:"type:varchar(32);not null" json:"control_status"`
	CurrentStage     string          `gorm:"type:varchar(128)" json:"current_stage,omitempty"`
	Progress         int             `json:"progress"`
	PauseRequestedAt *time.Time      `json:"pause_requested_at,omitempty"`
	StopRequestedAt  *time.Time      `json:"stop_requested_at,omitempty"`
	ResumeFromStage  string          `gorm:"type:varchar(128)" json:"resume_from_stage,omitempty"`
	ErrorInfo        JSON[ErrorInfo] `gorm:"type:text" json:"error_info,omitempty"`

	AggregatedMetrics JSON[Metrics]           `gorm:"type:text" json:"aggregated_metrics"`
	Metadata          JSON[map[string]string] `gorm:"type:text" json:"metadata"`

	Version   int       `json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName pins the gorm table name explicitly (schema-stability across
// struct renames).
func (Project) TableName() string { return "projects" }

// MutableWhenTerminal reports whether field is one of the two fields the
// data model allows to still change once Status reaches a terminal value.
func MutableWhenTerminal(field string) bool {
	return field == "tags" || field == "error_info"
}
