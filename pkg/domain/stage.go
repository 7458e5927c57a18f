package domain

import "time"

// GeneratedFile records one file the Stage Executor observed written to the
// project directory during a stage run.
type GeneratedFile struct {
	Path         string    `json:"path"`
	Size         int64     `json:"size"`
	Checksum     string    `json:"checksum"` // MD5 hex
	LastModified time.Time `json:"last_modified"`
}

// DesignDocument is the extracted canonical document for a completed stage,
// per the per-stage document-extraction policy.
type DesignDocument struct {
	Content string `json:"content"`
	Format  string `json:"format"` // "markdown" or "json"
}

// Stage is one ordered step of a workflow run, keyed by (project_id, stage_name).
type Stage struct {
	ProjectID   string `gorm:"primaryKey;type:varchar(64)" json:"project_id"`
	StageName   string `gorm:"primaryKey;type:varchar(128)" json:"stage_name"`
	StageNumber int    `json:"stage_number"`
	DisplayName string `gorm:"type:varchar(255)" json:"display_name"`
	AgentName   string `gorm:"type:varchar(128)" json:"agent_name,omitempty"`

	Status StageStatus `gorm:"type:varchar(32);not null" json:"status"`

	StartedAt       *time.Time `json:"started_at,omitempty"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
	DurationSeconds float64    `json:"duration_seconds,omitempty"`

	Metrics JSON[Metrics] `gorm:"type:text" json:"metrics"`

	// Exactly one of AgentOutputContent and AgentOutputS3Ref carries content
	// when Status is completed (§3 invariant; 400 KiB inline threshold).
	AgentOutputContent string `gorm:"type:text" json:"agent_output_content,omitempty"`
	AgentOutputS3Ref   string `gorm:"type:varchar(512)" json:"agent_output_s3_ref,omitempty"`

	DesignDocument JSON[DesignDocument]  `gorm:"type:text" json:"design_document"`
	GeneratedFiles JSON[[]GeneratedFile] `gorm:"type:text" json:"generated_files"`

	ErrorMessage string `gorm:"type:text" json:"error_message,omitempty"`
	DocPath      string `gorm:"type:varchar(512)" json:"doc_path,omitempty"`

	Version   int       `json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName pins the gorm table name explicitly.
func (Stage) TableName() string { return "stages" }

// OversizeThresholdBytes is the inline-vs-blob-store content size cutoff
// (400 KiB), per §4.2's oversize-output rule.
const OversizeThresholdBytes = 400 * 1024

// IsOversize reports whether content must be offloaded to the blob store
// rather than stored inline on the Stage record.
func IsOversize(content string) bool {
	return len(content) > OversizeThresholdBytes
}
