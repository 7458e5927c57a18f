package domain

import "time"

// RuntimeHandle is a reference to the deployed artifact within the managed
// runtime (SPEC_FULL.md's Deployment Service component).
type RuntimeHandle struct {
	RuntimeID  string `json:"runtime_id"`
	Endpoint   string `json:"endpoint,omitempty"`
	RevisionID string `json:"revision_id,omitempty"`
}

// Agent is the lifecycle record of a deployed artifact, keyed by agent_id.
type Agent struct {
	ID            string `gorm:"primaryKey;type:varchar(64)" json:"agent_id"`
	SourceProject string `gorm:"type:varchar(64);index" json:"source_project_id"`
	Name          string `gorm:"type:varchar(255)" json:"name"`

	RuntimeHandle JSON[RuntimeHandle] `gorm:"type:text" json:"runtime_handle"`
	Capabilities  JSONStrings         `gorm:"type:text" json:"capabilities"`

	DeploymentStatus AgentDeploymentStatus `gorm:"type:varchar(32);not null" json:"deployment_status"`
	DeploymentError  string                `gorm:"type:text" json:"deployment_error,omitempty"`

	// InvocationCount is advisory and may lag actual runtime invocations.
	InvocationCount int64 `json:"invocation_count"`

	Version   int       `json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName pins the gorm table name explicitly.
func (Agent) TableName() string { return "agents" }
