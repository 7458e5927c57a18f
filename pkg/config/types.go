package config

// StageAgentConfig references a sub-agent within a stage, with per-agent
// overrides. A stage always carries its agents as a slice — a single-agent
// stage is simply a slice of length one — since parallel fan-out is
// triggered purely by len(Agents) > 1 or Replicas > 1.
type StageAgentConfig struct {
	Name          string `yaml:"name" validate:"required"`
	SubAgentType  string `yaml:"sub_agent_type,omitempty"`
	MaxIterations *int   `yaml:"max_iterations,omitempty" validate:"omitempty,min=1"`
}

// SynthesisConfig configures the merge/synthesis step that follows a
// parallel multi-agent stage.
type SynthesisConfig struct {
	Agent        string `yaml:"agent,omitempty"`
	SubAgentType string `yaml:"sub_agent_type,omitempty"`
}

// StageConfig defines a single stage within a workflow type's chain.
type StageConfig struct {
	// Name is the canonical stage name (required). Loaded rows are passed
	// through the alias table before being matched against this field.
	Name string `yaml:"name" validate:"required"`

	// DisplayName is the human-readable label persisted onto Stage rows.
	DisplayName string `yaml:"display_name,omitempty"`

	// PromptTemplate names the prompt template the Stage Executor resolves
	// for this stage (workflow_type -> stage_name -> template).
	PromptTemplate string `yaml:"prompt_template" validate:"required"`

	// Iterative marks a structurally per-subagent stage: when the project
	// is multi-agent, the Multi-Agent Iterator fans this stage out over
	// the discovered subagents instead of running it once.
	Iterative bool `yaml:"iterative,omitempty"`

	// Agents to execute for this stage (required, min 1).
	Agents []StageAgentConfig `yaml:"agents" validate:"required,min=1,dive"`

	// Replicas runs the same agent configuration N times for simple
	// redundancy (default 1).
	Replicas int `yaml:"replicas,omitempty" validate:"omitempty,min=1"`

	// SuccessPolicy governs aggregation when more than one agent runs.
	SuccessPolicy SuccessPolicy `yaml:"success_policy,omitempty"`

	// MaxIterations overrides the stage-level iteration cap.
	MaxIterations *int `yaml:"max_iterations,omitempty" validate:"omitempty,min=1"`

	// DocumentPolicy controls document-extraction enforcement for this stage.
	DocumentPolicy DocumentPolicy `yaml:"document_policy,omitempty"`

	// Synthesis configures the merge step following parallel fan-out.
	Synthesis *SynthesisConfig `yaml:"synthesis,omitempty"`
}

// WorkflowCatalogConfig defines the ordered stage chain for one workflow type.
type WorkflowCatalogConfig struct {
	// Description is a human-readable summary of the workflow type.
	Description string `yaml:"description,omitempty"`

	// Stages is the ordered chain executed for this workflow type
	// (required, min 1).
	Stages []StageConfig `yaml:"stages" validate:"required,min=1,dive"`

	// MaxIterations is the workflow-level default, overridden per-stage.
	MaxIterations *int `yaml:"max_iterations,omitempty" validate:"omitempty,min=1"`
}

// BlobConfig configures the S3-compatible object store client.
type BlobConfig struct {
	Endpoint  string `yaml:"endpoint" validate:"required"`
	Bucket    string `yaml:"bucket" validate:"required"`
	AccessKey string `yaml:"access_key,omitempty"`
	SecretKey string `yaml:"secret_key,omitempty"`
	UseSSL    bool   `yaml:"use_ssl"`
	Region    string `yaml:"region,omitempty"`
}

// LLMConfig configures the gRPC-backed LLM invoker client.
type LLMConfig struct {
	Endpoint       string `yaml:"endpoint" validate:"required"`
	DefaultModel   string `yaml:"default_model,omitempty"`
	TimeoutSeconds int    `yaml:"timeout_seconds,omitempty" validate:"omitempty,min=1"`
	Insecure       bool   `yaml:"insecure,omitempty"`
}

// RetentionConfig controls how long terminal records are kept before cleanup
// sweeps may remove them.
type RetentionConfig struct {
	TaskRetentionDays int `yaml:"task_retention_days,omitempty" validate:"omitempty,min=1"`
}

// DefaultRetentionConfig returns the built-in retention defaults.
func DefaultRetentionConfig() *RetentionConfig {
	return &RetentionConfig{TaskRetentionDays: 30}
}

// DeployConfig configures the Deployment Service's managed-runtime client
// and local build-recipe staging area.
type DeployConfig struct {
	Endpoint       string `yaml:"endpoint" validate:"required"`
	Insecure       bool   `yaml:"insecure,omitempty"`
	TimeoutSeconds int    `yaml:"timeout_seconds,omitempty" validate:"omitempty,min=1"`

	// DryRun short-circuits everything after configuration: the runtime is
	// never reached, and the Agent record is written offline/dry_run.
	DryRun bool `yaml:"dry_run,omitempty"`

	// DefaultRegion is used when a project's metadata does not override it.
	DefaultRegion string `yaml:"default_region,omitempty"`

	// BuildRoot is the local working-copy root under which per-project
	// build recipe files are staged and cleaned up after push.
	BuildRoot string `yaml:"build_root,omitempty"`
}

// DefaultDeployConfig returns the built-in deployment defaults.
func DefaultDeployConfig() *DeployConfig {
	return &DeployConfig{TimeoutSeconds: 60, DefaultRegion: "us-east-1", BuildRoot: "projects"}
}
