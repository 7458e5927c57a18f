package config

// Config is the umbrella configuration object encapsulating all registries,
// defaults, and configuration state. This is the primary object returned by
// Initialize and used throughout the application.
type Config struct {
	configDir string // Configuration directory path (for reference)

	// System-wide defaults.
	Defaults *Defaults

	// Queue/worker pool tuning.
	Queue *QueueConfig

	// Blob store connection settings.
	Blob *BlobConfig

	// LLM invoker connection settings.
	LLM *LLMConfig

	// Retention controls how long terminal records survive cleanup sweeps.
	Retention *RetentionConfig

	// Deploy configures the Deployment Service's managed-runtime client.
	Deploy *DeployConfig

	// StageCatalog is the per-workflow-type stage chain registry.
	StageCatalog *StageCatalogRegistry
}

// ConfigStats contains statistics about loaded configuration.
type ConfigStats struct {
	WorkflowTypes int
	Stages        int
}

// Stats returns configuration statistics for logging/monitoring.
func (c *Config) Stats() ConfigStats {
	stages := 0
	for _, wf := range c.StageCatalog.GetAll() {
		stages += len(wf.Stages)
	}
	return ConfigStats{
		WorkflowTypes: c.StageCatalog.Len(),
		Stages:        stages,
	}
}

// ConfigDir returns the configuration directory path.
func (c *Config) ConfigDir() string {
	return c.configDir
}

// GetWorkflowCatalog retrieves the stage chain for a workflow type.
// This is a convenience method that wraps StageCatalog.Get.
func (c *Config) GetWorkflowCatalog(workflowType string) (*WorkflowCatalogConfig, error) {
	return c.StageCatalog.Get(workflowType)
}

// GetStage retrieves a single stage definition by workflow type and stage
// name (applying alias normalization). This is a convenience method that
// wraps StageCatalog.GetStage.
func (c *Config) GetStage(workflowType, stageName string) (*StageConfig, error) {
	return c.StageCatalog.GetStage(workflowType, stageName)
}
