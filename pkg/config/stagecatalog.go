package config

import (
	"fmt"
	"sync"
)

// stageAliases maps legacy stage names to their canonical replacement.
// New workflow types must not grow this table — it exists only so rows
// written under a retired name continue to resolve.
var stageAliases = map[string]string{
	"analysis":    "investigate",
	"remediation": "implement",
	"verify":      "review",
}

// NormalizeStageName maps a legacy stage name to its canonical form. Names
// absent from the alias table are returned unchanged.
func NormalizeStageName(name string) string {
	if canonical, ok := stageAliases[name]; ok {
		return canonical
	}
	return name
}

// StageCatalogRegistry stores per-workflow-type stage chains in memory with
// thread-safe access.
type StageCatalogRegistry struct {
	catalog map[string]*WorkflowCatalogConfig
	mu      sync.RWMutex
}

// NewStageCatalogRegistry creates a new registry from a workflow-type-keyed
// catalog map, defensively copying to prevent external mutation.
func NewStageCatalogRegistry(catalog map[string]*WorkflowCatalogConfig) *StageCatalogRegistry {
	copied := make(map[string]*WorkflowCatalogConfig, len(catalog))
	for k, v := range catalog {
		copied[k] = v
	}
	return &StageCatalogRegistry{catalog: copied}
}

// Get retrieves the stage chain for a workflow type (thread-safe).
func (r *StageCatalogRegistry) Get(workflowType string) (*WorkflowCatalogConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	wf, exists := r.catalog[workflowType]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrWorkflowTypeNotFound, workflowType)
	}
	return wf, nil
}

// GetStage retrieves a single stage definition by workflow type and stage
// name, applying alias normalization to name before lookup.
func (r *StageCatalogRegistry) GetStage(workflowType, name string) (*StageConfig, error) {
	wf, err := r.Get(workflowType)
	if err != nil {
		return nil, err
	}

	canonical := NormalizeStageName(name)
	for i := range wf.Stages {
		if wf.Stages[i].Name == canonical {
			return &wf.Stages[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s in workflow type %s", ErrStageNotFound, name, workflowType)
}

// GetAll returns all workflow-type stage chains (thread-safe, returns a copy).
func (r *StageCatalogRegistry) GetAll() map[string]*WorkflowCatalogConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make(map[string]*WorkflowCatalogConfig, len(r.catalog))
	for k, v := range r.catalog {
		result[k] = v
	}
	return result
}

// Has reports whether a workflow type exists in the registry (thread-safe).
func (r *StageCatalogRegistry) Has(workflowType string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.catalog[workflowType]
	return exists
}

// Len returns the number of workflow types in the registry (thread-safe).
func (r *StageCatalogRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.catalog)
}
