package config

// mergeStageCatalog merges the built-in and user-defined workflow-type stage
// catalogs. A user-defined workflow type overrides the built-in entry of the
// same name wholesale (stage chains are replaced, not patched stage-by-stage).
func mergeStageCatalog(builtin, user map[string]WorkflowCatalogConfig) map[string]*WorkflowCatalogConfig {
	result := make(map[string]*WorkflowCatalogConfig, len(builtin)+len(user))

	for workflowType, wf := range builtin {
		wfCopy := wf
		result[workflowType] = &wfCopy
	}

	for workflowType, wf := range user {
		wfCopy := wf
		result[workflowType] = &wfCopy
	}

	return result
}
