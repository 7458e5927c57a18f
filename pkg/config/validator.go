package config

import "fmt"

// Validator validates configuration comprehensively with clear error messages.
type Validator struct {
	cfg *Config
}

// NewValidator creates a validator for the given configuration.
func NewValidator(cfg *Config) *Validator {
	return &Validator{cfg: cfg}
}

// ValidateAll performs comprehensive validation (fail-fast — stops at the
// first error). Order: queue, stage catalog, then defaults, since defaults
// reference a workflow type that must already exist in the catalog.
func (v *Validator) ValidateAll() error {
	if err := v.validateQueue(); err != nil {
		return fmt.Errorf("queue validation failed: %w", err)
	}
	if err := v.validateStageCatalog(); err != nil {
		return fmt.Errorf("stage catalog validation failed: %w", err)
	}
	if err := v.validateDefaults(); err != nil {
		return fmt.Errorf("defaults validation failed: %w", err)
	}
	if err := v.validateDeploy(); err != nil {
		return fmt.Errorf("deploy validation failed: %w", err)
	}
	return nil
}

func (v *Validator) validateQueue() error {
	q := v.cfg.Queue
	if q == nil {
		return NewValidationError("queue", "", "", ErrMissingRequiredField)
	}
	if q.WorkerCount < 1 {
		return NewValidationError("queue", "", "worker_count", fmt.Errorf("%w: must be >= 1", ErrInvalidValue))
	}
	if q.MaxConcurrentTasks < 1 {
		return NewValidationError("queue", "", "max_concurrent_tasks", fmt.Errorf("%w: must be >= 1", ErrInvalidValue))
	}
	if q.VisibilityTimeout <= 0 {
		return NewValidationError("queue", "", "visibility_timeout", fmt.Errorf("%w: must be positive", ErrInvalidValue))
	}
	if q.HeartbeatInterval <= 0 {
		return NewValidationError("queue", "", "heartbeat_interval", fmt.Errorf("%w: must be positive", ErrInvalidValue))
	}
	if q.HeartbeatInterval >= q.VisibilityTimeout {
		return NewValidationError("queue", "", "heartbeat_interval", fmt.Errorf("%w: must be shorter than visibility_timeout", ErrInvalidValue))
	}
	if q.OrphanThreshold <= 0 {
		return NewValidationError("queue", "", "orphan_threshold", fmt.Errorf("%w: must be positive", ErrInvalidValue))
	}
	return nil
}

func (v *Validator) validateStageCatalog() error {
	catalog := v.cfg.StageCatalog.GetAll()
	if len(catalog) == 0 {
		return NewValidationError("stage_catalog", "", "", fmt.Errorf("%w: at least one workflow type required", ErrMissingRequiredField))
	}

	for workflowType, wf := range catalog {
		if len(wf.Stages) == 0 {
			return NewValidationError("stage_catalog", workflowType, "stages", fmt.Errorf("%w: at least one stage required", ErrMissingRequiredField))
		}

		seen := make(map[string]bool, len(wf.Stages))
		for _, stage := range wf.Stages {
			if stage.Name == "" {
				return NewValidationError("stage_catalog", workflowType, "stages[].name", ErrMissingRequiredField)
			}
			if seen[stage.Name] {
				return NewValidationError("stage_catalog", workflowType, "stages[].name", fmt.Errorf("%w: duplicate stage name %q", ErrInvalidValue, stage.Name))
			}
			seen[stage.Name] = true

			if stage.PromptTemplate == "" {
				return NewValidationError("stage_catalog", workflowType, fmt.Sprintf("stages[%s].prompt_template", stage.Name), ErrMissingRequiredField)
			}
			if len(stage.Agents) == 0 {
				return NewValidationError("stage_catalog", workflowType, fmt.Sprintf("stages[%s].agents", stage.Name), ErrMissingRequiredField)
			}
			for _, agent := range stage.Agents {
				if agent.Name == "" {
					return NewValidationError("stage_catalog", workflowType, fmt.Sprintf("stages[%s].agents[].name", stage.Name), ErrMissingRequiredField)
				}
			}
			if stage.SuccessPolicy != "" && !stage.SuccessPolicy.IsValid() {
				return NewValidationError("stage_catalog", workflowType, fmt.Sprintf("stages[%s].success_policy", stage.Name), fmt.Errorf("%w: %q", ErrInvalidValue, stage.SuccessPolicy))
			}
			if stage.DocumentPolicy != "" && !stage.DocumentPolicy.IsValid() {
				return NewValidationError("stage_catalog", workflowType, fmt.Sprintf("stages[%s].document_policy", stage.Name), fmt.Errorf("%w: %q", ErrInvalidValue, stage.DocumentPolicy))
			}
			if stage.Replicas < 0 {
				return NewValidationError("stage_catalog", workflowType, fmt.Sprintf("stages[%s].replicas", stage.Name), fmt.Errorf("%w: must be >= 0", ErrInvalidValue))
			}
		}
	}
	return nil
}

func (v *Validator) validateDefaults() error {
	d := v.cfg.Defaults
	if d.DefaultWorkflowType == "" {
		return NewValidationError("defaults", "", "default_workflow_type", ErrMissingRequiredField)
	}
	if !v.cfg.StageCatalog.Has(d.DefaultWorkflowType) {
		return NewValidationError("defaults", d.DefaultWorkflowType, "default_workflow_type", ErrWorkflowTypeNotFound)
	}
	if d.MaxIterations != nil && *d.MaxIterations < 1 {
		return NewValidationError("defaults", "", "max_iterations", fmt.Errorf("%w: must be >= 1", ErrInvalidValue))
	}
	if d.SuccessPolicy != "" && !d.SuccessPolicy.IsValid() {
		return NewValidationError("defaults", "", "success_policy", fmt.Errorf("%w: %q", ErrInvalidValue, d.SuccessPolicy))
	}
	if d.MaxRetryCount < 0 {
		return NewValidationError("defaults", "", "max_retry_count", fmt.Errorf("%w: must be >= 0", ErrInvalidValue))
	}
	return nil
}

func (v *Validator) validateDeploy() error {
	d := v.cfg.Deploy
	if d == nil {
		return NewValidationError("deploy", "", "", ErrMissingRequiredField)
	}
	if !d.DryRun && d.Endpoint == "" {
		return NewValidationError("deploy", "", "endpoint", ErrMissingRequiredField)
	}
	if d.TimeoutSeconds < 0 {
		return NewValidationError("deploy", "", "timeout_seconds", fmt.Errorf("%w: must be >= 0", ErrInvalidValue))
	}
	return nil
}
