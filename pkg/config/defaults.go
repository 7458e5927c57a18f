package config

// Defaults contains system-wide default configuration, used when a stage or
// workflow type does not specify its own value.
type Defaults struct {
	// DefaultWorkflowType names the workflow type used when a Task does not
	// specify one explicitly.
	DefaultWorkflowType string `yaml:"default_workflow_type,omitempty"`

	// MaxIterations is the hard cap applied when neither the stage nor the
	// workflow type overrides it. Reaching it forces a conclusion rather
	// than pausing for another iteration.
	MaxIterations *int `yaml:"max_iterations,omitempty" validate:"omitempty,min=1"`

	// SuccessPolicy is the default aggregation rule for parallel stages that
	// do not set one explicitly.
	SuccessPolicy SuccessPolicy `yaml:"success_policy,omitempty"`

	// MaxRetryCount bounds how many times a Task may be redelivered after a
	// worker-reported failure before it is marked permanently failed.
	MaxRetryCount int `yaml:"max_retry_count,omitempty" validate:"omitempty,min=0"`
}
