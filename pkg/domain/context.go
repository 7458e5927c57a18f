package domain

import "fmt"

// IntentRecognitionResult is an optional Workflow Context field supplemented
// from the original source's intent-classification pass (SPEC_FULL.md §4.8).
type IntentRecognitionResult struct {
	Detected   bool    `json:"detected"`
	Category   string  `json:"category,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
	Notes      string  `json:"notes,omitempty"`
}

// StageOutput is the result the Stage Executor produces for one stage run.
type StageOutput struct {
	StageName       string          `json:"stage_name"`
	Status          StageStatus     `json:"status"`
	Content         string          `json:"content"`
	Metrics         Metrics         `json:"metrics"`
	GeneratedFiles  []GeneratedFile `json:"generated_files"`
	DocumentContent string          `json:"document_content,omitempty"`
	DocumentFormat  string          `json:"document_format,omitempty"`
	ErrorMessage    string          `json:"error_message,omitempty"`
}

// WorkflowContext is the ephemeral, per-run aggregate the Workflow Engine
// assembles, executes against, and persists after every stage transition.
type WorkflowContext struct {
	ProjectID    string
	ProjectName  string
	Requirement  string
	Intent       *IntentRecognitionResult
	Rules        string
	WorkflowType WorkflowType

	// StageOutputs is keyed by stage name; StageOutputs[s].StageName == s.
	StageOutputs map[string]*StageOutput

	CurrentStage      string
	Status            ProjectStatus
	ControlStatus     ControlStatus
	AggregatedMetrics Metrics

	// StageOrder is the configured ordered stage-name list for WorkflowType.
	StageOrder []string

	// foldedStages tracks which stage names have already had their metrics
	// folded into AggregatedMetrics, enforcing the single-fold property: a
	// stage re-run and re-completed must not double-count.
	foldedStages map[string]bool
}

// NewWorkflowContext creates an empty context for a project, ready for
// SetStageOutput calls during assembly or a fresh run.
func NewWorkflowContext(projectID, projectName, requirement string, workflowType WorkflowType, stageOrder []string) *WorkflowContext {
	return &WorkflowContext{
		ProjectID:     projectID,
		ProjectName:   projectName,
		Requirement:   requirement,
		WorkflowType:  workflowType,
		StageOutputs:  make(map[string]*StageOutput),
		StageOrder:    append([]string(nil), stageOrder...),
		Status:        ProjectStatusPending,
		ControlStatus: ControlStatusRunning,
		foldedStages:  make(map[string]bool),
	}
}

// SetStageOutput records an output and, when it completes the stage for the
// first time, folds its metrics into AggregatedMetrics exactly once.
func (c *WorkflowContext) SetStageOutput(output *StageOutput) error {
	if output == nil {
		return fmt.Errorf("domain: nil stage output")
	}
	if c.foldedStages == nil {
		c.foldedStages = make(map[string]bool)
	}

	c.StageOutputs[output.StageName] = output

	if output.Status == StageStatusCompleted && !c.foldedStages[output.StageName] {
		c.AggregatedMetrics.Add(output.Metrics)
		c.foldedStages[output.StageName] = true
	}
	return nil
}

// GetCompletedStages returns stage names with a completed output, in
// configured order.
func (c *WorkflowContext) GetCompletedStages() []string {
	completed := make([]string, 0, len(c.StageOrder))
	for _, name := range c.StageOrder {
		if out, ok := c.StageOutputs[name]; ok && out.Status == StageStatusCompleted {
			completed = append(completed, name)
		}
	}
	return completed
}

// PrerequisitesOf returns the stage names preceding stageName in StageOrder.
func (c *WorkflowContext) PrerequisitesOf(stageName string) ([]string, error) {
	for i, name := range c.StageOrder {
		if name == stageName {
			return append([]string(nil), c.StageOrder[:i]...), nil
		}
	}
	return nil, fmt.Errorf("domain: stage %q not in configured order for workflow type %s", stageName, c.WorkflowType)
}

// PrerequisitesMet reports whether every prerequisite of stageName has a
// completed output, and if not, returns the missing stage names.
func (c *WorkflowContext) PrerequisitesMet(stageName string) (bool, []string, error) {
	prereqs, err := c.PrerequisitesOf(stageName)
	if err != nil {
		return false, nil, err
	}

	var missing []string
	for _, p := range prereqs {
		out, ok := c.StageOutputs[p]
		if !ok || out.Status != StageStatusCompleted {
			missing = append(missing, p)
		}
	}
	return len(missing) == 0, missing, nil
}
