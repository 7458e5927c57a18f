package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nexusforge/buildengine/pkg/domain"
	"github.com/nexusforge/buildengine/pkg/queue"
)

// deployer is the narrow surface the TaskExecutor needs from the Deployment
// Service. *deploy.Service satisfies this without pkg/engine importing
// pkg/deploy's concrete types.
type deployer interface {
	Deploy(ctx context.Context, wc *domain.WorkflowContext, region string) (*domain.Agent, error)
}

// TaskExecutor adapts an Engine to queue.TaskExecutor: it resolves a
// claimed Task's payload action, applies any restart bookkeeping, drives
// the Engine to completion or a suspension point, and reduces the result
// to what the Worker persists onto the Task row. A deploy_agent Task is
// handled separately: it skips the stage chain entirely and pushes the
// project's already-completed build straight to the Deployment Service.
type TaskExecutor struct {
	engine   *Engine
	deployer deployer
}

// NewTaskExecutor returns a queue.TaskExecutor backed by e.
func NewTaskExecutor(e *Engine, opts ...TaskExecutorOption) *TaskExecutor {
	te := &TaskExecutor{engine: e}
	for _, opt := range opts {
		opt(te)
	}
	return te
}

// TaskExecutorOption configures optional TaskExecutor collaborators.
type TaskExecutorOption func(*TaskExecutor)

// WithDeployer wires the Deployment Service in, enabling deploy_agent Tasks
// and the build-completion auto-deploy step.
func WithDeployer(d deployer) TaskExecutorOption {
	return func(te *TaskExecutor) { te.deployer = d }
}

var _ queue.TaskExecutor = (*TaskExecutor)(nil)

// Execute implements queue.TaskExecutor. A restart action first resets the
// target stage and everything after it to pending, then both restart and
// resume fall into the same execute-to-completion path — resume_from_stage
// (or the first non-completed stage) naturally picks up the right place. A
// deploy_agent Task bypasses the stage chain and deploys directly. Any other
// Task whose execute-to-completion run ends completed, whatever its workflow
// type, triggers the same deploy step inline when a deployer is configured,
// instead of as a separately queued Task; a single-stage run never deploys.
// A deploy failure there
// is captured on the Agent record (Service.Deploy's own rollback) and
// logged, not surfaced as a build-Task failure: the build itself succeeded.
func (te *TaskExecutor) Execute(ctx context.Context, task *domain.Task) *queue.ExecutionResult {
	payload := task.Payload.Value
	projectID := task.ProjectID

	if task.TaskType == domain.TaskTypeDeployAgent {
		return te.executeDeploy(ctx, projectID, payload)
	}

	if payload.Action == domain.TaskActionRestart {
		if err := te.resetFromStage(ctx, projectID, payload.TargetStage); err != nil {
			return &queue.ExecutionResult{Status: domain.TaskStatusFailed, ErrorMsg: err.Error(), Recoverable: false}
		}
	}

	var result *domain.ExecutionResult
	fullChain := false
	switch {
	case !payload.ExecuteToCompletion && payload.TargetStage != "":
		result = te.engine.ExecuteSingleStage(ctx, projectID, payload.TargetStage)
	default:
		result = te.engine.ExecuteToCompletion(ctx, projectID)
		fullChain = true
	}

	if fullChain && result.FinalStatus == domain.FinalStatusCompleted && te.deployer != nil {
		te.autoDeploy(ctx, projectID, payload)
	}

	return toTaskResult(result)
}

// executeDeploy handles a standalone deploy_agent Task: load the project's
// Workflow Context (no stage execution) and push it to the Deployment
// Service.
func (te *TaskExecutor) executeDeploy(ctx context.Context, projectID string, payload domain.TaskPayload) *queue.ExecutionResult {
	if te.deployer == nil {
		return &queue.ExecutionResult{Status: domain.TaskStatusFailed, ErrorMsg: "engine: no deployer configured", Recoverable: false}
	}
	wc, err := te.engine.Load(ctx, projectID)
	if err != nil {
		return &queue.ExecutionResult{Status: domain.TaskStatusFailed, ErrorMsg: err.Error(), Recoverable: true}
	}
	agent, err := te.deployer.Deploy(ctx, wc, payload.Metadata["region"])
	if err != nil {
		return &queue.ExecutionResult{Status: domain.TaskStatusFailed, ErrorMsg: err.Error(), Recoverable: true}
	}
	return &queue.ExecutionResult{Status: domain.TaskStatusCompleted, Result: agent.ID}
}

// autoDeploy runs the deploy step inline after a completed build, logging
// (not propagating) any failure — the Deployment Service itself is
// responsible for recording the failure on the Agent record.
func (te *TaskExecutor) autoDeploy(ctx context.Context, projectID string, payload domain.TaskPayload) {
	wc, err := te.engine.Load(ctx, projectID)
	if err != nil {
		slog.Warn("engine: auto-deploy: reload project failed", "project_id", projectID, "error", err)
		return
	}
	if _, err := te.deployer.Deploy(ctx, wc, payload.Metadata["region"]); err != nil {
		slog.Warn("engine: auto-deploy failed", "project_id", projectID, "error", err)
	}
}

func (te *TaskExecutor) resetFromStage(ctx context.Context, projectID, targetStage string) error {
	wc, err := te.engine.Load(ctx, projectID)
	if err != nil {
		return fmt.Errorf("engine: restart: %w", err)
	}
	idx := -1
	for i, name := range wc.StageOrder {
		if name == targetStage {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("engine: restart: stage %q not in configured order", targetStage)
	}
	if err := te.engine.store.ResetStagesFromIndex(ctx, projectID, idx); err != nil {
		return fmt.Errorf("engine: restart: reset stages: %w", err)
	}
	_, err = te.engine.store.UpdateProject(ctx, projectID, func(p *domain.Project) error {
		p.ResumeFromStage = targetStage
		p.Status = domain.ProjectStatusPending
		return nil
	})
	if err != nil {
		return fmt.Errorf("engine: restart: update project: %w", err)
	}
	return nil
}

// stoppedMessage is the exact message the Engine's execution loop attaches
// to a user-requested stop — distinguishing it from a genuine stage
// failure, both of which surface as FinalStatusFailed.
const stoppedMessage = "Workflow stopped by user"

// toTaskResult reduces an ExecutionResult to the queue's terminal Task
// outcome. Paused and a user-requested stop are not failures of the Task
// itself — the Task completed its lease normally, the workflow simply
// isn't done (or is deliberately over). A prerequisite violation is not
// recoverable; every other failure (a stage failure, or an error loading or
// saving the project) is reported as Recoverable so the Worker requeues it.
func toTaskResult(result *domain.ExecutionResult) *queue.ExecutionResult {
	switch {
	case result.FinalStatus == domain.FinalStatusCompleted:
		return &queue.ExecutionResult{Status: domain.TaskStatusCompleted, Result: "workflow completed"}
	case result.FinalStatus == domain.FinalStatusPaused:
		return &queue.ExecutionResult{Status: domain.TaskStatusCompleted, Result: "workflow paused"}
	case result.FinalStatus == domain.FinalStatusFailed && result.Message == stoppedMessage:
		return &queue.ExecutionResult{Status: domain.TaskStatusCompleted, Result: stoppedMessage}
	case len(result.MissingPrerequisites) > 0:
		// A prerequisite violation means the chain is misconfigured or a
		// prior stage never completed; redelivering the same task can't fix it.
		return &queue.ExecutionResult{Status: domain.TaskStatusFailed, ErrorMsg: result.Message, Recoverable: false}
	default:
		return &queue.ExecutionResult{
			Status:      domain.TaskStatusFailed,
			ErrorMsg:    result.Message,
			Recoverable: true,
		}
	}
}
