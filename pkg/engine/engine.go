// Package engine drives a project through its configured stage chain,
// stage by stage, honoring pause/stop signals between and around each
// invocation and persisting the Workflow Context after every transition.
// A fixed fail-fast agent chain is generalized here into a named-entry-point
// engine that can also start mid-chain, pause, resume, and stop.
package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nexusforge/buildengine/pkg/config"
	"github.com/nexusforge/buildengine/pkg/domain"
	"github.com/nexusforge/buildengine/pkg/executor"
	"github.com/nexusforge/buildengine/pkg/multiagent"
	"github.com/nexusforge/buildengine/pkg/workflowctx"
)

// stageExecutor is the narrow surface the Engine needs from the Stage
// Executor's single-agent path. *executor.Executor satisfies this.
type stageExecutor interface {
	ExecuteStage(ctx context.Context, wc *domain.WorkflowContext, req executor.Request) (*domain.StageOutput, error)
}

// iterator is the narrow surface the Engine needs from the Multi-Agent
// Iterator.
type iterator interface {
	ExecuteIterativeStage(ctx context.Context, workflowType domain.WorkflowType, stageName, projectID, projectName, baseContext string, arch *multiagent.Architecture) *domain.StageOutput
}

// recordStore is the narrow store surface the Engine needs beyond what
// workflowctx.Manager already wraps: control status refresh, stage
// failure/start bookkeeping, and stage listing for reload.
type recordStore interface {
	GetControlStatus(ctx context.Context, projectID string) (domain.ControlStatus, error)
	GetProject(ctx context.Context, projectID string) (*domain.Project, error)
	UpdateProject(ctx context.Context, projectID string, mutate func(*domain.Project) error) (*domain.Project, error)
	UpdateStage(ctx context.Context, projectID, stageName string, mutate func(*domain.Stage) error) (*domain.Stage, error)
	ListStages(ctx context.Context, projectID string) ([]*domain.Stage, error)
	ResetStagesFromIndex(ctx context.Context, projectID string, fromIndex int) error
}

// Engine loads a project's Workflow Context and drives it through its
// configured stage chain.
type Engine struct {
	store    recordStore
	catalog  *config.StageCatalogRegistry
	assemble *workflowctx.Assembler
	persist  *workflowctx.Manager
	exec     stageExecutor
	iter     iterator
}

// New returns an Engine wired to its collaborators.
func New(store recordStore, catalog *config.StageCatalogRegistry, assemble *workflowctx.Assembler, persist *workflowctx.Manager, exec stageExecutor, iter iterator) *Engine {
	return &Engine{store: store, catalog: catalog, assemble: assemble, persist: persist, exec: exec, iter: iter}
}

// Load reconstructs the Workflow Context for projectID, including the
// catalog's configured stage order for its workflow type.
func (e *Engine) Load(ctx context.Context, projectID string) (*domain.WorkflowContext, error) {
	project, err := e.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("engine: load project %s: %w", projectID, err)
	}

	wc, err := e.persist.LoadFromDB(ctx, e.store.ListStages, project)
	if err != nil {
		return nil, err
	}

	catalog, err := e.catalog.Get(string(project.WorkflowType))
	if err != nil {
		return nil, fmt.Errorf("engine: resolve catalog for %s: %w", project.WorkflowType, err)
	}
	order := make([]string, len(catalog.Stages))
	for i, s := range catalog.Stages {
		order[i] = s.Name
	}
	wc.StageOrder = order

	return wc, nil
}

// ExecuteSingleStage runs exactly one stage (prerequisite-checked) and
// returns without advancing further, regardless of success.
func (e *Engine) ExecuteSingleStage(ctx context.Context, projectID, stageName string) *domain.ExecutionResult {
	wc, err := e.Load(ctx, projectID)
	if err != nil {
		return failedResult("", fmt.Sprintf("load project: %v", err))
	}
	return e.executeFrom(ctx, wc, stageName, false)
}

// ExecuteFromStage runs stageName and, if toCompletion, every configured
// stage after it.
func (e *Engine) ExecuteFromStage(ctx context.Context, projectID, stageName string, toCompletion bool) *domain.ExecutionResult {
	wc, err := e.Load(ctx, projectID)
	if err != nil {
		return failedResult("", fmt.Sprintf("load project: %v", err))
	}
	return e.executeFrom(ctx, wc, stageName, toCompletion)
}

// ExecuteToCompletion resumes from resume_from_stage if set, else the
// first non-completed configured stage, and runs to the end of the chain.
func (e *Engine) ExecuteToCompletion(ctx context.Context, projectID string) *domain.ExecutionResult {
	wc, err := e.Load(ctx, projectID)
	if err != nil {
		return failedResult("", fmt.Sprintf("load project: %v", err))
	}

	project, err := e.store.GetProject(ctx, projectID)
	if err != nil {
		return failedResult("", fmt.Sprintf("reload project: %v", err))
	}

	start := project.ResumeFromStage
	if start == "" {
		start = firstIncompleteStage(wc)
	}
	if start == "" {
		return &domain.ExecutionResult{FinalStatus: domain.FinalStatusCompleted, AggregatedMetrics: wc.AggregatedMetrics}
	}

	return e.executeFrom(ctx, wc, start, true)
}

// firstIncompleteStage returns the first configured stage without a
// completed output, or "" if every stage is already done.
func firstIncompleteStage(wc *domain.WorkflowContext) string {
	for _, name := range wc.StageOrder {
		out, ok := wc.StageOutputs[name]
		if !ok || out.Status != domain.StageStatusCompleted {
			return name
		}
	}
	return ""
}

// executeFrom implements the execution loop: refresh control status,
// compute the to-execute slice, then run each stage in turn, checking
// control status before and after every stage transition.
func (e *Engine) executeFrom(ctx context.Context, wc *domain.WorkflowContext, fromStage string, toCompletion bool) *domain.ExecutionResult {
	log := slog.With("project_id", wc.ProjectID, "workflow_type", wc.WorkflowType)

	if signal := e.refreshControl(ctx, wc); signal != domain.ControlSignalNone {
		log.Info("control signal observed before execution", "signal", signal)
		return e.suspendedResult(signal, wc)
	}

	toExecute, err := sliceFrom(wc.StageOrder, fromStage, toCompletion)
	if err != nil {
		return failedResult("", err.Error())
	}

	for _, stageName := range toExecute {
		if met, missing, err := wc.PrerequisitesMet(stageName); err != nil {
			return failedResult(stageName, err.Error())
		} else if !met {
			return &domain.ExecutionResult{
				FinalStatus:          domain.FinalStatusFailed,
				FailedStage:          stageName,
				Message:              (&domain.PrerequisiteError{StageName: stageName, MissingPrerequisites: missing}).Error(),
				MissingPrerequisites: missing,
			}
		}

		wc.CurrentStage = stageName
		wc.Status = domain.ProjectStatusBuilding
		if err := e.markRunning(ctx, wc, stageName); err != nil {
			return failedResult(stageName, err.Error())
		}
		log.Info("stage started", "stage", stageName)

		if signal := e.refreshControl(ctx, wc); signal != domain.ControlSignalNone {
			log.Info("control signal observed before invocation", "stage", stageName, "signal", signal)
			return e.suspendedResult(signal, wc)
		}

		out, execErr := e.runStage(ctx, wc, stageName)

		if signal := e.refreshControl(ctx, wc); signal != domain.ControlSignalNone {
			log.Info("control signal observed after invocation", "stage", stageName, "signal", signal)
			_ = wc.SetStageOutput(out)
			_ = e.persist.SaveToDB(ctx, wc)
			return e.suspendedResult(signal, wc)
		}

		if execErr != nil {
			log.Warn("stage failed", "stage", stageName, "error", execErr)
			_ = wc.SetStageOutput(out)
			_ = e.persist.SaveToDB(ctx, wc)
			if err := e.failProject(ctx, wc.ProjectID, stageName, execErr.Error()); err != nil {
				return failedResult(stageName, err.Error())
			}
			return &domain.ExecutionResult{FinalStatus: domain.FinalStatusFailed, FailedStage: stageName, Message: execErr.Error()}
		}

		if err := wc.SetStageOutput(out); err != nil {
			return failedResult(stageName, err.Error())
		}
		if err := e.persist.SaveToDB(ctx, wc); err != nil {
			return failedResult(stageName, err.Error())
		}
		log.Info("stage completed", "stage", stageName, "input_tokens", out.Metrics.InputTokens, "output_tokens", out.Metrics.OutputTokens)
	}

	if err := e.completeProject(ctx, wc.ProjectID); err != nil {
		return failedResult("", err.Error())
	}
	log.Info("workflow completed")
	return &domain.ExecutionResult{FinalStatus: domain.FinalStatusCompleted, AggregatedMetrics: wc.AggregatedMetrics}
}

// runStage dispatches to the Multi-Agent Iterator when the stage is
// structurally iterative and the project's discovered architecture has
// more than one subagent, else to the single-agent Stage Executor.
func (e *Engine) runStage(ctx context.Context, wc *domain.WorkflowContext, stageName string) (*domain.StageOutput, error) {
	if multiagent.IterativeStages[stageName] {
		if archOut, ok := wc.StageOutputs["system_architecture"]; ok && archOut.Status == domain.StageStatusCompleted {
			if arch, ok := multiagent.DiscoverArchitecture(archOut.Content); ok {
				baseContext, err := e.assemble.BuildContext(wc, stageName, nil)
				if err != nil {
					return &domain.StageOutput{StageName: stageName, Status: domain.StageStatusFailed, ErrorMessage: err.Error()}, err
				}
				out := e.iter.ExecuteIterativeStage(ctx, wc.WorkflowType, stageName, wc.ProjectID, wc.ProjectName, baseContext, arch)
				if out.Status == domain.StageStatusFailed {
					return out, domain.NewStageExecutionError(stageName, fmt.Errorf("%s", out.ErrorMessage))
				}
				return out, nil
			}
		}
	}

	out, err := e.exec.ExecuteStage(ctx, wc, executor.Request{
		WorkflowType: wc.WorkflowType,
		ProjectID:    wc.ProjectID,
		ProjectName:  wc.ProjectName,
		StageName:    stageName,
	})
	if err != nil {
		if out == nil {
			out = &domain.StageOutput{StageName: stageName, Status: domain.StageStatusFailed, ErrorMessage: err.Error()}
		}
		return out, err
	}
	return out, nil
}

// refreshControl reloads control_status from the record store and
// translates a paused/stopped request into a ControlSignal.
func (e *Engine) refreshControl(ctx context.Context, wc *domain.WorkflowContext) domain.ControlSignal {
	status, err := e.store.GetControlStatus(ctx, wc.ProjectID)
	if err != nil {
		return domain.ControlSignalNone
	}
	wc.ControlStatus = status
	switch status {
	case domain.ControlStatusPaused:
		return domain.ControlSignalPause
	case domain.ControlStatusStopped, domain.ControlStatusCancelled:
		return domain.ControlSignalStop
	default:
		return domain.ControlSignalNone
	}
}

func (e *Engine) suspendedResult(signal domain.ControlSignal, wc *domain.WorkflowContext) *domain.ExecutionResult {
	if signal == domain.ControlSignalStop {
		_, _ = e.store.UpdateProject(context.Background(), wc.ProjectID, func(p *domain.Project) error {
			p.Status = domain.ProjectStatusCancelled
			return nil
		})
		return &domain.ExecutionResult{FinalStatus: domain.FinalStatusFailed, Message: "Workflow stopped by user", AggregatedMetrics: wc.AggregatedMetrics}
	}
	_, _ = e.store.UpdateProject(context.Background(), wc.ProjectID, func(p *domain.Project) error {
		p.Status = domain.ProjectStatusPaused
		return nil
	})
	return &domain.ExecutionResult{FinalStatus: domain.FinalStatusPaused, AggregatedMetrics: wc.AggregatedMetrics}
}

func (e *Engine) markRunning(ctx context.Context, wc *domain.WorkflowContext, stageName string) error {
	_, err := e.store.UpdateProject(ctx, wc.ProjectID, func(p *domain.Project) error {
		p.CurrentStage = stageName
		p.Status = domain.ProjectStatusBuilding
		return nil
	})
	if err != nil {
		return fmt.Errorf("engine: mark project building: %w", err)
	}
	_, err = e.store.UpdateStage(ctx, wc.ProjectID, config.NormalizeStageName(stageName), func(st *domain.Stage) error {
		st.Status = domain.StageStatusRunning
		return nil
	})
	if err != nil {
		return fmt.Errorf("engine: mark stage %s running: %w", stageName, err)
	}
	return nil
}

func (e *Engine) failProject(ctx context.Context, projectID, stageName, message string) error {
	_, err := e.store.UpdateProject(ctx, projectID, func(p *domain.Project) error {
		p.Status = domain.ProjectStatusFailed
		p.ErrorInfo = domain.NewJSON(domain.ErrorInfo{Message: message, FailedStage: stageName, Kind: "stage_execution_error"})
		return nil
	})
	if err != nil {
		return fmt.Errorf("engine: mark project failed: %w", err)
	}
	return nil
}

func (e *Engine) completeProject(ctx context.Context, projectID string) error {
	_, err := e.store.UpdateProject(ctx, projectID, func(p *domain.Project) error {
		p.Status = domain.ProjectStatusCompleted
		p.Progress = 100
		p.CurrentStage = ""
		return nil
	})
	if err != nil {
		return fmt.Errorf("engine: mark project completed: %w", err)
	}
	return nil
}

// sliceFrom returns order sliced from name onward, or just [name] when
// toCompletion is false.
func sliceFrom(order []string, name string, toCompletion bool) ([]string, error) {
	for i, s := range order {
		if s == name {
			if !toCompletion {
				return []string{name}, nil
			}
			return append([]string(nil), order[i:]...), nil
		}
	}
	return nil, fmt.Errorf("engine: stage %q not in configured order", name)
}

func failedResult(stage, message string) *domain.ExecutionResult {
	return &domain.ExecutionResult{FinalStatus: domain.FinalStatusFailed, FailedStage: stage, Message: message}
}
