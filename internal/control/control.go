// Package control implements the control surface named in SPEC_FULL.md §6:
// pause/resume/stop/restart/status operate on a Project's control_status and
// (for restart) its Stage rows, then enqueue a new Task so a Worker picks
// the change up on its next lease — the Workflow Engine itself only ever
// reads control_status, never writes it (§3's ownership rule).
package control

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nexusforge/buildengine/pkg/config"
	"github.com/nexusforge/buildengine/pkg/domain"
)

// recordStore is the narrow store surface the control surface needs.
type recordStore interface {
	GetProject(ctx context.Context, projectID string) (*domain.Project, error)
	SetControlStatus(ctx context.Context, projectID string, status domain.ControlStatus, touch func(*domain.Project)) error
	UpdateProject(ctx context.Context, projectID string, mutate func(*domain.Project) error) (*domain.Project, error)
	ListStages(ctx context.Context, projectID string) ([]*domain.Stage, error)
	ResetStagesFromIndex(ctx context.Context, projectID string, fromIndex int) error
	EnqueueTask(ctx context.Context, t *domain.Task) error
}

// catalog resolves a workflow type's configured stage chain, needed to
// validate a restart's target stage and locate its index.
type catalog interface {
	Get(workflowType string) (*config.WorkflowCatalogConfig, error)
}

// Surface implements the pause/resume/stop/restart/status control
// operations over a record store.
type Surface struct {
	store   recordStore
	catalog catalog
	now     func() time.Time
}

// New returns a control Surface. now defaults to time.Now; tests may
// override it for deterministic *_requested_at assertions.
func New(store recordStore, catalog catalog) *Surface {
	return &Surface{store: store, catalog: catalog, now: time.Now}
}

// ErrInvalidTransition is returned when a control operation is requested
// against a Project status that cannot accept it.
var ErrInvalidTransition = fmt.Errorf("control: invalid status transition")

// Pause requests a pause. Valid only while the project is actively running
// (pending, queued, or building) — a project already paused or in a
// terminal state cannot be paused again.
func (s *Surface) Pause(ctx context.Context, projectID string) error {
	p, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return err
	}
	if p.Status.IsTerminal() || p.Status == domain.ProjectStatusPaused {
		return fmt.Errorf("%w: project %s is %s", ErrInvalidTransition, projectID, p.Status)
	}
	now := s.now()
	return s.store.SetControlStatus(ctx, projectID, domain.ControlStatusPaused, func(p *domain.Project) {
		p.PauseRequestedAt = &now
	})
}

// Resume requests a resume, optionally overriding resume_from_stage, and
// enqueues a new Task so a Worker continues the chain. Valid only from
// paused.
func (s *Surface) Resume(ctx context.Context, projectID, fromStage string) error {
	p, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return err
	}
	if p.Status != domain.ProjectStatusPaused {
		return fmt.Errorf("%w: project %s is %s, not paused", ErrInvalidTransition, projectID, p.Status)
	}

	if err := s.store.SetControlStatus(ctx, projectID, domain.ControlStatusRunning, func(p *domain.Project) {
		if fromStage != "" {
			p.ResumeFromStage = fromStage
		}
		p.Status = domain.ProjectStatusQueued
	}); err != nil {
		return err
	}

	return s.enqueueContinuation(ctx, p, domain.TaskActionResume, "", true)
}

// Stop requests a stop. Observed the same three suspension points as pause;
// the Engine marks the project cancelled once it persists. Valid from any
// non-terminal status.
func (s *Surface) Stop(ctx context.Context, projectID string) error {
	p, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return err
	}
	if p.Status.IsTerminal() {
		return fmt.Errorf("%w: project %s is already %s", ErrInvalidTransition, projectID, p.Status)
	}
	now := s.now()
	return s.store.SetControlStatus(ctx, projectID, domain.ControlStatusStopped, func(p *domain.Project) {
		p.StopRequestedAt = &now
	})
}

// Restart clears fromStage and every configured stage after it back to
// pending, unconditionally sets resume_from_stage to fromStage (distinct
// from Resume, which leaves it for the Engine's own first-incomplete-stage
// fallback — see DESIGN.md's Open Questions), and enqueues a new Task.
func (s *Surface) Restart(ctx context.Context, projectID, fromStage string) error {
	p, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return err
	}

	wf, err := s.catalog.Get(string(p.WorkflowType))
	if err != nil {
		return err
	}
	idx := -1
	for i, st := range wf.Stages {
		if st.Name == fromStage {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("control: restart: stage %q not in configured order for %s", fromStage, p.WorkflowType)
	}

	if err := s.store.ResetStagesFromIndex(ctx, projectID, idx); err != nil {
		return err
	}

	if err := s.store.SetControlStatus(ctx, projectID, domain.ControlStatusRunning, func(p *domain.Project) {
		p.ResumeFromStage = fromStage
		p.Status = domain.ProjectStatusQueued
		p.ErrorInfo = domain.JSON[domain.ErrorInfo]{}
	}); err != nil {
		return err
	}

	return s.enqueueContinuation(ctx, p, domain.TaskActionRestart, fromStage, true)
}

// Cancel is an unconditional stop reachable from any non-terminal status,
// named separately per §5's control-signal table ("cancel... any...
// project status=cancelled, no further Tasks honored"). Unlike Stop, it
// writes the terminal project status immediately rather than waiting for
// the Engine to observe the signal, since a cancelled project accepts no
// further Tasks at all.
func (s *Surface) Cancel(ctx context.Context, projectID string) error {
	p, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return err
	}
	if p.Status.IsTerminal() {
		return fmt.Errorf("%w: project %s is already %s", ErrInvalidTransition, projectID, p.Status)
	}
	return s.store.SetControlStatus(ctx, projectID, domain.ControlStatusCancelled, func(p *domain.Project) {
		p.Status = domain.ProjectStatusCancelled
	})
}

// Status is the derived view GET /workflow/{project_id}/status returns.
type Status struct {
	Project *domain.Project
	Stages  []*domain.Stage
}

// GetStatus loads the Project and its Stage rows.
func (s *Surface) GetStatus(ctx context.Context, projectID string) (*Status, error) {
	p, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	stages, err := s.store.ListStages(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return &Status{Project: p, Stages: stages}, nil
}

// enqueueContinuation writes a new pending Task for the Worker to lease,
// per §5's "Control operations... enqueue a new Task after writing control
// state; the new Task is only honored after the prior lease expires."
func (s *Surface) enqueueContinuation(ctx context.Context, p *domain.Project, action domain.TaskAction, targetStage string, toCompletion bool) error {
	return s.store.EnqueueTask(ctx, &domain.Task{
		ID:        uuid.NewString(),
		TaskType:  taskTypeFor(p.WorkflowType),
		ProjectID: p.ID,
		Priority:  p.Priority,
		Payload: domain.NewJSON(domain.TaskPayload{
			ProjectID:           p.ID,
			WorkflowType:        p.WorkflowType,
			Action:              action,
			TargetStage:         targetStage,
			ExecuteToCompletion: toCompletion,
		}),
	})
}

func taskTypeFor(wt domain.WorkflowType) domain.TaskType {
	switch wt {
	case domain.WorkflowTypeAgentUpdate:
		return domain.TaskTypeUpdateAgent
	case domain.WorkflowTypeToolBuild:
		return domain.TaskTypeBuildTool
	default:
		return domain.TaskTypeBuildAgent
	}
}
