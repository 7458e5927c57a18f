// Package workflowsvc implements the factory half of the external HTTP
// interface named in SPEC_FULL.md §6: POST /projects, POST
// /workflows/agent-update, and POST /workflows/tool-build all reduce to the
// same sequence — create a Project (status pending), seed its Stage rows in
// configured order, create and enqueue a Task (left pending so a Worker can
// claim it), then flip the Project to queued.
package workflowsvc

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/nexusforge/buildengine/pkg/config"
	"github.com/nexusforge/buildengine/pkg/domain"
)

// recordStore is the narrow store surface the factory service needs.
type recordStore interface {
	CreateProject(ctx context.Context, p *domain.Project) error
	SeedStages(ctx context.Context, stages []*domain.Stage) error
	EnqueueTask(ctx context.Context, t *domain.Task) error
	UpdateProject(ctx context.Context, projectID string, mutate func(*domain.Project) error) (*domain.Project, error)
}

// catalog resolves a workflow type's configured stage chain to seed Stage
// rows from.
type catalog interface {
	Get(workflowType string) (*config.WorkflowCatalogConfig, error)
}

// Service creates Projects and their initial Stage/Task rows.
type Service struct {
	store   recordStore
	catalog catalog
}

// New returns a factory Service.
func New(store recordStore, catalog catalog) *Service {
	return &Service{store: store, catalog: catalog}
}

// BuildRequest is the common shape behind all three creation routes —
// POST /projects supplies Requirement/ProjectName/UserID/Priority/Tags,
// POST /workflows/agent-update supplies AgentID/Requirement, POST
// /workflows/tool-build supplies Requirement plus Metadata
// (tool_name/category/target_agent).
type BuildRequest struct {
	WorkflowType domain.WorkflowType
	ProjectName  string
	Requirement  string
	UserID       string
	Priority     int
	Tags         []string
	Metadata     map[string]string
}

// Result is what the HTTP shell echoes back to the caller.
type Result struct {
	ProjectID   string
	TaskID      string
	ProjectName string
	Status      domain.ProjectStatus
}

// CreateAgentBuild handles POST /projects.
func (s *Service) CreateAgentBuild(ctx context.Context, req BuildRequest) (*Result, error) {
	req.WorkflowType = domain.WorkflowTypeAgentBuild
	return s.create(ctx, req)
}

// CreateAgentUpdate handles POST /workflows/agent-update. agentID is carried
// in Metadata["agent_id"] so the update_agent Task's handler can resolve the
// existing Agent record without a dedicated Task field.
func (s *Service) CreateAgentUpdate(ctx context.Context, agentID, updateRequirement string, priority int) (*Result, error) {
	req := BuildRequest{
		WorkflowType: domain.WorkflowTypeAgentUpdate,
		Requirement:  updateRequirement,
		Priority:     priority,
		Metadata:     map[string]string{"agent_id": agentID},
	}
	return s.create(ctx, req)
}

// CreateToolBuild handles POST /workflows/tool-build.
func (s *Service) CreateToolBuild(ctx context.Context, req BuildRequest) (*Result, error) {
	req.WorkflowType = domain.WorkflowTypeToolBuild
	return s.create(ctx, req)
}

func (s *Service) create(ctx context.Context, req BuildRequest) (*Result, error) {
	if !req.WorkflowType.IsValid() {
		return nil, fmt.Errorf("workflowsvc: unknown workflow type %q", req.WorkflowType)
	}
	wf, err := s.catalog.Get(string(req.WorkflowType))
	if err != nil {
		return nil, fmt.Errorf("workflowsvc: %w", err)
	}

	projectID := uuid.NewString()
	project := &domain.Project{
		ID:            projectID,
		ProjectName:   req.ProjectName,
		WorkflowType:  req.WorkflowType,
		Requirement:   req.Requirement,
		Priority:      req.Priority,
		Tags:          domain.JSONStrings(req.Tags),
		UserID:        req.UserID,
		Status:        domain.ProjectStatusPending,
		ControlStatus: domain.ControlStatusRunning,
		Metadata:      domain.NewJSON(req.Metadata),
	}
	if err := s.store.CreateProject(ctx, project); err != nil {
		return nil, fmt.Errorf("workflowsvc: create project: %w", err)
	}

	stages := make([]*domain.Stage, len(wf.Stages))
	for i, sc := range wf.Stages {
		stages[i] = &domain.Stage{
			ProjectID:   projectID,
			StageName:   sc.Name,
			StageNumber: i + 1,
			DisplayName: sc.DisplayName,
			Status:      domain.StageStatusPending,
		}
	}
	if err := s.store.SeedStages(ctx, stages); err != nil {
		return nil, fmt.Errorf("workflowsvc: seed stages: %w", err)
	}

	task := &domain.Task{
		ID:        uuid.NewString(),
		TaskType:  taskTypeFor(req.WorkflowType),
		ProjectID: projectID,
		Priority:  req.Priority,
		Payload: domain.NewJSON(domain.TaskPayload{
			ProjectID:           projectID,
			WorkflowType:        req.WorkflowType,
			Requirement:         req.Requirement,
			UserID:              req.UserID,
			Priority:            req.Priority,
			Action:              domain.TaskActionExecute,
			ExecuteToCompletion: true,
			Metadata:            req.Metadata,
		}),
	}
	if err := s.store.EnqueueTask(ctx, task); err != nil {
		return nil, fmt.Errorf("workflowsvc: enqueue task: %w", err)
	}

	updated, err := s.store.UpdateProject(ctx, projectID, func(p *domain.Project) error {
		p.Status = domain.ProjectStatusQueued
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("workflowsvc: flip project to queued: %w", err)
	}

	return &Result{
		ProjectID:   projectID,
		TaskID:      task.ID,
		ProjectName: updated.ProjectName,
		Status:      updated.Status,
	}, nil
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
