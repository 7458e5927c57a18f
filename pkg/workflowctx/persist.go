package workflowctx

import (
	"context"
	"fmt"

	"github.com/nexusforge/buildengine/pkg/config"
	"github.com/nexusforge/buildengine/pkg/domain"
)

// recordStore is the narrow store surface persistence needs.
type recordStore interface {
	GetControlStatus(ctx context.Context, projectID string) (domain.ControlStatus, error)
	UpdateProject(ctx context.Context, projectID string, mutate func(*domain.Project) error) (*domain.Project, error)
	UpdateStage(ctx context.Context, projectID, stageName string, mutate func(*domain.Stage) error) (*domain.Stage, error)
}

// contentOffloader stashes oversize stage content in the blob store,
// returning a reference to persist in place of the inline content, and
// resolves that reference back to content on reload.
type contentOffloader interface {
	PutStageContent(ctx context.Context, projectID, stageName, content string) (string, error)
	GetStageContent(ctx context.Context, ref string) (string, error)
}

// Manager save_to_db's and load_from_db's a Workflow Context, grounded on
// §4.4's persistence rules.
type Manager struct {
	store recordStore
	blob  contentOffloader
}

// NewManager returns a Manager backed by store and, optionally, blob (nil
// disables oversize offload — content is always persisted inline instead).
func NewManager(store recordStore, blob contentOffloader) *Manager {
	return &Manager{store: store, blob: blob}
}

// SaveToDB refreshes control_status from the store before writing (so a
// user pause/stop request made mid-run is never clobbered), derives
// project.status from the context's stage status per §4.4's table, and
// writes the Project plus every Stage the context carries an output for.
func (m *Manager) SaveToDB(ctx context.Context, wc *domain.WorkflowContext) error {
	controlStatus, err := m.store.GetControlStatus(ctx, wc.ProjectID)
	if err != nil {
		return fmt.Errorf("workflowctx: save: refresh control status: %w", err)
	}
	wc.ControlStatus = controlStatus

	projectStatus := deriveProjectStatus(wc)

	_, err = m.store.UpdateProject(ctx, wc.ProjectID, func(p *domain.Project) error {
		p.Status = projectStatus
		p.ControlStatus = controlStatus
		p.CurrentStage = wc.CurrentStage
		p.AggregatedMetrics = domain.NewJSON(wc.AggregatedMetrics)
		return nil
	})
	if err != nil {
		return fmt.Errorf("workflowctx: save: update project: %w", err)
	}

	for stageName, out := range wc.StageOutputs {
		if err := m.saveStage(ctx, wc.ProjectID, stageName, out); err != nil {
			return err
		}
	}

	return nil
}

func (m *Manager) saveStage(ctx context.Context, projectID, stageName string, out *domain.StageOutput) error {
	canonical := config.NormalizeStageName(stageName)

	_, err := m.store.UpdateStage(ctx, projectID, canonical, func(st *domain.Stage) error {
		st.Status = out.Status
		st.Metrics = domain.NewJSON(out.Metrics)
		st.ErrorMessage = out.ErrorMessage

		content := out.Content
		if domain.IsOversize(content) && m.blob != nil {
			ref, err := m.blob.PutStageContent(ctx, projectID, canonical, content)
			if err != nil {
				return fmt.Errorf("offload oversize content: %w", err)
			}
			st.AgentOutputContent = ""
			st.AgentOutputS3Ref = ref
		} else {
			st.AgentOutputContent = content
			st.AgentOutputS3Ref = ""
		}

		if out.DocumentContent != "" {
			st.DesignDocument = domain.NewJSON(domain.DesignDocument{
				Content: out.DocumentContent,
				Format:  out.DocumentFormat,
			})
		}
		st.GeneratedFiles = domain.NewJSON(out.GeneratedFiles)
		return nil
	})
	if err != nil {
		return fmt.Errorf("workflowctx: save stage %s: %w", stageName, err)
	}
	return nil
}

// LoadFromDB reconstructs a Workflow Context aggregate from persisted
// Project/Stage rows — used when a Worker resumes a project it suspects
// another pod started (§4.1's resumption glue). AggregatedMetrics is
// intentionally not seeded from project.AggregatedMetrics: it's rebuilt
// from scratch as each stage's output is folded in below, so a reload
// never double-counts an already-persisted sum.
func (m *Manager) LoadFromDB(ctx context.Context, listStages func(ctx context.Context, projectID string) ([]*domain.Stage, error), project *domain.Project) (*domain.WorkflowContext, error) {
	wc := domain.NewWorkflowContext(project.ID, project.ProjectName, project.Requirement, project.WorkflowType, nil)
	wc.Status = project.Status
	wc.ControlStatus = project.ControlStatus
	wc.CurrentStage = project.CurrentStage

	stages, err := listStages(ctx, project.ID)
	if err != nil {
		return nil, fmt.Errorf("workflowctx: load: list stages: %w", err)
	}

	for _, s := range stages {
		wc.StageOrder = append(wc.StageOrder, s.StageName)

		content := s.AgentOutputContent
		if s.AgentOutputS3Ref != "" && m.blob != nil {
			content, err = m.blob.GetStageContent(ctx, s.AgentOutputS3Ref)
			if err != nil {
				return nil, fmt.Errorf("workflowctx: load: resolve offloaded content for stage %s: %w", s.StageName, err)
			}
		}

		out := &domain.StageOutput{
			StageName: s.StageName,
			Status:    s.Status,
			Content:   content,
			Metrics:   s.Metrics.Value,
		}
		doc := s.DesignDocument.Value
		out.DocumentContent = doc.Content
		out.DocumentFormat = doc.Format
		out.GeneratedFiles = s.GeneratedFiles.Value
		out.ErrorMessage = s.ErrorMessage
		if err := wc.SetStageOutput(out); err != nil {
			return nil, fmt.Errorf("workflowctx: load: set stage output %s: %w", s.StageName, err)
		}
	}

	return wc, nil
}

// deriveProjectStatus applies §4.4's context.status/control_status ->
// project.status derivation table.
func deriveProjectStatus(wc *domain.WorkflowContext) domain.ProjectStatus {
	switch wc.ControlStatus {
	case domain.ControlStatusPaused:
		return domain.ProjectStatusPaused
	case domain.ControlStatusStopped, domain.ControlStatusCancelled:
		return domain.ProjectStatusCancelled
	}

	switch wc.Status {
	case domain.ProjectStatusCompleted:
		return domain.ProjectStatusCompleted
	case domain.ProjectStatusFailed:
		return domain.ProjectStatusFailed
	case domain.ProjectStatusPending:
		if wc.CurrentStage == "" {
			return domain.ProjectStatusPending
		}
		return domain.ProjectStatusBuilding
	default:
		return domain.ProjectStatusBuilding
	}
}
