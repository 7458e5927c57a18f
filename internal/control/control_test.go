package control

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/nexusforge/buildengine/internal/testdb"
	"github.com/nexusforge/buildengine/pkg/config"
	"github.com/nexusforge/buildengine/pkg/domain"
	"github.com/nexusforge/buildengine/pkg/store"
	"github.com/stretchr/testify/require"
)

func testCatalog() *config.StageCatalogRegistry {
	return config.NewStageCatalogRegistry(map[string]*config.WorkflowCatalogConfig{
		"agent_build": {
			Stages: []config.StageConfig{
				{Name: "requirements_analysis", PromptTemplate: "t.tmpl", Agents: []config.StageAgentConfig{{Name: "a"}}},
				{Name: "agent_design", PromptTemplate: "t.tmpl", Agents: []config.StageAgentConfig{{Name: "a"}}},
			},
		},
	})
}

func seedProject(t *testing.T, s *store.Store, status domain.ProjectStatus) *domain.Project {
	t.Helper()
	p := &domain.Project{
		ID:            uuid.NewString(),
		ProjectName:   "demo",
		WorkflowType:  domain.WorkflowTypeAgentBuild,
		Status:        status,
		ControlStatus: domain.ControlStatusRunning,
	}
	require.NoError(t, s.CreateProject(context.Background(), p))
	require.NoError(t, s.SeedStages(context.Background(), []*domain.Stage{
		{ProjectID: p.ID, StageName: "requirements_analysis", StageNumber: 1, Status: domain.StageStatusCompleted},
		{ProjectID: p.ID, StageName: "agent_design", StageNumber: 2, Status: domain.StageStatusCompleted},
	}))
	return p
}

func newTestSurface(t *testing.T) (*Surface, *store.Store) {
	t.Helper()
	db := testdb.New(t)
	s := store.New(db)
	return New(s, testCatalog()), s
}

func TestSurface_Pause_SetsControlStatusAndRequestedAt(t *testing.T) {
	c, s := newTestSurface(t)
	p := seedProject(t, s, domain.ProjectStatusBuilding)

	require.NoError(t, c.Pause(context.Background(), p.ID))

	reloaded, err := s.GetProject(context.Background(), p.ID)
	require.NoError(t, err)
	require.Equal(t, domain.ControlStatusPaused, reloaded.ControlStatus)
	require.NotNil(t, reloaded.PauseRequestedAt)
}

func TestSurface_Pause_RejectsTerminalProject(t *testing.T) {
	c, s := newTestSurface(t)
	p := seedProject(t, s, domain.ProjectStatusCompleted)

	err := c.Pause(context.Background(), p.ID)

	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestSurface_Resume_RequiresPausedAndEnqueuesTask(t *testing.T) {
	c, s := newTestSurface(t)
	p := seedProject(t, s, domain.ProjectStatusPaused)

	require.NoError(t, c.Resume(context.Background(), p.ID, ""))

	reloaded, err := s.GetProject(context.Background(), p.ID)
	require.NoError(t, err)
	require.Equal(t, domain.ControlStatusRunning, reloaded.ControlStatus)

	task, err := s.ClaimNextTask(context.Background(), "worker-1", time.Minute)
	require.NoError(t, err)
	require.Equal(t, domain.TaskActionResume, task.Payload.Value.Action)
	require.True(t, task.Payload.Value.ExecuteToCompletion)
}

func TestSurface_Resume_RejectsNonPausedProject(t *testing.T) {
	c, s := newTestSurface(t)
	p := seedProject(t, s, domain.ProjectStatusBuilding)

	err := c.Resume(context.Background(), p.ID, "")

	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestSurface_Stop_SetsControlStatusStopped(t *testing.T) {
	c, s := newTestSurface(t)
	p := seedProject(t, s, domain.ProjectStatusBuilding)

	require.NoError(t, c.Stop(context.Background(), p.ID))

	reloaded, err := s.GetProject(context.Background(), p.ID)
	require.NoError(t, err)
	require.Equal(t, domain.ControlStatusStopped, reloaded.ControlStatus)
	require.NotNil(t, reloaded.StopRequestedAt)
}

func TestSurface_Restart_ClearsStagesFromIndexAndEnqueues(t *testing.T) {
	c, s := newTestSurface(t)
	p := seedProject(t, s, domain.ProjectStatusFailed)

	require.NoError(t, c.Restart(context.Background(), p.ID, "agent_design"))

	st, err := s.GetStage(context.Background(), p.ID, "agent_design")
	require.NoError(t, err)
	require.Equal(t, domain.StageStatusPending, st.Status)

	prior, err := s.GetStage(context.Background(), p.ID, "requirements_analysis")
	require.NoError(t, err)
	require.Equal(t, domain.StageStatusCompleted, prior.Status, "stages before the restart point are untouched")

	reloaded, err := s.GetProject(context.Background(), p.ID)
	require.NoError(t, err)
	require.Equal(t, "agent_design", reloaded.ResumeFromStage)
	require.Equal(t, domain.ControlStatusRunning, reloaded.ControlStatus)

	task, err := s.ClaimNextTask(context.Background(), "worker-1", time.Minute)
	require.NoError(t, err)
	require.Equal(t, domain.TaskActionRestart, task.Payload.Value.Action)
	require.Equal(t, "agent_design", task.Payload.Value.TargetStage)
}

func TestSurface_Restart_RejectsUnknownStage(t *testing.T) {
	c, s := newTestSurface(t)
	p := seedProject(t, s, domain.ProjectStatusFailed)

	err := c.Restart(context.Background(), p.ID, "does_not_exist")

	require.Error(t, err)
}

func TestSurface_Cancel_RejectsAlreadyTerminalProject(t *testing.T) {
	c, s := newTestSurface(t)
	p := seedProject(t, s, domain.ProjectStatusCancelled)

	err := c.Cancel(context.Background(), p.ID)

	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestSurface_GetStatus_ReturnsProjectAndStages(t *testing.T) {
	c, s := newTestSurface(t)
	p := seedProject(t, s, domain.ProjectStatusBuilding)

	status, err := c.GetStatus(context.Background(), p.ID)

	require.NoError(t, err)
	require.Equal(t, p.ID, status.Project.ID)
	require.Len(t, status.Stages, 2)
}
