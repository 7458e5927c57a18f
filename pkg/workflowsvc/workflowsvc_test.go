package workflowsvc

import (
	"context"
	"testing"

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
				{Name: "requirements_analysis", DisplayName: "Requirements Analysis", PromptTemplate: "t.tmpl", Agents: []config.StageAgentConfig{{Name: "a"}}},
				{Name: "agent_design", DisplayName: "Agent Design", PromptTemplate: "t.tmpl", Agents: []config.StageAgentConfig{{Name: "a"}}},
			},
		},
		"agent_update": {
			Stages: []config.StageConfig{
				{Name: "requirements_analysis", PromptTemplate: "t.tmpl", Agents: []config.StageAgentConfig{{Name: "a"}}},
			},
		},
		"tool_build": {
			Stages: []config.StageConfig{
				{Name: "requirements_analysis", PromptTemplate: "t.tmpl", Agents: []config.StageAgentConfig{{Name: "a"}}},
			},
		},
	})
}

func newTestService(t *testing.T) (*Service, *store.Store) {
	t.Helper()
	db := testdb.New(t)
	s := store.New(db)
	return New(s, testCatalog()), s
}

func TestService_CreateAgentBuild_SeedsStagesAndEnqueuesTask(t *testing.T) {
	svc, s := newTestService(t)

	result, err := svc.CreateAgentBuild(context.Background(), BuildRequest{
		ProjectName: "demo-agent",
		Requirement: "build me an agent",
		Priority:    3,
		Tags:        []string{"a", "b"},
	})
	require.NoError(t, err)
	require.NotEmpty(t, result.ProjectID)
	require.NotEmpty(t, result.TaskID)
	require.Equal(t, domain.ProjectStatusQueued, result.Status)

	project, err := s.GetProject(context.Background(), result.ProjectID)
	require.NoError(t, err)
	require.Equal(t, domain.WorkflowTypeAgentBuild, project.WorkflowType)
	require.Equal(t, domain.ControlStatusRunning, project.ControlStatus)

	stages, err := s.ListStages(context.Background(), result.ProjectID)
	require.NoError(t, err)
	require.Len(t, stages, 2)
	require.Equal(t, "requirements_analysis", stages[0].StageName)
	require.Equal(t, 1, stages[0].StageNumber)
	require.Equal(t, domain.StageStatusPending, stages[0].Status)

	task, err := s.ClaimNextTask(context.Background(), "worker-1", 0)
	require.NoError(t, err)
	require.Equal(t, domain.TaskTypeBuildAgent, task.TaskType)
	require.True(t, task.Payload.Value.ExecuteToCompletion)
	require.Equal(t, domain.TaskActionExecute, task.Payload.Value.Action)
}

func TestService_CreateAgentUpdate_CarriesAgentIDInMetadata(t *testing.T) {
	svc, s := newTestService(t)

	result, err := svc.CreateAgentUpdate(context.Background(), "agent-123", "add a new tool", 2)
	require.NoError(t, err)

	project, err := s.GetProject(context.Background(), result.ProjectID)
	require.NoError(t, err)
	require.Equal(t, domain.WorkflowTypeAgentUpdate, project.WorkflowType)

	task, err := s.ClaimNextTask(context.Background(), "worker-1", 0)
	require.NoError(t, err)
	require.Equal(t, domain.TaskTypeUpdateAgent, task.TaskType)
	require.Equal(t, "agent-123", task.Payload.Value.Metadata["agent_id"])
}

func TestService_CreateToolBuild_UsesToolBuildCatalog(t *testing.T) {
	svc, _ := newTestService(t)

	result, err := svc.CreateToolBuild(context.Background(), BuildRequest{
		Requirement: "a tool that does X",
		Priority:    1,
		Metadata:    map[string]string{"tool_name": "x-tool"},
	})
	require.NoError(t, err)
	require.Equal(t, domain.ProjectStatusQueued, result.Status)
}

func TestService_Create_RejectsUnknownWorkflowType(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.create(context.Background(), BuildRequest{WorkflowType: domain.WorkflowType("bogus")})

	require.Error(t, err)
}
