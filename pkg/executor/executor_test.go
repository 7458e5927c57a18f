package executor

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nexusforge/buildengine/pkg/blob"
	"github.com/nexusforge/buildengine/pkg/config"
	"github.com/nexusforge/buildengine/pkg/domain"
	"github.com/nexusforge/buildengine/pkg/llmclient"
	"github.com/nexusforge/buildengine/pkg/workflowctx"
)

type fakeScanner struct {
	files []blob.FileMetadata
	err   error
}

func (f *fakeScanner) ScanProjectFiles(string) ([]blob.FileMetadata, error) {
	return f.files, f.err
}

func testCatalog() *config.StageCatalogRegistry {
	return config.NewStageCatalogRegistry(map[string]*config.WorkflowCatalogConfig{
		"agent_build": {
			Stages: []config.StageConfig{
				{Name: "requirements_analysis", PromptTemplate: "requirements_analysis.tmpl", Agents: []config.StageAgentConfig{{Name: "analyst"}}},
				{Name: "system_architecture", PromptTemplate: "system_architecture.tmpl", Agents: []config.StageAgentConfig{{Name: "architect"}}},
			},
		},
	})
}

func TestExecutor_ExecuteStage_Completed(t *testing.T) {
	invoker := llmclient.NewFakeInvoker(&llmclient.InvokeResult{
		Text: "# Requirements\nbuild a CLI", InputTokens: 10, OutputTokens: 20, ModelID: "test-model",
	})
	scanner := &fakeScanner{files: []blob.FileMetadata{{Path: "main.go", Size: 100, Checksum: "abc"}}}
	ex := New(invoker, testCatalog(), workflowctx.NewAssembler(), scanner)

	wc := domain.NewWorkflowContext("p1", "demo", "build a thing", domain.WorkflowTypeAgentBuild,
		[]string{"requirements_analysis", "system_architecture"})

	out, err := ex.ExecuteStage(context.Background(), wc, Request{
		WorkflowType: domain.WorkflowTypeAgentBuild,
		ProjectID:    "p1",
		ProjectName:  "demo",
		StageName:    "requirements_analysis",
	})
	require.NoError(t, err)
	require.Equal(t, domain.StageStatusCompleted, out.Status)
	require.Equal(t, "markdown", out.DocumentFormat)
	require.Len(t, out.GeneratedFiles, 1)
	require.Equal(t, "main.go", out.GeneratedFiles[0].Path)
	require.Equal(t, int64(10), out.Metrics.InputTokens)
	require.Equal(t, int64(20), out.Metrics.OutputTokens)

	require.Len(t, invoker.Calls, 1)
	require.Equal(t, "requirements_analysis.tmpl", invoker.Calls[0].PromptTemplateName)
	require.Equal(t, "p1", invoker.Calls[0].State["project_id"])
	require.Equal(t, "demo", invoker.Calls[0].State["project_name"])
}

func TestExecutor_ExecuteStage_UnknownStageErrors(t *testing.T) {
	ex := New(llmclient.NewFakeInvoker(&llmclient.InvokeResult{}), testCatalog(), workflowctx.NewAssembler(), nil)
	wc := domain.NewWorkflowContext("p1", "demo", "req", domain.WorkflowTypeAgentBuild, []string{"requirements_analysis"})

	_, err := ex.ExecuteStage(context.Background(), wc, Request{
		WorkflowType: domain.WorkflowTypeAgentBuild,
		StageName:    "does-not-exist",
	})
	require.Error(t, err)
}

func TestExecutor_ExecuteStage_LLMFailureReturnsRecoverableError(t *testing.T) {
	invoker := &llmclient.FakeInvoker{Err: errors.New("upstream timeout")}
	ex := New(invoker, testCatalog(), workflowctx.NewAssembler(), nil)
	wc := domain.NewWorkflowContext("p1", "demo", "req", domain.WorkflowTypeAgentBuild, []string{"requirements_analysis"})

	out, err := ex.ExecuteStage(context.Background(), wc, Request{
		WorkflowType: domain.WorkflowTypeAgentBuild,
		StageName:    "requirements_analysis",
	})
	require.Error(t, err)

	var stageErr *domain.StageExecutionError
	require.True(t, errors.As(err, &stageErr))
	require.True(t, stageErr.Recoverable)
	require.Equal(t, domain.StageStatusFailed, out.Status)
	require.Equal(t, "upstream timeout", out.ErrorMessage)
}

func TestExecutor_ExecuteStage_SystemArchitectureExtractsJSONBlock(t *testing.T) {
	text := "intro\n```json\n{\"agents\":[{\"name\":\"a\"}]}\n```\ntrailer"
	invoker := llmclient.NewFakeInvoker(&llmclient.InvokeResult{Text: text})
	ex := New(invoker, testCatalog(), workflowctx.NewAssembler(), nil)

	wc := domain.NewWorkflowContext("p1", "demo", "req", domain.WorkflowTypeAgentBuild,
		[]string{"requirements_analysis", "system_architecture"})
	require.NoError(t, wc.SetStageOutput(&domain.StageOutput{
		StageName: "requirements_analysis", Status: domain.StageStatusCompleted, Content: "done",
	}))

	out, err := ex.ExecuteStage(context.Background(), wc, Request{
		WorkflowType: domain.WorkflowTypeAgentBuild,
		StageName:    "system_architecture",
	})
	require.NoError(t, err)
	require.Equal(t, "json", out.DocumentFormat)
	require.JSONEq(t, `{"agents":[{"name":"a"}]}`, out.DocumentContent)
}

func TestExecutor_ExecuteSingleAgent_UsesProvidedContext(t *testing.T) {
	invoker := llmclient.NewFakeInvoker(&llmclient.InvokeResult{Text: "out"})
	ex := New(invoker, testCatalog(), workflowctx.NewAssembler(), nil)

	out, err := ex.ExecuteSingleAgent(context.Background(), domain.WorkflowTypeAgentBuild,
		"requirements_analysis", "p1", "demo", "pre-built context", map[string]string{"current_agent": "a"})
	require.NoError(t, err)
	require.Equal(t, domain.StageStatusCompleted, out.Status)
	require.Equal(t, "pre-built context", invoker.Calls[0].Context)
	require.Equal(t, "a", invoker.Calls[0].State["current_agent"])
}
