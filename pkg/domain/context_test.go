package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestContext() *WorkflowContext {
	return NewWorkflowContext("proj-1", "test-project", "build a thing", WorkflowTypeAgentBuild,
		[]string{"requirements_analysis", "system_architecture", "agent_design"})
}

func TestWorkflowContext_PrerequisitesMet(t *testing.T) {
	ctx := newTestContext()

	met, missing, err := ctx.PrerequisitesMet("system_architecture")
	require.NoError(t, err)
	assert.False(t, met)
	assert.Equal(t, []string{"requirements_analysis"}, missing)

	require.NoError(t, ctx.SetStageOutput(&StageOutput{StageName: "requirements_analysis", Status: StageStatusCompleted}))

	met, missing, err = ctx.PrerequisitesMet("system_architecture")
	require.NoError(t, err)
	assert.True(t, met)
	assert.Empty(t, missing)
}

func TestWorkflowContext_SetStageOutput_SingleFoldsMetrics(t *testing.T) {
	ctx := newTestContext()

	out := &StageOutput{
		StageName: "requirements_analysis",
		Status:    StageStatusCompleted,
		Metrics:   Metrics{InputTokens: 100, OutputTokens: 50},
	}
	require.NoError(t, ctx.SetStageOutput(out))
	assert.Equal(t, int64(150), ctx.AggregatedMetrics.TotalTokens())

	// Re-running and re-completing the same stage must not double-count.
	require.NoError(t, ctx.SetStageOutput(out))
	assert.Equal(t, int64(150), ctx.AggregatedMetrics.TotalTokens())
}

func TestWorkflowContext_GetCompletedStages_ConfiguredOrder(t *testing.T) {
	ctx := newTestContext()

	require.NoError(t, ctx.SetStageOutput(&StageOutput{StageName: "system_architecture", Status: StageStatusCompleted}))
	require.NoError(t, ctx.SetStageOutput(&StageOutput{StageName: "requirements_analysis", Status: StageStatusCompleted}))

	assert.Equal(t, []string{"requirements_analysis", "system_architecture"}, ctx.GetCompletedStages())
}

func TestWorkflowContext_PrerequisitesOf_UnknownStage(t *testing.T) {
	ctx := newTestContext()
	_, err := ctx.PrerequisitesOf("does-not-exist")
	require.Error(t, err)
}

func TestIsOversize(t *testing.T) {
	small := make([]byte, OversizeThresholdBytes)
	large := make([]byte, OversizeThresholdBytes+1)
	assert.False(t, IsOversize(string(small)))
	assert.True(t, IsOversize(string(large)))
}
