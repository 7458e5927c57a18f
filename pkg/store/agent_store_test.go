package store_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/nexusforge/buildengine/internal/testdb"
	"github.com/nexusforge/buildengine/pkg/domain"
	"github.com/nexusforge/buildengine/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_UpsertAndGetAgent(t *testing.T) {
	s := store.New(testdb.New(t))
	ctx := context.Background()
	projectID := uuid.NewString()

	a := &domain.Agent{
		ID:               uuid.NewString(),
		SourceProject:    projectID,
		Name:             "pricing-agent",
		RuntimeHandle:    domain.NewJSON(domain.RuntimeHandle{RuntimeID: "rt-1"}),
		Capabilities:     domain.JSONStrings{"pricing", "quoting"},
		DeploymentStatus: domain.AgentDeploymentStatusRunning,
	}
	require.NoError(t, s.UpsertAgent(ctx, a))

	got, err := s.GetAgent(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "pricing-agent", got.Name)
	assert.Equal(t, "rt-1", got.RuntimeHandle.Value.RuntimeID)
	assert.Equal(t, domain.JSONStrings{"pricing", "quoting"}, got.Capabilities)

	bySource, err := s.GetAgentBySourceProject(ctx, projectID)
	require.NoError(t, err)
	assert.Equal(t, a.ID, bySource.ID)
}

func TestStore_UpsertAgent_Overwrites(t *testing.T) {
	s := store.New(testdb.New(t))
	ctx := context.Background()

	a := &domain.Agent{
		ID:               uuid.NewString(),
		SourceProject:    uuid.NewString(),
		Name:             "v1",
		DeploymentStatus: domain.AgentDeploymentStatusOffline,
	}
	require.NoError(t, s.UpsertAgent(ctx, a))

	a.Name = "v2"
	a.DeploymentStatus = domain.AgentDeploymentStatusRunning
	require.NoError(t, s.UpsertAgent(ctx, a))

	got, err := s.GetAgent(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "v2", got.Name)
	assert.Equal(t, domain.AgentDeploymentStatusRunning, got.DeploymentStatus)
}

func TestStore_GetAgent_NotFound(t *testing.T) {
	s := store.New(testdb.New(t))
	_, err := s.GetAgent(context.Background(), "missing")
	require.ErrorIs(t, err, domain.ErrNotFound)
}
