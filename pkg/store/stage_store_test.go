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

func seedStages(t *testing.T, s *store.Store, projectID string, names ...string) []*domain.Stage {
	t.Helper()
	stages := make([]*domain.Stage, 0, len(names))
	for i, name := range names {
		stages = append(stages, &domain.Stage{
			ProjectID:   projectID,
			StageName:   name,
			StageNumber: i + 1,
			DisplayName: name,
			Status:      domain.StageStatusPending,
		})
	}
	require.NoError(t, s.SeedStages(context.Background(), stages))
	return stages
}

func TestStore_SeedAndListStages_Ordered(t *testing.T) {
	s := store.New(testdb.New(t))
	projectID := uuid.NewString()
	seedStages(t, s, projectID, "plan", "implement", "review")

	got, err := s.ListStages(context.Background(), projectID)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "plan", got[0].StageName)
	assert.Equal(t, "implement", got[1].StageName)
	assert.Equal(t, "review", got[2].StageName)
}

func TestStore_GetStage_NotFound(t *testing.T) {
	s := store.New(testdb.New(t))
	_, err := s.GetStage(context.Background(), uuid.NewString(), "plan")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStore_UpdateStage_Succeeds(t *testing.T) {
	s := store.New(testdb.New(t))
	projectID := uuid.NewString()
	seedStages(t, s, projectID, "plan")

	updated, err := s.UpdateStage(context.Background(), projectID, "plan", func(st *domain.Stage) error {
		st.Status = domain.StageStatusCompleted
		st.AgentOutputContent = "done"
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StageStatusCompleted, updated.Status)
	assert.Equal(t, 1, updated.Version)
}

func TestStore_UpdateStage_StaleVersionConflicts(t *testing.T) {
	s := store.New(testdb.New(t))
	projectID := uuid.NewString()
	seedStages(t, s, projectID, "plan")

	result := s.DB().Model(&domain.Stage{}).
		Where("project_id = ? AND stage_name = ? AND version = ?", projectID, "plan", 5).
		Updates(map[string]any{"status": domain.StageStatusCompleted})
	require.NoError(t, result.Error)
	assert.Equal(t, int64(0), result.RowsAffected)
}

func TestStore_ResetStagesFromIndex(t *testing.T) {
	s := store.New(testdb.New(t))
	projectID := uuid.NewString()
	seedStages(t, s, projectID, "plan", "implement", "review")

	for _, name := range []string{"plan", "implement", "review"} {
		_, err := s.UpdateStage(context.Background(), projectID, name, func(st *domain.Stage) error {
			st.Status = domain.StageStatusCompleted
			st.AgentOutputContent = "content for " + name
			return nil
		})
		require.NoError(t, err)
	}

	require.NoError(t, s.ResetStagesFromIndex(context.Background(), projectID, 1))

	stages, err := s.ListStages(context.Background(), projectID)
	require.NoError(t, err)
	require.Len(t, stages, 3)

	assert.Equal(t, domain.StageStatusCompleted, stages[0].Status, "stage before fromIndex stays untouched")
	assert.Equal(t, domain.StageStatusPending, stages[1].Status)
	assert.Empty(t, stages[1].AgentOutputContent)
	assert.Equal(t, domain.StageStatusPending, stages[2].Status)
	assert.Empty(t, stages[2].AgentOutputContent)
}
