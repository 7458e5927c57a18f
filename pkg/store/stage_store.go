package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/nexusforge/buildengine/pkg/domain"
	"gorm.io/gorm"
)

// SeedStages inserts the pre-seeded pending Stage rows for a newly created
// Project, in configured order.
func (s *Store) SeedStages(ctx context.Context, stages []*domain.Stage) error {
	if len(stages) == 0 {
		return nil
	}
	if err := s.db.WithContext(ctx).Create(&stages).Error; err != nil {
		return fmt.Errorf("store: seed stages: %w", err)
	}
	return nil
}

// GetStage loads a single Stage by (project_id, stage_name).
func (s *Store) GetStage(ctx context.Context, projectID, stageName string) (*domain.Stage, error) {
	var st domain.Stage
	err := s.db.WithContext(ctx).
		First(&st, "project_id = ? AND stage_name = ?", projectID, stageName).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get stage: %w", err)
	}
	return &st, nil
}

// ListStages returns every Stage for a project, ordered by stage_number.
func (s *Store) ListStages(ctx context.Context, projectID string) ([]*domain.Stage, error) {
	var stages []*domain.Stage
	err := s.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("stage_number ASC").
		Find(&stages).Error
	if err != nil {
		return nil, fmt.Errorf("store: list stages: %w", err)
	}
	return stages, nil
}

// UpdateStage applies an optimistic conditional update to a single Stage row.
func (s *Store) UpdateStage(ctx context.Context, projectID, stageName string, mutate func(*domain.Stage) error) (*domain.Stage, error) {
	st, err := s.GetStage(ctx, projectID, stageName)
	if err != nil {
		return nil, err
	}

	currentVersion := st.Version
	if err := mutate(st); err != nil {
		return nil, err
	}
	st.Version = currentVersion + 1

	result := s.db.WithContext(ctx).
		Model(&domain.Stage{}).
		Where("project_id = ? AND stage_name = ? AND version = ?", projectID, stageName, currentVersion).
		Select("*").
		Updates(st)
	if result.Error != nil {
		return nil, fmt.Errorf("store: update stage: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, domain.ErrVersionConflict
	}
	return st, nil
}

// ResetStagesFromIndex clears stages at configured index >= fromIndex back
// to pending with nulled outputs/metrics, for the restart-from-middle-stage
// operation (§3: Stage lifecycle, "cleared on restart-from-stage").
func (s *Store) ResetStagesFromIndex(ctx context.Context, projectID string, fromIndex int) error {
	result := s.db.WithContext(ctx).
		Model(&domain.Stage{}).
		Where("project_id = ? AND stage_number >= ?", projectID, fromIndex+1).
		Updates(map[string]any{
			"status":               domain.StageStatusPending,
			"started_at":           nil,
			"completed_at":         nil,
			"duration_seconds":     0,
			"metrics":              "{}",
			"agent_output_content": "",
			"agent_output_s3_ref":  "",
			"design_document":      "{}",
			"generated_files":      "[]",
			"error_message":        "",
		})
	if result.Error != nil {
		return fmt.Errorf("store: reset stages: %w", result.Error)
	}
	return nil
}
