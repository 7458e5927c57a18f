package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/nexusforge/buildengine/pkg/domain"
	"gorm.io/gorm"
)

// CreateProject inserts a new Project row at version 0.
func (s *Store) CreateProject(ctx context.Context, p *domain.Project) error {
	p.Version = 0
	if err := s.db.WithContext(ctx).Create(p).Error; err != nil {
		return fmt.Errorf("store: create project: %w", err)
	}
	return nil
}

// GetProject loads a Project by ID.
func (s *Store) GetProject(ctx context.Context, projectID string) (*domain.Project, error) {
	var p domain.Project
	err := s.db.WithContext(ctx).First(&p, "id = ?", projectID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get project: %w", err)
	}
	return &p, nil
}

// UpdateProject applies mutate to the current row and writes it back with an
// optimistic version check (WHERE id = ? AND version = ?), mirroring the
// conditional PutItem/UpdateItem pattern the original DynamoDB-backed
// implementation relied on. Returns domain.ErrVersionConflict if another
// writer updated the row first; callers that need to retry should reload
// and re-apply.
func (s *Store) UpdateProject(ctx context.Context, projectID string, mutate func(*domain.Project) error) (*domain.Project, error) {
	p, err := s.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	currentVersion := p.Version
	if err := mutate(p); err != nil {
		return nil, err
	}
	p.Version = currentVersion + 1

	result := s.db.WithContext(ctx).
		Model(&domain.Project{}).
		Where("id = ? AND version = ?", projectID, currentVersion).
		Select("*").
		Updates(p)
	if result.Error != nil {
		return nil, fmt.Errorf("store: update project: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, domain.ErrVersionConflict
	}
	return p, nil
}

// GetControlStatus reads only the control_status column — the cheap
// record-store read the Workflow Engine performs between stages and
// immediately before/after each LLM invocation (§4.1 suspension points).
func (s *Store) GetControlStatus(ctx context.Context, projectID string) (domain.ControlStatus, error) {
	var p domain.Project
	err := s.db.WithContext(ctx).Select("control_status").First(&p, "id = ?", projectID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", domain.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("store: get control status: %w", err)
	}
	return p.ControlStatus, nil
}

// SetControlStatus is the sole write path for control_status and the
// *_requested_at timestamps — writer-exclusive to the control surface, never
// written by the Engine.
func (s *Store) SetControlStatus(ctx context.Context, projectID string, status domain.ControlStatus, touch func(*domain.Project)) error {
	_, err := s.UpdateProject(ctx, projectID, func(p *domain.Project) error {
		p.ControlStatus = status
		if touch != nil {
			touch(p)
		}
		return nil
	})
	return err
}
