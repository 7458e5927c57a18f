package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/nexusforge/buildengine/pkg/domain"
	"gorm.io/gorm"
)

// UpsertAgent creates or fully replaces an Agent record, used by the
// Deployment Service after each deploy attempt.
func (s *Store) UpsertAgent(ctx context.Context, a *domain.Agent) error {
	err := s.db.WithContext(ctx).Save(a).Error
	if err != nil {
		return fmt.Errorf("store: upsert agent: %w", err)
	}
	return nil
}

// GetAgent loads an Agent by ID.
func (s *Store) GetAgent(ctx context.Context, agentID string) (*domain.Agent, error) {
	var a domain.Agent
	err := s.db.WithContext(ctx).First(&a, "id = ?", agentID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get agent: %w", err)
	}
	return &a, nil
}

// GetAgentBySourceProject loads the Agent deployed from a given project, if any.
func (s *Store) GetAgentBySourceProject(ctx context.Context, projectID string) (*domain.Agent, error) {
	var a domain.Agent
	err := s.db.WithContext(ctx).First(&a, "source_project = ?", projectID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get agent by source project: %w", err)
	}
	return &a, nil
}
