// Package store implements the record-store and work-queue leaf components
// over a single shared PostgreSQL database via gorm, generalizing the
// teacher's ent-backed session store into conditional-update CRUD over
// Project/Stage/Task/Agent and a SELECT ... FOR UPDATE SKIP LOCKED lease
// queue sharing the same tables.
package store

import (
	"fmt"

	"github.com/nexusforge/buildengine/pkg/domain"
	"gorm.io/gorm"
)

// Store wraps a gorm database handle and exposes the record-store and
// work-queue operations the Workflow Engine, Worker, and Deployment Service
// depend on.
type Store struct {
	db *gorm.DB
}

// New wraps an already-connected gorm database handle.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Migrate creates/updates the schema for all record-store tables. Intended
// for local development and tests; production deployments are expected to
// run migrations out of band.
func (s *Store) Migrate() error {
	if err := s.db.AutoMigrate(&domain.Project{}, &domain.Stage{}, &domain.Task{}, &domain.Agent{}); err != nil {
		return fmt.Errorf("store: migrate: %w", err)
	}
	return nil
}

// DB exposes the underlying handle for callers (tests, the deployment
// service) that need to compose additional transactions.
func (s *Store) DB() *gorm.DB {
	return s.db
}
