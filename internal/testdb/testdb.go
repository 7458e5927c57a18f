// Package testdb provides an in-memory SQLite database for store and queue
// unit tests, swapped to gorm's sqlite driver so tests run without a Docker
// dependency. Postgres-specific behavior (FOR UPDATE SKIP LOCKED semantics
// under real contention) is not covered by these tests — see DESIGN.md.
package testdb

import (
	"testing"

	"github.com/nexusforge/buildengine/pkg/domain"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// New opens a fresh in-memory SQLite database, migrates the record-store
// schema, and registers cleanup with t.
func New(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(&domain.Project{}, &domain.Stage{}, &domain.Task{}, &domain.Agent{}))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	return db
}
