package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/qa-dashboard/engine/pkg/database"
)

func TestRunMigrationsSQLiteIsIdempotent(t *testing.T) {
	db, err := database.Open(context.Background(), database.Options{Driver: "sqlite", DSN: "file::memory:"})
	require.NoError(t, err)

	require.NoError(t, runMigrations(db))
	require.NoError(t, runMigrations(db))

	require.True(t, db.Migrator().HasTable("projects"))
	require.True(t, db.Migrator().HasTable("task_test_status"))
	require.True(t, db.Migrator().HasIndex("projects", "idx_projects_user_updated"))
}
