package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/qa-dashboard/engine/internal/models"
	"github.com/qa-dashboard/engine/pkg/database"
	appErr "github.com/qa-dashboard/engine/pkg/errors"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Open(context.Background(), database.Options{Driver: "sqlite", DSN: "file::memory:"})
	require.NoError(t, err)
	require.NoError(t, AutoMigrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func project(id, user string, updated time.Time) *models.Project {
	return &models.Project{
		ID:        id,
		UserID:    user,
		Name:      "name-" + id,
		Data:      datatypes.JSON(`{"id":"` + id + `"}`),
		UpdatedAt: updated,
	}
}

func TestProjectUpsertReplacesRow(t *testing.T) {
	ctx := context.Background()
	repo := NewProjectRepository(openTestDB(t))
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Upsert(ctx, project("p1", "alice", base)))

	next := project("p1", "bob", base.Add(time.Hour))
	next.Name = "renamed"
	next.Data = datatypes.JSON(`{"id":"p1","name":"renamed"}`)
	require.NoError(t, repo.Upsert(ctx, next))

	var got models.Project
	require.NoError(t, repo.GetByKey(ctx, "p1", &got))
	require.Equal(t, "bob", got.UserID)
	require.Equal(t, "renamed", got.Name)
	require.JSONEq(t, `{"id":"p1","name":"renamed"}`, string(got.Data))
	require.True(t, got.UpdatedAt.Equal(base.Add(time.Hour)))
}

func TestProjectListVisible(t *testing.T) {
	ctx := context.Background()
	repo := NewProjectRepository(openTestDB(t))
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Upsert(ctx, project("old", "alice", base)))
	require.NoError(t, repo.Upsert(ctx, project("shared", "anonymous-shared", base.Add(time.Minute))))
	require.NoError(t, repo.Upsert(ctx, project("new", "alice", base.Add(2*time.Minute))))
	require.NoError(t, repo.Upsert(ctx, project("other", "bob", base.Add(3*time.Minute))))

	got, err := repo.ListVisible(ctx, "alice", "anonymous")
	require.NoError(t, err)
	ids := []string{}
	for _, p := range got {
		ids = append(ids, p.ID)
	}
	require.Equal(t, []string{"new", "shared", "old"}, ids)

	got, err = repo.ListVisible(ctx, "alice", "")
	require.NoError(t, err)
	require.Len(t, got, 2)
}

func TestProjectDeleteOwned(t *testing.T) {
	ctx := context.Background()
	repo := NewProjectRepository(openTestDB(t))
	require.NoError(t, repo.Upsert(ctx, project("p1", "alice", time.Now())))

	n, err := repo.DeleteOwned(ctx, "p1", "mallory")
	require.NoError(t, err)
	require.Zero(t, n)

	n, err = repo.DeleteOwned(ctx, "p1", "alice")
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	var got models.Project
	err = repo.GetByKey(ctx, "p1", &got)
	require.True(t, appErr.IsCode(err, appErr.CodeNotFound))
}

func TestTaskStatusRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewTaskStatusRepository(openTestDB(t))

	require.NoError(t, repo.Upsert(ctx, &models.TaskTestStatus{TaskKey: "QA-1", Status: "pending"}))
	require.NoError(t, repo.Upsert(ctx, &models.TaskTestStatus{TaskKey: "QA-1", Status: "passed"}))
	require.NoError(t, repo.Upsert(ctx, &models.TaskTestStatus{TaskKey: "QA-2", Status: "failed"}))

	var one models.TaskTestStatus
	require.NoError(t, repo.GetByKey(ctx, "QA-1", &one))
	require.Equal(t, "passed", one.Status)

	many, err := repo.FindByKeys(ctx, []string{"QA-1", "QA-2", "QA-404"})
	require.NoError(t, err)
	require.Len(t, many, 2)

	none, err := repo.FindByKeys(ctx, nil)
	require.NoError(t, err)
	require.NotNil(t, none)
	require.Empty(t, none)
}
