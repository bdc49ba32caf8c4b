package repository

import (
	"context"

	"github.com/qa-dashboard/engine/internal/models"
	appErr "github.com/qa-dashboard/engine/pkg/errors"
	"gorm.io/gorm"
)

type ProjectRepository interface {
	BaseRepository[models.Project]
	// ListVisible returns the user's projects plus every project owned by an
	// identity starting with sharedPrefix, most recently updated first.
	ListVisible(ctx context.Context, userID, sharedPrefix string) ([]models.Project, error)
	// DeleteOwned removes the project only when userID owns it.
	DeleteOwned(ctx context.Context, projectID, userID string) (int64, error)
}

type projectRepository struct {
	BaseRepository[models.Project]
	db *gorm.DB
}

func NewProjectRepository(db *gorm.DB) ProjectRepository {
	return &projectRepository{
		BaseRepository: NewBaseRepository[models.Project](db, "id", "user_id", "name", "description", "data", "updated_at"),
		db:             db,
	}
}

func (r *projectRepository) ListVisible(ctx context.Context, userID, sharedPrefix string) ([]models.Project, error) {
	q := r.db.WithContext(ctx)
	if sharedPrefix != "" {
		q = q.Where("user_id = ? OR user_id LIKE ?", userID, sharedPrefix+"%")
	} else {
		q = q.Where("user_id = ?", userID)
	}
	out := []models.Project{}
	if err := q.Order("updated_at DESC").Find(&out).Error; err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "list projects failed")
	}
	return out, nil
}

func (r *projectRepository) DeleteOwned(ctx context.Context, projectID, userID string) (int64, error) {
	res := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", projectID, userID).Delete(&models.Project{})
	if res.Error != nil {
		return 0, appErr.Wrap(res.Error, appErr.CodeInternal, "delete project failed")
	}
	return res.RowsAffected, nil
}
