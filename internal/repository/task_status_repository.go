package repository

import (
	"github.com/qa-dashboard/engine/internal/models"
	"gorm.io/gorm"
)

type TaskStatusRepository interface {
	BaseRepository[models.TaskTestStatus]
}

func NewTaskStatusRepository(db *gorm.DB) TaskStatusRepository {
	return NewBaseRepository[models.TaskTestStatus](db, "task_key", "status", "updated_at")
}
