package repository

import (
	"github.com/qa-dashboard/engine/internal/models"
	"gorm.io/gorm"
)

// Models returns every table the store owns, in migration order.
func Models() []interface{} {
	return []interface{}{
		&models.Project{},
		&models.TaskTestStatus{},
	}
}

// AutoMigrate creates or updates the store tables.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(Models()...)
}
