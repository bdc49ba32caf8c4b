package main

import (
	"gorm.io/gorm"

	"github.com/qa-dashboard/engine/internal/repository"
)

// runMigrations executes all database migrations
func runMigrations(db *gorm.DB) error {
	if err := repository.AutoMigrate(db); err != nil {
		return err
	}

	// Run custom migrations
	return runCustomMigrations(db)
}

// runCustomMigrations handles schema changes AutoMigrate can't handle
func runCustomMigrations(db *gorm.DB) error {
	migrations := []func(*gorm.DB) error{
		addProjectListIndex,
		addSharedOwnerIndex,
	}

	for _, migration := range migrations {
		if err := migration(db); err != nil {
			return err
		}
	}

	return nil
}

// addProjectListIndex serves the per-user listing, newest first.
func addProjectListIndex(db *gorm.DB) error {
	return db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_projects_user_updated
		ON projects(user_id, updated_at DESC)
	`).Error
}

// addSharedOwnerIndex lets postgres answer the shared-prefix LIKE from an index.
func addSharedOwnerIndex(db *gorm.DB) error {
	if db.Dialector.Name() != "postgres" {
		return nil
	}
	return db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_projects_user_prefix
		ON projects(user_id text_pattern_ops)
	`).Error
}
