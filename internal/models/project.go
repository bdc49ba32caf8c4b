package models

import (
	"time"

	"gorm.io/datatypes"
)

// Project is a dashboard project document owned by a user. The full
// document lives in Data; Name and Description are copied out of it so
// listings can be inspected without decoding Data.
type Project struct {
	ID          string         `gorm:"type:text;primaryKey" json:"id" validate:"required"`
	UserID      string         `gorm:"type:text;index;not null" json:"user_id" validate:"required"`
	Name        string         `gorm:"type:text" json:"name"`
	Description string         `gorm:"type:text" json:"description"`
	Data        datatypes.JSON `json:"data"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `gorm:"index" json:"updated_at"`
}

// ProjectHeader holds the fields the store copies out of a project document.
type ProjectHeader struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}
