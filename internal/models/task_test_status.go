package models

import "time"

// TaskTestStatus tracks the test execution state of one tracker task.
type TaskTestStatus struct {
	TaskKey   string    `gorm:"column:task_key;type:text;primaryKey" json:"task_key" validate:"required"`
	Status    string    `gorm:"type:text;not null" json:"status" validate:"required"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName pins the table name shared with the dashboard.
func (TaskTestStatus) TableName() string { return "task_test_status" }
