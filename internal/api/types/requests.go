package types

import "encoding/json"

// SyncPostRequest is the union of every POST body the sync endpoint accepts.
type SyncPostRequest struct {
	Project     json.RawMessage `json:"project"`
	UserID      string          `json:"userId"`
	StoragePath string          `json:"storagePath"`
	Record      json.RawMessage `json:"record"`
}

type SyncDeleteRequest struct {
	ProjectID string `json:"projectId"`
	UserID    string `json:"userId"`
}

type TaskStatusRecord struct {
	TaskKey string `json:"task_key"`
	Status  string `json:"status"`
}

type QualityRequest struct {
	Coverage      *float64 `json:"coverage" validate:"required"`
	PassRate      *float64 `json:"passRate" validate:"required"`
	DefectRate    *float64 `json:"defectRate" validate:"required"`
	ReopeningRate *float64 `json:"reopeningRate" validate:"required"`
}
