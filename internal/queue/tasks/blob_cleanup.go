package tasks

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/qa-dashboard/engine/internal/blob"
	"github.com/qa-dashboard/engine/pkg/logger"
)

const (
	// TypeBlobRemove retries the removal of an offloaded project payload.
	TypeBlobRemove = "blob:remove"
	// QueueCleanup is the asynq queue cleanup tasks are sent to.
	QueueCleanup = "cleanup"
)

// BlobRemovePayload is the task payload for blob removal tasks.
type BlobRemovePayload struct {
	Path string `json:"path"`
}

// NewBlobRemoveTask builds a removal task for path.
func NewBlobRemoveTask(path string) (*asynq.Task, error) {
	b, err := json.Marshal(BlobRemovePayload{Path: path})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeBlobRemove, b), nil
}

type taskEnqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// CleanupEnqueuer hands failed blob removals to the worker.
type CleanupEnqueuer struct {
	client   taskEnqueuer
	maxRetry int
}

// NewCleanupEnqueuer wraps an asynq client (or anything with its EnqueueContext).
func NewCleanupEnqueuer(client taskEnqueuer, maxRetry int) *CleanupEnqueuer {
	return &CleanupEnqueuer{client: client, maxRetry: maxRetry}
}

func (e *CleanupEnqueuer) EnqueueBlobRemoval(ctx context.Context, path string) error {
	task, err := NewBlobRemoveTask(path)
	if err != nil {
		return err
	}
	info, err := e.client.EnqueueContext(ctx, task, asynq.Queue(QueueCleanup), asynq.MaxRetry(e.maxRetry))
	if err != nil {
		return fmt.Errorf("enqueue blob removal: %w", err)
	}
	logger.L().Info("blob removal enqueued", zap.String("path", path), zap.String("task_id", info.ID))
	return nil
}

// BlobCleanupHandler removes blobs on behalf of the worker.
type BlobCleanupHandler struct {
	store blob.Store
}

func NewBlobCleanupHandler(store blob.Store) *BlobCleanupHandler {
	return &BlobCleanupHandler{store: store}
}

func (h *BlobCleanupHandler) HandleRemove(ctx context.Context, t *asynq.Task) error {
	var p BlobRemovePayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		logger.L().Error("invalid blob removal payload", zap.Error(err))
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	if p.Path == "" {
		return fmt.Errorf("blob removal without path: %w", asynq.SkipRetry)
	}

	if err := h.store.Remove(ctx, p.Path); err != nil {
		logger.L().Warn("blob removal failed, will retry", zap.String("path", p.Path), zap.Error(err))
		return err
	}
	logger.L().Info("blob removed", zap.String("path", p.Path))
	return nil
}
