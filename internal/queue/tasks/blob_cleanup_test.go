package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/qa-dashboard/engine/pkg/logger"
)

func TestMain(m *testing.M) {
	// Initialize logger for tests (required by tasks)
	_, err := logger.Init("info", "json")
	if err != nil {
		panic("failed to init logger: " + err.Error())
	}
	os.Exit(m.Run())
}

type mockBlobStore struct {
	mock.Mock
}

func (m *mockBlobStore) Put(ctx context.Context, path string, data []byte) error {
	return m.Called(ctx, path, data).Error(0)
}

func (m *mockBlobStore) Download(ctx context.Context, path string) ([]byte, error) {
	args := m.Called(ctx, path)
	if v := args.Get(0); v != nil {
		return v.([]byte), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockBlobStore) Remove(ctx context.Context, path string) error {
	return m.Called(ctx, path).Error(0)
}

type mockEnqueuer struct {
	mock.Mock
}

func (m *mockEnqueuer) EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	args := m.Called(ctx, task, opts)
	if v := args.Get(0); v != nil {
		return v.(*asynq.TaskInfo), args.Error(1)
	}
	return nil, args.Error(1)
}

func TestHandleRemove(t *testing.T) {
	store := new(mockBlobStore)
	store.On("Remove", mock.Anything, "uploads/p1.json").Return(nil).Once()

	task, err := NewBlobRemoveTask("uploads/p1.json")
	require.NoError(t, err)

	require.NoError(t, NewBlobCleanupHandler(store).HandleRemove(context.Background(), task))
	store.AssertExpectations(t)
}

func TestHandleRemoveReturnsErrorForRetry(t *testing.T) {
	store := new(mockBlobStore)
	store.On("Remove", mock.Anything, "uploads/p1.json").Return(errors.New("redis down"))

	task, err := NewBlobRemoveTask("uploads/p1.json")
	require.NoError(t, err)

	err = NewBlobCleanupHandler(store).HandleRemove(context.Background(), task)
	require.Error(t, err)
	require.False(t, errors.Is(err, asynq.SkipRetry))
}

func TestHandleRemoveSkipsBadPayload(t *testing.T) {
	store := new(mockBlobStore)
	h := NewBlobCleanupHandler(store)

	err := h.HandleRemove(context.Background(), asynq.NewTask(TypeBlobRemove, []byte("{")))
	require.ErrorIs(t, err, asynq.SkipRetry)

	err = h.HandleRemove(context.Background(), asynq.NewTask(TypeBlobRemove, []byte(`{}`)))
	require.ErrorIs(t, err, asynq.SkipRetry)
	store.AssertNotCalled(t, "Remove", mock.Anything, mock.Anything)
}

func TestEnqueueBlobRemoval(t *testing.T) {
	client := new(mockEnqueuer)
	client.On("EnqueueContext", mock.Anything, mock.MatchedBy(func(task *asynq.Task) bool {
		var p BlobRemovePayload
		return task.Type() == TypeBlobRemove && json.Unmarshal(task.Payload(), &p) == nil && p.Path == "uploads/p1.json"
	}), mock.Anything).Return(&asynq.TaskInfo{ID: "t-1"}, nil).Once()

	require.NoError(t, NewCleanupEnqueuer(client, 5).EnqueueBlobRemoval(context.Background(), "uploads/p1.json"))
	client.AssertExpectations(t)
}

func TestEnqueueBlobRemovalError(t *testing.T) {
	client := new(mockEnqueuer)
	client.On("EnqueueContext", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("no redis"))
	require.Error(t, NewCleanupEnqueuer(client, 5).EnqueueBlobRemoval(context.Background(), "p.json"))
}
