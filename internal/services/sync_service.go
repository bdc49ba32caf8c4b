package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/qa-dashboard/engine/internal/blob"
	"github.com/qa-dashboard/engine/internal/metrics"
	"github.com/qa-dashboard/engine/internal/models"
	"github.com/qa-dashboard/engine/internal/repository"
	appErr "github.com/qa-dashboard/engine/pkg/errors"
	"github.com/qa-dashboard/engine/pkg/logger"
)

const bytesPerMB = 1024 * 1024

// cleanupTimeout bounds the blob removal that follows an ingestion; it runs
// detached from the request context.
const cleanupTimeout = 10 * time.Second

// SyncService stores dashboard projects and task test statuses.
type SyncService interface {
	// ResolveUserID returns userID, or the configured shared identity when empty.
	ResolveUserID(userID string) string

	ListProjects(ctx context.Context, userID string) ([]json.RawMessage, error)
	SaveProject(ctx context.Context, input *SaveProjectInput) error
	IngestFromStorage(ctx context.Context, storagePath, userID string) error
	DeleteProject(ctx context.Context, projectID, userID string) error

	GetTaskStatus(ctx context.Context, taskKey string) (*models.TaskTestStatus, error)
	GetTaskStatuses(ctx context.Context, taskKeys []string) ([]models.TaskTestStatus, error)
	SaveTaskStatus(ctx context.Context, input *TaskStatusInput) error
}

// SaveProjectInput is a project upsert as received from the client.
type SaveProjectInput struct {
	// Project is the raw project document.
	Project json.RawMessage
	// UserID is the identity the client sent; empty when it sent none.
	UserID string
}

type TaskStatusInput struct {
	TaskKey string `json:"task_key" validate:"required"`
	Status  string `json:"status" validate:"required"`
}

// CleanupQueue retries blob removals that failed inline.
type CleanupQueue interface {
	EnqueueBlobRemoval(ctx context.Context, path string) error
}

// SyncOptions are the tunables of the sync service.
type SyncOptions struct {
	DefaultUserID    string
	SharedUserPrefix string
	ListTimeout      time.Duration
	MaxPayloadBytes  int64
}

// DefaultSyncOptions mirrors the dashboard's historical limits.
func DefaultSyncOptions() SyncOptions {
	return SyncOptions{
		DefaultUserID:    "anonymous-shared",
		SharedUserPrefix: "anonymous",
		ListTimeout:      15 * time.Second,
		MaxPayloadBytes:  4 * 1024 * 1024,
	}
}

// SyncDeps are the collaborators of the sync service. Blobs, Cleanup and
// Metrics may be nil.
type SyncDeps struct {
	Projects repository.ProjectRepository
	Statuses repository.TaskStatusRepository
	Blobs    blob.Store
	Cleanup  CleanupQueue
	Metrics  *metrics.Metrics
	Now      func() time.Time
}

type syncService struct {
	projects repository.ProjectRepository
	statuses repository.TaskStatusRepository
	blobs    blob.Store
	cleanup  CleanupQueue
	metrics  *metrics.Metrics
	opts     SyncOptions
	now      func() time.Time
	validate *validator.Validate
}

func NewSyncService(deps SyncDeps, opts SyncOptions) SyncService {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &syncService{
		projects: deps.Projects,
		statuses: deps.Statuses,
		blobs:    deps.Blobs,
		cleanup:  deps.Cleanup,
		metrics:  deps.Metrics,
		opts:     opts,
		now:      now,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Ensure interfaces are satisfied at compile time
var _ SyncService = (*syncService)(nil)

func (s *syncService) ResolveUserID(userID string) string {
	if userID == "" {
		return s.opts.DefaultUserID
	}
	return userID
}

// ListProjects races the store query against the list timeout. On timeout
// the caller gets CodeUnavailable; the query's context is cancelled too, so
// the abandoned query does not keep a connection busy.
func (s *syncService) ListProjects(ctx context.Context, userID string) (out []json.RawMessage, err error) {
	defer s.observe("list_projects", &err)
	uid := s.ResolveUserID(userID)

	qctx, cancel := context.WithTimeout(ctx, s.opts.ListTimeout)
	defer cancel()

	type result struct {
		rows []models.Project
		err  error
	}
	done := make(chan result, 1)
	go func() {
		rows, err := s.projects.ListVisible(qctx, uid, s.opts.SharedUserPrefix)
		done <- result{rows: rows, err: err}
	}()

	var res result
	select {
	case res = <-done:
	case <-qctx.Done():
		logger.L().Warn("project list timed out", zap.String("user_id", uid), zap.Duration("timeout", s.opts.ListTimeout))
		return nil, appErr.Wrap(qctx.Err(), appErr.CodeUnavailable, "Database query timed out, please try again")
	}
	if res.err != nil {
		if errors.Is(qctx.Err(), context.DeadlineExceeded) {
			return nil, appErr.Wrap(res.err, appErr.CodeUnavailable, "Database query timed out, please try again")
		}
		return nil, res.err
	}

	out = make([]json.RawMessage, 0, len(res.rows))
	for _, row := range res.rows {
		out = append(out, json.RawMessage(row.Data))
	}
	logger.L().Debug("projects listed", zap.String("user_id", uid), zap.Int("count", len(out)))
	return out, nil
}

// SaveProject upserts a project after checking the serialized size of the
// {project, userId} envelope against MaxPayloadBytes.
func (s *syncService) SaveProject(ctx context.Context, input *SaveProjectInput) (err error) {
	defer s.observe("save_project", &err)
	if input == nil || isJSONNull(input.Project) {
		return appErr.New(appErr.CodeInvalid, "project is required")
	}

	size, err := envelopeSize(input.Project, input.UserID)
	if err != nil {
		return appErr.Wrap(err, appErr.CodeInvalid, "invalid project")
	}
	if int64(size) > s.opts.MaxPayloadBytes {
		logger.L().Warn("project payload too large", zap.Int("size", size), zap.Int64("max", s.opts.MaxPayloadBytes))
		return appErr.Newf(appErr.CodePayloadTooLarge,
			"Payload too large: %.2fMB exceeds maximum of %.2fMB",
			float64(size)/bytesPerMB, float64(s.opts.MaxPayloadBytes)/bytesPerMB,
		).WithMeta("size", size).WithMeta("max", s.opts.MaxPayloadBytes)
	}
	s.metrics.ObservePayload(size)

	header, err := parseProjectHeader(input.Project)
	if err != nil {
		return err
	}
	return s.upsertProject(ctx, header, input.Project, s.ResolveUserID(input.UserID))
}

// IngestFromStorage loads an offloaded project from blob storage and upserts
// it. The blob is removed afterwards whatever the outcome; a failed removal
// is logged and queued but never changes the returned error.
func (s *syncService) IngestFromStorage(ctx context.Context, storagePath, userID string) (err error) {
	defer s.observe("ingest_storage", &err)
	if s.blobs == nil {
		return appErr.New(appErr.CodeNotConfigured, "blob storage not configured")
	}
	if storagePath == "" {
		return appErr.New(appErr.CodeInvalid, "storagePath is required")
	}
	defer s.releaseBlob(ctx, storagePath)

	data, err := s.blobs.Download(ctx, storagePath)
	if err != nil {
		return appErr.Wrap(err, appErr.CodeInternal, "download from storage failed")
	}
	header, err := parseProjectHeader(data)
	if err != nil {
		return appErr.Wrap(err, appErr.CodeInternal, "invalid project data in storage")
	}

	uid := s.ResolveUserID(userID)
	if err := s.upsertProject(ctx, header, data, uid); err != nil {
		return err
	}
	logger.L().Info("project ingested from storage", zap.String("project_id", header.ID), zap.String("path", storagePath), zap.Int("size", len(data)))
	return nil
}

func (s *syncService) releaseBlob(ctx context.Context, storagePath string) {
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()

	rerr := s.blobs.Remove(cctx, storagePath)
	if rerr == nil {
		return
	}
	s.metrics.IncCleanupFailure()
	logger.L().Warn("blob cleanup failed", zap.String("path", storagePath), zap.Error(rerr))
	if s.cleanup == nil {
		return
	}
	if qerr := s.cleanup.EnqueueBlobRemoval(cctx, storagePath); qerr != nil {
		logger.L().Error("enqueue blob cleanup failed", zap.String("path", storagePath), zap.Error(qerr))
	}
}

func (s *syncService) upsertProject(ctx context.Context, header *models.ProjectHeader, doc []byte, userID string) error {
	p := &models.Project{
		ID:          header.ID,
		UserID:      userID,
		Name:        header.Name,
		Description: header.Description,
		Data:        datatypes.JSON(doc),
		UpdatedAt:   s.now().UTC(),
	}
	if err := s.projects.Upsert(ctx, p); err != nil {
		logger.L().Error("project upsert failed", zap.String("project_id", p.ID), zap.String("user_id", userID), zap.Error(err))
		return err
	}
	logger.L().Info("project saved", zap.String("project_id", p.ID), zap.String("user_id", userID))
	return nil
}

func (s *syncService) DeleteProject(ctx context.Context, projectID, userID string) (err error) {
	defer s.observe("delete_project", &err)
	if projectID == "" {
		return appErr.New(appErr.CodeInvalid, "projectId is required")
	}
	uid := s.ResolveUserID(userID)
	n, err := s.projects.DeleteOwned(ctx, projectID, uid)
	if err != nil {
		return err
	}
	logger.L().Info("project delete", zap.String("project_id", projectID), zap.String("user_id", uid), zap.Int64("deleted", n))
	return nil
}

// GetTaskStatus returns nil, nil when no status was recorded for taskKey.
func (s *syncService) GetTaskStatus(ctx context.Context, taskKey string) (*models.TaskTestStatus, error) {
	if taskKey == "" {
		return nil, appErr.New(appErr.CodeInvalid, "task_key is required")
	}
	var rec models.TaskTestStatus
	if err := s.statuses.GetByKey(ctx, taskKey, &rec); err != nil {
		if appErr.IsCode(err, appErr.CodeNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}

func (s *syncService) GetTaskStatuses(ctx context.Context, taskKeys []string) ([]models.TaskTestStatus, error) {
	keys := make([]string, 0, len(taskKeys))
	for _, k := range taskKeys {
		if k != "" {
			keys = append(keys, k)
		}
	}
	return s.statuses.FindByKeys(ctx, keys)
}

func (s *syncService) SaveTaskStatus(ctx context.Context, input *TaskStatusInput) (err error) {
	defer s.observe("save_task_status", &err)
	if input == nil || s.validate.Struct(input) != nil {
		return appErr.New(appErr.CodeInvalid, "record with task_key and status is required")
	}
	rec := &models.TaskTestStatus{TaskKey: input.TaskKey, Status: input.Status, UpdatedAt: s.now().UTC()}
	if err := s.statuses.Upsert(ctx, rec); err != nil {
		return err
	}
	logger.L().Info("task test status saved", zap.String("task_key", rec.TaskKey), zap.String("status", rec.Status))
	return nil
}

func (s *syncService) observe(op string, errp *error) {
	outcome := "ok"
	if *errp != nil {
		outcome = string(appErr.CodeOf(*errp))
	}
	s.metrics.ObserveSync(op, outcome)
}

// envelopeSize returns the byte length of {"project":...,"userId":...} as the
// dashboard serializes it: compact, no HTML escaping, userId omitted when unset.
func envelopeSize(project json.RawMessage, userID string) (int, error) {
	envelope := struct {
		Project json.RawMessage `json:"project"`
		UserID  string          `json:"userId,omitempty"`
	}{Project: project, UserID: userID}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(envelope); err != nil {
		return 0, err
	}
	// Encode terminates with a newline
	return buf.Len() - 1, nil
}

func parseProjectHeader(doc []byte) (*models.ProjectHeader, error) {
	trimmed := bytes.TrimSpace(doc)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, appErr.New(appErr.CodeInvalid, "project must be a JSON object")
	}
	var h models.ProjectHeader
	if err := json.Unmarshal(trimmed, &h); err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInvalid, "invalid project")
	}
	if h.ID == "" {
		return nil, appErr.New(appErr.CodeInvalid, "project id is required")
	}
	return &h, nil
}

func isJSONNull(raw json.RawMessage) bool {
	t := bytes.TrimSpace(raw)
	return len(t) == 0 || bytes.Equal(t, []byte("null"))
}
