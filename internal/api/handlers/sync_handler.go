package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/klauspost/compress/gzip"
	"go.uber.org/zap"

	"github.com/qa-dashboard/engine/internal/api/middleware"
	"github.com/qa-dashboard/engine/internal/api/types"
	"github.com/qa-dashboard/engine/internal/services"
	appErr "github.com/qa-dashboard/engine/pkg/errors"
	"github.com/qa-dashboard/engine/pkg/logger"
)

const (
	// TableTaskTestStatus selects the task status sidecar instead of projects.
	TableTaskTestStatus = "task_test_status"

	// HeaderContentCompressed flags a gzip body; the only recognised value is "gzip".
	HeaderContentCompressed = "X-Content-Compressed"
)

// SyncHandler is the single project sync endpoint. It multiplexes on the
// HTTP method and the "table" query parameter.
type SyncHandler struct {
	svc             services.SyncService
	maxRequestBytes int64
}

// NewSyncHandler returns the sync endpoint. svc may be nil when the store
// is not configured; every request then fails with 500.
func NewSyncHandler(svc services.SyncService, maxRequestBytes int64) *SyncHandler {
	return &SyncHandler{svc: svc, maxRequestBytes: maxRequestBytes}
}

func (h *SyncHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.svc == nil {
		writeEnvelope(w, http.StatusInternalServerError, types.Fail("store not configured"))
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.get(w, r)
	case http.MethodPost:
		h.post(w, r)
	case http.MethodDelete:
		h.delete(w, r)
	default:
		writeEnvelope(w, http.StatusMethodNotAllowed, types.Fail("Method not allowed"))
	}
}

func (h *SyncHandler) get(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("table") == TableTaskTestStatus {
		h.getTaskStatus(w, r)
		return
	}

	projects, err := h.svc.ListProjects(r.Context(), h.userID(r, q.Get("userId")))
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeEnvelope(w, http.StatusOK, types.OK("projects", projects))
}

func (h *SyncHandler) getTaskStatus(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	switch {
	case q.Get("task_key") != "":
		rec, err := h.svc.GetTaskStatus(r.Context(), q.Get("task_key"))
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeEnvelope(w, http.StatusOK, types.OK("record", rec))
	case q.Get("task_keys") != "":
		recs, err := h.svc.GetTaskStatuses(r.Context(), strings.Split(q.Get("task_keys"), ","))
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeEnvelope(w, http.StatusOK, types.OK("records", recs))
	default:
		writeEnvelope(w, http.StatusBadRequest, types.Fail("task_key or task_keys is required"))
	}
}

func (h *SyncHandler) post(w http.ResponseWriter, r *http.Request) {
	body, err := h.readBody(w, r)
	if err != nil {
		writeAppError(w, err)
		return
	}
	req, err := decodePostBody(body, strings.EqualFold(r.Header.Get(HeaderContentCompressed), "gzip"), h.maxRequestBytes)
	if err != nil {
		writeAppError(w, err)
		return
	}

	if req.StoragePath != "" {
		if err := h.svc.IngestFromStorage(r.Context(), req.StoragePath, h.userID(r, req.UserID)); err != nil {
			writeAppError(w, err)
			return
		}
		writeEnvelope(w, http.StatusOK, types.OK("message", "Project synced from storage"))
		return
	}

	if r.URL.Query().Get("table") == TableTaskTestStatus {
		var rec types.TaskStatusRecord
		if len(req.Record) == 0 || json.Unmarshal(req.Record, &rec) != nil {
			writeEnvelope(w, http.StatusBadRequest, types.Fail("record with task_key and status is required"))
			return
		}
		if err := h.svc.SaveTaskStatus(r.Context(), &services.TaskStatusInput{TaskKey: rec.TaskKey, Status: rec.Status}); err != nil {
			writeAppError(w, err)
			return
		}
		writeEnvelope(w, http.StatusOK, types.OK())
		return
	}

	userID := req.UserID
	if userID == "" {
		userID = middleware.GetUserID(r.Context())
	}
	if err := h.svc.SaveProject(r.Context(), &services.SaveProjectInput{Project: req.Project, UserID: userID}); err != nil {
		writeAppError(w, err)
		return
	}
	writeEnvelope(w, http.StatusOK, types.OK())
}

func (h *SyncHandler) delete(w http.ResponseWriter, r *http.Request) {
	var req types.SyncDeleteRequest
	body, err := h.readBody(w, r)
	if err != nil {
		writeAppError(w, err)
		return
	}
	if len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			writeEnvelope(w, http.StatusBadRequest, types.Fail("Invalid JSON body"))
			return
		}
	}
	if err := h.svc.DeleteProject(r.Context(), req.ProjectID, h.userID(r, req.UserID)); err != nil {
		writeAppError(w, err)
		return
	}
	writeEnvelope(w, http.StatusOK, types.OK())
}

// userID prefers the explicit identity, then the token subject. The service
// applies the shared default when both are empty.
func (h *SyncHandler) userID(r *http.Request, explicit string) string {
	if explicit != "" {
		return explicit
	}
	return middleware.GetUserID(r.Context())
}

func (h *SyncHandler) readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	if r.Body == nil {
		return nil, nil
	}
	b, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxRequestBytes))
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return nil, appErr.Newf(appErr.CodePayloadTooLarge, "Payload too large: request body exceeds %d bytes", mbe.Limit)
		}
		return nil, appErr.Wrap(err, appErr.CodeInvalid, "read request body failed")
	}
	return b, nil
}

// decodePostBody parses a POST body, gunzipping it first when the client
// flagged it as compressed. A flagged body that is not gzip is retried as
// plain JSON before it is rejected.
func decodePostBody(body []byte, compressed bool, limit int64) (*types.SyncPostRequest, error) {
	var req types.SyncPostRequest
	if !compressed {
		if err := json.Unmarshal(body, &req); err != nil {
			return nil, appErr.Wrap(err, appErr.CodeInvalid, "Invalid JSON body")
		}
		return &req, nil
	}

	plain, gzErr := gunzip(body, limit)
	if gzErr == nil {
		if err := json.Unmarshal(plain, &req); err != nil {
			return nil, appErr.Wrap(err, appErr.CodeInvalid, "Invalid compressed payload")
		}
		return &req, nil
	}
	if appErr.IsCode(gzErr, appErr.CodePayloadTooLarge) {
		return nil, gzErr
	}

	logger.L().Warn("decompression failed, trying plain JSON", zap.Error(gzErr))
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, appErr.Wrap(gzErr, appErr.CodeInvalid, "Invalid compressed payload")
	}
	return &req, nil
}

func gunzip(body []byte, limit int64) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	out, err := io.ReadAll(io.LimitReader(zr, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(out)) > limit {
		return nil, appErr.Newf(appErr.CodePayloadTooLarge, "Payload too large: decompressed body exceeds %d bytes", limit)
	}
	return out, nil
}
