package handlers

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/qa-dashboard/engine/internal/api/types"
	"github.com/qa-dashboard/engine/internal/blob"
	appErr "github.com/qa-dashboard/engine/pkg/errors"
	"github.com/qa-dashboard/engine/pkg/logger"
	"github.com/qa-dashboard/engine/pkg/utils"
)

// BlobHandler accepts offloaded project payloads. Clients upload here, then
// POST {storagePath} to the sync endpoint, which ingests and removes the blob.
type BlobHandler struct {
	store    blob.Store
	maxBytes int64
}

// NewBlobHandler returns the upload endpoint; store may be nil.
func NewBlobHandler(store blob.Store, maxBytes int64) *BlobHandler {
	return &BlobHandler{store: store, maxBytes: maxBytes}
}

func (h *BlobHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		writeEnvelope(w, http.StatusInternalServerError, types.Fail("blob storage not configured"))
		return
	}
	path := strings.TrimPrefix(chi.URLParam(r, "*"), "/")

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBytes))
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			writeAppError(w, appErr.Newf(appErr.CodePayloadTooLarge, "Payload too large: upload exceeds %d bytes", mbe.Limit))
			return
		}
		writeAppError(w, appErr.Wrap(err, appErr.CodeInvalid, "read upload failed"))
		return
	}
	if len(data) == 0 {
		writeEnvelope(w, http.StatusBadRequest, types.Fail("empty upload"))
		return
	}

	if err := h.store.Put(r.Context(), path, data); err != nil {
		writeAppError(w, err)
		return
	}
	logger.L().Info("blob uploaded", zap.String("path", path), zap.Int("size", len(data)))
	writeEnvelope(w, http.StatusOK, types.OK(
		"storagePath", path,
		"size", len(data),
		"checksum", utils.SHA256Hex(data),
	))
}
