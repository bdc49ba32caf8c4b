package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/qa-dashboard/engine/internal/api/types"
	appErr "github.com/qa-dashboard/engine/pkg/errors"
)

// HealthHandler serves liveness and readiness. ready is nil when the store
// is not configured; readiness then reports "degraded" but stays 200 so the
// process is not restarted for a configuration problem.
type HealthHandler struct {
	ready func(ctx context.Context) error
}

func NewHealthHandler(ready func(ctx context.Context) error) *HealthHandler {
	return &HealthHandler{ready: ready}
}

func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, types.APIResponse{Success: true, Data: map[string]string{"status": "ok"}})
}

func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	if h.ready == nil {
		writeJSON(w, http.StatusOK, types.APIResponse{Success: true, Data: map[string]string{"status": "degraded", "store": "not configured"}})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := h.ready(ctx); err != nil {
		writeError(w, appErr.Wrap(err, appErr.CodeUnavailable, "store unreachable"))
		return
	}
	writeJSON(w, http.StatusOK, types.APIResponse{Success: true, Data: map[string]string{"status": "ready"}})
}
