package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/qa-dashboard/engine/internal/api/types"
	appErr "github.com/qa-dashboard/engine/pkg/errors"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeEnvelope(w http.ResponseWriter, status int, e types.Envelope) {
	writeJSON(w, status, e)
}

func writeAppError(w http.ResponseWriter, err error) {
	status, body := types.FromAppError(err)
	writeEnvelope(w, status, body)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, appErr.HTTPStatus(err), types.APIResponse{Success: false, Error: appErr.PublicMessage(err)})
}
