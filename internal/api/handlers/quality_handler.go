package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/qa-dashboard/engine/internal/api/types"
	"github.com/qa-dashboard/engine/internal/insights"
	"github.com/qa-dashboard/engine/internal/quality"
	appErr "github.com/qa-dashboard/engine/pkg/errors"
)

type QualityHandler struct {
	insights *insights.Service
	validate *validator.Validate
}

func NewQualityHandler(svc *insights.Service) *QualityHandler {
	return &QualityHandler{insights: svc, validate: validator.New(validator.WithRequiredStructEnabled())}
}

// Score returns the quality score and alerts for the posted metrics.
func (h *QualityHandler) Score(w http.ResponseWriter, r *http.Request) {
	m, err := h.decode(r)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, types.APIResponse{Success: true, Data: quality.Evaluate(m)})
}

// Insights adds recommendations to the score and alerts.
func (h *QualityHandler) Insights(w http.ResponseWriter, r *http.Request) {
	m, err := h.decode(r)
	if err != nil {
		writeError(w, err)
		return
	}
	out, err := h.insights.Analyze(r.Context(), m)
	if err != nil {
		writeError(w, appErr.Wrap(err, appErr.CodeInternal, "analyze quality failed"))
		return
	}
	writeJSON(w, http.StatusOK, types.APIResponse{Success: true, Data: out})
}

func (h *QualityHandler) decode(r *http.Request) (quality.Metrics, error) {
	var req types.QualityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return quality.Metrics{}, appErr.New(appErr.CodeInvalid, "invalid json")
	}
	if err := h.validate.Struct(req); err != nil {
		return quality.Metrics{}, appErr.New(appErr.CodeInvalid, "coverage, passRate, defectRate and reopeningRate are required")
	}
	return quality.Metrics{
		Coverage:      *req.Coverage,
		PassRate:      *req.PassRate,
		DefectRate:    *req.DefectRate,
		ReopeningRate: *req.ReopeningRate,
	}, nil
}
