package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qa-dashboard/engine/internal/insights"
	"github.com/qa-dashboard/engine/internal/quality"
)

type stubRecommender struct {
	recs []string
	err  error
}

func (s stubRecommender) Recommend(context.Context, quality.Report) ([]string, error) {
	return s.recs, s.err
}

type qualityResponse struct {
	Success bool `json:"success"`
	Data    struct {
		Score           int      `json:"score"`
		Alerts          []string `json:"alerts"`
		Recommendations []string `json:"recommendations"`
		Source          string   `json:"source"`
	} `json:"data"`
	Error string `json:"error"`
}

func postQuality(t *testing.T, fn http.HandlerFunc, body string) (int, qualityResponse) {
	t.Helper()
	rr := httptest.NewRecorder()
	fn(rr, httptest.NewRequest(http.MethodPost, "/api/quality", strings.NewReader(body)))
	var resp qualityResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	return rr.Code, resp
}

func TestQualityScore(t *testing.T) {
	h := NewQualityHandler(insights.NewService(nil))
	code, resp := postQuality(t, h.Score, `{"coverage":85,"passRate":90,"defectRate":2,"reopeningRate":15}`)
	assert.Equal(t, http.StatusOK, code)
	assert.True(t, resp.Success)
	assert.Equal(t, 69, resp.Data.Score)
	assert.Equal(t, []string{"Critical: reopening rate is above 10%, fixes are not holding"}, resp.Data.Alerts)
}

func TestQualityScoreZeroValuesAreAccepted(t *testing.T) {
	h := NewQualityHandler(insights.NewService(nil))
	code, resp := postQuality(t, h.Score, `{"coverage":0,"passRate":0,"defectRate":0,"reopeningRate":0}`)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, 40, resp.Data.Score)
}

func TestQualityScoreRejectsMissingField(t *testing.T) {
	h := NewQualityHandler(insights.NewService(nil))
	code, resp := postQuality(t, h.Score, `{"coverage":85,"passRate":90,"defectRate":2}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.False(t, resp.Success)
	assert.NotEmpty(t, resp.Error)

	code, _ = postQuality(t, h.Score, `not json`)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestQualityInsightsFromModel(t *testing.T) {
	h := NewQualityHandler(insights.NewService(stubRecommender{recs: []string{"Write more tests"}}))
	code, resp := postQuality(t, h.Insights, `{"coverage":60,"passRate":80,"defectRate":6,"reopeningRate":2}`)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "model", resp.Data.Source)
	assert.Equal(t, []string{"Write more tests"}, resp.Data.Recommendations)
	assert.Len(t, resp.Data.Alerts, 2)
}

func TestQualityInsightsFallsBackToRules(t *testing.T) {
	h := NewQualityHandler(insights.NewService(stubRecommender{err: errors.New("quota exceeded")}))
	code, resp := postQuality(t, h.Insights, `{"coverage":95,"passRate":99,"defectRate":1,"reopeningRate":1}`)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "rules", resp.Data.Source)
	assert.NotEmpty(t, resp.Data.Recommendations)
}
