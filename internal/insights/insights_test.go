package insights

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/qa-dashboard/engine/internal/quality"
	"github.com/qa-dashboard/engine/pkg/logger"
)

func TestMain(m *testing.M) {
	if _, err := logger.Init("error", "json"); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

type mockGenerator struct {
	mock.Mock
}

func (m *mockGenerator) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	args := m.Called(ctx, model, contents, config)
	if v := args.Get(0); v != nil {
		return v.(*genai.GenerateContentResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

func textResponse(s string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
		Content: &genai.Content{Role: "model", Parts: []*genai.Part{{Text: s}}},
	}}}
}

var weak = quality.Metrics{Coverage: 60, PassRate: 85, DefectRate: 7, ReopeningRate: 12}

func TestRuleRecommender(t *testing.T) {
	recs, err := RuleRecommender{}.Recommend(context.Background(), quality.Evaluate(weak))
	require.NoError(t, err)
	require.Len(t, recs, 4)
	assert.Contains(t, recs[1], "20 points")

	recs, err = RuleRecommender{}.Recommend(context.Background(), quality.Evaluate(quality.Metrics{Coverage: 95, PassRate: 99}))
	require.NoError(t, err)
	require.Len(t, recs, 1)
}

func TestGeminiRecommender(t *testing.T) {
	gen := new(mockGenerator)
	gen.On("GenerateContent", mock.Anything, "gemini-test", mock.Anything, mock.Anything).
		Return(textResponse("- Add regression tests\n\n* Raise coverage\n"), nil)

	g := &GeminiRecommender{models: gen, model: "gemini-test"}
	recs, err := g.Recommend(context.Background(), quality.Evaluate(weak))
	require.NoError(t, err)
	assert.Equal(t, []string{"Add regression tests", "Raise coverage"}, recs)
}

func TestServiceFallsBackToRules(t *testing.T) {
	gen := new(mockGenerator)
	gen.On("GenerateContent", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("quota exceeded"))

	out, err := NewService(&GeminiRecommender{models: gen, model: "m"}).Analyze(context.Background(), weak)
	require.NoError(t, err)
	assert.Equal(t, "rules", out.Source)
	assert.Equal(t, quality.CalculateScore(weak), out.Score)
	assert.Len(t, out.Alerts, 3)

	out, err = NewService(nil).Analyze(context.Background(), weak)
	require.NoError(t, err)
	assert.Equal(t, "rules", out.Source)
}

func TestServiceUsesModel(t *testing.T) {
	gen := new(mockGenerator)
	gen.On("GenerateContent", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(textResponse("- one"), nil)

	out, err := NewService(&GeminiRecommender{models: gen, model: "m"}).Analyze(context.Background(), weak)
	require.NoError(t, err)
	assert.Equal(t, "model", out.Source)
	assert.Equal(t, []string{"one"}, out.Recommendations)
}

func TestPromptMentionsAlerts(t *testing.T) {
	p := prompt(quality.Evaluate(weak))
	assert.Contains(t, p, "Quality score:")
	assert.Contains(t, p, "Active alerts:")
}
