package insights

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/qa-dashboard/engine/internal/quality"
)

type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiRecommender asks a Gemini model for recommendations.
type GeminiRecommender struct {
	models contentGenerator
	model  string
}

// NewGeminiRecommender creates a Gemini API client for apiKey.
func NewGeminiRecommender(ctx context.Context, apiKey, model string) (*GeminiRecommender, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &GeminiRecommender{models: client.Models, model: model}, nil
}

func (g *GeminiRecommender) Recommend(ctx context.Context, r quality.Report) ([]string, error) {
	resp, err := g.models.GenerateContent(ctx, g.model, genai.Text(prompt(r)), &genai.GenerateContentConfig{
		Temperature: genai.Ptr[float32](0.2),
	})
	if err != nil {
		return nil, fmt.Errorf("generate recommendations: %w", err)
	}
	recs := parseBullets(resp.Text())
	if len(recs) == 0 {
		return nil, fmt.Errorf("model returned no recommendations")
	}
	if len(recs) > 5 {
		recs = recs[:5]
	}
	return recs, nil
}
