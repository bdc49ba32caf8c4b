// Package insights produces improvement recommendations for a quality report,
// from a generative model when one is configured and from fixed rules otherwise.
package insights

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/qa-dashboard/engine/internal/quality"
	"github.com/qa-dashboard/engine/pkg/logger"
)

// Recommender turns a quality report into short, actionable recommendations.
type Recommender interface {
	Recommend(ctx context.Context, report quality.Report) ([]string, error)
}

// Insights is a quality report with its recommendations.
type Insights struct {
	quality.Report
	Recommendations []string `json:"recommendations"`
	Source          string   `json:"source"`
}

// Service asks the primary recommender and falls back to rules when it is
// missing or fails.
type Service struct {
	primary  Recommender
	fallback Recommender
}

func NewService(primary Recommender) *Service {
	return &Service{primary: primary, fallback: RuleRecommender{}}
}

func (s *Service) Analyze(ctx context.Context, m quality.Metrics) (*Insights, error) {
	report := quality.Evaluate(m)
	if s.primary != nil {
		recs, err := s.primary.Recommend(ctx, report)
		if err == nil && len(recs) > 0 {
			return &Insights{Report: report, Recommendations: recs, Source: "model"}, nil
		}
		logger.L().Warn("model recommendations unavailable, using rules", zap.Error(err))
	}
	recs, err := s.fallback.Recommend(ctx, report)
	if err != nil {
		return nil, err
	}
	return &Insights{Report: report, Recommendations: recs, Source: "rules"}, nil
}

// RuleRecommender derives recommendations from the same thresholds the
// alerts use.
type RuleRecommender struct{}

func (RuleRecommender) Recommend(_ context.Context, r quality.Report) ([]string, error) {
	m := r.Metrics
	recs := []string{}
	if m.ReopeningRate > quality.ReopeningRateCritical {
		recs = append(recs, "Add regression tests for every reopened defect before closing it again")
	}
	if m.Coverage < quality.CoverageTarget {
		recs = append(recs, fmt.Sprintf("Raise test coverage by %.0f points to reach the 80%% target, starting with untested functionalities", quality.CoverageTarget-m.Coverage))
	}
	if m.DefectRate > quality.DefectRateElevated {
		recs = append(recs, "Review the modules with the most open defects and schedule a stabilization pass")
	}
	if m.PassRate < 90 {
		recs = append(recs, "Triage failing test cases and separate product defects from flaky or outdated tests")
	}
	if len(recs) == 0 {
		recs = append(recs, "Quality is stable; keep coverage and pass rate at their current levels")
	}
	return recs, nil
}

// prompt builds the model instruction for a report.
func prompt(r quality.Report) string {
	var b strings.Builder
	b.WriteString("You are a QA lead reviewing a project's test metrics.\n")
	fmt.Fprintf(&b, "Quality score: %d/100\n", r.Score)
	fmt.Fprintf(&b, "Test coverage: %.1f%%\nPass rate: %.1f%%\nDefect rate: %.1f%%\nReopening rate: %.1f%%\n",
		r.Metrics.Coverage, r.Metrics.PassRate, r.Metrics.DefectRate, r.Metrics.ReopeningRate)
	if len(r.Alerts) > 0 {
		b.WriteString("Active alerts:\n")
		for _, a := range r.Alerts {
			fmt.Fprintf(&b, "- %s\n", a)
		}
	}
	b.WriteString("Give at most five concrete recommendations, one per line, each starting with \"- \". No preamble.")
	return b.String()
}

// parseBullets keeps the non-empty lines of model output, stripped of list markers.
func parseBullets(text string) []string {
	out := []string{}
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimLeft(line, "-*• ")
		line = strings.TrimSpace(line)
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}
