// Package quality turns the dashboard's four QA KPIs into a single 0-100
// score and a list of threshold alerts.
package quality

import (
	"fmt"
	"math"
	"strconv"
)

// Score weights. They sum to 1.
const (
	WeightCoverage  = 0.30
	WeightPassRate  = 0.30
	WeightDefect    = 0.20
	WeightReopening = 0.20
)

// Alert thresholds, all in percent.
const (
	ReopeningRateCritical = 10.0
	CoverageTarget        = 80.0
	DefectRateElevated    = 5.0
)

// Metrics are the KPIs of one project, each a percentage. Values are not
// range checked.
type Metrics struct {
	Coverage      float64 `json:"coverage"`
	PassRate      float64 `json:"passRate"`
	DefectRate    float64 `json:"defectRate"`
	ReopeningRate float64 `json:"reopeningRate"`
}

// Report bundles a score with the alerts raised for the same metrics.
type Report struct {
	Score   int      `json:"score"`
	Alerts  []string `json:"alerts"`
	Metrics Metrics  `json:"metrics"`
}

// CalculateScore returns the weighted quality score in [0,100].
//
// Coverage and pass rate are clamped to [0,100]. The defect and reopening
// terms lose 10 points per percent and floor at 0, but are not capped from
// above: a negative rate yields a term above 100.
func CalculateScore(m Metrics) int {
	cov := clamp(m.Coverage, 0, 100)
	pass := clamp(m.PassRate, 0, 100)
	defect := penalty(m.DefectRate)
	reopen := penalty(m.ReopeningRate)

	// explicit conversions keep each product rounded, so no FMA drift on ties
	total := float64(WeightCoverage*cov) + float64(WeightPassRate*pass) + float64(WeightDefect*defect) + float64(WeightReopening*reopen)
	return roundHalfUp(total)
}

// Alerts returns one message per breached threshold, in a fixed order.
// The result is empty, not nil, when every KPI is within bounds.
func Alerts(m Metrics) []string {
	alerts := []string{}
	if m.ReopeningRate > ReopeningRateCritical {
		alerts = append(alerts, "Critical: reopening rate is above 10%, fixes are not holding")
	}
	if m.Coverage < CoverageTarget {
		alerts = append(alerts, fmt.Sprintf("Test coverage at %s%% is below the 80%% threshold", formatPercent(m.Coverage)))
	}
	if m.DefectRate > DefectRateElevated {
		alerts = append(alerts, fmt.Sprintf("Defect rate at %s%% is elevated (above 5%%)", formatPercent(m.DefectRate)))
	}
	return alerts
}

// Evaluate computes the score and alerts together.
func Evaluate(m Metrics) Report {
	return Report{Score: CalculateScore(m), Alerts: Alerts(m), Metrics: m}
}

func penalty(rate float64) float64 {
	return math.Max(0, 100-float64(rate*10))
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, v))
}

// roundHalfUp rounds ties toward +Inf, the way the dashboard's Math.round does.
func roundHalfUp(v float64) int {
	return int(math.Floor(v + 0.5))
}

func formatPercent(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
