// Package kpi gates rollout decisions on the statistical validity of an
// aggregated window of past routing outcomes. Aggregation itself happens
// upstream; this package only classifies a pre-aggregated window.
package kpi

import "fmt"

// Sample-validity thresholds. All four are independent lower bounds; none
// substitutes for another.
const (
	MinTotalRuns           = 40
	MinExpectedRouteRuns   = 20
	MinExpectedNoRouteRuns = 20
	MinDaySpan             = 14
)

// Window is an aggregate of past routing decisions over a span of days.
type Window struct {
	TotalRuns           int `json:"totalRuns"`
	ExpectedRouteRuns   int `json:"expectedRouteRuns"`
	ExpectedNoRouteRuns int `json:"expectedNoRouteRuns"`
	DaySpan             int `json:"daySpan"`
}

// Valid reports whether the window is large, balanced, and aged enough to
// drive a go/no-go call. It never errors; out-of-range counters simply fail
// their bound.
func (w Window) Valid() bool {
	return w.TotalRuns >= MinTotalRuns &&
		w.ExpectedRouteRuns >= MinExpectedRouteRuns &&
		w.ExpectedNoRouteRuns >= MinExpectedNoRouteRuns &&
		w.DaySpan >= MinDaySpan
}

// Result reports the gate outcome with one violation per failed bound.
type Result struct {
	Passed     bool        `json:"passed"`
	Violations []Violation `json:"violations,omitempty"`
}

// Violation describes a single threshold that the window failed.
type Violation struct {
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

// Evaluate checks every bound and reports which ones failed, for rollout
// reports that need more than a boolean.
func Evaluate(w Window) *Result {
	var violations []Violation

	check := func(rule string, got, min int) {
		if got < min {
			violations = append(violations, Violation{
				Rule:    rule,
				Message: fmt.Sprintf("%s = %d, requires at least %d", rule, got, min),
			})
		}
	}

	check("total_runs", w.TotalRuns, MinTotalRuns)
	check("expected_route_runs", w.ExpectedRouteRuns, MinExpectedRouteRuns)
	check("expected_no_route_runs", w.ExpectedNoRouteRuns, MinExpectedNoRouteRuns)
	check("day_span", w.DaySpan, MinDaySpan)

	return &Result{Passed: len(violations) == 0, Violations: violations}
}
