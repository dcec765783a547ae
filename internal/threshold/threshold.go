// Package threshold evaluates pass/fail assertions against the final run
// summary, turning a load test into a CI gate.
package threshold

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/volleyhttp/volley/internal/metrics"
)

// Threshold represents a performance assertion that can pass or fail.
type Threshold struct {
	Metric    string  // "latency", "requests", "failures", "bytes"
	Aggregate string  // e.g. "p95", "mean", "rate", "count"
	Operator  string  // "<", "<=", ">", ">=", "=="
	Value     float64 // the value to compare against
	Raw       string  // original threshold string for display
}

// Result represents the outcome of evaluating a threshold.
type Result struct {
	Threshold Threshold
	Actual    float64
	Pass      bool
	Message   string
}

// Evaluator evaluates thresholds against a run summary.
type Evaluator struct {
	thresholds []Threshold
}

func NewEvaluator(thresholds []Threshold) *Evaluator {
	return &Evaluator{
		thresholds: thresholds,
	}
}

// Evaluate checks all thresholds against the provided summary. Latency
// assertions fail with an explanatory message when the run recorded no
// samples.
func (e *Evaluator) Evaluate(s metrics.Summary) []Result {
	if len(e.thresholds) == 0 {
		return nil
	}

	results := make([]Result, 0, len(e.thresholds))
	for _, t := range e.thresholds {
		results = append(results, evaluateOne(t, s))
	}
	return results
}

func evaluateOne(t Threshold, s metrics.Summary) Result {
	actual, err := extractMetricValue(t, s)
	if err != nil {
		return Result{
			Threshold: t,
			Actual:    0,
			Pass:      false,
			Message:   fmt.Sprintf("✗ %s: %v", t.Raw, err),
		}
	}

	pass := compareValues(actual, t.Operator, t.Value)
	status := "✓"
	if !pass {
		status = "✗"
	}

	message := fmt.Sprintf("%s %s: %.2f %s %.2f", status, t.Raw, actual, t.Operator, t.Value)
	return Result{
		Threshold: t,
		Actual:    actual,
		Pass:      pass,
		Message:   message,
	}
}

// Parse parses a threshold string into a Threshold struct.
// Supported formats:
//   - "latency:p95 < 250"       (latency percentile in ms)
//   - "latency:mean < 100"      (mean latency in ms)
//   - "failures:rate < 0.01"    (failure rate as decimal)
//   - "failures:count == 0"     (failure count)
//   - "requests:rate > 100"     (requests per second)
//   - "bytes:avg > 1024"        (average response size)
func Parse(s string) (Threshold, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Threshold{}, fmt.Errorf("empty threshold string")
	}

	// Pattern: metric:aggregate operator value
	pattern := regexp.MustCompile(`^([a-z_]+):([a-z0-9]+)\s*([<>=!]+)\s*([0-9.]+)$`)
	matches := pattern.FindStringSubmatch(s)
	if matches == nil {
		return Threshold{}, fmt.Errorf("invalid threshold format: %q (expected metric:aggregate operator value, e.g. 'latency:p95 < 250')", s)
	}

	metric := matches[1]
	aggregate := matches[2]
	operator := matches[3]
	valueStr := matches[4]

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return Threshold{}, fmt.Errorf("invalid threshold value %q: %v", valueStr, err)
	}

	if !isValidMetric(metric) {
		return Threshold{}, fmt.Errorf("unsupported metric: %q (supported: latency, requests, failures, bytes)", metric)
	}
	if !isValidAggregate(aggregate) {
		return Threshold{}, fmt.Errorf("unsupported aggregate: %q (supported: mean, avg, median, p50, p95, p99, rate, count, total)", aggregate)
	}
	if !isValidOperator(operator) {
		return Threshold{}, fmt.Errorf("unsupported operator: %q (supported: <, <=, >, >=, ==)", operator)
	}

	return Threshold{
		Metric:    metric,
		Aggregate: aggregate,
		Operator:  operator,
		Value:     value,
		Raw:       s,
	}, nil
}

// ParseMultiple parses multiple threshold strings, collecting every parse
// error instead of stopping at the first.
func ParseMultiple(thresholds []string) ([]Threshold, error) {
	if len(thresholds) == 0 {
		return nil, nil
	}

	result := make([]Threshold, 0, len(thresholds))
	var errors []string

	for i, s := range thresholds {
		t, err := Parse(s)
		if err != nil {
			errors = append(errors, fmt.Sprintf("threshold[%d]: %v", i, err))
			continue
		}
		result = append(result, t)
	}

	if len(errors) > 0 {
		return nil, fmt.Errorf("threshold parsing errors: %s", strings.Join(errors, "; "))
	}
	return result, nil
}

func isValidMetric(metric string) bool {
	switch metric {
	case "latency", "requests", "failures", "bytes":
		return true
	}
	return false
}

func isValidAggregate(aggregate string) bool {
	switch aggregate {
	case "mean", "avg", "median", "p50", "p95", "p99", "rate", "count", "total":
		return true
	}
	return false
}

func isValidOperator(operator string) bool {
	switch operator {
	case "<", "<=", ">", ">=", "==":
		return true
	}
	return false
}

func extractMetricValue(t Threshold, s metrics.Summary) (float64, error) {
	switch t.Metric {
	case "latency":
		return extractLatencyMetric(t.Aggregate, s)
	case "requests":
		return extractRequestMetric(t.Aggregate, s)
	case "failures":
		return extractFailureMetric(t.Aggregate, s)
	case "bytes":
		return extractByteMetric(t.Aggregate, s)
	default:
		return 0, fmt.Errorf("unknown metric: %s", t.Metric)
	}
}

func extractLatencyMetric(aggregate string, s metrics.Summary) (float64, error) {
	var v *float64
	switch aggregate {
	case "mean", "avg":
		v = s.MeanLatencyMs
	case "median", "p50":
		v = s.MedianLatencyMs
	case "p95":
		v = s.P95LatencyMs
	case "p99":
		v = s.P99LatencyMs
	default:
		return 0, fmt.Errorf("unsupported aggregate %q for latency (use mean, median, p95, or p99)", aggregate)
	}
	if v == nil {
		return 0, fmt.Errorf("no latency samples recorded")
	}
	return *v, nil
}

func extractRequestMetric(aggregate string, s metrics.Summary) (float64, error) {
	switch aggregate {
	case "count":
		return float64(s.TotalRequests), nil
	case "rate":
		return s.ThroughputRPS, nil
	default:
		return 0, fmt.Errorf("unsupported aggregate %q for requests (use count or rate)", aggregate)
	}
}

func extractFailureMetric(aggregate string, s metrics.Summary) (float64, error) {
	switch aggregate {
	case "count":
		return float64(s.Failed), nil
	case "rate":
		if s.TotalRequests == 0 {
			return 0, nil
		}
		return float64(s.Failed) / float64(s.TotalRequests), nil
	default:
		return 0, fmt.Errorf("unsupported aggregate %q for failures (use count or rate)", aggregate)
	}
}

func extractByteMetric(aggregate string, s metrics.Summary) (float64, error) {
	switch aggregate {
	case "total":
		return float64(s.BytesReceived), nil
	case "avg":
		return s.AvgBytesPerResponse, nil
	default:
		return 0, fmt.Errorf("unsupported aggregate %q for bytes (use total or avg)", aggregate)
	}
}

func compareValues(actual float64, operator string, expected float64) bool {
	// Floating point comparison with a small epsilon.
	epsilon := 1e-9

	switch operator {
	case "<":
		return actual < expected
	case "<=":
		return actual <= expected || math.Abs(actual-expected) < epsilon
	case ">":
		return actual > expected
	case ">=":
		return actual >= expected || math.Abs(actual-expected) < epsilon
	case "==":
		return math.Abs(actual-expected) < epsilon
	default:
		return false
	}
}
