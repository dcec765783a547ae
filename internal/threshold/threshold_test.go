package threshold

import (
	"strings"
	"testing"

	"github.com/volleyhttp/volley/internal/metrics"
)

func floatPtr(v float64) *float64 { return &v }

func sampleSummary() metrics.Summary {
	return metrics.Summary{
		ElapsedSeconds:      10,
		TotalRequests:       1000,
		Successful:          990,
		Failed:              10,
		ThroughputRPS:       100,
		MeanLatencyMs:       floatPtr(42.5),
		MedianLatencyMs:     floatPtr(40),
		P95LatencyMs:        floatPtr(120),
		P99LatencyMs:        floatPtr(200),
		StatusCounts:        map[string]int64{"200": 990, "500": 10},
		BytesReceived:       1024000,
		AvgBytesPerResponse: 1024,
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		want      Threshold
		wantError bool
	}{
		{
			name:  "valid p95 latency threshold",
			input: "latency:p95 < 250",
			want: Threshold{
				Metric:    "latency",
				Aggregate: "p95",
				Operator:  "<",
				Value:     250,
				Raw:       "latency:p95 < 250",
			},
		},
		{
			name:  "valid failure rate threshold",
			input: "failures:rate < 0.01",
			want: Threshold{
				Metric:    "failures",
				Aggregate: "rate",
				Operator:  "<",
				Value:     0.01,
				Raw:       "failures:rate < 0.01",
			},
		},
		{
			name:  "valid p99 latency with <=",
			input: "latency:p99 <= 1000",
			want: Threshold{
				Metric:    "latency",
				Aggregate: "p99",
				Operator:  "<=",
				Value:     1000,
				Raw:       "latency:p99 <= 1000",
			},
		},
		{
			name:  "valid request rate threshold",
			input: "requests:rate > 100",
			want: Threshold{
				Metric:    "requests",
				Aggregate: "rate",
				Operator:  ">",
				Value:     100,
				Raw:       "requests:rate > 100",
			},
		},
		{
			name:  "valid byte average threshold",
			input: "bytes:avg >= 512",
			want: Threshold{
				Metric:    "bytes",
				Aggregate: "avg",
				Operator:  ">=",
				Value:     512,
				Raw:       "bytes:avg >= 512",
			},
		},
		{
			name:      "empty string",
			input:     "",
			wantError: true,
		},
		{
			name:      "missing aggregate",
			input:     "latency < 500",
			wantError: true,
		},
		{
			name:      "unsupported metric",
			input:     "cpu:p95 < 80",
			wantError: true,
		},
		{
			name:      "unsupported aggregate",
			input:     "latency:stddev < 10",
			wantError: true,
		},
		{
			name:      "unsupported operator",
			input:     "latency:p95 != 500",
			wantError: true,
		},
		{
			name:      "non-numeric value",
			input:     "latency:p95 < fast",
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.input)
			if tt.wantError {
				if err == nil {
					t.Fatalf("Parse(%q) expected error, got %+v", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse(%q) unexpected error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("Parse(%q) = %+v, want %+v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseMultipleCollectsAllErrors(t *testing.T) {
	_, err := ParseMultiple([]string{
		"latency:p95 < 250",
		"bogus",
		"cpu:p95 < 80",
	})
	if err == nil {
		t.Fatal("expected aggregated parse errors")
	}
	msg := err.Error()
	if !strings.Contains(msg, "threshold[1]") || !strings.Contains(msg, "threshold[2]") {
		t.Errorf("expected both failing entries in error, got %q", msg)
	}
}

func TestParseMultipleEmpty(t *testing.T) {
	got, err := ParseMultiple(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil thresholds, got %v", got)
	}
}

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantPass bool
	}{
		{"p95 under limit", "latency:p95 < 250", true},
		{"p95 over limit", "latency:p95 < 100", false},
		{"mean alias avg", "latency:avg < 50", true},
		{"median exact with <=", "latency:median <= 40", true},
		{"failure rate pass", "failures:rate < 0.02", true},
		{"failure rate fail", "failures:rate < 0.005", false},
		{"failure count equality", "failures:count == 10", true},
		{"request rate", "requests:rate >= 100", true},
		{"request count", "requests:count == 1000", true},
		{"bytes total", "bytes:total > 1000000", true},
		{"bytes average equality", "bytes:avg == 1024", true},
	}

	summary := sampleSummary()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			th, err := Parse(tt.input)
			if err != nil {
				t.Fatalf("Parse(%q) failed: %v", tt.input, err)
			}
			results := NewEvaluator([]Threshold{th}).Evaluate(summary)
			if len(results) != 1 {
				t.Fatalf("expected 1 result, got %d", len(results))
			}
			if results[0].Pass != tt.wantPass {
				t.Errorf("%q: pass = %v, want %v (message: %s)", tt.input, results[0].Pass, tt.wantPass, results[0].Message)
			}
		})
	}
}

func TestEvaluateLatencyWithoutSamplesFails(t *testing.T) {
	th, err := Parse("latency:p95 < 250")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	empty := metrics.Summary{StatusCounts: map[string]int64{}}
	results := NewEvaluator([]Threshold{th}).Evaluate(empty)
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].Pass {
		t.Error("latency threshold must fail when no samples were recorded")
	}
	if !strings.Contains(results[0].Message, "no latency samples") {
		t.Errorf("expected explanatory message, got %q", results[0].Message)
	}
}

func TestEvaluateEmptyThresholds(t *testing.T) {
	if results := NewEvaluator(nil).Evaluate(sampleSummary()); results != nil {
		t.Fatalf("expected nil results, got %v", results)
	}
}

func TestCompareValuesEpsilon(t *testing.T) {
	// 0.1+0.2 is not exactly 0.3 in floating point; == must still hold.
	if !compareValues(0.1+0.2, "==", 0.3) {
		t.Error("expected epsilon-tolerant equality")
	}
	if !compareValues(0.3, "<=", 0.1+0.2) {
		t.Error("expected epsilon-tolerant <=")
	}
	if compareValues(0.31, "==", 0.3) {
		t.Error("expected inequality beyond epsilon")
	}
}
