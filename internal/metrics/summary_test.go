package metrics

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/tidwall/gjson"
)

func TestPercentileOfNearestRank(t *testing.T) {
	samples := []float64{10, 20, 30, 40, 50}
	tests := []struct {
		p    float64
		want float64
	}{
		{0, 10},
		{0.5, 30},
		{0.95, 50}, // index round(0.95*4) = 4
		{0.99, 50},
		{1, 50},
	}

	for _, tt := range tests {
		got, ok := percentileOf(samples, tt.p)
		if !ok {
			t.Fatalf("p=%v: expected a value", tt.p)
		}
		if got != tt.want {
			t.Errorf("p=%v: expected %v, got %v", tt.p, tt.want, got)
		}
	}
}

func TestPercentileOfHalfRoundsToEvenIndex(t *testing.T) {
	// Two samples: index round(0.5*1) resolves the .5 tie to 0.
	if got, _ := percentileOf([]float64{10, 20}, 0.5); got != 10 {
		t.Errorf("expected 10, got %v", got)
	}
	// Four samples: index round(0.5*3) resolves the .5 tie to 2.
	if got, _ := percentileOf([]float64{10, 20, 30, 40}, 0.5); got != 30 {
		t.Errorf("expected 30, got %v", got)
	}
}

func TestPercentileOfEmpty(t *testing.T) {
	if _, ok := percentileOf(nil, 0.5); ok {
		t.Error("expected no value for empty samples")
	}
}

func TestSummaryExactPercentiles(t *testing.T) {
	c := NewCollector()
	for _, latency := range []time.Duration{
		10 * time.Millisecond,
		20 * time.Millisecond,
		30 * time.Millisecond,
		40 * time.Millisecond,
		50 * time.Millisecond,
	} {
		if err := c.RecordRequest(200, latency, 0, nil); err != nil {
			t.Fatalf("record failed: %v", err)
		}
	}

	s := c.Summary()
	if s.MedianLatencyMs == nil || *s.MedianLatencyMs != 30 {
		t.Errorf("expected median 30ms, got %v", s.MedianLatencyMs)
	}
	if s.P95LatencyMs == nil || *s.P95LatencyMs != 50 {
		t.Errorf("expected p95 50ms, got %v", s.P95LatencyMs)
	}
	if s.P99LatencyMs == nil || *s.P99LatencyMs != 50 {
		t.Errorf("expected p99 50ms, got %v", s.P99LatencyMs)
	}
	if s.MeanLatencyMs == nil || *s.MeanLatencyMs != 30 {
		t.Errorf("expected mean 30ms, got %v", s.MeanLatencyMs)
	}
}

func TestSummaryJSONSchema(t *testing.T) {
	c := NewCollector()
	c.Start()
	for i := 0; i < 3; i++ {
		if err := c.RecordRequest(200, 10*time.Millisecond, 100, nil); err != nil {
			t.Fatalf("record failed: %v", err)
		}
	}
	if err := c.RecordRequest(500, 20*time.Millisecond, 20, nil); err != nil {
		t.Fatalf("record failed: %v", err)
	}
	if err := c.RecordRequest(0, 5*time.Millisecond, 0, errTest); err != nil {
		t.Fatalf("record failed: %v", err)
	}
	if err := c.Finalize(); err != nil {
		t.Fatalf("finalize failed: %v", err)
	}

	data, err := json.Marshal(c.Summary())
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	checks := map[string]int64{
		"total_requests":    5,
		"successful":        3,
		"failed":            2,
		"status_counts.200": 3,
		"status_counts.500": 1,
		"bytes_received":    320,
	}
	for path, want := range checks {
		if got := gjson.GetBytes(data, path).Int(); got != want {
			t.Errorf("%s: expected %d, got %d", path, want, got)
		}
	}
	if got := gjson.GetBytes(data, "avg_bytes_per_response").Float(); got != 64 {
		t.Errorf("avg_bytes_per_response: expected 64, got %v", got)
	}
	if got := gjson.GetBytes(data, "elapsed_seconds").Float(); got <= 0 {
		t.Errorf("elapsed_seconds must be positive, got %v", got)
	}
	if got := gjson.GetBytes(data, "throughput_rps").Float(); got <= 0 {
		t.Errorf("throughput_rps must be positive, got %v", got)
	}
	for _, path := range []string{"mean_latency_ms", "median_latency_ms", "p95_latency_ms", "p99_latency_ms"} {
		res := gjson.GetBytes(data, path)
		if !res.Exists() || res.Type == gjson.Null {
			t.Errorf("%s must carry a value when samples exist", path)
		}
	}
	if gjson.GetBytes(data, "status_counts.0").Exists() {
		t.Error("missing responses must not appear in status_counts")
	}
}

func TestSummaryEmptyRun(t *testing.T) {
	c := NewCollector()
	c.Start()
	if err := c.Finalize(); err != nil {
		t.Fatalf("finalize failed: %v", err)
	}

	data, err := json.Marshal(c.Summary())
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	for _, path := range []string{"mean_latency_ms", "median_latency_ms", "p95_latency_ms", "p99_latency_ms"} {
		res := gjson.GetBytes(data, path)
		if !res.Exists() {
			t.Errorf("%s must be present even for empty runs", path)
		}
		if res.Type != gjson.Null {
			t.Errorf("%s must be null for empty runs, got %s", path, res.Raw)
		}
	}
	if got := gjson.GetBytes(data, "total_requests").Int(); got != 0 {
		t.Errorf("expected 0 requests, got %d", got)
	}
	counts := gjson.GetBytes(data, "status_counts")
	if !counts.IsObject() || len(counts.Map()) != 0 {
		t.Errorf("status_counts must be an empty object, got %s", counts.Raw)
	}
	if got := gjson.GetBytes(data, "avg_bytes_per_response").Float(); got != 0 {
		t.Errorf("expected 0 avg bytes, got %v", got)
	}
}

type testErr struct{}

func (testErr) Error() string { return "test error" }

var errTest = testErr{}
