package metrics

import (
	"math"
	"sort"
	"strconv"
	"time"
)

// Summary holds the final aggregated results of a run. Latency fields are
// nil when no request completed, which marshals as JSON null.
type Summary struct {
	ElapsedSeconds      float64          `json:"elapsed_seconds"`
	TotalRequests       int64            `json:"total_requests"`
	Successful          int64            `json:"successful"`
	Failed              int64            `json:"failed"`
	ThroughputRPS       float64          `json:"throughput_rps"`
	MeanLatencyMs       *float64         `json:"mean_latency_ms"`
	MedianLatencyMs     *float64         `json:"median_latency_ms"`
	P95LatencyMs        *float64         `json:"p95_latency_ms"`
	P99LatencyMs        *float64         `json:"p99_latency_ms"`
	StatusCounts        map[string]int64 `json:"status_counts"`
	BytesReceived       int64            `json:"bytes_received"`
	AvgBytesPerResponse float64          `json:"avg_bytes_per_response"`
}

// minElapsedSeconds guards the throughput division for runs that finish
// within clock resolution.
const minElapsedSeconds = 1e-9

// Summary computes the final results. Percentiles use the nearest-rank rule
// over the exact latency samples rather than the live histogram, so the
// reported numbers are reproducible from the CSV export.
func (c *Collector) Summary() Summary {
	c.mu.Lock()
	defer c.mu.Unlock()

	end := c.end
	if end.IsZero() {
		end = time.Now()
	}
	elapsed := end.Sub(c.start).Seconds()
	if elapsed < minElapsedSeconds {
		elapsed = minElapsedSeconds
	}

	total := c.successes + c.failures
	s := Summary{
		ElapsedSeconds: elapsed,
		TotalRequests:  total,
		Successful:     c.successes,
		Failed:         c.failures,
		ThroughputRPS:  float64(total) / elapsed,
		StatusCounts:   make(map[string]int64, len(c.statusCounts)),
		BytesReceived:  c.bytesTotal,
	}
	for code, n := range c.statusCounts {
		s.StatusCounts[strconv.Itoa(code)] = n
	}
	if total > 0 {
		mean := float64(c.sumLatency) / float64(time.Millisecond) / float64(total)
		s.MeanLatencyMs = &mean
		s.AvgBytesPerResponse = float64(c.bytesTotal) / float64(total)
	}

	sorted := append([]float64(nil), c.samples...)
	sort.Float64s(sorted)
	if v, ok := percentileOf(sorted, 0.5); ok {
		s.MedianLatencyMs = &v
	}
	if v, ok := percentileOf(sorted, 0.95); ok {
		s.P95LatencyMs = &v
	}
	if v, ok := percentileOf(sorted, 0.99); ok {
		s.P99LatencyMs = &v
	}
	return s
}

// percentileOf picks the p-th percentile from an ascending sample list using
// the nearest-rank rule: index round(p*(n-1)), clamped to the valid range.
// Exact .5 midpoints round to the nearest even index.
func percentileOf(sorted []float64, p float64) (float64, bool) {
	n := len(sorted)
	if n == 0 {
		return 0, false
	}
	idx := int(math.RoundToEven(p * float64(n-1)))
	if idx < 0 {
		idx = 0
	}
	if idx >= n {
		idx = n - 1
	}
	return sorted[idx], true
}
