package metrics

import (
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// Collector records per-request outcomes in a thread-safe manner. It keeps
// the exact latency of every outcome for the final summary and feeds an HDR
// histogram for cheap live percentiles while the run is still going.
type Collector struct {
	mu           sync.Mutex
	hist         *hdrhistogram.Histogram
	samples      []float64 // latency in ms, one entry per recorded outcome
	successes    int64
	failures     int64
	statusCounts map[int]int64
	bytesTotal   int64
	minLatency   time.Duration
	maxLatency   time.Duration
	sumLatency   time.Duration
	errorsByType map[string]int64
	sink         *CSVSink
	history      []DataPoint
	lastSnap     time.Time
	lastSnapN    int64
	start        time.Time
	end          time.Time
	finalized    bool
}

// Stats is a live view of the aggregated counters, suitable for a progress
// ticker or dashboard redraw loop. Percentiles come from the histogram and
// are approximate; the final report uses [Collector.Summary] instead.
type Stats struct {
	Total          int64
	Successes      int64
	Failures       int64
	MinLatency     time.Duration
	MaxLatency     time.Duration
	MeanLatency    time.Duration
	P50Latency     time.Duration
	P95Latency     time.Duration
	P99Latency     time.Duration
	Duration       time.Duration
	RequestsPerSec float64
	BytesReceived  int64
	StatusCounts   map[string]int64
	Errors         map[string]int64
}

// DataPoint is one sample of the time-series collected by
// [Collector.Snapshot]. RequestsPerSec covers the interval since the
// previous snapshot, not the whole run.
type DataPoint struct {
	ElapsedSeconds float64 `json:"elapsed_seconds"`
	RequestsPerSec float64 `json:"requests_per_sec"`
	P50LatencyMs   float64 `json:"p50_latency_ms"`
	P95LatencyMs   float64 `json:"p95_latency_ms"`
	P99LatencyMs   float64 `json:"p99_latency_ms"`
	Total          int64   `json:"total"`
	Failures       int64   `json:"failures"`
}

func NewCollector() *Collector {
	// Track latencies from 1µs up to 60s with 3 significant figures.
	h := hdrhistogram.New(1, 60_000_000, 3)
	return &Collector{
		hist:         h,
		statusCounts: make(map[int]int64),
		errorsByType: make(map[string]int64),
		start:        time.Now(),
	}
}

// AttachSink routes every subsequently recorded outcome to sink as a CSV
// row. Attach before the run starts; the sink is closed by Finalize.
func (c *Collector) AttachSink(s *CSVSink) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sink = s
}

// Start marks the beginning of the run. Elapsed time, throughput, and
// snapshot intervals are measured from this instant.
func (c *Collector) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.start = time.Now()
	c.lastSnap = time.Time{}
	c.lastSnapN = 0
}

// RecordRequest records one completed request attempt. A status of 0 means
// no HTTP response was received; reqErr carries the transport error in that
// case. Success is a status in [200, 400), anything else counts as a
// failure. The returned error is non-nil only when the attached CSV sink
// fails, which callers should treat as fatal for the run.
func (c *Collector) RecordRequest(status int, latency time.Duration, bytesReceived int64, reqErr error) error {
	latencyMs := float64(latency) / float64(time.Millisecond)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.samples = append(c.samples, latencyMs)
	c.sumLatency += latency
	if c.minLatency == 0 || latency < c.minLatency {
		c.minLatency = latency
	}
	if latency > c.maxLatency {
		c.maxLatency = latency
	}
	if latency > 0 {
		us := latency.Microseconds()
		if us < c.hist.LowestTrackableValue() {
			us = c.hist.LowestTrackableValue()
		}
		if us > c.hist.HighestTrackableValue() {
			us = c.hist.HighestTrackableValue()
		}
		_ = c.hist.RecordValue(us)
	}

	if status >= 200 && status < 400 {
		c.successes++
	} else {
		c.failures++
	}
	if status > 0 {
		c.statusCounts[status]++
	}
	c.bytesTotal += bytesReceived
	if status == 0 && reqErr != nil {
		c.errorsByType[errorLabel(reqErr)]++
	}

	// Writing inside the critical section keeps row order identical to
	// record order.
	if c.sink != nil {
		if err := c.sink.WriteOutcome(time.Now(), status, latencyMs, bytesReceived); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	return nil
}

// Stats computes and returns the current aggregated statistics.
func (c *Collector) Stats(elapsed time.Duration) Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	total := c.successes + c.failures
	stats := Stats{
		Total:         total,
		Successes:     c.successes,
		Failures:      c.failures,
		MinLatency:    c.minLatency,
		MaxLatency:    c.maxLatency,
		Duration:      elapsed,
		BytesReceived: c.bytesTotal,
	}

	if total > 0 {
		stats.MeanLatency = time.Duration(int64(c.sumLatency) / total)
	}
	if c.hist.TotalCount() > 0 {
		stats.P50Latency = time.Duration(c.hist.ValueAtQuantile(50)) * time.Microsecond
		stats.P95Latency = time.Duration(c.hist.ValueAtQuantile(95)) * time.Microsecond
		stats.P99Latency = time.Duration(c.hist.ValueAtQuantile(99)) * time.Microsecond
	}
	if elapsed > 0 && total > 0 {
		stats.RequestsPerSec = float64(total) / elapsed.Seconds()
	}

	if len(c.statusCounts) > 0 {
		stats.StatusCounts = make(map[string]int64, len(c.statusCounts))
		for code, n := range c.statusCounts {
			stats.StatusCounts[strconv.Itoa(code)] = n
		}
	}
	if len(c.errorsByType) > 0 {
		stats.Errors = make(map[string]int64, len(c.errorsByType))
		for k, v := range c.errorsByType {
			stats.Errors[k] = v
		}
	}
	return stats
}

// Snapshot appends one point of time-series data for charting. Call it on a
// fixed interval while the run is active.
func (c *Collector) Snapshot() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	total := c.successes + c.failures
	interval := now.Sub(c.lastSnap)
	if c.lastSnap.IsZero() {
		interval = now.Sub(c.start)
	}

	point := DataPoint{
		ElapsedSeconds: now.Sub(c.start).Seconds(),
		Total:          total,
		Failures:       c.failures,
	}
	if interval > 0 {
		point.RequestsPerSec = float64(total-c.lastSnapN) / interval.Seconds()
	}
	if c.hist.TotalCount() > 0 {
		point.P50LatencyMs = float64(c.hist.ValueAtQuantile(50)) / 1000
		point.P95LatencyMs = float64(c.hist.ValueAtQuantile(95)) / 1000
		point.P99LatencyMs = float64(c.hist.ValueAtQuantile(99)) / 1000
	}

	c.history = append(c.history, point)
	c.lastSnap = now
	c.lastSnapN = total
}

// History returns a copy of the snapshot series collected so far.
func (c *Collector) History() []DataPoint {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]DataPoint, len(c.history))
	copy(out, c.history)
	return out
}

// Finalize freezes the elapsed clock and closes the CSV sink, if any. It is
// safe to call more than once; only the first call has an effect.
func (c *Collector) Finalize() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.finalized {
		return nil
	}
	c.finalized = true
	c.end = time.Now()
	if c.sink != nil {
		if err := c.sink.Close(); err != nil {
			return fmt.Errorf("close csv sink: %w", err)
		}
	}
	return nil
}
