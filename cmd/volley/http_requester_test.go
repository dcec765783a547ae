package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/volleyhttp/volley/internal/config"
	"github.com/volleyhttp/volley/internal/httpclient"
	"github.com/volleyhttp/volley/internal/metrics"
	"github.com/volleyhttp/volley/internal/runner"
	"github.com/volleyhttp/volley/internal/tracing"
)

func newTestRequester(t *testing.T, cfg *config.Config, collector *metrics.Collector) *httpRequester {
	t.Helper()
	builder, err := httpclient.NewRequestBuilder(cfg)
	if err != nil {
		t.Fatalf("NewRequestBuilder() failed: %v", err)
	}
	return &httpRequester{
		client:    httpclient.NewClient(cfg),
		builder:   builder,
		collector: collector,
		method:    cfg.Method,
		target:    cfg.TargetURL,
		runID:     "01TESTRUNID",
	}
}

func TestHTTPRequester_Do_Success(t *testing.T) {
	const body = "hello from the target"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, body)
	}))
	defer srv.Close()

	collector := metrics.NewCollector()
	req := newTestRequester(t, &config.Config{TargetURL: srv.URL, Method: "GET"}, collector)

	if err := req.Do(context.Background()); err != nil {
		t.Fatalf("Do() failed: %v", err)
	}

	stats := collector.Stats(time.Second)
	if stats.Total != 1 || stats.Successes != 1 || stats.Failures != 0 {
		t.Errorf("counts = %d/%d/%d, want 1/1/0", stats.Total, stats.Successes, stats.Failures)
	}
	if stats.BytesReceived != int64(len(body)) {
		t.Errorf("BytesReceived = %d, want %d", stats.BytesReceived, len(body))
	}
	if stats.StatusCounts["200"] != 1 {
		t.Errorf("StatusCounts = %v, want one 200", stats.StatusCounts)
	}
	if len(stats.Errors) != 0 {
		t.Errorf("Errors = %v, want none", stats.Errors)
	}
}

func TestHTTPRequester_Do_HTTPErrorStatus(t *testing.T) {
	const body = "upstream exploded"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, body, http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	collector := metrics.NewCollector()
	req := newTestRequester(t, &config.Config{TargetURL: srv.URL, Method: "GET"}, collector)

	err := req.Do(context.Background())
	if err == nil {
		t.Fatal("Do() returned nil for a 503 response")
	}
	var httpErr *runner.HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("Do() error = %T, want *runner.HTTPError", err)
	}
	if httpErr.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("StatusCode = %d, want 503", httpErr.StatusCode)
	}
	if httpErr.Body != body {
		t.Errorf("Body = %q, want %q", httpErr.Body, body)
	}

	stats := collector.Stats(time.Second)
	if stats.Total != 1 || stats.Failures != 1 {
		t.Errorf("counts = %d total %d failed, want 1/1", stats.Total, stats.Failures)
	}
	if stats.StatusCounts["503"] != 1 {
		t.Errorf("StatusCounts = %v, want one 503", stats.StatusCounts)
	}
	// An HTTP status is a completed exchange, not a transport error.
	if len(stats.Errors) != 0 {
		t.Errorf("Errors = %v, want none", stats.Errors)
	}
}

func TestHTTPRequester_Do_ErrorBodyTruncated(t *testing.T) {
	big := strings.Repeat("x", 5000)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, big)
	}))
	defer srv.Close()

	collector := metrics.NewCollector()
	req := newTestRequester(t, &config.Config{TargetURL: srv.URL, Method: "GET"}, collector)

	err := req.Do(context.Background())
	var httpErr *runner.HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("Do() error = %v, want *runner.HTTPError", err)
	}
	if len(httpErr.Body) != maxLoggedBodyBytes {
		t.Errorf("snippet length = %d, want %d", len(httpErr.Body), maxLoggedBodyBytes)
	}

	// The full body is still drained and counted.
	stats := collector.Stats(time.Second)
	if stats.BytesReceived != int64(len(big)) {
		t.Errorf("BytesReceived = %d, want %d", stats.BytesReceived, len(big))
	}
}

func TestHTTPRequester_Do_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	target := srv.URL
	srv.Close()

	collector := metrics.NewCollector()
	req := newTestRequester(t, &config.Config{TargetURL: target, Method: "GET"}, collector)

	err := req.Do(context.Background())
	if err == nil {
		t.Fatal("Do() returned nil against a closed server")
	}
	var httpErr *runner.HTTPError
	if errors.As(err, &httpErr) {
		t.Fatalf("Do() error = %v, want a transport error, not an HTTP status", err)
	}

	stats := collector.Stats(time.Second)
	if stats.Total != 1 || stats.Failures != 1 {
		t.Errorf("counts = %d total %d failed, want 1/1", stats.Total, stats.Failures)
	}
	if stats.BytesReceived != 0 {
		t.Errorf("BytesReceived = %d, want 0", stats.BytesReceived)
	}
	if len(stats.StatusCounts) != 0 {
		t.Errorf("StatusCounts = %v, want empty", stats.StatusCounts)
	}
	if len(stats.Errors) != 1 {
		t.Errorf("Errors = %v, want one class", stats.Errors)
	}
}

func TestHTTPRequester_Do_CancelledNotRecorded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "ok")
	}))
	defer srv.Close()

	collector := metrics.NewCollector()
	req := newTestRequester(t, &config.Config{TargetURL: srv.URL, Method: "GET"}, collector)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := req.Do(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Do() error = %v, want context.Canceled", err)
	}
	if stats := collector.Stats(time.Second); stats.Total != 0 {
		t.Errorf("Total = %d, want 0: cancelled attempts must not be recorded", stats.Total)
	}
}

func TestHTTPRequester_Do_SinkFailureAborts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "ok")
	}))
	defer srv.Close()

	sink, err := metrics.OpenCSVSink(filepath.Join(t.TempDir(), "out.csv"))
	if err != nil {
		t.Fatalf("OpenCSVSink() failed: %v", err)
	}
	collector := metrics.NewCollector()
	collector.AttachSink(sink)
	// Close the sink out from under the collector so the next row fails.
	if err := sink.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}

	var aborted error
	req := newTestRequester(t, &config.Config{TargetURL: srv.URL, Method: "GET"}, collector)
	req.abort = func(err error) { aborted = err }

	doErr := req.Do(context.Background())
	if doErr == nil {
		t.Fatal("Do() returned nil despite a failing sink")
	}
	if aborted == nil {
		t.Fatal("abort was not called on sink failure")
	}
	if !strings.Contains(aborted.Error(), "write csv row") {
		t.Errorf("abort error = %v, want a csv write error", aborted)
	}
}

func TestHTTPRequester_Do_TracePropagation(t *testing.T) {
	var traceparent string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceparent = r.Header.Get("Traceparent")
		fmt.Fprint(w, "ok")
	}))
	defer srv.Close()

	provider, err := tracing.Init(context.Background(), config.TracingConfig{
		Enabled:    true,
		Endpoint:   "localhost:4317",
		Protocol:   "grpc",
		Insecure:   true,
		SampleRate: 1,
		Propagate:  true,
	})
	if err != nil {
		t.Fatalf("tracing.Init() failed: %v", err)
	}

	collector := metrics.NewCollector()
	req := newTestRequester(t, &config.Config{TargetURL: srv.URL, Method: "GET"}, collector)
	req.tracing = provider

	if err := req.Do(context.Background()); err != nil {
		t.Fatalf("Do() failed: %v", err)
	}
	if traceparent == "" {
		t.Error("request carried no traceparent header despite propagation being enabled")
	}
}
