package main

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/volleyhttp/volley/internal/httpclient"
	"github.com/volleyhttp/volley/internal/metrics"
	"github.com/volleyhttp/volley/internal/runner"
	"github.com/volleyhttp/volley/internal/tracing"
)

const maxLoggedBodyBytes = 1024

// httpRequester implements runner.Requester. Every completed attempt is
// recorded exactly once; attempts interrupted by run cancellation are not
// recorded at all.
type httpRequester struct {
	client    *http.Client
	builder   *httpclient.RequestBuilder
	collector *metrics.Collector
	method    string
	target    string
	runID     string
	tracing   *tracing.Provider
	abort     func(error)
}

// Do executes one HTTP request and records the outcome. Responses with a
// status code count as completed exchanges whatever the code; transport
// failures (connect errors, timeouts, unreadable bodies) are recorded with
// no status. Latency runs from issue start to outcome determination and
// includes the body read.
func (r *httpRequester) Do(ctx context.Context) error {
	start := time.Now()

	var span trace.Span
	if r.tracing != nil {
		ctx, span = tracing.StartRequestSpan(ctx, r.tracing.Tracer(), r.method, r.target, tracing.RunID(r.runID))
	}

	req, err := r.builder.Build(ctx)
	if err != nil {
		return r.fail(ctx, span, start, err)
	}
	if r.tracing != nil && r.tracing.ShouldPropagate() {
		tracing.InjectHTTPHeaders(ctx, req.Header)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return r.fail(ctx, span, start, err)
	}

	// Drain the body to count bytes and keep the connection reusable. For
	// error responses the head is kept as a diagnostic snippet.
	status := resp.StatusCode
	var bytesReceived int64
	var snippet []byte
	if status >= 400 {
		snippet, err = io.ReadAll(io.LimitReader(resp.Body, maxLoggedBodyBytes))
		if err == nil {
			var rest int64
			rest, err = io.Copy(io.Discard, resp.Body)
			bytesReceived = int64(len(snippet)) + rest
		}
	} else {
		bytesReceived, err = io.Copy(io.Discard, resp.Body)
	}
	resp.Body.Close()
	if err != nil {
		// The response arrived but its body could not be read in full.
		return r.fail(ctx, span, start, err)
	}

	latency := time.Since(start)
	if ctx.Err() != nil {
		r.end(span, ctx.Err(), 0)
		return ctx.Err()
	}

	var resultErr error
	if status >= 400 {
		resultErr = &runner.HTTPError{StatusCode: status, Body: strings.TrimSpace(string(snippet))}
	}
	if recErr := r.collector.RecordRequest(status, latency, bytesReceived, resultErr); recErr != nil {
		r.abortRun(recErr)
		r.end(span, recErr, status)
		return recErr
	}
	r.end(span, resultErr, status)
	return resultErr
}

// fail records a transport-level failure with no status code, unless the run
// context is already cancelled, in which case the attempt is discarded.
func (r *httpRequester) fail(ctx context.Context, span trace.Span, start time.Time, reqErr error) error {
	latency := time.Since(start)
	if ctx.Err() != nil {
		r.end(span, ctx.Err(), 0)
		return ctx.Err()
	}
	if recErr := r.collector.RecordRequest(0, latency, 0, reqErr); recErr != nil {
		r.abortRun(recErr)
		r.end(span, recErr, 0)
		return recErr
	}
	r.end(span, reqErr, 0)
	return reqErr
}

func (r *httpRequester) end(span trace.Span, err error, status int) {
	if span == nil {
		return
	}
	if status > 0 {
		tracing.EndSpan(span, err, tracing.StatusCode(status))
		return
	}
	tracing.EndSpan(span, err)
}

func (r *httpRequester) abortRun(err error) {
	if r.abort != nil {
		r.abort(err)
	}
}
