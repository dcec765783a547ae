package tracing

import (
	"context"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// StartRequestSpan starts a client span for one load-test request.
// The target URL is recorded as an attribute rather than in the span
// name to keep span names low-cardinality.
func StartRequestSpan(ctx context.Context, tracer trace.Tracer, method, target string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	if method == "" {
		method = http.MethodGet
	}
	ctx, span := tracer.Start(ctx, "HTTP "+method,
		trace.WithSpanKind(trace.SpanKindClient),
	)
	span.SetAttributes(
		attribute.String("http.request.method", method),
	)
	if target != "" {
		span.SetAttributes(attribute.String("url.full", target))
	}
	if len(attrs) > 0 {
		span.SetAttributes(attrs...)
	}
	return ctx, span
}

// StatusCode returns the response status attribute for EndSpan.
func StatusCode(code int) attribute.KeyValue {
	return attribute.Int("http.response.status_code", code)
}

// RunID returns the run identifier attribute for StartRequestSpan.
func RunID(id string) attribute.KeyValue {
	return attribute.String("volley.run_id", id)
}

// EndSpan finishes a span, recording error status if applicable.
func EndSpan(span trace.Span, err error, attrs ...attribute.KeyValue) {
	if len(attrs) > 0 {
		span.SetAttributes(attrs...)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// InjectHTTPHeaders injects W3C trace context into HTTP headers.
func InjectHTTPHeaders(ctx context.Context, headers http.Header) {
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(headers))
}
