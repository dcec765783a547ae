// Package httpclient constructs the HTTP requests and the shared client
// used by the load generator.
//
// # Request Building
//
// [NewRequestBuilder] validates the target, method, headers, and body source
// once up front; [RequestBuilder.Build] then stamps out one request per call
// with a fresh body reader, so builds are safe from concurrent workers:
//
//	builder, err := httpclient.NewRequestBuilder(cfg)
//	if err != nil {
//		return err
//	}
//	req, err := builder.Build(ctx)
//
// # HTTP Client
//
// [NewClient] creates a client tuned for sustained load: keep-alive pools
// sized to the worker count, an optional TLS verification skip for test
// endpoints, and redirects surfaced as responses rather than followed (a 301
// is recorded as a 301) unless redirect following is enabled.
package httpclient
