// Package runner provides the core load test execution engine for volley.
//
// The runner drives a pool of worker goroutines that issue requests through
// a shared [Requester] until the run terminates:
//   - Configurable concurrency levels
//   - Rate limiting via a pluggable [Limiter]
//   - Duration-based and count-based test termination
//   - Cooperative cancellation through the run context
//
// # Basic Usage
//
// Create a runner with options and a requester implementation:
//
//	opts := runner.Options{
//		Concurrency:   10,
//		TotalRequests: 1000,
//		Limiter:       ratelimit.NewBucket(100, 10),
//		Requester:     myRequester,
//	}
//	r := runner.New(opts)
//	result := r.Run(ctx)
//
// # Requester Interface
//
// The [Requester] interface defines what a runner executes:
//
//	type Requester interface {
//		Do(ctx context.Context) error
//	}
//
// Implementations own outcome recording; the runner only counts completions
// and errors. When the run context is cancelled mid-request, the attempt is
// abandoned and not counted.
//
// # Termination
//
// A positive Duration bounds the run by wall clock: no request starts after
// the deadline, but in-flight requests finish. Otherwise TotalRequests caps
// the number of attempts exactly, with admissions consumed atomically across
// workers. With neither set, the runner executes until ctx is cancelled.
//
// # Middleware
//
// Enhance requesters with middleware:
//   - [WithLogging]: Log request failures
//
// # Error Handling
//
// The [HTTPError] type provides structured error information for HTTP requests:
//
//	if httpErr, ok := err.(*runner.HTTPError); ok {
//		fmt.Printf("Status: %d, Body: %s\n", httpErr.StatusCode, httpErr.Body)
//	}
package runner
