package runner

import (
	"context"
	"time"
)

// Requester abstracts executing a single request operation.
// Implementations record their own outcome and should return an error for
// failed requests.
type Requester interface {
	Do(ctx context.Context) error
}

// Limiter paces request issuance. Acquire blocks until the next request may
// be issued; it fails only when ctx ends before a slot becomes available.
type Limiter interface {
	Acquire(ctx context.Context) error
}

// Options configure the Runner.
type Options struct {
	Concurrency   int           // number of worker goroutines
	TotalRequests int           // request budget (0 means unlimited until duration/cancel)
	Duration      time.Duration // overall time limit; takes precedence over TotalRequests
	Limiter       Limiter       // optional pacing (nil means unlimited)
	Requester     Requester     // request executor (required)
}

func (o *Options) normalize() {
	if o.Concurrency <= 0 {
		o.Concurrency = 1
	}
	if o.TotalRequests < 0 {
		o.TotalRequests = 0
	}
	if o.Duration < 0 {
		o.Duration = 0
	}
}
