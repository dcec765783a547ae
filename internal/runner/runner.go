package runner

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Result captures execution summary.
type Result struct {
	Total    int64 // completed attempts; cancelled in-flight attempts are excluded
	Errors   int64
	Duration time.Duration
}

// Runner coordinates concurrent execution with rate limiting.
type Runner struct {
	opt Options
}

func New(opt Options) *Runner {
	opt.normalize()
	return &Runner{opt: opt}
}

// Run drives the worker pool until the termination mode denies further
// attempts or ctx is cancelled. Each worker loops admission check, pacing
// wait, request; cancellation observed at any of those points exits the
// worker without counting the attempt.
func (r *Runner) Run(ctx context.Context) Result {
	start := time.Now()
	var total int64
	var errs int64

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	gate := r.opt.admissionFor(start)

	// In duration mode, pacing waits are additionally bounded by the deadline
	// so a worker parked in the limiter never issues past it. The request
	// itself uses the run context: in-flight work is not preempted by the
	// deadline, only by cancellation.
	waitCtx := ctx
	if r.opt.Duration > 0 {
		deadlineCtx, deadlineCancel := context.WithDeadline(ctx, start.Add(r.opt.Duration))
		defer deadlineCancel()
		waitCtx = deadlineCtx
	}

	var wg sync.WaitGroup
	wg.Add(r.opt.Concurrency)
	for i := 0; i < r.opt.Concurrency; i++ {
		go func() {
			defer wg.Done()
			for {
				if ctx.Err() != nil {
					return
				}
				if !gate.Admit(time.Now()) {
					return
				}
				if r.opt.Limiter != nil {
					if err := r.opt.Limiter.Acquire(waitCtx); err != nil {
						return
					}
				}
				var err error
				if r.opt.Requester != nil {
					err = r.opt.Requester.Do(ctx)
				}
				if ctx.Err() != nil {
					return
				}
				atomic.AddInt64(&total, 1)
				if err != nil {
					atomic.AddInt64(&errs, 1)
				}
			}
		}()
	}
	wg.Wait()

	return Result{
		Total:    atomic.LoadInt64(&total),
		Errors:   atomic.LoadInt64(&errs),
		Duration: time.Since(start),
	}
}
