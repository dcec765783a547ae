package runner

import (
	"sync/atomic"
	"time"
)

// admission decides whether a worker may start one more request. Admit is
// called once per attempt and must be safe for concurrent use.
type admission interface {
	Admit(now time.Time) bool
}

// admissionFor selects the termination mode. A positive duration wins over a
// request budget; with neither, the run continues until cancellation.
func (o Options) admissionFor(start time.Time) admission {
	if o.Duration > 0 {
		return &deadlineAdmission{deadline: start.Add(o.Duration)}
	}
	if o.TotalRequests > 0 {
		return newBudgetAdmission(o.TotalRequests)
	}
	return unboundedAdmission{}
}

// deadlineAdmission admits attempts started before a wall-clock deadline.
// The check is side-effect free: requests in flight when the deadline passes
// run to completion.
type deadlineAdmission struct {
	deadline time.Time
}

func (d *deadlineAdmission) Admit(now time.Time) bool {
	return now.Before(d.deadline)
}

// budgetAdmission admits a fixed number of attempts. Each admission consumes
// one unit atomically, so the total admitted equals the budget exactly no
// matter how workers interleave.
type budgetAdmission struct {
	remaining atomic.Int64
}

func newBudgetAdmission(total int) *budgetAdmission {
	b := &budgetAdmission{}
	b.remaining.Store(int64(total))
	return b
}

func (b *budgetAdmission) Admit(time.Time) bool {
	for {
		cur := b.remaining.Load()
		if cur <= 0 {
			return false
		}
		if b.remaining.CompareAndSwap(cur, cur-1) {
			return true
		}
	}
}

type unboundedAdmission struct{}

func (unboundedAdmission) Admit(time.Time) bool { return true }
