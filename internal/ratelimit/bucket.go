// Package ratelimit provides the token bucket that paces request issuance.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

const (
	// minSleep bounds the shortest pacing nap so tight loops at high rates
	// do not spin on the clock.
	minSleep = time.Millisecond
	// idleSleep is the retry interval when no refill rate is configured.
	idleSleep = 10 * time.Millisecond
)

// Bucket is a token bucket. Acquire removes one token, blocking until one is
// available; tokens refill continuously at a fixed rate up to the bucket's
// capacity. A full bucket lets a burst of up to capacity requests through
// without waiting.
type Bucket struct {
	mu         sync.Mutex
	rate       float64
	capacity   int
	tokens     int
	lastRefill time.Time
}

// NewBucket creates a bucket refilling at rate tokens per second. A capacity
// below 1 selects the default of max(1, floor(rate)). The bucket starts full.
func NewBucket(rate float64, capacity int) *Bucket {
	if capacity < 1 {
		capacity = int(rate)
		if capacity < 1 {
			capacity = 1
		}
	}
	return &Bucket{
		rate:       rate,
		capacity:   capacity,
		tokens:     capacity,
		lastRefill: time.Now(),
	}
}

// Capacity returns the maximum number of tokens the bucket holds.
func (b *Bucket) Capacity() int {
	return b.capacity
}

// Acquire blocks until a token is available, consumes it, and returns nil.
// It only fails when ctx is cancelled before a token could be taken.
func (b *Bucket) Acquire(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		b.mu.Lock()
		b.refillLocked(time.Now())
		if b.tokens >= 1 {
			b.tokens--
			b.mu.Unlock()
			return nil
		}
		wait := b.napLocked()
		b.mu.Unlock()

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// refillLocked credits whole tokens accrued since the last refill. Fractional
// accruals are preserved by leaving lastRefill untouched until at least one
// full token is available.
func (b *Bucket) refillLocked(now time.Time) {
	if b.rate <= 0 {
		return
	}
	accrued := int(now.Sub(b.lastRefill).Seconds() * b.rate)
	if accrued < 1 {
		return
	}
	b.tokens += accrued
	if b.tokens > b.capacity {
		b.tokens = b.capacity
	}
	b.lastRefill = now
}

// napLocked returns how long to wait before the next token could exist.
func (b *Bucket) napLocked() time.Duration {
	if b.rate <= 0 {
		return idleSleep
	}
	wait := time.Duration(float64(1-b.tokens) / b.rate * float64(time.Second))
	if wait < minSleep {
		wait = minSleep
	}
	return wait
}
