package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestBucketBurstDrainsWithoutWaiting(t *testing.T) {
	bucket := NewBucket(10, 10)

	start := time.Now()
	for i := 0; i < 10; i++ {
		if err := bucket.Acquire(context.Background()); err != nil {
			t.Fatalf("Acquire(%d) error = %v", i, err)
		}
	}
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Errorf("draining a full bucket took %v, want near-immediate", elapsed)
	}
}

func TestBucketBlocksWhenEmpty(t *testing.T) {
	bucket := NewBucket(10, 10)

	for i := 0; i < 10; i++ {
		if err := bucket.Acquire(context.Background()); err != nil {
			t.Fatalf("Acquire(%d) error = %v", i, err)
		}
	}

	// Refill rate is 10/s, so the next token is ~100ms away.
	start := time.Now()
	if err := bucket.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	elapsed := time.Since(start)
	if elapsed < 80*time.Millisecond {
		t.Errorf("empty-bucket Acquire returned after %v, want >= ~100ms", elapsed)
	}
	if elapsed > time.Second {
		t.Errorf("empty-bucket Acquire returned after %v, want ~100ms", elapsed)
	}
}

func TestBucketDefaultCapacity(t *testing.T) {
	tests := []struct {
		rate     float64
		capacity int
		want     int
	}{
		{rate: 5.5, capacity: 0, want: 5},
		{rate: 0.5, capacity: 0, want: 1},
		{rate: 0, capacity: 0, want: 1},
		{rate: 3, capacity: 20, want: 20},
	}

	for _, tt := range tests {
		got := NewBucket(tt.rate, tt.capacity).Capacity()
		if got != tt.want {
			t.Errorf("NewBucket(%g, %d).Capacity() = %d, want %d", tt.rate, tt.capacity, got, tt.want)
		}
	}
}

func TestBucketRefillCappedAtCapacity(t *testing.T) {
	bucket := NewBucket(1000, 5)

	for i := 0; i < 5; i++ {
		if err := bucket.Acquire(context.Background()); err != nil {
			t.Fatalf("Acquire(%d) error = %v", i, err)
		}
	}

	// Long idle accrues far more than capacity; only capacity may be stored.
	time.Sleep(50 * time.Millisecond)

	bucket.mu.Lock()
	bucket.refillLocked(time.Now())
	tokens := bucket.tokens
	bucket.mu.Unlock()

	if tokens != 5 {
		t.Errorf("tokens after idle refill = %d, want capacity 5", tokens)
	}
}

func TestBucketAcquireHonorsCancellation(t *testing.T) {
	bucket := NewBucket(0.1, 1)
	if err := bucket.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- bucket.Acquire(ctx)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Acquire() error = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Acquire() did not return after cancellation")
	}
}

func TestBucketTokensNeverExceedCapacityUnderLoad(t *testing.T) {
	bucket := NewBucket(500, 3)
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	done := make(chan struct{})
	for i := 0; i < 4; i++ {
		go func() {
			for ctx.Err() == nil {
				if err := bucket.Acquire(ctx); err != nil {
					return
				}
			}
		}()
	}
	go func() {
		<-ctx.Done()
		close(done)
	}()
	<-done

	bucket.mu.Lock()
	defer bucket.mu.Unlock()
	if bucket.tokens < 0 || bucket.tokens > bucket.capacity {
		t.Errorf("tokens = %d, want within [0, %d]", bucket.tokens, bucket.capacity)
	}
}
