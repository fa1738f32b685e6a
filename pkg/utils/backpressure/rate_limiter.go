package backpressure

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/rzzdr/options-risk-engine/pkg/utils/logger"
)

// TokenBucketLimiter refills rate tokens per second up to burst
type TokenBucketLimiter struct {
	rate       float64
	burst      int
	tokens     float64
	lastUpdate time.Time
	now        func() time.Time
	mutex      sync.Mutex
}

// NewTokenBucketLimiter creates a full bucket. Nonpositive arguments fall
// back to one token per second and a burst of one.
func NewTokenBucketLimiter(rate float64, burst int) *TokenBucketLimiter {
	return newTokenBucket(rate, burst, time.Now)
}

func newTokenBucket(rate float64, burst int, now func() time.Time) *TokenBucketLimiter {
	if rate <= 0 {
		rate = 1.0
	}
	if burst <= 0 {
		burst = 1
	}
	return &TokenBucketLimiter{
		rate:       rate,
		burst:      burst,
		tokens:     float64(burst),
		lastUpdate: now(),
		now:        now,
	}
}

// Allow checks if a single operation is allowed
func (tb *TokenBucketLimiter) Allow() bool {
	return tb.AllowN(1)
}

// AllowN takes n tokens if they are available
func (tb *TokenBucketLimiter) AllowN(n int) bool {
	tb.mutex.Lock()
	defer tb.mutex.Unlock()

	tb.refill()
	if tb.tokens >= float64(n) {
		tb.tokens -= float64(n)
		return true
	}
	return false
}

// Wait blocks until a token is available or ctx is done
func (tb *TokenBucketLimiter) Wait(ctx context.Context) error {
	for {
		if tb.Allow() {
			return nil
		}

		select {
		case <-time.After(tb.waitTime(1)):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// caller holds the mutex
func (tb *TokenBucketLimiter) refill() {
	now := tb.now()
	elapsed := now.Sub(tb.lastUpdate)
	if elapsed <= 0 {
		return
	}
	tb.tokens = math.Min(float64(tb.burst), tb.tokens+elapsed.Seconds()*tb.rate)
	tb.lastUpdate = now
}

func (tb *TokenBucketLimiter) waitTime(n int) time.Duration {
	tb.mutex.Lock()
	defer tb.mutex.Unlock()

	needed := float64(n) - tb.tokens
	if needed <= 0 {
		return 0
	}
	wait := time.Duration(needed / tb.rate * float64(time.Second))
	if wait < time.Millisecond {
		wait = time.Millisecond
	}
	return wait
}

// Limit returns the refill rate in tokens per second
func (tb *TokenBucketLimiter) Limit() float64 {
	return tb.rate
}

// Burst returns the bucket capacity
func (tb *TokenBucketLimiter) Burst() int {
	return tb.burst
}

// TokensRemaining returns the whole tokens currently available
func (tb *TokenBucketLimiter) TokensRemaining() int {
	tb.mutex.Lock()
	defer tb.mutex.Unlock()

	tb.refill()
	return int(tb.tokens)
}

// ClientLimiter keeps one token bucket per client key. Buckets idle for
// longer than the idle timeout are dropped on the next sweep.
type ClientLimiter struct {
	rate      float64
	burst     int
	idle      time.Duration
	now       func() time.Time
	buckets   map[string]*clientBucket
	lastSweep time.Time
	mutex     sync.Mutex
	log       *logger.Logger
}

type clientBucket struct {
	limiter  *TokenBucketLimiter
	lastSeen time.Time
}

// NewClientLimiter creates a per-client limiter
func NewClientLimiter(rate float64, burst int, idle time.Duration) *ClientLimiter {
	if idle <= 0 {
		idle = 10 * time.Minute
	}

	cl := &ClientLimiter{
		rate:    rate,
		burst:   burst,
		idle:    idle,
		now:     time.Now,
		buckets: make(map[string]*clientBucket),
		log:     logger.GetLogger("backpressure.client_limiter"),
	}
	cl.lastSweep = cl.now()

	cl.log.Infof("Per-client rate limiter created with rate=%.2f, burst=%d", rate, burst)
	return cl
}

// Allow takes a token from the bucket of key
func (cl *ClientLimiter) Allow(key string) bool {
	cl.mutex.Lock()
	now := cl.now()
	if now.Sub(cl.lastSweep) > cl.idle {
		cl.sweep(now)
	}
	b, ok := cl.buckets[key]
	if !ok {
		b = &clientBucket{limiter: newTokenBucket(cl.rate, cl.burst, cl.now)}
		cl.buckets[key] = b
	}
	b.lastSeen = now
	cl.mutex.Unlock()

	return b.limiter.Allow()
}

// Clients returns the number of tracked clients
func (cl *ClientLimiter) Clients() int {
	cl.mutex.Lock()
	defer cl.mutex.Unlock()
	return len(cl.buckets)
}

// caller holds the mutex
func (cl *ClientLimiter) sweep(now time.Time) {
	for key, b := range cl.buckets {
		if now.Sub(b.lastSeen) > cl.idle {
			delete(cl.buckets, key)
		}
	}
	cl.lastSweep = now
}
