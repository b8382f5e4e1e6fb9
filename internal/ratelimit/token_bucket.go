package ratelimit

import (
	"sync"
	"time"
)

// Clock abstracts time for deterministic tests.
type Clock interface {
	Now() time.Time
}

type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

// nanosPerToken is the fixed-point scale: one token is 1e9 nano-tokens, so a
// fill rate of N tokens/sec adds exactly N nano-tokens per elapsed
// nanosecond, with no float rounding.
const nanosPerToken = int64(time.Second)

// TokenBucket is a deterministic token bucket refilling at an integer rate
// of tokens per second.
type TokenBucket struct {
	mu    sync.Mutex
	clock Clock

	capacity int64 // tokens
	fillRate int64 // tokens/sec

	available int64 // nano-tokens
	last      time.Time
}

func NewTokenBucket(clock Clock, capacity, fillRate int64) *TokenBucket {
	if clock == nil {
		clock = RealClock{}
	}
	if capacity < 0 {
		capacity = 0
	}
	if fillRate < 0 {
		fillRate = 0
	}
	return &TokenBucket{
		clock:     clock,
		capacity:  capacity,
		fillRate:  fillRate,
		available: saturatingNanos(capacity),
		last:      clock.Now(),
	}
}

// Allow consumes n tokens if available. n <= 0 always succeeds.
func (b *TokenBucket) Allow(n int64) bool {
	if n <= 0 {
		return true
	}
	cost := saturatingNanos(n)

	b.mu.Lock()
	defer b.mu.Unlock()

	b.refill()
	if b.available < cost {
		return false
	}
	b.available -= cost
	return true
}

func (b *TokenBucket) refill() {
	now := b.clock.Now()
	if now.Before(b.last) {
		// Clock went backwards; move the reference point without refilling.
		b.last = now
		return
	}
	elapsed := now.Sub(b.last).Nanoseconds()
	b.last = now
	if elapsed <= 0 || b.fillRate <= 0 || b.capacity <= 0 {
		return
	}

	limit := saturatingNanos(b.capacity)
	need := limit - b.available
	if need <= 0 {
		b.available = limit
		return
	}
	// elapsed*fillRate can overflow; if the elapsed time is enough to fill
	// the bucket, clamp instead of multiplying.
	if fillTime := need / b.fillRate; fillTime <= 0 || elapsed >= fillTime {
		b.available = limit
		return
	}
	b.available += elapsed * b.fillRate
	if b.available > limit {
		b.available = limit
	}
}

const maxInt64 = int64(^uint64(0) >> 1)

func saturatingNanos(tokens int64) int64 {
	if tokens <= 0 {
		return 0
	}
	if tokens > maxInt64/nanosPerToken {
		return maxInt64
	}
	return tokens * nanosPerToken
}
