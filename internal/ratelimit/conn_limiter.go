package ratelimit

import (
	"errors"
	"sync"
)

var ErrTooManyConnections = errors.New("too many connections")

// ConnLimiter bounds the number of concurrently open signaling connections
// for the whole process. A max of <= 0 means unlimited.
type ConnLimiter struct {
	mu     sync.Mutex
	max    int
	active int
}

func NewConnLimiter(max int) *ConnLimiter {
	return &ConnLimiter{max: max}
}

// Acquire reserves a connection slot. The caller must Release exactly once
// for every successful Acquire.
func (l *ConnLimiter) Acquire() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.max > 0 && l.active >= l.max {
		return ErrTooManyConnections
	}
	l.active++
	return nil
}

func (l *ConnLimiter) Release() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.active > 0 {
		l.active--
	}
}

// Active returns the number of currently reserved slots.
func (l *ConnLimiter) Active() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.active
}
