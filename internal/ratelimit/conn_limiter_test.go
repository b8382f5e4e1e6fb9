package ratelimit

import (
	"errors"
	"testing"
)

func TestConnLimiter(t *testing.T) {
	l := NewConnLimiter(2)

	if err := l.Acquire(); err != nil {
		t.Fatalf("first acquire: %v", err)
	}
	if err := l.Acquire(); err != nil {
		t.Fatalf("second acquire: %v", err)
	}
	if err := l.Acquire(); !errors.Is(err, ErrTooManyConnections) {
		t.Fatalf("err=%v, want ErrTooManyConnections", err)
	}

	l.Release()
	if err := l.Acquire(); err != nil {
		t.Fatalf("acquire after release: %v", err)
	}
	if l.Active() != 2 {
		t.Fatalf("active=%d, want 2", l.Active())
	}
}

func TestConnLimiterUnlimited(t *testing.T) {
	l := NewConnLimiter(0)
	for i := 0; i < 100; i++ {
		if err := l.Acquire(); err != nil {
			t.Fatalf("acquire %d: %v", i, err)
		}
	}
}

func TestConnLimiterReleaseNeverGoesNegative(t *testing.T) {
	l := NewConnLimiter(1)
	l.Release()
	if l.Active() != 0 {
		t.Fatalf("active=%d, want 0", l.Active())
	}
	if err := l.Acquire(); err != nil {
		t.Fatalf("acquire: %v", err)
	}
}
