package middleware

import (
	"testing"
	"time"
)

func TestLimiterAllowsAfterInterval(t *testing.T) {
	now := time.Unix(1000, 0)
	l := newLimiter(time.Second)
	l.now = func() time.Time { return now }

	if !l.allow(1) {
		t.Fatalf("first update must pass")
	}
	if l.allow(1) {
		t.Fatalf("second update within the interval must be limited")
	}
	if !l.allow(2) {
		t.Fatalf("users are limited independently")
	}
	now = now.Add(time.Second)
	if !l.allow(1) {
		t.Fatalf("update after the interval must pass")
	}
}

func TestLimiterPrunes(t *testing.T) {
	now := time.Unix(1000, 0)
	l := newLimiter(time.Second)
	l.now = func() time.Time { return now }
	for id := int64(0); id < 10; id++ {
		l.allow(id)
	}
	now = now.Add(2 * time.Minute)
	l.allow(99)
	if len(l.lastSeen) != 1 {
		t.Fatalf("expected stale entries pruned, have %d", len(l.lastSeen))
	}
}
