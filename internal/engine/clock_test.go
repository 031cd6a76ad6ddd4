package engine

import (
	"testing"
	"time"
)

func TestManualClockFiresInOrder(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewManualClock(start)

	var fired []string
	var firedAt []time.Duration
	c.AfterFunc(3*time.Second, func() {
		fired = append(fired, "b")
		firedAt = append(firedAt, c.Now().Sub(start))
	})
	c.AfterFunc(time.Second, func() {
		fired = append(fired, "a")
		firedAt = append(firedAt, c.Now().Sub(start))
	})

	c.Advance(2 * time.Second)
	if len(fired) != 1 || fired[0] != "a" {
		t.Fatalf("after 2s fired = %v, want [a]", fired)
	}
	c.Advance(2 * time.Second)
	if len(fired) != 2 || fired[1] != "b" {
		t.Fatalf("after 4s fired = %v, want [a b]", fired)
	}
	if firedAt[0] != time.Second || firedAt[1] != 3*time.Second {
		t.Errorf("callbacks observed times %v", firedAt)
	}
	if got := c.Now().Sub(start); got != 4*time.Second {
		t.Errorf("clock at %v, want 4s", got)
	}
}

func TestManualClockStop(t *testing.T) {
	c := NewManualClock(time.Now())
	fired := false
	tm := c.AfterFunc(time.Second, func() { fired = true })

	if !tm.Stop() {
		t.Fatal("first Stop should report true")
	}
	if tm.Stop() {
		t.Error("second Stop should report false")
	}
	c.Advance(time.Minute)
	if fired {
		t.Error("stopped timer fired")
	}
	if c.Pending() != 0 {
		t.Errorf("pending = %d, want 0", c.Pending())
	}
}

func TestManualClockNestedTimer(t *testing.T) {
	c := NewManualClock(time.Now())
	count := 0
	c.AfterFunc(time.Second, func() {
		count++
		c.AfterFunc(time.Second, func() { count++ })
	})
	c.Advance(5 * time.Second)
	if count != 2 {
		t.Errorf("count = %d, want 2", count)
	}
}
