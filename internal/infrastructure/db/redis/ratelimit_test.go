package redis

import (
	"testing"
	"time"
)

func TestWindowBounds(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 30, 0, time.UTC)

	start, secs := windowBounds(now, time.Minute)
	if secs != 60 {
		t.Fatalf("expected 60s window, got %d", secs)
	}
	if start != now.Truncate(time.Minute).Unix() {
		t.Fatalf("expected minute-aligned start, got %d", start)
	}

	// Sub-second windows clamp to one second instead of dividing by zero.
	for _, window := range []time.Duration{0, 50 * time.Millisecond, 999 * time.Millisecond} {
		start, secs = windowBounds(now, window)
		if secs != 1 {
			t.Fatalf("window %v: expected 1s clamp, got %d", window, secs)
		}
		if start != now.Unix() {
			t.Fatalf("window %v: expected start %d, got %d", window, now.Unix(), start)
		}
	}
}
