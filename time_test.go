package magenta

import (
	"math"
	"testing"
	"time"

	"github.com/wippyai/magenta-go/sys"
)

func TestCurrentTime(t *testing.T) {
	k, _ := newTestKernel(t)
	t1 := CurrentTime(k)
	if err := Nanosleep(k, sys.Time(time.Millisecond)); err != nil {
		t.Fatal(err)
	}
	t2 := CurrentTime(k)
	if t2 <= t1 {
		t.Fatalf("time did not increase: %d then %d", t1, t2)
	}
	if t2-t1 < sys.Time(time.Millisecond) {
		t.Fatalf("slept %dns, want at least 1ms", t2-t1)
	}
}

func TestDeadlineAfter(t *testing.T) {
	k, _ := newTestKernel(t)
	now := CurrentTime(k)
	if d := DeadlineAfter(k, 1000); d < now+1000 {
		t.Fatalf("deadline %d before now+1000 (%d)", d, now+1000)
	}
	if d := DeadlineAfter(k, sys.TimeInfinite-1); d != sys.TimeInfinite {
		t.Fatalf("deadline %d, want saturation", d)
	}
}

func TestTimeout(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want sys.Time
	}{
		{-time.Second, 0},
		{0, 0},
		{time.Millisecond, 1_000_000},
		{math.MaxInt64, sys.TimeInfinite},
	}
	for _, tt := range tests {
		if got := Timeout(tt.in); got != tt.want {
			t.Errorf("Timeout(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
