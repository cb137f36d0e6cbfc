package probe

import (
	"testing"
	"time"
)

var t0 = time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)

func at(seconds int) time.Time {
	return t0.Add(time.Duration(seconds) * time.Second)
}

func TestTrackerInitialState(t *testing.T) {
	tr := NewTracker(DefaultPolicy(), t0)
	if tr.State() != Starting {
		t.Fatalf("initial state = %s, want starting", tr.State())
	}
	if tr.Failures() != 0 {
		t.Fatalf("initial failures = %d", tr.Failures())
	}
}

func TestTrackerSuccessIsHealthy(t *testing.T) {
	tr := NewTracker(DefaultPolicy(), t0)
	for i := 0; i <= 300; i += 30 {
		if got := tr.Observe(at(i), true); got != Healthy {
			t.Fatalf("t=%ds: state = %s, want healthy", i, got)
		}
	}
}

func TestTrackerIgnoresFailuresDuringStartPeriod(t *testing.T) {
	tr := NewTracker(DefaultPolicy(), t0)
	for _, s := range []int{0, 5, 10, 14} {
		if got := tr.Observe(at(s), false); got != Starting {
			t.Fatalf("t=%ds: state = %s, want starting", s, got)
		}
	}
	if tr.Failures() != 0 {
		t.Fatalf("failures = %d, want 0 during start period", tr.Failures())
	}

	// Past the start period failures count.
	tr.Observe(at(15), false)
	if tr.Failures() != 1 {
		t.Fatalf("failures = %d, want 1", tr.Failures())
	}
}

func TestTrackerLeavesStartingAfterStartPeriod(t *testing.T) {
	tr := NewTracker(DefaultPolicy(), t0)
	tr.Observe(at(0), false)

	if got := tr.Observe(at(30), false); got != Healthy {
		t.Fatalf("t=30s: state = %s, want healthy", got)
	}
	if tr.Failures() != 1 {
		t.Fatalf("failures = %d, want 1", tr.Failures())
	}
	for i := 2; i <= 4; i++ {
		if got := tr.Observe(at(30*i), false); got != Healthy {
			t.Fatalf("t=%ds: state = %s, want healthy", 30*i, got)
		}
	}
	if got := tr.Observe(at(150), false); got != Unhealthy {
		t.Fatalf("t=150s: state = %s, want unhealthy", got)
	}
}

func TestTrackerSuccessEndsStartPeriodEarly(t *testing.T) {
	tr := NewTracker(DefaultPolicy(), t0)
	tr.Observe(at(1), true)
	tr.Observe(at(2), false)
	if tr.Failures() != 1 {
		t.Fatalf("failures = %d, want 1 once started", tr.Failures())
	}
}

func TestTrackerThreshold(t *testing.T) {
	tests := []struct {
		name     string
		failures int
		want     State
	}{
		{name: "four failures stay healthy", failures: 4, want: Healthy},
		{name: "five failures are unhealthy", failures: 5, want: Unhealthy},
		{name: "six failures stay unhealthy", failures: 6, want: Unhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := NewTracker(DefaultPolicy(), t0)
			tr.Observe(at(0), true)
			var got State
			for i := 1; i <= tt.failures; i++ {
				got = tr.Observe(at(30*i), false)
			}
			if got != tt.want {
				t.Errorf("state = %s, want %s", got, tt.want)
			}
			if tr.Failures() != tt.failures {
				t.Errorf("failures = %d, want %d", tr.Failures(), tt.failures)
			}
		})
	}
}

func TestTrackerSuccessResetsFailures(t *testing.T) {
	tr := NewTracker(DefaultPolicy(), t0)
	tr.Observe(at(0), true)
	for i := 1; i <= 4; i++ {
		tr.Observe(at(30*i), false)
	}
	if got := tr.Observe(at(150), true); got != Healthy {
		t.Fatalf("state = %s, want healthy", got)
	}
	if tr.Failures() != 0 {
		t.Fatalf("failures = %d, want 0 after success", tr.Failures())
	}

	// A fresh run of four failures must not reach the threshold.
	for i := 6; i <= 9; i++ {
		tr.Observe(at(30*i), false)
	}
	if tr.State() != Healthy {
		t.Fatalf("state = %s, want healthy", tr.State())
	}
}

// Probes every 30s from t=0: healthy through 90s, failing at 120..240s,
// unhealthy exactly at 240s, healthy again at 270s.
func TestTrackerScenario(t *testing.T) {
	tr := NewTracker(DefaultPolicy(), t0)

	steps := []struct {
		sec  int
		ok   bool
		want State
	}{
		{0, true, Healthy},
		{30, true, Healthy},
		{60, true, Healthy},
		{90, true, Healthy},
		{120, false, Healthy},
		{150, false, Healthy},
		{180, false, Healthy},
		{210, false, Healthy},
		{240, false, Unhealthy},
		{270, true, Healthy},
	}

	for _, s := range steps {
		if got := tr.Observe(at(s.sec), s.ok); got != s.want {
			t.Fatalf("t=%ds ok=%v: state = %s, want %s", s.sec, s.ok, got, s.want)
		}
	}
	if tr.Failures() != 0 {
		t.Errorf("failures = %d after recovery, want 0", tr.Failures())
	}
}

func TestPolicyValidate(t *testing.T) {
	if err := DefaultPolicy().Validate(); err != nil {
		t.Fatalf("default policy invalid: %v", err)
	}

	bad := []Policy{
		{Interval: 0, Timeout: time.Second, Retries: 1},
		{Interval: time.Second, Timeout: 0, Retries: 1},
		{Interval: time.Second, Timeout: time.Second, Retries: 0},
		{Interval: time.Second, Timeout: time.Second, Retries: 1, StartPeriod: -time.Second},
	}
	for i, p := range bad {
		if err := p.Validate(); err == nil {
			t.Errorf("policy %d: expected error for %+v", i, p)
		}
	}
}
