package probe

import (
	"sync"
	"time"
)

type State string

const (
	Starting  State = "starting"
	Healthy   State = "healthy"
	Unhealthy State = "unhealthy"
)

// States lists every State, in lifecycle order.
func States() []State {
	return []State{Starting, Healthy, Unhealthy}
}

// Tracker is the health state machine fed with probe outcomes.
//
// Failures inside the start period are not counted, unless a probe has
// already succeeded. Starting only lasts for the start period: the first
// counted failure below the threshold moves to Healthy. Any success resets
// the failure count and moves to Healthy. Reaching Policy.Retries
// consecutive counted failures moves to Unhealthy. There is no terminal
// state.
type Tracker struct {
	policy    Policy
	startedAt time.Time

	mu        sync.Mutex
	state     State
	failures  int
	succeeded bool
}

func NewTracker(policy Policy, startedAt time.Time) *Tracker {
	return &Tracker{
		policy:    policy,
		startedAt: startedAt,
		state:     Starting,
	}
}

// Observe feeds the outcome of a probe that completed at the given time
// and returns the resulting state.
func (t *Tracker) Observe(at time.Time, ok bool) State {
	t.mu.Lock()
	defer t.mu.Unlock()

	if ok {
		t.succeeded = true
		t.failures = 0
		t.state = Healthy
		return t.state
	}

	if !t.succeeded && at.Sub(t.startedAt) < t.policy.StartPeriod {
		return t.state
	}

	t.failures++
	switch {
	case t.failures >= t.policy.Retries:
		t.state = Unhealthy
	case t.state == Starting:
		t.state = Healthy
	}
	return t.state
}

func (t *Tracker) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Failures returns the current count of consecutive counted failures.
func (t *Tracker) Failures() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.failures
}
