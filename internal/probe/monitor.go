package probe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

var ErrUnhealthy = errors.New("target is unhealthy")

// Recorder receives every probe outcome. It may be nil.
type Recorder interface {
	ObserveProbe(ok bool, state string, failures int, states []string)
}

// Monitor probes a URL according to a Policy and tracks the resulting state.
type Monitor struct {
	URL             string
	Policy          Policy
	Client          *http.Client
	Recorder        Recorder
	Logger          *slog.Logger
	StopOnUnhealthy bool

	now func() time.Time
}

// Run probes immediately, then every Policy.Interval, until ctx is done
// (returns nil) or, with StopOnUnhealthy, the target becomes unhealthy
// (returns an error wrapping ErrUnhealthy).
func (m *Monitor) Run(ctx context.Context) error {
	if err := m.Policy.Validate(); err != nil {
		return fmt.Errorf("invalid probe policy: %w", err)
	}
	if m.URL == "" {
		return fmt.Errorf("probe url is required")
	}
	logger := m.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := m.now
	if now == nil {
		now = time.Now
	}
	client := m.Client
	if client == nil {
		client = &http.Client{}
	}

	tracker := NewTracker(m.Policy, now())
	logger.Info("Monitor started",
		"url", m.URL,
		"interval", m.Policy.Interval,
		"timeout", m.Policy.Timeout,
		"retries", m.Policy.Retries,
		"start_period", m.Policy.StartPeriod,
	)

	ticker := time.NewTicker(m.Policy.Interval)
	defer ticker.Stop()

	for {
		prev := tracker.State()
		err := Check(ctx, client, m.URL, m.Policy.Timeout)
		if ctx.Err() != nil {
			return nil
		}
		state := tracker.Observe(now(), err == nil)

		if m.Recorder != nil {
			m.Recorder.ObserveProbe(err == nil, string(state), tracker.Failures(), stateNames())
		}
		if err != nil {
			logger.Warn("Probe failed", "error", err, "failures", tracker.Failures(), "state", state)
		} else {
			logger.Debug("Probe succeeded", "state", state)
		}
		if state != prev {
			logger.Info("Health state changed", "from", prev, "to", state)
		}
		if state == Unhealthy && m.StopOnUnhealthy {
			return fmt.Errorf("%w: %s after %d consecutive failures", ErrUnhealthy, m.URL, tracker.Failures())
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func stateNames() []string {
	states := States()
	names := make([]string, len(states))
	for i, s := range states {
		names[i] = string(s)
	}
	return names
}
