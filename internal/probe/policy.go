// Package probe models how an orchestrator judges the service's health:
// periodic HTTP probes with a timeout, a grace period after start, and a
// number of consecutive failures tolerated before the instance is unhealthy.
package probe

import (
	"errors"
	"fmt"
	"time"
)

type Policy struct {
	Interval    time.Duration
	Timeout     time.Duration
	Retries     int
	StartPeriod time.Duration
}

// DefaultPolicy matches the deployment's healthcheck: every 30s, 10s
// timeout, 5 retries, 15s start period.
func DefaultPolicy() Policy {
	return Policy{
		Interval:    30 * time.Second,
		Timeout:     10 * time.Second,
		Retries:     5,
		StartPeriod: 15 * time.Second,
	}
}

func (p Policy) Validate() error {
	var errs []error
	if p.Interval <= 0 {
		errs = append(errs, fmt.Errorf("interval must be positive, got %s", p.Interval))
	}
	if p.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("timeout must be positive, got %s", p.Timeout))
	}
	if p.Retries < 1 {
		errs = append(errs, fmt.Errorf("retries must be at least 1, got %d", p.Retries))
	}
	if p.StartPeriod < 0 {
		errs = append(errs, fmt.Errorf("start period must not be negative, got %s", p.StartPeriod))
	}
	return errors.Join(errs...)
}
