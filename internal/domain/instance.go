package domain

import "time"

// Instance describes one deployment of the service, keyed by the data
// directory it runs against. It survives process restarts.
type Instance struct {
	ID             string
	FirstStartedAt time.Time
	LastStartedAt  time.Time
	LastSeenAt     time.Time
	StartCount     int64
	// CleanShutdown is false while the process is running and after a crash.
	CleanShutdown bool
}

// Boot is what a start observed about the previous run.
type Boot struct {
	Instance Instance
	// Previous is the record as it was before this start. Nil on first start.
	Previous *Instance
}

// UncleanRestart reports whether the previous run ended without a graceful stop.
func (b Boot) UncleanRestart() bool {
	return b.Previous != nil && !b.Previous.CleanShutdown
}

type VersionInfo struct {
	Version    string    `json:"our_version"`
	Commit     string    `json:"commit"`
	BuildDate  string    `json:"build_date"`
	GoVersion  string    `json:"go_version"`
	InstanceID string    `json:"instance_id"`
	StartCount int64     `json:"start_count"`
	StartedAt  time.Time `json:"started_at"`
}
