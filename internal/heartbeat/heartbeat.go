package heartbeat

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Toucher persists a liveness timestamp.
type Toucher interface {
	Touch(ctx context.Context, now time.Time) error
}

// Recorder receives heartbeat outcomes. It may be nil.
type Recorder interface {
	HeartbeatSucceeded(at time.Time)
	HeartbeatFailed()
}

// Scheduler periodically records that the process is still alive, so the
// next start can tell how long ago a crashed run was last seen.
type Scheduler struct {
	store    Toucher
	schedule string
	recorder Recorder
	now      func() time.Time
	logger   *slog.Logger

	mu      sync.Mutex
	cron    *cron.Cron
	running bool
}

func NewScheduler(store Toucher, schedule string, recorder Recorder, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		store:    store,
		schedule: schedule,
		recorder: recorder,
		now:      time.Now,
		logger:   logger.With("component", "heartbeat"),
		cron:     cron.New(),
	}
}

// Start schedules the heartbeat job. The scheduler stops when ctx is done.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("heartbeat scheduler already running")
	}
	if _, err := cron.ParseStandard(s.schedule); err != nil {
		return fmt.Errorf("invalid heartbeat schedule %q: %w", s.schedule, err)
	}
	if _, err := s.cron.AddFunc(s.schedule, func() { s.Beat(ctx) }); err != nil {
		return fmt.Errorf("failed to schedule heartbeat: %w", err)
	}

	s.cron.Start()
	s.running = true
	s.logger.Info("heartbeat scheduler started", "schedule", s.schedule)

	go func() {
		<-ctx.Done()
		s.Stop()
	}()
	return nil
}

// Beat records one heartbeat immediately.
func (s *Scheduler) Beat(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	now := s.now()
	if err := s.store.Touch(ctx, now); err != nil {
		s.logger.Error("heartbeat failed", "error", err)
		if s.recorder != nil {
			s.recorder.HeartbeatFailed()
		}
		return
	}
	s.logger.Debug("heartbeat recorded", "at", now.UTC())
	if s.recorder != nil {
		s.recorder.HeartbeatSucceeded(now)
	}
}

// Stop waits for a running heartbeat to finish. Safe to call more than once.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	<-s.cron.Stop().Done()
	s.running = false
	s.logger.Info("heartbeat scheduler stopped")
}

func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// NextRun returns the next scheduled heartbeat, or nil when not running.
func (s *Scheduler) NextRun() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return nil
	}
	next := entries[0].Next
	return &next
}
