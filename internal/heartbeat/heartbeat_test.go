package heartbeat

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/obaldwin4/congenial-palm-tree/internal/log"
)

type fakeStore struct {
	mu      sync.Mutex
	touches []time.Time
	err     error
}

func (f *fakeStore) Touch(_ context.Context, now time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.touches = append(f.touches, now)
	return nil
}

func (f *fakeStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.touches)
}

type fakeRecorder struct {
	mu        sync.Mutex
	successes int
	failures  int
}

func (r *fakeRecorder) HeartbeatSucceeded(time.Time) {
	r.mu.Lock()
	r.successes++
	r.mu.Unlock()
}

func (r *fakeRecorder) HeartbeatFailed() {
	r.mu.Lock()
	r.failures++
	r.mu.Unlock()
}

func TestBeat(t *testing.T) {
	store := &fakeStore{}
	rec := &fakeRecorder{}
	s := NewScheduler(store, "@every 1m", rec, log.Discard())
	fixed := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	s.Beat(context.Background())

	if store.count() != 1 || !store.touches[0].Equal(fixed) {
		t.Fatalf("touches = %v", store.touches)
	}
	if rec.successes != 1 || rec.failures != 0 {
		t.Errorf("recorder = %+v", rec)
	}
}

func TestBeatFailure(t *testing.T) {
	store := &fakeStore{err: errors.New("disk full")}
	rec := &fakeRecorder{}
	s := NewScheduler(store, "@every 1m", rec, log.Discard())

	s.Beat(context.Background())

	if rec.failures != 1 || rec.successes != 0 {
		t.Errorf("recorder = %+v", rec)
	}
}

func TestBeatSkippedAfterCancel(t *testing.T) {
	store := &fakeStore{}
	s := NewScheduler(store, "@every 1m", nil, log.Discard())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s.Beat(ctx)

	if store.count() != 0 {
		t.Errorf("expected no touch after cancel, got %d", store.count())
	}
}

func TestStartInvalidSchedule(t *testing.T) {
	s := NewScheduler(&fakeStore{}, "whenever", nil, log.Discard())
	if err := s.Start(context.Background()); err == nil {
		t.Fatal("expected error for invalid schedule")
	}
	if s.IsRunning() {
		t.Error("scheduler must not run after failed start")
	}
}

func TestStartRunsAndStops(t *testing.T) {
	store := &fakeStore{}
	s := NewScheduler(store, "@every 1s", nil, log.Discard())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := s.Start(ctx); err == nil {
		t.Error("expected error on second Start")
	}
	if s.NextRun() == nil {
		t.Error("expected a next run while running")
	}

	deadline := time.Now().Add(5 * time.Second)
	for store.count() == 0 && time.Now().Before(deadline) {
		time.Sleep(50 * time.Millisecond)
	}
	if store.count() == 0 {
		t.Fatal("heartbeat never ran")
	}

	s.Stop()
	s.Stop()
	if s.IsRunning() {
		t.Error("scheduler still running after Stop")
	}
	if s.NextRun() != nil {
		t.Error("expected no next run after Stop")
	}
}
