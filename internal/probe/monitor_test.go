package probe

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/obaldwin4/congenial-palm-tree/internal/log"
)

func TestCheck(t *testing.T) {
	var status atomic.Int32
	status.Store(http.StatusOK)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(int(status.Load()))
	}))
	defer srv.Close()

	ctx := context.Background()
	if err := Check(ctx, srv.Client(), srv.URL, time.Second); err != nil {
		t.Fatalf("Check on 200: %v", err)
	}

	status.Store(http.StatusServiceUnavailable)
	if err := Check(ctx, srv.Client(), srv.URL, time.Second); !errors.Is(err, ErrUnexpectedStatus) {
		t.Fatalf("Check on 503 = %v, want ErrUnexpectedStatus", err)
	}
}

func TestCheckTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	err := Check(context.Background(), srv.Client(), srv.URL, 50*time.Millisecond)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Check = %v, want deadline exceeded", err)
	}
}

func TestCheckConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	if err := Check(context.Background(), nil, url, time.Second); err == nil {
		t.Fatal("expected error for closed server")
	}
}

type recordedProbe struct {
	ok       bool
	state    string
	failures int
}

type fakeRecorder struct {
	mu     sync.Mutex
	probes []recordedProbe
}

func (r *fakeRecorder) ObserveProbe(ok bool, state string, failures int, _ []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.probes = append(r.probes, recordedProbe{ok: ok, state: state, failures: failures})
}

func TestMonitorStopsWhenUnhealthy(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Two good answers, then the service breaks.
		if calls.Add(1) <= 2 {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	rec := &fakeRecorder{}
	m := &Monitor{
		URL:             srv.URL,
		Policy:          Policy{Interval: 10 * time.Millisecond, Timeout: time.Second, Retries: 3},
		Client:          srv.Client(),
		Recorder:        rec,
		Logger:          log.Discard(),
		StopOnUnhealthy: true,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := m.Run(ctx)
	if !errors.Is(err, ErrUnhealthy) {
		t.Fatalf("Run = %v, want ErrUnhealthy", err)
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.probes) != 5 {
		t.Fatalf("probes = %d, want 5 (2 ok + 3 failures)", len(rec.probes))
	}
	last := rec.probes[len(rec.probes)-1]
	if last.state != string(Unhealthy) || last.failures != 3 {
		t.Errorf("last probe = %+v", last)
	}
	if rec.probes[1].state != string(Healthy) {
		t.Errorf("second probe state = %s, want healthy", rec.probes[1].state)
	}
}

func TestMonitorReturnsOnCancel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	m := &Monitor{
		URL:    srv.URL,
		Policy: Policy{Interval: 10 * time.Millisecond, Timeout: time.Second, Retries: 1},
		Client: srv.Client(),
		Logger: log.Discard(),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	if err := m.Run(ctx); err != nil {
		t.Fatalf("Run = %v, want nil on cancel", err)
	}
}

func TestMonitorRejectsInvalidPolicy(t *testing.T) {
	m := &Monitor{URL: "http://127.0.0.1:1", Policy: Policy{}, Logger: log.Discard()}
	if err := m.Run(context.Background()); err == nil {
		t.Fatal("expected error for zero policy")
	}
}
