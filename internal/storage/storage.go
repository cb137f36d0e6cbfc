package storage

import (
	"context"
	"errors"
	"time"

	"github.com/obaldwin4/congenial-palm-tree/internal/domain"
)

var ErrNotFound = errors.New("not found")

// Store is the durable state kept in the data directory.
type Store interface {
	// RecordStart loads or creates the instance record and marks a new run.
	RecordStart(ctx context.Context, now time.Time) (domain.Boot, error)
	// Touch refreshes the heartbeat timestamp of the current run.
	Touch(ctx context.Context, now time.Time) error
	// RecordStop marks the current run as gracefully stopped.
	RecordStop(ctx context.Context, now time.Time) error

	// Get and Put hold small settings that must survive restarts.
	Get(ctx context.Context, key string) (string, error)
	Put(ctx context.Context, key, value string) error

	Ping(ctx context.Context) error
	Close() error
}
