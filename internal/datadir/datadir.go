// Package datadir guards the directory that holds the service's durable
// state. The directory is expected to be a mount provided by the
// environment; it is validated, never created.
package datadir

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

var (
	ErrMissing      = errors.New("data directory does not exist")
	ErrNotDirectory = errors.New("data path is not a directory")
	ErrNotWritable  = errors.New("data directory is not writable")
	ErrMountLost    = errors.New("data directory disappeared")
)

type Dir struct {
	path string
}

// Open validates that path exists, is a directory and accepts writes.
func Open(path string) (*Dir, error) {
	if path == "" {
		return nil, fmt.Errorf("open data dir: %w", ErrMissing)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve data dir %q: %w", path, err)
	}

	d := &Dir{path: abs}
	if err := d.check(); err != nil {
		return nil, err
	}
	if err := d.probeWrite(); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Dir) Path() string {
	return d.path
}

// Join returns a path inside the data directory.
func (d *Dir) Join(elem ...string) string {
	return filepath.Join(append([]string{d.path}, elem...)...)
}

// CheckWritable re-validates the directory. It is meant for readiness checks.
func (d *Dir) CheckWritable(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := d.check(); err != nil {
		return err
	}
	return d.probeWrite()
}

func (d *Dir) check() error {
	info, err := os.Stat(d.path)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrMissing, d.path)
	}
	if err != nil {
		return fmt.Errorf("stat data dir %s: %w", d.path, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s", ErrNotDirectory, d.path)
	}
	return nil
}

// probeWrite creates, syncs and removes a scratch file.
func (d *Dir) probeWrite() error {
	f, err := os.CreateTemp(d.path, ".write-probe-*")
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrNotWritable, d.path, err)
	}
	name := f.Name()
	defer os.Remove(name)

	if _, err := f.Write([]byte("ok")); err != nil {
		f.Close()
		return fmt.Errorf("%w: %s: %v", ErrNotWritable, d.path, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("%w: %s: %v", ErrNotWritable, d.path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrNotWritable, d.path, err)
	}
	return nil
}
