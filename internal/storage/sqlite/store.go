package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/obaldwin4/congenial-palm-tree/internal/domain"
	"github.com/obaldwin4/congenial-palm-tree/internal/storage"
	_ "modernc.org/sqlite"
)

// FileName is the database file kept inside the data directory.
const FileName = "backend.db"

const schema = `
CREATE TABLE IF NOT EXISTS instance (
	singleton INTEGER PRIMARY KEY CHECK (singleton = 1),
	id TEXT NOT NULL,
	first_started_at INTEGER NOT NULL,
	last_started_at INTEGER NOT NULL,
	last_seen_at INTEGER NOT NULL,
	start_count INTEGER NOT NULL,
	clean_shutdown INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS settings (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL,
	updated_at INTEGER NOT NULL
);
`

// Store provides SQLite-backed instance and settings persistence.
type Store struct {
	sqlDB *sql.DB
	newID func() string
}

type Option func(*Store)

// WithIDGenerator overrides how the instance ID is generated on first start.
func WithIDGenerator(fn func() string) Option {
	return func(s *Store) { s.newID = fn }
}

var _ storage.Store = (*Store)(nil)

// Open opens the SQLite database at path and applies the schema.
// Opening the same file repeatedly is safe.
func Open(path string, opts ...Option) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(FULL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	s := &Store{
		sqlDB: sqlDB,
		newID: func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close releases the SQLite connection.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	var one int
	if err := s.sqlDB.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
		return fmt.Errorf("ping sqlite db: %w", err)
	}
	return nil
}

func (s *Store) RecordStart(ctx context.Context, now time.Time) (domain.Boot, error) {
	if err := ctx.Err(); err != nil {
		return domain.Boot{}, err
	}
	now = now.UTC()

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Boot{}, fmt.Errorf("begin start tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	prev, err := scanInstance(tx.QueryRowContext(ctx, selectInstance))
	var boot domain.Boot
	switch {
	case errors.Is(err, storage.ErrNotFound):
		boot.Instance = domain.Instance{
			ID:             s.newID(),
			FirstStartedAt: now,
			LastStartedAt:  now,
			LastSeenAt:     now,
			StartCount:     1,
		}
		_, err = tx.ExecContext(ctx, `
INSERT INTO instance (
	singleton,
	id,
	first_started_at,
	last_started_at,
	last_seen_at,
	start_count,
	clean_shutdown
) VALUES (1, ?, ?, ?, ?, ?, 0)
`,
			boot.Instance.ID,
			now.UnixMilli(),
			now.UnixMilli(),
			now.UnixMilli(),
			boot.Instance.StartCount,
		)
		if err != nil {
			return domain.Boot{}, fmt.Errorf("insert instance: %w", err)
		}
	case err != nil:
		return domain.Boot{}, fmt.Errorf("load instance: %w", err)
	default:
		previous := prev
		boot.Previous = &previous
		boot.Instance = prev
		boot.Instance.LastStartedAt = now
		boot.Instance.LastSeenAt = now
		boot.Instance.StartCount = prev.StartCount + 1
		boot.Instance.CleanShutdown = false
		_, err = tx.ExecContext(ctx, `
UPDATE instance
SET last_started_at = ?, last_seen_at = ?, start_count = ?, clean_shutdown = 0
WHERE singleton = 1
`,
			now.UnixMilli(),
			now.UnixMilli(),
			boot.Instance.StartCount,
		)
		if err != nil {
			return domain.Boot{}, fmt.Errorf("update instance: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return domain.Boot{}, fmt.Errorf("commit start tx: %w", err)
	}
	return boot, nil
}

func (s *Store) Touch(ctx context.Context, now time.Time) error {
	return s.updateInstance(ctx, "touch instance",
		"UPDATE instance SET last_seen_at = ? WHERE singleton = 1", now.UTC().UnixMilli())
}

func (s *Store) RecordStop(ctx context.Context, now time.Time) error {
	return s.updateInstance(ctx, "stop instance",
		"UPDATE instance SET last_seen_at = ?, clean_shutdown = 1 WHERE singleton = 1", now.UTC().UnixMilli())
}

func (s *Store) updateInstance(ctx context.Context, op, query string, args ...any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	res, err := s.sqlDB.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	var value string
	err := s.sqlDB.QueryRowContext(ctx, "SELECT value FROM settings WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("get setting %q: %w", key, storage.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("get setting %q: %w", key, err)
	}
	return value, nil
}

func (s *Store) Put(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("setting key is required")
	}
	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
`, key, value, time.Now().UTC().UnixMilli())
	if err != nil {
		return fmt.Errorf("put setting %q: %w", key, err)
	}
	return nil
}

const selectInstance = `
SELECT
	id,
	first_started_at,
	last_started_at,
	last_seen_at,
	start_count,
	clean_shutdown
FROM instance
WHERE singleton = 1
`

func scanInstance(row *sql.Row) (domain.Instance, error) {
	var (
		inst                    domain.Instance
		firstMs, lastMs, seenMs int64
		clean                   int
	)
	err := row.Scan(&inst.ID, &firstMs, &lastMs, &seenMs, &inst.StartCount, &clean)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Instance{}, storage.ErrNotFound
	}
	if err != nil {
		return domain.Instance{}, err
	}
	inst.FirstStartedAt = time.UnixMilli(firstMs).UTC()
	inst.LastStartedAt = time.UnixMilli(lastMs).UTC()
	inst.LastSeenAt = time.UnixMilli(seenMs).UTC()
	inst.CleanShutdown = clean != 0
	return inst, nil
}
