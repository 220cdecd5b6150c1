package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore is the persistent cache. Construction opens the database and
// kicks off legacy-data migration in the background; every read/write path
// awaits Ready first so that queries issued before migration completes do
// not observe a false empty store.
type SQLiteStore struct {
	db    *sql.DB
	ready chan struct{}

	// migrationErr is only read after ready is closed.
	migrationErr error
}

// SQLiteOption customises the SQLite store.
type SQLiteOption func(*sqliteOptions)

type sqliteOptions struct {
	legacy *MemoryStore
}

// WithLegacyStore migrates the given in-memory store's live entries into
// the database on first use.
func WithLegacyStore(legacy *MemoryStore) SQLiteOption {
	return func(o *sqliteOptions) {
		o.legacy = legacy
	}
}

// NewSQLiteStore opens (or creates) the cache database at path.
func NewSQLiteStore(path string, opts ...SQLiteOption) (*SQLiteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("cache: sqlite path is required")
	}

	var options sqliteOptions
	for _, opt := range opts {
		opt(&options)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{
		db:    db,
		ready: make(chan struct{}),
	}
	if err := store.migrateSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}

	go store.importLegacy(options.legacy)

	return store, nil
}

func (s *SQLiteStore) migrateSchema() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS cache_entries (
		key TEXT PRIMARY KEY,
		payload BLOB NOT NULL,
		stored_at INTEGER NOT NULL,
		ttl_ms INTEGER NOT NULL
	);`)
	return err
}

// importLegacy copies live entries from the legacy store, then signals
// readiness. Runs once per store lifetime.
func (s *SQLiteStore) importLegacy(legacy *MemoryStore) {
	defer close(s.ready)

	if legacy == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	entries := legacy.snapshot()
	for _, entry := range entries {
		if err := s.upsert(ctx, entry); err != nil {
			s.migrationErr = fmt.Errorf("cache: legacy migration: %w", err)
			log.Printf("cache: legacy migration failed for %q: %v", entry.Key, err)
			return
		}
	}
	if len(entries) > 0 {
		log.Printf("cache: migrated %d legacy entries", len(entries))
	}
}

// Ready blocks until background migration has completed.
func (s *SQLiteStore) Ready(ctx context.Context) error {
	select {
	case <-s.ready:
		return s.migrationErr
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *SQLiteStore) Get(ctx context.Context, key string) (Entry, bool, error) {
	if err := s.Ready(ctx); err != nil {
		return Entry{}, false, err
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT payload, stored_at, ttl_ms FROM cache_entries WHERE key = ?`, key)

	var (
		payload  []byte
		storedAt int64
		ttlMs    int64
	)
	if err := row.Scan(&payload, &storedAt, &ttlMs); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Entry{}, false, nil
		}
		// An unreadable persisted row is a miss, not an error; evict it so
		// the next write starts clean.
		log.Printf("cache: evicting unreadable entry %q: %v", key, err)
		_ = s.Delete(ctx, key)
		return Entry{}, false, nil
	}

	entry := Entry{
		Key:      key,
		Payload:  payload,
		StoredAt: time.UnixMilli(storedAt).UTC(),
		TTL:      time.Duration(ttlMs) * time.Millisecond,
	}
	if entry.Expired(time.Now()) {
		_ = s.Delete(ctx, key)
		return Entry{}, false, nil
	}
	return entry, true, nil
}

func (s *SQLiteStore) Set(ctx context.Context, key string, payload []byte, ttl time.Duration) error {
	if err := s.Ready(ctx); err != nil {
		return err
	}
	return s.upsert(ctx, Entry{
		Key:      key,
		Payload:  payload,
		StoredAt: time.Now().UTC(),
		TTL:      ttl,
	})
}

func (s *SQLiteStore) upsert(ctx context.Context, entry Entry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cache_entries (key, payload, stored_at, ttl_ms)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			payload = excluded.payload,
			stored_at = excluded.stored_at,
			ttl_ms = excluded.ttl_ms
	`, entry.Key, entry.Payload, entry.StoredAt.UnixMilli(), entry.TTL.Milliseconds())
	return err
}

func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM cache_entries WHERE key = ?`, key)
	return err
}

func (s *SQLiteStore) Clear(ctx context.Context) error {
	if err := s.Ready(ctx); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM cache_entries`)
	return err
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
