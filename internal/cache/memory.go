package cache

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// MemoryStore is a small synchronous in-memory store over a bounded LRU.
// It is the legacy store the SQLite store migrates from on first use, and
// the fallback store when no database path is configured.
type MemoryStore struct {
	entries *lru.Cache[string, Entry]
}

// NewMemoryStore creates a MemoryStore holding at most maxEntries payloads.
func NewMemoryStore(maxEntries int) (*MemoryStore, error) {
	if maxEntries <= 0 {
		maxEntries = 256
	}
	entries, err := lru.New[string, Entry](maxEntries)
	if err != nil {
		return nil, err
	}
	return &MemoryStore{entries: entries}, nil
}

func (s *MemoryStore) Get(ctx context.Context, key string) (Entry, bool, error) {
	if err := ctx.Err(); err != nil {
		return Entry{}, false, err
	}

	entry, ok := s.entries.Get(key)
	if !ok {
		return Entry{}, false, nil
	}
	if entry.Expired(time.Now()) {
		s.entries.Remove(key)
		return Entry{}, false, nil
	}
	return entry, true, nil
}

func (s *MemoryStore) Set(ctx context.Context, key string, payload []byte, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.entries.Add(key, Entry{
		Key:      key,
		Payload:  payload,
		StoredAt: time.Now().UTC(),
		TTL:      ttl,
	})
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.entries.Remove(key)
	return nil
}

func (s *MemoryStore) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.entries.Purge()
	return nil
}

// Ready always resolves immediately; the in-memory store has no background
// initialization.
func (s *MemoryStore) Ready(ctx context.Context) error {
	return ctx.Err()
}

func (s *MemoryStore) Close() error {
	return nil
}

// snapshot returns all live entries, used by the SQLite store's migration.
func (s *MemoryStore) snapshot() []Entry {
	now := time.Now()
	keys := s.entries.Keys()
	out := make([]Entry, 0, len(keys))
	for _, key := range keys {
		if entry, ok := s.entries.Peek(key); ok && !entry.Expired(now) {
			out = append(out, entry)
		}
	}
	return out
}
