package cache

import (
	"context"
	"time"
)

// Entry is one cached payload with its expiry bookkeeping. The store owns
// entry storage exclusively; an entry is logically expired once
// now > StoredAt+TTL and is physically removed lazily on the next read or
// by an explicit clear.
type Entry struct {
	Key      string
	Payload  []byte
	StoredAt time.Time
	TTL      time.Duration
}

// Expired reports whether the entry is logically stale at the given time.
// A zero TTL never expires.
func (e Entry) Expired(now time.Time) bool {
	return e.TTL > 0 && now.After(e.StoredAt.Add(e.TTL))
}

// Store is the contract the persistent cache (and the legacy in-memory
// store) must satisfy. Ready must be awaited before the first read: the
// persistent store may still be migrating legacy data in the background,
// and reading earlier would observe a false empty store.
type Store interface {
	Get(ctx context.Context, key string) (Entry, bool, error)
	Set(ctx context.Context, key string, payload []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
	Ready(ctx context.Context) error
	Close() error
}
