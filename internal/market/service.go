package market

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/vmihailenco/msgpack/v5"
	"golang.org/x/sync/singleflight"

	"github.com/homepulse/housing-market-data/internal/cache"
)

// DefaultTTL applies when no per-provider TTL is configured.
const DefaultTTL = 15 * time.Minute

// TTLConfig maps provider IDs to cache lifetimes.
type TTLConfig struct {
	PerProvider map[string]time.Duration
	Default     time.Duration
}

func (c TTLConfig) forSource(source string) time.Duration {
	if ttl, ok := c.PerProvider[source]; ok && ttl > 0 {
		return ttl
	}
	if c.Default > 0 {
		return c.Default
	}
	return DefaultTTL
}

// Service orchestrates the provider fallback chain over the persistent
// cache. It is the single place implementing the shared provider behavior:
// cache consultation, per-key single-flight de-duplication, write-through,
// and tier fallback. Variants plug in underneath and stay cache-unaware.
type Service struct {
	store  cache.Store
	chain  []Provider
	ttls   TTLConfig
	flight singleflight.Group
}

// NewService builds a Service over an ordered fallback chain. The chain is
// consulted front to back; the first provider that answers wins.
func NewService(store cache.Store, chain []Provider, ttls TTLConfig) *Service {
	return &Service{
		store: store,
		chain: chain,
		ttls:  ttls,
	}
}

// Ready resolves once the underlying store has finished any background
// migration. Query paths await this before their first read.
func (s *Service) Ready(ctx context.Context) error {
	return s.store.Ready(ctx)
}

// Descriptors returns the descriptors of the active chain, front tier first.
func (s *Service) Descriptors() []Descriptor {
	out := make([]Descriptor, 0, len(s.chain))
	for _, p := range s.chain {
		out = append(out, p.Descriptor())
	}
	return out
}

// GetStats resolves normalized stats for a location key. Unless
// forceRefresh is set, an unexpired cache entry answers immediately.
// Concurrent callers for the same key, forced or not, share one underlying
// fetch.
func (s *Service) GetStats(ctx context.Context, locationKey string, forceRefresh bool) (MarketStats, error) {
	key := NormalizeKey(locationKey)
	if key == "" {
		return MarketStats{}, fmt.Errorf("empty location key: %w", ErrNoData)
	}

	if !forceRefresh {
		if stats, ok := s.cached(ctx, key); ok {
			return stats, nil
		}
	}

	result, err, _ := s.flight.Do(key, func() (interface{}, error) {
		// another flight may have just written while we queued
		if !forceRefresh {
			if stats, ok := s.cached(ctx, key); ok {
				return stats, nil
			}
		}

		stats, err := s.resolve(ctx, key)
		if err != nil {
			return nil, err
		}
		s.writeThrough(ctx, key, stats)
		return stats, nil
	})
	if err != nil {
		return MarketStats{}, err
	}
	return result.(MarketStats), nil
}

// Series resolves stats for a key and slices its series to the window.
func (s *Service) Series(ctx context.Context, locationKey string, window Window) (TimeSeries, error) {
	stats, err := s.GetStats(ctx, locationKey, false)
	if err != nil {
		return nil, err
	}
	return FilterWindow(stats.Series, window), nil
}

// Search consults the chain front to back and returns the first tier's
// non-empty result.
func (s *Service) Search(ctx context.Context, query string) ([]MarketRecord, error) {
	var lastErr error
	for _, p := range s.chain {
		if !p.IsConfigured() || !p.Descriptor().Supports(CapabilitySearch) {
			continue
		}
		records, err := p.Search(ctx, query)
		if err != nil {
			lastErr = err
			continue
		}
		if len(records) > 0 {
			return records, nil
		}
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return nil, nil
}

// ClearCache empties the persistent store.
func (s *Service) ClearCache(ctx context.Context) error {
	return s.store.Clear(ctx)
}

// cached returns an unexpired, decodable cache entry for the key. A
// payload that fails to decode is evicted and reported as a miss.
func (s *Service) cached(ctx context.Context, key string) (MarketStats, bool) {
	if err := s.store.Ready(ctx); err != nil {
		log.Printf("market: cache not ready: %v", err)
		return MarketStats{}, false
	}

	entry, ok, err := s.store.Get(ctx, key)
	if err != nil || !ok {
		return MarketStats{}, false
	}

	var stats MarketStats
	if err := msgpack.Unmarshal(entry.Payload, &stats); err != nil {
		log.Printf("market: evicting corrupt cache entry %q: %v", key, err)
		_ = s.store.Delete(ctx, key)
		return MarketStats{}, false
	}

	// msgpack decodes timestamps in the local zone; normalize so cached
	// and freshly resolved stats compare equal
	stats.ResolvedAt = stats.ResolvedAt.UTC()
	for i := range stats.Series {
		stats.Series[i].Date = stats.Series[i].Date.UTC()
	}
	return stats, true
}

// resolve walks the fallback chain in order. Not-configured tiers and
// recoverable errors skip to the next tier; nothing is retried.
func (s *Service) resolve(ctx context.Context, key string) (MarketStats, error) {
	var lastErr error
	for _, p := range s.chain {
		id := p.Descriptor().ID
		if !p.IsConfigured() {
			log.Printf("market: provider %s not configured for %q; trying next tier", id, key)
			continue
		}

		stats, err := p.FetchStats(ctx, key)
		if err != nil {
			if !errors.Is(err, ErrNoData) && !errors.Is(err, ErrNotConfigured) {
				log.Printf("market: provider %s failed for %q: %v; trying next tier", id, key, err)
			}
			lastErr = err
			continue
		}

		stats.Source = id
		// Round(0) drops the monotonic reading so the value survives a
		// cache round-trip unchanged
		stats.ResolvedAt = time.Now().UTC().Round(0)
		return stats, nil
	}

	if lastErr != nil {
		return MarketStats{}, lastErr
	}
	return MarketStats{}, fmt.Errorf("%q: %w", key, ErrNoData)
}

func (s *Service) writeThrough(ctx context.Context, key string, stats MarketStats) {
	payload, err := msgpack.Marshal(stats)
	if err != nil {
		log.Printf("market: encode cache entry %q: %v", key, err)
		return
	}

	ttl := s.ttls.forSource(stats.Source)
	if err := s.store.Set(ctx, key, payload, ttl); err != nil {
		log.Printf("market: write-through %q: %v", key, err)
	}
}
