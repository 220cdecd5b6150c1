package market

import (
	"context"
	"errors"
)

var (
	// ErrNoData is returned when no provider in the chain can answer for a
	// location key.
	ErrNoData = errors.New("no market data for location")

	// ErrNotConfigured marks a provider that is missing required
	// configuration; the chain skips to the next tier.
	ErrNotConfigured = errors.New("provider not configured")
)

// Provider abstracts a market data source (bundled fixtures, bulk uploaded
// time-series files, remote APIs). Implementations fetch and normalize raw
// data; caching and de-duplication live in the Service, composed once
// rather than duplicated per variant.
type Provider interface {
	Descriptor() Descriptor
	IsConfigured() bool

	// FetchStats resolves normalized stats for a location key, bypassing
	// any cache. Returns ErrNotConfigured or ErrNoData as appropriate.
	FetchStats(ctx context.Context, locationKey string) (MarketStats, error)

	// Search returns the records matching a free-text query. Providers
	// without the search capability return an empty slice.
	Search(ctx context.Context, query string) ([]MarketRecord, error)
}
