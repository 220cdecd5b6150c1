package providers

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"

	"github.com/homepulse/housing-market-data/internal/csvdata"
	"github.com/homepulse/housing-market-data/internal/market"
)

// CSVFileProvider serves bulk time-series data from an uploaded or bundled
// CSV file. Data arrives either as a configured file path loaded lazily on
// first use, or as raw text pushed through Ingest by the upload surface.
type CSVFileProvider struct {
	mu         sync.RWMutex
	path       string
	maxRecords int
	dataset    *csvdata.Result
	loadErr    error
	loaded     bool
}

func NewCSVFileProvider(path string, maxRecords int) *CSVFileProvider {
	return &CSVFileProvider{path: path, maxRecords: maxRecords}
}

func (p *CSVFileProvider) Descriptor() market.Descriptor {
	return market.Descriptor{
		ID: "csv",
		Capabilities: []market.Capability{
			market.CapabilitySearch,
			market.CapabilityBulkStats,
		},
		Configured: p.IsConfigured(),
	}
}

// IsConfigured reports whether the provider has data or a path it could
// load data from.
func (p *CSVFileProvider) IsConfigured() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.dataset != nil {
		return true
	}
	if p.path == "" {
		return false
	}
	_, err := os.Stat(p.path)
	return err == nil
}

// Ingest replaces the provider's dataset with parsed upload text. Returns
// the record count and per-row diagnostics; ErrFormatUnrecognized rejects
// the upload without touching existing data.
func (p *CSVFileProvider) Ingest(raw string) (int, []csvdata.RowError, error) {
	result, err := csvdata.Parse(raw, csvdata.Options{MaxRecords: p.maxRecords})
	if err != nil {
		return 0, nil, err
	}

	p.mu.Lock()
	p.dataset = result
	p.loaded = true
	p.loadErr = nil
	p.mu.Unlock()

	log.Printf("csv provider: ingested %d records (%s format, %d diagnostics)",
		len(result.Records), result.Format, len(result.Diagnostics))
	return len(result.Records), result.Diagnostics, nil
}

// ensureLoaded lazily parses the configured file once.
func (p *CSVFileProvider) ensureLoaded() (*csvdata.Result, error) {
	p.mu.RLock()
	if p.loaded {
		dataset, loadErr := p.dataset, p.loadErr
		p.mu.RUnlock()
		return dataset, loadErr
	}
	p.mu.RUnlock()

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.loaded {
		return p.dataset, p.loadErr
	}
	p.loaded = true

	if p.path == "" {
		p.loadErr = market.ErrNotConfigured
		return nil, p.loadErr
	}

	raw, err := os.ReadFile(p.path)
	if err != nil {
		p.loadErr = fmt.Errorf("csv provider: read %s: %w", p.path, err)
		return nil, p.loadErr
	}

	result, err := csvdata.Parse(string(raw), csvdata.Options{MaxRecords: p.maxRecords})
	if err != nil {
		p.loadErr = fmt.Errorf("csv provider: parse %s: %w", p.path, err)
		return nil, p.loadErr
	}

	p.dataset = result
	log.Printf("csv provider: loaded %d records from %s (%s format)",
		len(result.Records), p.path, result.Format)
	return p.dataset, nil
}

func (p *CSVFileProvider) FetchStats(ctx context.Context, locationKey string) (market.MarketStats, error) {
	if err := ctx.Err(); err != nil {
		return market.MarketStats{}, err
	}

	dataset, err := p.ensureLoaded()
	if err != nil {
		return market.MarketStats{}, err
	}
	if dataset == nil || len(dataset.Records) == 0 {
		return market.MarketStats{}, market.ErrNotConfigured
	}

	key := market.NormalizeKey(locationKey)
	for _, record := range dataset.Records {
		if market.NormalizeKey(record.ID) != key && market.NormalizeKey(record.Label) != key {
			continue
		}

		stats := market.ComputeStats(record, dataset.Series[record.ID], market.DefaultLookback)

		// simple-format inputs may carry an authoritative percent change
		if change, ok := dataset.PercentChange[record.ID]; ok {
			stats.PercentChange = change
			switch {
			case change > 0:
				stats.Direction = market.DirectionUp
			case change < 0:
				stats.Direction = market.DirectionDown
			default:
				stats.Direction = market.DirectionNeutral
			}
		}
		return stats, nil
	}
	return market.MarketStats{}, fmt.Errorf("csv: %q: %w", locationKey, market.ErrNoData)
}

func (p *CSVFileProvider) Search(ctx context.Context, query string) ([]market.MarketRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dataset, err := p.ensureLoaded()
	if err != nil || dataset == nil {
		return nil, err
	}

	q := market.NormalizeKey(query)
	var matches []market.MarketRecord
	for _, record := range dataset.Records {
		haystack := strings.ToLower(record.Label + " " + record.City + " " + record.State + " " + record.ID)
		if q == "" || strings.Contains(haystack, q) {
			matches = append(matches, record)
		}
	}
	return matches, nil
}
