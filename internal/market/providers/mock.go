package providers

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/homepulse/housing-market-data/internal/market"
)

// MockProvider serves a bundled fixture dataset. It is always configured
// and sits at the bottom of every fallback chain so the dashboard always
// has something to render.
type MockProvider struct {
	records []market.MarketRecord
	series  map[string]market.TimeSeries
}

// fixtureSeed drives the deterministic fixture series for one metro.
type fixtureSeed struct {
	record       market.MarketRecord
	basePrice    float64
	annualGrowth float64
}

// fixtureEnd anchors the fixture series so tests and demos are stable.
var fixtureEnd = time.Date(2024, time.June, 30, 0, 0, 0, 0, time.UTC)

const fixtureYears = 6

func NewMockProvider() *MockProvider {
	seeds := []fixtureSeed{
		{market.MarketRecord{ID: "austin-tx", Label: "Austin, TX", City: "Austin", State: "TX"}, 550000, 0.062},
		{market.MarketRecord{ID: "denver-co", Label: "Denver, CO", City: "Denver", State: "CO"}, 610000, 0.048},
		{market.MarketRecord{ID: "seattle-wa", Label: "Seattle, WA", City: "Seattle", State: "WA"}, 790000, 0.044},
		{market.MarketRecord{ID: "springfield-il", Label: "Springfield, IL", City: "Springfield", State: "IL"}, 165000, 0.031},
		{market.MarketRecord{ID: "tampa-fl", Label: "Tampa, FL", City: "Tampa", State: "FL"}, 410000, 0.071},
	}

	p := &MockProvider{series: make(map[string]market.TimeSeries, len(seeds))}
	for _, seed := range seeds {
		p.records = append(p.records, seed.record)
		p.series[seed.record.ID] = buildFixtureSeries(seed)
	}
	return p
}

// buildFixtureSeries produces monthly end-of-month samples with steady
// growth plus a small seasonal swing.
func buildFixtureSeries(seed fixtureSeed) market.TimeSeries {
	months := fixtureYears * 12
	series := make(market.TimeSeries, 0, months)
	// anchor on the first of the month: stepping back from day 30/31
	// directly would normalize through short months
	anchor := time.Date(fixtureEnd.Year(), fixtureEnd.Month(), 1, 0, 0, 0, 0, time.UTC)
	for i := months - 1; i >= 0; i-- {
		date := endOfMonth(anchor.AddDate(0, -i, 0))
		yearsBack := float64(i) / 12.0
		value := seed.basePrice * math.Pow(1+seed.annualGrowth, -yearsBack)
		value *= 1 + 0.015*math.Sin(2*math.Pi*yearsBack)
		series = append(series, market.TimeSeriesPoint{Date: date, Value: math.Round(value)})
	}
	return series
}

func endOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, time.UTC)
}

func (p *MockProvider) Descriptor() market.Descriptor {
	return market.Descriptor{
		ID: "mock",
		Capabilities: []market.Capability{
			market.CapabilitySearch,
			market.CapabilityDetails,
			market.CapabilityBulkStats,
		},
		Configured: true,
	}
}

func (p *MockProvider) IsConfigured() bool {
	return true
}

func (p *MockProvider) FetchStats(ctx context.Context, locationKey string) (market.MarketStats, error) {
	if err := ctx.Err(); err != nil {
		return market.MarketStats{}, err
	}

	key := market.NormalizeKey(locationKey)
	for _, record := range p.records {
		if market.NormalizeKey(record.ID) != key && market.NormalizeKey(record.Label) != key {
			continue
		}
		stats := market.ComputeStats(record, p.series[record.ID], market.DefaultLookback)
		return stats, nil
	}
	return market.MarketStats{}, fmt.Errorf("mock: %q: %w", locationKey, market.ErrNoData)
}

func (p *MockProvider) Search(ctx context.Context, query string) ([]market.MarketRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	q := market.NormalizeKey(query)
	var matches []market.MarketRecord
	for _, record := range p.records {
		haystack := strings.ToLower(record.Label + " " + record.City + " " + record.State + " " + record.ID)
		if q == "" || strings.Contains(haystack, q) {
			matches = append(matches, record)
		}
	}
	return matches, nil
}
