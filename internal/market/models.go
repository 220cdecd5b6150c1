package market

import (
	"strings"
	"time"
)

// Direction classifies the sign of a percent change.
type Direction string

const (
	DirectionUp      Direction = "up"
	DirectionDown    Direction = "down"
	DirectionNeutral Direction = "neutral"
)

// Capability names an operation a provider variant supports.
type Capability string

const (
	CapabilitySearch    Capability = "search"
	CapabilityDetails   Capability = "details"
	CapabilityBulkStats Capability = "bulkStats"
)

// MarketRecord identifies one housing market (a metro area, city or region).
// Created by the parser from one input row; immutable after creation.
type MarketRecord struct {
	ID      string `json:"id"`
	Label   string `json:"label"`
	City    string `json:"city"`
	State   string `json:"state"`
	ZipCode string `json:"zipCode,omitempty"`
}

// TimeSeriesPoint is a single dated sample.
type TimeSeriesPoint struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// TimeSeries is an ordered sequence of points, non-decreasing by date.
type TimeSeries []TimeSeriesPoint

// MaxDate returns the latest sample date, or the zero time for an empty series.
func (s TimeSeries) MaxDate() time.Time {
	if len(s) == 0 {
		return time.Time{}
	}
	return s[len(s)-1].Date
}

// MarketStats is the normalized output shape served to the UI. It is
// identical regardless of which provider produced it; the rendering layer
// never special-cases a provider.
type MarketStats struct {
	Record         MarketRecord `json:"record"`
	CurrentValue   float64      `json:"currentValue"`
	ReferenceValue float64      `json:"referenceValue"`
	PercentChange  float64      `json:"percentChange"`
	Direction      Direction    `json:"direction"`
	Series         TimeSeries   `json:"series"`

	// Source records which provider tier actually answered.
	Source     string    `json:"source"`
	ResolvedAt time.Time `json:"resolvedAt"`
}

// Descriptor describes a provider variant. One instance per variant;
// selected, never mutated, by the factory.
type Descriptor struct {
	ID           string       `json:"id"`
	Capabilities []Capability `json:"capabilities"`
	Configured   bool         `json:"configured"`
}

// Supports reports whether the descriptor declares the given capability.
func (d Descriptor) Supports(c Capability) bool {
	for _, got := range d.Capabilities {
		if got == c {
			return true
		}
	}
	return false
}

// NormalizeKey canonicalizes a location key for cache and single-flight
// indexing. Writes keyed this way are idempotent upserts.
func NormalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}
