package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/sony/gobreaker"

	"github.com/homepulse/housing-market-data/internal/market"
)

const defaultRemoteTimeout = 8 * time.Second

// RemoteProvider fetches market data from a JSON API. Every request runs
// under a fixed timeout; a timeout or transport failure is recoverable and
// handed to the fallback chain, never retried here.
type RemoteProvider struct {
	name    string
	baseURL string
	apiKey  string
	timeout time.Duration
	client  *http.Client
	circuit *gobreaker.CircuitBreaker
}

// RemoteOption customises the remote provider.
type RemoteOption func(*RemoteProvider)

// WithHTTPClient injects the shared outbound HTTP client.
func WithHTTPClient(client *http.Client) RemoteOption {
	return func(p *RemoteProvider) {
		if client != nil {
			p.client = client
		}
	}
}

// WithTimeout overrides the per-request timeout.
func WithTimeout(timeout time.Duration) RemoteOption {
	return func(p *RemoteProvider) {
		if timeout > 0 {
			p.timeout = timeout
		}
	}
}

func NewRemoteProvider(baseURL, apiKey string, opts ...RemoteOption) *RemoteProvider {
	p := &RemoteProvider{
		name:    "remote",
		baseURL: baseURL,
		apiKey:  apiKey,
		timeout: defaultRemoteTimeout,
		client:  &http.Client{Timeout: defaultRemoteTimeout},
		circuit: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "remote-market-api",
			MaxRequests: 5,
			Interval:    1 * time.Minute,
			Timeout:     2 * time.Minute,
		}),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *RemoteProvider) Descriptor() market.Descriptor {
	return market.Descriptor{
		ID: p.name,
		Capabilities: []market.Capability{
			market.CapabilitySearch,
			market.CapabilityDetails,
		},
		Configured: p.IsConfigured(),
	}
}

func (p *RemoteProvider) IsConfigured() bool {
	return p.baseURL != "" && p.apiKey != ""
}

// remoteMarket is the wire shape of the upstream API.
type remoteMarket struct {
	ID      string `json:"id"`
	Label   string `json:"label"`
	City    string `json:"city"`
	State   string `json:"state"`
	ZipCode string `json:"zipCode"`
	Series  []struct {
		Date  string  `json:"date"`
		Value float64 `json:"value"`
	} `json:"series"`
}

func (m remoteMarket) toRecord() market.MarketRecord {
	return market.MarketRecord{
		ID:      m.ID,
		Label:   m.Label,
		City:    m.City,
		State:   m.State,
		ZipCode: m.ZipCode,
	}
}

func (m remoteMarket) toSeries() market.TimeSeries {
	series := make(market.TimeSeries, 0, len(m.Series))
	for _, point := range m.Series {
		date, err := time.Parse("2006-01-02", point.Date)
		if err != nil {
			continue
		}
		series = append(series, market.TimeSeriesPoint{Date: date.UTC(), Value: point.Value})
	}
	sort.Slice(series, func(i, j int) bool {
		return series[i].Date.Before(series[j].Date)
	})
	return series
}

func (p *RemoteProvider) FetchStats(ctx context.Context, locationKey string) (market.MarketStats, error) {
	if !p.IsConfigured() {
		return market.MarketStats{}, market.ErrNotConfigured
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	buildRequest := func() (*http.Request, error) {
		endpoint := fmt.Sprintf("%s/v1/markets/%s", p.baseURL, url.PathEscape(market.NormalizeKey(locationKey)))
		req, err := http.NewRequest(http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("X-API-Key", p.apiKey)
		return req, nil
	}

	resp, err := doRequestWithBreaker(ctx, p.client, p.circuit, buildRequest)
	if err != nil {
		return market.MarketStats{}, fmt.Errorf("remote: fetch %q: %w", locationKey, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return market.MarketStats{}, fmt.Errorf("remote: %q: %w", locationKey, market.ErrNoData)
	}

	var payload remoteMarket
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return market.MarketStats{}, fmt.Errorf("remote: decode %q: %w", locationKey, err)
	}

	return market.ComputeStats(payload.toRecord(), payload.toSeries(), market.DefaultLookback), nil
}

func (p *RemoteProvider) Search(ctx context.Context, query string) ([]market.MarketRecord, error) {
	if !p.IsConfigured() {
		return nil, market.ErrNotConfigured
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("q", query)
		endpoint := fmt.Sprintf("%s/v1/markets?%s", p.baseURL, values.Encode())
		req, err := http.NewRequest(http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("X-API-Key", p.apiKey)
		return req, nil
	}

	resp, err := doRequestWithBreaker(ctx, p.client, p.circuit, buildRequest)
	if err != nil {
		return nil, fmt.Errorf("remote: search %q: %w", query, err)
	}
	defer resp.Body.Close()

	var payload struct {
		Markets []remoteMarket `json:"markets"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("remote: decode search %q: %w", query, err)
	}

	records := make([]market.MarketRecord, 0, len(payload.Markets))
	for _, m := range payload.Markets {
		records = append(records, m.toRecord())
	}
	return records, nil
}
