package providers

import (
	"fmt"
	"net/http"

	"github.com/homepulse/housing-market-data/internal/market"
)

// Provider variant identifiers, the only values the factory dispatches on.
const (
	VariantMock   = "mock"
	VariantCSV    = "csv"
	VariantRemote = "remote"
)

// ChainConfig selects the active provider and carries per-variant settings.
type ChainConfig struct {
	Active string // VariantMock, VariantCSV or VariantRemote

	CSVPath       string
	MaxRecords    int
	RemoteBaseURL string
	RemoteAPIKey  string

	HTTPClient *http.Client
}

// Chain bundles the built providers with direct handles on the variants
// other surfaces need (upload routes talk to the CSV provider directly).
type Chain struct {
	Providers []market.Provider
	CSV       *CSVFileProvider
}

// BuildChain constructs the fallback chain for the enumerated configuration
// value: remote -> csv -> mock, csv -> mock, or mock alone. Selection is by
// this value only, never by runtime type inspection of a provider.
func BuildChain(cfg ChainConfig) (Chain, error) {
	csvProvider := NewCSVFileProvider(cfg.CSVPath, cfg.MaxRecords)
	mockProvider := NewMockProvider()

	switch cfg.Active {
	case VariantMock, "":
		return Chain{
			Providers: []market.Provider{mockProvider},
			CSV:       csvProvider,
		}, nil
	case VariantCSV:
		return Chain{
			Providers: []market.Provider{csvProvider, mockProvider},
			CSV:       csvProvider,
		}, nil
	case VariantRemote:
		remote := NewRemoteProvider(cfg.RemoteBaseURL, cfg.RemoteAPIKey,
			WithHTTPClient(cfg.HTTPClient))
		return Chain{
			Providers: []market.Provider{remote, csvProvider, mockProvider},
			CSV:       csvProvider,
		}, nil
	}
	return Chain{}, fmt.Errorf("unknown provider %q; use mock, csv or remote", cfg.Active)
}
