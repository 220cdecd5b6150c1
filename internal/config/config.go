package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type AppConfig struct {
	// Provider selects the active data source: mock, csv or remote. The
	// fallback chain is derived from this value.
	Provider string

	// CSVDataPath optionally points the bulk provider at a bundled file.
	CSVDataPath string

	// ParserMaxRecords caps the records kept per parse (first N).
	ParserMaxRecords int

	// Remote API settings.
	RemoteBaseURL string
	RemoteAPIKey  string
	HTTPTimeout   time.Duration

	// CacheDBPath locates the persistent cache; empty keeps the cache
	// in memory only.
	CacheDBPath string

	// Cache TTLs per provider tier.
	RemoteTTL time.Duration
	CSVTTL    time.Duration
	MockTTL   time.Duration

	// LegacyCacheEntries bounds the in-memory (legacy) store.
	LegacyCacheEntries int

	// TrackedLocations are refreshed periodically by the scheduler.
	TrackedLocations []string
	RefreshInterval  time.Duration

	Port string
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}
	cfg := &AppConfig{}

	cfg.Provider = strings.ToLower(getenvDefault("MARKET_PROVIDER", "mock"))
	switch cfg.Provider {
	case "mock", "csv", "remote":
	default:
		return nil, fmt.Errorf("invalid MARKET_PROVIDER %q: use mock, csv or remote", cfg.Provider)
	}

	cfg.CSVDataPath = os.Getenv("CSV_DATA_PATH")
	cfg.ParserMaxRecords = getenvInt("PARSER_MAX_RECORDS", 5000)

	cfg.RemoteBaseURL = strings.TrimRight(os.Getenv("REMOTE_API_BASE_URL"), "/")
	cfg.RemoteAPIKey = os.Getenv("REMOTE_API_KEY")

	timeout, err := getenvDuration("HTTP_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	cfg.HTTPTimeout = timeout

	cfg.CacheDBPath = os.Getenv("CACHE_DB_PATH")
	cfg.LegacyCacheEntries = getenvInt("LEGACY_CACHE_ENTRIES", 256)

	if cfg.RemoteTTL, err = getenvDuration("CACHE_TTL_REMOTE", "10m"); err != nil {
		return nil, err
	}
	if cfg.CSVTTL, err = getenvDuration("CACHE_TTL_CSV", "6h"); err != nil {
		return nil, err
	}
	if cfg.MockTTL, err = getenvDuration("CACHE_TTL_MOCK", "24h"); err != nil {
		return nil, err
	}

	if locations := os.Getenv("TRACKED_LOCATIONS"); locations != "" {
		for _, loc := range strings.Split(locations, ",") {
			if loc = strings.TrimSpace(loc); loc != "" {
				cfg.TrackedLocations = append(cfg.TrackedLocations, loc)
			}
		}
	}
	if cfg.RefreshInterval, err = getenvDuration("REFRESH_INTERVAL", "30m"); err != nil {
		return nil, err
	}

	cfg.Port = getenvDefault("PORT", "8080")

	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getenvDuration(key, def string) (time.Duration, error) {
	v := getenvDefault(key, def)
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
