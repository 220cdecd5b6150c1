package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "mock", cfg.Provider)
	assert.Equal(t, 5000, cfg.ParserMaxRecords)
	assert.Equal(t, 10*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, 10*time.Minute, cfg.RemoteTTL)
	assert.Equal(t, 6*time.Hour, cfg.CSVTTL)
	assert.Equal(t, "8080", cfg.Port)
	assert.Empty(t, cfg.TrackedLocations)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("MARKET_PROVIDER", "remote")
	t.Setenv("REMOTE_API_BASE_URL", "https://api.example.com/")
	t.Setenv("REMOTE_API_KEY", "secret")
	t.Setenv("CACHE_TTL_REMOTE", "5m")
	t.Setenv("TRACKED_LOCATIONS", "austin-tx, denver-co,")
	t.Setenv("PARSER_MAX_RECORDS", "100")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "remote", cfg.Provider)
	assert.Equal(t, "https://api.example.com", cfg.RemoteBaseURL, "trailing slash is trimmed")
	assert.Equal(t, 5*time.Minute, cfg.RemoteTTL)
	assert.Equal(t, []string{"austin-tx", "denver-co"}, cfg.TrackedLocations)
	assert.Equal(t, 100, cfg.ParserMaxRecords)
}

func TestLoadRejectsUnknownProvider(t *testing.T) {
	t.Setenv("MARKET_PROVIDER", "bogus")
	_, err := Load()
	assert.Error(t, err)
}

func TestLoadRejectsBadDuration(t *testing.T) {
	t.Setenv("HTTP_TIMEOUT", "not-a-duration")
	_, err := Load()
	assert.Error(t, err)
}
