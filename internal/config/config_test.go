package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/firms-hotspot-service/internal/domain"
)

const (
	defaultBroker = "localhost:9092"
	testMapKey    = "abc123mapkey"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("FIRMS_MAP_KEY", testMapKey)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, testMapKey, cfg.MapKey)
	assert.Equal(t, "https://firms.modaps.eosdis.nasa.gov/api/area/csv", cfg.BaseURL)
	assert.Equal(t, "VIIRS_NOAA20_NRT", cfg.Source)
	assert.Equal(t, domain.BBox{West: 11.8, South: 35.4, East: 15.7, North: 39.0}, cfg.BBox)
	assert.Equal(t, 3, cfg.Days)
	assert.Equal(t, 60*time.Second, cfg.Timeout)
	assert.Equal(t, 30*time.Minute, cfg.RefreshWindow)
	assert.Equal(t, 64, cfg.CacheMaxEntries)
	assert.Equal(t, "Europe/Rome", cfg.Location.String())
	assert.Equal(t, uint32(5), cfg.BreakerFailures)
	assert.Equal(t, 60*time.Second, cfg.BreakerOpenTimeout)
	assert.Equal(t, 6, cfg.RefreshRateLimit)
	assert.False(t, cfg.KafkaEnabled)
	assert.Equal(t, []string{defaultBroker}, cfg.KafkaBrokers)
	assert.Equal(t, "firms-hotspots", cfg.KafkaTopic)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("FIRMS_MAP_KEY", testMapKey)
	t.Setenv("FIRMS_BASE_URL", "http://localhost:9999/csv")
	t.Setenv("FIRMS_SOURCE", "MODIS_NRT")
	t.Setenv("FIRMS_BBOX", "6.6,36.6,18.5,47.1")
	t.Setenv("FIRMS_DAYS", "7")
	t.Setenv("FIRMS_TIMEOUT", "15s")
	t.Setenv("CACHE_REFRESH_WINDOW", "5m")
	t.Setenv("CACHE_MAX_ENTRIES", "8")
	t.Setenv("LOCAL_TIMEZONE", "UTC")
	t.Setenv("BREAKER_FAILURES", "3")
	t.Setenv("BREAKER_OPEN_TIMEOUT", "2m")
	t.Setenv("REFRESH_RATE_LIMIT", "2")
	t.Setenv("KAFKA_ENABLED", "true")
	t.Setenv("KAFKA_BROKERS", "broker1:9092,broker2:9092")
	t.Setenv("KAFKA_TOPIC", "custom-hotspots")
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:9999/csv", cfg.BaseURL)
	assert.Equal(t, "MODIS_NRT", cfg.Source)
	assert.Equal(t, domain.BBox{West: 6.6, South: 36.6, East: 18.5, North: 47.1}, cfg.BBox)
	assert.Equal(t, 7, cfg.Days)
	assert.Equal(t, 15*time.Second, cfg.Timeout)
	assert.Equal(t, 5*time.Minute, cfg.RefreshWindow)
	assert.Equal(t, 8, cfg.CacheMaxEntries)
	assert.Equal(t, time.UTC.String(), cfg.Location.String())
	assert.Equal(t, uint32(3), cfg.BreakerFailures)
	assert.Equal(t, 2*time.Minute, cfg.BreakerOpenTimeout)
	assert.Equal(t, 2, cfg.RefreshRateLimit)
	assert.True(t, cfg.KafkaEnabled)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "custom-hotspots", cfg.KafkaTopic)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
}

func TestLoad_MissingMapKey(t *testing.T) {
	t.Setenv("FIRMS_MAP_KEY", "")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "FIRMS_MAP_KEY")
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		env   string
		value string
	}{
		{"SHUTDOWN_TIMEOUT", "not-a-duration"},
		{"SHUTDOWN_TIMEOUT", "-1s"},
		{"FIRMS_BBOX", "1,2,3"},
		{"FIRMS_BBOX", "15.7,35.4,11.8,39.0"},
		{"FIRMS_DAYS", "0"},
		{"FIRMS_DAYS", "11"},
		{"FIRMS_DAYS", "three"},
		{"FIRMS_TIMEOUT", "bad"},
		{"CACHE_REFRESH_WINDOW", "0s"},
		{"CACHE_MAX_ENTRIES", "-4"},
		{"BREAKER_FAILURES", "x"},
		{"BREAKER_OPEN_TIMEOUT", "-5s"},
		{"REFRESH_RATE_LIMIT", "0"},
		{"LOCAL_TIMEZONE", "Mars/Olympus_Mons"},
	}

	for _, tt := range tests {
		t.Run(tt.env+"="+tt.value, func(t *testing.T) {
			t.Setenv("FIRMS_MAP_KEY", testMapKey)
			t.Setenv(tt.env, tt.value)
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.env)
		})
	}
}

func TestLoad_KafkaDisabledUnlessTrue(t *testing.T) {
	t.Setenv("FIRMS_MAP_KEY", testMapKey)
	t.Setenv("KAFKA_ENABLED", "yes")

	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.KafkaEnabled)
}

func TestConfig_Query(t *testing.T) {
	t.Setenv("FIRMS_MAP_KEY", testMapKey)
	cfg, err := Load()
	require.NoError(t, err)

	q := cfg.Query(0)
	assert.Equal(t, 3, q.Days)
	assert.Equal(t, "VIIRS_NOAA20_NRT", q.Source)
	require.NoError(t, q.Validate())

	assert.Equal(t, 9, cfg.Query(9).Days)
}
