//go:build firms

package firms

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/firms-hotspot-service/internal/observability"
)

// These tests hit the real FIRMS API and require a valid FIRMS_MAP_KEY env var.
// Run with: go test -tags=firms ./internal/adapter/firms/ -v -count=1

func smokeClient(t *testing.T) *Client {
	t.Helper()
	key := os.Getenv("FIRMS_MAP_KEY")
	if key == "" {
		t.Fatal("FIRMS_MAP_KEY must be set to run smoke tests")
	}
	return NewClient(ClientConfig{MapKey: key, Timeout: 60 * time.Second},
		observability.NewMetricsForTesting(), discardLogger())
}

func TestSmoke_Fetch(t *testing.T) {
	c := smokeClient(t)

	payload, err := c.Fetch(context.Background(), testQuery())
	require.NoError(t, err)

	assert.Contains(t, payload.URL, "****")
	assert.Contains(t, string(payload.Body), "latitude", "FIRMS CSV header expected")
}

func TestSmoke_CachedFetch(t *testing.T) {
	c := smokeClient(t)
	cache := NewCache(c, CacheConfig{
		MapKey: os.Getenv("FIRMS_MAP_KEY"),
		Clock:  clockwork.NewRealClock(),
	}, observability.NewMetricsForTesting(), discardLogger())

	// First call: cache miss → real API call.
	d1, err := cache.Get(context.Background(), testQuery(), false)
	require.NoError(t, err)

	// Second call: cache hit → no API call.
	d2, err := cache.Get(context.Background(), testQuery(), false)
	require.NoError(t, err)
	assert.Equal(t, d1, d2)
	assert.Equal(t, int64(1), cache.FetchCount())
}
