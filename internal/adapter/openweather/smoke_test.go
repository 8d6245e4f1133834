//go:build openweather

package openweather

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// These tests hit the real OpenWeather API and require a valid
// OPENWEATHER_API_KEY env var.
// Run with: go test -tags=openweather ./internal/adapter/openweather/ -v -count=1

func smokeClient(t *testing.T) *Client {
	t.Helper()
	key := os.Getenv("OPENWEATHER_API_KEY")
	if key == "" {
		t.Fatal("OPENWEATHER_API_KEY must be set to run smoke tests")
	}
	return &Client{
		apiKey:     key,
		baseURL:    "https://api.openweathermap.org/data/2.5/weather",
		httpClient: &http.Client{Timeout: 10 * time.Second},
		clock:      clockwork.NewRealClock(),
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func TestSmoke_Fetch(t *testing.T) {
	c := smokeClient(t)

	// Nairobi coordinates
	snap, err := c.Fetch(context.Background(), -1.29, 36.82)
	require.NoError(t, err)

	assert.NotEmpty(t, snap.Condition)
	assert.Greater(t, snap.Pressure, 800.0)
	assert.False(t, snap.FetchedAt.IsZero())
}

func TestSmoke_Fetch_BadKey(t *testing.T) {
	c := smokeClient(t)
	c.apiKey = "invalid"

	_, err := c.Fetch(context.Background(), -1.29, 36.82)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}
