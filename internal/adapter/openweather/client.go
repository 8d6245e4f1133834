// Package openweather fetches current weather from the OpenWeather API and
// normalizes it into the domain snapshot shape.
package openweather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/jonboulle/clockwork"

	"github.com/abhijith-96/city-weather/internal/config"
	"github.com/abhijith-96/city-weather/internal/domain"
)

// Client calls the OpenWeather current-weather endpoint. It carries no retry
// policy; retry and backoff belong to the caller.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	clock      clockwork.Clock
	logger     *slog.Logger
}

// NewClient creates an OpenWeather client bounded by the configured fetch timeout.
func NewClient(cfg *config.Config, logger *slog.Logger) *Client {
	return &Client{
		apiKey:     cfg.OpenWeatherAPIKey,
		baseURL:    cfg.OpenWeatherBaseURL,
		httpClient: &http.Client{Timeout: cfg.FetchTimeout},
		clock:      clockwork.NewRealClock(),
		logger:     logger,
	}
}

// Fetch returns the current weather snapshot for the given coordinates.
// Network failures, non-2xx statuses, and payloads missing the expected
// fields all fail the fetch; the caller decides whether to retry.
func (c *Client) Fetch(ctx context.Context, lat, lon float64) (domain.WeatherSnapshot, error) {
	params := url.Values{
		"lat":   {strconv.FormatFloat(lat, 'f', -1, 64)},
		"lon":   {strconv.FormatFloat(lon, 'f', -1, 64)},
		"appid": {c.apiKey},
		"units": {"metric"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return domain.WeatherSnapshot{}, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.WeatherSnapshot{}, fmt.Errorf("weather request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return domain.WeatherSnapshot{}, fmt.Errorf("openweather API error: status %d: %s", resp.StatusCode, body)
	}

	var owResp response
	if err := json.NewDecoder(resp.Body).Decode(&owResp); err != nil {
		return domain.WeatherSnapshot{}, fmt.Errorf("decode response: %w", err)
	}
	if len(owResp.Weather) == 0 {
		return domain.WeatherSnapshot{}, fmt.Errorf("openweather response missing weather conditions")
	}

	return domain.WeatherSnapshot{
		Temperature: owResp.Main.Temp,
		Humidity:    owResp.Main.Humidity,
		Pressure:    owResp.Main.Pressure,
		WindSpeed:   owResp.Wind.Speed,
		Condition:   owResp.Weather[0].Description,
		FetchedAt:   c.clock.Now().UTC(),
	}, nil
}

// OpenWeather API response types.

type response struct {
	Weather []condition `json:"weather"`
	Main    mainBlock   `json:"main"`
	Wind    windBlock   `json:"wind"`
}

type condition struct {
	Description string `json:"description"`
}

type mainBlock struct {
	Temp     float64 `json:"temp"`
	Humidity float64 `json:"humidity"`
	Pressure float64 `json:"pressure"`
}

type windBlock struct {
	Speed float64 `json:"speed"`
}
