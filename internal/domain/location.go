package domain

import (
	"errors"
	"strings"
	"time"
)

// ErrNotFound is returned by store lookups when no location matches the name.
var ErrNotFound = errors.New("location not found")

// ErrAlreadyExists is returned when creating a location whose name is already
// taken under case-insensitive comparison.
var ErrAlreadyExists = errors.New("location already exists")

// Location is the authoritative record for a tracked place.
type Location struct {
	ID          string           `json:"id,omitempty"`
	Name        string           `json:"city"`
	Lat         float64          `json:"lat"`
	Lon         float64          `json:"lon"`
	LastWeather *WeatherSnapshot `json:"lastWeather,omitempty"`
	CreatedAt   time.Time        `json:"createdAt"`
	UpdatedAt   time.Time        `json:"updatedAt"`
}

// WeatherSnapshot is the cached point-in-time enrichment for a location.
// It is written only by the sync worker, always as a whole.
type WeatherSnapshot struct {
	Temperature float64   `json:"temperature"`
	Humidity    float64   `json:"humidity"`
	Pressure    float64   `json:"pressure"`
	WindSpeed   float64   `json:"windSpeed"`
	Condition   string    `json:"condition"`
	FetchedAt   time.Time `json:"fetchedAt"`
}

// NormalizeName trims surrounding whitespace from a location name.
// Case is preserved; case-insensitive matching is the store's concern.
func NormalizeName(name string) string {
	return strings.TrimSpace(name)
}
