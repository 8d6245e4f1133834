package mongodb

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/abhijith-96/city-weather/internal/domain"
)

func TestLocationDocument_ToDomain(t *testing.T) {
	id := primitive.NewObjectID()
	fetched := time.Date(2026, time.August, 30, 12, 0, 0, 0, time.UTC)
	doc := locationDocument{
		ID:   id,
		City: "Nairobi",
		Lat:  -1.29,
		Lon:  36.82,
		LastWeather: &snapshotDocument{
			Temperature: 21.5,
			Humidity:    60,
			Pressure:    1012,
			WindSpeed:   3.4,
			Condition:   "scattered clouds",
			FetchedAt:   fetched,
		},
		CreatedAt: fetched.Add(-time.Hour),
		UpdatedAt: fetched,
	}

	loc := doc.toDomain()

	assert.Equal(t, id.Hex(), loc.ID)
	assert.Equal(t, "Nairobi", loc.Name)
	assert.Equal(t, -1.29, loc.Lat)
	assert.Equal(t, 36.82, loc.Lon)
	require.NotNil(t, loc.LastWeather)
	assert.Equal(t, 21.5, loc.LastWeather.Temperature)
	assert.Equal(t, "scattered clouds", loc.LastWeather.Condition)
	assert.Equal(t, fetched, loc.LastWeather.FetchedAt)
}

func TestLocationDocument_ToDomain_NoSnapshot(t *testing.T) {
	loc := locationDocument{City: "Nairobi"}.toDomain()
	assert.Nil(t, loc.LastWeather)
	assert.Empty(t, loc.ID)
}

func TestNewSnapshotDocument_RoundTrip(t *testing.T) {
	snap := domain.WeatherSnapshot{
		Temperature: 18.2,
		Humidity:    72,
		Pressure:    1008,
		WindSpeed:   5.1,
		Condition:   "light rain",
		FetchedAt:   time.Date(2026, time.August, 30, 12, 0, 0, 0, time.UTC),
	}

	doc := newSnapshotDocument(snap)
	back := locationDocument{City: "x", LastWeather: &doc}.toDomain()

	require.NotNil(t, back.LastWeather)
	assert.Equal(t, snap, *back.LastWeather)
}
