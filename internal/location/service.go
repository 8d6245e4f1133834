// Package location implements the mutation API's application logic: location
// CRUD against the store, with a domain event published after every
// committed write.
package location

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/abhijith-96/city-weather/internal/domain"
	"github.com/abhijith-96/city-weather/internal/observability"
)

// ErrInvalidInput marks requests that fail validation before touching the store.
var ErrInvalidInput = errors.New("invalid input")

// ErrWeatherUnavailable marks a live weather read that failed at the
// external API boundary.
var ErrWeatherUnavailable = errors.New("weather fetch failed")

// Store is the persistence surface the service needs.
type Store interface {
	Insert(ctx context.Context, loc domain.Location) (domain.Location, error)
	FindByName(ctx context.Context, name string) (domain.Location, error)
	List(ctx context.Context) ([]domain.Location, error)
	UpdateCoordinates(ctx context.Context, name string, lat, lon float64) (domain.Location, error)
	Delete(ctx context.Context, name string) error
}

// Publisher enqueues domain events onto the durable work queue.
type Publisher interface {
	Publish(ctx context.Context, ev domain.Event) error
}

// Fetcher returns current weather for coordinates (live read path only;
// cached snapshots are the worker's job).
type Fetcher interface {
	Fetch(ctx context.Context, lat, lon float64) (domain.WeatherSnapshot, error)
}

// Service wires the store, the event publisher, and the weather fetcher.
type Service struct {
	store     Store
	publisher Publisher
	fetcher   Fetcher
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// NewService creates the location service.
func NewService(store Store, publisher Publisher, fetcher Fetcher, logger *slog.Logger, metrics *observability.Metrics) *Service {
	return &Service{
		store:     store,
		publisher: publisher,
		fetcher:   fetcher,
		logger:    logger,
		metrics:   metrics,
	}
}

// Create inserts a new location and emits location.created.
func (s *Service) Create(ctx context.Context, name string, lat, lon float64) (domain.Location, error) {
	name = domain.NormalizeName(name)
	if name == "" {
		return domain.Location{}, fmt.Errorf("%w: city name is required", ErrInvalidInput)
	}

	loc, err := s.store.Insert(ctx, domain.Location{Name: name, Lat: lat, Lon: lon})
	if err != nil {
		return domain.Location{}, err
	}

	s.publish(ctx, domain.EventLocationCreated, loc)
	return loc, nil
}

// Get returns the stored record for name.
func (s *Service) Get(ctx context.Context, name string) (domain.Location, error) {
	return s.store.FindByName(ctx, name)
}

// List returns all tracked locations.
func (s *Service) List(ctx context.Context) ([]domain.Location, error) {
	return s.store.List(ctx)
}

// Update changes a location's coordinates and emits location.updated with
// the new values. Either coordinate may be omitted; the other keeps its
// stored value.
func (s *Service) Update(ctx context.Context, name string, lat, lon *float64) (domain.Location, error) {
	if lat == nil && lon == nil {
		return domain.Location{}, fmt.Errorf("%w: at least one of lat, lon is required", ErrInvalidInput)
	}

	current, err := s.store.FindByName(ctx, name)
	if err != nil {
		return domain.Location{}, err
	}

	newLat, newLon := current.Lat, current.Lon
	if lat != nil {
		newLat = *lat
	}
	if lon != nil {
		newLon = *lon
	}

	loc, err := s.store.UpdateCoordinates(ctx, name, newLat, newLon)
	if err != nil {
		return domain.Location{}, err
	}

	s.publish(ctx, domain.EventLocationUpdated, loc)
	return loc, nil
}

// Delete removes a location and emits location.deleted.
func (s *Service) Delete(ctx context.Context, name string) error {
	name = domain.NormalizeName(name)
	if err := s.store.Delete(ctx, name); err != nil {
		return err
	}

	s.publish(ctx, domain.EventLocationDeleted, domain.Location{Name: name})
	return nil
}

// Weather returns the stored record together with a live fetch for its
// coordinates. Fetch failures map to ErrWeatherUnavailable.
func (s *Service) Weather(ctx context.Context, name string) (domain.Location, domain.WeatherSnapshot, error) {
	loc, err := s.store.FindByName(ctx, name)
	if err != nil {
		return domain.Location{}, domain.WeatherSnapshot{}, err
	}

	snap, err := s.fetcher.Fetch(ctx, loc.Lat, loc.Lon)
	if err != nil {
		return domain.Location{}, domain.WeatherSnapshot{}, fmt.Errorf("%w: %v", ErrWeatherUnavailable, err)
	}
	return loc, snap, nil
}

// publish emits an event for a committed write. A publish failure never
// reaches the HTTP caller: the store write already happened, so the request
// succeeded; the cost is a snapshot that stays stale until the next
// mutation. Logged and counted so operators can see the gap.
func (s *Service) publish(ctx context.Context, kind domain.EventKind, loc domain.Location) {
	ev := domain.NewLocationEvent(kind, loc)
	if err := s.publisher.Publish(ctx, ev); err != nil {
		s.metrics.PublishErrors.Inc()
		s.logger.Error("event publish failed", "kind", kind, "city", loc.Name, "error", err)
		return
	}
	s.metrics.EventsPublished.WithLabelValues(string(kind)).Inc()
	s.logger.Info("event published", "kind", kind, "city", loc.Name)
}
