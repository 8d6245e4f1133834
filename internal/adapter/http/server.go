// Package http exposes the mutation/read API for locations plus the
// operational endpoints (health, readiness, metrics).
package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/abhijith-96/city-weather/internal/domain"
	"github.com/abhijith-96/city-weather/internal/location"
)

// LocationService is the application surface the handlers call into.
type LocationService interface {
	Create(ctx context.Context, name string, lat, lon float64) (domain.Location, error)
	Get(ctx context.Context, name string) (domain.Location, error)
	List(ctx context.Context) ([]domain.Location, error)
	Update(ctx context.Context, name string, lat, lon *float64) (domain.Location, error)
	Delete(ctx context.Context, name string) error
	Weather(ctx context.Context, name string) (domain.Location, domain.WeatherSnapshot, error)
}

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// Server hosts the location CRUD routes and operational endpoints.
type Server struct {
	httpServer *http.Server
	svc        LocationService
	logger     *slog.Logger
}

// NewServer creates the API server with all routes registered.
func NewServer(addr string, svc LocationService, ready ReadinessChecker, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		svc:    svc,
		logger: logger,
	}

	mux.HandleFunc("POST /locations", s.handleCreate)
	mux.HandleFunc("GET /locations", s.handleList)
	mux.HandleFunc("GET /locations/{name}", s.handleGet)
	mux.HandleFunc("GET /locations/{name}/weather", s.handleWeather)
	mux.HandleFunc("PATCH /locations/{name}", s.handleUpdate)
	mux.HandleFunc("DELETE /locations/{name}", s.handleDelete)

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", handleReady(ready))
	mux.Handle("GET /metrics", promhttp.Handler())

	return s
}

// NewOpsServer creates a server with only the operational endpoints, for
// processes that serve no API traffic (the sync worker).
func NewOpsServer(addr string, ready ReadinessChecker, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger: logger,
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", handleReady(ready))
	mux.Handle("GET /metrics", promhttp.Handler())

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

type createRequest struct {
	City string   `json:"city"`
	Lat  *float64 `json:"lat"`
	Lon  *float64 `json:"lon"`
}

type updateRequest struct {
	Lat *float64 `json:"lat"`
	Lon *float64 `json:"lon"`
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Lat == nil || req.Lon == nil {
		writeError(w, http.StatusBadRequest, "lat and lon are required")
		return
	}

	loc, err := s.svc.Create(r.Context(), req.City, *req.Lat, *req.Lon)
	if err != nil {
		s.writeServiceError(w, err, "error creating location")
		return
	}
	writeSuccess(w, http.StatusCreated, "Location added successfully", loc)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	locs, err := s.svc.List(r.Context())
	if err != nil {
		s.writeServiceError(w, err, "error fetching locations")
		return
	}
	writeSuccess(w, http.StatusOK, "Locations fetched successfully", locs)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	loc, err := s.svc.Get(r.Context(), r.PathValue("name"))
	if err != nil {
		s.writeServiceError(w, err, "error fetching location")
		return
	}
	writeSuccess(w, http.StatusOK, "Location fetched successfully", loc)
}

func (s *Server) handleWeather(w http.ResponseWriter, r *http.Request) {
	loc, snap, err := s.svc.Weather(r.Context(), r.PathValue("name"))
	if err != nil {
		s.writeServiceError(w, err, "failed to fetch weather")
		return
	}
	writeSuccess(w, http.StatusOK, "Weather fetched successfully", map[string]any{
		"city":    loc.Name,
		"lat":     loc.Lat,
		"lon":     loc.Lon,
		"weather": snap,
	})
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	loc, err := s.svc.Update(r.Context(), r.PathValue("name"), req.Lat, req.Lon)
	if err != nil {
		s.writeServiceError(w, err, "error updating location")
		return
	}
	writeSuccess(w, http.StatusOK, "Location updated successfully", loc)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if err := s.svc.Delete(r.Context(), name); err != nil {
		s.writeServiceError(w, err, "error deleting location")
		return
	}
	writeSuccess(w, http.StatusOK, "Location deleted successfully", nil)
}

// writeServiceError maps service errors onto the response envelope.
func (s *Server) writeServiceError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, location.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "Location not found")
	case errors.Is(err, domain.ErrAlreadyExists):
		writeError(w, http.StatusConflict, "Location already exists")
	case errors.Is(err, location.ErrWeatherUnavailable):
		writeError(w, http.StatusBadGateway, "Error fetching weather data from API")
	default:
		s.logger.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, fallback)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func handleReady(checker ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := checker.CheckReadiness(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

// envelope is the uniform response body: {status, code, message, data}.
type envelope struct {
	Status  string `json:"status"`
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func writeSuccess(w http.ResponseWriter, code int, message string, data any) {
	writeJSON(w, code, envelope{Status: "success", Code: code, Message: message, Data: data})
}

func writeError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, envelope{Status: "error", Code: code, Message: message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response write
}
