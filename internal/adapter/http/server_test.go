package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpadapter "github.com/abhijith-96/city-weather/internal/adapter/http"
	"github.com/abhijith-96/city-weather/internal/domain"
	"github.com/abhijith-96/city-weather/internal/location"
)

// --- mocks ---

type mockService struct {
	loc        domain.Location
	locs       []domain.Location
	snap       domain.WeatherSnapshot
	err        error
	deletedArg string
}

func (m *mockService) Create(_ context.Context, name string, lat, lon float64) (domain.Location, error) {
	if m.err != nil {
		return domain.Location{}, m.err
	}
	return domain.Location{Name: domain.NormalizeName(name), Lat: lat, Lon: lon}, nil
}

func (m *mockService) Get(_ context.Context, _ string) (domain.Location, error) {
	return m.loc, m.err
}

func (m *mockService) List(_ context.Context) ([]domain.Location, error) {
	return m.locs, m.err
}

func (m *mockService) Update(_ context.Context, name string, lat, lon *float64) (domain.Location, error) {
	if m.err != nil {
		return domain.Location{}, m.err
	}
	loc := m.loc
	if lat != nil {
		loc.Lat = *lat
	}
	if lon != nil {
		loc.Lon = *lon
	}
	return loc, nil
}

func (m *mockService) Delete(_ context.Context, name string) error {
	m.deletedArg = name
	return m.err
}

func (m *mockService) Weather(_ context.Context, _ string) (domain.Location, domain.WeatherSnapshot, error) {
	return m.loc, m.snap, m.err
}

type mockReadiness struct {
	err error
}

func (m *mockReadiness) CheckReadiness(_ context.Context) error { return m.err }

func newTestServer(svc *mockService, readyErr error) *httpadapter.Server {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return httpadapter.NewServer(":0", svc, &mockReadiness{err: readyErr}, logger)
}

func doRequest(srv *httpadapter.Server, method, path, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	srv.ServeHTTP(rec, req)
	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var env map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

// --- tests ---

func TestCreateLocation_Returns201(t *testing.T) {
	srv := newTestServer(&mockService{}, nil)

	rec := doRequest(srv, http.MethodPost, "/locations", `{"city":"Nairobi","lat":-1.29,"lon":36.82}`)

	assert.Equal(t, http.StatusCreated, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.Equal(t, "success", env["status"])
	data := env["data"].(map[string]any)
	assert.Equal(t, "Nairobi", data["city"])
	assert.Equal(t, -1.29, data["lat"])
}

func TestCreateLocation_MissingCoordinates(t *testing.T) {
	srv := newTestServer(&mockService{}, nil)

	rec := doRequest(srv, http.MethodPost, "/locations", `{"city":"Nairobi"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.Equal(t, "error", env["status"])
}

func TestCreateLocation_InvalidBody(t *testing.T) {
	srv := newTestServer(&mockService{}, nil)

	rec := doRequest(srv, http.MethodPost, "/locations", "not json")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateLocation_Duplicate(t *testing.T) {
	srv := newTestServer(&mockService{err: domain.ErrAlreadyExists}, nil)

	rec := doRequest(srv, http.MethodPost, "/locations", `{"city":"Nairobi","lat":-1.29,"lon":36.82}`)

	assert.Equal(t, http.StatusConflict, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.Equal(t, "Location already exists", env["message"])
}

func TestListLocations(t *testing.T) {
	srv := newTestServer(&mockService{locs: []domain.Location{
		{Name: "Mombasa"},
		{Name: "Nairobi"},
	}}, nil)

	rec := doRequest(srv, http.MethodGet, "/locations", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.Len(t, env["data"], 2)
}

func TestGetLocation_NotFound(t *testing.T) {
	srv := newTestServer(&mockService{err: domain.ErrNotFound}, nil)

	rec := doRequest(srv, http.MethodGet, "/locations/Atlantis", "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetWeather(t *testing.T) {
	srv := newTestServer(&mockService{
		loc:  domain.Location{Name: "Nairobi", Lat: -1.29, Lon: 36.82},
		snap: domain.WeatherSnapshot{Condition: "scattered clouds", Temperature: 21.5},
	}, nil)

	rec := doRequest(srv, http.MethodGet, "/locations/Nairobi/weather", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	data := env["data"].(map[string]any)
	assert.Equal(t, "Nairobi", data["city"])
	weather := data["weather"].(map[string]any)
	assert.Equal(t, "scattered clouds", weather["condition"])
}

func TestGetWeather_FetchFailure(t *testing.T) {
	srv := newTestServer(&mockService{err: fmt.Errorf("%w: boom", location.ErrWeatherUnavailable)}, nil)

	rec := doRequest(srv, http.MethodGet, "/locations/Nairobi/weather", "")

	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestUpdateLocation(t *testing.T) {
	srv := newTestServer(&mockService{loc: domain.Location{Name: "Nairobi", Lat: -1.29, Lon: 36.82}}, nil)

	rec := doRequest(srv, http.MethodPatch, "/locations/Nairobi", `{"lat":-1.30}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	data := env["data"].(map[string]any)
	assert.Equal(t, -1.30, data["lat"])
	assert.Equal(t, 36.82, data["lon"])
}

func TestUpdateLocation_NoCoordinates(t *testing.T) {
	srv := newTestServer(&mockService{err: fmt.Errorf("%w: at least one of lat, lon is required", location.ErrInvalidInput)}, nil)

	rec := doRequest(srv, http.MethodPatch, "/locations/Nairobi", `{}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteLocation(t *testing.T) {
	svc := &mockService{}
	srv := newTestServer(svc, nil)

	rec := doRequest(srv, http.MethodDelete, "/locations/Nairobi", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Nairobi", svc.deletedArg)
}

func TestDeleteLocation_NotFound(t *testing.T) {
	srv := newTestServer(&mockService{err: domain.ErrNotFound}, nil)

	rec := doRequest(srv, http.MethodDelete, "/locations/Atlantis", "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestInternalError_Returns500(t *testing.T) {
	srv := newTestServer(&mockService{err: errors.New("mongo blew up")}, nil)

	rec := doRequest(srv, http.MethodGet, "/locations", "")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.Equal(t, "error", env["status"])
	assert.NotContains(t, env["message"], "mongo", "internal details must not leak")
}

func TestHealthzReturns200(t *testing.T) {
	srv := newTestServer(&mockService{}, nil)

	rec := doRequest(srv, http.MethodGet, "/healthz", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.Equal(t, "healthy", env["status"])
}

func TestReadyzReturns200WhenReady(t *testing.T) {
	srv := newTestServer(&mockService{}, nil)

	rec := doRequest(srv, http.MethodGet, "/readyz", "")

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyzReturns503WhenNotReady(t *testing.T) {
	srv := newTestServer(&mockService{}, errors.New("not consuming yet"))

	rec := doRequest(srv, http.MethodGet, "/readyz", "")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.Equal(t, "not ready", env["status"])
}
