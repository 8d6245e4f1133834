package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// EventKind identifies the mutation that produced an event.
type EventKind string

const (
	EventLocationCreated EventKind = "location.created"
	EventLocationUpdated EventKind = "location.updated"
	EventLocationDeleted EventKind = "location.deleted"
)

// ErrMalformedEvent marks payloads that can never be processed, regardless of
// how often they are redelivered. Consumers must drop them without requeue.
var ErrMalformedEvent = errors.New("malformed event")

// Coordinates is a WGS-84 latitude/longitude pair.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Event is the decoded form of a queue message. Kind selects the variant:
// created and updated carry Coords, deleted carries only the city name.
// Events are immutable once published.
type Event struct {
	Kind      EventKind
	City      string
	Coords    *Coordinates // nil for location.deleted and unknown kinds
	EmittedAt time.Time
}

// Known reports whether the kind is one this consumer version understands.
// Unknown kinds are skipped, not failed, so older workers tolerate newer producers.
func (k EventKind) Known() bool {
	switch k {
	case EventLocationCreated, EventLocationUpdated, EventLocationDeleted:
		return true
	}
	return false
}

// RequiresCoordinates reports whether the kind's processing path needs a
// coordinate pair in the payload.
func (k EventKind) RequiresCoordinates() bool {
	return k == EventLocationCreated || k == EventLocationUpdated
}

// NewLocationEvent builds the event for a committed mutation of loc.
// The emission timestamp comes from the package clock.
func NewLocationEvent(kind EventKind, loc Location) Event {
	ev := Event{
		Kind:      kind,
		City:      loc.Name,
		EmittedAt: clock.Now().UTC(),
	}
	if kind.RequiresCoordinates() {
		ev.Coords = &Coordinates{Lat: loc.Lat, Lon: loc.Lon}
	}
	return ev
}

// eventEnvelope is the wire format shared with the producer:
// {"event": ..., "data": {"city", "lat", "lon"}, "timestamp": ...}.
type eventEnvelope struct {
	Event     string       `json:"event"`
	Data      eventPayload `json:"data"`
	Timestamp time.Time    `json:"timestamp"`
}

type eventPayload struct {
	City string   `json:"city"`
	Lat  *float64 `json:"lat,omitempty"`
	Lon  *float64 `json:"lon,omitempty"`
}

// EncodeEvent serializes an event into its wire envelope.
func EncodeEvent(ev Event) ([]byte, error) {
	env := eventEnvelope{
		Event:     string(ev.Kind),
		Data:      eventPayload{City: ev.City},
		Timestamp: ev.EmittedAt,
	}
	if ev.Coords != nil {
		env.Data.Lat = &ev.Coords.Lat
		env.Data.Lon = &ev.Coords.Lon
	}
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("encode %s event: %w", ev.Kind, err)
	}
	return data, nil
}

// DecodeEvent parses a queue message body into an Event. Structural problems
// (invalid JSON, empty city, missing coordinates for kinds that need them)
// are reported as ErrMalformedEvent; redelivering such a message cannot fix
// it. Unknown kinds decode without error.
func DecodeEvent(body []byte) (Event, error) {
	var env eventEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}

	if env.Event == "" {
		return Event{}, fmt.Errorf("%w: missing event kind", ErrMalformedEvent)
	}
	city := NormalizeName(env.Data.City)
	if city == "" {
		return Event{}, fmt.Errorf("%w: missing city", ErrMalformedEvent)
	}

	ev := Event{
		Kind:      EventKind(env.Event),
		City:      city,
		EmittedAt: env.Timestamp,
	}

	if ev.Kind.RequiresCoordinates() {
		if env.Data.Lat == nil || env.Data.Lon == nil {
			return Event{}, fmt.Errorf("%w: %s event without coordinates", ErrMalformedEvent, ev.Kind)
		}
	}
	if env.Data.Lat != nil && env.Data.Lon != nil {
		ev.Coords = &Coordinates{Lat: *env.Data.Lat, Lon: *env.Data.Lon}
	}

	return ev, nil
}
