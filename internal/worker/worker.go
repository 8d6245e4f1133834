// Package worker runs the event consumption loop that keeps cached weather
// snapshots in sync with location mutations.
//
// Every delivery resolves to exactly one Outcome, on every code path:
// malformed payloads are dropped (retrying cannot fix a broken payload),
// transient failures are requeued for redelivery, everything else is acked.
// Unexpected internal errors, including handler panics, default to requeue
// on the assumption that an unhandled error is recoverable by retry.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/abhijith-96/city-weather/internal/domain"
	"github.com/abhijith-96/city-weather/internal/observability"
)

// Outcome is the explicit resolution of one consumed message.
type Outcome int

const (
	// OutcomeAck removes the message from the queue.
	OutcomeAck Outcome = iota
	// OutcomeRequeue rejects the message for redelivery.
	OutcomeRequeue
	// OutcomeDrop rejects the message without requeue.
	OutcomeDrop
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAck:
		return "ack"
	case OutcomeRequeue:
		return "requeue"
	case OutcomeDrop:
		return "drop"
	}
	return "unknown"
}

// Source provides the stream of queue deliveries.
type Source interface {
	Deliveries(ctx context.Context) (<-chan domain.Delivery, error)
}

// Fetcher returns current weather for coordinates.
type Fetcher interface {
	Fetch(ctx context.Context, lat, lon float64) (domain.WeatherSnapshot, error)
}

// SnapshotStore upserts the cached snapshot for a location. The bool result
// reports whether the location still exists.
type SnapshotStore interface {
	UpsertSnapshot(ctx context.Context, name string, snap domain.WeatherSnapshot) (bool, error)
}

// Worker is the long-running consumer of location events.
type Worker struct {
	source       Source
	fetcher      Fetcher
	store        SnapshotStore
	fetchTimeout time.Duration
	logger       *slog.Logger
	metrics      *observability.Metrics
	ready        atomic.Bool
}

// New creates a Worker with the given collaborators.
func New(source Source, fetcher Fetcher, store SnapshotStore, fetchTimeout time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Worker {
	return &Worker{
		source:       source,
		fetcher:      fetcher,
		store:        store,
		fetchTimeout: fetchTimeout,
		logger:       logger,
		metrics:      metrics,
	}
}

// CheckReadiness returns nil once the worker is consuming from the queue.
func (w *Worker) CheckReadiness(_ context.Context) error {
	if !w.ready.Load() {
		return fmt.Errorf("worker is not consuming yet")
	}
	return nil
}

// Run consumes deliveries until the context is cancelled and the source
// channel closes. The in-flight message always finishes its ack/reject
// before Run returns, so shutdown never strands an unresolved delivery.
func (w *Worker) Run(ctx context.Context) error {
	deliveries, err := w.source.Deliveries(ctx)
	if err != nil {
		return fmt.Errorf("start consumer: %w", err)
	}

	w.logger.Info("worker started")
	w.metrics.WorkerRunning.Set(1)
	defer w.metrics.WorkerRunning.Set(0)
	w.ready.Store(true)
	defer w.ready.Store(false)

	for d := range deliveries {
		w.metrics.EventsConsumed.Inc()
		outcome := w.handle(ctx, d.Body)
		w.resolve(d, outcome)
	}

	w.logger.Info("worker stopping", "reason", ctx.Err())
	return nil
}

// handle maps one message body to an Outcome. A panic inside processing
// resolves to requeue, matching the transient-failure policy.
func (w *Worker) handle(ctx context.Context, body []byte) (outcome Outcome) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("handler panic, requeueing message", "panic", r)
			outcome = OutcomeRequeue
		}
	}()
	return w.process(ctx, body)
}

func (w *Worker) process(ctx context.Context, body []byte) Outcome {
	ev, err := domain.DecodeEvent(body)
	if err != nil {
		w.logger.Warn("dropping malformed message", "error", err)
		return OutcomeDrop
	}

	switch ev.Kind {
	case domain.EventLocationCreated, domain.EventLocationUpdated:
		return w.syncWeather(ctx, ev)
	case domain.EventLocationDeleted:
		w.logger.Info("location deleted", "city", ev.City)
		return OutcomeAck
	default:
		w.logger.Warn("skipping unknown event kind", "kind", ev.Kind, "city", ev.City)
		return OutcomeAck
	}
}

// syncWeather fetches weather for the event's coordinates and stores the
// snapshot. Decode already guaranteed coordinates for created/updated.
func (w *Worker) syncWeather(ctx context.Context, ev domain.Event) Outcome {
	fetchCtx, cancel := context.WithTimeout(ctx, w.fetchTimeout)
	defer cancel()

	start := time.Now()
	snap, err := w.fetcher.Fetch(fetchCtx, ev.Coords.Lat, ev.Coords.Lon)
	w.metrics.FetchDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		w.metrics.FetchErrors.Inc()
		w.logger.Warn("weather fetch failed, requeueing", "city", ev.City, "error", err)
		return OutcomeRequeue
	}

	found, err := w.store.UpsertSnapshot(ctx, ev.City, snap)
	if err != nil {
		w.logger.Warn("snapshot upsert failed, requeueing", "city", ev.City, "error", err)
		return OutcomeRequeue
	}
	if !found {
		// Deleted between emission and processing; nothing to enrich.
		w.logger.Info("location no longer exists, skipping sync", "city", ev.City)
		return OutcomeAck
	}

	w.metrics.SnapshotUpserts.Inc()
	w.logger.Info("weather snapshot updated", "city", ev.City, "condition", snap.Condition)
	return OutcomeAck
}

// resolve issues the single ack/reject for a delivery.
func (w *Worker) resolve(d domain.Delivery, outcome Outcome) {
	w.metrics.HandlerOutcomes.WithLabelValues(outcome.String()).Inc()

	var err error
	switch outcome {
	case OutcomeAck:
		err = d.Ack()
	case OutcomeRequeue:
		err = d.Reject(true)
	case OutcomeDrop:
		err = d.Reject(false)
	}
	if err != nil {
		w.logger.Error("message resolution failed", "outcome", outcome.String(), "message_id", d.MessageID, "error", err)
	}
}
