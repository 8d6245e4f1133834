// Package rabbitmq owns the AMQP connection shared by a process and adapts
// the broker's delivery model to the domain's event contract.
package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/abhijith-96/city-weather/internal/config"
	"github.com/abhijith-96/city-weather/internal/domain"
	"github.com/google/uuid"
)

// Bus holds the process-wide connection and channel for the durable work
// queue. Construct one per process at startup and Close it as the final
// shutdown step; nothing else in the codebase touches AMQP handles.
type Bus struct {
	conn   *amqp.Connection
	ch     *amqp.Channel
	queue  string
	tag    string
	logger *slog.Logger
}

// Connect dials the broker, opens a channel, and declares the durable work
// queue. A failure at any step is fatal for the caller; the service refuses
// to start without its queue.
func Connect(cfg *config.Config, logger *slog.Logger) (*Bus, error) {
	conn, err := amqp.Dial(cfg.AMQPURL)
	if err != nil {
		return nil, fmt.Errorf("amqp dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("amqp channel: %w", err)
	}

	// Prefetch 1 keeps consumption serial, which preserves per-name event
	// order without any per-name sequencing machinery.
	if err := ch.Qos(1, 0, false); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("amqp qos: %w", err)
	}

	var args amqp.Table
	if cfg.DeadLetterExchange != "" {
		// Rejected-without-requeue messages and any broker-side delivery
		// limit route here instead of being discarded.
		args = amqp.Table{"x-dead-letter-exchange": cfg.DeadLetterExchange}
	}
	if _, err := ch.QueueDeclare(cfg.QueueName, true, false, false, false, args); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare queue %s: %w", cfg.QueueName, err)
	}

	return &Bus{
		conn:   conn,
		ch:     ch,
		queue:  cfg.QueueName,
		tag:    cfg.ConsumerTag,
		logger: logger,
	}, nil
}

// Publish enqueues a domain event with persistent delivery. The broker
// fsyncs the message before acknowledging, so a published event survives a
// broker restart even with no consumer attached.
func (b *Bus) Publish(ctx context.Context, ev domain.Event) error {
	pub, err := newPublishing(ev)
	if err != nil {
		return err
	}
	if err := b.ch.PublishWithContext(ctx, "", b.queue, false, false, pub); err != nil {
		return fmt.Errorf("publish %s event: %w", ev.Kind, err)
	}
	return nil
}

// Deliveries starts a manual-ack consumer on the work queue and returns a
// channel of deliveries. The channel closes after ctx is cancelled and the
// consumer has been cancelled at the broker; unacked messages are requeued
// by the broker once the connection closes.
func (b *Bus) Deliveries(ctx context.Context) (<-chan domain.Delivery, error) {
	msgs, err := b.ch.Consume(b.queue, b.tag, false, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("consume %s: %w", b.queue, err)
	}

	out := make(chan domain.Delivery)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				b.cancelConsumer()
				return
			case d, ok := <-msgs:
				if !ok {
					return
				}
				select {
				case out <- wrapDelivery(d):
				case <-ctx.Done():
					// Nobody will process this delivery; hand it straight back.
					if err := d.Nack(false, true); err != nil {
						b.logger.Warn("requeue on shutdown failed", "error", err)
					}
					b.cancelConsumer()
					return
				}
			}
		}
	}()
	return out, nil
}

// Close releases the channel and then the connection.
func (b *Bus) Close() error {
	var errs []error
	if err := b.ch.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
		errs = append(errs, fmt.Errorf("close channel: %w", err))
	}
	if err := b.conn.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
		errs = append(errs, fmt.Errorf("close connection: %w", err))
	}
	return errors.Join(errs...)
}

func (b *Bus) cancelConsumer() {
	if err := b.ch.Cancel(b.tag, false); err != nil && !errors.Is(err, amqp.ErrClosed) {
		b.logger.Warn("consumer cancel failed", "error", err)
	}
}

// newPublishing serializes an event into a persistent AMQP publishing.
func newPublishing(ev domain.Event) (amqp.Publishing, error) {
	body, err := domain.EncodeEvent(ev)
	if err != nil {
		return amqp.Publishing{}, err
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		Timestamp:    ev.EmittedAt,
		Body:         body,
	}, nil
}

// wrapDelivery adapts an AMQP delivery into the domain contract. Multi-ack
// is never used; each message is resolved individually.
func wrapDelivery(d amqp.Delivery) domain.Delivery {
	return domain.Delivery{
		Body:        d.Body,
		MessageID:   d.MessageId,
		Redelivered: d.Redelivered,
		Ack: func() error {
			return d.Ack(false)
		},
		Reject: func(requeue bool) error {
			return d.Nack(false, requeue)
		},
	}
}
