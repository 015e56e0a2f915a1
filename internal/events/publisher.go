// Package events publishes progress events to RabbitMQ and to the log.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/felixgeelhaar/circuitscribe/internal/domain"
	"github.com/felixgeelhaar/fortify/retry"
	amqp "github.com/rabbitmq/amqp091-go"
)

// channel is the part of *amqp.Channel the publisher needs
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

var errNoChannel = errors.New("no open channel")

// Publisher sends progress events to a RabbitMQ queue
type Publisher struct {
	channel func() channel
	queue   string
	retrier retry.Retry[struct{}]
}

// NewPublisher creates a publisher on conn's queue
func NewPublisher(conn *Connection) *Publisher {
	return newPublisher(func() channel {
		if ch := conn.Channel(); ch != nil {
			return ch
		}
		return nil
	}, conn.Queue())
}

func newPublisher(ch func() channel, queue string) *Publisher {
	return &Publisher{
		channel: ch,
		queue:   queue,
		retrier: retry.New[struct{}](retry.Config{
			MaxAttempts:   3,
			InitialDelay:  100 * time.Millisecond,
			MaxDelay:      time.Second,
			Multiplier:    2.0,
			BackoffPolicy: retry.BackoffExponential,
			Jitter:        true,
			IsRetryable: func(err error) bool {
				return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
			},
		}),
	}
}

// Publish encodes event as JSON and publishes it as a persistent message
func (p *Publisher) Publish(ctx context.Context, event domain.Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    event.EventID().String(),
		Type:         event.EventType(),
		Timestamp:    event.OccurredAt(),
		Body:         body,
	}

	_, err = p.retrier.Do(ctx, func(ctx context.Context) (struct{}, error) {
		ch := p.channel()
		if ch == nil {
			return struct{}{}, errNoChannel
		}
		return struct{}{}, ch.PublishWithContext(ctx, "", p.queue, false, false, msg)
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", event.EventType(), err)
	}

	slog.Debug("published progress event",
		"id", event.EventID(),
		"type", event.EventType(),
		"learner", event.Learner(),
	)
	return nil
}

// LogHandler writes every event to the structured log
func LogHandler(_ context.Context, event domain.Event) error {
	slog.Info("progress event",
		"type", event.EventType(),
		"learner", event.Learner(),
		"id", event.EventID(),
	)
	return nil
}
