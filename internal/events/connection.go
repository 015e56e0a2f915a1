package events

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/felixgeelhaar/fortify/retry"
	amqp "github.com/rabbitmq/amqp091-go"
)

// DefaultQueue is the queue progress events are published to
const DefaultQueue = "circuitscribe.progress"

// Connection manages the RabbitMQ connection with automatic reconnection
type Connection struct {
	url        string
	queue      string
	conn       *amqp.Connection
	channel    *amqp.Channel
	mu         sync.RWMutex
	closed     bool
	reconnects int
}

// Dial connects to RabbitMQ and declares the events queue
func Dial(amqpURL, queue string) (*Connection, error) {
	if queue == "" {
		queue = DefaultQueue
	}
	c := &Connection{url: amqpURL, queue: queue}
	if err := c.connect(); err != nil {
		return nil, err
	}
	return c, nil
}

// connect establishes connection and channel
func (c *Connection) connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var err error
	c.conn, err = amqp.Dial(c.url)
	if err != nil {
		return fmt.Errorf("connect to RabbitMQ: %w", err)
	}

	c.channel, err = c.conn.Channel()
	if err != nil {
		c.conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}

	_, err = c.channel.QueueDeclare(
		c.queue,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		amqp.Table{
			"x-message-ttl": int32(24 * time.Hour / time.Millisecond),
		},
	)
	if err != nil {
		c.channel.Close()
		c.conn.Close()
		return fmt.Errorf("declare queue %s: %w", c.queue, err)
	}

	go c.handleReconnect(c.conn)

	slog.Info("connected to RabbitMQ", "url", sanitizeURL(c.url), "queue", c.queue)
	return nil
}

// handleReconnect waits for the connection to drop and reconnects with backoff
func (c *Connection) handleReconnect(conn *amqp.Connection) {
	err, ok := <-conn.NotifyClose(make(chan *amqp.Error, 1))
	if !ok || err == nil {
		return
	}

	c.mu.RLock()
	closed := c.closed
	c.mu.RUnlock()
	if closed {
		return
	}

	slog.Warn("RabbitMQ connection closed, attempting to reconnect", "error", err, "reconnects", c.reconnects)

	r := retry.New[struct{}](retry.Config{
		MaxAttempts:   10,
		InitialDelay:  time.Second,
		MaxDelay:      30 * time.Second,
		Multiplier:    2.0,
		BackoffPolicy: retry.BackoffExponential,
		Jitter:        true,
	})
	_, rerr := r.Do(context.Background(), func(context.Context) (struct{}, error) {
		c.mu.Lock()
		c.reconnects++
		c.mu.Unlock()
		return struct{}{}, c.connect()
	})
	if rerr != nil {
		slog.Error("failed to reconnect to RabbitMQ", "error", rerr)
		return
	}
	slog.Info("reconnected to RabbitMQ")
}

// Channel returns the current channel (thread-safe)
func (c *Connection) Channel() *amqp.Channel {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.channel
}

// Queue returns the declared queue name
func (c *Connection) Queue() string {
	return c.queue
}

// IsConnected checks if the connection is active
func (c *Connection) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.conn != nil && !c.conn.IsClosed()
}

// Close closes the connection
func (c *Connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// sanitizeURL strips credentials for logging
func sanitizeURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "invalid-url"
	}
	u.User = nil
	return u.String()
}
