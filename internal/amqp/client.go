// Package amqp publishes and consumes dataset change events.
package amqp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

// Circuit breaker states.
const (
	StateClosed int32 = iota
	StateOpen
	StateHalfOpen
)

const (
	maxFailures    = 5
	openTimeout    = 30 * time.Second
	maxBackoff     = 30 * time.Second
	publishTimeout = 5 * time.Second
	publishRetries = 3
)

var ErrCircuitOpen = errors.New("circuit breaker is open")

type Client struct {
	mu           sync.Mutex
	url          string
	conn         *amqp091.Connection
	channel      *amqp091.Channel
	exchangeName string
	queueName    string

	state        int32
	failureCount int64
	lastFailure  time.Time
}

func NewClient(url, exchangeName, queueName string) (*Client, error) {
	c := &Client{url: url, exchangeName: exchangeName, queueName: queueName}
	if err := c.connect(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Client) connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connectLocked()
}

func (c *Client) connectLocked() error {
	c.closeLocked()

	conn, err := amqp091.Dial(c.url)
	if err != nil {
		return fmt.Errorf("dial AMQP: %w", err)
	}
	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}
	c.conn, c.channel = conn, channel

	if err := c.setup(); err != nil {
		c.closeLocked()
		return fmt.Errorf("setup exchange and queue: %w", err)
	}
	return nil
}

func (c *Client) setup() error {
	if err := c.channel.ExchangeDeclare(c.exchangeName, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}
	if _, err := c.channel.QueueDeclare(c.queueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}
	// The routing key is the queue name.
	if err := c.channel.QueueBind(c.queueName, c.queueName, c.exchangeName, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}
	return nil
}

// PublishDatasetChanged announces a new collection version. Connection
// failures are retried with backoff and reconnects; repeated failures
// open the circuit for openTimeout.
func (c *Client) PublishDatasetChanged(ctx context.Context, version uint64, rows int, operation string) error {
	if c.isCircuitOpen() {
		return fmt.Errorf("publish dataset change: %w", ErrCircuitOpen)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	body, err := NewDatasetChangedMessage(version, rows, operation).ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < publishRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(exponentialBackoff(attempt - 1)):
			}
		}
		lastErr = c.publish(ctx, body)
		if lastErr == nil {
			c.recordSuccess()
			slog.InfoContext(ctx, "Published dataset change",
				"version", version,
				"rows", rows,
				"operation", operation,
				"exchange", c.exchangeName)
			return nil
		}
		if !isConnectionError(lastErr) {
			break
		}
		slog.WarnContext(ctx, "AMQP connection lost, reconnecting", "attempt", attempt+1, "error", lastErr)
		c.mu.Lock()
		if err := c.connectLocked(); err != nil {
			lastErr = err
		}
		c.mu.Unlock()
	}
	c.recordFailure()
	return fmt.Errorf("publish message: %w", lastErr)
}

func (c *Client) publish(ctx context.Context, body []byte) error {
	c.mu.Lock()
	channel := c.channel
	c.mu.Unlock()
	if channel == nil || channel.IsClosed() {
		return amqp091.ErrClosed
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	return channel.PublishWithContext(ctx, c.exchangeName, c.queueName, false, false,
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		})
}

// ConsumeDatasetChanged delivers messages to handler until ctx ends.
// Malformed messages are dropped; handler errors requeue the message.
func (c *Client) ConsumeDatasetChanged(ctx context.Context, handler func(context.Context, *DatasetChangedMessage) error) error {
	c.mu.Lock()
	channel := c.channel
	c.mu.Unlock()
	if channel == nil {
		return amqp091.ErrClosed
	}
	if err := channel.Qos(1, 0, false); err != nil {
		return fmt.Errorf("set qos: %w", err)
	}
	msgs, err := channel.Consume(c.queueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	slog.InfoContext(ctx, "Started consuming dataset changes", "queue", c.queueName)

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Stopping message consumption", "reason", ctx.Err())
			return ctx.Err()
		case delivery, ok := <-msgs:
			if !ok {
				return fmt.Errorf("message channel closed")
			}
			msg, err := DatasetChangedMessageFromJSON(delivery.Body)
			if err != nil {
				slog.ErrorContext(ctx, "Failed to unmarshal message", "error", err)
				delivery.Nack(false, false)
				continue
			}
			if err := handler(ctx, msg); err != nil {
				slog.ErrorContext(ctx, "Failed to handle message", "error", err, "version", msg.Version)
				delivery.Nack(false, true)
				continue
			}
			delivery.Ack(false)
		}
	}
}

func (c *Client) isCircuitOpen() bool {
	if atomic.LoadInt32(&c.state) != StateOpen {
		return false
	}
	c.mu.Lock()
	last := c.lastFailure
	c.mu.Unlock()
	if time.Since(last) > openTimeout {
		atomic.CompareAndSwapInt32(&c.state, StateOpen, StateHalfOpen)
		return false
	}
	return true
}

func (c *Client) recordSuccess() {
	atomic.StoreInt64(&c.failureCount, 0)
	atomic.StoreInt32(&c.state, StateClosed)
}

func (c *Client) recordFailure() {
	c.mu.Lock()
	c.lastFailure = time.Now()
	c.mu.Unlock()
	if atomic.AddInt64(&c.failureCount, 1) >= maxFailures || atomic.LoadInt32(&c.state) == StateHalfOpen {
		atomic.StoreInt32(&c.state, StateOpen)
	}
}

// exponentialBackoff is 1s doubled per attempt, capped at maxBackoff.
func exponentialBackoff(attempt int) time.Duration {
	if attempt >= 5 {
		return maxBackoff
	}
	d := time.Second << attempt
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, amqp091.ErrClosed) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, s := range []string{"connection", "eof", "broken pipe", "channel/connection is not open"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closeLocked()
}

func (c *Client) closeLocked() error {
	var err error
	if c.channel != nil {
		c.channel.Close()
		c.channel = nil
	}
	if c.conn != nil {
		err = c.conn.Close()
		c.conn = nil
	}
	return err
}
