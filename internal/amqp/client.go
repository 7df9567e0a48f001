package amqp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	applog "dayplan/internal/log"

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
)

var (
	ErrCircuitOpen  = errors.New("amqp circuit breaker is open")
	// ErrReconnecting is returned while another publish is re-dialing the broker.
	ErrReconnecting = errors.New("amqp reconnect in progress")
)

// Client publishes change events to a topic exchange. After maxFailures
// consecutive failures it stops trying for openTimeout, then lets one publish
// through to probe the broker.
type Client struct {
	url          string
	exchangeName string
	routingKey   string

	// dialTimeout bounds the TCP dial and the AMQP handshake.
	dialTimeout time.Duration

	mu      sync.Mutex
	conn    *amqp091.Connection
	channel *amqp091.Channel
	dialing bool

	state        int32
	failureCount int64
	lastFailure  atomic.Int64 // unix nanos
}

// NewClient connects to the broker, retrying up to attempts times with
// exponential backoff, and declares the exchange.
func NewClient(ctx context.Context, url, exchangeName, routingKey string, attempts int) (*Client, error) {
	c := &Client{
		url:          url,
		exchangeName: exchangeName,
		routingKey:   routingKey,
		dialTimeout:  publishTimeout,
	}

	if attempts < 1 {
		attempts = 1
	}
	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			wait := exponentialBackoff(attempt - 1)
			applog.FromContext(ctx).WithComponent(applog.ComponentAMQP).
				WarnContext(ctx, "Retrying AMQP connection", "attempt", attempt+1, "wait", wait, applog.FieldError, err)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(wait):
			}
		}
		var conn *amqp091.Connection
		var channel *amqp091.Channel
		conn, channel, err = c.connect(ctx)
		if err == nil {
			c.mu.Lock()
			c.conn, c.channel = conn, channel
			c.mu.Unlock()
			return c, nil
		}
	}
	return nil, err
}

// connect dials the broker and declares the exchange. It does not touch the
// client's state, so callers must not hold c.mu while it runs.
func (c *Client) connect(ctx context.Context) (*amqp091.Connection, *amqp091.Channel, error) {
	timeout := c.dialTimeout
	if timeout <= 0 {
		timeout = publishTimeout
	}
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left < timeout {
			timeout = left
		}
	}
	if timeout <= 0 {
		return nil, nil, context.DeadlineExceeded
	}

	conn, err := amqp091.DialConfig(c.url, amqp091.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Dial:      amqp091.DefaultDial(timeout),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("open channel: %w", err)
	}

	err = channel.ExchangeDeclare(
		c.exchangeName, // name
		"topic",        // type
		true,           // durable
		false,          // auto-deleted
		false,          // internal
		false,          // no-wait
		nil,            // arguments
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, nil, fmt.Errorf("declare exchange: %w", err)
	}
	return conn, channel, nil
}

// channelFor returns a live channel, re-dialing without holding c.mu when the
// previous connection was lost. Only one caller dials at a time; the others
// fail fast with ErrReconnecting.
func (c *Client) channelFor(ctx context.Context) (*amqp091.Channel, error) {
	c.mu.Lock()
	if c.channel != nil && !c.channel.IsClosed() {
		ch := c.channel
		c.mu.Unlock()
		return ch, nil
	}
	if c.dialing {
		c.mu.Unlock()
		return nil, ErrReconnecting
	}
	c.resetLocked()
	c.dialing = true
	c.mu.Unlock()

	conn, channel, err := c.connect(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.dialing = false
	if err != nil {
		return nil, err
	}
	c.conn, c.channel = conn, channel
	return channel, nil
}

func (c *Client) resetLocked() {
	if c.channel != nil {
		c.channel.Close()
		c.channel = nil
	}
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}

// Publish sends one change event. It reconnects lazily when the previous
// connection was lost; the reconnect is bounded by dialTimeout and ctx.
func (c *Client) Publish(ctx context.Context, ev ChangeEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.isCircuitOpen() {
		return ErrCircuitOpen
	}

	body, err := ev.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	channel, err := c.channelFor(ctx)
	if err != nil {
		if !errors.Is(err, ErrReconnecting) {
			c.recordFailure()
		}
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	key := ev.RoutingKey(c.routingKey)
	err = channel.PublishWithContext(
		ctx,
		c.exchangeName, // exchange
		key,            // routing key
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    ev.Timestamp,
			Body:         body,
		},
	)
	if err != nil {
		if isConnectionError(err) {
			c.mu.Lock()
			if c.channel == channel {
				c.resetLocked()
			}
			c.mu.Unlock()
		}
		c.recordFailure()
		return fmt.Errorf("publish event: %w", err)
	}
	c.recordSuccess()

	applog.FromContext(ctx).WithComponent(applog.ComponentAMQP).DebugContext(ctx, "Published change event",
		applog.FieldEntity, ev.Entity,
		"action", ev.Action,
		applog.FieldEntityID, ev.ID,
		"routing_key", key)

	return nil
}

func (c *Client) isCircuitOpen() bool {
	switch atomic.LoadInt32(&c.state) {
	case StateOpen:
		since := time.Since(time.Unix(0, c.lastFailure.Load()))
		if since > openTimeout {
			atomic.CompareAndSwapInt32(&c.state, StateOpen, StateHalfOpen)
			return false
		}
		return true
	default:
		return false
	}
}

func (c *Client) recordFailure() {
	c.lastFailure.Store(time.Now().UnixNano())
	n := atomic.AddInt64(&c.failureCount, 1)
	if n >= maxFailures || atomic.LoadInt32(&c.state) == StateHalfOpen {
		atomic.StoreInt32(&c.state, StateOpen)
	}
}

func (c *Client) recordSuccess() {
	atomic.StoreInt64(&c.failureCount, 0)
	atomic.StoreInt32(&c.state, StateClosed)
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.channel != nil {
		c.channel.Close()
		c.channel = nil
	}
	if c.conn != nil {
		err := c.conn.Close()
		c.conn = nil
		return err
	}
	return nil
}

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
	for _, s := range []string{"connection", "eof", "broken pipe", "closed network"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
