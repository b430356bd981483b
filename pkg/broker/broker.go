package broker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"shopflow/internal/monitor"
	"shopflow/pkg/log"
)

// State broker connection state
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateFailed
)

// String implement fmt.Stringer
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Common errors
var (
	ErrBrokerUnavailable = errors.New("broker unavailable after max connect attempts")
	ErrNotConnected      = errors.New("broker not connected")
)

// Connection is the subset of an AMQP connection the manager needs.
type Connection interface {
	Channel() (Channel, error)
	NotifyClose(receiver chan *amqp.Error) chan *amqp.Error
	IsClosed() bool
	Close() error
}

// Channel is a logical broker channel bound to durable queue semantics:
// idempotent durable declare, persistent publish, manual-ack consume.
type Channel interface {
	DeclareQueue(name string) error
	Publish(ctx context.Context, queue string, body []byte) error
	Consume(queue, consumerTag string) (<-chan amqp.Delivery, error)
	Qos(prefetch int) error
	Close() error
}

// DialFunc dials the broker. Injectable for tests.
type DialFunc func(url string) (Connection, error)

// Dial connects to a real AMQP broker.
func Dial(url string) (Connection, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	return &amqpConnection{conn: conn}, nil
}

// Config broker manager configuration
type Config struct {
	URL         string
	MaxAttempts int
	Delay       time.Duration
}

// Manager owns the broker connection lifecycle. Connect retries with a fixed
// delay up to MaxAttempts, then gives up and leaves the manager in StateFailed
// without terminating the process; HTTP traffic keeps being served in that
// degraded mode, queue features are unavailable.
type Manager struct {
	cfg  Config
	dial DialFunc

	state int32

	mu       sync.Mutex
	conn     Connection
	pubChan  Channel
	declared map[string]bool
}

// Option configures a Manager
type Option func(*Manager)

// WithDialFunc overrides the dial function
func WithDialFunc(dial DialFunc) Option {
	return func(m *Manager) {
		m.dial = dial
	}
}

// NewManager creates a broker connection manager
func NewManager(cfg Config, opts ...Option) *Manager {
	m := &Manager{
		cfg:      cfg,
		dial:     Dial,
		declared: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// State returns the current connection state
func (m *Manager) State() State {
	return State(atomic.LoadInt32(&m.state))
}

func (m *Manager) setState(s State) {
	atomic.StoreInt32(&m.state, int32(s))
}

// IsReady reports whether the manager holds a live connection
func (m *Manager) IsReady() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.State() == StateConnected && m.conn != nil && !m.conn.IsClosed()
}

// Connect dials the broker with the configured bounded retry. Every attempt
// is logged with its count. On exhaustion the manager transitions to
// StateFailed and returns ErrBrokerUnavailable; no further reconnection is
// attempted until Connect is called again. The context cancels the retry
// loop on shutdown.
func (m *Manager) Connect(ctx context.Context) error {
	m.setState(StateConnecting)

	var lastErr error
	for attempt := 1; attempt <= m.cfg.MaxAttempts; attempt++ {
		conn, err := m.dial(m.cfg.URL)
		if err == nil {
			m.mu.Lock()
			m.conn = conn
			m.pubChan = nil
			m.declared = make(map[string]bool)
			m.mu.Unlock()
			m.setState(StateConnected)

			log.WithFields(map[string]interface{}{
				"attempt": attempt,
			}).Info("Connected to message broker")

			go m.watch(ctx, conn)
			return nil
		}

		lastErr = err
		log.WithFields(map[string]interface{}{
			"attempt":      attempt,
			"max_attempts": m.cfg.MaxAttempts,
			"error":        err.Error(),
		}).Warn("Failed to connect to message broker")

		if attempt == m.cfg.MaxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			m.setState(StateDisconnected)
			return ctx.Err()
		case <-time.After(m.cfg.Delay):
		}
	}

	m.setState(StateFailed)
	log.WithFields(map[string]interface{}{
		"attempts": m.cfg.MaxAttempts,
	}).Error("Max broker connect attempts reached, giving up")

	return fmt.Errorf("%w: %v", ErrBrokerUnavailable, lastErr)
}

// watch monitors the connection and re-runs the bounded connect sequence if
// the broker closes it. A graceful Close does not trigger reconnection.
func (m *Manager) watch(ctx context.Context, conn Connection) {
	closeCh := conn.NotifyClose(make(chan *amqp.Error, 1))

	select {
	case <-ctx.Done():
		return
	case amqpErr, ok := <-closeCh:
		if !ok || amqpErr == nil {
			return
		}
		log.WithFields(map[string]interface{}{
			"error": amqpErr.Error(),
		}).Error("Broker connection lost, reconnecting")
		monitor.BrokerReconnectsTotal.Inc()

		m.mu.Lock()
		m.conn = nil
		m.pubChan = nil
		m.declared = make(map[string]bool)
		m.mu.Unlock()
		m.setState(StateDisconnected)

		if err := m.Connect(ctx); err != nil {
			log.WithError(err).Error("Broker reconnection failed")
		}
	}
}

// OpenChannel opens a logical channel on the current connection. Channel
// failures are not retried; the manager stays connected but channel-less
// until the caller tries again.
func (m *Manager) OpenChannel() (Channel, error) {
	m.mu.Lock()
	conn := m.conn
	m.mu.Unlock()

	if m.State() != StateConnected || conn == nil {
		return nil, ErrNotConnected
	}

	ch, err := conn.Channel()
	if err != nil {
		log.WithError(err).Error("Failed to open broker channel")
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}
	return ch, nil
}

// Publish declares the durable queue if needed and publishes a persistent
// message on a cached producer channel. Publish success means "accepted by
// broker", not "processed by a consumer".
func (m *Manager) Publish(ctx context.Context, queue string, body []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.State() != StateConnected || m.conn == nil {
		return ErrNotConnected
	}

	if m.pubChan == nil {
		ch, err := m.conn.Channel()
		if err != nil {
			log.WithError(err).Error("Failed to open producer channel")
			return fmt.Errorf("failed to open producer channel: %w", err)
		}
		m.pubChan = ch
		m.declared = make(map[string]bool)
	}

	if !m.declared[queue] {
		if err := m.pubChan.DeclareQueue(queue); err != nil {
			m.dropProducerChannel()
			return fmt.Errorf("failed to declare queue %s: %w", queue, err)
		}
		m.declared[queue] = true
	}

	if err := m.pubChan.Publish(ctx, queue, body); err != nil {
		// The channel may be poisoned; reopen it on the next publish.
		m.dropProducerChannel()
		return fmt.Errorf("failed to publish to %s: %w", queue, err)
	}
	return nil
}

func (m *Manager) dropProducerChannel() {
	if m.pubChan != nil {
		m.pubChan.Close()
		m.pubChan = nil
	}
	m.declared = make(map[string]bool)
}

// Close shuts the connection down
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.setState(StateDisconnected)
	m.dropProducerChannel()

	if m.conn != nil && !m.conn.IsClosed() {
		err := m.conn.Close()
		m.conn = nil
		return err
	}
	m.conn = nil
	return nil
}
