package mqtt

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/beacon-station/internal/infrastructure/config"
)

// Logger is the logging interface used by the client.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Warn(string, ...any) {}

// Client is a broker session used as the station's key-value store.
//
// Thread Safety: All methods are safe for concurrent use. Reads of the
// same topic are serialised (see Get).
type Client struct {
	paho      pahomqtt.Client
	stationID string
	qos       byte
	topics    Topics

	up atomic.Bool

	// getMu serialises Get; paho routes messages by topic filter, so two
	// overlapping reads of one topic would share a subscription.
	getMu sync.Mutex

	mu           sync.RWMutex
	logger       Logger
	onConnect    func()
	onDisconnect func(err error)
}

// Connect opens a session with the broker and announces the station online.
//
// The client ID doubles as the station ID on the status topic. After the
// first connection paho reconnects on its own; SetOnConnect and
// SetOnDisconnect observe that.
//
// Returns:
//   - *Client: Connected client
//   - error: ErrConnectionFailed if the broker is not reached within the
//     connect timeout
func Connect(cfg config.MQTTConfig) (*Client, error) {
	topics := Topics{Prefix: cfg.TopicPrefix}
	opts := sessionOptions(cfg, topics)

	//nolint:gosec // QoS validated to 0-2 by config.Validate
	c := newClient(nil, cfg.Broker.ClientID, byte(cfg.QoS), topics)

	opts.SetOnConnectHandler(func(_ pahomqtt.Client) { c.connected() })
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) { c.lost(err) })
	opts.SetReconnectingHandler(func(_ pahomqtt.Client, _ *pahomqtt.ClientOptions) {
		c.log().Warn("MQTT reconnecting", "broker", cfg.Broker.Host)
	})

	c.paho = pahomqtt.NewClient(opts)
	token := c.paho.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return nil, fmt.Errorf("%w: no answer within %v", ErrConnectionFailed, connectTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	// The connect handler runs asynchronously; do not wait for it to report up.
	c.up.Store(true)
	return c, nil
}

func newClient(paho pahomqtt.Client, stationID string, qos byte, topics Topics) *Client {
	return &Client{
		paho:      paho,
		stationID: stationID,
		qos:       qos,
		topics:    topics,
		logger:    noopLogger{},
	}
}

// connected runs on the initial connection and on every reconnect.
func (c *Client) connected() {
	c.up.Store(true)
	c.announce(presenceOnline, "")

	c.mu.RLock()
	callback := c.onConnect
	c.mu.RUnlock()
	if callback != nil {
		callback()
	}
}

func (c *Client) lost(err error) {
	c.up.Store(false)

	c.mu.RLock()
	callback := c.onDisconnect
	c.mu.RUnlock()
	if callback != nil {
		callback(err)
	}
}

// announce publishes the station's retained presence without waiting for
// the broker.
func (c *Client) announce(status, reason string) pahomqtt.Token {
	topic := c.topics.StationStatus(c.stationID)
	return c.paho.Publish(topic, c.qos, true, presencePayload(c.stationID, status, reason))
}

// Close marks the station offline and ends the session.
func (c *Client) Close() error {
	if c.paho == nil {
		return nil
	}
	if c.Connected() {
		c.announce(presenceOffline, "shutdown").WaitTimeout(ackTimeout)
	}
	c.paho.Disconnect(disconnectQuiesceMS)
	c.up.Store(false)
	return nil
}

// HealthCheck reports ErrNotConnected while the session is down.
func (c *Client) HealthCheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("mqtt health check: %w", err)
	}
	if !c.Connected() {
		return ErrNotConnected
	}
	return nil
}

// Connected reports whether the session is currently up.
func (c *Client) Connected() bool {
	return c.paho != nil && c.up.Load() && c.paho.IsConnected()
}

// SetOnConnect registers a callback for the initial connection and every
// reconnect.
func (c *Client) SetOnConnect(callback func()) {
	c.mu.Lock()
	c.onConnect = callback
	c.mu.Unlock()
}

// SetOnDisconnect registers a callback for a lost connection.
func (c *Client) SetOnDisconnect(callback func(err error)) {
	c.mu.Lock()
	c.onDisconnect = callback
	c.mu.Unlock()
}

// SetLogger sets the logger for reconnect and read diagnostics.
func (c *Client) SetLogger(logger Logger) {
	if logger == nil {
		logger = noopLogger{}
	}
	c.mu.Lock()
	c.logger = logger
	c.mu.Unlock()
}

func (c *Client) log() Logger {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.logger
}

// Topics returns the topic builder for this session's prefix.
func (c *Client) Topics() Topics {
	return c.topics
}
