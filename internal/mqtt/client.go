package mqtt

import (
	"context"
	"net"
	"net/url"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/lexiplay/soundtrack/internal/errors"
	"github.com/lexiplay/soundtrack/internal/logger"
	"github.com/lexiplay/soundtrack/internal/observability/metrics"
)

// client implements the Client interface on top of paho.
type client struct {
	config         Config
	internalClient mqtt.Client
	mu             sync.Mutex
	metrics        *metrics.MQTTMetrics
	log            logger.Logger
}

// NewClient creates a new MQTT client with the provided configuration.
// m may be nil.
func NewClient(config Config, m *metrics.MQTTMetrics, log logger.Logger) Client {
	if log == nil {
		log = logger.Global().Module(componentName)
	}
	return &client{config: config, metrics: m, log: log}
}

// Connect resolves the broker host and connects. paho reconnects on its own
// after a successful first connection.
func (c *client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	u, err := url.Parse(c.config.Broker)
	if err != nil || u.Host == "" {
		return errors.Newf("invalid broker URL %q", c.config.Broker).
			Component(componentName).
			Category(errors.CategoryConfiguration).
			Build()
	}

	host := u.Hostname()
	if net.ParseIP(host) == nil {
		if _, err := net.DefaultResolver.LookupHost(ctx, host); err != nil {
			return errors.New(err).
				Component(componentName).
				Category(errors.CategoryMQTTConnection).
				Context("broker_host", host).
				Context("operation", "resolve").
				Build()
		}
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(c.config.Broker)
	opts.SetClientID(c.config.ClientID)
	opts.SetUsername(c.config.Username)
	opts.SetPassword(c.config.Password)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetMaxReconnectInterval(c.config.MaxReconnectDelay)
	opts.SetConnectTimeout(c.config.ConnectTimeout)
	opts.SetOnConnectHandler(c.onConnect)
	opts.SetConnectionLostHandler(c.onConnectionLost)
	opts.SetReconnectingHandler(c.onReconnecting)

	c.internalClient = mqtt.NewClient(opts)

	token := c.internalClient.Connect()
	if err := waitToken(ctx, token, c.config.ConnectTimeout); err != nil {
		return errors.New(err).
			Component(componentName).
			Category(errors.CategoryMQTTConnection).
			Context("broker_host", host).
			Context("operation", "connect").
			Build()
	}

	c.updateStatus(true)
	return nil
}

// Publish sends payload to topic with QoS 0.
func (c *client) Publish(ctx context.Context, topic string, payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.isConnectedLocked() {
		return errors.Newf("not connected to MQTT broker").
			Component(componentName).
			Category(errors.CategoryMQTTPublish).
			Context("topic", topic).
			Build()
	}

	start := time.Now()
	token := c.internalClient.Publish(topic, 0, c.config.Retain, payload)
	err := waitToken(ctx, token, c.config.PublishTimeout)
	if c.metrics != nil {
		c.metrics.RecordPublish(time.Since(start), err)
	}
	if err != nil {
		return errors.New(err).
			Component(componentName).
			Category(errors.CategoryMQTTPublish).
			Context("topic", topic).
			Context("payload_size", len(payload)).
			Build()
	}

	c.log.Debug("published", logger.String("topic", topic), logger.Int("size", len(payload)))
	return nil
}

// IsConnected returns true if the client is currently connected to the MQTT broker.
func (c *client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.isConnectedLocked()
}

func (c *client) isConnectedLocked() bool {
	return c.internalClient != nil && c.internalClient.IsConnected()
}

// Disconnect closes the connection to the MQTT broker.
func (c *client) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.internalClient == nil {
		return
	}
	c.internalClient.Disconnect(uint(c.config.DisconnectTimeout.Milliseconds()))
	c.internalClient = nil
	c.updateStatus(false)
}

func (c *client) onConnect(mqtt.Client) {
	c.log.Info("connected to MQTT broker", logger.String("broker", errors.ScrubLocator(c.config.Broker)))
	c.updateStatus(true)
}

func (c *client) onConnectionLost(_ mqtt.Client, err error) {
	c.log.Warn("connection to MQTT broker lost",
		logger.String("broker", errors.ScrubLocator(c.config.Broker)),
		logger.Error(err))
	c.updateStatus(false)
}

func (c *client) onReconnecting(mqtt.Client, *mqtt.ClientOptions) {
	if c.metrics != nil {
		c.metrics.IncrementReconnectAttempts()
	}
}

func (c *client) updateStatus(connected bool) {
	if c.metrics != nil {
		c.metrics.UpdateConnectionStatus(connected)
	}
}

// waitToken waits for a paho token, the timeout or ctx, whichever comes first.
func waitToken(ctx context.Context, token mqtt.Token, timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-token.Done():
		return token.Error()
	case <-timer.C:
		return errors.Newf("operation timed out after %v", timeout).
			Component(componentName).
			Category(errors.CategoryTimeout).
			Build()
	case <-ctx.Done():
		return ctx.Err()
	}
}
