// Package mqtt publishes channel state changes to an MQTT broker.
package mqtt

import (
	"context"
	"time"

	"github.com/lexiplay/soundtrack/internal/conf"
)

const componentName = "mqtt"

// Client defines the interface for MQTT client operations.
type Client interface {
	// Connect attempts to connect to the MQTT broker.
	Connect(ctx context.Context) error

	// Publish sends a message to the specified topic on the MQTT broker.
	Publish(ctx context.Context, topic string, payload []byte) error

	// IsConnected returns true if the client is currently connected to the MQTT broker.
	IsConnected() bool

	// Disconnect closes the connection to the MQTT broker.
	Disconnect()
}

// Config holds the configuration for the MQTT client.
type Config struct {
	Broker   string
	ClientID string
	Username string
	Password string
	Topic    string // base topic, state goes to <Topic>/<channel>/state
	Retain   bool

	ConnectTimeout    time.Duration
	PublishTimeout    time.Duration
	DisconnectTimeout time.Duration
	MaxReconnectDelay time.Duration
}

// DefaultConfig returns a Config with reasonable default values
func DefaultConfig() Config {
	return Config{
		Topic:             "soundtrack",
		ConnectTimeout:    30 * time.Second,
		PublishTimeout:    10 * time.Second,
		DisconnectTimeout: 250 * time.Millisecond,
		MaxReconnectDelay: 5 * time.Minute,
	}
}

// NewConfig builds a client Config from settings. The client id defaults to
// the instance name.
func NewConfig(settings *conf.Settings) Config {
	cfg := DefaultConfig()
	cfg.Broker = settings.MQTT.Broker
	cfg.ClientID = settings.MQTT.ClientID
	if cfg.ClientID == "" {
		cfg.ClientID = settings.Main.Name
	}
	cfg.Username = settings.MQTT.Username
	cfg.Password = settings.MQTT.Password
	if settings.MQTT.Topic != "" {
		cfg.Topic = settings.MQTT.Topic
	}
	cfg.Retain = settings.MQTT.Retain
	return cfg
}
