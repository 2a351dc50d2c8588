package mqtt

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/lexiplay/soundtrack/internal/errors"
	"github.com/lexiplay/soundtrack/internal/logger"
	"github.com/lexiplay/soundtrack/internal/playback"
)

// StateMessage is the retained payload published for a channel.
type StateMessage struct {
	Channel    string    `json:"channel"`
	State      string    `json:"state"`
	Previous   string    `json:"previous,omitempty"`
	Event      string    `json:"event"`
	Source     string    `json:"source,omitempty"`
	Generation uint64    `json:"generation"`
	LoadID     string    `json:"load_id,omitempty"`
	Error      string    `json:"error,omitempty"`
	Time       time.Time `json:"time"`
}

// Publisher is an events consumer that mirrors channel state to MQTT.
type Publisher struct {
	client  Client
	topic   string
	timeout time.Duration
	log     logger.Logger
}

// NewPublisher returns a Publisher writing below baseTopic.
func NewPublisher(client Client, cfg Config, log logger.Logger) *Publisher {
	if log == nil {
		log = logger.Global().Module(componentName)
	}
	timeout := cfg.PublishTimeout
	if timeout <= 0 {
		timeout = DefaultConfig().PublishTimeout
	}
	return &Publisher{
		client:  client,
		topic:   strings.TrimSuffix(cfg.Topic, "/"),
		timeout: timeout,
		log:     log,
	}
}

// Name implements events.Consumer.
func (p *Publisher) Name() string { return componentName }

// StateTopic returns the topic transitions of ch are published to.
func (p *Publisher) StateTopic(ch playback.Identity) string {
	return p.topic + "/" + ch.String() + "/state"
}

// ErrorTopic returns the topic load and player failures of ch are published to.
func (p *Publisher) ErrorTopic(ch playback.Identity) string {
	return p.topic + "/" + ch.String() + "/error"
}

// ProcessEvent publishes transitions to the state topic and load or player
// failures to the error topic. Other event kinds are ignored. Events are
// skipped while the broker is unreachable.
func (p *Publisher) ProcessEvent(ev playback.Event) error {
	msg, ok := NewStateMessage(ev)
	if !ok {
		return nil
	}
	if !p.client.IsConnected() {
		p.log.Debug("not connected, skipping state message",
			logger.String("channel", msg.Channel),
			logger.String("event", msg.Event))
		return nil
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return errors.New(err).
			Component(componentName).
			Category(errors.CategoryMQTTPublish).
			Context("operation", "marshal").
			Build()
	}

	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()
	topic := p.StateTopic(ev.Channel)
	if ev.Kind != playback.EventTransition {
		topic = p.ErrorTopic(ev.Channel)
	}
	return p.client.Publish(ctx, topic, payload)
}

// NewStateMessage converts ev into a StateMessage. It reports false for event
// kinds that are not published.
func NewStateMessage(ev playback.Event) (StateMessage, bool) {
	msg := StateMessage{
		Channel:    ev.Channel.String(),
		Event:      string(ev.Kind),
		Source:     errors.ScrubLocator(ev.Source),
		Generation: ev.Generation,
		LoadID:     ev.LoadID,
		Time:       ev.Time,
	}
	if ev.Err != nil {
		msg.Error = ev.Err.Error()
	}

	switch ev.Kind {
	case playback.EventTransition:
		msg.State = ev.To.String()
		msg.Previous = ev.From.String()
	case playback.EventLoadFailed, playback.EventLoadTimeout, playback.EventPlayerError:
		msg.State = playback.StateFailed.String()
	default:
		return StateMessage{}, false
	}
	return msg, true
}
