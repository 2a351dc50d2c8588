package mqtt

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexiplay/soundtrack/internal/conf"
	"github.com/lexiplay/soundtrack/internal/errors"
	"github.com/lexiplay/soundtrack/internal/events"
	"github.com/lexiplay/soundtrack/internal/logger"
	"github.com/lexiplay/soundtrack/internal/observability/metrics"
	"github.com/lexiplay/soundtrack/internal/playback"
)

type published struct {
	topic   string
	payload []byte
}

// fakeClient records publishes instead of talking to a broker.
type fakeClient struct {
	mu        sync.Mutex
	connected bool
	err       error
	messages  []published
}

func (f *fakeClient) Connect(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = true
	return nil
}

func (f *fakeClient) Publish(_ context.Context, topic string, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.messages = append(f.messages, published{topic: topic, payload: payload})
	return nil
}

func (f *fakeClient) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakeClient) Disconnect() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = false
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Topic = "home/app/"
	return cfg
}

func TestNewConfig(t *testing.T) {
	t.Parallel()

	settings := &conf.Settings{}
	settings.Main.Name = "tablet"
	settings.MQTT.Broker = "tcp://broker:1883"
	settings.MQTT.Retain = true

	cfg := NewConfig(settings)
	assert.Equal(t, "tablet", cfg.ClientID)
	assert.Equal(t, "soundtrack", cfg.Topic)
	assert.True(t, cfg.Retain)

	settings.MQTT.ClientID = "explicit"
	settings.MQTT.Topic = "custom"
	cfg = NewConfig(settings)
	assert.Equal(t, "explicit", cfg.ClientID)
	assert.Equal(t, "custom", cfg.Topic)
}

func TestPublisherTransition(t *testing.T) {
	t.Parallel()

	client := &fakeClient{connected: true}
	p := NewPublisher(client, testConfig(), logger.Discard())
	assert.Equal(t, "mqtt", p.Name())

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, p.ProcessEvent(playback.Event{
		Kind:       playback.EventTransition,
		Channel:    playback.Gameplay,
		Source:     "https://user:pw@cdn.example.com/game.flac?token=secret",
		Generation: 4,
		From:       playback.StatePreparing,
		To:         playback.StatePlaying,
		Time:       now,
	}))

	require.Len(t, client.messages, 1)
	assert.Equal(t, "home/app/gameplay/state", client.messages[0].topic)

	var msg StateMessage
	require.NoError(t, json.Unmarshal(client.messages[0].payload, &msg))
	assert.Equal(t, "gameplay", msg.Channel)
	assert.Equal(t, "playing", msg.State)
	assert.Equal(t, "preparing", msg.Previous)
	assert.Equal(t, uint64(4), msg.Generation)
	assert.Equal(t, "https://cdn.example.com/game.flac", msg.Source)
	assert.True(t, now.Equal(msg.Time))
}

func TestPublisherFailureGoesToErrorTopic(t *testing.T) {
	t.Parallel()

	client := &fakeClient{connected: true}
	p := NewPublisher(client, testConfig(), logger.Discard())

	require.NoError(t, p.ProcessEvent(playback.Event{
		Kind:    playback.EventLoadTimeout,
		Channel: playback.Ambient,
		Err:     errors.NewStd("load timed out"),
		LoadID:  "abc",
	}))

	require.Len(t, client.messages, 1)
	assert.Equal(t, "home/app/ambient/error", client.messages[0].topic)
	var msg StateMessage
	require.NoError(t, json.Unmarshal(client.messages[0].payload, &msg))
	assert.Equal(t, "failed", msg.State)
	assert.Equal(t, "load timed out", msg.Error)
	assert.Equal(t, "abc", msg.LoadID)
}

func TestPublisherIgnoresOtherKinds(t *testing.T) {
	t.Parallel()

	client := &fakeClient{connected: true}
	p := NewPublisher(client, testConfig(), logger.Discard())

	for _, kind := range []playback.EventKind{playback.EventLoadSucceeded, playback.EventStaleCompletion} {
		require.NoError(t, p.ProcessEvent(playback.Event{Kind: kind, Channel: playback.Ambient}))
	}
	assert.Empty(t, client.messages)
}

func TestPublisherSkipsWhileDisconnected(t *testing.T) {
	t.Parallel()

	client := &fakeClient{}
	p := NewPublisher(client, testConfig(), logger.Discard())

	require.NoError(t, p.ProcessEvent(playback.Event{Kind: playback.EventTransition, Channel: playback.Ambient}))
	assert.Empty(t, client.messages)
}

func TestPublisherReturnsPublishError(t *testing.T) {
	t.Parallel()

	client := &fakeClient{connected: true, err: errors.NewStd("broker gone")}
	p := NewPublisher(client, testConfig(), logger.Discard())

	assert.Error(t, p.ProcessEvent(playback.Event{Kind: playback.EventTransition, Channel: playback.Ambient}))
}

func TestClientRejectsInvalidBroker(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Broker = "::not a url"
	c := NewClient(cfg, nil, logger.Discard())

	err := c.Connect(t.Context())
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
	assert.False(t, c.IsConnected())
}

func TestClientPublishWhileDisconnected(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m, err := metrics.NewMQTTMetrics(reg)
	require.NoError(t, err)

	c := NewClient(DefaultConfig(), m, logger.Discard())
	err = c.Publish(t.Context(), "soundtrack/ambient/state", []byte("{}"))
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryMQTTPublish))
	assert.InDelta(t, 0, testutil.ToFloat64(m.ConnectionStatus), 0)

	c.Disconnect()
}

func TestRetainedStateFollowsLastTransitionPerChannel(t *testing.T) {
	t.Parallel()

	client := &fakeClient{connected: true}
	bus := events.New(events.Config{BufferSize: 1024, Workers: 2}, logger.Discard())
	require.NoError(t, bus.RegisterConsumer(NewPublisher(client, testConfig(), logger.Discard())))

	cycle := []playback.State{playback.StatePreparing, playback.StatePlaying, playback.StatePaused}
	final := map[playback.Identity]playback.State{}
	for _, ch := range []playback.Identity{playback.Ambient, playback.Gameplay} {
		final[ch] = playback.StateIdle
	}
	for i := range 100 {
		for _, ch := range []playback.Identity{playback.Ambient, playback.Gameplay} {
			to := cycle[(i+int(ch))%len(cycle)]
			require.True(t, bus.TryPublish(playback.Event{
				Kind:       playback.EventTransition,
				Channel:    ch,
				Generation: uint64(i),
				From:       final[ch],
				To:         to,
			}))
			final[ch] = to
		}
	}
	require.NoError(t, bus.Shutdown(5*time.Second))

	client.mu.Lock()
	defer client.mu.Unlock()
	last := map[string]StateMessage{}
	for _, m := range client.messages {
		var msg StateMessage
		require.NoError(t, json.Unmarshal(m.payload, &msg))
		last[m.topic] = msg
	}
	assert.Equal(t, final[playback.Ambient].String(), last["home/app/ambient/state"].State)
	assert.Equal(t, final[playback.Gameplay].String(), last["home/app/gameplay/state"].State)
	assert.Equal(t, uint64(99), last["home/app/ambient/state"].Generation)
}
