package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlaybackMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewPlaybackMetrics(reg)
	require.NoError(t, err)

	m.RecordTransition("ambient", "idle", "preparing")
	m.RecordTransition("ambient", "preparing", "playing")
	m.RecordLoad("ambient", ResultSuccess, 250*time.Millisecond)
	m.RecordStaleCompletion("gameplay")
	m.SetGeneration("ambient", 4)
	m.RecordPlayerError("gameplay")

	assert.InDelta(t, 1, testutil.ToFloat64(m.Transitions.WithLabelValues("ambient", "preparing", "playing")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.State.WithLabelValues("ambient", "playing")), 0)
	assert.InDelta(t, 0, testutil.ToFloat64(m.State.WithLabelValues("ambient", "preparing")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.Loads.WithLabelValues("ambient", ResultSuccess)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.StaleCompletions.WithLabelValues("gameplay")), 0)
	assert.InDelta(t, 4, testutil.ToFloat64(m.Generation.WithLabelValues("ambient")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.PlayerErrors.WithLabelValues("gameplay")), 0)

	_, err = NewPlaybackMetrics(reg)
	assert.Error(t, err, "double registration is rejected")
}

func TestFetchMetrics(t *testing.T) {
	m, err := NewFetchMetrics(prometheus.NewRegistry())
	require.NoError(t, err)

	m.RecordCacheHit()
	m.RecordCacheMiss()
	m.RecordCacheMiss()
	m.RecordFetch("https", time.Second, 1024, nil)
	m.RecordFetch("https", time.Second, 0, errors.New("boom"))

	assert.InDelta(t, 1, testutil.ToFloat64(m.Cache.WithLabelValues(ResultHit)), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(m.Cache.WithLabelValues(ResultMiss)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.Errors.WithLabelValues("https")), 0)
	assert.InDelta(t, 1024, testutil.ToFloat64(m.Bytes), 0)
}

func TestMQTTMetrics(t *testing.T) {
	m, err := NewMQTTMetrics(prometheus.NewRegistry())
	require.NoError(t, err)

	m.UpdateConnectionStatus(true)
	assert.InDelta(t, 1, testutil.ToFloat64(m.ConnectionStatus), 0)
	m.UpdateConnectionStatus(false)
	assert.InDelta(t, 0, testutil.ToFloat64(m.ConnectionStatus), 0)

	m.RecordPublish(time.Millisecond, nil)
	m.RecordPublish(0, errors.New("timeout"))
	m.IncrementReconnectAttempts()
	assert.InDelta(t, 1, testutil.ToFloat64(m.Messages.WithLabelValues(ResultSuccess)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.Messages.WithLabelValues(ResultError)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.ReconnectAttempts), 0)
}
