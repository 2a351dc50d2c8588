package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PlaybackMetrics tracks channel transitions and load outcomes.
type PlaybackMetrics struct {
	Transitions      *prometheus.CounterVec
	State            *prometheus.GaugeVec
	Generation       *prometheus.GaugeVec
	Loads            *prometheus.CounterVec
	LoadDuration     *prometheus.HistogramVec
	StaleCompletions *prometheus.CounterVec
	PlayerErrors     *prometheus.CounterVec
}

// NewPlaybackMetrics creates and registers playback metrics on registry.
func NewPlaybackMetrics(registry prometheus.Registerer) (*PlaybackMetrics, error) {
	m := &PlaybackMetrics{
		Transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "channel_transitions_total",
			Help:      "Total number of channel state transitions",
		}, []string{"channel", "from", "to"}),

		State: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "channel_state",
			Help:      "Current channel state (1 for the current state, 0 otherwise)",
		}, []string{"channel", "state"}),

		Generation: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "channel_generation",
			Help:      "Current load generation of the channel",
		}, []string{"channel"}),

		Loads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "channel_loads_total",
			Help:      "Total number of applied load completions by result",
		}, []string{"channel", "result"}),

		LoadDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "channel_load_duration_seconds",
			Help:      "Time from load issue to completion",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		}, []string{"channel"}),

		StaleCompletions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "channel_stale_completions_total",
			Help:      "Total number of discarded load completions",
		}, []string{"channel"}),

		PlayerErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "channel_player_errors_total",
			Help:      "Total number of native player errors",
		}, []string{"channel"}),
	}

	for _, c := range []prometheus.Collector{
		m.Transitions, m.State, m.Generation, m.Loads, m.LoadDuration, m.StaleCompletions, m.PlayerErrors,
	} {
		if err := registry.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register playback metrics: %w", err)
		}
	}
	return m, nil
}

// RecordTransition counts a transition and moves the state gauge.
func (m *PlaybackMetrics) RecordTransition(channel, from, to string) {
	m.Transitions.WithLabelValues(channel, from, to).Inc()
	m.State.WithLabelValues(channel, from).Set(0)
	m.State.WithLabelValues(channel, to).Set(1)
}

// SetGeneration records the channel's current generation.
func (m *PlaybackMetrics) SetGeneration(channel string, generation uint64) {
	m.Generation.WithLabelValues(channel).Set(float64(generation))
}

// RecordLoad counts a load outcome and observes its duration.
func (m *PlaybackMetrics) RecordLoad(channel, result string, d time.Duration) {
	m.Loads.WithLabelValues(channel, result).Inc()
	m.LoadDuration.WithLabelValues(channel).Observe(d.Seconds())
}

// RecordStaleCompletion counts a discarded completion.
func (m *PlaybackMetrics) RecordStaleCompletion(channel string) {
	m.StaleCompletions.WithLabelValues(channel).Inc()
}

// RecordPlayerError counts a native player failure.
func (m *PlaybackMetrics) RecordPlayerError(channel string) {
	m.PlayerErrors.WithLabelValues(channel).Inc()
}
