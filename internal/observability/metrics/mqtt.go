package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// MQTTMetrics contains all Prometheus metrics related to MQTT operations.
type MQTTMetrics struct {
	ConnectionStatus  prometheus.Gauge
	Messages          *prometheus.CounterVec
	ReconnectAttempts prometheus.Counter
	PublishLatency    prometheus.Histogram
}

// NewMQTTMetrics creates and registers MQTT metrics on registry.
func NewMQTTMetrics(registry prometheus.Registerer) (*MQTTMetrics, error) {
	m := &MQTTMetrics{
		ConnectionStatus: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "mqtt_connected",
			Help:      "Current MQTT connection status (1 for connected, 0 for disconnected)",
		}),

		Messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "mqtt_messages_total",
			Help:      "MQTT publish attempts by result",
		}, []string{"result"}),

		ReconnectAttempts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "mqtt_reconnect_attempts_total",
			Help:      "Total number of MQTT reconnection attempts",
		}),

		PublishLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "mqtt_publish_latency_seconds",
			Help:      "Latency of MQTT publish operations in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 10),
		}),
	}

	for _, c := range []prometheus.Collector{m.ConnectionStatus, m.Messages, m.ReconnectAttempts, m.PublishLatency} {
		if err := registry.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register MQTT metrics: %w", err)
		}
	}
	return m, nil
}

// UpdateConnectionStatus updates the MQTT connection status.
func (m *MQTTMetrics) UpdateConnectionStatus(connected bool) {
	if connected {
		m.ConnectionStatus.Set(1)
		return
	}
	m.ConnectionStatus.Set(0)
}

// RecordPublish counts a publish attempt and its latency.
func (m *MQTTMetrics) RecordPublish(d time.Duration, err error) {
	if err != nil {
		m.Messages.WithLabelValues(ResultError).Inc()
		return
	}
	m.Messages.WithLabelValues(ResultSuccess).Inc()
	m.PublishLatency.Observe(d.Seconds())
}

// IncrementReconnectAttempts increments the count of MQTT reconnection attempts.
func (m *MQTTMetrics) IncrementReconnectAttempts() {
	m.ReconnectAttempts.Inc()
}
