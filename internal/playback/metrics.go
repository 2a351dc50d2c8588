package playback

import (
	"github.com/lexiplay/soundtrack/internal/observability/metrics"
)

// MetricsObserver records channel events as Prometheus metrics.
type MetricsObserver struct {
	m *metrics.PlaybackMetrics
}

// NewMetricsObserver returns an Observer backed by m.
func NewMetricsObserver(m *metrics.PlaybackMetrics) *MetricsObserver {
	return &MetricsObserver{m: m}
}

// Observe implements Observer.
func (o *MetricsObserver) Observe(ev Event) {
	if o == nil || o.m == nil {
		return
	}
	channel := ev.Channel.String()

	switch ev.Kind {
	case EventTransition:
		o.m.RecordTransition(channel, ev.From.String(), ev.To.String())
		o.m.SetGeneration(channel, ev.Generation)
	case EventLoadSucceeded:
		o.m.RecordLoad(channel, metrics.ResultSuccess, ev.Duration)
	case EventLoadFailed:
		o.m.RecordLoad(channel, metrics.ResultFailure, ev.Duration)
	case EventLoadTimeout:
		o.m.RecordLoad(channel, metrics.ResultTimeout, ev.Duration)
	case EventStaleCompletion:
		o.m.RecordStaleCompletion(channel)
	case EventPlayerError:
		o.m.RecordPlayerError(channel)
	}
}
