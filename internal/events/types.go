// Package events delivers playback events to slow consumers (MQTT, logs)
// without blocking the channel that emitted them.
package events

import (
	"github.com/lexiplay/soundtrack/internal/playback"
)

// Consumer processes playback events on a bus worker goroutine.
type Consumer interface {
	// Name identifies the consumer in logs and must be unique per bus.
	Name() string

	// ProcessEvent handles a single event. Errors are counted and logged.
	ProcessEvent(event playback.Event) error
}

// ConsumerFunc adapts a named function to Consumer.
type ConsumerFunc struct {
	ID string
	Fn func(playback.Event) error
}

// Name returns c.ID.
func (c ConsumerFunc) Name() string { return c.ID }

// ProcessEvent calls c.Fn.
func (c ConsumerFunc) ProcessEvent(event playback.Event) error { return c.Fn(event) }

// Stats contains runtime statistics for monitoring.
type Stats struct {
	EventsReceived  uint64 `json:"events_received"`
	EventsProcessed uint64 `json:"events_processed"`
	EventsDropped   uint64 `json:"events_dropped"`
	ConsumerErrors  uint64 `json:"consumer_errors"`
}
