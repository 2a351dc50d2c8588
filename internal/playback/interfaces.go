package playback

import (
	"context"
	"time"
)

// Player is an opaque native playback handle. A Channel owns its player
// exclusively and calls Release exactly once.
type Player interface {
	// Play starts or resumes output.
	Play() error
	// Pause halts output and keeps the resource alive.
	Pause() error
	// Stop halts output ahead of Release.
	Stop() error
	// Release frees the native resource.
	Release() error
}

// LoadRequest describes one asynchronous load issued by a Channel.
type LoadRequest struct {
	Channel    Identity
	Source     string
	Loop       bool
	Generation uint64
	LoadID     string
}

// Loader turns a source locator into a ready Player. Load runs on its own
// goroutine; ctx is cancelled when the load is superseded, stopped or times out.
// A Loader may return a partially built Player together with an error; the
// channel releases it.
type Loader interface {
	Load(ctx context.Context, req LoadRequest) (Player, error)
}

// LoaderFunc adapts a function to the Loader interface.
type LoaderFunc func(ctx context.Context, req LoadRequest) (Player, error)

// Load calls f(ctx, req).
func (f LoaderFunc) Load(ctx context.Context, req LoadRequest) (Player, error) {
	return f(ctx, req)
}

// EventKind classifies an Event.
type EventKind string

const (
	EventTransition      EventKind = "transition"
	EventLoadSucceeded   EventKind = "load_succeeded"
	EventLoadFailed      EventKind = "load_failed"
	EventLoadTimeout     EventKind = "load_timeout"
	EventStaleCompletion EventKind = "stale_completion"
	EventPlayerError     EventKind = "player_error"
)

// Event reports something that happened on a channel.
type Event struct {
	Kind       EventKind     `json:"kind"`
	Channel    Identity      `json:"channel"`
	Source     string        `json:"source,omitempty"`
	Generation uint64        `json:"generation"`
	From       State         `json:"from"`
	To         State         `json:"to"`
	Duration   time.Duration `json:"duration,omitempty"`
	Err        error         `json:"-"`
	LoadID     string        `json:"load_id,omitempty"`
	Time       time.Time     `json:"time"`
}

// Observer receives channel events. Observe is called with the channel lock
// held: it must not block and must not call back into the channel.
type Observer interface {
	Observe(Event)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(Event)

// Observe calls f(ev).
func (f ObserverFunc) Observe(ev Event) { f(ev) }

// Observers fans one event out to several observers in order.
type Observers []Observer

// Observe forwards ev to every non-nil observer.
func (o Observers) Observe(ev Event) {
	for _, obs := range o {
		if obs != nil {
			obs.Observe(ev)
		}
	}
}
