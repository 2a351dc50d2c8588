package playback

import (
	"time"

	"github.com/lexiplay/soundtrack/internal/logger"
)

// DefaultLoadTimeout bounds how long a channel may stay Preparing.
const DefaultLoadTimeout = 30 * time.Second

// Option configures channels created by New or NewChannel.
type Option func(*options)

type options struct {
	logger      logger.Logger
	observer    Observer
	loadTimeout time.Duration
	loop        bool
}

func buildOptions(opts []Option) options {
	o := options{
		loadTimeout: DefaultLoadTimeout,
		loop:        true,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logger.Global().Module(componentName)
	}
	return o
}

// WithLogger sets the logger; each channel derives a child tagged with its identity.
func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithObserver sets the event observer. Use Observers to combine several.
func WithObserver(obs Observer) Option {
	return func(o *options) {
		o.observer = obs
	}
}

// WithLoadTimeout bounds the Preparing state. Zero disables the bound.
func WithLoadTimeout(d time.Duration) Option {
	return func(o *options) {
		if d < 0 {
			d = 0
		}
		o.loadTimeout = d
	}
}

// WithLoop controls whether loads request looped playback.
func WithLoop(loop bool) Option {
	return func(o *options) {
		o.loop = loop
	}
}
