// Package app assembles the orchestrator and its supporting services from
// settings. The cobra commands are thin wrappers around it.
package app

import (
	"context"
	"time"

	"github.com/lexiplay/soundtrack/internal/conf"
	"github.com/lexiplay/soundtrack/internal/errors"
	"github.com/lexiplay/soundtrack/internal/events"
	"github.com/lexiplay/soundtrack/internal/fetch"
	"github.com/lexiplay/soundtrack/internal/lifecycle"
	"github.com/lexiplay/soundtrack/internal/logger"
	"github.com/lexiplay/soundtrack/internal/observability"
	"github.com/lexiplay/soundtrack/internal/playback"
	"github.com/lexiplay/soundtrack/internal/playback/device"
)

const (
	componentName = "app"

	busShutdownTimeout = 5 * time.Second
)

// Core is the process-wide orchestrator together with everything it needs to
// load and play tracks. Exactly one is built per process.
type Core struct {
	Settings     *conf.Settings
	Metrics      *observability.Metrics
	Fetcher      *fetch.Fetcher
	Bus          *events.EventBus
	Orchestrator *playback.Orchestrator
	Lifecycle    *lifecycle.Adapter

	engine *device.Engine
	log    logger.Logger
}

// Option configures NewCore.
type Option func(*coreOptions)

type coreOptions struct {
	loader playback.Loader
	log    logger.Logger
}

// WithLoader replaces the native fetch/decode/device loader, mainly for tests.
// No audio engine is opened when a loader is supplied.
func WithLoader(l playback.Loader) Option {
	return func(o *coreOptions) { o.loader = l }
}

// WithLogger sets the base logger; components derive module loggers from it.
func WithLogger(l logger.Logger) Option {
	return func(o *coreOptions) { o.log = l }
}

// NewCore builds the metrics registry, fetcher, audio engine, event bus,
// orchestrator and lifecycle adapter.
func NewCore(settings *conf.Settings, opts ...Option) (*Core, error) {
	var o coreOptions
	for _, opt := range opts {
		opt(&o)
	}
	module := func(name string) logger.Logger {
		if o.log != nil {
			return o.log.Module(name)
		}
		return logger.Global().Module(name)
	}

	m, err := observability.NewMetrics()
	if err != nil {
		return nil, errors.New(err).
			Component(componentName).
			Category(errors.CategoryResource).
			Context("operation", "init_metrics").
			Build()
	}

	audio := settings.Audio
	fetcher := fetch.New(fetch.Config{
		Timeout:   audio.Fetch.Timeout,
		CacheTTL:  audio.Fetch.CacheTTL,
		RateLimit: audio.Fetch.RateLimit,
		Burst:     audio.Fetch.Burst,
		MaxBytes:  audio.Fetch.MaxBytes,
		UserAgent: audio.Fetch.UserAgent,
	}, fetch.WithMetrics(m.Fetch), fetch.WithLogger(module("fetch")))

	c := &Core{
		Settings: settings,
		Metrics:  m,
		Fetcher:  fetcher,
		log:      module(componentName),
	}

	loader := o.loader
	if loader == nil {
		engine, err := device.NewEngine(device.EngineConfig{
			Backend:    audio.Device.Backend,
			SampleRate: audio.Device.SampleRate,
			Channels:   audio.Device.Channels,
		}, module("device"))
		if err != nil {
			return nil, err
		}
		c.engine = engine
		loader = device.NewLoader(fetcher, engine, module("device"))
	}

	c.Bus = events.New(events.Config{
		BufferSize: settings.Events.BufferSize,
		Workers:    settings.Events.Workers,
	}, module("events"))

	c.Orchestrator = playback.New(loader,
		playback.WithLogger(module("playback")),
		playback.WithLoadTimeout(audio.LoadTimeout),
		playback.WithLoop(audio.Loop),
		playback.WithObserver(playback.Observers{
			playback.NewMetricsObserver(m.Playback),
			c.Bus,
		}),
	)

	c.Lifecycle = lifecycle.NewAdapter(c.Orchestrator, audio.AmbientTrack, audio.GameplayTrack, module("lifecycle"))
	c.Lifecycle.ResumeAmbientOnExit = audio.ResumeAmbientOnExit

	return c, nil
}

// Close releases both channels, waits for in-flight loads within ctx, drains
// the event bus and frees the audio engine.
func (c *Core) Close(ctx context.Context) error {
	var errs []error
	if err := c.Orchestrator.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := c.Bus.Shutdown(busShutdownTimeout); err != nil {
		errs = append(errs, err)
	}
	if c.engine != nil {
		if err := c.engine.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		c.log.Warn("shutdown incomplete", logger.Error(errors.Join(errs...)))
	}
	return errors.Join(errs...)
}
