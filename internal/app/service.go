package app

import (
	"context"
	"sync"
	"time"

	"github.com/lexiplay/soundtrack/internal/api"
	v1 "github.com/lexiplay/soundtrack/internal/api/v1"
	"github.com/lexiplay/soundtrack/internal/errors"
	"github.com/lexiplay/soundtrack/internal/events"
	"github.com/lexiplay/soundtrack/internal/logger"
	"github.com/lexiplay/soundtrack/internal/mqtt"
	"github.com/lexiplay/soundtrack/internal/observability"
	"github.com/lexiplay/soundtrack/internal/runtime"
	"github.com/lexiplay/soundtrack/internal/telemetry"
)

const (
	mqttConnectTimeout = 15 * time.Second
	sentryFlushTimeout = 2 * time.Second
	shutdownTimeout    = 10 * time.Second
)

// Service runs the Core behind the HTTP API with metrics, MQTT and Sentry as
// configured.
type Service struct {
	core     *Core
	rt       *runtime.Context
	log      logger.Logger
	reporter *telemetry.Reporter
	mqtt     mqtt.Client
}

// NewService wraps core.
func NewService(core *Core, rt *runtime.Context) *Service {
	return &Service{core: core, rt: rt, log: core.log}
}

// Run starts every enabled service, enters the foreground and blocks until ctx
// is done. It then releases both channels and stops everything it started.
func (s *Service) Run(ctx context.Context) error {
	settings := s.core.Settings

	if err := s.core.Bus.RegisterConsumer(events.NewLogConsumer(s.log.Module("events"))); err != nil {
		return err
	}

	s.startTelemetry()
	s.startMQTT(ctx)

	var wg sync.WaitGroup
	quitChan := make(chan struct{})

	if settings.Metrics.Enabled {
		endpoint, err := observability.NewEndpoint(settings, s.core.Metrics, s.log.Module("metrics"))
		if err != nil {
			return err
		}
		endpoint.Start(&wg, quitChan)
	}

	if settings.API.Enabled {
		server, err := api.NewServer(settings, s.core.Lifecycle, s.core.Orchestrator, s.log.Module("api"),
			v1.WithEventStats(s.core.Bus.GetStats))
		if err != nil {
			return err
		}
		server.Start(&wg, quitChan)
	}

	s.log.Info("soundtrack service started",
		logger.String("version", s.rt.String()),
		logger.String("ambient", errors.ScrubLocator(settings.Audio.AmbientTrack)),
		logger.String("gameplay", errors.ScrubLocator(settings.Audio.GameplayTrack)))

	s.core.Lifecycle.Foreground()

	<-ctx.Done()
	s.log.Info("shutting down")

	// Servers finish their in-flight requests before the channels are
	// released, so no lifecycle call lands after teardown.
	close(quitChan)
	wg.Wait()

	s.core.Lifecycle.Background()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := s.core.Close(shutdownCtx)

	s.stopMQTT()
	s.stopTelemetry()
	return err
}

func (s *Service) startTelemetry() {
	settings := s.core.Settings
	if !settings.Sentry.Enabled {
		return
	}
	reporter, err := telemetry.NewReporter(settings.Sentry,
		telemetry.WithRelease(s.rt.Release()),
		telemetry.WithLogger(s.log.Module("telemetry")))
	if err != nil {
		s.log.Warn("sentry telemetry unavailable", logger.Error(err))
		return
	}
	s.reporter = reporter
	errors.SetTelemetryReporter(reporter)
}

func (s *Service) stopTelemetry() {
	if s.reporter == nil {
		return
	}
	errors.SetTelemetryReporter(nil)
	s.reporter.Flush(sentryFlushTimeout)
}

// startMQTT connects and registers the state publisher. A broker that is down
// at startup is logged and otherwise ignored.
func (s *Service) startMQTT(ctx context.Context) {
	settings := s.core.Settings
	if !settings.MQTT.Enabled {
		return
	}

	cfg := mqtt.NewConfig(settings)
	client := mqtt.NewClient(cfg, s.core.Metrics.MQTT, s.log.Module("mqtt"))

	connectCtx, cancel := context.WithTimeout(ctx, mqttConnectTimeout)
	defer cancel()
	if err := client.Connect(connectCtx); err != nil {
		s.log.Warn("MQTT connection failed, state publishing disabled", logger.Error(err))
		return
	}
	s.mqtt = client

	if err := s.core.Bus.RegisterConsumer(mqtt.NewPublisher(client, cfg, s.log.Module("mqtt"))); err != nil {
		s.log.Warn("failed to register MQTT publisher", logger.Error(err))
	}
}

func (s *Service) stopMQTT() {
	if s.mqtt != nil {
		s.mqtt.Disconnect()
	}
}
