package observability

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/lexiplay/soundtrack/internal/conf"
	"github.com/lexiplay/soundtrack/internal/logger"
	metricspkg "github.com/lexiplay/soundtrack/internal/observability/metrics"
)

const readHeaderTimeout = 5 * time.Second

// Endpoint serves /metrics on its own listener.
type Endpoint struct {
	server        *http.Server
	listenAddress string
	metrics       *Metrics
	log           logger.Logger
}

// NewEndpoint returns an endpoint for settings.Metrics. It fails when metrics are disabled.
func NewEndpoint(settings *conf.Settings, m *Metrics, log logger.Logger) (*Endpoint, error) {
	if !settings.Metrics.Enabled {
		return nil, errors.New("metrics endpoint not enabled in settings")
	}
	if log == nil {
		log = logger.Global().Module("metrics")
	}
	return &Endpoint{
		listenAddress: settings.Metrics.Listen,
		metrics:       m,
		log:           log,
	}, nil
}

// Start runs the HTTP server until quitChan is closed.
func (e *Endpoint) Start(wg *sync.WaitGroup, quitChan <-chan struct{}) {
	mux := http.NewServeMux()
	e.metrics.RegisterHandlers(mux)

	e.server = &http.Server{
		Addr:              e.listenAddress,
		Handler:           mux,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	wg.Go(func() {
		e.log.Info("metrics endpoint starting", logger.String("address", e.listenAddress))
		if err := e.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			e.log.Error("metrics HTTP server error", logger.Error(err))
		}
	})

	wg.Go(func() {
		e.gracefulShutdown(quitChan)
	})
}

func (e *Endpoint) gracefulShutdown(quitChan <-chan struct{}) {
	<-quitChan
	e.log.Info("stopping metrics endpoint")
	ctx, cancel := context.WithTimeout(context.Background(), metricspkg.ShutdownTimeout)
	defer cancel()
	if err := e.server.Shutdown(ctx); err != nil {
		e.log.Error("metrics endpoint shutdown error", logger.Error(err))
	}
}

// GetMetrics returns the Metrics instance associated with this Endpoint.
func (e *Endpoint) GetMetrics() *Metrics {
	return e.metrics
}
