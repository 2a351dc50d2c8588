// Package api hosts the HTTP server for the control API.
package api

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	v1 "github.com/lexiplay/soundtrack/internal/api/v1"
	"github.com/lexiplay/soundtrack/internal/conf"
	"github.com/lexiplay/soundtrack/internal/logger"
)

const shutdownTimeout = 5 * time.Second

// Server is the HTTP server for the control API.
type Server struct {
	echo     *echo.Echo
	listen   string
	log      logger.Logger
	shutdown sync.Once

	Controller *v1.Controller
}

// NewServer builds the echo instance and registers the v1 routes. It fails
// when the API is disabled.
func NewServer(settings *conf.Settings, lc v1.Lifecycle, orch v1.Orchestrator, log logger.Logger, opts ...v1.Option) (*Server, error) {
	if !settings.API.Enabled {
		return nil, errors.New("HTTP API not enabled in settings")
	}
	if log == nil {
		log = logger.Global().Module("api")
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:  true,
		LogURIPath: true,
		LogStatus:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(_ echo.Context, v echomw.RequestLoggerValues) error {
			fields := []logger.Field{
				logger.String("method", v.Method),
				logger.String("path", v.URIPath),
				logger.Int("status", v.Status),
				logger.Duration("latency", v.Latency),
			}
			if v.Error != nil {
				fields = append(fields, logger.Error(v.Error))
			}
			log.Debug("request", fields...)
			return nil
		},
	}))

	opts = append([]v1.Option{v1.WithLogger(log)}, opts...)
	s := &Server{
		echo:   e,
		listen: settings.API.Listen,
		log:    log,
	}
	s.Controller = v1.New(e, lc, orch, opts...)
	return s, nil
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start serves until quitChan is closed.
func (s *Server) Start(wg *sync.WaitGroup, quitChan <-chan struct{}) {
	wg.Go(func() {
		s.log.Info("HTTP API starting", logger.String("address", s.listen))
		if err := s.echo.Start(s.listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("HTTP API server error", logger.Error(err))
		}
	})

	wg.Go(func() {
		<-quitChan
		s.Shutdown()
	})
}

// Shutdown stops the server. Safe to call more than once.
func (s *Server) Shutdown() {
	s.shutdown.Do(func() {
		s.log.Info("stopping HTTP API")
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.echo.Shutdown(ctx); err != nil {
			s.log.Error("HTTP API shutdown error", logger.Error(err))
		}
	})
}
