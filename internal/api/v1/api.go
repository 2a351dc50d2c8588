// Package api implements the v1 HTTP control surface of the orchestrator.
package api

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/lexiplay/soundtrack/internal/events"
	"github.com/lexiplay/soundtrack/internal/logger"
	"github.com/lexiplay/soundtrack/internal/playback"
)

// Lifecycle is the host event surface, implemented by *lifecycle.Adapter.
type Lifecycle interface {
	Foreground()
	Background()
	GameplayEnter()
	GameplayExit(resume bool)
	Dispatch(name string) error
}

// Orchestrator is the subset of *playback.Orchestrator the API reads or resumes.
type Orchestrator interface {
	ResumeAmbient()
	Snapshot() []playback.Snapshot
}

// Controller owns the /api/v1 route group.
type Controller struct {
	Group *echo.Group

	lifecycle  Lifecycle
	orch       Orchestrator
	eventStats func() events.Stats
	startTime  time.Time
	log        logger.Logger
}

// Option configures a Controller.
type Option func(*Controller)

// WithEventStats exposes event bus statistics on the health endpoint.
func WithEventStats(fn func() events.Stats) Option {
	return func(c *Controller) { c.eventStats = fn }
}

// WithLogger sets the controller logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Controller) { c.log = l }
}

// New registers the v1 routes on e and returns the controller.
func New(e *echo.Echo, lc Lifecycle, orch Orchestrator, opts ...Option) *Controller {
	c := &Controller{
		Group:     e.Group("/api/v1"),
		lifecycle: lc,
		orch:      orch,
		startTime: time.Now(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = logger.Global().Module("api")
	}
	c.initRoutes()
	return c
}

func (c *Controller) initRoutes() {
	c.Group.GET("/health", c.HealthCheck)
	c.initLifecycleRoutes()
	c.initChannelRoutes()
}

// HealthResponse is the body of GET /api/v1/health.
type HealthResponse struct {
	Status    string        `json:"status"`
	Uptime    string        `json:"uptime"`
	Timestamp time.Time     `json:"timestamp"`
	Events    *events.Stats `json:"events,omitempty"`
}

// HealthCheck handles GET /api/v1/health
func (c *Controller) HealthCheck(ctx echo.Context) error {
	resp := HealthResponse{
		Status:    "healthy",
		Uptime:    time.Since(c.startTime).Round(time.Second).String(),
		Timestamp: time.Now(),
	}
	if c.eventStats != nil {
		stats := c.eventStats()
		resp.Events = &stats
	}
	return ctx.JSON(http.StatusOK, resp)
}

// ErrorResponse represents a standard error response across the API
type ErrorResponse struct {
	Error         string `json:"error"`
	Message       string `json:"message"`
	Code          int    `json:"code"`
	CorrelationID string `json:"correlation_id"` // Unique identifier for tracking this error
}

// NewErrorResponse creates a new API error response
func NewErrorResponse(err error, message string, code int) *ErrorResponse {
	errorStr := message
	if err != nil {
		errorStr = err.Error()
	}
	return &ErrorResponse{
		Error:         errorStr,
		Message:       message,
		Code:          code,
		CorrelationID: uuid.NewString(),
	}
}

// HandleError logs err with a fresh correlation id and writes it as an ErrorResponse.
func (c *Controller) HandleError(ctx echo.Context, err error, message string, code int) error {
	resp := NewErrorResponse(err, message, code)
	c.log.Warn("API error",
		logger.String("correlation_id", resp.CorrelationID),
		logger.String("message", message),
		logger.String("error", resp.Error),
		logger.Int("code", code),
		logger.String("path", ctx.Request().URL.Path),
		logger.String("method", ctx.Request().Method))
	return ctx.JSON(code, resp)
}
