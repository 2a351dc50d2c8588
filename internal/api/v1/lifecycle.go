package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/lexiplay/soundtrack/internal/lifecycle"
	"github.com/lexiplay/soundtrack/internal/playback"
)

// ActionResult is returned by every lifecycle endpoint. Channels reflects the
// state right after the call; loads it issued are still in flight.
type ActionResult struct {
	Success   bool                `json:"success"`
	Action    string              `json:"action"`
	Channels  []playback.Snapshot `json:"channels"`
	Timestamp time.Time           `json:"timestamp"`
}

// initLifecycleRoutes registers the host lifecycle endpoints
func (c *Controller) initLifecycleRoutes() {
	g := c.Group.Group("/lifecycle")
	g.POST("/foreground", c.Foreground)
	g.POST("/background", c.Background)
	g.POST("/gameplay/enter", c.GameplayEnter)
	g.POST("/gameplay/exit", c.GameplayExit)
	g.GET("/events", c.ListEvents)
}

// Foreground handles POST /api/v1/lifecycle/foreground
func (c *Controller) Foreground(ctx echo.Context) error {
	c.lifecycle.Foreground()
	return c.result(ctx, lifecycle.EventForeground)
}

// Background handles POST /api/v1/lifecycle/background
func (c *Controller) Background(ctx echo.Context) error {
	c.lifecycle.Background()
	return c.result(ctx, lifecycle.EventBackground)
}

// GameplayEnter handles POST /api/v1/lifecycle/gameplay/enter
func (c *Controller) GameplayEnter(ctx echo.Context) error {
	c.lifecycle.GameplayEnter()
	return c.result(ctx, lifecycle.EventGameplayEnter)
}

// GameplayExit handles POST /api/v1/lifecycle/gameplay/exit. Without
// resume_ambient the configured default applies.
func (c *Controller) GameplayExit(ctx echo.Context) error {
	raw := ctx.QueryParam("resume_ambient")
	if raw == "" {
		if err := c.lifecycle.Dispatch(lifecycle.EventGameplayExit); err != nil {
			return c.HandleError(ctx, err, "Failed to exit gameplay", http.StatusInternalServerError)
		}
		return c.result(ctx, lifecycle.EventGameplayExit)
	}

	resume, err := strconv.ParseBool(raw)
	if err != nil {
		return c.HandleError(ctx, err, "Invalid resume_ambient parameter", http.StatusBadRequest)
	}
	c.lifecycle.GameplayExit(resume)
	if resume {
		return c.result(ctx, lifecycle.EventGameplayExitResume)
	}
	return c.result(ctx, lifecycle.EventGameplayExit)
}

// ListEvents handles GET /api/v1/lifecycle/events
func (c *Controller) ListEvents(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, lifecycle.Events)
}

func (c *Controller) result(ctx echo.Context, action string) error {
	return ctx.JSON(http.StatusOK, ActionResult{
		Success:   true,
		Action:    action,
		Channels:  c.snapshots(),
		Timestamp: time.Now(),
	})
}
