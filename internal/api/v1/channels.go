package api

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/lexiplay/soundtrack/internal/errors"
	"github.com/lexiplay/soundtrack/internal/playback"
)

// initChannelRoutes registers channel inspection and ambient control endpoints
func (c *Controller) initChannelRoutes() {
	c.Group.GET("/channels", c.GetChannels)
	c.Group.GET("/channels/:channel", c.GetChannel)
	c.Group.POST("/ambient/resume", c.ResumeAmbient)
}

// GetChannels handles GET /api/v1/channels
func (c *Controller) GetChannels(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, c.snapshots())
}

// snapshots returns channel snapshots with credentials stripped from sources.
func (c *Controller) snapshots() []playback.Snapshot {
	snaps := c.orch.Snapshot()
	for i := range snaps {
		snaps[i].Source = errors.ScrubLocator(snaps[i].Source)
	}
	return snaps
}

// GetChannel handles GET /api/v1/channels/:channel
func (c *Controller) GetChannel(ctx echo.Context) error {
	name := strings.ToLower(ctx.Param("channel"))
	for _, snap := range c.snapshots() {
		if snap.Channel.String() == name {
			return ctx.JSON(http.StatusOK, snap)
		}
	}
	err := errors.Newf("unknown channel %q", name).
		Component("api").
		Category(errors.CategoryNotFound).
		Build()
	return c.HandleError(ctx, err, "Channel not found", http.StatusNotFound)
}

// ResumeAmbient handles POST /api/v1/ambient/resume. Resuming a channel that is
// not paused is a no-op, so this always succeeds.
func (c *Controller) ResumeAmbient(ctx echo.Context) error {
	c.orch.ResumeAmbient()
	for _, snap := range c.snapshots() {
		if snap.Channel == playback.Ambient {
			return ctx.JSON(http.StatusOK, snap)
		}
	}
	return ctx.NoContent(http.StatusOK)
}
