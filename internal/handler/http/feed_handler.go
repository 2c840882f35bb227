// internal/handler/http/feed_handler.go
package http

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"vidfeed/internal/client"
	"vidfeed/internal/feed"
)

type FeedHandler struct {
	manager *feed.Manager
	redgifs client.RedGifsSource
}

func NewFeedHandler(manager *feed.Manager, redgifs client.RedGifsSource) *FeedHandler {
	return &FeedHandler{manager: manager, redgifs: redgifs}
}

// GetFeed godoc
// @Summary Get the session feed
// @Description Returns the session's video list. Passing the viewer's position triggers replenishment when the end of the list is near. Omitting session_id mints a new session.
// @Tags feed
// @Produce json
// @Param session_id query string false "Session ID from a previous response"
// @Param position query int false "Index of the video currently being viewed"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} models.HTTPError
// @Router /feed [get]
func (h *FeedHandler) GetFeed(c echo.Context) error {
	var position int
	if p := c.QueryParam("position"); p != "" {
		v, err := strconv.Atoi(p)
		if err != nil || v < 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid `position`")
		}
		position = v
	}

	ctx := c.Request().Context()
	sessionID, ctrl := h.manager.GetOrCreate(ctx, c.QueryParam("session_id"))
	ctrl.OnPosition(ctx, position)

	return c.JSON(http.StatusOK, map[string]interface{}{
		"session_id": sessionID,
		"videos":     ctrl.Videos(),
		"in_flight":  ctrl.InFlight(),
	})
}

// RefreshFeed godoc
// @Summary Reset a session feed
// @Description Discards the session's accumulated feed state and source caches and starts a fresh session
// @Tags feed
// @Produce json
// @Param session_id query string false "Session ID to discard"
// @Success 200 {object} map[string]interface{}
// @Router /feed/refresh [post]
func (h *FeedHandler) RefreshFeed(c echo.Context) error {
	if id := c.QueryParam("session_id"); id != "" {
		h.manager.Drop(id)
	}
	h.redgifs.ClearCache()

	ctx := c.Request().Context()
	sessionID, ctrl := h.manager.GetOrCreate(ctx, "")

	return c.JSON(http.StatusOK, map[string]interface{}{
		"session_id": sessionID,
		"videos":     ctrl.Videos(),
		"in_flight":  ctrl.InFlight(),
	})
}
