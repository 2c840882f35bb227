// internal/handler/http/proxy_handler.go
package http

import (
	"context"
	"io"
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"
)

// MediaStreamer issues an unbuffered GET for proxying large media bodies.
type MediaStreamer interface {
	Stream(ctx context.Context, rawURL string) (*http.Response, error)
}

type ProxyHandler struct {
	streamer MediaStreamer
}

func NewProxyHandler(streamer MediaStreamer) *ProxyHandler {
	return &ProxyHandler{streamer: streamer}
}

// Proxy godoc
// @Summary Stream upstream media
// @Description Fetches the given upstream media URL and streams the body back, so the player never contacts third-party hosts directly
// @Tags media
// @Param url query string true "Upstream media URL"
// @Success 200
// @Failure 400 {object} models.HTTPError
// @Failure 502 {object} models.HTTPError
// @Router /proxy [get]
func (h *ProxyHandler) Proxy(c echo.Context) error {
	raw := c.QueryParam("url")
	if raw == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "missing `url` parameter")
	}
	parsed, err := url.Parse(raw)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid `url` parameter")
	}

	resp, err := h.streamer.Stream(c.Request().Context(), raw)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, "upstream fetch failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		return echo.NewHTTPError(http.StatusBadGateway, "upstream returned an error")
	}

	for _, header := range []string{"Content-Type", "Content-Length", "Accept-Ranges", "Content-Range"} {
		if v := resp.Header.Get(header); v != "" {
			c.Response().Header().Set(header, v)
		}
	}
	c.Response().WriteHeader(resp.StatusCode)

	_, err = io.Copy(c.Response().Writer, resp.Body)
	return err
}
