// internal/handler/http/video_handler.go
package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"vidfeed/internal/normalize"
	"vidfeed/internal/storage"
)

type VideoHandler struct {
	store storage.VideoStore
}

func NewVideoHandler(store storage.VideoStore) *VideoHandler {
	return &VideoHandler{store: store}
}

// ListVideos godoc
// @Summary List stored videos
// @Description Returns all locally stored videos, newest first
// @Tags videos
// @Produce json
// @Success 200 {array} models.Video
// @Failure 500 {object} models.HTTPError
// @Router /videos [get]
func (h *VideoHandler) ListVideos(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	videos, err := h.store.ListVideos(ctx)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list videos")
	}
	return c.JSON(http.StatusOK, videos)
}

// GetVideo godoc
// @Summary Get one video
// @Description Returns a single stored video by ID
// @Tags videos
// @Produce json
// @Param id path string true "Video ID"
// @Success 200 {object} models.Video
// @Failure 404 {object} models.HTTPError
// @Router /videos/{id} [get]
func (h *VideoHandler) GetVideo(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	video, err := h.store.GetVideo(ctx, c.Param("id"))
	if errors.Is(err, storage.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "video not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load video")
	}
	return c.JSON(http.StatusOK, video)
}

type createVideoRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	VideoURL    string `json:"video_url"`
	Username    string `json:"username"`
}

// CreateVideo godoc
// @Summary Register an uploaded video
// @Description Stores metadata for a locally uploaded video
// @Tags videos
// @Accept json
// @Produce json
// @Param video body createVideoRequest true "Upload metadata"
// @Success 201 {object} models.Video
// @Failure 400 {object} models.HTTPError
// @Failure 409 {object} models.HTTPError
// @Router /videos [post]
func (h *VideoHandler) CreateVideo(c echo.Context) error {
	var req createVideoRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.VideoURL == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "missing `video_url`")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	video := normalize.NewUpload(req.Title, req.Description, req.VideoURL, req.Username)
	if err := h.store.CreateVideo(ctx, video); err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			return echo.NewHTTPError(http.StatusConflict, "video already exists")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to store video")
	}
	return c.JSON(http.StatusCreated, video)
}
