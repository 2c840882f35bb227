// internal/handler/http/interaction_handler.go
package http

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"vidfeed/internal/storage"
	"vidfeed/pkg/identity"
)

type InteractionHandler struct {
	store storage.InteractionStore
}

func NewInteractionHandler(store storage.InteractionStore) *InteractionHandler {
	return &InteractionHandler{store: store}
}

func interactionError(err error) error {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "not found")
	case errors.Is(err, storage.ErrAlreadyExists):
		return echo.NewHTTPError(http.StatusConflict, "already recorded")
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "interaction failed")
	}
}

// Like godoc
// @Summary Like a video
// @Tags interactions
// @Produce json
// @Param id path string true "Video ID"
// @Success 204
// @Failure 404 {object} models.HTTPError
// @Failure 409 {object} models.HTTPError
// @Router /videos/{id}/like [post]
func (h *InteractionHandler) Like(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	if err := h.store.Like(ctx, c.Param("id"), identity.FromRequest(c)); err != nil {
		return interactionError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Unlike godoc
// @Summary Remove a like
// @Tags interactions
// @Produce json
// @Param id path string true "Video ID"
// @Success 204
// @Failure 404 {object} models.HTTPError
// @Router /videos/{id}/like [delete]
func (h *InteractionHandler) Unlike(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	if err := h.store.Unlike(ctx, c.Param("id"), identity.FromRequest(c)); err != nil {
		return interactionError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Bookmark godoc
// @Summary Bookmark a video
// @Tags interactions
// @Produce json
// @Param id path string true "Video ID"
// @Success 204
// @Failure 404 {object} models.HTTPError
// @Failure 409 {object} models.HTTPError
// @Router /videos/{id}/bookmark [post]
func (h *InteractionHandler) Bookmark(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	if err := h.store.Bookmark(ctx, c.Param("id"), identity.FromRequest(c)); err != nil {
		return interactionError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Unbookmark godoc
// @Summary Remove a bookmark
// @Tags interactions
// @Produce json
// @Param id path string true "Video ID"
// @Success 204
// @Failure 404 {object} models.HTTPError
// @Router /videos/{id}/bookmark [delete]
func (h *InteractionHandler) Unbookmark(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	if err := h.store.Unbookmark(ctx, c.Param("id"), identity.FromRequest(c)); err != nil {
		return interactionError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Share godoc
// @Summary Record a share
// @Tags interactions
// @Produce json
// @Param id path string true "Video ID"
// @Success 204
// @Failure 404 {object} models.HTTPError
// @Router /videos/{id}/share [post]
func (h *InteractionHandler) Share(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	if err := h.store.AddShare(ctx, c.Param("id")); err != nil {
		return interactionError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// View godoc
// @Summary Record a view
// @Tags interactions
// @Produce json
// @Param id path string true "Video ID"
// @Success 204
// @Failure 404 {object} models.HTTPError
// @Router /videos/{id}/view [post]
func (h *InteractionHandler) View(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	if err := h.store.AddView(ctx, c.Param("id")); err != nil {
		return interactionError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

type createCommentRequest struct {
	Content string `json:"content"`
}

// ListComments godoc
// @Summary List comments on a video
// @Tags interactions
// @Produce json
// @Param id path string true "Video ID"
// @Success 200 {array} models.Comment
// @Router /videos/{id}/comments [get]
func (h *InteractionHandler) ListComments(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	comments, err := h.store.ListComments(ctx, c.Param("id"))
	if err != nil {
		return interactionError(err)
	}
	return c.JSON(http.StatusOK, comments)
}

// AddComment godoc
// @Summary Comment on a video
// @Tags interactions
// @Accept json
// @Produce json
// @Param id path string true "Video ID"
// @Param comment body createCommentRequest true "Comment body"
// @Success 201 {object} models.Comment
// @Failure 400 {object} models.HTTPError
// @Failure 404 {object} models.HTTPError
// @Router /videos/{id}/comments [post]
func (h *InteractionHandler) AddComment(c echo.Context) error {
	var req createCommentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.Content) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "missing `content`")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	comment, err := h.store.AddComment(ctx, c.Param("id"), identity.FromRequest(c), req.Content)
	if err != nil {
		return interactionError(err)
	}
	return c.JSON(http.StatusCreated, comment)
}

// DeleteComment godoc
// @Summary Delete own comment
// @Tags interactions
// @Produce json
// @Param id path string true "Comment ID"
// @Success 204
// @Failure 404 {object} models.HTTPError
// @Router /comments/{id} [delete]
func (h *InteractionHandler) DeleteComment(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	if err := h.store.DeleteComment(ctx, c.Param("id"), identity.FromRequest(c)); err != nil {
		return interactionError(err)
	}
	return c.NoContent(http.StatusNoContent)
}
