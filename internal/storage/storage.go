// internal/storage/storage.go
package storage

import (
	"context"
	"errors"

	"vidfeed/internal/models"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
)

// VideoStore is the persistence port for canonical videos. Implementations:
// the in-memory store backing the live service and the sqlite store backing
// the scheduled scraper.
type VideoStore interface {
	// ListVideos returns all videos, newest first.
	ListVideos(ctx context.Context) ([]models.Video, error)

	// GetVideo returns one video by ID, or ErrNotFound.
	GetVideo(ctx context.Context, id string) (models.Video, error)

	// CreateVideo inserts a video. Re-inserting an existing ID is a no-op
	// returning ErrAlreadyExists.
	CreateVideo(ctx context.Context, video models.Video) error

	Close() error
}

// InteractionStore is the persistence port for likes, comments, bookmarks and
// shares. Each mutation adjusts the corresponding counter on the parent
// video; decrements floor at zero.
type InteractionStore interface {
	// Like records a like for (videoID, identity). At most one per pair;
	// a duplicate returns ErrAlreadyExists.
	Like(ctx context.Context, videoID, identity string) error
	Unlike(ctx context.Context, videoID, identity string) error

	Bookmark(ctx context.Context, videoID, identity string) error
	Unbookmark(ctx context.Context, videoID, identity string) error

	AddComment(ctx context.Context, videoID, identity, content string) (models.Comment, error)
	ListComments(ctx context.Context, videoID string) ([]models.Comment, error)
	// DeleteComment removes a comment owned by identity, or ErrNotFound.
	DeleteComment(ctx context.Context, commentID, identity string) error

	AddShare(ctx context.Context, videoID string) error
	AddView(ctx context.Context, videoID string) error
}
