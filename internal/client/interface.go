// internal/client/interface.go
package client

import (
	"context"

	"vidfeed/internal/models"
)

// RedditSource produces pages of playable video posts per subreddit.
type RedditSource interface {
	// FetchPage returns one page of video posts for the subreddit, sort order
	// and pagination cursor. It degrades to cached or empty results on
	// upstream failure; the only hard errors are configuration faults and
	// context cancellation.
	FetchPage(ctx context.Context, subreddit string, limit int, sortMethod, after string) (models.Page, error)

	// FetchMulti fetches one page per subreddit concurrently, tolerating
	// individual failures, and returns the union sorted by score descending.
	FetchMulti(ctx context.Context, subreddits []string, limit int, sortMethod string) []models.RedditPost
}

// RedGifsSource produces media items per tag/category. Failures never escape
// this boundary; they degrade to stale-cached or empty results.
type RedGifsSource interface {
	FetchCategory(ctx context.Context, category string, count int) []models.RedGifsGif
	FetchBatch(ctx context.Context, categories []string, budget int) []models.RedGifsGif
	ClearCache()
}
