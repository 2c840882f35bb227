// internal/normalize/normalize.go
package normalize

import (
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"vidfeed/internal/dedup"
	"vidfeed/internal/models"
)

const (
	defaultRedditUsername  = "redditor"
	defaultRedGifsUsername = "redgifs"
)

// WrapProxy rewrites an upstream URL as a same-origin proxy reference so the
// player never talks to third-party hosts directly. Local paths pass through.
func WrapProxy(rawURL string) string {
	if rawURL == "" || strings.HasPrefix(rawURL, "/") {
		return rawURL
	}
	return dedup.ProxyPath + "?url=" + url.QueryEscape(rawURL)
}

// FromRedditPost maps a Reddit video post to a canonical video. The likes
// counter is seeded from the upstream score; all other counters start at zero.
func FromRedditPost(p models.RedditPost) models.Video {
	username := p.Author
	if username == "" || username == "[deleted]" {
		username = defaultRedditUsername
	}

	createdAt := p.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	return models.Video{
		ID:           "reddit-" + p.ID,
		VideoURL:     WrapProxy(p.VideoURL),
		ThumbnailURL: p.ThumbnailURL,
		Title:        p.Title,
		Username:     username,
		Provenance:   string(models.SourceReddit),
		Source:       models.SourceReddit,
		LikesCount:   p.Score,
		CreatedAt:    createdAt,
	}
}

// FromRedGifs maps a RedGifs media item to a canonical video. The description
// is derived from the upstream tag list.
func FromRedGifs(g models.RedGifsGif) models.Video {
	username := g.Username
	if username == "" {
		username = defaultRedGifsUsername
	}

	return models.Video{
		ID:           "redgifs-" + g.ID,
		VideoURL:     WrapProxy(g.VideoURL),
		ThumbnailURL: g.ThumbnailURL,
		Description:  strings.Join(g.Tags, ", "),
		Username:     username,
		Provenance:   string(models.SourceRedGifs),
		Source:       models.SourceRedGifs,
		LikesCount:   g.Likes,
		ViewsCount:   g.Views,
		CreatedAt:    time.Now(),
	}
}

// NewUpload builds a canonical video for a locally uploaded item.
func NewUpload(title, description, videoURL, username string) models.Video {
	if username == "" {
		username = "anonymous"
	}
	return models.Video{
		ID:         uuid.NewString(),
		VideoURL:   videoURL,
		Title:      title,
		Description: description,
		Username:   username,
		Provenance: string(models.SourceUpload),
		Source:     models.SourceUpload,
		CreatedAt:  time.Now(),
	}
}
