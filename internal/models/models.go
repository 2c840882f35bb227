package models

import "time"

// Source identifies where a video originally came from.
type Source string

const (
	SourceUpload  Source = "upload"
	SourceReddit  Source = "reddit"
	SourceRedGifs Source = "redgifs"
)

// Video is the canonical representation of a playable item regardless of
// origin. The feed, the stores, and the scraper all operate on this shape.
// swagger:model Video
type Video struct {
	// Unique ID, prefixed by source namespace (reddit-, redgifs-) or a UUID for uploads
	ID string `json:"id"`
	// Playable URL; may be a same-origin proxy reference or a local upload path
	VideoURL string `json:"video_url"`
	// Optional preview image URL
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
	// Display title
	Title string `json:"title,omitempty"`
	// Display description
	Description string `json:"description,omitempty"`
	// Attributed author/handle
	Username string `json:"username"`
	// Origin tag: "upload", "reddit", "redgifs" or "scraper"
	Provenance string `json:"provenance"`
	// Source enum
	Source Source `json:"source"`
	// Engagement counters
	LikesCount     int `json:"likes_count"`
	CommentsCount  int `json:"comments_count"`
	BookmarksCount int `json:"bookmarks_count"`
	SharesCount    int `json:"shares_count"`
	ViewsCount     int `json:"views_count"`
	// Creation timestamp, used for newest-first storage listing
	CreatedAt time.Time `json:"created_at"`
}

// RedditPost is the transient upstream shape for a Reddit video post. It is
// never persisted directly; it always passes through normalization first.
type RedditPost struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Author       string    `json:"author"`
	Subreddit    string    `json:"subreddit"`
	Score        int       `json:"score"`
	VideoURL     string    `json:"video_url"`
	ThumbnailURL string    `json:"thumbnail_url"`
	CreatedAt    time.Time `json:"created_at"`
}

// Page is one page of Reddit video posts plus the cursor for the next one.
type Page struct {
	Posts []RedditPost `json:"posts"`
	After string       `json:"after"`
}

// RedGifsGif is the transient upstream shape for a RedGifs media item.
type RedGifsGif struct {
	ID           string   `json:"id"`
	Username     string   `json:"username"`
	VideoURL     string   `json:"video_url"`
	ThumbnailURL string   `json:"thumbnail_url"`
	Tags         []string `json:"tags"`
	Gif          bool     `json:"gif"`
	Views        int      `json:"views"`
	Likes        int      `json:"likes"`
	Duration     float64  `json:"duration"`
}

// Like records that an identity liked a video. At most one per
// (video, identity) pair.
// swagger:model Like
type Like struct {
	VideoID   string    `json:"video_id"`
	Identity  string    `json:"identity"`
	CreatedAt time.Time `json:"created_at"`
}

// Bookmark records that an identity bookmarked a video. At most one per
// (video, identity) pair.
// swagger:model Bookmark
type Bookmark struct {
	VideoID   string    `json:"video_id"`
	Identity  string    `json:"identity"`
	CreatedAt time.Time `json:"created_at"`
}

// Comment is a viewer comment on a video. Unbounded per identity.
// swagger:model Comment
type Comment struct {
	ID        string    `json:"id"`
	VideoID   string    `json:"video_id"`
	Identity  string    `json:"identity"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// HTTPError is the error envelope returned by the HTTP layer.
// swagger:model HTTPError
type HTTPError struct {
	Message string `json:"message"`
}
