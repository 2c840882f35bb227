package client

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"vidfeed/internal/config"
)

type mockDoer struct {
	DoFunc func(req *http.Request) (*http.Response, []byte, error)
}

func (m *mockDoer) Do(req *http.Request) (*http.Response, []byte, error) {
	return m.DoFunc(req)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func redditTestConfig() *config.Config {
	return &config.Config{
		RedditEnabled:        true,
		RedditClientID:       "id",
		RedditClientSecret:   "secret",
		RedditUsername:       "user",
		RedditPassword:       "pass",
		RedditUserAgent:      "test/1.0",
		RedditBaseURL:        "https://oauth.reddit.example",
		RedditAuthURL:        "https://auth.reddit.example/token",
		MaxConsecutiveErrors: 2,
		CooldownDuration:     15 * time.Minute,
		BaseRequestDelay:     0,
		CacheTTL:             0,
		FeedPageSize:         25,
		RequestTimeout:       5 * time.Second,
	}
}

func okResponse() *http.Response {
	return &http.Response{StatusCode: http.StatusOK, Header: http.Header{}}
}

func statusResponse(code int) *http.Response {
	return &http.Response{StatusCode: code, Header: http.Header{}}
}

const tokenBody = `{"access_token":"tok","expires_in":3600}`

const listingBody = `{
	"data": {
		"after": "t3_next",
		"children": [
			{"kind": "t3", "data": {"id": "direct", "title": "direct mp4", "author": "a", "score": 10,
				"url": "https://example.com/clip.mp4", "thumbnail": "https://example.com/t.jpg"}},
			{"kind": "t3", "data": {"id": "gifv", "title": "imgur gifv", "author": "b", "score": 5,
				"url": "https://i.imgur.com/x.gifv", "thumbnail": "default"}},
			{"kind": "t3", "data": {"id": "hosted", "title": "reddit hosted", "author": "c", "score": 20,
				"url": "https://www.reddit.com/r/videos/comments/hosted/",
				"secure_media": {"reddit_video": {"fallback_url": "https://v.redd.it/hosted/DASH_720.mp4"}}}},
			{"kind": "t3", "data": {"id": "image", "title": "not a video", "author": "d", "score": 99,
				"url": "https://i.imgur.com/photo.jpg"}},
			{"kind": "t1", "data": {"id": "comment", "url": "https://example.com/other.mp4"}}
		]
	}
}`

func newTestRedditClient(t *testing.T, cfg *config.Config, doer *mockDoer) *RedditClient {
	t.Helper()
	c, err := NewRedditClient(cfg, testLogger(), WithRedditDoer(doer))
	if err != nil {
		t.Fatalf("NewRedditClient: %v", err)
	}
	return c
}

func routeAuth(req *http.Request, listing func(req *http.Request) (*http.Response, []byte, error)) (*http.Response, []byte, error) {
	if req.Method == http.MethodPost {
		return okResponse(), []byte(tokenBody), nil
	}
	return listing(req)
}

func TestNewRedditClientRequiresCredentials(t *testing.T) {
	cfg := redditTestConfig()
	cfg.RedditPassword = ""

	if _, err := NewRedditClient(cfg, testLogger()); err != ErrMissingCredentials {
		t.Fatalf("expected ErrMissingCredentials, got %v", err)
	}
}

func TestFetchPageDisabledSource(t *testing.T) {
	cfg := redditTestConfig()
	cfg.RedditEnabled = false

	c := newTestRedditClient(t, cfg, &mockDoer{DoFunc: func(req *http.Request) (*http.Response, []byte, error) {
		t.Fatal("disabled source issued a request")
		return nil, nil, nil
	}})

	if _, err := c.FetchPage(context.Background(), "videos", 10, "hot", ""); err != ErrSourceDisabled {
		t.Fatalf("expected ErrSourceDisabled, got %v", err)
	}
}

func TestFetchPageFiltersVideoPosts(t *testing.T) {
	doer := &mockDoer{DoFunc: func(req *http.Request) (*http.Response, []byte, error) {
		return routeAuth(req, func(req *http.Request) (*http.Response, []byte, error) {
			if got := req.Header.Get("Authorization"); got != "Bearer tok" {
				t.Errorf("missing bearer token, got %q", got)
			}
			return okResponse(), []byte(listingBody), nil
		})
	}}
	c := newTestRedditClient(t, redditTestConfig(), doer)

	page, err := c.FetchPage(context.Background(), "videos", 10, "hot", "")
	if err != nil {
		t.Fatalf("FetchPage: %v", err)
	}

	if page.After != "t3_next" {
		t.Errorf("cursor not captured: %q", page.After)
	}
	if len(page.Posts) != 3 {
		t.Fatalf("expected 3 playable posts, got %d", len(page.Posts))
	}

	byID := make(map[string]string, len(page.Posts))
	for _, p := range page.Posts {
		byID[p.ID] = p.VideoURL
	}
	if byID["direct"] != "https://example.com/clip.mp4" {
		t.Errorf("direct link mangled: %q", byID["direct"])
	}
	if byID["gifv"] != "https://i.imgur.com/x.mp4" {
		t.Errorf("gifv not rewritten: %q", byID["gifv"])
	}
	if byID["hosted"] != "https://v.redd.it/hosted/DASH_720.mp4" {
		t.Errorf("hosted fallback not used: %q", byID["hosted"])
	}

	if got := c.LastCursor("videos"); got != "t3_next" {
		t.Errorf("cursor not stored: %q", got)
	}
}

func TestFetchPageTokenReuse(t *testing.T) {
	var tokenCalls int32
	doer := &mockDoer{DoFunc: func(req *http.Request) (*http.Response, []byte, error) {
		if req.Method == http.MethodPost {
			atomic.AddInt32(&tokenCalls, 1)
			return okResponse(), []byte(tokenBody), nil
		}
		return okResponse(), []byte(listingBody), nil
	}}
	c := newTestRedditClient(t, redditTestConfig(), doer)

	ctx := context.Background()
	if _, err := c.FetchPage(ctx, "videos", 10, "hot", ""); err != nil {
		t.Fatalf("first fetch: %v", err)
	}
	if _, err := c.FetchPage(ctx, "gifs", 10, "hot", ""); err != nil {
		t.Fatalf("second fetch: %v", err)
	}

	if n := atomic.LoadInt32(&tokenCalls); n != 1 {
		t.Errorf("expected a single token request, got %d", n)
	}
}

func TestFetchPageRateLimitedServesStaleCache(t *testing.T) {
	var listingCalls int32
	doer := &mockDoer{DoFunc: func(req *http.Request) (*http.Response, []byte, error) {
		return routeAuth(req, func(req *http.Request) (*http.Response, []byte, error) {
			if atomic.AddInt32(&listingCalls, 1) == 1 {
				return okResponse(), []byte(listingBody), nil
			}
			return statusResponse(http.StatusTooManyRequests), nil, nil
		})
	}}
	c := newTestRedditClient(t, redditTestConfig(), doer)

	ctx := context.Background()
	first, err := c.FetchPage(ctx, "videos", 10, "hot", "")
	if err != nil {
		t.Fatalf("first fetch: %v", err)
	}
	second, err := c.FetchPage(ctx, "videos", 10, "hot", "")
	if err != nil {
		t.Fatalf("rate-limited fetch: %v", err)
	}

	if len(second.Posts) != len(first.Posts) {
		t.Errorf("stale cache not served on 429: got %d posts, want %d", len(second.Posts), len(first.Posts))
	}
}

func TestFetchPageEntersCooldownAfterConsecutiveErrors(t *testing.T) {
	var calls int32
	doer := &mockDoer{DoFunc: func(req *http.Request) (*http.Response, []byte, error) {
		atomic.AddInt32(&calls, 1)
		return routeAuth(req, func(req *http.Request) (*http.Response, []byte, error) {
			return statusResponse(http.StatusInternalServerError), nil, nil
		})
	}}
	c := newTestRedditClient(t, redditTestConfig(), doer)

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		page, err := c.FetchPage(ctx, "videos", 10, "hot", "")
		if err != nil {
			t.Fatalf("fetch %d: %v", i, err)
		}
		if len(page.Posts) != 0 {
			t.Fatalf("fetch %d returned posts from a failing upstream", i)
		}
	}

	before := atomic.LoadInt32(&calls)
	page, err := c.FetchPage(ctx, "videos", 10, "hot", "")
	if err != nil {
		t.Fatalf("cooldown fetch: %v", err)
	}
	if len(page.Posts) != 0 {
		t.Error("cooldown fetch returned posts")
	}
	if after := atomic.LoadInt32(&calls); after != before {
		t.Errorf("cooldown still issued %d network requests", after-before)
	}
}

func TestFetchPageMalformedBodyDoesNotFeedCooldown(t *testing.T) {
	doer := &mockDoer{DoFunc: func(req *http.Request) (*http.Response, []byte, error) {
		return routeAuth(req, func(req *http.Request) (*http.Response, []byte, error) {
			return okResponse(), []byte("<html>not json</html>"), nil
		})
	}}
	c := newTestRedditClient(t, redditTestConfig(), doer)

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		page, err := c.FetchPage(ctx, "videos", 10, "hot", "")
		if err != nil {
			t.Fatalf("fetch %d: %v", i, err)
		}
		if len(page.Posts) != 0 {
			t.Fatalf("malformed body produced posts")
		}
	}

	c.mu.Lock()
	inCooldown := time.Now().Before(c.cooldownUntil)
	c.mu.Unlock()
	if inCooldown {
		t.Error("data-shape faults pushed the client into cooldown")
	}
}

func TestFetchMultiToleratesPartialFailure(t *testing.T) {
	doer := &mockDoer{DoFunc: func(req *http.Request) (*http.Response, []byte, error) {
		return routeAuth(req, func(req *http.Request) (*http.Response, []byte, error) {
			if strings.Contains(req.URL.Path, "/r/broken/") {
				return statusResponse(http.StatusInternalServerError), nil, nil
			}
			return okResponse(), []byte(listingBody), nil
		})
	}}
	c := newTestRedditClient(t, redditTestConfig(), doer)

	posts := c.FetchMulti(context.Background(), []string{"videos", "broken"}, 10, "hot")
	if len(posts) != 3 {
		t.Fatalf("expected 3 posts from the healthy subreddit, got %d", len(posts))
	}
	for i := 1; i < len(posts); i++ {
		if posts[i-1].Score < posts[i].Score {
			t.Errorf("posts not sorted by score descending at %d", i)
		}
	}
}
