// internal/client/redgifs.go
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"net/url"
	"sync"
	"time"

	"vidfeed/internal/config"
	"vidfeed/internal/models"
	"vidfeed/pkg/httpclient"
)

// Anonymous tokens are valid for 24h upstream; refresh an hour early.
const redgifsTokenTTL = 23 * time.Hour

const defaultCategoryCount = 20

// Category names that map to the trending endpoint rather than search.
var trendingAliases = map[string]struct{}{
	"trending": {},
	"hot":      {},
	"popular":  {},
}

type cachedGifs struct {
	gifs      []models.RedGifsGif
	fetchedAt time.Time
}

// RedGifsClient fetches tagged and trending media using a temporary anonymous
// bearer token. Per-category results are cached briefly; on upstream failure
// the stale cached entry is served if present. Errors never escape the client.
type RedGifsClient struct {
	http   httpclient.Doer
	cfg    *config.Config
	logger *slog.Logger

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
	cache       map[string]cachedGifs
}

type RedGifsOption func(*RedGifsClient)

// WithRedGifsDoer replaces the underlying HTTP client (used by tests).
func WithRedGifsDoer(d httpclient.Doer) RedGifsOption {
	return func(c *RedGifsClient) {
		c.http = d
	}
}

func NewRedGifsClient(cfg *config.Config, logger *slog.Logger, opts ...RedGifsOption) (*RedGifsClient, error) {
	c := &RedGifsClient{
		cfg:    cfg,
		logger: logger,
		cache:  make(map[string]cachedGifs),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.http == nil {
		httpClient, err := httpclient.NewRetryableClient(cfg.ProxyURLs, cfg.MaxRetries, cfg.RedditUserAgent, cfg.RequestTimeout)
		if err != nil {
			return nil, fmt.Errorf("create HTTP client: %w", err)
		}
		c.http = httpClient
	}

	return c, nil
}

// FetchCategory returns media for one tag/category, from cache when fresh.
// On failure it falls back to the stale cached entry, else an empty list.
func (c *RedGifsClient) FetchCategory(ctx context.Context, category string, count int) []models.RedGifsGif {
	if count <= 0 {
		count = defaultCategoryCount
	}

	c.mu.Lock()
	entry, cached := c.cache[category]
	if cached && time.Since(entry.fetchedAt) < c.cfg.RedGifsCacheTTL {
		c.mu.Unlock()
		return entry.gifs
	}
	c.mu.Unlock()

	gifs, err := c.fetch(ctx, category, count)
	if err != nil {
		c.logger.Warn("redgifs fetch failed", "category", category, "error", err)
		if cached {
			return entry.gifs
		}
		return nil
	}

	c.mu.Lock()
	c.cache[category] = cachedGifs{gifs: gifs, fetchedAt: time.Now()}
	c.mu.Unlock()

	return gifs
}

// FetchBatch fans out across categories sequentially with a randomized
// inter-request delay, stopping early once the item budget is reached.
func (c *RedGifsClient) FetchBatch(ctx context.Context, categories []string, budget int) []models.RedGifsGif {
	if budget <= 0 {
		budget = defaultCategoryCount
	}

	var out []models.RedGifsGif
	for i, category := range categories {
		remaining := budget - len(out)
		if remaining <= 0 {
			break
		}

		if i > 0 {
			delay := 200*time.Millisecond + time.Duration(rand.Intn(400))*time.Millisecond
			select {
			case <-ctx.Done():
				return out
			case <-time.After(delay):
			}
		}

		count := remaining
		if count > 2*defaultCategoryCount {
			count = 2 * defaultCategoryCount
		}
		out = append(out, c.FetchCategory(ctx, category, count)...)
	}

	if len(out) > budget {
		out = out[:budget]
	}
	return out
}

// ClearCache wipes the per-category media cache and the cached auth token.
func (c *RedGifsClient) ClearCache() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache = make(map[string]cachedGifs)
	c.token = ""
	c.tokenExpiry = time.Time{}
}

func (c *RedGifsClient) fetch(ctx context.Context, category string, count int) ([]models.RedGifsGif, error) {
	token, err := c.getToken(ctx)
	if err != nil {
		return nil, err
	}

	var reqURL string
	if _, ok := trendingAliases[category]; ok {
		reqURL = fmt.Sprintf("%s/v2/gifs/trending?count=%d", c.cfg.RedGifsBaseURL, count)
	} else {
		reqURL = fmt.Sprintf("%s/v2/gifs/search?search_text=%s&order=trending&count=%d",
			c.cfg.RedGifsBaseURL, url.QueryEscape(category), count)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, body, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch category %s: %w", category, err)
	}
	if resp.StatusCode == http.StatusUnauthorized {
		// token expired early; drop it so the next call re-authenticates
		c.mu.Lock()
		c.token = ""
		c.mu.Unlock()
		return nil, fmt.Errorf("fetch category %s: unauthorized", category)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch category %s: status %d", category, resp.StatusCode)
	}

	return parseGifs(body)
}

func (c *RedGifsClient) getToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	if c.token != "" && time.Now().Before(c.tokenExpiry) {
		token := c.token
		c.mu.Unlock()
		return token, nil
	}
	c.mu.Unlock()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.RedGifsBaseURL+"/v2/auth/temporary", nil)
	if err != nil {
		return "", fmt.Errorf("creating token request: %w", err)
	}

	resp, body, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("token request: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token request: status %d", resp.StatusCode)
	}

	var tokenResp struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return "", fmt.Errorf("parse token response: %w", err)
	}
	if tokenResp.Token == "" {
		return "", fmt.Errorf("token response missing token")
	}

	c.mu.Lock()
	c.token = tokenResp.Token
	c.tokenExpiry = time.Now().Add(redgifsTokenTTL)
	c.mu.Unlock()

	return tokenResp.Token, nil
}

func parseGifs(data []byte) ([]models.RedGifsGif, error) {
	var response struct {
		Gifs []struct {
			ID       string `json:"id"`
			UserName string `json:"userName"`
			URLs     struct {
				SD        string `json:"sd"`
				HD        string `json:"hd"`
				Poster    string `json:"poster"`
				Thumbnail string `json:"thumbnail"`
			} `json:"urls"`
			Tags     []string `json:"tags"`
			Type     int      `json:"type"`
			HasAudio bool     `json:"hasAudio"`
			Views    int      `json:"views"`
			Likes    int      `json:"likes"`
			Duration float64  `json:"duration"`
		} `json:"gifs"`
	}

	if err := json.Unmarshal(data, &response); err != nil {
		return nil, fmt.Errorf("parse gifs JSON: %w", err)
	}

	gifs := make([]models.RedGifsGif, 0, len(response.Gifs))
	for _, item := range response.Gifs {
		videoURL := item.URLs.HD
		if videoURL == "" {
			videoURL = item.URLs.SD
		}
		if videoURL == "" {
			continue
		}

		thumbnail := item.URLs.Thumbnail
		if thumbnail == "" {
			thumbnail = item.URLs.Poster
		}

		gifs = append(gifs, models.RedGifsGif{
			ID:           item.ID,
			Username:     item.UserName,
			VideoURL:     videoURL,
			ThumbnailURL: thumbnail,
			Tags:         item.Tags,
			Gif:          item.Type == 1 && !item.HasAudio,
			Views:        item.Views,
			Likes:        item.Likes,
			Duration:     item.Duration,
		})
	}

	return gifs, nil
}
