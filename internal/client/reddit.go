// internal/client/reddit.go
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"vidfeed/internal/config"
	"vidfeed/internal/models"
	"vidfeed/pkg/httpclient"
)

// ErrMissingCredentials is a configuration fault: the Reddit source is enabled
// but the OAuth credential set is incomplete or rejected. It is never retried.
var ErrMissingCredentials = errors.New("reddit credentials are not configured")

// ErrSourceDisabled is returned when the Reddit kill switch is off.
var ErrSourceDisabled = errors.New("reddit source is disabled")

// Token refresh happens this long before the advertised expiry.
const tokenExpirySlack = 60 * time.Second

type cachedPage struct {
	page      models.Page
	fetchedAt time.Time
}

// RedditClient fetches video posts from the Reddit API with password-grant
// OAuth. It owns all per-process upstream state: the token cache, the
// per-request-key response cache, per-subreddit pagination cursors, and the
// consecutive-error/cooldown machinery. Construct it once and share it.
type RedditClient struct {
	http    httpclient.Doer
	cfg     *config.Config
	limiter *rate.Limiter
	logger  *slog.Logger

	mu                sync.Mutex
	token             string
	tokenExpiry       time.Time
	cursors           map[string]string
	cache             map[string]cachedPage
	consecutiveErrors int
	cooldownUntil     time.Time
	nextAllowed       time.Time
}

type RedditOption func(*RedditClient)

// WithRedditDoer replaces the underlying HTTP client (used by tests).
func WithRedditDoer(d httpclient.Doer) RedditOption {
	return func(c *RedditClient) {
		c.http = d
	}
}

func NewRedditClient(cfg *config.Config, logger *slog.Logger, opts ...RedditOption) (*RedditClient, error) {
	if cfg.RedditEnabled && !hasCredentials(cfg) {
		return nil, ErrMissingCredentials
	}

	c := &RedditClient{
		cfg:     cfg,
		logger:  logger,
		cursors: make(map[string]string),
		cache:   make(map[string]cachedPage),
		limiter: newBaseLimiter(cfg.BaseRequestDelay),
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

func hasCredentials(cfg *config.Config) bool {
	return cfg.RedditClientID != "" && cfg.RedditClientSecret != "" &&
		cfg.RedditUsername != "" && cfg.RedditPassword != ""
}

func newBaseLimiter(baseDelay time.Duration) *rate.Limiter {
	if baseDelay <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(baseDelay), 1)
}

// FetchPage returns one page of playable video posts. Behavior per state:
//   - cooldown active: cached page for this exact key, or empty — no network
//   - fresh cache hit: cached page
//   - 429: stale cache if present, otherwise empty with a substantial pushback
//   - transport failure: stale cache or empty with a moderate pushback
//
// A single success resets the consecutive-failure counter.
func (c *RedditClient) FetchPage(ctx context.Context, subreddit string, limit int, sortMethod, after string) (models.Page, error) {
	if !c.cfg.RedditEnabled {
		return models.Page{}, ErrSourceDisabled
	}
	if sortMethod == "" {
		sortMethod = "hot"
	}
	if limit <= 0 {
		limit = c.cfg.FeedPageSize
	}
	key := pageKey(subreddit, limit, sortMethod, after)

	c.mu.Lock()
	if time.Now().Before(c.cooldownUntil) {
		entry, ok := c.cache[key]
		c.mu.Unlock()
		if ok {
			return entry.page, nil
		}
		return models.Page{}, nil
	}
	if entry, ok := c.cache[key]; ok && time.Since(entry.fetchedAt) < c.cfg.CacheTTL {
		c.mu.Unlock()
		return entry.page, nil
	}
	wait := time.Until(c.nextAllowed)
	c.mu.Unlock()

	if err := c.limiter.Wait(ctx); err != nil {
		return models.Page{}, err
	}
	if wait > 0 {
		select {
		case <-ctx.Done():
			return models.Page{}, ctx.Err()
		case <-time.After(wait):
		}
	}

	token, err := c.getToken(ctx)
	if err != nil {
		if errors.Is(err, ErrMissingCredentials) {
			return models.Page{}, err
		}
		c.recordFailure(c.moderateBackoff())
		c.logger.Warn("reddit token fetch failed", "error", err)
		return c.staleOrEmpty(key), nil
	}

	reqURL := fmt.Sprintf("%s/r/%s/%s.json?raw_json=1&include_over_18=on&limit=%d",
		c.cfg.RedditBaseURL, url.PathEscape(subreddit), url.PathEscape(sortMethod), limit)
	if after != "" {
		reqURL += "&after=" + url.QueryEscape(after)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return models.Page{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("User-Agent", c.cfg.RedditUserAgent)

	resp, body, err := c.http.Do(req)
	if err != nil {
		c.recordFailure(c.moderateBackoff())
		c.logger.Warn("reddit fetch failed", "subreddit", subreddit, "error", err)
		return c.staleOrEmpty(key), nil
	}

	c.applyRateHeaders(resp)

	if resp.StatusCode == http.StatusTooManyRequests {
		return c.handleRateLimited(key, subreddit), nil
	}
	if resp.StatusCode != http.StatusOK {
		c.recordFailure(c.moderateBackoff())
		c.logger.Warn("reddit fetch returned error status", "subreddit", subreddit, "status", resp.StatusCode)
		return c.staleOrEmpty(key), nil
	}

	page, err := parseListing(body)
	if err != nil {
		// Data-shape fault: zero results, no cooldown pressure.
		c.logger.Warn("unexpected reddit response shape", "subreddit", subreddit, "error", err)
		return models.Page{}, nil
	}

	c.mu.Lock()
	c.consecutiveErrors = 0
	c.cursors[subreddit] = page.After
	c.cache[key] = cachedPage{page: page, fetchedAt: time.Now()}
	c.mu.Unlock()

	return page, nil
}

// FetchMulti issues one page request per subreddit concurrently. Individual
// subreddit failures are logged and skipped; the union is sorted by upstream
// score descending so output ordering is reproducible for identical inputs.
func (c *RedditClient) FetchMulti(ctx context.Context, subreddits []string, limit int, sortMethod string) []models.RedditPost {
	var (
		mu  sync.Mutex
		all []models.RedditPost
	)

	g, gctx := errgroup.WithContext(ctx)
	for _, subreddit := range subreddits {
		g.Go(func() error {
			page, err := c.FetchPage(gctx, subreddit, limit, sortMethod, "")
			if err != nil {
				c.logger.Warn("subreddit fetch failed in batch", "subreddit", subreddit, "error", err)
				return nil
			}
			mu.Lock()
			all = append(all, page.Posts...)
			mu.Unlock()
			return nil
		})
	}
	g.Wait()

	sort.Slice(all, func(i, j int) bool {
		return all[i].Score > all[j].Score
	})
	return all
}

// LastCursor returns the most recent pagination cursor seen for a subreddit.
func (c *RedditClient) LastCursor(subreddit string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cursors[subreddit]
}

func (c *RedditClient) getToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	if c.token != "" && time.Now().Before(c.tokenExpiry.Add(-tokenExpirySlack)) {
		token := c.token
		c.mu.Unlock()
		return token, nil
	}
	c.mu.Unlock()

	if !hasCredentials(c.cfg) {
		return "", ErrMissingCredentials
	}

	form := url.Values{
		"grant_type": {"password"},
		"username":   {c.cfg.RedditUsername},
		"password":   {c.cfg.RedditPassword},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.RedditAuthURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("creating token request: %w", err)
	}
	req.SetBasicAuth(c.cfg.RedditClientID, c.cfg.RedditClientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", c.cfg.RedditUserAgent)

	resp, body, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("token request: %w", err)
	}
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return "", fmt.Errorf("%w: token endpoint returned %d", ErrMissingCredentials, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token request: status %d", resp.StatusCode)
	}

	var tokenResp struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return "", fmt.Errorf("parse token response: %w", err)
	}
	if tokenResp.AccessToken == "" {
		return "", fmt.Errorf("token response missing access_token")
	}

	c.mu.Lock()
	c.token = tokenResp.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(tokenResp.ExpiresIn) * time.Second)
	c.mu.Unlock()

	return tokenResp.AccessToken, nil
}

// applyRateHeaders spaces the remaining request budget evenly across the
// reset window. Absent headers fall back to the base delay.
func (c *RedditClient) applyRateHeaders(resp *http.Response) {
	delay := c.cfg.BaseRequestDelay

	remaining, errRem := strconv.ParseFloat(resp.Header.Get("x-ratelimit-remaining"), 64)
	reset, errReset := strconv.ParseFloat(resp.Header.Get("x-ratelimit-reset"), 64)
	if errRem == nil && errReset == nil && reset > 0 {
		if remaining > 0 {
			delay = time.Duration(reset / remaining * float64(time.Second))
		} else {
			delay = time.Duration(reset * float64(time.Second))
		}
	}

	c.mu.Lock()
	c.nextAllowed = time.Now().Add(delay)
	c.mu.Unlock()
}

func (c *RedditClient) handleRateLimited(key, subreddit string) models.Page {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextAllowed = time.Now().Add(c.substantialBackoff())

	if entry, ok := c.cache[key]; ok {
		c.logger.Warn("rate limited, serving cached page", "subreddit", subreddit)
		return entry.page
	}

	c.consecutiveErrors++
	c.maybeEnterCooldownLocked()
	c.logger.Warn("rate limited with no cached page", "subreddit", subreddit, "consecutive_errors", c.consecutiveErrors)
	return models.Page{}
}

func (c *RedditClient) recordFailure(backoff time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.consecutiveErrors++
	c.nextAllowed = time.Now().Add(backoff)
	c.maybeEnterCooldownLocked()
}

func (c *RedditClient) maybeEnterCooldownLocked() {
	if c.consecutiveErrors >= c.cfg.MaxConsecutiveErrors && time.Now().After(c.cooldownUntil) {
		c.cooldownUntil = time.Now().Add(c.cfg.CooldownDuration)
		c.logger.Warn("entering cooldown",
			"consecutive_errors", c.consecutiveErrors,
			"until", c.cooldownUntil.Format(time.RFC3339))
	}
}

func (c *RedditClient) moderateBackoff() time.Duration {
	return 5 * c.cfg.BaseRequestDelay
}

func (c *RedditClient) substantialBackoff() time.Duration {
	return 30 * c.cfg.BaseRequestDelay
}

func (c *RedditClient) staleOrEmpty(key string) models.Page {
	c.mu.Lock()
	defer c.mu.Unlock()
	if entry, ok := c.cache[key]; ok {
		return entry.page
	}
	return models.Page{}
}

func pageKey(subreddit string, limit int, sortMethod, after string) string {
	return fmt.Sprintf("%s|%d|%s|%s", subreddit, limit, sortMethod, after)
}

type redditVideo struct {
	FallbackURL string `json:"fallback_url"`
}

func parseListing(data []byte) (models.Page, error) {
	var listing struct {
		Data struct {
			Children []struct {
				Kind string `json:"kind"`
				Data struct {
					ID          string  `json:"id"`
					Title       string  `json:"title"`
					Author      string  `json:"author"`
					Subreddit   string  `json:"subreddit"`
					Score       int     `json:"score"`
					CreatedUTC  float64 `json:"created_utc"`
					URL         string  `json:"url"`
					Thumbnail   string  `json:"thumbnail"`
					SecureMedia *struct {
						RedditVideo *redditVideo `json:"reddit_video"`
					} `json:"secure_media"`
					Media *struct {
						RedditVideo *redditVideo `json:"reddit_video"`
					} `json:"media"`
				} `json:"data"`
			} `json:"children"`
			After string `json:"after"`
		} `json:"data"`
	}

	if err := json.Unmarshal(data, &listing); err != nil {
		return models.Page{}, fmt.Errorf("parse listing JSON: %w", err)
	}

	var posts []models.RedditPost
	for _, child := range listing.Data.Children {
		if child.Kind != "t3" {
			continue
		}

		videoURL := child.Data.URL
		switch {
		case strings.HasSuffix(videoURL, ".mp4"), strings.HasSuffix(videoURL, ".webm"):
			// direct link, keep as is
		case strings.HasSuffix(videoURL, ".gifv"):
			videoURL = strings.TrimSuffix(videoURL, ".gifv") + ".mp4"
		default:
			videoURL = ""
			if child.Data.SecureMedia != nil && child.Data.SecureMedia.RedditVideo != nil {
				videoURL = child.Data.SecureMedia.RedditVideo.FallbackURL
			}
			if videoURL == "" && child.Data.Media != nil && child.Data.Media.RedditVideo != nil {
				videoURL = child.Data.Media.RedditVideo.FallbackURL
			}
		}
		if videoURL == "" {
			// not a playable video post, drop silently
			continue
		}

		thumbnail := child.Data.Thumbnail
		if !strings.HasPrefix(thumbnail, "http") {
			thumbnail = ""
		}

		posts = append(posts, models.RedditPost{
			ID:           child.Data.ID,
			Title:        child.Data.Title,
			Author:       child.Data.Author,
			Subreddit:    child.Data.Subreddit,
			Score:        child.Data.Score,
			VideoURL:     videoURL,
			ThumbnailURL: thumbnail,
			CreatedAt:    time.Unix(int64(child.Data.CreatedUTC), 0),
		})
	}

	return models.Page{Posts: posts, After: listing.Data.After}, nil
}
