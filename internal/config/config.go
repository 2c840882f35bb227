// internal/config/config.go
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerPort   string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// Shared upstream client settings
	RequestTimeout time.Duration
	MaxRetries     int
	ProxyURLs      []string

	// Reddit source
	RedditEnabled        bool
	RedditClientID       string
	RedditClientSecret   string
	RedditUsername       string
	RedditPassword       string
	RedditUserAgent      string
	RedditBaseURL        string
	RedditAuthURL        string
	MaxConsecutiveErrors int
	CooldownDuration     time.Duration
	BaseRequestDelay     time.Duration
	CacheTTL             time.Duration
	SubredditPool        []string

	// RedGifs source
	RedGifsBaseURL  string
	RedGifsTags     []string
	RedGifsCacheTTL time.Duration

	// Feed
	FeedPageSize int

	// Scraper
	ScrapeRedditLimit  int
	ScrapeRedGifsLimit int
	ScrapeInterval     time.Duration
	ScrapeDBPath       string
}

func LoadConfig() (*Config, error) {
	err := godotenv.Load()
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	var proxyURLs []string
	for _, proxy := range strings.Split(os.Getenv("PROXY_URLS"), ",") {
		proxy = strings.TrimSpace(proxy)
		if proxy == "" {
			continue
		}
		if _, err := url.Parse(proxy); err != nil {
			return nil, fmt.Errorf("invalid proxy URL %s: %w", proxy, err)
		}
		proxyURLs = append(proxyURLs, proxy)
	}

	cfg := &Config{
		ServerPort:   getEnv("SERVER_PORT", "8080"),
		ReadTimeout:  getEnvDuration("SERVER_READ_TIMEOUT", 30*time.Second),
		WriteTimeout: getEnvDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),

		RequestTimeout: getEnvDuration("REQUEST_TIMEOUT", 15*time.Second),
		MaxRetries:     getEnvInt("HTTP_MAX_RETRIES", 3),
		ProxyURLs:      proxyURLs,

		RedditEnabled:        getEnvBool("REDDIT_ENABLED", true),
		RedditClientID:       os.Getenv("REDDIT_CLIENT_ID"),
		RedditClientSecret:   os.Getenv("REDDIT_CLIENT_SECRET"),
		RedditUsername:       os.Getenv("REDDIT_USERNAME"),
		RedditPassword:       os.Getenv("REDDIT_PASSWORD"),
		RedditUserAgent:      getEnv("REDDIT_USER_AGENT", "vidfeed/1.0"),
		RedditBaseURL:        getEnv("REDDIT_BASE_URL", "https://oauth.reddit.com"),
		RedditAuthURL:        getEnv("REDDIT_AUTH_URL", "https://www.reddit.com/api/v1/access_token"),
		MaxConsecutiveErrors: getEnvInt("MAX_CONSECUTIVE_ERRORS", 3),
		CooldownDuration:     getEnvDuration("COOLDOWN_DURATION", 15*time.Minute),
		BaseRequestDelay:     getEnvDuration("BASE_REQUEST_DELAY", 1100*time.Millisecond),
		CacheTTL:             getEnvDuration("REDDIT_CACHE_TTL", 30*time.Second),
		SubredditPool:        getEnvList("SUBREDDIT_POOL", []string{"videos", "gifs", "funny", "interestingasfuck", "oddlysatisfying"}),

		RedGifsBaseURL:  getEnv("REDGIFS_BASE_URL", "https://api.redgifs.com"),
		RedGifsTags:     getEnvList("REDGIFS_TAGS", []string{"trending"}),
		RedGifsCacheTTL: getEnvDuration("REDGIFS_CACHE_TTL", 5*time.Minute),

		FeedPageSize: getEnvInt("FEED_PAGE_SIZE", 25),

		ScrapeRedditLimit:  getEnvInt("SCRAPE_REDDIT_LIMIT", 50),
		ScrapeRedGifsLimit: getEnvInt("SCRAPE_REDGIFS_LIMIT", 30),
		ScrapeInterval:     getEnvDuration("SCRAPE_INTERVAL", 4*time.Hour),
		ScrapeDBPath:       getEnv("SCRAPE_DB_PATH", "vidfeed.db"),
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return intValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	boolValue, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return boolValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	duration, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return duration
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var items []string
	for _, item := range strings.Split(value, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			items = append(items, item)
		}
	}
	if len(items) == 0 {
		return defaultValue
	}
	return items
}
