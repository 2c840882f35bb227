package scraper

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"vidfeed/internal/config"
	"vidfeed/internal/models"
	"vidfeed/internal/storage"
)

type mockRedditSource struct {
	FetchPageFunc  func(ctx context.Context, subreddit string, limit int, sortMethod, after string) (models.Page, error)
	FetchMultiFunc func(ctx context.Context, subreddits []string, limit int, sortMethod string) []models.RedditPost
}

func (m *mockRedditSource) FetchPage(ctx context.Context, subreddit string, limit int, sortMethod, after string) (models.Page, error) {
	return m.FetchPageFunc(ctx, subreddit, limit, sortMethod, after)
}

func (m *mockRedditSource) FetchMulti(ctx context.Context, subreddits []string, limit int, sortMethod string) []models.RedditPost {
	return m.FetchMultiFunc(ctx, subreddits, limit, sortMethod)
}

type mockRedGifsSource struct {
	FetchCategoryFunc func(ctx context.Context, category string, count int) []models.RedGifsGif
	FetchBatchFunc    func(ctx context.Context, categories []string, budget int) []models.RedGifsGif
}

func (m *mockRedGifsSource) FetchCategory(ctx context.Context, category string, count int) []models.RedGifsGif {
	return m.FetchCategoryFunc(ctx, category, count)
}

func (m *mockRedGifsSource) FetchBatch(ctx context.Context, categories []string, budget int) []models.RedGifsGif {
	return m.FetchBatchFunc(ctx, categories, budget)
}

func (m *mockRedGifsSource) ClearCache() {}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func scraperTestConfig() *config.Config {
	return &config.Config{
		RedditEnabled:      true,
		SubredditPool:      []string{"videos"},
		RedGifsTags:        []string{"trending"},
		ScrapeRedditLimit:  50,
		ScrapeRedGifsLimit: 30,
	}
}

func redditPosts(n int) []models.RedditPost {
	posts := make([]models.RedditPost, 0, n)
	for i := 0; i < n; i++ {
		posts = append(posts, models.RedditPost{
			ID:       fmt.Sprintf("p%d", i),
			Author:   "someone",
			VideoURL: fmt.Sprintf("https://v.redd.it/p%d/DASH_720.mp4", i),
		})
	}
	return posts
}

func TestRunOncePersistsNewVideos(t *testing.T) {
	store := storage.NewMemoryStore()
	reddit := &mockRedditSource{
		FetchMultiFunc: func(ctx context.Context, subreddits []string, limit int, sortMethod string) []models.RedditPost {
			return redditPosts(3)
		},
	}
	redgifs := &mockRedGifsSource{
		FetchBatchFunc: func(ctx context.Context, categories []string, budget int) []models.RedGifsGif {
			return []models.RedGifsGif{{ID: "g1", VideoURL: "https://media.example/g1.mp4"}}
		},
	}

	svc := NewService(store, reddit, redgifs, scraperTestConfig(), testLogger())
	if err := svc.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}

	videos, err := store.ListVideos(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(videos) != 4 {
		t.Fatalf("expected 4 stored videos, got %d", len(videos))
	}
	for _, v := range videos {
		if v.Provenance != "scraper" {
			t.Errorf("video %s has provenance %q", v.ID, v.Provenance)
		}
	}
}

func TestRunOnceSkipsAlreadyStored(t *testing.T) {
	store := storage.NewMemoryStore()
	err := store.CreateVideo(context.Background(), models.Video{
		ID:        "reddit-p0",
		VideoURL:  "/proxy?url=https%3A%2F%2Fv.redd.it%2Fp0%2FDASH_720.mp4",
		Source:    models.SourceReddit,
		CreatedAt: time.Now(),
	})
	if err != nil {
		t.Fatal(err)
	}

	reddit := &mockRedditSource{
		FetchMultiFunc: func(ctx context.Context, subreddits []string, limit int, sortMethod string) []models.RedditPost {
			return redditPosts(3)
		},
	}
	redgifs := &mockRedGifsSource{
		FetchBatchFunc: func(ctx context.Context, categories []string, budget int) []models.RedGifsGif {
			return nil
		},
	}

	svc := NewService(store, reddit, redgifs, scraperTestConfig(), testLogger())
	if err := svc.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}

	videos, _ := store.ListVideos(context.Background())
	if len(videos) != 3 {
		t.Fatalf("expected 3 videos (1 pre-existing + 2 new), got %d", len(videos))
	}
}

func TestRunOnceRedditDisabled(t *testing.T) {
	store := storage.NewMemoryStore()
	cfg := scraperTestConfig()
	cfg.RedditEnabled = false

	reddit := &mockRedditSource{
		FetchMultiFunc: func(ctx context.Context, subreddits []string, limit int, sortMethod string) []models.RedditPost {
			t.Fatal("disabled source was queried")
			return nil
		},
	}
	redgifs := &mockRedGifsSource{
		FetchBatchFunc: func(ctx context.Context, categories []string, budget int) []models.RedGifsGif {
			return []models.RedGifsGif{{ID: "g1", VideoURL: "https://media.example/g1.mp4"}}
		},
	}

	svc := NewService(store, reddit, redgifs, cfg, testLogger())
	if err := svc.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}

	videos, _ := store.ListVideos(context.Background())
	if len(videos) != 1 {
		t.Fatalf("expected 1 video from the fallback source, got %d", len(videos))
	}
}

func TestRunOnceEmptySourcesSucceeds(t *testing.T) {
	store := storage.NewMemoryStore()
	reddit := &mockRedditSource{
		FetchMultiFunc: func(ctx context.Context, subreddits []string, limit int, sortMethod string) []models.RedditPost {
			return nil
		},
	}
	redgifs := &mockRedGifsSource{
		FetchBatchFunc: func(ctx context.Context, categories []string, budget int) []models.RedGifsGif {
			return nil
		},
	}

	svc := NewService(store, reddit, redgifs, scraperTestConfig(), testLogger())
	if err := svc.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce with empty sources: %v", err)
	}
}
