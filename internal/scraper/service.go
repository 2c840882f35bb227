// internal/scraper/service.go
package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"vidfeed/internal/client"
	"vidfeed/internal/config"
	"vidfeed/internal/dedup"
	"vidfeed/internal/models"
	"vidfeed/internal/normalize"
	"vidfeed/internal/storage"
)

const scraperProvenance = "scraper"

// Service runs scheduled ingestion: fetch from the upstream sources, filter
// against everything already stored, and persist the survivors. Source
// failures are isolated per source; only a storage fault aborts a run.
type Service struct {
	store   storage.VideoStore
	reddit  client.RedditSource
	redgifs client.RedGifsSource
	cfg     *config.Config
	logger  *slog.Logger
}

func NewService(store storage.VideoStore, reddit client.RedditSource, redgifs client.RedGifsSource, cfg *config.Config, logger *slog.Logger) *Service {
	return &Service{
		store:   store,
		reddit:  reddit,
		redgifs: redgifs,
		cfg:     cfg,
		logger:  logger,
	}
}

// RunOnce executes a single ingestion pass.
func (s *Service) RunOnce(ctx context.Context) error {
	stored, err := s.store.ListVideos(ctx)
	if err != nil {
		return fmt.Errorf("list stored videos: %w", err)
	}

	seen := dedup.NewSeenSet()
	for _, v := range stored {
		seen.Admit(v.ID, v.VideoURL)
	}

	var redditAdded, redgifsAdded int

	if s.cfg.RedditEnabled {
		posts := s.reddit.FetchMulti(ctx, s.cfg.SubredditPool, s.cfg.ScrapeRedditLimit, "hot")
		redditAdded = s.persist(ctx, seen, redditVideos(posts))
		s.logger.Info("reddit ingestion pass complete", "fetched", len(posts), "stored", redditAdded)
	}

	gifs := s.redgifs.FetchBatch(ctx, s.cfg.RedGifsTags, s.cfg.ScrapeRedGifsLimit)
	redgifsAdded = s.persist(ctx, seen, redgifsVideos(gifs))
	s.logger.Info("redgifs ingestion pass complete", "fetched", len(gifs), "stored", redgifsAdded)

	s.logger.Info("ingestion run finished", "total_stored", redditAdded+redgifsAdded, "already_known", len(stored))
	return nil
}

// Start runs an immediate pass and then repeats on the interval until ctx is
// cancelled. A panic in one pass is contained so the schedule survives.
func (s *Service) Start(ctx context.Context, interval time.Duration) {
	s.safeRun(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.safeRun(ctx)
		}
	}
}

func (s *Service) safeRun(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("ingestion pass panicked", "panic", r)
		}
	}()

	if err := s.RunOnce(ctx); err != nil {
		s.logger.Error("ingestion pass failed", "error", err)
	}
}

func (s *Service) persist(ctx context.Context, seen *dedup.SeenSet, videos []models.Video) int {
	added := 0
	for _, v := range videos {
		if !seen.Admit(v.ID, v.VideoURL) {
			continue
		}
		if err := s.store.CreateVideo(ctx, v); err != nil {
			if err == storage.ErrAlreadyExists {
				continue
			}
			s.logger.Warn("persist video failed", "id", v.ID, "error", err)
			continue
		}
		added++
	}
	return added
}

func redditVideos(posts []models.RedditPost) []models.Video {
	videos := make([]models.Video, 0, len(posts))
	for _, p := range posts {
		v := normalize.FromRedditPost(p)
		v.Provenance = scraperProvenance
		videos = append(videos, v)
	}
	return videos
}

func redgifsVideos(gifs []models.RedGifsGif) []models.Video {
	videos := make([]models.Video, 0, len(gifs))
	for _, g := range gifs {
		v := normalize.FromRedGifs(g)
		v.Provenance = scraperProvenance
		videos = append(videos, v)
	}
	return videos
}
