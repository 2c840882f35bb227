package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"vidfeed/internal/models"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteCreateAndGet(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	video := models.Video{
		ID:         "reddit-abc",
		VideoURL:   "/proxy?url=https%3A%2F%2Fv.redd.it%2Fabc%2FDASH_720.mp4",
		Title:      "a title",
		Username:   "someone",
		Provenance: "scraper",
		Source:     models.SourceReddit,
		LikesCount: 42,
		CreatedAt:  time.Now().UTC().Truncate(time.Second),
	}
	if err := s.CreateVideo(ctx, video); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := s.GetVideo(ctx, "reddit-abc")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.VideoURL != video.VideoURL || got.LikesCount != 42 || got.Source != models.SourceReddit {
		t.Errorf("round-trip mismatch: %+v", got)
	}
}

func TestSQLiteDuplicateInsert(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	video := models.Video{ID: "v1", VideoURL: "/uploads/v1.mp4", Source: models.SourceUpload, CreatedAt: time.Now()}
	if err := s.CreateVideo(ctx, video); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	if err := s.CreateVideo(ctx, video); !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
}

func TestSQLiteListNewestFirst(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	base := time.Now().UTC()
	for i, id := range []string{"oldest", "middle", "newest"} {
		v := models.Video{ID: id, VideoURL: "/uploads/" + id + ".mp4", Source: models.SourceUpload, CreatedAt: base.Add(time.Duration(i) * time.Minute)}
		if err := s.CreateVideo(ctx, v); err != nil {
			t.Fatalf("insert %s: %v", id, err)
		}
	}

	videos, err := s.ListVideos(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(videos) != 3 || videos[0].ID != "newest" || videos[2].ID != "oldest" {
		t.Errorf("unexpected ordering: %v, %v, %v", videos[0].ID, videos[1].ID, videos[2].ID)
	}
}

func TestSQLiteGetMissing(t *testing.T) {
	s := newTestSQLiteStore(t)
	if _, err := s.GetVideo(context.Background(), "ghost"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
