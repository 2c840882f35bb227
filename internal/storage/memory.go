// internal/storage/memory.go
package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"vidfeed/internal/models"
)

// MemoryStore is the mutex-guarded in-memory implementation of VideoStore and
// InteractionStore used by the live service. All mutations are single-field
// increments or inserts, so statement-level interleaving is acceptable.
type MemoryStore struct {
	mu        sync.Mutex
	videos    map[string]models.Video
	likes     map[string]models.Like     // keyed videoID|identity
	bookmarks map[string]models.Bookmark // keyed videoID|identity
	comments  map[string]models.Comment  // keyed comment ID
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		videos:    make(map[string]models.Video),
		likes:     make(map[string]models.Like),
		bookmarks: make(map[string]models.Bookmark),
		comments:  make(map[string]models.Comment),
	}
}

func pairKey(videoID, identity string) string {
	return videoID + "|" + identity
}

func (s *MemoryStore) ListVideos(ctx context.Context) ([]models.Video, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	videos := make([]models.Video, 0, len(s.videos))
	for _, v := range s.videos {
		videos = append(videos, v)
	}
	sort.Slice(videos, func(i, j int) bool {
		return videos[i].CreatedAt.After(videos[j].CreatedAt)
	})
	return videos, nil
}

func (s *MemoryStore) GetVideo(ctx context.Context, id string) (models.Video, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	video, ok := s.videos[id]
	if !ok {
		return models.Video{}, ErrNotFound
	}
	return video, nil
}

func (s *MemoryStore) CreateVideo(ctx context.Context, video models.Video) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.videos[video.ID]; ok {
		return ErrAlreadyExists
	}
	s.videos[video.ID] = video
	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}

func (s *MemoryStore) Like(ctx context.Context, videoID, identity string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	video, ok := s.videos[videoID]
	if !ok {
		return ErrNotFound
	}
	key := pairKey(videoID, identity)
	if _, ok := s.likes[key]; ok {
		return ErrAlreadyExists
	}

	s.likes[key] = models.Like{VideoID: videoID, Identity: identity, CreatedAt: time.Now()}
	video.LikesCount++
	s.videos[videoID] = video
	return nil
}

func (s *MemoryStore) Unlike(ctx context.Context, videoID, identity string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := pairKey(videoID, identity)
	if _, ok := s.likes[key]; !ok {
		return ErrNotFound
	}
	delete(s.likes, key)

	if video, ok := s.videos[videoID]; ok && video.LikesCount > 0 {
		video.LikesCount--
		s.videos[videoID] = video
	}
	return nil
}

func (s *MemoryStore) Bookmark(ctx context.Context, videoID, identity string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	video, ok := s.videos[videoID]
	if !ok {
		return ErrNotFound
	}
	key := pairKey(videoID, identity)
	if _, ok := s.bookmarks[key]; ok {
		return ErrAlreadyExists
	}

	s.bookmarks[key] = models.Bookmark{VideoID: videoID, Identity: identity, CreatedAt: time.Now()}
	video.BookmarksCount++
	s.videos[videoID] = video
	return nil
}

func (s *MemoryStore) Unbookmark(ctx context.Context, videoID, identity string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := pairKey(videoID, identity)
	if _, ok := s.bookmarks[key]; !ok {
		return ErrNotFound
	}
	delete(s.bookmarks, key)

	if video, ok := s.videos[videoID]; ok && video.BookmarksCount > 0 {
		video.BookmarksCount--
		s.videos[videoID] = video
	}
	return nil
}

func (s *MemoryStore) AddComment(ctx context.Context, videoID, identity, content string) (models.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	video, ok := s.videos[videoID]
	if !ok {
		return models.Comment{}, ErrNotFound
	}

	comment := models.Comment{
		ID:        uuid.NewString(),
		VideoID:   videoID,
		Identity:  identity,
		Content:   content,
		CreatedAt: time.Now(),
	}
	s.comments[comment.ID] = comment
	video.CommentsCount++
	s.videos[videoID] = video
	return comment, nil
}

func (s *MemoryStore) ListComments(ctx context.Context, videoID string) ([]models.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var comments []models.Comment
	for _, c := range s.comments {
		if c.VideoID == videoID {
			comments = append(comments, c)
		}
	}
	sort.Slice(comments, func(i, j int) bool {
		return comments[i].CreatedAt.After(comments[j].CreatedAt)
	})
	return comments, nil
}

func (s *MemoryStore) DeleteComment(ctx context.Context, commentID, identity string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	comment, ok := s.comments[commentID]
	if !ok || comment.Identity != identity {
		return ErrNotFound
	}
	delete(s.comments, commentID)

	if video, ok := s.videos[comment.VideoID]; ok && video.CommentsCount > 0 {
		video.CommentsCount--
		s.videos[comment.VideoID] = video
	}
	return nil
}

func (s *MemoryStore) AddShare(ctx context.Context, videoID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	video, ok := s.videos[videoID]
	if !ok {
		return ErrNotFound
	}
	video.SharesCount++
	s.videos[videoID] = video
	return nil
}

func (s *MemoryStore) AddView(ctx context.Context, videoID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	video, ok := s.videos[videoID]
	if !ok {
		return ErrNotFound
	}
	video.ViewsCount++
	s.videos[videoID] = video
	return nil
}
