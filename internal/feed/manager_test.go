package feed

import (
	"context"
	"testing"

	"vidfeed/internal/models"
	"vidfeed/internal/storage"
)

func newTestManager() *Manager {
	reddit := &mockRedditSource{
		FetchMultiFunc: func(ctx context.Context, subreddits []string, limit int, sortMethod string) []models.RedditPost {
			return redditPosts("m", 2)
		},
		FetchPageFunc: func(ctx context.Context, subreddit string, limit int, sortMethod, after string) (models.Page, error) {
			return models.Page{}, nil
		},
	}
	return NewManager(storage.NewMemoryStore(), reddit, emptyRedGifs(), feedTestConfig(), testLogger())
}

func TestGetOrCreateMintsSession(t *testing.T) {
	m := newTestManager()
	ctx := context.Background()

	id, ctrl := m.GetOrCreate(ctx, "")
	if id == "" {
		t.Fatal("no session ID minted")
	}
	if got := len(ctrl.Videos()); got != 2 {
		t.Errorf("new session not initialized, %d videos", got)
	}

	again, same := m.GetOrCreate(ctx, id)
	if again != id {
		t.Errorf("existing session re-minted: %q vs %q", again, id)
	}
	if same != ctrl {
		t.Error("existing session returned a different controller")
	}
}

func TestGetOrCreateUnknownIDStartsFresh(t *testing.T) {
	m := newTestManager()
	ctx := context.Background()

	id, _ := m.GetOrCreate(ctx, "expired-session")
	if id != "expired-session" {
		t.Errorf("caller-supplied ID not kept: %q", id)
	}
}

func TestDropRemovesSession(t *testing.T) {
	m := newTestManager()
	ctx := context.Background()

	id, ctrl := m.GetOrCreate(ctx, "")
	m.Drop(id)

	_, fresh := m.GetOrCreate(ctx, id)
	if fresh == ctrl {
		t.Error("dropped session was reused")
	}
}

func TestEvictIdleRemovesStaleSessions(t *testing.T) {
	m := newTestManager()
	ctx := context.Background()

	id, ctrl := m.GetOrCreate(ctx, "")
	ctrl.mu.Lock()
	ctrl.lastAccess = ctrl.lastAccess.Add(-2 * sessionIdleTimeout)
	ctrl.mu.Unlock()

	m.evictIdle()

	m.mu.Lock()
	_, ok := m.sessions[id]
	m.mu.Unlock()
	if ok {
		t.Error("idle session survived eviction")
	}
}
