// internal/feed/manager.go
package feed

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"vidfeed/internal/client"
	"vidfeed/internal/config"
	"vidfeed/internal/storage"
)

const sessionIdleTimeout = 30 * time.Minute

// Manager holds per-session feed controllers and evicts the ones that have
// gone idle.
type Manager struct {
	store   storage.VideoStore
	reddit  client.RedditSource
	redgifs client.RedGifsSource
	cfg     *config.Config
	logger  *slog.Logger

	mu       sync.Mutex
	sessions map[string]*Controller
}

func NewManager(store storage.VideoStore, reddit client.RedditSource, redgifs client.RedGifsSource, cfg *config.Config, logger *slog.Logger) *Manager {
	return &Manager{
		store:    store,
		reddit:   reddit,
		redgifs:  redgifs,
		cfg:      cfg,
		logger:   logger,
		sessions: make(map[string]*Controller),
	}
}

// GetOrCreate returns the controller for sessionID, minting a fresh session
// (and running its initial load) when the ID is empty or unknown. The
// possibly-new session ID is returned alongside the controller.
func (m *Manager) GetOrCreate(ctx context.Context, sessionID string) (string, *Controller) {
	m.mu.Lock()
	if sessionID != "" {
		if ctrl, ok := m.sessions[sessionID]; ok {
			m.mu.Unlock()
			return sessionID, ctrl
		}
	}

	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	ctrl := NewController(m.store, m.reddit, m.redgifs, m.cfg, m.logger)
	m.sessions[sessionID] = ctrl
	m.mu.Unlock()

	ctrl.Init(ctx)
	return sessionID, ctrl
}

// Drop removes a session, if present.
func (m *Manager) Drop(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sessionID)
}

// StartEvictionJob periodically removes sessions idle longer than the
// timeout. It returns when ctx is cancelled.
func (m *Manager) StartEvictionJob(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.evictIdle()
		}
	}
}

func (m *Manager) evictIdle() {
	cutoff := time.Now().Add(-sessionIdleTimeout)

	m.mu.Lock()
	defer m.mu.Unlock()
	for id, ctrl := range m.sessions {
		if ctrl.LastAccess().Before(cutoff) {
			delete(m.sessions, id)
			m.logger.Info("evicted idle session", "session_id", id)
		}
	}
}
