// internal/storage/sqlite.go
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"vidfeed/internal/models"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS videos (
	id             TEXT PRIMARY KEY,
	video_url      TEXT NOT NULL,
	thumbnail_url  TEXT NOT NULL DEFAULT '',
	title          TEXT NOT NULL DEFAULT '',
	description    TEXT NOT NULL DEFAULT '',
	username       TEXT NOT NULL DEFAULT '',
	provenance     TEXT NOT NULL DEFAULT '',
	source         TEXT NOT NULL,
	likes_count    INTEGER NOT NULL DEFAULT 0,
	comments_count INTEGER NOT NULL DEFAULT 0,
	bookmarks_count INTEGER NOT NULL DEFAULT 0,
	shares_count   INTEGER NOT NULL DEFAULT 0,
	views_count    INTEGER NOT NULL DEFAULT 0,
	created_at     TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_videos_created_at ON videos (created_at DESC);
`

// SQLiteStore is the durable VideoStore used by the scheduled scraper.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) ListVideos(ctx context.Context) ([]models.Video, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, video_url, thumbnail_url, title, description, username,
		       provenance, source, likes_count, comments_count,
		       bookmarks_count, shares_count, views_count, created_at
		FROM videos
		ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("query videos: %w", err)
	}
	defer rows.Close()

	var videos []models.Video
	for rows.Next() {
		var v models.Video
		var createdAt time.Time
		err := rows.Scan(
			&v.ID, &v.VideoURL, &v.ThumbnailURL, &v.Title, &v.Description,
			&v.Username, &v.Provenance, &v.Source, &v.LikesCount,
			&v.CommentsCount, &v.BookmarksCount, &v.SharesCount,
			&v.ViewsCount, &createdAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan video: %w", err)
		}
		v.CreatedAt = createdAt
		videos = append(videos, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate videos: %w", err)
	}
	return videos, nil
}

func (s *SQLiteStore) GetVideo(ctx context.Context, id string) (models.Video, error) {
	var v models.Video
	err := s.db.QueryRowContext(ctx, `
		SELECT id, video_url, thumbnail_url, title, description, username,
		       provenance, source, likes_count, comments_count,
		       bookmarks_count, shares_count, views_count, created_at
		FROM videos
		WHERE id = ?`, id).Scan(
		&v.ID, &v.VideoURL, &v.ThumbnailURL, &v.Title, &v.Description,
		&v.Username, &v.Provenance, &v.Source, &v.LikesCount,
		&v.CommentsCount, &v.BookmarksCount, &v.SharesCount,
		&v.ViewsCount, &v.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Video{}, ErrNotFound
	}
	if err != nil {
		return models.Video{}, fmt.Errorf("query video: %w", err)
	}
	return v, nil
}

func (s *SQLiteStore) CreateVideo(ctx context.Context, video models.Video) error {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO videos (
			id, video_url, thumbnail_url, title, description, username,
			provenance, source, likes_count, comments_count,
			bookmarks_count, shares_count, views_count, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO NOTHING`,
		video.ID, video.VideoURL, video.ThumbnailURL, video.Title,
		video.Description, video.Username, video.Provenance, video.Source,
		video.LikesCount, video.CommentsCount, video.BookmarksCount,
		video.SharesCount, video.ViewsCount, video.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert video: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return ErrAlreadyExists
	}
	return nil
}
