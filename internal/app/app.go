// internal/app/app.go
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	echoSwagger "github.com/swaggo/echo-swagger"

	"vidfeed/internal/client"
	"vidfeed/internal/config"
	"vidfeed/internal/feed"
	"vidfeed/internal/router"
	"vidfeed/internal/storage"
	"vidfeed/pkg/httpclient"
)

const sessionEvictionInterval = 5 * time.Minute

type App struct {
	Config  *config.Config
	Echo    *echo.Echo
	Logger  *slog.Logger
	Store   *storage.MemoryStore
	Manager *feed.Manager

	cancelJobs context.CancelFunc
}

func Initialize() (*App, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	redditClient, err := client.NewRedditClient(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create Reddit client: %w", err)
	}
	redgifsClient, err := client.NewRedGifsClient(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create RedGifs client: %w", err)
	}
	streamer, err := httpclient.NewRetryableClient(cfg.ProxyURLs, cfg.MaxRetries, cfg.RedditUserAgent, cfg.RequestTimeout)
	if err != nil {
		return nil, fmt.Errorf("failed to create media client: %w", err)
	}

	store := storage.NewMemoryStore()
	manager := feed.NewManager(store, redditClient, redgifsClient, cfg, logger)

	jobCtx, cancel := context.WithCancel(context.Background())
	go manager.StartEvictionJob(jobCtx, sessionEvictionInterval)

	e := echo.New()
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	router.NewRouter(e, store, manager, redgifsClient, streamer)

	return &App{
		Config:     cfg,
		Echo:       e,
		Logger:     logger,
		Store:      store,
		Manager:    manager,
		cancelJobs: cancel,
	}, nil
}

func (a *App) Start() error {
	port := a.Config.ServerPort
	if port == "" {
		port = "8080"
	}
	return a.Echo.Start(":" + port)
}

func (a *App) Shutdown(ctx context.Context) error {
	a.cancelJobs()
	return a.Echo.Shutdown(ctx)
}
