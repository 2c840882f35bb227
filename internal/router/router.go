// internal/router/router.go
package router

import (
	"github.com/labstack/echo/v4"

	"vidfeed/internal/client"
	"vidfeed/internal/feed"
	"vidfeed/internal/handler/http"
	"vidfeed/internal/storage"
)

type Stores interface {
	storage.VideoStore
	storage.InteractionStore
}

func NewRouter(e *echo.Echo, store Stores, manager *feed.Manager, redgifs client.RedGifsSource, streamer http.MediaStreamer) {
	vid := http.NewVideoHandler(store)
	fd := http.NewFeedHandler(manager, redgifs)
	inter := http.NewInteractionHandler(store)
	prx := http.NewProxyHandler(streamer)

	e.GET("/videos", vid.ListVideos)
	e.POST("/videos", vid.CreateVideo)
	e.GET("/videos/:id", vid.GetVideo)

	e.GET("/feed", fd.GetFeed)
	e.POST("/feed/refresh", fd.RefreshFeed)

	e.POST("/videos/:id/like", inter.Like)
	e.DELETE("/videos/:id/like", inter.Unlike)
	e.POST("/videos/:id/bookmark", inter.Bookmark)
	e.DELETE("/videos/:id/bookmark", inter.Unbookmark)
	e.POST("/videos/:id/share", inter.Share)
	e.POST("/videos/:id/view", inter.View)
	e.GET("/videos/:id/comments", inter.ListComments)
	e.POST("/videos/:id/comments", inter.AddComment)
	e.DELETE("/comments/:id", inter.DeleteComment)

	e.GET("/proxy", prx.Proxy)
}
