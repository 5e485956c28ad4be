package api

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/callcache/internal/app"
	"github.com/charlesng35/callcache/internal/cache"
	"github.com/charlesng35/callcache/internal/handlers"
	"github.com/charlesng35/callcache/internal/middleware"
	"github.com/charlesng35/callcache/internal/monitoring"
	"github.com/charlesng35/callcache/internal/pagecache"
	"github.com/charlesng35/callcache/internal/valuecache"
)

// Dependencies are the services the router exposes.
type Dependencies struct {
	Config     *app.Config
	Store      cache.Store
	Values     *valuecache.Cache
	Pages      *pagecache.PageCache
	Monitoring *monitoring.Module
}

// NewRouter builds the Gin engine, wires middleware and registers the routes.
func NewRouter(deps Dependencies) (*gin.Engine, error) {
	cfg := deps.Config
	if cfg == nil {
		return nil, errors.New("config must be provided")
	}
	if deps.Store == nil {
		return nil, errors.New("store must be provided")
	}
	if deps.Values == nil {
		return nil, errors.New("value cache must be provided")
	}
	if deps.Pages == nil {
		return nil, errors.New("page cache must be provided")
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	if cfg.Server.RateLimit.Enabled {
		r.Use(middleware.RateLimit(
			middleware.NewStoreRateStore(deps.Store),
			cfg.Server.RateLimit.Requests,
			cfg.Server.RateLimit.Window,
		))
	}

	api := r.Group("/api")
	registerOpsRoutes(r, api, cfg, deps.Monitoring)

	valueHandler := handlers.NewValueHandler(deps.Values)
	values := api.Group("/values")
	{
		values.POST("", valueHandler.Store)
		values.GET("/:key", valueHandler.Get)
	}
	api.POST("/flush", valueHandler.Flush)

	replayHandler := handlers.NewReplayHandler(deps.Store)
	api.GET("/replay/*operation", replayHandler.Get)

	pageHandler := handlers.NewPageHandler(deps.Pages)
	pages := api.Group("/pages")
	{
		pages.GET("", pageHandler.Get)
		pages.GET("/count", pageHandler.Count)
	}

	// NotFound fallback
	r.NoRoute(middleware.NotFoundHandler)

	return r, nil
}
