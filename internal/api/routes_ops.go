package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/charlesng35/callcache/internal/app"
	"github.com/charlesng35/callcache/internal/handlers"
	"github.com/charlesng35/callcache/internal/monitoring"
)

var healthPaths = []string{"/health", "/health/live", "/health/ready"}

// registerOpsRoutes mounts health checks at the root and under /api, the Prometheus
// endpoint and the monitoring summary.
func registerOpsRoutes(r *gin.Engine, api *gin.RouterGroup, cfg *app.Config, mon *monitoring.Module) {
	for _, router := range []gin.IRouter{r, api} {
		registerHealthRoutes(router, cfg, mon)
	}
	registerMetricsRoute(r, cfg, mon)

	if handler := handlers.NewMonitoringHandler(mon, cfg); handler != nil {
		api.GET("/monitoring/summary", handler.Summary)
	}
}

func registerHealthRoutes(router gin.IRouter, cfg *app.Config, mon *monitoring.Module) {
	if !cfg.Monitoring.Health.Enabled || mon == nil || mon.Health() == nil {
		for _, path := range healthPaths {
			router.GET(path, disabledHealthHandler)
		}
		return
	}

	manager := mon.Health()

	// /health folds both check sets together and names the active store backend.
	router.GET("/health", func(c *gin.Context) {
		ctx := c.Request.Context()
		report := monitoring.MergeReports(manager.EvaluateLiveness(ctx), manager.EvaluateReadiness(ctx))
		c.JSON(reportStatus(report), gin.H{
			"success":       report.Success,
			"status":        report.Status,
			"store_backend": mon.Summary().StoreBackend,
			"checked_at":    report.CheckedAt,
		})
	})
	router.GET("/health/live", func(c *gin.Context) {
		report := manager.EvaluateLiveness(c.Request.Context())
		c.JSON(reportStatus(report), report)
	})
	router.GET("/health/ready", func(c *gin.Context) {
		report := manager.EvaluateReadiness(c.Request.Context())
		c.JSON(reportStatus(report), report)
	})
}

func reportStatus(report monitoring.HealthReport) int {
	if report.Success {
		return http.StatusOK
	}
	return http.StatusServiceUnavailable
}

func disabledHealthHandler(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{
		"success": false,
		"status":  "disabled",
	})
}

func registerMetricsRoute(r *gin.Engine, cfg *app.Config, mon *monitoring.Module) {
	if !cfg.Monitoring.Prometheus.Enabled {
		return
	}
	endpoint := strings.TrimSpace(cfg.Monitoring.Prometheus.Endpoint)
	if endpoint == "" {
		endpoint = "/metrics"
	}

	// The module registry carries its own runtime collectors, so it replaces the default one.
	var gatherer prometheus.Gatherer = prometheus.DefaultGatherer
	if mon != nil && mon.Registry() != nil {
		gatherer = mon.Registry()
	}
	r.GET(endpoint, gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
}
