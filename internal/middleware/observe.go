package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/charlesng35/callcache/internal/monitoring"
	"github.com/charlesng35/callcache/pkg/logger"
)

// routeLabel prefers the registered route template so /api/values/:key stays one series.
func routeLabel(c *gin.Context) string {
	if path := c.FullPath(); path != "" {
		return path
	}
	return c.Request.URL.Path
}

// healthRoute reports health and metrics scrapes, which are logged at debug level.
func healthRoute(route string) bool {
	return strings.HasPrefix(route, "/health") ||
		strings.HasPrefix(route, "/api/health") ||
		route == "/metrics"
}

func accessLevel(route string, status int) zapcore.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return zapcore.ErrorLevel
	case status >= http.StatusBadRequest:
		return zapcore.WarnLevel
	case healthRoute(route):
		return zapcore.DebugLevel
	default:
		return zapcore.InfoLevel
	}
}

// Logger writes one structured access entry per request. Server errors log at error level,
// client errors at warn, health and metrics scrapes at debug.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		route := routeLabel(c)
		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("route", route),
			zap.String("path", path),
			zap.Int("status", status),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		if remaining := c.Writer.Header().Get("X-RateLimit-Remaining"); remaining != "" {
			fields = append(fields, zap.String("ratelimit_remaining", remaining))
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}

		if ce := logger.WithModule("http").Check(accessLevel(route, status), "request"); ce != nil {
			ce.Write(fields...)
		}
	}
}

// Metrics observes request latency per method, route template and status.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		monitoring.ObserveAPILatency(
			c.Request.Method,
			routeLabel(c),
			strconv.Itoa(c.Writer.Status()),
			time.Since(start),
		)
	}
}
