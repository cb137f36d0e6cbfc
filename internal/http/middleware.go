package http

import (
	"fmt"
	"io"
	"log/slog"
	stdhttp "net/http"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/obaldwin4/congenial-palm-tree/internal/http/handler"
	"github.com/obaldwin4/congenial-palm-tree/internal/metrics"
)

// Probe and scrape traffic is logged at debug level.
var quietRoutes = map[string]bool{
	"/api/version":   true,
	"/api/1/version": true,
	"/api/1/ping":    true,
	"/healthz":       true,
	"/metrics":       true,
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		status := c.Writer.Status()
		level := slog.LevelInfo
		switch {
		case status >= stdhttp.StatusInternalServerError:
			level = slog.LevelError
		case quietRoutes[route]:
			level = slog.LevelDebug
		}

		logger.Log(c.Request.Context(), level, "HTTP request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"route", route,
			"status", status,
			"duration_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
		)
	}
}

func requestMetrics(collector *metrics.Collector) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		collector.ObserveRequest(c.FullPath(), c.Request.Method, c.Writer.Status(), time.Since(start))
	}
}

// recovery turns a handler panic into a 500 envelope instead of a dropped
// connection.
func recovery(logger *slog.Logger) gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(io.Discard, func(c *gin.Context, recovered any) {
		logger.Error("Unhandled panic when processing endpoint request",
			"path", c.Request.URL.Path,
			"panic", recovered,
			"stack", string(debug.Stack()),
		)
		handler.Fail(c, stdhttp.StatusInternalServerError, fmt.Sprint(recovered))
	})
}
