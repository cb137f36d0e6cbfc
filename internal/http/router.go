package http

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/obaldwin4/congenial-palm-tree/internal/http/handler"
	"github.com/obaldwin4/congenial-palm-tree/internal/metrics"
)

type RouterDeps struct {
	Version          *handler.VersionHandler
	Checks           map[string]handler.CheckFunc
	ReadinessTimeout time.Duration
	// Metrics is optional; /metrics is only mounted when set.
	Metrics *metrics.Collector
	Logger  *slog.Logger
}

func NewRouter(deps RouterDeps) *gin.Engine {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	router := gin.New()
	router.HandleMethodNotAllowed = true
	router.Use(requestLogger(logger))
	if deps.Metrics != nil {
		router.Use(requestMetrics(deps.Metrics))
	}
	router.Use(recovery(logger))

	healthHandler := handler.NewHealthHandler(deps.Checks, deps.ReadinessTimeout)
	logger.Debug("Readiness checks registered", "checks", healthHandler.CheckNames())

	router.GET("/api/version", deps.Version.Version)
	router.GET("/healthz", healthHandler.Health)

	v1 := router.Group("/api/1")
	{
		v1.GET("/version", deps.Version.Version)
		v1.GET("/ping", deps.Version.Ping)
	}

	if deps.Metrics != nil {
		router.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	}

	router.NoRoute(handler.NotFound)
	router.NoMethod(handler.MethodNotAllowed)

	return router
}
