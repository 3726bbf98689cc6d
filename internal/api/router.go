// Package api exposes the read-only observability surface of the probe
// service: health, integration listings, execution metrics and the
// Prometheus scrape endpoint.
package api

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/modelaudit/modelaudit/internal/integrations"
	"github.com/modelaudit/modelaudit/pkg/config"
	"github.com/modelaudit/modelaudit/pkg/logging"
	"github.com/modelaudit/modelaudit/pkg/metrics"
)

// NewRouter creates and configures the API router
func NewRouter(cfg *config.Config, manager *integrations.Manager, prom *metrics.Metrics, logger *logging.Logger) *gin.Engine {
	if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	router.Use(RequestIDMiddleware())
	router.Use(LoggingMiddleware(logger))
	router.Use(ErrorHandlingMiddleware())
	router.Use(CORSMiddleware())

	handler := NewHandler(manager)

	router.GET("/health", handler.GetHealth)
	router.GET("/health/:name", handler.GetIntegrationHealth)

	if prom != nil && prom.Enabled() {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(prom.Registry(), promhttp.HandlerOpts{})))
	}

	v1 := router.Group("/api/v1")
	{
		v1.GET("/integrations", handler.ListIntegrations)
		v1.GET("/integrations/:name/health", handler.GetIntegrationHealth)
		v1.GET("/integrations/:name/metrics", handler.GetIntegrationMetrics)
		v1.GET("/integrations/:name/probes", handler.ListIntegrationProbes)
		v1.GET("/integrations/:name/probes/:probe_id", handler.GetProbeInfo)
	}

	router.NoRoute(func(c *gin.Context) {
		NotFoundResponse(c, "Endpoint not found")
	})

	return router
}
