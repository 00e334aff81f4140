package api

import (
	"github.com/Conceptual-Machines/intprep/internal/api/handlers"
	apimiddleware "github.com/Conceptual-Machines/intprep/internal/api/middleware"
	"github.com/Conceptual-Machines/intprep/internal/metrics"
	webhandlers "github.com/Conceptual-Machines/intprep/internal/web/handlers"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func SetupRouter(generator handlers.Generator, gatherer prometheus.Gatherer, version string) *gin.Engine {
	router := gin.New()

	// Recovery middleware (must be first)
	router.Use(apimiddleware.Recover())

	// Sentry middleware for error tracking
	router.Use(apimiddleware.SentryMiddleware())

	// Request tracking and structured logging
	router.Use(apimiddleware.RequestTracking(metrics.NewSentryMetrics()))

	// CORS middleware
	router.Use(apimiddleware.CORS())

	candidates := generator.Candidates()

	// Health check
	healthHandler := handlers.NewHealthHandler(candidates)
	router.GET("/health", healthHandler.HealthCheck)

	// Metrics endpoints
	metricsHandler := handlers.NewMetricsHandler(version, candidates, gatherer)
	router.GET("/api/metrics", metricsHandler.GetMetrics)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	// Web pages
	webHandler := webhandlers.NewWebHandler(candidates, version)
	router.GET("/", webHandler.Home)

	v1 := router.Group("/api/v1")
	{
		generationHandler := handlers.NewGenerationHandler(generator)
		v1.POST("/generations", generationHandler.Generate)
		v1.GET("/models", generationHandler.ListModels)
	}

	return router
}
