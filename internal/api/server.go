// Package api exposes the classification server over HTTP.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vietddude/edufilter/internal/core/domain"
	"github.com/vietddude/edufilter/internal/health"
	"github.com/vietddude/edufilter/internal/infra/storage"
	"github.com/vietddude/edufilter/internal/metrics"
)

// BatchClassifier classifies a batch of videos.
type BatchClassifier interface {
	ClassifyBatch(ctx context.Context, videos []domain.VideoRequest) map[string]domain.ClassificationRecord
}

// Deps are the collaborators of the HTTP API. Limiter and Monitor are optional.
type Deps struct {
	Classifier     BatchClassifier
	Limiter        storage.RateLimiter
	Monitor        *health.Monitor
	AllowedOrigins []string
}

// NewRouter constructs a Gin engine with registered routes.
func NewRouter(deps Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestMetrics(), CORS(deps.AllowedOrigins))

	RegisterHealthRoutes(r, deps.Monitor)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	RegisterClassifyRoutes(r, deps.Classifier, deps.Limiter)
	return r
}

// RegisterHealthRoutes registers health check endpoints.
func RegisterHealthRoutes(r *gin.Engine, monitor *health.Monitor) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/health/detailed", func(c *gin.Context) {
		if monitor == nil {
			c.JSON(http.StatusOK, health.HealthReport{SystemStatus: health.StatusHealthy})
			return
		}
		report := monitor.CheckHealth(c.Request.Context())
		status := http.StatusOK
		if report.SystemStatus == health.StatusCritical {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, report)
	})
}

func requestMetrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.HTTPRequestsTotal.WithLabelValues(route, strconv.Itoa(c.Writer.Status())).Inc()
	}
}

func logger() *slog.Logger {
	return slog.Default().With("component", "api")
}
