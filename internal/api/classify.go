package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vietddude/edufilter/internal/core/domain"
	"github.com/vietddude/edufilter/internal/infra/storage"
	"github.com/vietddude/edufilter/internal/metrics"
)

const errInvalidVideos = "Invalid request body. Expected a 'videos' array."

// classifyBody keeps videos raw so a missing or non-array value can be told
// apart from an empty array.
type classifyBody struct {
	Videos         json.RawMessage `json:"videos"`
	InstallationID string          `json:"installationId"`
}

// RegisterClassifyRoutes registers POST /v1/classify.
func RegisterClassifyRoutes(r *gin.Engine, classifier BatchClassifier, limiter storage.RateLimiter) {
	h := &classifyHandler{classifier: classifier, limiter: limiter}
	r.POST("/v1/classify", h.rateLimit, h.handle)
}

type classifyHandler struct {
	classifier BatchClassifier
	limiter    storage.RateLimiter
}

func (h *classifyHandler) rateLimit(c *gin.Context) {
	if h.limiter == nil {
		c.Next()
		return
	}

	// Peek at the installation id without consuming the body.
	raw, err := c.GetRawData()
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "failed to read request body"})
		return
	}
	c.Request.Body = io.NopCloser(bytes.NewReader(raw))

	var body classifyBody
	_ = json.Unmarshal(raw, &body)
	key := body.InstallationID
	if key == "" {
		key = "ip:" + c.ClientIP()
	}

	allowed, err := h.limiter.Allow(c.Request.Context(), key)
	if err != nil {
		// An unavailable limiter does not take the API down with it.
		logger().Warn("Rate limiter failed", "error", err)
		c.Next()
		return
	}
	if !allowed {
		metrics.RateLimitedTotal.Inc()
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests, please try again later."})
		return
	}
	c.Next()
}

func (h *classifyHandler) handle(c *gin.Context) {
	var body classifyBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidVideos})
		return
	}

	trimmed := bytes.TrimSpace(body.Videos)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidVideos})
		return
	}

	var videos []domain.VideoRequest
	if err := json.Unmarshal(trimmed, &videos); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidVideos})
		return
	}

	results := h.classifier.ClassifyBatch(c.Request.Context(), videos)
	logger().Info("Classified batch", "videos", len(videos), "installationId", body.InstallationID)

	c.JSON(http.StatusOK, domain.ClassifyResponse{Classifications: results})
}
