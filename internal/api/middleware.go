package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	apperrors "kurio/internal/common/errors"
	"kurio/internal/common/logger"
	"kurio/internal/common/metrics"
)

const requestIDHeader = "X-Request-ID"

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("requestId", id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func accessLog(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := map[string]interface{}{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     c.Writer.Status(),
			"durationMs": time.Since(start).Milliseconds(),
			"requestId":  c.GetString("requestId"),
		}
		if c.Writer.Status() >= http.StatusInternalServerError {
			log.Warn("Request failed", fields)
			return
		}
		log.Debug("Request served", fields)
	}
}

func observe() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.HTTPRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// cors allows the configured origins; "*" allows any.
func cors(origins []string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[strings.TrimRight(strings.TrimSpace(o), "/")] = true
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" && (allowed["*"] || allowed[origin]) {
			h := c.Writer.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Credentials", "true")
			h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, "+requestIDHeader)
			h.Add("Vary", "Origin")
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// renderError writes {"detail": message}, the same shape the inference
// service uses, with the status mapped from the error code.
func renderError(c *gin.Context, err error) {
	stdErr := apperrors.AsStandardError(err)
	body := gin.H{"detail": stdErr.Message, "code": stdErr.Code}
	if stdErr.Code == apperrors.ErrCodeEntryValidationFailed && stdErr.Details != "" {
		body["detail"] = stdErr.Message + ": " + stdErr.Details
	}
	c.AbortWithStatusJSON(statusOf(stdErr), body)
}

// statusOf passes client errors from the inference service through unchanged.
func statusOf(stdErr *apperrors.StandardError) int {
	if stdErr.Code == apperrors.ErrCodeRAGServerError {
		if upstream, ok := stdErr.Metadata["statusCode"].(int); ok && upstream >= 400 && upstream < 500 {
			return upstream
		}
	}
	return apperrors.HTTPStatus(stdErr.Code)
}

func unavailable(c *gin.Context, what string) {
	c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"detail": what + " is not configured"})
}
