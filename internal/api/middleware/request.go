package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/Conceptual-Machines/intprep/internal/logger"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	requestIDHeader    = "X-Request-ID"
	requestIDKey       = "request_id"
	maxRequestIDLength = 64
)

// APIRecorder receives one measurement per handled request
type APIRecorder interface {
	RecordAPIRequest(ctx context.Context, route string, statusCode int, duration time.Duration)
}

// quietRoutes are polled by probes and scrapers and logged at debug level
var quietRoutes = map[string]bool{
	"/health":  true,
	"/metrics": true,
}

// RequestTracking assigns a request ID, logs the request when it completes
// and reports it to recorder. A usable incoming X-Request-ID is kept.
func RequestTracking(recorder APIRecorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := incomingRequestID(c.GetHeader(requestIDHeader))
		c.Set(requestIDKey, requestID)
		c.Header(requestIDHeader, requestID)

		start := time.Now()
		c.Next()
		duration := time.Since(start)

		status := c.Writer.Status()
		route := c.FullPath()
		fields := logger.Fields{
			"request_id":  requestID,
			"route":       route,
			"path":        c.Request.URL.Path,
			"method":      c.Request.Method,
			"status_code": status,
			"duration_ms": duration.Milliseconds(),
			"client_ip":   c.ClientIP(),
		}

		switch {
		case status >= http.StatusInternalServerError:
			logger.Error("Request failed with server error", nil, fields)
		case status >= http.StatusBadRequest:
			logger.Warn("Request failed with client error", fields)
		case quietRoutes[route]:
			logger.Debug("Request completed", fields)
		default:
			logger.Info("Request completed", fields)
		}

		if recorder != nil {
			recorder.RecordAPIRequest(c.Request.Context(), route, status, duration)
		}
	}
}

func incomingRequestID(header string) string {
	id := strings.TrimSpace(header)
	if id == "" || len(id) > maxRequestIDLength || strings.ContainsAny(id, "\r\n") {
		return uuid.NewString()
	}
	return id
}
