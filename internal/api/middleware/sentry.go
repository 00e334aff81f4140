package middleware

import (
	"net/http"
	"time"

	"github.com/Conceptual-Machines/intprep/internal/logger"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
)

const sentryFlushTimeout = 2 * time.Second

// SentryMiddleware attaches a hub to each request and reports panics.
// Panics are re-raised for Recover.
func SentryMiddleware() gin.HandlerFunc {
	return sentrygin.New(sentrygin.Options{
		Repanic:         true,
		WaitForDelivery: false,
		Timeout:         sentryFlushTimeout,
	})
}

// Recover turns a panic into a logged 500. It must run before
// SentryMiddleware, which has already reported the panic by the time it
// gets here. Once an event stream has started the headers are sent, so the
// connection is only aborted.
func Recover() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}

			requestID := c.GetString(requestIDKey)
			logger.Error("Panic recovered", nil, logger.Fields{
				"request_id": requestID,
				"panic":      rec,
				"path":       c.Request.URL.Path,
			})

			if c.Writer.Written() {
				c.Abort()
				return
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error":      "Internal server error",
				"request_id": requestID,
			})
		}()
		c.Next()
	}
}
