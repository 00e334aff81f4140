package logger

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
)

// Fields represents structured log fields
type Fields map[string]interface{}

// Level is a minimum log severity
type Level int32

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var minLevel atomic.Int32

func init() {
	minLevel.Store(int32(LevelInfo))
}

// ParseLevel maps debug, info, warn or error to a Level
func ParseLevel(name string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return LevelDebug, nil
	case "info", "":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	}
	return LevelInfo, fmt.Errorf("unknown log level %q", name)
}

// SetLevel drops log lines below level. Sentry breadcrumbs are always kept.
func SetLevel(level Level) {
	minLevel.Store(int32(level))
}

func enabled(level Level) bool {
	return int32(level) >= minLevel.Load()
}

// WithContext extracts request context for logging
func WithContext(c *gin.Context) Fields {
	return Fields{
		"request_id": c.GetString("request_id"),
		"method":     c.Request.Method,
		"path":       c.Request.URL.Path,
	}
}

func Debug(msg string, fields Fields) {
	emit(LevelDebug, "[DEBUG] "+msg, fields)
	addBreadcrumb("debug", msg, fields, sentry.LevelDebug)
}

func Info(msg string, fields Fields) {
	emit(LevelInfo, "[INFO] "+msg, fields)
	addBreadcrumb("info", msg, fields, sentry.LevelInfo)
}

func Warn(msg string, fields Fields) {
	emit(LevelWarn, "[WARN] "+msg, fields)
	addBreadcrumb("warning", msg, fields, sentry.LevelWarning)
}

// Error logs msg and, when err is set, captures err in Sentry with fields
// attached to the event.
func Error(msg string, err error, fields Fields) {
	emit(LevelError, fmt.Sprintf("[ERROR] %s: %v", msg, err), fields)
	if err == nil {
		return
	}
	withScope(sentry.LevelError, fields, func(hub *sentry.Hub) {
		hub.CaptureException(err)
	})
}

// LogToSentry sends msg to Sentry as a standalone event
func LogToSentry(level sentry.Level, msg string, fields Fields) {
	withScope(level, fields, func(hub *sentry.Hub) {
		hub.CaptureMessage(msg)
	})
}

// LogGeneration logs a successful generation and marks it on the current
// Sentry transaction
func LogGeneration(ctx context.Context, model string, duration time.Duration, attempts int, fields Fields) {
	if fields == nil {
		fields = Fields{}
	}
	fields["model"] = model
	fields["duration_ms"] = duration.Milliseconds()
	fields["attempts"] = attempts
	Info("Generation completed", fields)

	if tx := sentry.TransactionFromContext(ctx); tx != nil {
		tx.SetTag("groq.model", model)
		tx.SetData("groq.attempts", attempts)
	}
}

func emit(level Level, line string, fields Fields) {
	if !enabled(level) {
		return
	}
	if formatted := formatFields(fields); formatted != "" {
		line += " " + formatted
	}
	log.Print(line)
}

func withScope(level sentry.Level, fields Fields, capture func(*sentry.Hub)) {
	hub := sentry.CurrentHub()
	if hub.Client() == nil {
		return
	}
	hub.WithScope(func(scope *sentry.Scope) {
		scope.SetLevel(level)
		if len(fields) > 0 {
			scope.SetContext("fields", sentry.Context(fields))
		}
		for _, key := range []string{"request_id", "model"} {
			if v, ok := fields[key].(string); ok && v != "" {
				scope.SetTag(key, v)
			}
		}
		capture(hub)
	})
}

func addBreadcrumb(kind, msg string, fields Fields, level sentry.Level) {
	if sentry.CurrentHub().Client() == nil {
		return
	}
	sentry.AddBreadcrumb(&sentry.Breadcrumb{
		Type:     kind,
		Category: "log",
		Message:  msg,
		Data:     map[string]interface{}(fields),
		Level:    level,
	})
}

// formatFields renders fields as {k=v, ...} with keys sorted
func formatFields(fields Fields) string {
	if len(fields) == 0 {
		return ""
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+formatValue(fields[k]))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func formatValue(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return fmt.Sprintf("%.2f", val)
	default:
		return fmt.Sprintf("%v", val)
	}
}
