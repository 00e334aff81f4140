package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/getsentry/sentry-go"
)

// Span operations reported to Sentry
const (
	opAPIRequest = "http.server.request"
	opAttempt    = "groq.attempt"
	opGeneration = "intprep.generation"
)

// SentryMetrics reports metrics as spans on the transaction in ctx.
// Spans are dropped by the SDK when Sentry is not initialized.
type SentryMetrics struct{}

func NewSentryMetrics() *SentryMetrics {
	return &SentryMetrics{}
}

// RecordAPIRequest records one handled HTTP request. Only 5xx responses are
// marked as errors; a rejected form is not a server failure.
func (m *SentryMetrics) RecordAPIRequest(ctx context.Context, route string, statusCode int, duration time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	status := sentry.SpanStatusOK
	switch {
	case statusCode >= http.StatusInternalServerError:
		status = sentry.SpanStatusInternalError
	case statusCode >= http.StatusBadRequest:
		status = sentry.SpanStatusInvalidArgument
	}

	record(ctx, opAPIRequest, route, status, duration, map[string]string{
		"route":       route,
		"status_code": strconv.Itoa(statusCode),
	})
}

// RecordAttempt records one candidate model attempt. The winning model is
// also tagged on the enclosing transaction.
func (m *SentryMetrics) RecordAttempt(ctx context.Context, model string, success bool, duration time.Duration) {
	status := sentry.SpanStatusUnavailable
	if success {
		status = sentry.SpanStatusOK
		if tx := sentry.TransactionFromContext(ctx); tx != nil {
			tx.SetTag("groq.model", model)
		}
	}
	record(ctx, opAttempt, model, status, duration, map[string]string{
		"model":   model,
		"success": strconv.FormatBool(success),
	})
}

func (m *SentryMetrics) RecordGenerationDuration(ctx context.Context, duration time.Duration, success bool) {
	status := sentry.SpanStatusOK
	description := "succeeded"
	if !success {
		status = sentry.SpanStatusInternalError
		description = "exhausted"
	}
	record(ctx, opGeneration, description, status, duration, map[string]string{
		"success": strconv.FormatBool(success),
	})
}

// record emits a finished span that started duration ago
func record(
	ctx context.Context, op, description string, status sentry.SpanStatus, duration time.Duration, tags map[string]string,
) {
	span := sentry.StartSpan(ctx, op)
	span.StartTime = time.Now().Add(-duration)
	span.Description = description
	span.Status = status
	for k, v := range tags {
		span.SetTag(k, v)
	}
	span.SetData("duration_ms", duration.Milliseconds())
	span.Finish()
}
