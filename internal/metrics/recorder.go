package metrics

import (
	"context"
	"time"
)

// Recorder receives generation metrics
type Recorder interface {
	// RecordAttempt records one candidate model attempt
	RecordAttempt(ctx context.Context, model string, success bool, duration time.Duration)
	// RecordGenerationDuration records a whole generation across all attempts
	RecordGenerationDuration(ctx context.Context, duration time.Duration, success bool)
}

// Multi fans out to several recorders
type Multi []Recorder

func (m Multi) RecordAttempt(ctx context.Context, model string, success bool, duration time.Duration) {
	for _, r := range m {
		r.RecordAttempt(ctx, model, success, duration)
	}
}

func (m Multi) RecordGenerationDuration(ctx context.Context, duration time.Duration, success bool) {
	for _, r := range m {
		r.RecordGenerationDuration(ctx, duration, success)
	}
}

// Nop discards all metrics
type Nop struct{}

func (Nop) RecordAttempt(context.Context, string, bool, time.Duration) {}

func (Nop) RecordGenerationDuration(context.Context, time.Duration, bool) {}
