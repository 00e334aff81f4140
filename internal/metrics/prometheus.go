package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Prometheus exposes generation metrics for scraping
type Prometheus struct {
	attempts        *prometheus.CounterVec
	attemptDuration *prometheus.HistogramVec
	generations     *prometheus.HistogramVec
}

// NewPrometheus creates the collectors and registers them with reg
func NewPrometheus(reg prometheus.Registerer) *Prometheus {
	p := &Prometheus{
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "intprep",
			Name:      "model_attempts_total",
			Help:      "Candidate model attempts by outcome.",
		}, []string{"model", "outcome"}),
		attemptDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "intprep",
			Name:      "model_attempt_duration_seconds",
			Help:      "Time spent streaming from one candidate model.",
			Buckets:   prometheus.ExponentialBuckets(0.25, 2, 8),
		}, []string{"model"}),
		generations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "intprep",
			Name:      "generation_duration_seconds",
			Help:      "End-to-end generation time across all attempts.",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 8),
		}, []string{"outcome"}),
	}
	reg.MustRegister(p.attempts, p.attemptDuration, p.generations)
	return p
}

func (p *Prometheus) RecordAttempt(_ context.Context, model string, success bool, duration time.Duration) {
	p.attempts.WithLabelValues(model, outcomeLabel(success)).Inc()
	p.attemptDuration.WithLabelValues(model).Observe(duration.Seconds())
}

func (p *Prometheus) RecordGenerationDuration(_ context.Context, duration time.Duration, success bool) {
	p.generations.WithLabelValues(outcomeLabel(success)).Observe(duration.Seconds())
}

func outcomeLabel(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}
