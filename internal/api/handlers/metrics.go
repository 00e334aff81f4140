package handlers

import (
	"net/http"
	"runtime"
	"time"

	"github.com/Conceptual-Machines/intprep/internal/logger"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	attemptsMetricName = "intprep_model_attempts_total"
	bytesPerMB         = 1 << 20
)

// MetricsHandler serves a JSON summary of process health and per-model
// attempt counts taken from the Prometheus registry.
type MetricsHandler struct {
	startTime  time.Time
	version    string
	candidates []string
	gatherer   prometheus.Gatherer
}

func NewMetricsHandler(version string, candidates []string, gatherer prometheus.Gatherer) *MetricsHandler {
	return &MetricsHandler{
		startTime:  time.Now(),
		version:    version,
		candidates: candidates,
		gatherer:   gatherer,
	}
}

type MetricsResponse struct {
	Status  string         `json:"status"`
	Version string         `json:"version"`
	Uptime  string         `json:"uptime"`
	Runtime RuntimeMetrics `json:"runtime"`
	Models  []ModelStats   `json:"models"`
	API     gin.H          `json:"api"`
}

type RuntimeMetrics struct {
	GoVersion    string `json:"go_version"`
	NumGoroutine int    `json:"num_goroutine"`
	HeapAllocMB  uint64 `json:"heap_alloc_mb"`
	NumGC        uint32 `json:"num_gc"`
}

// ModelStats counts attempts for one candidate since process start
type ModelStats struct {
	Model     string `json:"model"`
	Position  int    `json:"position"`
	Successes int    `json:"successes"`
	Failures  int    `json:"failures"`
}

func (h *MetricsHandler) GetMetrics(c *gin.Context) {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	c.JSON(http.StatusOK, MetricsResponse{
		Status:  "healthy",
		Version: h.version,
		Uptime:  time.Since(h.startTime).Round(time.Second).String(),
		Runtime: RuntimeMetrics{
			GoVersion:    runtime.Version(),
			NumGoroutine: runtime.NumGoroutine(),
			HeapAllocMB:  mem.HeapAlloc / bytesPerMB,
			NumGC:        mem.NumGC,
		},
		Models: h.modelStats(),
		API:    gin.H{"version": "v1", "provider": "groq"},
	})
}

// modelStats lists candidates in trial order. Counts stay zero when the
// registry has no attempt counter.
func (h *MetricsHandler) modelStats() []ModelStats {
	stats := make([]ModelStats, len(h.candidates))
	index := make(map[string]int, len(h.candidates))
	for i, m := range h.candidates {
		stats[i] = ModelStats{Model: m, Position: i + 1}
		index[m] = i
	}
	if h.gatherer == nil {
		return stats
	}

	families, err := h.gatherer.Gather()
	if err != nil {
		logger.Warn("Failed to gather metrics", logger.Fields{"error": err.Error()})
		return stats
	}
	for _, family := range families {
		if family.GetName() != attemptsMetricName {
			continue
		}
		for _, metric := range family.GetMetric() {
			var model, outcome string
			for _, label := range metric.GetLabel() {
				switch label.GetName() {
				case "model":
					model = label.GetValue()
				case "outcome":
					outcome = label.GetValue()
				}
			}
			i, ok := index[model]
			if !ok {
				continue
			}
			count := int(metric.GetCounter().GetValue())
			if outcome == "success" {
				stats[i].Successes += count
			} else {
				stats[i].Failures += count
			}
		}
	}
	return stats
}
