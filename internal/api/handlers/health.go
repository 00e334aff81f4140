package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type HealthHandler struct {
	candidates []string
}

func NewHealthHandler(candidates []string) *HealthHandler {
	return &HealthHandler{candidates: candidates}
}

// HealthCheck returns the health status of the API.
// It does not call Groq; an empty candidate list is reported as degraded.
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	status := "healthy"
	if len(h.candidates) == 0 {
		status = "degraded"
	}

	c.JSON(http.StatusOK, gin.H{
		"status": status,
		"models": gin.H{
			"count": len(h.candidates),
		},
	})
}
