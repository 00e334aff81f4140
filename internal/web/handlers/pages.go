package handlers

import (
	"net/http"

	"github.com/Conceptual-Machines/intprep/internal/models"
	"github.com/Conceptual-Machines/intprep/internal/web/templates"
	"github.com/gin-gonic/gin"
)

type WebHandler struct {
	candidates []string
	version    string
}

func NewWebHandler(candidates []string, version string) *WebHandler {
	return &WebHandler{
		candidates: candidates,
		version:    version,
	}
}

// Home renders the interview preparation form
func (h *WebHandler) Home(c *gin.Context) {
	data := templates.FormData{
		Defaults:   models.NewGenerationRequest(c.Query("role")),
		Candidates: h.candidates,
		Version:    h.version,
	}

	c.Header("Content-Type", "text/html; charset=utf-8")
	c.Status(http.StatusOK)
	component := templates.InterviewForm(data)
	if err := component.Render(c.Request.Context(), c.Writer); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to render template"})
	}
}
