package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/Conceptual-Machines/intprep/internal/llm"
	"github.com/Conceptual-Machines/intprep/internal/logger"
	"github.com/Conceptual-Machines/intprep/internal/models"
	"github.com/gin-gonic/gin"
)

// Generator is the service behind the generation endpoints
type Generator interface {
	Generate(ctx context.Context, req *models.GenerationRequest, callback llm.StreamCallback) (*models.GenerationOutcome, error)
	Candidates() []string
}

type GenerationHandler struct {
	service Generator
}

func NewGenerationHandler(service Generator) *GenerationHandler {
	return &GenerationHandler{service: service}
}

// Generate streams interview questions as server-sent events
func (h *GenerationHandler) Generate(c *gin.Context) {
	var req models.GenerationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	fields := logger.WithContext(c)
	fields["role"] = req.Role
	fields["question_count"] = req.QuestionCount
	logger.Info("Generation requested", fields)

	// Set SSE headers
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	writeEvent(c, llm.StreamEvent{
		Type:    llm.EventStarted,
		Message: "Finding a supported model and generating...",
	})

	outcome, err := h.service.Generate(c.Request.Context(), &req, func(event llm.StreamEvent) error {
		writeEvent(c, event)
		return nil
	})
	if err != nil {
		writeEvent(c, llm.StreamEvent{Type: llm.EventError, Message: err.Error()})
		return
	}

	if outcome.Succeeded() {
		writeEvent(c, llm.StreamEvent{
			Type:    llm.EventCompleted,
			Message: "Generation complete",
			Data: map[string]interface{}{
				"model":            outcome.UsedModel,
				"html":             outcome.HTML,
				"chars":            len(outcome.FullText),
				"attempted_models": outcome.AttemptedModels,
				"duration_ms":      outcome.DurationMS,
			},
		})
	} else {
		writeEvent(c, llm.StreamEvent{
			Type:    llm.EventError,
			Message: outcome.Error,
			Data: map[string]interface{}{
				"attempted_models": outcome.AttemptedModels,
			},
		})
	}

	writeEvent(c, llm.StreamEvent{
		Type:    llm.EventDone,
		Message: "Stream complete",
		Data: map[string]interface{}{
			"request_id": c.GetString("request_id"),
		},
	})
}

// ListModels returns the candidate models in trial order
func (h *GenerationHandler) ListModels(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"models": h.service.Candidates()})
}

func writeEvent(c *gin.Context, event llm.StreamEvent) {
	eventJSON, err := json.Marshal(event)
	if err != nil {
		log.Printf("❌ Failed to marshal stream event: %v", err)
		return
	}
	_, _ = fmt.Fprintf(c.Writer, "data: %s\n\n", eventJSON)
	c.Writer.Flush()
}
