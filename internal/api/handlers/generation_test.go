package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Conceptual-Machines/intprep/internal/llm"
	"github.com/Conceptual-Machines/intprep/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockGenerator replays events and returns a fixed outcome
type MockGenerator struct {
	events  []llm.StreamEvent
	outcome *models.GenerationOutcome
	err     error
	got     *models.GenerationRequest
}

func (m *MockGenerator) Generate(
	_ context.Context, req *models.GenerationRequest, callback llm.StreamCallback,
) (*models.GenerationOutcome, error) {
	m.got = req
	for _, e := range m.events {
		_ = callback(e)
	}
	return m.outcome, m.err
}

func (m *MockGenerator) Candidates() []string {
	return []string{"model-a", "model-b"}
}

func parseSSE(t *testing.T, body string) []llm.StreamEvent {
	t.Helper()
	var events []llm.StreamEvent
	for _, frame := range strings.Split(strings.TrimSpace(body), "\n\n") {
		require.True(t, strings.HasPrefix(frame, "data: "), "unexpected frame %q", frame)
		var e llm.StreamEvent
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(frame, "data: ")), &e))
		events = append(events, e)
	}
	return events
}

func types(events []llm.StreamEvent) []string {
	out := make([]string, len(events))
	for i, e := range events {
		out[i] = e.Type
	}
	return out
}

func newTestRouter(gen Generator) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	h := NewGenerationHandler(gen)
	router.POST("/api/v1/generations", h.Generate)
	router.GET("/api/v1/models", h.ListModels)
	return router
}

func postJSON(router *gin.Engine, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/generations", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	return w
}

const validBody = `{"role":"Backend Engineer","seniority":"Mid","domain":"Go","question_count":5,` +
	`"difficulty":"Hard","styles":["Coding"],"include_rubrics":true}`

func TestGenerateStreamsSuccess(t *testing.T) {
	gen := &MockGenerator{
		events: []llm.StreamEvent{
			{Type: llm.EventModel, Message: "model-b"},
			{Type: llm.EventTextDelta, Message: "1. "},
			{Type: llm.EventTextDelta, Message: "Design a rate limiter..."},
		},
		outcome: &models.GenerationOutcome{
			Status:          models.OutcomeSucceeded,
			UsedModel:       "model-b",
			FullText:        "1. Design a rate limiter...",
			HTML:            "<ol><li>Design a rate limiter...</li></ol>",
			AttemptedModels: []string{"model-a", "model-b"},
		},
	}

	w := postJSON(newTestRouter(gen), validBody)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))

	events := parseSSE(t, w.Body.String())
	assert.Equal(t, []string{"started", "model", "text_delta", "text_delta", "completed", "done"}, types(events))
	assert.Equal(t, "model-b", events[4].Data["model"])
	assert.Equal(t, "<ol><li>Design a rate limiter...</li></ol>", events[4].Data["html"])
	assert.EqualValues(t, len("1. Design a rate limiter..."), events[4].Data["chars"])

	require.NotNil(t, gen.got)
	assert.Equal(t, models.SeniorityMid, gen.got.Seniority)
	assert.Equal(t, []models.Style{models.StyleCoding}, gen.got.Styles)
	assert.True(t, gen.got.IncludeRubrics)
}

func TestGenerateStreamsEmptySuccess(t *testing.T) {
	gen := &MockGenerator{
		outcome: &models.GenerationOutcome{
			Status:          models.OutcomeSucceeded,
			UsedModel:       "model-a",
			AttemptedModels: []string{"model-a"},
		},
	}

	w := postJSON(newTestRouter(gen), validBody)

	events := parseSSE(t, w.Body.String())
	assert.Equal(t, []string{"started", "completed", "done"}, types(events))
	assert.Equal(t, "model-a", events[1].Data["model"])
	assert.EqualValues(t, 0, events[1].Data["chars"])
}

func TestGenerateStreamsExhausted(t *testing.T) {
	gen := &MockGenerator{
		outcome: &models.GenerationOutcome{
			Status:          models.OutcomeExhausted,
			Error:           "All tried models failed or are unsupported.",
			AttemptedModels: []string{"model-a", "model-b"},
		},
	}

	w := postJSON(newTestRouter(gen), validBody)

	events := parseSSE(t, w.Body.String())
	assert.Equal(t, []string{"started", "error", "done"}, types(events))
	assert.Equal(t, "All tried models failed or are unsupported.", events[1].Message)
}

func TestGenerateRejectsBadRequests(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{name: "malformed json", body: `{"role":`, wantErr: "invalid request body"},
		{name: "missing role", body: `{"role":"","seniority":"Mid","question_count":5,"difficulty":"Hard"}`, wantErr: "Please enter a role to continue."},
		{name: "count out of range", body: `{"role":"QA","seniority":"Mid","question_count":40,"difficulty":"Hard"}`, wantErr: "question_count must be between 3 and 15"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := &MockGenerator{}
			w := postJSON(newTestRouter(gen), tt.body)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			var resp map[string]string
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Contains(t, resp["error"], tt.wantErr)
			assert.Nil(t, gen.got)
		})
	}
}

func TestListModels(t *testing.T) {
	w := httptest.NewRecorder()
	newTestRouter(&MockGenerator{}).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/models", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"models":["model-a","model-b"]}`, w.Body.String())
}

func TestHealthCheck(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name       string
		candidates []string
		want       string
	}{
		{name: "configured", candidates: []string{"m"}, want: "healthy"},
		{name: "no candidates", candidates: nil, want: "degraded"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			router.GET("/health", NewHealthHandler(tt.candidates).HealthCheck)

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

			var resp map[string]interface{}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.want, resp["status"])
		})
	}
}
