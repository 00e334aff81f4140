package services

import (
	"context"
	"errors"
	"iter"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Conceptual-Machines/intprep/internal/config"
	"github.com/Conceptual-Machines/intprep/internal/llm"
	"github.com/Conceptual-Machines/intprep/internal/models"
	"github.com/Conceptual-Machines/intprep/internal/prompt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockClient streams canned responses keyed by model
type MockClient struct {
	responses map[string][]string
	failures  map[string]error
	calls     []string
	lastReq   *llm.CompletionRequest
}

func (m *MockClient) StreamCompletion(_ context.Context, request *llm.CompletionRequest) iter.Seq2[string, error] {
	m.calls = append(m.calls, request.Model)
	m.lastReq = request
	return func(yield func(string, error) bool) {
		for _, fragment := range m.responses[request.Model] {
			if !yield(fragment, nil) {
				return
			}
		}
		if err := m.failures[request.Model]; err != nil {
			yield("", err)
		}
	}
}

type spyRecorder struct {
	attempts    map[string]bool
	generations []bool
}

func (s *spyRecorder) RecordAttempt(_ context.Context, model string, success bool, _ time.Duration) {
	if s.attempts == nil {
		s.attempts = map[string]bool{}
	}
	s.attempts[model] = success
}

func (s *spyRecorder) RecordGenerationDuration(_ context.Context, _ time.Duration, success bool) {
	s.generations = append(s.generations, success)
}

func collectEvents(events *[]llm.StreamEvent) llm.StreamCallback {
	return func(e llm.StreamEvent) error {
		*events = append(*events, e)
		return nil
	}
}

func eventTypes(events []llm.StreamEvent) []string {
	types := make([]string, len(events))
	for i, e := range events {
		types[i] = e.Type
	}
	return types
}

func TestGenerateSucceedsAfterFallback(t *testing.T) {
	client := &MockClient{
		responses: map[string][]string{
			"model-a": {"half an ans"},
			"model-b": {"1. ", "Design a rate limiter...", "\n2. ..."},
		},
		failures: map[string]error{
			"model-a": &llm.UpstreamError{Model: "model-a", Err: errors.New("unsupported model")},
		},
	}
	recorder := &spyRecorder{}
	svc := NewGenerationService(client, []string{"model-a", "model-b"}, LLMParameters{Temperature: 0.4, MaxTokens: 1200}, recorder, nil)

	var events []llm.StreamEvent
	outcome, err := svc.Generate(context.Background(), models.NewGenerationRequest("Backend Engineer"), collectEvents(&events))
	require.NoError(t, err)

	assert.True(t, outcome.Succeeded())
	assert.Equal(t, "model-b", outcome.UsedModel)
	assert.Equal(t, "1. Design a rate limiter...\n2. ...", outcome.FullText)
	assert.Equal(t, []string{"model-a", "model-b"}, outcome.AttemptedModels)
	assert.Contains(t, outcome.HTML, "<ol>")

	assert.Equal(t, []string{
		llm.EventModel, llm.EventTextDelta, llm.EventAttemptFailed,
		llm.EventModel, llm.EventTextDelta, llm.EventTextDelta, llm.EventTextDelta,
	}, eventTypes(events))
	assert.Equal(t, "model-b", events[3].Message)
	assert.Equal(t, len("half an ans"), events[2].Data["discarded_chars"])

	assert.Equal(t, map[string]bool{"model-a": false, "model-b": true}, recorder.attempts)
	assert.Equal(t, []bool{true}, recorder.generations)

	assert.Contains(t, client.lastReq.UserPrompt, "Role: Backend Engineer")
	assert.Contains(t, client.lastReq.SystemPrompt, "expert technical interviewer")
	assert.Equal(t, 1200, client.lastReq.MaxTokens)
}

func TestGenerateExhausted(t *testing.T) {
	client := &MockClient{failures: map[string]error{
		"model-x": llm.ErrCredentialMissing,
	}}
	recorder := &spyRecorder{}
	svc := NewGenerationService(client, []string{"model-x"}, GetLLMParameters(nil), recorder, nil)

	var events []llm.StreamEvent
	outcome, err := svc.Generate(context.Background(), models.NewGenerationRequest("SRE"), collectEvents(&events))
	require.NoError(t, err)

	assert.False(t, outcome.Succeeded())
	assert.Equal(t, models.OutcomeExhausted, outcome.Status)
	assert.Equal(t, []string{"model-x"}, outcome.AttemptedModels)
	assert.Contains(t, outcome.Error, "All tried models failed or are unsupported.")
	assert.Contains(t, outcome.Error, "Last error: groq API key is missing")
	assert.Empty(t, outcome.UsedModel)
	assert.Equal(t, []string{llm.EventAttemptFailed}, eventTypes(events))
	assert.Equal(t, []bool{false}, recorder.generations)
}

// hangUpClient cancels the request after one fragment and fails the stream
type hangUpClient struct {
	cancel context.CancelFunc
	calls  []string
}

func (h *hangUpClient) StreamCompletion(ctx context.Context, request *llm.CompletionRequest) iter.Seq2[string, error] {
	h.calls = append(h.calls, request.Model)
	return func(yield func(string, error) bool) {
		if !yield("1. ", nil) {
			return
		}
		h.cancel()
		yield("", &llm.UpstreamError{Model: request.Model, Err: ctx.Err()})
	}
}

func TestGenerateClientDisconnectIsNotAModelFailure(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	client := &hangUpClient{cancel: cancel}
	recorder := &spyRecorder{}
	svc := NewGenerationService(client, []string{"model-a", "model-b"}, GetLLMParameters(nil), recorder, nil)

	var events []llm.StreamEvent
	outcome, err := svc.Generate(ctx, models.NewGenerationRequest("SRE"), collectEvents(&events))
	require.NoError(t, err)

	assert.Equal(t, models.OutcomeExhausted, outcome.Status)
	assert.Equal(t, []string{"model-a"}, outcome.AttemptedModels)
	assert.Contains(t, outcome.Error, "context canceled")
	assert.Equal(t, []string{"model-a"}, client.calls)

	assert.Equal(t, []string{llm.EventModel, llm.EventTextDelta}, eventTypes(events))
	assert.Empty(t, recorder.attempts)
	assert.Empty(t, recorder.generations)
}

func TestGenerateNoCandidates(t *testing.T) {
	client := &MockClient{}
	svc := NewGenerationService(client, []string{}, GetLLMParameters(nil), nil, nil)

	outcome, err := svc.Generate(context.Background(), models.NewGenerationRequest("SRE"), nil)
	require.NoError(t, err)

	assert.Equal(t, models.OutcomeExhausted, outcome.Status)
	assert.Empty(t, outcome.AttemptedModels)
	assert.Contains(t, outcome.Error, "no candidate models configured")
	assert.Empty(t, client.calls)
}

func TestGenerateRejectsInvalidRequest(t *testing.T) {
	client := &MockClient{}
	svc := NewGenerationService(client, []string{"m"}, GetLLMParameters(nil), nil, nil)

	outcome, err := svc.Generate(context.Background(), models.NewGenerationRequest(""), nil)
	assert.Nil(t, outcome)
	assert.ErrorIs(t, err, models.ErrRoleRequired)
	assert.Empty(t, client.calls)
}

func TestExhaustedMessage(t *testing.T) {
	assert.Equal(t, "No supported model worked.", ExhaustedMessage(nil))
	assert.Equal(t,
		"All tried models failed or are unsupported. Please update the internal model list or check the Groq model docs (https://console.groq.com/docs/models).\n\nLast error: boom",
		ExhaustedMessage(errors.New("boom")))
}

func TestGetLLMParameters(t *testing.T) {
	defaults := GetLLMParameters(nil)
	assert.Equal(t, 0.4, defaults.Temperature)
	assert.Equal(t, 1200, defaults.MaxTokens)

	cfg := &config.Config{Temperature: 0, MaxTokens: 0}
	params := GetLLMParameters(cfg)
	assert.Equal(t, 0.0, params.Temperature)
	assert.Equal(t, 1200, params.MaxTokens)

	op := LLMParameters{Temperature: 0.7, MaxTokens: 500}.OrchestratorParams()
	assert.Equal(t, 0.7, op.Temperature)
	assert.Equal(t, 500, op.MaxTokens)
	assert.Equal(t, map[string]interface{}{"temperature": 0.7, "max_tokens": 500}, LLMParameters{Temperature: 0.7, MaxTokens: 500}.AsMap())
}

func TestGenerateUsesCustomPromptBuilder(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "system_prompt.txt"), []byte("Be brief."), 0o600))
	builder, err := prompt.NewPromptBuilderFromLoader(prompt.NewPromptLoaderDir(dir))
	require.NoError(t, err)

	client := &MockClient{responses: map[string][]string{"m": {"ok"}}}
	svc := NewGenerationService(client, []string{"m"}, GetLLMParameters(nil), nil, nil, WithPromptBuilder(builder))

	outcome, err := svc.Generate(context.Background(), models.NewGenerationRequest("SRE"), nil)
	require.NoError(t, err)
	assert.True(t, outcome.Succeeded())
	require.NotNil(t, client.lastReq)
	assert.Equal(t, "Be brief.", client.lastReq.SystemPrompt)
	assert.Contains(t, client.lastReq.UserPrompt, "SRE")
}
