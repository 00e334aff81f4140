package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/Conceptual-Machines/intprep/internal/coordination"
	"github.com/Conceptual-Machines/intprep/internal/llm"
	"github.com/Conceptual-Machines/intprep/internal/logger"
	"github.com/Conceptual-Machines/intprep/internal/metrics"
	"github.com/Conceptual-Machines/intprep/internal/models"
	"github.com/Conceptual-Machines/intprep/internal/observability"
	"github.com/Conceptual-Machines/intprep/internal/prompt"
	"github.com/getsentry/sentry-go"
)

const (
	exhaustedMessage = "All tried models failed or are unsupported. " +
		"Please update the internal model list or check the Groq model docs (https://console.groq.com/docs/models)."
	noModelWorkedMessage = "No supported model worked."
)

// GenerationService runs one interview-prep generation end to end
type GenerationService struct {
	builder      *prompt.Builder
	orchestrator *coordination.Orchestrator
	params       LLMParameters
	recorder     metrics.Recorder
	tracer       *observability.Tracer
	renderer     *MarkdownRenderer
}

// ServiceOption configures a GenerationService
type ServiceOption func(*GenerationService)

// WithPromptBuilder replaces the builder over the compiled-in prompts
func WithPromptBuilder(builder *prompt.Builder) ServiceOption {
	return func(s *GenerationService) { s.builder = builder }
}

// NewGenerationService wires the prompt builder and orchestrator
func NewGenerationService(
	client llm.CompletionClient,
	candidates []string,
	params LLMParameters,
	recorder metrics.Recorder,
	tracer *observability.Tracer,
	opts ...ServiceOption,
) *GenerationService {
	if recorder == nil {
		recorder = metrics.Nop{}
	}
	s := &GenerationService{
		orchestrator: coordination.NewOrchestrator(client, candidates, params.OrchestratorParams()),
		params:       params,
		recorder:     recorder,
		tracer:       tracer,
		renderer:     NewMarkdownRenderer(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.builder == nil {
		s.builder = prompt.NewPromptBuilder()
	}
	return s
}

// Candidates returns the configured model order
func (s *GenerationService) Candidates() []string {
	return s.orchestrator.Candidates()
}

// Generate validates the request and streams a generation through callback.
// The error is non-nil only for an invalid request; model failures are
// reported in the returned outcome.
func (s *GenerationService) Generate(
	ctx context.Context, req *models.GenerationRequest, callback llm.StreamCallback,
) (*models.GenerationOutcome, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if callback == nil {
		callback = func(llm.StreamEvent) error { return nil }
	}

	startTime := time.Now()
	prompts := s.builder.Build(req)

	trace := s.tracer.StartGeneration(ctx, "interview-prep", map[string]interface{}{
		"role":           req.Role,
		"seniority":      req.Seniority,
		"question_count": req.QuestionCount,
		"difficulty":     req.Difficulty,
	})
	defer trace.End()

	log.Printf("🚀 Generation started (role: %s, questions: %d, candidates: %d)",
		req.Role, req.QuestionCount, len(s.orchestrator.Candidates()))

	var attempt *observability.Attempt
	emit := func(e coordination.Event) {
		switch e.Type {
		case coordination.EventAttemptStarted:
			attempt = trace.StartAttempt(e.Model, e.Attempt, s.params.AsMap(), prompts)
		case coordination.EventModelSelected:
			_ = callback(llm.StreamEvent{
				Type:    llm.EventModel,
				Message: e.Model,
				Data:    map[string]interface{}{"model": e.Model, "attempt": e.Attempt},
			})
		case coordination.EventTextDelta:
			_ = callback(llm.StreamEvent{Type: llm.EventTextDelta, Message: e.Text})
		case coordination.EventAttemptFailed:
			s.recorder.RecordAttempt(ctx, e.Model, false, e.Duration)
			attempt.Fail(e.Text, e.Err)
			logger.Warn("Model attempt failed", logger.Fields{
				"model":       e.Model,
				"attempt":     e.Attempt,
				"duration_ms": e.Duration.Milliseconds(),
				"error":       e.Err.Error(),
			})
			_ = callback(llm.StreamEvent{
				Type:    llm.EventAttemptFailed,
				Message: e.Err.Error(),
				Data: map[string]interface{}{
					"model":           e.Model,
					"attempt":         e.Attempt,
					"discarded_chars": len(e.Text),
				},
			})
		case coordination.EventAttemptSucceeded:
			s.recorder.RecordAttempt(ctx, e.Model, true, e.Duration)
			attempt.Succeed(e.Text)
		case coordination.EventAttemptCancelled:
			attempt.Fail(e.Text, e.Err)
		}
	}

	result, err := s.orchestrator.Generate(ctx, prompts, emit)
	duration := time.Since(startTime)

	if coordination.IsCancelled(err) {
		return s.cancelledOutcome(err, duration), nil
	}
	s.recorder.RecordGenerationDuration(ctx, duration, err == nil)
	if err != nil {
		return s.exhaustedOutcome(err, duration), nil
	}

	outcome := &models.GenerationOutcome{
		Status:          models.OutcomeSucceeded,
		UsedModel:       result.Model,
		FullText:        result.Text,
		AttemptedModels: result.AttemptedModels,
		DurationMS:      duration.Milliseconds(),
	}
	if html, renderErr := s.renderer.Render(result.Text); renderErr != nil {
		logger.Warn("Falling back to plain text output", logger.Fields{"error": renderErr.Error()})
	} else {
		outcome.HTML = html
	}

	logger.LogGeneration(ctx, result.Model, duration, len(result.AttemptedModels), logger.Fields{
		"trace_id": trace.ID(),
		"chars":    len(result.Text),
	})
	return outcome, nil
}

func (s *GenerationService) exhaustedOutcome(err error, duration time.Duration) *models.GenerationOutcome {
	outcome := &models.GenerationOutcome{
		Status:          models.OutcomeExhausted,
		AttemptedModels: []string{},
		DurationMS:      duration.Milliseconds(),
	}

	var exhausted *coordination.ExhaustedError
	if errors.As(err, &exhausted) {
		outcome.AttemptedModels = exhausted.AttemptedModels
		err = exhausted.LastErr
	}
	outcome.Error = ExhaustedMessage(err)

	logger.Error("All candidate models failed", err, logger.Fields{
		"attempted_models": outcome.AttemptedModels,
		"duration_ms":      duration.Milliseconds(),
	})
	logger.LogToSentry(sentry.LevelWarning, "Model candidate list exhausted", logger.Fields{
		"attempted_models": outcome.AttemptedModels,
	})
	return outcome
}

// cancelledOutcome reports a generation abandoned by the caller. Nothing is
// recorded against the models and nothing is sent to Sentry.
func (s *GenerationService) cancelledOutcome(err error, duration time.Duration) *models.GenerationOutcome {
	outcome := &models.GenerationOutcome{
		Status:          models.OutcomeExhausted,
		AttemptedModels: []string{},
		DurationMS:      duration.Milliseconds(),
	}
	var exhausted *coordination.ExhaustedError
	if errors.As(err, &exhausted) {
		outcome.AttemptedModels = exhausted.AttemptedModels
		err = exhausted.LastErr
	}
	outcome.Error = ExhaustedMessage(err)

	logger.Info("Generation cancelled by client", logger.Fields{
		"attempted_models": outcome.AttemptedModels,
		"duration_ms":      duration.Milliseconds(),
	})
	return outcome
}

// ExhaustedMessage is the user-facing text shown when no model worked
func ExhaustedMessage(lastErr error) string {
	if lastErr == nil {
		return noModelWorkedMessage
	}
	return fmt.Sprintf("%s\n\nLast error: %v", exhaustedMessage, lastErr)
}
