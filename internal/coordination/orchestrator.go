package coordination

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/Conceptual-Machines/intprep/internal/llm"
	"github.com/Conceptual-Machines/intprep/internal/models"
)

// EventType identifies an orchestrator event
type EventType string

const (
	// EventAttemptStarted fires before a candidate is called. Not shown to users.
	EventAttemptStarted EventType = "attempt_started"
	// EventModelSelected fires on the first fragment from a candidate
	EventModelSelected EventType = "model_selected"
	// EventTextDelta carries one fragment
	EventTextDelta EventType = "text_delta"
	// EventAttemptFailed fires when a candidate errors; its partial text is discarded
	EventAttemptFailed EventType = "attempt_failed"
	// EventAttemptSucceeded fires when a candidate's stream ends cleanly
	EventAttemptSucceeded EventType = "attempt_succeeded"
	// EventAttemptCancelled fires when the caller's context ends mid-attempt.
	// The candidate is not blamed and no further candidates are tried.
	EventAttemptCancelled EventType = "attempt_cancelled"
)

// Event is emitted synchronously while candidates are tried
type Event struct {
	Type     EventType
	Attempt  int // zero-based index into the candidate list
	Model    string
	Text     string // fragment for text_delta, accumulated text for attempt end events
	Err      error
	Duration time.Duration
}

// Emitter receives orchestrator events
type Emitter func(Event)

// Params are the sampling parameters shared by every attempt
type Params struct {
	Temperature float64
	MaxTokens   int
}

// Result is the outcome of a successful walk
type Result struct {
	Model           string
	Text            string
	AttemptedModels []string
}

// ExhaustedError is returned when no candidate produced a complete stream
type ExhaustedError struct {
	LastErr         error
	AttemptedModels []string
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("all %d candidate models failed: %v", len(e.AttemptedModels), e.LastErr)
}

func (e *ExhaustedError) Unwrap() error {
	return e.LastErr
}

// Orchestrator tries candidate models in order and returns the first
// stream that completes without error. Attempts never overlap.
type Orchestrator struct {
	client     llm.CompletionClient
	candidates []string
	params     Params
}

// NewOrchestrator creates an orchestrator over a fixed candidate list
func NewOrchestrator(client llm.CompletionClient, candidates []string, params Params) *Orchestrator {
	return &Orchestrator{
		client:     client,
		candidates: append([]string(nil), candidates...),
		params:     params,
	}
}

// Candidates returns a copy of the candidate list
func (o *Orchestrator) Candidates() []string {
	return append([]string(nil), o.candidates...)
}

// session is the state of the attempt currently streaming
type session struct {
	model    string
	text     strings.Builder
	selected bool
}

// Generate walks the candidate list. On success it returns the winning model
// and its full text; otherwise an *ExhaustedError wrapping the last failure.
// A stream that ends without error counts as success even if it was empty.
func (o *Orchestrator) Generate(ctx context.Context, prompts models.PromptPair, emit Emitter) (*Result, error) {
	if emit == nil {
		emit = func(Event) {}
	}

	if len(o.candidates) == 0 {
		log.Printf("❌ No candidate models configured")
		return nil, &ExhaustedError{LastErr: llm.ErrConfiguration, AttemptedModels: []string{}}
	}

	attempted := make([]string, 0, len(o.candidates))
	var lastErr error

	for i, model := range o.candidates {
		if err := ctx.Err(); err != nil {
			lastErr = err
			break
		}

		attempted = append(attempted, model)
		start := time.Now()
		emit(Event{Type: EventAttemptStarted, Attempt: i, Model: model})
		log.Printf("🔄 Trying model %d/%d: %s", i+1, len(o.candidates), model)

		text, err := o.attempt(ctx, i, model, prompts, emit)
		duration := time.Since(start)
		if err == nil {
			if text == "" {
				log.Printf("⚠️  Model %s returned an empty stream; accepting it as success", model)
			}
			log.Printf("✅ Model %s completed in %v (%d chars)", model, duration, len(text))
			emit(Event{Type: EventAttemptSucceeded, Attempt: i, Model: model, Text: text, Duration: duration})
			return &Result{Model: model, Text: text, AttemptedModels: attempted}, nil
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			lastErr = ctxErr
			log.Printf("🛑 Model %s cancelled after %v: %v", model, duration, ctxErr)
			emit(Event{Type: EventAttemptCancelled, Attempt: i, Model: model, Text: text, Err: ctxErr, Duration: duration})
			break
		}

		lastErr = err
		log.Printf("⚠️  Model %s failed after %v: %v", model, duration, err)
		emit(Event{Type: EventAttemptFailed, Attempt: i, Model: model, Text: text, Err: err, Duration: duration})
	}

	return nil, &ExhaustedError{LastErr: lastErr, AttemptedModels: attempted}
}

// attempt streams one candidate. The returned text is the partial output
// when err is non-nil.
func (o *Orchestrator) attempt(
	ctx context.Context, index int, model string, prompts models.PromptPair, emit Emitter,
) (string, error) {
	s := &session{model: model}
	request := &llm.CompletionRequest{
		Model:        model,
		SystemPrompt: prompts.SystemPrompt,
		UserPrompt:   prompts.UserPrompt,
		Temperature:  o.params.Temperature,
		MaxTokens:    o.params.MaxTokens,
	}

	for fragment, err := range o.client.StreamCompletion(ctx, request) {
		if err != nil {
			return s.text.String(), err
		}
		if !s.selected {
			s.selected = true
			emit(Event{Type: EventModelSelected, Attempt: index, Model: model})
		}
		s.text.WriteString(fragment)
		emit(Event{Type: EventTextDelta, Attempt: index, Model: model, Text: fragment})
	}
	return s.text.String(), nil
}

// IsCancelled reports whether err means the caller went away before any
// candidate finished
func IsCancelled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// IsConfigurationError reports whether err means no candidates were configured
func IsConfigurationError(err error) bool {
	return errors.Is(err, llm.ErrConfiguration)
}
