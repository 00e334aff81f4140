package llm

import (
	"context"
	"iter"
)

// CompletionClient streams a chat completion for one model.
//
// The returned sequence yields text fragments in arrival order. A non-nil
// error is always the last element; fragments yielded before it stay valid.
// The sequence is single-use, and breaking out of it releases the connection.
type CompletionClient interface {
	StreamCompletion(ctx context.Context, request *CompletionRequest) iter.Seq2[string, error]
}

// CompletionRequest contains all parameters needed for one streaming call
type CompletionRequest struct {
	Model        string
	SystemPrompt string
	UserPrompt   string
	Temperature  float64
	MaxTokens    int
}

// CredentialSource resolves the API key at call time
type CredentialSource interface {
	Resolve() (string, error)
}

// StreamCallback is called for each streaming event
type StreamCallback func(event StreamEvent) error

// StreamEvent represents a server-sent event during streaming
type StreamEvent struct {
	Type    string                 `json:"type"`
	Message string                 `json:"message,omitempty"`
	Data    map[string]interface{} `json:"data,omitempty"`
}

// Stream event types sent to the browser
const (
	EventStarted       = "started"
	EventModel         = "model"
	EventTextDelta     = "text_delta"
	EventAttemptFailed = "attempt_failed"
	EventCompleted     = "completed"
	EventError         = "error"
	EventDone          = "done"
)
