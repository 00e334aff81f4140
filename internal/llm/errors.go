package llm

import (
	"errors"
	"fmt"

	"github.com/openai/openai-go"
)

var (
	// ErrConfiguration is returned when there are no candidate models to try
	ErrConfiguration = errors.New("no candidate models configured")

	// ErrCredentialMissing is returned when no API key could be resolved
	ErrCredentialMissing = errors.New("groq API key is missing")
)

// UpstreamError wraps a failure reported by the completion API or the transport
type UpstreamError struct {
	Model string
	Err   error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("model %s: %v", e.Model, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// StatusCode returns the HTTP status of the API error, or 0 for transport errors
func (e *UpstreamError) StatusCode() int {
	var apiErr *openai.Error
	if errors.As(e.Err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}
