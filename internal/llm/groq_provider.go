package llm

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log"
	"net/http"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

const (
	providerNameGroq = "groq"

	// Logging limits
	maxLogChunkCount = 5
)

// GroqProvider streams chat completions from Groq's OpenAI-compatible endpoint
type GroqProvider struct {
	baseURL     string
	credentials CredentialSource
	httpClient  *http.Client
}

// GroqOption configures a GroqProvider
type GroqOption func(*GroqProvider)

// WithHTTPClient sets the HTTP client used for API calls
func WithHTTPClient(client *http.Client) GroqOption {
	return func(p *GroqProvider) { p.httpClient = client }
}

// NewGroqProvider creates a provider that resolves its API key from credentials on every call
func NewGroqProvider(baseURL string, credentials CredentialSource, opts ...GroqOption) *GroqProvider {
	p := &GroqProvider{
		baseURL:     baseURL,
		credentials: credentials,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name returns the provider name
func (p *GroqProvider) Name() string {
	return providerNameGroq
}

// StreamCompletion issues one streaming chat completion request.
// No request is made when the API key cannot be resolved.
func (p *GroqProvider) StreamCompletion(ctx context.Context, request *CompletionRequest) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		apiKey, err := p.credentials.Resolve()
		if err != nil {
			yield("", fmt.Errorf("%w: %w", ErrCredentialMissing, err))
			return
		}

		startTime := time.Now()
		log.Printf("🎯 GROQ STREAM STARTED (Model: %s)", request.Model)

		transaction := sentry.StartTransaction(ctx, "groq.stream_completion")
		defer transaction.Finish()
		transaction.SetTag("model", request.Model)
		transaction.SetTag("provider", providerNameGroq)

		client := p.newClient(apiKey)
		stream := client.Chat.Completions.NewStreaming(transaction.Context(), p.buildParams(request))
		defer stream.Close()

		chunkCount := 0
		charCount := 0
		for stream.Next() {
			chunk := stream.Current()
			for _, choice := range chunk.Choices {
				if choice.Delta.Content == "" {
					continue
				}
				chunkCount++
				charCount += len(choice.Delta.Content)
				if chunkCount <= maxLogChunkCount {
					log.Printf("✅ Groq chunk #%d: +%d chars (total: %d)", chunkCount, len(choice.Delta.Content), charCount)
				}
				if !yield(choice.Delta.Content, nil) {
					transaction.SetTag("success", "abandoned")
					return
				}
			}
		}

		if err := stream.Err(); err != nil {
			transaction.SetTag("success", "false")
			transaction.Status = sentry.SpanStatusInternalError
			log.Printf("❌ GROQ STREAM FAILED (Model: %s) after %v: %v", request.Model, time.Since(startTime), err)
			yield("", &UpstreamError{Model: request.Model, Err: err})
			return
		}

		transaction.SetTag("success", "true")
		transaction.SetData("chunks", chunkCount)
		log.Printf("✅ GROQ STREAM COMPLETED (Model: %s) in %v, %d chunks, %d chars",
			request.Model, time.Since(startTime), chunkCount, charCount)
	}
}

func (p *GroqProvider) newClient(apiKey string) openai.Client {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithBaseURL(p.baseURL),
		option.WithMaxRetries(0),
	}
	if p.httpClient != nil {
		opts = append(opts, option.WithHTTPClient(p.httpClient))
	}
	return openai.NewClient(opts...)
}

func (p *GroqProvider) buildParams(request *CompletionRequest) openai.ChatCompletionNewParams {
	return openai.ChatCompletionNewParams{
		Model: shared.ChatModel(request.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(request.SystemPrompt),
			openai.UserMessage(request.UserPrompt),
		},
		Temperature: openai.Float(request.Temperature),
		MaxTokens:   openai.Int(int64(request.MaxTokens)),
	}
}

// IsCredentialError reports whether err came from credential resolution
func IsCredentialError(err error) bool {
	return errors.Is(err, ErrCredentialMissing)
}
