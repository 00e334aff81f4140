package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticCredentials struct {
	key string
	err error
}

func (s staticCredentials) Resolve() (string, error) {
	return s.key, s.err
}

func sseChunk(content string) string {
	return fmt.Sprintf(`data: {"id":"chatcmpl-1","object":"chat.completion.chunk","created":1,"model":"llama3-8b-8192","choices":[{"index":0,"delta":{"content":%q},"finish_reason":null}]}`+"\n\n", content)
}

func newGroqServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *GroqProvider) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	provider := NewGroqProvider(srv.URL+"/openai/v1/", staticCredentials{key: "gsk_test"}, WithHTTPClient(srv.Client()))
	return srv, provider
}

func collect(seq func(func(string, error) bool)) ([]string, error) {
	var fragments []string
	for fragment, err := range seq {
		if err != nil {
			return fragments, err
		}
		fragments = append(fragments, fragment)
	}
	return fragments, nil
}

func testRequest() *CompletionRequest {
	return &CompletionRequest{
		Model:        "llama3-8b-8192",
		SystemPrompt: "You are an interviewer.",
		UserPrompt:   "Role: SRE",
		Temperature:  0.4,
		MaxTokens:    1200,
	}
}

func TestGroqProviderStreamsFragments(t *testing.T) {
	var captured map[string]any
	var authHeader, path string

	_, provider := newGroqServer(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		authHeader = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &captured)

		w.Header().Set("Content-Type", "text/event-stream")
		for _, c := range []string{"1. ", "Design a rate limiter...", "\n2. ..."} {
			_, _ = io.WriteString(w, sseChunk(c))
		}
		_, _ = io.WriteString(w, sseChunk(""))
		_, _ = io.WriteString(w, "data: [DONE]\n\n")
	})

	fragments, err := collect(provider.StreamCompletion(context.Background(), testRequest()))
	require.NoError(t, err)
	assert.Equal(t, []string{"1. ", "Design a rate limiter...", "\n2. ..."}, fragments)

	assert.Equal(t, "/openai/v1/chat/completions", path)
	assert.Equal(t, "Bearer gsk_test", authHeader)
	assert.Equal(t, "llama3-8b-8192", captured["model"])
	assert.Equal(t, true, captured["stream"])
	assert.InDelta(t, 0.4, captured["temperature"], 1e-9)
	assert.EqualValues(t, 1200, captured["max_tokens"])

	messages, ok := captured["messages"].([]any)
	require.True(t, ok)
	require.Len(t, messages, 2)
	assert.Equal(t, "system", messages[0].(map[string]any)["role"])
	assert.Equal(t, "user", messages[1].(map[string]any)["role"])
}

func TestGroqProviderEmptyStreamSucceeds(t *testing.T) {
	_, provider := newGroqServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = io.WriteString(w, "data: [DONE]\n\n")
	})

	fragments, err := collect(provider.StreamCompletion(context.Background(), testRequest()))
	require.NoError(t, err)
	assert.Empty(t, fragments)
}

func TestGroqProviderUpstreamError(t *testing.T) {
	var calls atomic.Int32
	_, provider := newGroqServer(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"error":{"message":"The model does not exist","type":"invalid_request_error","code":"model_not_found"}}`)
	})

	fragments, err := collect(provider.StreamCompletion(context.Background(), testRequest()))
	require.Error(t, err)
	assert.Empty(t, fragments)

	var upstream *UpstreamError
	require.True(t, errors.As(err, &upstream))
	assert.Equal(t, "llama3-8b-8192", upstream.Model)
	assert.Equal(t, http.StatusNotFound, upstream.StatusCode())
	assert.Contains(t, err.Error(), "llama3-8b-8192")
	assert.Equal(t, int32(1), calls.Load(), "SDK retries must be disabled")
}

func TestGroqProviderMidStreamError(t *testing.T) {
	_, provider := newGroqServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = io.WriteString(w, sseChunk("1. Explain "))
		_, _ = io.WriteString(w, sseChunk("consistent hashing."))
		_, _ = io.WriteString(w, `data: {"error":{"message":"rate limited"}}`+"\n\n")
	})

	var fragments []string
	var errs []error
	for fragment, err := range provider.StreamCompletion(context.Background(), testRequest()) {
		if err != nil {
			errs = append(errs, err)
			continue
		}
		require.Empty(t, errs, "no fragments may follow the terminal error")
		fragments = append(fragments, fragment)
	}

	assert.Equal(t, []string{"1. Explain ", "consistent hashing."}, fragments)
	require.Len(t, errs, 1)

	var upstream *UpstreamError
	require.True(t, errors.As(errs[0], &upstream))
	assert.Equal(t, "llama3-8b-8192", upstream.Model)
	assert.Contains(t, errs[0].Error(), "rate limited")
}

func TestGroqProviderMissingCredential(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	provider := NewGroqProvider(srv.URL+"/", staticCredentials{err: errors.New("credential not found")})

	_, err := collect(provider.StreamCompletion(context.Background(), testRequest()))
	require.Error(t, err)
	assert.True(t, IsCredentialError(err))
	assert.ErrorIs(t, err, ErrCredentialMissing)
	assert.Equal(t, int32(0), calls.Load())
}

func TestGroqProviderEarlyBreak(t *testing.T) {
	_, provider := newGroqServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		for i := range 10 {
			_, _ = io.WriteString(w, sseChunk(fmt.Sprintf("part-%d ", i)))
		}
		_, _ = io.WriteString(w, "data: [DONE]\n\n")
	})

	var got []string
	for fragment, err := range provider.StreamCompletion(context.Background(), testRequest()) {
		require.NoError(t, err)
		got = append(got, fragment)
		if len(got) == 2 {
			break
		}
	}
	assert.Equal(t, []string{"part-0 ", "part-1 "}, got)
}

func TestGroqProviderName(t *testing.T) {
	p := NewGroqProvider("https://api.groq.com/openai/v1/", staticCredentials{})
	assert.Equal(t, "groq", p.Name())
	assert.True(t, strings.HasSuffix(p.baseURL, "/"))
}
