package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeminiProvider_Chat(t *testing.T) {
	var got geminiGenerateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/gemini-test:generateContent", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("x-goog-api-key"))
		assert.Empty(t, r.URL.Query().Get("key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"candidates": [{"content": {"parts": [{"text": "feature_"}, {"text": "analysis"}]}, "finishReason": "STOP"}],
			"usageMetadata": {"promptTokenCount": 12, "candidatesTokenCount": 2}
		}`))
	}))
	defer srv.Close()

	p := NewGeminiProvider(&ProviderConfig{Endpoint: srv.URL, APIKey: "secret", Model: "gemini-test"})
	require.True(t, p.Available())

	resp, err := p.Chat(context.Background(), &ChatRequest{
		SystemPrompt: "classify",
		Messages: []Message{
			{Role: "user", Content: "hi"},
			{Role: "assistant", Content: "hello"},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "feature_analysis", resp.Content)
	assert.Equal(t, "gemini-test", resp.Model)
	assert.Equal(t, 12, resp.PromptTokens)
	assert.Equal(t, 2, resp.CompletionTokens)
	assert.Equal(t, "STOP", resp.FinishReason)

	require.NotNil(t, got.SystemInstruction)
	assert.Equal(t, "classify", got.SystemInstruction.Parts[0].Text)
	require.Len(t, got.Contents, 2)
	assert.Equal(t, "model", got.Contents[1].Role)
}

func TestGeminiProvider_NoAPIKey(t *testing.T) {
	p := NewGeminiProvider(&ProviderConfig{})
	assert.False(t, p.Available())

	_, err := p.Chat(context.Background(), &ChatRequest{})
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestGeminiProvider_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"quota"}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	p := NewGeminiProvider(&ProviderConfig{Endpoint: srv.URL, APIKey: "k"})
	_, err := p.Chat(context.Background(), &ChatRequest{Messages: []Message{{Role: "user", Content: "x"}}})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Contains(t, err.Error(), "429")
}

func TestGeminiProvider_UnusableBodies(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr error
		detail  string
	}{
		{"no candidates", `{"candidates": []}`, ErrEmptyResponse, "no candidates"},
		{"blocked prompt", `{"candidates": [], "promptFeedback": {"blockReason": "SAFETY"}}`, ErrEmptyResponse, "SAFETY"},
		{"not json", `<html>gateway error</html>`, ErrMalformed, "decode"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := &Completer{
				Provider: NewGeminiProvider(&ProviderConfig{Endpoint: srv.URL, APIKey: "k"}),
				Model:    "gemini-test",
			}
			_, err := c.Complete(context.Background(), "system", "prompt")
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Contains(t, err.Error(), tt.detail)
		})
	}
}

func TestGeminiProvider_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	p := NewGeminiProvider(&ProviderConfig{Endpoint: srv.URL, APIKey: "k"})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := p.Chat(ctx, &ChatRequest{Messages: []Message{{Role: "user", Content: "x"}}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTimeout), "got %v", err)
}
