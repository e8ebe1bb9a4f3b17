package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOllamaProvider_Chat(t *testing.T) {
	var got ollamaChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"model":"llama3.2","message":{"role":"assistant","content":"chat"},"done":true,"prompt_eval_count":30,"eval_count":1}`))
	}))
	defer srv.Close()

	p := NewOllamaProvider(&ProviderConfig{Endpoint: srv.URL})
	assert.Equal(t, "ollama", p.Name())
	assert.True(t, p.Available())

	resp, err := p.Chat(context.Background(), &ChatRequest{
		SystemPrompt: "sys",
		Messages:     []Message{{Role: "user", Content: "hello"}},
	})
	require.NoError(t, err)

	assert.Equal(t, "chat", resp.Content)
	assert.Equal(t, 30, resp.PromptTokens)
	assert.Equal(t, "stop", resp.FinishReason)

	assert.False(t, got.Stream)
	assert.Equal(t, "llama3.2", got.Model)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "hello", got.Messages[1].Content)
}

func TestOllamaProvider_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	endpoint := srv.URL
	srv.Close()

	p := NewOllamaProvider(&ProviderConfig{Endpoint: endpoint})
	_, err := p.Chat(context.Background(), &ChatRequest{Messages: []Message{{Role: "user", Content: "x"}}})
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestOllamaProvider_BadBodies(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr error
	}{
		{"truncated json", `{"model":"llama3.2","message":`, ErrMalformed},
		{"model error", `{"error":"model 'llama9' not found"}`, ErrUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			p := NewOllamaProvider(&ProviderConfig{Endpoint: srv.URL})
			_, err := p.Chat(context.Background(), &ChatRequest{Messages: []Message{{Role: "user", Content: "x"}}})
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}
