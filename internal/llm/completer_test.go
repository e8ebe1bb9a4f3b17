package llm

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubProvider answers per model from a table.
type stubProvider struct {
	mu        sync.Mutex
	available bool
	replies   map[string]string
	errs      map[string]error
	models    []string
}

func (s *stubProvider) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	s.mu.Lock()
	s.models = append(s.models, req.Model)
	s.mu.Unlock()

	if err := s.errs[req.Model]; err != nil {
		return nil, err
	}
	return &ChatResponse{Content: s.replies[req.Model], Model: req.Model}, nil
}

func (s *stubProvider) Name() string    { return "stub" }
func (s *stubProvider) Available() bool { return s.available }

func TestCompleter_Primary(t *testing.T) {
	stub := &stubProvider{available: true, replies: map[string]string{"fast": "  chat\n"}}
	c := &Completer{Provider: stub, Model: "fast", Fallback: "slow"}

	text, err := c.Complete(context.Background(), "sys", "prompt")
	require.NoError(t, err)
	assert.Equal(t, "chat", text)
	assert.Equal(t, []string{"fast"}, stub.models)
}

func TestCompleter_Fallback(t *testing.T) {
	stub := &stubProvider{
		available: true,
		replies:   map[string]string{"slow": "ok"},
		errs:      map[string]error{"fast": errors.New("model overloaded")},
	}
	c := &Completer{Provider: stub, Model: "fast", Fallback: "slow"}

	text, err := c.Complete(context.Background(), "", "prompt")
	require.NoError(t, err)
	assert.Equal(t, "ok", text)
	assert.Equal(t, []string{"fast", "slow"}, stub.models)
}

func TestCompleter_BothFail(t *testing.T) {
	stub := &stubProvider{
		available: true,
		errs: map[string]error{
			"fast": errors.New("boom"),
			"slow": ErrUnavailable,
		},
	}
	c := &Completer{Provider: stub, Model: "fast", Fallback: "slow"}

	_, err := c.Complete(context.Background(), "", "prompt")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Contains(t, err.Error(), "boom")
}

func TestCompleter_Unavailable(t *testing.T) {
	stub := &stubProvider{available: false}
	c := &Completer{Provider: stub, Model: "fast"}

	_, err := c.Complete(context.Background(), "", "prompt")
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Empty(t, stub.models)

	var nilCompleter *Completer
	assert.False(t, nilCompleter.Available())
}

func TestCompleter_EmptyResponse(t *testing.T) {
	stub := &stubProvider{available: true, replies: map[string]string{"fast": "   "}}
	c := &Completer{Provider: stub, Model: "fast"}

	_, err := c.Complete(context.Background(), "", "prompt")
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestCompleter_DeadlineIsTimeout(t *testing.T) {
	stub := &stubProvider{
		available: true,
		errs:      map[string]error{"fast": context.DeadlineExceeded},
	}
	c := &Completer{Provider: stub, Model: "fast", Fallback: "slow", Timeout: time.Second}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Complete(ctx, "", "prompt")
	assert.ErrorIs(t, err, ErrTimeout)
	assert.Equal(t, []string{"fast"}, stub.models, "no fallback once the caller's context is done")
}

func TestRateLimitedProvider(t *testing.T) {
	stub := &stubProvider{available: true, replies: map[string]string{"": "x"}}
	assert.Same(t, Provider(stub), NewRateLimitedProvider(stub, 0))

	limited := NewRateLimitedProvider(stub, 1)
	_, err := limited.Chat(context.Background(), &ChatRequest{})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = limited.Chat(ctx, &ChatRequest{})
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestMetricsProvider_Stats(t *testing.T) {
	stub := &stubProvider{
		available: true,
		replies:   map[string]string{"ok": "fine"},
		errs:      map[string]error{"bad": errors.New("nope")},
	}
	m := NewMetricsProvider(stub)

	_, err := m.Chat(context.Background(), &ChatRequest{Model: "ok"})
	require.NoError(t, err)
	_, err = m.Chat(context.Background(), &ChatRequest{Model: "bad"})
	require.Error(t, err)

	stats := m.Stats()
	assert.Equal(t, "stub", stats.Provider)
	assert.EqualValues(t, 2, stats.Calls)
	assert.EqualValues(t, 1, stats.Errors)
	assert.Same(t, Provider(stub), m.Unwrap())
}

func TestStatsOf(t *testing.T) {
	stub := &stubProvider{available: true, replies: map[string]string{"": "x"}}

	_, ok := StatsOf(stub)
	assert.False(t, ok)

	wrapped := NewRateLimitedProvider(NewMetricsProvider(stub), 600)
	_, err := wrapped.Chat(context.Background(), &ChatRequest{})
	require.NoError(t, err)

	stats, ok := StatsOf(wrapped)
	require.True(t, ok)
	assert.EqualValues(t, 1, stats.Calls)
}
