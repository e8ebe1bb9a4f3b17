package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/normanking/pmcortex/internal/logging"
)

// ErrEmptyResponse is returned when a provider answers with no text.
var ErrEmptyResponse = errors.New("llm returned empty response")

// Completer turns a (system, prompt) pair into text. It tries the primary
// model first and, when that fails for any reason other than the caller's
// context ending, the fallback model once.
type Completer struct {
	Provider Provider
	Model    string
	Fallback string
	// Timeout bounds each attempt; zero leaves only the caller's deadline.
	Timeout time.Duration
}

// Available reports whether the underlying provider is configured.
func (c *Completer) Available() bool {
	return c != nil && c.Provider != nil && c.Provider.Available()
}

// Complete sends a single-turn prompt and returns the trimmed response text.
func (c *Completer) Complete(ctx context.Context, system, prompt string) (string, error) {
	if !c.Available() {
		return "", ErrUnavailable
	}

	text, err := c.attempt(ctx, c.Model, system, prompt)
	if err == nil {
		return text, nil
	}
	if ctx.Err() != nil || c.Fallback == "" || c.Fallback == c.Model {
		return "", err
	}

	logging.Global().WithComponent("llm").Warn("model %q failed, trying fallback %q: %v", c.Model, c.Fallback, err)
	text, fbErr := c.attempt(ctx, c.Fallback, system, prompt)
	if fbErr != nil {
		return "", fmt.Errorf("primary: %v; fallback: %w", err, fbErr)
	}
	return text, nil
}

func (c *Completer) attempt(ctx context.Context, model, system, prompt string) (string, error) {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	resp, err := c.Provider.Chat(ctx, &ChatRequest{
		Model:        model,
		SystemPrompt: system,
		Messages:     []Message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		if IsTimeout(err) && !errors.Is(err, ErrTimeout) {
			return "", fmt.Errorf("%w: %w", ErrTimeout, err)
		}
		return "", err
	}

	text := strings.TrimSpace(resp.Content)
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}
