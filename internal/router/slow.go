package router

import (
	"context"
	"fmt"
	"strings"
	"time"
)

const (
	// DefaultClassifyTimeout bounds one slow-path call.
	DefaultClassifyTimeout = 15 * time.Second

	// ClassificationSystemPrompt is the system prompt for the classifier call.
	ClassificationSystemPrompt = `You are a routing agent. Analyze the user's intent carefully. If they want NEW analysis, route to analysis. If they're asking follow-ups, route to chat. Respond with only one word: chat, feasibility_analysis, or feature_analysis.`

	newRequestPrompt = `You are a routing agent for a product assistant system. Analyze the user's request and determine the appropriate route.

Available routes:
1. "chat" - For general conversation or questions
2. "feasibility_analysis" - For analyzing the feasibility of a NEW requirement (keywords: "analyze feasibility", "can we add", "is it possible to", "estimate", "new requirement")
3. "feature_analysis" - For analyzing an EXISTING feature in the codebase (keywords: "how does", "explain the feature", "what does this feature do", "analyze the feature")

User request: %s

Respond with ONLY one word: "chat", "feasibility_analysis", or "feature_analysis"`

	followUpPrompt = `You are a routing agent. The user is in a chat session asking a follow-up question.

IMPORTANT: Default to "chat" unless they EXPLICITLY ask for a NEW analysis.

Route to analysis ONLY if they say things like:
- "Can you analyze..." or "Analyze the feasibility of..."
- "How does [specific feature] work?" (asking about a specific feature in the codebase)
- "What is the feasibility of adding [new thing]?"

Route to "chat" for:
- Questions about estimates, risks, approach, open questions (follow-ups)
- "Does this...", "Are these...", "What about...", "Can you explain..."
- Any clarification or follow-up question

User message: %s

Respond with ONLY one word: "chat", "feasibility_analysis", or "feature_analysis"`
)

// SlowClassifier asks a language model for an intent label.
type SlowClassifier struct {
	llm     Completer
	timeout time.Duration
}

// NewSlowClassifier creates a new semantic classifier.
func NewSlowClassifier(llm Completer) *SlowClassifier {
	return &SlowClassifier{
		llm:     llm,
		timeout: DefaultClassifyTimeout,
	}
}

// NewSlowClassifierWithTimeout creates a semantic classifier with custom timeout.
func NewSlowClassifierWithTimeout(llm Completer, timeout time.Duration) *SlowClassifier {
	if timeout <= 0 {
		timeout = DefaultClassifyTimeout
	}
	return &SlowClassifier{
		llm:     llm,
		timeout: timeout,
	}
}

// Available reports whether a model is configured.
func (c *SlowClassifier) Available() bool {
	if c == nil || c.llm == nil {
		return false
	}
	if a, ok := c.llm.(interface{ Available() bool }); ok {
		return a.Available()
	}
	return true
}

// Classify calls the model exactly once and maps its label.
func (c *SlowClassifier) Classify(ctx context.Context, input string, followUp bool) (Intent, error) {
	if !c.Available() {
		return "", fmt.Errorf("%w: classifier model unavailable", ErrClassification)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	template := newRequestPrompt
	if followUp {
		template = followUpPrompt
	}

	label, err := c.llm.Complete(ctx, ClassificationSystemPrompt, fmt.Sprintf(template, input))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrClassification, err)
	}

	intent, ok := ParseIntent(label)
	if !ok {
		return "", fmt.Errorf("%w: unrecognized label %q", ErrClassification, truncateLabel(label))
	}
	return intent, nil
}

// ParseIntent maps a model label to an Intent. Surrounding whitespace,
// quotes, backticks and trailing punctuation are ignored and case does not
// matter; anything else must match a label exactly.
func ParseIntent(label string) (Intent, bool) {
	label = strings.Trim(strings.ToLower(label), " \t\r\n\"'`*.,;:!")

	intent := Intent(label)
	if !intent.IsValid() {
		return "", false
	}
	return intent, true
}

func truncateLabel(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 80 {
		return s[:80] + "..."
	}
	return s
}
