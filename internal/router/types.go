// Package router classifies inbound requests into one of three intents.
// Explicit request signals are checked first; only when none is present is
// the free text sent to a language model for a one-word label.
package router

import (
	"context"
	"errors"
	"strings"
	"time"
)

// ErrClassification is returned when a request cannot be mapped to an intent.
var ErrClassification = errors.New("request could not be classified")

// Intent is the workflow a request is dispatched to.
type Intent string

const (
	// IntentChat continues a conversation about an earlier analysis.
	IntentChat Intent = "chat"
	// IntentFeatureAnalysis analyses an existing capability of the codebase.
	IntentFeatureAnalysis Intent = "feature_analysis"
	// IntentFeasibilityAnalysis assesses a new requirement.
	IntentFeasibilityAnalysis Intent = "feasibility_analysis"
)

// AllIntents returns every valid intent.
func AllIntents() []Intent {
	return []Intent{IntentChat, IntentFeatureAnalysis, IntentFeasibilityAnalysis}
}

// String returns the string representation of an Intent.
func (i Intent) String() string {
	return string(i)
}

// IsValid checks if an Intent is a known value.
func (i Intent) IsValid() bool {
	for _, valid := range AllIntents() {
		if i == valid {
			return true
		}
	}
	return false
}

// ClassificationPath indicates how an intent was decided.
type ClassificationPath string

const (
	// PathExplicit indicates the request carried an unambiguous signal.
	PathExplicit ClassificationPath = "explicit"
	// PathSlow indicates the language model picked the label.
	PathSlow ClassificationPath = "slow"
)

// Signals are the request fields the classifier looks at.
type Signals struct {
	ChatID      string
	FeatureID   string
	Message     string
	Query       string
	Requirement string

	// HasContext is set when ChatID names a session with a stored
	// analysis context. The model is then told to prefer "chat".
	HasContext bool
}

// FreeText returns the first non-empty of message, query and requirement.
func (s Signals) FreeText() string {
	for _, text := range []string{s.Message, s.Query, s.Requirement} {
		if t := strings.TrimSpace(text); t != "" {
			return t
		}
	}
	return ""
}

// Decision is the result of classifying one request.
type Decision struct {
	// Intent is the selected workflow.
	Intent Intent `json:"intent"`

	// Path indicates which classification method was used.
	Path ClassificationPath `json:"path"`

	// Input is the free text the decision was based on.
	Input string `json:"input,omitempty"`

	// ClassifiedAt is when the classification was made.
	ClassifiedAt time.Time `json:"classified_at"`

	// Latency is how long classification took.
	Latency time.Duration `json:"latency"`
}

// RouterStats tracks routing statistics for monitoring.
type RouterStats struct {
	ExplicitHits  int64            `json:"explicit_hits"`
	SlowHits      int64            `json:"slow_hits"`
	Failures      int64            `json:"failures"`
	TotalRequests int64            `json:"total_requests"`
	Distribution  map[Intent]int64 `json:"distribution"`
}

// Completer is the language model used on the slow path.
type Completer interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}
