package router

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

// stubLLM counts calls and answers with a fixed label or error.
type stubLLM struct {
	label     string
	err       error
	delay     time.Duration
	available *bool
	calls     atomic.Int32
	lastText  atomic.Value
}

func (s *stubLLM) Complete(ctx context.Context, system, prompt string) (string, error) {
	s.calls.Add(1)
	s.lastText.Store(prompt)
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return s.label, s.err
}

func (s *stubLLM) Available() bool {
	if s.available == nil {
		return true
	}
	return *s.available
}

// failingLLM fails the test if it is ever called.
type failingLLM struct{ t *testing.T }

func (f failingLLM) Complete(ctx context.Context, system, prompt string) (string, error) {
	f.t.Fatalf("model must not be called for explicit signals (prompt %q)", prompt)
	return "", errors.New("unreachable")
}

// ============================================================================
// Intent Tests
// ============================================================================

func TestIntent_IsValid(t *testing.T) {
	tests := []struct {
		intent Intent
		valid  bool
	}{
		{IntentChat, true},
		{IntentFeatureAnalysis, true},
		{IntentFeasibilityAnalysis, true},
		{Intent("analysis"), false},
		{Intent(""), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.intent), func(t *testing.T) {
			if got := tt.intent.IsValid(); got != tt.valid {
				t.Errorf("Intent.IsValid() = %v, want %v", got, tt.valid)
			}
		})
	}
}

func TestParseIntent(t *testing.T) {
	tests := []struct {
		label string
		want  Intent
		ok    bool
	}{
		{"chat", IntentChat, true},
		{"  Feasibility_Analysis\n", IntentFeasibilityAnalysis, true},
		{`"feature_analysis"`, IntentFeatureAnalysis, true},
		{"`chat`.", IntentChat, true},
		{"**chat**", IntentChat, true},
		{"feature analysis", "", false},
		{"I think chat", "", false},
		{"feasibility", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			got, ok := ParseIntent(tt.label)
			if got != tt.want || ok != tt.ok {
				t.Errorf("ParseIntent(%q) = (%q, %v), want (%q, %v)", tt.label, got, ok, tt.want, tt.ok)
			}
		})
	}
}

// ============================================================================
// Classifier Tests
// ============================================================================

func TestClassify_ExplicitNeverCallsModel(t *testing.T) {
	c := NewClassifier(failingLLM{t})

	tests := []struct {
		name    string
		signals Signals
		want    Intent
	}{
		{"chat", Signals{ChatID: "c1", Message: "what are the risks?"}, IntentChat},
		{"chat wins over requirement", Signals{ChatID: "c1", Message: "hi", Requirement: "r"}, IntentChat},
		{"feature", Signals{FeatureID: "f1", Query: "how does billing work"}, IntentFeatureAnalysis},
		{"feasibility", Signals{Requirement: "Add OAuth2 login"}, IntentFeasibilityAnalysis},
		{"feasibility with chat id", Signals{ChatID: "c1", Requirement: "Add SSO"}, IntentFeasibilityAnalysis},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := c.Classify(context.Background(), tt.signals)
			if err != nil {
				t.Fatalf("Classify() error = %v", err)
			}
			if d.Intent != tt.want {
				t.Errorf("Intent = %v, want %v", d.Intent, tt.want)
			}
			if d.Path != PathExplicit {
				t.Errorf("Path = %v, want explicit", d.Path)
			}
		})
	}

	stats := c.Stats()
	if stats.ExplicitHits != 5 || stats.SlowHits != 0 {
		t.Errorf("stats = %+v, want 5 explicit hits", stats)
	}
}

func TestClassify_SlowPathCalledOnce(t *testing.T) {
	llm := &stubLLM{label: "feature_analysis"}
	c := NewClassifier(llm)

	d, err := c.Classify(context.Background(), Signals{Message: "how does checkout work?"})
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if d.Intent != IntentFeatureAnalysis || d.Path != PathSlow {
		t.Errorf("decision = %+v, want feature_analysis via slow", d)
	}
	if got := llm.calls.Load(); got != 1 {
		t.Errorf("model called %d times, want 1", got)
	}
	if d.Input != "how does checkout work?" {
		t.Errorf("Input = %q", d.Input)
	}
}

func TestClassify_QueryWithoutFeatureGoesToModel(t *testing.T) {
	llm := &stubLLM{label: "feasibility_analysis"}
	c := NewClassifier(llm)

	d, err := c.Classify(context.Background(), Signals{Query: "can we add dark mode?"})
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if d.Intent != IntentFeasibilityAnalysis {
		t.Errorf("Intent = %v", d.Intent)
	}
	if got := llm.calls.Load(); got != 1 {
		t.Errorf("model called %d times, want 1", got)
	}
}

func TestClassify_FollowUpPrompt(t *testing.T) {
	llm := &stubLLM{label: "chat"}
	c := NewClassifier(llm)

	// A chat id with a query but no message is not an explicit chat signal.
	_, err := c.Classify(context.Background(), Signals{ChatID: "c1", Query: "does this cover mobile?", HasContext: true})
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	prompt, _ := llm.lastText.Load().(string)
	if !strings.Contains(prompt, "follow-up question") {
		t.Errorf("expected follow-up prompt, got %q", prompt)
	}

	_, err = c.Classify(context.Background(), Signals{Message: "can we add SSO?"})
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	prompt, _ = llm.lastText.Load().(string)
	if !strings.Contains(prompt, "Available routes") {
		t.Errorf("expected new-request prompt, got %q", prompt)
	}
}

func TestClassify_Errors(t *testing.T) {
	off := false
	tests := []struct {
		name    string
		llm     Completer
		signals Signals
	}{
		{"no text", &stubLLM{label: "chat"}, Signals{ChatID: "c1"}},
		{"no model", nil, Signals{Message: "hello"}},
		{"model unavailable", &stubLLM{label: "chat", available: &off}, Signals{Message: "hello"}},
		{"model error", &stubLLM{err: errors.New("quota exceeded")}, Signals{Message: "hello"}},
		{"unknown label", &stubLLM{label: "analysis"}, Signals{Message: "hello"}},
		{"chatty label", &stubLLM{label: "I would route this to chat"}, Signals{Message: "hello"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewClassifier(tt.llm)
			d, err := c.Classify(context.Background(), tt.signals)
			if !errors.Is(err, ErrClassification) {
				t.Fatalf("error = %v, want ErrClassification", err)
			}
			if d != nil {
				t.Errorf("decision = %+v, want nil", d)
			}
		})
	}
}

func TestClassify_Timeout(t *testing.T) {
	llm := &stubLLM{label: "chat", delay: time.Second}
	c := NewClassifier(llm, WithClassifyTimeout(20*time.Millisecond))

	start := time.Now()
	_, err := c.Classify(context.Background(), Signals{Message: "hello"})
	if !errors.Is(err, ErrClassification) {
		t.Fatalf("error = %v, want ErrClassification", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("error = %v, want wrapped deadline", err)
	}
	if time.Since(start) > 500*time.Millisecond {
		t.Errorf("timeout not applied")
	}
	if got := c.Stats().Failures; got != 1 {
		t.Errorf("Failures = %d, want 1", got)
	}
}

func TestSignals_FreeText(t *testing.T) {
	s := Signals{Message: "  ", Query: " q ", Requirement: "r"}
	if got := s.FreeText(); got != "q" {
		t.Errorf("FreeText() = %q, want q", got)
	}
}
