package router

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/normanking/pmcortex/internal/logging"
	"github.com/normanking/pmcortex/internal/metrics"
)

// Classifier implements the explicit/slow classification pattern.
// Explicit signals are deterministic and never reach the model.
type Classifier struct {
	slow *SlowClassifier
	log  *logging.Logger

	// Statistics (thread-safe)
	stats RouterStats
	mu    sync.RWMutex
}

// ClassifierOption is a functional option for configuring Classifier.
type ClassifierOption func(*Classifier)

// WithClassifyTimeout bounds each slow-path call.
func WithClassifyTimeout(timeout time.Duration) ClassifierOption {
	return func(c *Classifier) {
		if c.slow != nil {
			c.slow = NewSlowClassifierWithTimeout(c.slow.llm, timeout)
		}
	}
}

// WithLogger sets the logger used for decisions.
func WithLogger(log *logging.Logger) ClassifierOption {
	return func(c *Classifier) {
		c.log = log
	}
}

// NewClassifier creates a Classifier. With a nil llm every request
// without an explicit signal fails with ErrClassification.
func NewClassifier(llm Completer, opts ...ClassifierOption) *Classifier {
	c := &Classifier{
		log: logging.Global().WithComponent("router"),
		stats: RouterStats{
			Distribution: make(map[Intent]int64),
		},
	}
	if llm != nil {
		c.slow = NewSlowClassifier(llm)
	}

	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Classify turns request signals into a Decision. Rules, first match wins:
//
//  1. chat ID and message      -> chat
//  2. feature ID and query     -> feature_analysis
//  3. requirement              -> feasibility_analysis
//  4. otherwise the free text is labelled by the model, called once
func (c *Classifier) Classify(ctx context.Context, s Signals) (*Decision, error) {
	start := time.Now()

	switch {
	case s.ChatID != "" && strings.TrimSpace(s.Message) != "":
		return c.decide(IntentChat, PathExplicit, s.Message, start), nil
	case s.FeatureID != "" && strings.TrimSpace(s.Query) != "":
		return c.decide(IntentFeatureAnalysis, PathExplicit, s.Query, start), nil
	case strings.TrimSpace(s.Requirement) != "":
		return c.decide(IntentFeasibilityAnalysis, PathExplicit, s.Requirement, start), nil
	}

	input := s.FreeText()
	if input == "" {
		return nil, c.fail(fmt.Errorf("%w: no message, query or requirement", ErrClassification))
	}
	if c.slow == nil {
		return nil, c.fail(fmt.Errorf("%w: classifier model not configured", ErrClassification))
	}

	intent, err := c.slow.Classify(ctx, input, s.ChatID != "" && s.HasContext)
	if err != nil {
		return nil, c.fail(err)
	}

	return c.decide(intent, PathSlow, input, start), nil
}

func (c *Classifier) decide(intent Intent, path ClassificationPath, input string, start time.Time) *Decision {
	latency := time.Since(start)

	c.mu.Lock()
	c.stats.TotalRequests++
	switch path {
	case PathExplicit:
		c.stats.ExplicitHits++
	case PathSlow:
		c.stats.SlowHits++
	}
	c.stats.Distribution[intent]++
	c.mu.Unlock()

	metrics.ClassificationTotal.WithLabelValues(string(path), string(intent)).Inc()
	c.log.Debug("classified as %s via %s path in %v", intent, path, latency)

	return &Decision{
		Intent:       intent,
		Path:         path,
		Input:        strings.TrimSpace(input),
		ClassifiedAt: time.Now(),
		Latency:      latency,
	}
}

func (c *Classifier) fail(err error) error {
	c.mu.Lock()
	c.stats.TotalRequests++
	c.stats.Failures++
	c.mu.Unlock()

	metrics.ClassificationTotal.WithLabelValues(string(PathSlow), "error").Inc()
	if !errors.Is(err, ErrClassification) {
		err = fmt.Errorf("%w: %w", ErrClassification, err)
	}
	c.log.Warn("classification failed: %v", err)
	return err
}

// Stats returns a copy of the current routing statistics.
func (c *Classifier) Stats() RouterStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	dist := make(map[Intent]int64, len(c.stats.Distribution))
	for k, v := range c.stats.Distribution {
		dist[k] = v
	}

	return RouterStats{
		ExplicitHits:  c.stats.ExplicitHits,
		SlowHits:      c.stats.SlowHits,
		Failures:      c.stats.Failures,
		TotalRequests: c.stats.TotalRequests,
		Distribution:  dist,
	}
}
