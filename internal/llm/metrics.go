package llm

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/normanking/pmcortex/internal/logging"
	"github.com/normanking/pmcortex/internal/metrics"
)

// ═══════════════════════════════════════════════════════════════════════════════
// METRICS WRAPPER
// ═══════════════════════════════════════════════════════════════════════════════

// MetricsProvider wraps an LLM provider with timing and metrics collection.
// Counts are kept locally for Stats and exported through Prometheus.
type MetricsProvider struct {
	provider Provider
	name     string
	log      *logging.Logger

	totalCalls        int64
	totalErrors       int64
	totalInputTokens  int64
	totalOutputTokens int64

	mu           sync.RWMutex
	totalLatency time.Duration
	maxLatency   time.Duration
}

// ProviderStats is a point-in-time view of a MetricsProvider.
type ProviderStats struct {
	Provider     string        `json:"provider"`
	Calls        int64         `json:"calls"`
	Errors       int64         `json:"errors"`
	InputTokens  int64         `json:"input_tokens"`
	OutputTokens int64         `json:"output_tokens"`
	AvgLatency   time.Duration `json:"avg_latency"`
	MaxLatency   time.Duration `json:"max_latency"`
}

// NewMetricsProvider wraps a provider with metrics collection.
func NewMetricsProvider(provider Provider) *MetricsProvider {
	return &MetricsProvider{
		provider: provider,
		name:     provider.Name(),
		log:      logging.Global().WithComponent("llm"),
	}
}

// Chat implements Provider with metrics.
func (m *MetricsProvider) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	start := time.Now()
	resp, err := m.provider.Chat(ctx, req)
	latency := time.Since(start)

	atomic.AddInt64(&m.totalCalls, 1)
	if err != nil {
		atomic.AddInt64(&m.totalErrors, 1)
	}

	m.mu.Lock()
	m.totalLatency += latency
	if latency > m.maxLatency {
		m.maxLatency = latency
	}
	m.mu.Unlock()

	model := req.Model
	if resp != nil && resp.Model != "" {
		model = resp.Model
	}

	metrics.LLMCalls.WithLabelValues(m.name, model, metrics.Outcome(err)).Inc()
	metrics.LLMLatency.WithLabelValues(m.name).Observe(latency.Seconds())

	if err != nil {
		m.log.Warn("%s/%s failed after %v: %v", m.name, model, latency, err)
		return nil, err
	}

	atomic.AddInt64(&m.totalInputTokens, int64(resp.PromptTokens))
	atomic.AddInt64(&m.totalOutputTokens, int64(resp.CompletionTokens))
	metrics.LLMTokens.WithLabelValues(m.name, "prompt").Add(float64(resp.PromptTokens))
	metrics.LLMTokens.WithLabelValues(m.name, "completion").Add(float64(resp.CompletionTokens))

	m.log.Debug("%s/%s completed in %v (%d+%d tokens)", m.name, model, latency, resp.PromptTokens, resp.CompletionTokens)
	return resp, nil
}

// Name implements Provider.
func (m *MetricsProvider) Name() string {
	return m.name
}

// Available implements Provider.
func (m *MetricsProvider) Available() bool {
	return m.provider.Available()
}

// Stats returns the counters collected so far.
func (m *MetricsProvider) Stats() ProviderStats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	calls := atomic.LoadInt64(&m.totalCalls)
	var avg time.Duration
	if calls > 0 {
		avg = m.totalLatency / time.Duration(calls)
	}

	return ProviderStats{
		Provider:     m.name,
		Calls:        calls,
		Errors:       atomic.LoadInt64(&m.totalErrors),
		InputTokens:  atomic.LoadInt64(&m.totalInputTokens),
		OutputTokens: atomic.LoadInt64(&m.totalOutputTokens),
		AvgLatency:   avg,
		MaxLatency:   m.maxLatency,
	}
}

// Unwrap returns the underlying provider.
func (m *MetricsProvider) Unwrap() Provider {
	return m.provider
}

// ═══════════════════════════════════════════════════════════════════════════════
// RATE LIMITING
// ═══════════════════════════════════════════════════════════════════════════════

// RateLimitedProvider throttles outbound calls to a provider.
type RateLimitedProvider struct {
	provider Provider
	limiter  *rate.Limiter
}

// NewRateLimitedProvider allows perMinute calls per minute with a burst
// of one. A non-positive perMinute returns the provider unchanged.
func NewRateLimitedProvider(provider Provider, perMinute int) Provider {
	if perMinute <= 0 {
		return provider
	}
	return &RateLimitedProvider{
		provider: provider,
		limiter:  rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1),
	}
}

// Chat waits for a token, then forwards the request.
func (r *RateLimitedProvider) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: rate limit wait: %w", ErrTimeout, err)
	}
	return r.provider.Chat(ctx, req)
}

// Name implements Provider.
func (r *RateLimitedProvider) Name() string {
	return r.provider.Name()
}

// Available implements Provider.
func (r *RateLimitedProvider) Available() bool {
	return r.provider.Available()
}

// Unwrap returns the underlying provider.
func (r *RateLimitedProvider) Unwrap() Provider {
	return r.provider
}

// StatsOf walks the wrapper chain of p and returns the stats of the first
// MetricsProvider found.
func StatsOf(p Provider) (ProviderStats, bool) {
	for p != nil {
		if m, ok := p.(*MetricsProvider); ok {
			return m.Stats(), true
		}
		u, ok := p.(interface{ Unwrap() Provider })
		if !ok {
			break
		}
		p = u.Unwrap()
	}
	return ProviderStats{}, false
}
