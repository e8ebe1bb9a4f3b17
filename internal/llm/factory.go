package llm

import (
	"fmt"
	"os"

	"github.com/normanking/pmcortex/internal/config"
)

// NewProvider creates the default LLM provider from configuration.
// The provider is wrapped with rate limiting and metrics collection.
func NewProvider(cfg *config.Config) (Provider, error) {
	providerName := cfg.LLM.DefaultProvider
	if providerName == "" {
		providerName = "gemini"
	}

	providerCfg, exists := cfg.LLM.Providers[providerName]
	if !exists {
		return nil, fmt.Errorf("provider '%s' not found in configuration", providerName)
	}

	apiKey := providerCfg.APIKey
	if apiKey == "" {
		apiKey = getAPIKeyFromEnv(providerName)
	}

	llmCfg := &ProviderConfig{
		Name:     providerName,
		Endpoint: providerCfg.Endpoint,
		APIKey:   apiKey,
		Model:    providerCfg.Model,
		Timeout:  cfg.LLM.Timeout,
	}

	provider, err := NewProviderByName(providerName, llmCfg)
	if err != nil {
		return nil, err
	}

	return NewRateLimitedProvider(provider, cfg.LLM.RequestsPerMinute), nil
}

// NewCompleter builds the provider from configuration and wraps it in a
// Completer using the configured model and fallback model.
func NewCompleter(cfg *config.Config) (*Completer, error) {
	provider, err := NewProvider(cfg)
	if err != nil {
		return nil, err
	}

	pc := cfg.Provider()
	return &Completer{
		Provider: provider,
		Model:    pc.Model,
		Fallback: pc.FallbackModel,
		Timeout:  cfg.LLM.Timeout,
	}, nil
}

// getAPIKeyFromEnv retrieves the API key from standard environment variables.
func getAPIKeyFromEnv(providerName string) string {
	envVars := map[string]string{
		"gemini": "GEMINI_API_KEY",
	}
	if envVar, ok := envVars[providerName]; ok {
		return os.Getenv(envVar)
	}
	return ""
}

// NewProviderByName creates a specific provider by name, wrapped with
// MetricsProvider for call counting and latency tracking.
func NewProviderByName(name string, cfg *ProviderConfig) (Provider, error) {
	var provider Provider

	switch name {
	case "ollama":
		provider = NewOllamaProvider(cfg)
	case "gemini":
		provider = NewGeminiProvider(cfg)
	default:
		return nil, fmt.Errorf("unknown provider: %s", name)
	}

	return NewMetricsProvider(provider), nil
}

// AvailableProviders returns the configured providers that report available.
func AvailableProviders(cfg *config.Config) []string {
	var available []string

	for name, providerCfg := range cfg.LLM.Providers {
		apiKey := providerCfg.APIKey
		if apiKey == "" {
			apiKey = getAPIKeyFromEnv(name)
		}
		provider, err := NewProviderByName(name, &ProviderConfig{
			Name:     name,
			Endpoint: providerCfg.Endpoint,
			APIKey:   apiKey,
			Model:    providerCfg.Model,
		})
		if err != nil {
			continue
		}

		if provider.Available() {
			available = append(available, name)
		}
	}

	return available
}
