// Package config provides configuration management for pmcortex.
//
// # Overview
//
// Configuration is loaded with Viper from a YAML file and overridden by
// environment variables. The file lives at ~/.pmcortex/config.yaml and is
// created with defaults on first use.
//
// # Environment Variables
//
// Every key can be overridden with the PMCORTEX_ prefix. Nested keys are
// joined with underscores:
//   - PMCORTEX_SERVER_PORT=9000
//   - PMCORTEX_LLM_DEFAULT_PROVIDER=ollama
//   - PMCORTEX_LLM_PROVIDERS_GEMINI_API_KEY=...
//   - PMCORTEX_ANALYSIS_CODEX_PATH=/usr/local/bin/codex
//   - PMCORTEX_LOGGING_LEVEL=debug
//
// # Usage
//
//	cfg, err := config.LoadFromPath(path)
//	if err != nil {
//	    return err
//	}
//	if err := cfg.Validate(); err != nil {
//	    return fmt.Errorf("invalid config: %w", err)
//	}
package config
