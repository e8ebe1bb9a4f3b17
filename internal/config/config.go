package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix for environment variable overrides,
// e.g. PMCORTEX_SERVER_PORT or PMCORTEX_LLM_PROVIDERS_GEMINI_API_KEY.
const EnvPrefix = "PMCORTEX"

// Config holds all application configuration for pmcortex.
// It is loaded from ~/.pmcortex/config.yaml and can be overridden by environment variables.
type Config struct {
	Server       ServerConfig       `mapstructure:"server" yaml:"server"`
	Data         DataConfig         `mapstructure:"data" yaml:"data"`
	LLM          LLMConfig          `mapstructure:"llm" yaml:"llm"`
	Analysis     AnalysisConfig     `mapstructure:"analysis" yaml:"analysis"`
	Git          GitConfig          `mapstructure:"git" yaml:"git"`
	Router       RouterConfig       `mapstructure:"router" yaml:"router"`
	Orchestrator OrchestratorConfig `mapstructure:"orchestrator" yaml:"orchestrator"`
	Discovery    DiscoveryConfig    `mapstructure:"discovery" yaml:"discovery"`
	Scheduler    SchedulerConfig    `mapstructure:"scheduler" yaml:"scheduler"`
	Logging      LoggingConfig      `mapstructure:"logging" yaml:"logging"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Host         string        `mapstructure:"host" yaml:"host"`
	Port         int           `mapstructure:"port" yaml:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	// WriteTimeout must cover a synchronous analysis request.
	WriteTimeout time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DataConfig locates the SQLite database.
type DataConfig struct {
	// Dir holds pmcortex.db
	Dir string `mapstructure:"dir" yaml:"dir"`
}

// LLMConfig contains configuration for Language Model providers.
type LLMConfig struct {
	// DefaultProvider specifies which provider to use ("gemini" or "ollama")
	DefaultProvider string `mapstructure:"default_provider" yaml:"default_provider"`
	// Providers maps provider names to their specific configuration
	Providers map[string]ProviderConfig `mapstructure:"providers" yaml:"providers"`
	// Timeout bounds each completion call
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
	// RequestsPerMinute throttles outbound calls (0 = unlimited)
	RequestsPerMinute int `mapstructure:"requests_per_minute" yaml:"requests_per_minute"`
}

// ProviderConfig contains configuration for a specific LLM provider.
type ProviderConfig struct {
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint,omitempty"`
	APIKey   string `mapstructure:"api_key" yaml:"api_key,omitempty"`
	Model    string `mapstructure:"model" yaml:"model,omitempty"`
	// FallbackModel is tried once when the primary model fails
	FallbackModel string `mapstructure:"fallback_model" yaml:"fallback_model,omitempty"`
}

// AnalysisConfig configures the codex CLI analyzer.
type AnalysisConfig struct {
	CodexPath string        `mapstructure:"codex_path" yaml:"codex_path"`
	Model     string        `mapstructure:"model" yaml:"model,omitempty"`
	Timeout   time.Duration `mapstructure:"timeout" yaml:"timeout"`
	// MaxOutput caps the analyzer output fed into formatting prompts
	MaxOutput int `mapstructure:"max_output" yaml:"max_output"`
}

// GitConfig controls where registered repositories are cloned.
type GitConfig struct {
	RepoBasePath string `mapstructure:"repo_base_path" yaml:"repo_base_path"`
	Branch       string `mapstructure:"branch" yaml:"branch"`
	// Token authenticates HTTPS clones of private repositories
	Token string `mapstructure:"token" yaml:"token,omitempty"`
}

// RouterConfig configures intent classification.
type RouterConfig struct {
	ClassifyTimeout time.Duration `mapstructure:"classify_timeout" yaml:"classify_timeout"`
}

// OrchestratorConfig configures the request orchestrator.
type OrchestratorConfig struct {
	// HistoryTurns is how many prior messages are fed to the chat prompt
	HistoryTurns int `mapstructure:"history_turns" yaml:"history_turns"`
}

// DiscoveryConfig configures background feature discovery.
type DiscoveryConfig struct {
	Timeout     time.Duration `mapstructure:"timeout" yaml:"timeout"`
	Concurrency int           `mapstructure:"concurrency" yaml:"concurrency"`
	MaxFeatures int           `mapstructure:"max_features" yaml:"max_features"`
}

// SchedulerConfig configures the periodic repository sync.
type SchedulerConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	// SyncSpec is a cron expression
	SyncSpec string `mapstructure:"sync_spec" yaml:"sync_spec"`
}

// LoggingConfig contains configuration for application logging.
type LoggingConfig struct {
	// Level is the log level ("debug", "info", "warn", "error")
	Level string `mapstructure:"level" yaml:"level"`
	// Format is "text" or "json"
	Format string `mapstructure:"format" yaml:"format"`
	// File is the path to the log file (empty disables file logging)
	File string `mapstructure:"file" yaml:"file"`
}

// Default returns a Config populated with default values.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	baseDir := filepath.Join(homeDir, ".pmcortex")

	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8000,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 15 * time.Minute,
			IdleTimeout:  60 * time.Second,
		},
		Data: DataConfig{
			Dir: baseDir,
		},
		LLM: LLMConfig{
			DefaultProvider: "gemini",
			Providers: map[string]ProviderConfig{
				"gemini": {
					Endpoint:      "https://generativelanguage.googleapis.com/v1beta",
					Model:         "gemini-2.5-flash",
					FallbackModel: "gemini-2.5-pro",
				},
				"ollama": {
					Endpoint: "http://127.0.0.1:11434",
					Model:    "llama3.2",
				},
			},
			Timeout:           60 * time.Second,
			RequestsPerMinute: 60,
		},
		Analysis: AnalysisConfig{
			CodexPath: "codex",
			Timeout:   10 * time.Minute,
			MaxOutput: 6000,
		},
		Git: GitConfig{
			RepoBasePath: filepath.Join(baseDir, "repos"),
			Branch:       "main",
		},
		Router: RouterConfig{
			ClassifyTimeout: 15 * time.Second,
		},
		Orchestrator: OrchestratorConfig{
			HistoryTurns: 20,
		},
		Discovery: DiscoveryConfig{
			Timeout:     30 * time.Minute,
			Concurrency: 2,
			MaxFeatures: 50,
		},
		Scheduler: SchedulerConfig{
			Enabled:  false,
			SyncSpec: "0 3 * * *",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			File:   filepath.Join(baseDir, "logs", "pmcortex.log"),
		},
	}
}

// DefaultPath returns ~/.pmcortex/config.yaml.
func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".pmcortex", "config.yaml"), nil
}

// Load reads configuration from the default location and merges with
// environment variables. If no config file exists, it creates one with
// default values.
func Load() (*Config, error) {
	path, err := DefaultPath()
	if err != nil {
		return nil, err
	}
	return LoadFromPath(path)
}

// LoadFromPath reads configuration from a specific file path and merges with
// environment variables. If the file doesn't exist, it creates one with default values.
func LoadFromPath(path string) (*Config, error) {
	path = expandPath(path)

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := writeConfigFile(path, Default()); err != nil {
			return nil, fmt.Errorf("failed to write default config: %w", err)
		}
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.Data.Dir = expandPath(cfg.Data.Dir)
	cfg.Git.RepoBasePath = expandPath(cfg.Git.RepoBasePath)
	cfg.Logging.File = expandPath(cfg.Logging.File)
	cfg.applyDefaults()

	return &cfg, nil
}

// applyDefaults fills zero values left by hand-edited config files.
func (c *Config) applyDefaults() {
	d := Default()
	if c.Orchestrator.HistoryTurns <= 0 {
		c.Orchestrator.HistoryTurns = d.Orchestrator.HistoryTurns
	}
	if c.Discovery.Concurrency <= 0 {
		c.Discovery.Concurrency = d.Discovery.Concurrency
	}
	if c.Discovery.MaxFeatures <= 0 {
		c.Discovery.MaxFeatures = d.Discovery.MaxFeatures
	}
	if c.Analysis.MaxOutput <= 0 {
		c.Analysis.MaxOutput = d.Analysis.MaxOutput
	}
	if c.Git.Branch == "" {
		c.Git.Branch = d.Git.Branch
	}
	if c.Logging.Format == "" {
		c.Logging.Format = d.Logging.Format
	}
}

// SaveToPath writes the current configuration to a specific file path.
func (c *Config) SaveToPath(path string) error {
	path = expandPath(path)

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	return writeConfigFile(path, c)
}

// Provider returns the configuration of the default LLM provider.
func (c *Config) Provider() ProviderConfig {
	return c.LLM.Providers[c.LLM.DefaultProvider]
}

// Validate checks the configuration for common errors and inconsistencies.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}

	if c.Data.Dir == "" {
		return fmt.Errorf("data.dir cannot be empty")
	}

	if c.LLM.DefaultProvider == "" {
		return fmt.Errorf("llm.default_provider cannot be empty")
	}
	if _, exists := c.LLM.Providers[c.LLM.DefaultProvider]; !exists {
		return fmt.Errorf("default provider '%s' not found in providers map", c.LLM.DefaultProvider)
	}
	if c.LLM.Timeout <= 0 {
		return fmt.Errorf("llm.timeout must be positive")
	}

	if c.Analysis.CodexPath == "" {
		return fmt.Errorf("analysis.codex_path cannot be empty")
	}
	if c.Analysis.Timeout <= 0 {
		return fmt.Errorf("analysis.timeout must be positive")
	}

	if c.Git.RepoBasePath == "" {
		return fmt.Errorf("git.repo_base_path cannot be empty")
	}

	if c.Router.ClassifyTimeout <= 0 {
		return fmt.Errorf("router.classify_timeout must be positive")
	}

	if c.Discovery.Timeout <= 0 {
		return fmt.Errorf("discovery.timeout must be positive")
	}
	if c.Discovery.Concurrency > 16 {
		return fmt.Errorf("discovery.concurrency must be at most 16, got %d", c.Discovery.Concurrency)
	}

	if c.Scheduler.Enabled && c.Scheduler.SyncSpec == "" {
		return fmt.Errorf("scheduler.sync_spec is required when the scheduler is enabled")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level '%s', must be one of: debug, info, warn, error", c.Logging.Level)
	}
	if c.Logging.Format != "text" && c.Logging.Format != "json" {
		return fmt.Errorf("invalid log format '%s', must be 'text' or 'json'", c.Logging.Format)
	}

	return nil
}

// writeConfigFile writes a Config struct to a YAML file using the yaml tags.
func writeConfigFile(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// expandPath expands ~ to the user's home directory in a path string.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(homeDir, path[1:])
	}
	return path
}
