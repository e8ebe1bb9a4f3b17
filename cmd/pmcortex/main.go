package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/normanking/pmcortex/internal/config"
	"github.com/normanking/pmcortex/internal/logging"
)

var (
	version = "0.1.0"
	cfgPath string
	verbose bool
	log     *logging.Logger
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "pmcortex",
		Short: "pmcortex - repository analysis for product managers",
		Long: `pmcortex answers product questions about registered code repositories:
  • Feature discovery in the background
  • Feature and feasibility analysis
  • Follow-up chat grounded in earlier analysis

Start the API:      pmcortex serve
One-shot question:  pmcortex ask --project shop "What does checkout support?"
Configuration:      pmcortex config show`,
		PersistentPreRunE: initLogging,
		SilenceUsage:      true,
	}

	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "config file path (default ~/.pmcortex/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("pmcortex v%s\n", version)
		},
	})

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(registerCmd())
	rootCmd.AddCommand(discoverCmd())
	rootCmd.AddCommand(askCmd())
	rootCmd.AddCommand(configCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// ═══════════════════════════════════════════════════════════════════════════════
// LOGGING INITIALIZATION
// ═══════════════════════════════════════════════════════════════════════════════

func initLogging(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logCfg := logging.DefaultConfig()
	logCfg.Level = logging.ParseLevel(cfg.Logging.Level)
	logCfg.Format = cfg.Logging.Format
	logCfg.FilePath = cfg.Logging.File

	log = logging.New(logCfg)
	logging.SetGlobal(log)
	if verbose {
		logging.SetLevel(logging.LevelDebug)
	}

	log.Debug("[CLI] config %s, data dir %s", configPath(), cfg.Data.Dir)
	return nil
}

// ═══════════════════════════════════════════════════════════════════════════════
// CONFIG
// ═══════════════════════════════════════════════════════════════════════════════

func configPath() string {
	if cfgPath != "" {
		return cfgPath
	}
	path, err := config.DefaultPath()
	if err != nil {
		return ".pmcortex/config.yaml"
	}
	return path
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadFromPath(configPath())
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			redacted := *cfg
			redacted.Git.Token = mask(cfg.Git.Token)
			redacted.LLM.Providers = make(map[string]config.ProviderConfig, len(cfg.LLM.Providers))
			for name, pc := range cfg.LLM.Providers {
				pc.APIKey = mask(pc.APIKey)
				redacted.LLM.Providers[name] = pc
			}

			out, err := yaml.Marshal(&redacted)
			if err != nil {
				return err
			}
			fmt.Print(string(out))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(configPath())
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Check the configuration for errors",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			fmt.Println("configuration OK")
			return nil
		},
	})

	return cmd
}

func mask(secret string) string {
	if secret == "" {
		return ""
	}
	return "****"
}
