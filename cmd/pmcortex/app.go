package main

import (
	"fmt"

	"github.com/normanking/pmcortex/internal/analysis"
	"github.com/normanking/pmcortex/internal/config"
	"github.com/normanking/pmcortex/internal/data"
	"github.com/normanking/pmcortex/internal/discovery"
	"github.com/normanking/pmcortex/internal/gitrepo"
	"github.com/normanking/pmcortex/internal/llm"
	"github.com/normanking/pmcortex/internal/orchestrator"
	"github.com/normanking/pmcortex/internal/projects"
	"github.com/normanking/pmcortex/internal/router"
)

// app holds the wired services shared by every command.
type app struct {
	cfg          *config.Config
	store        *data.Store
	completer    *llm.Completer
	classifier   *router.Classifier
	analysis     *analysis.Service
	orchestrator *orchestrator.Orchestrator
	discovery    *discovery.Coordinator
	projects     *projects.Service
}

func initializeApp() (*app, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid config: %w", err)
	}

	store, err := data.NewDB(cfg.Data.Dir)
	if err != nil {
		return nil, nil, fmt.Errorf("open store: %w", err)
	}

	completer, err := llm.NewCompleter(cfg)
	if err != nil {
		store.Close()
		return nil, nil, fmt.Errorf("create LLM provider: %w", err)
	}
	if !completer.Available() {
		log.Warn("[CLI] LLM provider %s is not configured; analysis will fail", completer.Provider.Name())
	}

	codex := analysis.NewCodexRunner(cfg.Analysis.CodexPath, cfg.Analysis.Model, cfg.Analysis.Timeout)
	svc := analysis.NewService(codex, completer, cfg.Analysis.MaxOutput)

	classifier := router.NewClassifier(completer, router.WithClassifyTimeout(cfg.Router.ClassifyTimeout))

	orch, err := orchestrator.New(orchestrator.Config{
		Store:        store,
		Classifier:   classifier,
		Analysis:     svc,
		HistoryTurns: cfg.Orchestrator.HistoryTurns,
	})
	if err != nil {
		store.Close()
		return nil, nil, err
	}

	a := &app{
		cfg:          cfg,
		store:        store,
		completer:    completer,
		classifier:   classifier,
		analysis:     svc,
		orchestrator: orch,
		discovery: discovery.NewCoordinator(discovery.Config{
			Store:       store,
			Analysis:    svc,
			Timeout:     cfg.Discovery.Timeout,
			Concurrency: cfg.Discovery.Concurrency,
			MaxFeatures: cfg.Discovery.MaxFeatures,
		}),
		projects: projects.NewService(store,
			gitrepo.NewManager(cfg.Git.RepoBasePath, cfg.Git.Branch, cfg.Git.Token), svc),
	}

	cleanup := func() {
		if err := store.Close(); err != nil {
			log.Warn("[CLI] close store: %v", err)
		}
		if err := log.Close(); err != nil {
			fmt.Printf("close log: %v\n", err)
		}
	}
	return a, cleanup, nil
}
