package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/normanking/pmcortex/internal/orchestrator"
	"github.com/normanking/pmcortex/internal/projects"
	"github.com/normanking/pmcortex/internal/scheduler"
	"github.com/normanking/pmcortex/internal/server"
)

// shutdownGrace bounds how long background work may finish on exit.
const shutdownGrace = 30 * time.Second

// ═══════════════════════════════════════════════════════════════════════════════
// SERVE
// ═══════════════════════════════════════════════════════════════════════════════

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, cleanup, err := initializeApp()
			if err != nil {
				return err
			}
			defer cleanup()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv := server.New(&server.Config{
				Host:         a.cfg.Server.Host,
				Port:         a.cfg.Server.Port,
				ReadTimeout:  a.cfg.Server.ReadTimeout,
				WriteTimeout: a.cfg.Server.WriteTimeout,
				IdleTimeout:  a.cfg.Server.IdleTimeout,
			}, server.Deps{
				Store:        a.store,
				Orchestrator: a.orchestrator,
				Discovery:    a.discovery,
				Projects:     a.projects,
				Provider:     a.completer.Provider,
				Classifier:   a.classifier,
				Version:      version,
			})

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				return srv.Start(gctx)
			})

			if a.cfg.Scheduler.Enabled {
				sched, err := scheduler.NewScheduler(a.projects, a.cfg.Scheduler.SyncSpec)
				if err != nil {
					return err
				}
				sched.Start()
				g.Go(func() error {
					<-gctx.Done()
					sched.Stop()
					return nil
				})
			}

			runErr := g.Wait()

			drainCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
			defer cancel()
			if err := a.discovery.Shutdown(drainCtx); err != nil {
				log.Warn("[CLI] discovery did not drain: %v", err)
			}
			if err := a.projects.Wait(drainCtx); err != nil {
				log.Warn("[CLI] project summaries did not drain: %v", err)
			}
			return runErr
		},
	}
}

// ═══════════════════════════════════════════════════════════════════════════════
// REGISTER
// ═══════════════════════════════════════════════════════════════════════════════

func registerCmd() *cobra.Command {
	var (
		projectID   string
		description string
	)

	cmd := &cobra.Command{
		Use:   "register [github-repo-url]",
		Short: "Clone a repository and register it as a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, cleanup, err := initializeApp()
			if err != nil {
				return err
			}
			defer cleanup()

			project, err := a.projects.Register(cmd.Context(), projects.RegisterRequest{
				GitHubRepo:  args[0],
				ProjectID:   projectID,
				Description: description,
			})
			if err != nil {
				return err
			}
			fmt.Printf("Registered %s at %s\n", project.ID, project.RepoPath)

			fmt.Println("Summarizing...")
			if err := a.projects.Wait(cmd.Context()); err != nil {
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&projectID, "id", "", "project ID (default: generated)")
	cmd.Flags().StringVar(&description, "description", "", "short project description")
	return cmd
}

// ═══════════════════════════════════════════════════════════════════════════════
// DISCOVER
// ═══════════════════════════════════════════════════════════════════════════════

func discoverCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "discover [project-id]",
		Short: "Discover the features of a project and wait for the result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, cleanup, err := initializeApp()
			if err != nil {
				return err
			}
			defer cleanup()

			result, err := a.discovery.Enqueue(cmd.Context(), args[0], force)
			if err != nil {
				return err
			}
			fmt.Printf("Discovery %s\n", result.Status)

			job, err := a.discovery.Wait(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if job.Error != "" {
				return errors.New(job.Error)
			}

			features, err := a.store.ListFeatures(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Printf("%d features:\n", len(features))
			for _, f := range features {
				fmt.Printf("  %s  %s\n", f.ID, f.Name)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "re-run even if features were already discovered")
	return cmd
}

// ═══════════════════════════════════════════════════════════════════════════════
// ASK
// ═══════════════════════════════════════════════════════════════════════════════

func askCmd() *cobra.Command {
	var (
		projectID   string
		chatID      string
		featureID   string
		feasibility bool
		asJSON      bool
	)

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask a question about a project (one-shot request)",
		Long: `Send one request through the orchestrator.

Examples:
  pmcortex ask --project shop "What can shoppers do at checkout?"
  pmcortex ask --project shop --feasibility "Add OAuth2 login"
  pmcortex ask --project shop --feature <feature-id> "How are refunds handled?"
  pmcortex ask --chat <chat-id> "What are the risks?"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")

			a, cleanup, err := initializeApp()
			if err != nil {
				return err
			}
			defer cleanup()

			env := orchestrator.Envelope{ProjectID: projectID, ChatID: chatID}
			switch {
			case feasibility:
				env.Requirement = text
			case featureID != "":
				env.FeatureID = featureID
				env.Query = text
			default:
				env.Message = text
			}

			resp, err := a.orchestrator.Run(cmd.Context(), env)
			if err != nil {
				return fmt.Errorf("%s: %w", orchestrator.Kind(err), err)
			}

			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(resp)
			}
			fmt.Println(resp.Reply)
			fmt.Printf("\n[%s via %s, chat %s]\n", resp.Intent, resp.Path, resp.ChatID)
			return nil
		},
	}

	cmd.Flags().StringVar(&projectID, "project", "", "project ID")
	cmd.Flags().StringVar(&chatID, "chat", "", "continue an existing chat")
	cmd.Flags().StringVar(&featureID, "feature", "", "analyse a discovered feature")
	cmd.Flags().BoolVar(&feasibility, "feasibility", false, "treat the question as a new requirement")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full response as JSON")
	return cmd
}
