// Package projects registers repositories and keeps their checkouts and
// summaries current.
package projects

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/normanking/pmcortex/internal/analysis"
	"github.com/normanking/pmcortex/internal/data"
	"github.com/normanking/pmcortex/internal/gitrepo"
	"github.com/normanking/pmcortex/internal/logging"
)

// ErrInvalidRequest is returned for a registration without a repository.
var ErrInvalidRequest = errors.New("invalid project registration")

// DefaultSummaryTimeout bounds one background summary.
const DefaultSummaryTimeout = 15 * time.Minute

// Syncer clones or updates a project checkout.
type Syncer interface {
	Sync(ctx context.Context, projectID, url string) (*gitrepo.Result, error)
}

// RegisterRequest describes a repository to register.
type RegisterRequest struct {
	GitHubRepo  string `json:"github_repo"`
	Description string `json:"description,omitempty"`
	ProjectID   string `json:"project_id,omitempty"`
}

// Service registers projects and produces their summaries in the background.
type Service struct {
	store          *data.Store
	repos          Syncer
	analysis       *analysis.Service
	summaryTimeout time.Duration

	wg  sync.WaitGroup
	log *logging.Logger
}

// NewService creates a project service. A nil analysis service disables
// background summaries.
func NewService(store *data.Store, repos Syncer, svc *analysis.Service) *Service {
	return &Service{
		store:          store,
		repos:          repos,
		analysis:       svc,
		summaryTimeout: DefaultSummaryTimeout,
		log:            logging.Global().WithComponent("projects"),
	}
}

// Register clones the repository and records the project. Registering an
// existing project ID pulls instead. A summary is generated afterwards
// without blocking the caller.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*data.Project, error) {
	req.GitHubRepo = strings.TrimSpace(req.GitHubRepo)
	if req.GitHubRepo == "" {
		return nil, fmt.Errorf("%w: github_repo is required", ErrInvalidRequest)
	}
	if req.ProjectID == "" {
		req.ProjectID = uuid.NewString()
	}

	synced, err := s.repos.Sync(ctx, req.ProjectID, req.GitHubRepo)
	if err != nil {
		if errors.Is(err, gitrepo.ErrInvalidProjectID) {
			return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
		}
		return nil, fmt.Errorf("sync repository: %w", err)
	}

	project, err := s.store.GetProject(ctx, req.ProjectID)
	switch {
	case err == nil:
		if err := s.store.TouchProject(ctx, project.ID); err != nil {
			return nil, err
		}
		s.log.Info("[Projects] refreshed %s from %s", project.ID, req.GitHubRepo)
	case errors.Is(err, data.ErrNotFound):
		project = &data.Project{
			ID:          req.ProjectID,
			GitHubRepo:  req.GitHubRepo,
			RepoPath:    synced.Path,
			Description: req.Description,
		}
		if err := s.store.CreateProject(ctx, project); err != nil {
			return nil, err
		}
		s.log.Info("[Projects] registered %s from %s", project.ID, req.GitHubRepo)
	default:
		return nil, err
	}

	s.summarizeAsync(ctx, project)
	return project, nil
}

func (s *Service) summarizeAsync(ctx context.Context, project *data.Project) {
	if s.analysis == nil {
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		bg, cancel := logging.DetachContextWithTimeout(ctx, s.summaryTimeout)
		defer cancel()

		if err := s.Summarize(bg, project); err != nil {
			s.log.Warn("[Projects] summary for %s failed: %v", project.ID, err)
		}
	}()
}

// Summarize generates and stores the summary, purpose and tech stack of
// a project.
func (s *Service) Summarize(ctx context.Context, project *data.Project) error {
	summary, err := s.analysis.Summarize(ctx, project.RepoPath, project.ID)
	if err != nil {
		return err
	}
	if err := s.store.UpdateProjectSummary(ctx, project.ID, summary.Summary, summary.Purpose, summary.TechStack); err != nil {
		return err
	}
	s.log.Debug("[Projects] stored summary for %s (%d stack items)", project.ID, len(summary.TechStack))
	return nil
}

// SyncAll pulls every registered project and returns how many failed.
func (s *Service) SyncAll(ctx context.Context) (int, error) {
	projects, err := s.store.ListProjects(ctx)
	if err != nil {
		return 0, err
	}

	failed := 0
	for _, p := range projects {
		if ctx.Err() != nil {
			return failed, ctx.Err()
		}
		if _, err := s.repos.Sync(ctx, p.ID, p.GitHubRepo); err != nil {
			failed++
			s.log.Warn("[Projects] sync %s: %v", p.ID, err)
			continue
		}
		if err := s.store.TouchProject(ctx, p.ID); err != nil {
			s.log.Warn("[Projects] touch %s: %v", p.ID, err)
		}
	}
	return failed, nil
}

// Wait blocks until background summaries finish or ctx is done.
func (s *Service) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
