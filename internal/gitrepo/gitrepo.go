// Package gitrepo keeps local checkouts of project repositories.
package gitrepo

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"

	"github.com/normanking/pmcortex/internal/logging"
	"github.com/normanking/pmcortex/internal/metrics"
)

// DefaultBranch is checked out when no branch is configured.
const DefaultBranch = "main"

// ErrInvalidProjectID is returned for IDs that are not safe directory names.
var ErrInvalidProjectID = errors.New("invalid project id")

var safeID = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// Manager clones and updates repositories under one base directory, one
// directory per project.
type Manager struct {
	basePath string
	branch   string
	token    string
	log      *logging.Logger
}

// Result describes a finished sync.
type Result struct {
	Path   string `json:"repo_path"`
	Cloned bool   `json:"cloned"`
	Head   string `json:"head"`
}

// NewManager creates a manager. token, when set, authenticates HTTPS remotes.
func NewManager(basePath, branch, token string) *Manager {
	if branch == "" {
		branch = DefaultBranch
	}
	return &Manager{
		basePath: basePath,
		branch:   branch,
		token:    token,
		log:      logging.Global().WithComponent("gitrepo"),
	}
}

// Path returns the checkout directory of a project.
func (m *Manager) Path(projectID string) (string, error) {
	if !safeID.MatchString(projectID) {
		return "", fmt.Errorf("%w: %q", ErrInvalidProjectID, projectID)
	}
	return filepath.Join(m.basePath, projectID), nil
}

// Sync clones url into the project's directory, or pulls when a checkout
// already exists.
func (m *Manager) Sync(ctx context.Context, projectID, url string) (*Result, error) {
	path, err := m.Path(projectID)
	if err != nil {
		return nil, err
	}

	result, err := m.sync(ctx, path, url)
	metrics.RepoSyncs.WithLabelValues(metrics.Outcome(err)).Inc()
	if err != nil {
		return nil, err
	}

	m.log.Info("[Git] %s %s at %s (%s)", syncVerb(result.Cloned), url, path, shortHash(result.Head))
	return result, nil
}

func (m *Manager) sync(ctx context.Context, path, url string) (*Result, error) {
	if _, err := os.Stat(filepath.Join(path, ".git")); err == nil {
		head, err := m.pull(ctx, path)
		if err != nil {
			return nil, err
		}
		return &Result{Path: path, Head: head}, nil
	}

	if err := os.MkdirAll(m.basePath, 0o755); err != nil {
		return nil, fmt.Errorf("create repo base path: %w", err)
	}

	repo, err := git.PlainCloneContext(ctx, path, false, &git.CloneOptions{
		URL:           url,
		Auth:          m.auth(),
		ReferenceName: plumbing.NewBranchReferenceName(m.branch),
		SingleBranch:  true,
	})
	if err != nil {
		_ = os.RemoveAll(path)
		return nil, fmt.Errorf("clone %s: %w", url, err)
	}

	head, err := repo.Head()
	if err != nil {
		return nil, fmt.Errorf("read head: %w", err)
	}
	return &Result{Path: path, Cloned: true, Head: head.Hash().String()}, nil
}

func (m *Manager) pull(ctx context.Context, path string) (string, error) {
	repo, err := git.PlainOpen(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("worktree: %w", err)
	}

	err = worktree.PullContext(ctx, &git.PullOptions{
		RemoteName:    git.DefaultRemoteName,
		ReferenceName: plumbing.NewBranchReferenceName(m.branch),
		SingleBranch:  true,
		Auth:          m.auth(),
	})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return "", fmt.Errorf("pull %s: %w", path, err)
	}

	head, err := repo.Head()
	if err != nil {
		return "", fmt.Errorf("read head: %w", err)
	}
	return head.Hash().String(), nil
}

func (m *Manager) auth() transport.AuthMethod {
	if m.token == "" {
		return nil
	}
	return &githttp.BasicAuth{Username: "x-access-token", Password: m.token}
}

func syncVerb(cloned bool) string {
	if cloned {
		return "cloned"
	}
	return "pulled"
}

func shortHash(h string) string {
	if len(h) > 8 {
		return h[:8]
	}
	return h
}
