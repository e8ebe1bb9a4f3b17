package gitrepo

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newUpstream creates a local repository with one commit on master.
func newUpstream(t *testing.T) (string, *git.Repository) {
	t.Helper()

	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)

	commitFile(t, repo, dir, "README.md", "# shop\n")
	return dir, repo
}

func commitFile(t *testing.T, repo *git.Repository, dir, name, content string) string {
	t.Helper()

	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	wt, err := repo.Worktree()
	require.NoError(t, err)
	_, err = wt.Add(name)
	require.NoError(t, err)

	hash, err := wt.Commit("update "+name, &git.CommitOptions{
		Author: &object.Signature{Name: "Dev", Email: "dev@example.com", When: time.Now()},
	})
	require.NoError(t, err)
	return hash.String()
}

func TestSync_CloneThenPull(t *testing.T) {
	upstreamDir, upstream := newUpstream(t)
	m := NewManager(t.TempDir(), "master", "")
	ctx := context.Background()

	res, err := m.Sync(ctx, "shop", upstreamDir)
	require.NoError(t, err)
	assert.True(t, res.Cloned)
	assert.FileExists(t, filepath.Join(res.Path, "README.md"))

	// Nothing new upstream.
	again, err := m.Sync(ctx, "shop", upstreamDir)
	require.NoError(t, err)
	assert.False(t, again.Cloned)
	assert.Equal(t, res.Head, again.Head)

	head := commitFile(t, upstream, upstreamDir, "CHANGELOG.md", "v2\n")
	pulled, err := m.Sync(ctx, "shop", upstreamDir)
	require.NoError(t, err)
	assert.False(t, pulled.Cloned)
	assert.Equal(t, head, pulled.Head)
	assert.FileExists(t, filepath.Join(pulled.Path, "CHANGELOG.md"))
}

func TestSync_CloneFailureLeavesNothing(t *testing.T) {
	base := t.TempDir()
	m := NewManager(base, "master", "")

	_, err := m.Sync(context.Background(), "ghost", filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
	assert.NoDirExists(t, filepath.Join(base, "ghost"))
}

func TestPath(t *testing.T) {
	m := NewManager("/srv/repos", "", "")

	p, err := m.Path("shop-1")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/srv/repos", "shop-1"), p)

	for _, bad := range []string{"", "../etc", "a/b", ".hidden"} {
		_, err := m.Path(bad)
		assert.ErrorIs(t, err, ErrInvalidProjectID, bad)
	}

	assert.Equal(t, DefaultBranch, m.branch)
}
