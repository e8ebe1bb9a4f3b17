package analysis

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeFakeCodex creates an executable shell script standing in for codex.
// The body runs after $out holds the --output-last-message path and $in
// holds stdin.
func writeFakeCodex(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake codex needs a POSIX shell")
	}

	script := `#!/bin/sh
out=""
while [ $# -gt 0 ]; do
  if [ "$1" = "--output-last-message" ]; then out="$2"; shift; fi
  shift
done
in=$(cat)
` + body + "\n"

	path := filepath.Join(t.TempDir(), "codex")
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

func TestCodexRunner_OutputFile(t *testing.T) {
	bin := writeFakeCodex(t, `printf 'final answer\n' > "$out"; echo "noise on stdout"`)
	repo := t.TempDir()

	r := NewCodexRunner(bin, "", time.Minute)
	out, err := r.Analyze(context.Background(), repo, "what does billing do", ModeFeature)
	require.NoError(t, err)
	assert.Equal(t, "final answer", out)
}

func TestCodexRunner_PromptOnStdin(t *testing.T) {
	bin := writeFakeCodex(t, `printf '%s' "$in"`)

	r := NewCodexRunner(bin, "", time.Minute)
	out, err := r.Analyze(context.Background(), t.TempDir(), "Add OAuth2 login", ModeFeasibility)
	require.NoError(t, err)
	assert.Contains(t, out, "Requirement/Query:\nAdd OAuth2 login")
	assert.Contains(t, out, "product strategist")
}

func TestCodexRunner_StdoutFallback(t *testing.T) {
	bin := writeFakeCodex(t, `echo "1. Billing"; echo "2. Search"`)

	r := NewCodexRunner(bin, "", time.Minute)
	out, err := r.Analyze(context.Background(), t.TempDir(), "", ModeDiscovery)
	require.NoError(t, err)
	assert.Equal(t, "1. Billing\n2. Search", out)
}

func TestCodexRunner_ModelFlag(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("fake codex needs a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "codex")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\ncat >/dev/null\necho \"$@\"\n"), 0o755))

	r := NewCodexRunner(path, "o4-mini", time.Minute)
	out, err := r.Analyze(context.Background(), t.TempDir(), "q", ModeSummary)
	require.NoError(t, err)
	assert.Contains(t, out, "exec -C ")
	assert.Contains(t, out, "--sandbox read-only --color never --model o4-mini --output-last-message ")
	assert.True(t, strings.HasSuffix(out, " -"))
}

func TestCodexRunner_NonZeroExit(t *testing.T) {
	bin := writeFakeCodex(t, `echo "not logged in" >&2; exit 3`)

	r := NewCodexRunner(bin, "", time.Minute)
	_, err := r.Analyze(context.Background(), t.TempDir(), "q", ModeFeature)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Contains(t, err.Error(), "not logged in")
}

func TestCodexRunner_EmptyOutput(t *testing.T) {
	bin := writeFakeCodex(t, `true`)

	r := NewCodexRunner(bin, "", time.Minute)
	_, err := r.Analyze(context.Background(), t.TempDir(), "q", ModeFeature)
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestCodexRunner_Timeout(t *testing.T) {
	bin := writeFakeCodex(t, `exec sleep 10`)

	r := NewCodexRunner(bin, "", 100*time.Millisecond)
	start := time.Now()
	_, err := r.Analyze(context.Background(), t.TempDir(), "q", ModeFeature)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTimeout)
	assert.Less(t, time.Since(start), 8*time.Second)
}

func TestCodexRunner_Unavailable(t *testing.T) {
	r := NewCodexRunner(filepath.Join(t.TempDir(), "missing-codex"), "", time.Minute)
	_, err := r.Analyze(context.Background(), t.TempDir(), "q", ModeFeature)
	assert.ErrorIs(t, err, ErrUnavailable)

	bin := writeFakeCodex(t, `echo ok`)
	r = NewCodexRunner(bin, "", time.Minute)
	_, err = r.Analyze(context.Background(), "", "q", ModeFeature)
	assert.ErrorIs(t, err, ErrUnavailable)
	_, err = r.Analyze(context.Background(), filepath.Join(t.TempDir(), "nope"), "q", ModeFeature)
	assert.ErrorIs(t, err, ErrUnavailable)
}
