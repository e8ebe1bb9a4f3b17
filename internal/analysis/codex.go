package analysis

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/normanking/pmcortex/internal/logging"
	"github.com/normanking/pmcortex/internal/metrics"
)

// maxStderr bounds how much analyzer stderr is carried in an error.
const maxStderr = 2000

// CodexRunner runs the codex CLI against a checked-out repository in a
// read-only sandbox.
type CodexRunner struct {
	// Path is the codex binary, resolved through PATH when not absolute.
	Path string
	// Model is passed with --model when set.
	Model string
	// Timeout bounds one invocation; zero leaves only the caller's deadline.
	Timeout time.Duration

	log *logging.Logger
}

// NewCodexRunner creates a runner for the given binary.
func NewCodexRunner(path, model string, timeout time.Duration) *CodexRunner {
	if path == "" {
		path = "codex"
	}
	return &CodexRunner{
		Path:    path,
		Model:   model,
		Timeout: timeout,
		log:     logging.Global().WithComponent("analysis"),
	}
}

// Analyze implements Analyzer. The mode template is applied to prompt and
// the result is written to stdin of:
//
//	codex exec -C <repo> --sandbox read-only --color never --output-last-message <tmp> -
//
// The final message file is preferred over stdout.
func (r *CodexRunner) Analyze(ctx context.Context, repoPath, prompt string, mode Mode) (out string, err error) {
	start := time.Now()
	defer func() {
		metrics.AnalysisDuration.WithLabelValues(string(mode), outcome(err)).Observe(time.Since(start).Seconds())
	}()

	if repoPath == "" {
		return "", fmt.Errorf("%w: no repository path", ErrUnavailable)
	}
	if info, statErr := os.Stat(repoPath); statErr != nil || !info.IsDir() {
		return "", fmt.Errorf("%w: repository %s not found", ErrUnavailable, repoPath)
	}

	bin, lookErr := exec.LookPath(r.Path)
	if lookErr != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, lookErr)
	}

	tmp, err := os.CreateTemp("", "codex-last-message-*.txt")
	if err != nil {
		return "", fmt.Errorf("create output file: %w", err)
	}
	outputPath := tmp.Name()
	tmp.Close()
	defer os.Remove(outputPath)

	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	args := []string{"exec", "-C", repoPath, "--sandbox", "read-only", "--color", "never"}
	if r.Model != "" {
		args = append(args, "--model", r.Model)
	}
	args = append(args, "--output-last-message", outputPath, "-")

	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Dir = repoPath
	cmd.Stdin = strings.NewReader(AnalyzerPrompt(mode, prompt))
	cmd.WaitDelay = 5 * time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	r.log.Debug("running %s analysis in %s", mode, repoPath)

	if runErr := cmd.Run(); runErr != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("%w: %s analysis after %v", ErrTimeout, mode, time.Since(start).Round(time.Second))
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("%w: codex exited: %v: %s", ErrUnavailable, runErr, tail(stderr.String(), maxStderr))
	}

	if data, readErr := os.ReadFile(outputPath); readErr == nil {
		if text := strings.TrimSpace(string(data)); text != "" {
			return text, nil
		}
	} else {
		r.log.Warn("read codex output file: %v", readErr)
	}

	text := strings.TrimSpace(stdout.String())
	if text == "" {
		return "", fmt.Errorf("%w: codex produced no output", ErrMalformed)
	}
	return text, nil
}

func tail(s string, max int) string {
	s = strings.TrimSpace(s)
	if len(s) <= max {
		return s
	}
	return "..." + s[len(s)-max:]
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrUnavailable):
		return "unavailable"
	case errors.Is(err, ErrMalformed):
		return "malformed"
	default:
		return "error"
	}
}
