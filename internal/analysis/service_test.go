package analysis

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAnalyzer struct {
	out   string
	err   error
	calls []Mode
	input []string
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, repoPath, prompt string, mode Mode) (string, error) {
	f.calls = append(f.calls, mode)
	f.input = append(f.input, prompt)
	return f.out, f.err
}

type fakeCompleter struct {
	out     string
	err     error
	prompts []string
}

func (f *fakeCompleter) Complete(ctx context.Context, system, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	return f.out, f.err
}

func TestService_Feasibility(t *testing.T) {
	a := &fakeAnalyzer{out: "codex says: touches accounts"}
	c := &fakeCompleter{out: feasibilityText}
	s := NewService(a, c, 0)

	r, err := s.Feasibility(context.Background(), "/repo", "Add OAuth2 login", "enterprise customers")
	require.NoError(t, err)

	assert.Equal(t, []Mode{ModeFeasibility}, a.calls)
	assert.Equal(t, "Add OAuth2 login\n\nContext: enterprise customers", a.input[0])
	require.Len(t, c.prompts, 1)
	assert.Contains(t, c.prompts[0], "codex says: touches accounts")
	assert.Equal(t, "Medium", r.Feasibility)
	assert.Equal(t, "enterprise customers", r.Context)
}

func TestService_Feature(t *testing.T) {
	a := &fakeAnalyzer{out: strings.Repeat("y", 9000)}
	c := &fakeCompleter{out: featureText}
	s := NewService(a, c, 100)

	r, err := s.Feature(context.Background(), "/repo", "Payments", "how do payments work")
	require.NoError(t, err)
	assert.Equal(t, "Payments", r.Name)
	assert.Equal(t, []Mode{ModeFeature}, a.calls)
	assert.Contains(t, c.prompts[0], "[Truncated: analysis exceeded 100 characters]")
}

func TestService_ErrorsPropagate(t *testing.T) {
	a := &fakeAnalyzer{err: ErrTimeout}
	s := NewService(a, &fakeCompleter{}, 0)
	_, err := s.Feature(context.Background(), "/repo", "x", "x")
	assert.ErrorIs(t, err, ErrTimeout)

	llmDown := errors.New("provider down")
	s = NewService(&fakeAnalyzer{out: "ok"}, &fakeCompleter{err: llmDown}, 0)
	_, err = s.Feasibility(context.Background(), "/repo", "r", "")
	assert.ErrorIs(t, err, llmDown)

	s = NewService(&fakeAnalyzer{out: "ok"}, &fakeCompleter{out: "no headings"}, 0)
	_, err = s.Feature(context.Background(), "/repo", "x", "x")
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestService_DiscoverAndSummarize(t *testing.T) {
	s := NewService(&fakeAnalyzer{out: "1. Billing\n2. Search"}, &fakeCompleter{}, 0)
	names, err := s.DiscoverFeatures(context.Background(), "/repo", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"Billing", "Search"}, names)

	c := &fakeCompleter{out: "## Project Summary\nA shop.\n## Tech Stack\n- Go"}
	s = NewService(&fakeAnalyzer{out: "overview"}, c, 0)
	sum, err := s.Summarize(context.Background(), "/repo", "shop")
	require.NoError(t, err)
	assert.Equal(t, "A shop.", sum.Summary)
	assert.Equal(t, []string{"Go"}, sum.TechStack)
	assert.Contains(t, c.prompts[0], "Project Name: shop")
}
