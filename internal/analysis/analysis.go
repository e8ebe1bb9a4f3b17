// Package analysis wraps the code-repository analyzer and turns its free
// text into structured feature, feasibility and summary results.
//
// Every result goes through two stages: the Analyzer reads the repository
// and answers in prose, then a Completer rewrites that prose into a fixed
// "## Heading" layout which the parsers in this package understand.
package analysis

import (
	"context"
	"errors"
)

// Mode selects the analyzer prompt template.
type Mode string

const (
	ModeFeature     Mode = "feature"
	ModeFeasibility Mode = "feasibility"
	ModeDiscovery   Mode = "discovery"
	ModeSummary     Mode = "summary"
)

var (
	// ErrUnavailable means the analyzer could not run at all.
	ErrUnavailable = errors.New("analyzer unavailable")

	// ErrTimeout means the analyzer did not finish before its deadline.
	ErrTimeout = errors.New("analyzer timed out")

	// ErrMalformed means output was produced but could not be parsed.
	ErrMalformed = errors.New("malformed analysis result")
)

// Analyzer answers a prompt about the repository checked out at repoPath.
type Analyzer interface {
	Analyze(ctx context.Context, repoPath, prompt string, mode Mode) (string, error)
}

// Completer rewrites text with a language model.
type Completer interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// FeatureResult is the structured analysis of one product capability.
type FeatureResult struct {
	Name              string   `json:"feature_name"`
	Overview          string   `json:"high_level_overview"`
	HighLevelDesign   string   `json:"high_level_design,omitempty"`
	Scope             []string `json:"scope"`
	Dependencies      []string `json:"dependencies"`
	KeyConsiderations []string `json:"key_considerations"`
	Limitations       []string `json:"limitations"`
	Raw               string   `json:"-"`
}

// TaskBreakdown flags which kinds of work a requirement needs.
type TaskBreakdown struct {
	Raw            string `json:"raw_text,omitempty"`
	Design         bool   `json:"design"`
	Spike          bool   `json:"spike"`
	POC            bool   `json:"poc"`
	Implementation bool   `json:"implementation"`
	QA             bool   `json:"qa"`
}

// FeasibilityResult is the structured assessment of a new requirement.
type FeasibilityResult struct {
	Requirement     string        `json:"requirement"`
	Context         string        `json:"context,omitempty"`
	HighLevelDesign string        `json:"high_level_design"`
	Risks           []string      `json:"risks"`
	OpenQuestions   []string      `json:"open_questions"`
	Feasibility     string        `json:"technical_feasibility"`
	RoughEstimate   string        `json:"rough_estimate"`
	TaskBreakdown   TaskBreakdown `json:"task_breakdown"`
	Raw             string        `json:"-"`
}

// Summary describes a whole project.
type Summary struct {
	Summary   string   `json:"summary"`
	Purpose   string   `json:"purpose"`
	TechStack []string `json:"tech_stack"`
}
