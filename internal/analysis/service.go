package analysis

import (
	"context"
	"fmt"
	"strings"
)

// Service runs the analyze-then-format pipeline for each result type.
type Service struct {
	Analyzer  Analyzer
	Completer Completer
	// MaxOutput caps analyzer text embedded in formatting prompts.
	MaxOutput int
}

// NewService creates a Service. A non-positive maxOutput uses DefaultMaxOutput.
func NewService(analyzer Analyzer, completer Completer, maxOutput int) *Service {
	if maxOutput <= 0 {
		maxOutput = DefaultMaxOutput
	}
	return &Service{Analyzer: analyzer, Completer: completer, MaxOutput: maxOutput}
}

// Feature analyses one capability of the repository. name labels the
// result; query is what the analyzer is asked.
func (s *Service) Feature(ctx context.Context, repoPath, name, query string) (*FeatureResult, error) {
	raw, err := s.Analyzer.Analyze(ctx, repoPath, query, ModeFeature)
	if err != nil {
		return nil, fmt.Errorf("analyze feature: %w", err)
	}

	formatted, err := s.Completer.Complete(ctx, FeatureSystemPrompt, FeaturePrompt(query, raw, s.MaxOutput))
	if err != nil {
		return nil, fmt.Errorf("format feature analysis: %w", err)
	}

	return ParseFeatureResult(name, formatted)
}

// Feasibility assesses a new requirement against the repository.
func (s *Service) Feasibility(ctx context.Context, repoPath, requirement, reqContext string) (*FeasibilityResult, error) {
	raw, err := s.Analyzer.Analyze(ctx, repoPath, FeasibilityQuery(requirement, reqContext), ModeFeasibility)
	if err != nil {
		return nil, fmt.Errorf("analyze feasibility: %w", err)
	}

	formatted, err := s.Completer.Complete(ctx, FeasibilitySystemPrompt,
		FeasibilityPrompt(requirement, reqContext, raw, s.MaxOutput))
	if err != nil {
		return nil, fmt.Errorf("format feasibility analysis: %w", err)
	}

	return ParseFeasibilityResult(requirement, reqContext, formatted)
}

// DiscoverFeatures lists the product capabilities of the repository.
func (s *Service) DiscoverFeatures(ctx context.Context, repoPath string, max int) ([]string, error) {
	raw, err := s.Analyzer.Analyze(ctx, repoPath, "", ModeDiscovery)
	if err != nil {
		return nil, fmt.Errorf("discover features: %w", err)
	}
	return ParseFeatureList(raw, max), nil
}

// Summarize describes the whole project.
func (s *Service) Summarize(ctx context.Context, repoPath, projectName string) (*Summary, error) {
	raw, err := s.Analyzer.Analyze(ctx, repoPath, "", ModeSummary)
	if err != nil {
		return nil, fmt.Errorf("analyze project: %w", err)
	}

	formatted, err := s.Completer.Complete(ctx, SummarySystemPrompt, SummaryPrompt(projectName, raw, s.MaxOutput))
	if err != nil {
		return nil, fmt.Errorf("format project summary: %w", err)
	}

	return ParseSummary(formatted)
}

// ContextText renders the result for use as a chat session's analysis context.
func (r *FeatureResult) ContextText() string {
	if r.Raw != "" {
		return r.Raw
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\n%s\n", HeadingFeatureOverview, r.Overview)
	writeList(&b, HeadingKeyCapabilities, r.Scope)
	writeList(&b, HeadingDependencies, r.Dependencies)
	writeList(&b, HeadingConsiderations, r.KeyConsiderations)
	writeList(&b, HeadingLimitations, r.Limitations)
	return strings.TrimSpace(b.String())
}

// ContextText renders the result for use as a chat session's analysis context.
func (r *FeasibilityResult) ContextText() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Requirement: %s\n", r.Requirement)
	if r.Context != "" {
		fmt.Fprintf(&b, "Context: %s\n", r.Context)
	}
	b.WriteString("\n")
	if r.Raw != "" {
		b.WriteString(r.Raw)
		return strings.TrimSpace(b.String())
	}
	fmt.Fprintf(&b, "%s\n%s\n\n%s\n%s\n", HeadingHighLevelApproach, r.HighLevelDesign, HeadingFeasibility, r.Feasibility)
	writeList(&b, HeadingRisksChallenges, r.Risks)
	writeList(&b, HeadingOpenQuestions, r.OpenQuestions)
	if r.RoughEstimate != "" {
		fmt.Fprintf(&b, "\n%s\n%s\n", HeadingRoughEstimate, r.RoughEstimate)
	}
	return strings.TrimSpace(b.String())
}

func writeList(b *strings.Builder, heading string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "\n%s\n", heading)
	for _, item := range items {
		fmt.Fprintf(b, "- %s\n", item)
	}
}
