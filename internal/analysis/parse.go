package analysis

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	maxListItems  = 20
	maxTextLength = 2000
	maxTechStack  = 50
)

// Section returns the body under a "## Heading" line, up to the next
// heading. Headings match case-insensitively and ignore a trailing colon
// or bold markers. The bool reports whether the heading was present.
func Section(text, heading string) (string, bool) {
	want := normalizeHeading(heading)
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")

	start := -1
	for i, line := range lines {
		if isHeading(line) && normalizeHeading(line) == want {
			start = i + 1
			break
		}
	}
	if start < 0 {
		return "", false
	}

	end := len(lines)
	for j := start; j < len(lines); j++ {
		if isHeading(lines[j]) {
			end = j
			break
		}
	}

	return strings.TrimSpace(strings.Join(lines[start:end], "\n")), true
}

func isHeading(line string) bool {
	return strings.HasPrefix(strings.TrimSpace(line), "##")
}

func normalizeHeading(h string) string {
	h = strings.TrimSpace(h)
	h = strings.TrimLeft(h, "#")
	h = strings.TrimSpace(h)
	h = strings.Trim(h, "*")
	h = strings.TrimSuffix(h, ":")
	return strings.ToLower(strings.TrimSpace(h))
}

var listMarker = regexp.MustCompile(`^(?:[-*•]+|\d+[.)])\s*`)

// BulletList splits a section body into items, one per non-empty line,
// with bullet or number markers removed. At most max items are kept.
func BulletList(body string, max int) []string {
	items := []string{}
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		item := strings.TrimSpace(listMarker.ReplaceAllString(line, ""))
		if item == "" {
			continue
		}
		items = append(items, item)
		if max > 0 && len(items) == max {
			break
		}
	}
	return items
}

func clip(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

// ParseFeatureResult parses formatted feature analysis text. The
// "## Feature Overview" section is required.
func ParseFeatureResult(name, text string) (*FeatureResult, error) {
	overview, ok := Section(text, HeadingFeatureOverview)
	if !ok || overview == "" {
		return nil, fmt.Errorf("%w: missing %q section", ErrMalformed, HeadingFeatureOverview)
	}

	capabilities, _ := Section(text, HeadingKeyCapabilities)
	integration, _ := Section(text, HeadingProductIntegration)
	deps, _ := Section(text, HeadingDependencies)
	considerations, _ := Section(text, HeadingConsiderations)
	limitations, _ := Section(text, HeadingLimitations)

	return &FeatureResult{
		Name:              name,
		Overview:          clip(overview, maxTextLength),
		HighLevelDesign:   clip(integration, maxTextLength),
		Scope:             BulletList(capabilities, maxListItems),
		Dependencies:      BulletList(deps, maxListItems),
		KeyConsiderations: BulletList(considerations, maxListItems),
		Limitations:       BulletList(limitations, maxListItems),
		Raw:               strings.TrimSpace(text),
	}, nil
}

var feasibilityLevel = regexp.MustCompile(`(?i)\b(high|medium|low)\b`)

// ParseFeasibilityResult parses formatted feasibility text. The
// "## High-Level Approach" and "## Feasibility Assessment" sections are
// required.
func ParseFeasibilityResult(requirement, context, text string) (*FeasibilityResult, error) {
	approach, ok := Section(text, HeadingHighLevelApproach)
	if !ok || approach == "" {
		return nil, fmt.Errorf("%w: missing %q section", ErrMalformed, HeadingHighLevelApproach)
	}
	assessment, ok := Section(text, HeadingFeasibility)
	if !ok || assessment == "" {
		return nil, fmt.Errorf("%w: missing %q section", ErrMalformed, HeadingFeasibility)
	}

	result := &FeasibilityResult{
		Requirement:     requirement,
		Context:         context,
		HighLevelDesign: approach,
		Feasibility:     "Unknown",
		Risks:           []string{},
		OpenQuestions:   []string{},
		Raw:             strings.TrimSpace(text),
	}

	if m := feasibilityLevel.FindStringSubmatch(assessment); m != nil {
		level := strings.ToLower(m[1])
		result.Feasibility = strings.ToUpper(level[:1]) + level[1:]
	}

	risks, ok := Section(text, HeadingRisksChallenges)
	if !ok {
		risks, _ = Section(text, HeadingRisks)
	}
	result.Risks = BulletList(risks, maxListItems)

	questions, _ := Section(text, HeadingOpenQuestions)
	result.OpenQuestions = BulletList(questions, maxListItems)

	result.RoughEstimate, _ = Section(text, HeadingRoughEstimate)

	if tasks, ok := Section(text, HeadingTaskBreakdown); ok {
		result.TaskBreakdown = parseTaskBreakdown(tasks)
	}

	return result, nil
}

func parseTaskBreakdown(body string) TaskBreakdown {
	lower := strings.ToLower(body)
	return TaskBreakdown{
		Raw:            body,
		Design:         strings.Contains(lower, "design"),
		Spike:          strings.Contains(lower, "spike") || strings.Contains(lower, "research"),
		POC:            strings.Contains(lower, "poc") || strings.Contains(lower, "proof of concept"),
		Implementation: strings.Contains(lower, "implementation"),
		QA: strings.Contains(lower, "qa") || strings.Contains(lower, "testing") ||
			strings.Contains(lower, "quality assurance"),
	}
}

// ParseSummary parses a formatted project summary. At least one of the
// three sections must be present.
func ParseSummary(text string) (*Summary, error) {
	summary, hasSummary := Section(text, HeadingProjectSummary)
	purpose, hasPurpose := Section(text, HeadingProjectPurpose)
	stack, hasStack := Section(text, HeadingTechStack)

	if !hasSummary && !hasPurpose && !hasStack {
		return nil, fmt.Errorf("%w: no summary sections", ErrMalformed)
	}

	return &Summary{
		Summary:   summary,
		Purpose:   purpose,
		TechStack: BulletList(stack, maxTechStack),
	}, nil
}
