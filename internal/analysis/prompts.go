package analysis

import (
	"fmt"
	"strings"
)

// DefaultMaxOutput caps analyzer text embedded in a formatting prompt.
const DefaultMaxOutput = 6000

// Truncate shortens analyzer output to max characters and marks the cut.
// Empty output becomes "N/A".
func Truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "N/A"
	}
	if max <= 0 || len(s) <= max {
		return s
	}
	return s[:max] + fmt.Sprintf("\n\n[Truncated: analysis exceeded %d characters]", max)
}

// ═══════════════════════════════════════════════════════════════════════════════
// ANALYZER PROMPTS
// ═══════════════════════════════════════════════════════════════════════════════

const analyzerRules = `Rules:
- Read-only analysis
- Do NOT write or modify code
- Do NOT run destructive commands
- Write for product managers, NOT engineers
- Focus on business impact, user experience, and product considerations
- Use plain language, avoid technical jargon when possible`

const featureAnalyzerTemplate = `You are a product analyst helping a product manager understand an existing capability of this product.

%s

Task:
- Explain what the capability does for users and the business
- Describe the main user workflows and business rules it covers
- Identify which other capabilities it depends on or feeds into
- Call out limitations, edge cases and product considerations

Query:
%s`

const feasibilityAnalyzerTemplate = `You are a product strategist and business analyst helping a product manager understand the feasibility and effort required for a new feature or requirement.

%s
- Estimation MUST assume agentic coding tools are used during development
- Estimation must be deterministic: similar complexities yield similar estimates

Task:
- Identify what parts of the product will be affected (in business terms)
- Highlight existing capabilities and patterns that can be leveraged
- Call out business risks, user experience concerns, and product implications
- Mention quality assurance considerations from a product perspective
- Provide a high-level product approach
- Provide an estimation (story points + time in hours) and a complexity/risk assessment
- Break the work into design, spike/research, proof of concept, implementation and QA tasks where needed

Story point mapping: 1=2-3h, 2=<1day, 3=2-3days, 5=<1week, 8=<1sprint, 13=should be broken down

Requirement/Query:
%s`

const discoveryAnalyzerPrompt = `You are a product domain analyst.

Your task is to analyze the codebase and output ONLY a numbered list of high-level product capabilities.

DO NOT ask questions.
DO NOT provide explanations.
DO NOT include conversational text.
Start immediately with the numbered list.

A capability is a broad, stable product domain that groups related functionality.
DO NOT list individual features, endpoints, APIs, workflows or low-level technical components.

Return between 5 and 10 capabilities as clear noun phrases.

OUTPUT FORMAT (MANDATORY):
1. Capability Name 1
2. Capability Name 2
3. Capability Name 3

If no capabilities are found, output nothing.`

const summaryAnalyzerPrompt = `You are a product strategist helping a product manager understand a software project. Analyze the codebase and provide a high-level overview from a product/business perspective.

%s

Provide:
1. What this project does (main purpose from a user/business perspective)
2. Key product capabilities (what users can do with this)
3. Business value and use cases (what problems it solves, who it serves)
4. Main product areas or domains
5. The main platforms and frameworks it is built on`

// AnalyzerPrompt builds the analyzer input for a mode. The input is the
// query or requirement for feature and feasibility modes and an optional
// extra instruction otherwise.
func AnalyzerPrompt(mode Mode, input string) string {
	switch mode {
	case ModeFeature:
		return fmt.Sprintf(featureAnalyzerTemplate, analyzerRules, input)
	case ModeFeasibility:
		return fmt.Sprintf(feasibilityAnalyzerTemplate, analyzerRules, input)
	case ModeDiscovery:
		return appendInstruction(discoveryAnalyzerPrompt, input)
	case ModeSummary:
		return appendInstruction(fmt.Sprintf(summaryAnalyzerPrompt, analyzerRules), input)
	default:
		return input
	}
}

func appendInstruction(prompt, extra string) string {
	if strings.TrimSpace(extra) == "" {
		return prompt
	}
	return prompt + "\n\n" + strings.TrimSpace(extra)
}

// FeasibilityQuery joins a requirement and its optional context into the
// analyzer query.
func FeasibilityQuery(requirement, context string) string {
	if strings.TrimSpace(context) == "" {
		return requirement
	}
	return requirement + "\n\nContext: " + context
}

// FeatureQuery is the analyzer query used for a discovered capability.
func FeatureQuery(name string) string {
	return fmt.Sprintf("Analyze the '%s' feature in this codebase. Provide a comprehensive analysis of what this feature does, its scope, dependencies, considerations, and limitations.", name)
}

// ═══════════════════════════════════════════════════════════════════════════════
// FORMATTING PROMPTS
// ═══════════════════════════════════════════════════════════════════════════════

// Section headings produced by the formatting prompts.
const (
	HeadingFeatureOverview    = "## Feature Overview"
	HeadingKeyCapabilities    = "## Key Capabilities"
	HeadingProductIntegration = "## Product Integration"
	HeadingDependencies       = "## Dependencies"
	HeadingConsiderations     = "## Considerations"
	HeadingLimitations        = "## Limitations"

	HeadingHighLevelApproach = "## High-Level Approach"
	HeadingFeasibility       = "## Feasibility Assessment"
	HeadingRisksChallenges   = "## Risks & Challenges"
	HeadingRisks             = "## Risks"
	HeadingOpenQuestions     = "## Open Questions"
	HeadingRoughEstimate     = "## Rough Estimate"
	HeadingTaskBreakdown     = "## Task Breakdown"

	HeadingProjectSummary = "## Project Summary"
	HeadingProjectPurpose = "## Project Purpose"
	HeadingTechStack      = "## Tech Stack"
)

// FeatureSystemPrompt steers the feature formatting call.
const FeatureSystemPrompt = `You are a product analyst helping product managers understand features in their codebase.
Write in business-friendly language. Focus on what features do from a user and product perspective, not technical implementation.
Avoid technical jargon, code references, file names, or API details. Be thorough and professional.`

// FeasibilitySystemPrompt steers the feasibility formatting call.
const FeasibilitySystemPrompt = `You are a product strategy advisor helping product managers understand feature feasibility.
Write in business-friendly language. Focus on product impact, user experience, and business considerations.
Avoid technical jargon, code references, or file names. Be thorough, realistic, and professional.`

// SummarySystemPrompt steers the project summary formatting call.
const SummarySystemPrompt = `You are a product strategy advisor helping product managers understand software projects.
Write in business-friendly language. Avoid code references or file names.`

const featureFormatTemplate = `You are a product analyst helping a product manager understand a feature in their codebase.

Given the codebase analysis and user query, produce a business-friendly feature analysis.

Rules:
- Write for a product manager, NOT for engineers
- Do NOT mention specific files, code, technical implementation details, or API endpoints
- Use plain language
- If details are missing, call them out as assumptions or unknowns
- Use bullet points under each heading

User Query:
%s

Codebase Analysis:
%s

Output format (use this structure exactly):

` + HeadingFeatureOverview + `
[What this feature does from a user and product perspective]

` + HeadingKeyCapabilities + `
- [What users can do with this feature]

` + HeadingProductIntegration + `
[How it fits into the overall product and user journey]

` + HeadingDependencies + `
- [Dependencies on other features, in business terms]

` + HeadingConsiderations + `
- [Considerations for product decisions or user experience]

` + HeadingLimitations + `
- [Known limitations, if any]`

// FeaturePrompt builds the formatting prompt for a feature analysis.
func FeaturePrompt(query, analyzerOutput string, maxOutput int) string {
	return fmt.Sprintf(featureFormatTemplate, query, Truncate(analyzerOutput, maxOutput))
}

const feasibilityFormatTemplate = `You are a product strategy advisor helping a product manager understand the feasibility of a new requirement.

Given the codebase analysis and new requirement, produce a business-friendly feasibility assessment.

Rules:
- Write for a product manager, NOT for engineers
- Do NOT mention specific files, code, or technical implementation details
- Use plain language
- If details are missing, call them out as assumptions or unknowns
- Validate any estimates in the analysis instead of copying them

New Requirement:
%s

Additional Context:
%s

Codebase Analysis:
%s

Output format (use this structure exactly):

` + HeadingHighLevelApproach + `
[The approach in business and product terms]

` + HeadingFeasibility + `
[High, Medium or Low, with an explanation in business terms]

` + HeadingRisksChallenges + `
- [Risk: description]

` + HeadingOpenQuestions + `
- [Question that needs a product decision]

` + HeadingRoughEstimate + `
[Total time in hours, story points (1=2-3h, 2=<1day, 3=2-3days, 5=<1week, 8=<1sprint, 13=too large), complexity]

` + HeadingTaskBreakdown + `
- Design: [if required]
- Spike/Research: [if required]
- Proof of Concept: [if required]
- Implementation: [the implementation work]
- Quality Assurance/Testing: [the QA work]`

// FeasibilityPrompt builds the formatting prompt for a feasibility analysis.
func FeasibilityPrompt(requirement, context, analyzerOutput string, maxOutput int) string {
	if strings.TrimSpace(context) == "" {
		context = "None provided"
	}
	return fmt.Sprintf(feasibilityFormatTemplate, requirement, context, Truncate(analyzerOutput, maxOutput))
}

const summaryFormatTemplate = `Summarize this software project for a product manager.

Project Name: %s

Codebase Analysis:
%s

Output format (use this structure exactly):

` + HeadingProjectSummary + `
[2-3 sentence overview from a product/business perspective]

` + HeadingProjectPurpose + `
[Why the project exists, what problem it solves and who it serves]

` + HeadingTechStack + `
- [One technology per line]`

// SummaryPrompt builds the formatting prompt for a project summary.
func SummaryPrompt(projectName, analyzerOutput string, maxOutput int) string {
	if projectName == "" {
		projectName = "Not specified"
	}
	return fmt.Sprintf(summaryFormatTemplate, projectName, Truncate(analyzerOutput, maxOutput))
}
