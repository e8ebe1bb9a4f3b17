package analysis

import (
	"regexp"
	"strings"
)

// DefaultMaxFeatures caps how many capabilities one discovery run keeps.
const DefaultMaxFeatures = 50

var (
	numberedItem = regexp.MustCompile(`^\d+[.)]\s+(.+)$`)
	hasLetter    = regexp.MustCompile(`[A-Za-z]`)
)

// Openers that mark a conversational reply instead of a list.
var conversationalStarters = []string{
	"i'm", "i am", "i see", "i need", "i want", "i have",
	"you've", "you have", "you're", "you are",
	"which", "what", "how", "when", "where", "why",
	"please", "can you", "could you", "would you",
	"let me", "allow me", "excuse me",
}

var (
	requestPrefixes = []string{
		"please", "tell me", "what is", "what are", "can you", "could you",
		"would you", "how do", "how does", "i need", "i want", "show me",
		"give me", "help me",
	}

	statusPhrases = []string{
		"no user-facing features", "no features detected", "no features found",
		"no feature", "features not found", "no capabilities", "unable to find",
		"cannot find",
	}

	instructionPhrases = []string{
		"numbered list", "output format", "provide a", "only output", "nothing else",
		"example output", "feature name", "product analysis sections",
		"product analysis format", "section product analysis", "section format",
		"full product", "sections (", "format:", "output:", "rules:", "task:",
		"important:", "do not", "avoid listing", "focus on", "group related",
		"use clear", "list features",
	}

	questionWords = []string{"what", "where", "when", "why", "who", "how", "which", "whose"}
)

// ParseFeatureList extracts capability names from a numbered list. A reply
// that opens conversationally yields nothing. Text before the first
// numbered item is skipped and parsing stops at the first non-numbered
// line after it. Invalid names and repeats (ignoring case) are dropped and
// at most max are kept.
func ParseFeatureList(output string, max int) []string {
	names := []string{}

	output = strings.TrimSpace(output)
	if output == "" {
		return names
	}

	lines := strings.Split(output, "\n")
	first := strings.ToLower(strings.TrimSpace(lines[0]))
	for _, starter := range conversationalStarters {
		if strings.HasPrefix(first, starter) {
			return names
		}
	}

	seen := make(map[string]bool)
	started := false
	for _, line := range lines {
		line = strings.TrimSpace(line)
		m := numberedItem.FindStringSubmatch(line)
		if m == nil {
			if started && line != "" {
				break
			}
			continue
		}
		started = true

		name := strings.TrimSpace(strings.Trim(strings.TrimSpace(m[1]), "*"))
		key := strings.ToLower(name)
		if IsValidFeatureName(name) && !seen[key] {
			seen[key] = true
			names = append(names, name)
		}
	}

	if max > 0 && len(names) > max {
		names = names[:max]
	}
	return names
}

// IsValidFeatureName rejects list items that are prompts, status messages,
// echoed instructions or questions rather than capability names.
func IsValidFeatureName(name string) bool {
	name = strings.TrimSpace(name)
	if len(name) < 3 {
		return false
	}
	lower := strings.ToLower(name)

	for _, p := range requestPrefixes {
		if strings.HasPrefix(lower, p) {
			return false
		}
	}
	for _, p := range statusPhrases {
		if strings.Contains(lower, p) {
			return false
		}
	}
	if isQuoted(name) {
		return false
	}
	for _, p := range instructionPhrases {
		if strings.Contains(lower, p) {
			return false
		}
	}

	if (strings.Contains(lower, "section") || strings.Contains(lower, "analysis")) && strings.Contains(lower, "format") {
		return false
	}
	if strings.HasSuffix(name, "?") {
		return false
	}
	if strings.Contains(name, ":") && containsAny(lower, "format", "output", "example", "rule", "task", "please", "tell") {
		return false
	}
	if strings.HasSuffix(name, ":") && len(name) < 30 {
		if len(name) < 15 || containsAny(lower, "please", "tell", "what", "how", "can", "could") {
			return false
		}
	}
	if strings.HasPrefix(lower, "example") || numberedItem.MatchString(lower) {
		return false
	}
	if !hasLetter.MatchString(name) {
		return false
	}
	for _, q := range questionWords {
		if strings.HasPrefix(lower, q+" ") {
			return false
		}
	}

	return true
}

func isQuoted(s string) bool {
	if len(s) < 2 {
		return false
	}
	return (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'')
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
