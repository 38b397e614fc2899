package config

import (
	"regexp"
	"strings"
)

// tokenAdvice is shared by every credential pattern: the API token belongs in
// the environment, not in a file that may end up in a dotfiles repository.
const tokenAdvice = "hardcoded in config; prefer the GITHUB_TOKEN environment variable"

// SensitivePattern is a named regular expression for a kind of credential.
type SensitivePattern struct {
	Name        string
	Pattern     *regexp.Regexp
	Description string
}

// Patterns are tried in order; the more specific GitHub formats come first.
var sensitivePatterns = []SensitivePattern{
	{
		Name:        "GitHub Token",
		Pattern:     regexp.MustCompile(`gh[pousr]_[a-zA-Z0-9]{36,}|github_pat_[a-zA-Z0-9_]{22,}`),
		Description: "GitHub token " + tokenAdvice,
	},
	{
		Name:        "Token",
		Pattern:     regexp.MustCompile(`(?i)\btoken\s*=\s*['"][a-zA-Z0-9_-]{15,}['"]`),
		Description: "API token " + tokenAdvice,
	},
}

// SensitiveDataFinding is one line that looks like it holds a credential.
type SensitiveDataFinding struct {
	PatternName string
	Description string
	Line        int    // 1-based
	Preview     string // the line with its value redacted
}

// DetectSensitiveData scans configuration content for hardcoded credentials.
// Lua comment lines are skipped and a line is reported at most once.
func DetectSensitiveData(content string) []SensitiveDataFinding {
	var findings []SensitiveDataFinding
	for i, line := range strings.Split(content, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "--") {
			continue
		}
		if p := matchSensitive(line); p != nil {
			findings = append(findings, SensitiveDataFinding{
				PatternName: p.Name,
				Description: p.Description,
				Line:        i + 1,
				Preview:     redactSensitiveValue(line),
			})
		}
	}
	return findings
}

func matchSensitive(line string) *SensitivePattern {
	for i := range sensitivePatterns {
		if sensitivePatterns[i].Pattern.MatchString(line) {
			return &sensitivePatterns[i]
		}
	}
	return nil
}

// redactSensitiveValue keeps the key of an assignment, or the first eight
// characters of anything else, and hides the rest.
func redactSensitiveValue(line string) string {
	if key, _, ok := strings.Cut(line, "="); ok {
		return strings.TrimSpace(key) + " = [REDACTED]"
	}
	line = strings.TrimSpace(line)
	if len(line) <= 8 {
		return "[REDACTED]"
	}
	return line[:8] + "... [REDACTED]"
}
