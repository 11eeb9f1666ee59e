package redact

import (
	"regexp"
	"strings"

	"github.com/dshills/codemate/internal/review"
)

const placeholder = "[REDACTED]"

// minKnownLen keeps short configured values from blanking ordinary words.
const minKnownLen = 8

// secretPatterns match secret shapes that tools commonly echo back in
// findings, e.g. bandit quoting a hardcoded password.
var secretPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(api[_-]?key|apikey|api[_-]?secret)\s*[:=]\s*["']?([A-Za-z0-9/+=_-]{20,})["']?`),
	regexp.MustCompile(`AKIA[0-9A-Z]{16}`),
	regexp.MustCompile(`(?i)(aws[_-]?secret[_-]?access[_-]?key)\s*[:=]\s*["']?([A-Za-z0-9/+=]{40})["']?`),
	regexp.MustCompile(`(?i)(secret|token|password|passwd|credential)\s*[:=]\s*["']([^"']{8,})["']`),
	regexp.MustCompile(`(?i)Bearer\s+[A-Za-z0-9._-]{20,}`),
	regexp.MustCompile(`eyJ[A-Za-z0-9_-]{10,}\.eyJ[A-Za-z0-9_-]{10,}\.[A-Za-z0-9_-]{10,}`),
	regexp.MustCompile(`-----BEGIN\s+(RSA\s+|EC\s+|OPENSSH\s+)?PRIVATE KEY-----`),
	regexp.MustCompile(`gh[pousr]_[A-Za-z0-9_]{36,}`),
	regexp.MustCompile(`github_pat_[A-Za-z0-9_]{22,}`),
	regexp.MustCompile(`glpat-[A-Za-z0-9_-]{20,}`),
	regexp.MustCompile(`ATBB[A-Za-z0-9]{24,}`),
	regexp.MustCompile(`xox[bporas]-[A-Za-z0-9-]{10,}`),
	regexp.MustCompile(`sk-ant-[A-Za-z0-9_-]{20,}`),
	regexp.MustCompile(`sk-[A-Za-z0-9]{20,}`),
	regexp.MustCompile(`(?i)(key|secret|token)\s*[:=]\s*["']?[0-9a-f]{32,}["']?`),
}

// Secrets replaces pattern-detected secrets in text with [REDACTED].
func Secrets(text string) string {
	for _, pat := range secretPatterns {
		text = pat.ReplaceAllLiteralString(text, placeholder)
	}
	return text
}

// Redactor scrubs outbound comment text. Besides the built-in patterns it
// removes literal values the service itself holds, such as its API tokens and
// webhook secrets.
type Redactor struct {
	known []string
}

// New creates a Redactor that also removes the given literal values. Empty
// and very short values are ignored.
func New(known ...string) *Redactor {
	r := &Redactor{}
	for _, k := range known {
		if len(k) >= minKnownLen {
			r.known = append(r.known, k)
		}
	}
	return r
}

// Text redacts a single string. A nil Redactor returns text unchanged.
func (r *Redactor) Text(text string) string {
	if r == nil || text == "" {
		return text
	}
	for _, k := range r.known {
		text = strings.ReplaceAll(text, k, placeholder)
	}
	return Secrets(text)
}

// Issue returns a copy of issue with its free-text fields redacted.
func (r *Redactor) Issue(issue review.Issue) review.Issue {
	issue.Message = r.Text(issue.Message)
	issue.Suggestion = r.Text(issue.Suggestion)
	return issue
}

// Issues redacts every issue, returning a new slice.
func (r *Redactor) Issues(issues []review.Issue) []review.Issue {
	if r == nil {
		return issues
	}
	out := make([]review.Issue, len(issues))
	for i, issue := range issues {
		out[i] = r.Issue(issue)
	}
	return out
}
