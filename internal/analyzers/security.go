package analyzers

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/dshills/codemate/internal/review"
)

const securityTool = "bandit"

// Security runs bandit over all changed files in one invocation.
type Security struct {
	runner CommandRunner
}

// NewSecurity creates a security analyzer.
func NewSecurity(runner CommandRunner) *Security {
	return &Security{runner: runner}
}

// Name implements review.Analyzer.
func (s *Security) Name() string { return NameSecurity }

type banditReport struct {
	Results []banditResult `json:"results"`
}

type banditResult struct {
	Filename   string `json:"filename"`
	LineNumber int    `json:"line_number"`
	TestName   string `json:"test_name"`
	TestID     string `json:"test_id"`
	IssueText  string `json:"issue_text"`
}

// Analyze implements review.Analyzer.
func (s *Security) Analyze(ctx context.Context, repoRoot string, files []review.ChangedFile) ([]review.Issue, error) {
	var paths []string
	for _, f := range files {
		if f.HasPatch() || f.Local {
			paths = append(paths, f.Path)
		}
	}
	if len(paths) == 0 {
		return nil, nil
	}

	args := append([]string{"-f", "json", "-q"}, paths...)
	out, err := s.runner.Run(ctx, repoRoot, securityTool, args...)
	if err != nil {
		return nil, err
	}

	var report banditReport
	if err := json.Unmarshal(out, &report); err != nil {
		return nil, fmt.Errorf("%w: decoding bandit output: %w", ErrToolUnavailable, err)
	}

	issues := make([]review.Issue, 0, len(report.Results))
	for _, r := range report.Results {
		rule := r.TestName
		if rule == "" {
			rule = r.TestID
		}
		issues = append(issues, review.Issue{
			Path:     cleanToolPath(r.Filename),
			Line:     max(r.LineNumber, 0),
			Severity: review.SeverityWarning,
			Rule:     rule,
			Message:  r.IssueText,
		})
	}
	return issues, nil
}

// cleanToolPath normalizes a path echoed back by a tool to the repo-relative
// form used in changed files.
func cleanToolPath(p string) string {
	if p == "" {
		return p
	}
	return strings.TrimPrefix(filepath.ToSlash(filepath.Clean(p)), "./")
}
