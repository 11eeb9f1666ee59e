package analyzers

import (
	"bufio"
	"bytes"
	"context"
	"strconv"
	"strings"

	"github.com/dshills/codemate/internal/review"
)

const (
	lintTool   = "flake8"
	lintFormat = "--format=%(path)s::%(row)d::%(code)s::%(text)s"

	// DefaultLintErrorPrefix marks flake8 codes reported as errors.
	DefaultLintErrorPrefix = "E"
)

// Lint runs flake8 on each changed file.
type Lint struct {
	runner      CommandRunner
	errorPrefix string
}

// NewLint creates a lint analyzer. Codes starting with errorPrefix are
// errors; everything else is a warning.
func NewLint(runner CommandRunner, errorPrefix string) *Lint {
	if errorPrefix == "" {
		errorPrefix = DefaultLintErrorPrefix
	}
	return &Lint{runner: runner, errorPrefix: errorPrefix}
}

// Name implements review.Analyzer.
func (l *Lint) Name() string { return NameLint }

// Analyze implements review.Analyzer.
func (l *Lint) Analyze(ctx context.Context, repoRoot string, files []review.ChangedFile) ([]review.Issue, error) {
	var issues []review.Issue
	for _, f := range files {
		// no patch means binary or deleted
		if f.Patch == nil && !f.Local {
			continue
		}
		out, err := l.runner.Run(ctx, repoRoot, lintTool, f.Path, lintFormat)
		if err != nil {
			return nil, err
		}
		issues = append(issues, l.parse(f.Path, out)...)
	}
	return issues, nil
}

// parse reads path::row::code::message lines and skips anything else.
func (l *Lint) parse(path string, out []byte) []review.Issue {
	var issues []review.Issue
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		parts := strings.SplitN(strings.TrimSpace(sc.Text()), "::", 4)
		if len(parts) != 4 {
			continue
		}
		row, err := strconv.Atoi(parts[1])
		if err != nil || row < 0 {
			continue
		}
		code := parts[2]
		sev := review.SeverityWarning
		if strings.HasPrefix(code, l.errorPrefix) {
			sev = review.SeverityError
		}
		issues = append(issues, review.Issue{
			Path:     path,
			Line:     row,
			Severity: sev,
			Rule:     code,
			Message:  parts[3],
		})
	}
	return issues
}
