package analyzers

import (
	"context"

	"github.com/dshills/codemate/internal/review"
)

const (
	aiRule          = "ai-feedback"
	aiMessagePrefix = "AI suggestion: Review this line: "
)

// AI emits one informational issue per added line. It is a placeholder for a
// model-backed reviewer and makes no external calls.
type AI struct{}

// NewAI creates the AI analyzer.
func NewAI() *AI { return &AI{} }

// Name implements review.Analyzer.
func (a *AI) Name() string { return NameAI }

// Analyze implements review.Analyzer. Line numbers come from the parsed diff,
// so files without parsed lines yield nothing.
func (a *AI) Analyze(_ context.Context, _ string, files []review.ChangedFile) ([]review.Issue, error) {
	var issues []review.Issue
	for _, f := range files {
		for _, l := range f.Lines {
			if l.Kind != review.LineAdded || !l.HasNewLine() {
				continue
			}
			issues = append(issues, review.Issue{
				Path:     f.Path,
				Line:     l.NewLine,
				Severity: review.SeverityInfo,
				Rule:     aiRule,
				Message:  aiMessagePrefix + l.Content,
			})
		}
	}
	return issues, nil
}
