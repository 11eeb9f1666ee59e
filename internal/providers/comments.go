package providers

import (
	"fmt"
	"strings"

	"github.com/dshills/codemate/internal/diff"
	"github.com/dshills/codemate/internal/redact"
	"github.com/dshills/codemate/internal/review"
)

// InlineComment is a comment anchored to a diff position.
type InlineComment struct {
	Path     string
	Line     int
	Position int
	Body     string
}

// BuildInlineComments maps issues to diff positions within files. Issues
// without a line, or whose line is not part of the diff, are left out; they
// still appear in the summary. A nil redactor leaves bodies untouched.
func BuildInlineComments(files []review.ChangedFile, issues []review.Issue, r *redact.Redactor) []InlineComment {
	var lines []review.DiffLine
	for _, f := range files {
		lines = append(lines, f.Lines...)
	}
	positions := diff.Positions(lines)

	var comments []InlineComment
	for _, issue := range issues {
		if !issue.HasLine() {
			continue
		}
		pos, ok := positions[issue.Path][issue.Line]
		if !ok {
			continue
		}
		comments = append(comments, InlineComment{
			Path:     issue.Path,
			Line:     issue.Line,
			Position: pos,
			Body:     CommentBody(r.Issue(issue)),
		})
	}
	return comments
}

// CommentBody renders an issue as "[rule] message", followed by the
// suggestion when there is one.
func CommentBody(issue review.Issue) string {
	body := fmt.Sprintf("[%s] %s", issue.Rule, issue.Message)
	if s := strings.TrimSpace(issue.Suggestion); s != "" {
		body += "\n\nSuggestion: " + s
	}
	return body
}
