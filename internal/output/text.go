package output

import (
	"io"
	"strings"

	"github.com/dshills/codemate/internal/review"
)

// TextWriter prints one "path:line [rule] message" line per issue followed by
// the score.
type TextWriter struct{}

func (t *TextWriter) Write(w io.Writer, result review.Result) error {
	ew := &errWriter{w: w}
	for _, issue := range result.Issues {
		ew.printf("%s [%s] %s\n", location(issue), issue.Rule, issue.Message)
	}
	if len(result.Issues) == 0 {
		ew.printf("No issues detected.\n")
	}
	ew.printf("Score: %d/100 (errors: %d, warnings: %d, info: %d)\n",
		result.Score, result.Counts.Error, result.Counts.Warning, result.Counts.Info)
	if len(result.Degraded) > 0 {
		ew.printf("Skipped analyzers: %s\n", strings.Join(result.Degraded, ", "))
	}
	return ew.err
}
