package providers

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dshills/codemate/internal/review"
)

// Summary texts.
const (
	ReviewBody      = "Automated review from Codemate PR Agent"
	NoIssuesMessage = "✅ No issues detected. PR looks good!"
)

// SummaryBody renders the summary comment for a result. Issues are listed in
// result order; an issue without a line shows "-" in place of the number.
func SummaryBody(result review.Result) string {
	if len(result.Issues) == 0 {
		return NoIssuesMessage
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Total issues detected: %d\n", len(result.Issues))
	fmt.Fprintf(&sb, "Score: %d/100 (errors: %d, warnings: %d, info: %d)\n",
		result.Score, result.Counts.Error, result.Counts.Warning, result.Counts.Info)
	sb.WriteString("\n### Issues breakdown:\n")
	for _, issue := range result.Issues {
		line := "-"
		if issue.HasLine() {
			line = strconv.Itoa(issue.Line)
		}
		fmt.Fprintf(&sb, "- `%s:%s` [%s] %s\n", issue.Path, line, issue.Rule, issue.Message)
	}
	if len(result.Degraded) > 0 {
		fmt.Fprintf(&sb, "\n_Skipped analyzers: %s_\n", strings.Join(result.Degraded, ", "))
	}
	return strings.TrimRight(sb.String(), "\n")
}
