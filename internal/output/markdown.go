package output

import (
	"io"
	"path/filepath"
	"strings"

	"github.com/dshills/codemate/internal/review"
)

var severityOrder = []review.Severity{review.SeverityError, review.SeverityWarning, review.SeverityInfo}

// MarkdownWriter outputs a comment-friendly markdown report with one
// collapsible section per severity.
type MarkdownWriter struct{}

func (m *MarkdownWriter) Write(w io.Writer, result review.Result) error {
	ew := &errWriter{w: w}

	ew.printf("## Codemate Review\n\n")
	ew.printf("**Score: %d/100**\n\n", result.Score)
	ew.printf("| Severity | Count |\n")
	ew.printf("|----------|-------|\n")
	ew.printf("| Error    | %d    |\n", result.Counts.Error)
	ew.printf("| Warning  | %d    |\n", result.Counts.Warning)
	ew.printf("| Info     | %d    |\n", result.Counts.Info)
	ew.printf("| **Total** | **%d** |\n\n", len(result.Issues))

	if len(result.Degraded) > 0 {
		ew.printf("_Skipped analyzers: %s_\n\n", strings.Join(result.Degraded, ", "))
	}
	if len(result.Issues) == 0 {
		ew.printf("No issues detected. :white_check_mark:\n")
		return ew.err
	}

	grouped := make(map[review.Severity][]review.Issue)
	for _, issue := range result.Issues {
		grouped[issue.Severity] = append(grouped[issue.Severity], issue)
	}
	for _, sev := range severityOrder {
		issues := grouped[sev]
		if len(issues) == 0 {
			continue
		}
		ew.printf("<details>\n<summary>%s %s (%d)</summary>\n\n",
			mdSeverityIcon(sev), strings.ToUpper(string(sev)), len(issues))
		for _, issue := range issues {
			ew.printf("- **`%s`** [%s] %s\n", location(issue), issue.Rule, issue.Message)
			if issue.Suggestion == "" {
				continue
			}
			if looksLikeCode(issue.Suggestion) {
				ew.printf("\n  ```%s\n  %s\n  ```\n", inferLang(issue.Path),
					strings.ReplaceAll(issue.Suggestion, "\n", "\n  "))
			} else {
				ew.printf("  > %s\n", strings.ReplaceAll(issue.Suggestion, "\n", "\n  > "))
			}
		}
		ew.printf("\n</details>\n\n")
	}
	return ew.err
}

func mdSeverityIcon(s review.Severity) string {
	switch s {
	case review.SeverityError:
		return ":red_circle:"
	case review.SeverityWarning:
		return ":orange_circle:"
	default:
		return ":large_blue_circle:"
	}
}

func looksLikeCode(s string) bool {
	for _, indicator := range []string{"def ", "class ", "import ", "return ", "(", "=", "{"} {
		if strings.Contains(s, indicator) {
			return true
		}
	}
	return false
}

func inferLang(path string) string {
	switch filepath.Ext(path) {
	case ".py":
		return "python"
	case ".go":
		return "go"
	case ".js":
		return "javascript"
	case ".ts":
		return "typescript"
	case ".sh":
		return "bash"
	case ".yaml", ".yml":
		return "yaml"
	default:
		return ""
	}
}
