package review

const (
	maxScore       = 100
	errorPenalty   = 5
	warningPenalty = 2
)

// Score reduces an issue list to a number in [0, 100]. It starts at 100 and
// subtracts 5 per error and 2 per warning; info issues are free. No
// deduplication is applied, so the score depends on the list alone.
func Score(issues []Issue) int {
	score := maxScore
	for _, issue := range issues {
		switch issue.Severity {
		case SeverityError:
			score -= errorPenalty
		case SeverityWarning:
			score -= warningPenalty
		}
	}
	return min(max(score, 0), maxScore)
}
