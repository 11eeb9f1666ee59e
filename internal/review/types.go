package review

// Severity represents the severity level of an issue.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// SeverityRank returns a numeric rank for sorting (higher = more severe).
func SeverityRank(s Severity) int {
	switch s {
	case SeverityError:
		return 3
	case SeverityWarning:
		return 2
	case SeverityInfo:
		return 1
	default:
		return 0
	}
}

// MeetsThreshold returns true if severity is at or above the threshold.
func MeetsThreshold(s Severity, threshold string) bool {
	if threshold == "none" || threshold == "" {
		return false
	}
	return SeverityRank(s) >= SeverityRank(Severity(threshold))
}

// LineKind classifies a line of a unified diff.
type LineKind string

const (
	LineAdded   LineKind = "added"
	LineRemoved LineKind = "removed"
	LineContext LineKind = "context"
)

// DiffLine is one line of a parsed patch.
//
// NewLine is the line number in the post-change file; it is zero for removed
// lines. Position is the 1-based offset of the line within its file's patch,
// counted from the first hunk header, which is how GitHub addresses review
// comments.
type DiffLine struct {
	Path     string   `json:"path"`
	NewLine  int      `json:"newLine,omitempty"`
	Content  string   `json:"content"`
	Kind     LineKind `json:"kind"`
	Position int      `json:"position"`
}

// HasNewLine reports whether the line exists in the post-change file.
func (l DiffLine) HasNewLine() bool { return l.NewLine > 0 }

// ChangedFile is one file touched by a change request.
//
// Patch is nil when the platform supplied no textual diff (binary files) or
// the file was enumerated from a local checkout (Local is then set). Lines is
// filled in once the patch has been parsed.
type ChangedFile struct {
	Path  string     `json:"path"`
	Patch *string    `json:"patch,omitempty"`
	Local bool       `json:"local,omitempty"`
	Lines []DiffLine `json:"-"`
}

// HasPatch reports whether the file carries a non-empty textual diff.
func (f ChangedFile) HasPatch() bool { return f.Patch != nil && *f.Patch != "" }

// Issue is a single finding reported by an analyzer. Line is the new-file
// line number, or zero for file-level findings.
type Issue struct {
	Path       string   `json:"path"`
	Line       int      `json:"line,omitempty"`
	Severity   Severity `json:"severity"`
	Rule       string   `json:"rule"`
	Message    string   `json:"message"`
	Suggestion string   `json:"suggestion,omitempty"`
}

// HasLine reports whether the issue is anchored to a line.
func (i Issue) HasLine() bool { return i.Line > 0 }

// SeverityCounts holds counts by severity level.
type SeverityCounts struct {
	Error   int `json:"error"`
	Warning int `json:"warning"`
	Info    int `json:"info"`
}

// Result is the outcome of one review run.
type Result struct {
	RunID    string         `json:"runId,omitempty"`
	Issues   []Issue        `json:"issues"`
	Score    int            `json:"score"`
	Counts   SeverityCounts `json:"counts"`
	Degraded []string       `json:"degraded,omitempty"`
}

// CountSeverities tallies issues by severity.
func CountSeverities(issues []Issue) SeverityCounts {
	var c SeverityCounts
	for _, issue := range issues {
		switch issue.Severity {
		case SeverityError:
			c.Error++
		case SeverityWarning:
			c.Warning++
		case SeverityInfo:
			c.Info++
		}
	}
	return c
}

// NewResult builds a Result from the final, ordered issue list.
func NewResult(issues []Issue, degraded []string) Result {
	if issues == nil {
		issues = []Issue{}
	}
	return Result{
		Issues:   issues,
		Score:    Score(issues),
		Counts:   CountSeverities(issues),
		Degraded: degraded,
	}
}
