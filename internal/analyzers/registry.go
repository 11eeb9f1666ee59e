package analyzers

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/dshills/codemate/internal/review"
)

// Analyzer is the plugin contract; see review.Analyzer.
type Analyzer = review.Analyzer

// ErrToolUnavailable is the soft failure returned when an external tool
// cannot run.
var ErrToolUnavailable = review.ErrToolUnavailable

// ErrUnknownAnalyzer is returned for names the registry does not know.
var ErrUnknownAnalyzer = errors.New("unknown analyzer")

// Analyzer names.
const (
	NameLint     = "lint"
	NameSecurity = "security"
	NameAI       = "ai"
)

// Options configures analyzers built by the registry.
type Options struct {
	// Runner executes external tools. Defaults to ExecRunner.
	Runner CommandRunner
	// ToolTimeout bounds each tool invocation when Runner is the default.
	ToolTimeout time.Duration
	// LintErrorPrefix marks flake8 codes treated as errors.
	LintErrorPrefix string
}

func (o Options) runner() CommandRunner {
	if o.Runner != nil {
		return o.Runner
	}
	return ExecRunner{Timeout: o.ToolTimeout}
}

// Names returns every registered analyzer name.
func Names() []string {
	return []string{NameLint, NameSecurity, NameAI}
}

// New creates the analyzer registered under name.
func New(name string, opts Options) (Analyzer, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case NameLint:
		return NewLint(opts.runner(), opts.LintErrorPrefix), nil
	case NameSecurity:
		return NewSecurity(opts.runner()), nil
	case NameAI:
		return NewAI(), nil
	default:
		return nil, fmt.Errorf("%w: %q (available: %s)", ErrUnknownAnalyzer, name, strings.Join(Names(), ", "))
	}
}

// FromNames builds analyzers in the given order. Duplicates are dropped.
func FromNames(names []string, opts Options) ([]Analyzer, error) {
	var out []Analyzer
	var seen []string
	for _, name := range names {
		a, err := New(name, opts)
		if err != nil {
			return nil, err
		}
		if slices.Contains(seen, a.Name()) {
			continue
		}
		seen = append(seen, a.Name())
		out = append(out, a)
	}
	return out, nil
}
