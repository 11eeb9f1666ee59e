package output

import (
	"fmt"
	"io"
	"os"

	"github.com/dshills/codemate/internal/review"
)

// Formats lists the supported output formats.
var Formats = []string{"text", "json", "markdown", "sarif"}

// Writer writes a review result in a specific format.
type Writer interface {
	Write(w io.Writer, result review.Result) error
}

// NewWriter returns a writer for the specified format. version is stamped
// into formats that carry tool metadata.
func NewWriter(format, version string) (Writer, error) {
	switch format {
	case "text", "":
		return &TextWriter{}, nil
	case "json":
		return &JSONWriter{}, nil
	case "markdown":
		return &MarkdownWriter{}, nil
	case "sarif":
		return &SARIFWriter{Version: version}, nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}
}

// WriteResult writes the result to outPath, or to stdout when outPath is empty.
func WriteResult(result review.Result, format, version, outPath string) error {
	writer, err := NewWriter(format, version)
	if err != nil {
		return err
	}

	var w io.Writer = os.Stdout
	if outPath != "" {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("creating output file: %w", err)
		}
		defer f.Close()
		w = f
	}
	return writer.Write(w, result)
}

// location renders "path:line", or just the path for file-level issues.
func location(issue review.Issue) string {
	if issue.HasLine() {
		return fmt.Sprintf("%s:%d", issue.Path, issue.Line)
	}
	return issue.Path
}

// errWriter wraps an io.Writer and captures the first error.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...any) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}
