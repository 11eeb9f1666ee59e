package output

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/codemate/internal/review"
)

func sampleResult() review.Result {
	return review.NewResult([]review.Issue{
		{Path: "app.py", Line: 10, Severity: review.SeverityError, Rule: "E501", Message: "line too long"},
		{Path: "app.py", Line: 3, Severity: review.SeverityWarning, Rule: "W291", Message: "trailing whitespace"},
		{Path: "setup.py", Severity: review.SeverityInfo, Rule: "ai-feedback", Message: "file-level note",
			Suggestion: "import os"},
	}, []string{"security"})
}

func TestTextWriter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&TextWriter{}).Write(&buf, sampleResult()))

	want := "app.py:10 [E501] line too long\n" +
		"app.py:3 [W291] trailing whitespace\n" +
		"setup.py [ai-feedback] file-level note\n" +
		"Score: 93/100 (errors: 1, warnings: 1, info: 1)\n" +
		"Skipped analyzers: security\n"
	assert.Equal(t, want, buf.String())
}

func TestTextWriterNoIssues(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&TextWriter{}).Write(&buf, review.NewResult(nil, nil)))
	assert.Equal(t, "No issues detected.\nScore: 100/100 (errors: 0, warnings: 0, info: 0)\n", buf.String())
}

func TestJSONWriter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&JSONWriter{}).Write(&buf, sampleResult()))

	var got review.Result
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, 93, got.Score)
	assert.Len(t, got.Issues, 3)
	assert.Equal(t, []string{"security"}, got.Degraded)
}

func TestMarkdownWriter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&MarkdownWriter{}).Write(&buf, sampleResult()))
	out := buf.String()

	assert.Contains(t, out, "## Codemate Review")
	assert.Contains(t, out, "**Score: 93/100**")
	assert.Contains(t, out, "| **Total** | **3** |")
	assert.Contains(t, out, "_Skipped analyzers: security_")
	assert.Contains(t, out, "- **`app.py:10`** [E501] line too long")
	assert.Contains(t, out, "```python")
	assert.Less(t, bytes.Index(buf.Bytes(), []byte("ERROR")), bytes.Index(buf.Bytes(), []byte("WARNING")))
}

func TestMarkdownWriterNoIssues(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&MarkdownWriter{}).Write(&buf, review.NewResult(nil, nil)))
	assert.Contains(t, buf.String(), "No issues detected.")
	assert.NotContains(t, buf.String(), "<details>")
}

func TestNewWriter(t *testing.T) {
	for _, f := range Formats {
		w, err := NewWriter(f, "1.0.0")
		require.NoError(t, err, f)
		assert.NotNil(t, w)
	}
	_, err := NewWriter("html", "")
	assert.Error(t, err)
}

func TestWriteResultToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.txt")
	require.NoError(t, WriteResult(review.NewResult(nil, nil), "text", "", path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Score: 100/100")
}

func TestWriteResultBadPath(t *testing.T) {
	err := WriteResult(review.NewResult(nil, nil), "text", "", filepath.Join(t.TempDir(), "missing", "out.txt"))
	assert.Error(t, err)
}
