package diff

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	godiff "github.com/sourcegraph/go-diff/diff"

	"github.com/dshills/codemate/internal/review"
)

// ErrMalformedPatch is returned when a patch cannot be parsed.
var ErrMalformedPatch = errors.New("malformed patch")

const devNull = "/dev/null"

// Parse parses a unified diff. Lines from a multi-file stream carry the path
// from their file header; lines from a bare fragment have an empty Path.
func Parse(patch string) ([]review.DiffLine, error) {
	body := strings.TrimLeft(patch, "\r\n")
	if strings.TrimSpace(body) == "" {
		return nil, nil
	}
	if isFragment(body) {
		return parseFragment("", body)
	}
	return parseStream(body)
}

// ParseFile parses the patch of a single file and stamps every line with path.
func ParseFile(path, patch string) ([]review.DiffLine, error) {
	lines, err := Parse(patch)
	if err != nil {
		return nil, err
	}
	for i := range lines {
		lines[i].Path = path
	}
	return lines, nil
}

// Positions indexes lines by path and new-file line number, yielding the diff
// position of each line that exists in the post-change file.
func Positions(lines []review.DiffLine) map[string]map[int]int {
	out := make(map[string]map[int]int)
	for _, l := range lines {
		if !l.HasNewLine() {
			continue
		}
		byLine, ok := out[l.Path]
		if !ok {
			byLine = make(map[int]int)
			out[l.Path] = byLine
		}
		if _, seen := byLine[l.NewLine]; !seen {
			byLine[l.NewLine] = l.Position
		}
	}
	return out
}

func isFragment(patch string) bool {
	first, _, _ := strings.Cut(patch, "\n")
	return strings.HasPrefix(first, "@@")
}

func parseFragment(path, patch string) ([]review.DiffLine, error) {
	hunks, err := godiff.ParseHunks([]byte(patch))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedPatch, err)
	}
	return walkHunks(path, hunks), nil
}

func parseStream(patch string) ([]review.DiffLine, error) {
	fileDiffs, err := godiff.ParseMultiFileDiff([]byte(patch))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedPatch, err)
	}
	var lines []review.DiffLine
	for _, fd := range fileDiffs {
		lines = append(lines, walkHunks(filePath(fd), fd.Hunks)...)
	}
	return lines, nil
}

// filePath picks the post-change name, or the original one for deletions.
func filePath(fd *godiff.FileDiff) string {
	name := strings.TrimPrefix(fd.NewName, "b/")
	if name == "" || fd.NewName == devNull {
		name = strings.TrimPrefix(fd.OrigName, "a/")
	}
	return name
}

// walkHunks assigns new-file line numbers and positions to every body line.
// Position 1 is the line directly below the first hunk header; each later
// header occupies a position of its own. go-diff drops the "\ No newline at
// end of file" marker from the body, keeping only its offset when it follows a
// removed line, but the marker still counts as a position.
func walkHunks(path string, hunks []*godiff.Hunk) []review.DiffLine {
	var lines []review.DiffLine
	pos := 0
	for i, h := range hunks {
		if i > 0 {
			pos++
		}
		body := bytes.TrimSuffix(h.Body, []byte("\n"))
		if len(body) == 0 {
			continue
		}
		newLine := int(h.NewStartLine)
		noNewlineAt := int(h.OrigNoNewlineAt)
		offset := 0
		for _, raw := range strings.Split(string(body), "\n") {
			if noNewlineAt > 0 && offset == noNewlineAt {
				pos++
			}
			offset += len(raw) + 1
			pos++
			switch {
			case strings.HasPrefix(raw, "+"):
				lines = append(lines, review.DiffLine{
					Path: path, NewLine: newLine, Content: raw[1:], Kind: review.LineAdded, Position: pos,
				})
				newLine++
			case strings.HasPrefix(raw, "-"):
				lines = append(lines, review.DiffLine{
					Path: path, Content: raw[1:], Kind: review.LineRemoved, Position: pos,
				})
			default:
				lines = append(lines, review.DiffLine{
					Path: path, NewLine: newLine, Content: strings.TrimPrefix(raw, " "), Kind: review.LineContext, Position: pos,
				})
				newLine++
			}
		}
	}
	return lines
}
