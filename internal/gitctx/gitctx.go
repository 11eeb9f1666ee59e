package gitctx

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dshills/codemate/internal/review"
)

// maxFileBytes is the per-file size limit for local review.
const maxFileBytes = 1 << 20 // 1MB

// sniffBytes is how much of a file is inspected for NUL bytes.
const sniffBytes = 8000

// Filter selects files by glob. An empty Include admits everything.
type Filter struct {
	Include []string
	Exclude []string
}

// Match reports whether path passes the filter.
func (f Filter) Match(path string) bool {
	if len(f.Include) > 0 && !MatchesAny(path, f.Include) {
		return false
	}
	return !MatchesAny(path, f.Exclude)
}

// RepoMeta contains git repository metadata.
type RepoMeta struct {
	Root   string
	Head   string
	Branch string
}

// GetRepoMeta collects repository metadata for the checkout containing dir.
func GetRepoMeta(ctx context.Context, dir string) (RepoMeta, error) {
	root, err := gitOutput(ctx, dir, "rev-parse", "--show-toplevel")
	if err != nil {
		return RepoMeta{}, fmt.Errorf("not a git repository: %w", err)
	}
	head, err := gitOutput(ctx, dir, "rev-parse", "HEAD")
	if err != nil {
		head = "" // new repo with no commits
	}
	branch, err := gitOutput(ctx, dir, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		branch = ""
	}
	return RepoMeta{
		Root:   strings.TrimSpace(root),
		Head:   strings.TrimSpace(head),
		Branch: strings.TrimSpace(branch),
	}, nil
}

// ListFiles returns the text files under root that pass the filter, as
// slash-separated paths relative to root, sorted. Inside a git checkout the
// list comes from `git ls-files`; elsewhere the directory is walked.
func ListFiles(ctx context.Context, root string, filter Filter) ([]string, error) {
	candidates, err := trackedFiles(ctx, root)
	if err != nil {
		candidates, err = walkFiles(root)
		if err != nil {
			return nil, err
		}
	}

	var files []string
	for _, rel := range candidates {
		if !filter.Match(rel) {
			continue
		}
		if isBinary(filepath.Join(root, filepath.FromSlash(rel))) {
			continue
		}
		files = append(files, rel)
	}
	sort.Strings(files)
	return files, nil
}

// LocalFiles enumerates root like ListFiles and returns the result as a
// batch without patches, marked Local so analyzers scan whole files.
func LocalFiles(ctx context.Context, root string, filter Filter) ([]review.ChangedFile, error) {
	paths, err := ListFiles(ctx, root, filter)
	if err != nil {
		return nil, err
	}
	files := make([]review.ChangedFile, len(paths))
	for i, p := range paths {
		files[i] = review.ChangedFile{Path: p, Local: true}
	}
	return files, nil
}

// WorkingTree returns the uncommitted changes in root against HEAD, one
// ChangedFile per touched file carrying that file's section of the diff.
// Deleted files are dropped.
func WorkingTree(ctx context.Context, root string, filter Filter) ([]review.ChangedFile, error) {
	out, err := gitOutput(ctx, root, "diff", "--no-color", "HEAD", "--")
	if err != nil {
		return nil, fmt.Errorf("git diff HEAD: %w", err)
	}

	var files []review.ChangedFile
	for _, section := range splitDiffSections(out) {
		path := extractPathFromSection(section)
		if path == "" || !filter.Match(path) {
			continue
		}
		patch := section
		files = append(files, review.ChangedFile{Path: path, Patch: &patch})
	}
	return files, nil
}

func trackedFiles(ctx context.Context, root string) ([]string, error) {
	out, err := gitOutput(ctx, root, "ls-files")
	if err != nil {
		return nil, fmt.Errorf("git ls-files: %w", err)
	}
	var files []string
	for _, line := range strings.Split(out, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			files = append(files, line)
		}
	}
	return files, nil
}

func walkFiles(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", root, err)
	}
	return files, nil
}

// isBinary reports whether the file is unreadable, oversized or contains a
// NUL byte in its first block.
func isBinary(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.Size() > maxFileBytes {
		return true
	}
	f, err := os.Open(path)
	if err != nil {
		return true
	}
	defer f.Close()

	buf := make([]byte, sniffBytes)
	n, err := io.ReadFull(f, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return true
	}
	return bytes.IndexByte(buf[:n], 0) >= 0
}

func splitDiffSections(diff string) []string {
	var sections []string
	var current strings.Builder
	for _, line := range strings.Split(diff, "\n") {
		if strings.HasPrefix(line, "diff --git") && current.Len() > 0 {
			sections = append(sections, current.String())
			current.Reset()
		}
		if line == "" && current.Len() == 0 {
			continue
		}
		current.WriteString(line)
		current.WriteString("\n")
	}
	if strings.TrimSpace(current.String()) != "" {
		sections = append(sections, current.String())
	}
	return sections
}

func extractPathFromSection(section string) string {
	for _, line := range strings.Split(section, "\n") {
		if strings.HasPrefix(line, "+++ b/") {
			return strings.TrimPrefix(line, "+++ b/")
		}
	}
	return ""
}

// MatchesAny returns true if the path matches any of the given glob patterns.
// A leading "**/" matches any directory prefix and a trailing "/**" matches
// everything below a directory.
func MatchesAny(path string, patterns []string) bool {
	for _, pattern := range patterns {
		if matched, err := filepath.Match(pattern, path); err == nil && matched {
			return true
		}
		if dir, ok := strings.CutSuffix(pattern, "/**"); ok {
			dir = strings.TrimPrefix(dir, "**/")
			if strings.HasPrefix(path, dir+"/") || strings.Contains(path, "/"+dir+"/") {
				return true
			}
			continue
		}
		clean := strings.TrimPrefix(pattern, "**/")
		if clean != pattern {
			if matched, err := filepath.Match(clean, filepath.Base(path)); err == nil && matched {
				return true
			}
			if matched, err := filepath.Match(clean, path); err == nil && matched {
				return true
			}
		}
	}
	return false
}

func gitOutput(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", append([]string{"-C", dir}, args...)...)
	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return string(out), fmt.Errorf("%w: %s", err, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return "", err
	}
	return string(out), nil
}
