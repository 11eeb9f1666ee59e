// Package diff turns unified diffs into line-addressable review.DiffLine
// sequences.
//
// Two input shapes are accepted: the bare per-file fragments that code hosts
// return for each changed file (starting at the first "@@" header), and full
// multi-file streams as produced by git diff. Hunk parsing is delegated to
// github.com/sourcegraph/go-diff; this package walks each hunk body to assign
// new-file line numbers and GitHub diff positions.
//
// Parsing is pure: the same input always yields the same lines.
package diff
