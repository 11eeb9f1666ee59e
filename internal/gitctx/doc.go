// Package gitctx enumerates the files of a local checkout for review.
//
// [LocalFiles] lists whole files (via `git ls-files`, or a directory walk
// outside a repository) filtered by include/exclude globs. [WorkingTree]
// splits the uncommitted diff against HEAD into one patch per file.
package gitctx
