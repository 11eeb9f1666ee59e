// Package review contains the core types of a code review run and the
// machinery that produces them.
//
// It defines ChangedFile, DiffLine, Issue, Severity and Result, the Analyzer
// contract that every check implements, the Runner that fans a batch of
// changed files out to the configured analyzers, and Score, the reducer that
// turns an issue list into a number between 0 and 100.
//
// Analyzers run in parallel with bounded concurrency. Their results are
// collected into per-analyzer slots and concatenated in configuration order,
// so the issue list and the score are reproducible for a fixed configuration
// and input. An analyzer whose tool is unavailable contributes nothing and is
// recorded in Result.Degraded.
package review
