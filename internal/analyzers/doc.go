// Package analyzers provides the built-in review.Analyzer implementations
// and the registry that builds them by name.
//
// Built-in analyzers:
//   - lint: runs flake8 once per changed file and maps error codes to
//     severities.
//   - security: runs bandit once over all changed files and reports each
//     finding as a warning.
//   - ai: emits an informational suggestion for every added line. It never
//     leaves the process.
//
// External tools are invoked through a CommandRunner so tests can substitute
// canned output. A missing, hung or crashed tool surfaces as
// ErrToolUnavailable and the run continues without that analyzer.
package analyzers
