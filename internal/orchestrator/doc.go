// Package orchestrator drives one review run: fetch the changed files from a
// gateway, parse their patches, run the analyzers, then post inline comments
// followed by the summary.
package orchestrator
