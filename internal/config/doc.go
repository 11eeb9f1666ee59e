// Package config loads and merges codemate configuration from multiple sources.
//
// Precedence (highest to lowest):
//  1. CLI flags
//  2. Environment variables (GITHUB_TOKEN, WEBHOOK_SECRET, CODEMATE_ANALYZERS, etc.)
//  3. Config file ($XDG_CONFIG_HOME/codemate/config.yaml)
//  4. Built-in defaults
//
// Use [Load] to obtain a merged and validated [Config], [Save] to write one,
// and [SetField] to update a single key by name. Credentials are accepted
// from the file and the environment but never through [SetField].
package config
