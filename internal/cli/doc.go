// Package cli wires together the Cobra command tree for the codemate binary.
//
// serve runs the webhook server; pr reviews one GitHub pull request; local
// reviews a directory on disk; config manages the YAML config file. Command
// handlers build the shared pipeline from configuration and return
// deterministic exit codes for CI gating.
package cli
