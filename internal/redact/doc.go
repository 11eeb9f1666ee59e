// Package redact removes secrets from text before it is posted back to a
// code host.
//
// Analyzer findings can quote source lines verbatim, so a hardcoded
// credential flagged by a security tool would otherwise be republished in a
// review comment. Detection uses regex heuristics for common secret shapes
// plus any literal values the Redactor was constructed with.
package redact
