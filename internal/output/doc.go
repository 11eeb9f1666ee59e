// Package output renders a review result for the terminal or for other tools.
//
// Formats: text (one "path:line [rule] message" line per issue plus the
// score), json, markdown and sarif (v2.1.0). Use [NewWriter] to pick one.
package output
