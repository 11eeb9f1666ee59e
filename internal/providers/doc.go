// Package providers defines the contract between the review pipeline and a
// code-hosting platform.
//
// A [Gateway] fetches the changed files of a change request and posts review
// results back as inline comments and a summary comment. Gateways are looked
// up by platform name through a [Registry]; a platform with no registered
// gateway is acknowledged but not processed.
//
// The helpers in this package are platform neutral: [BuildInlineComments]
// maps issues onto diff positions and [SummaryBody] renders the summary text.
// Implementations wrap every failed remote call in [ErrProviderCall].
package providers
