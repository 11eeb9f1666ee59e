// Package github implements the providers.Gateway contract for GitHub pull
// requests on top of github.com/google/go-github.
//
// Changed files are listed page by page. Inline comments are posted as a
// single review addressed by diff position against the latest commit of the
// pull request, and the run summary is posted as a conversation comment.
// Outbound requests can be throttled with a shared rate limiter.
//
// The package also parses "owner/name" slugs and git remote URLs so the CLI
// can infer the repository from a local checkout.
package github
