// Package webhook receives code-host webhook deliveries and turns actionable
// ones into review runs.
//
// A [Dispatcher] moves each request through a fixed sequence of states:
//
//	received -> classified -> authenticated -> action_filtered -> processed -> reported
//
// and stops early in ignored (not a pull request event, or an uninteresting
// action), rejected (unknown platform, bad signature, undecodable payload) or
// failed (the code host refused a call). Platforms are told apart by header
// presence alone.
//
// GitHub deliveries are verified with HMAC-SHA256 over the raw body. GitLab
// and Bitbucket deliveries carry a shared token that is compared verbatim.
// When a platform has no secret configured its requests are accepted
// unauthenticated and a warning is logged for each one, unless
// Config.RequireSecrets is set.
//
// Only platforms with a registered providers.Gateway are processed. GitLab
// and Bitbucket events are acknowledged with [PlaceholderMessage].
//
// [NewRouter] exposes the dispatcher over HTTP with gin.
package webhook
