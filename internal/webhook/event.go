package webhook

import (
	"errors"
	"net/http"
	"strings"

	"github.com/dshills/codemate/internal/providers"
	"github.com/dshills/codemate/internal/review"
)

// PlatformUnknown is reported when no platform header is present.
const PlatformUnknown = "unknown"

// Inbound headers.
const (
	HeaderGitHubSignature  = "X-Hub-Signature-256"
	HeaderGitHubEvent      = "X-GitHub-Event"
	HeaderGitHubDelivery   = "X-GitHub-Delivery"
	HeaderGitLabToken      = "X-Gitlab-Token"
	HeaderGitLabEvent      = "X-Gitlab-Event"
	HeaderGitLabUUID       = "X-Gitlab-Event-UUID"
	HeaderBitbucketEvent   = "X-Event-Key"
	HeaderBitbucketSig     = "X-Hub-Signature"
	HeaderBitbucketRequest = "X-Request-UUID"
)

var (
	// ErrUnknownPlatform is returned when a request carries no recognized
	// platform header.
	ErrUnknownPlatform = errors.New("unknown platform")
	// ErrAuthentication is returned when a request fails its platform's
	// signature or token check.
	ErrAuthentication = errors.New("authentication failed")
	// ErrBadPayload is returned when an actionable event cannot be decoded.
	ErrBadPayload = errors.New("bad payload")
)

// State is a dispatcher state.
type State string

// Dispatcher states. Reported, Ignored, Rejected and Failed are terminal;
// Processed is terminal for platforms without a gateway.
const (
	StateReceived       State = "received"
	StateClassified     State = "classified"
	StateAuthenticated  State = "authenticated"
	StateActionFiltered State = "action_filtered"
	StateProcessed      State = "processed"
	StateReported       State = "reported"
	StateIgnored        State = "ignored"
	StateRejected       State = "rejected"
	StateFailed         State = "failed"
)

// Event is an inbound webhook call after classification. It is not modified
// once the dispatcher has filled it in.
type Event struct {
	Platform   string `json:"platform"`
	Verified   bool   `json:"verified"`
	Repo       string `json:"repo,omitempty"`
	ChangeID   string `json:"changeId,omitempty"`
	Action     string `json:"action,omitempty"`
	Kind       string `json:"kind,omitempty"`
	DeliveryID string `json:"deliveryId,omitempty"`
}

// Outcome is the terminal result of dispatching one request.
type Outcome struct {
	State   State
	Event   Event
	Result  *review.Result
	Message string
	Err     error
}

// Classify picks the platform from header presence.
func Classify(h http.Header) string {
	switch {
	case h.Get(HeaderGitHubSignature) != "" || h.Get(HeaderGitHubEvent) != "":
		return providers.GitHub
	case h.Get(HeaderGitLabToken) != "" || h.Get(HeaderGitLabEvent) != "":
		return providers.GitLab
	case h.Get(HeaderBitbucketEvent) != "":
		return providers.Bitbucket
	default:
		return PlatformUnknown
	}
}

// eventKind returns the platform's event-type header value.
func eventKind(platform string, h http.Header) string {
	switch platform {
	case providers.GitHub:
		return h.Get(HeaderGitHubEvent)
	case providers.GitLab:
		return h.Get(HeaderGitLabEvent)
	case providers.Bitbucket:
		return h.Get(HeaderBitbucketEvent)
	}
	return ""
}

// deliveryID returns the platform's per-delivery identifier, if any.
func deliveryID(platform string, h http.Header) string {
	switch platform {
	case providers.GitHub:
		return h.Get(HeaderGitHubDelivery)
	case providers.GitLab:
		return h.Get(HeaderGitLabUUID)
	case providers.Bitbucket:
		return h.Get(HeaderBitbucketRequest)
	}
	return ""
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}
