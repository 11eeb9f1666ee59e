package providers

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/dshills/codemate/internal/review"
)

// Platform names.
const (
	GitHub    = "github"
	GitLab    = "gitlab"
	Bitbucket = "bitbucket"
)

// ErrProviderCall wraps any failed call to a code-hosting API. It aborts
// reporting for the run.
var ErrProviderCall = errors.New("provider call failed")

// Gateway is a code-hosting platform as seen by the review pipeline.
type Gateway interface {
	// Name returns the platform name.
	Name() string
	// FetchChangedFiles lists every file of the change request with its patch.
	FetchChangedFiles(ctx context.Context, repo, changeID string) ([]review.ChangedFile, error)
	// PostInlineComments posts line comments for issues that map onto the
	// diff of files. It makes no remote call when nothing maps.
	PostInlineComments(ctx context.Context, repo, changeID string, files []review.ChangedFile, issues []review.Issue) error
	// PostSummary posts one summary comment for the run.
	PostSummary(ctx context.Context, repo, changeID string, result review.Result) error
}

// Registry maps platform names to gateways. It is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	gateways map[string]Gateway
}

// NewRegistry creates a registry holding gws.
func NewRegistry(gws ...Gateway) *Registry {
	r := &Registry{gateways: make(map[string]Gateway)}
	for _, g := range gws {
		r.Register(g)
	}
	return r
}

// Register adds or replaces the gateway for g.Name().
func (r *Registry) Register(g Gateway) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gateways[g.Name()] = g
}

// Get returns the gateway for platform.
func (r *Registry) Get(platform string) (Gateway, bool) {
	if r == nil {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.gateways[platform]
	return g, ok
}

// Platforms returns the registered platform names, sorted.
func (r *Registry) Platforms() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.gateways))
	for name := range r.gateways {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// CallObserver receives one notification per remote call a gateway makes.
type CallObserver interface {
	ObserveProviderCall(platform, op string, err error)
}
