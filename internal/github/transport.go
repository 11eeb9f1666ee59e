package github

import (
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"
)

// rateLimitedTransport waits on a shared limiter before every request.
type rateLimitedTransport struct {
	base    http.RoundTripper
	limiter *rate.Limiter
}

func (t *rateLimitedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.limiter.Wait(req.Context()); err != nil {
		return nil, err
	}
	return t.base.RoundTrip(req)
}

// throttled returns a copy of c whose transport is limited to rps requests
// per second. A non-positive rps returns c unchanged.
func throttled(c *http.Client, rps float64) *http.Client {
	if rps <= 0 {
		return c
	}
	base := c.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	burst := max(int(rps), 1)
	cp := *c
	cp.Transport = &rateLimitedTransport{base: base, limiter: rate.NewLimiter(rate.Limit(rps), burst)}
	return &cp
}

// instrumented returns a copy of c that records a client span per request.
func instrumented(c *http.Client) *http.Client {
	base := c.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	cp := *c
	cp.Transport = otelhttp.NewTransport(base)
	return &cp
}
