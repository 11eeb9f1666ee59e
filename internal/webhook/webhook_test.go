package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/codemate/internal/providers"
	"github.com/dshills/codemate/internal/review"
	"github.com/dshills/codemate/internal/telemetry"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const testSecret = "webhook-test-secret"

type stubGateway struct{ name string }

func (g stubGateway) Name() string { return g.name }
func (stubGateway) FetchChangedFiles(context.Context, string, string) ([]review.ChangedFile, error) {
	return nil, nil
}
func (stubGateway) PostInlineComments(context.Context, string, string, []review.ChangedFile, []review.Issue) error {
	return nil
}
func (stubGateway) PostSummary(context.Context, string, string, review.Result) error { return nil }

type runCall struct {
	platform string
	runID    string
	repo     string
	changeID string
}

type fakePipeline struct {
	result review.Result
	err    error
	calls  []runCall
}

func (p *fakePipeline) Run(ctx context.Context, gw providers.Gateway, runID, repo, changeID string) (review.Result, error) {
	if _, ok := ctx.Deadline(); !ok {
		return review.Result{}, errors.New("run context has no deadline")
	}
	p.calls = append(p.calls, runCall{platform: gw.Name(), runID: runID, repo: repo, changeID: changeID})
	return p.result, p.err
}

type eventRecorder struct{ events []string }

func (r *eventRecorder) ObserveEvent(platform, state string) {
	r.events = append(r.events, platform+"/"+state)
}

func prPayload(action string) []byte {
	return []byte(fmt.Sprintf(`{"action":%q,"pull_request":{"number":7},"repository":{"full_name":"owner/repo"}}`, action))
}

func githubHeaders(event string, body []byte, secret string) http.Header {
	h := http.Header{}
	h.Set(HeaderGitHubEvent, event)
	h.Set(HeaderGitHubDelivery, "delivery-1")
	if secret != "" {
		h.Set(HeaderGitHubSignature, SignGitHub(secret, body))
	}
	return h
}

func newTestDispatcher(cfg Config, p Pipeline, obs EventObserver) *Dispatcher {
	d := NewDispatcher(cfg, providers.NewRegistry(stubGateway{name: providers.GitHub}), p, WithObserver(obs))
	d.newRunID = func() string { return "run-fixed" }
	return d
}

func secrets(platform string) map[string]string {
	return map[string]string{platform: testSecret}
}

func TestVerifyGitHub(t *testing.T) {
	body := []byte(`{"action":"opened"}`)
	sig := SignGitHub(testSecret, body)

	assert.True(t, strings.HasPrefix(sig, "sha256="))
	assert.True(t, VerifyGitHub(testSecret, sig, body))

	altered := []byte(`{"action":"opened "}`)
	assert.False(t, VerifyGitHub(testSecret, sig, altered))

	badSig := []byte(sig)
	if badSig[len(badSig)-1] == '0' {
		badSig[len(badSig)-1] = '1'
	} else {
		badSig[len(badSig)-1] = '0'
	}
	assert.False(t, VerifyGitHub(testSecret, string(badSig), body))
	assert.False(t, VerifyGitHub(testSecret, "", body))
	assert.False(t, VerifyGitHub("other-secret", sig, body))
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		header string
		value  string
		want   string
	}{
		{"github signature", HeaderGitHubSignature, "sha256=00", providers.GitHub},
		{"github event", HeaderGitHubEvent, "pull_request", providers.GitHub},
		{"gitlab token", HeaderGitLabToken, "tok", providers.GitLab},
		{"gitlab event", HeaderGitLabEvent, "Merge Request Hook", providers.GitLab},
		{"bitbucket", HeaderBitbucketEvent, "pullrequest:created", providers.Bitbucket},
		{"none", "X-Other", "x", PlatformUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := http.Header{}
			h.Set(tt.header, tt.value)
			assert.Equal(t, tt.want, Classify(h))
		})
	}
}

func TestDispatch_GitHubReported(t *testing.T) {
	p := &fakePipeline{result: review.NewResult([]review.Issue{{Severity: review.SeverityError}}, nil)}
	obs := &eventRecorder{}
	d := newTestDispatcher(Config{Secrets: secrets(providers.GitHub)}, p, obs)

	body := prPayload("opened")
	out := d.Dispatch(context.Background(), githubHeaders("pull_request", body, testSecret), body)

	require.NoError(t, out.Err)
	assert.Equal(t, StateReported, out.State)
	assert.True(t, out.Event.Verified)
	assert.Equal(t, Event{
		Platform: providers.GitHub, Verified: true, Repo: "owner/repo", ChangeID: "7",
		Action: "opened", Kind: "pull_request", DeliveryID: "delivery-1",
	}, out.Event)
	assert.Equal(t, []runCall{{platform: providers.GitHub, runID: "run-fixed", repo: "owner/repo", changeID: "7"}}, p.calls)
	require.NotNil(t, out.Result)
	assert.Equal(t, 95, out.Result.Score)
	assert.Equal(t, []string{"github/reported"}, obs.events)
}

func TestDispatch_ActionFilter(t *testing.T) {
	for _, action := range []string{"opened", "synchronize", "reopened"} {
		p := &fakePipeline{}
		d := newTestDispatcher(Config{}, p, nil)
		body := prPayload(action)
		out := d.Dispatch(context.Background(), githubHeaders("pull_request", body, ""), body)
		assert.Equal(t, StateReported, out.State, action)
	}

	for _, action := range []string{"closed", "edited", "labeled"} {
		p := &fakePipeline{}
		d := newTestDispatcher(Config{}, p, nil)
		body := prPayload(action)
		out := d.Dispatch(context.Background(), githubHeaders("pull_request", body, ""), body)
		assert.Equal(t, StateIgnored, out.State, action)
		assert.NoError(t, out.Err)
		assert.Empty(t, p.calls, action)
	}
}

func TestDispatch_NonPullRequestEventIgnored(t *testing.T) {
	p := &fakePipeline{}
	d := newTestDispatcher(Config{}, p, nil)
	body := []byte(`{"zen":"Keep it logically awesome."}`)

	out := d.Dispatch(context.Background(), githubHeaders("ping", body, ""), body)
	assert.Equal(t, StateIgnored, out.State)
	assert.Equal(t, "ping event ignored", out.Message)
	assert.Empty(t, p.calls)
}

func TestDispatch_BadSignatureRejected(t *testing.T) {
	p := &fakePipeline{}
	obs := &eventRecorder{}
	d := newTestDispatcher(Config{Secrets: secrets(providers.GitHub)}, p, obs)

	body := prPayload("opened")
	h := githubHeaders("pull_request", body, testSecret)
	tampered := append([]byte{}, body...)
	tampered[len(tampered)-2] = ' '

	out := d.Dispatch(context.Background(), h, tampered)
	assert.Equal(t, StateRejected, out.State)
	assert.True(t, errors.Is(out.Err, ErrAuthentication))
	assert.Empty(t, p.calls)
	assert.Equal(t, []string{"github/rejected"}, obs.events)

	out = d.Dispatch(context.Background(), githubHeaders("pull_request", body, ""), body)
	assert.True(t, errors.Is(out.Err, ErrAuthentication))
}

func TestDispatch_NoSecretAcceptsAll(t *testing.T) {
	p := &fakePipeline{}
	d := newTestDispatcher(Config{}, p, nil)

	body := prPayload("opened")
	out := d.Dispatch(context.Background(), githubHeaders("pull_request", body, ""), body)
	assert.Equal(t, StateReported, out.State)
	assert.False(t, out.Event.Verified)
	assert.Len(t, p.calls, 1)
}

func TestDispatch_RequireSecrets(t *testing.T) {
	p := &fakePipeline{}
	d := newTestDispatcher(Config{RequireSecrets: true}, p, nil)

	body := prPayload("opened")
	out := d.Dispatch(context.Background(), githubHeaders("pull_request", body, ""), body)
	assert.Equal(t, StateRejected, out.State)
	assert.True(t, errors.Is(out.Err, ErrAuthentication))
	assert.Empty(t, p.calls)
}

func TestDispatch_UnknownPlatform(t *testing.T) {
	obs := &eventRecorder{}
	d := newTestDispatcher(Config{}, &fakePipeline{}, obs)

	out := d.Dispatch(context.Background(), http.Header{}, []byte(`{}`))
	assert.Equal(t, StateRejected, out.State)
	assert.True(t, errors.Is(out.Err, ErrUnknownPlatform))
	assert.Equal(t, []string{"unknown/rejected"}, obs.events)
}

func TestDispatch_BadPayload(t *testing.T) {
	d := newTestDispatcher(Config{}, &fakePipeline{}, nil)

	for _, body := range [][]byte{[]byte(`{not json`), []byte(`{"action":"opened","repository":{"full_name":"o/r"}}`)} {
		out := d.Dispatch(context.Background(), githubHeaders("pull_request", body, ""), body)
		assert.Equal(t, StateRejected, out.State)
		assert.True(t, errors.Is(out.Err, ErrBadPayload), string(body))
	}
}

func TestDispatch_PipelineFailure(t *testing.T) {
	p := &fakePipeline{err: fmt.Errorf("%w: 502", providers.ErrProviderCall)}
	d := newTestDispatcher(Config{}, p, nil)

	body := prPayload("synchronize")
	out := d.Dispatch(context.Background(), githubHeaders("pull_request", body, ""), body)
	assert.Equal(t, StateFailed, out.State)
	assert.True(t, errors.Is(out.Err, providers.ErrProviderCall))
}

func gitlabHeaders(token string) http.Header {
	h := http.Header{}
	h.Set(HeaderGitLabEvent, "Merge Request Hook")
	if token != "" {
		h.Set(HeaderGitLabToken, token)
	}
	return h
}

func TestDispatch_GitLabPlaceholder(t *testing.T) {
	p := &fakePipeline{}
	d := newTestDispatcher(Config{Secrets: secrets(providers.GitLab)}, p, nil)
	body := []byte(`{"object_kind":"merge_request","project":{"path_with_namespace":"group/proj"},"object_attributes":{"iid":3,"action":"open"}}`)

	out := d.Dispatch(context.Background(), gitlabHeaders(testSecret), body)
	assert.Equal(t, StateProcessed, out.State)
	assert.Equal(t, PlaceholderMessage, out.Message)
	assert.Equal(t, "group/proj", out.Event.Repo)
	assert.Equal(t, "3", out.Event.ChangeID)
	assert.True(t, out.Event.Verified)
	assert.Empty(t, p.calls)

	out = d.Dispatch(context.Background(), gitlabHeaders("wrong-token"), body)
	assert.True(t, errors.Is(out.Err, ErrAuthentication))

	closed := []byte(`{"object_kind":"merge_request","project":{"path_with_namespace":"group/proj"},"object_attributes":{"iid":3,"action":"close"}}`)
	out = d.Dispatch(context.Background(), gitlabHeaders(testSecret), closed)
	assert.Equal(t, StateIgnored, out.State)
}

func TestDispatch_Bitbucket(t *testing.T) {
	d := newTestDispatcher(Config{}, &fakePipeline{}, nil)
	body := []byte(`{"pullrequest":{"id":12},"repository":{"full_name":"team/app"}}`)

	h := http.Header{}
	h.Set(HeaderBitbucketEvent, "pullrequest:created")
	out := d.Dispatch(context.Background(), h, body)
	assert.Equal(t, StateProcessed, out.State)
	assert.Equal(t, "created", out.Event.Action)
	assert.Equal(t, "12", out.Event.ChangeID)

	h.Set(HeaderBitbucketEvent, "repo:push")
	out = d.Dispatch(context.Background(), h, body)
	assert.Equal(t, StateIgnored, out.State)
}

func serve(t *testing.T, router http.Handler, req *http.Request) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	var payload map[string]any
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	}
	return rec, payload
}

func webhookRequest(body []byte, h http.Header) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(string(body)))
	for k, v := range h {
		req.Header[k] = v
	}
	return req
}

func TestRouter_StatusMapping(t *testing.T) {
	body := prPayload("opened")

	t.Run("reported", func(t *testing.T) {
		p := &fakePipeline{result: review.NewResult([]review.Issue{
			{Severity: review.SeverityError}, {Severity: review.SeverityWarning},
		}, nil)}
		router := NewRouter(newTestDispatcher(Config{Secrets: secrets(providers.GitHub)}, p, nil), ServerOptions{})

		rec, payload := serve(t, router, webhookRequest(body, githubHeaders("pull_request", body, testSecret)))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "PR #7 analyzed successfully", payload["message"])
		assert.Equal(t, float64(2), payload["issues_count"])
		assert.Equal(t, float64(93), payload["score"])
	})

	t.Run("bad signature", func(t *testing.T) {
		router := NewRouter(newTestDispatcher(Config{Secrets: secrets(providers.GitHub)}, &fakePipeline{}, nil), ServerOptions{})
		h := githubHeaders("pull_request", body, "not-the-secret")

		rec, payload := serve(t, router, webhookRequest(body, h))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "authentication failed", payload["error"])
	})

	t.Run("unknown platform", func(t *testing.T) {
		router := NewRouter(newTestDispatcher(Config{}, &fakePipeline{}, nil), ServerOptions{})

		rec, _ := serve(t, router, webhookRequest(body, http.Header{}))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("ignored", func(t *testing.T) {
		router := NewRouter(newTestDispatcher(Config{}, &fakePipeline{}, nil), ServerOptions{})
		closed := prPayload("closed")

		rec, payload := serve(t, router, webhookRequest(closed, githubHeaders("pull_request", closed, "")))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "pull_request action closed ignored", payload["message"])
	})

	t.Run("provider failure", func(t *testing.T) {
		p := &fakePipeline{err: fmt.Errorf("%w: boom", providers.ErrProviderCall)}
		router := NewRouter(newTestDispatcher(Config{}, p, nil), ServerOptions{})

		rec, payload := serve(t, router, webhookRequest(body, githubHeaders("pull_request", body, "")))
		assert.Equal(t, http.StatusBadGateway, rec.Code)
		assert.NotContains(t, payload["error"], "boom")
	})

	t.Run("body too large", func(t *testing.T) {
		router := NewRouter(newTestDispatcher(Config{}, &fakePipeline{}, nil), ServerOptions{MaxBodyBytes: 8})

		rec, _ := serve(t, router, webhookRequest(body, githubHeaders("pull_request", body, "")))
		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	})
}

func TestRouter_StatusRoutes(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := telemetry.NewMetrics(reg)
	d := newTestDispatcher(Config{}, &fakePipeline{}, metrics)
	router := NewRouter(d, ServerOptions{MetricsHandler: telemetry.Handler(reg)})

	rec, payload := serve(t, router, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, RootMessage, payload["message"])

	rec, payload = serve(t, router, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", payload["status"])

	closed := prPayload("closed")
	serve(t, router, webhookRequest(closed, githubHeaders("pull_request", closed, "")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.WebhookEvents.WithLabelValues("github", "ignored")))

	rec, _ = serve(t, router, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "codemate_webhook_events_total")
}
