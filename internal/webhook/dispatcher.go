package webhook

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/dshills/codemate/internal/orchestrator"
	"github.com/dshills/codemate/internal/providers"
	"github.com/dshills/codemate/internal/review"
)

// DefaultRunTimeout bounds one pipeline run.
const DefaultRunTimeout = 5 * time.Minute

// PlaceholderMessage acknowledges events for platforms without a gateway.
const PlaceholderMessage = "received; processing not implemented"

// Pipeline runs a review for one change request.
type Pipeline interface {
	Run(ctx context.Context, gw providers.Gateway, runID, repo, changeID string) (review.Result, error)
}

// EventObserver is told the terminal state of each event.
type EventObserver interface {
	ObserveEvent(platform, state string)
}

// Config holds the dispatcher's read-only settings.
type Config struct {
	// Secrets maps platform name to its webhook secret or token.
	Secrets map[string]string
	// RequireSecrets rejects requests for platforms with no configured
	// secret instead of accepting them unauthenticated.
	RequireSecrets bool
	RunTimeout     time.Duration
}

// Dispatcher authenticates, classifies and filters inbound events and drives
// the pipeline for actionable ones.
type Dispatcher struct {
	cfg      Config
	gateways *providers.Registry
	pipeline Pipeline
	logger   *slog.Logger
	observer EventObserver
	newRunID func() string
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the dispatcher's logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithObserver sets the telemetry sink.
func WithObserver(o EventObserver) Option {
	return func(d *Dispatcher) { d.observer = o }
}

// NewDispatcher creates a dispatcher. Platforms without a configured secret
// are logged at construction since their requests go unauthenticated.
func NewDispatcher(cfg Config, gateways *providers.Registry, pipeline Pipeline, opts ...Option) *Dispatcher {
	if cfg.RunTimeout <= 0 {
		cfg.RunTimeout = DefaultRunTimeout
	}
	d := &Dispatcher{
		cfg:      cfg,
		gateways: gateways,
		pipeline: pipeline,
		logger:   slog.Default(),
		newRunID: orchestrator.NewRunID,
	}
	for _, opt := range opts {
		opt(d)
	}

	for _, p := range []string{providers.GitHub, providers.GitLab, providers.Bitbucket} {
		if cfg.Secrets[p] != "" {
			continue
		}
		if cfg.RequireSecrets {
			d.logger.Warn("no webhook secret configured; requests will be rejected", "platform", p)
		} else {
			d.logger.Warn("no webhook secret configured; accepting unauthenticated requests", "platform", p)
		}
	}
	return d
}

// Dispatch processes one inbound request to a terminal outcome.
func (d *Dispatcher) Dispatch(ctx context.Context, h http.Header, body []byte) (out Outcome) {
	ctx, span := otel.Tracer("github.com/dshills/codemate/webhook").Start(ctx, "webhook.dispatch")
	defer func() {
		span.SetAttributes(
			attribute.String("codemate.platform", out.Event.Platform),
			attribute.String("codemate.state", string(out.State)),
		)
		if out.Err != nil {
			span.SetStatus(codes.Error, out.Err.Error())
		}
		span.End()
		if d.observer != nil {
			d.observer.ObserveEvent(out.Event.Platform, string(out.State))
		}
	}()

	// received -> classified
	ev := Event{Platform: Classify(h)}
	if ev.Platform == PlatformUnknown {
		d.logger.Warn("rejected webhook from unknown platform")
		return Outcome{State: StateRejected, Event: ev, Err: ErrUnknownPlatform}
	}
	ev.Kind = eventKind(ev.Platform, h)
	ev.DeliveryID = deliveryID(ev.Platform, h)
	logger := d.logger.With("platform", ev.Platform, "kind", ev.Kind, "delivery", ev.DeliveryID)

	// classified -> authenticated
	secret := d.cfg.Secrets[ev.Platform]
	switch {
	case secret != "":
		if !authenticate(ev.Platform, secret, h, body) {
			logger.Warn("rejected webhook with invalid signature")
			return Outcome{State: StateRejected, Event: ev, Err: ErrAuthentication}
		}
		ev.Verified = true
	case d.cfg.RequireSecrets:
		logger.Warn("rejected webhook: no secret configured")
		return Outcome{State: StateRejected, Event: ev, Err: fmt.Errorf("%w: no secret configured for %s", ErrAuthentication, ev.Platform)}
	default:
		logger.Warn("accepting unauthenticated webhook", "verified", false)
	}

	// authenticated -> action filtered
	actionable, err := filterAction(&ev, body)
	if err != nil {
		logger.Warn("rejected webhook payload", "error", err)
		return Outcome{State: StateRejected, Event: ev, Err: err}
	}
	if !actionable {
		logger.Info("ignored webhook", "action", ev.Action)
		return Outcome{State: StateIgnored, Event: ev, Message: ignoredMessage(ev)}
	}
	logger = logger.With("repo", ev.Repo, "change", ev.ChangeID, "action", ev.Action)

	gw, ok := d.gateways.Get(ev.Platform)
	if !ok {
		logger.Info("acknowledged webhook without processing")
		return Outcome{State: StateProcessed, Event: ev, Message: PlaceholderMessage}
	}

	// processed -> reported
	runID := d.newRunID()
	runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.cfg.RunTimeout)
	defer cancel()

	result, err := d.pipeline.Run(runCtx, gw, runID, ev.Repo, ev.ChangeID)
	if err != nil {
		logger.Error("review run failed", "run_id", runID, "error", err)
		return Outcome{State: StateFailed, Event: ev, Result: &result, Err: err}
	}
	return Outcome{
		State:   StateReported,
		Event:   ev,
		Result:  &result,
		Message: fmt.Sprintf("PR #%s analyzed successfully", ev.ChangeID),
	}
}

func ignoredMessage(ev Event) string {
	if ev.Action != "" {
		return fmt.Sprintf("%s action %s ignored", ev.Kind, ev.Action)
	}
	if ev.Kind != "" {
		return fmt.Sprintf("%s event ignored", ev.Kind)
	}
	return "Event ignored"
}
