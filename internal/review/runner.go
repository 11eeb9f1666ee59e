package review

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// defaultConcurrency limits parallel analyzer runs.
const defaultConcurrency = 4

// ErrToolUnavailable marks an analyzer whose external tool is missing, timed
// out or crashed. The runner treats it as a degraded result, not a failure.
var ErrToolUnavailable = errors.New("analysis tool unavailable")

// Analyzer is a pluggable check over a batch of changed files.
//
// Analyze receives the whole batch and must not modify it. Issue lines are
// new-file line numbers as produced by the diff parser. A non-nil error means
// the analyzer produced nothing usable; it never aborts the run.
type Analyzer interface {
	Name() string
	Analyze(ctx context.Context, repoRoot string, files []ChangedFile) ([]Issue, error)
}

// Analyzer outcomes reported to an Observer.
const (
	OutcomeOK       = "ok"
	OutcomeDegraded = "degraded"
	OutcomeFailed   = "failed"
)

// Observer receives per-analyzer telemetry.
type Observer interface {
	ObserveAnalyzer(name, outcome string, elapsed time.Duration)
}

// Runner executes a fixed list of analyzers over a batch of files.
type Runner struct {
	analyzers   []Analyzer
	concurrency int
	logger      *slog.Logger
	observer    Observer
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithConcurrency bounds how many analyzers run at once.
func WithConcurrency(n int) RunnerOption {
	return func(r *Runner) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

// WithLogger sets the runner's logger.
func WithLogger(l *slog.Logger) RunnerOption {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithObserver sets the telemetry sink.
func WithObserver(o Observer) RunnerOption {
	return func(r *Runner) { r.observer = o }
}

// NewRunner creates a runner for the given analyzers, kept in the given order.
func NewRunner(analyzers []Analyzer, opts ...RunnerOption) *Runner {
	r := &Runner{
		analyzers:   slices.Clone(analyzers),
		concurrency: defaultConcurrency,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Analyzers returns the names of the configured analyzers in order.
func (r *Runner) Analyzers() []string {
	names := make([]string, len(r.analyzers))
	for i, a := range r.analyzers {
		names[i] = a.Name()
	}
	return names
}

// Run invokes every analyzer and concatenates their issues in configuration
// order, regardless of completion order. An analyzer that errors contributes
// no issues and is listed in Result.Degraded.
func (r *Runner) Run(ctx context.Context, repoRoot string, files []ChangedFile) Result {
	type slot struct {
		issues []Issue
		err    error
	}

	slots := make([]slot, len(r.analyzers))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)

	for i, a := range r.analyzers {
		// each analyzer sees its own copy of the batch
		batch := slices.Clone(files)
		g.Go(func() error {
			issues, err := r.runOne(gctx, a, repoRoot, batch)
			slots[i] = slot{issues: issues, err: err}
			return nil
		})
	}
	_ = g.Wait()

	var issues []Issue
	var degraded []string
	for i, s := range slots {
		if s.err != nil {
			degraded = append(degraded, r.analyzers[i].Name())
			continue
		}
		issues = append(issues, s.issues...)
	}
	return NewResult(issues, degraded)
}

func (r *Runner) runOne(ctx context.Context, a Analyzer, repoRoot string, files []ChangedFile) ([]Issue, error) {
	ctx, span := otel.Tracer("github.com/dshills/codemate/review").Start(ctx, "analyzer."+a.Name(),
		trace.WithAttributes(attribute.Int("codemate.files", len(files))))
	defer span.End()

	start := time.Now()
	issues, err := analyze(ctx, a, repoRoot, files)
	elapsed := time.Since(start)

	outcome := OutcomeOK
	switch {
	case err == nil:
		r.logger.Debug("analyzer finished", "analyzer", a.Name(), "issues", len(issues), "elapsed", elapsed)
	case errors.Is(err, ErrToolUnavailable):
		outcome = OutcomeDegraded
		r.logger.Warn("analyzer degraded", "analyzer", a.Name(), "degraded", true, "error", err)
	default:
		outcome = OutcomeFailed
		r.logger.Error("analyzer failed", "analyzer", a.Name(), "degraded", true, "error", err)
	}
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		issues = nil
	}
	span.SetAttributes(
		attribute.String("codemate.analyzer.outcome", outcome),
		attribute.Int("codemate.analyzer.issues", len(issues)),
	)
	if r.observer != nil {
		r.observer.ObserveAnalyzer(a.Name(), outcome, elapsed)
	}
	return issues, err
}

// analyze calls the analyzer and turns a panic into an error.
func analyze(ctx context.Context, a Analyzer, repoRoot string, files []ChangedFile) (issues []Issue, err error) {
	defer func() {
		if p := recover(); p != nil {
			issues, err = nil, fmt.Errorf("analyzer %s panicked: %v", a.Name(), p)
		}
	}()
	return a.Analyze(ctx, repoRoot, files)
}
