package orchestrator

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/dshills/codemate/internal/diff"
	"github.com/dshills/codemate/internal/providers"
	"github.com/dshills/codemate/internal/review"
)

// ScoreObserver receives the score of each completed analysis.
type ScoreObserver interface {
	ObserveScore(score int)
}

// Options configures a Service.
type Options struct {
	// RepoRoot is the working directory handed to analyzers.
	RepoRoot string
	Logger   *slog.Logger
	Observer ScoreObserver
}

// Service runs the review pipeline. It holds no per-run state and is safe
// for concurrent use.
type Service struct {
	runner   *review.Runner
	repoRoot string
	logger   *slog.Logger
	observer ScoreObserver
}

// NewService creates a Service around runner.
func NewService(runner *review.Runner, opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	root := opts.RepoRoot
	if root == "" {
		root = "."
	}
	return &Service{runner: runner, repoRoot: root, logger: logger, observer: opts.Observer}
}

// NewRunID returns a fresh run identifier.
func NewRunID() string { return uuid.NewString() }

// ParseFiles returns a copy of files with Lines filled from each patch. A file
// whose patch does not parse stays in the batch with no lines.
func ParseFiles(files []review.ChangedFile, logger *slog.Logger) []review.ChangedFile {
	if logger == nil {
		logger = slog.Default()
	}
	out := make([]review.ChangedFile, len(files))
	for i, f := range files {
		out[i] = f
		out[i].Lines = nil
		if !f.HasPatch() {
			continue
		}
		lines, err := diff.ParseFile(f.Path, *f.Patch)
		if err != nil {
			logger.Warn("skipping unparseable patch", "path", f.Path, "error", err)
			continue
		}
		out[i].Lines = lines
	}
	return out
}

// Analyze runs every analyzer over already parsed files and stamps the
// result with runID.
func (s *Service) Analyze(ctx context.Context, runID string, files []review.ChangedFile) review.Result {
	logger := s.logger.With("run_id", runID)
	ctx, span := otel.Tracer("github.com/dshills/codemate/orchestrator").Start(ctx, "review.analyze")
	defer span.End()

	result := s.runner.Run(ctx, s.repoRoot, files)
	result.RunID = runID

	span.SetAttributes(
		attribute.Int("codemate.files", len(files)),
		attribute.Int("codemate.issues", len(result.Issues)),
		attribute.Int("codemate.score", result.Score),
	)
	if s.observer != nil {
		s.observer.ObserveScore(result.Score)
	}
	logger.Info("analysis complete",
		"files", len(files),
		"issues", len(result.Issues),
		"score", result.Score,
		"degraded", result.Degraded,
	)
	return result
}

// Report posts inline comments and then the summary. The first failure
// aborts reporting.
func (s *Service) Report(ctx context.Context, gw providers.Gateway, repo, changeID string, files []review.ChangedFile, result review.Result) error {
	if err := gw.PostInlineComments(ctx, repo, changeID, files, result.Issues); err != nil {
		return err
	}
	return gw.PostSummary(ctx, repo, changeID, result)
}

// Run executes the full pipeline for one change request.
func (s *Service) Run(ctx context.Context, gw providers.Gateway, runID, repo, changeID string) (review.Result, error) {
	logger := s.logger.With("platform", gw.Name(), "repo", repo, "change", changeID, "run_id", runID)
	ctx, span := otel.Tracer("github.com/dshills/codemate/orchestrator").Start(ctx, "review.run")
	defer span.End()

	files, err := s.Fetch(ctx, gw, repo, changeID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		logger.Error("fetching changed files failed", "error", err)
		return review.Result{RunID: runID}, err
	}

	result := s.Analyze(ctx, runID, files)
	if err := s.Report(ctx, gw, repo, changeID, files, result); err != nil {
		span.SetStatus(codes.Error, err.Error())
		logger.Error("reporting failed", "error", err, "provider_error", errors.Is(err, providers.ErrProviderCall))
		return result, err
	}
	logger.Info("review reported", "issues", len(result.Issues), "score", result.Score)
	return result, nil
}

// Fetch lists and parses the change request's files.
func (s *Service) Fetch(ctx context.Context, gw providers.Gateway, repo, changeID string) ([]review.ChangedFile, error) {
	files, err := gw.FetchChangedFiles(ctx, repo, changeID)
	if err != nil {
		return nil, err
	}
	return ParseFiles(files, s.logger), nil
}
