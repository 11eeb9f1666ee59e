package github

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	gh "github.com/google/go-github/v71/github"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/dshills/codemate/internal/providers"
	"github.com/dshills/codemate/internal/redact"
	"github.com/dshills/codemate/internal/review"
)

const (
	defaultAPIURL = "https://api.github.com"
	pageSize      = 100
	reviewEvent   = "COMMENT"
)

// Options configures a Gateway.
type Options struct {
	Token  string
	APIURL string
	// RequestsPerSecond throttles outbound calls; zero disables throttling.
	RequestsPerSecond float64
	// HTTPClient is the base client. Defaults to one with a 60s timeout.
	HTTPClient *http.Client
	Redactor   *redact.Redactor
	Observer   providers.CallObserver
	Logger     *slog.Logger
}

// Gateway implements providers.Gateway for GitHub pull requests.
type Gateway struct {
	client   *gh.Client
	redactor *redact.Redactor
	observer providers.CallObserver
	logger   *slog.Logger
}

var _ providers.Gateway = (*Gateway)(nil)

// New creates a GitHub gateway.
func New(opts Options) (*Gateway, error) {
	apiURL := strings.TrimRight(opts.APIURL, "/")
	if apiURL == "" {
		apiURL = defaultAPIURL
	}
	base, err := url.Parse(apiURL + "/")
	if err != nil {
		return nil, fmt.Errorf("parsing GitHub API URL %q: %w", opts.APIURL, err)
	}

	httpCli := opts.HTTPClient
	if httpCli == nil {
		httpCli = &http.Client{Timeout: 60 * time.Second}
	}
	httpCli = instrumented(throttled(httpCli, opts.RequestsPerSecond))

	client := gh.NewClient(httpCli)
	if opts.Token != "" {
		client = client.WithAuthToken(opts.Token)
	}
	client.BaseURL = base

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{
		client:   client,
		redactor: opts.Redactor,
		observer: opts.Observer,
		logger:   logger.With("platform", providers.GitHub),
	}, nil
}

// Name implements providers.Gateway.
func (g *Gateway) Name() string { return providers.GitHub }

// FetchChangedFiles lists the pull request's files, 100 per page, until a
// page comes back empty. Files without a textual patch keep a nil Patch.
func (g *Gateway) FetchChangedFiles(ctx context.Context, repo, changeID string) (_ []review.ChangedFile, err error) {
	ctx, done := g.call(ctx, "fetch_files", repo, changeID)
	defer func() { done(err) }()

	owner, name, number, err := target(repo, changeID)
	if err != nil {
		return nil, err
	}

	var files []review.ChangedFile
	for page := 1; ; page++ {
		batch, _, err := g.client.PullRequests.ListFiles(ctx, owner, name, number, &gh.ListOptions{Page: page, PerPage: pageSize})
		if err != nil {
			return nil, fmt.Errorf("%w: listing files of %s#%d: %w", providers.ErrProviderCall, repo, number, err)
		}
		if len(batch) == 0 {
			break
		}
		for _, f := range batch {
			cf := review.ChangedFile{Path: f.GetFilename()}
			if f.Patch != nil {
				patch := f.GetPatch()
				cf.Patch = &patch
			}
			files = append(files, cf)
		}
	}
	g.logger.Debug("fetched changed files", "repo", repo, "change", changeID, "files", len(files))
	return files, nil
}

// PostInlineComments posts one review carrying a comment per issue that maps
// onto the diff. Nothing is sent when no issue maps.
func (g *Gateway) PostInlineComments(ctx context.Context, repo, changeID string, files []review.ChangedFile, issues []review.Issue) (err error) {
	comments := providers.BuildInlineComments(files, issues, g.redactor)
	if len(comments) == 0 {
		g.logger.Debug("no inline comments to post", "repo", repo, "change", changeID)
		return nil
	}

	ctx, done := g.call(ctx, "post_review", repo, changeID)
	defer func() { done(err) }()

	owner, name, number, err := target(repo, changeID)
	if err != nil {
		return err
	}

	sha, err := g.latestCommit(ctx, owner, name, number)
	if err != nil {
		return fmt.Errorf("%w: listing commits of %s#%d: %w", providers.ErrProviderCall, repo, number, err)
	}

	drafts := make([]*gh.DraftReviewComment, len(comments))
	for i, c := range comments {
		drafts[i] = &gh.DraftReviewComment{
			Path:     gh.Ptr(c.Path),
			Position: gh.Ptr(c.Position),
			Body:     gh.Ptr(c.Body),
		}
	}
	req := &gh.PullRequestReviewRequest{
		Body:     gh.Ptr(providers.ReviewBody),
		Event:    gh.Ptr(reviewEvent),
		Comments: drafts,
	}
	if sha != "" {
		req.CommitID = gh.Ptr(sha)
	}

	if _, _, err := g.client.PullRequests.CreateReview(ctx, owner, name, number, req); err != nil {
		return fmt.Errorf("%w: creating review on %s#%d: %w", providers.ErrProviderCall, repo, number, err)
	}
	g.logger.Info("posted inline comments", "repo", repo, "change", changeID, "comments", len(drafts))
	return nil
}

// PostSummary posts the summary as a pull request conversation comment.
func (g *Gateway) PostSummary(ctx context.Context, repo, changeID string, result review.Result) (err error) {
	ctx, done := g.call(ctx, "post_summary", repo, changeID)
	defer func() { done(err) }()

	owner, name, number, err := target(repo, changeID)
	if err != nil {
		return err
	}

	result.Issues = g.redactor.Issues(result.Issues)
	body := providers.SummaryBody(result)
	if _, _, err := g.client.Issues.CreateComment(ctx, owner, name, number, &gh.IssueComment{Body: gh.Ptr(body)}); err != nil {
		return fmt.Errorf("%w: commenting on %s#%d: %w", providers.ErrProviderCall, repo, number, err)
	}
	g.logger.Info("posted summary", "repo", repo, "change", changeID, "issues", len(result.Issues), "score", result.Score)
	return nil
}

// latestCommit returns the SHA of the last commit on the pull request, or ""
// when it has none.
func (g *Gateway) latestCommit(ctx context.Context, owner, name string, number int) (string, error) {
	var last string
	opts := &gh.ListOptions{PerPage: pageSize}
	for {
		commits, resp, err := g.client.PullRequests.ListCommits(ctx, owner, name, number, opts)
		if err != nil {
			return "", err
		}
		if len(commits) > 0 {
			last = commits[len(commits)-1].GetSHA()
		}
		if resp == nil || resp.NextPage == 0 {
			return last, nil
		}
		opts.Page = resp.NextPage
	}
}

// call starts a span for one gateway operation and returns a func that ends
// it and reports the outcome.
func (g *Gateway) call(ctx context.Context, op, repo, changeID string) (context.Context, func(error)) {
	ctx, span := otel.Tracer("github.com/dshills/codemate/github").Start(ctx, "github."+op)
	span.SetAttributes(
		attribute.String("codemate.repo", repo),
		attribute.String("codemate.change", changeID),
	)
	return ctx, func(err error) {
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		if g.observer != nil {
			g.observer.ObserveProviderCall(providers.GitHub, op, err)
		}
	}
}

// target splits "owner/name" and the pull request number.
func target(repo, changeID string) (owner, name string, number int, err error) {
	owner, name, err = SplitRepo(repo)
	if err != nil {
		return "", "", 0, fmt.Errorf("%w: %w", providers.ErrProviderCall, err)
	}
	number, err = strconv.Atoi(strings.TrimSpace(changeID))
	if err != nil || number <= 0 {
		return "", "", 0, fmt.Errorf("%w: invalid pull request number %q", providers.ErrProviderCall, changeID)
	}
	return owner, name, number, nil
}
