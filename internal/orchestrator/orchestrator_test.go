package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/codemate/internal/analyzers"
	"github.com/dshills/codemate/internal/providers"
	"github.com/dshills/codemate/internal/review"
)

type fakeGateway struct {
	files      []review.ChangedFile
	fetchErr   error
	inlineErr  error
	calls      []string
	inlineSeen []review.Issue
	linesSeen  int
	summary    review.Result
}

func (g *fakeGateway) Name() string { return providers.GitHub }

func (g *fakeGateway) FetchChangedFiles(context.Context, string, string) ([]review.ChangedFile, error) {
	g.calls = append(g.calls, "fetch")
	return g.files, g.fetchErr
}

func (g *fakeGateway) PostInlineComments(_ context.Context, _, _ string, files []review.ChangedFile, issues []review.Issue) error {
	g.calls = append(g.calls, "inline")
	g.inlineSeen = issues
	for _, f := range files {
		g.linesSeen += len(f.Lines)
	}
	return g.inlineErr
}

func (g *fakeGateway) PostSummary(_ context.Context, _, _ string, result review.Result) error {
	g.calls = append(g.calls, "summary")
	g.summary = result
	return nil
}

type scoreRecorder struct{ scores []int }

func (r *scoreRecorder) ObserveScore(score int) { r.scores = append(r.scores, score) }

func ptr(s string) *string { return &s }

func TestParseFiles(t *testing.T) {
	in := []review.ChangedFile{
		{Path: "a.py", Patch: ptr("@@ -0,0 +1,2 @@\n+x\n+y")},
		{Path: "bad.py", Patch: ptr("@@ garbage @@\n+x")},
		{Path: "bin.png"},
	}

	out := ParseFiles(in, nil)
	require.Len(t, out, 3)
	assert.Len(t, out[0].Lines, 2)
	assert.Equal(t, "a.py", out[0].Lines[1].Path)
	assert.Empty(t, out[1].Lines)
	assert.Equal(t, "bad.py", out[1].Path)
	assert.Empty(t, out[2].Lines)
	assert.Nil(t, in[0].Lines)
}

func TestRun_FetchAnalyzeReport(t *testing.T) {
	gw := &fakeGateway{files: []review.ChangedFile{
		{Path: "app.py", Patch: ptr("@@ -0,0 +1,2 @@\n+import os\n+x = 1")},
	}}
	scores := &scoreRecorder{}
	svc := NewService(review.NewRunner([]review.Analyzer{analyzers.NewAI()}), Options{Observer: scores})

	result, err := svc.Run(context.Background(), gw, "run-1", "owner/repo", "7")
	require.NoError(t, err)

	assert.Equal(t, []string{"fetch", "inline", "summary"}, gw.calls)
	assert.Equal(t, "run-1", result.RunID)
	require.Len(t, result.Issues, 2)
	assert.Equal(t, 1, result.Issues[0].Line)
	assert.Equal(t, 2, result.Issues[1].Line)
	assert.Equal(t, 100, result.Score)
	assert.Equal(t, 2, gw.linesSeen)
	assert.Equal(t, result, gw.summary)
	assert.Equal(t, []int{100}, scores.scores)
}

func TestRun_FetchFailureStopsPipeline(t *testing.T) {
	gw := &fakeGateway{fetchErr: fmt.Errorf("%w: 500", providers.ErrProviderCall)}
	svc := NewService(review.NewRunner(nil), Options{})

	_, err := svc.Run(context.Background(), gw, "run-2", "owner/repo", "7")
	assert.True(t, errors.Is(err, providers.ErrProviderCall))
	assert.Equal(t, []string{"fetch"}, gw.calls)
}

func TestRun_InlineFailureSkipsSummary(t *testing.T) {
	gw := &fakeGateway{
		files:     []review.ChangedFile{{Path: "app.py", Patch: ptr("@@ -0,0 +1 @@\n+x")}},
		inlineErr: fmt.Errorf("%w: 422", providers.ErrProviderCall),
	}
	svc := NewService(review.NewRunner([]review.Analyzer{analyzers.NewAI()}), Options{})

	result, err := svc.Run(context.Background(), gw, "run-3", "owner/repo", "7")
	assert.True(t, errors.Is(err, providers.ErrProviderCall))
	assert.Equal(t, []string{"fetch", "inline"}, gw.calls)
	assert.Len(t, result.Issues, 1)
}

func TestNewRunID(t *testing.T) {
	a, b := NewRunID(), NewRunID()
	assert.Len(t, a, 36)
	assert.NotEqual(t, a, b)
}
