package content

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/activity-heatmap/internal/activity"
	"github.com/JakeFAU/activity-heatmap/internal/source/github"
	"github.com/JakeFAU/activity-heatmap/internal/store"
)

type mockGitHub struct {
	mock.Mock
}

func (m *mockGitHub) CommitMessage(ctx context.Context, ref github.CommitRef) (string, error) {
	args := m.Called(ctx, ref)
	return args.String(0), args.Error(1)
}

func (m *mockGitHub) Readme(ctx context.Context, link string) (string, error) {
	args := m.Called(ctx, link)
	return args.String(0), args.Error(1)
}

type pageFetcher map[string]string

func (p pageFetcher) Fetch(_ context.Context, req activity.FetchRequest) (activity.FetchResponse, error) {
	body, ok := p[req.URL]
	if !ok {
		return activity.FetchResponse{URL: req.URL, StatusCode: 404}, errors.New("not found")
	}
	return activity.FetchResponse{URL: req.URL, StatusCode: 200, Body: []byte(body)}, nil
}

func TestResolvePicksSourcePerType(t *testing.T) {
	t.Parallel()

	gh := &mockGitHub{}
	gh.On("CommitMessage", mock.Anything, github.CommitRef{Repo: "octo/alpha", SHA: "abc"}).Return("Fix <b>parser</b>\n\nDetails", nil)
	gh.On("Readme", mock.Anything, "https://github.com/octo/alpha/blob/main/README.md").Return("# Alpha readme", nil)

	pages := pageFetcher{"https://old.example/a.html": "<html><script>x()</script><p>Old &amp; page</p></html>"}
	r := NewResolver(pages, gh, nil)

	entries := []activity.Entry{
		{Link: "https://blog.example/p", SourceType: activity.SourceStructuredAPI, RawContent: "<p>Hello <em>world</em></p>"},
		{Link: "https://github.com/octo/alpha/commit/abc", SourceType: activity.SourceCommitHistory},
		{Link: "https://github.com/octo/alpha/blob/main/README.md", SourceType: activity.SourceReadme},
		{Link: "https://old.example/a.html", SourceType: activity.SourceLegacyCrawl},
		{Link: "https://old.example/missing.html", SourceType: activity.SourceLegacyCrawl},
	}
	rows, err := r.Resolve(context.Background(), entries)
	require.NoError(t, err)
	assert.Equal(t, []store.ContentRow{
		{Link: "https://blog.example/p", Content: "Hello world"},
		{Link: "https://github.com/octo/alpha/commit/abc", Content: "Fix parser Details"},
		{Link: "https://github.com/octo/alpha/blob/main/README.md", Content: "# Alpha readme"},
		{Link: "https://old.example/a.html", Content: "Old & page"},
		{Link: "https://old.example/missing.html", Content: ""},
	}, rows)
	gh.AssertExpectations(t)
}

func TestResolveWithoutGitHub(t *testing.T) {
	t.Parallel()

	r := NewResolver(pageFetcher{}, nil, nil)
	text, err := r.Text(context.Background(), activity.Entry{Link: "https://github.com/o/r/commit/1", SourceType: activity.SourceCommitHistory})
	require.NoError(t, err)
	assert.Empty(t, text)
}

func TestResolveStopsOnCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := NewResolver(pageFetcher{}, nil, nil)
	_, err := r.Resolve(ctx, []activity.Entry{{Link: "https://x.example"}})
	require.ErrorIs(t, err, context.Canceled)
}

func TestMeasure(t *testing.T) {
	t.Parallel()

	day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	entries := []activity.Entry{
		{Link: "https://Blog.example/p/", Date: day},
		{Link: "https://blog.example/q", Date: day},
	}
	texts := Texts([]store.ContentRow{
		{Link: "https://blog.example/p", Content: "Grüße aus Köln, 2024!"},
		{Link: "https://blog.example/p", Content: "ignored"},
	})
	out := Measure(entries, texts)
	assert.Equal(t, 4, out[0].WordCount)
	assert.Equal(t, 21, out[0].CharCount)
	assert.Equal(t, 0, out[1].WordCount)
	assert.Equal(t, 0, entries[0].WordCount, "input is not modified")
}
