package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/activity-heatmap/internal/activity"
	"github.com/JakeFAU/activity-heatmap/internal/content"
	"github.com/JakeFAU/activity-heatmap/internal/heatmap"
	pubmemory "github.com/JakeFAU/activity-heatmap/internal/publisher/memory"
	"github.com/JakeFAU/activity-heatmap/internal/report"
	"github.com/JakeFAU/activity-heatmap/internal/source"
	"github.com/JakeFAU/activity-heatmap/internal/storage/memory"
	"github.com/JakeFAU/activity-heatmap/internal/store"
)

var now = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

type fixedClock struct{}

func (fixedClock) Now() time.Time                             { return now }
func (fixedClock) Sleep(context.Context, time.Duration) error { return nil }

type stubAdapter struct {
	kind    string
	entries []activity.Entry
	err     error
}

func (s stubAdapter) Kind() string { return s.kind }

func (s stubAdapter) Fetch(context.Context, source.Descriptor) ([]activity.Entry, error) {
	return s.entries, s.err
}

type stubIDs struct{}

func (stubIDs) NewID() (string, error) { return "run-42", nil }

type recordingExporter struct {
	runID   string
	entries []activity.Entry
}

func (r *recordingExporter) UpsertEntries(_ context.Context, runID string, _ time.Time, entries []activity.Entry) error {
	r.runID = runID
	r.entries = entries
	return nil
}

type pages map[string]string

func (p pages) Fetch(_ context.Context, req activity.FetchRequest) (activity.FetchResponse, error) {
	body, ok := p[req.URL]
	if !ok {
		return activity.FetchResponse{}, errors.New("no such page")
	}
	return activity.FetchResponse{URL: req.URL, StatusCode: 200, Body: []byte(body)}, nil
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type fixture struct {
	pipeline  *Pipeline
	dir       *store.Dir
	blobs     *memory.BlobStore
	publisher *pubmemory.Publisher
	exporter  *recordingExporter
}

func newFixture(t *testing.T) fixture {
	t.Helper()

	registry := source.NewRegistry()
	registry.Register(activity.KindWordPress, func() source.Adapter {
		return stubAdapter{kind: activity.KindWordPress, entries: []activity.Entry{
			{Link: "https://blog.example/a/", Date: day(2024, 5, 1), Title: "First", SourceType: activity.SourceStructuredAPI, RawContent: "<p>one two three</p>"},
			{Link: "https://blog.example/b", Date: day(2023, 1, 2), Title: "Older", SourceType: activity.SourceStructuredAPI, RawContent: "<p>four</p>"},
		}}
	})
	registry.Register(activity.KindLegacyHTML, func() source.Adapter {
		return stubAdapter{kind: activity.KindLegacyHTML, entries: []activity.Entry{
			{Link: "https://BLOG.example/a", Date: day(2020, 1, 1), Title: "Dup", SourceType: activity.SourceLegacyCrawl},
			{Link: "https://old.example/x.html", Date: day(2024, 5, 1), Title: "Old page", SourceType: activity.SourceLegacyCrawl},
		}}
	})
	registry.Register(activity.KindQuartz, func() source.Adapter {
		return stubAdapter{kind: activity.KindQuartz, err: errors.New("site down")}
	})

	dir, err := store.NewDir(filepath.Join(t.TempDir(), "data"))
	require.NoError(t, err)
	blobs := memory.NewBlobStore()
	pub := pubmemory.New()
	exp := &recordingExporter{}

	p, err := New(Deps{
		Registry: registry,
		Descriptors: []source.Descriptor{
			{Kind: activity.KindWordPress, URL: "https://blog.example"},
			{Kind: activity.KindQuartz, URL: "https://notes.example"},
			{Kind: activity.KindLegacyHTML, URL: "https://old.example"},
			{Kind: "gopher", URL: "gopher://x"},
		},
		Dir:       dir,
		Content:   content.NewResolver(pages{"https://old.example/x.html": "<html><body>five six</body></html>"}, nil, nil),
		Report:    report.NewWriter(blobs, heatmap.Renderer{}, func() time.Time { return now }, nil, report.Config{}),
		Clock:     fixedClock{},
		IDs:       stubIDs{},
		Exporter:  exp,
		Publisher: pub,
		Topic:     "activity-runs",
	})
	require.NoError(t, err)
	return fixture{pipeline: p, dir: dir, blobs: blobs, publisher: pub, exporter: exp}
}

func TestKindsOf(t *testing.T) {
	t.Parallel()

	assert.Equal(t, activity.Kinds, KindsOf(nil))
	assert.Equal(t, []string{"github", "wordpress"}, KindsOf([]source.Descriptor{
		{Kind: "github"}, {Kind: "wordpress"}, {Kind: "github"},
	}))
}

func TestNewRequiresDeps(t *testing.T) {
	t.Parallel()

	_, err := New(Deps{})
	assert.Error(t, err)
}

func TestCollectMergesInDescriptorOrder(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	batch, err := f.pipeline.Collect(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{activity.KindWordPress, activity.KindQuartz, activity.KindLegacyHTML, "gopher"}, batch.Kinds)
	assert.Equal(t, 3, batch.Len())
	require.Len(t, batch.Entries[activity.KindLegacyHTML], 1, "the duplicate of an earlier source is dropped")
	assert.Equal(t, "Old page", batch.Entries[activity.KindLegacyHTML][0].Title)

	loaded, err := f.pipeline.LoadSources()
	require.NoError(t, err)
	assert.Len(t, loaded.Entries[activity.KindWordPress], 2)
	assert.Empty(t, loaded.Entries[activity.KindQuartz])
	_, err = os.Stat(f.dir.SourcesPath(activity.KindQuartz))
	assert.NoError(t, err, "a failed source still gets an empty file")
}

func TestRunProducesEveryArtifact(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	res, err := f.pipeline.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, res.Overview.Summary.Entries)
	assert.Equal(t, 6, res.Overview.Summary.Words)
	assert.Equal(t, []string{"assets/activity_2023.svg", "assets/activity_2024.svg", "index.html"}, f.blobs.Paths())

	stats, err := f.dir.ReadStatistics(activity.KindLegacyHTML)
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.Equal(t, 2, stats[0].WordCount)

	content, err := f.dir.ReadContent(activity.KindWordPress)
	require.NoError(t, err)
	assert.Equal(t, "one two three", content["https://blog.example/a"])

	assert.Equal(t, "run-42", f.exporter.runID)
	assert.Len(t, f.exporter.entries, 3)

	runs := f.publisher.RunsCompleted()
	require.Len(t, runs, 1)
	assert.Equal(t, "run-42", runs[0].RunID)
	assert.Equal(t, []int{2024, 2023}, runs[0].Years)
	assert.Equal(t, map[string]int{"WordPress": 2, "Legacy HTML": 1}, runs[0].BySource)
	assert.Equal(t, "activity-runs", f.publisher.Messages()[0].Topic)
}

func TestStagesFromDisk(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	collected, err := f.pipeline.Collect(context.Background())
	require.NoError(t, err)
	_, err = f.pipeline.Content(context.Background(), collected)
	require.NoError(t, err)

	sources, err := f.pipeline.LoadSources()
	require.NoError(t, err)
	counted, err := f.pipeline.Statistics(sources, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, counted.Entries[activity.KindWordPress][0].WordCount)

	loaded, err := f.pipeline.LoadStatistics()
	require.NoError(t, err)
	res, err := f.pipeline.Report(context.Background(), loaded)
	require.NoError(t, err)
	assert.Equal(t, 6, res.Overview.Summary.Words)
}

func TestCollectHonorsCancellation(t *testing.T) {
	t.Parallel()

	registry := source.NewRegistry()
	registry.Register("slow", func() source.Adapter {
		return stubAdapter{kind: "slow", err: context.Canceled}
	})
	dir, err := store.NewDir(t.TempDir())
	require.NoError(t, err)
	p, err := New(Deps{Registry: registry, Dir: dir, Clock: fixedClock{}, Descriptors: []source.Descriptor{{Kind: "slow"}}})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = p.Collect(ctx)
	require.ErrorIs(t, err, context.Canceled)
}
