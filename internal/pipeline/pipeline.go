// Package pipeline runs the four stages of a heatmap build: collect entries
// from every configured source, resolve their content, count it, and render
// the report. Each stage persists its output so stages can run separately.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/JakeFAU/activity-heatmap/internal/activity"
	"github.com/JakeFAU/activity-heatmap/internal/content"
	"github.com/JakeFAU/activity-heatmap/internal/logging"
	"github.com/JakeFAU/activity-heatmap/internal/merge"
	"github.com/JakeFAU/activity-heatmap/internal/metrics"
	"github.com/JakeFAU/activity-heatmap/internal/publisher"
	"github.com/JakeFAU/activity-heatmap/internal/report"
	"github.com/JakeFAU/activity-heatmap/internal/source"
	"github.com/JakeFAU/activity-heatmap/internal/store"
)

// Exporter receives the counted entry set at the end of a run.
type Exporter interface {
	UpsertEntries(ctx context.Context, runID string, at time.Time, entries []activity.Entry) error
}

// IDGenerator produces run identifiers.
type IDGenerator interface {
	NewID() (string, error)
}

// Deps wires a Pipeline. Exporter and Publisher are optional.
type Deps struct {
	Registry    *source.Registry
	Descriptors []source.Descriptor
	Dir         *store.Dir
	Content     *content.Resolver
	Report      *report.Writer
	Clock       activity.Clock
	IDs         IDGenerator
	Exporter    Exporter
	Publisher   publisher.Publisher
	Topic       string
	// MetricsTextfile, when set, receives a Prometheus text dump after Run.
	MetricsTextfile string
	Logger          *zap.Logger
}

// Pipeline executes the build stages.
type Pipeline struct {
	deps   Deps
	kinds  []string
	logger *zap.Logger
}

// New validates deps and returns a Pipeline.
func New(deps Deps) (*Pipeline, error) {
	if deps.Registry == nil || deps.Dir == nil || deps.Clock == nil {
		return nil, errors.New("pipeline: registry, data dir and clock are required")
	}
	return &Pipeline{
		deps:   deps,
		kinds:  KindsOf(deps.Descriptors),
		logger: logging.OrNop(deps.Logger).Named("pipeline"),
	}, nil
}

// Kinds lists the kinds this pipeline reads and writes.
func (p *Pipeline) Kinds() []string {
	return append([]string(nil), p.kinds...)
}

// Collect runs every configured adapter concurrently, merges the results in
// descriptor order and writes sources_{kind}.csv for each kind. An adapter
// that fails contributes nothing; the run continues.
func (p *Pipeline) Collect(ctx context.Context) (Batch, error) {
	results := make([][]activity.Entry, len(p.deps.Descriptors))
	g, gctx := errgroup.WithContext(ctx)
	for i, desc := range p.deps.Descriptors {
		g.Go(func() error {
			adapter, err := p.deps.Registry.Build(desc.Kind)
			if err != nil {
				p.logger.Warn("skipping source", zap.String("kind", desc.Kind), zap.Error(err))
				return nil
			}
			start := time.Now()
			entries, err := adapter.Fetch(gctx, desc)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				p.logger.Warn("source failed", zap.String("kind", desc.Kind), zap.String("url", desc.URL), zap.String("user", desc.User), zap.Error(err))
				return nil
			}
			p.logger.Info("source collected",
				zap.String("kind", desc.Kind),
				zap.String("url", desc.URL),
				zap.Int("entries", len(entries)),
				zap.Duration("duration", time.Since(start)),
			)
			results[i] = entries
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Batch{}, fmt.Errorf("collect: %w", err)
	}

	merged := merge.Merge(results...)
	batch := newBatch(p.kinds)
	perType := make(map[activity.SourceType]int)
	for _, e := range merged {
		kind := e.SourceType.Kind()
		batch.Entries[kind] = append(batch.Entries[kind], e)
		perType[e.SourceType]++
	}
	for st, n := range perType {
		metrics.ObserveEntries(string(st), n)
	}
	for _, kind := range batch.Kinds {
		if err := p.deps.Dir.WriteSources(kind, batch.Entries[kind]); err != nil {
			return batch, err
		}
	}
	p.logger.Info("collect finished", zap.Int("entries", len(merged)))
	return batch, nil
}

// LoadSources reads sources_{kind}.csv for every kind. Missing files are
// treated as empty.
func (p *Pipeline) LoadSources() (Batch, error) {
	return p.load(p.deps.Dir.ReadSources)
}

// LoadStatistics reads statistics_{kind}.csv for every kind. Missing files
// are treated as empty.
func (p *Pipeline) LoadStatistics() (Batch, error) {
	return p.load(p.deps.Dir.ReadStatistics)
}

func (p *Pipeline) load(read func(string) ([]activity.Entry, error)) (Batch, error) {
	batch := newBatch(p.kinds)
	for _, kind := range p.kinds {
		entries, err := read(kind)
		if store.IsMissing(err) {
			p.logger.Info("no intermediate file", zap.String("kind", kind))
			continue
		}
		if err != nil {
			return batch, err
		}
		batch.Entries[kind] = entries
	}
	return batch, nil
}

// Content resolves text for every entry of b and writes content_{kind}.csv.
// Kinds are processed concurrently.
func (p *Pipeline) Content(ctx context.Context, b Batch) (map[string][]store.ContentRow, error) {
	if p.deps.Content == nil {
		return nil, errors.New("pipeline: content resolver is not configured")
	}
	rows := make([][]store.ContentRow, len(b.Kinds))
	g, gctx := errgroup.WithContext(ctx)
	for i, kind := range b.Kinds {
		g.Go(func() error {
			r, err := p.deps.Content.Resolve(gctx, b.Entries[kind])
			if err != nil {
				return fmt.Errorf("content %s: %w", kind, err)
			}
			rows[i] = r
			return p.deps.Dir.WriteContent(kind, r)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	out := make(map[string][]store.ContentRow, len(b.Kinds))
	for i, kind := range b.Kinds {
		out[kind] = rows[i]
	}
	return out, nil
}

// Statistics joins sources with content and writes statistics_{kind}.csv.
// When rows is nil the content files are read from disk.
func (p *Pipeline) Statistics(b Batch, rows map[string][]store.ContentRow) (Batch, error) {
	out := newBatch(b.Kinds)
	for _, kind := range b.Kinds {
		var texts map[string]string
		if rows != nil {
			texts = content.Texts(rows[kind])
		} else {
			var err error
			texts, err = p.deps.Dir.ReadContent(kind)
			if err != nil && !store.IsMissing(err) {
				return out, err
			}
		}
		out.Entries[kind] = content.Measure(b.Entries[kind], texts)
		if err := p.deps.Dir.WriteStatistics(kind, out.Entries[kind]); err != nil {
			return out, err
		}
	}
	return out, nil
}

// Report merges the counted batch across kinds and writes the report.
func (p *Pipeline) Report(ctx context.Context, b Batch) (report.Result, error) {
	if p.deps.Report == nil {
		return report.Result{}, errors.New("pipeline: report writer is not configured")
	}
	return p.deps.Report.Write(ctx, merge.Merge(b.All()))
}

// Run executes every stage in order, then exports and announces the result.
func (p *Pipeline) Run(ctx context.Context) (report.Result, error) {
	runID := "local"
	if p.deps.IDs != nil {
		id, err := p.deps.IDs.NewID()
		if err != nil {
			return report.Result{}, err
		}
		runID = id
	}
	logger := p.logger.With(zap.String("run_id", runID))
	logger.Info("run started", zap.Strings("kinds", p.kinds), zap.Int("sources", len(p.deps.Descriptors)))

	collected, err := p.Collect(ctx)
	if err != nil {
		return report.Result{}, err
	}
	rows, err := p.Content(ctx, collected)
	if err != nil {
		return report.Result{}, err
	}
	counted, err := p.Statistics(collected, rows)
	if err != nil {
		return report.Result{}, err
	}
	res, err := p.Report(ctx, counted)
	if err != nil {
		return res, err
	}

	completedAt := p.deps.Clock.Now()
	if p.deps.Exporter != nil {
		if err := p.deps.Exporter.UpsertEntries(ctx, runID, completedAt, counted.All()); err != nil {
			return res, fmt.Errorf("export statistics: %w", err)
		}
	}
	if p.deps.Publisher != nil {
		event := runCompleted(runID, completedAt, res)
		id, err := p.deps.Publisher.Publish(ctx, p.deps.Topic, event)
		if err != nil {
			return res, fmt.Errorf("publish run completed: %w", err)
		}
		logger.Info("run announced", zap.String("message_id", id))
	}
	metrics.MarkRunCompleted(completedAt)
	if p.deps.MetricsTextfile != "" {
		if err := metrics.WriteTextfile(p.deps.MetricsTextfile); err != nil {
			logger.Warn("metrics textfile not written", zap.Error(err))
		}
	}
	logger.Info("run finished",
		zap.Int("entries", res.Overview.Summary.Entries),
		zap.Int("years", len(res.Overview.Years)),
	)
	return res, nil
}

func runCompleted(runID string, at time.Time, res report.Result) publisher.RunCompleted {
	event := publisher.RunCompleted{
		RunID:       runID,
		CompletedAt: at,
		Entries:     res.Overview.Summary.Entries,
		Days:        res.Overview.Summary.Days,
		Words:       res.Overview.Summary.Words,
		BySource:    map[string]int{},
		Artifacts:   res.Artifacts,
	}
	for _, y := range res.Overview.Years {
		event.Years = append(event.Years, y.Year)
	}
	for _, s := range res.Overview.Sources {
		event.BySource[s.Name] = s.Entries
	}
	return event
}
