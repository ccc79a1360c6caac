// Package quartz reads a Quartz digital garden through its content index,
// then adds anything only the RSS or Atom feed knows about.
package quartz

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/JakeFAU/activity-heatmap/internal/activity"
	"github.com/JakeFAU/activity-heatmap/internal/dates"
	"github.com/JakeFAU/activity-heatmap/internal/logging"
	"github.com/JakeFAU/activity-heatmap/internal/source"
	"github.com/JakeFAU/activity-heatmap/internal/textextract"
)

// DefaultIndexPaths are tried in order; the first that parses wins.
var DefaultIndexPaths = []string{"/static/contentIndex.json", "/contentIndex.json", "/index.json"}

// DefaultFeedPath is the feed consulted after the index.
const DefaultFeedPath = "/index.xml"

var errNotObject = errors.New("content index is not a JSON object")

// Config overrides the well-known paths.
type Config struct {
	IndexPaths []string
	FeedPath   string
}

// Adapter implements source.Adapter for Quartz sites.
type Adapter struct {
	fetcher  activity.Fetcher
	resolver *dates.Resolver
	logger   *zap.Logger
	cfg      Config
}

type indexItem struct {
	Title string `json:"title"`
	Date  string `json:"date"`
	Dates struct {
		Created string `json:"created"`
	} `json:"dates"`
	Content  string `json:"content"`
	FilePath string `json:"filePath"`
}

// New builds an Adapter.
func New(fetcher activity.Fetcher, resolver *dates.Resolver, logger *zap.Logger, cfg Config) *Adapter {
	if len(cfg.IndexPaths) == 0 {
		cfg.IndexPaths = DefaultIndexPaths
	}
	if cfg.FeedPath == "" {
		cfg.FeedPath = DefaultFeedPath
	}
	return &Adapter{
		fetcher:  fetcher,
		resolver: resolver,
		logger:   logging.OrNop(logger).Named("quartz"),
		cfg:      cfg,
	}
}

// Kind implements source.Adapter.
func (a *Adapter) Kind() string { return activity.KindQuartz }

// Fetch implements source.Adapter.
func (a *Adapter) Fetch(ctx context.Context, desc source.Descriptor) ([]activity.Entry, error) {
	base := strings.TrimRight(strings.TrimSpace(desc.URL), "/")
	if base == "" {
		return nil, fmt.Errorf("%w: quartz source needs a url", source.ErrInvalidDescriptor)
	}

	entries := a.readIndex(ctx, base)
	seen := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		seen[e.Key()] = struct{}{}
	}
	if err := ctx.Err(); err != nil {
		return entries, fmt.Errorf("quartz fetch: %w", err)
	}
	for _, e := range a.readFeed(ctx, base+a.cfg.FeedPath) {
		if _, dup := seen[e.Key()]; dup {
			continue
		}
		seen[e.Key()] = struct{}{}
		entries = append(entries, e)
	}
	a.logger.Info("quartz source read", zap.String("url", base), zap.Int("entries", len(entries)))
	return entries, nil
}

func (a *Adapter) readIndex(ctx context.Context, base string) []activity.Entry {
	for _, path := range a.cfg.IndexPaths {
		url := base + path
		resp, err := a.fetcher.Fetch(ctx, activity.FetchRequest{URL: url})
		if err != nil {
			a.logger.Debug("content index unavailable", zap.String("url", url), zap.Error(err))
			continue
		}
		entries, err := a.decodeIndex(base, resp.Body)
		if err != nil {
			a.logger.Warn("content index unreadable", zap.String("url", url), zap.Error(err))
			continue
		}
		return entries
	}
	a.logger.Warn("no content index found", zap.String("url", base))
	return nil
}

// decodeIndex walks the top-level object in document order so emission order
// follows the index. Items that fail to decode are skipped individually.
func (a *Adapter) decodeIndex(base string, body []byte) ([]activity.Entry, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("read index: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, errNotObject
	}

	entries := []activity.Entry{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return entries, fmt.Errorf("read index key: %w", err)
		}
		slug, _ := keyTok.(string)
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return entries, fmt.Errorf("read index item %q: %w", slug, err)
		}
		var item indexItem
		if err := json.Unmarshal(raw, &item); err != nil {
			a.logger.Warn("index item skipped", zap.String("slug", slug), zap.Error(err))
			continue
		}
		if e, ok := a.indexEntry(base, slug, item); ok {
			entries = append(entries, e)
		}
	}
	return entries, nil
}

func (a *Adapter) indexEntry(base, slug string, item indexItem) (activity.Entry, bool) {
	explicit := dates.Chain{dates.ISOPrefix, dates.FeedDate}
	day, ok := a.resolver.First(
		dates.Step{Text: item.Date, Chain: explicit},
		dates.Step{Text: item.Dates.Created, Chain: explicit},
		dates.Step{Text: slug, Chain: dates.SlugChain()},
		dates.Step{Text: item.Content, Chain: dates.ContentChain()},
		dates.Step{Text: item.FilePath, Chain: dates.FilePathChain()},
	)
	if !ok {
		a.logger.Debug("index item dropped, no usable date", zap.String("slug", slug))
		return activity.Entry{}, false
	}
	title := textextract.CleanTitle(item.Title)
	if title == "" {
		title = slug
	}
	return activity.Entry{
		Link:       base + "/" + strings.TrimLeft(slug, "/"),
		Date:       day,
		Title:      title,
		SourceType: activity.SourceStaticIndex,
		RawContent: item.Content,
	}, true
}

func (a *Adapter) readFeed(ctx context.Context, url string) []activity.Entry {
	resp, err := a.fetcher.Fetch(ctx, activity.FetchRequest{URL: url})
	if err != nil {
		a.logger.Debug("feed unavailable", zap.String("url", url), zap.Error(err))
		return nil
	}
	items, err := ParseFeed(resp.Body)
	if err != nil {
		a.logger.Warn("feed unreadable", zap.String("url", url), zap.Error(err))
		return nil
	}
	var entries []activity.Entry
	for _, it := range items {
		link := strings.TrimSpace(it.Link)
		if link == "" {
			continue
		}
		day, ok := a.resolver.Resolve(it.Published, dates.FeedChain())
		if !ok {
			a.logger.Debug("feed item dropped, no usable date", zap.String("link", link))
			continue
		}
		entries = append(entries, activity.Entry{
			Link:       link,
			Date:       day,
			Title:      textextract.CleanTitle(it.Title),
			SourceType: activity.SourceStaticIndex,
		})
	}
	return entries
}

// FeedItem is one RSS item or Atom entry.
type FeedItem struct {
	Title     string
	Link      string
	Published string
}
