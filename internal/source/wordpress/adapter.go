// Package wordpress reads posts from the WordPress REST API.
package wordpress

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/JakeFAU/activity-heatmap/internal/activity"
	"github.com/JakeFAU/activity-heatmap/internal/dates"
	"github.com/JakeFAU/activity-heatmap/internal/logging"
	"github.com/JakeFAU/activity-heatmap/internal/source"
	"github.com/JakeFAU/activity-heatmap/internal/textextract"
)

const (
	defaultPerPage  = 100
	defaultMaxPages = 500
	totalPagesHdr   = "X-WP-TotalPages"
)

// Config tunes pagination.
type Config struct {
	PerPage  int
	MaxPages int
}

// Adapter pages through /wp-json/wp/v2/posts.
type Adapter struct {
	fetcher  activity.Fetcher
	resolver *dates.Resolver
	logger   *zap.Logger
	cfg      Config
}

type post struct {
	Link    string   `json:"link"`
	Date    string   `json:"date"`
	Title   rendered `json:"title"`
	Content rendered `json:"content"`
}

type rendered struct {
	Rendered string `json:"rendered"`
}

// New builds an Adapter.
func New(fetcher activity.Fetcher, resolver *dates.Resolver, logger *zap.Logger, cfg Config) *Adapter {
	if cfg.PerPage <= 0 {
		cfg.PerPage = defaultPerPage
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = defaultMaxPages
	}
	return &Adapter{
		fetcher:  fetcher,
		resolver: resolver,
		logger:   logging.OrNop(logger).Named("wordpress"),
		cfg:      cfg,
	}
}

// Kind implements source.Adapter.
func (a *Adapter) Kind() string { return activity.KindWordPress }

// Fetch implements source.Adapter. Paging stops on an empty page, a short
// page, the advertised total page count, or the first failed page.
func (a *Adapter) Fetch(ctx context.Context, desc source.Descriptor) ([]activity.Entry, error) {
	base := strings.TrimRight(strings.TrimSpace(desc.URL), "/")
	if base == "" {
		return nil, fmt.Errorf("%w: wordpress source needs a url", source.ErrInvalidDescriptor)
	}

	var entries []activity.Entry
	for page := 1; page <= a.cfg.MaxPages; page++ {
		if err := ctx.Err(); err != nil {
			return entries, fmt.Errorf("wordpress fetch: %w", err)
		}
		url := fmt.Sprintf("%s/wp-json/wp/v2/posts?page=%d&per_page=%d", base, page, a.cfg.PerPage)
		resp, err := a.fetcher.Fetch(ctx, activity.FetchRequest{URL: url})
		if err != nil {
			a.logger.Warn("page fetch failed", zap.String("url", url), zap.Error(err))
			break
		}
		var posts []post
		if err := json.Unmarshal(resp.Body, &posts); err != nil {
			a.logger.Warn("page parse failed", zap.String("url", url), zap.Error(err))
			break
		}
		if len(posts) == 0 {
			break
		}
		for _, p := range posts {
			if e, ok := a.toEntry(p); ok {
				entries = append(entries, e)
			}
		}
		if len(posts) < a.cfg.PerPage {
			break
		}
		if total, err := strconv.Atoi(resp.Headers.Get(totalPagesHdr)); err == nil && total > 0 && page >= total {
			break
		}
	}
	a.logger.Info("wordpress source read", zap.String("url", base), zap.Int("entries", len(entries)))
	return entries, nil
}

func (a *Adapter) toEntry(p post) (activity.Entry, bool) {
	link := strings.TrimSpace(p.Link)
	if link == "" {
		return activity.Entry{}, false
	}
	day, ok := a.resolver.Resolve(p.Date, dates.TimestampChain())
	if !ok {
		a.logger.Debug("post dropped, no usable date", zap.String("link", link), zap.String("date", p.Date))
		return activity.Entry{}, false
	}
	return activity.Entry{
		Link:       link,
		Date:       day,
		Title:      textextract.CleanTitle(p.Title.Rendered),
		SourceType: activity.SourceStructuredAPI,
		RawContent: p.Content.Rendered,
	}, true
}
