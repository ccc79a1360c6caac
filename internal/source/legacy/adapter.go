// Package legacy adapts the breadth-first crawler to the source contract for
// hand-written sites with no index or API.
package legacy

import (
	"context"
	"errors"
	"fmt"

	"github.com/JakeFAU/activity-heatmap/internal/activity"
	"github.com/JakeFAU/activity-heatmap/internal/crawler"
	"github.com/JakeFAU/activity-heatmap/internal/source"
)

// Adapter implements source.Adapter by delegating to a crawler.Crawler.
type Adapter struct {
	crawler *crawler.Crawler
}

// New wraps c.
func New(c *crawler.Crawler) *Adapter {
	return &Adapter{crawler: c}
}

// Kind implements source.Adapter.
func (a *Adapter) Kind() string { return activity.KindLegacyHTML }

// Fetch implements source.Adapter.
func (a *Adapter) Fetch(ctx context.Context, desc source.Descriptor) ([]activity.Entry, error) {
	res, err := a.crawler.Run(ctx, desc.URL)
	if errors.Is(err, crawler.ErrInvalidRoot) {
		return nil, fmt.Errorf("%w: %v", source.ErrInvalidDescriptor, err)
	}
	if err != nil {
		return res.Entries, fmt.Errorf("legacy crawl: %w", err)
	}
	return res.Entries, nil
}
