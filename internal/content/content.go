// Package content resolves the text of collected entries and measures it.
package content

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/activity-heatmap/internal/activity"
	"github.com/JakeFAU/activity-heatmap/internal/logging"
	"github.com/JakeFAU/activity-heatmap/internal/source/github"
	"github.com/JakeFAU/activity-heatmap/internal/store"
	"github.com/JakeFAU/activity-heatmap/internal/textextract"
)

// GitHub fetches commit messages and README bodies.
type GitHub interface {
	CommitMessage(ctx context.Context, ref github.CommitRef) (string, error)
	Readme(ctx context.Context, link string) (string, error)
}

// Resolver turns entries into plain text. Markup carried by the entry is
// used as-is; otherwise the text is fetched from where the entry points.
type Resolver struct {
	fetcher activity.Fetcher
	github  GitHub
	logger  *zap.Logger
}

// NewResolver builds a Resolver. github may be nil when no GitHub source is
// configured; commit and README entries then resolve to empty text.
func NewResolver(fetcher activity.Fetcher, gh GitHub, logger *zap.Logger) *Resolver {
	return &Resolver{
		fetcher: fetcher,
		github:  gh,
		logger:  logging.OrNop(logger).Named("content"),
	}
}

// Raw returns the source markup for e.
func (r *Resolver) Raw(ctx context.Context, e activity.Entry) (string, error) {
	if e.RawContent != "" {
		return e.RawContent, nil
	}
	switch e.SourceType {
	case activity.SourceCommitHistory:
		if r.github == nil {
			return "", nil
		}
		ref, err := github.ParseCommitLink(e.Link)
		if err != nil {
			return "", err
		}
		return r.github.CommitMessage(ctx, ref)
	case activity.SourceReadme:
		if r.github == nil {
			return "", nil
		}
		return r.github.Readme(ctx, e.Link)
	default:
		resp, err := r.fetcher.Fetch(ctx, activity.FetchRequest{URL: e.Link})
		if err != nil {
			return "", fmt.Errorf("fetch %s: %w", e.Link, err)
		}
		return string(resp.Body), nil
	}
}

// Text returns the extracted plain text for e.
func (r *Resolver) Text(ctx context.Context, e activity.Entry) (string, error) {
	raw, err := r.Raw(ctx, e)
	if err != nil {
		return "", err
	}
	return textextract.Extract(raw), nil
}

// Resolve extracts text for every entry in order. A failure leaves that
// entry's text empty and is logged; only cancellation stops the loop.
func (r *Resolver) Resolve(ctx context.Context, entries []activity.Entry) ([]store.ContentRow, error) {
	rows := make([]store.ContentRow, 0, len(entries))
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return rows, err
		}
		text, err := r.Text(ctx, e)
		if err != nil {
			r.logger.Warn("content unavailable", zap.String("url", e.Link), zap.Error(err))
		}
		rows = append(rows, store.ContentRow{Link: e.Link, Content: text})
	}
	return rows, nil
}

// Measure copies entries and fills WordCount and CharCount from texts, which
// is keyed by canonical link. Entries without text count zero.
func Measure(entries []activity.Entry, texts map[string]string) []activity.Entry {
	out := make([]activity.Entry, len(entries))
	for i, e := range entries {
		text := texts[e.Key()]
		e.WordCount = textextract.WordCount(text)
		e.CharCount = textextract.CharCount(text)
		out[i] = e
	}
	return out
}

// Texts indexes content rows by canonical link, first row wins.
func Texts(rows []store.ContentRow) map[string]string {
	out := make(map[string]string, len(rows))
	for _, r := range rows {
		key := activity.CanonicalLink(r.Link)
		if _, ok := out[key]; !ok {
			out[key] = r.Content
		}
	}
	return out
}
