// Package report renders the activity overview: one SVG heatmap per year, a
// standalone index.html and a Markdown block injected into a README.
package report

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/activity-heatmap/internal/activity"
	"github.com/JakeFAU/activity-heatmap/internal/heatmap"
	"github.com/JakeFAU/activity-heatmap/internal/logging"
	"github.com/JakeFAU/activity-heatmap/internal/storage"
)

// Config controls where report artifacts go.
type Config struct {
	// ReadmePath is the Markdown file receiving the generated block. Empty
	// disables README injection.
	ReadmePath string
	// MinYear drops years before it from the report when positive.
	MinYear int
}

// Result lists what a Write produced.
type Result struct {
	Overview  Overview
	Markdown  string
	Artifacts []string
	Readme    string
}

// Writer publishes report artifacts to a blob store.
type Writer struct {
	store    storage.BlobStore
	renderer heatmap.Renderer
	now      func() time.Time
	logger   *zap.Logger
	cfg      Config
}

// NewWriter builds a Writer. now defaults to time.Now.
func NewWriter(store storage.BlobStore, renderer heatmap.Renderer, now func() time.Time, logger *zap.Logger, cfg Config) *Writer {
	if now == nil {
		now = time.Now
	}
	return &Writer{
		store:    store,
		renderer: renderer,
		now:      now,
		logger:   logging.OrNop(logger).Named("report"),
		cfg:      cfg,
	}
}

// AssetPath is the blob path of a year's heatmap.
func AssetPath(year int) string {
	return fmt.Sprintf("assets/activity_%d.svg", year)
}

// IndexPath is the blob path of the index page.
const IndexPath = "index.html"

// Write renders entries and publishes every artifact.
func (w *Writer) Write(ctx context.Context, entries []activity.Entry) (Result, error) {
	o := BuildOverview(entries, w.renderer, w.now(), w.cfg.MinYear)
	res := Result{Overview: o, Markdown: Markdown(o)}

	for _, y := range o.Years {
		uri, err := w.store.PutObject(ctx, AssetPath(y.Year), "image/svg+xml", bytes.NewReader([]byte(y.SVG)))
		if err != nil {
			return res, fmt.Errorf("publish heatmap %d: %w", y.Year, err)
		}
		res.Artifacts = append(res.Artifacts, uri)
	}

	page, err := HTML(o)
	if err != nil {
		return res, err
	}
	uri, err := w.store.PutObject(ctx, IndexPath, "text/html; charset=utf-8", bytes.NewReader(page))
	if err != nil {
		return res, fmt.Errorf("publish index: %w", err)
	}
	res.Artifacts = append(res.Artifacts, uri)

	if w.cfg.ReadmePath != "" {
		if err := UpdateReadme(w.cfg.ReadmePath, res.Markdown); err != nil {
			return res, err
		}
		res.Readme = w.cfg.ReadmePath
	}
	w.logger.Info("report written",
		zap.Int("years", len(o.Years)),
		zap.Int("entries", o.Summary.Entries),
		zap.Strings("artifacts", res.Artifacts),
	)
	return res, nil
}

// UpdateReadme injects content into the README at path, creating it from
// DefaultReadme when missing.
func UpdateReadme(path, content string) error {
	existing, err := os.ReadFile(path) // #nosec G304 -- operator-configured path.
	switch {
	case errors.Is(err, fs.ErrNotExist):
		existing = []byte(DefaultReadme)
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return fmt.Errorf("create readme directory: %w", err)
		}
	case err != nil:
		return fmt.Errorf("read readme: %w", err)
	}
	updated := InjectReadme(string(existing), content)
	if err := os.WriteFile(path, []byte(updated), 0o644); err != nil { // #nosec G306 -- published document.
		return fmt.Errorf("write readme: %w", err)
	}
	return nil
}
