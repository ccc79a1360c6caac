package crawler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/JakeFAU/activity-heatmap/internal/activity"
	"github.com/JakeFAU/activity-heatmap/internal/dates"
	"github.com/JakeFAU/activity-heatmap/internal/logging"
	"github.com/JakeFAU/activity-heatmap/internal/metrics"
	"github.com/JakeFAU/activity-heatmap/internal/textextract"
)

// ErrInvalidRoot is returned when the crawl root is not an absolute http(s) URL.
var ErrInvalidRoot = errors.New("invalid crawl root")

// PageState is the lifecycle state of one frontier URL.
type PageState string

// Page states. Every visited page ends in accepted, rejected, or failed.
const (
	StateQueued   PageState = "queued"
	StateFetching PageState = "fetching"
	StateAccepted PageState = "accepted"
	StateRejected PageState = "rejected"
	StateFailed   PageState = "failed"
)

// Rejection reasons recorded on pages that were fetched but not emitted.
const (
	ReasonNoDate      = "no_date"
	ReasonDenylisted  = "denylisted"
	ReasonNotText     = "not_text"
	ReasonDuplicate   = "duplicate"
	ReasonFetchFailed = "fetch_failed"
)

// Default filters.
var (
	DefaultDenylist       = []string{"index.html", "navigator.html", "rechts.html"}
	DefaultTextExtensions = []string{".html", ".htm", ".shtml", ".xhtml", ".php", ".asp", ".aspx", ".jsp", ".cfm", ".txt"}
	DefaultSkipExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".pdf", ".zip", ".doc", ".css", ".js"}
)

const linkSelector = "a[href], area[href], frame[src], iframe[src]"

// Config tunes a Crawler.
type Config struct {
	MaxPages       int
	Denylist       []string
	TextExtensions []string
	SkipExtensions []string
}

// Page records the outcome for one visited URL.
type Page struct {
	URL    string
	State  PageState
	Reason string
}

// Result is the outcome of one Run.
type Result struct {
	Entries  []activity.Entry
	Pages    []Page
	Accepted int
	Rejected int
	Failed   int
	// Truncated is true when the visited cap stopped the crawl with URLs still pending.
	Truncated bool
}

// Crawler walks a legacy site breadth-first.
type Crawler struct {
	fetcher  activity.Fetcher
	resolver *dates.Resolver
	logger   *zap.Logger
	cfg      Config
	denylist *pathDenylist
	textExt  extSet
	skipExt  extSet
}

// New builds a Crawler. Nil filter slices fall back to the defaults.
func New(fetcher activity.Fetcher, resolver *dates.Resolver, logger *zap.Logger, cfg Config) *Crawler {
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = DefaultMaxPages
	}
	if cfg.Denylist == nil {
		cfg.Denylist = DefaultDenylist
	}
	if cfg.TextExtensions == nil {
		cfg.TextExtensions = DefaultTextExtensions
	}
	if cfg.SkipExtensions == nil {
		cfg.SkipExtensions = DefaultSkipExtensions
	}
	return &Crawler{
		fetcher:  fetcher,
		resolver: resolver,
		logger:   logging.OrNop(logger).Named("crawler"),
		cfg:      cfg,
		denylist: newPathDenylist(cfg.Denylist),
		textExt:  newExtSet(cfg.TextExtensions),
		skipExt:  newExtSet(cfg.SkipExtensions),
	}
}

// Run crawls from root until the frontier empties or the visited cap is hit.
// Only an unusable root or a canceled context produce an error; failed pages
// are recorded and skipped.
func (c *Crawler) Run(ctx context.Context, root string) (Result, error) {
	prefix, err := rootPrefix(root)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrInvalidRoot, err)
	}

	frontier := NewFrontier(c.cfg.MaxPages)
	frontier.Push(prefix)
	accepted := make(map[string]struct{})
	var res Result

	for {
		current, ok := frontier.Next()
		if !ok {
			break
		}
		if err := ctx.Err(); err != nil {
			return res, fmt.Errorf("crawl canceled: %w", err)
		}
		page := c.visit(ctx, current, prefix, frontier, accepted, &res)
		res.Pages = append(res.Pages, page)
		metrics.ObserveCrawlPage(string(page.State))
		switch page.State {
		case StateAccepted:
			res.Accepted++
		case StateRejected:
			res.Rejected++
		case StateFailed:
			res.Failed++
		}
	}
	res.Truncated = frontier.Exhausted() && frontier.Len() > 0

	c.logger.Info("crawl finished",
		zap.String("root", prefix),
		zap.Int("visited", frontier.Visited()),
		zap.Int("accepted", res.Accepted),
		zap.Int("rejected", res.Rejected),
		zap.Int("failed", res.Failed),
		zap.Bool("truncated", res.Truncated),
	)
	return res, nil
}

func (c *Crawler) visit(
	ctx context.Context,
	current, prefix string,
	frontier *Frontier,
	accepted map[string]struct{},
	res *Result,
) Page {
	page := Page{URL: current, State: StateFetching}
	resp, err := c.fetcher.Fetch(ctx, activity.FetchRequest{URL: current})
	if err != nil {
		c.logger.Warn("page fetch failed", zap.String("url", current), zap.Error(err))
		page.State, page.Reason = StateFailed, ReasonFetchFailed
		return page
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body))
	if err != nil {
		c.logger.Warn("page parse failed", zap.String("url", current), zap.Error(err))
		page.State, page.Reason = StateFailed, err.Error()
		return page
	}

	day, dated := c.resolver.Resolve(textextract.Extract(string(resp.Body)), dates.PageChain())
	page.Reason = c.rejection(current, dated, accepted)
	if page.Reason == "" {
		accepted[activity.CanonicalLink(current)] = struct{}{}
		res.Entries = append(res.Entries, activity.Entry{
			Link:       current,
			Date:       day,
			Title:      pageTitle(doc, current),
			SourceType: activity.SourceLegacyCrawl,
			RawContent: string(resp.Body),
		})
		page.State = StateAccepted
	} else {
		page.State = StateRejected
	}

	c.enqueueLinks(doc, current, prefix, frontier)
	return page
}

// rejection returns "" when the page should become an entry.
func (c *Crawler) rejection(pageURL string, dated bool, accepted map[string]struct{}) string {
	if !dated {
		return ReasonNoDate
	}
	if u, err := url.Parse(pageURL); err == nil && c.denylist.IsDenied(u.Path) {
		return ReasonDenylisted
	}
	if ext := extension(pageURL); ext != "" && !c.textExt.has(ext) {
		return ReasonNotText
	}
	if _, dup := accepted[activity.CanonicalLink(pageURL)]; dup {
		return ReasonDuplicate
	}
	return ""
}

func (c *Crawler) enqueueLinks(doc *goquery.Document, pageURL, prefix string, frontier *Frontier) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return
	}
	doc.Find(linkSelector).Each(func(_ int, sel *goquery.Selection) {
		ref, ok := sel.Attr("href")
		if !ok {
			ref, ok = sel.Attr("src")
		}
		if !ok {
			return
		}
		if target, keep := c.scope(base, ref, prefix); keep {
			frontier.Push(target)
		}
	})
}

// scope resolves ref against base and keeps it only when it stays under the
// root prefix and is not an obvious binary or media file.
func (c *Crawler) scope(base *url.URL, ref, prefix string) (string, bool) {
	ref = strings.TrimSpace(ref)
	if ref == "" || strings.HasPrefix(ref, "#") {
		return "", false
	}
	u, err := base.Parse(ref)
	if err != nil {
		return "", false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", false
	}
	normalized, err := NormalizeURL(u.String())
	if err != nil || !strings.HasPrefix(normalized, prefix) {
		return "", false
	}
	if c.skipExt.has(extension(normalized)) {
		return "", false
	}
	return normalized, true
}

func pageTitle(doc *goquery.Document, pageURL string) string {
	if title := textextract.CleanTitle(doc.Find("title").First().Text()); title != "" {
		return title
	}
	return lastSegment(pageURL)
}
