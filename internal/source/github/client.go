package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/activity-heatmap/internal/activity"
	"github.com/JakeFAU/activity-heatmap/internal/logging"
	"github.com/JakeFAU/activity-heatmap/internal/metrics"
)

// Default endpoints.
const (
	DefaultAPIBase = "https://api.github.com"
	DefaultWebBase = "https://github.com"
	DefaultRawBase = "https://raw.githubusercontent.com"
)

const (
	remainingHdr = "X-RateLimit-Remaining"
	resetHdr     = "X-RateLimit-Reset"
	acceptJSON   = "application/vnd.github+json"
)

// Config configures API access.
type Config struct {
	APIBase string
	WebBase string
	RawBase string
	// Token is an optional bearer credential; without it the anonymous quota applies.
	Token   string
	PerPage int
	// MaxPages caps every paginated listing.
	MaxPages int
	// RateLimitThreshold is the remaining-quota low-water mark that triggers a wait.
	RateLimitThreshold int
}

func (c Config) withDefaults() Config {
	if c.APIBase == "" {
		c.APIBase = DefaultAPIBase
	}
	if c.WebBase == "" {
		c.WebBase = DefaultWebBase
	}
	if c.RawBase == "" {
		c.RawBase = DefaultRawBase
	}
	c.APIBase = strings.TrimRight(c.APIBase, "/")
	c.WebBase = strings.TrimRight(c.WebBase, "/")
	c.RawBase = strings.TrimRight(c.RawBase, "/")
	if c.PerPage <= 0 {
		c.PerPage = 100
	}
	if c.MaxPages <= 0 {
		c.MaxPages = 100
	}
	return c
}

// Client performs quota-aware GitHub requests.
type Client struct {
	fetcher activity.Fetcher
	clock   activity.Clock
	logger  *zap.Logger
	cfg     Config
}

// NewClient builds a Client.
func NewClient(fetcher activity.Fetcher, clock activity.Clock, logger *zap.Logger, cfg Config) *Client {
	return &Client{
		fetcher: fetcher,
		clock:   clock,
		logger:  logging.OrNop(logger).Named("github"),
		cfg:     cfg.withDefaults(),
	}
}

// Config returns the effective configuration.
func (c *Client) Config() Config { return c.cfg }

// Get fetches rawURL. After every response the quota headers are checked and,
// at or below the threshold, the client sleeps until the reset time plus one
// second. A request rejected for exhausted quota is retried once after that wait.
func (c *Client) Get(ctx context.Context, rawURL string) (activity.FetchResponse, error) {
	resp, err := c.get(ctx, rawURL)
	if err == nil || !quotaRejected(resp) {
		return resp, err
	}
	c.logger.Info("retrying after quota reset", zap.String("url", rawURL))
	return c.get(ctx, rawURL)
}

func (c *Client) get(ctx context.Context, rawURL string) (activity.FetchResponse, error) {
	headers := http.Header{}
	headers.Set("Accept", acceptJSON)
	if c.cfg.Token != "" {
		headers.Set("Authorization", "Bearer "+c.cfg.Token)
	}
	resp, err := c.fetcher.Fetch(ctx, activity.FetchRequest{URL: rawURL, Headers: headers})
	if waitErr := c.throttle(ctx, resp.Headers); waitErr != nil {
		return resp, waitErr
	}
	if err != nil {
		return resp, fmt.Errorf("github get %s: %w", rawURL, err)
	}
	return resp, nil
}

func quotaRejected(resp activity.FetchResponse) bool {
	if resp.StatusCode != http.StatusForbidden && resp.StatusCode != http.StatusTooManyRequests {
		return false
	}
	return resp.Headers.Get(remainingHdr) == "0"
}

// throttle performs the cooperative wait when quota is low.
func (c *Client) throttle(ctx context.Context, h http.Header) error {
	remaining, err := strconv.Atoi(h.Get(remainingHdr))
	if err != nil || remaining > c.cfg.RateLimitThreshold {
		return nil
	}
	wait := QuotaWait(c.clock.Now(), h.Get(resetHdr))
	c.logger.Warn("rate limit low, waiting for reset",
		zap.Int("remaining", remaining),
		zap.Duration("wait", wait),
	)
	metrics.ObserveQuotaWait("github", wait)
	if err := c.clock.Sleep(ctx, wait); err != nil {
		return fmt.Errorf("github quota wait: %w", err)
	}
	return nil
}

// QuotaWait returns max(0, reset-now) + 1s for a Unix-seconds reset header.
// A missing or malformed header yields the one second floor.
func QuotaWait(now time.Time, resetHeader string) time.Duration {
	wait := time.Duration(0)
	if reset, err := strconv.ParseInt(strings.TrimSpace(resetHeader), 10, 64); err == nil {
		if d := time.Unix(reset, 0).Sub(now); d > 0 {
			wait = d
		}
	}
	return wait + time.Second
}

// nextLink extracts the rel="next" target of an RFC 8288 Link header.
func nextLink(h http.Header) string {
	for _, part := range strings.Split(h.Get("Link"), ",") {
		segs := strings.Split(part, ";")
		if len(segs) < 2 {
			continue
		}
		target := strings.Trim(strings.TrimSpace(segs[0]), "<>")
		for _, param := range segs[1:] {
			if strings.TrimSpace(param) == `rel="next"` {
				return target
			}
		}
	}
	return ""
}

// CommitRef identifies one commit by repository and SHA.
type CommitRef struct {
	Repo string
	SHA  string
}

// ErrNotGitHubLink is returned when a link has no recognizable shape.
var ErrNotGitHubLink = errors.New("not a github commit or readme link")

// ParseCommitLink reads {owner}/{repo}/commit/{sha} from a commit page link.
func ParseCommitLink(link string) (CommitRef, error) {
	segs, err := pathSegments(link)
	if err != nil {
		return CommitRef{}, err
	}
	if len(segs) < 4 || segs[2] != "commit" || segs[3] == "" {
		return CommitRef{}, fmt.Errorf("%w: %s", ErrNotGitHubLink, link)
	}
	return CommitRef{Repo: segs[0] + "/" + segs[1], SHA: segs[3]}, nil
}

// RawReadmeURL maps a {owner}/{repo}/blob/{branch}/{path} link onto the raw
// content host.
func (c *Client) RawReadmeURL(link string) (string, error) {
	segs, err := pathSegments(link)
	if err != nil {
		return "", err
	}
	if len(segs) < 5 || segs[2] != "blob" {
		return "", fmt.Errorf("%w: %s", ErrNotGitHubLink, link)
	}
	rest := append([]string{segs[0], segs[1]}, segs[3:]...)
	return c.cfg.RawBase + "/" + strings.Join(rest, "/"), nil
}

// CommitMessage fetches the full message of one commit.
func (c *Client) CommitMessage(ctx context.Context, ref CommitRef) (string, error) {
	rawURL := fmt.Sprintf("%s/repos/%s/commits/%s", c.cfg.APIBase, ref.Repo, url.PathEscape(ref.SHA))
	resp, err := c.Get(ctx, rawURL)
	if err != nil {
		return "", err
	}
	var payload commitItem
	if err := decode(resp.Body, &payload); err != nil {
		return "", fmt.Errorf("decode commit %s: %w", ref.SHA, err)
	}
	return payload.Commit.Message, nil
}

// Readme fetches a README's raw markdown from its blob link.
func (c *Client) Readme(ctx context.Context, link string) (string, error) {
	rawURL, err := c.RawReadmeURL(link)
	if err != nil {
		return "", err
	}
	resp, err := c.fetcher.Fetch(ctx, activity.FetchRequest{URL: rawURL})
	if err != nil {
		return "", fmt.Errorf("fetch readme %s: %w", rawURL, err)
	}
	return string(resp.Body), nil
}

func pathSegments(link string) ([]string, error) {
	u, err := url.Parse(strings.TrimSpace(link))
	if err != nil {
		return nil, fmt.Errorf("parse link: %w", err)
	}
	return strings.Split(strings.Trim(u.Path, "/"), "/"), nil
}
