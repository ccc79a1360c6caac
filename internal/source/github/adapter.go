// Package github turns a user's authored commits into timeline entries: one
// per commit plus one synthetic README entry per repository.
package github

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/JakeFAU/activity-heatmap/internal/activity"
	"github.com/JakeFAU/activity-heatmap/internal/dates"
	"github.com/JakeFAU/activity-heatmap/internal/source"
)

type repoItem struct {
	FullName      string `json:"full_name"`
	DefaultBranch string `json:"default_branch"`
}

type commitItem struct {
	SHA     string `json:"sha"`
	HTMLURL string `json:"html_url"`
	Commit  struct {
		Message string `json:"message"`
		Author  struct {
			Date string `json:"date"`
		} `json:"author"`
	} `json:"commit"`
}

// Adapter implements source.Adapter over the GitHub REST API.
type Adapter struct {
	client   *Client
	resolver *dates.Resolver
	logger   *zap.Logger
}

// New builds an Adapter around client.
func New(client *Client, resolver *dates.Resolver) *Adapter {
	return &Adapter{client: client, resolver: resolver, logger: client.logger}
}

// Kind implements source.Adapter.
func (a *Adapter) Kind() string { return activity.KindGitHub }

// Fetch implements source.Adapter. The descriptor's User (or URL, for
// configurations that put the account name there) names the account.
func (a *Adapter) Fetch(ctx context.Context, desc source.Descriptor) ([]activity.Entry, error) {
	user := strings.TrimSpace(desc.User)
	if user == "" {
		user = strings.TrimSpace(desc.URL)
	}
	if user == "" || strings.ContainsAny(user, "/ ") {
		return nil, fmt.Errorf("%w: github source needs a user name", source.ErrInvalidDescriptor)
	}
	cfg := a.client.Config()

	repos := a.listRepos(ctx, user)
	var commits, readmes []activity.Entry
	for _, repo := range repos {
		if err := ctx.Err(); err != nil {
			return append(commits, readmes...), fmt.Errorf("github fetch: %w", err)
		}
		repoCommits := a.listCommits(ctx, repo.FullName, user)
		if len(repoCommits) == 0 {
			continue
		}
		commits = append(commits, repoCommits...)

		latest := repoCommits[0].Date
		for _, e := range repoCommits[1:] {
			if e.Date.After(latest) {
				latest = e.Date
			}
		}
		branch := repo.DefaultBranch
		if branch == "" {
			branch = "main"
		}
		readmes = append(readmes, activity.Entry{
			Link:       fmt.Sprintf("%s/%s/blob/%s/README.md", cfg.WebBase, repo.FullName, branch),
			Date:       latest,
			Title:      fmt.Sprintf("[%s] README.md", repo.FullName),
			SourceType: activity.SourceReadme,
		})
	}
	a.logger.Info("github source read",
		zap.String("user", user),
		zap.Int("repos", len(repos)),
		zap.Int("commits", len(commits)),
		zap.Int("readmes", len(readmes)),
	)
	return append(commits, readmes...), nil
}

func (a *Adapter) listRepos(ctx context.Context, user string) []repoItem {
	cfg := a.client.Config()
	first := fmt.Sprintf("%s/users/%s/repos?per_page=%d&page=1", cfg.APIBase, url.PathEscape(user), cfg.PerPage)
	var repos []repoItem
	a.paginate(ctx, first, func(body []byte) (int, error) {
		var page []repoItem
		if err := decode(body, &page); err != nil {
			return 0, err
		}
		repos = append(repos, page...)
		return len(page), nil
	})
	return repos
}

func (a *Adapter) listCommits(ctx context.Context, repo, user string) []activity.Entry {
	cfg := a.client.Config()
	q := url.Values{}
	q.Set("author", user)
	q.Set("per_page", fmt.Sprint(cfg.PerPage))
	q.Set("page", "1")
	first := fmt.Sprintf("%s/repos/%s/commits?%s", cfg.APIBase, repo, q.Encode())

	var entries []activity.Entry
	a.paginate(ctx, first, func(body []byte) (int, error) {
		var page []commitItem
		if err := decode(body, &page); err != nil {
			return 0, err
		}
		for _, c := range page {
			if e, ok := a.commitEntry(repo, c); ok {
				entries = append(entries, e)
			}
		}
		return len(page), nil
	})
	return entries
}

func (a *Adapter) commitEntry(repo string, c commitItem) (activity.Entry, bool) {
	day, ok := a.resolver.Resolve(c.Commit.Author.Date, dates.TimestampChain())
	if !ok {
		a.logger.Debug("commit dropped, no usable date", zap.String("sha", c.SHA))
		return activity.Entry{}, false
	}
	link := c.HTMLURL
	if link == "" {
		link = fmt.Sprintf("%s/%s/commit/%s", a.client.Config().WebBase, repo, c.SHA)
	}
	firstLine, _, _ := strings.Cut(c.Commit.Message, "\n")
	return activity.Entry{
		Link:       link,
		Date:       day,
		Title:      fmt.Sprintf("[%s] %s", repo, strings.TrimSpace(firstLine)),
		SourceType: activity.SourceCommitHistory,
		RawContent: c.Commit.Message,
	}, true
}

// paginate follows rel="next" links, falling back to incrementing the page
// query parameter until a short page. handle returns the item count.
func (a *Adapter) paginate(ctx context.Context, first string, handle func([]byte) (int, error)) {
	cfg := a.client.Config()
	next := first
	for page := 1; next != "" && page <= cfg.MaxPages; page++ {
		if ctx.Err() != nil {
			return
		}
		resp, err := a.client.Get(ctx, next)
		if err != nil {
			a.logger.Warn("listing fetch failed", zap.String("url", next), zap.Error(err))
			return
		}
		n, err := handle(resp.Body)
		if err != nil {
			a.logger.Warn("listing parse failed", zap.String("url", next), zap.Error(err))
			return
		}
		if link := nextLink(resp.Headers); link != "" {
			next = link
			continue
		}
		if n < cfg.PerPage {
			return
		}
		next = withPage(next, page+1)
	}
}

func withPage(rawURL string, page int) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	q := u.Query()
	q.Set("page", fmt.Sprint(page))
	u.RawQuery = q.Encode()
	return u.String()
}

func decode(body []byte, v any) error {
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("decode github payload: %w", err)
	}
	return nil
}
