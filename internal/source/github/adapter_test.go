package github

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/activity-heatmap/internal/activity"
	"github.com/JakeFAU/activity-heatmap/internal/dates"
	collyfetcher "github.com/JakeFAU/activity-heatmap/internal/fetcher/colly"
	"github.com/JakeFAU/activity-heatmap/internal/source"
)

type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(_ context.Context, d time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
	return nil
}

func (c *fakeClock) Sleeps() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.sleeps...)
}

func commitJSON(sha, date, msg string) map[string]any {
	return map[string]any{
		"sha":      sha,
		"html_url": "https://github.com/octo/" + sha,
		"commit": map[string]any{
			"message": msg,
			"author":  map[string]string{"date": date},
		},
	}
}

func newTestAdapter(t *testing.T, srv *httptest.Server, clk *fakeClock, cfg Config) *Adapter {
	t.Helper()
	cfg.APIBase = srv.URL
	cfg.WebBase = "https://github.com"
	client := NewClient(collyfetcher.New(collyfetcher.Config{Timeout: 2 * time.Second}), clk, nil, cfg)
	return New(client, dates.NewResolver(clk.Now))
}

func TestFetchCommitsAndReadmes(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	var authHeaders []string
	mux := http.NewServeMux()
	mux.HandleFunc("/users/octo/repos", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		authHeaders = append(authHeaders, r.Header.Get("Authorization"))
		mu.Unlock()
		_ = json.NewEncoder(w).Encode([]map[string]string{
			{"full_name": "octo/alpha", "default_branch": "trunk"},
			{"full_name": "octo/empty", "default_branch": "main"},
			{"full_name": "octo/beta", "default_branch": "main"},
		})
	})
	mux.HandleFunc("/repos/octo/alpha/commits", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "octo", r.URL.Query().Get("author"))
		_ = json.NewEncoder(w).Encode([]map[string]any{
			commitJSON("a2", "2024-05-02T09:00:00Z", "Second change\n\nbody"),
			commitJSON("a1", "2024-04-30T09:00:00Z", "First change"),
		})
	})
	mux.HandleFunc("/repos/octo/empty/commits", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusConflict)
	})
	mux.HandleFunc("/repos/octo/beta/commits", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode([]map[string]any{
			commitJSON("b1", "2023-01-01T00:00:00Z", "Init"),
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	clk := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	a := newTestAdapter(t, srv, clk, Config{Token: "secret"})
	entries, err := a.Fetch(context.Background(), source.Descriptor{Kind: "github", User: "octo"})
	require.NoError(t, err)
	require.Len(t, entries, 5)

	assert.Equal(t, "[octo/alpha] Second change", entries[0].Title)
	assert.Equal(t, activity.SourceCommitHistory, entries[0].SourceType)
	assert.Equal(t, "https://github.com/octo/a2", entries[0].Link)
	assert.Equal(t, "[octo/beta] Init", entries[2].Title)

	alphaReadme := entries[3]
	assert.Equal(t, activity.SourceReadme, alphaReadme.SourceType)
	assert.Equal(t, "https://github.com/octo/alpha/blob/trunk/README.md", alphaReadme.Link)
	assert.Equal(t, "[octo/alpha] README.md", alphaReadme.Title)
	assert.Equal(t, "2024-05-02", alphaReadme.DateString())
	assert.Equal(t, "https://github.com/octo/beta/blob/main/README.md", entries[4].Link)

	mu.Lock()
	assert.Equal(t, []string{"Bearer secret"}, authHeaders)
	mu.Unlock()
	assert.Empty(t, clk.Sleeps())
}

func TestFetchFollowsPagination(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	var srvURL string
	mux.HandleFunc("/users/octo/repos", func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("page") {
		case "1":
			w.Header().Set("Link", fmt.Sprintf(`<%s/users/octo/repos?per_page=1&page=2>; rel="next", <%s/x>; rel="last"`, srvURL, srvURL))
			_ = json.NewEncoder(w).Encode([]map[string]string{{"full_name": "octo/one"}})
		case "2":
			_ = json.NewEncoder(w).Encode([]map[string]string{{"full_name": "octo/two"}})
		}
	})
	mux.HandleFunc("/repos/octo/one/commits", func(w http.ResponseWriter, r *http.Request) {
		// No Link header: fall back to short-page detection.
		switch r.URL.Query().Get("page") {
		case "1":
			_ = json.NewEncoder(w).Encode([]map[string]any{commitJSON("o1", "2024-01-01T00:00:00Z", "one")})
		default:
			_ = json.NewEncoder(w).Encode([]map[string]any{})
		}
	})
	mux.HandleFunc("/repos/octo/two/commits", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode([]map[string]any{})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	srvURL = srv.URL

	clk := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	a := newTestAdapter(t, srv, clk, Config{PerPage: 1})
	entries, err := a.Fetch(context.Background(), source.Descriptor{User: "octo"})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "[octo/one] one", entries[0].Title)
	// default branch missing falls back to main
	assert.Equal(t, "https://github.com/octo/one/blob/main/README.md", entries[1].Link)
}

func TestRateLimitWaitsForReset(t *testing.T) {
	t.Parallel()

	clk := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	reset := clk.now.Add(30 * time.Second).Unix()

	var mu sync.Mutex
	calls := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/users/octo/repos", func(w http.ResponseWriter, _ *http.Request) {
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()
		w.Header().Set("X-RateLimit-Reset", fmt.Sprint(reset))
		if n == 1 {
			w.Header().Set("X-RateLimit-Remaining", "0")
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.Header().Set("X-RateLimit-Remaining", "4999")
		_ = json.NewEncoder(w).Encode([]map[string]string{})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	a := newTestAdapter(t, srv, clk, Config{RateLimitThreshold: 1})
	entries, err := a.Fetch(context.Background(), source.Descriptor{User: "octo"})
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Equal(t, []time.Duration{31 * time.Second}, clk.Sleeps())
	mu.Lock()
	assert.Equal(t, 2, calls, "quota rejection is retried once after the wait")
	mu.Unlock()
}

func TestQuotaWait(t *testing.T) {
	t.Parallel()

	now := time.Unix(1000, 0)
	assert.Equal(t, 11*time.Second, QuotaWait(now, "1010"))
	assert.Equal(t, time.Second, QuotaWait(now, "900"), "reset in the past waits only the floor")
	assert.Equal(t, time.Second, QuotaWait(now, ""))
}

func TestFetchRejectsMissingUser(t *testing.T) {
	t.Parallel()

	client := NewClient(nil, &fakeClock{}, nil, Config{})
	_, err := New(client, dates.NewResolver(nil)).Fetch(context.Background(), source.Descriptor{})
	require.ErrorIs(t, err, source.ErrInvalidDescriptor)
}

func TestNextLink(t *testing.T) {
	t.Parallel()

	h := http.Header{}
	h.Set("Link", `<https://api.test/x?page=3>; rel="next", <https://api.test/x?page=9>; rel="last"`)
	assert.Equal(t, "https://api.test/x?page=3", nextLink(h))
	assert.Equal(t, "", nextLink(http.Header{}))
}
