package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"

	"github.com/JakeFAU/activity-heatmap/internal/source"
)

func TestLoadWithFileOverrides(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	configYAML := `
sources:
  - kind: wordpress
    url: https://blog.example.com
  - kind: quartz
    url: https://notes.example.com
  - kind: legacy_html
    url: https://old.example.com/home/
  - kind: github
    user: octo
http:
  timeout_seconds: 20
  user_agent: test-agent
  rate_limit_per_host: 0.5
crawler:
  max_pages: 50
  denylist: ["index.html", "impressum.html"]
github:
  rate_limit_threshold: 5
output:
  data_dir: out/data
  storage: gcs
  gcs:
    bucket: reports
    prefix: activity
report:
  day_archive_url: https://blog.example.com/{yyyy}/{mm}/{dd}/
  start_year: 2006
publish:
  project_id: proj
  topic: runs
logging:
  development: true
`
	if err := os.WriteFile(path, []byte(configYAML), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}

	if len(cfg.Sources) != 4 || cfg.Sources[3].User != "octo" || cfg.Sources[2].URL != "https://old.example.com/home/" {
		t.Fatalf("unexpected sources: %+v", cfg.Sources)
	}
	if cfg.HTTP.UserAgent != "test-agent" || cfg.HTTP.RateLimitPerHost != 0.5 {
		t.Fatalf("expected http overrides to apply: %+v", cfg.HTTP)
	}
	if got := cfg.Timeout(); got != 20*time.Second {
		t.Fatalf("expected timeout 20s, got %v", got)
	}
	if cfg.Crawler.MaxPages != 50 || len(cfg.Crawler.Denylist) != 2 {
		t.Fatalf("expected crawler overrides: %+v", cfg.Crawler)
	}
	if cfg.GitHub.RateLimitThreshold != 5 || cfg.GitHub.PerPage != 100 {
		t.Fatalf("expected github threshold override and per_page default: %+v", cfg.GitHub)
	}
	if cfg.Output.Storage != "gcs" || cfg.Output.GCS.Bucket != "reports" || cfg.Output.DocsDir != "docs" {
		t.Fatalf("unexpected output config: %+v", cfg.Output)
	}
	if cfg.Report.StartYear != 2006 || !cfg.Logging.Development {
		t.Fatalf("unexpected report/logging config: %+v %+v", cfg.Report, cfg.Logging)
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	v := viper.New()
	SetDefaults(v)
	cfg, err := Load(v)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Crawler.MaxPages != 300 {
		t.Fatalf("expected crawler.max_pages 300, got %d", cfg.Crawler.MaxPages)
	}
	if cfg.Output.DataDir != "data" || cfg.Output.Storage != "local" || cfg.Output.Readme != "docs/README.md" {
		t.Fatalf("unexpected output defaults: %+v", cfg.Output)
	}
	if cfg.GitHub.RateLimitThreshold != 1 {
		t.Fatalf("expected github.rate_limit_threshold 1, got %d", cfg.GitHub.RateLimitThreshold)
	}
}

func TestLoadFileMissing(t *testing.T) {
	t.Parallel()

	if _, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestConfigValidateErrors(t *testing.T) {
	t.Parallel()

	v := viper.New()
	SetDefaults(v)
	base, err := Load(v)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"unknown kind", func(c *Config) { c.Sources = append(c.Sources, sourceOf("medium", "https://x.example")) }, "sources[0].kind"},
		{"relative url", func(c *Config) { c.Sources = append(c.Sources, sourceOf("wordpress", "/blog")) }, "sources[0].url"},
		{"github without user", func(c *Config) { c.Sources = append(c.Sources, sourceOf("github", "")) }, "needs user"},
		{"invalid timeout", func(c *Config) { c.HTTP.TimeoutSeconds = 0 }, "http.timeout_seconds"},
		{"negative rate", func(c *Config) { c.HTTP.RateLimitPerHost = -1 }, "rate_limit_per_host"},
		{"zero max pages", func(c *Config) { c.Crawler.MaxPages = 0 }, "crawler.max_pages"},
		{"missing data dir", func(c *Config) { c.Output.DataDir = "" }, "output.data_dir"},
		{"bad storage", func(c *Config) { c.Output.Storage = "s3" }, "output.storage"},
		{"gcs without bucket", func(c *Config) { c.Output.Storage = "gcs" }, "output.gcs.bucket"},
		{"early start year", func(c *Config) { c.Report.StartYear = 1900 }, "report.start_year"},
		{"archive without day", func(c *Config) { c.Report.DayArchiveURL = "https://x.example/{yyyy}" }, "day_archive_url"},
		{"topic without project", func(c *Config) { c.Publish.Topic = "runs" }, "publish.project_id"},
		{"invalid port", func(c *Config) { c.Server.Port = 0 }, "server.port"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cfg := base
			cfg.Sources = nil
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("Validate() error = %v, want containing %q", err, tc.want)
			}
		})
	}
}

func sourceOf(kind, url string) source.Descriptor {
	return source.Descriptor{Kind: kind, URL: url}
}
