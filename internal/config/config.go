// Package config loads and validates heatmap build configuration via Viper.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/JakeFAU/activity-heatmap/internal/activity"
	"github.com/JakeFAU/activity-heatmap/internal/source"
	"github.com/JakeFAU/activity-heatmap/internal/storage"
)

// EnvPrefix namespaces environment overrides, e.g. ACTIVITY_HTTP_TIMEOUT_SECONDS.
const EnvPrefix = "ACTIVITY"

// Config captures all configuration knobs loaded via Viper.
type Config struct {
	Sources   []source.Descriptor `mapstructure:"sources"`
	HTTP      HTTPConfig          `mapstructure:"http"`
	Crawler   CrawlerConfig       `mapstructure:"crawler"`
	WordPress WordPressConfig     `mapstructure:"wordpress"`
	Quartz    QuartzConfig        `mapstructure:"quartz"`
	GitHub    GitHubConfig        `mapstructure:"github"`
	Output    OutputConfig        `mapstructure:"output"`
	Report    ReportConfig        `mapstructure:"report"`
	Publish   PublishConfig       `mapstructure:"publish"`
	Database  DatabaseConfig      `mapstructure:"database"`
	Metrics   MetricsConfig       `mapstructure:"metrics"`
	Server    ServerConfig        `mapstructure:"server"`
	Logging   LoggingConfig       `mapstructure:"logging"`
}

// HTTPConfig configures the shared fetcher.
type HTTPConfig struct {
	TimeoutSeconds   int     `mapstructure:"timeout_seconds"`
	UserAgent        string  `mapstructure:"user_agent"`
	RateLimitPerHost float64 `mapstructure:"rate_limit_per_host"`
	RateLimitBurst   int     `mapstructure:"rate_limit_burst"`
	RespectRobots    bool    `mapstructure:"respect_robots"`
	MaxBodyBytes     int     `mapstructure:"max_body_bytes"`
}

// CrawlerConfig tunes the legacy-site crawler.
type CrawlerConfig struct {
	MaxPages       int      `mapstructure:"max_pages"`
	Denylist       []string `mapstructure:"denylist"`
	TextExtensions []string `mapstructure:"text_extensions"`
	SkipExtensions []string `mapstructure:"skip_extensions"`
}

// WordPressConfig tunes REST pagination.
type WordPressConfig struct {
	PerPage  int `mapstructure:"per_page"`
	MaxPages int `mapstructure:"max_pages"`
}

// QuartzConfig overrides the well-known index and feed paths.
type QuartzConfig struct {
	IndexPaths []string `mapstructure:"index_paths"`
	FeedPath   string   `mapstructure:"feed_path"`
}

// GitHubConfig configures API access.
type GitHubConfig struct {
	APIBase            string `mapstructure:"api_base"`
	WebBase            string `mapstructure:"web_base"`
	RawBase            string `mapstructure:"raw_base"`
	Token              string `mapstructure:"token"`
	PerPage            int    `mapstructure:"per_page"`
	MaxPages           int    `mapstructure:"max_pages"`
	RateLimitThreshold int    `mapstructure:"rate_limit_threshold"`
}

// OutputConfig sets where intermediate files and report artifacts go.
type OutputConfig struct {
	DataDir string    `mapstructure:"data_dir"`
	DocsDir string    `mapstructure:"docs_dir"`
	Readme  string    `mapstructure:"readme"`
	Storage string    `mapstructure:"storage"`
	GCS     GCSConfig `mapstructure:"gcs"`
}

// GCSConfig names the bucket report artifacts are uploaded to.
type GCSConfig struct {
	Bucket string `mapstructure:"bucket"`
	Prefix string `mapstructure:"prefix"`
}

// ReportConfig tunes rendering.
type ReportConfig struct {
	// DayArchiveURL is a link pattern for busy days, with {yyyy}, {mm} and
	// {dd} placeholders.
	DayArchiveURL string `mapstructure:"day_archive_url"`
	StartYear     int    `mapstructure:"start_year"`
}

// PublishConfig holds the Pub/Sub destination for run notifications.
type PublishConfig struct {
	ProjectID string `mapstructure:"project_id"`
	Topic     string `mapstructure:"topic"`
}

// DatabaseConfig controls the optional Postgres statistics export.
type DatabaseConfig struct {
	DSN      string `mapstructure:"dsn"`
	Table    string `mapstructure:"table"`
	MaxConns int32  `mapstructure:"max_conns"`
}

// MetricsConfig controls metric export for batch runs.
type MetricsConfig struct {
	Textfile string `mapstructure:"textfile"`
}

// ServerConfig controls the preview server.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("http.timeout_seconds", 10)
	v.SetDefault("http.user_agent", "activity-heatmap/1.0 (+https://github.com/JakeFAU/activity-heatmap)")
	v.SetDefault("http.rate_limit_per_host", 2)
	v.SetDefault("http.rate_limit_burst", 1)
	v.SetDefault("http.respect_robots", false)
	v.SetDefault("http.max_body_bytes", 10*1024*1024)
	v.SetDefault("crawler.max_pages", 300)
	v.SetDefault("wordpress.per_page", 100)
	v.SetDefault("wordpress.max_pages", 500)
	v.SetDefault("github.rate_limit_threshold", 1)
	v.SetDefault("github.per_page", 100)
	v.SetDefault("github.max_pages", 100)
	v.SetDefault("output.data_dir", "data")
	v.SetDefault("output.docs_dir", "docs")
	v.SetDefault("output.readme", "docs/README.md")
	v.SetDefault("output.storage", storage.ProviderLocal)
	v.SetDefault("database.table", "activity_entries")
	v.SetDefault("server.port", 8080)
	v.SetDefault("logging.development", false)
}

// Load unmarshals and validates the configuration held by v.
func Load(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadFile builds a Config from defaults, environment and an optional file.
func LoadFile(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	SetDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}
	return Load(v)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	for i, s := range c.Sources {
		if !knownKind(s.Kind) {
			return fmt.Errorf("sources[%d].kind %q is not one of %s", i, s.Kind, strings.Join(activity.Kinds, ", "))
		}
		if s.Kind == activity.KindGitHub {
			if s.User == "" && s.URL == "" {
				return fmt.Errorf("sources[%d]: github source needs user", i)
			}
			continue
		}
		u, err := url.Parse(s.URL)
		if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
			return fmt.Errorf("sources[%d].url must be an absolute http(s) URL, got %q", i, s.URL)
		}
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		return fmt.Errorf("http.timeout_seconds must be > 0")
	}
	if c.HTTP.RateLimitPerHost < 0 {
		return fmt.Errorf("http.rate_limit_per_host must be >= 0")
	}
	if c.Crawler.MaxPages <= 0 {
		return fmt.Errorf("crawler.max_pages must be > 0")
	}
	if c.GitHub.RateLimitThreshold < 0 {
		return fmt.Errorf("github.rate_limit_threshold must be >= 0")
	}
	if c.Output.DataDir == "" {
		return fmt.Errorf("output.data_dir is required")
	}
	switch c.Output.Storage {
	case storage.ProviderLocal, storage.ProviderMemory:
		if c.Output.Storage == storage.ProviderLocal && c.Output.DocsDir == "" {
			return fmt.Errorf("output.docs_dir is required for local storage")
		}
	case storage.ProviderGCS:
		if c.Output.GCS.Bucket == "" {
			return fmt.Errorf("output.gcs.bucket is required for gcs storage")
		}
	default:
		return fmt.Errorf("output.storage %q is not one of local, gcs, memory", c.Output.Storage)
	}
	if c.Report.StartYear != 0 && c.Report.StartYear < activity.MinYear {
		return fmt.Errorf("report.start_year must be >= %d", activity.MinYear)
	}
	if c.Report.DayArchiveURL != "" && !strings.Contains(c.Report.DayArchiveURL, "{dd}") {
		return fmt.Errorf("report.day_archive_url must contain {dd}")
	}
	if c.Publish.Topic != "" && c.Publish.ProjectID == "" {
		return fmt.Errorf("publish.project_id is required when publish.topic is set")
	}
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	return nil
}

func knownKind(kind string) bool {
	for _, k := range activity.Kinds {
		if k == kind {
			return true
		}
	}
	return false
}

// Timeout converts the HTTP timeout into a duration.
func (c Config) Timeout() time.Duration {
	return time.Duration(c.HTTP.TimeoutSeconds) * time.Second
}
