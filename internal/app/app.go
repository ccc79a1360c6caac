// Package app initializes and holds long-lived application services, acting
// as a dependency injection container for the CLI commands.
package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	pubsub "cloud.google.com/go/pubsub/v2"
	gcsclient "cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/JakeFAU/activity-heatmap/internal/activity"
	"github.com/JakeFAU/activity-heatmap/internal/clock/system"
	"github.com/JakeFAU/activity-heatmap/internal/config"
	"github.com/JakeFAU/activity-heatmap/internal/content"
	"github.com/JakeFAU/activity-heatmap/internal/crawler"
	"github.com/JakeFAU/activity-heatmap/internal/dates"
	collyfetcher "github.com/JakeFAU/activity-heatmap/internal/fetcher/colly"
	"github.com/JakeFAU/activity-heatmap/internal/heatmap"
	"github.com/JakeFAU/activity-heatmap/internal/id/uuid"
	"github.com/JakeFAU/activity-heatmap/internal/logging"
	"github.com/JakeFAU/activity-heatmap/internal/pipeline"
	"github.com/JakeFAU/activity-heatmap/internal/policy/ratelimit"
	"github.com/JakeFAU/activity-heatmap/internal/publisher"
	pubsubpublisher "github.com/JakeFAU/activity-heatmap/internal/publisher/pubsub"
	"github.com/JakeFAU/activity-heatmap/internal/report"
	"github.com/JakeFAU/activity-heatmap/internal/source"
	"github.com/JakeFAU/activity-heatmap/internal/source/github"
	"github.com/JakeFAU/activity-heatmap/internal/source/legacy"
	"github.com/JakeFAU/activity-heatmap/internal/source/quartz"
	"github.com/JakeFAU/activity-heatmap/internal/source/wordpress"
	"github.com/JakeFAU/activity-heatmap/internal/storage"
	"github.com/JakeFAU/activity-heatmap/internal/storage/gcs"
	"github.com/JakeFAU/activity-heatmap/internal/storage/local"
	"github.com/JakeFAU/activity-heatmap/internal/storage/memory"
	"github.com/JakeFAU/activity-heatmap/internal/storage/postgres"
	"github.com/JakeFAU/activity-heatmap/internal/store"
)

// App holds the shared services for one CLI invocation.
type App struct {
	Config    config.Config
	Logger    *zap.Logger
	Clock     activity.Clock
	Fetcher   *collyfetcher.Fetcher
	Limiter   *ratelimit.Limiter
	GitHub    *github.Client
	Registry  *source.Registry
	Dir       *store.Dir
	Blobs     storage.BlobStore
	Exporter  *postgres.StatisticsStore
	Publisher publisher.Publisher
	Pipeline  *pipeline.Pipeline

	closers []func() error
}

// New builds every service cfg asks for. It fails fast when a configured
// backend cannot be reached.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	l := logging.OrNop(logger)
	l.Info("Initializing application services...")

	a := &App{Config: cfg, Logger: l, Clock: system.New()}

	a.Limiter = ratelimit.New(ratelimit.Config{DefaultRPS: cfg.HTTP.RateLimitPerHost, DefaultBurst: cfg.HTTP.RateLimitBurst})
	a.Fetcher = collyfetcher.New(collyfetcher.Config{
		UserAgent:     cfg.HTTP.UserAgent,
		RespectRobots: cfg.HTTP.RespectRobots,
		Timeout:       cfg.Timeout(),
		MaxBodyBytes:  cfg.HTTP.MaxBodyBytes,
	}, collyfetcher.WithLimiter(a.Limiter), collyfetcher.WithLogger(l))

	token := cfg.GitHub.Token
	if token == "" {
		token = os.Getenv("GITHUB_TOKEN")
	}
	a.GitHub = github.NewClient(a.Fetcher, a.Clock, l, github.Config{
		APIBase:            cfg.GitHub.APIBase,
		WebBase:            cfg.GitHub.WebBase,
		RawBase:            cfg.GitHub.RawBase,
		Token:              token,
		PerPage:            cfg.GitHub.PerPage,
		MaxPages:           cfg.GitHub.MaxPages,
		RateLimitThreshold: cfg.GitHub.RateLimitThreshold,
	})
	a.Registry = a.newRegistry()

	var err error
	if a.Dir, err = store.NewDir(cfg.Output.DataDir); err != nil {
		return nil, err
	}
	if a.Blobs, err = a.newBlobStore(ctx); err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	if cfg.Database.DSN != "" {
		if err := a.openExporter(ctx); err != nil {
			a.Close()
			return nil, err
		}
	}
	if cfg.Publish.Topic != "" {
		if err := a.openPublisher(ctx); err != nil {
			a.Close()
			return nil, err
		}
	}

	deps := pipeline.Deps{
		Registry:    a.Registry,
		Descriptors: cfg.Sources,
		Dir:         a.Dir,
		Content:     content.NewResolver(a.Fetcher, a.GitHub, l),
		Report: report.NewWriter(a.Blobs,
			heatmap.Renderer{DayArchiveURL: heatmap.ArchiveURL(cfg.Report.DayArchiveURL)},
			a.Clock.Now, l,
			report.Config{ReadmePath: cfg.Output.Readme, MinYear: cfg.Report.StartYear}),
		Clock:           a.Clock,
		IDs:             uuid.New(),
		Publisher:       a.Publisher,
		Topic:           cfg.Publish.Topic,
		MetricsTextfile: cfg.Metrics.Textfile,
		Logger:          l,
	}
	if a.Exporter != nil {
		deps.Exporter = a.Exporter
	}
	if a.Pipeline, err = pipeline.New(deps); err != nil {
		a.Close()
		return nil, err
	}

	l.Info("Application services initialized successfully.",
		zap.Int("sources", len(cfg.Sources)),
		zap.String("storage", cfg.Output.Storage),
	)
	return a, nil
}

func (a *App) newRegistry() *source.Registry {
	cfg := a.Config
	resolver := dates.NewResolver(a.Clock.Now)
	r := source.NewRegistry()
	r.Register(activity.KindWordPress, func() source.Adapter {
		return wordpress.New(a.Fetcher, resolver, a.Logger, wordpress.Config{
			PerPage:  cfg.WordPress.PerPage,
			MaxPages: cfg.WordPress.MaxPages,
		})
	})
	r.Register(activity.KindQuartz, func() source.Adapter {
		return quartz.New(a.Fetcher, resolver, a.Logger, quartz.Config{
			IndexPaths: cfg.Quartz.IndexPaths,
			FeedPath:   cfg.Quartz.FeedPath,
		})
	})
	r.Register(activity.KindLegacyHTML, func() source.Adapter {
		return legacy.New(crawler.New(a.Fetcher, resolver, a.Logger, crawler.Config{
			MaxPages:       cfg.Crawler.MaxPages,
			Denylist:       cfg.Crawler.Denylist,
			TextExtensions: cfg.Crawler.TextExtensions,
			SkipExtensions: cfg.Crawler.SkipExtensions,
		}))
	})
	r.Register(activity.KindGitHub, func() source.Adapter {
		return github.New(a.GitHub, resolver)
	})
	return r
}

func (a *App) newBlobStore(ctx context.Context) (storage.BlobStore, error) {
	out := a.Config.Output
	switch out.Storage {
	case storage.ProviderLocal:
		a.Logger.Info("Using local storage provider", zap.String("dir", out.DocsDir))
		return local.New(local.Config{BaseDir: filepath.Clean(out.DocsDir)})
	case storage.ProviderMemory:
		a.Logger.Info("Using memory storage provider. Report artifacts will be discarded.")
		return memory.NewBlobStore(), nil
	case storage.ProviderGCS:
		if out.GCS.Bucket == "" {
			return nil, fmt.Errorf("storage provider is 'gcs' but output.gcs.bucket is not set")
		}
		a.Logger.Info("Using GCS storage provider", zap.String("bucket", out.GCS.Bucket))
		client, err := gcsclient.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("create gcs client: %w", err)
		}
		a.closers = append(a.closers, client.Close)
		return gcs.New(client, gcs.Config{Bucket: out.GCS.Bucket, Prefix: out.GCS.Prefix})
	default:
		return nil, fmt.Errorf("unknown storage provider: %s", out.Storage)
	}
}

func (a *App) openExporter(ctx context.Context) error {
	db := a.Config.Database
	a.Logger.Info("Connecting to PostgreSQL...", zap.String("table", db.Table))
	exp, err := postgres.NewStatisticsStore(ctx, postgres.StatisticsStoreConfig{
		DSN:      db.DSN,
		Table:    db.Table,
		MaxConns: db.MaxConns,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	if err := exp.EnsureSchema(ctx); err != nil {
		exp.Close()
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	a.Exporter = exp
	a.closers = append(a.closers, func() error { exp.Close(); return nil })
	return nil
}

func (a *App) openPublisher(ctx context.Context) error {
	p := a.Config.Publish
	a.Logger.Info("Connecting to GCP Pub/Sub", zap.String("topic", p.Topic))
	client, err := pubsub.NewClient(ctx, p.ProjectID)
	if err != nil {
		return fmt.Errorf("failed to initialize pubsub: %w", err)
	}
	pub := pubsubpublisher.New(client.Publisher(p.Topic))
	a.Publisher = pub
	a.closers = append(a.closers, func() error { pub.Stop(); return nil }, client.Close)
	return nil
}

// Close shuts down every service in reverse order of creation.
func (a *App) Close() {
	a.Logger.Info("Shutting down application services...")
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.Logger.Warn("Error closing service", zap.Error(err))
		}
	}
	a.closers = nil
	// Sync fails on some terminals; there is nowhere else to report it.
	_ = a.Logger.Sync()
}
