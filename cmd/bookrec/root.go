// ABOUTME: Root Cobra command and global flags for bookrec CLI.
// ABOUTME: Loads config, logger, and catalog, and assembles the recommendation service.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/2389-research/bookrec/internal/catalog"
	"github.com/2389-research/bookrec/internal/config"
	"github.com/2389-research/bookrec/internal/embeddings"
	"github.com/2389-research/bookrec/internal/logging"
	"github.com/2389-research/bookrec/internal/metrics"
	"github.com/2389-research/bookrec/internal/recommend"
)

var globalConfig *config.Config
var globalLogger *logrus.Logger
var globalCatalog *catalog.Catalog

var logLevelFlag string

var rootCmd = &cobra.Command{
	Use:   "bookrec",
	Short: "Embedding-based book recommendations",
	Long: `
██████╗  ██████╗  ██████╗ ██╗  ██╗██████╗ ███████╗ ██████╗
██╔══██╗██╔═══██╗██╔═══██╗██║ ██╔╝██╔══██╗██╔════╝██╔════╝
██████╔╝██║   ██║██║   ██║█████╔╝ ██████╔╝█████╗  ██║
██╔══██╗██║   ██║██║   ██║██╔═██╗ ██╔══██╗██╔══╝  ██║
██████╔╝╚██████╔╝╚██████╔╝██║  ██╗██║  ██║███████╗╚██████╗
╚═════╝  ╚═════╝  ╚═════╝ ╚═╝  ╚═╝╚═╝  ╚═╝╚══════╝ ╚═════╝

Describe what you like to read and get the closest books in the catalog.
Works offline with the built-in hash embedder, or with Ollama and OpenAI.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" || cmd.Name() == "version" || cmd.Name() == "setup" {
			return nil
		}

		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}
		globalConfig = cfg

		level := cfg.Log.Level
		if logLevelFlag != "" {
			level = logLevelFlag
		}
		// Stdout belongs to command output and the MCP protocol.
		logger, err := logging.New(level, cfg.Log.Format, os.Stderr)
		if err != nil {
			return err
		}
		globalLogger = logger

		catalogPath, err := cfg.GetCatalogPath()
		if err != nil {
			return fmt.Errorf("failed to resolve catalog path: %w", err)
		}
		cat, err := catalog.Load(catalogPath)
		if err != nil {
			return fmt.Errorf("failed to load catalog: %w", err)
		}
		globalCatalog = cat
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "log level (debug, info, warn, error)")
}

// app is a recommendation service plus the resources backing it.
type app struct {
	provider *embeddings.Provider
	redis    *redis.Client
	engine   *recommend.Engine
	service  *recommend.Service
	metrics  *metrics.Metrics
}

// newApp builds the provider stack and an empty engine. The index is
// loaded separately by loadIndex.
func newApp() (*app, error) {
	cfg := globalConfig
	a := &app{metrics: metrics.New(), engine: recommend.NewEngine()}

	if cfg.HasCache() {
		opt, err := redis.ParseURL(cfg.Cache.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("invalid cache.redis_url: %w", err)
		}
		a.redis = redis.NewClient(opt)
	}

	p, err := embeddings.New(embeddings.Options{
		Provider:          cfg.Embedding.Provider,
		URL:               cfg.Embedding.URL,
		Model:             cfg.Embedding.Model,
		APIKey:            cfg.Embedding.APIKey,
		Dimension:         cfg.Embedding.Dimension,
		Timeout:           cfg.Embedding.Timeout,
		Serialize:         cfg.Embedding.Serialize,
		RequestsPerSecond: cfg.Embedding.RequestsPerSecond,
		BreakerFailures:   cfg.Embedding.BreakerFailures,
		Redis:             a.redis,
		CacheTTL:          cfg.Cache.TTL,
		Logger:            globalLogger,
	})
	if err != nil {
		a.Close()
		return nil, err
	}
	a.provider = p
	a.service = recommend.NewService(p, a.engine, a.metrics, globalLogger)
	return a, nil
}

// loadIndex warms the provider, embeds the catalog, and publishes the index.
func (a *app) loadIndex(ctx context.Context) error {
	dim, err := embeddings.Warm(ctx, a.provider)
	if err != nil {
		return err
	}
	globalLogger.WithFields(logrus.Fields{
		"provider":  globalConfig.Embedding.Provider,
		"model":     a.provider.Model(),
		"dimension": dim,
	}).Info("embedding provider ready")

	snapshotPath, err := globalConfig.GetSnapshotPath()
	if err != nil {
		return fmt.Errorf("failed to resolve snapshot path: %w", err)
	}
	ix, err := recommend.Build(ctx, globalCatalog.Items(), a.provider, recommend.BuildOptions{
		SnapshotPath: snapshotPath,
		Logger:       globalLogger,
	})
	if err != nil {
		return err
	}
	if err := a.engine.Load(ix); err != nil {
		return err
	}
	a.metrics.SetCatalogItems(ix.Len())
	return nil
}

// Close releases the provider workers and the Redis connection.
func (a *app) Close() {
	if a.provider != nil {
		_ = a.provider.Close()
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
}

// startApp returns an app whose index is already loaded.
func startApp(ctx context.Context) (*app, error) {
	a, err := newApp()
	if err != nil {
		return nil, err
	}
	if err := a.loadIndex(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}
