// Package app wires configuration into the running engine. Both the API
// server and the CLI build their pipeline through it.
package app

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/estateforge/prospect-engine/internal/artifact"
	"github.com/estateforge/prospect-engine/internal/blob"
	"github.com/estateforge/prospect-engine/internal/cache"
	"github.com/estateforge/prospect-engine/internal/classify"
	"github.com/estateforge/prospect-engine/internal/config"
	"github.com/estateforge/prospect-engine/internal/extract"
	"github.com/estateforge/prospect-engine/internal/generate"
	"github.com/estateforge/prospect-engine/internal/llm"
	"github.com/estateforge/prospect-engine/internal/mapper"
	"github.com/estateforge/prospect-engine/internal/observability"
	"github.com/estateforge/prospect-engine/internal/pipeline"
	"github.com/estateforge/prospect-engine/internal/storage"
)

// App is the assembled engine.
type App struct {
	Config       *config.Config
	Logger       *observability.Logger
	DB           *sql.DB
	Repos        *storage.Repositories
	Cache        cache.Client
	Broker       cache.Broker
	Blob         blob.Store
	Fetcher      *pipeline.Fetcher
	Orchestrator *pipeline.Orchestrator
}

// New builds the engine from configuration. A missing model credential is
// a hard error; an unreachable blob store degrades to inline data URLs.
func New(ctx context.Context, cfg *config.Config, logger *observability.Logger) (*App, error) {
	if cfg.LLM.APIKey == "" {
		return nil, fmt.Errorf("app: OPENROUTER_API_KEY is required")
	}

	db, err := storage.Open(ctx, storage.OpenOptions{
		Driver:          cfg.Database.Driver,
		DSN:             cfg.DatabaseDSN(),
		MaxOpenConns:    maxOpenConns(cfg),
		MaxIdleConns:    cfg.Database.Postgres.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.Postgres.ConnMaxLifetime,
	})
	if err != nil {
		return nil, err
	}
	repos := storage.NewRepositories(db)

	cacheClient, broker, err := buildCache(cfg)
	if err != nil {
		db.Close()
		return nil, err
	}

	store := buildBlobStore(ctx, cfg, logger)

	completer, err := llm.NewClient(llm.Config{
		APIKey:     cfg.LLM.APIKey,
		Model:      cfg.LLM.Model,
		Timeout:    cfg.LLM.Timeout,
		MaxRetries: cfg.LLM.MaxRetries,
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	fetcher := pipeline.NewFetcher(cfg.Pipeline.MaxPDFBytes, logger)

	orchestrator := pipeline.NewOrchestrator(pipeline.Deps{
		Prospects: repos.Prospects,
		MiniSites: repos.MiniSites,
		Fetcher:   fetcher,
		Content:   extract.NewContentExtractor(),
		Images: extract.NewImageExtractor(store, logger, extract.ImageOptions{
			MinWidth:     cfg.Pipeline.MinImageWidth,
			MinHeight:    cfg.Pipeline.MinImageHeight,
			MinArea:      cfg.Pipeline.MinImageArea,
			MaxDimension: cfg.Pipeline.MaxImageDimension,
			MaxImages:    cfg.Pipeline.MaxImages,
			JPEGQuality:  cfg.Pipeline.JPEGQuality,
		}),
		Classifier: classify.NewClassifier(completer, logger, classify.Options{
			BatchSize:  cfg.Pipeline.ClassifyBatchSize,
			BatchPause: cfg.Pipeline.ClassifyBatchPause,
			Model:      cfg.LLM.VisionModel,
		}),
		Mapper: mapper.NewMapper(completer, cacheClient, logger, mapper.Options{
			TextBudget: cfg.Pipeline.TextBudgetChars,
			Model:      cfg.LLM.Model,
			CacheTTL:   cfg.Pipeline.MapperCacheTTL,
		}),
		Localizer: generate.NewLocalizer(completer, logger, generate.LocalizerOptions{
			Locale: cfg.Pipeline.TargetLocale,
			Model:  cfg.LLM.Model,
		}),
		SEO:     generate.NewSEOGenerator(completer, logger, generate.SEOOptions{Model: cfg.LLM.Model}),
		Builder: artifact.NewBuilder(repos.Projects, repos.MiniSites, logger),
		Events:  pipeline.NewPublisher(broker, logger),
		Logger:  logger,
	})

	return &App{
		Config:       cfg,
		Logger:       logger,
		DB:           db,
		Repos:        repos,
		Cache:        cacheClient,
		Broker:       broker,
		Blob:         store,
		Fetcher:      fetcher,
		Orchestrator: orchestrator,
	}, nil
}

// Close releases the engine's resources.
func (a *App) Close() error {
	if a.Cache != nil {
		_ = a.Cache.Close()
	}
	if a.DB != nil {
		return a.DB.Close()
	}
	return nil
}

func maxOpenConns(cfg *config.Config) int {
	if cfg.Database.Driver == "sqlite" {
		return cfg.Database.SQLite.MaxOpenConns
	}
	return cfg.Database.Postgres.MaxOpenConns
}

// buildCache picks the cache driver. Both drivers also serve as the
// progress event broker.
func buildCache(cfg *config.Config) (cache.Client, cache.Broker, error) {
	if cfg.Cache.Driver == "redis" {
		client, err := cache.NewRedisClient(cache.RedisConfig{
			Addr:     cfg.Cache.Redis.Addr,
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
			PoolSize: cfg.Cache.Redis.PoolSize,
		})
		if err != nil {
			return nil, nil, err
		}
		return client, client, nil
	}

	mem := cache.NewMemoryClient(cfg.Cache.MaxEntries)
	return mem, mem, nil
}

// buildBlobStore returns MinIO when credentials are configured and it is
// reachable, otherwise the inline data-URL fallback. Blob storage is a
// soft dependency: images degrade, the pipeline keeps running.
func buildBlobStore(ctx context.Context, cfg *config.Config, logger *observability.Logger) blob.Store {
	if cfg.Blob.AccessKey == "" || cfg.Blob.SecretKey == "" {
		logger.Warn().Msg("Blob storage not configured, images will be inlined as data URLs")
		return blob.NewDataURLStore()
	}

	store, err := blob.NewMinioStore(ctx, blob.MinioConfig{
		Endpoint:  cfg.Blob.Endpoint,
		AccessKey: cfg.Blob.AccessKey,
		SecretKey: cfg.Blob.SecretKey,
		Bucket:    cfg.Blob.Bucket,
		UseSSL:    cfg.Blob.UseSSL,
	})
	if err != nil {
		logger.Warn().Err(err).Msg("Blob storage unreachable, images will be inlined as data URLs")
		return blob.NewDataURLStore()
	}
	return store
}
