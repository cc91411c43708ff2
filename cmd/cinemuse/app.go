package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/kailas-cloud/cinemuse/internal/config"
	dbRedis "github.com/kailas-cloud/cinemuse/internal/db/redis"
	"github.com/kailas-cloud/cinemuse/internal/domain"
	"github.com/kailas-cloud/cinemuse/internal/metrics"
	"github.com/kailas-cloud/cinemuse/internal/repository/embcache"
	mediarepo "github.com/kailas-cloud/cinemuse/internal/repository/media"
	vectorrepo "github.com/kailas-cloud/cinemuse/internal/repository/vector"
	localEmb "github.com/kailas-cloud/cinemuse/internal/transport/local"
	openaiTransport "github.com/kailas-cloud/cinemuse/internal/transport/openai"
	"github.com/kailas-cloud/cinemuse/internal/transport/tmdb"
	backfilluc "github.com/kailas-cloud/cinemuse/internal/usecase/backfill"
	embeddinguc "github.com/kailas-cloud/cinemuse/internal/usecase/embedding"
	"github.com/kailas-cloud/cinemuse/internal/usecase/expansion"
	healthuc "github.com/kailas-cloud/cinemuse/internal/usecase/health"
	mediauc "github.com/kailas-cloud/cinemuse/internal/usecase/media"
	searchuc "github.com/kailas-cloud/cinemuse/internal/usecase/search"
)

// app is the composition root shared by every subcommand.
// Optional parts (store, vectors, catalog) stay nil when disabled.
type app struct {
	gdb      *gorm.DB
	corpus   *mediarepo.Repo
	store    *dbRedis.Store
	vectors  *vectorrepo.Repo
	embedder *embeddinguc.Provider
	catalog  *tmdb.Client

	media    *mediauc.Service
	search   *searchuc.Service
	backfill *backfilluc.Service
	health   *healthuc.Service
}

func newApp(ctx context.Context, cfg config.Config, logger *zap.Logger) (*app, error) {
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterSearchMetrics()

	a := &app{}

	gdb, err := mediarepo.Open(mediarepo.OpenOptions{
		DSN:          cfg.Database.DSN,
		MaxOpenConns: cfg.Database.MaxOpenConns,
		LogLevel:     cfg.Database.LogLevel,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("open corpus: %w", err)
	}
	a.gdb = gdb
	a.corpus = mediarepo.New(gdb)
	logger.Info("Corpus database opened")

	if cfg.VectorIndex.Enabled {
		if err := a.openVectorIndex(ctx, cfg, logger); err != nil {
			a.close(logger)
			return nil, err
		}
	}

	a.embedder = buildEmbedder(cfg.Embedding, a.store, logger)
	logger.Info("Embedder created",
		zap.String("provider", cfg.Embedding.Provider),
		zap.String("model_version", a.embedder.ModelVersion()),
	)

	if cfg.Catalog.Enabled {
		a.catalog, err = tmdb.New(&tmdb.Config{
			APIKey:            cfg.Catalog.APIKey,
			AccessToken:       cfg.Catalog.AccessToken,
			BaseURL:           cfg.Catalog.BaseURL,
			ImageBaseURL:      cfg.Catalog.ImageBaseURL,
			RequestsPerSecond: cfg.Catalog.RequestsPerSecond,
			Timeout:           time.Duration(cfg.Catalog.TimeoutSec) * time.Second,
			Logger:            logger,
		})
		if err != nil {
			a.close(logger)
			return nil, fmt.Errorf("tmdb client: %w", err)
		}
	}

	// Go gotcha: a nil *vectorrepo.Repo wrapped in an interface is not nil.
	var (
		mediaVectors    mediauc.VectorWriter
		backfillVectors backfilluc.VectorWriter
		searchIndex     searchuc.VectorIndex
	)
	if a.vectors != nil {
		mediaVectors, backfillVectors, searchIndex = a.vectors, a.vectors, a.vectors
	}

	a.media = mediauc.New(a.corpus, a.embedder, mediaVectors, logger)
	a.backfill = backfilluc.New(a.corpus, a.embedder, backfillVectors, logger)

	opts := []searchuc.Option{
		searchuc.WithTermConcurrency(cfg.Search.TermConcurrency),
		searchuc.WithIndexMargin(cfg.Search.SimilarMargin),
	}
	if a.catalog != nil {
		opts = append(opts, searchuc.WithColdStart(a.catalog, a.media))
	}
	a.search = searchuc.New(a.corpus, searchIndex, a.embedder, buildExpander(cfg.Expansion, logger), logger, opts...)

	checkers := map[string]healthuc.Checker{"embedding": a.embedder}
	if a.vectors != nil {
		checkers["vector_index"] = a.vectors
	}
	if a.catalog != nil {
		checkers["catalog"] = a.catalog
	}
	a.health = healthuc.New(a.corpus, checkers)

	return a, nil
}

// openVectorIndex connects to Redis/Valkey and makes sure the FT index exists.
// A missing index is not fatal: similar-items falls back to brute-force cosine.
func (a *app) openVectorIndex(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	vc := cfg.VectorIndex
	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    vc.Addrs,
		Username: vc.Username,
		Password: vc.Password,
	})
	if err != nil {
		return fmt.Errorf("vector store: %w", err)
	}
	a.store = store

	if err := store.WaitForReady(ctx, time.Duration(vc.ReadinessTimeout)*time.Second); err != nil {
		logger.Warn("Vector store not ready, similar search will use fallbacks", zap.Error(err))
	}

	a.vectors = vectorrepo.New(store, vectorrepo.Options{
		IndexName:       vc.IndexName,
		KeyPrefix:       vc.KeyPrefix,
		Dimensions:      cfg.Embedding.Dimensions,
		HNSWM:           vc.HNSWM,
		HNSWEFConstruct: vc.HNSWEFConstruct,
		BatchSize:       vc.UpsertBatchSize,
		BreakerFailures: vc.BreakerFailures,
		BreakerCooldown: time.Duration(vc.BreakerCooldown) * time.Second,
	}, logger)
	if err := a.vectors.EnsureIndex(ctx); err != nil {
		logger.Warn("Vector index unavailable", zap.String("driver", vc.Driver), zap.Error(err))
	} else {
		logger.Info("Vector index ready", zap.String("driver", vc.Driver), zap.String("index", vc.IndexName))
	}
	return nil
}

func (a *app) close(logger *zap.Logger) {
	if a.store != nil {
		a.store.Close()
	}
	if a.gdb != nil {
		if err := mediarepo.Close(a.gdb); err != nil {
			logger.Error("Error closing corpus database", zap.Error(err))
		}
	}
}

// buildEmbedder assembles the decorator chain: transport -> Cached -> Provider.
func buildEmbedder(ec config.EmbeddingConfig, store *dbRedis.Store, logger *zap.Logger) *embeddinguc.Provider {
	modelVersion := ec.ModelVersion()

	var base domain.Embedder
	switch ec.Provider {
	case "openai":
		base = openaiTransport.NewEmbedder(&openaiTransport.Config{
			APIKey:       ec.APIKey,
			BaseURL:      ec.BaseURL,
			Model:        ec.Model,
			Dimensions:   ec.Dimensions,
			Provider:     ec.Provider,
			ModelVersion: modelVersion,
			Logger:       logger,
		})
	default:
		base = localEmb.NewEmbedder(&localEmb.Config{
			Model:          ec.Model,
			Dimensions:     ec.Dimensions,
			VocabularyPath: ec.Local.VocabularyPath,
			ModelVersion:   modelVersion,
			Logger:         logger,
		})
	}

	embedder := base
	if ec.Cache && store != nil {
		embedder = embcache.New(base, store, modelVersion, metrics.EmbeddingCacheTotal, logger,
			embcache.WithTTL(time.Duration(ec.CacheTTLHours)*time.Hour))
	}

	return embeddinguc.NewProvider(embedder, ec.Provider, ec.Model, modelVersion, ec.MaxBatchSize, logger)
}

// buildExpander returns the query expander. Disabled expansion still yields a service
// that passes the raw query through.
func buildExpander(xc config.ExpansionConfig, logger *zap.Logger) *expansion.Service {
	if !xc.Enabled {
		return expansion.New(nil, xc.MaxTerms, logger)
	}
	llm := openaiTransport.NewExpander(&openaiTransport.ExpanderConfig{
		APIKey:      xc.APIKey,
		BaseURL:     xc.BaseURL,
		Model:       xc.Model,
		Temperature: xc.Temperature,
		Timeout:     time.Duration(xc.TimeoutSec) * time.Second,
		Logger:      logger,
	})
	return expansion.New(llm, xc.MaxTerms, logger)
}
