// Package di assembles the application's dependency graph, in the shape of
// the teacher's infrastructure/di package: a set of narrow Provide*
// functions plus a Container struct, normally wired together by
// `google/wire` (see wire.go) and checked in here as the hand-assembled
// equivalent of what `wire` would generate.
package di

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"

	"imgproxy/internal/config"
	"imgproxy/internal/derivative"
	"imgproxy/internal/engine"
	"imgproxy/internal/fetcher"
	"imgproxy/internal/httpapi"
	"imgproxy/internal/observability"
	"imgproxy/internal/processor"
	"imgproxy/internal/scheduler"
	"imgproxy/internal/store"
)

// Container holds every constructed collaborator main.go needs to serve
// traffic and shut down cleanly.
type Container struct {
	Config    *config.Config
	Logger    *zap.Logger
	Metrics   *observability.Collector
	Engine    *engine.Engine // nil unless either tier is Persistent.
	Store     store.Store
	Cache     derivative.Cache
	Fetcher   fetcher.Backend // nil when upstream fetch is disabled.
	Processor *processor.Processor
	Scheduler *scheduler.Scheduler
	Router    http.Handler
}

// ProvideLogger builds the zap logger, production-structured unless
// ENVIRONMENT=development, mirroring infrastructure/di's ProvideLogger.
func ProvideLogger() (*zap.Logger, error) {
	if os.Getenv("ENVIRONMENT") == "development" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// ProvideMetrics builds the Prometheus collector under a fixed namespace.
func ProvideMetrics() *observability.Collector {
	return observability.NewCollector("imgproxy")
}

// ProvideEngine opens the persistent keyspace engine iff cfg requires it for
// either tier; otherwise it returns (nil, nil) so Provide{Store,Cache} can
// skip straight to their in-memory variants.
func ProvideEngine(cfg *config.Config) (*engine.Engine, error) {
	if cfg.StorageImplementation != config.Persistent && cfg.CacheImplementation != config.Persistent {
		return nil, nil
	}
	eng, err := engine.Open(engine.Options{
		Path:               cfg.PersistentStorageDir,
		StorageCapacity:    cfg.StorageCacheSize,
		DerivativeCapacity: cfg.ProcessingCacheSize,
	})
	if err != nil {
		return nil, fmt.Errorf("di: open engine: %w", err)
	}
	return eng, nil
}

// ProvideStore selects the original-bytes store implementation per
// STORAGE_IMPLEMENTATION.
func ProvideStore(cfg *config.Config, eng *engine.Engine, logger *zap.Logger) (store.Store, error) {
	switch cfg.StorageImplementation {
	case config.Persistent:
		if eng == nil {
			return nil, fmt.Errorf("di: persistent store requested but engine is nil")
		}
		return store.NewPersistentStore(eng, logger), nil
	default:
		return store.NewMemoryStore(cfg.StorageCacheSize), nil
	}
}

// ProvideCache selects the derivative cache implementation per
// PROCESSING_CACHE_IMPLEMENTATION. Capacity is sized from ProcessingCacheSize
// for both variants, per DESIGN.md's resolution of the two-budget Open
// Question (the source's bug of reusing StorageCacheSize is not repeated).
func ProvideCache(cfg *config.Config, eng *engine.Engine, metrics *observability.Collector, logger *zap.Logger) (derivative.Cache, error) {
	admission := derivative.Config{
		MaxOptionsPerImage: cfg.MaxOptionsPerImage,
		OverflowPolicy:     cfg.MaxOptionsOverflowPolicy,
	}
	switch cfg.CacheImplementation {
	case config.Persistent:
		if eng == nil {
			return nil, fmt.Errorf("di: persistent cache requested but engine is nil")
		}
		return derivative.NewPersistentCache(eng, admission, metrics, logger), nil
	default:
		return derivative.NewMemoryCache(cfg.ProcessingCacheSize, admission, metrics), nil
	}
}

// ProvideFetcher returns nil when BASE_FILE_API_URL is unset, per spec.md §6.
func ProvideFetcher(cfg *config.Config, logger *zap.Logger) fetcher.Backend {
	if !cfg.FetchEnabled() {
		return nil
	}
	return fetcher.NewSimpleBackend(fetcher.Config{
		BaseURL:        cfg.BaseFileAPIURL,
		TimeoutSeconds: cfg.BaseFileAPITimeoutSec,
	}, logger)
}

// ProvideProcessor assembles C5 from its three collaborators.
func ProvideProcessor(st store.Store, cache derivative.Cache, fb fetcher.Backend, metrics *observability.Collector, logger *zap.Logger) *processor.Processor {
	return processor.New(st, cache, fb, metrics, logger)
}

// ProvideScheduler registers every tier's background task (C6).
func ProvideScheduler(logger *zap.Logger, st store.Store, cache derivative.Cache) *scheduler.Scheduler {
	return scheduler.New(logger, st, cache)
}

// ProvideRouter assembles C7's route tree.
func ProvideRouter(proc *processor.Processor, cfg *config.Config, metrics *observability.Collector, logger *zap.Logger) http.Handler {
	return httpapi.NewRouter(proc, httpapi.Config{
		APIKey:         cfg.APIKey,
		Bounds:         cfg.Bounds(),
		ClientCacheTTL: time.Duration(cfg.ClientCacheTTLSeconds) * time.Second,
		EnableDocs:     cfg.EnableDocs,
	}, metrics, logger)
}
