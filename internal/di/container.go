package di

import (
	"imgproxy/internal/config"
)

// BuildContainer constructs the dependency graph `wire.go`'s InitializeContainer
// describes, in the same call order `wire` would generate into a
// wire_gen.go: logger and metrics first, then the optional shared engine,
// then the two tiers (which may depend on it), then the fetcher, processor,
// scheduler and router that depend on those.
func BuildContainer(cfg *config.Config) (*Container, error) {
	logger, err := ProvideLogger()
	if err != nil {
		return nil, err
	}

	metrics := ProvideMetrics()

	eng, err := ProvideEngine(cfg)
	if err != nil {
		return nil, err
	}

	st, err := ProvideStore(cfg, eng, logger)
	if err != nil {
		return nil, err
	}

	cache, err := ProvideCache(cfg, eng, metrics, logger)
	if err != nil {
		return nil, err
	}

	fb := ProvideFetcher(cfg, logger)
	proc := ProvideProcessor(st, cache, fb, metrics, logger)
	sched := ProvideScheduler(logger, st, cache)
	router := ProvideRouter(proc, cfg, metrics, logger)

	return &Container{
		Config:    cfg,
		Logger:    logger,
		Metrics:   metrics,
		Engine:    eng,
		Store:     st,
		Cache:     cache,
		Fetcher:   fb,
		Processor: proc,
		Scheduler: sched,
		Router:    router,
	}, nil
}

// Close releases the container's owned resources (currently, only the
// persistent engine, if one was opened).
func (c *Container) Close() error {
	if c.Engine != nil {
		return c.Engine.Close()
	}
	return nil
}
