//go:build wireinject
// +build wireinject

// This file is the `wire` injector source: `go generate` against it (never
// run in this environment) would emit a wire_gen.go equivalent to the
// hand-assembled BuildContainer in container.go. It is excluded from normal
// builds by the
// wireinject tag, mirroring infrastructure/di/wire.go in the teacher.
package di

import (
	"github.com/google/wire"

	"imgproxy/internal/config"
)

// SuperSet is the full provider set: every Provide* function in
// providers.go plus the Container struct assembler.
var SuperSet = wire.NewSet(
	ProvideLogger,
	ProvideMetrics,
	ProvideEngine,
	ProvideStore,
	ProvideCache,
	ProvideFetcher,
	ProvideProcessor,
	ProvideScheduler,
	ProvideRouter,
	wire.Struct(new(Container), "*"),
)

// InitializeContainer builds a fully wired Container from cfg. Wire
// replaces this body at generation time; BuildContainer in container.go is
// the hand-assembled equivalent actually compiled and run.
func InitializeContainer(cfg *config.Config) (*Container, error) {
	wire.Build(SuperSet)
	return nil, nil
}
