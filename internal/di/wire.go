//go:build wireinject
// +build wireinject

package di

import (
	"github.com/google/wire"

	"github.com/seethefuture888888-creator/kangbo/internal/usecase"
	"github.com/seethefuture888888-creator/kangbo/pkg/config"
	"github.com/seethefuture888888-creator/kangbo/pkg/server"
)

var infraSet = wire.NewSet(
	ProvideLogger,
	ProvideMetrics,
	ProvideLimiter,
	ProvideCache,
	ProvideKafkaProducer,
	ProvideClickHouseClient,
	ProvideExternalSinks,
)

var pipelineSet = wire.NewSet(
	ProvidePriceSource,
	ProvideFREDClient,
	ProvideMacroSource,
	ProvideBuilder,
	ProvideSnapshotStore,
	ProvidePipeline,
)

// InitializeApp wires the long-running server: scheduler, read API and stream hub.
func InitializeApp(cfg *config.Config) (*server.App, func(), error) {
	wire.Build(
		infraSet,
		pipelineSet,
		ProvideStreamHub,
		ProvideServeSinks,
		ProvideScheduler,
		ProvideDashboardHandler,
		ProvideHTTPServer,
		ProvideApp,
	)
	return nil, nil, nil
}

// InitializePipeline wires a pipeline for one-shot commands.
func InitializePipeline(cfg *config.Config) (*usecase.Pipeline, func(), error) {
	wire.Build(
		infraSet,
		pipelineSet,
		ProvideBatchSinks,
	)
	return nil, nil, nil
}
