//go:build wireinject
// +build wireinject

package di

import (
	"github.com/google/wire"

	"GrowthLens/internal/usecase"
	"GrowthLens/pkg/config"
	"GrowthLens/pkg/server"
)

var reportSet = wire.NewSet(
	ProvideKafkaProducer,
	ProvideLogger,
	ProvideMetrics,
	ProvideSources,
	ProvidePublisher,
	ProvideNotifier,
	ProvideExporter,
	ProvideReportRunner,
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, func(), error) {
	wire.Build(
		reportSet,
		ProvideScheduler,
		ProvideCache,
		ProvideLimiter,
		ProvideHTTPServer,
		ProvideApp,
	)
	return nil, nil, nil
}

// InitializeReportRunner wires only what one-shot report runs need.
func InitializeReportRunner(cfg *config.Config) (*usecase.ReportRunner, func(), error) {
	wire.Build(reportSet)
	return nil, nil, nil
}
