//go:build wireinject
// +build wireinject

package di

import (
	"CoinScout/pkg/config"
	"CoinScout/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideCache,
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,

		// Repositories and gateways
		ProvideSnapshotStore,
		ProvideOKXClient,
		ProvideMarketGateway,
		ProvideCandleSource,
		ProvidePortfolioPublisher,

		// Scoring
		ProvideSyntheticEngine,
		ProvideIndicatorEngine,
		ProvideScorer,
		ProvideTickerFilter,
		ProvidePipeline,

		// Observers and use cases
		ProvideNotifier,
		ProvideAlertObserver,
		ProvideOrchestrator,
		ProvideHub,
		ProvideRefreshHandler,

		// Transport
		ProvidePortfolioHandler,
		ProvideHTTPServer,

		ProvideApp,
	)
	return &server.App{}, nil
}
