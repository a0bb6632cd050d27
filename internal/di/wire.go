//go:build wireinject
// +build wireinject

package di

import (
	"github.com/google/wire"

	"RateCast/pkg/config"
	"RateCast/pkg/server"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, func(), error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		// Storage and cache
		ProvideStore,
		ProvideObservationStore,
		ProvideRunStore,
		ProvideCacheService,
		ProvideRunCache,

		// Kafka
		ProvideKafkaProducer,
		ProvideEventPublisher,
		ProvideKafkaConsumer,

		// Use cases
		ProvideNarrator,
		ProvideIngestUseCase,
		ProvideRunOrchestrator,
		ProvideExplainUseCase,
		ProvideRunTriggerHandler,

		// HTTP
		ProvideRateLimiter,
		ProvideHandlers,
		ProvideHTTPServer,

		ProvideApp,
	)
	return nil, nil, nil
}
