//go:build wireinject
// +build wireinject

package di

import (
	"context"

	"gallery-backend/infrastructure/config"

	"github.com/google/wire"
)

// SuperSet is the main provider set containing all providers
var SuperSet = wire.NewSet(
	ProvideLogger,
	ProvideGalleryConfig,
	ProvideMetrics,
	ProvideHTTPClient,
	ProvideAWSConfig,
	ProvideDynamoDBClient,
	ProvideEventBridgeClient,
	ProvideDocumentStore,
	ProvideMirror,
	ProvideEventPublisher,
	ProvideLimiters,
	ProvideCatalogCache,
	ProvideOpenAIClient,
	ProvideColorSource,
	ProvideMakeClient,
	ProvideImageProxy,
	ProvideSanitizer,
	ProvideTokenValidator,
	ProvideErrorHandler,
	ProvideCommandBus,
	ProvideQueryBus,
	ProvideReconciler,
	ProvideScheduler,
	ProvideRouter,
	wire.Struct(new(Container), "*"),
)

// InitializeContainer creates a fully wired container. The cleanup
// function releases the mirror and stops the cache janitor.
func InitializeContainer(ctx context.Context, cfg *config.Config) (*Container, func(), error) {
	wire.Build(SuperSet)
	return nil, nil, nil // Wire will replace this
}
