//go:build wireinject
// +build wireinject

package di

import (
	"context"

	"github.com/google/wire"

	"github.com/DoozHub/dooz-pm-suite/infrastructure/config"
)

// SuperSet is the full provider graph for the suite.
var SuperSet = wire.NewSet(
	ProvideLogger,
	ProvideCollector,
	ProvideTracerProvider,
	ProvideAWSConfig,
	ProvideDynamoDBClient,
	ProvideEventBridgeClient,
	ProvideNATSConn,
	ProvideIntentRepository,
	ProvideDecisionRepository,
	ProvideAssumptionRepository,
	ProvideRiskRepository,
	ProvideTaskRepository,
	ProvideEdgeRepository,
	ProvideProposalRepository,
	ProvideMemoryStore,
	ProvideEventPublisher,
	ProvideAIService,
	ProvideAuthValidator,
	ProvideIntentService,
	ProvideDecisionService,
	ProvideGraphService,
	ProvideRegistryService,
	ProvideProposalService,
	ProvideExtractionService,
	ProvideRouter,
	wire.Struct(new(Container), "*"),
)

// InitializeContainer creates a fully wired container.
func InitializeContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	wire.Build(SuperSet)
	return nil, nil // Wire will replace this
}
