// Package di assembles the suite. Providers are plain constructors
// selected by the configured drivers; wire generates the injector.
package di

import (
	"context"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awseventbridge "github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/DoozHub/dooz-pm-suite/application/ports"
	"github.com/DoozHub/dooz-pm-suite/application/services"
	"github.com/DoozHub/dooz-pm-suite/infrastructure/ai"
	"github.com/DoozHub/dooz-pm-suite/infrastructure/config"
	"github.com/DoozHub/dooz-pm-suite/infrastructure/messaging"
	"github.com/DoozHub/dooz-pm-suite/infrastructure/observability"
	"github.com/DoozHub/dooz-pm-suite/infrastructure/persistence/dynamodb"
	"github.com/DoozHub/dooz-pm-suite/infrastructure/persistence/memory"
	"github.com/DoozHub/dooz-pm-suite/interfaces/http/rest"
	"github.com/DoozHub/dooz-pm-suite/pkg/auth"
)

// Container holds the assembled suite and the resources that outlive a
// single request.
type Container struct {
	Config  *config.Config
	Logger  *zap.Logger
	Metrics *observability.Collector

	// Tracer and NATSConn are nil unless their drivers are enabled.
	Tracer   *observability.TracerProvider
	NATSConn *nats.Conn

	Router http.Handler
}

// Shutdown releases long-lived resources. Call it once, after the HTTP
// server has stopped accepting requests.
func (c *Container) Shutdown(ctx context.Context) {
	if c.Tracer != nil {
		if err := c.Tracer.Shutdown(ctx); err != nil {
			c.Logger.Warn("Failed to flush tracer", zap.Error(err))
		}
	}
	if c.NATSConn != nil {
		if err := c.NATSConn.Drain(); err != nil {
			c.Logger.Warn("Failed to drain NATS connection", zap.Error(err))
		}
	}
	_ = c.Logger.Sync()
}

func needsAWS(cfg *config.Config) bool {
	return cfg.Database.Driver == "dynamodb" || cfg.Events.Driver == "eventbridge"
}

// ProvideLogger builds the zap logger from the logging section.
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	return observability.NewLogger(cfg.Logging.Level, cfg.Logging.Format, cfg.IsDevelopment())
}

// ProvideCollector builds the Prometheus collector, or nil when metrics are
// disabled. Downstream consumers treat a nil collector as "don't count".
func ProvideCollector(cfg *config.Config) *observability.Collector {
	if !cfg.Telemetry.EnableMetrics {
		return nil
	}
	return observability.NewCollector("dooz_pm")
}

// ProvideTracerProvider installs the OTLP exporter when tracing is enabled.
func ProvideTracerProvider(ctx context.Context, cfg *config.Config) (*observability.TracerProvider, error) {
	if !cfg.Telemetry.EnableTracing {
		return nil, nil
	}
	return observability.InitTracing(ctx, observability.TracingConfig{
		ServiceName: cfg.Telemetry.ServiceName,
		Environment: cfg.Environment,
		Endpoint:    cfg.Telemetry.OTLPEndpoint,
	})
}

// ProvideAWSConfig loads AWS credentials and region. Deployments that use
// neither DynamoDB nor EventBridge skip the lookup entirely.
func ProvideAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	if !needsAWS(cfg) {
		return aws.Config{}, nil
	}
	return awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Database.Region))
}

// ProvideDynamoDBClient builds the DynamoDB client, or nil for the memory
// driver. The endpoint override points local emulators at the same code.
func ProvideDynamoDBClient(awsCfg aws.Config, cfg *config.Config) *awsdynamodb.Client {
	if cfg.Database.Driver != "dynamodb" {
		return nil
	}
	return awsdynamodb.NewFromConfig(awsCfg, func(o *awsdynamodb.Options) {
		if cfg.Database.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Database.Endpoint)
		}
	})
}

// ProvideEventBridgeClient builds the EventBridge client, or nil when events
// go elsewhere.
func ProvideEventBridgeClient(awsCfg aws.Config, cfg *config.Config) *awseventbridge.Client {
	if cfg.Events.Driver != "eventbridge" {
		return nil
	}
	return awseventbridge.NewFromConfig(awsCfg)
}

// ProvideNATSConn dials NATS when it is the events driver.
func ProvideNATSConn(cfg *config.Config, logger *zap.Logger) (*nats.Conn, error) {
	if cfg.Events.Driver != "nats" {
		return nil, nil
	}
	return nats.Connect(cfg.Events.NATSURL,
		nats.Name("dooz-pm-suite"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("NATS disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("NATS reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
	)
}

// ProvideIntentRepository selects the intent store for the configured driver.
func ProvideIntentRepository(cfg *config.Config, client *awsdynamodb.Client, logger *zap.Logger) ports.IntentRepository {
	if cfg.Database.Driver == "dynamodb" {
		return dynamodb.NewIntentRepository(client, cfg.Database.TableName, logger)
	}
	return memory.NewIntentRepository()
}

// ProvideDecisionRepository selects the decision store.
func ProvideDecisionRepository(cfg *config.Config, client *awsdynamodb.Client, logger *zap.Logger) ports.DecisionRepository {
	if cfg.Database.Driver == "dynamodb" {
		return dynamodb.NewDecisionRepository(client, cfg.Database.TableName, logger)
	}
	return memory.NewDecisionRepository()
}

// ProvideAssumptionRepository selects the assumption store.
func ProvideAssumptionRepository(cfg *config.Config, client *awsdynamodb.Client, logger *zap.Logger) ports.AssumptionRepository {
	if cfg.Database.Driver == "dynamodb" {
		return dynamodb.NewAssumptionRepository(client, cfg.Database.TableName, logger)
	}
	return memory.NewAssumptionRepository()
}

// ProvideRiskRepository selects the risk store.
func ProvideRiskRepository(cfg *config.Config, client *awsdynamodb.Client, logger *zap.Logger) ports.RiskRepository {
	if cfg.Database.Driver == "dynamodb" {
		return dynamodb.NewRiskRepository(client, cfg.Database.TableName, logger)
	}
	return memory.NewRiskRepository()
}

// ProvideTaskRepository selects the task store.
func ProvideTaskRepository(cfg *config.Config, client *awsdynamodb.Client, logger *zap.Logger) ports.TaskRepository {
	if cfg.Database.Driver == "dynamodb" {
		return dynamodb.NewTaskRepository(client, cfg.Database.TableName, logger)
	}
	return memory.NewTaskRepository()
}

// ProvideEdgeRepository selects the edge store.
func ProvideEdgeRepository(cfg *config.Config, client *awsdynamodb.Client, logger *zap.Logger) ports.EdgeRepository {
	if cfg.Database.Driver == "dynamodb" {
		return dynamodb.NewEdgeRepository(client, cfg.Database.TableName, logger)
	}
	return memory.NewEdgeRepository()
}

// ProvideProposalRepository selects the proposal store.
func ProvideProposalRepository(cfg *config.Config, client *awsdynamodb.Client, logger *zap.Logger) ports.ProposalRepository {
	if cfg.Database.Driver == "dynamodb" {
		return dynamodb.NewProposalRepository(client, cfg.Database.TableName, logger)
	}
	return memory.NewProposalRepository()
}

// ProvideMemoryStore selects the store behind the AI memory methods.
func ProvideMemoryStore(cfg *config.Config, client *awsdynamodb.Client, logger *zap.Logger) ports.MemoryStore {
	if cfg.Database.Driver == "dynamodb" {
		return dynamodb.NewMemoryStore(client, cfg.Database.TableName, logger)
	}
	return memory.NewMemoryStore()
}

// ProvideEventPublisher selects the publisher for the configured driver and
// wraps it with metrics counting when a collector is present.
func ProvideEventPublisher(
	cfg *config.Config,
	ebClient *awseventbridge.Client,
	natsConn *nats.Conn,
	collector *observability.Collector,
	logger *zap.Logger,
) ports.EventPublisher {
	var publisher ports.EventPublisher
	switch cfg.Events.Driver {
	case "eventbridge":
		publisher = messaging.NewEventBridgePublisher(ebClient, cfg.Events.EventBusName, logger)
	case "nats":
		publisher = messaging.NewNATSPublisher(natsConn, cfg.Events.SubjectPrefix, logger)
	default:
		publisher = messaging.NewNoopPublisher(logger)
	}

	if collector != nil {
		publisher = messaging.NewInstrumentedPublisher(publisher, collector)
	}
	return publisher
}

// ProvideAIService wires the completion provider and memory, or the no-op
// service when AI is disabled.
func ProvideAIService(cfg *config.Config, store ports.MemoryStore, logger *zap.Logger) ports.AIService {
	if !cfg.AI.Enabled {
		return ai.NewNoopService()
	}

	provider := ai.NewOpenAIProvider(ai.OpenAIConfig{
		BaseURL: cfg.AI.BaseURL,
		APIKey:  cfg.AI.APIKey,
		Model:   cfg.AI.Model,
		Timeout: cfg.AI.Timeout,
	}, logger)

	return ai.NewService(provider, store, logger)
}

// ProvideAuthValidator builds the JWT validator.
func ProvideAuthValidator(cfg *config.Config) *auth.Validator {
	return auth.NewValidator(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer)
}

// ProvideIntentService builds the intent lifecycle service.
func ProvideIntentService(intents ports.IntentRepository, publisher ports.EventPublisher, aiSvc ports.AIService, logger *zap.Logger) *services.IntentService {
	return services.NewIntentService(intents, publisher, aiSvc, logger)
}

// ProvideDecisionService builds the decision ledger service.
func ProvideDecisionService(decisions ports.DecisionRepository, intents ports.IntentRepository, publisher ports.EventPublisher, aiSvc ports.AIService, logger *zap.Logger) *services.DecisionService {
	return services.NewDecisionService(decisions, intents, publisher, aiSvc, logger)
}

// ProvideGraphService builds the knowledge graph service.
func ProvideGraphService(edges ports.EdgeRepository, logger *zap.Logger) *services.GraphService {
	return services.NewGraphService(edges, logger)
}

// ProvideRegistryService builds the assumption, risk and task service.
func ProvideRegistryService(
	assumptions ports.AssumptionRepository,
	risks ports.RiskRepository,
	tasks ports.TaskRepository,
	intents ports.IntentRepository,
	logger *zap.Logger,
) *services.RegistryService {
	return services.NewRegistryService(assumptions, risks, tasks, intents, logger)
}

// ProvideProposalService builds the proposal review service.
func ProvideProposalService(
	proposals ports.ProposalRepository,
	intents ports.IntentRepository,
	decisions *services.DecisionService,
	registry *services.RegistryService,
	publisher ports.EventPublisher,
	logger *zap.Logger,
) *services.ProposalService {
	return services.NewProposalService(proposals, intents, decisions, registry, publisher, logger)
}

// ProvideExtractionService builds the text-to-proposals service.
func ProvideExtractionService(aiSvc ports.AIService, proposals *services.ProposalService, cfg *config.Config, logger *zap.Logger) *services.ExtractionService {
	return services.NewExtractionService(aiSvc, proposals, cfg.AI.Model, logger)
}

// ProvideRouter assembles the HTTP surface.
func ProvideRouter(
	cfg *config.Config,
	logger *zap.Logger,
	collector *observability.Collector,
	validator *auth.Validator,
	intents *services.IntentService,
	decisions *services.DecisionService,
	graph *services.GraphService,
	registry *services.RegistryService,
	proposals *services.ProposalService,
	extraction *services.ExtractionService,
) http.Handler {
	return rest.NewRouter(rest.Deps{
		Logger:         logger,
		Metrics:        collector,
		Auth:           validator,
		ServiceName:    cfg.Telemetry.ServiceName,
		EnableCORS:     cfg.Server.EnableCORS,
		EnableTracing:  cfg.Telemetry.EnableTracing,
		RequestTimeout: cfg.Server.WriteTimeout,
		Intents:        intents,
		Decisions:      decisions,
		Graph:          graph,
		Proposals:      proposals,
		Registry:       registry,
		Extraction:     extraction,
	})
}
