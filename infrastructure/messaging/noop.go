package messaging

import (
	"context"

	"go.uber.org/zap"

	"github.com/DoozHub/dooz-pm-suite/application/ports"
	"github.com/DoozHub/dooz-pm-suite/domain/events"
)

// NoopPublisher drops every event. Wired when no event sink is configured,
// which is the default for local development and tests.
type NoopPublisher struct {
	logger *zap.Logger
}

var _ ports.EventPublisher = (*NoopPublisher)(nil)

// NewNoopPublisher returns a publisher that discards events.
func NewNoopPublisher(logger *zap.Logger) *NoopPublisher {
	return &NoopPublisher{logger: logger}
}

// Publish drops the event.
func (p *NoopPublisher) Publish(ctx context.Context, event events.DomainEvent) error {
	p.logger.Debug("Event dropped, no publisher configured",
		zap.String("eventType", event.GetEventType()),
		zap.String("aggregateId", event.GetAggregateID()))
	return nil
}

// PublishBatch drops the batch.
func (p *NoopPublisher) PublishBatch(ctx context.Context, batch []events.DomainEvent) error {
	for _, event := range batch {
		if err := p.Publish(ctx, event); err != nil {
			return err
		}
	}
	return nil
}
