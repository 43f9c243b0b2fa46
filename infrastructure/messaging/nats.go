package messaging

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/DoozHub/dooz-pm-suite/application/ports"
	"github.com/DoozHub/dooz-pm-suite/domain/events"
)

// defaultSubjectPrefix keeps all suite events under one wildcard-friendly
// namespace: subscribers use "pm.events.>".
const defaultSubjectPrefix = "pm.events"

// NATSPublisher delivers domain events to a NATS subject per event type,
// e.g. pm.events.intent.transitioned.
type NATSPublisher struct {
	conn          *nats.Conn
	subjectPrefix string
	logger        *zap.Logger
}

var _ ports.EventPublisher = (*NATSPublisher)(nil)

// NewNATSPublisher creates a publisher over an established connection. The
// caller owns the connection's lifecycle.
func NewNATSPublisher(conn *nats.Conn, subjectPrefix string, logger *zap.Logger) *NATSPublisher {
	if subjectPrefix == "" {
		subjectPrefix = defaultSubjectPrefix
	}
	return &NATSPublisher{
		conn:          conn,
		subjectPrefix: subjectPrefix,
		logger:        logger,
	}
}

// Publish sends a single event. NATS publishes are synchronous and do not
// take a context, so cancellation is only checked up front.
func (p *NATSPublisher) Publish(ctx context.Context, event events.DomainEvent) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context cancelled before publish: %w", err)
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	subject := subjectFor(p.subjectPrefix, event)
	if err := p.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", subject, err)
	}

	p.logger.Debug("Event published to NATS",
		zap.String("subject", subject),
		zap.String("aggregateId", event.GetAggregateID()))

	return nil
}

// PublishBatch sends each event in order, then flushes so the batch has
// reached the server before returning.
func (p *NATSPublisher) PublishBatch(ctx context.Context, batch []events.DomainEvent) error {
	if len(batch) == 0 {
		return nil
	}

	for _, event := range batch {
		if err := p.Publish(ctx, event); err != nil {
			return err
		}
	}

	if err := p.conn.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("failed to flush publishes: %w", err)
	}

	return nil
}

func subjectFor(prefix string, event events.DomainEvent) string {
	return prefix + "." + event.GetEventType()
}
