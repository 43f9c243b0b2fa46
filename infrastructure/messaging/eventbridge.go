// Package messaging implements the EventPublisher port. Three drivers
// exist: AWS EventBridge for deployed environments, NATS for self-hosted
// installs, and a no-op for local development and tests.
package messaging

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge/types"
	"go.uber.org/zap"

	"github.com/DoozHub/dooz-pm-suite/application/ports"
	"github.com/DoozHub/dooz-pm-suite/domain/events"
)

// EventBridge limits PutEvents to 10 entries per call.
const eventBridgeBatchSize = 10

// EventBridgePublisher delivers domain events to an AWS EventBridge bus.
// Downstream consumers (rules, targets) are configured in infrastructure,
// not here.
type EventBridgePublisher struct {
	client       *eventbridge.Client
	eventBusName string
	logger       *zap.Logger
}

var _ ports.EventPublisher = (*EventBridgePublisher)(nil)

// NewEventBridgePublisher creates a publisher for the named event bus.
func NewEventBridgePublisher(client *eventbridge.Client, eventBusName string, logger *zap.Logger) *EventBridgePublisher {
	if eventBusName == "" {
		eventBusName = "default"
	}
	return &EventBridgePublisher{
		client:       client,
		eventBusName: eventBusName,
		logger:       logger,
	}
}

// Publish sends a single event.
func (p *EventBridgePublisher) Publish(ctx context.Context, event events.DomainEvent) error {
	return p.PublishBatch(ctx, []events.DomainEvent{event})
}

// PublishBatch sends events in chunks of the EventBridge entry limit.
func (p *EventBridgePublisher) PublishBatch(ctx context.Context, batch []events.DomainEvent) error {
	if len(batch) == 0 {
		return nil
	}

	for i := 0; i < len(batch); i += eventBridgeBatchSize {
		end := i + eventBridgeBatchSize
		if end > len(batch) {
			end = len(batch)
		}
		if err := p.putEvents(ctx, batch[i:end]); err != nil {
			return err
		}
	}

	return nil
}

func (p *EventBridgePublisher) putEvents(ctx context.Context, batch []events.DomainEvent) error {
	entries := make([]types.PutEventsRequestEntry, 0, len(batch))
	included := make([]events.DomainEvent, 0, len(batch))

	for _, event := range batch {
		detail, err := json.Marshal(event)
		if err != nil {
			p.logger.Error("Failed to marshal event",
				zap.Error(err),
				zap.String("eventType", event.GetEventType()))
			continue
		}

		entries = append(entries, types.PutEventsRequestEntry{
			EventBusName: aws.String(p.eventBusName),
			Source:       aws.String(events.Source),
			DetailType:   aws.String(event.GetEventType()),
			Detail:       aws.String(string(detail)),
			Time:         aws.Time(event.GetTimestamp()),
			Resources: []string{
				fmt.Sprintf("arn:aws:dooz-pm::%s", event.GetAggregateID()),
			},
		})
		included = append(included, event)
	}

	if len(entries) == 0 {
		return nil
	}

	result, err := p.client.PutEvents(ctx, &eventbridge.PutEventsInput{Entries: entries})
	if err != nil {
		return fmt.Errorf("failed to publish events to EventBridge: %w", err)
	}

	if result.FailedEntryCount > 0 {
		for i, entry := range result.Entries {
			if entry.ErrorCode != nil {
				p.logger.Error("Failed to publish event",
					zap.String("eventType", included[i].GetEventType()),
					zap.String("errorCode", aws.ToString(entry.ErrorCode)),
					zap.String("errorMessage", aws.ToString(entry.ErrorMessage)))
			}
		}
		return fmt.Errorf("%d events failed to publish", result.FailedEntryCount)
	}

	p.logger.Debug("Events published to EventBridge",
		zap.Int("count", len(entries)),
		zap.String("eventBus", p.eventBusName))

	return nil
}
