package ports

import (
	"context"

	"github.com/DoozHub/dooz-pm-suite/domain/events"
)

// EventPublisher delivers domain events to the configured sink. Delivery is
// at-most-once from the caller's point of view: services invoke it on a
// detached goroutine and log failures instead of surfacing them, so a dead
// sink can never fail a write that already persisted.
type EventPublisher interface {
	Publish(ctx context.Context, event events.DomainEvent) error
	PublishBatch(ctx context.Context, batch []events.DomainEvent) error
}
