package messaging

import (
	"context"

	"github.com/DoozHub/dooz-pm-suite/application/ports"
	"github.com/DoozHub/dooz-pm-suite/domain/events"
	"github.com/DoozHub/dooz-pm-suite/infrastructure/observability"
)

// InstrumentedPublisher decorates another publisher with domain metrics.
// Counting at the publishing seam means every state change is counted
// exactly where it is announced, without threading a collector through the
// services.
type InstrumentedPublisher struct {
	next    ports.EventPublisher
	metrics *observability.Collector
}

var _ ports.EventPublisher = (*InstrumentedPublisher)(nil)

// NewInstrumentedPublisher wraps next with metric counting.
func NewInstrumentedPublisher(next ports.EventPublisher, metrics *observability.Collector) *InstrumentedPublisher {
	return &InstrumentedPublisher{
		next:    next,
		metrics: metrics,
	}
}

// Publish counts the event and forwards it.
func (p *InstrumentedPublisher) Publish(ctx context.Context, event events.DomainEvent) error {
	p.record(event)
	return p.next.Publish(ctx, event)
}

// PublishBatch counts every event in the batch and forwards it.
func (p *InstrumentedPublisher) PublishBatch(ctx context.Context, batch []events.DomainEvent) error {
	for _, event := range batch {
		p.record(event)
	}
	return p.next.PublishBatch(ctx, batch)
}

func (p *InstrumentedPublisher) record(event events.DomainEvent) {
	switch e := event.(type) {
	case events.IntentTransitioned:
		p.metrics.IntentTransitions.WithLabelValues(e.FromState, e.ToState).Inc()
	case events.DecisionCommitted:
		p.metrics.DecisionsCommitted.Inc()
	case events.DecisionSuperseded:
		p.metrics.DecisionsSuperseded.Inc()
	case events.ProposalSubmitted:
		p.metrics.ProposalsSubmitted.WithLabelValues(e.ProposalType).Inc()
	case events.ProposalReviewed:
		p.metrics.ProposalsReviewed.WithLabelValues(e.Outcome).Inc()
	}
}
