package messaging

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/DoozHub/dooz-pm-suite/domain/events"
)

func TestSubjectFor(t *testing.T) {
	event := events.NewIntentTransitioned("int-1", "ten-1", "research", "planning", "user-1", time.Now())

	assert.Equal(t, "pm.events.intent.transitioned", subjectFor(defaultSubjectPrefix, event))
	assert.Equal(t, "staging.intent.transitioned", subjectFor("staging", event))
}

func TestNoopPublisher(t *testing.T) {
	p := NewNoopPublisher(zap.NewNop())
	event := events.NewIntentCreated("int-1", "ten-1", "Migrate billing", "user-1", time.Now())

	require.NoError(t, p.Publish(context.Background(), event))
	require.NoError(t, p.PublishBatch(context.Background(), []events.DomainEvent{event, event}))
}
