package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoozHub/dooz-pm-suite/domain/core/entities"
	"github.com/DoozHub/dooz-pm-suite/pkg/errors"
)

const meetingNotes = "We agreed to use Postgres. We assume traffic stays under 1k rps. The vendor might miss the deadline."

func TestExtractionService_Extract_EnqueuesPendingProposals(t *testing.T) {
	// Arrange: the provider answers with a fenced JSON array
	env := newTestEnv(t)
	intent := createTestIntent(t, env)
	env.ai.completion = "```json\n" + `[
		{"type": "decision", "statement": "Use Postgres for persistence", "confidence": 0.9, "context": "We agreed to use Postgres."},
		{"type": "assumption", "statement": "Traffic stays under 1k rps", "confidence": 0.7},
		{"type": "risk", "statement": "Vendor misses the deadline", "confidence": 0.6},
		{"type": "question", "statement": "Which region hosts the replica?", "confidence": 0.5}
	]` + "\n```"

	// Act
	proposals, err := env.extractionSvc.Extract(context.Background(), testTenant, intent.ID(), meetingNotes)

	// Assert
	require.NoError(t, err)
	require.Len(t, proposals, 4)
	for _, p := range proposals {
		assert.Equal(t, entities.ProposalStatusPending, p.Status())
		assert.Equal(t, intent.ID(), p.IntentID())
		assert.Equal(t, "test-model", p.ModelUsed())
		assert.Equal(t, "extract-proposals/v1", p.PromptTemplateID())
		require.NotNil(t, p.Confidence())
	}
	assert.Equal(t, entities.ProposalTypeDecision, proposals[0].ProposalType())

	// The statement with context round-trips through the stored payload.
	payload := parsePayload(proposals[0].Content())
	assert.Equal(t, "Use Postgres for persistence", payload.Statement)
	assert.Equal(t, "We agreed to use Postgres.", payload.Context)

	// Nothing was materialized: extraction only suggests.
	ledger, err := env.decisionSvc.GetLedger(context.Background(), testTenant, intent.ID())
	require.NoError(t, err)
	assert.Empty(t, ledger)
}

func TestExtractionService_Extract_DropsMalformedItems(t *testing.T) {
	// Arrange: one good item among an unknown type, a missing confidence
	// and an out-of-range confidence
	env := newTestEnv(t)
	env.ai.completion = `[
		{"type": "decision", "statement": "Keep the monolith for now", "confidence": 0.8},
		{"type": "milestone", "statement": "Ship by June", "confidence": 0.9},
		{"type": "risk", "statement": "No confidence given"},
		{"type": "assumption", "statement": "Confidence out of range", "confidence": 3.5}
	]`

	// Act
	proposals, err := env.extractionSvc.Extract(context.Background(), testTenant, "", meetingNotes)

	// Assert
	require.NoError(t, err)
	require.Len(t, proposals, 1)
	assert.Equal(t, entities.ProposalTypeDecision, proposals[0].ProposalType())
	assert.Equal(t, "Keep the monolith for now", proposals[0].Content())
}

func TestExtractionService_Extract_AcceptsWrapperObject(t *testing.T) {
	// Arrange: some models wrap the array despite instructions
	env := newTestEnv(t)
	env.ai.completion = `{"proposals": [{"type": "question", "statement": "Who signs off?", "confidence": 0.4}]}`

	// Act
	proposals, err := env.extractionSvc.Extract(context.Background(), testTenant, "", meetingNotes)

	// Assert
	require.NoError(t, err)
	assert.Len(t, proposals, 1)
}

func TestExtractionService_Extract_ProviderUnavailable(t *testing.T) {
	// Arrange
	env := newTestEnv(t)
	env.ai.available = false

	// Act
	_, err := env.extractionSvc.Extract(context.Background(), testTenant, "", meetingNotes)

	// Assert
	assert.True(t, errors.IsUnavailable(err))
}

func TestExtractionService_Extract_UnparseableResponse(t *testing.T) {
	// Arrange
	env := newTestEnv(t)
	env.ai.completion = "I could not find anything interesting in this text."

	// Act
	_, err := env.extractionSvc.Extract(context.Background(), testTenant, "", meetingNotes)

	// Assert
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeExternal))
}

func TestExtractionService_Extract_EmptyText(t *testing.T) {
	// Arrange
	env := newTestEnv(t)

	// Act
	_, err := env.extractionSvc.Extract(context.Background(), testTenant, "", "   ")

	// Assert
	assert.True(t, errors.IsValidation(err))
}

func TestParseExtractionResponse_FenceVariants(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want int
	}{
		{"bare array", `[{"type":"risk","statement":"x","confidence":0.5}]`, 1},
		{"json fence", "```json\n[{\"type\":\"risk\",\"statement\":\"x\",\"confidence\":0.5}]\n```", 1},
		{"plain fence", "```\n[{\"type\":\"risk\",\"statement\":\"x\",\"confidence\":0.5}]\n```", 1},
		{"empty array", `[]`, 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			items, err := parseExtractionResponse(tc.raw)
			require.NoError(t, err)
			assert.Len(t, items, tc.want)
		})
	}
}
