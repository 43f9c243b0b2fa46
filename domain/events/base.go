package events

import (
	"time"
)

// Source identifies this service on every published event.
const Source = "dooz-pm-suite"

// DomainEvent is the base interface for all domain events. Events record
// something that already happened; publication is always fire-and-forget
// and never blocks or fails the operation that produced the event.
type DomainEvent interface {
	GetAggregateID() string
	GetTenantID() string
	GetEventType() string
	GetTimestamp() time.Time
	GetVersion() int
}

// BaseEvent provides common event fields
type BaseEvent struct {
	AggregateID string    `json:"aggregate_id"`
	TenantID    string    `json:"tenant_id"`
	EventType   string    `json:"event_type"`
	Timestamp   time.Time `json:"timestamp"`
	Version     int       `json:"version"`
}

func (e BaseEvent) GetAggregateID() string  { return e.AggregateID }
func (e BaseEvent) GetTenantID() string     { return e.TenantID }
func (e BaseEvent) GetEventType() string    { return e.EventType }
func (e BaseEvent) GetTimestamp() time.Time { return e.Timestamp }
func (e BaseEvent) GetVersion() int         { return e.Version }

func newBase(aggregateID, tenantID, eventType string, at time.Time) BaseEvent {
	return BaseEvent{
		AggregateID: aggregateID,
		TenantID:    tenantID,
		EventType:   eventType,
		Timestamp:   at.UTC(),
		Version:     1,
	}
}

// Intent events

// IntentCreated is raised when a new intent enters the research state.
type IntentCreated struct {
	BaseEvent
	IntentID  string `json:"intent_id"`
	Title     string `json:"title"`
	CreatedBy string `json:"created_by"`
}

// NewIntentCreated creates an IntentCreated event
func NewIntentCreated(intentID, tenantID, title, createdBy string, at time.Time) IntentCreated {
	return IntentCreated{
		BaseEvent: newBase(intentID, tenantID, "intent.created", at),
		IntentID:  intentID,
		Title:     title,
		CreatedBy: createdBy,
	}
}

// IntentTransitioned is raised when an intent moves between lifecycle states.
type IntentTransitioned struct {
	BaseEvent
	IntentID       string `json:"intent_id"`
	FromState      string `json:"from_state"`
	ToState        string `json:"to_state"`
	TransitionedBy string `json:"transitioned_by"`
}

// NewIntentTransitioned creates an IntentTransitioned event
func NewIntentTransitioned(intentID, tenantID, fromState, toState, userID string, at time.Time) IntentTransitioned {
	return IntentTransitioned{
		BaseEvent:      newBase(intentID, tenantID, "intent.transitioned", at),
		IntentID:       intentID,
		FromState:      fromState,
		ToState:        toState,
		TransitionedBy: userID,
	}
}

// Decision events

// DecisionCommitted is raised when a decision lands in the ledger.
type DecisionCommitted struct {
	BaseEvent
	DecisionID    string `json:"decision_id"`
	IntentID      string `json:"intent_id"`
	FinalChoice   string `json:"final_choice"`
	HumanApprover string `json:"human_approver"`
}

// NewDecisionCommitted creates a DecisionCommitted event
func NewDecisionCommitted(decisionID, tenantID, intentID, finalChoice, approver string, at time.Time) DecisionCommitted {
	return DecisionCommitted{
		BaseEvent:     newBase(decisionID, tenantID, "decision.committed", at),
		DecisionID:    decisionID,
		IntentID:      intentID,
		FinalChoice:   finalChoice,
		HumanApprover: approver,
	}
}

// DecisionSuperseded is raised when a replacement decision retires an
// active one.
type DecisionSuperseded struct {
	BaseEvent
	OriginalID    string `json:"original_id"`
	ReplacementID string `json:"replacement_id"`
	IntentID      string `json:"intent_id"`
	SupersededBy  string `json:"superseded_by"`
}

// NewDecisionSuperseded creates a DecisionSuperseded event
func NewDecisionSuperseded(originalID, replacementID, tenantID, intentID, userID string, at time.Time) DecisionSuperseded {
	return DecisionSuperseded{
		BaseEvent:     newBase(originalID, tenantID, "decision.superseded", at),
		OriginalID:    originalID,
		ReplacementID: replacementID,
		IntentID:      intentID,
		SupersededBy:  userID,
	}
}

// Proposal events

// ProposalSubmitted is raised when a new AI proposal enters the review queue.
type ProposalSubmitted struct {
	BaseEvent
	ProposalID   string `json:"proposal_id"`
	IntentID     string `json:"intent_id,omitempty"`
	ProposalType string `json:"proposal_type"`
	ModelUsed    string `json:"model_used,omitempty"`
}

// NewProposalSubmitted creates a ProposalSubmitted event
func NewProposalSubmitted(proposalID, tenantID, intentID, proposalType, modelUsed string, at time.Time) ProposalSubmitted {
	return ProposalSubmitted{
		BaseEvent:    newBase(proposalID, tenantID, "proposal.submitted", at),
		ProposalID:   proposalID,
		IntentID:     intentID,
		ProposalType: proposalType,
		ModelUsed:    modelUsed,
	}
}

// ProposalReviewed is raised when a human resolves a pending proposal.
type ProposalReviewed struct {
	BaseEvent
	ProposalID     string `json:"proposal_id"`
	IntentID       string `json:"intent_id,omitempty"`
	Outcome        string `json:"outcome"`
	ReviewedBy     string `json:"reviewed_by"`
	MaterializedID string `json:"materialized_id,omitempty"`
}

// NewProposalReviewed creates a ProposalReviewed event
func NewProposalReviewed(proposalID, tenantID, intentID, outcome, reviewedBy, materializedID string, at time.Time) ProposalReviewed {
	return ProposalReviewed{
		BaseEvent:      newBase(proposalID, tenantID, "proposal.reviewed", at),
		ProposalID:     proposalID,
		IntentID:       intentID,
		Outcome:        outcome,
		ReviewedBy:     reviewedBy,
		MaterializedID: materializedID,
	}
}
