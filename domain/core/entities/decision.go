package entities

import (
	"time"

	"github.com/google/uuid"

	"github.com/DoozHub/dooz-pm-suite/pkg/errors"
)

// DecisionStatus is the ledger status of a decision.
type DecisionStatus string

const (
	DecisionStatusActive     DecisionStatus = "active"
	DecisionStatusSuperseded DecisionStatus = "superseded"
)

// SupersedesMarker is the synthetic AI-input reference appended to a
// replacement decision, linking it back to the record it supersedes.
func SupersedesMarker(originalID string) string {
	return "supersedes:" + originalID
}

// DecisionDraft is the caller-supplied content of a decision before the
// ledger stamps identity, approver and timestamp onto it.
type DecisionDraft struct {
	DecisionStatement  string
	OptionsConsidered  []string
	FinalChoice        string
	AIInputsReferenced []string
	RevisitCondition   string
}

// Decision is one entry in the append-only decision ledger. Every field
// except status is immutable once committed; there is no update operation.
// The only status flip is active -> superseded, performed by the ledger
// when a replacement is committed.
type Decision struct {
	id                 string
	tenantID           string
	intentID           string
	decisionStatement  string
	optionsConsidered  []string
	finalChoice        string
	humanApprover      string
	aiInputsReferenced []string
	decisionTimestamp  time.Time
	revisitCondition   string
	status             DecisionStatus
}

// NewDecision commits a draft: generates the id, stamps the approver and
// timestamp, and starts the record as active.
func NewDecision(tenantID, intentID, humanApprover string, draft DecisionDraft) (*Decision, error) {
	if tenantID == "" {
		return nil, errors.NewValidationError("tenant id is required")
	}
	if intentID == "" {
		return nil, errors.NewValidationError("intent id is required")
	}
	if humanApprover == "" {
		return nil, errors.NewValidationError("human approver is required")
	}
	if draft.DecisionStatement == "" {
		return nil, errors.NewValidationError("decision statement is required")
	}
	if draft.FinalChoice == "" {
		return nil, errors.NewValidationError("final choice is required")
	}

	return &Decision{
		id:                 uuid.New().String(),
		tenantID:           tenantID,
		intentID:           intentID,
		decisionStatement:  draft.DecisionStatement,
		optionsConsidered:  copyStrings(draft.OptionsConsidered),
		finalChoice:        draft.FinalChoice,
		humanApprover:      humanApprover,
		aiInputsReferenced: copyStrings(draft.AIInputsReferenced),
		decisionTimestamp:  time.Now().UTC(),
		revisitCondition:   draft.RevisitCondition,
		status:             DecisionStatusActive,
	}, nil
}

// ReconstructDecision rebuilds a decision from persistence.
func ReconstructDecision(
	id, tenantID, intentID, statement string,
	optionsConsidered []string,
	finalChoice, humanApprover string,
	aiInputsReferenced []string,
	decisionTimestamp time.Time,
	revisitCondition string,
	status DecisionStatus,
) *Decision {
	return &Decision{
		id:                 id,
		tenantID:           tenantID,
		intentID:           intentID,
		decisionStatement:  statement,
		optionsConsidered:  copyStrings(optionsConsidered),
		finalChoice:        finalChoice,
		humanApprover:      humanApprover,
		aiInputsReferenced: copyStrings(aiInputsReferenced),
		decisionTimestamp:  decisionTimestamp,
		revisitCondition:   revisitCondition,
		status:             status,
	}
}

func (d *Decision) ID() string                   { return d.id }
func (d *Decision) TenantID() string             { return d.tenantID }
func (d *Decision) IntentID() string             { return d.intentID }
func (d *Decision) DecisionStatement() string    { return d.decisionStatement }
func (d *Decision) FinalChoice() string          { return d.finalChoice }
func (d *Decision) HumanApprover() string        { return d.humanApprover }
func (d *Decision) DecisionTimestamp() time.Time { return d.decisionTimestamp }
func (d *Decision) RevisitCondition() string     { return d.revisitCondition }
func (d *Decision) Status() DecisionStatus       { return d.status }

// OptionsConsidered returns the considered options in their original order.
func (d *Decision) OptionsConsidered() []string {
	return copyStrings(d.optionsConsidered)
}

// AIInputsReferenced returns the AI input references, including any
// synthetic supersedes marker.
func (d *Decision) AIInputsReferenced() []string {
	return copyStrings(d.aiInputsReferenced)
}

// IsActive reports whether the decision is the current word on its subject.
func (d *Decision) IsActive() bool {
	return d.status == DecisionStatusActive
}

// MarkSuperseded flips an active decision to superseded. Superseded is
// terminal, so a second flip fails.
func (d *Decision) MarkSuperseded() error {
	if d.status != DecisionStatusActive {
		return errors.NewAlreadySupersededError(d.id)
	}
	d.status = DecisionStatusSuperseded
	return nil
}

func copyStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
