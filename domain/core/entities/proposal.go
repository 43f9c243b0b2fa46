package entities

import (
	"time"

	"github.com/google/uuid"

	"github.com/DoozHub/dooz-pm-suite/pkg/errors"
)

// ProposalType is the kind of record an AI proposal suggests creating.
type ProposalType string

const (
	ProposalTypeDecision   ProposalType = "decision"
	ProposalTypeAssumption ProposalType = "assumption"
	ProposalTypeRisk       ProposalType = "risk"
	ProposalTypeQuestion   ProposalType = "question"
)

func (t ProposalType) IsValid() bool {
	switch t {
	case ProposalTypeDecision, ProposalTypeAssumption, ProposalTypeRisk, ProposalTypeQuestion:
		return true
	}
	return false
}

// ProposalStatus is the review status of a proposal. Everything except
// pending is terminal.
type ProposalStatus string

const (
	ProposalStatusPending  ProposalStatus = "pending"
	ProposalStatusAccepted ProposalStatus = "accepted"
	ProposalStatusRejected ProposalStatus = "rejected"
	ProposalStatusParked   ProposalStatus = "parked"
)

// IsTerminal reports whether the status ends the review lifecycle.
func (s ProposalStatus) IsTerminal() bool {
	switch s {
	case ProposalStatusAccepted, ProposalStatusRejected, ProposalStatusParked:
		return true
	}
	return false
}

// Proposal is an AI-suggested record waiting for human review. Nothing a
// proposal says is real until a human accepts it; review happens exactly
// once and a second attempt is a hard failure, never a silent no-op.
type Proposal struct {
	id               string
	tenantID         string
	intentID         string // empty when the proposal precedes any intent
	proposalType     ProposalType
	content          string
	promptTemplateID string
	modelUsed        string
	confidence       *float64
	status           ProposalStatus
	reviewedBy       string
	reviewedAt       *time.Time
	createdAt        time.Time
}

// NewProposal creates a pending proposal. The content is stored verbatim;
// it is only interpreted if the proposal is later accepted.
func NewProposal(tenantID, intentID string, proposalType ProposalType, content, promptTemplateID, modelUsed string, confidence *float64) (*Proposal, error) {
	if tenantID == "" {
		return nil, errors.NewValidationError("tenant id is required")
	}
	if !proposalType.IsValid() {
		return nil, errors.NewValidationError("unknown proposal type: " + string(proposalType))
	}
	if content == "" {
		return nil, errors.NewValidationError("proposal content is required")
	}
	if confidence != nil && (*confidence < 0 || *confidence > 1) {
		return nil, errors.NewValidationError("confidence must be between 0 and 1")
	}

	return &Proposal{
		id:               uuid.New().String(),
		tenantID:         tenantID,
		intentID:         intentID,
		proposalType:     proposalType,
		content:          content,
		promptTemplateID: promptTemplateID,
		modelUsed:        modelUsed,
		confidence:       confidence,
		status:           ProposalStatusPending,
		createdAt:        time.Now().UTC(),
	}, nil
}

// ReconstructProposal rebuilds a proposal from persistence.
func ReconstructProposal(
	id, tenantID, intentID string,
	proposalType ProposalType,
	content, promptTemplateID, modelUsed string,
	confidence *float64,
	status ProposalStatus,
	reviewedBy string,
	reviewedAt *time.Time,
	createdAt time.Time,
) *Proposal {
	return &Proposal{
		id:               id,
		tenantID:         tenantID,
		intentID:         intentID,
		proposalType:     proposalType,
		content:          content,
		promptTemplateID: promptTemplateID,
		modelUsed:        modelUsed,
		confidence:       confidence,
		status:           status,
		reviewedBy:       reviewedBy,
		reviewedAt:       reviewedAt,
		createdAt:        createdAt,
	}
}

func (p *Proposal) ID() string                 { return p.id }
func (p *Proposal) TenantID() string           { return p.tenantID }
func (p *Proposal) IntentID() string           { return p.intentID }
func (p *Proposal) ProposalType() ProposalType { return p.proposalType }
func (p *Proposal) Content() string            { return p.content }
func (p *Proposal) PromptTemplateID() string   { return p.promptTemplateID }
func (p *Proposal) ModelUsed() string          { return p.modelUsed }
func (p *Proposal) Confidence() *float64       { return p.confidence }
func (p *Proposal) Status() ProposalStatus     { return p.status }
func (p *Proposal) ReviewedBy() string         { return p.reviewedBy }
func (p *Proposal) CreatedAt() time.Time       { return p.createdAt }

// ReviewedAt returns when the proposal was reviewed, nil while pending.
func (p *Proposal) ReviewedAt() *time.Time {
	if p.reviewedAt == nil {
		return nil
	}
	t := *p.reviewedAt
	return &t
}

// Review moves a pending proposal to its terminal status and records who
// reviewed it and when. Reviewing anything but a pending proposal fails
// with the current status named.
func (p *Proposal) Review(target ProposalStatus, reviewedBy string, now time.Time) error {
	if !target.IsTerminal() {
		return errors.NewValidationError("review must resolve to accepted, rejected or parked")
	}
	if reviewedBy == "" {
		return errors.NewValidationError("reviewer is required")
	}
	if p.status != ProposalStatusPending {
		return errors.NewAlreadyReviewedError(p.id, string(p.status))
	}

	now = now.UTC()
	p.status = target
	p.reviewedBy = reviewedBy
	p.reviewedAt = &now
	return nil
}
