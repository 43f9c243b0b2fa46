// Package ports defines the interfaces the application layer depends on.
// Infrastructure implements them; services only see these contracts.
package ports

import (
	"context"

	"github.com/DoozHub/dooz-pm-suite/domain/core/entities"
)

// IntentRepository persists intents. Update takes the version the caller
// read so concurrent writers collide instead of overwriting each other;
// a mismatch surfaces as a Conflict error.
type IntentRepository interface {
	Save(ctx context.Context, intent *entities.Intent) error
	GetByID(ctx context.Context, tenantID, intentID string) (*entities.Intent, error)
	ListByTenant(ctx context.Context, tenantID string) ([]*entities.Intent, error)
	ListByState(ctx context.Context, tenantID string, state entities.IntentState) ([]*entities.Intent, error)
	Update(ctx context.Context, intent *entities.Intent, expectedVersion int) error
}

// DecisionRepository persists the append-only decision ledger. List results
// are chronological by decision timestamp; callers derive the
// reverse-chronological views. Supersede writes the status flip and the
// replacement as one atomic unit, re-validating at write time that the
// original is still active.
type DecisionRepository interface {
	Save(ctx context.Context, decision *entities.Decision) error
	GetByID(ctx context.Context, tenantID, decisionID string) (*entities.Decision, error)
	ListByIntent(ctx context.Context, tenantID, intentID string) ([]*entities.Decision, error)
	ListActiveByIntent(ctx context.Context, tenantID, intentID string) ([]*entities.Decision, error)
	Supersede(ctx context.Context, original, replacement *entities.Decision) error
}

// AssumptionRepository persists assumptions. Update is conditional on the
// expected current status so the single status flip cannot race.
type AssumptionRepository interface {
	Save(ctx context.Context, assumption *entities.Assumption) error
	GetByID(ctx context.Context, tenantID, assumptionID string) (*entities.Assumption, error)
	ListByIntent(ctx context.Context, tenantID, intentID string) ([]*entities.Assumption, error)
	Update(ctx context.Context, assumption *entities.Assumption, expectedStatus entities.AssumptionStatus) error
}

// RiskRepository persists risks.
type RiskRepository interface {
	Save(ctx context.Context, risk *entities.Risk) error
	GetByID(ctx context.Context, tenantID, riskID string) (*entities.Risk, error)
	ListByIntent(ctx context.Context, tenantID, intentID string) ([]*entities.Risk, error)
	Update(ctx context.Context, risk *entities.Risk, expectedStatus entities.RiskStatus) error
}

// TaskRepository persists tasks.
type TaskRepository interface {
	Save(ctx context.Context, task *entities.Task) error
	GetByID(ctx context.Context, tenantID, taskID string) (*entities.Task, error)
	ListByIntent(ctx context.Context, tenantID, intentID string) ([]*entities.Task, error)
	Update(ctx context.Context, task *entities.Task, expectedStatus entities.TaskStatus) error
}

// EdgeRepository persists graph edges. Endpoints are opaque references;
// the repository never checks them against other stores.
type EdgeRepository interface {
	Save(ctx context.Context, edge *entities.Edge) error
	GetByID(ctx context.Context, tenantID, edgeID string) (*entities.Edge, error)
	GetBySource(ctx context.Context, tenantID, nodeID string) ([]*entities.Edge, error)
	GetByTarget(ctx context.Context, tenantID, nodeID string) ([]*entities.Edge, error)
	ListByType(ctx context.Context, tenantID string, edgeType entities.EdgeType) ([]*entities.Edge, error)
	ListByTenant(ctx context.Context, tenantID string) ([]*entities.Edge, error)
	Delete(ctx context.Context, tenantID, edgeID string) error
	DeleteByNode(ctx context.Context, tenantID, nodeID string) (int, error)
}

// ProposalFilter narrows proposal listings.
type ProposalFilter struct {
	Status   entities.ProposalStatus // empty means all statuses
	IntentID string                  // empty means all intents
}

// ProposalRepository persists AI proposals. Update is conditional on the
// proposal still being pending, making review single-shot at the storage
// layer as well as in the domain.
type ProposalRepository interface {
	Save(ctx context.Context, proposal *entities.Proposal) error
	GetByID(ctx context.Context, tenantID, proposalID string) (*entities.Proposal, error)
	List(ctx context.Context, tenantID string, filter ProposalFilter) ([]*entities.Proposal, error)
	Update(ctx context.Context, proposal *entities.Proposal, expectedStatus entities.ProposalStatus) error
}
