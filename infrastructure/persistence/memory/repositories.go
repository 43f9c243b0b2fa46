// Package memory provides map-backed repository implementations. They are
// the storage driver for local development and the substrate service tests
// run against; semantics (tenant scoping, conditional updates, ordering)
// match the DynamoDB implementations.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/DoozHub/dooz-pm-suite/application/ports"
	"github.com/DoozHub/dooz-pm-suite/domain/core/entities"
	"github.com/DoozHub/dooz-pm-suite/pkg/errors"
)

// IntentRepository is the in-memory ports.IntentRepository.
type IntentRepository struct {
	mu      sync.RWMutex
	intents map[string]*entities.Intent // id -> intent
}

var _ ports.IntentRepository = (*IntentRepository)(nil)

// NewIntentRepository creates an empty in-memory intent repository.
func NewIntentRepository() *IntentRepository {
	return &IntentRepository{intents: make(map[string]*entities.Intent)}
}

func cloneIntent(i *entities.Intent) *entities.Intent {
	return entities.ReconstructIntent(
		i.ID(), i.TenantID(), i.Title(), i.Description(),
		i.CurrentState(), i.CreatedBy(), i.CreatedAt(),
		i.LastHumanReviewedAt(), i.ConfidenceLevel(), i.VisibilityScope(), i.Version(),
	)
}

func (r *IntentRepository) Save(ctx context.Context, intent *entities.Intent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.intents[intent.ID()] = cloneIntent(intent)
	return nil
}

func (r *IntentRepository) GetByID(ctx context.Context, tenantID, intentID string) (*entities.Intent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	intent, ok := r.intents[intentID]
	if !ok || intent.TenantID() != tenantID {
		return nil, errors.NewNotFoundError("intent", intentID)
	}
	return cloneIntent(intent), nil
}

func (r *IntentRepository) ListByTenant(ctx context.Context, tenantID string) ([]*entities.Intent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*entities.Intent, 0)
	for _, intent := range r.intents {
		if intent.TenantID() == tenantID {
			out = append(out, cloneIntent(intent))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt().Before(out[j].CreatedAt()) })
	return out, nil
}

func (r *IntentRepository) ListByState(ctx context.Context, tenantID string, state entities.IntentState) ([]*entities.Intent, error) {
	all, err := r.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	out := make([]*entities.Intent, 0, len(all))
	for _, intent := range all {
		if intent.CurrentState() == state {
			out = append(out, intent)
		}
	}
	return out, nil
}

func (r *IntentRepository) Update(ctx context.Context, intent *entities.Intent, expectedVersion int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.intents[intent.ID()]
	if !ok || current.TenantID() != intent.TenantID() {
		return errors.NewNotFoundError("intent", intent.ID())
	}
	if current.Version() != expectedVersion {
		return errors.NewConflictError("intent was modified concurrently")
	}
	r.intents[intent.ID()] = cloneIntent(intent)
	return nil
}

// DecisionRepository is the in-memory ports.DecisionRepository.
type DecisionRepository struct {
	mu        sync.Mutex
	decisions map[string]*entities.Decision // id -> decision
}

var _ ports.DecisionRepository = (*DecisionRepository)(nil)

// NewDecisionRepository creates an empty in-memory decision repository.
func NewDecisionRepository() *DecisionRepository {
	return &DecisionRepository{decisions: make(map[string]*entities.Decision)}
}

func cloneDecision(d *entities.Decision) *entities.Decision {
	return entities.ReconstructDecision(
		d.ID(), d.TenantID(), d.IntentID(), d.DecisionStatement(),
		d.OptionsConsidered(), d.FinalChoice(), d.HumanApprover(),
		d.AIInputsReferenced(), d.DecisionTimestamp(), d.RevisitCondition(), d.Status(),
	)
}

func (r *DecisionRepository) Save(ctx context.Context, decision *entities.Decision) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.decisions[decision.ID()] = cloneDecision(decision)
	return nil
}

func (r *DecisionRepository) GetByID(ctx context.Context, tenantID, decisionID string) (*entities.Decision, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	decision, ok := r.decisions[decisionID]
	if !ok || decision.TenantID() != tenantID {
		return nil, errors.NewNotFoundError("decision", decisionID)
	}
	return cloneDecision(decision), nil
}

func (r *DecisionRepository) ListByIntent(ctx context.Context, tenantID, intentID string) ([]*entities.Decision, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*entities.Decision, 0)
	for _, decision := range r.decisions {
		if decision.TenantID() == tenantID && decision.IntentID() == intentID {
			out = append(out, cloneDecision(decision))
		}
	}
	sortDecisionsChronological(out)
	return out, nil
}

func (r *DecisionRepository) ListActiveByIntent(ctx context.Context, tenantID, intentID string) ([]*entities.Decision, error) {
	all, err := r.ListByIntent(ctx, tenantID, intentID)
	if err != nil {
		return nil, err
	}
	out := make([]*entities.Decision, 0, len(all))
	for _, decision := range all {
		if decision.IsActive() {
			out = append(out, decision)
		}
	}
	return out, nil
}

// Supersede mirrors the transactional write: the original must still be
// active at write time or the whole operation fails and nothing changes.
func (r *DecisionRepository) Supersede(ctx context.Context, original, replacement *entities.Decision) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.decisions[original.ID()]
	if !ok || stored.TenantID() != original.TenantID() {
		return errors.NewNotFoundError("decision", original.ID())
	}
	if !stored.IsActive() {
		return errors.NewConflictError("decision is no longer active")
	}
	r.decisions[original.ID()] = cloneDecision(original)
	r.decisions[replacement.ID()] = cloneDecision(replacement)
	return nil
}

func sortDecisionsChronological(decisions []*entities.Decision) {
	sort.SliceStable(decisions, func(i, j int) bool {
		return decisions[i].DecisionTimestamp().Before(decisions[j].DecisionTimestamp())
	})
}

// AssumptionRepository is the in-memory ports.AssumptionRepository.
type AssumptionRepository struct {
	mu          sync.Mutex
	assumptions map[string]*entities.Assumption
}

var _ ports.AssumptionRepository = (*AssumptionRepository)(nil)

// NewAssumptionRepository creates an empty in-memory assumption repository.
func NewAssumptionRepository() *AssumptionRepository {
	return &AssumptionRepository{assumptions: make(map[string]*entities.Assumption)}
}

func cloneAssumption(a *entities.Assumption) *entities.Assumption {
	return entities.ReconstructAssumption(
		a.ID(), a.TenantID(), a.IntentID(), a.Statement(),
		a.ConfidenceLevel(), a.CreatedFrom(), a.CreatedAt(), a.ExpiryHint(), a.Status(),
	)
}

func (r *AssumptionRepository) Save(ctx context.Context, assumption *entities.Assumption) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.assumptions[assumption.ID()] = cloneAssumption(assumption)
	return nil
}

func (r *AssumptionRepository) GetByID(ctx context.Context, tenantID, assumptionID string) (*entities.Assumption, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	assumption, ok := r.assumptions[assumptionID]
	if !ok || assumption.TenantID() != tenantID {
		return nil, errors.NewNotFoundError("assumption", assumptionID)
	}
	return cloneAssumption(assumption), nil
}

func (r *AssumptionRepository) ListByIntent(ctx context.Context, tenantID, intentID string) ([]*entities.Assumption, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*entities.Assumption, 0)
	for _, assumption := range r.assumptions {
		if assumption.TenantID() == tenantID && assumption.IntentID() == intentID {
			out = append(out, cloneAssumption(assumption))
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt().Before(out[j].CreatedAt()) })
	return out, nil
}

func (r *AssumptionRepository) Update(ctx context.Context, assumption *entities.Assumption, expectedStatus entities.AssumptionStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.assumptions[assumption.ID()]
	if !ok || current.TenantID() != assumption.TenantID() {
		return errors.NewNotFoundError("assumption", assumption.ID())
	}
	if current.Status() != expectedStatus {
		return errors.NewConflictError("assumption status changed concurrently")
	}
	r.assumptions[assumption.ID()] = cloneAssumption(assumption)
	return nil
}

// RiskRepository is the in-memory ports.RiskRepository.
type RiskRepository struct {
	mu    sync.Mutex
	risks map[string]*entities.Risk
}

var _ ports.RiskRepository = (*RiskRepository)(nil)

// NewRiskRepository creates an empty in-memory risk repository.
func NewRiskRepository() *RiskRepository {
	return &RiskRepository{risks: make(map[string]*entities.Risk)}
}

func cloneRisk(r *entities.Risk) *entities.Risk {
	return entities.ReconstructRisk(
		r.ID(), r.TenantID(), r.IntentID(), r.Statement(),
		r.Severity(), r.Likelihood(), r.CreatedFrom(), r.MitigationNotes(),
		r.CreatedAt(), r.Status(),
	)
}

func (r *RiskRepository) Save(ctx context.Context, risk *entities.Risk) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.risks[risk.ID()] = cloneRisk(risk)
	return nil
}

func (r *RiskRepository) GetByID(ctx context.Context, tenantID, riskID string) (*entities.Risk, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	risk, ok := r.risks[riskID]
	if !ok || risk.TenantID() != tenantID {
		return nil, errors.NewNotFoundError("risk", riskID)
	}
	return cloneRisk(risk), nil
}

func (r *RiskRepository) ListByIntent(ctx context.Context, tenantID, intentID string) ([]*entities.Risk, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*entities.Risk, 0)
	for _, risk := range r.risks {
		if risk.TenantID() == tenantID && risk.IntentID() == intentID {
			out = append(out, cloneRisk(risk))
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt().Before(out[j].CreatedAt()) })
	return out, nil
}

func (r *RiskRepository) Update(ctx context.Context, risk *entities.Risk, expectedStatus entities.RiskStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.risks[risk.ID()]
	if !ok || current.TenantID() != risk.TenantID() {
		return errors.NewNotFoundError("risk", risk.ID())
	}
	if current.Status() != expectedStatus {
		return errors.NewConflictError("risk status changed concurrently")
	}
	r.risks[risk.ID()] = cloneRisk(risk)
	return nil
}

// TaskRepository is the in-memory ports.TaskRepository.
type TaskRepository struct {
	mu    sync.Mutex
	tasks map[string]*entities.Task
}

var _ ports.TaskRepository = (*TaskRepository)(nil)

// NewTaskRepository creates an empty in-memory task repository.
func NewTaskRepository() *TaskRepository {
	return &TaskRepository{tasks: make(map[string]*entities.Task)}
}

func cloneTask(t *entities.Task) *entities.Task {
	return entities.ReconstructTask(
		t.ID(), t.TenantID(), t.IntentID(), t.DecisionID(), t.Title(),
		t.Description(), t.Owner(), t.Status(), t.SLA(), t.ExternalSystemRef(), t.CreatedAt(),
	)
}

func (r *TaskRepository) Save(ctx context.Context, task *entities.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks[task.ID()] = cloneTask(task)
	return nil
}

func (r *TaskRepository) GetByID(ctx context.Context, tenantID, taskID string) (*entities.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	task, ok := r.tasks[taskID]
	if !ok || task.TenantID() != tenantID {
		return nil, errors.NewNotFoundError("task", taskID)
	}
	return cloneTask(task), nil
}

func (r *TaskRepository) ListByIntent(ctx context.Context, tenantID, intentID string) ([]*entities.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*entities.Task, 0)
	for _, task := range r.tasks {
		if task.TenantID() == tenantID && task.IntentID() == intentID {
			out = append(out, cloneTask(task))
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt().Before(out[j].CreatedAt()) })
	return out, nil
}

func (r *TaskRepository) Update(ctx context.Context, task *entities.Task, expectedStatus entities.TaskStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.tasks[task.ID()]
	if !ok || current.TenantID() != task.TenantID() {
		return errors.NewNotFoundError("task", task.ID())
	}
	if current.Status() != expectedStatus {
		return errors.NewConflictError("task status changed concurrently")
	}
	r.tasks[task.ID()] = cloneTask(task)
	return nil
}

// EdgeRepository is the in-memory ports.EdgeRepository.
type EdgeRepository struct {
	mu    sync.Mutex
	edges map[string]*entities.Edge
}

var _ ports.EdgeRepository = (*EdgeRepository)(nil)

// NewEdgeRepository creates an empty in-memory edge repository.
func NewEdgeRepository() *EdgeRepository {
	return &EdgeRepository{edges: make(map[string]*entities.Edge)}
}

func cloneEdge(e *entities.Edge) *entities.Edge {
	return entities.ReconstructEdge(
		e.ID(), e.TenantID(), e.Source(), e.Target(), e.EdgeType(), e.CreatedBy(), e.CreatedAt(),
	)
}

func (r *EdgeRepository) Save(ctx context.Context, edge *entities.Edge) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.edges[edge.ID()] = cloneEdge(edge)
	return nil
}

func (r *EdgeRepository) GetByID(ctx context.Context, tenantID, edgeID string) (*entities.Edge, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	edge, ok := r.edges[edgeID]
	if !ok || edge.TenantID() != tenantID {
		return nil, errors.NewNotFoundError("edge", edgeID)
	}
	return cloneEdge(edge), nil
}

func (r *EdgeRepository) list(tenantID string, keep func(*entities.Edge) bool) []*entities.Edge {
	out := make([]*entities.Edge, 0)
	for _, edge := range r.edges {
		if edge.TenantID() == tenantID && keep(edge) {
			out = append(out, cloneEdge(edge))
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt().Before(out[j].CreatedAt()) })
	return out
}

func (r *EdgeRepository) GetBySource(ctx context.Context, tenantID, nodeID string) ([]*entities.Edge, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.list(tenantID, func(e *entities.Edge) bool { return e.Source().ID() == nodeID }), nil
}

func (r *EdgeRepository) GetByTarget(ctx context.Context, tenantID, nodeID string) ([]*entities.Edge, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.list(tenantID, func(e *entities.Edge) bool { return e.Target().ID() == nodeID }), nil
}

func (r *EdgeRepository) ListByType(ctx context.Context, tenantID string, edgeType entities.EdgeType) ([]*entities.Edge, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.list(tenantID, func(e *entities.Edge) bool { return e.EdgeType() == edgeType }), nil
}

func (r *EdgeRepository) ListByTenant(ctx context.Context, tenantID string) ([]*entities.Edge, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.list(tenantID, func(*entities.Edge) bool { return true }), nil
}

func (r *EdgeRepository) Delete(ctx context.Context, tenantID, edgeID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	edge, ok := r.edges[edgeID]
	if !ok || edge.TenantID() != tenantID {
		return errors.NewNotFoundError("edge", edgeID)
	}
	delete(r.edges, edgeID)
	return nil
}

func (r *EdgeRepository) DeleteByNode(ctx context.Context, tenantID, nodeID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	deleted := 0
	for id, edge := range r.edges {
		if edge.TenantID() == tenantID && edge.Touches(nodeID) {
			delete(r.edges, id)
			deleted++
		}
	}
	return deleted, nil
}

// ProposalRepository is the in-memory ports.ProposalRepository.
type ProposalRepository struct {
	mu        sync.Mutex
	proposals map[string]*entities.Proposal
}

var _ ports.ProposalRepository = (*ProposalRepository)(nil)

// NewProposalRepository creates an empty in-memory proposal repository.
func NewProposalRepository() *ProposalRepository {
	return &ProposalRepository{proposals: make(map[string]*entities.Proposal)}
}

func cloneProposal(p *entities.Proposal) *entities.Proposal {
	return entities.ReconstructProposal(
		p.ID(), p.TenantID(), p.IntentID(), p.ProposalType(), p.Content(),
		p.PromptTemplateID(), p.ModelUsed(), p.Confidence(), p.Status(),
		p.ReviewedBy(), p.ReviewedAt(), p.CreatedAt(),
	)
}

func (r *ProposalRepository) Save(ctx context.Context, proposal *entities.Proposal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.proposals[proposal.ID()] = cloneProposal(proposal)
	return nil
}

func (r *ProposalRepository) GetByID(ctx context.Context, tenantID, proposalID string) (*entities.Proposal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	proposal, ok := r.proposals[proposalID]
	if !ok || proposal.TenantID() != tenantID {
		return nil, errors.NewNotFoundError("proposal", proposalID)
	}
	return cloneProposal(proposal), nil
}

func (r *ProposalRepository) List(ctx context.Context, tenantID string, filter ports.ProposalFilter) ([]*entities.Proposal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*entities.Proposal, 0)
	for _, proposal := range r.proposals {
		if proposal.TenantID() != tenantID {
			continue
		}
		if filter.Status != "" && proposal.Status() != filter.Status {
			continue
		}
		if filter.IntentID != "" && proposal.IntentID() != filter.IntentID {
			continue
		}
		out = append(out, cloneProposal(proposal))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt().Before(out[j].CreatedAt()) })
	return out, nil
}

func (r *ProposalRepository) Update(ctx context.Context, proposal *entities.Proposal, expectedStatus entities.ProposalStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.proposals[proposal.ID()]
	if !ok || current.TenantID() != proposal.TenantID() {
		return errors.NewNotFoundError("proposal", proposal.ID())
	}
	if current.Status() != expectedStatus {
		return errors.NewConflictError("proposal was reviewed concurrently")
	}
	r.proposals[proposal.ID()] = cloneProposal(proposal)
	return nil
}
