package services

import (
	"context"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/DoozHub/dooz-pm-suite/application/ports"
	"github.com/DoozHub/dooz-pm-suite/domain/events"
	"github.com/DoozHub/dooz-pm-suite/infrastructure/persistence/memory"
)

// capturingPublisher records every event it is handed. Publishing happens on
// detached goroutines, so access is synchronized and assertions poll.
type capturingPublisher struct {
	mu     sync.Mutex
	events []events.DomainEvent
	err    error
}

var _ ports.EventPublisher = (*capturingPublisher)(nil)

func (p *capturingPublisher) Publish(ctx context.Context, event events.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, event)
	return nil
}

func (p *capturingPublisher) PublishBatch(ctx context.Context, batch []events.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, batch...)
	return nil
}

func (p *capturingPublisher) eventTypes() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	types := make([]string, len(p.events))
	for i, event := range p.events {
		types[i] = event.GetEventType()
	}
	return types
}

func (p *capturingPublisher) has(eventType string) bool {
	for _, t := range p.eventTypes() {
		if t == eventType {
			return true
		}
	}
	return false
}

type storedMemory struct {
	scopeID string
	title   string
	content string
}

// stubAI is a scriptable ports.AIService.
type stubAI struct {
	mu            sync.Mutex
	available     bool
	completion    string
	completeErr   error
	contextAnswer string
	stored        []storedMemory
}

var _ ports.AIService = (*stubAI)(nil)

func (s *stubAI) IsAvailable(ctx context.Context) bool { return s.available }

func (s *stubAI) Complete(ctx context.Context, prompt string, opts ports.CompletionOptions) (string, error) {
	if s.completeErr != nil {
		return "", s.completeErr
	}
	return s.completion, nil
}

func (s *stubAI) GetContext(ctx context.Context, query, scopeID string) (string, error) {
	return s.contextAnswer, nil
}

func (s *stubAI) StoreMemory(ctx context.Context, scopeID, title, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stored = append(s.stored, storedMemory{scopeID: scopeID, title: title, content: content})
	return nil
}

func (s *stubAI) storedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.stored)
}

func (s *stubAI) storedAt(i int) storedMemory {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stored[i]
}

// testEnv wires the full service stack over in-memory repositories.
type testEnv struct {
	intents     *memory.IntentRepository
	decisions   *memory.DecisionRepository
	assumptions *memory.AssumptionRepository
	risks       *memory.RiskRepository
	tasks       *memory.TaskRepository
	edges       *memory.EdgeRepository
	proposals   *memory.ProposalRepository

	publisher *capturingPublisher
	ai        *stubAI

	intentSvc     *IntentService
	decisionSvc   *DecisionService
	graphSvc      *GraphService
	registrySvc   *RegistryService
	proposalSvc   *ProposalService
	extractionSvc *ExtractionService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		intents:     memory.NewIntentRepository(),
		decisions:   memory.NewDecisionRepository(),
		assumptions: memory.NewAssumptionRepository(),
		risks:       memory.NewRiskRepository(),
		tasks:       memory.NewTaskRepository(),
		edges:       memory.NewEdgeRepository(),
		proposals:   memory.NewProposalRepository(),
		publisher:   &capturingPublisher{},
		ai:          &stubAI{available: true},
	}

	logger := zap.NewNop()
	env.intentSvc = NewIntentService(env.intents, env.publisher, env.ai, logger)
	env.decisionSvc = NewDecisionService(env.decisions, env.intents, env.publisher, env.ai, logger)
	env.graphSvc = NewGraphService(env.edges, logger)
	env.registrySvc = NewRegistryService(env.assumptions, env.risks, env.tasks, env.intents, logger)
	env.proposalSvc = NewProposalService(env.proposals, env.intents, env.decisionSvc, env.registrySvc, env.publisher, logger)
	env.extractionSvc = NewExtractionService(env.ai, env.proposalSvc, "test-model", logger)
	return env
}
