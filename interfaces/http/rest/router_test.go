package rest_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/DoozHub/dooz-pm-suite/application/ports"
	"github.com/DoozHub/dooz-pm-suite/application/services"
	"github.com/DoozHub/dooz-pm-suite/infrastructure/messaging"
	"github.com/DoozHub/dooz-pm-suite/infrastructure/observability"
	"github.com/DoozHub/dooz-pm-suite/infrastructure/persistence/memory"
	"github.com/DoozHub/dooz-pm-suite/interfaces/http/rest"
	"github.com/DoozHub/dooz-pm-suite/interfaces/http/rest/handlers"
	"github.com/DoozHub/dooz-pm-suite/pkg/auth"
)

const (
	testSecret = "router-test-secret-0123456789abcdef"
	testIssuer = "dooz-pm-suite-test"
)

// stubAI is a canned ports.AIService so routing tests never talk to a real
// provider.
type stubAI struct {
	available  bool
	completion string
	answer     string
	err        error
}

var _ ports.AIService = (*stubAI)(nil)

func (s *stubAI) IsAvailable(ctx context.Context) bool { return s.available }

func (s *stubAI) Complete(ctx context.Context, prompt string, opts ports.CompletionOptions) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return s.completion, nil
}

func (s *stubAI) GetContext(ctx context.Context, query, scopeID string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return s.answer, nil
}

func (s *stubAI) StoreMemory(ctx context.Context, scopeID, title, content string) error {
	return nil
}

type testAPI struct {
	router http.Handler
	ai     *stubAI
	gen    *auth.Generator
	token  string
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	logger := zap.NewNop()
	ai := &stubAI{available: true}
	publisher := messaging.NewNoopPublisher(logger)

	intents := memory.NewIntentRepository()
	decisions := memory.NewDecisionRepository()
	edges := memory.NewEdgeRepository()
	assumptions := memory.NewAssumptionRepository()
	risks := memory.NewRiskRepository()
	tasks := memory.NewTaskRepository()
	proposals := memory.NewProposalRepository()

	intentSvc := services.NewIntentService(intents, publisher, ai, logger)
	decisionSvc := services.NewDecisionService(decisions, intents, publisher, ai, logger)
	graphSvc := services.NewGraphService(edges, logger)
	registrySvc := services.NewRegistryService(assumptions, risks, tasks, intents, logger)
	proposalSvc := services.NewProposalService(proposals, intents, decisionSvc, registrySvc, publisher, logger)
	extractionSvc := services.NewExtractionService(ai, proposalSvc, "test-model", logger)

	router := rest.NewRouter(rest.Deps{
		Logger:      logger,
		Metrics:     observability.NewCollector("test"),
		Auth:        auth.NewValidator(testSecret, testIssuer),
		ServiceName: "dooz-pm-suite-test",
		Intents:     intentSvc,
		Decisions:   decisionSvc,
		Graph:       graphSvc,
		Proposals:   proposalSvc,
		Registry:    registrySvc,
		Extraction:  extractionSvc,
	})

	gen := auth.NewGenerator(testSecret, testIssuer, time.Hour)
	token, err := gen.GenerateToken("user-1", "tenant-1", []string{"member"})
	require.NoError(t, err)

	return &testAPI{router: router, ai: ai, gen: gen, token: token}
}

// do runs one request through the router and returns the recorder.
func (api *testAPI) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	api.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), "body: %s", rec.Body.String())
	return out
}

type errorBody struct {
	Error   bool                   `json:"error"`
	Message string                 `json:"message"`
	Code    int                    `json:"code"`
	Type    string                 `json:"type"`
	Details map[string]interface{} `json:"details"`
}

func (api *testAPI) createIntent(t *testing.T, title string) handlers.IntentResponse {
	t.Helper()
	rec := api.do(t, http.MethodPost, "/api/v1/intents", api.token, map[string]string{"title": title})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decodeBody[handlers.IntentResponse](t, rec)
}

func TestRouter_OpenEndpoints(t *testing.T) {
	// Arrange
	api := newTestAPI(t)

	// Act / Assert: health, readiness and metrics need no token.
	rec := api.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "healthy")

	rec = api.do(t, http.MethodGet, "/ready", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = api.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_RejectsUnauthenticatedRequests(t *testing.T) {
	// Arrange
	api := newTestAPI(t)

	// Act: no token at all.
	rec := api.do(t, http.MethodGet, "/api/v1/intents", "", nil)

	// Assert
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	body := decodeBody[errorBody](t, rec)
	assert.Equal(t, "Missing authentication token", body.Message)

	// Act: garbage token.
	rec = api.do(t, http.MethodGet, "/api/v1/intents", "not-a-jwt", nil)

	// Assert
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	body = decodeBody[errorBody](t, rec)
	assert.Equal(t, "Invalid token", body.Message)

	// Act: wrong signing key.
	forged, err := auth.NewGenerator("some-other-secret-0123456789abcdef", testIssuer, time.Hour).
		GenerateToken("user-1", "tenant-1", nil)
	require.NoError(t, err)
	rec = api.do(t, http.MethodGet, "/api/v1/intents", forged, nil)

	// Assert
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	body = decodeBody[errorBody](t, rec)
	assert.Equal(t, "Invalid token signature", body.Message)
}

func TestRouter_IntentLifecycle(t *testing.T) {
	// Arrange
	api := newTestAPI(t)

	// Act: create.
	intent := api.createIntent(t, "Migrate billing to usage-based pricing")

	// Assert: new intents start in research with no review timestamp.
	assert.NotEmpty(t, intent.ID)
	assert.Equal(t, "research", intent.CurrentState)
	assert.Equal(t, "user-1", intent.CreatedBy)
	assert.Nil(t, intent.LastHumanReviewedAt)
	assert.Equal(t, 0, intent.Version)

	// Act: research -> execution skips planning and must be refused.
	rec := api.do(t, http.MethodPost, "/api/v1/intents/"+intent.ID+"/transition", api.token,
		map[string]string{"targetState": "execution"})

	// Assert: conflict carrying the allowed states.
	require.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())
	body := decodeBody[errorBody](t, rec)
	assert.Equal(t, "INVALID_TRANSITION", body.Type)
	assert.Equal(t, "research", body.Details["currentState"])
	assert.Equal(t, "execution", body.Details["attemptedState"])
	assert.ElementsMatch(t, []interface{}{"planning", "archived"}, body.Details["allowedStates"])

	// Act: the legal path research -> planning.
	rec = api.do(t, http.MethodPost, "/api/v1/intents/"+intent.ID+"/transition", api.token,
		map[string]string{"targetState": "planning"})

	// Assert: transition succeeded and counts as a human review.
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	moved := decodeBody[handlers.IntentResponse](t, rec)
	assert.Equal(t, "planning", moved.CurrentState)
	assert.NotNil(t, moved.LastHumanReviewedAt)
	assert.Greater(t, moved.Version, intent.Version)

	// Act: archive, then try to leave.
	rec = api.do(t, http.MethodPost, "/api/v1/intents/"+intent.ID+"/transition", api.token,
		map[string]string{"targetState": "archived"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = api.do(t, http.MethodPost, "/api/v1/intents/"+intent.ID+"/transition", api.token,
		map[string]string{"targetState": "research"})

	// Assert: archived is absorbing, the allowed list is empty.
	require.Equal(t, http.StatusConflict, rec.Code)
	body = decodeBody[errorBody](t, rec)
	assert.Equal(t, "INVALID_TRANSITION", body.Type)
	assert.Empty(t, body.Details["allowedStates"])
}

func TestRouter_MarkReviewedWorksInEveryState(t *testing.T) {
	// Arrange
	api := newTestAPI(t)
	intent := api.createIntent(t, "Quarterly security review")

	// Act / Assert: review in research.
	rec := api.do(t, http.MethodPost, "/api/v1/intents/"+intent.ID+"/review", api.token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	first := decodeBody[handlers.IntentResponse](t, rec)
	require.NotNil(t, first.LastHumanReviewedAt)

	// Act / Assert: reviewing again is idempotent, not an error.
	rec = api.do(t, http.MethodPost, "/api/v1/intents/"+intent.ID+"/review", api.token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// Act / Assert: still legal after archiving.
	rec = api.do(t, http.MethodPost, "/api/v1/intents/"+intent.ID+"/transition", api.token,
		map[string]string{"targetState": "archived"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = api.do(t, http.MethodPost, "/api/v1/intents/"+intent.ID+"/review", api.token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	archived := decodeBody[handlers.IntentResponse](t, rec)
	assert.Equal(t, "archived", archived.CurrentState)
	assert.NotNil(t, archived.LastHumanReviewedAt)
}

func TestRouter_ListIntentsByState(t *testing.T) {
	// Arrange
	api := newTestAPI(t)
	kept := api.createIntent(t, "Stays in research")
	moved := api.createIntent(t, "Moves to planning")
	rec := api.do(t, http.MethodPost, "/api/v1/intents/"+moved.ID+"/transition", api.token,
		map[string]string{"targetState": "planning"})
	require.Equal(t, http.StatusOK, rec.Code)

	// Act
	rec = api.do(t, http.MethodGet, "/api/v1/intents?state=research", api.token, nil)

	// Assert
	require.Equal(t, http.StatusOK, rec.Code)
	listed := decodeBody[[]handlers.IntentResponse](t, rec)
	require.Len(t, listed, 1)
	assert.Equal(t, kept.ID, listed[0].ID)

	// Act / Assert: an unknown state is a validation error, not an empty list.
	rec = api.do(t, http.MethodGet, "/api/v1/intents?state=bogus", api.token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouter_SetConfidence(t *testing.T) {
	// Arrange
	api := newTestAPI(t)
	intent := api.createIntent(t, "Confidence test")

	// Act
	rec := api.do(t, http.MethodPost, "/api/v1/intents/"+intent.ID+"/confidence", api.token,
		map[string]float64{"level": 0.8})

	// Assert
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decodeBody[handlers.IntentResponse](t, rec)
	require.NotNil(t, updated.ConfidenceLevel)
	assert.InDelta(t, 0.8, *updated.ConfidenceLevel, 0.0001)

	// Act / Assert: out of range never reaches the service.
	rec = api.do(t, http.MethodPost, "/api/v1/intents/"+intent.ID+"/confidence", api.token,
		map[string]float64{"level": 1.5})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouter_DecisionLedgerFlow(t *testing.T) {
	// Arrange
	api := newTestAPI(t)
	intent := api.createIntent(t, "Choose a message broker")

	commit := func(statement, choice string) handlers.DecisionResponse {
		rec := api.do(t, http.MethodPost, "/api/v1/intents/"+intent.ID+"/decisions", api.token,
			map[string]interface{}{
				"decisionStatement": statement,
				"finalChoice":       choice,
				"optionsConsidered": []string{"NATS", "SQS", "Kafka"},
			})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		return decodeBody[handlers.DecisionResponse](t, rec)
	}

	first := commit("Which broker do we build on?", "NATS")
	second := commit("How do we handle replays?", "JetStream persistent streams")

	// Assert: the caller is the human approver.
	assert.Equal(t, "user-1", first.HumanApprover)
	assert.Equal(t, "active", first.Status)

	// Act: reverse-chronological list vs chronological ledger.
	rec := api.do(t, http.MethodGet, "/api/v1/intents/"+intent.ID+"/decisions", api.token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	newestFirst := decodeBody[[]handlers.DecisionResponse](t, rec)
	require.Len(t, newestFirst, 2)
	assert.Equal(t, second.ID, newestFirst[0].ID)

	rec = api.do(t, http.MethodGet, "/api/v1/intents/"+intent.ID+"/ledger", api.token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	ledger := decodeBody[[]handlers.DecisionResponse](t, rec)
	require.Len(t, ledger, 2)
	assert.Equal(t, first.ID, ledger[0].ID)

	// Act: supersede the first decision.
	rec = api.do(t, http.MethodPost, "/api/v1/decisions/"+first.ID+"/supersede", api.token,
		map[string]interface{}{
			"decisionStatement": "Which broker do we build on?",
			"finalChoice":       "NATS with JetStream from day one",
		})

	// Assert: the original flips, the replacement carries the marker.
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	swap := decodeBody[handlers.SupersedeResponse](t, rec)
	assert.Equal(t, first.ID, swap.Original.ID)
	assert.Equal(t, "superseded", swap.Original.Status)
	assert.Equal(t, "active", swap.Replacement.Status)
	assert.Contains(t, swap.Replacement.AIInputsReferenced, "supersedes:"+first.ID)

	// Act / Assert: a decision is superseded at most once.
	rec = api.do(t, http.MethodPost, "/api/v1/decisions/"+first.ID+"/supersede", api.token,
		map[string]interface{}{
			"decisionStatement": "again",
			"finalChoice":       "again",
		})
	require.Equal(t, http.StatusConflict, rec.Code)
	body := decodeBody[errorBody](t, rec)
	assert.Equal(t, "ALREADY_SUPERSEDED", body.Type)

	// Act / Assert: the ledger keeps all three entries, active drops to two.
	rec = api.do(t, http.MethodGet, "/api/v1/intents/"+intent.ID+"/ledger", api.token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]handlers.DecisionResponse](t, rec), 3)

	rec = api.do(t, http.MethodGet, "/api/v1/intents/"+intent.ID+"/decisions/active", api.token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	active := decodeBody[[]handlers.DecisionResponse](t, rec)
	require.Len(t, active, 2)
	for _, d := range active {
		assert.Equal(t, "active", d.Status)
		assert.NotEqual(t, first.ID, d.ID)
	}
}

func TestRouter_GraphFlow(t *testing.T) {
	// Arrange
	api := newTestAPI(t)
	intentID := uuid.NewString()
	decisionID := uuid.NewString()

	createEdge := func(srcID, srcType, dstID, dstType, edgeType string) handlers.EdgeResponse {
		rec := api.do(t, http.MethodPost, "/api/v1/edges", api.token, map[string]interface{}{
			"source":   map[string]string{"id": srcID, "type": srcType},
			"target":   map[string]string{"id": dstID, "type": dstType},
			"edgeType": edgeType,
		})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		return decodeBody[handlers.EdgeResponse](t, rec)
	}

	// Act: the store takes anything structurally valid, including edges to
	// records that do not exist, duplicates and self-loops.
	ledTo := createEdge(intentID, "intent", decisionID, "decision", "led_to")
	createEdge(intentID, "intent", decisionID, "decision", "led_to")
	createEdge(decisionID, "decision", decisionID, "decision", "depends_on")

	// Assert: single get round-trips.
	rec := api.do(t, http.MethodGet, "/api/v1/edges/"+ledTo.ID, api.token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decodeBody[handlers.EdgeResponse](t, rec)
	assert.Equal(t, "led_to", got.EdgeType)
	assert.Equal(t, intentID, got.Source.ID)

	// Act / Assert: direction filters.
	rec = api.do(t, http.MethodGet, "/api/v1/nodes/"+intentID+"/edges?direction=out", api.token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]handlers.EdgeResponse](t, rec), 2)

	rec = api.do(t, http.MethodGet, "/api/v1/nodes/"+decisionID+"/edges?direction=in", api.token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	// The self-loop counts as incoming too.
	assert.Len(t, decodeBody[[]handlers.EdgeResponse](t, rec), 3)

	rec = api.do(t, http.MethodGet, "/api/v1/nodes/"+decisionID+"/edges", api.token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	// Union: the self-loop appears once, not twice.
	assert.Len(t, decodeBody[[]handlers.EdgeResponse](t, rec), 3)

	rec = api.do(t, http.MethodGet, "/api/v1/nodes/"+intentID+"/edges?direction=sideways", api.token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Act / Assert: type filter.
	rec = api.do(t, http.MethodGet, "/api/v1/edges?type=depends_on", api.token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]handlers.EdgeResponse](t, rec), 1)

	rec = api.do(t, http.MethodGet, "/api/v1/edges?type=points_at", api.token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Act / Assert: the derived graph names each node once.
	rec = api.do(t, http.MethodGet, "/api/v1/graph", api.token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	graph := decodeBody[handlers.GraphResponse](t, rec)
	assert.Len(t, graph.Edges, 3)
	assert.Len(t, graph.Nodes, 2)

	// Act / Assert: delete one edge, then the rest via the node cascade.
	rec = api.do(t, http.MethodDelete, "/api/v1/edges/"+ledTo.ID, api.token, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = api.do(t, http.MethodGet, "/api/v1/edges/"+ledTo.ID, api.token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = api.do(t, http.MethodDelete, "/api/v1/nodes/"+decisionID+"/edges", api.token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	cascade := decodeBody[handlers.DeleteByNodeResponse](t, rec)
	assert.Equal(t, 2, cascade.Deleted)
}

func TestRouter_ProposalReviewFlow(t *testing.T) {
	// Arrange
	api := newTestAPI(t)
	intent := api.createIntent(t, "Harden the ingest pipeline")

	submit := func(proposalType, content, intentID string) handlers.ProposalResponse {
		payload := map[string]interface{}{
			"proposalType": proposalType,
			"content":      content,
			"modelUsed":    "test-model",
		}
		if intentID != "" {
			payload["intentId"] = intentID
		}
		rec := api.do(t, http.MethodPost, "/api/v1/proposals", api.token, payload)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		return decodeBody[handlers.ProposalResponse](t, rec)
	}

	// Act: a free-floating decision proposal, bound to the intent on accept.
	proposal := submit("decision", "Adopt dead-letter queues for poison messages", "")
	require.Equal(t, "pending", proposal.Status)
	require.Empty(t, proposal.IntentID)

	rec := api.do(t, http.MethodPost, "/api/v1/proposals/"+proposal.ID+"/review", api.token,
		map[string]string{"action": "accept", "intentId": intent.ID})

	// Assert: acceptance materialized a ledger entry approved by the reviewer.
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	review := decodeBody[handlers.ReviewResponse](t, rec)
	assert.Equal(t, "accepted", review.Proposal.Status)
	assert.Equal(t, "user-1", review.Proposal.ReviewedBy)
	require.NotEmpty(t, review.MaterializedID)

	rec = api.do(t, http.MethodGet, "/api/v1/decisions/"+review.MaterializedID, api.token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	materialized := decodeBody[handlers.DecisionResponse](t, rec)
	assert.Equal(t, "user-1", materialized.HumanApprover)
	assert.Equal(t, intent.ID, materialized.IntentID)

	// Act / Assert: review happens exactly once.
	rec = api.do(t, http.MethodPost, "/api/v1/proposals/"+proposal.ID+"/review", api.token,
		map[string]string{"action": "reject"})
	require.Equal(t, http.StatusConflict, rec.Code)
	body := decodeBody[errorBody](t, rec)
	assert.Equal(t, "ALREADY_REVIEWED", body.Type)
	assert.Equal(t, "accepted", body.Details["currentStatus"])

	// Act / Assert: accepted assumptions are recorded as AI-origin.
	assumption := submit("assumption", "Traffic stays under 10k msg/s through Q3", intent.ID)
	rec = api.do(t, http.MethodPost, "/api/v1/proposals/"+assumption.ID+"/review", api.token,
		map[string]string{"action": "accept"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	review = decodeBody[handlers.ReviewResponse](t, rec)
	require.NotEmpty(t, review.MaterializedID)

	rec = api.do(t, http.MethodGet, "/api/v1/assumptions/"+review.MaterializedID, api.token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	recorded := decodeBody[handlers.AssumptionResponse](t, rec)
	assert.Equal(t, "ai", recorded.CreatedFrom)
	assert.Equal(t, "Traffic stays under 10k msg/s through Q3", recorded.Statement)

	// Act / Assert: accepted questions materialize nothing.
	question := submit("question", "Do we need exactly-once delivery?", intent.ID)
	rec = api.do(t, http.MethodPost, "/api/v1/proposals/"+question.ID+"/review", api.token,
		map[string]string{"action": "accept"})
	require.Equal(t, http.StatusOK, rec.Code)
	review = decodeBody[handlers.ReviewResponse](t, rec)
	assert.Empty(t, review.MaterializedID)

	// Act / Assert: reject and park are terminal too.
	rejected := submit("risk", "The broker may be a single point of failure", intent.ID)
	rec = api.do(t, http.MethodPost, "/api/v1/proposals/"+rejected.ID+"/review", api.token,
		map[string]string{"action": "reject"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "rejected", decodeBody[handlers.ReviewResponse](t, rec).Proposal.Status)

	parked := submit("risk", "Costs may spike with retention", intent.ID)
	rec = api.do(t, http.MethodPost, "/api/v1/proposals/"+parked.ID+"/review", api.token,
		map[string]string{"action": "park"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "parked", decodeBody[handlers.ReviewResponse](t, rec).Proposal.Status)

	rec = api.do(t, http.MethodPost, "/api/v1/proposals/"+parked.ID+"/review", api.token,
		map[string]string{"action": "accept"})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestRouter_ProposalListFilters(t *testing.T) {
	// Arrange
	api := newTestAPI(t)
	intent := api.createIntent(t, "Filter target")

	for i := 0; i < 3; i++ {
		rec := api.do(t, http.MethodPost, "/api/v1/proposals", api.token, map[string]interface{}{
			"proposalType": "question",
			"content":      fmt.Sprintf("question %d", i),
			"intentId":     intent.ID,
		})
		require.Equal(t, http.StatusCreated, rec.Code)
	}
	rec := api.do(t, http.MethodPost, "/api/v1/proposals", api.token, map[string]interface{}{
		"proposalType": "question",
		"content":      "floating question",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	floating := decodeBody[handlers.ProposalResponse](t, rec)

	rec = api.do(t, http.MethodPost, "/api/v1/proposals/"+floating.ID+"/review", api.token,
		map[string]string{"action": "park"})
	require.Equal(t, http.StatusOK, rec.Code)

	// Act / Assert: status filter.
	rec = api.do(t, http.MethodGet, "/api/v1/proposals?status=pending", api.token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]handlers.ProposalResponse](t, rec), 3)

	rec = api.do(t, http.MethodGet, "/api/v1/proposals?status=parked", api.token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]handlers.ProposalResponse](t, rec), 1)

	// Act / Assert: intent filter composes with status.
	rec = api.do(t, http.MethodGet, "/api/v1/proposals?status=pending&intentId="+intent.ID, api.token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]handlers.ProposalResponse](t, rec), 3)

	// Act / Assert: unknown status is a validation error.
	rec = api.do(t, http.MethodGet, "/api/v1/proposals?status=maybe", api.token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouter_Extract(t *testing.T) {
	// Arrange: two well-formed suggestions and one with an unknown type the
	// parser must drop.
	api := newTestAPI(t)
	intent := api.createIntent(t, "Extraction target")
	api.ai.completion = `[
		{"type": "risk", "statement": "Vendor lock-in on the queue layer", "confidence": 0.7},
		{"type": "assumption", "statement": "Reads dominate writes 10:1", "confidence": 0.9, "context": "from the load test"},
		{"type": "opinion", "statement": "dropped"}
	]`

	// Act
	rec := api.do(t, http.MethodPost, "/api/v1/extract", api.token, map[string]string{
		"intentId": intent.ID,
		"content":  "Meeting notes: queue vendor discussion, load test results...",
	})

	// Assert: both valid items became pending proposals.
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	out := decodeBody[handlers.ExtractResponse](t, rec)
	assert.Equal(t, 2, out.Count)
	require.Len(t, out.Proposals, 2)
	for _, p := range out.Proposals {
		assert.Equal(t, "pending", p.Status)
		assert.Equal(t, intent.ID, p.IntentID)
	}

	// Act / Assert: the text is required.
	rec = api.do(t, http.MethodPost, "/api/v1/extract", api.token, map[string]string{"content": ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Act / Assert: no provider means 503, not a silent empty result.
	api.ai.available = false
	rec = api.do(t, http.MethodPost, "/api/v1/extract", api.token, map[string]string{
		"content": "more notes",
	})
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "UNAVAILABLE", decodeBody[errorBody](t, rec).Type)
}

func TestRouter_IntentContext(t *testing.T) {
	// Arrange
	api := newTestAPI(t)
	api.ai.answer = "One prior decision covers the broker choice."
	intent := api.createIntent(t, "Context lookup")

	// Act / Assert: q is required.
	rec := api.do(t, http.MethodGet, "/api/v1/intents/"+intent.ID+"/context", api.token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Act
	rec = api.do(t, http.MethodGet, "/api/v1/intents/"+intent.ID+"/context?q=broker", api.token, nil)

	// Assert
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, api.ai.answer, decodeBody[handlers.ContextResponse](t, rec).Context)
}

func TestRouter_RegistryFlow(t *testing.T) {
	// Arrange
	api := newTestAPI(t)
	intent := api.createIntent(t, "Registry host")

	// Act: record an assumption by hand.
	rec := api.do(t, http.MethodPost, "/api/v1/intents/"+intent.ID+"/assumptions", api.token,
		map[string]interface{}{"statement": "The data fits in one region", "confidenceLevel": 0.6})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assumption := decodeBody[handlers.AssumptionResponse](t, rec)

	// Assert: hand-entered records are human-origin and active.
	assert.Equal(t, "human", assumption.CreatedFrom)
	assert.Equal(t, "active", assumption.Status)

	// Act / Assert: invalidation flips once, the second attempt conflicts.
	rec = api.do(t, http.MethodPost, "/api/v1/assumptions/"+assumption.ID+"/invalidate", api.token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "invalidated", decodeBody[handlers.AssumptionResponse](t, rec).Status)

	rec = api.do(t, http.MethodPost, "/api/v1/assumptions/"+assumption.ID+"/invalidate", api.token, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	// Act: a risk, resolved as mitigated.
	rec = api.do(t, http.MethodPost, "/api/v1/intents/"+intent.ID+"/risks", api.token,
		map[string]string{"statement": "Region outage takes the suite down", "severity": "high", "likelihood": "low"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	risk := decodeBody[handlers.RiskResponse](t, rec)

	rec = api.do(t, http.MethodPost, "/api/v1/risks/"+risk.ID+"/status", api.token,
		map[string]string{"status": "mitigated", "mitigationNotes": "Cross-region read replicas"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resolved := decodeBody[handlers.RiskResponse](t, rec)
	assert.Equal(t, "mitigated", resolved.Status)
	assert.Equal(t, "Cross-region read replicas", resolved.MitigationNotes)

	// Assert: a risk leaves active exactly once.
	rec = api.do(t, http.MethodPost, "/api/v1/risks/"+risk.ID+"/status", api.token,
		map[string]string{"status": "accepted"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	// Act: a task through its lifecycle.
	rec = api.do(t, http.MethodPost, "/api/v1/intents/"+intent.ID+"/tasks", api.token,
		map[string]interface{}{"title": "Provision the replica", "owner": "sam"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	task := decodeBody[handlers.TaskResponse](t, rec)
	assert.Equal(t, "pending", task.Status)

	rec = api.do(t, http.MethodPost, "/api/v1/tasks/"+task.ID+"/assign", api.token,
		map[string]string{"owner": "alex"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "alex", decodeBody[handlers.TaskResponse](t, rec).Owner)

	rec = api.do(t, http.MethodPost, "/api/v1/tasks/"+task.ID+"/status", api.token,
		map[string]string{"status": "in_progress"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = api.do(t, http.MethodPost, "/api/v1/tasks/"+task.ID+"/status", api.token,
		map[string]string{"status": "completed"})
	require.Equal(t, http.StatusOK, rec.Code)

	// Assert: completed is terminal.
	rec = api.do(t, http.MethodPost, "/api/v1/tasks/"+task.ID+"/status", api.token,
		map[string]string{"status": "pending"})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestRouter_ValidationErrors(t *testing.T) {
	// Arrange
	api := newTestAPI(t)

	// Act / Assert: missing required field.
	rec := api.do(t, http.MethodPost, "/api/v1/intents", api.token, map[string]string{"description": "no title"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeBody[errorBody](t, rec)
	assert.Equal(t, "VALIDATION", body.Type)
	assert.Contains(t, body.Message, "title")

	// Act / Assert: malformed JSON.
	req := httptest.NewRequest(http.MethodPost, "/api/v1/intents", bytes.NewBufferString("{not json"))
	req.Header.Set("Authorization", "Bearer "+api.token)
	req.Header.Set("Content-Type", "application/json")
	raw := httptest.NewRecorder()
	api.router.ServeHTTP(raw, req)
	assert.Equal(t, http.StatusBadRequest, raw.Code)

	// Act / Assert: a path id that is not a UUID fails before any lookup.
	rec = api.do(t, http.MethodGet, "/api/v1/intents/not-a-uuid", api.token, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeBody[errorBody](t, rec).Message, "UUID")
}

func TestRouter_TenantIsolation(t *testing.T) {
	// Arrange: an intent owned by tenant-1 and a caller from tenant-2.
	api := newTestAPI(t)
	intent := api.createIntent(t, "Tenant-1 private work")

	otherToken, err := api.gen.GenerateToken("user-9", "tenant-2", []string{"member"})
	require.NoError(t, err)

	// Act / Assert: the other tenant cannot address the record.
	rec := api.do(t, http.MethodGet, "/api/v1/intents/"+intent.ID, otherToken, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", decodeBody[errorBody](t, rec).Type)

	rec = api.do(t, http.MethodPost, "/api/v1/intents/"+intent.ID+"/transition", otherToken,
		map[string]string{"targetState": "planning"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// Act / Assert: listings never leak across tenants.
	rec = api.do(t, http.MethodGet, "/api/v1/intents", otherToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeBody[[]handlers.IntentResponse](t, rec))
}
