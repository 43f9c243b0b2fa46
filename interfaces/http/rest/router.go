// Package rest wires the suite's HTTP surface: global middleware, the
// open health and metrics endpoints, and the authenticated /api/v1 routes.
package rest

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/DoozHub/dooz-pm-suite/application/services"
	"github.com/DoozHub/dooz-pm-suite/infrastructure/observability"
	"github.com/DoozHub/dooz-pm-suite/interfaces/http/rest/handlers"
	"github.com/DoozHub/dooz-pm-suite/interfaces/http/rest/middleware"
	"github.com/DoozHub/dooz-pm-suite/pkg/auth"
)

// Deps carries everything the HTTP surface needs. Metrics may be nil to
// disable the collector and the /metrics endpoint.
type Deps struct {
	Logger  *zap.Logger
	Metrics *observability.Collector
	Auth    *auth.Validator

	ServiceName    string
	EnableCORS     bool
	EnableTracing  bool
	RequestTimeout time.Duration

	Intents    *services.IntentService
	Decisions  *services.DecisionService
	Graph      *services.GraphService
	Proposals  *services.ProposalService
	Registry   *services.RegistryService
	Extraction *services.ExtractionService
}

// NewRouter builds the HTTP handler tree. Health, readiness and metrics
// are open; everything under /api/v1 requires a valid tenant token.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(deps.Logger))
	r.Use(chimiddleware.Recoverer)

	timeout := deps.RequestTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	r.Use(chimiddleware.Timeout(timeout))

	if deps.EnableTracing {
		r.Use(observability.TracingMiddleware(deps.ServiceName))
	}
	if deps.Metrics != nil {
		r.Use(observability.MetricsMiddleware(deps.Metrics))
	}

	if deps.EnableCORS {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders: []string{"X-Trace-ID"},
			MaxAge:         300,
		}))
	}

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{
			"status":  "healthy",
			"service": deps.ServiceName,
		})
	})

	r.Get("/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{"status": "ready"})
	})

	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Metrics.Registry(), promhttp.HandlerOpts{}))
	}

	intents := handlers.NewIntentHandler(deps.Intents, deps.Logger)
	decisions := handlers.NewDecisionHandler(deps.Decisions, deps.Logger)
	graph := handlers.NewGraphHandler(deps.Graph, deps.Metrics, deps.Logger)
	proposals := handlers.NewProposalHandler(deps.Proposals, deps.Logger)
	registry := handlers.NewRegistryHandler(deps.Registry, deps.Logger)
	extract := handlers.NewExtractHandler(deps.Extraction, deps.Metrics, deps.Logger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Authenticate(deps.Auth, deps.Logger))

		r.Route("/intents", func(r chi.Router) {
			r.Post("/", intents.Create)
			r.Get("/", intents.List)

			r.Route("/{intentID}", func(r chi.Router) {
				r.Get("/", intents.Get)
				r.Post("/transition", intents.Transition)
				r.Post("/review", intents.MarkReviewed)
				r.Post("/confidence", intents.SetConfidence)
				r.Get("/context", intents.GetContext)

				r.Post("/decisions", decisions.Commit)
				r.Get("/decisions", decisions.ListByIntent)
				r.Get("/decisions/active", decisions.ListActive)
				r.Get("/ledger", decisions.GetLedger)

				r.Post("/assumptions", registry.CreateAssumption)
				r.Get("/assumptions", registry.ListAssumptions)
				r.Post("/risks", registry.CreateRisk)
				r.Get("/risks", registry.ListRisks)
				r.Post("/tasks", registry.CreateTask)
				r.Get("/tasks", registry.ListTasks)
			})
		})

		r.Route("/decisions", func(r chi.Router) {
			r.Get("/{decisionID}", decisions.Get)
			r.Post("/{decisionID}/supersede", decisions.Supersede)
		})

		r.Route("/assumptions", func(r chi.Router) {
			r.Get("/{assumptionID}", registry.GetAssumption)
			r.Post("/{assumptionID}/invalidate", registry.InvalidateAssumption)
		})

		r.Route("/risks", func(r chi.Router) {
			r.Get("/{riskID}", registry.GetRisk)
			r.Post("/{riskID}/status", registry.UpdateRiskStatus)
		})

		r.Route("/tasks", func(r chi.Router) {
			r.Get("/{taskID}", registry.GetTask)
			r.Post("/{taskID}/status", registry.UpdateTaskStatus)
			r.Post("/{taskID}/assign", registry.ReassignTask)
		})

		r.Route("/edges", func(r chi.Router) {
			r.Post("/", graph.CreateEdge)
			r.Get("/", graph.ListByType)
			r.Get("/{edgeID}", graph.Get)
			r.Delete("/{edgeID}", graph.Delete)
		})

		r.Route("/nodes/{nodeID}/edges", func(r chi.Router) {
			r.Get("/", graph.GetNodeEdges)
			r.Delete("/", graph.DeleteByNode)
		})

		r.Get("/graph", graph.BuildGraph)

		r.Route("/proposals", func(r chi.Router) {
			r.Post("/", proposals.Submit)
			r.Get("/", proposals.List)
			r.Get("/{proposalID}", proposals.Get)
			r.Post("/{proposalID}/review", proposals.Review)
		})

		r.Post("/extract", extract.Extract)
	})

	return r
}
