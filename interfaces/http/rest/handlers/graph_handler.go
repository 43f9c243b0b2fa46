package handlers

import (
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/DoozHub/dooz-pm-suite/application/services"
	"github.com/DoozHub/dooz-pm-suite/domain/core/entities"
	"github.com/DoozHub/dooz-pm-suite/domain/core/valueobjects"
	"github.com/DoozHub/dooz-pm-suite/infrastructure/observability"
	apperrors "github.com/DoozHub/dooz-pm-suite/pkg/errors"
)

// GraphHandler serves the knowledge graph endpoints. Edges reference
// endpoints by (id, type) pair and are never checked for existence, so a
// 201 here proves nothing about the nodes.
type GraphHandler struct {
	graph   *services.GraphService
	metrics *observability.Collector
	logger  *zap.Logger
}

// NewGraphHandler creates a new graph handler. metrics may be nil when the
// collector is disabled.
func NewGraphHandler(graph *services.GraphService, metrics *observability.Collector, logger *zap.Logger) *GraphHandler {
	return &GraphHandler{graph: graph, metrics: metrics, logger: logger}
}

// NodeRefInput is an (id, type) endpoint reference in a request.
type NodeRefInput struct {
	ID   string `json:"id" validate:"required,uuid"`
	Type string `json:"type" validate:"required,oneof=intent decision task assumption risk"`
}

// CreateEdgeRequest is the payload for POST /edges.
type CreateEdgeRequest struct {
	Source   NodeRefInput `json:"source"`
	Target   NodeRefInput `json:"target"`
	EdgeType string       `json:"edgeType" validate:"required,oneof=led_to depends_on invalidates supports blocks derived_from mitigates assumes"`
}

// NodeRefResponse is an (id, type) endpoint reference in a response.
type NodeRefResponse struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

// EdgeResponse is the wire form of an edge.
type EdgeResponse struct {
	ID        string          `json:"id"`
	Source    NodeRefResponse `json:"source"`
	Target    NodeRefResponse `json:"target"`
	EdgeType  string          `json:"edgeType"`
	CreatedBy string          `json:"createdBy"`
	CreatedAt time.Time       `json:"createdAt"`
}

// GraphResponse is the full projection: the distinct endpoints named by
// edges, and the edges between them.
type GraphResponse struct {
	Nodes []NodeRefResponse `json:"nodes"`
	Edges []EdgeResponse    `json:"edges"`
}

// DeleteByNodeResponse reports a cascade delete.
type DeleteByNodeResponse struct {
	Deleted int `json:"deleted"`
}

func toNodeRefResponse(ref valueobjects.NodeRef) NodeRefResponse {
	return NodeRefResponse{ID: ref.ID(), Type: string(ref.Type())}
}

func toEdgeResponse(edge *entities.Edge) EdgeResponse {
	return EdgeResponse{
		ID:        edge.ID(),
		Source:    toNodeRefResponse(edge.Source()),
		Target:    toNodeRefResponse(edge.Target()),
		EdgeType:  string(edge.EdgeType()),
		CreatedBy: edge.CreatedBy(),
		CreatedAt: edge.CreatedAt(),
	}
}

func toEdgeResponses(edges []*entities.Edge) []EdgeResponse {
	out := make([]EdgeResponse, 0, len(edges))
	for _, edge := range edges {
		out = append(out, toEdgeResponse(edge))
	}
	return out
}

// CreateEdge handles POST /api/v1/edges. Duplicates and cycles are legal.
func (h *GraphHandler) CreateEdge(w http.ResponseWriter, r *http.Request) {
	var req CreateEdgeRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(h.logger, w, err)
		return
	}

	source, err := valueobjects.NewNodeRef(req.Source.ID, valueobjects.NodeType(req.Source.Type))
	if err != nil {
		respondError(h.logger, w, apperrors.NewValidationError(err.Error()))
		return
	}
	target, err := valueobjects.NewNodeRef(req.Target.ID, valueobjects.NodeType(req.Target.Type))
	if err != nil {
		respondError(h.logger, w, apperrors.NewValidationError(err.Error()))
		return
	}

	user, err := requireUser(r)
	if err != nil {
		respondError(h.logger, w, err)
		return
	}

	edge, err := h.graph.CreateEdge(r.Context(), user.TenantID, user.UserID, source, target, entities.EdgeType(req.EdgeType))
	if err != nil {
		respondError(h.logger, w, err)
		return
	}

	if h.metrics != nil {
		h.metrics.EdgesCreated.Inc()
	}
	respondJSON(h.logger, w, http.StatusCreated, toEdgeResponse(edge))
}

// Get handles GET /api/v1/edges/{edgeID}.
func (h *GraphHandler) Get(w http.ResponseWriter, r *http.Request) {
	edgeID, err := pathID(r, "edgeID")
	if err != nil {
		respondError(h.logger, w, err)
		return
	}

	user, err := requireUser(r)
	if err != nil {
		respondError(h.logger, w, err)
		return
	}

	edge, err := h.graph.Get(r.Context(), user.TenantID, edgeID)
	if err != nil {
		respondError(h.logger, w, err)
		return
	}

	respondJSON(h.logger, w, http.StatusOK, toEdgeResponse(edge))
}

// ListByType handles GET /api/v1/edges?type=.
func (h *GraphHandler) ListByType(w http.ResponseWriter, r *http.Request) {
	edgeType := r.URL.Query().Get("type")
	if edgeType == "" {
		respondError(h.logger, w, apperrors.NewValidationError("query parameter type is required"))
		return
	}

	user, err := requireUser(r)
	if err != nil {
		respondError(h.logger, w, err)
		return
	}

	edges, err := h.graph.GetByType(r.Context(), user.TenantID, entities.EdgeType(edgeType))
	if err != nil {
		respondError(h.logger, w, err)
		return
	}

	respondJSON(h.logger, w, http.StatusOK, toEdgeResponses(edges))
}

// GetNodeEdges handles GET /api/v1/nodes/{nodeID}/edges with an optional
// ?direction=out|in|all filter, defaulting to all.
func (h *GraphHandler) GetNodeEdges(w http.ResponseWriter, r *http.Request) {
	nodeID, err := pathID(r, "nodeID")
	if err != nil {
		respondError(h.logger, w, err)
		return
	}

	user, err := requireUser(r)
	if err != nil {
		respondError(h.logger, w, err)
		return
	}

	var edges []*entities.Edge
	direction := r.URL.Query().Get("direction")
	switch direction {
	case "out":
		edges, err = h.graph.GetOutgoing(r.Context(), user.TenantID, nodeID)
	case "in":
		edges, err = h.graph.GetIncoming(r.Context(), user.TenantID, nodeID)
	case "", "all":
		edges, err = h.graph.GetByNode(r.Context(), user.TenantID, nodeID)
	default:
		respondError(h.logger, w, apperrors.NewValidationError(fmt.Sprintf("unknown direction %q, want out, in or all", direction)))
		return
	}
	if err != nil {
		respondError(h.logger, w, err)
		return
	}

	respondJSON(h.logger, w, http.StatusOK, toEdgeResponses(edges))
}

// Delete handles DELETE /api/v1/edges/{edgeID}.
func (h *GraphHandler) Delete(w http.ResponseWriter, r *http.Request) {
	edgeID, err := pathID(r, "edgeID")
	if err != nil {
		respondError(h.logger, w, err)
		return
	}

	user, err := requireUser(r)
	if err != nil {
		respondError(h.logger, w, err)
		return
	}

	if err := h.graph.Delete(r.Context(), user.TenantID, edgeID); err != nil {
		respondError(h.logger, w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// DeleteByNode handles DELETE /api/v1/nodes/{nodeID}/edges: the cascade
// used when the underlying record goes away.
func (h *GraphHandler) DeleteByNode(w http.ResponseWriter, r *http.Request) {
	nodeID, err := pathID(r, "nodeID")
	if err != nil {
		respondError(h.logger, w, err)
		return
	}

	user, err := requireUser(r)
	if err != nil {
		respondError(h.logger, w, err)
		return
	}

	deleted, err := h.graph.DeleteByNode(r.Context(), user.TenantID, nodeID)
	if err != nil {
		respondError(h.logger, w, err)
		return
	}

	respondJSON(h.logger, w, http.StatusOK, DeleteByNodeResponse{Deleted: deleted})
}

// BuildGraph handles GET /api/v1/graph: the whole projection for the
// tenant, nodes derived from edge endpoints.
func (h *GraphHandler) BuildGraph(w http.ResponseWriter, r *http.Request) {
	user, err := requireUser(r)
	if err != nil {
		respondError(h.logger, w, err)
		return
	}

	graph, err := h.graph.BuildGraph(r.Context(), user.TenantID)
	if err != nil {
		respondError(h.logger, w, err)
		return
	}

	nodes := make([]NodeRefResponse, 0, len(graph.Nodes))
	for _, ref := range graph.Nodes {
		nodes = append(nodes, toNodeRefResponse(ref))
	}

	respondJSON(h.logger, w, http.StatusOK, GraphResponse{
		Nodes: nodes,
		Edges: toEdgeResponses(graph.Edges),
	})
}
