package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/DoozHub/dooz-pm-suite/application/ports"
	"github.com/DoozHub/dooz-pm-suite/domain/core/entities"
	"github.com/DoozHub/dooz-pm-suite/domain/core/valueobjects"
	"github.com/DoozHub/dooz-pm-suite/pkg/errors"
)

// Graph is the projection built from the edge store: the distinct endpoints
// and every edge between them. Nodes appear only by being named on an edge;
// entities no edge touches are not part of the graph.
type Graph struct {
	Nodes []valueobjects.NodeRef
	Edges []*entities.Edge
}

// GraphService manages the relationship graph between intents, decisions,
// tasks, assumptions and risks. Edges are advisory: endpoints are never
// checked for existence, duplicates and cycles are legal.
type GraphService struct {
	edges  ports.EdgeRepository
	logger *zap.Logger
}

// NewGraphService creates a new graph service.
func NewGraphService(edges ports.EdgeRepository, logger *zap.Logger) *GraphService {
	return &GraphService{
		edges:  edges,
		logger: logger,
	}
}

// CreateEdge links two nodes with a typed, directed edge.
func (s *GraphService) CreateEdge(ctx context.Context, tenantID, userID string, source, target valueobjects.NodeRef, edgeType entities.EdgeType) (*entities.Edge, error) {
	edge, err := entities.NewEdge(tenantID, source, target, edgeType, userID)
	if err != nil {
		return nil, err
	}

	if err := s.edges.Save(ctx, edge); err != nil {
		return nil, fmt.Errorf("failed to save edge: %w", err)
	}

	s.logger.Debug("edge created",
		zap.String("edgeId", edge.ID()),
		zap.String("tenantId", tenantID),
		zap.String("source", source.Key()),
		zap.String("target", target.Key()),
		zap.String("edgeType", string(edgeType)),
	)
	return edge, nil
}

// Get returns a single edge scoped to the tenant.
func (s *GraphService) Get(ctx context.Context, tenantID, edgeID string) (*entities.Edge, error) {
	return s.edges.GetByID(ctx, tenantID, edgeID)
}

// GetByNode returns every edge touching the node, incoming and outgoing.
// A self-loop is reported once.
func (s *GraphService) GetByNode(ctx context.Context, tenantID, nodeID string) ([]*entities.Edge, error) {
	outgoing, err := s.edges.GetBySource(ctx, tenantID, nodeID)
	if err != nil {
		return nil, fmt.Errorf("failed to load outgoing edges: %w", err)
	}
	incoming, err := s.edges.GetByTarget(ctx, tenantID, nodeID)
	if err != nil {
		return nil, fmt.Errorf("failed to load incoming edges: %w", err)
	}

	seen := make(map[string]bool, len(outgoing))
	union := make([]*entities.Edge, 0, len(outgoing)+len(incoming))
	for _, edge := range outgoing {
		seen[edge.ID()] = true
		union = append(union, edge)
	}
	for _, edge := range incoming {
		if !seen[edge.ID()] {
			union = append(union, edge)
		}
	}
	return union, nil
}

// GetOutgoing returns the edges whose source is the node.
func (s *GraphService) GetOutgoing(ctx context.Context, tenantID, nodeID string) ([]*entities.Edge, error) {
	return s.edges.GetBySource(ctx, tenantID, nodeID)
}

// GetIncoming returns the edges whose target is the node.
func (s *GraphService) GetIncoming(ctx context.Context, tenantID, nodeID string) ([]*entities.Edge, error) {
	return s.edges.GetByTarget(ctx, tenantID, nodeID)
}

// GetByType returns the tenant's edges of one relationship type.
func (s *GraphService) GetByType(ctx context.Context, tenantID string, edgeType entities.EdgeType) ([]*entities.Edge, error) {
	if !edgeType.IsValid() {
		return nil, errors.NewValidationError(fmt.Sprintf("unknown edge type %q", edgeType))
	}
	return s.edges.ListByType(ctx, tenantID, edgeType)
}

// Delete removes a single edge.
func (s *GraphService) Delete(ctx context.Context, tenantID, edgeID string) error {
	if err := s.edges.Delete(ctx, tenantID, edgeID); err != nil {
		return err
	}
	s.logger.Debug("edge deleted",
		zap.String("edgeId", edgeID),
		zap.String("tenantId", tenantID),
	)
	return nil
}

// DeleteByNode removes every edge touching the node and reports how many
// were removed. Used when the underlying entity goes away.
func (s *GraphService) DeleteByNode(ctx context.Context, tenantID, nodeID string) (int, error) {
	deleted, err := s.edges.DeleteByNode(ctx, tenantID, nodeID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete edges for node: %w", err)
	}

	s.logger.Info("node edges deleted",
		zap.String("nodeId", nodeID),
		zap.String("tenantId", tenantID),
		zap.Int("count", deleted),
	)
	return deleted, nil
}

// BuildGraph assembles the tenant's full graph projection from the edge
// store. Node identity is (id, type); the same id under two types is two
// nodes.
func (s *GraphService) BuildGraph(ctx context.Context, tenantID string) (*Graph, error) {
	edges, err := s.edges.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to load edges: %w", err)
	}

	seen := make(map[string]bool)
	nodes := make([]valueobjects.NodeRef, 0, len(edges))
	for _, edge := range edges {
		for _, ref := range []valueobjects.NodeRef{edge.Source(), edge.Target()} {
			if !seen[ref.Key()] {
				seen[ref.Key()] = true
				nodes = append(nodes, ref)
			}
		}
	}

	return &Graph{Nodes: nodes, Edges: edges}, nil
}
