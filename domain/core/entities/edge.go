package entities

import (
	"time"

	"github.com/google/uuid"

	"github.com/DoozHub/dooz-pm-suite/domain/core/valueobjects"
	"github.com/DoozHub/dooz-pm-suite/pkg/errors"
)

// EdgeType is the semantic relationship an edge asserts.
type EdgeType string

const (
	EdgeTypeLedTo       EdgeType = "led_to"
	EdgeTypeDependsOn   EdgeType = "depends_on"
	EdgeTypeInvalidates EdgeType = "invalidates"
	EdgeTypeSupports    EdgeType = "supports"
	EdgeTypeBlocks      EdgeType = "blocks"
	EdgeTypeDerivedFrom EdgeType = "derived_from"
	EdgeTypeMitigates   EdgeType = "mitigates"
	EdgeTypeAssumes     EdgeType = "assumes"
)

func (t EdgeType) IsValid() bool {
	switch t {
	case EdgeTypeLedTo, EdgeTypeDependsOn, EdgeTypeInvalidates, EdgeTypeSupports,
		EdgeTypeBlocks, EdgeTypeDerivedFrom, EdgeTypeMitigates, EdgeTypeAssumes:
		return true
	}
	return false
}

// Edge is one directed, typed relationship in the knowledge graph. The
// graph is advisory: endpoints are never checked against the record stores,
// so an edge may reference a record that only exists as a proposal. Edges
// are not deduplicated and cycles are legal.
type Edge struct {
	id        string
	tenantID  string
	source    valueobjects.NodeRef
	target    valueobjects.NodeRef
	edgeType  EdgeType
	createdBy string
	createdAt time.Time
}

// NewEdge creates an edge between two node references.
func NewEdge(tenantID string, source, target valueobjects.NodeRef, edgeType EdgeType, createdBy string) (*Edge, error) {
	if tenantID == "" {
		return nil, errors.NewValidationError("tenant id is required")
	}
	if source.IsZero() || target.IsZero() {
		return nil, errors.NewValidationError("edge requires source and target nodes")
	}
	if !edgeType.IsValid() {
		return nil, errors.NewValidationError("unknown edge type: " + string(edgeType))
	}
	if createdBy == "" {
		return nil, errors.NewValidationError("created by is required")
	}

	return &Edge{
		id:        uuid.New().String(),
		tenantID:  tenantID,
		source:    source,
		target:    target,
		edgeType:  edgeType,
		createdBy: createdBy,
		createdAt: time.Now().UTC(),
	}, nil
}

// ReconstructEdge rebuilds an edge from persistence.
func ReconstructEdge(id, tenantID string, source, target valueobjects.NodeRef, edgeType EdgeType, createdBy string, createdAt time.Time) *Edge {
	return &Edge{
		id:        id,
		tenantID:  tenantID,
		source:    source,
		target:    target,
		edgeType:  edgeType,
		createdBy: createdBy,
		createdAt: createdAt,
	}
}

func (e *Edge) ID() string                    { return e.id }
func (e *Edge) TenantID() string              { return e.tenantID }
func (e *Edge) Source() valueobjects.NodeRef  { return e.source }
func (e *Edge) Target() valueobjects.NodeRef  { return e.target }
func (e *Edge) EdgeType() EdgeType            { return e.edgeType }
func (e *Edge) CreatedBy() string             { return e.createdBy }
func (e *Edge) CreatedAt() time.Time          { return e.createdAt }

// Touches reports whether the node is either endpoint of this edge.
func (e *Edge) Touches(nodeID string) bool {
	return e.source.ID() == nodeID || e.target.ID() == nodeID
}
