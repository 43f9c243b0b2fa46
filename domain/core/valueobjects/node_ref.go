package valueobjects

import (
	"fmt"

	"github.com/google/uuid"
)

// NodeType enumerates the record kinds a graph edge may point at.
type NodeType string

const (
	NodeTypeIntent     NodeType = "intent"
	NodeTypeDecision   NodeType = "decision"
	NodeTypeTask       NodeType = "task"
	NodeTypeAssumption NodeType = "assumption"
	NodeTypeRisk       NodeType = "risk"
)

// ValidNodeTypes lists every accepted node type.
func ValidNodeTypes() []NodeType {
	return []NodeType{
		NodeTypeIntent,
		NodeTypeDecision,
		NodeTypeTask,
		NodeTypeAssumption,
		NodeTypeRisk,
	}
}

// IsValid reports whether the node type is one of the known kinds.
func (t NodeType) IsValid() bool {
	switch t {
	case NodeTypeIntent, NodeTypeDecision, NodeTypeTask, NodeTypeAssumption, NodeTypeRisk:
		return true
	}
	return false
}

// NodeRef identifies a graph endpoint as an (id, type) pair. It is a value
// object: the referenced record is never dereferenced or checked for
// existence, so edges may legally point at records that are still proposals.
type NodeRef struct {
	id       string
	nodeType NodeType
}

// NewNodeRef builds a node reference, validating shape only.
func NewNodeRef(id string, nodeType NodeType) (NodeRef, error) {
	if id == "" {
		return NodeRef{}, fmt.Errorf("node id cannot be empty")
	}
	if _, err := uuid.Parse(id); err != nil {
		return NodeRef{}, fmt.Errorf("node id must be a valid UUID: %w", err)
	}
	if !nodeType.IsValid() {
		return NodeRef{}, fmt.Errorf("unknown node type %q", nodeType)
	}
	return NodeRef{id: id, nodeType: nodeType}, nil
}

// ID returns the referenced record id.
func (r NodeRef) ID() string {
	return r.id
}

// Type returns the referenced record kind.
func (r NodeRef) Type() NodeType {
	return r.nodeType
}

// Equals checks if two references point at the same record.
func (r NodeRef) Equals(other NodeRef) bool {
	return r.id == other.id && r.nodeType == other.nodeType
}

// Key returns the canonical "type:id" form used for node de-duplication.
func (r NodeRef) Key() string {
	return string(r.nodeType) + ":" + r.id
}

// IsZero checks if the reference is the zero value.
func (r NodeRef) IsZero() bool {
	return r.id == ""
}
