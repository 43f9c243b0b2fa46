package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/google/uuid"

	"github.com/DoozHub/dooz-pm-suite/domain/core/entities"
	"github.com/DoozHub/dooz-pm-suite/domain/core/valueobjects"
	"github.com/DoozHub/dooz-pm-suite/pkg/errors"
)

func nodeRef(t *testing.T, nodeType valueobjects.NodeType) valueobjects.NodeRef {
	t.Helper()
	ref, err := valueobjects.NewNodeRef(uuid.New().String(), nodeType)
	require.NoError(t, err)
	return ref
}

func TestGraphService_CreateEdge_EndpointsAreAdvisory(t *testing.T) {
	// Arrange: neither endpoint exists anywhere, which is fine
	env := newTestEnv(t)
	source := nodeRef(t, valueobjects.NodeTypeDecision)
	target := nodeRef(t, valueobjects.NodeTypeRisk)

	// Act
	edge, err := env.graphSvc.CreateEdge(context.Background(), testTenant, testUser, source, target, entities.EdgeTypeLedTo)

	// Assert
	require.NoError(t, err)
	assert.NotEmpty(t, edge.ID())
	assert.Equal(t, source, edge.Source())
	assert.Equal(t, target, edge.Target())
	assert.Equal(t, entities.EdgeTypeLedTo, edge.EdgeType())
}

func TestGraphService_CreateEdge_DuplicatesAndCyclesAreLegal(t *testing.T) {
	// Arrange
	env := newTestEnv(t)
	ctx := context.Background()
	a := nodeRef(t, valueobjects.NodeTypeIntent)
	b := nodeRef(t, valueobjects.NodeTypeDecision)

	// Act: same edge twice, plus the reverse direction closing a cycle
	first, err := env.graphSvc.CreateEdge(ctx, testTenant, testUser, a, b, entities.EdgeTypeDependsOn)
	require.NoError(t, err)
	second, err := env.graphSvc.CreateEdge(ctx, testTenant, testUser, a, b, entities.EdgeTypeDependsOn)
	require.NoError(t, err)
	_, err = env.graphSvc.CreateEdge(ctx, testTenant, testUser, b, a, entities.EdgeTypeDependsOn)
	require.NoError(t, err)

	// Assert: three distinct edges
	assert.NotEqual(t, first.ID(), second.ID())
	edges, err := env.graphSvc.GetByNode(ctx, testTenant, a.ID())
	require.NoError(t, err)
	assert.Len(t, edges, 3)
}

func TestGraphService_GetByNode_UnionOfDirections(t *testing.T) {
	// Arrange: a -> b, c -> a, plus an unrelated edge
	env := newTestEnv(t)
	ctx := context.Background()
	a := nodeRef(t, valueobjects.NodeTypeIntent)
	b := nodeRef(t, valueobjects.NodeTypeDecision)
	c := nodeRef(t, valueobjects.NodeTypeAssumption)
	d := nodeRef(t, valueobjects.NodeTypeTask)

	out, err := env.graphSvc.CreateEdge(ctx, testTenant, testUser, a, b, entities.EdgeTypeLedTo)
	require.NoError(t, err)
	in, err := env.graphSvc.CreateEdge(ctx, testTenant, testUser, c, a, entities.EdgeTypeSupports)
	require.NoError(t, err)
	_, err = env.graphSvc.CreateEdge(ctx, testTenant, testUser, c, d, entities.EdgeTypeBlocks)
	require.NoError(t, err)

	// Act
	all, err := env.graphSvc.GetByNode(ctx, testTenant, a.ID())
	require.NoError(t, err)
	outgoing, err := env.graphSvc.GetOutgoing(ctx, testTenant, a.ID())
	require.NoError(t, err)
	incoming, err := env.graphSvc.GetIncoming(ctx, testTenant, a.ID())
	require.NoError(t, err)

	// Assert: union of both directions, nothing else
	ids := func(edges []*entities.Edge) []string {
		out := make([]string, len(edges))
		for i, e := range edges {
			out[i] = e.ID()
		}
		return out
	}
	assert.ElementsMatch(t, []string{out.ID(), in.ID()}, ids(all))
	assert.Equal(t, []string{out.ID()}, ids(outgoing))
	assert.Equal(t, []string{in.ID()}, ids(incoming))
}

func TestGraphService_GetByNode_SelfLoopReportedOnce(t *testing.T) {
	// Arrange
	env := newTestEnv(t)
	ctx := context.Background()
	a := nodeRef(t, valueobjects.NodeTypeRisk)
	_, err := env.graphSvc.CreateEdge(ctx, testTenant, testUser, a, a, entities.EdgeTypeMitigates)
	require.NoError(t, err)

	// Act
	edges, err := env.graphSvc.GetByNode(ctx, testTenant, a.ID())

	// Assert
	require.NoError(t, err)
	assert.Len(t, edges, 1)
}

func TestGraphService_GetByType(t *testing.T) {
	// Arrange
	env := newTestEnv(t)
	ctx := context.Background()
	a := nodeRef(t, valueobjects.NodeTypeIntent)
	b := nodeRef(t, valueobjects.NodeTypeDecision)
	c := nodeRef(t, valueobjects.NodeTypeRisk)
	_, err := env.graphSvc.CreateEdge(ctx, testTenant, testUser, a, b, entities.EdgeTypeLedTo)
	require.NoError(t, err)
	_, err = env.graphSvc.CreateEdge(ctx, testTenant, testUser, b, c, entities.EdgeTypeInvalidates)
	require.NoError(t, err)

	// Act
	ledTo, err := env.graphSvc.GetByType(ctx, testTenant, entities.EdgeTypeLedTo)
	require.NoError(t, err)
	_, badErr := env.graphSvc.GetByType(ctx, testTenant, entities.EdgeType("friends_with"))

	// Assert
	require.Len(t, ledTo, 1)
	assert.Equal(t, entities.EdgeTypeLedTo, ledTo[0].EdgeType())
	assert.True(t, errors.IsValidation(badErr))
}

func TestGraphService_Delete(t *testing.T) {
	// Arrange
	env := newTestEnv(t)
	ctx := context.Background()
	a := nodeRef(t, valueobjects.NodeTypeIntent)
	b := nodeRef(t, valueobjects.NodeTypeDecision)
	edge, err := env.graphSvc.CreateEdge(ctx, testTenant, testUser, a, b, entities.EdgeTypeLedTo)
	require.NoError(t, err)

	// Act
	err = env.graphSvc.Delete(ctx, testTenant, edge.ID())
	require.NoError(t, err)

	// Assert
	_, err = env.graphSvc.Get(ctx, testTenant, edge.ID())
	assert.True(t, errors.IsNotFound(err))
	assert.True(t, errors.IsNotFound(env.graphSvc.Delete(ctx, testTenant, edge.ID())))
}

func TestGraphService_DeleteByNode_Cascades(t *testing.T) {
	// Arrange: three edges touch a, one does not
	env := newTestEnv(t)
	ctx := context.Background()
	a := nodeRef(t, valueobjects.NodeTypeIntent)
	b := nodeRef(t, valueobjects.NodeTypeDecision)
	c := nodeRef(t, valueobjects.NodeTypeTask)

	_, err := env.graphSvc.CreateEdge(ctx, testTenant, testUser, a, b, entities.EdgeTypeLedTo)
	require.NoError(t, err)
	_, err = env.graphSvc.CreateEdge(ctx, testTenant, testUser, c, a, entities.EdgeTypeBlocks)
	require.NoError(t, err)
	_, err = env.graphSvc.CreateEdge(ctx, testTenant, testUser, a, a, entities.EdgeTypeAssumes)
	require.NoError(t, err)
	survivor, err := env.graphSvc.CreateEdge(ctx, testTenant, testUser, b, c, entities.EdgeTypeDependsOn)
	require.NoError(t, err)

	// Act
	deleted, err := env.graphSvc.DeleteByNode(ctx, testTenant, a.ID())

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 3, deleted)

	remaining, err := env.graphSvc.GetByNode(ctx, testTenant, a.ID())
	require.NoError(t, err)
	assert.Empty(t, remaining)

	_, err = env.graphSvc.Get(ctx, testTenant, survivor.ID())
	assert.NoError(t, err, "edges not touching the node survive")
}

func TestGraphService_BuildGraph_NodesDerivedFromEdges(t *testing.T) {
	// Arrange
	env := newTestEnv(t)
	ctx := context.Background()
	a := nodeRef(t, valueobjects.NodeTypeIntent)
	b := nodeRef(t, valueobjects.NodeTypeDecision)
	c := nodeRef(t, valueobjects.NodeTypeRisk)

	_, err := env.graphSvc.CreateEdge(ctx, testTenant, testUser, a, b, entities.EdgeTypeLedTo)
	require.NoError(t, err)
	_, err = env.graphSvc.CreateEdge(ctx, testTenant, testUser, a, c, entities.EdgeTypeDerivedFrom)
	require.NoError(t, err)

	// Act
	graph, err := env.graphSvc.BuildGraph(ctx, testTenant)

	// Assert: each endpoint appears once even though a is on two edges
	require.NoError(t, err)
	assert.Len(t, graph.Edges, 2)
	assert.ElementsMatch(t, []valueobjects.NodeRef{a, b, c}, graph.Nodes)
}

func TestGraphService_BuildGraph_EmptyTenant(t *testing.T) {
	// Arrange
	env := newTestEnv(t)

	// Act
	graph, err := env.graphSvc.BuildGraph(context.Background(), testTenant)

	// Assert
	require.NoError(t, err)
	assert.Empty(t, graph.Nodes)
	assert.Empty(t, graph.Edges)
}

func TestGraphService_SameIDDifferentTypeIsTwoNodes(t *testing.T) {
	// Arrange: one uuid used as both a decision and a risk endpoint
	env := newTestEnv(t)
	ctx := context.Background()
	shared := uuid.New().String()
	asDecision, err := valueobjects.NewNodeRef(shared, valueobjects.NodeTypeDecision)
	require.NoError(t, err)
	asRisk, err := valueobjects.NewNodeRef(shared, valueobjects.NodeTypeRisk)
	require.NoError(t, err)
	other := nodeRef(t, valueobjects.NodeTypeIntent)

	_, err = env.graphSvc.CreateEdge(ctx, testTenant, testUser, other, asDecision, entities.EdgeTypeLedTo)
	require.NoError(t, err)
	_, err = env.graphSvc.CreateEdge(ctx, testTenant, testUser, other, asRisk, entities.EdgeTypeLedTo)
	require.NoError(t, err)

	// Act
	graph, err := env.graphSvc.BuildGraph(ctx, testTenant)

	// Assert
	require.NoError(t, err)
	assert.Len(t, graph.Nodes, 3, "node identity is the (id, type) pair")
}
