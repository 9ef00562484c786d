package graph

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rohankatakam/codeimpact/internal/errors"
	"github.com/rohankatakam/codeimpact/internal/models"
)

type fakeBackend struct {
	nodes     []GraphNode
	edges     []GraphEdge
	nodeErr   error
	reachable []string
	reachErr  error
	hops      int
}

func (f *fakeBackend) UpsertNodes(_ context.Context, nodes []GraphNode) error {
	if f.nodeErr != nil {
		return f.nodeErr
	}
	f.nodes = append(f.nodes, nodes...)
	return nil
}

func (f *fakeBackend) UpsertEdges(_ context.Context, edges []GraphEdge) error {
	f.edges = append(f.edges, edges...)
	return nil
}

func (f *fakeBackend) ReachableWithin(_ context.Context, _ string, hops int, _ []models.RelationshipKind) ([]string, error) {
	f.hops = hops
	return f.reachable, f.reachErr
}

func (f *fakeBackend) Close(context.Context) error { return nil }

func TestExporter_Export(t *testing.T) {
	unit := models.CodeEntity{ID: "u", Kind: models.KindSourceUnit, Name: "a.py", FilePath: "a.py", Body: "big"}
	fn := models.CodeEntity{ID: "f", Kind: models.KindCallable, Name: "run", FilePath: "a.py", OwnerID: "u", Body: "def run(): pass"}
	fn.SetAttribute(models.AttrParameters, []any{"x", "y"})
	fn.SetAttribute(models.AttrIsAsync, true)

	rels := []models.Relationship{
		{SourceID: "u", TargetID: "requests", Kind: models.RelImports, Line: 1},
		{SourceID: "f", TargetID: "requests", Kind: models.RelInvokes, Line: 2},
		{SourceID: "f", TargetID: "u", Kind: models.RelInvokes, Line: 3, Resolved: true},
	}

	backend := &fakeBackend{}
	stats, err := NewExporter(backend, nil).Export(context.Background(), []models.CodeEntity{unit, fn}, rels)
	require.NoError(t, err)

	assert.Equal(t, 2, stats.Nodes)
	assert.Equal(t, 1, stats.ExternalNodes)
	assert.Equal(t, 3, stats.Edges)

	require.Len(t, backend.nodes, 3)
	assert.Equal(t, LabelSourceUnit, backend.nodes[0].Label)
	assert.NotContains(t, backend.nodes[0].Properties, "body")
	assert.Equal(t, LabelCallable, backend.nodes[1].Label)
	assert.Equal(t, []string{"x", "y"}, backend.nodes[1].Properties["parameters"])
	assert.Equal(t, true, backend.nodes[1].Properties["is_async"])
	assert.Equal(t, LabelExternal, backend.nodes[2].Label)

	assert.Equal(t, "IMPORTS", backend.edges[0].Label)
	assert.Equal(t, ExternalRef("requests"), backend.edges[0].To)
	assert.Equal(t, "u", backend.edges[2].To)
}

func TestExporter_BackendFailure(t *testing.T) {
	backend := &fakeBackend{nodeErr: stderrors.New("connection refused")}
	_, err := NewExporter(backend, nil).Export(context.Background(), nil, nil)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeExternal))
}
