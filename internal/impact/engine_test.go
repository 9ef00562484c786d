package impact

import (
	"context"
	"fmt"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rohankatakam/codeimpact/internal/errors"
	"github.com/rohankatakam/codeimpact/internal/graph"
	"github.com/rohankatakam/codeimpact/internal/models"
)

type edgeSpec struct {
	from, to string
	kind     models.RelationshipKind
}

// buildGraph creates a graph whose entity ids double as names; files maps id -> file
func buildGraph(t *testing.T, files map[string]string, edges []edgeSpec) *graph.DependencyGraph {
	t.Helper()
	var entities []models.CodeEntity
	for _, id := range sortedKeys(files) {
		entities = append(entities, models.CodeEntity{
			ID: id, Kind: models.KindCallable, Name: id,
			QualifiedName: files[id] + "::" + id, FilePath: files[id],
		})
	}
	var rels []models.Relationship
	for _, e := range edges {
		rels = append(rels, models.Relationship{SourceID: e.from, TargetID: e.to, Kind: e.kind, Resolved: true})
	}
	g, err := graph.Build(entities, rels, nil)
	require.NoError(t, err)
	return g
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// twoFiles: A(f1) -invokes-> B(f2), A -extends-> C(f2), B -imports-> D(f1)
func twoFiles(t *testing.T) *graph.DependencyGraph {
	return buildGraph(t,
		map[string]string{"A": "f1", "B": "f2", "C": "f2", "D": "f1"},
		[]edgeSpec{
			{"A", "B", models.RelInvokes},
			{"A", "C", models.RelExtends},
			{"B", "D", models.RelImports},
		})
}

func newEngine(t *testing.T, g *graph.DependencyGraph) *Engine {
	t.Helper()
	e, err := NewEngine(g, DefaultParams())
	require.NoError(t, err)
	return e
}

func scores(nodes []ImpactNode) map[string]float64 {
	out := make(map[string]float64, len(nodes))
	for _, n := range nodes {
		out[n.EntityID] = n.Score
	}
	return out
}

func TestPropagate_DecaysAlongChain(t *testing.T) {
	g := buildGraph(t,
		map[string]string{"A": "a.py", "B": "b.py", "C": "c.py"},
		[]edgeSpec{{"A", "B", models.RelInvokes}, {"B", "C", models.RelInvokes}})

	nodes := newEngine(t, g).Propagate("A", 10)
	require.Len(t, nodes, 3)

	got := scores(nodes)
	assert.Equal(t, 1.0, got["A"])
	assert.InDelta(t, 0.63, got["B"], 1e-9)
	assert.InDelta(t, 0.3969, got["C"], 1e-9)

	assert.Equal(t, []string{"A", "B", "C"}, []string{nodes[0].EntityID, nodes[1].EntityID, nodes[2].EntityID})
	assert.Equal(t, 2, nodes[2].Depth)
}

func TestPropagate_Bounds(t *testing.T) {
	chain := map[string]string{}
	var edges []edgeSpec
	for i := 0; i < 7; i++ {
		chain[fmt.Sprintf("n%d", i)] = "chain.py"
		if i > 0 {
			edges = append(edges, edgeSpec{fmt.Sprintf("n%d", i-1), fmt.Sprintf("n%d", i), models.RelInvokes})
		}
	}
	g := buildGraph(t, chain, edges)
	engine := newEngine(t, g)

	tests := []struct {
		name     string
		source   string
		maxDepth int
		want     int
	}{
		{"threshold stops propagation", "n0", 10, 5},
		{"depth limit", "n0", 1, 2},
		{"depth zero is the source alone", "n0", 0, 1},
		{"missing source", "nope", 10, 0},
		{"negative depth", "n0", -1, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nodes := engine.Propagate(tt.source, tt.maxDepth)
			assert.Len(t, nodes, tt.want)
			for _, n := range nodes {
				assert.LessOrEqual(t, n.Depth, tt.maxDepth)
				if n.Depth > 0 {
					assert.Greater(t, n.Score, DefaultParams().Threshold)
				}
			}
		})
	}
}

func TestPropagate_CycleTerminates(t *testing.T) {
	g := buildGraph(t,
		map[string]string{"A": "a.py", "B": "b.py"},
		[]edgeSpec{{"A", "B", models.RelInvokes}, {"B", "A", models.RelInvokes}})

	nodes := newEngine(t, g).Propagate("A", 50)
	require.Len(t, nodes, 2)
	assert.Equal(t, "A", nodes[0].EntityID)
	assert.Equal(t, 1.0, nodes[0].Score)
}

func TestPropagate_RankingAndDegrees(t *testing.T) {
	nodes := newEngine(t, twoFiles(t)).Propagate("A", 10)
	require.Len(t, nodes, 4)

	var order []string
	for i, n := range nodes {
		order = append(order, n.EntityID)
		if i > 0 {
			assert.LessOrEqual(t, n.Score, nodes[i-1].Score)
		}
	}
	assert.Equal(t, []string{"A", "C", "B", "D"}, order)

	assert.Equal(t, 2, nodes[0].DirectOutDegree)
	assert.Equal(t, 1, nodes[0].ReachableCount)
	assert.InDelta(t, 0.3528, nodes[3].Score, 1e-9)
	assert.Equal(t, models.KindCallable, nodes[0].Kind)
	assert.Equal(t, "f1", nodes[0].FilePath)
}

func TestAnalyze(t *testing.T) {
	engine := newEngine(t, twoFiles(t))
	result, err := engine.Analyze(context.Background(), "A", 10)
	require.NoError(t, err)

	assert.Equal(t, "A", result.SourceID)
	assert.Equal(t, 10, result.MaxDepth)
	assert.Equal(t, engine.Graph().Generation(), result.Generation)

	t.Run("file aggregation is the member mean", func(t *testing.T) {
		require.Len(t, result.FileImpacts, 2)
		assert.Equal(t, "f2", result.FileImpacts[0].FilePath)
		assert.InDelta(t, (0.63+0.7)/2, result.FileImpacts[0].Score, 1e-9)
		assert.Equal(t, 2, result.FileImpacts[0].Entities)
		assert.InDelta(t, (1.0+0.3528)/2, result.FileImpactMap()["f1"], 1e-9)
	})

	t.Run("critical paths ranked by weight product", func(t *testing.T) {
		require.Len(t, result.CriticalPaths, 3)
		assert.Equal(t, "C", result.CriticalPaths[0].Target)
		assert.Equal(t, []string{"A", "C"}, result.CriticalPaths[0].Nodes)
		assert.InDelta(t, 1.0, result.CriticalPaths[0].Score, 1e-9)
		assert.Equal(t, "B", result.CriticalPaths[1].Target)
		assert.InDelta(t, 0.9, result.CriticalPaths[1].Score, 1e-9)
		assert.Equal(t, []string{"A", "B", "D"}, result.CriticalPaths[2].Nodes)
		assert.InDelta(t, 0.72, result.CriticalPaths[2].Score, 1e-9)
	})

	t.Run("matrix", func(t *testing.T) {
		m := result.Matrix
		assert.Equal(t, []string{"f1", "f2"}, m.Files)
		require.Len(t, m.Values, 2)
		assert.InDelta(t, 1.3528, m.Values[0][0], 1e-9)
		assert.InDelta(t, 1.33, m.Values[1][1], 1e-9)
		assert.InDelta(t, 1.9, m.Values[0][1], 1e-9)
		assert.InDelta(t, 0.8, m.Values[1][0], 1e-9)
	})

	t.Run("node lookup", func(t *testing.T) {
		n, ok := result.Node("B")
		require.True(t, ok)
		assert.Equal(t, 1, n.Depth)
		_, ok = result.Node("zzz")
		assert.False(t, ok)
	})
}

func TestAnalyze_EdgeCases(t *testing.T) {
	engine := newEngine(t, twoFiles(t))

	t.Run("missing source is empty", func(t *testing.T) {
		result, err := engine.Analyze(context.Background(), "missing", 3)
		require.NoError(t, err)
		assert.Empty(t, result.Nodes)
		assert.Empty(t, result.FileImpacts)
		assert.Empty(t, result.CriticalPaths)
		assert.Empty(t, result.Matrix.Files)
	})

	t.Run("negative depth", func(t *testing.T) {
		_, err := engine.Analyze(context.Background(), "A", -1)
		require.Error(t, err)
		assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
	})

	t.Run("isolated source impacts only itself", func(t *testing.T) {
		result, err := engine.Analyze(context.Background(), "D", 5)
		require.NoError(t, err)
		require.Len(t, result.Nodes, 1)
		assert.Equal(t, 1.0, result.Nodes[0].Score)
		assert.Empty(t, result.CriticalPaths)
		assert.Equal(t, [][]float64{{1.0}}, result.Matrix.Values)
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := engine.Analyze(ctx, "A", 3)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestParams_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Params)
		wantErr bool
	}{
		{"defaults", func(*Params) {}, false},
		{"decay zero", func(p *Params) { p.DecayFactor = 0 }, true},
		{"decay one", func(p *Params) { p.DecayFactor = 1 }, true},
		{"negative threshold", func(p *Params) { p.Threshold = -0.1 }, true},
		{"negative top k", func(p *Params) { p.TopK = -1 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultParams()
			tt.mutate(&p)
			err := p.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}

	_, err := NewEngine(nil, DefaultParams())
	assert.Error(t, err)
}

func TestCriticalPaths_Limits(t *testing.T) {
	g := twoFiles(t)
	nodes := newEngine(t, g).Propagate("A", 10)

	paths := CriticalPaths(g, "A", nodes, 1, 5)
	require.Len(t, paths, 1)
	assert.Equal(t, "C", paths[0].Target)

	paths = CriticalPaths(g, "A", nodes, 10, 2)
	assert.Len(t, paths, 2)
}

func TestSummarize(t *testing.T) {
	result, err := newEngine(t, twoFiles(t)).Analyze(context.Background(), "A", 10)
	require.NoError(t, err)

	s := Summarize(result, 1)
	assert.Equal(t, 4, s.TotalImpactedNodes)
	assert.Equal(t, 2, s.TotalImpactedFiles)
	require.Len(t, s.TopFiles, 1)
	assert.Equal(t, "f2", s.TopFiles[0].FilePath)
	assert.Len(t, s.CriticalPaths, 3)
	assert.Equal(t, Distribution{High: 1, Medium: 3, Low: 0}, s.Distribution)

	for score, want := range map[float64]string{0.71: "high", 0.7: "medium", 0.31: "medium", 0.3: "low", 0: "low"} {
		assert.Equal(t, want, Bucket(score), "score %.2f", score)
	}
}
