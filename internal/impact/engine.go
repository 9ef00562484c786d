package impact

import (
	"context"
	"sort"

	"github.com/rohankatakam/codeimpact/internal/errors"
	"github.com/rohankatakam/codeimpact/internal/graph"
)

// Params are the propagation policy knobs
type Params struct {
	DecayFactor float64 // per-hop attenuation, in (0,1)
	Threshold   float64 // scores at or below this are not propagated
	TopK        int     // candidates considered for critical paths
	TopPaths    int     // critical paths kept
}

// DefaultParams returns decay 0.7, threshold 0.1, K=10, N=5
func DefaultParams() Params {
	return Params{
		DecayFactor: 0.7,
		Threshold:   0.1,
		TopK:        10,
		TopPaths:    5,
	}
}

// Validate checks parameter ranges
func (p Params) Validate() error {
	if p.DecayFactor <= 0 || p.DecayFactor >= 1 {
		return errors.ValidationErrorf("decay factor %.3f must be in (0,1)", p.DecayFactor)
	}
	if p.Threshold < 0 || p.Threshold >= 1 {
		return errors.ValidationErrorf("propagation threshold %.3f must be in [0,1)", p.Threshold)
	}
	if p.TopK < 0 || p.TopPaths < 0 {
		return errors.ValidationErrorf("top_k (%d) and top_paths (%d) must not be negative", p.TopK, p.TopPaths)
	}
	return nil
}

// Engine computes impact over one immutable graph snapshot. It holds no
// mutable state, so concurrent queries are safe.
type Engine struct {
	graph  *graph.DependencyGraph
	params Params
}

// NewEngine creates an engine for g
func NewEngine(g *graph.DependencyGraph, params Params) (*Engine, error) {
	if g == nil {
		return nil, errors.ValidationErrorf("dependency graph is nil")
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &Engine{graph: g, params: params}, nil
}

// Graph returns the snapshot this engine scores against
func (e *Engine) Graph() *graph.DependencyGraph {
	return e.graph
}

// Params returns the propagation parameters
func (e *Engine) Params() Params {
	return e.params
}

type queued struct {
	id    string
	depth int
	score float64
}

// Propagate runs the decaying breadth-first propagation from sourceID and
// returns impacted nodes ranked by score. An unknown source yields no nodes.
func (e *Engine) Propagate(sourceID string, maxDepth int) []ImpactNode {
	if !e.graph.HasNode(sourceID) || maxDepth < 0 {
		return []ImpactNode{}
	}

	visited := make(map[string]bool)
	queue := []queued{{id: sourceID, depth: 0, score: 1.0}}
	var nodes []ImpactNode

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		if visited[cur.id] || cur.depth > maxDepth {
			continue
		}
		visited[cur.id] = true

		node, _ := e.graph.Node(cur.id)
		outDegree := e.graph.OutDegree(cur.id)
		nodes = append(nodes, ImpactNode{
			EntityID:        cur.id,
			Name:            node.Name,
			FilePath:        node.FilePath,
			Kind:            node.Kind,
			Score:           cur.score,
			DirectOutDegree: outDegree,
			ReachableCount:  len(e.graph.Descendants(cur.id)) - outDegree,
			Depth:           cur.depth,
		})

		for _, edge := range e.graph.OutEdges(cur.id) {
			next := cur.score * e.params.DecayFactor * edge.Weight
			if next > e.params.Threshold {
				queue = append(queue, queued{id: edge.To, depth: cur.depth + 1, score: next})
			}
		}
	}

	sort.SliceStable(nodes, func(i, j int) bool {
		if nodes[i].Score != nodes[j].Score {
			return nodes[i].Score > nodes[j].Score
		}
		if nodes[i].Depth != nodes[j].Depth {
			return nodes[i].Depth < nodes[j].Depth
		}
		return nodes[i].EntityID < nodes[j].EntityID
	})
	return nodes
}

// Analyze runs propagation and derives file aggregates, critical paths and
// the impact matrix. A source absent from the graph gives an empty result
// and no error. ctx is checked once; the query itself is bounded by depth
// and threshold.
func (e *Engine) Analyze(ctx context.Context, sourceID string, maxDepth int) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if maxDepth < 0 {
		return nil, errors.ValidationErrorf("max depth %d is negative", maxDepth).
			WithContext("source_id", sourceID)
	}

	result := emptyResult(sourceID, maxDepth, e.graph.Generation())
	if !e.graph.HasNode(sourceID) {
		return result, nil
	}

	result.Nodes = e.Propagate(sourceID, maxDepth)
	result.FileImpacts = AggregateByFile(result.Nodes)
	result.CriticalPaths = CriticalPaths(e.graph, sourceID, result.Nodes, e.params.TopK, e.params.TopPaths)
	result.Matrix = BuildMatrix(e.graph, result.Nodes)
	return result, nil
}
