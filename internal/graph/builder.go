package graph

import (
	"gonum.org/v1/gonum/graph/simple"

	"github.com/rohankatakam/codeimpact/internal/errors"
	"github.com/rohankatakam/codeimpact/internal/models"
)

// Build materializes a dependency graph from finalized entities and
// relationships. Relationships whose target is not a node are metadata
// only and are skipped. A resolved relationship pointing at a missing node,
// a relationship from a missing node, or a duplicate entity id is a
// pipeline bug and fails the build.
func Build(entities []models.CodeEntity, relationships []models.Relationship, weights WeightTable) (*DependencyGraph, error) {
	if weights == nil {
		weights = DefaultWeights()
	}
	if err := weights.Validate(); err != nil {
		return nil, err
	}

	g := &DependencyGraph{
		nodes: make([]Node, 0, len(entities)),
		index: make(map[string]int, len(entities)),
		out:   make([][]int, 0, len(entities)),
		in:    make([][]int, 0, len(entities)),
		wg:    simple.NewWeightedDirectedGraph(0, 0),
	}

	for _, e := range entities {
		if _, dup := g.index[e.ID]; dup {
			return nil, errors.InternalErrorf("duplicate entity id %s (%s)", e.ID, e.QualifiedName)
		}
		g.index[e.ID] = len(g.nodes)
		g.nodes = append(g.nodes, Node{
			ID:       e.ID,
			Kind:     e.Kind,
			Name:     e.Name,
			FilePath: e.FilePath,
		})
		g.wg.AddNode(simple.Node(int64(len(g.nodes) - 1)))
		g.out = append(g.out, nil)
		g.in = append(g.in, nil)
	}

	seen := make(map[string]bool, len(relationships))
	for _, rel := range relationships {
		from, ok := g.index[rel.SourceID]
		if !ok {
			return nil, errors.InternalErrorf("relationship %s references unknown source", rel.Key()).
				WithContext("source_id", rel.SourceID)
		}

		to, ok := g.index[rel.TargetID]
		if !ok {
			if rel.Resolved {
				return nil, errors.InternalErrorf("resolved relationship %s references unknown target", rel.Key()).
					WithContext("target_id", rel.TargetID)
			}
			g.stats.SymbolicSkipped++
			continue
		}

		weight, ok := weights.Weight(rel.Kind)
		if !ok {
			return nil, errors.InternalErrorf("no weight for relationship kind %q", rel.Kind)
		}

		if seen[rel.Key()] {
			g.stats.DuplicateEdges++
			continue
		}
		seen[rel.Key()] = true

		g.arcs = append(g.arcs, arc{from: from, to: to, kind: rel.Kind, weight: weight})
		idx := len(g.arcs) - 1
		g.out[from] = append(g.out[from], idx)
		g.in[to] = append(g.in[to], idx)
		g.link(from, to, weight)
	}

	g.stats.Nodes = len(g.nodes)
	g.stats.Edges = len(g.arcs)
	g.generation = generationCounter.Add(1)
	return g, nil
}

// link records the strongest weight between two distinct nodes
func (g *DependencyGraph) link(from, to int, weight float64) {
	if from == to {
		return
	}
	if e := g.wg.WeightedEdge(int64(from), int64(to)); e != nil && e.Weight() >= weight {
		return
	}
	g.wg.SetWeightedEdge(g.wg.NewWeightedEdge(simple.Node(int64(from)), simple.Node(int64(to)), weight))
}
