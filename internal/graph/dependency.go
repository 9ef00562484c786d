package graph

import (
	"math"
	"sort"
	"sync/atomic"

	gonum "gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/traverse"

	"github.com/rohankatakam/codeimpact/internal/models"
)

// generationCounter gives every built graph a distinct snapshot identity
var generationCounter atomic.Uint64

// Node is one entity in the dependency graph
type Node struct {
	ID       string            `json:"id"`
	Kind     models.EntityKind `json:"kind"`
	Name     string            `json:"name"`
	FilePath string            `json:"file_path"`
}

// Edge is a weighted, typed edge between two nodes
type Edge struct {
	From   string                  `json:"from"`
	To     string                  `json:"to"`
	Kind   models.RelationshipKind `json:"kind"`
	Weight float64                 `json:"weight"`
}

// arc is the arena form of an edge: node indexes instead of ids
type arc struct {
	from, to int
	kind     models.RelationshipKind
	weight   float64
}

// BuildStats summarizes graph construction
type BuildStats struct {
	Nodes           int `json:"nodes" yaml:"nodes"`
	Edges           int `json:"edges" yaml:"edges"`
	SymbolicSkipped int `json:"symbolic_skipped" yaml:"symbolic_skipped"`
	DuplicateEdges  int `json:"duplicate_edges" yaml:"duplicate_edges"`
}

// DependencyGraph is an immutable directed weighted graph. Nodes live in a
// flat arena addressed by index, and the arena index is also the node's
// int64 id in the gonum graph used for reachability and path queries.
// out and in keep arc indexes in insertion order: gonum iterates
// neighbours in map order, so every order-sensitive query reads them.
// Safe for concurrent reads.
type DependencyGraph struct {
	nodes []Node
	index map[string]int
	arcs  []arc
	out   [][]int
	in    [][]int

	// one edge per ordered node pair carrying the strongest arc weight;
	// self-loops are kept in arcs only
	wg *simple.WeightedDirectedGraph

	generation uint64
	stats      BuildStats
}

// Generation identifies this snapshot; a rebuilt graph gets a new one
func (g *DependencyGraph) Generation() uint64 {
	return g.generation
}

// Stats returns construction statistics
func (g *DependencyGraph) Stats() BuildStats {
	return g.stats
}

// HasNode reports whether id is a node
func (g *DependencyGraph) HasNode(id string) bool {
	_, ok := g.index[id]
	return ok
}

// Node returns the node for id
func (g *DependencyGraph) Node(id string) (Node, bool) {
	i, ok := g.index[id]
	if !ok {
		return Node{}, false
	}
	return g.nodes[i], true
}

// Nodes returns every node in insertion order
func (g *DependencyGraph) Nodes() []Node {
	out := make([]Node, len(g.nodes))
	copy(out, g.nodes)
	return out
}

// Edges returns every edge in insertion order
func (g *DependencyGraph) Edges() []Edge {
	out := make([]Edge, len(g.arcs))
	for i, a := range g.arcs {
		out[i] = g.edge(a)
	}
	return out
}

func (g *DependencyGraph) edge(a arc) Edge {
	return Edge{From: g.nodes[a.from].ID, To: g.nodes[a.to].ID, Kind: a.kind, Weight: a.weight}
}

// NodeCount returns the number of nodes
func (g *DependencyGraph) NodeCount() int {
	return len(g.nodes)
}

// EdgeCount returns the number of edges
func (g *DependencyGraph) EdgeCount() int {
	return len(g.arcs)
}

// OutEdges returns the outgoing edges of id in insertion order
func (g *DependencyGraph) OutEdges(id string) []Edge {
	i, ok := g.index[id]
	if !ok {
		return nil
	}
	out := make([]Edge, 0, len(g.out[i]))
	for _, a := range g.out[i] {
		out = append(out, g.edge(g.arcs[a]))
	}
	return out
}

// Successors returns the distinct direct successors of id
func (g *DependencyGraph) Successors(id string) []string {
	i, ok := g.index[id]
	if !ok {
		return nil
	}
	return g.neighbors(i, g.out, func(a arc) int { return a.to })
}

// Predecessors returns the distinct direct predecessors of id
func (g *DependencyGraph) Predecessors(id string) []string {
	i, ok := g.index[id]
	if !ok {
		return nil
	}
	return g.neighbors(i, g.in, func(a arc) int { return a.from })
}

func (g *DependencyGraph) neighbors(i int, adj [][]int, end func(arc) int) []string {
	seen := make(map[int]bool, len(adj[i]))
	var out []string
	for _, a := range adj[i] {
		n := end(g.arcs[a])
		if seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, g.nodes[n].ID)
	}
	return out
}

// OutDegree returns the number of distinct direct successors
func (g *DependencyGraph) OutDegree(id string) int {
	return len(g.Successors(id))
}

// Descendants returns every node reachable from id, excluding id itself,
// in node insertion order
func (g *DependencyGraph) Descendants(id string) []string {
	return g.reach(id, g.wg, nil)
}

// DescendantsWithin returns the nodes reachable from id in at most hops
// steps, excluding id itself, in node insertion order
func (g *DependencyGraph) DescendantsWithin(id string, hops int) []string {
	if hops < 1 {
		return nil
	}
	// the walk is level ordered and marks children when they are queued, so
	// stopping at the first node of depth hops has seen every node within it
	return g.reach(id, g.wg, func(_ gonum.Node, depth int) bool { return depth >= hops })
}

// Ancestors returns every node that can reach id, excluding id itself, in
// node insertion order
func (g *DependencyGraph) Ancestors(id string) []string {
	return g.reach(id, hopView{g: g.wg, reverse: true}, nil)
}

func (g *DependencyGraph) reach(id string, view traverse.Graph, until func(gonum.Node, int) bool) []string {
	start, ok := g.index[id]
	if !ok {
		return nil
	}
	var found []int
	bf := traverse.BreadthFirst{
		Visit: func(n gonum.Node) {
			if n.ID() != int64(start) {
				found = append(found, int(n.ID()))
			}
		},
	}
	bf.Walk(view, simple.Node(int64(start)), until)

	sort.Ints(found)
	out := make([]string, len(found))
	for i, n := range found {
		out[i] = g.nodes[n].ID
	}
	return out
}

// EdgeWeight returns the strongest weight among edges from -> to
func (g *DependencyGraph) EdgeWeight(from, to string) (float64, bool) {
	i, ok := g.index[from]
	if !ok {
		return 0, false
	}
	j, ok := g.index[to]
	if !ok {
		return 0, false
	}
	if i == j {
		best, found := 0.0, false
		for _, a := range g.out[i] {
			if g.arcs[a].to == j && (!found || g.arcs[a].weight > best) {
				best, found = g.arcs[a].weight, true
			}
		}
		return best, found
	}
	e := g.wg.WeightedEdge(int64(i), int64(j))
	if e == nil {
		return 0, false
	}
	return e.Weight(), true
}

// ShortestPath returns the fewest-hop path from -> to, inclusive of both
// ends, or nil when to is unreachable. Among equally short paths the one
// taking the earliest-inserted edge at each step wins.
func (g *DependencyGraph) ShortestPath(from, to string) []string {
	start, ok := g.index[from]
	if !ok {
		return nil
	}
	goal, ok := g.index[to]
	if !ok {
		return nil
	}
	if start == goal {
		return []string{from}
	}

	// hop distance of every node to goal, searched on the reversed graph
	toGoal := path.DijkstraFrom(simple.Node(int64(goal)), hopView{g: g.wg, reverse: true})
	remaining := toGoal.WeightTo(int64(start))
	if math.IsInf(remaining, 1) {
		return nil
	}

	hops := []string{from}
	for cur := start; cur != goal; {
		next := -1
		for _, a := range g.out[cur] {
			n := g.arcs[a].to
			if n != cur && toGoal.WeightTo(int64(n)) == remaining-1 {
				next = n
				break
			}
		}
		if next < 0 {
			return nil
		}
		hops = append(hops, g.nodes[next].ID)
		cur, remaining = next, remaining-1
	}
	return hops
}

// hopView exposes the graph without weights so path searches count hops,
// optionally with every edge reversed
type hopView struct {
	g       *simple.WeightedDirectedGraph
	reverse bool
}

func (v hopView) From(id int64) gonum.Nodes {
	if v.reverse {
		return v.g.To(id)
	}
	return v.g.From(id)
}

func (v hopView) Edge(uid, vid int64) gonum.Edge {
	if v.reverse {
		uid, vid = vid, uid
	}
	return v.g.Edge(uid, vid)
}
