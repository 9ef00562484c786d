package graph

import (
	"context"

	"github.com/rohankatakam/codeimpact/internal/models"
)

// Backend is a persistent graph store that mirrors analysis snapshots.
// The in-memory DependencyGraph stays the source of truth for scoring;
// a backend only stores entities and offers reachability lookups.
type Backend interface {
	// UpsertNodes creates or updates nodes keyed by their unique key
	UpsertNodes(ctx context.Context, nodes []GraphNode) error

	// UpsertEdges creates or updates edges between existing nodes
	UpsertEdges(ctx context.Context, edges []GraphEdge) error

	// ReachableWithin returns ids reachable from id in at most hops steps
	// along the given relationship kinds
	ReachableWithin(ctx context.Context, id string, hops int, kinds []models.RelationshipKind) ([]string, error)

	// Close closes the backend connection
	Close(ctx context.Context) error
}

// GraphNode represents a node in the graph store
type GraphNode struct {
	Label      string                 // Node type: "Callable", "Method", "External", etc.
	ID         string                 // Unique identifier for the node
	Properties map[string]interface{} // Node properties, including the unique key
}

// GraphEdge represents an edge in the graph store
type GraphEdge struct {
	Label      string                 // Edge type: "INVOKES", "IMPORTS", "EXTENDS", "DEFINED_IN"
	From       string                 // Source node reference
	To         string                 // Target node reference, "external:<name>" for symbolic targets
	Properties map[string]interface{} // Edge properties
}
