package graph

import (
	"context"
	"fmt"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/rohankatakam/codeimpact/internal/models"
)

// Node labels in the graph store
const (
	LabelEntity         = "Entity" // shared by every analyzed entity, keyed by id
	LabelSourceUnit     = "SourceUnit"
	LabelTypeDefinition = "TypeDefinition"
	LabelCallable       = "Callable"
	LabelMethod         = "Method"
	LabelExternal       = "External" // unresolved symbolic target, keyed by name
)

// Neo4jBackend implements Backend for Neo4j with parameterized Cypher
type Neo4jBackend struct {
	driver   neo4j.DriverWithContext
	database string
	writer   *batchWriter
}

// NewNeo4jBackend creates a Neo4j backend instance and verifies connectivity
func NewNeo4jBackend(ctx context.Context, uri, username, password, database string, batch BatchConfig) (*Neo4jBackend, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, fmt.Errorf("failed to create Neo4j driver: %w", err)
	}

	if err := driver.VerifyConnectivity(ctx); err != nil {
		driver.Close(ctx)
		return nil, fmt.Errorf("failed to connect to Neo4j: %w", err)
	}

	return &Neo4jBackend{
		driver:   driver,
		database: database,
		writer:   newBatchWriter(driverRunner(driver, database), batch),
	}, nil
}

// UpsertNodes writes nodes in UNWIND batches grouped by label
func (n *Neo4jBackend) UpsertNodes(ctx context.Context, nodes []GraphNode) error {
	if len(nodes) == 0 {
		return nil
	}
	return n.writer.writeNodes(ctx, nodes)
}

// UpsertEdges writes edges in UNWIND batches grouped by type
func (n *Neo4jBackend) UpsertEdges(ctx context.Context, edges []GraphEdge) error {
	if len(edges) == 0 {
		return nil
	}
	return n.writer.writeEdges(ctx, edges)
}

// ReachableWithin runs a variable-length read routed to replicas
func (n *Neo4jBackend) ReachableWithin(ctx context.Context, id string, hops int, kinds []models.RelationshipKind) ([]string, error) {
	relTypes := make([]string, 0, len(kinds))
	for _, k := range kinds {
		relTypes = append(relTypes, RelationshipType(k))
	}

	builder := NewCypherBuilder()
	query, err := builder.BuildReachable(LabelEntity, "id", id, relTypes, hops)
	if err != nil {
		return nil, err
	}

	result, err := neo4j.ExecuteQuery(ctx, n.driver, query,
		builder.Params(),
		neo4j.EagerResultTransformer,
		neo4j.ExecuteQueryWithDatabase(n.database),
		neo4j.ExecuteQueryWithReadersRouting())
	if err != nil {
		return nil, fmt.Errorf("reachability query failed: %w", err)
	}

	ids := make([]string, 0, len(result.Records))
	for _, record := range result.Records {
		if v, ok := record.Get("id"); ok {
			if s, ok := v.(string); ok {
				ids = append(ids, s)
			}
		}
	}
	return ids, nil
}

// Close closes the Neo4j driver connection
func (n *Neo4jBackend) Close(ctx context.Context) error {
	return n.driver.Close(ctx)
}

// RelationshipType maps a relationship kind to its Cypher type: invokes -> INVOKES
func RelationshipType(kind models.RelationshipKind) string {
	return strings.ToUpper(string(kind))
}

// NodeLabel maps an entity kind to its node label
func NodeLabel(kind models.EntityKind) string {
	switch kind {
	case models.KindSourceUnit:
		return LabelSourceUnit
	case models.KindTypeDefinition:
		return LabelTypeDefinition
	case models.KindMethod:
		return LabelMethod
	default:
		return LabelCallable
	}
}

// ExternalRef builds the node reference for an unresolved symbolic target
func ExternalRef(name string) string {
	return "external:" + name
}

// parseNodeID splits a node reference into label and key value:
// "external:requests" -> ("External", "requests"); a bare id -> ("Entity", id)
func parseNodeID(nodeID string) (label, id string) {
	if name, ok := strings.CutPrefix(nodeID, "external:"); ok {
		return LabelExternal, name
	}
	return LabelEntity, nodeID
}
