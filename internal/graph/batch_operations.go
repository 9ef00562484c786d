package graph

import (
	"context"
	"fmt"
	"sort"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// queryRunner executes one parameterized write for an operation name.
// Neo4jBackend supplies the driver-backed implementation; tests supply a recorder.
type queryRunner func(ctx context.Context, operation, query string, params map[string]any) error

// batchWriter groups nodes by label and edges by (type, endpoint labels)
// and writes each group with UNWIND in configured batch sizes.
//
// The UNWIND pattern replaces N MERGE round trips with one per batch:
// UNWIND $nodes AS node MERGE (n:Entity {id: node.id}) SET n += node
type batchWriter struct {
	run    queryRunner
	config BatchConfig
}

func newBatchWriter(run queryRunner, config BatchConfig) *batchWriter {
	return &batchWriter{run: run, config: config}
}

// nodeLabelKey returns the match label and unique key for a node label
func nodeLabelKey(label string) (matchLabel, key string) {
	if label == LabelExternal {
		return LabelExternal, "name"
	}
	return LabelEntity, "id"
}

func (w *batchWriter) writeNodes(ctx context.Context, nodes []GraphNode) error {
	byLabel := make(map[string][]map[string]any)
	for _, node := range nodes {
		byLabel[node.Label] = append(byLabel[node.Label], node.Properties)
	}

	labels := make([]string, 0, len(byLabel))
	for label := range byLabel {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	for _, label := range labels {
		rows := byLabel[label]
		matchLabel, key := nodeLabelKey(label)
		for _, r := range chunk(len(rows), w.config.NodeBatchSize) {
			builder := NewCypherBuilder()
			query, err := builder.BuildUnwindNodes(matchLabel, label, key, rows[r[0]:r[1]])
			if err != nil {
				return err
			}
			if err := w.run(ctx, "export_nodes", query, builder.Params()); err != nil {
				return fmt.Errorf("batch %s node write failed (batch %d-%d): %w", label, r[0], r[1], err)
			}
		}
	}
	return nil
}

type edgeGroup struct {
	relType string
	toLabel string
}

func (w *batchWriter) writeEdges(ctx context.Context, edges []GraphEdge) error {
	groups := make(map[edgeGroup][]map[string]any)
	for _, edge := range edges {
		toLabel, toID := parseNodeID(edge.To)
		_, fromID := parseNodeID(edge.From)
		props := edge.Properties
		if props == nil {
			props = map[string]any{}
		}
		g := edgeGroup{relType: edge.Label, toLabel: toLabel}
		groups[g] = append(groups[g], map[string]any{
			"from":  fromID,
			"to":    toID,
			"props": props,
		})
	}

	keys := make([]edgeGroup, 0, len(groups))
	for g := range groups {
		keys = append(keys, g)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].relType != keys[j].relType {
			return keys[i].relType < keys[j].relType
		}
		return keys[i].toLabel < keys[j].toLabel
	})

	for _, g := range keys {
		rows := groups[g]
		_, toKey := nodeLabelKey(g.toLabel)
		for _, r := range chunk(len(rows), w.config.EdgeBatchSize) {
			builder := NewCypherBuilder()
			query, err := builder.BuildUnwindEdges(LabelEntity, "id", g.toLabel, toKey, g.relType, rows[r[0]:r[1]])
			if err != nil {
				return err
			}
			if err := w.run(ctx, "export_edges", query, builder.Params()); err != nil {
				return fmt.Errorf("batch %s edge write failed (batch %d-%d): %w", g.relType, r[0], r[1], err)
			}
		}
	}
	return nil
}

// driverRunner runs each batch in its own write transaction with the
// operation's timeout and metadata
func driverRunner(driver neo4j.DriverWithContext, database string) queryRunner {
	return func(ctx context.Context, operation, query string, params map[string]any) error {
		txConfig := GetConfigForOperation(operation).WithCustomMetadata("database", database)
		session := driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: database})
		defer session.Close(ctx)

		_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
			result, err := tx.Run(ctx, query, params)
			if err != nil {
				return nil, err
			}
			_, err = result.Consume(ctx)
			return nil, err
		}, txConfig.AsNeo4jConfig()...)
		return err
	}
}
