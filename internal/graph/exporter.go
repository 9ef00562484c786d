package graph

import (
	"context"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/rohankatakam/codeimpact/internal/errors"
	"github.com/rohankatakam/codeimpact/internal/models"
)

// ExportStats counts what an export wrote
type ExportStats struct {
	Nodes         int `json:"nodes" yaml:"nodes"`
	ExternalNodes int `json:"external_nodes" yaml:"external_nodes"`
	Edges         int `json:"edges" yaml:"edges"`
}

// Exporter mirrors an analysis snapshot into a graph store, keyed by entity id
type Exporter struct {
	backend Backend
	logger  *logrus.Logger
}

// NewExporter creates an exporter. logger may be nil.
func NewExporter(backend Backend, logger *logrus.Logger) *Exporter {
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}
	return &Exporter{backend: backend, logger: logger}
}

// Export upserts all entities, then all relationships. Unresolved targets
// become External nodes so the store still records that something was referenced.
func (e *Exporter) Export(ctx context.Context, entities []models.CodeEntity, relationships []models.Relationship) (*ExportStats, error) {
	stats := &ExportStats{}

	nodes := make([]GraphNode, 0, len(entities))
	for _, entity := range entities {
		nodes = append(nodes, EntityNode(entity))
	}

	externals := make(map[string]bool)
	edges := make([]GraphEdge, 0, len(relationships))
	for _, rel := range relationships {
		to := rel.TargetID
		if !rel.Resolved {
			to = ExternalRef(rel.TargetID)
			if !externals[rel.TargetID] {
				externals[rel.TargetID] = true
				nodes = append(nodes, GraphNode{
					Label:      LabelExternal,
					ID:         to,
					Properties: map[string]interface{}{"name": rel.TargetID},
				})
				stats.ExternalNodes++
			}
		}
		edges = append(edges, GraphEdge{
			Label: RelationshipType(rel.Kind),
			From:  rel.SourceID,
			To:    to,
			Properties: map[string]interface{}{
				"line":     rel.Line,
				"resolved": rel.Resolved,
			},
		})
	}

	if err := e.backend.UpsertNodes(ctx, nodes); err != nil {
		return nil, errors.ExternalError(err, "upsert nodes")
	}
	stats.Nodes = len(nodes) - stats.ExternalNodes

	if err := e.backend.UpsertEdges(ctx, edges); err != nil {
		return nil, errors.ExternalError(err, "upsert edges")
	}
	stats.Edges = len(edges)

	e.logger.WithFields(logrus.Fields{
		"nodes":    stats.Nodes,
		"external": stats.ExternalNodes,
		"edges":    stats.Edges,
	}).Info("graph export complete")

	return stats, nil
}

// EntityNode converts an entity into a graph-store node. Attribute values
// are flattened to primitives and string lists.
func EntityNode(entity models.CodeEntity) GraphNode {
	props := map[string]interface{}{
		"id":             entity.ID,
		"kind":           string(entity.Kind),
		"name":           entity.Name,
		"qualified_name": entity.QualifiedName,
		"file_path":      entity.FilePath,
		"language":       entity.Language,
		"start_line":     entity.StartLine,
		"end_line":       entity.EndLine,
		"owner_id":       entity.OwnerID,
		"doc_comment":    entity.DocComment,
		"annotations":    nonNil(entity.Annotations),
		"imported_names": nonNil(entity.ImportedNames),
		"invoked_names":  nonNil(entity.InvokedNames),
	}
	if entity.Kind != models.KindSourceUnit {
		props["body"] = entity.Body
	}

	for key, value := range entity.Attributes {
		switch v := value.(type) {
		case bool, int, int64, float64, string:
			props[key] = v
		default:
			props[key] = nonNil(entity.StringsAttribute(key))
		}
	}

	return GraphNode{
		Label:      NodeLabel(entity.Kind),
		ID:         entity.ID,
		Properties: props,
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
