package graph

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGetConfigForOperation(t *testing.T) {
	nodes := GetConfigForOperation("export_nodes")
	assert.Equal(t, 5*time.Minute, nodes.Timeout)
	assert.Equal(t, "export_nodes", nodes.Metadata["operation"])

	unknown := GetConfigForOperation("reachable")
	assert.Equal(t, 60*time.Second, unknown.Timeout)
	assert.Equal(t, "unknown", unknown.Metadata["type"])
	assert.Len(t, unknown.AsNeo4jConfig(), 2)
}

func TestWithCustomMetadata(t *testing.T) {
	base := GetConfigForOperation("export_edges")
	tagged := base.WithCustomMetadata("database", "neo4j")

	assert.Equal(t, "neo4j", tagged.Metadata["database"])
	assert.Equal(t, base.Timeout, tagged.Timeout)
	_, leaked := base.Metadata["database"]
	assert.False(t, leaked)
}
