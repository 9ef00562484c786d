package graph

import (
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// TransactionConfig defines timeout and metadata for write transactions.
// Metadata is logged by Neo4j in query.log, which labels export traffic.
type TransactionConfig struct {
	Timeout  time.Duration
	Metadata map[string]any
}

// DefaultTransactionConfigs returns configs per operation type
func DefaultTransactionConfigs() map[string]TransactionConfig {
	return map[string]TransactionConfig{
		"export_nodes": {
			Timeout: 5 * time.Minute, // node batches carry body text
			Metadata: map[string]any{
				"operation": "export_nodes",
				"type":      "write",
			},
		},
		"export_edges": {
			Timeout: 2 * time.Minute,
			Metadata: map[string]any{
				"operation": "export_edges",
				"type":      "write",
			},
		},
	}
}

// GetConfigForOperation returns the config for operation, or a 60s default
func GetConfigForOperation(operation string) TransactionConfig {
	if config, ok := DefaultTransactionConfigs()[operation]; ok {
		return config
	}
	return TransactionConfig{
		Timeout: 60 * time.Second,
		Metadata: map[string]any{
			"operation": operation,
			"type":      "unknown",
		},
	}
}

// AsNeo4jConfig converts to Neo4j transaction config functions for ExecuteWrite
func (tc TransactionConfig) AsNeo4jConfig() []func(*neo4j.TransactionConfig) {
	configs := []func(*neo4j.TransactionConfig){}
	if tc.Timeout > 0 {
		configs = append(configs, neo4j.WithTxTimeout(tc.Timeout))
	}
	if len(tc.Metadata) > 0 {
		configs = append(configs, neo4j.WithTxMetadata(tc.Metadata))
	}
	return configs
}

// WithCustomMetadata returns a copy with one extra metadata entry
func (tc TransactionConfig) WithCustomMetadata(key string, value any) TransactionConfig {
	metadata := make(map[string]any, len(tc.Metadata)+1)
	for k, v := range tc.Metadata {
		metadata[k] = v
	}
	metadata[key] = value
	return TransactionConfig{Timeout: tc.Timeout, Metadata: metadata}
}
