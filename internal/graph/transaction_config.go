package graph

import (
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// TransactionConfig defines timeout and metadata for one class of Neo4j
// transaction. The metadata is logged by Neo4j and shows up in query.log,
// which is how slow batches get attributed to an operation.
type TransactionConfig struct {
	Timeout  time.Duration
	Metadata map[string]any
}

// DefaultTransactionConfigs returns the per-operation transaction configs.
func DefaultTransactionConfigs() map[string]TransactionConfig {
	return map[string]TransactionConfig{
		// Node and relationship batches from the extractor
		"graph_load": {
			Timeout: 3 * time.Minute, // thousands of MERGE statements per run
			Metadata: map[string]any{
				"operation": "graph_load",
				"type":      "write",
			},
		},

		// Read queries: stats, queue lookups, vector search
		"graph_query": {
			Timeout: 30 * time.Second,
			Metadata: map[string]any{
				"operation": "graph_query",
				"type":      "read",
			},
		},

		// Schema migrations rewrite every edge of a type
		"migration": {
			Timeout: 10 * time.Minute,
			Metadata: map[string]any{
				"operation": "migration",
				"type":      "write",
			},
		},

		// Enrichment writes touch single nodes but run in large batches
		"enrichment_update": {
			Timeout: 60 * time.Second,
			Metadata: map[string]any{
				"operation": "enrichment_update",
				"type":      "write",
			},
		},

		// Vector index creation blocks until the index is online
		"vector_index": {
			Timeout: 5 * time.Minute,
			Metadata: map[string]any{
				"operation": "vector_index",
				"type":      "schema",
			},
		},

		"health_check": {
			Timeout: 5 * time.Second,
			Metadata: map[string]any{
				"operation": "health_check",
				"type":      "read",
			},
		},
	}
}

// AsNeo4jConfig converts to Neo4j transaction config functions for use with
// ExecuteWrite. ExecuteQuery has no per-query config; callers apply the
// timeout through context.WithTimeout instead.
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

// GetConfigForOperation retrieves the transaction config for an operation,
// falling back to a 60 second default for unknown names.
func GetConfigForOperation(operation string) TransactionConfig {
	configs := DefaultTransactionConfigs()
	if config, ok := configs[operation]; ok {
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
