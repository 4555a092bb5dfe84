package graph

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGetConfigForOperation(t *testing.T) {
	load := GetConfigForOperation("graph_load")
	assert.Equal(t, 3*time.Minute, load.Timeout)
	assert.Equal(t, "write", load.Metadata["type"])
	assert.Equal(t, "graph_load", load.Metadata["operation"])

	query := GetConfigForOperation("graph_query")
	assert.Equal(t, 30*time.Second, query.Timeout)
	assert.Equal(t, "read", query.Metadata["type"])

	// Unknown operations get the fallback, tagged with their own name
	unknown := GetConfigForOperation("bulk_delete")
	assert.Equal(t, 60*time.Second, unknown.Timeout)
	assert.Equal(t, "bulk_delete", unknown.Metadata["operation"])
	assert.Equal(t, "unknown", unknown.Metadata["type"])
}

func TestAsNeo4jConfig(t *testing.T) {
	full := GetConfigForOperation("migration")
	assert.Len(t, full.AsNeo4jConfig(), 2)

	empty := TransactionConfig{}
	assert.Empty(t, empty.AsNeo4jConfig())
}
