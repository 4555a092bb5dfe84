package graph

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Client wraps the Neo4j driver with query helpers used by the loader,
// the enrichment passes and the migrations.
type Client struct {
	driver   neo4j.DriverWithContext
	logger   *slog.Logger
	database string
}

// NewClient creates a Neo4j client against the default database
func NewClient(ctx context.Context, uri, user, password string) (*Client, error) {
	return NewClientWithDatabase(ctx, uri, user, password, "neo4j")
}

// NewClientWithDatabase creates a Neo4j client with a specific database
func NewClientWithDatabase(ctx context.Context, uri, user, password, database string) (*Client, error) {
	if uri == "" || user == "" || password == "" {
		return nil, fmt.Errorf("neo4j credentials missing: uri=%s, user=%s", uri, user)
	}

	driver, err := neo4j.NewDriverWithContext(uri,
		neo4j.BasicAuth(user, password, ""),
		func(config *neo4j.Config) {
			// Pool sized for a single-user CLI; the defaults target servers
			config.MaxConnectionPoolSize = 50
			config.ConnectionAcquisitionTimeout = 60 * time.Second
			config.MaxConnectionLifetime = 3600 * time.Second
			config.ConnectionLivenessCheckTimeout = 5 * time.Second

			config.SocketConnectTimeout = 5 * time.Second
			config.SocketKeepalive = true
		})
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}

	// Fail fast before any batch work starts
	if err := driver.VerifyConnectivity(ctx); err != nil {
		driver.Close(ctx)
		return nil, fmt.Errorf("failed to connect to neo4j at %s: %w", uri, err)
	}

	logger := slog.Default().With("component", "neo4j")
	logger.Info("neo4j client connected",
		"uri", uri,
		"user", user,
		"database", database)

	return &Client{
		driver:   driver,
		logger:   logger,
		database: database,
	}, nil
}

// Close closes the Neo4j driver connection
func (c *Client) Close(ctx context.Context) error {
	if err := c.driver.Close(ctx); err != nil {
		return fmt.Errorf("failed to close neo4j driver: %w", err)
	}
	c.logger.Info("neo4j client closed")
	return nil
}

// HealthCheck verifies Neo4j connectivity
func (c *Client) HealthCheck(ctx context.Context) error {
	checkCtx, cancel := context.WithTimeout(ctx, GetConfigForOperation("health_check").Timeout)
	defer cancel()

	if err := c.driver.VerifyConnectivity(checkCtx); err != nil {
		return fmt.Errorf("neo4j health check failed: %w", err)
	}
	return nil
}

// ExecuteQuery runs a Cypher query and returns the records as maps.
// Routes to writers; use ExecuteRead for read-only queries.
func (c *Client) ExecuteQuery(ctx context.Context, query string, params map[string]any) ([]map[string]any, error) {
	queryCtx := ctx
	txConfig := GetConfigForOperation("graph_query")
	if txConfig.Timeout > 0 {
		var cancel context.CancelFunc
		queryCtx, cancel = context.WithTimeout(ctx, txConfig.Timeout)
		defer cancel()
	}

	result, err := neo4j.ExecuteQuery(queryCtx, c.driver, query, params,
		neo4j.EagerResultTransformer,
		neo4j.ExecuteQueryWithDatabase(c.database))

	if err != nil {
		return nil, fmt.Errorf("query execution failed: %w", err)
	}

	var records []map[string]any
	for _, record := range result.Records {
		records = append(records, record.AsMap())
	}

	c.logger.Debug("query executed", "record_count", len(records))
	return records, nil
}

// ExecuteRead runs a read-only Cypher query with reader routing
func (c *Client) ExecuteRead(ctx context.Context, query string, params map[string]any) ([]map[string]any, error) {
	queryCtx := ctx
	txConfig := GetConfigForOperation("graph_query")
	if txConfig.Timeout > 0 {
		var cancel context.CancelFunc
		queryCtx, cancel = context.WithTimeout(ctx, txConfig.Timeout)
		defer cancel()
	}

	result, err := neo4j.ExecuteQuery(queryCtx, c.driver, query, params,
		neo4j.EagerResultTransformer,
		neo4j.ExecuteQueryWithDatabase(c.database),
		neo4j.ExecuteQueryWithReadersRouting())

	if err != nil {
		return nil, fmt.Errorf("read query failed: %w", err)
	}

	var records []map[string]any
	for _, record := range result.Records {
		records = append(records, record.AsMap())
	}
	return records, nil
}

// CountQuery runs a query expected to return a single integer column
func (c *Client) CountQuery(ctx context.Context, query string, params map[string]any, column string) (int64, error) {
	queryCtx := ctx
	txConfig := GetConfigForOperation("graph_query")
	if txConfig.Timeout > 0 {
		var cancel context.CancelFunc
		queryCtx, cancel = context.WithTimeout(ctx, txConfig.Timeout)
		defer cancel()
	}

	result, err := neo4j.ExecuteQuery(queryCtx, c.driver, query, params,
		neo4j.EagerResultTransformer,
		neo4j.ExecuteQueryWithDatabase(c.database),
		neo4j.ExecuteQueryWithReadersRouting())

	if err != nil {
		return 0, fmt.Errorf("count query failed: %w", err)
	}

	if len(result.Records) == 0 {
		return 0, nil
	}

	value, ok := result.Records[0].Get(column)
	if !ok {
		return 0, fmt.Errorf("count query returned no %q column", column)
	}

	count, ok := value.(int64)
	if !ok {
		return 0, fmt.Errorf("unexpected type for %q: %T (expected int64)", column, value)
	}
	return count, nil
}

// WriteBatch runs the given statements inside one managed write transaction
func (c *Client) WriteBatch(ctx context.Context, operation string, statements []Statement) error {
	session := c.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: c.database,
	})
	defer session.Close(ctx)

	txConfig := GetConfigForOperation(operation)
	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (interface{}, error) {
		for i, stmt := range statements {
			if _, err := tx.Run(ctx, stmt.Query, stmt.Params); err != nil {
				return nil, fmt.Errorf("batch statement %d failed: %w", i, err)
			}
		}
		return nil, nil
	}, txConfig.AsNeo4jConfig()...)

	return err
}

// Statement is one parameterised Cypher statement in a write batch
type Statement struct {
	Query  string
	Params map[string]any
}

// Driver returns the underlying Neo4j driver
// Used for advanced operations like the vector index
func (c *Client) Driver() neo4j.DriverWithContext {
	return c.driver
}

// Database returns the configured database name
func (c *Client) Database() string {
	return c.database
}
