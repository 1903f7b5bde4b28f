// gatekeeper/db/db.go
package db

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"github.com/dev-mohitbeniwal/echo/gatekeeper/config"
	logger "github.com/dev-mohitbeniwal/echo/gatekeeper/logging"
)

var Neo4jDriver neo4j.DriverWithContext

func InitNeo4j(ctx context.Context) error {
	var err error
	uri := config.GetString("neo4j.uri")
	logger.Info("Connecting to Neo4j at URI", zap.String("uri", uri))
	Neo4jDriver, err = neo4j.NewDriverWithContext(
		uri,
		neo4j.BasicAuth(
			config.GetString("neo4j.username"),
			config.GetString("neo4j.password"),
			"",
		),
		func(c *neo4j.Config) {
			c.MaxConnectionLifetime = 30 * time.Minute
			c.MaxConnectionPoolSize = 50
			c.Log = neo4j.ConsoleLogger(neo4j.ERROR)
		},
	)
	if err != nil {
		return fmt.Errorf("failed to create Neo4j driver: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := Neo4jDriver.VerifyConnectivity(ctx); err != nil {
		return fmt.Errorf("failed to connect to Neo4j: %w", err)
	}

	logger.Info("Successfully connected to Neo4j")
	return nil
}

func CloseNeo4j() {
	if Neo4jDriver == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := Neo4jDriver.Close(ctx); err != nil {
		logger.Error("Error closing Neo4j connection", zap.Error(err))
		return
	}
	logger.Info("Neo4j connection closed successfully")
}

// Neo4jRunner runs Cypher against a driver in managed transactions and
// collects the records.
type Neo4jRunner struct {
	Driver neo4j.DriverWithContext
}

func NewNeo4jRunner(driver neo4j.DriverWithContext) *Neo4jRunner {
	return &Neo4jRunner{Driver: driver}
}

// Read executes cypher in a managed read transaction.
func (r *Neo4jRunner) Read(ctx context.Context, cypher string, params map[string]any) ([]*neo4j.Record, error) {
	session := r.Driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, cypher, params)
		if err != nil {
			return nil, err
		}
		return res.Collect(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to execute read transaction: %w", err)
	}

	records, _ := result.([]*neo4j.Record)
	return records, nil
}

// Write executes cypher in a managed write transaction.
func (r *Neo4jRunner) Write(ctx context.Context, cypher string, params map[string]any) ([]*neo4j.Record, error) {
	session := r.Driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	result, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, cypher, params)
		if err != nil {
			return nil, err
		}
		return res.Collect(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to execute write transaction: %w", err)
	}

	records, _ := result.([]*neo4j.Record)
	return records, nil
}
