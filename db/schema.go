// gatekeeper/db/schema.go
package db

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Schema creates the catalog, user and lock tables when they are missing.
//
//go:embed schema.sql
var Schema string

// ApplySchema runs Schema against pool.
func ApplySchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}
