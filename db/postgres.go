// gatekeeper/db/postgres.go
package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/dev-mohitbeniwal/echo/gatekeeper/config"
	logger "github.com/dev-mohitbeniwal/echo/gatekeeper/logging"
)

var PostgresPool *pgxpool.Pool

var (
	pgxPoolNewWithConfig = pgxpool.NewWithConfig
	postgresRetryDelay   = 2 * time.Second
	postgresPingTimeout  = 2 * time.Second
	postgresSleep        = time.Sleep
)

// InitPostgres opens the pool, retrying until postgres.connectRetries is
// exhausted.
func InitPostgres(ctx context.Context) error {
	pool, err := NewPostgresPool(ctx, config.GetString("postgres.url"), int32(config.GetInt("postgres.maxConns")), config.GetInt("postgres.connectRetries"))
	if err != nil {
		return err
	}
	if config.GetBool("postgres.migrate") {
		if err := ApplySchema(ctx, pool); err != nil {
			pool.Close()
			return err
		}
		logger.Info("Postgres schema applied")
	}
	PostgresPool = pool
	logger.Info("Successfully connected to Postgres")
	return nil
}

func NewPostgresPool(ctx context.Context, dsn string, maxConns int32, retries int) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("invalid postgres url: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}
	cfg.MinConns = 1
	cfg.MaxConnIdleTime = 5 * time.Minute
	if retries < 1 {
		retries = 1
	}

	var lastErr error
	for i := 0; i < retries; i++ {
		pool, err := pgxPoolNewWithConfig(ctx, cfg)
		if err != nil {
			lastErr = err
			postgresSleep(postgresRetryDelay)
			continue
		}
		pingCtx, cancel := context.WithTimeout(ctx, postgresPingTimeout)
		err = pool.Ping(pingCtx)
		cancel()
		if err == nil {
			return pool, nil
		}
		lastErr = err
		pool.Close()
		logger.Warn("Postgres not ready, retrying", zap.Int("attempt", i+1), zap.Error(err))
		postgresSleep(postgresRetryDelay)
	}
	return nil, fmt.Errorf("postgres ping retries exhausted: %w", lastErr)
}

func ClosePostgres() {
	if PostgresPool != nil {
		PostgresPool.Close()
		logger.Info("Postgres pool closed")
	}
}
