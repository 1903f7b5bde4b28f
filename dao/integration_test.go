//go:build integration

package dao_test

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"golang.org/x/crypto/bcrypt"

	"github.com/dev-mohitbeniwal/echo/gatekeeper/dao"
	"github.com/dev-mohitbeniwal/echo/gatekeeper/db"
	sec_errors "github.com/dev-mohitbeniwal/echo/gatekeeper/errors"
	"github.com/dev-mohitbeniwal/echo/gatekeeper/model"
	pdp_dao "github.com/dev-mohitbeniwal/echo/gatekeeper/pdp/dao"
	pdp_model "github.com/dev-mohitbeniwal/echo/gatekeeper/pdp/model"
)

// Run with: go test -tags=integration ./dao/...
func startPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("yada"),
		postgres.WithUsername("yada"),
		postgres.WithPassword("yada"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := db.NewPostgresPool(ctx, dsn, 4, 5)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, db.ApplySchema(ctx, pool))
	return pool
}

func seed(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()
	ctx := context.Background()

	hash, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
	require.NoError(t, err)

	stmts := []struct {
		sql  string
		args []any
	}{
		{`INSERT INTO yada_user (userid, pw) VALUES ('alice', $1), ('bob', $1)`, []any{string(hash)}},
		{`INSERT INTO yada_ug (userid, app, role) VALUES ('alice', 'YADA', 'ADMIN'), ('alice', 'YADA', 'USER'), ('alice', 'REPORTS', 'VIEW')`, nil},
		{`CREATE TABLE docs (id TEXT PRIMARY KEY, owner TEXT NOT NULL, title TEXT NOT NULL)`, nil},
		{`INSERT INTO docs VALUES ('1', 'alice', 'a'), ('2', 'bob', 'b'), ('3', 'alice', 'c')`, nil},
		{`INSERT INTO yada_query (qname, app, query, columns, security)
		  VALUES ('YADA docs by owner', 'YADA', 'SELECT id, title FROM docs WHERE owner = $1 ORDER BY id', '{owner}',
		          '{"type":"whitelist","qualifier":["USER"]}')`, nil},
		{`INSERT INTO yada_query (qname, app, source_app, query, protected, args)
		  VALUES ('REPORTS docs', 'REPORTS', 'YADA', 'SELECT id FROM docs', TRUE,
		          '{"content.policy.predicate":"owner = getQLoggedUser()"}')`, nil},
		{`INSERT INTO yada_a11n (target, policy, type, qname) VALUES
		  ('YADA', 'A', 'whitelist', 'USER'),
		  ('YADA', 'A', 'whitelist', 'USER'),
		  ('REPORTS docs', 'C', 'whitelist', ''),
		  ('REPORTS docs', 'X', 'whitelist', 'ignored')`, nil},
	}
	for _, s := range stmts {
		_, err := pool.Exec(ctx, s.sql, s.args...)
		require.NoError(t, err, s.sql)
	}
}

func TestPostgresIntegration(t *testing.T) {
	pool := startPostgres(t)
	seed(t, pool)
	ctx := context.Background()

	t.Run("UserDAO_FindCredentials", func(t *testing.T) {
		users := dao.NewUserDAO(pool)

		creds, err := users.FindCredentials(ctx, "alice")
		require.NoError(t, err)
		require.Len(t, creds.Grants, 2)
		assert.Equal(t, "REPORTS", creds.Grants[0].App)
		assert.Equal(t, []string{"ADMIN", "USER"}, creds.Grants[1].Keys)
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(creds.PasswordHash), []byte("secret")))

		creds, err = users.FindCredentials(ctx, "bob")
		require.NoError(t, err)
		assert.Empty(t, creds.Grants)

		_, err = users.FindCredentials(ctx, "mallory")
		assert.ErrorIs(t, err, sec_errors.ErrUserNotFound)
	})

	t.Run("QueryDAO_FindQuery", func(t *testing.T) {
		queries := dao.NewQueryDAO(pool)

		q, err := queries.FindQuery(ctx, "YADA docs by owner")
		require.NoError(t, err)
		assert.Equal(t, []string{"owner"}, q.Columns)
		require.NotNil(t, q.Security)
		assert.Equal(t, pdp_model.Whitelist, q.Security.Type)

		q, err = queries.FindQuery(ctx, "REPORTS docs")
		require.NoError(t, err)
		assert.True(t, q.Protected)
		assert.Equal(t, "YADA", q.GrantApp())
		assert.Equal(t, "owner = getQLoggedUser()", q.Args["content.policy.predicate"])

		_, err = queries.FindQuery(ctx, "nope")
		assert.True(t, dao.IsNotFound(err))
	})

	t.Run("QueryExecutor_Fetch", func(t *testing.T) {
		queries := dao.NewQueryDAO(pool)
		executor := dao.NewQueryExecutor(pool, queries)

		q, err := queries.FindQuery(ctx, "YADA docs by owner")
		require.NoError(t, err)

		rows, err := executor.Fetch(ctx, q, pdp_model.Params{Values: []string{"alice"}})
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, "1", rows[0]["id"])
		assert.Equal(t, "c", rows[1]["title"])

		rows, err = executor.Fetch(ctx, q, pdp_model.Params{Rows: []map[string]string{{"owner": "alice"}, {"owner": "bob"}}})
		require.NoError(t, err)
		assert.Len(t, rows, 3)

		n, err := executor.CountRows(ctx, "YADA docs by owner", pdp_model.Params{Values: []string{"bob"}})
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		_, err = executor.Fetch(ctx, &model.Query{QName: "broken", SQL: "SELECT * FROM nowhere"}, pdp_model.Params{})
		assert.ErrorIs(t, err, sec_errors.ErrQueryExecution)
	})

	t.Run("LockDAO_PolicyRecords", func(t *testing.T) {
		locks := pdp_dao.NewLockDAO(pool)

		records, err := locks.PolicyRecords(ctx, "YADA")
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, pdp_model.CodeAuthorization, records[0].Code)
		assert.Equal(t, "USER", records[0].Ref)

		records, err = locks.PolicyRecords(ctx, "REPORTS docs")
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, pdp_model.CodeContent, records[0].Code)

		records, err = locks.PolicyRecords(ctx, "yada")
		require.NoError(t, err)
		assert.Empty(t, records)
	})

	t.Run("LockDAO_AddAndRemove", func(t *testing.T) {
		locks := pdp_dao.NewLockDAO(pool)
		lock := pdp_model.PolicyRecord{Target: "YADA select", Code: pdp_model.CodeAuthorization, Type: pdp_model.Whitelist, Ref: "AUDITOR"}

		require.NoError(t, locks.AddLock(ctx, lock))
		require.NoError(t, locks.AddLock(ctx, lock))

		records, err := locks.PolicyRecords(ctx, "YADA select")
		require.NoError(t, err)
		assert.Equal(t, []pdp_model.PolicyRecord{lock}, records)

		removed, err := locks.RemoveLock(ctx, lock)
		require.NoError(t, err)
		assert.True(t, removed)

		removed, err = locks.RemoveLock(ctx, lock)
		require.NoError(t, err)
		assert.False(t, removed)
	})
}
