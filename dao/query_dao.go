// gatekeeper/dao/query_dao.go
package dao

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	sec_errors "github.com/dev-mohitbeniwal/echo/gatekeeper/errors"
	logger "github.com/dev-mohitbeniwal/echo/gatekeeper/logging"
	"github.com/dev-mohitbeniwal/echo/gatekeeper/model"
	"github.com/dev-mohitbeniwal/echo/gatekeeper/pdp/spec"
)

// Querier is the slice of a pgx pool the DAOs need.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

const selectQuery = `SELECT q.qname, q.app, COALESCE(q.source_app, ''), q.query,
       COALESCE(array_to_string(q.columns, ' '), ''), q.protected,
       COALESCE(q.security::text, ''), COALESCE(q.args::text, '')
FROM yada_query q
WHERE q.qname = $1`

// QueryDAO reads catalog entries from the yada_query table.
type QueryDAO struct {
	DB Querier
}

func NewQueryDAO(db Querier) *QueryDAO {
	return &QueryDAO{DB: db}
}

func (dao *QueryDAO) FindQuery(ctx context.Context, qname string) (*model.Query, error) {
	start := time.Now()

	rows, err := dao.DB.Query(ctx, selectQuery, qname)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", sec_errors.ErrDatabaseOperation, err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("%w: %v", sec_errors.ErrDatabaseOperation, err)
		}
		return nil, fmt.Errorf("%w: %s", sec_errors.ErrQueryNotFound, qname)
	}

	var (
		q                      model.Query
		columns, security, raw string
	)
	if err := rows.Scan(&q.QName, &q.App, &q.SourceApp, &q.SQL, &columns, &q.Protected, &security, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", sec_errors.ErrDatabaseOperation, err)
	}
	q.Columns = strings.Fields(columns)

	if security != "" {
		s, err := spec.Parse([]byte(security))
		if err != nil {
			return nil, fmt.Errorf("%w: query %s: %v", sec_errors.ErrInvalidCatalog, qname, err)
		}
		q.Security = s
	}
	if raw != "" {
		if err := json.Unmarshal([]byte(raw), &q.Args); err != nil {
			return nil, fmt.Errorf("%w: query %s args: %v", sec_errors.ErrInvalidCatalog, qname, err)
		}
	}

	logger.Debug("Query retrieved from catalog",
		zap.String("qname", qname),
		zap.Bool("secured", q.Secured()),
		zap.Duration("duration", time.Since(start)))
	return &q, nil
}

// IsNotFound reports whether err is a catalog miss.
func IsNotFound(err error) bool {
	return errors.Is(err, sec_errors.ErrQueryNotFound)
}
