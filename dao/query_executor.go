// gatekeeper/dao/query_executor.go
package dao

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	sec_errors "github.com/dev-mohitbeniwal/echo/gatekeeper/errors"
	logger "github.com/dev-mohitbeniwal/echo/gatekeeper/logging"
	"github.com/dev-mohitbeniwal/echo/gatekeeper/model"
	pdp_model "github.com/dev-mohitbeniwal/echo/gatekeeper/pdp/model"
)

// Finder looks up catalog entries by qname.
type Finder interface {
	FindQuery(ctx context.Context, qname string) (*model.Query, error)
}

// QueryExecutor runs catalog queries against postgres. It serves both the
// primary query of a request and the protector queries of execution policies.
type QueryExecutor struct {
	DB      Querier
	Catalog Finder
}

func NewQueryExecutor(db Querier, catalog Finder) *QueryExecutor {
	return &QueryExecutor{DB: db, Catalog: catalog}
}

// CountRows runs the protector qname with params and returns the number of
// rows it produced.
func (e *QueryExecutor) CountRows(ctx context.Context, qname string, params pdp_model.Params) (int, error) {
	q, err := e.Catalog.FindQuery(ctx, qname)
	if err != nil {
		return 0, fmt.Errorf("protector %s: %w", qname, err)
	}
	rows, err := e.Fetch(ctx, q, params)
	if err != nil {
		return 0, err
	}
	return len(rows), nil
}

// Fetch runs q once per parameter set: once for positional values, once per
// row for named parameters. Results are concatenated in order.
func (e *QueryExecutor) Fetch(ctx context.Context, q *model.Query, params pdp_model.Params) ([]map[string]any, error) {
	start := time.Now()

	sets, err := argSets(q, params)
	if err != nil {
		return nil, err
	}

	var out []map[string]any
	for _, args := range sets {
		rows, err := e.DB.Query(ctx, q.SQL, args...)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", sec_errors.ErrQueryExecution, q.QName, err)
		}
		result, err := pgx.CollectRows(rows, pgx.RowToMap)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", sec_errors.ErrQueryExecution, q.QName, err)
		}
		out = append(out, result...)
	}

	logger.Debug("Query executed",
		zap.String("qname", q.QName),
		zap.Int("sets", len(sets)),
		zap.Int("rows", len(out)),
		zap.Duration("duration", time.Since(start)))
	return out, nil
}

// argSets orders the request's parameters into postgres arguments. Named rows
// follow q.Columns.
func argSets(q *model.Query, params pdp_model.Params) ([][]any, error) {
	if !params.IsNamed() {
		args := make([]any, len(params.Values))
		for i, v := range params.Values {
			args[i] = v
		}
		return [][]any{args}, nil
	}

	if len(q.Columns) == 0 {
		return nil, fmt.Errorf("%w: %s takes no named parameters", sec_errors.ErrInvalidQueryRequest, q.QName)
	}
	sets := make([][]any, 0, len(params.Rows))
	for n, row := range params.Rows {
		args := make([]any, len(q.Columns))
		for i, col := range q.Columns {
			v, ok := row[col]
			if !ok {
				return nil, fmt.Errorf("%w: row %d has no column %q", sec_errors.ErrInvalidQueryRequest, n, col)
			}
			args[i] = v
		}
		sets = append(sets, args)
	}
	return sets, nil
}
