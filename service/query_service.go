// gatekeeper/service/query_service.go
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/dev-mohitbeniwal/echo/gatekeeper/dao"
	sec_errors "github.com/dev-mohitbeniwal/echo/gatekeeper/errors"
	logger "github.com/dev-mohitbeniwal/echo/gatekeeper/logging"
	"github.com/dev-mohitbeniwal/echo/gatekeeper/model"
	pdp_model "github.com/dev-mohitbeniwal/echo/gatekeeper/pdp/model"
	"github.com/dev-mohitbeniwal/echo/gatekeeper/util"
)

const EventQueryExecuted = "query.executed"

//go:generate mockgen -destination=../test/service_mock/query_service_mock.go -package=mock_service github.com/dev-mohitbeniwal/echo/gatekeeper/service IQueryService

type IQueryService interface {
	Execute(ctx context.Context, req model.QueryRequest, sreq *pdp_model.SecurityRequest) (*model.QueryResult, error)
	GetSecurity(ctx context.Context, qname string) (*model.QuerySecurity, error)
}

// Evaluator decides whether a request may run a secured query.
type Evaluator interface {
	Evaluate(ctx context.Context, q *model.Query, req *pdp_model.SecurityRequest) (*pdp_model.Decision, error)
}

// Fetcher runs a catalog query.
type Fetcher interface {
	Fetch(ctx context.Context, q *model.Query, params pdp_model.Params) ([]map[string]any, error)
}

// QueryService runs catalog queries, passing secured ones through the
// gatekeeper first.
type QueryService struct {
	catalog        dao.Finder
	gatekeeper     Evaluator
	executor       Fetcher
	validationUtil *util.ValidationUtil
	eventBus       *util.EventBus
}

func NewQueryService(catalog dao.Finder, gatekeeper Evaluator, executor Fetcher, validationUtil *util.ValidationUtil, eventBus *util.EventBus) *QueryService {
	return &QueryService{
		catalog:        catalog,
		gatekeeper:     gatekeeper,
		executor:       executor,
		validationUtil: validationUtil,
		eventBus:       eventBus,
	}
}

// Execute looks up req.QName, evaluates its security policy against sreq and
// runs it. A security failure is returned as is and matches
// errors.ErrUnauthorized.
func (s *QueryService) Execute(ctx context.Context, req model.QueryRequest, sreq *pdp_model.SecurityRequest) (*model.QueryResult, error) {
	start := time.Now()
	if err := s.validationUtil.ValidateQueryRequest(req); err != nil {
		return nil, fmt.Errorf("%w: %v", sec_errors.ErrInvalidQueryRequest, err)
	}

	q, err := s.catalog.FindQuery(ctx, req.QName)
	if err != nil {
		return nil, err
	}
	q = q.Clone()

	params := req.ToParams()
	sreq.Params = params

	if q.Secured() {
		if _, err := s.gatekeeper.Evaluate(ctx, q, sreq); err != nil {
			return nil, err
		}
	}

	rows, err := s.executor.Fetch(ctx, q, params)
	if err != nil {
		return nil, err
	}

	result := &model.QueryResult{QName: q.QName, Count: len(rows), Rows: rows}
	if result.Rows == nil {
		result.Rows = []map[string]any{}
	}

	s.eventBus.Publish(ctx, EventQueryExecuted, model.QueryExecution{
		QName:    q.QName,
		Secured:  q.Secured(),
		Rows:     result.Count,
		Duration: time.Since(start),
	})
	logger.Info("Query executed",
		zap.String("qname", q.QName),
		zap.Bool("secured", q.Secured()),
		zap.Int("rows", result.Count),
		zap.Duration("duration", time.Since(start)))
	return result, nil
}

// GetSecurity describes how a query is protected.
func (s *QueryService) GetSecurity(ctx context.Context, qname string) (*model.QuerySecurity, error) {
	q, err := s.catalog.FindQuery(ctx, qname)
	if err != nil {
		if errors.Is(err, sec_errors.ErrQueryNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to read query %s: %w", qname, err)
	}
	return &model.QuerySecurity{
		QName:     q.QName,
		App:       q.App,
		GrantApp:  q.GrantApp(),
		Protected: q.Protected,
		Security:  q.Security,
	}, nil
}
