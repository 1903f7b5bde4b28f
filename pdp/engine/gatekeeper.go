package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	sec_errors "github.com/dev-mohitbeniwal/echo/gatekeeper/errors"
	logger "github.com/dev-mohitbeniwal/echo/gatekeeper/logging"
	"github.com/dev-mohitbeniwal/echo/gatekeeper/model"
	pdp_model "github.com/dev-mohitbeniwal/echo/gatekeeper/pdp/model"
	"github.com/dev-mohitbeniwal/echo/gatekeeper/pdp/spec"
	"github.com/dev-mohitbeniwal/echo/gatekeeper/pdp/sqlast"
	"github.com/dev-mohitbeniwal/echo/gatekeeper/pdp/token"
)

// EventSecurityDecision is published once per evaluation with a
// *pdp_model.Decision payload.
const EventSecurityDecision = "security.decision"

// IdentityStore resolves a bearer token to a cached identity.
type IdentityStore interface {
	Get(ctx context.Context, token string) (*model.Identity, bool)
}

// LockSource reads legacy policy records by exact target.
type LockSource interface {
	PolicyRecords(ctx context.Context, target string) ([]pdp_model.PolicyRecord, error)
}

type Publisher interface {
	Publish(ctx context.Context, eventType string, payload interface{})
}

// Gatekeeper evaluates the security policy of a query for one request.
type Gatekeeper struct {
	tokens     *token.Resolver
	identities IdentityStore
	locks      LockSource
	protector  ProtectorExecutor
	sql        sqlast.Parser
	events     Publisher
	tracer     trace.Tracer
	now        func() time.Time
}

// NewGatekeeper wires the evaluator. locks and events may be nil: without a
// lock source only declarative specs apply, and without a publisher
// decisions are only logged.
func NewGatekeeper(tokens *token.Resolver, identities IdentityStore, locks LockSource, protector ProtectorExecutor, parser sqlast.Parser, events Publisher) *Gatekeeper {
	return &Gatekeeper{
		tokens:     tokens,
		identities: identities,
		locks:      locks,
		protector:  protector,
		sql:        parser,
		events:     events,
		tracer:     otel.Tracer("github.com/dev-mohitbeniwal/echo/gatekeeper/pdp/engine"),
		now:        time.Now,
	}
}

// Evaluate decides whether req may run q. On success q.SQL holds the
// statement to execute, narrowed by any content policy; q must be a
// request-scoped copy. Every failure is a *errors.SecurityError.
func (g *Gatekeeper) Evaluate(ctx context.Context, q *model.Query, req *pdp_model.SecurityRequest) (*pdp_model.Decision, error) {
	start := g.now()
	ctx, span := g.tracer.Start(ctx, "gatekeeper.evaluate", trace.WithAttributes(attribute.String("qname", q.QName)))
	defer span.End()

	decision := &pdp_model.Decision{QName: q.QName, App: q.GrantApp(), EvaluatedAt: start}
	err := g.evaluate(ctx, q, req, decision)
	decision.Duration = time.Since(start)

	if err != nil {
		se, ok := sec_errors.AsSecurityError(err)
		if !ok {
			se = sec_errors.NewSecurityError(sec_errors.KindConfiguration, "evaluation failed", err)
		}
		decision.Kind = string(se.Kind)
		decision.Reason = se.Reason
		g.logDenied(decision, se)
		span.RecordError(se)
		span.SetStatus(codes.Error, string(se.Kind))
		g.publish(ctx, decision)
		return decision, se
	}

	decision.Allowed = true
	logger.Info("Security policy satisfied",
		zap.String("qname", decision.QName),
		zap.String("subject", decision.Subject),
		zap.String("app", decision.App),
		zap.Duration("duration", decision.Duration))
	g.publish(ctx, decision)
	return decision, nil
}

func (g *Gatekeeper) evaluate(ctx context.Context, q *model.Query, req *pdp_model.SecurityRequest, decision *pdp_model.Decision) error {
	tok, err := g.tokens.Extract(req)
	if err != nil {
		return sec_errors.NewSecurityError(sec_errors.KindToken, "no bearer token", err)
	}
	claims, err := g.tokens.Validate(tok)
	if err != nil {
		return sec_errors.NewSecurityError(sec_errors.KindToken, "bearer token rejected", err)
	}

	identity, ok := g.identities.Get(ctx, tok)
	if !ok {
		return sec_errors.NewSecurityError(sec_errors.KindIdentity, "no cached identity for token", nil)
	}
	if claims.Subject != "" && claims.Subject != identity.Subject {
		return sec_errors.NewSecurityError(sec_errors.KindIdentity, "token subject does not match cached identity", nil)
	}
	decision.Subject = identity.Subject

	if q.Security != nil && !q.Security.PathAllowed(req.Path) {
		return sec_errors.NewSecurityError(sec_errors.KindPath, fmt.Sprintf("path %q not allowed", req.Path), nil)
	}

	records, bindings, err := g.policies(ctx, q)
	if err != nil {
		return err
	}
	ictx := &requestContext{token: tok, req: req, identity: identity}

	if err := g.phase(ctx, "gatekeeper.authorize", func(ctx context.Context) error {
		return Authorize(identity, pdp_model.Locks(records), token.SyncToken(req), q.GrantApp())
	}); err != nil {
		return err
	}
	decision.Policies = append(decision.Policies, pdp_model.CodeAuthorization)

	if execution := pdp_model.Filter(records, pdp_model.CodeExecution); len(execution) > 0 {
		if err := g.phase(ctx, "gatekeeper.execution", func(ctx context.Context) error {
			return g.enforceExecution(ctx, execution, bindings, req.Params, ictx)
		}); err != nil {
			return err
		}
		decision.Policies = append(decision.Policies, pdp_model.CodeExecution)
	}

	if content := pdp_model.Filter(records, pdp_model.CodeContent); len(content) > 0 {
		if err := g.phase(ctx, "gatekeeper.content", func(ctx context.Context) error {
			rewritten, recorded, err := g.applyContent(q.SQL, bindings.Predicate, ictx)
			if err != nil {
				return err
			}
			q.SQL = rewritten
			decision.RewrittenSQL = recorded
			return nil
		}); err != nil {
			return err
		}
		decision.Policies = append(decision.Policies, pdp_model.CodeContent)
	}

	return nil
}

// policies returns q's records and bindings, from its declarative spec when it
// has one, otherwise from the lock source and the query's plugin arguments.
func (g *Gatekeeper) policies(ctx context.Context, q *model.Query) ([]pdp_model.PolicyRecord, spec.Bindings, error) {
	if q.Security != nil {
		return q.Security.Records(q.QName), q.Security.Bindings(), nil
	}
	if g.locks == nil {
		if q.Protected {
			return nil, spec.Bindings{}, sec_errors.NewSecurityError(sec_errors.KindConfiguration,
				"protected query has no security spec and no lock source is configured", nil)
		}
		return nil, spec.Bindings{}, nil
	}

	records, err := g.locks.PolicyRecords(ctx, q.QName)
	if err != nil {
		return nil, spec.Bindings{}, sec_errors.NewSecurityError(sec_errors.KindConfiguration, "failed to read query locks", err)
	}
	if app := q.GrantApp(); app != "" && app != q.QName {
		appRecords, err := g.locks.PolicyRecords(ctx, app)
		if err != nil {
			return nil, spec.Bindings{}, sec_errors.NewSecurityError(sec_errors.KindConfiguration, "failed to read app locks", err)
		}
		records = append(records, pdp_model.Filter(appRecords, pdp_model.CodeAuthorization)...)
	}

	bindings, err := spec.BindingsFromArgs(q.Args)
	if err != nil {
		return nil, spec.Bindings{}, sec_errors.NewSecurityError(sec_errors.KindConfiguration, "invalid plugin arguments", err)
	}
	for _, r := range pdp_model.Filter(records, pdp_model.CodeContent) {
		if bindings.Predicate == "" {
			return nil, spec.Bindings{}, sec_errors.NewSecurityError(sec_errors.KindConfiguration,
				fmt.Sprintf("content lock %q has no %s argument", r.Ref, spec.ArgContentPredicate), nil)
		}
	}
	return records, bindings, nil
}

func (g *Gatekeeper) phase(ctx context.Context, name string, fn func(context.Context) error) error {
	ctx, span := g.tracer.Start(ctx, name)
	defer span.End()

	err := fn(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, name)
	}
	return err
}

func (g *Gatekeeper) logDenied(d *pdp_model.Decision, se *sec_errors.SecurityError) {
	fields := []zap.Field{
		zap.String("qname", d.QName),
		zap.String("subject", d.Subject),
		zap.String("app", d.App),
		zap.String("kind", string(se.Kind)),
		zap.String("reason", se.Reason),
		zap.Duration("duration", d.Duration),
	}
	if cause := errors.Unwrap(se); cause != nil {
		fields = append(fields, zap.Error(cause))
	}
	if se.IsConfiguration() {
		logger.Error("Security policy misconfigured", fields...)
		return
	}
	logger.Warn("Security policy denied request", fields...)
}

func (g *Gatekeeper) publish(ctx context.Context, d *pdp_model.Decision) {
	if g.events == nil {
		return
	}
	g.events.Publish(context.WithoutCancel(ctx), EventSecurityDecision, d)
}
