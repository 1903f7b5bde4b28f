package engine

import (
	sec_errors "github.com/dev-mohitbeniwal/echo/gatekeeper/errors"
	logger "github.com/dev-mohitbeniwal/echo/gatekeeper/logging"
	"github.com/dev-mohitbeniwal/echo/gatekeeper/pdp/injection"
	"github.com/dev-mohitbeniwal/echo/gatekeeper/pdp/sqlast"
)

// applyContent narrows sql with the predicate template. It returns the
// statement to execute and a copy safe to record, in which secret values such
// as the bearer token are redacted.
func (g *Gatekeeper) applyContent(sql, template string, ictx injection.Context) (string, string, error) {
	if template == "" {
		return "", "", sec_errors.NewSecurityError(sec_errors.KindConfiguration, "content policy has no predicate", nil)
	}
	if !injection.HasCall(template) {
		return "", "", sec_errors.NewSecurityError(sec_errors.KindConfiguration, "content predicate has no injection call", nil)
	}

	bound, bindings, err := injection.Bind(ictx, template)
	if err != nil {
		return "", "", sec_errors.NewSecurityError(sec_errors.KindInjection, "failed to bind content predicate", err)
	}

	values := make([]sqlast.Literal, len(bindings))
	redacted := make([]sqlast.Literal, len(bindings))
	secret := false
	for i, b := range bindings {
		values[i] = sqlast.Literal{Value: b.Value, Quoted: b.Quoted}
		redacted[i] = values[i]
		if b.Secret {
			redacted[i] = sqlast.Literal{Value: logger.Redact(b.Value), Quoted: true}
			secret = true
		}
	}

	rewritten, err := g.conjoin(sql, bound, values)
	if err != nil {
		return "", "", err
	}
	if !secret {
		return rewritten, rewritten, nil
	}
	recorded, err := g.conjoin(sql, bound, redacted)
	if err != nil {
		return "", "", err
	}
	return rewritten, recorded, nil
}

func (g *Gatekeeper) conjoin(sql, bound string, values []sqlast.Literal) (string, error) {
	cond, err := g.sql.BindCondition(bound, values)
	if err != nil {
		return "", sec_errors.NewSecurityError(sec_errors.KindPredicate, "content predicate does not bind", err)
	}
	stmt, err := g.sql.ParseStatement(sql)
	if err != nil {
		return "", sec_errors.NewSecurityError(sec_errors.KindPredicate, "query statement does not parse", err)
	}
	if err := g.sql.Conjoin(stmt, cond); err != nil {
		return "", sec_errors.NewSecurityError(sec_errors.KindPredicate, "content predicate cannot be applied", err)
	}
	return g.sql.Serialize(stmt), nil
}
