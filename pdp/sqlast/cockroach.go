package sqlast

import (
	"errors"
	"fmt"

	"github.com/cockroachdb/cockroachdb-parser/pkg/sql/parser"
	"github.com/cockroachdb/cockroachdb-parser/pkg/sql/sem/tree"
)

var (
	ErrUnsupportedStatement = errors.New("statement does not support a WHERE clause")
	ErrNotCondition         = errors.New("expression is not a condition")
	ErrNotConstant          = errors.New("bound value is not a constant")
	ErrUnboundPlaceholder   = errors.New("placeholder has no bound value")
)

// CockroachParser implements Parser on the PostgreSQL-compatible grammar of
// the CockroachDB SQL parser.
type CockroachParser struct{}

func NewCockroachParser() *CockroachParser {
	return &CockroachParser{}
}

func (p *CockroachParser) ParseCondition(text string) (Expr, error) {
	expr, err := parser.ParseExpr(text)
	if err != nil {
		return nil, fmt.Errorf("failed to parse condition: %w", err)
	}
	switch expr.(type) {
	case *tree.NumVal, *tree.StrVal, *tree.Placeholder, *tree.UnresolvedName:
		return nil, fmt.Errorf("%w: %s", ErrNotCondition, tree.AsString(expr))
	}
	return expr, nil
}

func (p *CockroachParser) BindCondition(text string, values []Literal) (Expr, error) {
	cond, err := p.ParseCondition(text)
	if err != nil {
		return nil, err
	}

	consts := make([]tree.Expr, len(values))
	for i, v := range values {
		c, err := constant(v)
		if err != nil {
			return nil, err
		}
		consts[i] = c
	}

	bound, err := tree.SimpleVisit(cond.(tree.Expr), func(expr tree.Expr) (bool, tree.Expr, error) {
		ph, ok := expr.(*tree.Placeholder)
		if !ok {
			return true, expr, nil
		}
		if int(ph.Idx) >= len(consts) {
			return false, nil, fmt.Errorf("%w: %s", ErrUnboundPlaceholder, tree.AsString(ph))
		}
		return false, consts[ph.Idx], nil
	})
	if err != nil {
		return nil, err
	}
	return bound, nil
}

// constant turns a bound value into a single constant node.
func constant(l Literal) (tree.Expr, error) {
	if l.Quoted {
		return tree.NewStrVal(l.Value), nil
	}
	expr, err := parser.ParseExpr(l.Value)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotConstant, err)
	}
	switch expr.(type) {
	case *tree.NumVal, *tree.StrVal, *tree.DBool:
		return expr, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrNotConstant, l.Value)
}

func (p *CockroachParser) ParseStatement(text string) (Statement, error) {
	stmt, err := parser.ParseOne(text)
	if err != nil {
		return nil, fmt.Errorf("failed to parse statement: %w", err)
	}
	return stmt.AST, nil
}

func (p *CockroachParser) Conjoin(stmt Statement, cond Expr) error {
	expr, ok := cond.(tree.Expr)
	if !ok {
		return fmt.Errorf("condition of type %T was not produced by this parser", cond)
	}

	switch s := stmt.(type) {
	case *tree.Select:
		return conjoinSelect(s.Select, expr)
	case *tree.Update:
		s.Where = conjoin(s.Where, expr)
		return nil
	case *tree.Delete:
		s.Where = conjoin(s.Where, expr)
		return nil
	default:
		return fmt.Errorf("%w: %T", ErrUnsupportedStatement, stmt)
	}
}

func conjoinSelect(sel tree.SelectStatement, expr tree.Expr) error {
	switch s := sel.(type) {
	case *tree.SelectClause:
		s.Where = conjoin(s.Where, expr)
		return nil
	case *tree.ParenSelect:
		return conjoinSelect(s.Select.Select, expr)
	default:
		return fmt.Errorf("%w: %T", ErrUnsupportedStatement, sel)
	}
}

func conjoin(where *tree.Where, expr tree.Expr) *tree.Where {
	if where == nil || where.Expr == nil {
		return tree.NewWhere(tree.AstWhere, expr)
	}
	return tree.NewWhere(tree.AstWhere, &tree.AndExpr{Left: where.Expr, Right: expr})
}

func (p *CockroachParser) Serialize(stmt Statement) string {
	if node, ok := stmt.(tree.NodeFormatter); ok {
		return tree.AsString(node)
	}
	return stmt.String()
}
