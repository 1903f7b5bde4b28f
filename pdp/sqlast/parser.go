// Package sqlast is the narrow SQL surface the content policy needs: parse a
// boolean condition, parse a statement, AND a condition into its WHERE clause
// and print the result back.
package sqlast

import "fmt"

// Expr is a parsed boolean condition.
type Expr interface {
	fmt.Stringer
}

// Statement is a parsed SQL statement that may be modified in place.
type Statement interface {
	fmt.Stringer
}

// Literal is a request value bound into a condition. Quoted values become
// string constants as they are; the others must parse as one constant.
type Literal struct {
	Value  string
	Quoted bool
}

type Parser interface {
	ParseCondition(text string) (Expr, error)
	// BindCondition parses text and replaces each placeholder $n with a
	// constant built from values[n-1]. Values are never parsed as part of the
	// condition, so they cannot change its shape.
	BindCondition(text string, values []Literal) (Expr, error)
	ParseStatement(text string) (Statement, error)
	// Conjoin installs cond as stmt's WHERE clause, or ANDs it onto the
	// existing one.
	Conjoin(stmt Statement, cond Expr) error
	Serialize(stmt Statement) string
}
