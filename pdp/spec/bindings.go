package spec

import (
	"fmt"
	"strings"

	"github.com/dev-mohitbeniwal/echo/gatekeeper/pdp/injection"
)

// Plugin argument names used by queries protected through the A11N store
// rather than a declarative spec.
const (
	ArgExecutionColumns   = "execution.policy.columns"
	ArgExecutionIndexes   = "execution.policy.indexes"
	ArgExecutionIndices   = "execution.policy.indices"
	ArgContentPredicate   = "content.policy.predicate"
	ArgSourceExchangerApp = "SourceExchanger"
)

// ParamMode is the parameter syntax a protector expects.
type ParamMode int

const (
	ModeNone ParamMode = iota
	ModePositional
	ModeNamed
)

func (m ParamMode) String() string {
	switch m {
	case ModePositional:
		return "positional"
	case ModeNamed:
		return "named"
	default:
		return "none"
	}
}

// Bindings wires request values into the protector query and the content
// predicate.
type Bindings struct {
	Columns   []injection.ColumnSpec
	Indexes   []injection.IndexSpec
	Predicate string
}

// NewBindings parses and validates column and index specs and the predicate
// template. Calls are checked against the accessor registry here so a bad
// configuration never reaches a request.
func NewBindings(columns, indexes []string, predicate string) (Bindings, error) {
	var b Bindings
	if len(columns) > 0 && len(indexes) > 0 {
		return b, fmt.Errorf("%w: %q and %q are mutually exclusive", ErrInvalidSpec, KeyColumns, KeyIndexes)
	}

	for _, c := range columns {
		cs, err := injection.ParseColumnSpec(c)
		if err != nil {
			return b, fmt.Errorf("%w: %v", ErrInvalidSpec, err)
		}
		if cs.Call != nil {
			if cs.Column == "" {
				return b, fmt.Errorf("%w: column injection %q needs a column prefix", ErrInvalidSpec, c)
			}
			if err := injection.Check(*cs.Call); err != nil {
				return b, fmt.Errorf("%w: %v", ErrInvalidSpec, err)
			}
		}
		b.Columns = append(b.Columns, cs)
	}

	for _, i := range indexes {
		is, err := injection.ParseIndexSpec(i)
		if err != nil {
			return b, fmt.Errorf("%w: %v", ErrInvalidSpec, err)
		}
		if is.Call != nil {
			if err := injection.Check(*is.Call); err != nil {
				return b, fmt.Errorf("%w: %v", ErrInvalidSpec, err)
			}
		}
		b.Indexes = append(b.Indexes, is)
	}

	if predicate != "" {
		if !injection.HasCall(predicate) {
			return b, fmt.Errorf("%w: content predicate %q has no injection call", ErrInvalidSpec, predicate)
		}
		if err := injection.CheckTemplate(predicate); err != nil {
			return b, fmt.Errorf("%w: content predicate %q: %v", ErrInvalidSpec, predicate, err)
		}
		b.Predicate = predicate
	}
	return b, nil
}

// BindingsFromArgs reads bindings from a query's plugin arguments. List
// arguments are whitespace separated.
func BindingsFromArgs(args map[string]string) (Bindings, error) {
	indexes := strings.Fields(args[ArgExecutionIndexes])
	if alt := strings.Fields(args[ArgExecutionIndices]); len(alt) > 0 {
		if len(indexes) > 0 {
			return Bindings{}, fmt.Errorf("%w: %q and %q are mutually exclusive", ErrInvalidSpec, ArgExecutionIndexes, ArgExecutionIndices)
		}
		indexes = alt
	}
	return NewBindings(strings.Fields(args[ArgExecutionColumns]), indexes, strings.TrimSpace(args[ArgContentPredicate]))
}

// Mode reports which parameter syntax the protector expects.
func (b Bindings) Mode() ParamMode {
	switch {
	case len(b.Indexes) > 0:
		return ModePositional
	case len(b.Columns) > 0:
		return ModeNamed
	default:
		return ModeNone
	}
}
