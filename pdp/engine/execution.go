package engine

import (
	"context"
	"fmt"

	sec_errors "github.com/dev-mohitbeniwal/echo/gatekeeper/errors"
	"github.com/dev-mohitbeniwal/echo/gatekeeper/pdp/injection"
	pdp_model "github.com/dev-mohitbeniwal/echo/gatekeeper/pdp/model"
	"github.com/dev-mohitbeniwal/echo/gatekeeper/pdp/spec"
)

// ProtectorExecutor runs a protector query by name and counts its rows.
type ProtectorExecutor interface {
	CountRows(ctx context.Context, qname string, params pdp_model.Params) (int, error)
}

// compatible reports whether a request's parameter syntax fits the syntax the
// protector expects.
func compatible(mode spec.ParamMode, params pdp_model.Params) bool {
	switch mode {
	case spec.ModePositional:
		return !params.IsNamed()
	case spec.ModeNamed:
		return params.IsNamed()
	default:
		return true
	}
}

// bindPositional builds the protector's positional parameters. An index past
// the end of the live parameters binds the caller's token.
func bindPositional(indexes []injection.IndexSpec, params pdp_model.Params, ictx injection.Context) ([]string, error) {
	out := make([]string, 0, len(indexes))
	for _, is := range indexes {
		if is.Call != nil {
			v, err := injection.Resolve(ictx, *is.Call)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
			continue
		}
		if is.Index < len(params.Values) {
			out = append(out, params.Values[is.Index])
			continue
		}
		out = append(out, ictx.Token())
	}
	return out, nil
}

// bindNamed builds the protector's named row from the request's first row.
func bindNamed(columns []injection.ColumnSpec, params pdp_model.Params, ictx injection.Context) (map[string]string, error) {
	row := make(map[string]string)
	if len(params.Rows) > 0 {
		for k, v := range params.Rows[0] {
			row[k] = v
		}
	}
	for _, cs := range columns {
		if cs.Call != nil {
			v, err := injection.Resolve(ictx, *cs.Call)
			if err != nil {
				return nil, err
			}
			row[cs.Column] = v
			continue
		}
		if _, ok := row[cs.Column]; !ok {
			return nil, fmt.Errorf("request row has no column %q", cs.Column)
		}
	}
	return row, nil
}

func (g *Gatekeeper) enforceExecution(ctx context.Context, records []pdp_model.PolicyRecord, b spec.Bindings, params pdp_model.Params, ictx injection.Context) error {
	mode := b.Mode()
	if !compatible(mode, params) {
		return sec_errors.NewSecurityError(sec_errors.KindIncompatible,
			fmt.Sprintf("request parameter syntax is incompatible with %s execution policy", mode), nil)
	}

	var protectorParams pdp_model.Params
	switch mode {
	case spec.ModePositional:
		values, err := bindPositional(b.Indexes, params, ictx)
		if err != nil {
			return sec_errors.NewSecurityError(sec_errors.KindInjection, "failed to bind protector parameters", err)
		}
		protectorParams.Values = values
	case spec.ModeNamed:
		row, err := bindNamed(b.Columns, params, ictx)
		if err != nil {
			return sec_errors.NewSecurityError(sec_errors.KindInjection, "failed to bind protector parameters", err)
		}
		protectorParams.Rows = []map[string]string{row}
	}

	for _, r := range records {
		if r.Type != pdp_model.Whitelist && r.Type != pdp_model.Blacklist {
			return sec_errors.NewSecurityError(sec_errors.KindConfiguration,
				fmt.Sprintf("execution policy %q has unrecognized type %q", r.Ref, r.Type), nil)
		}
		if r.Ref == "" {
			return sec_errors.NewSecurityError(sec_errors.KindConfiguration, "execution policy names no protector", nil)
		}
		if g.protector == nil {
			return sec_errors.NewSecurityError(sec_errors.KindConfiguration, "no protector executor configured", nil)
		}

		count, err := g.protector.CountRows(ctx, r.Ref, protectorParams)
		if err != nil {
			return sec_errors.NewSecurityError(sec_errors.KindProtector, fmt.Sprintf("protector %q failed", r.Ref), err)
		}

		if r.Type == pdp_model.Whitelist && count == 0 {
			return sec_errors.NewSecurityError(sec_errors.KindProtector, fmt.Sprintf("whitelist protector %q returned no rows", r.Ref), nil)
		}
		if r.Type == pdp_model.Blacklist && count > 0 {
			return sec_errors.NewSecurityError(sec_errors.KindProtector, fmt.Sprintf("blacklist protector %q returned %d rows", r.Ref, count), nil)
		}
	}
	return nil
}
