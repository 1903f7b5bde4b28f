package injection

import (
	"fmt"
	"regexp"
	"strconv"
)

const callPattern = `(get[A-Z][a-zA-Z0-9_]*)\(([A-Za-z0-9_\-]*)\)`

var (
	rxCall = regexp.MustCompile(callPattern)

	// <index>:getX(arg) | getX(arg) | <index>
	rxIndexSpec = regexp.MustCompile(`^(?:(?:([0-9]+):)?` + callPattern + `|([0-9]+))$`)

	// <column>:getX(arg) | getX(arg) | <column>
	rxColumnSpec = regexp.MustCompile(`^(?:(?:([A-Za-z0-9_]+):)?` + callPattern + `|([A-Za-z0-9_]+))$`)
)

// Call is one parsed getX(arg) occurrence.
type Call struct {
	Method string
	Arg    string
	// Raw is the call text exactly as it appeared in configuration.
	Raw   string
	start int
	end   int
}

func (c Call) String() string {
	return c.Raw
}

// FindCalls returns every call in s, left to right.
func FindCalls(s string) []Call {
	var calls []Call
	for _, m := range rxCall.FindAllStringSubmatchIndex(s, -1) {
		calls = append(calls, Call{
			Method: s[m[2]:m[3]],
			Arg:    s[m[4]:m[5]],
			Raw:    s[m[0]:m[1]],
			start:  m[0],
			end:    m[1],
		})
	}
	return calls
}

// HasCall reports whether s contains at least one call.
func HasCall(s string) bool {
	return rxCall.MatchString(s)
}

// IndexSpec is one entry of an execution policy's "indexes" list. Either Call
// is set, or Index names a position in the live parameter list.
type IndexSpec struct {
	Index int
	Call  *Call
	Raw   string
}

func ParseIndexSpec(s string) (IndexSpec, error) {
	m := rxIndexSpec.FindStringSubmatch(s)
	if m == nil {
		return IndexSpec{}, fmt.Errorf("invalid index specification %q", s)
	}
	if m[2] != "" {
		spec := IndexSpec{Index: -1, Raw: s, Call: &Call{Method: m[2], Arg: m[3], Raw: m[2] + "(" + m[3] + ")"}}
		if m[1] != "" {
			spec.Index, _ = strconv.Atoi(m[1])
		}
		return spec, nil
	}
	idx, err := strconv.Atoi(m[4])
	if err != nil {
		return IndexSpec{}, fmt.Errorf("invalid index specification %q: %w", s, err)
	}
	return IndexSpec{Index: idx, Raw: s}, nil
}

// ColumnSpec is one entry of an execution policy's "columns" list. Either Call
// is set, or Column names a key that must be present in the request row.
type ColumnSpec struct {
	Column string
	Call   *Call
	Raw    string
}

func ParseColumnSpec(s string) (ColumnSpec, error) {
	m := rxColumnSpec.FindStringSubmatch(s)
	if m == nil {
		return ColumnSpec{}, fmt.Errorf("invalid column specification %q", s)
	}
	if m[2] != "" {
		return ColumnSpec{Column: m[1], Raw: s, Call: &Call{Method: m[2], Arg: m[3], Raw: m[2] + "(" + m[3] + ")"}}, nil
	}
	return ColumnSpec{Column: m[4], Raw: s}, nil
}
