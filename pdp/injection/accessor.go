package injection

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/cockroachdb/cockroachdb-parser/pkg/sql/lexbase"
)

// Accessor enumerates the context values configuration may inject. The set is
// closed: there is no way to reach anything not listed here.
type Accessor string

const (
	GetToken       Accessor = "getToken"
	GetQToken      Accessor = "getQToken"
	GetCookie      Accessor = "getCookie"
	GetQCookie     Accessor = "getQCookie"
	GetHeader      Accessor = "getHeader"
	GetQHeader     Accessor = "getQHeader"
	GetLoggedUser  Accessor = "getLoggedUser"
	GetQLoggedUser Accessor = "getQLoggedUser"
)

var (
	ErrUnknownAccessor = errors.New("unknown injection accessor")
	ErrArity           = errors.New("wrong number of injection arguments")
	ErrNoValue         = errors.New("no value available for injection")
	ErrPlaceholder     = errors.New("template carries its own placeholder")
)

var rxPlaceholder = regexp.MustCompile(`\$[0-9]`)

// Context is the per-request source of injectable values.
type Context interface {
	Token() string
	Cookie(name string) (string, bool)
	Header(name string) (string, bool)
	Subject() (string, bool)
}

type accessorFunc struct {
	arity  int
	quote  bool
	secret bool
	fn     func(ctx Context, arg string) (string, bool)
}

var registry = map[Accessor]accessorFunc{
	GetToken:       {arity: 0, secret: true, fn: token},
	GetQToken:      {arity: 0, quote: true, secret: true, fn: token},
	GetCookie:      {arity: 1, fn: cookie},
	GetQCookie:     {arity: 1, quote: true, fn: cookie},
	GetHeader:      {arity: 1, fn: header},
	GetQHeader:     {arity: 1, quote: true, fn: header},
	GetLoggedUser:  {arity: 0, fn: loggedUser},
	GetQLoggedUser: {arity: 0, quote: true, fn: loggedUser},
}

func token(ctx Context, _ string) (string, bool) {
	t := ctx.Token()
	return t, t != ""
}

func cookie(ctx Context, name string) (string, bool) {
	return ctx.Cookie(name)
}

func header(ctx Context, name string) (string, bool) {
	return ctx.Header(name)
}

func loggedUser(ctx Context, _ string) (string, bool) {
	return ctx.Subject()
}

// Accessors lists the registered accessor names.
func Accessors() []Accessor {
	out := make([]Accessor, 0, len(registry))
	for a := range registry {
		out = append(out, a)
	}
	return out
}

// Check verifies that c names a registered accessor with the right arity,
// without resolving it.
func Check(c Call) error {
	acc, ok := registry[Accessor(c.Method)]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownAccessor, c.Method)
	}
	if got := argCount(c); got != acc.arity {
		return fmt.Errorf("%w: %s takes %d, got %d", ErrArity, c.Method, acc.arity, got)
	}
	return nil
}

// Resolve produces the value of c against ctx. Quoting accessors return a
// SQL string literal.
func Resolve(ctx Context, c Call) (string, error) {
	if err := Check(c); err != nil {
		return "", err
	}
	acc := registry[Accessor(c.Method)]
	v, ok := acc.fn(ctx, c.Arg)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNoValue, c.Raw)
	}
	if acc.quote {
		return lexbase.EscapeSQLString(v), nil
	}
	return v, nil
}

// CheckTemplate verifies every call in template and that the template has no
// placeholder of its own.
func CheckTemplate(template string) error {
	if rxPlaceholder.MatchString(template) {
		return ErrPlaceholder
	}
	for _, c := range FindCalls(template) {
		if err := Check(c); err != nil {
			return err
		}
	}
	return nil
}

// Binding is the resolved value of one call in a bound template. Quoted
// values are raw text meant for a string constant; the others must already be
// a single SQL constant.
type Binding struct {
	Call   Call
	Value  string
	Quoted bool
	// Secret values such as the bearer token must not be recorded.
	Secret bool
}

// Bind replaces the n-th call in template with the placeholder $n and resolves
// every call against ctx. The template text itself is never mixed with request
// values; callers substitute the bindings into the parsed template.
func Bind(ctx Context, template string) (string, []Binding, error) {
	if err := CheckTemplate(template); err != nil {
		return "", nil, err
	}
	calls := FindCalls(template)
	if len(calls) == 0 {
		return template, nil, nil
	}

	var b strings.Builder
	bindings := make([]Binding, 0, len(calls))
	last := 0
	for i, c := range calls {
		acc := registry[Accessor(c.Method)]
		v, ok := acc.fn(ctx, c.Arg)
		if !ok {
			return "", nil, fmt.Errorf("%w: %s", ErrNoValue, c.Raw)
		}
		bindings = append(bindings, Binding{Call: c, Value: v, Quoted: acc.quote, Secret: acc.secret})

		b.WriteString(template[last:c.start])
		b.WriteString("$" + strconv.Itoa(i+1))
		last = c.end
	}
	b.WriteString(template[last:])
	return b.String(), bindings, nil
}

func argCount(c Call) int {
	if c.Arg == "" {
		return 0
	}
	return 1
}
