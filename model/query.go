// gatekeeper/model/query.go
package model

import (
	"time"

	pdp_model "github.com/dev-mohitbeniwal/echo/gatekeeper/pdp/model"
	"github.com/dev-mohitbeniwal/echo/gatekeeper/pdp/spec"
)

// Query is a named, parameterized statement from the catalog.
type Query struct {
	QName     string `json:"qname" yaml:"qname"`
	App       string `json:"app" yaml:"app"`
	SourceApp string `json:"source_app,omitempty" yaml:"source_app"`
	SQL       string `json:"sql" yaml:"sql"`

	// Columns orders the keys of a named JSON row into $1..$n.
	Columns []string `json:"columns,omitempty" yaml:"columns"`

	// Protected engages the gatekeeper with locks read from the A11N store.
	Protected bool               `json:"protected,omitempty" yaml:"protected"`
	Args      map[string]string  `json:"args,omitempty" yaml:"args"`
	Security  *spec.SecuritySpec `json:"security,omitempty" yaml:"security"`
}

// Secured reports whether requests for q must pass the gatekeeper.
func (q *Query) Secured() bool {
	return q.Security != nil || q.Protected
}

// GrantApp is the application whose grants authorize q: an explicit source
// app override first, then the query's own app.
func (q *Query) GrantApp() string {
	if q.SourceApp != "" {
		return q.SourceApp
	}
	if app := q.Args[spec.ArgSourceExchangerApp]; app != "" {
		return app
	}
	return q.App
}

// Clone returns a copy whose SQL can be rewritten for one request without
// touching the catalog entry. The spec is immutable and shared.
func (q *Query) Clone() *Query {
	c := *q
	if q.Columns != nil {
		c.Columns = append([]string(nil), q.Columns...)
	}
	if q.Args != nil {
		c.Args = make(map[string]string, len(q.Args))
		for k, v := range q.Args {
			c.Args[k] = v
		}
	}
	return &c
}

type QueryRequest struct {
	QName  string              `json:"qname" binding:"required"`
	Params []string            `json:"params,omitempty"`
	JSON   []map[string]string `json:"json,omitempty"`
}

func (r QueryRequest) ToParams() pdp_model.Params {
	return pdp_model.Params{Values: r.Params, Rows: r.JSON}
}

type QueryResult struct {
	QName string           `json:"qname"`
	Count int              `json:"count"`
	Rows  []map[string]any `json:"rows"`
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Session is what a successful login hands back to the client.
type Session struct {
	Token     string    `json:"token"`
	SyncToken string    `json:"syncToken"`
	Subject   string    `json:"subject"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Credentials are a user's stored password hash and grants.
type Credentials struct {
	UserID       string
	PasswordHash string
	Grants       []Grant
}

// QuerySecurity describes how a catalog query is protected.
type QuerySecurity struct {
	QName     string             `json:"qname"`
	App       string             `json:"app"`
	GrantApp  string             `json:"grantApp"`
	Protected bool               `json:"protected"`
	Security  *spec.SecuritySpec `json:"security,omitempty"`
}

// QueryExecution is published after a query ran.
type QueryExecution struct {
	QName    string        `json:"qname"`
	Secured  bool          `json:"secured"`
	Rows     int           `json:"rows"`
	Duration time.Duration `json:"duration"`
}
