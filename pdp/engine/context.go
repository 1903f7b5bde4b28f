package engine

import (
	"github.com/dev-mohitbeniwal/echo/gatekeeper/model"
	pdp_model "github.com/dev-mohitbeniwal/echo/gatekeeper/pdp/model"
)

// requestContext exposes one request's values to the injection accessors.
type requestContext struct {
	token    string
	req      *pdp_model.SecurityRequest
	identity *model.Identity
}

func (c *requestContext) Token() string {
	return c.token
}

func (c *requestContext) Cookie(name string) (string, bool) {
	return c.req.Cookie(name)
}

func (c *requestContext) Header(name string) (string, bool) {
	return c.req.Headers.Get(name)
}

func (c *requestContext) Subject() (string, bool) {
	if c.identity == nil || c.identity.Subject == "" {
		return "", false
	}
	return c.identity.Subject, true
}
