package middleware

import (
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	logger "github.com/dev-mohitbeniwal/echo/gatekeeper/logging"
	"github.com/dev-mohitbeniwal/echo/gatekeeper/pdp/engine"
	pdp_model "github.com/dev-mohitbeniwal/echo/gatekeeper/pdp/model"
	"github.com/dev-mohitbeniwal/echo/gatekeeper/pdp/token"
	"github.com/dev-mohitbeniwal/echo/gatekeeper/util"
)

// ContextToken is the gin context key holding the caller's bearer token.
const ContextToken = "bearerToken"

var errSubjectMismatch = errors.New("token subject does not match cached identity")

// GrantAuth admits requests whose cached identity holds at least one of keys
// for app, using the same token, identity and sync-token checks as query
// evaluation. With no keys any grant for app is enough.
func GrantAuth(tokens *token.Resolver, identities engine.IdentityStore, app string, keys ...string) gin.HandlerFunc {
	locks := make([]pdp_model.Lock, 0, len(keys))
	for _, k := range keys {
		locks = append(locks, pdp_model.Lock{Qualifier: k, Type: pdp_model.Whitelist})
	}

	return func(c *gin.Context) {
		req := util.SecurityRequest(c)

		tok, err := tokens.Extract(req)
		if err != nil {
			util.RespondUnauthorized(c, err)
			return
		}
		claims, err := tokens.Validate(tok)
		if err != nil {
			util.RespondUnauthorized(c, err)
			return
		}
		identity, ok := identities.Get(c.Request.Context(), tok)
		if !ok {
			util.RespondUnauthorized(c, errors.New("no cached identity for token"))
			return
		}
		if claims.Subject != "" && claims.Subject != identity.Subject {
			util.RespondUnauthorized(c, errSubjectMismatch)
			return
		}
		if err := engine.Authorize(identity, locks, token.SyncToken(req), app); err != nil {
			util.RespondUnauthorized(c, err)
			return
		}

		c.Set(util.ContextUserID, identity.Subject)
		c.Set(ContextToken, tok)
		logger.Debug("Grant check passed", zap.String("userID", identity.Subject), zap.String("app", app))
		c.Next()
	}
}
