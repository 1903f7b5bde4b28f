// gatekeeper/util/http_util.go
package util

import (
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	logger "github.com/dev-mohitbeniwal/echo/gatekeeper/logging"
	pdp_model "github.com/dev-mohitbeniwal/echo/gatekeeper/pdp/model"
	"github.com/dev-mohitbeniwal/echo/gatekeeper/pdp/token"
)

// ContextUserID is the gin context key holding the authenticated subject.
const ContextUserID = "userID"

func RespondWithError(c *gin.Context, code int, message string, err error) {
	logger.Error(message,
		zap.Error(err),
		zap.String("path", c.Request.URL.Path),
		zap.String("method", c.Request.Method))
	c.JSON(code, gin.H{"error": message})
}

// RespondUnauthorized answers with a bare 403. The cause stays in the
// server-side log.
func RespondUnauthorized(c *gin.Context, err error) {
	logger.Warn("Unauthorized",
		zap.Error(err),
		zap.String("path", c.Request.URL.Path),
		zap.String("method", c.Request.Method))
	c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Unauthorized"})
}

func GetUserIDFromContext(c *gin.Context) (string, error) {
	userID, exists := c.Get(ContextUserID)
	if !exists {
		return "", nil
	}
	return userID.(string), nil
}

// wireNames restores the spelling of headers the gatekeeper matches on,
// which net/http canonicalizes away.
var wireNames = map[string]string{
	http.CanonicalHeaderKey(token.HeaderAuthorization): token.HeaderAuthorization,
	http.CanonicalHeaderKey(token.HeaderSyncToken):     token.HeaderSyncToken,
}

// SecurityRequest converts the HTTP request into the gatekeeper's view of it.
// Header names are visited in sorted order and values in received order.
func SecurityRequest(c *gin.Context) *pdp_model.SecurityRequest {
	names := make([]string, 0, len(c.Request.Header))
	for name := range c.Request.Header {
		names = append(names, name)
	}
	sort.Strings(names)

	req := &pdp_model.SecurityRequest{
		Path:    c.Request.URL.Path,
		Cookies: make(map[string]string),
	}
	for _, name := range names {
		wire := name
		if w, ok := wireNames[name]; ok {
			wire = w
		}
		for _, v := range c.Request.Header[name] {
			req.Headers = append(req.Headers, pdp_model.Header{Name: wire, Value: v})
		}
	}
	for _, ck := range c.Request.Cookies() {
		req.Cookies[ck.Name] = ck.Value
	}
	return req
}
