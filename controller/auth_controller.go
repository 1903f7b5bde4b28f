// gatekeeper/controller/auth_controller.go
package controller

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	sec_errors "github.com/dev-mohitbeniwal/echo/gatekeeper/errors"
	"github.com/dev-mohitbeniwal/echo/gatekeeper/model"
	"github.com/dev-mohitbeniwal/echo/gatekeeper/pdp/token"
	"github.com/dev-mohitbeniwal/echo/gatekeeper/service"
	"github.com/dev-mohitbeniwal/echo/gatekeeper/util"
)

type AuthController struct {
	authService service.IAuthService
	tokens      *token.Resolver
}

func NewAuthController(authService service.IAuthService, tokens *token.Resolver) *AuthController {
	return &AuthController{
		authService: authService,
		tokens:      tokens,
	}
}

// RegisterRoutes registers the API routes
func (ac *AuthController) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/login", ac.Login)
	r.POST("/logout", ac.Logout)
}

// Login endpoint. The token is returned in the body and as an HttpOnly cookie.
func (ac *AuthController) Login(c *gin.Context) {
	var req model.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid login data", sec_errors.ErrInvalidLoginData)
		return
	}

	session, err := ac.authService.Login(c.Request.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, sec_errors.ErrInvalidCredentials):
			util.RespondWithError(c, http.StatusUnauthorized, "Invalid credentials", err)
		case errors.Is(err, sec_errors.ErrInvalidLoginData):
			util.RespondWithError(c, http.StatusBadRequest, "Invalid login data", err)
		default:
			util.RespondWithError(c, http.StatusInternalServerError, "Login failed", err)
		}
		return
	}

	if name := ac.tokens.Cookie(); name != "" {
		maxAge := int(time.Until(session.ExpiresAt).Seconds())
		c.SetSameSite(http.SameSiteStrictMode)
		c.SetCookie(name, session.Token, maxAge, "/", "", c.Request.TLS != nil, true)
	}
	c.JSON(http.StatusOK, session)
}

// Logout endpoint
func (ac *AuthController) Logout(c *gin.Context) {
	tok, err := ac.tokens.Extract(util.SecurityRequest(c))
	if err != nil {
		util.RespondUnauthorized(c, err)
		return
	}

	if err := ac.authService.Logout(c.Request.Context(), tok); err != nil {
		util.RespondWithError(c, http.StatusInternalServerError, "Logout failed", err)
		return
	}

	if name := ac.tokens.Cookie(); name != "" {
		c.SetCookie(name, "", -1, "/", "", c.Request.TLS != nil, true)
	}
	c.Status(http.StatusNoContent)
}
