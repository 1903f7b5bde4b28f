// gatekeeper/controller/controllers.go
package controller

import (
	"github.com/gin-gonic/gin"

	"github.com/dev-mohitbeniwal/echo/gatekeeper/audit"
	"github.com/dev-mohitbeniwal/echo/gatekeeper/pdp/token"
	"github.com/dev-mohitbeniwal/echo/gatekeeper/service"
)

// Controllers holds every controller. Lock is nil when no lock store is
// configured.
type Controllers struct {
	Query    *QueryController
	Auth     *AuthController
	Decision *DecisionController
	Lock     *LockController
}

// InitializeControllers builds every controller. adminGuard protects the
// inspection endpoints.
func InitializeControllers(services *service.Services, auditService audit.Service, tokens *token.Resolver, adminGuard gin.HandlerFunc) *Controllers {
	controllers := &Controllers{
		Query:    NewQueryController(services.Query, adminGuard),
		Auth:     NewAuthController(services.Auth, tokens),
		Decision: NewDecisionController(auditService, adminGuard),
	}
	if services.Lock != nil {
		controllers.Lock = NewLockController(services.Lock, adminGuard)
	}
	return controllers
}
