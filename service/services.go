// gatekeeper/service/services.go
package service

import (
	"time"

	"github.com/dev-mohitbeniwal/echo/gatekeeper/dao"
	"github.com/dev-mohitbeniwal/echo/gatekeeper/util"
)

// Services holds every service. Lock is nil when locks come only from
// declarative specs.
type Services struct {
	Query IQueryService
	Auth  IAuthService
	Lock  ILockService
}

// Dependencies are the stores and collaborators the services are built on.
type Dependencies struct {
	Catalog     dao.Finder
	Gatekeeper  Evaluator
	Executor    Fetcher
	Users       CredentialsFinder
	Tokens      TokenIssuer
	Identities  IdentityWriter
	TokenTTL    time.Duration
	IdentityTTL time.Duration
	Locks       LockStore
}

func InitializeServices(deps Dependencies, validationUtil *util.ValidationUtil, eventBus *util.EventBus) (*Services, error) {
	services := &Services{
		Query: NewQueryService(deps.Catalog, deps.Gatekeeper, deps.Executor, validationUtil, eventBus),
		Auth:  NewAuthService(deps.Users, deps.Tokens, deps.Identities, deps.TokenTTL, deps.IdentityTTL, validationUtil, eventBus),
	}
	if deps.Locks != nil {
		services.Lock = NewLockService(deps.Locks, validationUtil, eventBus)
	}
	return services, nil
}
