package router

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/dev-mohitbeniwal/echo/gatekeeper/controller"
	"github.com/dev-mohitbeniwal/echo/gatekeeper/db"
	"github.com/dev-mohitbeniwal/echo/gatekeeper/pdp/token"
	"github.com/dev-mohitbeniwal/echo/gatekeeper/service"
	gk_mock "github.com/dev-mohitbeniwal/echo/gatekeeper/test/mock"
	mock_service "github.com/dev-mohitbeniwal/echo/gatekeeper/test/service_mock"
	"github.com/dev-mohitbeniwal/echo/gatekeeper/util"
)

func newControllers(t *testing.T) *controller.Controllers {
	ctrl := gomock.NewController(t)
	tokens, err := token.NewResolver("secret", "yada", "")
	require.NoError(t, err)

	services := &service.Services{
		Query: mock_service.NewMockIQueryService(ctrl),
		Auth:  mock_service.NewMockIAuthService(ctrl),
		Lock:  mock_service.NewMockILockService(ctrl),
	}
	return controller.InitializeControllers(services, new(gk_mock.MockAuditService), tokens, nil)
}

func TestSetupRouter_Routes(t *testing.T) {
	r := SetupRouter(newControllers(t), nil, 0, 0)

	routes := map[string]bool{}
	for _, ri := range r.Routes() {
		routes[ri.Method+" "+ri.Path] = true
	}
	for _, want := range []string{
		"POST /api/v1/query",
		"GET /api/v1/queries/:qname/security",
		"POST /api/v1/login",
		"POST /api/v1/logout",
		"GET /api/v1/security/decisions",
		"GET /api/v1/security/locks",
		"POST /api/v1/security/locks",
		"DELETE /api/v1/security/locks",
		"GET /healthz",
	} {
		assert.True(t, routes[want], want)
	}
}

func TestSetupRouter_RateLimited(t *testing.T) {
	mr := miniredis.RunT(t)
	db.RedisClient = redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = db.RedisClient.Close() })

	r := SetupRouter(newControllers(t), util.NewCacheService(), 1, time.Minute)

	var codes []int
	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest("GET", "/healthz", nil))
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusTooManyRequests}, codes)
}
