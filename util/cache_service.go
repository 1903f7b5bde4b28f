// gatekeeper/util/cache_service.go

package util

import (
	"context"
	"time"

	"github.com/dev-mohitbeniwal/echo/gatekeeper/db"
	"github.com/dev-mohitbeniwal/echo/gatekeeper/model"
)

// CacheService is the redis-backed identity replica. It satisfies
// cache.Replica.
type CacheService struct{}

func NewCacheService() *CacheService {
	return &CacheService{}
}

func (c *CacheService) LoadIdentity(ctx context.Context, token string) (*model.Identity, time.Duration, error) {
	return db.GetCachedIdentity(ctx, token)
}

func (c *CacheService) SaveIdentity(ctx context.Context, token string, identity *model.Identity, ttl time.Duration) error {
	return db.CacheIdentity(ctx, token, identity, ttl)
}

func (c *CacheService) DeleteIdentity(ctx context.Context, token string) error {
	return db.DeleteCachedIdentity(ctx, token)
}

// RateLimit reports whether key is still within limit requests per window.
func (c *CacheService) RateLimit(ctx context.Context, key string, limit int, per time.Duration) (bool, error) {
	return db.RateLimit(ctx, key, limit, per)
}
