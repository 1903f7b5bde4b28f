package cache

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	logger "github.com/dev-mohitbeniwal/echo/gatekeeper/logging"
	"github.com/dev-mohitbeniwal/echo/gatekeeper/model"
)

// Replica is a second, shared identity tier. Load returns a nil identity when
// the key is absent.
type Replica interface {
	LoadIdentity(ctx context.Context, token string) (*model.Identity, time.Duration, error)
	SaveIdentity(ctx context.Context, token string, identity *model.Identity, ttl time.Duration) error
	DeleteIdentity(ctx context.Context, token string) error
}

// Store is the identity lookup used by the gatekeeper and the login flow. The
// local cache answers first; on a miss the replica, when configured, is
// consulted and a hit is installed locally for its remaining lifetime.
type Store struct {
	local   *IdentityCache
	replica Replica
}

func NewStore(local *IdentityCache, replica Replica) *Store {
	return &Store{local: local, replica: replica}
}

func (s *Store) Get(ctx context.Context, token string) (*model.Identity, bool) {
	if id, ok := s.local.Get(token); ok {
		return id, true
	}
	if s.replica == nil {
		return nil, false
	}

	id, ttl, err := s.replica.LoadIdentity(ctx, token)
	if err != nil {
		logger.Warn("Identity replica lookup failed", zap.Error(err), logger.Token(token))
		return nil, false
	}
	if id == nil || ttl <= 0 {
		return nil, false
	}
	if err := id.Validate(); err != nil {
		logger.Warn("Discarding invalid identity from replica", zap.Error(err), logger.Token(token))
		return nil, false
	}

	s.local.Put(token, id, ttl)
	logger.Debug("Identity restored from replica", zap.String("subject", id.Subject), zap.Duration("ttl", ttl))
	return id, true
}

// Put validates identity and writes it to both tiers, the replica first.
func (s *Store) Put(ctx context.Context, token string, identity *model.Identity, ttl time.Duration) error {
	if err := identity.Validate(); err != nil {
		return fmt.Errorf("refusing to cache identity: %w", err)
	}
	if ttl <= 0 {
		ttl = s.local.DefaultTTL()
	}
	// a replica failure leaves no local entry
	if s.replica != nil {
		if err := s.replica.SaveIdentity(ctx, token, identity, ttl); err != nil {
			return fmt.Errorf("failed to replicate identity: %w", err)
		}
	}
	s.local.Put(token, identity, ttl)
	return nil
}

func (s *Store) Delete(ctx context.Context, token string) error {
	s.local.Delete(token)
	if s.replica != nil {
		if err := s.replica.DeleteIdentity(ctx, token); err != nil {
			return fmt.Errorf("failed to evict replicated identity: %w", err)
		}
	}
	return nil
}
