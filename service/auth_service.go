// gatekeeper/service/auth_service.go
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	sec_errors "github.com/dev-mohitbeniwal/echo/gatekeeper/errors"
	logger "github.com/dev-mohitbeniwal/echo/gatekeeper/logging"
	"github.com/dev-mohitbeniwal/echo/gatekeeper/model"
	"github.com/dev-mohitbeniwal/echo/gatekeeper/util"
)

const (
	EventLogin  = "auth.login"
	EventLogout = "auth.logout"
)

//go:generate mockgen -destination=../test/service_mock/auth_service_mock.go -package=mock_service github.com/dev-mohitbeniwal/echo/gatekeeper/service IAuthService

type IAuthService interface {
	Login(ctx context.Context, req model.LoginRequest) (*model.Session, error)
	Logout(ctx context.Context, token string) error
}

var (
	unknownUserOnce sync.Once
	unknownUserHash []byte
)

// unknownUserPassword returns a hash at the default cost, compared against
// when the user does not exist so both failures take as long.
func unknownUserPassword() []byte {
	unknownUserOnce.Do(func() {
		unknownUserHash, _ = bcrypt.GenerateFromPassword([]byte(uuid.NewString()), bcrypt.DefaultCost)
	})
	return unknownUserHash
}

// CredentialsFinder loads a user's password hash and grants.
type CredentialsFinder interface {
	FindCredentials(ctx context.Context, userID string) (*model.Credentials, error)
}

// TokenIssuer signs bearer tokens.
type TokenIssuer interface {
	Issue(subject string, issuedAt time.Time, ttl time.Duration) (string, error)
}

// IdentityWriter caches identities under their bearer token.
type IdentityWriter interface {
	Put(ctx context.Context, token string, identity *model.Identity, ttl time.Duration) error
	Delete(ctx context.Context, token string) error
}

// AuthService logs users in by issuing a token and caching the identity it
// stands for, and logs them out by evicting it.
type AuthService struct {
	users          CredentialsFinder
	tokens         TokenIssuer
	identities     IdentityWriter
	tokenTTL       time.Duration
	identityTTL    time.Duration
	validationUtil *util.ValidationUtil
	eventBus       *util.EventBus
	now            func() time.Time
	compare        func(hash, password []byte) error
}

// NewAuthService wires login. identityTTL bounds how long the cached identity
// outlives its login; zero defers to the identity store's default.
func NewAuthService(users CredentialsFinder, tokens TokenIssuer, identities IdentityWriter, tokenTTL, identityTTL time.Duration, validationUtil *util.ValidationUtil, eventBus *util.EventBus) *AuthService {
	return &AuthService{
		users:          users,
		tokens:         tokens,
		identities:     identities,
		tokenTTL:       tokenTTL,
		identityTTL:    identityTTL,
		validationUtil: validationUtil,
		eventBus:       eventBus,
		now:            time.Now,
		compare:        bcrypt.CompareHashAndPassword,
	}
}

func (s *AuthService) Login(ctx context.Context, req model.LoginRequest) (*model.Session, error) {
	if err := s.validationUtil.ValidateLogin(req); err != nil {
		return nil, fmt.Errorf("%w: %v", sec_errors.ErrInvalidLoginData, err)
	}

	creds, err := s.users.FindCredentials(ctx, req.Username)
	if err != nil {
		if errors.Is(err, sec_errors.ErrUserNotFound) {
			_ = s.compare(unknownUserPassword(), []byte(req.Password))
			logger.Warn("Login for unknown user", zap.String("userID", req.Username))
			return nil, sec_errors.ErrInvalidCredentials
		}
		return nil, err
	}
	if err := s.compare([]byte(creds.PasswordHash), []byte(req.Password)); err != nil {
		logger.Warn("Login with wrong password", zap.String("userID", req.Username))
		return nil, sec_errors.ErrInvalidCredentials
	}

	issuedAt := s.now()
	token, err := s.tokens.Issue(creds.UserID, issuedAt, s.tokenTTL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", sec_errors.ErrInternalServer, err)
	}

	identity := &model.Identity{
		Subject:   creds.UserID,
		IssuedAt:  issuedAt,
		SyncToken: uuid.NewString(),
		Grants:    creds.Grants,
	}
	if err := s.identities.Put(ctx, token, identity, s.identityTTL); err != nil {
		return nil, fmt.Errorf("%w: %v", sec_errors.ErrInternalServer, err)
	}

	s.eventBus.Publish(ctx, EventLogin, identity.Subject)
	logger.Info("User logged in", zap.String("userID", identity.Subject), zap.Int("apps", len(identity.Grants)))
	return &model.Session{
		Token:     token,
		SyncToken: identity.SyncToken,
		Subject:   identity.Subject,
		ExpiresAt: issuedAt.Add(s.tokenTTL),
	}, nil
}

func (s *AuthService) Logout(ctx context.Context, token string) error {
	if err := s.identities.Delete(ctx, token); err != nil {
		return fmt.Errorf("%w: %v", sec_errors.ErrInternalServer, err)
	}
	s.eventBus.Publish(ctx, EventLogout, logger.Redact(token))
	logger.Info("User logged out", logger.Token(token))
	return nil
}
