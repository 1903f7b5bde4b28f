package token

import (
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	pdp_model "github.com/dev-mohitbeniwal/echo/gatekeeper/pdp/model"
)

const (
	HeaderAuthorization = "Authorization"
	HeaderSyncToken     = "X-CSRF-Token"
	DefaultCookie       = "yadajwt"
)

var (
	ErrNoToken      = errors.New("no bearer token in request")
	ErrInvalidToken = errors.New("invalid bearer token")
	ErrNoSecret     = errors.New("token signing secret is not configured")
)

var rxBearer = regexp.MustCompile(`^(Bearer)(.+?)([A-Za-z0-9\-\._~\+\/]+=*)$`)

// Claims are the registered claims the gatekeeper relies on.
type Claims struct {
	jwt.RegisteredClaims
}

// Resolver finds the bearer token of a request and verifies it. Tokens are
// HS512-signed with a shared secret and carry a fixed issuer.
type Resolver struct {
	secret  []byte
	issuer  string
	cookie  string
	headers []string
}

func NewResolver(secret, issuer, cookie string) (*Resolver, error) {
	if secret == "" {
		return nil, ErrNoSecret
	}
	if cookie == "" {
		cookie = DefaultCookie
	}
	return &Resolver{
		secret:  []byte(secret),
		issuer:  issuer,
		cookie:  cookie,
		headers: []string{HeaderAuthorization, HeaderSyncToken},
	}, nil
}

// Extract scans the bearer-carrying headers in request order; the last match
// wins. The cookie is consulted only when no header yields a token.
func (r *Resolver) Extract(req *pdp_model.SecurityRequest) (string, error) {
	var token string
	for _, h := range req.Headers {
		if !r.scans(h.Name) {
			continue
		}
		if m := rxBearer.FindStringSubmatch(h.Value); m != nil {
			token = m[3]
		}
	}
	if token != "" {
		return token, nil
	}
	if c, ok := req.Cookie(r.cookie); ok && c != "" {
		return c, nil
	}
	return "", ErrNoToken
}

func (r *Resolver) scans(name string) bool {
	for _, h := range r.headers {
		if h == name {
			return true
		}
	}
	return false
}

// Validate checks signature, algorithm, issuer and expiry.
func (r *Resolver) Validate(token string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return r.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS512.Alg()}),
		jwt.WithIssuer(r.issuer),
		jwt.WithIssuedAt(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Issue signs a token for subject that expires after ttl.
func (r *Resolver) Issue(subject string, issuedAt time.Time, ttl time.Duration) (string, error) {
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    r.issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(ttl)),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString(r.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

func (r *Resolver) Cookie() string {
	return r.cookie
}

// SyncToken returns the request's synchronizer token. The header name is
// matched case-insensitively.
func SyncToken(req *pdp_model.SecurityRequest) string {
	v, _ := req.Headers.GetFold(HeaderSyncToken)
	return v
}
