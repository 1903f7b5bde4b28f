// gatekeeper/errors/security_errors.go
package errors

import (
	"errors"
	"fmt"
)

// ErrUnauthorized is the only security failure a client ever sees.
var ErrUnauthorized = errors.New("unauthorized")

// Kind classifies a security failure for server-side logs.
type Kind string

const (
	KindToken         Kind = "token"
	KindIdentity      Kind = "identity"
	KindSyncToken     Kind = "sync_token"
	KindGrant         Kind = "grant"
	KindPath          Kind = "path"
	KindConfiguration Kind = "configuration"
	KindInjection     Kind = "injection"
	KindProtector     Kind = "protector"
	KindIncompatible  Kind = "incompatible"
	KindPredicate     Kind = "predicate"
)

// SecurityError carries the detail of a denied request. Error() is meant for
// logs; handlers must answer with ErrUnauthorized's text only.
type SecurityError struct {
	Kind   Kind
	Reason string
	Err    error
}

func NewSecurityError(kind Kind, reason string, err error) *SecurityError {
	return &SecurityError{Kind: kind, Reason: reason, Err: err}
}

func (e *SecurityError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
}

// Is makes every SecurityError match ErrUnauthorized.
func (e *SecurityError) Is(target error) bool {
	return target == ErrUnauthorized
}

func (e *SecurityError) Unwrap() error {
	return e.Err
}

// IsConfiguration reports whether the failure stems from policy configuration
// rather than from the request.
func (e *SecurityError) IsConfiguration() bool {
	return e.Kind == KindConfiguration || e.Kind == KindPredicate
}

// AsSecurityError unwraps err into a SecurityError if it is one.
func AsSecurityError(err error) (*SecurityError, bool) {
	var se *SecurityError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}
