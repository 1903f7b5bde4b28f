// gatekeeper/errors/auth_errors.go
package errors

import "errors"

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidLoginData   = errors.New("invalid login data")
)
