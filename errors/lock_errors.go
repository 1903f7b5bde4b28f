// gatekeeper/errors/lock_errors.go
package errors

import "errors"

var (
	ErrInvalidLockData = errors.New("invalid lock data")
	ErrLockNotFound    = errors.New("lock not found")
)
