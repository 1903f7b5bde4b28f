// gatekeeper/errors/query_errors.go
package errors

import "errors"

var (
	ErrQueryNotFound       = errors.New("query not found")
	ErrInvalidQueryRequest = errors.New("invalid query request")
	ErrQueryExecution      = errors.New("query execution failed")
	ErrInvalidCatalog      = errors.New("invalid query catalog")
	ErrDatabaseOperation   = errors.New("database operation failed")
	ErrInternalServer      = errors.New("internal server error")
)
