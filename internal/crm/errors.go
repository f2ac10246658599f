package crm

import "errors"

var (
	// ErrUnauthorized is returned on HTTP 401/403: the operator token is
	// missing, expired or lacks permission.
	ErrUnauthorized = errors.New("crm: unauthorized")

	// ErrTimeout is returned when the request deadline expires before the
	// service responds.
	ErrTimeout = errors.New("crm: request timed out")

	// ErrUnavailable covers transport failures and 5xx responses.
	ErrUnavailable = errors.New("crm: service unavailable")
)
