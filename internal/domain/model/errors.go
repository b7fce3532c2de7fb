package model

import "errors"

// Error kinds shared by the service and handler layers. Handlers map these
// onto HTTP status codes at the response boundary; anything unrecognized is
// reported as an internal error.
var (
	// ErrUnauthenticated means the session cookie is missing or unknown.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrForbidden means the session's role does not allow the operation.
	ErrForbidden = errors.New("forbidden")

	// ErrNotFound means the addressed entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrBadRequest means the input was malformed or empty where it may not be.
	ErrBadRequest = errors.New("bad request")
)
