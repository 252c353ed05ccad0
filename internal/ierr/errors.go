package ierr

import "errors"

var (
	ErrValidation     = errors.New("validation failed")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrNotFound       = errors.New("resource not found")
	ErrInternalServer = errors.New("internal server error")

	ErrStoreUnavailable = errors.New("database not configured")
	ErrKeyGeneration    = errors.New("could not generate a unique license key")
)
