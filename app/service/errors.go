package service

import "errors"

var (
	ErrValidation        = errors.New("invalid input")
	ErrKeyNotFound       = errors.New("api key not found")
	ErrKeyRevoked        = errors.New("api key revoked")
	ErrKeyExpired        = errors.New("api key expired")
	ErrForbidden         = errors.New("operation forbidden")
	ErrNotFound          = errors.New("resource not found")
	ErrPrecondition      = errors.New("operation not allowed in current state")
	ErrConflict          = errors.New("concurrent state modification")
	ErrAlreadyInProgress = errors.New("operation already in progress for this integration")
	ErrInvalidToken      = errors.New("invalid or expired token")
)

// IsAuthError reports whether err is one of the credential failure cases.
// Callers must surface these uniformly so responses never reveal whether a
// key is unknown, revoked or expired.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrKeyNotFound) || errors.Is(err, ErrKeyRevoked) || errors.Is(err, ErrKeyExpired)
}
