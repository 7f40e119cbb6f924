package repository

import "errors"

var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict indicates a uniqueness or constraint violation.
	ErrConflict = errors.New("conflict")

	// ErrCodeUsed indicates the authorization code was already consumed.
	// The compare-and-set on used_at lost the race or the code is replayed.
	ErrCodeUsed = errors.New("authorization code already used")

	// ErrTokenRevoked indicates the token carries a revoked_at timestamp.
	ErrTokenRevoked = errors.New("token revoked")
)

// IsNotFound reports whether err is ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
