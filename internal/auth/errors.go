package auth

import "errors"

var (
	// ErrUnauthenticated covers missing or bad credentials and unresolvable
	// sessions. Callers cannot distinguish the sub-causes.
	ErrUnauthenticated = errors.New("auth: unauthenticated")

	// ErrInvalidToken indicates a token that failed signature or expiry checks.
	ErrInvalidToken = errors.New("auth: invalid token")

	// ErrTokenRevoked indicates a cryptographically valid token that has been
	// explicitly invalidated via logout.
	ErrTokenRevoked = errors.New("auth: token has been invalidated")

	// ErrForbidden indicates a known identity without sufficient rights.
	ErrForbidden = errors.New("auth: forbidden")
)
