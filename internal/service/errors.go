package service

import (
	"errors"
	"fmt"
)

var (
	// ErrNotAuthenticated is the only rejection Authenticate hands to the
	// host. The specific cause is wrapped underneath for observability, but
	// callers must not surface it to the client: a stale-token holder should
	// not learn whether the session still exists.
	ErrNotAuthenticated = errors.New("not authenticated")

	ErrInvalidSignature    = errors.New("bearer token invalid")
	ErrBearerExpired       = errors.New("bearer token expired")
	ErrBearerRevoked       = errors.New("bearer token revoked")
	ErrSigninExpired       = errors.New("signin expired")
	ErrRestrictionViolated = errors.New("signin restriction violated")
	ErrOwnerNotFound       = errors.New("owner not found")

	// ErrNothingToSignout reports an idempotent no-op: the signin is already
	// gone or expired.
	ErrNothingToSignout = errors.New("no active signin to sign out")
)

func notAuthenticated(cause error) error {
	return fmt.Errorf("%w: %w", ErrNotAuthenticated, cause)
}
