package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/signinable/signind/internal/models"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

var (
	ErrSigninNotFound = errors.New("signin not found")

	// ErrRotationConflict means a conditional update matched zero rows: a
	// concurrent rotation already consumed the token the caller presented.
	ErrRotationConflict = errors.New("signin token already rotated")

	// ErrTokenConflict is a unique violation on the token column at create
	// time. With 256+ bits of token entropy this is an infrastructure
	// accident, retryable by the caller.
	ErrTokenConflict = errors.New("signin token already exists")

	ErrUserNotFound = errors.New("user not found")

	ErrAPIKeyNotFound = errors.New("api key not found")
)

type Storage interface {
	SigninRepository
	UserRepository
}

// SigninRepository persists Signin rows. RotateSignin is the only
// synchronization primitive the core relies on: it must update the row
// identified by id iff its token still equals oldToken, atomically, and
// report ErrRotationConflict when it no longer does.
type SigninRepository interface {
	CreateSignin(ctx context.Context, signin *models.Signin) error
	GetSigninByToken(ctx context.Context, token string) (*models.Signin, error)
	GetActiveSignins(ctx context.Context, ownerType, ownerID string, now time.Time) ([]models.Signin, error)
	UpdateSignin(ctx context.Context, id string, upd models.SigninUpdate) error
	RotateSignin(ctx context.Context, id, oldToken string, upd models.SigninUpdate) error
}

type UserRepository interface {
	CreateUser(ctx context.Context, guid string) (*models.User, error)
	GetUserByGUID(ctx context.Context, guid string) (*models.User, error)
}

type APIKeyRepository interface {
	GetAPIKey(ctx context.Context, apiKey string) (*models.APIKey, error)
}
