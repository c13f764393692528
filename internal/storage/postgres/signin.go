package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/signinable/signind/internal/models"
	"github.com/signinable/signind/internal/storage"
)

const pqUniqueViolation = "23505"

type SigninRepository struct {
	db storage.DBTX
}

func NewSigninRepository(db storage.DBTX) *SigninRepository {
	return &SigninRepository{db: db}
}

const signinColumns = `id, owner_type, owner_id, token, ip, user_agent, referer, expiration_time, custom_data, created_at, updated_at`

func (r *SigninRepository) CreateSignin(ctx context.Context, signin *models.Signin) error {
	customData, err := json.Marshal(signin.CustomData)
	if err != nil {
		return fmt.Errorf("marshal custom data: %w", err)
	}

	query := `INSERT INTO signins (owner_type, owner_id, token, ip, user_agent, referer, expiration_time, custom_data, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10) RETURNING id`
	err = r.db.QueryRowContext(
		ctx,
		query,
		signin.OwnerType,
		signin.OwnerID,
		signin.Token,
		signin.IP,
		signin.UserAgent,
		signin.Referer,
		nullTime(signin.ExpirationTime),
		customData,
		signin.CreatedAt,
		signin.UpdatedAt,
	).Scan(&signin.ID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
			return fmt.Errorf("insert signin: %w", storage.ErrTokenConflict)
		}
		return fmt.Errorf("insert signin: %w", err)
	}
	return nil
}

func (r *SigninRepository) GetSigninByToken(ctx context.Context, token string) (*models.Signin, error) {
	query := `SELECT ` + signinColumns + ` FROM signins WHERE token = $1`
	signin, err := scanSignin(r.db.QueryRowContext(ctx, query, token))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrSigninNotFound
		}
		return nil, fmt.Errorf("get signin by token: %w", err)
	}
	return signin, nil
}

func (r *SigninRepository) GetActiveSignins(ctx context.Context, ownerType, ownerID string, now time.Time) ([]models.Signin, error) {
	query := `SELECT ` + signinColumns + ` FROM signins
		WHERE owner_type = $1 AND owner_id = $2 AND (expiration_time IS NULL OR expiration_time > $3)
		ORDER BY created_at`
	rows, err := r.db.QueryContext(ctx, query, ownerType, ownerID, now)
	if err != nil {
		return nil, fmt.Errorf("get active signins: %w", err)
	}
	defer rows.Close()

	var signins []models.Signin
	for rows.Next() {
		signin, err := scanSignin(rows)
		if err != nil {
			return nil, fmt.Errorf("scan signin: %w", err)
		}
		signins = append(signins, *signin)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate signins: %w", err)
	}
	return signins, nil
}

const updateSigninSet = `SET token = COALESCE(NULLIF($2, ''), token),
		ip = COALESCE(NULLIF($3, ''), ip),
		user_agent = COALESCE(NULLIF($4, ''), user_agent),
		expiration_time = $5,
		updated_at = $6`

func (r *SigninRepository) UpdateSignin(ctx context.Context, id string, upd models.SigninUpdate) error {
	query := `UPDATE signins ` + updateSigninSet + ` WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, upd.Token, upd.IP, upd.UserAgent, nullTime(upd.ExpirationTime), upd.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update signin: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update signin rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrSigninNotFound
	}
	return nil
}

// RotateSignin is the compare-and-swap the whole rotation protocol leans on:
// the WHERE clause only matches while the row still carries oldToken, so under
// concurrent rotations Postgres serializes the row updates and exactly one
// caller sees a row affected.
func (r *SigninRepository) RotateSignin(ctx context.Context, id, oldToken string, upd models.SigninUpdate) error {
	query := `UPDATE signins ` + updateSigninSet + ` WHERE id = $1 AND token = $7`
	res, err := r.db.ExecContext(ctx, query, id, upd.Token, upd.IP, upd.UserAgent, nullTime(upd.ExpirationTime), upd.UpdatedAt, oldToken)
	if err != nil {
		return fmt.Errorf("rotate signin: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rotate signin rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrRotationConflict
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSignin(row rowScanner) (*models.Signin, error) {
	var (
		signin     models.Signin
		expiration sql.NullTime
		customData []byte
	)
	err := row.Scan(
		&signin.ID,
		&signin.OwnerType,
		&signin.OwnerID,
		&signin.Token,
		&signin.IP,
		&signin.UserAgent,
		&signin.Referer,
		&expiration,
		&customData,
		&signin.CreatedAt,
		&signin.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if expiration.Valid {
		t := expiration.Time
		signin.ExpirationTime = &t
	}
	if len(customData) > 0 {
		if err := json.Unmarshal(customData, &signin.CustomData); err != nil {
			return nil, fmt.Errorf("unmarshal custom data: %w", err)
		}
	}
	return &signin, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
