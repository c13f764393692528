package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/signinable/signind/internal/models"
	"github.com/signinable/signind/internal/storage"
)

type UserRepository struct {
	db storage.DBTX
}

func NewUserRepository(db storage.DBTX) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) CreateUser(ctx context.Context, guid string) (*models.User, error) {
	var user models.User
	query := `INSERT INTO users (guid) VALUES ($1) RETURNING id, guid`
	if err := r.db.QueryRowContext(ctx, query, guid).Scan(&user.ID, &user.GUID); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return &user, nil
}

func (r *UserRepository) GetUserByGUID(ctx context.Context, guid string) (*models.User, error) {
	var user models.User
	query := `SELECT id, guid FROM users WHERE guid = $1`
	err := r.db.QueryRowContext(ctx, query, guid).Scan(&user.ID, &user.GUID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user by guid: %w", err)
	}
	return &user, nil
}
