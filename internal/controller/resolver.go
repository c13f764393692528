package controller

import (
	"context"
	"errors"
	"fmt"

	"github.com/signinable/signind/internal/models"
	"github.com/signinable/signind/internal/service"
	"github.com/signinable/signind/internal/storage"
)

// UserResolver adapts the user repository to the owner-resolution capability
// the session manager needs. Signin owner ids are user GUIDs.
type UserResolver struct {
	users storage.UserRepository
}

func NewUserResolver(users storage.UserRepository) *UserResolver {
	return &UserResolver{users: users}
}

func (r *UserResolver) ResolveOwner(ctx context.Context, ownerID string) (models.User, error) {
	user, err := r.users.GetUserByGUID(ctx, ownerID)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return models.User{}, fmt.Errorf("%w: guid %s", service.ErrOwnerNotFound, ownerID)
		}
		return models.User{}, err
	}
	return *user, nil
}
