package memory

import (
	"context"
	"sync"

	"github.com/signinable/signind/internal/models"
	"github.com/signinable/signind/internal/storage"
)

type UserStore struct {
	mu     sync.RWMutex
	nextID int64
	byGUID map[string]models.User
}

func NewUserStore() *UserStore {
	return &UserStore{byGUID: make(map[string]models.User)}
}

func (m *UserStore) CreateUser(_ context.Context, guid string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	user := models.User{ID: m.nextID, GUID: guid}
	m.byGUID[guid] = user
	return &user, nil
}

func (m *UserStore) GetUserByGUID(_ context.Context, guid string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	user, ok := m.byGUID[guid]
	if !ok {
		return nil, storage.ErrUserNotFound
	}
	return &user, nil
}
