package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/signinable/signind/internal/models"
	"github.com/signinable/signind/internal/storage"
)

// SigninStore is the reference SigninRepository. All mutations happen under
// one mutex, which gives RotateSignin its compare-and-swap atomicity.
type SigninStore struct {
	mu      sync.RWMutex
	byID    map[string]*models.Signin
	byToken map[string]string // token -> id
	log     *zap.SugaredLogger
}

func NewSigninStore(log *zap.SugaredLogger) *SigninStore {
	return &SigninStore{
		byID:    make(map[string]*models.Signin),
		byToken: make(map[string]string),
		log:     log,
	}
}

func (m *SigninStore) CreateSignin(_ context.Context, signin *models.Signin) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.byToken[signin.Token]; exists {
		return storage.ErrTokenConflict
	}

	if signin.ID == "" {
		signin.ID = uuid.NewString()
	}

	stored := *signin
	m.byID[stored.ID] = &stored
	m.byToken[stored.Token] = stored.ID
	m.log.Debugw("signin created", "signinID", stored.ID, "ownerID", stored.OwnerID)

	return nil
}

func (m *SigninStore) GetSigninByToken(_ context.Context, token string) (*models.Signin, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.byToken[token]
	if !ok {
		return nil, storage.ErrSigninNotFound
	}

	found := *m.byID[id]
	return &found, nil
}

func (m *SigninStore) GetActiveSignins(_ context.Context, ownerType, ownerID string, now time.Time) ([]models.Signin, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var active []models.Signin
	for _, s := range m.byID {
		if s.OwnerType == ownerType && s.OwnerID == ownerID && s.Active(now) {
			active = append(active, *s)
		}
	}
	return active, nil
}

func (m *SigninStore) UpdateSignin(_ context.Context, id string, upd models.SigninUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.byID[id]
	if !ok {
		return storage.ErrSigninNotFound
	}

	m.apply(s, upd)
	return nil
}

func (m *SigninStore) RotateSignin(_ context.Context, id, oldToken string, upd models.SigninUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.byID[id]
	if !ok {
		return storage.ErrSigninNotFound
	}
	if s.Token != oldToken {
		m.log.Debugw("rotation lost the race", "signinID", id)
		return storage.ErrRotationConflict
	}

	m.apply(s, upd)
	return nil
}

// apply mutates s in place; callers hold the write lock.
func (m *SigninStore) apply(s *models.Signin, upd models.SigninUpdate) {
	if upd.Token != "" && upd.Token != s.Token {
		delete(m.byToken, s.Token)
		m.byToken[upd.Token] = s.ID
		s.Token = upd.Token
	}
	if upd.IP != "" {
		s.IP = upd.IP
	}
	if upd.UserAgent != "" {
		s.UserAgent = upd.UserAgent
	}
	s.ExpirationTime = upd.ExpirationTime
	s.UpdatedAt = upd.UpdatedAt
}
