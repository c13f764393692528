package memory

import (
	"context"
	"sync"

	"github.com/signinable/signind/internal/models"
	"github.com/signinable/signind/internal/storage"
)

type APIKeyStore struct {
	mu      sync.RWMutex
	apiKeys map[string]models.APIKey
}

// NewAPIKeyStore seeds the store with the given host-application keys.
func NewAPIKeyStore(keys ...models.APIKey) *APIKeyStore {
	apiKeys := make(map[string]models.APIKey, len(keys))
	for _, k := range keys {
		apiKeys[k.Key] = k
	}
	return &APIKeyStore{apiKeys: apiKeys}
}

func (m *APIKeyStore) GetAPIKey(_ context.Context, apiKey string) (*models.APIKey, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	key, ok := m.apiKeys[apiKey]
	if !ok {
		return nil, storage.ErrAPIKeyNotFound
	}

	return &key, nil
}
