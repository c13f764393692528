package service_test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/signinable/signind/internal/models"
	"github.com/signinable/signind/internal/service"
	"github.com/signinable/signind/internal/storage"
	"github.com/signinable/signind/internal/storage/memory"
)

var testSecret = []byte("test-secret")

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type testOwner struct {
	GUID string
}

type testResolver struct {
	mu     sync.Mutex
	owners map[string]testOwner
}

func newTestResolver(owners ...testOwner) *testResolver {
	r := &testResolver{owners: make(map[string]testOwner)}
	for _, o := range owners {
		r.owners[o.GUID] = o
	}
	return r
}

func (r *testResolver) ResolveOwner(_ context.Context, ownerID string) (testOwner, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	owner, ok := r.owners[ownerID]
	if !ok {
		return testOwner{}, fmt.Errorf("%w: %s", service.ErrOwnerNotFound, ownerID)
	}
	return owner, nil
}

// countingStore tracks store traffic so tests can prove the fast path never
// touches it.
type countingStore struct {
	storage.SigninRepository
	finds   atomic.Int64
	rotates atomic.Int64
}

func newCountingStore() *countingStore {
	return &countingStore{SigninRepository: memory.NewSigninStore(zap.NewNop().Sugar())}
}

func (s *countingStore) GetSigninByToken(ctx context.Context, token string) (*models.Signin, error) {
	s.finds.Add(1)
	return s.SigninRepository.GetSigninByToken(ctx, token)
}

func (s *countingStore) RotateSignin(ctx context.Context, id, oldToken string, upd models.SigninUpdate) error {
	s.rotates.Add(1)
	return s.SigninRepository.RotateSignin(ctx, id, oldToken, upd)
}

type managerEnv struct {
	manager *service.Manager[testOwner]
	store   *countingStore
	clock   *fakeClock
	owner   testOwner
}

func newManagerEnv(mutate func(*service.Config[testOwner]), opts ...service.ManagerOption[testOwner]) (*managerEnv, error) {
	clock := newFakeClock()
	store := newCountingStore()
	owner := testOwner{GUID: "u1"}

	cfg := service.Config[testOwner]{
		OwnerType:  "TestOwner",
		OwnerID:    func(o testOwner) string { return o.GUID },
		Secret:     testSecret,
		RefreshTTL: 2 * time.Hour,
		BearerTTL:  time.Minute,
	}
	if mutate != nil {
		mutate(&cfg)
	}

	opts = append(opts, service.WithClock[testOwner](clock))
	manager, err := service.NewManager(cfg, store, newTestResolver(owner), opts...)
	if err != nil {
		return nil, err
	}

	return &managerEnv{manager: manager, store: store, clock: clock, owner: owner}, nil
}

var testFingerprint = models.Fingerprint{IP: "10.0.0.1", UserAgent: "X", Referer: "https://example.com"}
